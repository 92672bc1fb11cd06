package dts

import (
	"io"

	"github.com/anaminus/parse"
	"github.com/go-gl/mathgl/mgl32"

	ts "github.com/andrewstrauch/The-Scarab-Gauntlet-sub002"
	"github.com/andrewstrauch/The-Scarab-Gauntlet-sub002/errors"
)

// readSequence reads one sequence record. The field order is fixed and
// shared with writeSequence.
func readSequence(br *parse.BinaryReader) (q ts.Sequence, failed bool) {
	br.Number(&q.NameIndex)
	br.Number(&q.Flags)
	br.Number(&q.NumKeyframes)
	br.Number(&q.Duration)
	br.Number(&q.Priority)
	br.Number(&q.FirstGroundFrame)
	br.Number(&q.NumGroundFrames)
	br.Number(&q.BaseRotation)
	br.Number(&q.BaseTranslation)
	br.Number(&q.BaseScale)
	br.Number(&q.BaseObjectState)
	br.Number(&q.BaseDecalState)
	br.Number(&q.FirstTrigger)
	br.Number(&q.NumTriggers)
	br.Number(&q.ToolBegin)
	q.RotationMatters = readBRMatSet(br)
	q.TranslationMatters = readBRMatSet(br)
	q.ScaleMatters = readBRMatSet(br)
	q.VisMatters = readBRMatSet(br)
	q.FrameMatters = readBRMatSet(br)
	q.MatFrameMatters = readBRMatSet(br)
	return q, br.Err() != nil
}

func writeSequence(bw *parse.BinaryWriter, q *ts.Sequence) {
	bw.Number(q.NameIndex)
	bw.Number(q.Flags)
	bw.Number(q.NumKeyframes)
	bw.Number(q.Duration)
	bw.Number(q.Priority)
	bw.Number(q.FirstGroundFrame)
	bw.Number(q.NumGroundFrames)
	bw.Number(q.BaseRotation)
	bw.Number(q.BaseTranslation)
	bw.Number(q.BaseScale)
	bw.Number(q.BaseObjectState)
	bw.Number(q.BaseDecalState)
	bw.Number(q.FirstTrigger)
	bw.Number(q.NumTriggers)
	bw.Number(q.ToolBegin)
	writeBRMatSet(bw, q.RotationMatters)
	writeBRMatSet(bw, q.TranslationMatters)
	writeBRMatSet(bw, q.ScaleMatters)
	writeBRMatSet(bw, q.VisMatters)
	writeBRMatSet(bw, q.FrameMatters)
	writeBRMatSet(bw, q.MatFrameMatters)
}

// Matters sets are stored as a signed word count followed by the words.
func readBRMatSet(br *parse.BinaryReader) ts.MatSet {
	var n int32
	if br.Number(&n) || n < 0 {
		return ts.MatSet{}
	}
	words := make([]uint32, n)
	for i := range words {
		br.Number(&words[i])
	}
	return ts.MatSetFromWords(words)
}

func writeBRMatSet(bw *parse.BinaryWriter, m ts.MatSet) {
	words := m.Words()
	bw.Number(int32(len(words)))
	for _, w := range words {
		bw.Number(w)
	}
}

func readBRQuat16(br *parse.BinaryReader) (q ts.Quat16) {
	br.Number(&q.X)
	br.Number(&q.Y)
	br.Number(&q.Z)
	br.Number(&q.W)
	return q
}

func writeBRQuat16(bw *parse.BinaryWriter, q ts.Quat16) {
	bw.Number(q.X)
	bw.Number(q.Y)
	bw.Number(q.Z)
	bw.Number(q.W)
}

func readBRPoint3(br *parse.BinaryReader) (p mgl32.Vec3) {
	br.Number(&p[0])
	br.Number(&p[1])
	br.Number(&p[2])
	return p
}

// ImportSequence reads a standalone sequence file and merges its sequences
// into shape. Node references are remapped by name: the Nth node named X in
// the file binds to the Nth node named X in shape, so skeletons with
// duplicate node names still resolve deterministically. Resolution happens
// before any mutation; unresolvable nodes are reported together as
// NodeRemapErrors and the shape is left unchanged.
func ImportSequence(r io.Reader, shape *ts.Shape) error {
	if r == nil {
		return ErrNilReader
	}
	errors.Assert(shape != nil, "nil shape")
	br := parse.NewBinaryReader(r)

	var version int32
	if br.Number(&version) {
		return decodeError(br, nil)
	}
	if version < MinSequenceVersion || uint32(version) > WriteVersion {
		return VersionError{Version: uint32(version)}
	}

	// Node name table and occurrence-counted remap.
	var numNodes int32
	if br.Number(&numNodes) {
		return decodeError(br, nil)
	}
	names := make([]string, numNodes)
	for i := range names {
		if readString(br, &names[i]) {
			return decodeError(br, nil)
		}
	}
	nodeMap := make([]int, numNodes)
	seen := make(map[string]int, numNodes)
	var unresolved errors.Errors
	for i, name := range names {
		occ := seen[name]
		seen[name] = occ + 1
		target := -1
		n := 0
		for j := range shape.Nodes {
			if shape.NodeName(j) == name {
				if n == occ {
					target = j
					break
				}
				n++
			}
		}
		if target < 0 {
			unresolved = unresolved.Append(NodeRemapError{Name: name, Occurrence: occ})
			continue
		}
		nodeMap[i] = target
	}
	if err := unresolved.Return(); err != nil {
		return err
	}

	// Channel data. Counts precede each array.
	var nRots int32
	if br.Number(&nRots) {
		return decodeError(br, nil)
	}
	rots := make([]ts.Quat16, nRots)
	for i := range rots {
		rots[i] = readBRQuat16(br)
	}
	var nTrans int32
	if br.Number(&nTrans) {
		return decodeError(br, nil)
	}
	trans := make([]mgl32.Vec3, nTrans)
	for i := range trans {
		trans[i] = readBRPoint3(br)
	}
	var nUniform int32
	if br.Number(&nUniform) {
		return decodeError(br, nil)
	}
	uniform := make([]float32, nUniform)
	for i := range uniform {
		br.Number(&uniform[i])
	}
	var nAligned int32
	if br.Number(&nAligned) {
		return decodeError(br, nil)
	}
	aligned := make([]mgl32.Vec3, nAligned)
	for i := range aligned {
		aligned[i] = readBRPoint3(br)
	}
	var nArb int32
	if br.Number(&nArb) {
		return decodeError(br, nil)
	}
	arbFactors := make([]mgl32.Vec3, nArb)
	for i := range arbFactors {
		arbFactors[i] = readBRPoint3(br)
	}
	arbRots := make([]ts.Quat16, nArb)
	for i := range arbRots {
		arbRots[i] = readBRQuat16(br)
	}
	var nGround int32
	if br.Number(&nGround) {
		return decodeError(br, nil)
	}
	groundTrans := make([]mgl32.Vec3, nGround)
	for i := range groundTrans {
		groundTrans[i] = readBRPoint3(br)
	}
	groundRots := make([]ts.Quat16, nGround)
	for i := range groundRots {
		groundRots[i] = readBRQuat16(br)
	}
	var nObjStates int32
	if br.Number(&nObjStates) {
		return decodeError(br, nil)
	}
	objStates := make([]ts.ObjectState, nObjStates)
	for i := range objStates {
		br.Number(&objStates[i].Vis)
		br.Number(&objStates[i].FrameIndex)
		br.Number(&objStates[i].MatFrameIndex)
	}

	// Sequence records carry explicit names. Offsets are rebased against
	// the host arrays as they stand before the append.
	var numSequences int32
	if br.Number(&numSequences) {
		return decodeError(br, nil)
	}
	baseRot := int32(len(shape.NodeRotations))
	baseTrans := int32(len(shape.NodeTranslations))
	baseScale := int32(scaleBase(shape))
	baseObj := int32(len(shape.ObjectStates))
	baseGround := int32(len(shape.GroundTranslations))
	baseTrigger := int32(len(shape.Triggers))
	imported := make([]ts.Sequence, 0, numSequences)
	for i := int32(0); i < numSequences; i++ {
		var name string
		if readString(br, &name) {
			return decodeError(br, nil)
		}
		q, failed := readSequence(br)
		if failed {
			return decodeError(br, nil)
		}
		q.NameIndex = int32(shape.AddName(name))
		q.BaseRotation += baseRot
		q.BaseTranslation += baseTrans
		q.BaseScale += baseScale
		q.BaseObjectState += baseObj
		q.FirstGroundFrame += baseGround
		q.FirstTrigger += baseTrigger
		q.RotationMatters = remapMatSet(q.RotationMatters, nodeMap)
		q.TranslationMatters = remapMatSet(q.TranslationMatters, nodeMap)
		q.ScaleMatters = remapMatSet(q.ScaleMatters, nodeMap)
		imported = append(imported, q)
	}

	var numTriggers int32
	if br.Number(&numTriggers) {
		return decodeError(br, nil)
	}
	triggers := make([]ts.Trigger, numTriggers)
	for i := range triggers {
		br.Number(&triggers[i].State)
		br.Number(&triggers[i].Pos)
	}
	if err := decodeError(br, nil); err != nil {
		return err
	}

	shape.NodeRotations = append(shape.NodeRotations, rots...)
	shape.NodeTranslations = append(shape.NodeTranslations, trans...)
	shape.NodeUniformScales = append(shape.NodeUniformScales, uniform...)
	shape.NodeAlignedScales = append(shape.NodeAlignedScales, aligned...)
	shape.NodeArbitraryScaleFactors = append(shape.NodeArbitraryScaleFactors, arbFactors...)
	shape.NodeArbitraryScaleRots = append(shape.NodeArbitraryScaleRots, arbRots...)
	shape.GroundTranslations = append(shape.GroundTranslations, groundTrans...)
	shape.GroundRotations = append(shape.GroundRotations, groundRots...)
	shape.ObjectStates = append(shape.ObjectStates, objStates...)
	shape.Triggers = append(shape.Triggers, triggers...)
	for i := range imported {
		imported[i].SetDirtyFlags(shape)
	}
	shape.Sequences = append(shape.Sequences, imported...)
	return nil
}

// scaleBase picks the host scale channel length matching whichever scale
// representation is in use. An empty shape reports zero for all three.
func scaleBase(shape *ts.Shape) int {
	if n := len(shape.NodeArbitraryScaleFactors); n > 0 {
		return n
	}
	if n := len(shape.NodeAlignedScales); n > 0 {
		return n
	}
	return len(shape.NodeUniformScales)
}

// remapMatSet rewrites file-local node slots to host node slots.
func remapMatSet(m ts.MatSet, nodeMap []int) ts.MatSet {
	var out ts.MatSet
	for i, tgt := range nodeMap {
		if m.Test(i) {
			out.Set(tgt)
		}
	}
	return out
}
