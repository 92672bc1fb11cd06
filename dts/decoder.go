// The dts package decodes and encodes the binary three-space shape format,
// and imports standalone sequence files into loaded shapes.
//
// A shape file is a version tag, a sequence-and-material prologue, and a
// packed, 4-byte-aligned data block whose three typed regions (32-bit,
// 16-bit, 8-bit) are sliced by offsets stored up front. Guard sentinels
// separate the block's sections so corruption is caught where it happens
// instead of misreading everything after it.
package dts

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/anaminus/parse"
	"github.com/bkaradzic/go-lz4"

	ts "github.com/andrewstrauch/The-Scarab-Gauntlet-sub002"
)

// Supported format versions. The version field's low byte is the format
// version; the high bits carry the exporter version and are ignored for
// range checking.
const (
	MinVersion   = 24
	WriteVersion = 26

	// MinSequenceVersion is the oldest sequence-file version ImportSequence
	// accepts.
	MinSequenceVersion = 22
)

// lz4Sig marks an LZ4 container: signature, then the decompressed length,
// then one LZ4 block (the same framing the block compressor expects).
const lz4Sig = "DTSz"

// PrimitiveMode selects how draw primitives read from a file are assembled.
type PrimitiveMode int

const (
	// TriangleLists triangulates every primitive into plain triangle
	// lists.
	TriangleLists PrimitiveMode = iota
	// SingleStrip merges all strip primitives of a material run into one
	// continuous strip, bridging with degenerate triangles. Fewer draw
	// calls at the cost of bridge overdraw.
	SingleStrip
	// PreserveStrips keeps the primitive boundaries exactly as stored.
	PreserveStrips
)

// Decoder decodes a stream of bytes into a ts.Shape.
type Decoder struct {
	// Primitives selects the primitive assembly policy.
	Primitives PrimitiveMode

	// If NoLZ4 is true, an LZ4 container is rejected instead of being
	// unwrapped transparently.
	NoLZ4 bool
}

// Decode reads a shape from r. Malformed input (unsupported version, guard
// mismatch, exhausted region) aborts the decode; no partial shape is
// returned.
func (d Decoder) Decode(r io.Reader) (*ts.Shape, error) {
	if r == nil {
		return nil, ErrNilReader
	}
	fr := parse.NewBinaryReader(r)
	data, _ := fr.All()
	if err := decodeError(fr, nil); err != nil {
		return nil, err
	}
	data, err := d.unwrap(data)
	if err != nil {
		return nil, err
	}
	return d.decode(data)
}

// unwrap transparently removes an LZ4 container.
func (d Decoder) unwrap(data []byte) ([]byte, error) {
	if len(data) < len(lz4Sig)+4 || string(data[:len(lz4Sig)]) != lz4Sig {
		return data, nil
	}
	if d.NoLZ4 {
		return nil, ErrLZ4Disabled
	}
	// lz4 wants the decompressed length prefixed to the compressed data,
	// which is exactly how the container stores it.
	size := binary.LittleEndian.Uint32(data[len(lz4Sig):])
	out := make([]byte, size)
	out, err := lz4.Decode(out, data[len(lz4Sig):])
	if err != nil {
		return nil, CompressionError{Cause: err}
	}
	return out, nil
}

func decodeError(r *parse.BinaryReader, err error) error {
	r.Add(0, err)
	err = r.Err()
	if err != nil {
		return DataError{Offset: r.N(), Cause: err}
	}
	return nil
}

func (d Decoder) decode(data []byte) (*ts.Shape, error) {
	br := parse.NewBinaryReader(bytes.NewReader(data))

	var field uint32
	if br.Number(&field) {
		return nil, decodeError(br, nil)
	}
	version := field & 0xff
	exporter := field >> 8
	if version < MinVersion || version > WriteVersion {
		return nil, VersionError{Version: version, Exporter: exporter}
	}

	shape := &ts.Shape{}

	// Prologue: sequences, then the material list.
	var numSequences int32
	if br.Number(&numSequences) {
		return nil, decodeError(br, nil)
	}
	shape.Sequences = make([]ts.Sequence, 0, numSequences)
	for i := int32(0); i < numSequences; i++ {
		q, failed := readSequence(br)
		if failed {
			return nil, decodeError(br, nil)
		}
		shape.Sequences = append(shape.Sequences, q)
	}
	if err := readMaterialList(br, &shape.Materials); err != nil {
		return nil, err
	}

	// Packed block: three region offsets, then the block itself.
	var memWords, start16, start8 int32
	if br.Number(&memWords) || br.Number(&start16) || br.Number(&start8) {
		return nil, decodeError(br, nil)
	}
	if memWords < 0 || start16 < 0 || start8 < start16 || start8 > memWords {
		return nil, DataError{
			Offset: br.N(),
			Cause:  fmt.Errorf("inconsistent region offsets %d,%d,%d", memWords, start16, start8),
		}
	}
	block := make([]byte, memWords*4)
	if br.Bytes(block) {
		return nil, decodeError(br, nil)
	}
	s, err := newStream(block, int(start16)*4, int(start8)*4)
	if err != nil {
		return nil, err
	}
	if err := d.readShapeData(s, shape, version); err != nil {
		return nil, err
	}
	if err := checkShape(shape); err != nil {
		return nil, err
	}
	shape.Link()
	return shape, nil
}

// checkShape validates the cross-references Link follows, so a malformed
// file is reported as a decode error instead of faulting while linking.
func checkShape(shape *ts.Shape) error {
	fail := func(format string, args ...interface{}) error {
		return DataError{Offset: -1, Cause: fmt.Errorf(format, args...)}
	}
	for i := range shape.Nodes {
		// A parent precedes its children in file order.
		if p := shape.Nodes[i].ParentIndex; p < -1 || int(p) >= i {
			return fail("node %d: parent index %d out of range", i, p)
		}
	}
	for i := range shape.Objects {
		o := &shape.Objects[i]
		if int(o.NodeIndex) >= len(shape.Nodes) {
			return fail("object %d: node index %d out of range", i, o.NodeIndex)
		}
		if o.NumMeshes < 0 {
			return fail("object %d: negative mesh count %d", i, o.NumMeshes)
		}
		if o.NumMeshes > 0 && (o.FirstMesh < 0 || int(o.FirstMesh)+int(o.NumMeshes) > len(shape.Meshes)) {
			return fail("object %d: mesh range %d+%d out of range", i, o.FirstMesh, o.NumMeshes)
		}
	}
	for i := range shape.SubShapeFirstObject {
		first, n := shape.SubShapeFirstObject[i], shape.SubShapeNumObjects[i]
		if first < 0 || n < 0 || int(first)+int(n) > len(shape.Objects) {
			return fail("sub-shape %d: object range %d+%d out of range", i, first, n)
		}
		first, n = shape.SubShapeFirstNode[i], shape.SubShapeNumNodes[i]
		if first < 0 || n < 0 || int(first)+int(n) > len(shape.Nodes) {
			return fail("sub-shape %d: node range %d+%d out of range", i, first, n)
		}
	}
	for i := range shape.Details {
		if od := shape.Details[i].ObjectDetail; od < 0 {
			return fail("detail %d: negative object detail %d", i, od)
		}
	}
	return nil
}

// readMaterialList reads the versioned material list.
func readMaterialList(br *parse.BinaryReader, l *ts.MaterialList) error {
	var version uint8
	if br.Number(&version) {
		return decodeError(br, nil)
	}
	if version != 1 {
		return decodeError(br, ErrMaterialVersion)
	}
	var n int32
	if br.Number(&n) {
		return decodeError(br, nil)
	}
	l.Names = make([]string, n)
	for i := range l.Names {
		if readString(br, &l.Names[i]) {
			return decodeError(br, nil)
		}
	}
	l.Flags = make([]uint32, n)
	l.ReflectanceMaps = make([]int32, n)
	l.BumpMaps = make([]int32, n)
	l.DetailMaps = make([]int32, n)
	l.DetailScales = make([]float32, n)
	l.ReflectionAmounts = make([]float32, n)
	for i := int32(0); i < n; i++ {
		br.Number(&l.Flags[i])
	}
	for i := int32(0); i < n; i++ {
		br.Number(&l.ReflectanceMaps[i])
	}
	for i := int32(0); i < n; i++ {
		br.Number(&l.BumpMaps[i])
	}
	for i := int32(0); i < n; i++ {
		br.Number(&l.DetailMaps[i])
	}
	for i := int32(0); i < n; i++ {
		br.Number(&l.DetailScales[i])
	}
	for i := int32(0); i < n; i++ {
		br.Number(&l.ReflectionAmounts[i])
	}
	return decodeError(br, nil)
}

func readString(f *parse.BinaryReader, data *string) (failed bool) {
	if f.Err() != nil {
		return true
	}
	var length uint32
	if f.Number(&length) {
		return true
	}
	s := make([]byte, length)
	if f.Bytes(s) {
		return true
	}
	*data = string(s)
	return false
}

// readShapeData reads the packed block into shape. The read order is fixed;
// a reader/writer mismatch trips the next guard check.
func (d Decoder) readShapeData(s *stream, shape *ts.Shape, version uint32) error {
	numNodes := int(s.readS32())
	numObjects := int(s.readS32())
	numDecals := int(s.readS32())
	numSubShapes := int(s.readS32())
	numIflMaterials := int(s.readS32())
	numNodeRots := int(s.readS32())
	numNodeTrans := int(s.readS32())
	numNodeUniformScales := int(s.readS32())
	numNodeAlignedScales := int(s.readS32())
	numNodeArbitraryScales := int(s.readS32())
	numGroundFrames := int(s.readS32())
	numObjectStates := int(s.readS32())
	numDecalStates := int(s.readS32())
	numTriggers := int(s.readS32())
	numDetails := int(s.readS32())
	numMeshes := int(s.readS32())
	numNames := int(s.readS32())
	shape.SmallestVisibleSize = s.readF32()
	shape.SmallestVisibleDL = s.readS32()
	s.guard()
	if err := s.err(); err != nil {
		return err
	}

	shape.Radius = s.readF32()
	shape.TubeRadius = s.readF32()
	shape.Center = s.readPoint3()
	shape.Bounds = s.readBox()
	s.guard()

	shape.Nodes = make([]ts.Node, numNodes)
	for i := range shape.Nodes {
		shape.Nodes[i] = ts.Node{
			NameIndex:   s.readS32(),
			ParentIndex: s.readS32(),
			FirstObject: s.readS32(),
			FirstChild:  s.readS32(),
			NextSibling: s.readS32(),
		}
	}
	s.guard()

	shape.Objects = make([]ts.Object, numObjects)
	for i := range shape.Objects {
		shape.Objects[i] = ts.Object{
			NameIndex:   s.readS32(),
			NumMeshes:   s.readS32(),
			FirstMesh:   s.readS32(),
			NodeIndex:   s.readS32(),
			NextSibling: s.readS32(),
		}
		s.readS32() // deprecated first decal
	}
	s.guard()

	// Deprecated decal slots: read and discarded.
	s.readS32s(numDecals * 5)
	s.guard()

	shape.IflMaterials = make([]ts.IflMaterial, numIflMaterials)
	for i := range shape.IflMaterials {
		shape.IflMaterials[i] = ts.IflMaterial{
			NameIndex:     s.readS32(),
			MaterialSlot:  s.readS32(),
			FirstFrame:    s.readS32(),
			FirstFrameOff: s.readS32(),
			NumFrames:     s.readS32(),
		}
	}
	s.guard()

	shape.SubShapeFirstNode = s.readS32s(numSubShapes)
	shape.SubShapeFirstObject = s.readS32s(numSubShapes)
	s.readS32s(numSubShapes) // deprecated first decal
	s.guard()
	shape.SubShapeNumNodes = s.readS32s(numSubShapes)
	shape.SubShapeNumObjects = s.readS32s(numSubShapes)
	s.readS32s(numSubShapes) // deprecated decal counts
	s.guard()

	shape.DefaultRotations = s.readQuat16s(numNodes)
	shape.DefaultTranslations = s.readPoint3s(numNodes)
	shape.NodeRotations = s.readQuat16s(numNodeRots)
	shape.NodeTranslations = s.readPoint3s(numNodeTrans)
	s.guard()

	shape.NodeUniformScales = s.readF32s(numNodeUniformScales)
	shape.NodeAlignedScales = s.readPoint3s(numNodeAlignedScales)
	shape.NodeArbitraryScaleFactors = s.readPoint3s(numNodeArbitraryScales)
	shape.NodeArbitraryScaleRots = s.readQuat16s(numNodeArbitraryScales)
	s.guard()

	shape.GroundTranslations = s.readPoint3s(numGroundFrames)
	shape.GroundRotations = s.readQuat16s(numGroundFrames)
	s.guard()

	shape.ObjectStates = make([]ts.ObjectState, numObjectStates)
	for i := range shape.ObjectStates {
		shape.ObjectStates[i] = ts.ObjectState{
			Vis:           s.readF32(),
			FrameIndex:    s.readS32(),
			MatFrameIndex: s.readS32(),
		}
	}
	s.guard()

	// Deprecated decal states.
	s.readS32s(numDecalStates)
	s.guard()

	shape.Triggers = make([]ts.Trigger, numTriggers)
	for i := range shape.Triggers {
		shape.Triggers[i] = ts.Trigger{
			State: s.readU32(),
			Pos:   s.readF32(),
		}
	}
	s.guard()

	shape.Details = make([]ts.Detail, numDetails)
	for i := range shape.Details {
		shape.Details[i] = ts.Detail{
			NameIndex:    s.readS32(),
			SubShape:     s.readS32(),
			ObjectDetail: s.readS32(),
			Size:         s.readF32(),
			AverageError: s.readF32(),
			MaxError:     s.readF32(),
			PolyCount:    s.readS32(),
		}
	}
	s.guard()

	shape.Meshes = make([]ts.Mesh, 0, numMeshes)
	for i := 0; i < numMeshes; i++ {
		kind := ts.MeshKind(s.readU32())
		m := d.readMesh(s, kind, version, shape.Meshes)
		if err := s.err(); err != nil {
			return err
		}
		shape.Meshes = append(shape.Meshes, m)
	}
	s.guard()

	shape.Names = make([]string, numNames)
	for i := range shape.Names {
		shape.Names[i] = s.readName()
	}
	s.guard()

	return s.err()
}
