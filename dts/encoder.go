package dts

import (
	"bytes"
	"io"

	"github.com/anaminus/parse"
	"github.com/bkaradzic/go-lz4"

	ts "github.com/andrewstrauch/The-Scarab-Gauntlet-sub002"
)

// Encoder encodes a ts.Shape into a stream of bytes. Files are always
// written at WriteVersion; deprecated decal sections are written empty.
type Encoder struct {
	// If LZ4 is true, the encoded file is wrapped in an LZ4 container.
	LZ4 bool
}

// Encode writes shape to w.
func (e Encoder) Encode(w io.Writer, shape *ts.Shape) (err error) {
	if w == nil {
		return ErrNilWriter
	}
	data, err := e.encode(shape)
	if err != nil {
		return err
	}
	if e.LZ4 {
		var packed []byte
		// lz4 prefixes the block with the decompressed length, which is
		// the container's framing too.
		if packed, err = lz4.Encode(nil, data); err != nil {
			return CompressionError{Cause: err}
		}
		data = append([]byte(lz4Sig), packed...)
	}
	fw := parse.NewBinaryWriter(w)
	fw.Bytes(data)
	return encodeError(fw, nil)
}

func encodeError(w *parse.BinaryWriter, err error) error {
	w.Add(0, err)
	err = w.Err()
	if err != nil {
		return DataError{Offset: w.N(), Cause: err}
	}
	return nil
}

func (e Encoder) encode(shape *ts.Shape) ([]byte, error) {
	var buf bytes.Buffer
	bw := parse.NewBinaryWriter(&buf)

	bw.Number(uint32(WriteVersion))

	// Prologue: sequences, then the material list.
	bw.Number(int32(len(shape.Sequences)))
	for i := range shape.Sequences {
		writeSequence(bw, &shape.Sequences[i])
	}
	writeMaterialList(bw, &shape.Materials)

	block, memWords, start16, start8 := e.encodeShapeData(shape)
	bw.Number(memWords)
	bw.Number(start16)
	bw.Number(start8)
	bw.Bytes(block)

	if err := encodeError(bw, nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeMaterialList(bw *parse.BinaryWriter, l *ts.MaterialList) {
	bw.Number(uint8(1))
	n := l.Size()
	bw.Number(int32(n))
	for i := 0; i < n; i++ {
		writeString(bw, l.Names[i])
	}
	for i := 0; i < n; i++ {
		bw.Number(l.Flags[i])
	}
	for i := 0; i < n; i++ {
		bw.Number(l.ReflectanceMaps[i])
	}
	for i := 0; i < n; i++ {
		bw.Number(l.BumpMaps[i])
	}
	for i := 0; i < n; i++ {
		bw.Number(l.DetailMaps[i])
	}
	for i := 0; i < n; i++ {
		bw.Number(l.DetailScales[i])
	}
	for i := 0; i < n; i++ {
		bw.Number(l.ReflectionAmounts[i])
	}
}

func writeString(f *parse.BinaryWriter, data string) (failed bool) {
	if f.Err() != nil {
		return true
	}
	if f.Number(uint32(len(data))) {
		return true
	}
	return f.Bytes([]byte(data))
}

// encodeShapeData builds the packed block. The write order mirrors
// Decoder.readShapeData exactly, including the deprecated decal columns.
func (e Encoder) encodeShapeData(shape *ts.Shape) (block []byte, memWords, start16, start8 int32) {
	w := &blockWriter{}

	w.writeS32(int32(len(shape.Nodes)))
	w.writeS32(int32(len(shape.Objects)))
	w.writeS32(0) // decals
	w.writeS32(int32(len(shape.SubShapeFirstNode)))
	w.writeS32(int32(len(shape.IflMaterials)))
	w.writeS32(int32(len(shape.NodeRotations)))
	w.writeS32(int32(len(shape.NodeTranslations)))
	w.writeS32(int32(len(shape.NodeUniformScales)))
	w.writeS32(int32(len(shape.NodeAlignedScales)))
	w.writeS32(int32(len(shape.NodeArbitraryScaleFactors)))
	w.writeS32(int32(len(shape.GroundTranslations)))
	w.writeS32(int32(len(shape.ObjectStates)))
	w.writeS32(0) // decal states
	w.writeS32(int32(len(shape.Triggers)))
	w.writeS32(int32(len(shape.Details)))
	w.writeS32(int32(len(shape.Meshes)))
	w.writeS32(int32(len(shape.Names)))
	w.writeF32(shape.SmallestVisibleSize)
	w.writeS32(shape.SmallestVisibleDL)
	w.guard()

	w.writeF32(shape.Radius)
	w.writeF32(shape.TubeRadius)
	w.writePoint3(shape.Center)
	w.writeBox(shape.Bounds)
	w.guard()

	for i := range shape.Nodes {
		n := &shape.Nodes[i]
		w.writeS32(n.NameIndex)
		w.writeS32(n.ParentIndex)
		w.writeS32(n.FirstObject)
		w.writeS32(n.FirstChild)
		w.writeS32(n.NextSibling)
	}
	w.guard()

	for i := range shape.Objects {
		o := &shape.Objects[i]
		w.writeS32(o.NameIndex)
		w.writeS32(o.NumMeshes)
		w.writeS32(o.FirstMesh)
		w.writeS32(o.NodeIndex)
		w.writeS32(o.NextSibling)
		w.writeS32(-1) // deprecated first decal
	}
	w.guard()

	// Decal slots: none written.
	w.guard()

	for i := range shape.IflMaterials {
		f := &shape.IflMaterials[i]
		w.writeS32(f.NameIndex)
		w.writeS32(f.MaterialSlot)
		w.writeS32(f.FirstFrame)
		w.writeS32(f.FirstFrameOff)
		w.writeS32(f.NumFrames)
	}
	w.guard()

	w.writeS32s(shape.SubShapeFirstNode)
	w.writeS32s(shape.SubShapeFirstObject)
	for range shape.SubShapeFirstNode {
		w.writeS32(0) // deprecated first decal
	}
	w.guard()
	w.writeS32s(shape.SubShapeNumNodes)
	w.writeS32s(shape.SubShapeNumObjects)
	for range shape.SubShapeFirstNode {
		w.writeS32(0) // deprecated decal counts
	}
	w.guard()

	w.writeQuat16s(shape.DefaultRotations)
	w.writePoint3s(shape.DefaultTranslations)
	w.writeQuat16s(shape.NodeRotations)
	w.writePoint3s(shape.NodeTranslations)
	w.guard()

	w.writeF32s(shape.NodeUniformScales)
	w.writePoint3s(shape.NodeAlignedScales)
	w.writePoint3s(shape.NodeArbitraryScaleFactors)
	w.writeQuat16s(shape.NodeArbitraryScaleRots)
	w.guard()

	w.writePoint3s(shape.GroundTranslations)
	w.writeQuat16s(shape.GroundRotations)
	w.guard()

	for i := range shape.ObjectStates {
		st := &shape.ObjectStates[i]
		w.writeF32(st.Vis)
		w.writeS32(st.FrameIndex)
		w.writeS32(st.MatFrameIndex)
	}
	w.guard()

	// Decal states: none written.
	w.guard()

	for i := range shape.Triggers {
		w.writeU32(shape.Triggers[i].State)
		w.writeF32(shape.Triggers[i].Pos)
	}
	w.guard()

	for i := range shape.Details {
		dl := &shape.Details[i]
		w.writeS32(dl.NameIndex)
		w.writeS32(dl.SubShape)
		w.writeS32(dl.ObjectDetail)
		w.writeF32(dl.Size)
		w.writeF32(dl.AverageError)
		w.writeF32(dl.MaxError)
		w.writeS32(dl.PolyCount)
	}
	w.guard()

	for _, m := range shape.Meshes {
		e.writeMesh(w, m)
	}
	w.guard()

	for _, name := range shape.Names {
		w.writeName(name)
	}
	w.guard()

	return w.finish()
}

func (e Encoder) writeMesh(w *blockWriter, m ts.Mesh) {
	w.writeU32(uint32(m.Kind()))
	switch m := m.(type) {
	case *ts.BaseMesh:
		e.writeBaseMesh(w, m)
	case *ts.SkinMesh:
		e.writeBaseMesh(w, &m.BaseMesh)
		e.writeSkinData(w, m)
	case *ts.SortedMesh:
		e.writeBaseMesh(w, &m.BaseMesh)
		e.writeSortedData(w, m)
	}
	// NullMesh carries no payload.
}

func (e Encoder) writeBaseMesh(w *blockWriter, m *ts.BaseMesh) {
	w.writeS32(m.MeshNumFrames)
	w.writeS32(m.MeshNumMatFrames)
	w.writeS32(m.ParentMesh)
	w.writeBox(m.MeshBounds)
	w.writePoint3(m.MeshCenter)
	w.writeF32(m.MeshRadius)

	w.writeS32(int32(len(m.Verts)))
	w.writePoint3s(m.Verts)
	w.writeS32(int32(len(m.TVerts)))
	w.writePoint2s(m.TVerts)
	w.writeS32(int32(len(m.TVerts2)))
	w.writePoint2s(m.TVerts2)
	w.writeS32(int32(len(m.Colors)))
	w.writeU32s(m.Colors)
	w.writePoint3s(m.Norms)
	w.writeU8s(m.EncodedNorms)

	w.writeS32(int32(len(m.Prims)))
	for _, p := range m.Prims {
		w.writeS32(int32(p.Start))
		w.writeS32(int32(p.NumElements))
		w.writeU32(p.MatIndex)
	}

	w.writeS32(int32(len(m.Indices)))
	for _, ix := range m.Indices {
		w.writeS32(int32(ix))
	}

	w.writeS32(0) // deprecated merge indices

	w.writeS32(m.VertsPerFrame)
	w.writeU32(m.MeshFlags)
}

func (e Encoder) writeSkinData(w *blockWriter, m *ts.SkinMesh) {
	w.writeS32(int32(len(m.InitialVerts)))
	w.writePoint3s(m.InitialVerts)
	w.writePoint3s(m.InitialNorms)

	w.writeS32(int32(len(m.InitialTransforms)))
	for _, x := range m.InitialTransforms {
		w.writeMat4(x)
	}

	w.writeS32(int32(len(m.VertexIndex)))
	w.writeS32s(m.VertexIndex)
	w.writeS32s(m.BoneIndex)
	w.writeF32s(m.Weight)

	w.writeS32(int32(len(m.NodeIndex)))
	w.writeS32s(m.NodeIndex)
}

func (e Encoder) writeSortedData(w *blockWriter, m *ts.SortedMesh) {
	w.writeS32(int32(len(m.Clusters)))
	for i := range m.Clusters {
		c := &m.Clusters[i]
		w.writeS32(c.StartPrimitive)
		w.writeS32(c.EndPrimitive)
		w.writePoint3(c.Normal)
		w.writeF32(c.K)
		w.writeS32(c.FrontCluster)
		w.writeS32(c.BackCluster)
	}
	w.writeS32s(m.StartClusters)
	w.writeS32s(m.FirstVerts)
	w.writeS32s(m.NumVerts)
	w.writeS32s(m.FirstTVerts)
	if m.AlwaysWriteDepth {
		w.writeS32(1)
	} else {
		w.writeS32(0)
	}
}
