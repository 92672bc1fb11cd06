package dts

import (
	ts "github.com/andrewstrauch/The-Scarab-Gauntlet-sub002"
)

// readMesh reads one mesh of the given kind. prior holds the meshes already
// read for the same shape, so a mesh with parentMesh >= 0 can alias its
// parent's vertex and UV arrays instead of duplicating them.
func (d Decoder) readMesh(s *stream, kind ts.MeshKind, version uint32, prior []ts.Mesh) ts.Mesh {
	switch kind {
	case ts.StandardMeshKind:
		var m ts.BaseMesh
		d.readBaseMesh(s, &m, version, prior)
		return &m
	case ts.SkinMeshKind:
		var m ts.SkinMesh
		d.readBaseMesh(s, &m.BaseMesh, version, prior)
		d.readSkinData(s, &m)
		return &m
	case ts.SortedMeshKind:
		var m ts.SortedMesh
		d.readBaseMesh(s, &m.BaseMesh, version, prior)
		d.readSortedData(s, &m)
		return &m
	case ts.DecalMeshKind:
		// Deprecated: consumed to keep the stream aligned, then dropped.
		d.readDecalMesh(s, version)
		return ts.NullMesh{}
	case ts.NullMeshKind:
		return ts.NullMesh{}
	}
	s.fail(DataError{Offset: -1, Cause: errUnknownMeshKind(kind)})
	return nil
}

type errUnknownMeshKind ts.MeshKind

func (err errUnknownMeshKind) Error() string {
	return "unknown mesh kind " + ts.MeshKind(err).String()
}

func (d Decoder) readBaseMesh(s *stream, m *ts.BaseMesh, version uint32, prior []ts.Mesh) {
	m.MeshNumFrames = s.readS32()
	m.MeshNumMatFrames = s.readS32()
	m.ParentMesh = s.readS32()
	m.MeshBounds = s.readBox()
	m.MeshCenter = s.readPoint3()
	m.MeshRadius = s.readF32()

	numVerts := int(s.readS32())
	m.Verts = s.readPoint3s(numVerts)
	numTVerts := int(s.readS32())
	m.TVerts = s.readPoint2s(numTVerts)
	if version >= 26 {
		m.TVerts2 = s.readPoint2s(int(s.readS32()))
		m.Colors = s.readU32s(int(s.readS32()))
	}
	m.Norms = s.readPoint3s(numVerts)
	m.EncodedNorms = s.readU8s(numVerts)

	numPrims := int(s.readS32())
	prims := make([]ts.Primitive, 0, numPrims)
	for i := 0; i < numPrims; i++ {
		var start, count uint16
		if version >= 26 {
			start = s.narrow(s.readS32())
			count = s.narrow(s.readS32())
		} else {
			start = s.readU16()
			count = s.readU16()
		}
		prims = append(prims, ts.Primitive{
			Start:       start,
			NumElements: count,
			MatIndex:    s.readU32(),
		})
	}

	numIndices := int(s.readS32())
	indices := make([]uint16, numIndices)
	for i := range indices {
		if version >= 26 {
			indices[i] = s.narrow(s.readS32())
		} else {
			indices[i] = s.readU16()
		}
	}

	// Deprecated merge indices.
	numMerge := int(s.readS32())
	if version >= 26 {
		s.readS32s(numMerge)
	} else {
		for i := 0; i < numMerge; i++ {
			s.readU16()
		}
	}

	m.VertsPerFrame = s.readS32()
	m.MeshFlags = s.readU32()
	if s.err() != nil {
		return
	}

	// Every primitive must address indices that exist; assembly slices the
	// index array by these ranges without further checks.
	for _, p := range prims {
		if int(p.Start)+int(p.NumElements) > len(indices) {
			s.fail(DataError{Offset: -1, Cause: ErrPrimitiveRange})
			return
		}
	}

	m.Prims, m.Indices = d.assemblePrimitives(prims, indices)

	// Detail levels with a parent share the parent's pose and topology;
	// the arrays are aliased, never copied.
	if m.ParentMesh >= 0 && int(m.ParentMesh) < len(prior) {
		switch p := prior[m.ParentMesh].(type) {
		case *ts.BaseMesh:
			d.shareVerts(m, p)
		case *ts.SkinMesh:
			d.shareVerts(m, &p.BaseMesh)
		case *ts.SortedMesh:
			d.shareVerts(m, &p.BaseMesh)
		}
	}
}

func (Decoder) shareVerts(m, parent *ts.BaseMesh) {
	if len(m.Verts) == 0 {
		m.Verts = parent.Verts
		m.Norms = parent.Norms
		m.EncodedNorms = parent.EncodedNorms
	}
	if len(m.TVerts) == 0 {
		m.TVerts = parent.TVerts
	}
}

// narrow converts a 32-bit index or element count from a version-26 file to
// the 16-bit in-memory representation, failing the decode when it does not
// fit.
func (s *stream) narrow(v int32) uint16 {
	if v < 0 || v > 0xffff {
		s.fail(DataError{Offset: -1, Cause: ErrMeshTooLarge})
		return 0
	}
	return uint16(v)
}

func (d Decoder) readSkinData(s *stream, m *ts.SkinMesh) {
	sz := int(s.readS32())
	m.InitialVerts = s.readPoint3s(sz)
	m.InitialNorms = s.readPoint3s(sz)

	nx := int(s.readS32())
	m.InitialTransforms = s.readMat4s(nx)

	nw := int(s.readS32())
	m.VertexIndex = s.readS32s(nw)
	m.BoneIndex = s.readS32s(nw)
	m.Weight = s.readF32s(nw)

	nb := int(s.readS32())
	m.NodeIndex = s.readS32s(nb)
}

func (d Decoder) readSortedData(s *stream, m *ts.SortedMesh) {
	numClusters := int(s.readS32())
	m.Clusters = make([]ts.Cluster, numClusters)
	for i := range m.Clusters {
		m.Clusters[i] = ts.Cluster{
			StartPrimitive: s.readS32(),
			EndPrimitive:   s.readS32(),
			Normal:         s.readPoint3(),
			K:              s.readF32(),
			FrontCluster:   s.readS32(),
			BackCluster:    s.readS32(),
		}
	}
	n := int(m.MeshNumFrames)
	m.StartClusters = s.readS32s(n)
	m.FirstVerts = s.readS32s(n)
	m.NumVerts = s.readS32s(n)
	m.FirstTVerts = s.readS32s(int(m.MeshNumMatFrames))
	m.AlwaysWriteDepth = s.readS32() != 0
}

// readDecalMesh consumes a deprecated decal mesh record.
func (d Decoder) readDecalMesh(s *stream, version uint32) {
	numPrims := int(s.readS32())
	for i := 0; i < numPrims; i++ {
		if version >= 26 {
			s.readS32()
			s.readS32()
		} else {
			s.readU16()
			s.readU16()
		}
		s.readU32()
	}
	numIndices := int(s.readS32())
	if version >= 26 {
		s.readS32s(numIndices)
	} else {
		for i := 0; i < numIndices; i++ {
			s.readU16()
		}
	}
	numFrames := int(s.readS32())
	s.readS32s(numFrames) // start primitive per frame
	s.readS32()           // object index
	s.readS32()           // material index
}

// assemblePrimitives applies the decoder's primitive policy to the
// primitives as stored in the file.
func (d Decoder) assemblePrimitives(prims []ts.Primitive, indices []uint16) ([]ts.Primitive, []uint16) {
	switch d.Primitives {
	case SingleStrip:
		return mergeStrips(prims, indices)
	case PreserveStrips:
		return prims, indices
	default:
		return triangulate(prims, indices)
	}
}

// triangulate unwinds strips and fans into triangle lists, merging adjacent
// triangle runs that share a material.
func triangulate(prims []ts.Primitive, indices []uint16) ([]ts.Primitive, []uint16) {
	var outPrims []ts.Primitive
	var out []uint16
	for _, p := range prims {
		start := len(out)
		emit := func(i0, i1, i2 uint16) { out = append(out, i0, i1, i2) }
		a, n := int(p.Start), int(p.NumElements)
		switch p.MatIndex & ts.PrimTypeMask {
		case ts.PrimTriangles:
			out = append(out, indices[a:a+n]...)
		case ts.PrimStrip:
			for i := a + 2; i < a+n; i++ {
				if (i-a)%2 == 0 {
					emit(indices[i-2], indices[i-1], indices[i])
				} else {
					emit(indices[i-1], indices[i-2], indices[i])
				}
			}
		case ts.PrimFan:
			for i := a + 2; i < a+n; i++ {
				emit(indices[a], indices[i-1], indices[i])
			}
		}
		mat := p.MatIndex&^ts.PrimTypeMask | ts.PrimTriangles
		if k := len(outPrims); k > 0 && outPrims[k-1].MatIndex == mat {
			outPrims[k-1].NumElements += uint16(len(out) - start)
			continue
		}
		outPrims = append(outPrims, ts.Primitive{
			Start:       uint16(start),
			NumElements: uint16(len(out) - start),
			MatIndex:    mat,
		})
	}
	return outPrims, out
}

// mergeStrips concatenates every strip primitive sharing a material into
// one continuous strip, bridging with degenerate triangles. One or two
// bridge indices are inserted depending on the current parity so the
// winding of the appended strip is not flipped. Non-strip primitives pass
// through unchanged.
func mergeStrips(prims []ts.Primitive, indices []uint16) ([]ts.Primitive, []uint16) {
	var outPrims []ts.Primitive
	var out []uint16
	for _, p := range prims {
		a, n := int(p.Start), int(p.NumElements)
		if p.MatIndex&ts.PrimTypeMask != ts.PrimStrip || n < 3 {
			outPrims = append(outPrims, ts.Primitive{
				Start:       uint16(len(out)),
				NumElements: p.NumElements,
				MatIndex:    p.MatIndex,
			})
			out = append(out, indices[a:a+n]...)
			continue
		}
		k := len(outPrims)
		if k > 0 && outPrims[k-1].MatIndex == p.MatIndex {
			tail := &outPrims[k-1]
			// Bridge: repeat the last emitted index and the strip's
			// first. If the merged strip currently has odd parity, a
			// second copy of the first index keeps front faces front.
			out = append(out, out[len(out)-1], indices[a])
			tail.NumElements += 2
			if tail.NumElements%2 != 0 {
				out = append(out, indices[a])
				tail.NumElements++
			}
			out = append(out, indices[a:a+n]...)
			tail.NumElements += uint16(n)
			continue
		}
		outPrims = append(outPrims, ts.Primitive{
			Start:       uint16(len(out)),
			NumElements: p.NumElements,
			MatIndex:    p.MatIndex,
		})
		out = append(out, indices[a:a+n]...)
	}
	return outPrims, out
}
