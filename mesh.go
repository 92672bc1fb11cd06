package ts

import (
	"github.com/go-gl/mathgl/mgl32"
)

// MeshKind tags a mesh variant.
type MeshKind int32

const (
	StandardMeshKind MeshKind = 0
	SkinMeshKind     MeshKind = 1
	DecalMeshKind    MeshKind = 2 // deprecated; decoded and discarded
	SortedMeshKind   MeshKind = 3
	NullMeshKind     MeshKind = 4
)

// String returns the name of the mesh kind.
func (k MeshKind) String() string {
	switch k {
	case StandardMeshKind:
		return "Standard"
	case SkinMeshKind:
		return "Skin"
	case DecalMeshKind:
		return "Decal"
	case SortedMeshKind:
		return "Sorted"
	case NullMeshKind:
		return "Null"
	}
	return "Invalid"
}

// Primitive type and material encoding, packed into Primitive.MatIndex.
const (
	PrimTriangles    uint32 = 0 << 30
	PrimStrip        uint32 = 1 << 30
	PrimFan          uint32 = 2 << 30
	PrimTypeMask     uint32 = 3 << 30
	PrimIndexed      uint32 = 1 << 29
	PrimNoMaterial   uint32 = 1 << 28
	PrimMaterialMask uint32 = PrimNoMaterial - 1
)

// Primitive is a draw primitive: an index range plus a material slot and
// primitive type packed into MatIndex.
type Primitive struct {
	Start       uint16
	NumElements uint16
	MatIndex    uint32
}

// Triangles returns the number of triangles the primitive produces.
func (p Primitive) Triangles() int {
	n := int(p.NumElements)
	switch p.MatIndex & PrimTypeMask {
	case PrimTriangles:
		return n / 3
	default:
		// Strips and fans.
		if n < 3 {
			return 0
		}
		return n - 2
	}
}

// Mesh is the capability shared by all mesh variants: primitive and bounds
// access for render partitioning and polygon accounting. Variant-specific
// data is reached by type assertion on the concrete types.
type Mesh interface {
	Kind() MeshKind
	Bounds() Box
	Primitives() []Primitive
	TriangleCount() int
}

// ResourceState tracks a mesh's lazily created render resources.
type ResourceState int

const (
	ResourceUnloaded ResourceState = iota
	ResourceReady
	ResourceInvalidated
)

// BaseMesh is the standard mesh variant and the common core of the other
// variants. Meshes whose ParentMesh is >= 0 alias the parent's vertex and UV
// arrays (detail levels sharing pose and topology); the decoder installs the
// shared slices, so aliased data must never be written.
type BaseMesh struct {
	MeshNumFrames    int32
	MeshNumMatFrames int32
	ParentMesh       int32

	MeshBounds Box
	MeshCenter mgl32.Vec3
	MeshRadius float32

	Verts        []mgl32.Vec3
	TVerts       []mgl32.Vec2
	TVerts2      []mgl32.Vec2
	Colors       []uint32
	Norms        []mgl32.Vec3
	EncodedNorms []uint8

	Prims   []Primitive
	Indices []uint16

	VertsPerFrame int32
	MeshFlags     uint32

	// Lazily computed; see Tangents.
	tangents []mgl32.Vec4

	state ResourceState
}

// Kind implements Mesh.
func (m *BaseMesh) Kind() MeshKind { return StandardMeshKind }

// Bounds implements Mesh.
func (m *BaseMesh) Bounds() Box { return m.MeshBounds }

// Primitives implements Mesh.
func (m *BaseMesh) Primitives() []Primitive { return m.Prims }

// TriangleCount implements Mesh.
func (m *BaseMesh) TriangleCount() int {
	n := 0
	for _, p := range m.Prims {
		n += p.Triangles()
	}
	return n
}

// State returns the render-resource state.
func (m *BaseMesh) State() ResourceState { return m.state }

// EnsureReady moves the mesh's render resources to the Ready state,
// (re)creating them if the mesh is Unloaded or Invalidated. Resource
// creation here is limited to derived vertex data; buffer upload is the
// renderer's concern and consumes the same state machine.
func (m *BaseMesh) EnsureReady() {
	if m.state == ResourceReady {
		return
	}
	if m.tangents == nil && len(m.Verts) > 0 && len(m.TVerts) > 0 {
		m.tangents = computeTangents(m.Verts, m.Norms, m.TVerts, m.Prims, m.Indices)
	}
	m.state = ResourceReady
}

// Invalidate marks previously created resources as stale (e.g. after device
// loss). The next EnsureReady recreates them.
func (m *BaseMesh) Invalidate() {
	if m.state == ResourceReady {
		m.state = ResourceInvalidated
	}
	m.tangents = nil
}

// Release drops lazily created resources and returns to Unloaded.
func (m *BaseMesh) Release() {
	m.tangents = nil
	m.state = ResourceUnloaded
}

// Tangents returns per-vertex tangents, computing them on first use.
func (m *BaseMesh) Tangents() []mgl32.Vec4 {
	m.EnsureReady()
	return m.tangents
}

// computeTangents derives per-vertex tangents from triangle UV gradients.
// The w component carries the bitangent handedness.
func computeTangents(verts, norms []mgl32.Vec3, tverts []mgl32.Vec2, prims []Primitive, indices []uint16) []mgl32.Vec4 {
	tan := make([]mgl32.Vec3, len(verts))
	eachTriangle(prims, indices, func(i0, i1, i2 int) {
		if i0 >= len(verts) || i1 >= len(verts) || i2 >= len(verts) {
			return
		}
		e1 := verts[i1].Sub(verts[i0])
		e2 := verts[i2].Sub(verts[i0])
		du1 := tverts[i1].Sub(tverts[i0])
		du2 := tverts[i2].Sub(tverts[i0])
		det := du1[0]*du2[1] - du2[0]*du1[1]
		if det == 0 {
			return
		}
		r := 1 / det
		t := e1.Mul(du2[1] * r).Sub(e2.Mul(du1[1] * r))
		tan[i0] = tan[i0].Add(t)
		tan[i1] = tan[i1].Add(t)
		tan[i2] = tan[i2].Add(t)
	})
	out := make([]mgl32.Vec4, len(verts))
	for i := range out {
		t := tan[i]
		if i < len(norms) {
			// Gram-Schmidt against the normal.
			n := norms[i]
			t = t.Sub(n.Mul(n.Dot(t)))
		}
		if l := t.Len(); l > 0 {
			t = t.Mul(1 / l)
		}
		out[i] = t.Vec4(1)
	}
	return out
}

// eachTriangle walks the triangles of an indexed primitive list, unwinding
// strips and fans with correct orientation.
func eachTriangle(prims []Primitive, indices []uint16, fn func(i0, i1, i2 int)) {
	for _, p := range prims {
		start, n := int(p.Start), int(p.NumElements)
		switch p.MatIndex & PrimTypeMask {
		case PrimTriangles:
			for i := start; i+2 < start+n; i += 3 {
				fn(int(indices[i]), int(indices[i+1]), int(indices[i+2]))
			}
		case PrimStrip:
			for i := start + 2; i < start+n; i++ {
				if (i-start)%2 == 0 {
					fn(int(indices[i-2]), int(indices[i-1]), int(indices[i]))
				} else {
					fn(int(indices[i-1]), int(indices[i-2]), int(indices[i]))
				}
			}
		case PrimFan:
			for i := start + 2; i < start+n; i++ {
				fn(int(indices[start]), int(indices[i-1]), int(indices[i]))
			}
		}
	}
}

// SkinMesh is a mesh driven by multiple bones through per-vertex weights.
// The Initial* arrays are the bind pose; InitialTransforms holds the inverse
// bind transform per referenced bone, and NodeIndex maps bone slots to shape
// node indices.
type SkinMesh struct {
	BaseMesh

	InitialVerts []mgl32.Vec3
	InitialNorms []mgl32.Vec3

	InitialTransforms []mgl32.Mat4

	VertexIndex []int32
	BoneIndex   []int32
	Weight      []float32

	NodeIndex []int32
}

// Kind implements Mesh.
func (m *SkinMesh) Kind() MeshKind { return SkinMeshKind }

// Cluster is a convexity cluster of a sorted mesh, forming a BSP-like tree
// for back-to-front traversal.
type Cluster struct {
	StartPrimitive int32
	EndPrimitive   int32
	Normal         mgl32.Vec3
	K              float32
	FrontCluster   int32
	BackCluster    int32
}

// SortedMesh is a mesh whose primitives are ordered at render time by
// traversing clusters relative to the camera.
type SortedMesh struct {
	BaseMesh

	Clusters      []Cluster
	StartClusters []int32
	FirstVerts    []int32
	NumVerts      []int32
	FirstTVerts   []int32

	AlwaysWriteDepth bool
}

// Kind implements Mesh.
func (m *SortedMesh) Kind() MeshKind { return SortedMeshKind }

// NullMesh is a placeholder for an empty mesh slot.
type NullMesh struct{}

// Kind implements Mesh.
func (NullMesh) Kind() MeshKind { return NullMeshKind }

// Bounds implements Mesh.
func (NullMesh) Bounds() Box { return Box{} }

// Primitives implements Mesh.
func (NullMesh) Primitives() []Primitive { return nil }

// TriangleCount implements Mesh.
func (NullMesh) TriangleCount() int { return 0 }
