package ts

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestPrimitiveTriangles(t *testing.T) {
	tests := []struct {
		n    uint16
		kind uint32
		want int
	}{
		{6, PrimTriangles, 2},
		{7, PrimTriangles, 2},
		{6, PrimStrip, 4},
		{6, PrimFan, 4},
		{3, PrimStrip, 1},
		{2, PrimStrip, 0},
		{0, PrimFan, 0},
	}
	for _, tt := range tests {
		p := Primitive{NumElements: tt.n, MatIndex: tt.kind | PrimIndexed}
		if got := p.Triangles(); got != tt.want {
			t.Errorf("Triangles(%d elements, kind %#x) = %d, want %d",
				tt.n, tt.kind, got, tt.want)
		}
	}
}

// quadMesh is a unit quad in the xy plane with straightforward UVs, useful
// for tangent checks.
func quadMesh() *BaseMesh {
	return &BaseMesh{
		Verts: []mgl32.Vec3{
			{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		},
		Norms: []mgl32.Vec3{
			{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1},
		},
		TVerts: []mgl32.Vec2{
			{0, 0}, {1, 0}, {1, 1}, {0, 1},
		},
		Prims: []Primitive{
			{Start: 0, NumElements: 6, MatIndex: PrimTriangles | PrimIndexed},
		},
		Indices: []uint16{0, 1, 2, 0, 2, 3},
	}
}

func TestTriangleCount(t *testing.T) {
	m := quadMesh()
	if got := m.TriangleCount(); got != 2 {
		t.Errorf("TriangleCount = %d, want 2", got)
	}
	var null NullMesh
	if got := null.TriangleCount(); got != 0 {
		t.Errorf("null TriangleCount = %d, want 0", got)
	}
}

func TestResourceStates(t *testing.T) {
	m := quadMesh()
	if m.State() != ResourceUnloaded {
		t.Fatalf("initial state = %v, want Unloaded", m.State())
	}

	// Invalidating resources that were never created is a no-op.
	m.Invalidate()
	if m.State() != ResourceUnloaded {
		t.Errorf("Invalidate while Unloaded moved state to %v", m.State())
	}

	m.EnsureReady()
	if m.State() != ResourceReady {
		t.Errorf("state after EnsureReady = %v, want Ready", m.State())
	}
	m.EnsureReady()
	if m.State() != ResourceReady {
		t.Errorf("repeat EnsureReady moved state to %v", m.State())
	}

	m.Invalidate()
	if m.State() != ResourceInvalidated {
		t.Errorf("state after Invalidate = %v, want Invalidated", m.State())
	}
	m.EnsureReady()
	if m.State() != ResourceReady {
		t.Errorf("EnsureReady did not recover from Invalidated")
	}

	m.Release()
	if m.State() != ResourceUnloaded {
		t.Errorf("state after Release = %v, want Unloaded", m.State())
	}
}

func TestTangents(t *testing.T) {
	m := quadMesh()
	tan := m.Tangents()
	if len(tan) != len(m.Verts) {
		t.Fatalf("got %d tangents for %d verts", len(tan), len(m.Verts))
	}
	for i, v := range tan {
		// With u increasing along +x, every tangent points along +x.
		if !v.Vec3().ApproxEqualThreshold(mgl32.Vec3{1, 0, 0}, 1e-4) {
			t.Errorf("tangent %d = %v, want {1 0 0}", i, v.Vec3())
		}
		if v.W() != 1 {
			t.Errorf("tangent %d handedness = %v, want 1", i, v.W())
		}
	}

	// Invalidation forces a recompute.
	m.Invalidate()
	m.Verts[1] = mgl32.Vec3{2, 0, 0}
	tan = m.Tangents()
	if len(tan) != len(m.Verts) {
		t.Fatalf("got %d tangents after recompute", len(tan))
	}
	if l := tan[0].Vec3().Len(); l < 1-1e-4 || l > 1+1e-4 {
		t.Errorf("recomputed tangent not unit length: %v", l)
	}
}

func TestTangentsWithoutUVs(t *testing.T) {
	m := &BaseMesh{Verts: []mgl32.Vec3{{0, 0, 0}}}
	if tan := m.Tangents(); tan != nil {
		t.Errorf("mesh without UVs produced tangents: %v", tan)
	}
	if m.State() != ResourceReady {
		t.Errorf("EnsureReady without UVs left state %v", m.State())
	}
}

func TestMeshKindString(t *testing.T) {
	tests := []struct {
		kind MeshKind
		want string
	}{
		{StandardMeshKind, "Standard"},
		{SkinMeshKind, "Skin"},
		{DecalMeshKind, "Decal"},
		{SortedMeshKind, "Sorted"},
		{NullMeshKind, "Null"},
		{MeshKind(99), "Invalid"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("MeshKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
