package ts

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// linkShape builds an unlinked shape: a root with three children in file
// order, two objects on the root, one sub-shape, two materials (the second
// translucent), and one standard mesh per object.
func linkShape() *Shape {
	quad := func(mat uint32) *BaseMesh {
		return &BaseMesh{
			MeshNumFrames: 1,
			ParentMesh:    -1,
			Verts:         []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
			Prims:         []Primitive{{Start: 0, NumElements: 6, MatIndex: PrimTriangles | PrimIndexed | mat}},
			Indices:       []uint16{0, 1, 2, 0, 2, 3},
			VertsPerFrame: 4,
		}
	}
	return &Shape{
		Names: []string{"root", "a", "b", "c", "solid", "glass", "detail1"},
		Nodes: []Node{
			{NameIndex: 0, ParentIndex: -1},
			{NameIndex: 1, ParentIndex: 0},
			{NameIndex: 2, ParentIndex: 0},
			{NameIndex: 3, ParentIndex: 0},
		},
		Objects: []Object{
			{NameIndex: 4, NumMeshes: 1, FirstMesh: 0, NodeIndex: 0},
			{NameIndex: 5, NumMeshes: 1, FirstMesh: 1, NodeIndex: 0},
		},
		Meshes: []Mesh{quad(0), quad(1)},
		Materials: MaterialList{
			Names: []string{"solid", "glass"},
			Flags: []uint32{0, MatTranslucent},
		},
		SubShapeFirstNode:   []int32{0},
		SubShapeNumNodes:    []int32{4},
		SubShapeFirstObject: []int32{0},
		SubShapeNumObjects:  []int32{2},
		Details: []Detail{
			{NameIndex: 6, SubShape: 0, ObjectDetail: 0},
		},
	}
}

func TestLinkNodes(t *testing.T) {
	s := linkShape()
	s.Link()

	if s.Nodes[0].FirstChild != 1 {
		t.Errorf("root FirstChild = %d, want 1", s.Nodes[0].FirstChild)
	}
	// Sibling order must match file order.
	if s.Nodes[1].NextSibling != 2 || s.Nodes[2].NextSibling != 3 {
		t.Errorf("sibling chain = %d, %d, want 2, 3",
			s.Nodes[1].NextSibling, s.Nodes[2].NextSibling)
	}
	if s.Nodes[3].NextSibling != -1 {
		t.Errorf("last sibling = %d, want -1", s.Nodes[3].NextSibling)
	}
	if s.Nodes[1].FirstChild != -1 {
		t.Errorf("leaf FirstChild = %d, want -1", s.Nodes[1].FirstChild)
	}
}

func TestLinkObjects(t *testing.T) {
	s := linkShape()
	s.Link()

	if s.Nodes[0].FirstObject != 0 {
		t.Errorf("root FirstObject = %d, want 0", s.Nodes[0].FirstObject)
	}
	if s.Objects[0].NextSibling != 1 || s.Objects[1].NextSibling != -1 {
		t.Errorf("object chain = %d, %d, want 1, -1",
			s.Objects[0].NextSibling, s.Objects[1].NextSibling)
	}
}

func TestLinkIdempotent(t *testing.T) {
	s := linkShape()
	s.Link()
	s.Link()
	if s.Nodes[1].NextSibling != 2 || s.Objects[0].NextSibling != 1 {
		t.Error("relinking changed the sibling chains")
	}
}

func TestComputePolyCounts(t *testing.T) {
	s := linkShape()
	// A stale stored count must be replaced by the recomputed one.
	s.Details[0].PolyCount = 999
	s.Link()
	if s.Details[0].PolyCount != 4 {
		t.Errorf("PolyCount = %d, want 4 (two quads)", s.Details[0].PolyCount)
	}
}

func TestTranslucencyBoundary(t *testing.T) {
	s := linkShape()
	s.Link()
	// Object 1 is the first with a translucent material.
	if got := s.SubShapeFirstTranslucent[0]; got != 1 {
		t.Errorf("SubShapeFirstTranslucent = %d, want 1", got)
	}

	// With no translucent material the sentinel is one past the range.
	s.Materials.Flags[1] = 0
	s.Link()
	if got := s.SubShapeFirstTranslucent[0]; got != 2 {
		t.Errorf("SubShapeFirstTranslucent = %d with no translucency, want 2", got)
	}

	// First match wins.
	s.Materials.Flags[0] = MatTranslucent
	s.Materials.Flags[1] = MatTranslucent
	s.Link()
	if got := s.SubShapeFirstTranslucent[0]; got != 0 {
		t.Errorf("SubShapeFirstTranslucent = %d with both translucent, want 0", got)
	}
}

func TestNames(t *testing.T) {
	s := linkShape()
	if i := s.FindName("glass"); i != 5 {
		t.Errorf("FindName = %d, want 5", i)
	}
	if i := s.FindName("missing"); i != -1 {
		t.Errorf("FindName of missing name = %d, want -1", i)
	}
	if i := s.AddName("glass"); i != 5 {
		t.Errorf("AddName of existing name = %d, want 5", i)
	}
	n := len(s.Names)
	if i := s.AddName("new"); i != n {
		t.Errorf("AddName = %d, want %d", i, n)
	}
	if s.Name(-1) != "" || s.Name(1000) != "" {
		t.Error("Name out of range is not empty")
	}
}

func TestFindNode(t *testing.T) {
	s := linkShape()
	if i := s.FindNode("b"); i != 2 {
		t.Errorf("FindNode = %d, want 2", i)
	}
	if i := s.FindNode("solid"); i != -1 {
		t.Errorf("FindNode of an object name = %d, want -1", i)
	}
	if i := s.FindObject("glass"); i != 1 {
		t.Errorf("FindObject = %d, want 1", i)
	}
	if s.NodeName(3) != "c" {
		t.Errorf("NodeName(3) = %q, want %q", s.NodeName(3), "c")
	}
}

func TestShapeStats(t *testing.T) {
	s := linkShape()
	s.Link()
	st := ShapeStats(s)
	if st.Nodes != 4 || st.Objects != 2 || st.Meshes != 2 || st.Materials != 2 {
		t.Errorf("stats = %+v, want 4 nodes, 2 objects, 2 meshes, 2 materials", st)
	}
	if st.Triangles != 4 {
		t.Errorf("Triangles = %d, want 4", st.Triangles)
	}
	if len(st.Details) != 1 || st.Details[0].Name != "detail1" || st.Details[0].PolyCount != 4 {
		t.Errorf("detail stats = %+v", st.Details)
	}
}
