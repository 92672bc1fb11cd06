// The ts package models hierarchical skeletal-animation shapes.
//
// A Shape is the read-only result of decoding a shape file: flat arrays of
// nodes (bones), objects (mesh attachments), meshes, materials, animation
// sequences, and all per-keyframe channel data, cross-referenced by array
// index rather than pointer. The dts sub-package decodes and encodes the
// binary format.
//
// Runtime playback is driven by Thread values, which hold a per-instance
// cursor over one of the shape's sequences, and by Pose values, which turn
// sampled channel data into local, object, and world transforms. A Shape is
// written once by the decoder and then only read, so any number of Threads
// and Poses may share it concurrently; Threads and Poses themselves are
// single-owner.
package ts

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Node is a bone in the skeleton tree. Child and sibling relations are
// threaded through indices into the owning Shape's Nodes array; -1 marks the
// end of a list. A node's parent index is always less than its own index, a
// guarantee of the file layout.
type Node struct {
	NameIndex   int32
	ParentIndex int32
	FirstObject int32
	FirstChild  int32
	NextSibling int32
}

// Object is a mesh attachment bound to one node, or unbound (NodeIndex < 0)
// for skin objects driven by multiple bones. Objects on the same node are
// threaded through NextSibling.
type Object struct {
	NameIndex   int32
	NumMeshes   int32
	FirstMesh   int32
	NodeIndex   int32
	NextSibling int32
}

// Detail is a level-of-detail entry selecting a sub-shape and object detail
// number by projected size.
type Detail struct {
	NameIndex    int32
	SubShape     int32
	ObjectDetail int32
	Size         float32
	AverageError float32
	MaxError     float32
	PolyCount    int32
}

// IflMaterial is an image-file-list material slot, cycling the material's
// texture over time.
type IflMaterial struct {
	NameIndex     int32
	MaterialSlot  int32
	FirstFrame    int32
	FirstFrameOff int32
	NumFrames     int32
}

// ObjectState is a per-keyframe object channel sample: visibility and
// frame/material-frame selection.
type ObjectState struct {
	Vis           float32
	FrameIndex    int32
	MatFrameIndex int32
}

// Material flags.
const (
	MatSWrap             uint32 = 1 << 0
	MatTWrap             uint32 = 1 << 1
	MatTranslucent       uint32 = 1 << 2
	MatAdditive          uint32 = 1 << 3
	MatSubtractive       uint32 = 1 << 4
	MatSelfIlluminating  uint32 = 1 << 5
	MatNeverEnvMap       uint32 = 1 << 6
	MatNoMipMap          uint32 = 1 << 7
	MatMipMapZeroBorder  uint32 = 1 << 8
	MatIflMaterial       uint32 = 1 << 27
	MatIflFrame          uint32 = 1 << 28
	MatDetailMapOnly     uint32 = 1 << 29
	MatBumpMapOnly       uint32 = 1 << 30
	MatReflectanceMapOnly uint32 = 1 << 31
)

// MaterialList holds the shape's materials as parallel arrays indexed by
// material slot.
type MaterialList struct {
	Names             []string
	Flags             []uint32
	ReflectanceMaps   []int32
	BumpMaps          []int32
	DetailMaps        []int32
	DetailScales      []float32
	ReflectionAmounts []float32
}

// Size returns the number of materials.
func (l *MaterialList) Size() int {
	return len(l.Names)
}

// Translucent reports whether material slot i carries the translucent flag.
func (l *MaterialList) Translucent(i int) bool {
	return i >= 0 && i < len(l.Flags) && l.Flags[i]&MatTranslucent != 0
}

// Shape is the fully linked structural and animation-data store for one
// shape file. All arrays are built by the decoder and treated as immutable
// afterward; the only later mutation is lazily created mesh render
// resources.
type Shape struct {
	Nodes        []Node
	Objects      []Object
	Meshes       []Mesh
	Sequences    []Sequence
	Triggers     []Trigger
	Details      []Detail
	IflMaterials []IflMaterial
	ObjectStates []ObjectState

	// Sub-shape partitions of the node and object arrays.
	SubShapeFirstNode   []int32
	SubShapeNumNodes    []int32
	SubShapeFirstObject []int32
	SubShapeNumObjects  []int32

	// Index of the first object in each sub-shape with a translucent
	// material, or one past the sub-shape's object range when none exists.
	// Computed by Link.
	SubShapeFirstTranslucent []int32

	// Default pose, one entry per node.
	DefaultRotations    []Quat16
	DefaultTranslations []mgl32.Vec3

	// Animation channels, indexed by sequence-relative base offsets.
	NodeRotations             []Quat16
	NodeTranslations          []mgl32.Vec3
	NodeUniformScales         []float32
	NodeAlignedScales         []mgl32.Vec3
	NodeArbitraryScaleFactors []mgl32.Vec3
	NodeArbitraryScaleRots    []Quat16
	GroundTranslations        []mgl32.Vec3
	GroundRotations           []Quat16

	Names     []string
	Materials MaterialList

	Radius     float32
	TubeRadius float32
	Center     mgl32.Vec3
	Bounds     Box

	SmallestVisibleSize float32
	SmallestVisibleDL   int32

	// Digest of the source bytes the shape was decoded from. Set by the
	// registry; empty for shapes built in memory.
	Digest []byte
}

// NodeName returns the name of node i, or an empty string when the node or
// its name index is out of range.
func (s *Shape) NodeName(i int) string {
	if i < 0 || i >= len(s.Nodes) {
		return ""
	}
	return s.Name(int(s.Nodes[i].NameIndex))
}

// Name returns name table entry i, or an empty string when out of range.
func (s *Shape) Name(i int) string {
	if i < 0 || i >= len(s.Names) {
		return ""
	}
	return s.Names[i]
}

// FindName returns the name table index of name, or -1.
func (s *Shape) FindName(name string) int {
	for i, n := range s.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// AddName returns the name table index of name, adding it if absent.
func (s *Shape) AddName(name string) int {
	if i := s.FindName(name); i >= 0 {
		return i
	}
	s.Names = append(s.Names, name)
	return len(s.Names) - 1
}

// FindNode returns the index of the first node with the given name, or -1.
func (s *Shape) FindNode(name string) int {
	ni := s.FindName(name)
	if ni < 0 {
		return -1
	}
	for i := range s.Nodes {
		if int(s.Nodes[i].NameIndex) == ni {
			return i
		}
	}
	return -1
}

// FindObject returns the index of the first object with the given name, or
// -1.
func (s *Shape) FindObject(name string) int {
	ni := s.FindName(name)
	if ni < 0 {
		return -1
	}
	for i := range s.Objects {
		if int(s.Objects[i].NameIndex) == ni {
			return i
		}
	}
	return -1
}

// FindSequence returns the index of the first sequence with the given name,
// or -1.
func (s *Shape) FindSequence(name string) int {
	ni := s.FindName(name)
	if ni < 0 {
		return -1
	}
	for i := range s.Sequences {
		if int(s.Sequences[i].NameIndex) == ni {
			return i
		}
	}
	return -1
}

// Link resolves the relations that are not stored in the file: node
// child/sibling lists, object lists, per-detail polygon counts, per-sequence
// dirty flags, and sub-shape translucency boundaries. The decoder calls it
// once after all arrays are populated; it must be called again only if the
// structural arrays are rebuilt (as sequence import does not alter them, it
// does not re-link).
func (s *Shape) Link() {
	s.linkNodes()
	s.linkObjects()
	s.computePolyCounts()
	s.computeTranslucency()
	for i := range s.Sequences {
		s.Sequences[i].SetDirtyFlags(s)
	}
}

// linkNodes threads each node's first-child/next-sibling list. Nodes are
// appended at the tail of the existing chain, so sibling order matches file
// order.
func (s *Shape) linkNodes() {
	for i := range s.Nodes {
		s.Nodes[i].FirstObject = -1
		s.Nodes[i].FirstChild = -1
		s.Nodes[i].NextSibling = -1
	}
	for i := range s.Nodes {
		p := s.Nodes[i].ParentIndex
		if p < 0 {
			continue
		}
		if s.Nodes[p].FirstChild < 0 {
			s.Nodes[p].FirstChild = int32(i)
			continue
		}
		c := s.Nodes[p].FirstChild
		for s.Nodes[c].NextSibling >= 0 {
			c = s.Nodes[c].NextSibling
		}
		s.Nodes[c].NextSibling = int32(i)
	}
}

// linkObjects threads each node's object list, again preserving file order.
func (s *Shape) linkObjects() {
	for i := range s.Objects {
		s.Objects[i].NextSibling = -1
	}
	for i := range s.Objects {
		n := s.Objects[i].NodeIndex
		if n < 0 {
			// Unbound skin object.
			continue
		}
		if s.Nodes[n].FirstObject < 0 {
			s.Nodes[n].FirstObject = int32(i)
			continue
		}
		o := s.Nodes[n].FirstObject
		for s.Objects[o].NextSibling >= 0 {
			o = s.Objects[o].NextSibling
		}
		s.Objects[o].NextSibling = int32(i)
	}
}

// computePolyCounts recomputes each detail's polygon count from mesh
// primitive data rather than trusting the count stored in the file.
func (s *Shape) computePolyCounts() {
	for d := range s.Details {
		det := &s.Details[d]
		if det.SubShape < 0 || int(det.SubShape) >= len(s.SubShapeFirstObject) {
			det.PolyCount = 0
			continue
		}
		count := 0
		first := s.SubShapeFirstObject[det.SubShape]
		last := first + s.SubShapeNumObjects[det.SubShape]
		for oi := first; oi < last; oi++ {
			obj := &s.Objects[oi]
			if det.ObjectDetail >= obj.NumMeshes {
				continue
			}
			m := s.Meshes[obj.FirstMesh+det.ObjectDetail]
			if m != nil {
				count += m.TriangleCount()
			}
		}
		det.PolyCount = int32(count)
	}
}

// computeTranslucency records, for each sub-shape, the first object in file
// order with any translucent-flagged material. First match wins; the
// sentinel is one past the sub-shape's object range.
func (s *Shape) computeTranslucency() {
	s.SubShapeFirstTranslucent = make([]int32, len(s.SubShapeFirstObject))
	for ss := range s.SubShapeFirstObject {
		first := s.SubShapeFirstObject[ss]
		last := first + s.SubShapeNumObjects[ss]
		s.SubShapeFirstTranslucent[ss] = last
		for oi := first; oi < last; oi++ {
			if s.objectTranslucent(int(oi)) {
				s.SubShapeFirstTranslucent[ss] = oi
				break
			}
		}
	}
}

func (s *Shape) objectTranslucent(oi int) bool {
	obj := &s.Objects[oi]
	for mi := obj.FirstMesh; mi < obj.FirstMesh+obj.NumMeshes; mi++ {
		m := s.Meshes[mi]
		if m == nil {
			continue
		}
		for _, p := range m.Primitives() {
			if p.MatIndex&PrimNoMaterial != 0 {
				continue
			}
			if s.Materials.Translucent(int(p.MatIndex & PrimMaterialMask)) {
				return true
			}
		}
	}
	return false
}
