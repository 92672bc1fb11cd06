package ts

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// chainShape builds a three-node chain: root at the origin, node 1 offset
// (1,0,0) from the root, node 2 offset (0,1,0) from node 1.
func chainShape() *Shape {
	s := &Shape{
		Names: []string{"root", "arm", "hand"},
		Nodes: []Node{
			{NameIndex: 0, ParentIndex: -1},
			{NameIndex: 1, ParentIndex: 0},
			{NameIndex: 2, ParentIndex: 1},
		},
		DefaultTranslations: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
	}
	for range s.Nodes {
		s.DefaultRotations = append(s.DefaultRotations, PackQuat(mgl32.QuatIdent()))
	}
	s.Link()
	return s
}

func vecApprox(a, b mgl32.Vec3) bool {
	// Compare with an absolute tolerance: mgl32's ApproxEqualThreshold
	// squares the epsilon for components near zero, which rejects values
	// that are within ordinary float32 roundoff of zero.
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) >= 1e-4 {
			return false
		}
	}
	return true
}

func TestLocalTransform(t *testing.T) {
	p := NewPose(chainShape())
	m := p.LocalTransform(1, false)
	if got := m.Col(3).Vec3(); !vecApprox(got, mgl32.Vec3{1, 0, 0}) {
		t.Errorf("local translation = %v, want {1 0 0}", got)
	}
}

func TestWorldTransform(t *testing.T) {
	p := NewPose(chainShape())
	m := p.WorldTransform(2, false)
	if got := m.Col(3).Vec3(); !vecApprox(got, mgl32.Vec3{1, 1, 0}) {
		t.Errorf("world translation = %v, want {1 1 0}", got)
	}
}

func TestObjectTransform(t *testing.T) {
	p := NewPose(chainShape())

	// A root node is the sub-shape frame itself.
	if m := p.ObjectTransform(0, false); m != mgl32.Ident4() {
		t.Error("root ObjectTransform is not identity")
	}
	// A child of the root reports its local transform directly.
	m := p.ObjectTransform(1, false)
	if got := m.Col(3).Vec3(); !vecApprox(got, mgl32.Vec3{1, 0, 0}) {
		t.Errorf("child-of-root object translation = %v, want {1 0 0}", got)
	}
	// Deeper nodes compose onto the parent's object transform, which
	// excludes the root.
	m = p.ObjectTransform(2, false)
	if got := m.Col(3).Vec3(); !vecApprox(got, mgl32.Vec3{1, 1, 0}) {
		t.Errorf("object translation = %v, want {1 1 0}", got)
	}
}

func TestApplySamplesSequence(t *testing.T) {
	s := chainShape()
	s.Sequences = []Sequence{{
		NameIndex:          0,
		NumKeyframes:       2,
		Duration:           1,
		TranslationMatters: MatSetOf(1),
	}}
	// Two keyframes for node 1: x moves from 1 to 3.
	s.NodeTranslations = []mgl32.Vec3{{1, 0, 0}, {3, 0, 0}}
	s.Link()

	p := NewPose(s)
	th := NewThread(s, 0)
	th.SetPos(0.5)
	p.Apply(th)

	if got := p.NodeTranslationValue(1); !vecApprox(got, mgl32.Vec3{2, 0, 0}) {
		t.Errorf("node 1 translation = %v, want {2 0 0}", got)
	}
	// Node 2 is outside the matters set and keeps its default.
	if got := p.NodeTranslationValue(2); !vecApprox(got, mgl32.Vec3{0, 1, 0}) {
		t.Errorf("node 2 translation = %v, want default {0 1 0}", got)
	}
}

func TestApplyBlendsTransition(t *testing.T) {
	s := chainShape()
	s.Sequences = []Sequence{
		{NumKeyframes: 2, Duration: 1, TranslationMatters: MatSetOf(1), BaseTranslation: 0},
		{NumKeyframes: 2, Duration: 1, TranslationMatters: MatSetOf(1), BaseTranslation: 2},
	}
	// Sequence 0 holds node 1 at x=0; sequence 1 holds it at x=4.
	s.NodeTranslations = []mgl32.Vec3{{0, 0, 0}, {0, 0, 0}, {4, 0, 0}, {4, 0, 0}}
	s.Link()

	p := NewPose(s)
	th := NewThread(s, 0)
	th.TransitionToSequence(1, 0, 1, false)
	th.AdvanceTime(0.5)
	p.Apply(th)

	// Halfway through the crossfade the pose is halfway between the two.
	if got := p.NodeTranslationValue(1); !vecApprox(got, mgl32.Vec3{2, 0, 0}) {
		t.Errorf("blended translation = %v, want {2 0 0}", got)
	}
}

func TestHandsOff(t *testing.T) {
	s := chainShape()
	s.Sequences = []Sequence{{
		NumKeyframes:       2,
		Duration:           1,
		TranslationMatters: MatSetOf(1),
	}}
	s.NodeTranslations = []mgl32.Vec3{{9, 0, 0}, {9, 0, 0}}
	s.Link()

	p := NewPose(s)
	p.SetHandsOff(1, true)
	p.SetNodeTransform(1, mgl32.Vec3{5, 5, 5}, mgl32.QuatIdent(), NodeScale{Factor: mgl32.Vec3{1, 1, 1}})

	// Neither Apply nor SetDefault may touch a hands-off node.
	th := NewThread(s, 0)
	p.Apply(th)
	if got := p.NodeTranslationValue(1); !vecApprox(got, mgl32.Vec3{5, 5, 5}) {
		t.Errorf("Apply moved a hands-off node to %v", got)
	}
	p.SetDefault()
	if got := p.NodeTranslationValue(1); !vecApprox(got, mgl32.Vec3{5, 5, 5}) {
		t.Errorf("SetDefault moved a hands-off node to %v", got)
	}

	// Releasing keeps the last hands-off pose until the next Apply, so
	// reattachment does not pop.
	p.SetHandsOff(1, false)
	if got := p.NodeTranslationValue(1); !vecApprox(got, mgl32.Vec3{5, 5, 5}) {
		t.Errorf("releasing hands-off snapped the node to %v", got)
	}
	p.Apply(th)
	if got := p.NodeTranslationValue(1); !vecApprox(got, mgl32.Vec3{9, 0, 0}) {
		t.Errorf("Apply after release = %v, want {9 0 0}", got)
	}
}

func TestSetNodeTransformRequiresHandsOff(t *testing.T) {
	p := NewPose(chainShape())
	defer func() {
		if recover() == nil {
			t.Error("SetNodeTransform on an attached node did not panic")
		}
	}()
	p.SetNodeTransform(1, mgl32.Vec3{}, mgl32.QuatIdent(), NodeScale{Factor: mgl32.Vec3{1, 1, 1}})
}

func TestHasScaleSticky(t *testing.T) {
	p := NewPose(chainShape())
	if p.HasScale(0) || p.HasScale(1) || p.HasScale(2) {
		t.Fatal("default pose reports scale")
	}

	p.SetHandsOff(1, true)
	p.SetNodeTransform(1, mgl32.Vec3{1, 0, 0}, mgl32.QuatIdent(), NodeScale{Factor: mgl32.Vec3{2, 2, 2}})

	// The scaled node and its descendants report scale; the parent does
	// not.
	if p.HasScale(0) {
		t.Error("root reports scale it does not have")
	}
	if !p.HasScale(1) {
		t.Error("scaled node does not report scale")
	}
	if !p.HasScale(2) {
		t.Error("descendant of a scaled node does not report scale")
	}
}

func TestLocalTransformScale(t *testing.T) {
	p := NewPose(chainShape())
	p.SetHandsOff(1, true)
	p.SetNodeTransform(1, mgl32.Vec3{1, 0, 0}, mgl32.QuatIdent(), NodeScale{Factor: mgl32.Vec3{2, 1, 1}})

	with := p.LocalTransform(1, true)
	without := p.LocalTransform(1, false)
	if with.At(0, 0) != 2 {
		t.Errorf("scaled local transform scale = %v, want 2", with.At(0, 0))
	}
	if without.At(0, 0) != 1 {
		t.Errorf("unscaled local transform scale = %v, want 1", without.At(0, 0))
	}
	// Translation is unaffected by local scale.
	if got := with.Col(3).Vec3(); !vecApprox(got, mgl32.Vec3{1, 0, 0}) {
		t.Errorf("scaled local translation = %v, want {1 0 0}", got)
	}
}

func TestNodeScaleArbitraryMat4(t *testing.T) {
	// Scaling 2x along an axis rotated 90 degrees about z turns x-scale
	// into y-scale.
	s := NodeScale{
		Factor:    mgl32.Vec3{2, 1, 1},
		Rotate:    mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1}),
		Arbitrary: true,
	}
	m := s.Mat4()
	v := m.Mul4x1(mgl32.Vec4{0, 1, 0, 0})
	if !vecApprox(v.Vec3(), mgl32.Vec3{0, 2, 0}) {
		t.Errorf("rotated scale of +y = %v, want {0 2 0}", v.Vec3())
	}
	v = m.Mul4x1(mgl32.Vec4{1, 0, 0, 0})
	if !vecApprox(v.Vec3(), mgl32.Vec3{1, 0, 0}) {
		t.Errorf("rotated scale of +x = %v, want {1 0 0}", v.Vec3())
	}
}
