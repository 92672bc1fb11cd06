package ts

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Sequence flags.
const (
	SeqUniformScale    uint32 = 1 << 0
	SeqAlignedScale    uint32 = 1 << 1
	SeqArbitraryScale  uint32 = 1 << 2
	SeqBlend           uint32 = 1 << 3
	SeqCyclic          uint32 = 1 << 4
	SeqMakePath        uint32 = 1 << 5
	SeqHasTranslucency uint32 = 1 << 6
)

// Dirty flags, summarizing which aspects of an instance need recomputation
// while a sequence is active. Computed by Shape.Link.
const (
	TransformDirty uint32 = 1 << 0
	VisDirty       uint32 = 1 << 1
	FrameDirty     uint32 = 1 << 2
	MatFrameDirty  uint32 = 1 << 3
	IflDirty       uint32 = 1 << 4
)

// Sequence is a named animation clip. Channel data lives in the owning
// Shape's flat arrays; the Base* fields are offsets into those arrays, and
// the *Matters sets record which nodes (or objects) the channel actually
// varies. Nodes outside a matters set fall back to the default pose.
type Sequence struct {
	NameIndex    int32
	Flags        uint32
	NumKeyframes int32
	Duration     float32
	Priority     int32

	FirstGroundFrame int32
	NumGroundFrames  int32

	BaseRotation    int32
	BaseTranslation int32
	BaseScale       int32
	BaseObjectState int32
	BaseDecalState  int32

	FirstTrigger int32
	NumTriggers  int32
	ToolBegin    float32

	RotationMatters    MatSet
	TranslationMatters MatSet
	ScaleMatters       MatSet
	VisMatters         MatSet
	FrameMatters       MatSet
	MatFrameMatters    MatSet

	DirtyFlags uint32
}

// IsCyclic reports whether the sequence wraps at position 1.
func (q *Sequence) IsCyclic() bool { return q.Flags&SeqCyclic != 0 }

// IsBlend reports whether the sequence is a blend clip, applied relative to
// the default pose on top of other sequences.
func (q *Sequence) IsBlend() bool { return q.Flags&SeqBlend != 0 }

// MakesPath reports whether position advancement should record trigger
// paths.
func (q *Sequence) MakesPath() bool { return q.Flags&SeqMakePath != 0 }

// AnimatesScale reports whether any scale channel is present.
func (q *Sequence) AnimatesScale() bool {
	return q.Flags&(SeqUniformScale|SeqAlignedScale|SeqArbitraryScale) != 0
}

// SetDirtyFlags summarizes the matters sets into DirtyFlags. Ifl animation
// rides the material-frame channel, so a shape with ifl materials is ifl
// dirty whenever material frames are.
func (q *Sequence) SetDirtyFlags(s *Shape) {
	q.DirtyFlags = 0
	if !q.RotationMatters.Empty() || !q.TranslationMatters.Empty() || !q.ScaleMatters.Empty() {
		q.DirtyFlags |= TransformDirty
	}
	if !q.VisMatters.Empty() {
		q.DirtyFlags |= VisDirty
	}
	if !q.FrameMatters.Empty() {
		q.DirtyFlags |= FrameDirty
	}
	if !q.MatFrameMatters.Empty() {
		q.DirtyFlags |= MatFrameDirty
		if len(s.IflMaterials) > 0 {
			q.DirtyFlags |= IflDirty
		}
	}
}

// KeyframesAt maps a normalized position to a keyframe pair and the
// interpolation fraction between them. For cyclic sequences keyframe N
// conceptually equals keyframe 0 (there is no stored keyframe at position
// 1), so the divisor is the keyframe count and the lookahead wraps. For
// one-shot sequences position 1 is the distinct last keyframe.
func (q *Sequence) KeyframesAt(pos float32) (k1, k2 int, frac float32) {
	n := int(q.NumKeyframes)
	if n <= 1 {
		return 0, 0, 0
	}
	if q.IsCyclic() {
		kpos := pos * float32(n)
		k1 = int(kpos)
		if k1 > n-1 {
			k1 = n - 1
		}
		k2 = k1 + 1
		if k2 > n-1 {
			k2 = 0
		}
		return k1, k2, kpos - float32(k1)
	}
	if pos == 1 {
		return n - 1, n - 1, 0
	}
	kpos := pos * float32(n-1)
	k1 = int(kpos)
	if k1 > n-2 {
		k1 = n - 2
	}
	return k1, k1 + 1, kpos - float32(k1)
}

// Trigger state encoding.
const (
	TriggerStateOn         uint32 = 1 << 31
	TriggerInvertOnReverse uint32 = 1 << 30
	TriggerStateMask       uint32 = TriggerInvertOnReverse - 1
)

// Trigger is a timeline event at a normalized position within a sequence,
// toggling one trigger state bit. Triggers of a sequence are stored sorted
// by position.
type Trigger struct {
	State uint32
	Pos   float32
}

// StateIndex returns the trigger state bit the trigger toggles.
func (t Trigger) StateIndex() int { return int(t.State & TriggerStateMask) }

// On reports whether the trigger sets (rather than clears) its state bit
// when activated while playing forward.
func (t Trigger) On() bool { return t.State&TriggerStateOn != 0 }

// InvertOnReverse reports whether the toggle direction flips when the
// trigger is activated while playing backward.
func (t Trigger) InvertOnReverse() bool { return t.State&TriggerInvertOnReverse != 0 }

// TriggerStates is a set of named boolean trigger bits, owned by whoever
// owns the threads that fire into it.
type TriggerStates struct {
	set MatSet
}

// Test reports whether state bit i is on.
func (t *TriggerStates) Test(i int) bool { return t.set.Test(i) }

// Apply applies a trigger activation. Forward is whether the activation
// happened while traversing forward; the invert-on-reverse flag flips the
// toggle direction only for backward activation.
func (t *TriggerStates) Apply(tr Trigger, forward bool) {
	on := tr.On()
	if !forward && tr.InvertOnReverse() {
		on = !on
	}
	if on {
		t.set.Set(tr.StateIndex())
	} else {
		t.set.Clear(tr.StateIndex())
	}
}

// NodeRotation samples the rotation channel of node for keyframe kf, falling
// back to the default pose when the node is outside the matters set.
func (s *Shape) NodeRotation(q *Sequence, kf int, node int) mgl32.Quat {
	if !q.RotationMatters.Test(node) {
		return s.DefaultRotations[node].Quat()
	}
	i := int(q.BaseRotation) + q.RotationMatters.CountLess(node)*int(q.NumKeyframes) + kf
	return s.NodeRotations[i].Quat()
}

// NodeTranslation samples the translation channel of node for keyframe kf,
// falling back to the default pose when the node is outside the matters set.
func (s *Shape) NodeTranslation(q *Sequence, kf int, node int) mgl32.Vec3 {
	if !q.TranslationMatters.Test(node) {
		return s.DefaultTranslations[node]
	}
	i := int(q.BaseTranslation) + q.TranslationMatters.CountLess(node)*int(q.NumKeyframes) + kf
	return s.NodeTranslations[i]
}

// NodeUniformScale samples the uniform scale channel of node for keyframe
// kf. Nodes outside the matters set report 1.
func (s *Shape) NodeUniformScale(q *Sequence, kf int, node int) float32 {
	if q.Flags&SeqUniformScale == 0 || !q.ScaleMatters.Test(node) {
		return 1
	}
	i := int(q.BaseScale) + q.ScaleMatters.CountLess(node)*int(q.NumKeyframes) + kf
	return s.NodeUniformScales[i]
}

// NodeAlignedScale samples the aligned scale channel of node for keyframe
// kf. Nodes outside the matters set report unit scale.
func (s *Shape) NodeAlignedScale(q *Sequence, kf int, node int) mgl32.Vec3 {
	if q.Flags&SeqAlignedScale == 0 || !q.ScaleMatters.Test(node) {
		return mgl32.Vec3{1, 1, 1}
	}
	i := int(q.BaseScale) + q.ScaleMatters.CountLess(node)*int(q.NumKeyframes) + kf
	return s.NodeAlignedScales[i]
}

// ObjectState samples the object state channel of object for keyframe kf.
// Objects outside every matters set report the visible default state.
func (s *Shape) ObjectStateAt(q *Sequence, kf int, object int) ObjectState {
	matters := q.VisMatters.Test(object) || q.FrameMatters.Test(object) || q.MatFrameMatters.Test(object)
	if !matters {
		return ObjectState{Vis: 1}
	}
	// Object states are laid out per member object across all three
	// object channels at once.
	var set *MatSet
	switch {
	case q.VisMatters.Test(object):
		set = &q.VisMatters
	case q.FrameMatters.Test(object):
		set = &q.FrameMatters
	default:
		set = &q.MatFrameMatters
	}
	i := int(q.BaseObjectState) + set.CountLess(object)*int(q.NumKeyframes) + kf
	return s.ObjectStates[i]
}

// GroundTransform samples the ground transform channel between ground frames
// for normalized position pos, interpolating translation and rotation.
// Sequences without ground frames report identity.
func (s *Shape) GroundTransform(q *Sequence, pos float32) mgl32.Mat4 {
	n := int(q.NumGroundFrames)
	if n == 0 {
		return mgl32.Ident4()
	}
	// Ground frames divide [0,1] into n spans.
	fpos := pos * float32(n)
	f := int(fpos)
	if f > n-1 {
		f = n - 1
	}
	frac := fpos - float32(f)

	base := int(q.FirstGroundFrame)
	t0 := s.GroundTranslations[base+f]
	r0 := s.GroundRotations[base+f].Quat()
	var t1 mgl32.Vec3
	var r1 mgl32.Quat
	if f+1 < n {
		t1 = s.GroundTranslations[base+f+1]
		r1 = s.GroundRotations[base+f+1].Quat()
	} else {
		t1, r1 = t0, r0
	}

	t := t0.Add(t1.Sub(t0).Mul(frac))
	r := mgl32.QuatSlerp(r0.Normalize(), r1.Normalize(), frac)
	m := r.Mat4()
	m.SetCol(3, t.Vec4(1))
	return m
}
