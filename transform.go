package ts

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/andrewstrauch/The-Scarab-Gauntlet-sub002/errors"
)

// NodeScale is a node's local scale: a factor per axis, optionally applied
// in a rotated basis (arbitrary scale).
type NodeScale struct {
	Factor mgl32.Vec3
	// Rotate, when Arbitrary, is the basis the factor applies in.
	Rotate    mgl32.Quat
	Arbitrary bool
}

// Identity reports whether the scale has no effect.
func (s NodeScale) Identity() bool {
	return s.Factor == mgl32.Vec3{1, 1, 1}
}

// Mat4 returns the scale as a matrix.
func (s NodeScale) Mat4() mgl32.Mat4 {
	m := mgl32.Scale3D(s.Factor[0], s.Factor[1], s.Factor[2])
	if s.Arbitrary {
		r := s.Rotate.Normalize().Mat4()
		m = r.Mul4(m).Mul4(r.Transpose())
	}
	return m
}

// Pose is the evaluation context for one animated shape instance: local
// rotation/translation/scale per node, hands-off overrides, and transform
// composition. It replaces any notion of a process-wide "currently
// animating shape"; everything the evaluator needs is carried here.
//
// A Pose mutates only its own arrays and may not be shared between
// concurrent owners; the underlying Shape is read-only.
type Pose struct {
	shape *Shape

	rot   []mgl32.Quat
	trans []mgl32.Vec3
	scale []NodeScale

	handsOff MatSet

	// Sticky per-chain scale flag: set for a node once it or any ancestor
	// carries a non-identity scale, letting consumers skip scale handling
	// on scale-free chains.
	hasScale MatSet
}

// NewPose creates a pose over shape, initialized to the default pose.
func NewPose(shape *Shape) *Pose {
	errors.Assert(shape != nil, "nil shape")
	p := &Pose{
		shape: shape,
		rot:   make([]mgl32.Quat, len(shape.Nodes)),
		trans: make([]mgl32.Vec3, len(shape.Nodes)),
		scale: make([]NodeScale, len(shape.Nodes)),
	}
	p.SetDefault()
	return p
}

// Shape returns the shape the pose evaluates.
func (p *Pose) Shape() *Shape { return p.shape }

// SetDefault resets every non-hands-off node to the shape's default pose.
func (p *Pose) SetDefault() {
	for i := range p.shape.Nodes {
		if p.handsOff.Test(i) {
			continue
		}
		p.rot[i] = p.shape.DefaultRotations[i].Quat()
		p.trans[i] = p.shape.DefaultTranslations[i]
		p.scale[i] = NodeScale{Factor: mgl32.Vec3{1, 1, 1}}
	}
	p.recomputeHasScale()
}

// Apply samples the thread's active sequence (blending through any in-flight
// transition) into the pose's local channels. Nodes outside the sequence's
// matters sets and hands-off nodes are left untouched. Threads should be
// applied in SortThreads order.
func (p *Pose) Apply(t *Thread) {
	errors.Assert(t.shape == p.shape, "thread and pose shapes differ")
	seq := t.Sequence()
	k1, k2, frac := t.Keyframes()

	var rotNodes, transNodes, scaleNodes *MatSet
	var oldSeq *Sequence
	var blend float32
	if t.IsInTransition() {
		rotNodes, transNodes, scaleNodes = t.TransitionNodes()
		oldSeq = &p.shape.Sequences[t.OldSequenceIndex()]
		blend = t.TransitionPos()
	} else {
		rotNodes, transNodes, scaleNodes = &seq.RotationMatters, &seq.TranslationMatters, &seq.ScaleMatters
	}

	for i := range p.shape.Nodes {
		if p.handsOff.Test(i) {
			continue
		}
		if rotNodes.Test(i) {
			r0 := p.shape.NodeRotation(seq, k1, i).Normalize()
			r1 := p.shape.NodeRotation(seq, k2, i).Normalize()
			r := mgl32.QuatSlerp(r0, r1, frac)
			if oldSeq != nil {
				r = mgl32.QuatSlerp(p.sampleRotation(oldSeq, t.OldPos(), i), r, blend)
			}
			p.rot[i] = r
		}
		if transNodes.Test(i) {
			v0 := p.shape.NodeTranslation(seq, k1, i)
			v1 := p.shape.NodeTranslation(seq, k2, i)
			v := v0.Add(v1.Sub(v0).Mul(frac))
			if oldSeq != nil {
				ov := p.sampleTranslation(oldSeq, t.OldPos(), i)
				v = ov.Add(v.Sub(ov).Mul(blend))
			}
			p.trans[i] = v
		}
		if seq.AnimatesScale() && scaleNodes.Test(i) {
			p.scale[i] = p.sampleScaleBlend(seq, k1, k2, frac, oldSeq, t.OldPos(), blend, i)
		}
	}
	p.recomputeHasScale()
}

func (p *Pose) sampleRotation(q *Sequence, pos float32, node int) mgl32.Quat {
	k1, k2, frac := q.KeyframesAt(pos)
	r0 := p.shape.NodeRotation(q, k1, node).Normalize()
	r1 := p.shape.NodeRotation(q, k2, node).Normalize()
	return mgl32.QuatSlerp(r0, r1, frac)
}

func (p *Pose) sampleTranslation(q *Sequence, pos float32, node int) mgl32.Vec3 {
	k1, k2, frac := q.KeyframesAt(pos)
	v0 := p.shape.NodeTranslation(q, k1, node)
	v1 := p.shape.NodeTranslation(q, k2, node)
	return v0.Add(v1.Sub(v0).Mul(frac))
}

func (p *Pose) sampleScale(q *Sequence, k1, k2 int, frac float32, node int) NodeScale {
	switch {
	case q.Flags&SeqUniformScale != 0:
		s0 := p.shape.NodeUniformScale(q, k1, node)
		s1 := p.shape.NodeUniformScale(q, k2, node)
		s := s0 + (s1-s0)*frac
		return NodeScale{Factor: mgl32.Vec3{s, s, s}}
	case q.Flags&SeqAlignedScale != 0:
		s0 := p.shape.NodeAlignedScale(q, k1, node)
		s1 := p.shape.NodeAlignedScale(q, k2, node)
		return NodeScale{Factor: s0.Add(s1.Sub(s0).Mul(frac))}
	case q.Flags&SeqArbitraryScale != 0:
		slot := int(q.BaseScale) + q.ScaleMatters.CountLess(node)*int(q.NumKeyframes)
		f0 := p.shape.NodeArbitraryScaleFactors[slot+k1]
		f1 := p.shape.NodeArbitraryScaleFactors[slot+k2]
		r0 := p.shape.NodeArbitraryScaleRots[slot+k1].Quat().Normalize()
		r1 := p.shape.NodeArbitraryScaleRots[slot+k2].Quat().Normalize()
		return NodeScale{
			Factor:    f0.Add(f1.Sub(f0).Mul(frac)),
			Rotate:    mgl32.QuatSlerp(r0, r1, frac),
			Arbitrary: true,
		}
	}
	return NodeScale{Factor: mgl32.Vec3{1, 1, 1}}
}

func (p *Pose) sampleScaleBlend(q *Sequence, k1, k2 int, frac float32, oldSeq *Sequence, oldPos, blend float32, node int) NodeScale {
	s := p.sampleScale(q, k1, k2, frac, node)
	if oldSeq == nil {
		return s
	}
	ok1, ok2, ofrac := oldSeq.KeyframesAt(oldPos)
	var o NodeScale
	if oldSeq.AnimatesScale() && oldSeq.ScaleMatters.Test(node) {
		o = p.sampleScale(oldSeq, ok1, ok2, ofrac, node)
	} else {
		o = NodeScale{Factor: mgl32.Vec3{1, 1, 1}}
	}
	s.Factor = o.Factor.Add(s.Factor.Sub(o.Factor).Mul(blend))
	if s.Arbitrary && o.Arbitrary {
		s.Rotate = mgl32.QuatSlerp(o.Rotate, s.Rotate, blend)
	}
	return s
}

// recomputeHasScale recomputes the sticky has-scale flags. Parents precede
// children in the node array, so one forward pass settles every chain.
func (p *Pose) recomputeHasScale() {
	p.hasScale = MatSet{}
	for i := range p.shape.Nodes {
		if parent := p.shape.Nodes[i].ParentIndex; parent >= 0 && p.hasScale.Test(int(parent)) {
			p.hasScale.Set(i)
			continue
		}
		if !p.scale[i].Identity() {
			p.hasScale.Set(i)
		}
	}
}

// HasScale reports whether node or any of its ancestors carries a
// non-identity scale.
func (p *Pose) HasScale(node int) bool { return p.hasScale.Test(node) }

// SetHandsOff detaches node from the animated-pose pipeline (on=true) so
// client code can pose it directly, or reattaches it (on=false). The last
// hands-off pose is kept when reattaching, so the next Apply takes over
// without a visible pop.
func (p *Pose) SetHandsOff(node int, on bool) {
	errors.Assertf(node >= 0 && node < len(p.shape.Nodes), "node index %d out of range", node)
	if on {
		p.handsOff.Set(node)
	} else {
		// The current channel slots already hold the last hands-off pose;
		// leaving them is the snapshot.
		p.handsOff.Clear(node)
	}
}

// HandsOff reports whether node is in hands-off mode.
func (p *Pose) HandsOff(node int) bool { return p.handsOff.Test(node) }

// SetNodeTransform directly poses a hands-off node.
func (p *Pose) SetNodeTransform(node int, trans mgl32.Vec3, rot mgl32.Quat, scale NodeScale) {
	errors.Assertf(node >= 0 && node < len(p.shape.Nodes), "node index %d out of range", node)
	errors.Assertf(p.handsOff.Test(node), "node %d is not hands-off", node)
	p.trans[node] = trans
	p.rot[node] = rot
	p.scale[node] = scale
	p.recomputeHasScale()
}

// NodeRotationValue returns the node's current local rotation.
func (p *Pose) NodeRotationValue(node int) mgl32.Quat { return p.rot[node] }

// NodeTranslationValue returns the node's current local translation.
func (p *Pose) NodeTranslationValue(node int) mgl32.Vec3 { return p.trans[node] }

// LocalTransform returns the node's local transform, optionally composing
// the local scale. Scale is pre-multiplied into the rotation basis, never
// post-multiplied into world space.
func (p *Pose) LocalTransform(node int, includeScale bool) mgl32.Mat4 {
	errors.Assertf(node >= 0 && node < len(p.shape.Nodes), "node index %d out of range", node)
	m := p.rot[node].Normalize().Mat4()
	if includeScale && !p.scale[node].Identity() {
		m = m.Mul4(p.scale[node].Mat4())
	}
	m.SetCol(3, p.trans[node].Vec4(1))
	return m
}

// WorldTransform returns the node's transform relative to the shape root:
// local composed onto the parent's world transform, recursively.
func (p *Pose) WorldTransform(node int, includeScale bool) mgl32.Mat4 {
	local := p.LocalTransform(node, includeScale)
	parent := p.shape.Nodes[node].ParentIndex
	if parent < 0 {
		return local
	}
	return p.WorldTransform(int(parent), includeScale).Mul4(local)
}

// ObjectTransform returns the node's transform relative to the first
// sub-shape root rather than the world: a root node reports identity, a
// child of a root reports its local transform directly, and deeper nodes
// compose onto the parent's object transform.
func (p *Pose) ObjectTransform(node int, includeScale bool) mgl32.Mat4 {
	parent := p.shape.Nodes[node].ParentIndex
	if parent < 0 {
		return mgl32.Ident4()
	}
	if p.shape.Nodes[parent].ParentIndex < 0 {
		return p.LocalTransform(node, includeScale)
	}
	return p.ObjectTransform(int(parent), includeScale).Mul4(p.LocalTransform(node, includeScale))
}
