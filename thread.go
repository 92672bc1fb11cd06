package ts

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/andrewstrauch/The-Scarab-Gauntlet-sub002/errors"
)

// TransitionData describes an in-flight crossfade to another sequence. The
// node sets are the union of every sequence touched while transitions were
// chained, so nodes controlled by any of them keep interpolating smoothly.
type TransitionData struct {
	inTransition bool
	duration     float32
	pos          float32
	direction    float32
	targetScale  float32

	oldSequence int32
	oldPos      float32

	rotationNodes    MatSet
	translationNodes MatSet
	scaleNodes       MatSet
}

// Thread is a mutable playback cursor over one of a shape's sequences. A
// thread mutates only its own state, never the shared shape, and must be
// advanced by exactly one owner.
type Thread struct {
	shape    *Shape
	sequence int32

	pos float32

	// TimeScale scales AdvanceTime deltas; negative plays in reverse.
	TimeScale float32

	// States, when set, receives trigger activations as the thread's
	// position traverses trigger timeline points.
	States *TriggerStates

	keyNum1 int32
	keyNum2 int32
	keyPos  float32

	path struct {
		start, end float32
		loop       int32
	}

	transition TransitionData
}

// NewThread creates a thread over the shape's sequence seq at position 0.
func NewThread(shape *Shape, seq int) *Thread {
	errors.Assert(shape != nil, "nil shape")
	t := &Thread{shape: shape, TimeScale: 1}
	t.SetSequence(seq, 0)
	return t
}

// Shape returns the shape the thread plays over.
func (t *Thread) Shape() *Shape { return t.shape }

// SequenceIndex returns the index of the active (or transition-target)
// sequence.
func (t *Thread) SequenceIndex() int { return int(t.sequence) }

// Sequence returns the active (or transition-target) sequence.
func (t *Thread) Sequence() *Sequence { return &t.shape.Sequences[t.sequence] }

// Pos returns the normalized position within the active sequence.
func (t *Thread) Pos() float32 { return t.pos }

// SetSequence makes seq the sole active sequence at normalized position pos,
// cancelling any transition.
func (t *Thread) SetSequence(seq int, pos float32) {
	errors.Assertf(seq >= 0 && seq < len(t.shape.Sequences), "sequence index %d out of range", seq)
	errors.Assertf(pos >= 0 && pos <= 1, "sequence position %v out of range", pos)
	t.sequence = int32(seq)
	t.pos = pos
	t.transition = TransitionData{}
	t.selectKeyframes()
}

// SetPos sets the normalized position within the active sequence.
func (t *Thread) SetPos(pos float32) {
	errors.Assertf(pos >= 0 && pos <= 1, "sequence position %v out of range", pos)
	t.pos = pos
	t.selectKeyframes()
}

// SetKeyframe snaps the thread to an exact keyframe.
func (t *Thread) SetKeyframe(kf int) {
	n := int(t.Sequence().NumKeyframes)
	errors.Assertf(kf >= 0 && kf < n, "keyframe %d out of range [0,%d)", kf, n)
	t.keyNum1 = int32(kf)
	t.keyNum2 = int32(kf)
	t.keyPos = 0
	if t.Sequence().IsCyclic() {
		t.pos = float32(kf) / float32(n)
	} else if n > 1 {
		t.pos = float32(kf) / float32(n-1)
	} else {
		t.pos = 0
	}
}

// Keyframes returns the selected keyframe pair and the interpolation
// fraction between them.
func (t *Thread) Keyframes() (k1, k2 int, frac float32) {
	return int(t.keyNum1), int(t.keyNum2), t.keyPos
}

// IsInTransition reports whether a transition is in flight.
func (t *Thread) IsInTransition() bool { return t.transition.inTransition }

// TransitionPos returns the normalized position within the transition
// window.
func (t *Thread) TransitionPos() float32 { return t.transition.pos }

// TransitionNodes returns the union of rotation, translation, and scale
// matters sets across every sequence touched by unresolved transitions.
// The sets alias the thread and are only meaningful during a transition.
func (t *Thread) TransitionNodes() (rotation, translation, scale *MatSet) {
	return &t.transition.rotationNodes, &t.transition.translationNodes, &t.transition.scaleNodes
}

// OldSequenceIndex returns the sequence the thread reverts to if the
// transition is rewound past its start.
func (t *Thread) OldSequenceIndex() int { return int(t.transition.oldSequence) }

// OldPos returns the position within the pre-transition sequence.
func (t *Thread) OldPos() float32 { return t.transition.oldPos }

// AdvanceTime advances playback by dt seconds, scaled by TimeScale. During
// a transition the governing clock is the transition window, so dt is
// normalized by the transition duration; otherwise by the sequence
// duration.
func (t *Thread) AdvanceTime(dt float32) {
	d := t.Sequence().Duration
	if t.transition.inTransition {
		d = t.transition.duration
	}
	if d <= 0 {
		return
	}
	t.AdvancePos(dt * t.TimeScale / d)
}

// AdvancePos advances the normalized position by delta, in units of the
// governing clock (the transition window while transitioning, the sequence
// otherwise). Cyclic sequences wrap; one-shot sequences clamp to [0,1].
func (t *Thread) AdvancePos(delta float32) {
	if !t.transition.inTransition {
		t.advanceSequence(delta)
		return
	}

	// While transitioning, decouple the transition's wall-clock length
	// from the target sequence's natural duration.
	if d := t.Sequence().Duration; d > 0 {
		t.advanceSequence(delta * t.transition.targetScale * t.transition.duration / d)
	}

	t.transition.pos += t.transition.direction * delta
	switch {
	case t.transition.pos < 0:
		// Rewound past the start: fully revert.
		old, oldPos := int(t.transition.oldSequence), t.transition.oldPos
		t.SetSequence(old, oldPos)
	case t.transition.pos >= 1:
		// The new sequence becomes the sole active one.
		t.transition = TransitionData{}
	}
}

// advanceSequence applies a normalized position delta to the active
// sequence, recording a trigger path when the sequence requests one.
func (t *Thread) advanceSequence(delta float32) {
	seq := t.Sequence()
	makePath := seq.MakesPath()
	start := t.pos

	t.pos += delta
	var loop int32
	if seq.IsCyclic() {
		fl := float32(math.Floor(float64(t.pos)))
		loop = int32(fl)
		t.pos -= fl
		// Exact-boundary floating point error can leave pos at 1.0 or a
		// hair below 0; nudge back into [0,1).
		if t.pos >= 1 || t.pos < 0 {
			t.pos = 0
		}
	} else {
		if t.pos > 1 {
			t.pos = 1
		} else if t.pos < 0 {
			t.pos = 0
		}
	}

	if makePath {
		t.path.start = start
		t.path.end = t.pos
		t.path.loop = loop
		t.fireTriggers()
	}
	t.selectKeyframes()
}

// PathLoop returns the signed number of full wraps recorded by the last
// position advance of a path-making sequence.
func (t *Thread) PathLoop() int { return int(t.path.loop) }

// selectKeyframes maps the current position to a keyframe pair.
func (t *Thread) selectKeyframes() {
	k1, k2, frac := t.Sequence().KeyframesAt(t.pos)
	t.keyNum1, t.keyNum2, t.keyPos = int32(k1), int32(k2), frac
}

// TransitionToSequence starts (or chains) a crossfade to sequence seq,
// entering it at normalized position toPos over the given duration in
// seconds. With continuePlay false the target holds its entry pose for the
// transition window instead of animating into it.
func (t *Thread) TransitionToSequence(seq int, toPos, duration float32, continuePlay bool) {
	errors.Assertf(duration > 0, "transition duration %v must be positive", duration)
	errors.Assertf(seq >= 0 && seq < len(t.shape.Sequences), "sequence index %d out of range", seq)
	errors.Assertf(toPos >= 0 && toPos <= 1, "sequence position %v out of range", toPos)

	cur := t.Sequence()
	if !t.transition.inTransition {
		t.transition.rotationNodes = cur.RotationMatters.Copy()
		t.transition.translationNodes = cur.TranslationMatters.Copy()
		t.transition.scaleNodes = cur.ScaleMatters.Copy()
	} else {
		// Chained transition: keep interpolating every node any touched
		// sequence controlled, not just the newest target's.
		t.transition.rotationNodes.Union(cur.RotationMatters)
		t.transition.translationNodes.Union(cur.TranslationMatters)
		t.transition.scaleNodes.Union(cur.ScaleMatters)
	}
	next := &t.shape.Sequences[seq]
	t.transition.rotationNodes.Union(next.RotationMatters)
	t.transition.translationNodes.Union(next.TranslationMatters)
	t.transition.scaleNodes.Union(next.ScaleMatters)

	t.transition.inTransition = true
	t.transition.duration = duration
	t.transition.pos = 0
	if t.TimeScale < 0 {
		t.transition.direction = -1
	} else {
		t.transition.direction = 1
	}
	if continuePlay {
		t.transition.targetScale = 1
	} else {
		t.transition.targetScale = 0
	}
	t.transition.oldSequence = t.sequence
	t.transition.oldPos = t.pos

	t.sequence = int32(seq)
	t.pos = toPos
	t.selectKeyframes()
}

// fireTriggers activates every trigger whose position lies within the
// interval just traversed. Wrapped intervals are split at the boundary; the
// invert-on-reverse flag applies only to triggers activated while
// traversing backward.
func (t *Thread) fireTriggers() {
	seq := t.Sequence()
	if t.States == nil || seq.NumTriggers == 0 {
		return
	}
	start, end, loop := t.path.start, t.path.end, t.path.loop
	switch {
	case loop > 0:
		t.activateTriggers(start, 1, true)
		t.activateTriggers(0, end, true)
	case loop < 0:
		t.activateTriggers(start, 0, false)
		t.activateTriggers(1, end, false)
	case end >= start:
		t.activateTriggers(start, end, true)
	default:
		t.activateTriggers(start, end, false)
	}
}

// activateTriggers fires the sequence's triggers between a and b. Forward
// activation covers [a,b) walking forward; backward covers (b,a] walking
// backward.
func (t *Thread) activateTriggers(a, b float32, forward bool) {
	seq := t.Sequence()
	first := int(seq.FirstTrigger)
	last := first + int(seq.NumTriggers)
	if forward {
		for i := first; i < last; i++ {
			tr := t.shape.Triggers[i]
			if tr.Pos >= a && tr.Pos < b {
				t.States.Apply(tr, true)
			}
		}
		return
	}
	for i := last - 1; i >= first; i-- {
		tr := t.shape.Triggers[i]
		if tr.Pos <= a && tr.Pos > b {
			t.States.Apply(tr, false)
		}
	}
}

// GroundTransform returns the interpolated ground transform at the current
// position.
func (t *Thread) GroundTransform() mgl32.Mat4 {
	return t.shape.GroundTransform(t.Sequence(), t.pos)
}

// SortThreads orders threads for blend resolution: non-blend sequences
// before blend sequences, then higher priority first. The sort is stable,
// so threads that compare equal keep their relative order.
func SortThreads(threads []*Thread) {
	sort.SliceStable(threads, func(i, j int) bool { return threads[i].Less(threads[j]) })
}

// Less reports whether t sorts before o for blend resolution.
func (t *Thread) Less(o *Thread) bool {
	a, b := t.Sequence(), o.Sequence()
	if a.IsBlend() != b.IsBlend() {
		return !a.IsBlend()
	}
	return a.Priority > b.Priority
}
