package ts

import (
	"math"
	"math/bits"

	"github.com/go-gl/mathgl/mgl32"
)

// Quat16Max is the normalization constant for compact quaternion components.
const Quat16Max = 0x7fff

// Quat16 is a quaternion packed into four signed 16-bit components. It is the
// lossy on-disk representation of node rotations; each component is the float
// value multiplied by Quat16Max. Decoding does not renormalize, so callers
// must not assume unit length.
type Quat16 struct {
	X, Y, Z, W int16
}

// Quat unpacks q into a float quaternion.
func (q Quat16) Quat() mgl32.Quat {
	return mgl32.Quat{
		W: float32(q.W) / float32(Quat16Max),
		V: mgl32.Vec3{
			float32(q.X) / float32(Quat16Max),
			float32(q.Y) / float32(Quat16Max),
			float32(q.Z) / float32(Quat16Max),
		},
	}
}

// PackQuat packs a float quaternion into its compact form. Components are
// expected to be within [-1, 1]; values outside that range are clamped.
func PackQuat(q mgl32.Quat) Quat16 {
	pack := func(f float32) int16 {
		f *= Quat16Max
		switch {
		case f > Quat16Max:
			return Quat16Max
		case f < -Quat16Max:
			return -Quat16Max
		}
		return int16(math.Round(float64(f)))
	}
	return Quat16{
		X: pack(q.V[0]),
		Y: pack(q.V[1]),
		Z: pack(q.V[2]),
		W: pack(q.W),
	}
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max mgl32.Vec3
}

// Center returns the midpoint of the box.
func (b Box) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// matSetWordBits is the granularity of a MatSet.
const matSetWordBits = 32

// MatSet is a set of small non-negative integers, used to record which nodes
// a sequence's animation channel actually varies ("matters"). Membership is
// index-stable, so sets from different shapes can only be compared after
// remapping through a node index table.
type MatSet struct {
	words []uint32
}

// MatSetOf returns a set containing the given indices.
func MatSetOf(indices ...int) MatSet {
	var s MatSet
	for _, i := range indices {
		s.Set(i)
	}
	return s
}

// MatSetFromWords returns a set backed by a copy of the given words. An
// empty input yields the zero-value set, so the representation is canonical
// regardless of how the set was built.
func MatSetFromWords(words []uint32) MatSet {
	if len(words) == 0 {
		return MatSet{}
	}
	s := MatSet{words: make([]uint32, len(words))}
	copy(s.words, words)
	return s
}

// Words returns the backing words of the set. The result aliases the set and
// must not be modified.
func (s *MatSet) Words() []uint32 {
	return s.words
}

func (s *MatSet) grow(i int) {
	for n := i/matSetWordBits + 1; len(s.words) < n; {
		s.words = append(s.words, 0)
	}
}

// Test reports whether i is in the set.
func (s *MatSet) Test(i int) bool {
	if i < 0 || i/matSetWordBits >= len(s.words) {
		return false
	}
	return s.words[i/matSetWordBits]&(1<<uint(i%matSetWordBits)) != 0
}

// Set adds i to the set.
func (s *MatSet) Set(i int) {
	if i < 0 {
		return
	}
	s.grow(i)
	s.words[i/matSetWordBits] |= 1 << uint(i%matSetWordBits)
}

// Clear removes i from the set.
func (s *MatSet) Clear(i int) {
	if i < 0 || i/matSetWordBits >= len(s.words) {
		return
	}
	s.words[i/matSetWordBits] &^= 1 << uint(i%matSetWordBits)
}

// Union adds every member of t to s.
func (s *MatSet) Union(t MatSet) {
	if len(t.words) > len(s.words) {
		s.grow(len(t.words)*matSetWordBits - 1)
	}
	for i, w := range t.words {
		s.words[i] |= w
	}
}

// Copy returns an independent copy of the set.
func (s *MatSet) Copy() MatSet {
	return MatSetFromWords(s.words)
}

// Empty reports whether the set has no members.
func (s *MatSet) Empty() bool {
	for _, w := range s.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// Count returns the number of members.
func (s *MatSet) Count() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount32(w)
	}
	return n
}

// CountLess returns the number of members strictly less than i. Animation
// channel data is laid out in node order for member nodes only, so this is
// the channel slot of node i within a sequence.
func (s *MatSet) CountLess(i int) int {
	if i <= 0 {
		return 0
	}
	n := 0
	full := i / matSetWordBits
	if full > len(s.words) {
		full = len(s.words)
	}
	for w := 0; w < full; w++ {
		n += bits.OnesCount32(s.words[w])
	}
	if full < len(s.words) && i%matSetWordBits != 0 {
		n += bits.OnesCount32(s.words[full] & (1<<uint(i%matSetWordBits) - 1))
	}
	return n
}
