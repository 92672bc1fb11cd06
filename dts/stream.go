package dts

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	ts "github.com/andrewstrauch/The-Scarab-Gauntlet-sub002"
)

// region is one typed slice of the packed shape-data block with its own
// forward-only cursor.
type region struct {
	name string
	data []byte
	off  int
}

func (g *region) take(n int) ([]byte, error) {
	if g.off+n > len(g.data) {
		return nil, DataError{
			Offset: int64(g.off),
			Cause:  fmt.Errorf("%s region exhausted: %w", g.name, io.ErrUnexpectedEOF),
		}
	}
	b := g.data[g.off : g.off+n]
	g.off += n
	return b, nil
}

// stream reads the packed, 4-byte-aligned shape-data block through its three
// typed regions. All reads are little-endian and sticky: after the first
// failure every subsequent read returns zero values and the error is
// reported by err().
type stream struct {
	r32 region
	r16 region
	r8  region

	guardCount int32
	failure    error
}

// newStream slices block into its three regions. start16 and start8 are
// byte offsets (the file stores word offsets, already multiplied by 4 by
// the caller).
func newStream(block []byte, start16, start8 int) (*stream, error) {
	if start16 < 0 || start8 < start16 || start8 > len(block) {
		return nil, DataError{
			Offset: -1,
			Cause:  fmt.Errorf("region offsets %d,%d outside block of %d bytes", start16, start8, len(block)),
		}
	}
	return &stream{
		r32: region{name: "32-bit", data: block[:start16]},
		r16: region{name: "16-bit", data: block[start16:start8]},
		r8:  region{name: "8-bit", data: block[start8:]},
	}, nil
}

func (s *stream) err() error { return s.failure }

func (s *stream) fail(err error) {
	if s.failure == nil {
		s.failure = err
	}
}

func (s *stream) take(g *region, n int) []byte {
	if s.failure != nil {
		return nil
	}
	b, err := g.take(n)
	if err != nil {
		s.fail(err)
		return nil
	}
	return b
}

func (s *stream) readS32() int32 { return int32(s.readU32()) }

func (s *stream) readU32() uint32 {
	b := s.take(&s.r32, 4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (s *stream) readF32() float32 {
	return math.Float32frombits(s.readU32())
}

func (s *stream) readS16() int16 { return int16(s.readU16()) }

func (s *stream) readU16() uint16 {
	b := s.take(&s.r16, 2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (s *stream) readU8() uint8 {
	b := s.take(&s.r8, 1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (s *stream) readS32s(n int) []int32 {
	if n <= 0 || s.failure != nil {
		return nil
	}
	v := make([]int32, n)
	for i := range v {
		v[i] = s.readS32()
	}
	return v
}

func (s *stream) readF32s(n int) []float32 {
	if n <= 0 || s.failure != nil {
		return nil
	}
	v := make([]float32, n)
	for i := range v {
		v[i] = s.readF32()
	}
	return v
}

func (s *stream) readU32s(n int) []uint32 {
	if n <= 0 || s.failure != nil {
		return nil
	}
	v := make([]uint32, n)
	for i := range v {
		v[i] = s.readU32()
	}
	return v
}

func (s *stream) readU8s(n int) []uint8 {
	if n <= 0 || s.failure != nil {
		return nil
	}
	v := make([]uint8, n)
	copy(v, s.take(&s.r8, n))
	return v
}

func (s *stream) readPoint2() mgl32.Vec2 {
	return mgl32.Vec2{s.readF32(), s.readF32()}
}

func (s *stream) readPoint3() mgl32.Vec3 {
	return mgl32.Vec3{s.readF32(), s.readF32(), s.readF32()}
}

func (s *stream) readPoint2s(n int) []mgl32.Vec2 {
	if n <= 0 || s.failure != nil {
		return nil
	}
	v := make([]mgl32.Vec2, n)
	for i := range v {
		v[i] = s.readPoint2()
	}
	return v
}

func (s *stream) readPoint3s(n int) []mgl32.Vec3 {
	if n <= 0 || s.failure != nil {
		return nil
	}
	v := make([]mgl32.Vec3, n)
	for i := range v {
		v[i] = s.readPoint3()
	}
	return v
}

func (s *stream) readQuat16() ts.Quat16 {
	return ts.Quat16{
		X: s.readS16(),
		Y: s.readS16(),
		Z: s.readS16(),
		W: s.readS16(),
	}
}

func (s *stream) readQuat16s(n int) []ts.Quat16 {
	if n <= 0 || s.failure != nil {
		return nil
	}
	v := make([]ts.Quat16, n)
	for i := range v {
		v[i] = s.readQuat16()
	}
	return v
}

func (s *stream) readBox() ts.Box {
	return ts.Box{Min: s.readPoint3(), Max: s.readPoint3()}
}

func (s *stream) readMat4() mgl32.Mat4 {
	var m mgl32.Mat4
	for i := range m {
		m[i] = s.readF32()
	}
	return m
}

func (s *stream) readMat4s(n int) []mgl32.Mat4 {
	if n <= 0 || s.failure != nil {
		return nil
	}
	v := make([]mgl32.Mat4, n)
	for i := range v {
		v[i] = s.readMat4()
	}
	return v
}

// readName reads a length-prefixed string from the 8-bit region.
func (s *stream) readName() string {
	n := int(s.readU8())
	b := s.take(&s.r8, n)
	if b == nil {
		return ""
	}
	return string(b)
}

// guard reads one sentinel from each region and fails the decode unless all
// three equal the running guard counter, localizing corruption to the
// section preceding the failed check.
func (s *stream) guard() {
	if s.failure != nil {
		return
	}
	want := s.guardCount
	s.guardCount++
	if got := s.readS32(); s.failure == nil && got != want {
		s.fail(GuardError{Region: s.r32.name, Index: want, Got: got})
		return
	}
	if got := int32(s.readS16()); s.failure == nil && got != want&0x7fff {
		s.fail(GuardError{Region: s.r16.name, Index: want, Got: got})
		return
	}
	if got := int32(s.readU8()); s.failure == nil && got != want&0xff {
		s.fail(GuardError{Region: s.r8.name, Index: want, Got: got})
	}
}

// blockWriter builds the packed shape-data block region by region, mirroring
// stream.
type blockWriter struct {
	b32 []byte
	b16 []byte
	b8  []byte

	guardCount int32
}

func (w *blockWriter) writeS32(v int32)   { w.writeU32(uint32(v)) }
func (w *blockWriter) writeU32(v uint32)  { w.b32 = binary.LittleEndian.AppendUint32(w.b32, v) }
func (w *blockWriter) writeF32(v float32) { w.writeU32(math.Float32bits(v)) }
func (w *blockWriter) writeS16(v int16)   { w.writeU16(uint16(v)) }
func (w *blockWriter) writeU16(v uint16)  { w.b16 = binary.LittleEndian.AppendUint16(w.b16, v) }
func (w *blockWriter) writeU8(v uint8)    { w.b8 = append(w.b8, v) }

func (w *blockWriter) writeS32s(v []int32) {
	for _, x := range v {
		w.writeS32(x)
	}
}

func (w *blockWriter) writeF32s(v []float32) {
	for _, x := range v {
		w.writeF32(x)
	}
}

func (w *blockWriter) writeU32s(v []uint32) {
	for _, x := range v {
		w.writeU32(x)
	}
}

func (w *blockWriter) writeU8s(v []uint8) { w.b8 = append(w.b8, v...) }

func (w *blockWriter) writePoint2(v mgl32.Vec2) {
	w.writeF32(v[0])
	w.writeF32(v[1])
}

func (w *blockWriter) writePoint3(v mgl32.Vec3) {
	w.writeF32(v[0])
	w.writeF32(v[1])
	w.writeF32(v[2])
}

func (w *blockWriter) writePoint2s(v []mgl32.Vec2) {
	for _, x := range v {
		w.writePoint2(x)
	}
}

func (w *blockWriter) writePoint3s(v []mgl32.Vec3) {
	for _, x := range v {
		w.writePoint3(x)
	}
}

func (w *blockWriter) writeQuat16(q ts.Quat16) {
	w.writeS16(q.X)
	w.writeS16(q.Y)
	w.writeS16(q.Z)
	w.writeS16(q.W)
}

func (w *blockWriter) writeQuat16s(v []ts.Quat16) {
	for _, x := range v {
		w.writeQuat16(x)
	}
}

func (w *blockWriter) writeBox(b ts.Box) {
	w.writePoint3(b.Min)
	w.writePoint3(b.Max)
}

func (w *blockWriter) writeMat4(m mgl32.Mat4) {
	for _, f := range m {
		w.writeF32(f)
	}
}

func (w *blockWriter) writeName(s string) {
	if len(s) > 0xff {
		s = s[:0xff]
	}
	w.writeU8(uint8(len(s)))
	w.b8 = append(w.b8, s...)
}

func (w *blockWriter) guard() {
	v := w.guardCount
	w.guardCount++
	w.writeS32(v)
	w.writeS16(int16(v & 0x7fff))
	w.writeU8(uint8(v & 0xff))
}

func align4(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

// finish pads each region to a 4-byte boundary and concatenates them,
// returning the block plus the word offsets stored in the file header.
func (w *blockWriter) finish() (block []byte, memBufferWords, start16Word, start8Word int32) {
	w.b32 = align4(w.b32)
	w.b16 = align4(w.b16)
	w.b8 = align4(w.b8)
	block = make([]byte, 0, len(w.b32)+len(w.b16)+len(w.b8))
	block = append(block, w.b32...)
	block = append(block, w.b16...)
	block = append(block, w.b8...)
	start16Word = int32(len(w.b32) / 4)
	start8Word = int32((len(w.b32) + len(w.b16)) / 4)
	memBufferWords = int32(len(block) / 4)
	return block, memBufferWords, start16Word, start8Word
}
