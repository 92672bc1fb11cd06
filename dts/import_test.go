package dts

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/anaminus/parse"
	"github.com/go-gl/mathgl/mgl32"

	ts "github.com/andrewstrauch/The-Scarab-Gauntlet-sub002"
	tserrors "github.com/andrewstrauch/The-Scarab-Gauntlet-sub002/errors"
)

// dsqFile builds a standalone sequence file in memory.
type dsqFile struct {
	nodes []string

	rots  []ts.Quat16
	trans []mgl32.Vec3

	groundTrans []mgl32.Vec3
	groundRots  []ts.Quat16

	sequences []namedSequence
	triggers  []ts.Trigger
}

type namedSequence struct {
	name string
	seq  ts.Sequence
}

func (f *dsqFile) bytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	bw := parse.NewBinaryWriter(&buf)

	bw.Number(int32(MinSequenceVersion))

	bw.Number(int32(len(f.nodes)))
	for _, name := range f.nodes {
		writeString(bw, name)
	}

	bw.Number(int32(len(f.rots)))
	for _, q := range f.rots {
		writeBRQuat16(bw, q)
	}
	bw.Number(int32(len(f.trans)))
	for _, p := range f.trans {
		bw.Number(p[0])
		bw.Number(p[1])
		bw.Number(p[2])
	}
	bw.Number(int32(0)) // uniform scales
	bw.Number(int32(0)) // aligned scales
	bw.Number(int32(0)) // arbitrary scales
	bw.Number(int32(len(f.groundTrans)))
	for _, p := range f.groundTrans {
		bw.Number(p[0])
		bw.Number(p[1])
		bw.Number(p[2])
	}
	for _, q := range f.groundRots {
		writeBRQuat16(bw, q)
	}
	bw.Number(int32(0)) // object states

	bw.Number(int32(len(f.sequences)))
	for i := range f.sequences {
		writeString(bw, f.sequences[i].name)
		writeSequence(bw, &f.sequences[i].seq)
	}

	bw.Number(int32(len(f.triggers)))
	for _, tr := range f.triggers {
		bw.Number(tr.State)
		bw.Number(tr.Pos)
	}

	if err := bw.Err(); err != nil {
		t.Fatalf("building sequence file: %v", err)
	}
	return buf.Bytes()
}

// importHost is a host skeleton with channel data already present, so
// rebasing of the imported offsets is observable.
func importHost() *ts.Shape {
	s := &ts.Shape{
		Names: []string{"X", "A", "B"},
		Nodes: []ts.Node{
			{NameIndex: 0, ParentIndex: -1},
			{NameIndex: 1, ParentIndex: 0},
			{NameIndex: 2, ParentIndex: 0},
		},
		NodeRotations: []ts.Quat16{
			{W: 1}, {W: 2}, {W: 3},
		},
		NodeTranslations:   []mgl32.Vec3{{9, 9, 9}},
		NodeUniformScales:  []float32{1, 2},
		ObjectStates:       []ts.ObjectState{{Vis: 1}},
		GroundTranslations: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}},
		GroundRotations:    []ts.Quat16{{W: 1}, {W: 1}},
		Triggers:           []ts.Trigger{{State: 1, Pos: 0.5}},
	}
	s.Link()
	return s
}

func TestImportSequence(t *testing.T) {
	file := &dsqFile{
		nodes: []string{"A", "B"},
		rots: []ts.Quat16{
			{X: 100}, {X: 200}, {X: 300}, {X: 400},
		},
		trans:       []mgl32.Vec3{{1, 0, 0}, {2, 0, 0}},
		groundTrans: []mgl32.Vec3{{0, 1, 0}},
		groundRots:  []ts.Quat16{{W: 5}},
		sequences: []namedSequence{{
			name: "run",
			seq: ts.Sequence{
				Flags:              ts.SeqCyclic,
				NumKeyframes:       2,
				Duration:           2,
				Priority:           7,
				NumGroundFrames:    1,
				NumTriggers:        1,
				RotationMatters:    ts.MatSetOf(0, 1),
				TranslationMatters: ts.MatSetOf(1),
			},
		}},
		triggers: []ts.Trigger{{State: ts.TriggerStateOn | 2, Pos: 0.75}},
	}

	host := importHost()
	if err := ImportSequence(bytes.NewReader(file.bytes(t)), host); err != nil {
		t.Fatalf("ImportSequence: %v", err)
	}

	if len(host.Sequences) != 1 {
		t.Fatalf("got %d sequences, want 1", len(host.Sequences))
	}
	q := &host.Sequences[0]
	if got := host.Name(int(q.NameIndex)); got != "run" {
		t.Errorf("sequence name = %q, want %q", got, "run")
	}

	// Offsets are rebased against the host arrays as they stood before the
	// import.
	if q.BaseRotation != 3 {
		t.Errorf("BaseRotation = %d, want 3", q.BaseRotation)
	}
	if q.BaseTranslation != 1 {
		t.Errorf("BaseTranslation = %d, want 1", q.BaseTranslation)
	}
	if q.BaseScale != 2 {
		t.Errorf("BaseScale = %d, want 2", q.BaseScale)
	}
	if q.BaseObjectState != 1 {
		t.Errorf("BaseObjectState = %d, want 1", q.BaseObjectState)
	}
	if q.FirstGroundFrame != 2 {
		t.Errorf("FirstGroundFrame = %d, want 2", q.FirstGroundFrame)
	}
	if q.FirstTrigger != 1 {
		t.Errorf("FirstTrigger = %d, want 1", q.FirstTrigger)
	}

	// File-local node slots 0,1 resolve to host nodes 1,2.
	if want := ts.MatSetOf(1, 2); !reflect.DeepEqual(q.RotationMatters, want) {
		t.Errorf("RotationMatters = %v, want %v", q.RotationMatters, want)
	}
	if want := ts.MatSetOf(2); !reflect.DeepEqual(q.TranslationMatters, want) {
		t.Errorf("TranslationMatters = %v, want %v", q.TranslationMatters, want)
	}

	if q.DirtyFlags&ts.TransformDirty == 0 {
		t.Error("imported sequence is not transform dirty")
	}

	// Channel data lands after the host's existing entries.
	if len(host.NodeRotations) != 7 {
		t.Fatalf("got %d node rotations, want 7", len(host.NodeRotations))
	}
	if host.NodeRotations[3] != (ts.Quat16{X: 100}) {
		t.Errorf("first imported rotation = %+v", host.NodeRotations[3])
	}
	if len(host.NodeTranslations) != 3 {
		t.Errorf("got %d node translations, want 3", len(host.NodeTranslations))
	}
	if len(host.GroundTranslations) != 3 || len(host.GroundRotations) != 3 {
		t.Errorf("ground frames = %d/%d, want 3/3",
			len(host.GroundTranslations), len(host.GroundRotations))
	}
	if len(host.Triggers) != 2 {
		t.Fatalf("got %d triggers, want 2", len(host.Triggers))
	}
	if host.Triggers[1].Pos != 0.75 {
		t.Errorf("imported trigger pos = %v, want 0.75", host.Triggers[1].Pos)
	}
}

func TestImportSequenceDuplicateNames(t *testing.T) {
	// The Nth occurrence of a name in the file binds to the Nth node with
	// that name in the host.
	host := &ts.Shape{
		Names: []string{"A", "B", "C"},
		Nodes: []ts.Node{
			{NameIndex: 0, ParentIndex: -1},
			{NameIndex: 0, ParentIndex: 0},
			{NameIndex: 1, ParentIndex: 0},
			{NameIndex: 2, ParentIndex: 0},
		},
	}
	host.Link()

	file := &dsqFile{
		nodes: []string{"A", "B", "A", "C"},
		sequences: []namedSequence{{
			name: "idle",
			seq: ts.Sequence{
				NumKeyframes:       1,
				Duration:           1,
				RotationMatters:    ts.MatSetOf(2),
				TranslationMatters: ts.MatSetOf(1, 3),
			},
		}},
	}
	if err := ImportSequence(bytes.NewReader(file.bytes(t)), host); err != nil {
		t.Fatalf("ImportSequence: %v", err)
	}

	q := &host.Sequences[0]
	// File slot 2 is the second "A", which is host node 1.
	if want := ts.MatSetOf(1); !reflect.DeepEqual(q.RotationMatters, want) {
		t.Errorf("RotationMatters = %v, want %v", q.RotationMatters, want)
	}
	if want := ts.MatSetOf(2, 3); !reflect.DeepEqual(q.TranslationMatters, want) {
		t.Errorf("TranslationMatters = %v, want %v", q.TranslationMatters, want)
	}
}

func TestImportSequenceUnresolvableNode(t *testing.T) {
	host := importHost()
	wantSeqs := len(host.Sequences)
	wantRots := len(host.NodeRotations)

	file := &dsqFile{
		nodes: []string{"A", "Z"},
		sequences: []namedSequence{{
			name: "broken",
			seq:  ts.Sequence{NumKeyframes: 1, Duration: 1},
		}},
	}
	err := ImportSequence(bytes.NewReader(file.bytes(t)), host)
	var rerr NodeRemapError
	if !errors.As(err, &rerr) {
		t.Fatalf("ImportSequence = %v, want NodeRemapError", err)
	}
	if rerr.Name != "Z" || rerr.Occurrence != 0 {
		t.Errorf("NodeRemapError = %+v, want node Z occurrence 0", rerr)
	}

	// The host is untouched on a failed import.
	if len(host.Sequences) != wantSeqs || len(host.NodeRotations) != wantRots {
		t.Errorf("failed import mutated the host: %d sequences, %d rotations",
			len(host.Sequences), len(host.NodeRotations))
	}
}

func TestImportSequenceUnresolvableNodeList(t *testing.T) {
	host := importHost()
	file := &dsqFile{nodes: []string{"A", "Z", "Q"}}

	// Every unresolvable node is reported, not just the first.
	err := ImportSequence(bytes.NewReader(file.bytes(t)), host)
	var errs tserrors.Errors
	if !errors.As(err, &errs) {
		t.Fatalf("ImportSequence = %v, want Errors", err)
	}
	if len(errs) != 2 {
		t.Fatalf("ImportSequence reported %d errors, want 2: %v", len(errs), err)
	}
	for i, name := range []string{"Z", "Q"} {
		var rerr NodeRemapError
		if !errors.As(errs[i], &rerr) || rerr.Name != name {
			t.Errorf("error %d = %v, want NodeRemapError for %q", i, errs[i], name)
		}
	}
}

func TestImportSequenceMissingOccurrence(t *testing.T) {
	host := importHost()
	file := &dsqFile{nodes: []string{"A", "A"}}
	err := ImportSequence(bytes.NewReader(file.bytes(t)), host)
	var rerr NodeRemapError
	if !errors.As(err, &rerr) {
		t.Fatalf("ImportSequence = %v, want NodeRemapError", err)
	}
	if rerr.Name != "A" || rerr.Occurrence != 1 {
		t.Errorf("NodeRemapError = %+v, want node A occurrence 1", rerr)
	}
}

func TestImportSequenceVersionGate(t *testing.T) {
	var buf bytes.Buffer
	bw := parse.NewBinaryWriter(&buf)
	bw.Number(int32(MinSequenceVersion - 1))
	err := ImportSequence(&buf, importHost())
	var verr VersionError
	if !errors.As(err, &verr) {
		t.Fatalf("import of version %d = %v, want VersionError", MinSequenceVersion-1, err)
	}
}

func TestImportSequenceNilReader(t *testing.T) {
	if err := ImportSequence(nil, importHost()); !errors.Is(err, ErrNilReader) {
		t.Errorf("ImportSequence(nil, _) = %v, want ErrNilReader", err)
	}
}
