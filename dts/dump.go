package dts

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"unicode"

	ts "github.com/andrewstrauch/The-Scarab-Gauntlet-sub002"
)

// Dump writes to w a readable representation of the shape decoded from r.
func (d Decoder) Dump(w io.Writer, r io.Reader) error {
	if r == nil {
		return ErrNilReader
	}
	if w == nil {
		return ErrNilWriter
	}
	shape, err := d.Decode(r)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Bounds: %v .. %v", shape.Bounds.Min, shape.Bounds.Max)
	fmt.Fprintf(bw, "\nRadius: %g (tube %g)", shape.Radius, shape.TubeRadius)
	fmt.Fprintf(bw, "\nSmallestVisible: size %g, detail %d", shape.SmallestVisibleSize, shape.SmallestVisibleDL)

	fmt.Fprintf(bw, "\nNodes: (count:%d) {", len(shape.Nodes))
	for i := range shape.Nodes {
		n := &shape.Nodes[i]
		dumpNewline(bw, 1)
		fmt.Fprintf(bw, "#%d: ", i)
		dumpString(bw, shape.NodeName(i))
		fmt.Fprintf(bw, " parent:%d firstObject:%d firstChild:%d nextSibling:%d",
			n.ParentIndex, n.FirstObject, n.FirstChild, n.NextSibling)
	}
	fmt.Fprint(bw, "\n}")

	fmt.Fprintf(bw, "\nObjects: (count:%d) {", len(shape.Objects))
	for i := range shape.Objects {
		o := &shape.Objects[i]
		dumpNewline(bw, 1)
		fmt.Fprintf(bw, "#%d: ", i)
		dumpString(bw, shape.Name(int(o.NameIndex)))
		fmt.Fprintf(bw, " node:%d meshes:%d..%d", o.NodeIndex, o.FirstMesh, o.FirstMesh+o.NumMeshes)
	}
	fmt.Fprint(bw, "\n}")

	fmt.Fprintf(bw, "\nDetails: (count:%d) {", len(shape.Details))
	for i := range shape.Details {
		dl := &shape.Details[i]
		dumpNewline(bw, 1)
		fmt.Fprintf(bw, "#%d: ", i)
		dumpString(bw, shape.Name(int(dl.NameIndex)))
		fmt.Fprintf(bw, " subShape:%d objectDetail:%d size:%g polys:%d",
			dl.SubShape, dl.ObjectDetail, dl.Size, dl.PolyCount)
	}
	fmt.Fprint(bw, "\n}")

	fmt.Fprintf(bw, "\nSubShapes: (count:%d) {", len(shape.SubShapeFirstNode))
	for i := range shape.SubShapeFirstNode {
		dumpNewline(bw, 1)
		fmt.Fprintf(bw, "#%d: nodes %d+%d, objects %d+%d, firstTranslucent %d",
			i, shape.SubShapeFirstNode[i], shape.SubShapeNumNodes[i],
			shape.SubShapeFirstObject[i], shape.SubShapeNumObjects[i],
			shape.SubShapeFirstTranslucent[i])
	}
	fmt.Fprint(bw, "\n}")

	fmt.Fprintf(bw, "\nSequences: (count:%d) {", len(shape.Sequences))
	for i := range shape.Sequences {
		q := &shape.Sequences[i]
		dumpNewline(bw, 1)
		fmt.Fprintf(bw, "#%d: ", i)
		dumpString(bw, shape.Name(int(q.NameIndex)))
		fmt.Fprint(bw, " {")
		dumpNewline(bw, 2)
		fmt.Fprintf(bw, "Duration: %g", q.Duration)
		dumpNewline(bw, 2)
		fmt.Fprintf(bw, "Keyframes: %d", q.NumKeyframes)
		dumpNewline(bw, 2)
		fmt.Fprintf(bw, "Priority: %d", q.Priority)
		dumpNewline(bw, 2)
		fmt.Fprintf(bw, "Flags: %s", dumpSeqFlags(q))
		dumpNewline(bw, 2)
		fmt.Fprintf(bw, "Matters: rot:%d trans:%d scale:%d vis:%d frame:%d matFrame:%d",
			q.RotationMatters.Count(), q.TranslationMatters.Count(), q.ScaleMatters.Count(),
			q.VisMatters.Count(), q.FrameMatters.Count(), q.MatFrameMatters.Count())
		if q.NumTriggers > 0 {
			dumpNewline(bw, 2)
			fmt.Fprintf(bw, "Triggers: %d+%d", q.FirstTrigger, q.NumTriggers)
		}
		if q.NumGroundFrames > 0 {
			dumpNewline(bw, 2)
			fmt.Fprintf(bw, "GroundFrames: %d+%d", q.FirstGroundFrame, q.NumGroundFrames)
		}
		dumpNewline(bw, 1)
		fmt.Fprint(bw, "}")
	}
	fmt.Fprint(bw, "\n}")

	fmt.Fprintf(bw, "\nMaterials: (count:%d) {", shape.Materials.Size())
	for i := range shape.Materials.Names {
		dumpNewline(bw, 1)
		fmt.Fprintf(bw, "#%d: ", i)
		dumpString(bw, shape.Materials.Names[i])
		fmt.Fprintf(bw, " flags:%#x", shape.Materials.Flags[i])
		if shape.Materials.Translucent(i) {
			fmt.Fprint(bw, " (translucent)")
		}
	}
	fmt.Fprint(bw, "\n}")

	fmt.Fprintf(bw, "\nMeshes: (count:%d) {", len(shape.Meshes))
	for i, m := range shape.Meshes {
		dumpNewline(bw, 1)
		fmt.Fprintf(bw, "#%d: %s", i, m.Kind())
		if m.Kind() == ts.NullMeshKind {
			continue
		}
		fmt.Fprintf(bw, " prims:%d tris:%d", len(m.Primitives()), m.TriangleCount())
		if b, ok := m.(*ts.SkinMesh); ok {
			fmt.Fprintf(bw, " bones:%d weights:%d", len(b.NodeIndex), len(b.Weight))
		}
		if b, ok := m.(*ts.SortedMesh); ok {
			fmt.Fprintf(bw, " clusters:%d", len(b.Clusters))
		}
	}
	fmt.Fprint(bw, "\n}")

	fmt.Fprintf(bw, "\nTriggers: (count:%d) {", len(shape.Triggers))
	for i := range shape.Triggers {
		t := &shape.Triggers[i]
		dumpNewline(bw, 1)
		fmt.Fprintf(bw, "#%d: state %d at %g", i, t.StateIndex(), t.Pos)
		if !t.On() {
			fmt.Fprint(bw, " (off)")
		}
		if t.InvertOnReverse() {
			fmt.Fprint(bw, " (invert on reverse)")
		}
	}
	fmt.Fprint(bw, "\n}\n")

	return bw.Flush()
}

func dumpSeqFlags(q *ts.Sequence) string {
	s := ""
	appendFlag := func(on bool, name string) {
		if !on {
			return
		}
		if s != "" {
			s += "|"
		}
		s += name
	}
	appendFlag(q.IsCyclic(), "cyclic")
	appendFlag(q.IsBlend(), "blend")
	appendFlag(q.MakesPath(), "makePath")
	appendFlag(q.Flags&ts.SeqUniformScale != 0, "uniformScale")
	appendFlag(q.Flags&ts.SeqAlignedScale != 0, "alignedScale")
	appendFlag(q.Flags&ts.SeqArbitraryScale != 0, "arbitraryScale")
	appendFlag(q.Flags&ts.SeqHasTranslucency != 0, "translucent")
	if s == "" {
		return "none"
	}
	return s
}

func dumpNewline(w *bufio.Writer, indent int) {
	w.WriteByte('\n')
	for i := 0; i < indent; i++ {
		w.WriteByte('\t')
	}
}

func dumpString(w *bufio.Writer, s string) {
	for _, r := range s {
		if !unicode.IsPrint(r) {
			w.WriteString(strconv.Quote(s))
			return
		}
	}
	w.WriteString(s)
}
