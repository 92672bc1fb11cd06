package ts

// Stats is a JSON-friendly summary of a shape, used by diagnostic tooling.
type Stats struct {
	Nodes     int `json:"nodes"`
	Objects   int `json:"objects"`
	Meshes    int `json:"meshes"`
	Materials int `json:"materials"`
	Triangles int `json:"triangles"`

	Radius float32 `json:"radius"`

	Details   []DetailStats   `json:"details"`
	Sequences []SequenceStats `json:"sequences"`
}

// DetailStats summarizes one detail level.
type DetailStats struct {
	Name      string  `json:"name"`
	Size      float32 `json:"size"`
	PolyCount int32   `json:"polyCount"`
}

// SequenceStats summarizes one sequence.
type SequenceStats struct {
	Name      string  `json:"name"`
	Keyframes int32   `json:"keyframes"`
	Duration  float32 `json:"duration"`
	Priority  int32   `json:"priority"`
	Cyclic    bool    `json:"cyclic"`
	Blend     bool    `json:"blend"`
	Triggers  int32   `json:"triggers"`
}

// ShapeStats collects summary statistics for s.
func ShapeStats(s *Shape) Stats {
	st := Stats{
		Nodes:     len(s.Nodes),
		Objects:   len(s.Objects),
		Meshes:    len(s.Meshes),
		Materials: s.Materials.Size(),
		Radius:    s.Radius,
	}
	for _, m := range s.Meshes {
		if m != nil {
			st.Triangles += m.TriangleCount()
		}
	}
	for _, d := range s.Details {
		st.Details = append(st.Details, DetailStats{
			Name:      s.Name(int(d.NameIndex)),
			Size:      d.Size,
			PolyCount: d.PolyCount,
		})
	}
	for i := range s.Sequences {
		q := &s.Sequences[i]
		st.Sequences = append(st.Sequences, SequenceStats{
			Name:      s.Name(int(q.NameIndex)),
			Keyframes: q.NumKeyframes,
			Duration:  q.Duration,
			Priority:  q.Priority,
			Cyclic:    q.IsCyclic(),
			Blend:     q.IsBlend(),
			Triggers:  q.NumTriggers,
		})
	}
	return st
}
