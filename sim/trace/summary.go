package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalEvents        int
	Subjects           int
	Stops              int
	OutputRows         int
	DisarmedDoses      int
	OriginDistribution map[string]int // origin → count of processed records
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		OriginDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalEvents = len(st.Events)
	summary.Stops = len(st.Stops)
	subjects := make(map[float64]bool)
	for _, e := range st.Events {
		subjects[e.Subject] = true
		summary.OriginDistribution[e.Origin]++
		if e.Output {
			summary.OutputRows++
		}
		if e.Kind != 0 && !e.Armed {
			summary.DisarmedDoses++
		}
	}
	summary.Subjects = len(subjects)

	return summary
}
