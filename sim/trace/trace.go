package trace

// TraceLevel controls the verbosity of event tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelEvents captures every processed record and every stop.
	TraceLevelEvents TraceLevel = "events"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:   true,
	TraceLevelEvents: true,
	"":               true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// SimulationTrace collects event records during a run.
type SimulationTrace struct {
	RunID  string
	Events []EventRecord
	Stops  []StopRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(runID string) *SimulationTrace {
	return &SimulationTrace{
		RunID:  runID,
		Events: make([]EventRecord, 0),
		Stops:  make([]StopRecord, 0),
	}
}

// RecordEvent appends a processed record.
func (st *SimulationTrace) RecordEvent(record EventRecord) {
	st.Events = append(st.Events, record)
}

// RecordStop appends a stop record.
func (st *SimulationTrace) RecordStop(record StopRecord) {
	st.Stops = append(st.Stops, record)
}
