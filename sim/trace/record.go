// Package trace records what the simulator did with each event record.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// EventRecord captures one processed record of a subject's sequence.
type EventRecord struct {
	Subject float64
	Time    float64
	Kind    int
	Cmt     int
	Amt     float64
	Rate    float64
	Origin  string // data, design, addl, lag, infusion-off, model
	Armed   bool
	Output  bool
}

// StopRecord captures a soft stop requested by the model.
type StopRecord struct {
	Subject float64
	Time    float64
	Code    int
	Message string
}
