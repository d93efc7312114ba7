package sim

import "fmt"

// Kind is the event type of a record, numbered as in dosing data sets.
type Kind int

const (
	// KindObservation requests model output and changes nothing.
	KindObservation Kind = 0
	// KindDose adds amount to a compartment, as a bolus or an infusion.
	KindDose Kind = 1
	// KindOther turns a compartment on (positive cmt) or off (negative cmt).
	// It is applied after the output row for its time is captured.
	KindOther Kind = 2
	// KindReset restores every compartment to its initial condition.
	KindReset Kind = 3
	// KindResetDose resets and then doses.
	KindResetDose Kind = 4
	// KindInfusionOff ends an infusion. Only the scheduler creates these.
	KindInfusionOff Kind = 9
)

// ValidKinds is the set of kinds accepted from input data and model events.
var ValidKinds = map[Kind]bool{
	KindObservation: true,
	KindDose:        true,
	KindOther:       true,
	KindReset:       true,
	KindResetDose:   true,
}

func (k Kind) String() string {
	switch k {
	case KindObservation:
		return "observation"
	case KindDose:
		return "dose"
	case KindOther:
		return "other"
	case KindReset:
		return "reset"
	case KindResetDose:
		return "reset-dose"
	case KindInfusionOff:
		return "infusion-off"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Rate sentinels. A dose with one of these rates takes its infusion rate or
// duration from the model at the time the dose is processed.
const (
	RateFromModel     = -1.0
	DurationFromModel = -2.0
)

// NoRow marks a record that did not come from an input row.
const NoRow = -1

// Origin tells where a record came from.
type Origin int

const (
	OriginData Origin = iota
	OriginDesign
	OriginAddl
	OriginLag
	OriginInfusionOff
	OriginModel
)

func (o Origin) String() string {
	switch o {
	case OriginData:
		return "data"
	case OriginDesign:
		return "design"
	case OriginAddl:
		return "addl"
	case OriginLag:
		return "lag"
	case OriginInfusionOff:
		return "infusion-off"
	case OriginModel:
		return "model"
	}
	return fmt.Sprintf("origin(%d)", int(o))
}

// EventRecord is one entry of a subject's event sequence.
//
// Records are values: a subject run owns its sequence and copies records
// when it derives new ones (additional doses, lag copies, infusion ends),
// so nothing shared between subjects is ever mutated.
type EventRecord struct {
	ID   float64
	Time float64
	Kind Kind
	// Cmt is 1-based; negative values address the same compartment with
	// "off" semantics for KindOther.
	Cmt  int
	Amt  float64
	Rate float64
	II   float64
	Addl int
	SS   int

	// Row is the input row the record came from, or NoRow.
	Row    int
	Origin Origin

	// Armed doses apply their amount when processed. A lagged dose is
	// disarmed at its nominal time and a phantom copy fires later.
	Armed   bool
	Phantom bool
	Output  bool

	// rank orders records that share a time; see Ordering.
	rank int
}

// NewObservation returns an output observation at time t.
func NewObservation(id, t float64) EventRecord {
	return EventRecord{ID: id, Time: t, Kind: KindObservation, Row: NoRow, Armed: true, Output: true}
}

// NewDose returns a bolus (rate 0) or infusion dose.
func NewDose(id, t float64, cmt int, amt, rate float64) EventRecord {
	return EventRecord{ID: id, Time: t, Kind: KindDose, Cmt: cmt, Amt: amt, Rate: rate, Row: NoRow, Armed: true}
}

// IsEvent reports whether the record is anything other than an observation.
func (r *EventRecord) IsEvent() bool {
	return r.Kind != KindObservation
}

// IsDose reports whether the record delivers an amount.
func (r *EventRecord) IsDose() bool {
	return r.Kind == KindDose || r.Kind == KindResetDose
}

// FromData reports whether the record came from an input row.
func (r *EventRecord) FromData() bool {
	return r.Row >= 0 && r.Origin == OriginData
}

// Infusion reports whether the record starts a finite infusion.
func (r *EventRecord) Infusion() bool {
	return r.IsDose() && r.Rate > 0 && r.Amt > 0
}

// Duration returns how long an infusion of this record lasts when the
// delivered amount is scaled by bioavailability f.
func (r *EventRecord) Duration(f float64) float64 {
	if r.Rate <= 0 {
		return 0
	}
	return r.Amt * f / r.Rate
}

// Compartment returns the zero-based compartment index.
func (r *EventRecord) Compartment() int {
	if r.Cmt < 0 {
		return -r.Cmt - 1
	}
	return r.Cmt - 1
}

// Rank returns the tie-break rank assigned by the scheduler.
func (r *EventRecord) Rank() int {
	return r.rank
}

// phantom returns a non-output copy of r at time t with the given origin.
// Repeat and steady-state fields are cleared.
func (r *EventRecord) phantom(t float64, origin Origin, rank int) EventRecord {
	c := *r
	c.Time = t
	c.Origin = origin
	c.Row = NoRow
	c.Phantom = true
	c.Output = false
	c.Armed = true
	c.Addl = 0
	c.II = 0
	c.SS = 0
	c.rank = rank
	return c
}
