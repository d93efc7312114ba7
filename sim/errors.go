package sim

import (
	"errors"
	"fmt"
)

// Errors raised while simulating a subject. They reach callers wrapped in
// a *SubjectError.
var (
	ErrInvalidRate          = errors.New("infusion rate must be positive")
	ErrInvalidDuration      = errors.New("infusion duration must be positive")
	ErrNegativeBioavailable = errors.New("bioavailability must be non-negative")
	ErrInfusionActive       = errors.New("cannot turn compartment off while an infusion is running")
	ErrCompartmentOff       = errors.New("cannot set a non-zero amount in a compartment that is off")
	ErrCompartmentRange     = errors.New("compartment number out of range")
	ErrSteadyStateInfusion  = errors.New("steady-state infusion lasts longer than the dosing interval")
	ErrUserStop             = errors.New("simulation stopped by the model")
	ErrModelFatal           = errors.New("model reported a fatal error")
	ErrInvalidKind          = errors.New("invalid event kind")
)

// Errors raised before any subject is simulated.
var (
	ErrDesignIndex    = errors.New("design index out of range")
	ErrAdvanLayout    = errors.New("model compartments do not fit the requested closed-form solver")
	ErrUnknownRequest = errors.New("requested output not found in model")
	ErrUnsortedInput  = errors.New("input records are not sorted by time within subject")
)

// SubjectError reports a run-time failure with the subject, time and
// compartment that were being processed.
type SubjectError struct {
	ID      float64
	Time    float64
	Cmt     int
	Wrapped error
}

func (e *SubjectError) Error() string {
	return fmt.Sprintf("subject %g at time %g (cmt %d): %v", e.ID, e.Time, e.Cmt, e.Wrapped)
}

func (e *SubjectError) Unwrap() error {
	return e.Wrapped
}
