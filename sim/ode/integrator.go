// Package ode provides the numerical integrator used to advance models that
// have no closed-form solution.
//
// The simulator treats the integrator as a black box: given a right-hand
// side, a state vector and a time interval it integrates in place and
// reports a Status. Negative statuses are failures and are surfaced as
// *Error values carrying the tolerances in effect.
package ode

import (
	"errors"
	"fmt"
)

// System computes dydt at time t for state y.
type System func(t float64, y, dydt []float64)

// Status is the outcome of an integration call.
type Status int

const (
	// StatusSuccess means the requested end time was reached.
	StatusSuccess Status = 2
	// StatusTooMuchWork means MaxSteps steps were taken before reaching tto.
	StatusTooMuchWork Status = -1
	// StatusIllegalInput means the settings or the interval are invalid.
	StatusIllegalInput Status = -3
	// StatusStepTooSmall means the adaptive step fell below the minimum.
	StatusStepTooSmall Status = -4
	// StatusNonFinite means the right-hand side produced NaN or Inf.
	StatusNonFinite Status = -6
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusTooMuchWork:
		return "too much work"
	case StatusIllegalInput:
		return "illegal input"
	case StatusStepTooSmall:
		return "step size too small"
	case StatusNonFinite:
		return "non-finite derivative"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Settings controls the adaptive integrator.
type Settings struct {
	RelTol   float64 `yaml:"rtol"`
	AbsTol   float64 `yaml:"atol"`
	MaxSteps int     `yaml:"maxsteps"`
	// MaxStep bounds the step size; zero means unbounded.
	MaxStep float64 `yaml:"hmax"`
	// InitialStep is the first trial step after a Reset; zero picks one
	// from the interval length.
	InitialStep float64 `yaml:"hinit"`
	MinStep     float64 `yaml:"hmin"`
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		RelTol:   1e-8,
		AbsTol:   1e-8,
		MaxSteps: 20000,
		MinStep:  1e-14,
	}
}

// Validate checks tolerances and limits.
func (s Settings) Validate() error {
	if s.RelTol <= 0 || s.AbsTol <= 0 {
		return fmt.Errorf("ode: tolerances must be positive (rtol=%g, atol=%g)", s.RelTol, s.AbsTol)
	}
	if s.MaxSteps <= 0 {
		return fmt.Errorf("ode: maxsteps must be positive, got %d", s.MaxSteps)
	}
	if s.MaxStep < 0 || s.MinStep < 0 || s.InitialStep < 0 {
		return fmt.Errorf("ode: step bounds must be non-negative")
	}
	return nil
}

// Integrator advances a System in place.
type Integrator interface {
	// Integrate advances y from tfrom to tto. A negative Status is
	// accompanied by a non-nil *Error.
	Integrate(f System, y []float64, tfrom, tto float64) (Status, error)
	// Reset discards step-size history. Called after any discontinuity
	// in the state or the inputs.
	Reset()
	Settings() Settings
}

// ErrIntegration is the sentinel wrapped by every *Error.
var ErrIntegration = errors.New("ode: integration failed")

// Error reports a failed integration with the settings in effect.
type Error struct {
	Status   Status
	Time     float64
	RelTol   float64
	AbsTol   float64
	MaxSteps int
}

func (e *Error) Error() string {
	return fmt.Sprintf("ode: integration failed at t=%g: %s (rtol=%g, atol=%g, maxsteps=%d)",
		e.Time, e.Status, e.RelTol, e.AbsTol, e.MaxSteps)
}

func (e *Error) Unwrap() error {
	return ErrIntegration
}
