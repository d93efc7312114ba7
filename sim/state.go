package sim

import (
	"fmt"

	"github.com/pksim-dev/pksim/sim/analytic"
)

// State is the compartment state of the subject being simulated, plus the
// per-compartment quantities a model sets from its parameters.
//
// Vectors indexed by compartment all have length Neq.
type State struct {
	// Y holds the current amounts.
	Y []float64
	// Init holds initial conditions, restored by reset events.
	Init []float64
	// R0 holds the total zero-order input rate into each compartment.
	R0 []float64
	// F and Alag are bioavailability and absorption lag, set by the model.
	F    []float64
	Alag []float64
	// Rate and Dur are model-supplied infusion rate and duration, used by
	// doses with the RateFromModel and DurationFromModel sentinels.
	Rate []float64
	Dur  []float64
	On   []bool

	Param   []float64
	Capture []float64
	// Pred holds closed-form parameters for the analytical solvers.
	Pred analytic.Params

	infusions []int
	scratch   []float64
}

// NewState sizes a State for spec and fills parameters with defaults.
func NewState(spec ModelSpec) *State {
	neq := spec.Neq()
	s := &State{
		Y:         make([]float64, neq),
		Init:      make([]float64, neq),
		R0:        make([]float64, neq),
		F:         make([]float64, neq),
		Alag:      make([]float64, neq),
		Rate:      make([]float64, neq),
		Dur:       make([]float64, neq),
		On:        make([]bool, neq),
		Param:     append([]float64(nil), spec.Defaults...),
		Capture:   make([]float64, len(spec.Captures)),
		infusions: make([]int, neq),
		scratch:   make([]float64, neq),
	}
	s.resetModelQuantities()
	for i := range s.On {
		s.On[i] = true
	}
	return s
}

// Neq returns the number of compartments.
func (s *State) Neq() int {
	return len(s.Y)
}

func (s *State) resetModelQuantities() {
	for i := range s.F {
		s.F[i] = 1
		s.Alag[i] = 0
		s.Rate[i] = 0
		s.Dur[i] = 0
	}
}

// resetSubject clears everything that must not leak between subjects.
func (s *State) resetSubject(spec ModelSpec) {
	copy(s.Param, spec.Defaults)
	for i := range s.Y {
		s.Y[i] = 0
		s.Init[i] = 0
		if spec.Init != nil {
			s.Init[i] = spec.Init[i]
		}
		s.On[i] = true
	}
	for i := range s.Capture {
		s.Capture[i] = 0
	}
	s.resetRates()
	s.resetModelQuantities()
}

// resetAmounts restores initial conditions, clears inputs and turns every
// compartment on.
func (s *State) resetAmounts() {
	copy(s.Y, s.Init)
	for i := range s.On {
		s.On[i] = true
	}
	s.resetRates()
}

func (s *State) resetRates() {
	for i := range s.R0 {
		s.R0[i] = 0
		s.infusions[i] = 0
	}
}

// rateSnapshot is a copy of the infusion inputs of a State.
type rateSnapshot struct {
	r0        []float64
	infusions []int
}

func (s *State) saveRates() rateSnapshot {
	return rateSnapshot{
		r0:        append([]float64(nil), s.R0...),
		infusions: append([]int(nil), s.infusions...),
	}
}

func (s *State) restoreRates(snap rateSnapshot) {
	copy(s.R0, snap.r0)
	copy(s.infusions, snap.infusions)
}

func (s *State) rateAdd(eq int, rate float64) {
	s.R0[eq] += rate
	s.infusions[eq]++
}

// rateRemove undoes one rateAdd. Counters and rates never go negative.
func (s *State) rateRemove(eq int, rate float64) {
	s.R0[eq] -= rate
	if s.R0[eq] < 0 {
		s.R0[eq] = 0
	}
	if s.infusions[eq] > 0 {
		s.infusions[eq]--
	}
	if s.infusions[eq] == 0 {
		s.R0[eq] = 0
	}
}

// Infusions returns the number of active infusions into compartment eq.
func (s *State) Infusions(eq int) int {
	return s.infusions[eq]
}

func (s *State) turnOn(eq int) {
	s.On[eq] = true
}

// turnOff zeroes compartment eq and stops it from changing. It fails while
// an infusion into eq is running.
func (s *State) turnOff(eq int) error {
	if s.infusions[eq] > 0 {
		return fmt.Errorf("%w: compartment %d has %d active infusion(s)", ErrInfusionActive, eq+1, s.infusions[eq])
	}
	s.On[eq] = false
	s.Y[eq] = 0
	return nil
}

// SetAmount sets the amount in compartment eq. An off compartment only
// accepts zero.
func (s *State) SetAmount(eq int, amt float64) error {
	if !s.On[eq] && amt != 0 {
		return fmt.Errorf("%w: compartment %d", ErrCompartmentOff, eq+1)
	}
	s.Y[eq] = amt
	return nil
}

// derivs evaluates the model right-hand side with infusion inputs and the
// on/off mask applied.
func (s *State) derivs(m Model) func(t float64, y, dydt []float64) {
	return func(t float64, y, dydt []float64) {
		m.Derivatives(t, y, dydt, s)
		for i := range dydt {
			if !s.On[i] {
				dydt[i] = 0
				continue
			}
			dydt[i] += s.R0[i]
		}
	}
}
