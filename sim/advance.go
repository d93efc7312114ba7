package sim

import (
	"fmt"

	"github.com/pksim-dev/pksim/sim/analytic"
	"github.com/pksim-dev/pksim/sim/ode"
)

// Advancer moves compartment amounts from tfrom to tto with the inputs in
// the State held constant.
type Advancer interface {
	Advance(s *State, tfrom, tto float64) error
	// Reset is called after every discontinuity (dose, infusion change,
	// reset, on/off).
	Reset()
}

// NewAdvancer picks the closed-form solver for advan 1-4 and the numerical
// integrator otherwise. Closed forms require a matching compartment count:
// advan 1 and 3 have no depot, 2 and 4 put the depot first.
func NewAdvancer(m Model, advan int, settings ode.Settings) (Advancer, error) {
	neq := m.Spec().Neq()
	want := map[int]int{1: 1, 2: 2, 3: 2, 4: 3}
	if n, ok := want[advan]; ok {
		if neq != n {
			return nil, fmt.Errorf("%w: advan %d needs %d compartments, model %q has %d",
				ErrAdvanLayout, advan, n, m.Spec().Name, neq)
		}
		return &closedForm{advan: advan}, nil
	}
	return &integrated{model: m, integrator: ode.NewRK45(settings)}, nil
}

type integrated struct {
	model      Model
	integrator ode.Integrator
}

func (a *integrated) Advance(s *State, tfrom, tto float64) error {
	if tto <= tfrom || s.Neq() == 0 {
		return nil
	}
	_, err := a.integrator.Integrate(s.derivs(a.model), s.Y, tfrom, tto)
	return err
}

func (a *integrated) Reset() {
	a.integrator.Reset()
}

type closedForm struct {
	advan int
}

func (a *closedForm) Advance(s *State, tfrom, tto float64) error {
	dt := tto - tfrom
	if dt <= 0 {
		return nil
	}
	var err error
	if a.advan <= 2 {
		err = analytic.Advan2(s.Y, s.R0, s.Pred, dt)
	} else {
		err = analytic.Advan4(s.Y, s.R0, s.Pred, dt)
	}
	if err != nil {
		return err
	}
	for i, on := range s.On {
		if !on {
			s.Y[i] = 0
		}
	}
	return nil
}

func (a *closedForm) Reset() {}
