package models

import (
	"math"

	"github.com/pksim-dev/pksim/sim"
)

const (
	mmVMAX = iota
	mmKM
	mmV
	mmCPSTOP
)

// MichaelisMenten is a one-compartment model with saturable elimination.
// It has no closed form and always integrates numerically.
//
// When CPSTOP is positive the subject stops once CP exceeds it; remaining
// rows are written as missing.
type MichaelisMenten struct {
	vmax, km, v float64
}

func (m *MichaelisMenten) Spec() sim.ModelSpec {
	return sim.ModelSpec{
		Name:         "mm1",
		Compartments: []string{"CENT"},
		Parameters:   []string{"VMAX", "KM", "V", "CPSTOP"},
		Defaults:     []float64{10, 2, 20, 0},
		Captures:     []string{"CP"},
		Advan:        sim.AdvanODE,
	}
}

func (m *MichaelisMenten) Configure(ctx *sim.Context, s *sim.State) error {
	return nil
}

func (m *MichaelisMenten) Initialize(ctx *sim.Context, init []float64, s *sim.State) {
	p := s.Param
	m.vmax = p[mmVMAX] * math.Exp(eta(ctx, 0))
	m.km = p[mmKM]
	m.v = p[mmV]
}

func (m *MichaelisMenten) Derivatives(t float64, y, dydt []float64, s *sim.State) {
	cp := y[0] / m.v
	dydt[0] = -m.vmax * cp / (m.km + cp)
}

func (m *MichaelisMenten) CaptureOutputs(ctx *sim.Context, s *sim.State) {
	cp := s.Y[0] / m.v
	s.Capture[0] = cp
	if limit := s.Param[mmCPSTOP]; limit > 0 && cp > limit && ctx.Stopped() == sim.StopNone {
		ctx.Stop(sim.StopFillMissing, "CP above CPSTOP")
	}
}
