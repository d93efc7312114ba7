package models

import (
	"math"

	"github.com/pksim-dev/pksim/sim"
	"github.com/pksim-dev/pksim/sim/analytic"
)

const (
	pk2CL = iota
	pk2V2
	pk2Q
	pk2V3
	pk2KA
	pk2F1
	pk2ALAG1
)

// TwoCompartment adds a peripheral compartment to OneCompartment.
// ETA 1 and 2 act on CL and V2.
type TwoCompartment struct {
	cl, v2, q, v3, ka float64
}

func (m *TwoCompartment) Spec() sim.ModelSpec {
	return sim.ModelSpec{
		Name:         "pk2",
		Compartments: []string{"DEPOT", "CENT", "PERIPH"},
		Parameters:   []string{"CL", "V2", "Q", "V3", "KA", "F1", "ALAG1"},
		Defaults:     []float64{1, 20, 2, 10, 1, 1, 0},
		Captures:     []string{"CP", "DV"},
		Advan:        4,
	}
}

func (m *TwoCompartment) Configure(ctx *sim.Context, s *sim.State) error {
	return nil
}

func (m *TwoCompartment) Initialize(ctx *sim.Context, init []float64, s *sim.State) {
	p := s.Param
	m.cl = p[pk2CL] * math.Exp(eta(ctx, 0))
	m.v2 = p[pk2V2] * math.Exp(eta(ctx, 1))
	m.q, m.v3, m.ka = p[pk2Q], p[pk2V3], p[pk2KA]
	s.F[0] = p[pk2F1]
	s.Alag[0] = p[pk2ALAG1]
	s.Pred = analytic.Params{CL: m.cl, V2: m.v2, Q: m.q, V3: m.v3, KA: m.ka}
}

func (m *TwoCompartment) Derivatives(t float64, y, dydt []float64, s *sim.State) {
	k10 := m.cl / m.v2
	k12 := m.q / m.v2
	k21 := m.q / m.v3
	dydt[0] = -m.ka * y[0]
	dydt[1] = m.ka*y[0] - (k10+k12)*y[1] + k21*y[2]
	dydt[2] = k12*y[1] - k21*y[2]
}

func (m *TwoCompartment) CaptureOutputs(ctx *sim.Context, s *sim.State) {
	cp := s.Y[1] / m.v2
	s.Capture[0] = cp
	s.Capture[1] = cp * (1 + eps(ctx, 0))
}
