// Package models holds the built-in compartmental models. Importing it
// registers them with the sim package.
package models

import (
	"math"

	"github.com/pksim-dev/pksim/sim"
	"github.com/pksim-dev/pksim/sim/analytic"
)

// Parameter indexes of OneCompartment.
const (
	pk1CL = iota
	pk1V
	pk1KA
	pk1F1
	pk1ALAG1
)

// OneCompartment is a one-compartment model with first-order absorption
// from a depot. CL and V carry exponential between-subject effects (ETA 1
// and 2 when given); DV adds a proportional residual (EPS 1).
type OneCompartment struct {
	cl, v, ka float64
}

func (m *OneCompartment) Spec() sim.ModelSpec {
	return sim.ModelSpec{
		Name:         "pk1",
		Compartments: []string{"DEPOT", "CENT"},
		Parameters:   []string{"CL", "V", "KA", "F1", "ALAG1"},
		Defaults:     []float64{1, 20, 1, 1, 0},
		Captures:     []string{"CP", "DV"},
		Advan:        2,
	}
}

func (m *OneCompartment) Configure(ctx *sim.Context, s *sim.State) error {
	return nil
}

func (m *OneCompartment) Initialize(ctx *sim.Context, init []float64, s *sim.State) {
	p := s.Param
	m.cl = p[pk1CL] * math.Exp(eta(ctx, 0))
	m.v = p[pk1V] * math.Exp(eta(ctx, 1))
	m.ka = p[pk1KA]
	s.F[0] = p[pk1F1]
	s.Alag[0] = p[pk1ALAG1]
	s.Pred = analytic.Params{CL: m.cl, V2: m.v, KA: m.ka}
}

func (m *OneCompartment) Derivatives(t float64, y, dydt []float64, s *sim.State) {
	dydt[0] = -m.ka * y[0]
	dydt[1] = m.ka*y[0] - m.cl/m.v*y[1]
}

func (m *OneCompartment) CaptureOutputs(ctx *sim.Context, s *sim.State) {
	cp := s.Y[1] / m.v
	s.Capture[0] = cp
	s.Capture[1] = cp * (1 + eps(ctx, 0))
}

// eta returns between-subject effect i, or 0 when none was drawn.
func eta(ctx *sim.Context, i int) float64 {
	if i < len(ctx.ETA) {
		return ctx.ETA[i]
	}
	return 0
}

// eps returns residual effect i, or 0 when none was drawn.
func eps(ctx *sim.Context, i int) float64 {
	if i < len(ctx.EPS) {
		return ctx.EPS[i]
	}
	return 0
}
