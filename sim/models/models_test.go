package models

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pksim-dev/pksim/sim"
	"github.com/pksim-dev/pksim/sim/internal/testutil"
)

// subject builds one subject with a dose into cmt at time 0 followed by
// observations.
func subject(cmt int, amt float64, obs ...float64) []sim.Subject {
	recs := []sim.EventRecord{{ID: 1, Kind: sim.KindDose, Cmt: cmt, Amt: amt, Armed: true, Output: true}}
	for _, t := range obs {
		recs = append(recs, sim.EventRecord{ID: 1, Time: t, Kind: sim.KindObservation, Armed: true, Output: true})
	}
	for i := range recs {
		recs[i].Row = i
		recs[i].Origin = sim.OriginData
	}
	return []sim.Subject{{ID: 1, Records: recs}}
}

func run(t *testing.T, name string, advan int, in *sim.Input, params map[int]float64) *sim.Table {
	t.Helper()
	m, err := sim.NewModel(name)
	require.NoError(t, err)
	cfg := sim.DefaultConfig()
	cfg.Advan = advan
	if len(params) > 0 {
		m = &withParams{Model: m, params: params}
	}
	s, err := sim.NewSimulator(m, cfg)
	require.NoError(t, err)
	table, err := s.Run(context.Background(), in)
	require.NoError(t, err)
	return table
}

// withParams overrides parameter defaults of a wrapped model.
type withParams struct {
	sim.Model
	params map[int]float64
}

func (w *withParams) Spec() sim.ModelSpec {
	spec := w.Model.Spec()
	spec.Defaults = append([]float64(nil), spec.Defaults...)
	for i, v := range w.params {
		spec.Defaults[i] = v
	}
	return spec
}

func column(t *testing.T, table *sim.Table, name string) []float64 {
	t.Helper()
	col, err := table.Column(name)
	require.NoError(t, err)
	return col
}

func TestRegistry_BuiltInModels(t *testing.T) {
	assert.Subset(t, sim.RegisteredModels(), []string{"mm1", "pk1", "pk2"})

	a, err := sim.NewModel("pk1")
	require.NoError(t, err)
	b, err := sim.NewModel("pk1")
	require.NoError(t, err)
	assert.NotSame(t, a, b)

	_, err = sim.NewModel("pk9")
	assert.Error(t, err)
}

func TestBuiltInModels_SpecsAreValid(t *testing.T) {
	for _, name := range []string{"pk1", "pk2", "mm1"} {
		m, err := sim.NewModel(name)
		require.NoError(t, err)
		assert.NoError(t, m.Spec().Validate(), name)
		assert.Equal(t, name, m.Spec().Name)
	}
}

func TestClosedFormMatchesIntegrator(t *testing.T) {
	tests := []struct {
		model string
		advan int
	}{
		{"pk1", 2},
		{"pk2", 4},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			// GIVEN an oral dose observed over a day
			in := func() *sim.Input { return &sim.Input{Subjects: subject(1, 100, 0.5, 1, 2, 6, 24)} }

			// WHEN run with the closed form and with the integrator
			closed := run(t, tt.model, tt.advan, in(), nil)
			integrated := run(t, tt.model, sim.AdvanODE, in(), nil)

			// THEN concentrations agree
			want := column(t, closed, "CP")
			got := column(t, integrated, "CP")
			for i := range want {
				testutil.AssertFloat64Equal(t, "CP", want[i], got[i], 1e-5)
			}
		})
	}
}

func TestOneCompartment_ETAScalesClearance(t *testing.T) {
	// GIVEN an IV bolus and an ETA that doubles CL
	in := &sim.Input{Subjects: subject(2, 100, 10), ETA: [][]float64{{math.Log(2), 0}}}

	// WHEN simulated
	table := run(t, "pk1", 2, in, nil)

	// THEN elimination uses CL = 2, V = 20
	cp := column(t, table, "CP")
	testutil.AssertFloat64Equal(t, "CP", 5*math.Exp(-1), cp[1], 1e-9)
}

func TestOneCompartment_DVAddsProportionalResidual(t *testing.T) {
	in := &sim.Input{Subjects: subject(2, 100, 10), EPS: [][]float64{{0}, {0.1}}}

	table := run(t, "pk1", 2, in, nil)

	cp := column(t, table, "CP")
	dv := column(t, table, "DV")
	assert.Equal(t, cp[0], dv[0])
	testutil.AssertFloat64Equal(t, "DV", cp[1]*1.1, dv[1], 1e-12)
}

func TestMichaelisMenten_LowConcentrationIsLinear(t *testing.T) {
	// GIVEN a dose far below KM, where elimination is VMAX/KM first order
	in := &sim.Input{Subjects: subject(1, 0.001, 4)}

	// WHEN simulated
	table := run(t, "mm1", 0, in, nil)

	// THEN CP decays with k = VMAX/(KM*V) = 0.25
	cp := column(t, table, "CP")
	testutil.AssertFloat64Equal(t, "CP", 0.001/20*math.Exp(-1), cp[1], 1e-3)
}

func TestMichaelisMenten_StopAboveLimit(t *testing.T) {
	// GIVEN a stop limit below the post-dose concentration
	in := &sim.Input{Subjects: subject(1, 100, 1, 2)}

	// WHEN simulated
	table := run(t, "mm1", 0, in, map[int]float64{mmCPSTOP: 1})

	// THEN rows after the stop are missing
	cp := column(t, table, "CP")
	assert.Equal(t, 5.0, cp[0])
	testutil.AssertAllNaN(t, "CP", cp[1:])
}
