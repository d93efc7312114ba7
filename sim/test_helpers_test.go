package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pksim-dev/pksim/sim/analytic"
)

// Parameter indexes of testModel.
const (
	pCL = iota
	pV
	pKA
	pF1
	pALAG1
	pF2
	pALAG2
	pR2
	pD2
)

// testModel is a one-compartment model with a first-order absorption
// depot. CENT is compartment 2. It captures the concentration and the
// current infusion rate into CENT.
type testModel struct {
	advan     int
	params    map[int]float64
	onCapture func(ctx *Context, s *State)
	configErr error
}

func (m *testModel) Spec() ModelSpec {
	defaults := []float64{1, 1, 1, 1, 0, 1, 0, 0, 0}
	for i, v := range m.params {
		defaults[i] = v
	}
	return ModelSpec{
		Name:         "test-1cmt",
		Compartments: []string{"DEPOT", "CENT"},
		Parameters:   []string{"CL", "V", "KA", "F1", "ALAG1", "F2", "ALAG2", "R2", "D2"},
		Defaults:     defaults,
		Captures:     []string{"CP", "R0CENT"},
		Advan:        m.advan,
	}
}

func (m *testModel) Configure(ctx *Context, s *State) error {
	return m.configErr
}

func (m *testModel) Initialize(ctx *Context, init []float64, s *State) {
	p := s.Param
	s.F[0], s.Alag[0] = p[pF1], p[pALAG1]
	s.F[1], s.Alag[1] = p[pF2], p[pALAG2]
	s.Rate[1], s.Dur[1] = p[pR2], p[pD2]
	s.Pred = analytic.Params{CL: p[pCL], V2: p[pV], KA: p[pKA]}
}

func (m *testModel) Derivatives(t float64, y, dydt []float64, s *State) {
	p := s.Param
	dydt[0] = -p[pKA] * y[0]
	dydt[1] = p[pKA]*y[0] - p[pCL]/p[pV]*y[1]
}

func (m *testModel) CaptureOutputs(ctx *Context, s *State) {
	s.Capture[0] = s.Y[1] / s.Param[pV]
	s.Capture[1] = s.R0[1]
	if m.onCapture != nil {
		m.onCapture(ctx, s)
	}
}

// slowClearance makes elimination negligible over test horizons.
var slowClearance = map[int]float64{pCL: 1e-9}

func obsRec(id, t float64) EventRecord {
	return EventRecord{ID: id, Time: t, Kind: KindObservation, Armed: true, Output: true}
}

func doseRec(id, t float64, cmt int, amt float64) EventRecord {
	return EventRecord{ID: id, Time: t, Kind: KindDose, Cmt: cmt, Amt: amt, Armed: true, Output: true}
}

// dataset groups records into subjects by ID, in order, numbering rows
// across the whole data set.
func dataset(recs ...EventRecord) []Subject {
	var subjects []Subject
	for i, r := range recs {
		r.Row = i
		r.Origin = OriginData
		if len(subjects) == 0 || subjects[len(subjects)-1].ID != r.ID {
			subjects = append(subjects, Subject{ID: r.ID, FirstRow: i})
		}
		last := &subjects[len(subjects)-1]
		last.Records = append(last.Records, r)
	}
	return subjects
}

func runModel(t *testing.T, m Model, cfg Config, in *Input) (*Table, *Simulator) {
	t.Helper()
	sim, err := NewSimulator(m, cfg)
	require.NoError(t, err)
	table, err := sim.Run(context.Background(), in)
	require.NoError(t, err)
	return table, sim
}

// value returns the named column at the first row whose time equals tm.
func value(t *testing.T, table *Table, tm float64, column string) float64 {
	t.Helper()
	j, ok := table.ColumnIndex(column)
	require.True(t, ok, "column %s", column)
	for i := 0; i < table.NRow; i++ {
		if table.At(i, 1) == tm {
			return table.At(i, j)
		}
	}
	t.Fatalf("no row at time %g", tm)
	return 0
}

// lastValue is like value but returns the last row at time tm.
func lastValue(t *testing.T, table *Table, tm float64, column string) float64 {
	t.Helper()
	j, ok := table.ColumnIndex(column)
	require.True(t, ok, "column %s", column)
	for i := table.NRow - 1; i >= 0; i-- {
		if table.At(i, 1) == tm {
			return table.At(i, j)
		}
	}
	t.Fatalf("no row at time %g", tm)
	return 0
}

// fakeRows is an in-memory RowSource with per-row parameter overrides.
type fakeRows struct {
	n       int
	columns map[string][]float64
	params  map[string]int
}

func (f *fakeRows) NRow() int { return f.n }

func (f *fakeRows) CopyParameters(row int, param []float64) {
	for name, idx := range f.params {
		if col, ok := f.columns[name]; ok {
			param[idx] = col[row]
		}
	}
}

func (f *fakeRows) HasColumn(name string) bool {
	_, ok := f.columns[name]
	return ok
}

func (f *fakeRows) Value(row int, name string) float64 {
	return f.columns[name][row]
}
