package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pksim-dev/pksim/sim"
	"github.com/pksim-dev/pksim/sim/data"
)

const dosingCSV = `ID,time,evid,amt,cmt
1,0,1,100,1
1,1,0,0,0
1,4,0,0,0
2,0,1,50,1
2,2,0,0,0
`

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newConfigCmd() *cobra.Command {
	c := &cobra.Command{Use: "test"}
	addConfigFlags(c.Flags())
	return c
}

func TestLoadRunConfig_FlagsOverrideFile(t *testing.T) {
	// GIVEN a config file and an explicit --digits flag
	saved := configPath
	t.Cleanup(func() { configPath = saved })
	configPath = writeTemp(t, "run.yaml", "recsort: 3\noutput:\n  digits: 6\n  tad: true\n")
	c := newConfigCmd()
	require.NoError(t, c.Flags().Set("digits", "3"))

	// WHEN the config is loaded
	cfg, err := loadRunConfig(c)

	// THEN the flag wins and unset flags leave the file values alone
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Output.Digits)
	assert.Equal(t, sim.TieBreak(3), cfg.RecSort)
	assert.True(t, cfg.Output.TAD)
}

func TestLoadRunConfig_InvalidFlag(t *testing.T) {
	saved := configPath
	t.Cleanup(func() { configPath = saved })
	configPath = ""
	c := newConfigCmd()
	require.NoError(t, c.Flags().Set("recsort", "7"))

	_, err := loadRunConfig(c)

	assert.Error(t, err)
}

func TestLoadRandomEffects(t *testing.T) {
	re, err := loadRandomEffects(writeTemp(t, "re.yaml", "omega:\n  - [0.1, 0]\n  - [0, 0.2]\nsigma:\n  - [0.04]\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.1, 0}, {0, 0.2}}, re.Omega)
	assert.Equal(t, [][]float64{{0.04}}, re.Sigma)

	_, err = loadRandomEffects(writeTemp(t, "bad.yaml", "omgea: []\n"))
	assert.ErrorContains(t, err, "parsing random effects")
}

func TestSimulate_EndToEnd(t *testing.T) {
	// GIVEN a two-subject data set and a design grid
	opts := runOptions{
		Model:  "pk1",
		Data:   writeTemp(t, "data.csv", dosingCSV),
		Config: sim.DefaultConfig(),
		Grid:   &gridOptions{Start: 0, End: 2, Delta: 1},
		Trace:  true,
	}

	// WHEN simulated
	res, err := simulate(context.Background(), opts)

	// THEN every data row is output, the trace is stamped with the run id
	require.NoError(t, err)
	assert.Equal(t, 5, res.Table.NRow)
	assert.Equal(t, 2, res.Meta.Subjects)
	require.NotNil(t, res.Trace)
	assert.Equal(t, res.Meta.ID, res.Trace.RunID)
	cp, err := res.Table.Column("CP")
	require.NoError(t, err)
	dv, err := res.Table.Column("DV")
	require.NoError(t, err)
	assert.Equal(t, cp, dv)
}

func TestSimulate_RandomEffectsAreSeeded(t *testing.T) {
	// GIVEN random effects with a residual error
	opts := runOptions{
		Model:  "pk1",
		Data:   writeTemp(t, "data.csv", dosingCSV),
		Random: writeTemp(t, "re.yaml", "omega:\n  - [0.1, 0]\n  - [0, 0.1]\nsigma:\n  - [0.04]\n"),
		Seed:   7,
		Config: sim.DefaultConfig(),
	}

	// WHEN simulated twice with the same seed
	first, err := simulate(context.Background(), opts)
	require.NoError(t, err)
	second, err := simulate(context.Background(), opts)
	require.NoError(t, err)

	// THEN results repeat and DV departs from CP at observations
	cp1, _ := first.Table.Column("CP")
	cp2, _ := second.Table.Column("CP")
	assert.Equal(t, cp1, cp2)
	dv, _ := first.Table.Column("DV")
	assert.NotEqual(t, cp1[1], dv[1])
}

func TestSimulate_Errors(t *testing.T) {
	path := writeTemp(t, "data.csv", dosingCSV)
	tests := []struct {
		name string
		opts runOptions
	}{
		{"unknown model", runOptions{Model: "nope", Data: path, Config: sim.DefaultConfig()}},
		{"missing data", runOptions{Model: "pk1", Data: filepath.Join(t.TempDir(), "x.csv"), Config: sim.DefaultConfig()}},
		{"bad grid", runOptions{Model: "pk1", Data: path, Config: sim.DefaultConfig(), Grid: &gridOptions{End: 2, Delta: 0}}},
		{"bad omega", runOptions{Model: "pk1", Data: path, Config: sim.DefaultConfig(), Random: writeTemp(t, "re.yaml", "omega:\n  - [1, 2]\n")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := simulate(context.Background(), tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestPlotSeries_FiltersSubject(t *testing.T) {
	// GIVEN a result file with two subjects and a missing value
	frame, err := data.NewFrame([]string{"ID", "time", "CP"}, [][]string{
		{"1", "0", "0"}, {"1", "1", "4"}, {"1", "2", "NA"}, {"2", "0", "9"},
	})
	require.NoError(t, err)

	// WHEN the series for subject 1 is extracted
	times, values, err := seriesFor(frame, "cp", 1)

	// THEN only its non-missing rows remain
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, times)
	assert.Equal(t, []float64{0, 4}, values)

	graph, err := plotSeries(frame, "CP", 1, 5, 20)
	require.NoError(t, err)
	assert.Contains(t, graph, "CP (ID 1, time 0 to 1)")

	_, _, err = seriesFor(frame, "DV", 1)
	assert.ErrorIs(t, err, data.ErrMissingColumn)
	_, _, err = seriesFor(frame, "CP", 3)
	assert.Error(t, err)
}

func TestRenderSummary(t *testing.T) {
	res, err := simulate(context.Background(), runOptions{
		Model:  "pk1",
		Data:   writeTemp(t, "data.csv", dosingCSV),
		Config: sim.DefaultConfig(),
		Trace:  true,
	})
	require.NoError(t, err)

	out := renderSummary(res, "out.csv", time.Second)

	assert.Contains(t, out, res.Meta.ID)
	assert.Contains(t, out, "out.csv")
	assert.Contains(t, out, "events")
	assert.Contains(t, out, "data")
}

func TestRenderModel(t *testing.T) {
	m, err := sim.NewModel("pk1")
	require.NoError(t, err)

	out := renderModel(m.Spec())

	assert.True(t, strings.Contains(out, "pk1"))
	assert.Contains(t, out, "advan 2")
	assert.Contains(t, out, "CL=1")
	assert.Contains(t, out, "DEPOT CENT")
}
