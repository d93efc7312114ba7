package sim

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pksim-dev/pksim/sim/ode"
)

// Advan values accepted by Config.Advan.
const (
	AdvanODE = 13
)

// ValidAdvans is the set of recognized solver selections. Zero means "use
// the model's preference".
var ValidAdvans = map[int]bool{0: true, 1: true, 2: true, 3: true, 4: true, AdvanODE: true}

// SteadyStateConfig controls the steady-state pre-simulation.
type SteadyStateConfig struct {
	MaxIter int     `yaml:"ss_n"`     // dose cycles before giving up (default 500)
	Fixed   bool    `yaml:"ss_fixed"` // run exactly MaxIter cycles without warning
	RelTol  float64 `yaml:"ss_rtol"`  // convergence tolerances on compartment amounts
	AbsTol  float64 `yaml:"ss_atol"`
	// Window is the integration window used for continuous steady-state
	// infusions (ss > 0, rate > 0, ii == 0).
	Window float64 `yaml:"ss_window"`
	// Compartments restricts the convergence check to these 1-based
	// compartments; empty means all.
	Compartments []int `yaml:"ss_cmt"`
}

// OutputConfig selects the columns of the result table.
type OutputConfig struct {
	Request    []string `yaml:"request"`     // compartments to output; empty means all
	Captures   []string `yaml:"capture"`     // captured outputs; empty means all
	CarryTran  []string `yaml:"carry_tran"`  // record fields: evid, amt, cmt, ss, ii, addl, rate, augmented
	CarryData  []string `yaml:"carry_data"`  // input data columns
	CarryIData []string `yaml:"carry_idata"` // per-subject data columns
	Digits     int      `yaml:"digits"`      // significant digits for request/capture columns; 0 keeps full precision
	TScale     float64  `yaml:"tscale"`      // multiplier applied to the time column
	TAD        bool     `yaml:"tad"`         // add a time-after-dose column
	ObsOnly    bool     `yaml:"obsonly"`     // omit dosing rows
}

// Config holds everything that changes how a run behaves. The zero value
// is not usable; start from DefaultConfig.
type Config struct {
	RecSort TieBreak `yaml:"recsort"` // tie-break mode, 1..4
	// MinDt collapses steps whose length relative to the start time is
	// below it.
	MinDt      float64 `yaml:"mindt"`
	NOCB       bool    `yaml:"nocb"`   // copy row parameters before advancing (false: after)
	FilBak     bool    `yaml:"filbak"` // use the first input row for a leading synthetic record
	ObsAug     bool    `yaml:"obsaug"` // add design-grid observations even when the data has observations
	Advan      int     `yaml:"advan"`
	DoInitCalc bool    `yaml:"do_init_calc"` // let Initialize set initial amounts

	SteadyState SteadyStateConfig `yaml:"steady_state"`
	Output      OutputConfig      `yaml:"output"`
	Integrator  ode.Settings      `yaml:"integrator"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		RecSort:    TieBreakDefault,
		MinDt:      10 * 2.220446049250313e-16,
		NOCB:       true,
		FilBak:     true,
		DoInitCalc: true,
		SteadyState: SteadyStateConfig{
			MaxIter: 500,
			RelTol:  1e-8,
			AbsTol:  1e-12,
			Window:  10,
		},
		Output: OutputConfig{
			TScale: 1,
		},
		Integrator: ode.DefaultSettings(),
	}
}

// LoadConfig reads a YAML configuration file on top of DefaultConfig.
// Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config: %w", err)
	}
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing run config: %w", err)
	}
	return &cfg, nil
}

// Validate checks option values that do not depend on the model.
func (c *Config) Validate() error {
	if err := c.RecSort.Validate(); err != nil {
		return err
	}
	if c.MinDt < 0 || math.IsNaN(c.MinDt) {
		return fmt.Errorf("mindt must be non-negative, got %g", c.MinDt)
	}
	if !ValidAdvans[c.Advan] {
		return fmt.Errorf("unknown advan %d (must be 1, 2, 3, 4 or 13)", c.Advan)
	}
	if c.SteadyState.MaxIter <= 0 {
		return fmt.Errorf("ss_n must be positive, got %d", c.SteadyState.MaxIter)
	}
	if c.SteadyState.RelTol < 0 || c.SteadyState.AbsTol < 0 {
		return fmt.Errorf("steady-state tolerances must be non-negative")
	}
	if c.SteadyState.Window <= 0 {
		return fmt.Errorf("ss_window must be positive, got %g", c.SteadyState.Window)
	}
	if c.Output.Digits < 0 {
		return fmt.Errorf("digits must be non-negative, got %d", c.Output.Digits)
	}
	if c.Output.TScale < 0 || math.IsNaN(c.Output.TScale) {
		return fmt.Errorf("tscale must be non-negative, got %g", c.Output.TScale)
	}
	for _, name := range c.Output.CarryTran {
		if !ValidCarryTran[name] {
			return fmt.Errorf("unknown carry_tran column %q", name)
		}
	}
	return c.Integrator.Validate()
}
