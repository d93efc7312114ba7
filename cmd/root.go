package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pksim-dev/pksim/sim"
	"github.com/pksim-dev/pksim/sim/data"
	_ "github.com/pksim-dev/pksim/sim/models"
	"github.com/pksim-dev/pksim/sim/output"
	"github.com/pksim-dev/pksim/sim/randfx"
	"github.com/pksim-dev/pksim/sim/trace"
)

var (
	logLevel   string // Log verbosity level
	configPath string // YAML run configuration
	modelName  string // Registered model name
	dataPath   string // Dosing data set (CSV or XLSX)
	idataPath  string // Per-subject data set
	outPath    string // Result file (.csv, .json or .xlsx)
	randomPath string // OMEGA/SIGMA matrices
	seed       int64  // Seed for random-effect draws
	traceLevel string // Event trace verbosity
	progress   bool   // Show a per-subject progress bar

	// Design grid
	gridStart float64
	gridEnd   float64
	gridDelta float64

	// Config overrides, applied only when the flag is set
	recsort int
	advan   int
	digits  int
	tscale  float64
	tad     bool
	obsonly bool
	obsaug  bool
	request []string
	carry   []string
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "pksim",
	Short: "Compartmental pharmacokinetic simulator",
}

// runCmd simulates a data set with a registered model
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate a dosing data set",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		if modelName == "" || dataPath == "" {
			logrus.Fatalf("--model and --data are required")
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Unknown trace level %q", traceLevel)
		}
		cfg, err := loadRunConfig(cmd)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}

		startTime := time.Now()
		res, err := simulate(context.Background(), runOptions{
			Model:    modelName,
			Data:     dataPath,
			IData:    idataPath,
			Random:   randomPath,
			Seed:     seed,
			Config:   cfg,
			Grid:     gridFromFlags(cmd),
			Trace:    traceLevel != string(trace.TraceLevelNone),
			Progress: progress,
		})
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		if cmd.Flags().Changed("seed") {
			res.Meta.Seed = seed
		}

		if outPath != "" {
			if err := output.WriteFile(outPath, res.Meta, res.Table); err != nil {
				logrus.Fatalf("Writing results: %v", err)
			}
		} else if err := output.WriteCSV(os.Stdout, res.Table); err != nil {
			logrus.Fatalf("Writing results: %v", err)
		}
		fmt.Fprintln(os.Stderr, renderSummary(res, outPath, time.Since(startTime)))
	},
}

// modelsCmd lists the built-in models
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List registered models",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range sim.RegisteredModels() {
			m, err := sim.NewModel(name)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			fmt.Println(renderModel(m.Spec()))
		}
	},
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// loadRunConfig reads --config (or the defaults) and applies the config
// flags the user set explicitly.
func loadRunConfig(cmd *cobra.Command) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if configPath != "" {
		loaded, err := sim.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = *loaded
	}
	flags := cmd.Flags()
	if flags.Changed("recsort") {
		cfg.RecSort = sim.TieBreak(recsort)
	}
	if flags.Changed("advan") {
		cfg.Advan = advan
	}
	if flags.Changed("digits") {
		cfg.Output.Digits = digits
	}
	if flags.Changed("tscale") {
		cfg.Output.TScale = tscale
	}
	if flags.Changed("tad") {
		cfg.Output.TAD = tad
	}
	if flags.Changed("obsonly") {
		cfg.Output.ObsOnly = obsonly
	}
	if flags.Changed("obsaug") {
		cfg.ObsAug = obsaug
	}
	if flags.Changed("request") {
		cfg.Output.Request = request
	}
	if flags.Changed("carry-out") {
		cfg.Output.CarryTran = carry
	}
	return cfg, cfg.Validate()
}

func gridFromFlags(cmd *cobra.Command) *gridOptions {
	if !cmd.Flags().Changed("end") {
		return nil
	}
	return &gridOptions{Start: gridStart, End: gridEnd, Delta: gridDelta}
}

// gridOptions describes a single design grid.
type gridOptions struct {
	Start, End, Delta float64
}

// runOptions is everything simulate needs.
type runOptions struct {
	Model    string
	Data     string
	IData    string
	Random   string
	Seed     int64
	Config   sim.Config
	Grid     *gridOptions
	Trace    bool
	Progress bool
}

// runResult is what a run produced.
type runResult struct {
	Table *sim.Table
	Meta  output.RunMetadata
	Trace *trace.SimulationTrace
}

// simulate loads the inputs, draws random effects and runs the model.
func simulate(ctx context.Context, opts runOptions) (*runResult, error) {
	m, err := sim.NewModel(opts.Model)
	if err != nil {
		return nil, err
	}
	spec := m.Spec()

	frame, err := data.Load(opts.Data)
	if err != nil {
		return nil, err
	}
	ds, err := data.NewDataSet(frame, spec)
	if err != nil {
		return nil, err
	}
	var ids *data.IDataSet
	if opts.IData != "" {
		iframe, err := data.Load(opts.IData)
		if err != nil {
			return nil, err
		}
		if ids, err = data.NewIDataSet(iframe, spec); err != nil {
			return nil, err
		}
	}
	in, err := data.Input(ds, ids)
	if err != nil {
		return nil, err
	}
	if g := opts.Grid; g != nil {
		if in.Grid, err = sim.NewGrid(g.Start, g.End, g.Delta); err != nil {
			return nil, err
		}
	}

	s, err := sim.NewSimulator(m, opts.Config)
	if err != nil {
		return nil, err
	}
	if opts.Random != "" {
		re, err := loadRandomEffects(opts.Random)
		if err != nil {
			return nil, err
		}
		nrow, err := s.OutputRows(in)
		if err != nil {
			return nil, err
		}
		key := randfx.NewSimulationKey(opts.Seed)
		draws, err := randfx.Population(randfx.NewPartitionedRNG(key), re.Omega, re.Sigma, len(in.Subjects), nrow)
		if err != nil {
			return nil, err
		}
		in.ETA, in.EPS = draws.ETA, draws.EPS
	}

	if opts.Progress {
		bar := newProgressBar(len(in.Subjects))
		s.Observer = bar
		defer bar.Finish()
	}
	var st *trace.SimulationTrace
	if opts.Trace {
		st = trace.NewSimulationTrace("")
		s.Trace = st
	}

	table, err := s.Run(ctx, in)
	if err != nil {
		return nil, err
	}
	meta := output.NewRunMetadata(spec.Name, len(in.Subjects), table)
	meta.RecSort = int(opts.Config.RecSort)
	if st != nil {
		st.RunID = meta.ID
	}
	return &runResult{Table: table, Meta: meta, Trace: st}, nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// addConfigFlags registers the flags that override the run configuration.
func addConfigFlags(fs *pflag.FlagSet) {
	fs.IntVar(&recsort, "recsort", 1, "Tie-break mode for records at equal times (1-4)")
	fs.IntVar(&advan, "advan", 0, "Solver: 1-4 closed form, 13 numerical, 0 model default")
	fs.IntVar(&digits, "digits", 0, "Significant digits for outputs (0 keeps full precision)")
	fs.Float64Var(&tscale, "tscale", 1, "Multiplier for the output time column")
	fs.BoolVar(&tad, "tad", false, "Add a time-after-dose column")
	fs.BoolVar(&obsonly, "obsonly", false, "Omit dosing rows from the output")
	fs.BoolVar(&obsaug, "obsaug", false, "Add design-grid observations to subjects that have observations")
	fs.StringSliceVar(&request, "request", nil, "Compartments to output")
	fs.StringSliceVar(&carry, "carry-out", nil, "Record fields to carry (evid, amt, cmt, ss, ii, addl, rate, augmented)")
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().StringVar(&modelName, "model", "", "Registered model name (see `pksim models`)")
	runCmd.Flags().StringVar(&dataPath, "data", "", "Dosing data set (.csv or .xlsx)")
	runCmd.Flags().StringVar(&idataPath, "idata", "", "Per-subject data set (.csv or .xlsx)")
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML run configuration")
	runCmd.Flags().StringVarP(&outPath, "out", "o", "", "Result file (.csv, .json or .xlsx); CSV to stdout when empty")
	runCmd.Flags().StringVar(&randomPath, "random", "", "YAML file with omega and sigma matrices")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for random-effect draws")
	runCmd.Flags().StringVar(&traceLevel, "trace", string(trace.TraceLevelNone), "Event trace level (none, events)")
	runCmd.Flags().BoolVar(&progress, "progress", false, "Show per-subject progress")

	// Design grid
	runCmd.Flags().Float64Var(&gridStart, "start", 0, "Design grid start time")
	runCmd.Flags().Float64Var(&gridEnd, "end", 0, "Design grid end time; enables the grid")
	runCmd.Flags().Float64Var(&gridDelta, "delta", 1, "Design grid step")

	addConfigFlags(runCmd.Flags())

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(plotCmd)
}
