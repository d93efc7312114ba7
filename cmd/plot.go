package cmd

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pksim-dev/pksim/sim/data"
)

var (
	plotFile   string  // Result file written by `pksim run`
	plotColumn string  // Column to plot
	plotID     float64 // Subject to plot
	plotHeight int
	plotWidth  int
)

// plotCmd draws one output column of one subject in the terminal
var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot a result column against time",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		if plotFile == "" || plotColumn == "" {
			logrus.Fatalf("--file and --column are required")
		}
		frame, err := data.Load(plotFile)
		if err != nil {
			logrus.Fatalf("Reading results: %v", err)
		}
		graph, err := plotSeries(frame, plotColumn, plotID, plotHeight, plotWidth)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		fmt.Println(graph)
	},
}

// seriesFor returns the time and value columns of subject id, skipping
// rows where the value is missing.
func seriesFor(frame *data.Frame, column string, id float64) ([]float64, []float64, error) {
	idCol, ok := frame.Column("ID")
	if !ok {
		return nil, nil, fmt.Errorf("%w: ID", data.ErrMissingColumn)
	}
	timeCol, ok := frame.Column("time")
	if !ok {
		return nil, nil, fmt.Errorf("%w: time", data.ErrMissingColumn)
	}
	valueCol, ok := frame.Column(column)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", data.ErrMissingColumn, column)
	}
	var times, values []float64
	for _, row := range frame.Rows {
		if row[idCol] != id || math.IsNaN(row[valueCol]) {
			continue
		}
		times = append(times, row[timeCol])
		values = append(values, row[valueCol])
	}
	if len(values) == 0 {
		return nil, nil, fmt.Errorf("no %s values for ID %g", column, id)
	}
	return times, values, nil
}

func plotSeries(frame *data.Frame, column string, id float64, height, width int) (string, error) {
	times, values, err := seriesFor(frame, column, id)
	if err != nil {
		return "", err
	}
	caption := fmt.Sprintf("%s (ID %g, time %g to %g)", column, id, times[0], times[len(times)-1])
	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	), nil
}

func init() {
	plotCmd.Flags().StringVarP(&plotFile, "file", "f", "", "Result file (.csv or .xlsx)")
	plotCmd.Flags().StringVarP(&plotColumn, "column", "c", "", "Column to plot")
	plotCmd.Flags().Float64Var(&plotID, "id", 1, "Subject ID")
	plotCmd.Flags().IntVar(&plotHeight, "height", 10, "Plot height in lines")
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "Plot width in columns")
}
