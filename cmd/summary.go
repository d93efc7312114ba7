package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pksim-dev/pksim/sim"
	"github.com/pksim-dev/pksim/sim/trace"
)

var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")

	titleStyle   = lipgloss.NewStyle().Bold(true)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
)

func field(label string, value interface{}) string {
	return fmt.Sprintf("  %s %v", mutedStyle.Render(fmt.Sprintf("%-10s", label)), value)
}

// renderSummary formats the end-of-run report printed to stderr.
func renderSummary(res *runResult, outPath string, elapsed time.Duration) string {
	var b strings.Builder
	b.WriteString(successStyle.Render("✓ simulation complete"))
	b.WriteString("\n")
	lines := []string{
		field("run", res.Meta.ID),
		field("model", res.Meta.Model),
		field("subjects", res.Meta.Subjects),
		field("rows", res.Meta.Rows),
		field("elapsed", elapsed.Round(time.Millisecond)),
	}
	if outPath != "" {
		lines = append(lines, field("output", outPath))
	}
	if res.Trace != nil {
		s := trace.Summarize(res.Trace)
		lines = append(lines,
			field("events", s.TotalEvents),
			field("stops", s.Stops),
			field("disarmed", s.DisarmedDoses),
		)
		origins := make([]string, 0, len(s.OriginDistribution))
		for o := range s.OriginDistribution {
			origins = append(origins, o)
		}
		sort.Strings(origins)
		for _, o := range origins {
			lines = append(lines, field("  "+o, s.OriginDistribution[o]))
		}
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

// renderModel formats one registered model for `pksim models`.
func renderModel(spec sim.ModelSpec) string {
	advan := "ode"
	if spec.Advan >= 1 && spec.Advan <= 4 {
		advan = fmt.Sprintf("advan %d", spec.Advan)
	}
	params := make([]string, len(spec.Parameters))
	for i, p := range spec.Parameters {
		params[i] = fmt.Sprintf("%s=%g", p, spec.Defaults[i])
	}
	lines := []string{
		accentStyle.Render("▸ "+spec.Name) + " " + mutedStyle.Render("("+advan+")"),
		field("cmt", strings.Join(spec.Compartments, " ")),
		field("param", strings.Join(params, " ")),
	}
	if len(spec.Captures) > 0 {
		lines = append(lines, field("capture", strings.Join(spec.Captures, " ")))
	}
	return titleStyle.Render(strings.Join(lines, "\n"))
}
