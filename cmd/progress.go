package cmd

import (
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// subjectProgress advances a progress bar as subjects finish.
type subjectProgress struct {
	bar *progressbar.ProgressBar
}

func newProgressBar(total int) *subjectProgress {
	return &subjectProgress{bar: progressbar.NewOptions64(int64(total),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("subjects"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)}
}

// SubjectDone implements sim.Observer.
func (p *subjectProgress) SubjectDone(index int, id float64) {
	_ = p.bar.Add(1)
}

// Finish completes the bar.
func (p *subjectProgress) Finish() {
	_ = p.bar.Finish()
}
