package printer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"sensorfusion/internal/client"
	"sensorfusion/internal/quorum"
	"sensorfusion/internal/reconcile"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Printer renders client rounds as colored lines.
type Printer struct {
	out io.Writer
}

var _ client.Reporter = (*Printer)(nil)

// New creates a printer writing to out.
func New(out io.Writer) *Printer {
	return &Printer{out: out}
}

func (p *Printer) Waiting(round int) {
	yellow.Fprintf(p.out, "… round %d: reconciliation in progress, waiting\n", round)
}

func (p *Printer) Accepted(round int, readings []quorum.Reading, d quorum.Decision) {
	green.Fprintf(p.out, "✓ round %d: accepted %.3f  inliers=%d/%d required=%d tol=%.2f  [%s]\n",
		round, d.AcceptedValue, len(d.Inliers), len(readings), d.Required, d.Tolerance, formatReadings(readings))
}

func (p *Printer) Rejected(round int, readings []quorum.Reading, d quorum.Decision) {
	yellow.Fprintf(p.out, "⚠ round %d: rejected  mean=%.3f inliers=%d/%d required=%d tol=%.2f  [%s]\n",
		round, d.Mean, len(d.Inliers), len(readings), d.Required, d.Tolerance, formatReadings(readings))
}

func (p *Printer) Reconciled(round int, res reconcile.Result) {
	if !res.Success {
		red.Fprintf(p.out, "✗ round %d: reconcile failed: %s\n", round, res.Message)
		return
	}
	cyan.Fprintf(p.out, "→ round %d: reconcile ok avg=%.3f: %s\n", round, res.AveragedValue, res.Message)
}

func (p *Printer) Reread(round int, readings []quorum.Reading, mean float64) {
	green.Fprintf(p.out, "✓ round %d: post-reconcile mean %.3f  [%s]\n", round, mean, formatReadings(readings))
}

func formatReadings(readings []quorum.Reading) string {
	parts := make([]string, len(readings))
	for i, rd := range readings {
		parts[i] = fmt.Sprintf("%s=%.3f", rd.SensorID, rd.Value)
	}
	return strings.Join(parts, " ")
}

// Error prints a formatted error with title, explanation, and suggestions to w
// and returns a simple error for Cobra.
func Error(w io.Writer, title string, explanation string, suggestions []string) error {
	red.Fprintf(w, "%s\n", title)

	if explanation != "" {
		fmt.Fprintf(w, "\n%s\n", explanation)
	}

	if len(suggestions) > 0 {
		fmt.Fprintf(w, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(w, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(w, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(w, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	// Return simple error for Cobra (won't be printed due to SilenceErrors)
	return fmt.Errorf("%s", title)
}
