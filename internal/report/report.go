// Package report renders selftest results and load reports for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/kepler/internal/conformance"
	"github.com/Iron-Ham/kepler/internal/loadgen"
	"github.com/Iron-Ham/kepler/internal/pool"
)

// DefaultWidth is used when the caller does not know the terminal width.
const DefaultWidth = 80

// Selftest writes one line per scenario followed by a summary line.
func Selftest(w io.Writer, results []conformance.Result, width int) error {
	if width <= 0 {
		width = DefaultWidth
	}

	nameWidth := 0
	for _, r := range results {
		nameWidth = max(nameWidth, len(r.Name))
	}

	var sb strings.Builder
	sb.WriteString(Title.Render("kepler selftest"))
	sb.WriteString("\n")

	failed := 0
	for _, r := range results {
		badge := Pass.Render("PASS")
		if !r.Passed {
			badge = Fail.Render("FAIL")
			failed++
		}
		line := fmt.Sprintf("%s  %-*s  %s", badge, nameWidth, r.Name, Muted.Render(formatDuration(r.Duration)))
		sb.WriteString(line)
		sb.WriteString("\n")
		if r.Detail != "" {
			sb.WriteString(Truncate("      "+Warning.Render(r.Detail), width))
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	if failed == 0 {
		sb.WriteString(Pass.Render(fmt.Sprintf("%d/%d scenarios passed", len(results), len(results))))
	} else {
		sb.WriteString(Fail.Render(fmt.Sprintf("%d/%d scenarios failed", failed, len(results))))
	}
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// Stress writes a boxed summary of a load run and the pool counters.
func Stress(w io.Writer, r loadgen.Report, stats pool.Stats) error {
	rows := []struct {
		label string
		value string
		bad   bool
	}{
		{"producers", fmt.Sprint(r.Producers), false},
		{"consumers", fmt.Sprint(r.Consumers), false},
		{"destinations", fmt.Sprint(r.Destinations), false},
		{"sent", fmt.Sprint(r.Sent), false},
		{"received", fmt.Sprint(r.Received), r.Received != r.Sent},
		{"duplicates", fmt.Sprint(r.Duplicates), r.Duplicates != 0},
		{"lost", fmt.Sprint(r.Lost), r.Lost != 0},
		{"stranded", fmt.Sprint(r.Stranded), r.Stranded != 0},
		{"fifo violations", fmt.Sprint(r.FIFOViolations), r.FIFOViolations != 0},
		{"pool retries", fmt.Sprint(r.PoolRetries), false},
		{"peak outstanding", fmt.Sprintf("%d/%d", r.PeakOutstanding, stats.Capacity), false},
		{"final outstanding", fmt.Sprint(r.FinalOutstanding), r.FinalOutstanding != 0},
		{"elapsed", formatDuration(r.Elapsed), false},
		{"throughput", fmt.Sprintf("%.0f msg/s", r.Throughput()), false},
	}

	lines := make([]string, 0, len(rows)+2)
	for _, row := range rows {
		value := row.value
		if row.bad {
			value = Fail.Render(value)
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, Label.Render(row.label), value))
	}

	verdict := Pass.Render("OK")
	if !r.OK() {
		verdict = Fail.Render("FAILED")
	}
	lines = append(lines, "", lipgloss.JoinHorizontal(lipgloss.Top, Label.Render("result"), verdict))

	out := Title.Render("kepler stress") + "\n" + Box.Render(strings.Join(lines, "\n")) + "\n"
	_, err := io.WriteString(w, out)
	return err
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return d.Round(time.Microsecond).String()
	case d < time.Second:
		return d.Round(10 * time.Microsecond).String()
	default:
		return d.Round(time.Millisecond).String()
	}
}
