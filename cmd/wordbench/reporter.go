package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/wordbench/wordbench/internal/models"
)

// formatDuration formats a duration in a consistent, human-readable way.
// This ensures stable output regardless of Go version changes.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.String()
}

// joinInts renders a target list as "10, 25, 50".
func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}

// printSummary renders the post-run results: totals, the accuracy ranking,
// the per-target breakdown, and any failed trials.
//
//nolint:errcheck // display-only writes; errors are not actionable
func printSummary(w io.Writer, report *models.BenchmarkReport) {
	fmt.Fprintln(w, "="+strings.Repeat("=", 50))
	fmt.Fprintln(w, " BENCHMARK RESULTS")
	fmt.Fprintln(w, "="+strings.Repeat("=", 50))
	fmt.Fprintln(w)

	trials, successes, exact := reportCounts(report)

	fmt.Fprintf(w, "Run:            %s\n", report.RunID)
	fmt.Fprintf(w, "Duration:       %s\n", formatDuration(time.Duration(report.DurationMs)*time.Millisecond))
	fmt.Fprintf(w, "Models:         %d\n", len(report.Models))
	fmt.Fprintf(w, "Trials:         %d total, %d ok, %d exact\n", trials, successes, exact)
	if report.Interrupted {
		fmt.Fprintln(w, "Interrupted:    yes; results cover completed groups only")
	}
	fmt.Fprintln(w)

	if report.Summary != nil {
		if len(report.Summary.Ranking) > 0 {
			printRanking(w, report.Summary.Ranking)
		}
		if len(report.Summary.Targets) > 0 {
			printTargetBreakdown(w, report.Summary.Targets)
		}
	}

	printFailedTrials(w, report)
}

//nolint:errcheck // display-only writes; errors are not actionable
func printRanking(w io.Writer, ranking []models.RankingEntry) {
	names := make([]string, len(ranking))
	for i, entry := range ranking {
		names[i] = entry.Model
	}
	nameWidth := modelColumnWidth(names)

	fmt.Fprintln(w, "-"+strings.Repeat("-", 50))
	fmt.Fprintln(w, " RANKING")
	fmt.Fprintln(w, "-"+strings.Repeat("-", 50))
	fmt.Fprintf(w, " %4s  %s  %9s  %8s  %s\n", "RANK", padRight("MODEL", nameWidth), "ACCURACY", "AVG DEV", "EXACT")
	for _, entry := range ranking {
		name := padRight(truncateName(entry.Model, nameWidth), nameWidth)
		exactCol := fmt.Sprintf("%d/%d", entry.ExactMatches, entry.TotalTrials)
		fmt.Fprintf(w, " %4d  %s  %8.1f%%  %8.2f  %s\n", entry.Rank, name, entry.Accuracy, entry.AvgDeviation, exactCol)
	}
	fmt.Fprintln(w)
}

//nolint:errcheck // display-only writes; errors are not actionable
func printTargetBreakdown(w io.Writer, targets []models.TargetBreakdown) {
	var names []string
	for _, tb := range targets {
		for _, entry := range tb.Entries {
			names = append(names, entry.Model)
		}
	}
	nameWidth := modelColumnWidth(names)

	fmt.Fprintln(w, "-"+strings.Repeat("-", 50))
	fmt.Fprintln(w, " PER-TARGET BREAKDOWN")
	fmt.Fprintln(w, "-"+strings.Repeat("-", 50))
	for _, tb := range targets {
		fmt.Fprintf(w, " Target %d words: best %s (%.1f%%)\n", tb.Target, tb.Best, tb.BestAccuracy)
		for _, entry := range tb.Entries {
			name := padRight(truncateName(entry.Model, nameWidth), nameWidth)
			fmt.Fprintf(w, "   %s  %6.1f%%  avg dev %.2f\n", name, entry.Accuracy, entry.AvgDeviation)
		}
		fmt.Fprintln(w)
	}
}

//nolint:errcheck // display-only writes; errors are not actionable
func printFailedTrials(w io.Writer, report *models.BenchmarkReport) {
	var lines []string
	for _, mr := range report.Models {
		for _, wr := range mr.Results {
			for _, trial := range wr.Trials {
				if !trial.Success() {
					lines = append(lines, fmt.Sprintf("  - %s target=%d trial=%d: %s", mr.Model, wr.Target, trial.TrialIndex, trial.ErrorMsg))
				}
			}
		}
	}
	if len(lines) == 0 {
		return
	}

	fmt.Fprintln(w, "Failed Trials:")
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)
}

func reportCounts(report *models.BenchmarkReport) (trials, successes, exact int) {
	for _, mr := range report.Models {
		trials += mr.TotalTrials
		exact += mr.TotalExact
		for _, wr := range mr.Results {
			successes += wr.Successes
		}
	}
	return trials, successes, exact
}

// modelColumnWidth sizes the model column to the longest name, capped so
// one oversized id cannot blow up the whole table.
func modelColumnWidth(names []string) int {
	width := len("MODEL")
	for _, name := range names {
		if w := runewidth.StringWidth(name); w > width {
			width = w
		}
	}
	if width > 28 {
		width = 28
	}
	return width
}

func truncateName(name string, maxLen int) string {
	runes := []rune(name)
	if len(runes) <= maxLen {
		return name
	}
	return string(runes[:maxLen-1]) + "…"
}

func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
