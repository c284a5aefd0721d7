package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/wordbench/wordbench/internal/models"
)

// InterpretAccuracy returns a plain-language label for an accuracy
// percentage (0-100).
func InterpretAccuracy(accuracy float64) string {
	switch {
	case accuracy > 90:
		return "Excellent (>90%)"
	case accuracy >= 70:
		return "Good (70-90%)"
	case accuracy >= 50:
		return "Needs Work (50-70%)"
	default:
		return "Poor (<50%)"
	}
}

// InterpretDeviation returns a human-readable explanation of an average
// word-count deviation.
func InterpretDeviation(avg float64) string {
	switch {
	case avg == 0:
		return "Every counted response hit the target exactly."
	case avg < 1:
		return fmt.Sprintf("Responses land within a word of the target on average (%.2f).", avg)
	case avg < 5:
		return fmt.Sprintf("Responses miss the target by a few words on average (%.1f).", avg)
	default:
		return fmt.Sprintf("Responses miss the target by %.1f words on average.", avg)
	}
}

// InterpretConsistency explains how much deviation varies between trials.
func InterpretConsistency(stdDev float64) string {
	switch {
	case stdDev == 0:
		return "Deviation is identical across trials."
	case stdDev <= 1:
		return fmt.Sprintf("Deviation is consistent across trials (spread %.2f).", stdDev)
	case stdDev <= 5:
		return fmt.Sprintf("Deviation varies moderately between trials (spread %.1f).", stdDev)
	default:
		return fmt.Sprintf("Results are volatile — the same model swings widely between trials (spread %.1f). Consider increasing trials or lowering temperature.", stdDev)
	}
}

// FormatSummaryReport produces a full plain-language report from a
// BenchmarkReport.
func FormatSummaryReport(report *models.BenchmarkReport) string {
	var b strings.Builder

	duration := time.Duration(report.DurationMs) * time.Millisecond

	b.WriteString("=== Interpretation ===\n\n")

	if report.Summary != nil && len(report.Summary.Ranking) > 0 {
		best := report.Summary.Ranking[0]
		b.WriteString(fmt.Sprintf("Best Model:    %s — %s\n", best.Model, InterpretAccuracy(best.Accuracy)))
	}
	b.WriteString(fmt.Sprintf("Duration:      %v\n", duration))
	if report.Interrupted {
		b.WriteString("Interrupted:   run stopped early; results cover completed groups only\n")
	}

	if len(report.Models) > 0 {
		b.WriteString("\nPer-Model Interpretation:\n")
		for _, mr := range report.Models {
			icon := "✓"
			if mr.OverallAccuracy < 50 {
				icon = "✗"
			}
			b.WriteString(fmt.Sprintf("  %s %s: %.1f%% accuracy — %s\n", icon, mr.Model, mr.OverallAccuracy, InterpretAccuracy(mr.OverallAccuracy)))
			b.WriteString(fmt.Sprintf("    %s\n", InterpretDeviation(mr.AvgDeviation)))
			b.WriteString(fmt.Sprintf("    %s\n", InterpretConsistency(worstSpread(&mr))))
		}
	}

	return b.String()
}

// worstSpread returns the largest per-target deviation spread, the most
// pessimistic read of a model's consistency.
func worstSpread(mr *models.ModelResult) float64 {
	var worst float64
	for _, result := range mr.Results {
		if result.DeviationStdDev > worst {
			worst = result.DeviationStdDev
		}
	}
	return worst
}
