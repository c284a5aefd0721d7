package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/wordbench/wordbench/internal/models"
)

// RenderMarkdown renders a benchmark report as a Markdown document, suitable
// for posting to a pull request or pasting into a wiki.
func RenderMarkdown(report *models.BenchmarkReport) string {
	var b strings.Builder

	b.WriteString("# Word Count Benchmark Report\n\n")

	b.WriteString(fmt.Sprintf("- **Run:** %s\n", report.RunID))
	b.WriteString(fmt.Sprintf("- **Date:** %s\n", report.Timestamp.Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("- **Duration:** %v\n", time.Duration(report.DurationMs)*time.Millisecond))
	b.WriteString(fmt.Sprintf("- **Models:** %s\n", strings.Join(report.Setup.Models, ", ")))
	b.WriteString(fmt.Sprintf("- **Word targets:** %s\n", joinInts(report.Setup.WordTargets)))
	b.WriteString(fmt.Sprintf("- **Trials per target:** %d\n", report.Setup.TrialsPerTarget))
	b.WriteString(fmt.Sprintf("- **Temperature:** %g\n", report.Setup.Temperature))
	if report.Setup.Engine != "" {
		b.WriteString(fmt.Sprintf("- **Engine:** %s\n", report.Setup.Engine))
	}
	if report.Interrupted {
		b.WriteString("\n> **Note:** this run was interrupted; results cover completed groups only.\n")
	}

	if report.Summary != nil && len(report.Summary.Ranking) > 0 {
		b.WriteString("\n## Ranking\n\n")
		b.WriteString("| Rank | Model | Accuracy | Avg Deviation | Exact | Trials |\n")
		b.WriteString("|-----:|-------|---------:|--------------:|------:|-------:|\n")
		for _, entry := range report.Summary.Ranking {
			b.WriteString(fmt.Sprintf("| %d | %s | %.1f%% | %.2f | %d | %d |\n",
				entry.Rank, entry.Model, entry.Accuracy, entry.AvgDeviation, entry.ExactMatches, entry.TotalTrials))
		}
	}

	if report.Summary != nil && len(report.Summary.Targets) > 0 {
		b.WriteString("\n## Results by Target\n")
		for _, target := range report.Summary.Targets {
			b.WriteString(fmt.Sprintf("\n### %d words\n\n", target.Target))
			b.WriteString(fmt.Sprintf("Best: **%s** (%.1f%%)\n\n", target.Best, target.BestAccuracy))
			b.WriteString("| Model | Accuracy | Avg Deviation |\n")
			b.WriteString("|-------|---------:|--------------:|\n")
			for _, entry := range target.Entries {
				b.WriteString(fmt.Sprintf("| %s | %.1f%% | %.2f |\n",
					entry.Model, entry.Accuracy, entry.AvgDeviation))
			}
		}
	}

	return b.String()
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}
