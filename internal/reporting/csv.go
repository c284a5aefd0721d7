package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/wordbench/wordbench/internal/models"
)

// csvHeader lists the columns of a trial-level CSV export.
var csvHeader = []string{
	"run_id", "model", "provider", "target", "trial",
	"topic", "status", "actual_words", "deviation", "duration_ms", "error",
}

// WriteCSV writes every trial of a report as one CSV row. Failed trials
// carry their error message and empty word counts.
func WriteCSV(report *models.BenchmarkReport, w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, mr := range report.Models {
		for _, result := range mr.Results {
			for i := range result.Trials {
				trial := &result.Trials[i]
				row := []string{
					report.RunID,
					mr.Model,
					mr.Provider,
					strconv.Itoa(trial.Target),
					strconv.Itoa(trial.TrialIndex),
					trial.Topic,
					string(trial.Status),
					"",
					"",
					strconv.FormatInt(trial.DurationMs, 10),
					trial.ErrorMsg,
				}
				if trial.Success() {
					row[7] = strconv.Itoa(trial.ActualWords)
					row[8] = strconv.Itoa(trial.Deviation)
				}
				if err := writer.Write(row); err != nil {
					return fmt.Errorf("writing CSV row: %w", err)
				}
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteCSVFile writes the trial-level CSV export to the given path.
func WriteCSVFile(report *models.BenchmarkReport, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating CSV file: %w", err)
	}

	if err := WriteCSV(report, f); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return f.Close()
}
