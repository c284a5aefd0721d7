package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/wordbench/wordbench/internal/models"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one benchmarked model.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one trial.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure represents a test assertion failure.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError represents an unexpected error during test execution.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitSkipped marks a test as skipped.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit converts a BenchmarkReport to JUnit XML format: one test
// suite per model, one test case per trial. A trial that missed its target
// word count maps to a failure; a trial whose completion call failed maps
// to an error.
func ConvertToJUnit(report *models.BenchmarkReport) *JUnitTestSuites {
	suites := &JUnitTestSuites{
		Time: float64(report.DurationMs) / 1000.0,
	}

	for i := range report.Models {
		suite := convertModelResult(&report.Models[i], report.Timestamp)
		suites.Tests += suite.Tests
		suites.Failures += suite.Failures
		suites.Errors += suite.Errors
		suites.TestSuites = append(suites.TestSuites, suite)
	}

	return suites
}

func convertModelResult(mr *models.ModelResult, timestamp time.Time) JUnitTestSuite {
	suite := JUnitTestSuite{
		Name:      mr.Model,
		Tests:     mr.TotalTrials,
		Timestamp: timestamp.Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "provider", Value: mr.Provider},
			{Name: "accuracy", Value: fmt.Sprintf("%.1f", mr.OverallAccuracy)},
			{Name: "avg_deviation", Value: fmt.Sprintf("%.2f", mr.AvgDeviation)},
			{Name: "exact_matches", Value: fmt.Sprintf("%d", mr.TotalExact)},
		},
	}

	var totalMs int64
	for _, result := range mr.Results {
		for i := range result.Trials {
			trial := &result.Trials[i]
			totalMs += trial.DurationMs

			tc := JUnitTestCase{
				Name:      fmt.Sprintf("target-%d/trial-%d", trial.Target, trial.TrialIndex),
				Classname: mr.Model,
				Time:      float64(trial.DurationMs) / 1000.0,
			}

			switch {
			case !trial.Success():
				suite.Errors++
				tc.Error = buildError(trial)
			case trial.Deviation != 0:
				suite.Failures++
				tc.Failure = buildFailure(trial)
			}

			suite.TestCases = append(suite.TestCases, tc)
		}
	}
	suite.Time = float64(totalMs) / 1000.0

	return suite
}

func buildFailure(trial *models.Trial) *JUnitFailure {
	return &JUnitFailure{
		Message: fmt.Sprintf("expected %d words, got %d", trial.Target, trial.ActualWords),
		Type:    "WordCountMismatch",
		Body:    fmt.Sprintf("topic: %s\ndeviation: %d", trial.Topic, trial.Deviation),
	}
}

func buildError(trial *models.Trial) *JUnitError {
	msg := trial.ErrorMsg
	if msg == "" {
		msg = "completion error"
	}
	return &JUnitError{
		Message: msg,
		Type:    "CompletionError",
	}
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(report *models.BenchmarkReport, path string) error {
	suites := ConvertToJUnit(report)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0644)
}
