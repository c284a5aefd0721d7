package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wordbench/wordbench/internal/projectconfig"
	"github.com/wordbench/wordbench/internal/reporting"
	"github.com/wordbench/wordbench/internal/results"
	"github.com/wordbench/wordbench/internal/triallog"
)

var (
	reportDir       string
	reportMarkdown  bool
	reportInterpret bool
	logsDir         string
)

func newReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Inspect saved benchmark reports",
		Long: `Inspect reports and trial logs saved by earlier runs.

Reports live in the results directory (see .wordbench.yaml); trial logs
are the NDJSON files written with --trial-log.`,
	}

	cmd.AddCommand(newReportListCommand())
	cmd.AddCommand(newReportShowCommand())
	cmd.AddCommand(newReportLogsCommand())
	cmd.AddCommand(newReportTimelineCommand())

	return cmd
}

func newReportListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved reports, newest first",
		RunE:  reportListE,
	}
	cmd.Flags().StringVar(&reportDir, "dir", "", "Results directory (default: from project config)")
	return cmd
}

func reportListE(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	dir, err := resultsDir()
	if err != nil {
		return err
	}
	files, err := results.ListReports(dir)
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}
	if len(files) == 0 {
		fmt.Fprintf(out, "No reports found in %s\n", dir) //nolint:errcheck
		return nil
	}

	for _, f := range files {
		fmt.Fprintf(out, "%s  %8d  %s\n", f.ModTime.Format("2006-01-02 15:04"), f.Size, f.Name) //nolint:errcheck
	}
	return nil
}

func newReportShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [run-id-or-path]",
		Short: "Re-render a saved report",
		Long: `Re-render a saved report as the summary tables or as markdown.

The argument is a report file path or a run id to look up in the results
directory. Without an argument the newest report is shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: reportShowE,
	}
	cmd.Flags().StringVar(&reportDir, "dir", "", "Results directory (default: from project config)")
	cmd.Flags().BoolVar(&reportMarkdown, "markdown", false, "Render the report as markdown")
	cmd.Flags().BoolVar(&reportInterpret, "interpret", false, "Print a plain-language interpretation of the results")
	return cmd
}

func reportShowE(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	path, err := findReportPath(args)
	if err != nil {
		return err
	}
	report, err := results.LoadReport(path)
	if err != nil {
		return fmt.Errorf("failed to load report: %w", err)
	}

	if reportMarkdown {
		fmt.Fprint(out, reporting.RenderMarkdown(report)) //nolint:errcheck
		return nil
	}

	printSummary(out, report)
	if reportInterpret {
		fmt.Fprintln(out)                                      //nolint:errcheck
		fmt.Fprint(out, reporting.FormatSummaryReport(report)) //nolint:errcheck
	}
	return nil
}

func newReportLogsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List trial logs, newest first",
		RunE:  reportLogsE,
	}
	cmd.Flags().StringVar(&logsDir, "dir", "", "Trial log directory (default: from project config)")
	return cmd
}

func reportLogsE(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	dir, err := trialLogsDir()
	if err != nil {
		return err
	}
	files, err := triallog.ListLogs(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(out, "No trial logs found in %s\n", dir) //nolint:errcheck
			return nil
		}
		return fmt.Errorf("failed to list trial logs: %w", err)
	}
	if len(files) == 0 {
		fmt.Fprintf(out, "No trial logs found in %s\n", dir) //nolint:errcheck
		return nil
	}

	for _, f := range files {
		fmt.Fprintf(out, "%s  %6d event(s)  %s\n", f.ModTime.Format("2006-01-02 15:04"), f.NumEvents, f.Name) //nolint:errcheck
	}
	return nil
}

func newReportTimelineCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timeline [log-file]",
		Short: "Render a trial log as a timeline",
		Long: `Render a trial log as a human-readable timeline.

Without an argument the newest log in the trial log directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: reportTimelineE,
	}
	cmd.Flags().StringVar(&logsDir, "dir", "", "Trial log directory (default: from project config)")
	return cmd
}

func reportTimelineE(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) > 0 {
		path = args[0]
	} else {
		dir, err := trialLogsDir()
		if err != nil {
			return err
		}
		files, err := triallog.ListLogs(dir)
		if err != nil {
			return fmt.Errorf("failed to list trial logs: %w", err)
		}
		if len(files) == 0 {
			return fmt.Errorf("no trial logs found in %s", dir)
		}
		path = files[0].Path
	}

	events, err := triallog.ReadEvents(path)
	if err != nil {
		return err
	}
	triallog.RenderTimeline(cmd.OutOrStdout(), events)
	return nil
}

func resultsDir() (string, error) {
	if reportDir != "" {
		return reportDir, nil
	}
	proj, err := projectconfig.Load(".")
	if err != nil {
		return "", fmt.Errorf("failed to load project config: %w", err)
	}
	return proj.Paths.Results, nil
}

func trialLogsDir() (string, error) {
	if logsDir != "" {
		return logsDir, nil
	}
	proj, err := projectconfig.Load(".")
	if err != nil {
		return "", fmt.Errorf("failed to load project config: %w", err)
	}
	return proj.Paths.TrialLogs, nil
}

// findReportPath resolves the argument to a report file: an existing path
// is used as-is, a run id matches by file name prefix in the results
// directory, and no argument means the newest report.
func findReportPath(args []string) (string, error) {
	dir, err := resultsDir()
	if err != nil {
		return "", err
	}

	if len(args) > 0 {
		arg := args[0]
		if _, err := os.Stat(arg); err == nil {
			return arg, nil
		}
		files, err := results.ListReports(dir)
		if err != nil {
			return "", fmt.Errorf("failed to list reports: %w", err)
		}
		for _, f := range files {
			if strings.HasPrefix(f.Name, arg) {
				return f.Path, nil
			}
		}
		return "", fmt.Errorf("no report matches %q in %s", arg, dir)
	}

	files, err := results.ListReports(dir)
	if err != nil {
		return "", fmt.Errorf("failed to list reports: %w", err)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no reports found in %s", dir)
	}
	return files[0].Path, nil
}
