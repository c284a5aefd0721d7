package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wordbench/wordbench/internal/projectconfig"
	"github.com/wordbench/wordbench/internal/wizard"
)

const exampleTopicsCSV = `topic
the ocean
a city at night
breakfast rituals
mountain weather
public libraries
`

const projectConfigTemplate = `# Wordbench project defaults. Relative paths resolve against this file.
paths:
  results: results/
  trial_logs: logs/

defaults:
  engine: %s
`

func newInitCommand() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new benchmark",
		Long: `Initialize a new word-count benchmark.

Creates a benchmark.yaml spec file, an example topics.csv, and a
.wordbench.yaml project config with sensible defaults.

Use --interactive to run a guided wizard that collects the benchmark
parameters instead of writing the defaults.

If no directory is specified, the current directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return initCommandE(cmd, args, interactive)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run the guided benchmark wizard")

	return cmd
}

func initCommandE(cmd *cobra.Command, args []string, interactive bool) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	// Create the root directory if it doesn't exist
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	draft := defaultDraft()
	if interactive {
		collected, err := wizard.RunSpecWizard(cmd.InOrStdin(), cmd.OutOrStdout(), draft.Name)
		if err != nil {
			return fmt.Errorf("wizard failed: %w", err)
		}
		draft = collected
	}

	content, err := wizard.GenerateSpecYAML(draft)
	if err != nil {
		return fmt.Errorf("failed to generate spec: %w", err)
	}

	specPath := filepath.Join(dir, "benchmark.yaml")
	if err := os.WriteFile(specPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write benchmark.yaml: %w", err)
	}
	created := []string{specPath}

	// Scaffold an example topics file next to the spec, unless the draft
	// points at an existing corpus elsewhere.
	if draft.TopicsFile != "" && !filepath.IsAbs(draft.TopicsFile) {
		topicsPath := filepath.Join(dir, draft.TopicsFile)
		if _, err := os.Stat(topicsPath); os.IsNotExist(err) {
			if err := os.MkdirAll(filepath.Dir(topicsPath), 0o755); err != nil {
				return fmt.Errorf("failed to create topics directory: %w", err)
			}
			if err := os.WriteFile(topicsPath, []byte(exampleTopicsCSV), 0o644); err != nil {
				return fmt.Errorf("failed to write topics file: %w", err)
			}
			created = append(created, topicsPath)
		}
	}

	// Project config scaffold; an existing file is never overwritten.
	configPath := filepath.Join(dir, projectconfig.ConfigFileName)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		engine := draft.Engine
		if engine == "" {
			engine = projectconfig.DefaultEngine
		}
		scaffold := fmt.Sprintf(projectConfigTemplate, engine)
		if err := os.WriteFile(configPath, []byte(scaffold), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", projectconfig.ConfigFileName, err)
		}
		created = append(created, configPath)
	}

	// Print summary
	fmt.Fprintln(cmd.OutOrStdout(), "Initialized benchmark:") //nolint:errcheck
	for _, path := range created {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", path) //nolint:errcheck
	}

	return nil
}

// defaultDraft is the non-interactive scaffold: project defaults plus an
// example topics file.
func defaultDraft() *wizard.SpecDraft {
	proj := projectconfig.New()
	return &wizard.SpecDraft{
		Name:            "my-benchmark",
		Description:     "How closely these models hit an exact word count.",
		Models:          proj.Defaults.Models,
		WordTargets:     proj.Defaults.WordTargets,
		TrialsPerTarget: proj.Defaults.Trials,
		Temperature:     *proj.Defaults.Temperature,
		TopicsFile:      "topics.csv",
		Engine:          proj.Defaults.Engine,
	}
}
