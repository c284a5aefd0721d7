// Package wizard collects a benchmark definition interactively and renders
// it as a spec YAML file.
package wizard

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/template"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/wordbench/wordbench/internal/models"
	"github.com/wordbench/wordbench/internal/projectconfig"
)

// SpecDraft holds all fields collected during the interactive wizard.
type SpecDraft struct {
	Name            string
	Description     string
	Models          []string
	WordTargets     []int
	TrialsPerTarget int
	Temperature     float64
	TopicsFile      string

	// Engine seeds the project config scaffold; it is not part of the
	// spec itself.
	Engine string
}

const specYAMLTemplate = `name: {{ .Name }}
{{- if .Description }}
description: >
  {{ .Description }}
{{- end }}

models:
{{- range .Models }}
  - {{ . }}
{{- end }}

word_targets:
{{- range .WordTargets }}
  - {{ . }}
{{- end }}
trials_per_target: {{ .TrialsPerTarget }}
temperature: {{ .Temperature }}
{{- if .TopicsFile }}
topics_file: {{ .TopicsFile }}
{{- end }}
`

// ValidateName rejects benchmark names that cannot serve as a file name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("benchmark name must not be empty")
	}
	cleaned := filepath.Clean(name)
	if cleaned == ".." || strings.Contains(cleaned, "/") || strings.Contains(cleaned, "\\") {
		return fmt.Errorf("benchmark name %q contains invalid path characters", name)
	}
	return nil
}

// RunSpecWizard runs an interactive huh form to collect a benchmark
// definition. If initialName is non-empty, it pre-populates the name field.
func RunSpecWizard(in io.Reader, out io.Writer, initialName string) (*SpecDraft, error) {
	var (
		name           = initialName
		description    string
		modelsRaw      = strings.Join(projectconfig.New().Defaults.Models, ", ")
		targetsRaw     string
		trialsRaw      string
		temperatureRaw string
		topicsFile     string
		engine         = projectconfig.DefaultEngine
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Benchmark name").
				Description("Used for the spec file name").
				Placeholder("word-count-benchmark").
				Value(&name).
				Validate(func(s string) error {
					return ValidateName(strings.TrimSpace(s))
				}),
			huh.NewInput().
				Title("Description").
				Description("What is this benchmark for? (optional)").
				Value(&description),
			huh.NewInput().
				Title("Models").
				Description("Comma-separated model ids to benchmark").
				Placeholder("llama3.2, gpt-4o-mini").
				Value(&modelsRaw).
				Validate(func(s string) error {
					if len(splitAndTrim(s)) == 0 {
						return fmt.Errorf("at least one model is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Word targets").
				Description(fmt.Sprintf("Comma-separated word counts between %d and %d; empty keeps the defaults", models.MinWordTarget, models.MaxWordTarget)).
				Placeholder("10, 25, 50").
				Value(&targetsRaw).
				Validate(func(s string) error {
					_, err := parseTargets(s)
					return err
				}),
			huh.NewInput().
				Title("Trials per target").
				Description(fmt.Sprintf("Between %d and %d", models.MinTrialsPerTarget, models.MaxTrialsPerTarget)).
				Placeholder(strconv.Itoa(projectconfig.DefaultTrials)).
				Value(&trialsRaw).
				Validate(func(s string) error {
					_, err := parseTrials(s)
					return err
				}),
			huh.NewInput().
				Title("Temperature").
				Description(fmt.Sprintf("Between %g and %g", models.MinTemperature, models.MaxTemperature)).
				Placeholder(strconv.FormatFloat(projectconfig.DefaultTemperature, 'g', -1, 64)).
				Value(&temperatureRaw).
				Validate(func(s string) error {
					_, err := parseTemperature(s)
					return err
				}),
			huh.NewInput().
				Title("Topics file").
				Description("CSV file with a topic column; empty keeps the built-in pool").
				Placeholder("topics.csv").
				Value(&topicsFile),
			huh.NewSelect[string]().
				Title("Default provider").
				Description("Provider assumed for models the catalog does not list").
				Options(
					huh.NewOption("ollama", "ollama"),
					huh.NewOption("openai", "openai"),
					huh.NewOption("copilot", "copilot"),
					huh.NewOption("mock", "mock"),
				).
				Value(&engine),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	targets, err := parseTargets(targetsRaw)
	if err != nil {
		return nil, err
	}
	trials, err := parseTrials(trialsRaw)
	if err != nil {
		return nil, err
	}
	temperature, err := parseTemperature(temperatureRaw)
	if err != nil {
		return nil, err
	}

	return &SpecDraft{
		Name:            strings.TrimSpace(name),
		Description:     strings.TrimSpace(description),
		Models:          splitAndTrim(modelsRaw),
		WordTargets:     targets,
		TrialsPerTarget: trials,
		Temperature:     temperature,
		TopicsFile:      strings.TrimSpace(topicsFile),
		Engine:          engine,
	}, nil
}

// GenerateSpecYAML renders a spec YAML file from the given draft.
func GenerateSpecYAML(draft *SpecDraft) (string, error) {
	tmpl, err := template.New("specyaml").Parse(specYAMLTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, draft); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

func parseTargets(s string) ([]int, error) {
	parts := splitAndTrim(s)
	if len(parts) == 0 {
		return slices.Clone(projectconfig.DefaultWordTargets), nil
	}
	targets := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("word target %q is not a number", p)
		}
		if n < models.MinWordTarget || n > models.MaxWordTarget {
			return nil, fmt.Errorf("word target %d is outside the supported range [%d, %d]", n, models.MinWordTarget, models.MaxWordTarget)
		}
		targets = append(targets, n)
	}
	return targets, nil
}

func parseTrials(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return projectconfig.DefaultTrials, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("trials %q is not a number", s)
	}
	if n < models.MinTrialsPerTarget || n > models.MaxTrialsPerTarget {
		return 0, fmt.Errorf("trials must be between %d and %d, got %d", models.MinTrialsPerTarget, models.MaxTrialsPerTarget, n)
	}
	return n, nil
}

func parseTemperature(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return projectconfig.DefaultTemperature, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("temperature %q is not a number", s)
	}
	if f < models.MinTemperature || f > models.MaxTemperature {
		return 0, fmt.Errorf("temperature must be between %g and %g, got %g", models.MinTemperature, models.MaxTemperature, f)
	}
	return f, nil
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
