package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Domain limits for benchmark parameters. Values outside these ranges are
// rejected before a run starts.
const (
	MinWordTarget = 5
	MaxWordTarget = 500

	MinTrialsPerTarget = 1
	MaxTrialsPerTarget = 50

	MinTemperature = 0.0
	MaxTemperature = 1.0
)

// BenchmarkSpec defines a word-count benchmark: which models to prompt,
// which word-count targets to request, and how many trials to run per
// (model, target) pair.
type BenchmarkSpec struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	Models          []string `yaml:"models" json:"models"`
	WordTargets     []int    `yaml:"word_targets" json:"word_targets"`
	TrialsPerTarget int      `yaml:"trials_per_target" json:"trials_per_target"`
	Temperature     float64  `yaml:"temperature" json:"temperature"`

	// TopicsFile optionally points at a CSV file whose "topic" column
	// replaces the built-in topic pool.
	TopicsFile string `yaml:"topics_file,omitempty" json:"topics_file,omitempty"`
}

// LoadBenchmarkSpec loads a spec from a YAML file
func LoadBenchmarkSpec(path string) (*BenchmarkSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var spec BenchmarkSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &spec, nil
}

// Validate checks that the spec is valid
func (s *BenchmarkSpec) Validate() error {
	if len(s.Models) == 0 {
		return fmt.Errorf("models must list at least one model")
	}
	for i, m := range s.Models {
		if m == "" {
			return fmt.Errorf("models[%d] must not be empty", i)
		}
	}
	if len(s.WordTargets) == 0 {
		return fmt.Errorf("word_targets must list at least one target")
	}
	for _, target := range s.WordTargets {
		if target < MinWordTarget || target > MaxWordTarget {
			return fmt.Errorf("word target %d is outside the supported range [%d, %d]", target, MinWordTarget, MaxWordTarget)
		}
	}
	if s.TrialsPerTarget < MinTrialsPerTarget || s.TrialsPerTarget > MaxTrialsPerTarget {
		return fmt.Errorf("trials_per_target must be between %d and %d, got %d", MinTrialsPerTarget, MaxTrialsPerTarget, s.TrialsPerTarget)
	}
	if s.Temperature < MinTemperature || s.Temperature > MaxTemperature {
		return fmt.Errorf("temperature must be between %g and %g, got %g", MinTemperature, MaxTemperature, s.Temperature)
	}
	return nil
}

// TotalTrials returns the number of trials the full matrix will run.
func (s *BenchmarkSpec) TotalTrials() int {
	return len(s.Models) * len(s.WordTargets) * s.TrialsPerTarget
}
