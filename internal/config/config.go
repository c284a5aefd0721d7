// Package config carries the resolved runtime configuration for one
// benchmark run. The spec says what to measure; everything here says how
// this particular invocation runs it (paths, overrides, logging).
package config

import (
	"github.com/wordbench/wordbench/internal/models"
)

// BenchmarkConfig is immutable once built; all fields are set through
// functional options and read through accessors.
type BenchmarkConfig struct {
	spec           *models.BenchmarkSpec
	specPath       string
	catalogPath    string
	engineOverride string
	outputPath     string
	trialLogPath   string
	topicsPath     string
	cacheDir       string
	seed           int64
	verbose        bool
}

// Option mutates a BenchmarkConfig during construction.
type Option func(*BenchmarkConfig)

// NewBenchmarkConfig builds a config around a validated spec. Passing a nil
// option panics; passing a nil spec is allowed for callers that only need
// the path/override fields.
func NewBenchmarkConfig(spec *models.BenchmarkSpec, opts ...Option) *BenchmarkConfig {
	cfg := &BenchmarkConfig{spec: spec}
	for _, opt := range opts {
		if opt == nil {
			panic("config: nil option")
		}
		opt(cfg)
	}
	return cfg
}

func (c *BenchmarkConfig) Spec() *models.BenchmarkSpec { return c.spec }
func (c *BenchmarkConfig) SpecPath() string            { return c.specPath }
func (c *BenchmarkConfig) CatalogPath() string         { return c.catalogPath }
func (c *BenchmarkConfig) EngineOverride() string      { return c.engineOverride }
func (c *BenchmarkConfig) OutputPath() string          { return c.outputPath }
func (c *BenchmarkConfig) TrialLogPath() string        { return c.trialLogPath }
func (c *BenchmarkConfig) TopicsPath() string          { return c.topicsPath }
func (c *BenchmarkConfig) CacheDir() string            { return c.cacheDir }
func (c *BenchmarkConfig) Seed() int64                 { return c.seed }
func (c *BenchmarkConfig) Verbose() bool               { return c.verbose }

// WithSpecPath records the file the spec was loaded from.
func WithSpecPath(path string) Option {
	return func(c *BenchmarkConfig) { c.specPath = path }
}

// WithCatalogPath points at a model-catalog overlay file.
func WithCatalogPath(path string) Option {
	return func(c *BenchmarkConfig) { c.catalogPath = path }
}

// WithEngineOverride forces every model onto one engine (e.g. "mock"),
// bypassing the catalog's provider assignment.
func WithEngineOverride(engine string) Option {
	return func(c *BenchmarkConfig) { c.engineOverride = engine }
}

// WithOutputPath sets where the report JSON is written.
func WithOutputPath(path string) Option {
	return func(c *BenchmarkConfig) { c.outputPath = path }
}

// WithTrialLogPath enables the NDJSON trial log at the given path.
func WithTrialLogPath(path string) Option {
	return func(c *BenchmarkConfig) { c.trialLogPath = path }
}

// WithTopicsPath points at a CSV file that replaces the built-in topic pool.
func WithTopicsPath(path string) Option {
	return func(c *BenchmarkConfig) { c.topicsPath = path }
}

// WithCacheDir enables the completion-response cache rooted at dir.
func WithCacheDir(dir string) Option {
	return func(c *BenchmarkConfig) { c.cacheDir = dir }
}

// WithSeed fixes the topic-selection seed. Zero means seed from the clock.
func WithSeed(seed int64) Option {
	return func(c *BenchmarkConfig) { c.seed = seed }
}

// WithVerbose enables per-trial progress output.
func WithVerbose(verbose bool) Option {
	return func(c *BenchmarkConfig) { c.verbose = verbose }
}
