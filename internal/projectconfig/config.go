// Package projectconfig provides the ProjectConfig struct and loader for
// .wordbench.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/wordbench/wordbench/internal/utils"
)

// ConfigFileName is the file Load searches for, walking up from the start
// directory.
const ConfigFileName = ".wordbench.yaml"

// Default values for project configuration. These are the single source of
// truth; New() references them and no other code should duplicate them.
const (
	DefaultResultsDir  = "results/"
	DefaultTrialLogDir = "logs/"

	DefaultEngine      = "ollama"
	DefaultModel       = "llama3.2"
	DefaultTrials      = 5
	DefaultTemperature = 0.3

	DefaultCacheDir = ".wordbench-cache"
)

// DefaultWordTargets is the target set used when an invocation does not
// specify its own.
var DefaultWordTargets = []int{10, 25, 50}

// PathsConfig holds file and directory locations. Relative values in a
// config file resolve against the directory the file was found in.
type PathsConfig struct {
	// Results is where run reports are written.
	Results string `yaml:"results,omitempty"`

	// Catalog points at a model catalog YAML file. Empty means the
	// built-in catalog.
	Catalog string `yaml:"catalog,omitempty"`

	// Topics points at a CSV file replacing the built-in topic pool.
	Topics string `yaml:"topics,omitempty"`

	// TrialLogs is where NDJSON trial logs land when enabled.
	TrialLogs string `yaml:"trial_logs,omitempty"`
}

// DefaultsConfig holds fallback run parameters for invocations that do not
// spell them out.
type DefaultsConfig struct {
	// Engine is the provider assumed for models the catalog does not
	// list.
	Engine string `yaml:"engine,omitempty"`

	Models      []string `yaml:"models,omitempty"`
	WordTargets []int    `yaml:"word_targets,omitempty"`
	Trials      int      `yaml:"trials,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
	Compress    *bool    `yaml:"compress,omitempty"`
}

// CacheConfig holds completion-cache settings.
type CacheConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// PublishConfig holds report publishing settings. Connection strings are
// credentials and stay out of config files; set
// WORDBENCH_STORAGE_CONNECTION_STRING in the environment instead.
type PublishConfig struct {
	AccountURL string `yaml:"account_url,omitempty"`
	Container  string `yaml:"container,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .wordbench.yaml.
type ProjectConfig struct {
	Paths    PathsConfig    `yaml:"paths,omitempty"`
	Defaults DefaultsConfig `yaml:"defaults,omitempty"`
	Cache    CacheConfig    `yaml:"cache,omitempty"`
	Publish  PublishConfig  `yaml:"publish,omitempty"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Paths: PathsConfig{
			Results:   DefaultResultsDir,
			TrialLogs: DefaultTrialLogDir,
		},
		Defaults: DefaultsConfig{
			Engine:      DefaultEngine,
			Models:      []string{DefaultModel},
			WordTargets: slices.Clone(DefaultWordTargets),
			Trials:      DefaultTrials,
			Temperature: floatPtr(DefaultTemperature),
			Compress:    boolPtr(false),
		},
		Cache: CacheConfig{
			Enabled: boolPtr(false),
			Dir:     DefaultCacheDir,
		},
	}
}

// Load finds .wordbench.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults. Relative path
// settings resolve against the directory the file was found in, so a run
// from a subdirectory lands results where a run from the root does.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	data, configDir, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil // no file found → return defaults
		}
		return nil, fmt.Errorf("loading %s: %w", ConfigFileName, err)
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFileName, err)
	}

	// Merge file values onto defaults, then anchor relative paths at the
	// config file's directory.
	mergeConfig(cfg, &fileCfg)
	cfg.resolvePaths(configDir)
	return cfg, nil
}

// findConfigFile walks up from dir looking for .wordbench.yaml (max 10
// levels). Returns the file contents and the directory it was found in, or
// os.ErrNotExist if no config file exists. Propagates real I/O errors
// (e.g. permission denied) instead of silently swallowing them.
func findConfigFile(dir string) ([]byte, string, error) {
	// Convert to absolute path so filepath.Dir(".") walks correctly.
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, ConfigFileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, dir, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, "", os.ErrNotExist
}

func (c *ProjectConfig) resolvePaths(baseDir string) {
	c.Paths.Results = utils.ResolvePath(c.Paths.Results, baseDir)
	c.Paths.Catalog = utils.ResolvePath(c.Paths.Catalog, baseDir)
	c.Paths.Topics = utils.ResolvePath(c.Paths.Topics, baseDir)
	c.Paths.TrialLogs = utils.ResolvePath(c.Paths.TrialLogs, baseDir)
	c.Cache.Dir = utils.ResolvePath(c.Cache.Dir, baseDir)
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	// Paths
	if src.Paths.Results != "" {
		dst.Paths.Results = src.Paths.Results
	}
	if src.Paths.Catalog != "" {
		dst.Paths.Catalog = src.Paths.Catalog
	}
	if src.Paths.Topics != "" {
		dst.Paths.Topics = src.Paths.Topics
	}
	if src.Paths.TrialLogs != "" {
		dst.Paths.TrialLogs = src.Paths.TrialLogs
	}

	// Defaults
	if src.Defaults.Engine != "" {
		dst.Defaults.Engine = src.Defaults.Engine
	}
	if len(src.Defaults.Models) > 0 {
		dst.Defaults.Models = src.Defaults.Models
	}
	if len(src.Defaults.WordTargets) > 0 {
		dst.Defaults.WordTargets = src.Defaults.WordTargets
	}
	if src.Defaults.Trials != 0 {
		dst.Defaults.Trials = src.Defaults.Trials
	}
	if src.Defaults.Temperature != nil {
		dst.Defaults.Temperature = src.Defaults.Temperature
	}
	if src.Defaults.Compress != nil {
		dst.Defaults.Compress = src.Defaults.Compress
	}

	// Cache
	if src.Cache.Enabled != nil {
		dst.Cache.Enabled = src.Cache.Enabled
	}
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}

	// Publish
	if src.Publish.AccountURL != "" {
		dst.Publish.AccountURL = src.Publish.AccountURL
	}
	if src.Publish.Container != "" {
		dst.Publish.Container = src.Publish.Container
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func floatPtr(f float64) *float64 {
	return &f
}
