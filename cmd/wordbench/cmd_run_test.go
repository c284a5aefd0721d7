package main

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordbench/wordbench/internal/catalog"
	"github.com/wordbench/wordbench/internal/models"
	"github.com/wordbench/wordbench/internal/projectconfig"
	"github.com/wordbench/wordbench/internal/results"
)

// resetRunGlobals zeroes the package-level flag vars so prior tests don't leak.
func resetRunGlobals() {
	modelOverrides = nil
	wordTargets = nil
	trialsPerRun = 0
	temperature = 0
	engineOverride = ""
	onlyPatterns = nil
	topicsPath = ""
	runCatalogPath = ""
	outputPath = ""
	noSave = false
	junitPath = ""
	csvPath = ""
	trialLogDir = ""
	enableCache = false
	disableCache = false
	runCacheDir = ""
	compressReport = false
	publishTarget = ""
	failUnder = 0
	randomSeed = 0
	verbose = false
	interpret = false
}

// helper creates a valid minimal benchmark spec YAML in a temp dir and
// returns the spec path. One model, one small target, one trial, so mock
// runs finish instantly.
func createBenchSpec(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	spec := `name: count-check
description: Word count accuracy check
models:
  - llama3.2
word_targets: [5]
trials_per_target: 1
temperature: 0
`
	specPath := filepath.Join(dir, "benchmark.yaml")
	require.NoError(t, os.WriteFile(specPath, []byte(spec), 0o644))
	return specPath
}

// ---------------------------------------------------------------------------
// Argument validation
// ---------------------------------------------------------------------------

func TestRunCommand_RejectsExtraArgs(t *testing.T) {
	resetRunGlobals()

	cmd := newRunCommand()
	cmd.SetArgs([]string{"a.yaml", "b.yaml"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	assert.Error(t, err, "expected error for two spec arguments")
}

// ---------------------------------------------------------------------------
// Flag parsing
// ---------------------------------------------------------------------------

func TestRunCommand_FlagsParsed(t *testing.T) {
	cmd := newRunCommand()

	// Parse flags without executing to verify they bind.
	require.NoError(t, cmd.ParseFlags([]string{
		"--model", "llama3.2",
		"--model", "phi3",
		"--words", "10,25",
		"--trials", "3",
		"--temperature", "0.7",
		"--engine", "mock",
		"--fail-under", "80",
		"--seed", "42",
	}))

	vals, err := cmd.Flags().GetStringArray("model")
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.2", "phi3"}, vals)

	targets, err := cmd.Flags().GetIntSlice("words")
	require.NoError(t, err)
	assert.Equal(t, []int{10, 25}, targets)

	trials, err := cmd.Flags().GetInt("trials")
	require.NoError(t, err)
	assert.Equal(t, 3, trials)

	temp, err := cmd.Flags().GetFloat64("temperature")
	require.NoError(t, err)
	assert.Equal(t, 0.7, temp)

	engine, err := cmd.Flags().GetString("engine")
	require.NoError(t, err)
	assert.Equal(t, "mock", engine)

	threshold, err := cmd.Flags().GetFloat64("fail-under")
	require.NoError(t, err)
	assert.Equal(t, 80.0, threshold)

	seed, err := cmd.Flags().GetInt64("seed")
	require.NoError(t, err)
	assert.Equal(t, int64(42), seed)
}

func TestRunCommand_ShortFlags(t *testing.T) {
	tmpOut := filepath.Join(t.TempDir(), "out.json")

	cmd := newRunCommand()
	require.NoError(t, cmd.ParseFlags([]string{
		"-o", tmpOut,
		"-v",
	}))

	val, err := cmd.Flags().GetString("output")
	require.NoError(t, err)
	assert.Equal(t, tmpOut, val)

	boolVal, err := cmd.Flags().GetBool("verbose")
	require.NoError(t, err)
	assert.True(t, boolVal)
}

// ---------------------------------------------------------------------------
// Error handling
// ---------------------------------------------------------------------------

func TestRunCommand_MissingSpecFile(t *testing.T) {
	resetRunGlobals()

	cmd := newRunCommand()
	cmd.SetArgs([]string{"nonexistent.yaml"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load spec")
}

func TestRunCommand_InvalidSpecFile(t *testing.T) {
	resetRunGlobals()

	dir := t.TempDir()
	badSpec := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badSpec, []byte("foo: [bar"), 0o644))

	cmd := newRunCommand()
	cmd.SetArgs([]string{badSpec})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load spec")
}

func TestRunCommand_UnknownModelInSpec(t *testing.T) {
	resetRunGlobals()

	dir := t.TempDir()
	spec := `name: typo-check
models:
  - no-such-model
word_targets: [5]
trials_per_target: 1
temperature: 0
`
	specPath := filepath.Join(dir, "benchmark.yaml")
	require.NoError(t, os.WriteFile(specPath, []byte(spec), 0o644))

	cmd := newRunCommand()
	cmd.SetArgs([]string{specPath})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model")
}

func TestRunCommand_UnknownEngine(t *testing.T) {
	resetRunGlobals()

	specPath := createBenchSpec(t)

	cmd := newRunCommand()
	cmd.SetArgs([]string{specPath, "--engine", "nonexistent-engine"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestRunCommand_OnlyFilterNoMatch(t *testing.T) {
	resetRunGlobals()

	specPath := createBenchSpec(t)

	cmd := newRunCommand()
	cmd.SetArgs([]string{specPath, "--only", "gpt*"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no models match")
}

// ---------------------------------------------------------------------------
// Full runs with the mock engine
// ---------------------------------------------------------------------------

func TestRunCommand_MockEngineRun(t *testing.T) {
	resetRunGlobals()

	specPath := createBenchSpec(t)

	cmd := newRunCommand()
	cmd.SetArgs([]string{specPath, "--engine", "mock", "--no-save"})

	// Suppress stdout/stderr noise during test
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	assert.NoError(t, err)
}

func TestRunCommand_MockEngineVerbose(t *testing.T) {
	resetRunGlobals()

	specPath := createBenchSpec(t)

	cmd := newRunCommand()
	cmd.SetArgs([]string{specPath, "--engine", "mock", "--no-save", "--verbose"})

	err := cmd.Execute()
	assert.NoError(t, err)
}

func TestRunCommand_OutputJSON(t *testing.T) {
	resetRunGlobals()

	specPath := createBenchSpec(t)
	outFile := filepath.Join(t.TempDir(), "report.json")

	cmd := newRunCommand()
	cmd.SetArgs([]string{specPath, "--engine", "mock", "--output", outFile})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.NoError(t, err)

	// Verify JSON output was written and is valid
	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Greater(t, len(data), 0)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))
	assert.NotEmpty(t, result["run_id"])

	modelResults, ok := result["models"].([]any)
	require.True(t, ok, "report should carry a models array")
	require.Len(t, modelResults, 1)

	first, ok := modelResults[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "llama3.2", first["model"])

	// The mock engine returns exactly the requested word count, so the
	// run lands at full accuracy.
	assert.Equal(t, 100.0, first["overall_accuracy"])
}

func TestRunCommand_SavesReportByDefault(t *testing.T) {
	resetRunGlobals()
	t.Chdir(t.TempDir())

	specPath := createBenchSpec(t)

	cmd := newRunCommand()
	cmd.SetArgs([]string{specPath, "--engine", "mock"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.NoError(t, err)

	// Without --output or --no-save the report lands in the project's
	// results directory under its run id.
	reports, err := results.ListReports(projectconfig.DefaultResultsDir)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Greater(t, reports[0].Size, int64(0))
}

func TestRunCommand_AdHocModels(t *testing.T) {
	resetRunGlobals()
	t.Chdir(t.TempDir())

	// No spec file: models, targets, and trials all come from flags, and
	// the model id is not in the catalog.
	cmd := newRunCommand()
	cmd.SetArgs([]string{
		"--model", "test-model",
		"--words", "5",
		"--trials", "1",
		"--engine", "mock",
		"--no-save",
	})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	assert.NoError(t, err)
}

func TestRunCommand_JUnitAndCSVExports(t *testing.T) {
	resetRunGlobals()

	specPath := createBenchSpec(t)
	dir := t.TempDir()
	junitFile := filepath.Join(dir, "junit.xml")
	csvFile := filepath.Join(dir, "trials.csv")

	cmd := newRunCommand()
	cmd.SetArgs([]string{
		specPath,
		"--engine", "mock",
		"--no-save",
		"--junit", junitFile,
		"--csv", csvFile,
	})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.NoError(t, err)

	junitData, err := os.ReadFile(junitFile)
	require.NoError(t, err)
	assert.Contains(t, string(junitData), "<testsuites")

	csvData, err := os.ReadFile(csvFile)
	require.NoError(t, err)
	assert.Contains(t, string(csvData), "run_id,model,provider,target,trial")
}

func TestRunCommand_TrialLogWritten(t *testing.T) {
	resetRunGlobals()

	specPath := createBenchSpec(t)
	logDir := filepath.Join(t.TempDir(), "logs")

	cmd := newRunCommand()
	cmd.SetArgs([]string{specPath, "--engine", "mock", "--no-save", "--trial-log", logDir})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(logDir, "*-trials.jsonl"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	info, err := os.Stat(matches[0])
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0), "trial log should have at least one event")
}

func TestRunCommand_CacheRoundTrip(t *testing.T) {
	resetRunGlobals()

	specPath := createBenchSpec(t)
	cacheDir := filepath.Join(t.TempDir(), "cache")

	runOnce := func() error {
		cmd := newRunCommand()
		cmd.SetArgs([]string{
			specPath,
			"--engine", "mock",
			"--no-save",
			"--cache",
			"--cache-dir", cacheDir,
		})
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		return cmd.Execute()
	}

	require.NoError(t, runOnce())

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "first run should populate the cache")

	// Second run replays from the cache.
	resetRunGlobals()
	assert.NoError(t, runOnce())
}

func TestRunCommand_CustomTopics(t *testing.T) {
	resetRunGlobals()

	specPath := createBenchSpec(t)
	topicsFile := filepath.Join(t.TempDir(), "topics.csv")
	require.NoError(t, os.WriteFile(topicsFile, []byte("topic\nthe deep sea\nold maps\n"), 0o644))

	cmd := newRunCommand()
	cmd.SetArgs([]string{specPath, "--engine", "mock", "--no-save", "--topics", topicsFile})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	assert.NoError(t, err)
}

func TestRunCommand_InterpretRunsMock(t *testing.T) {
	resetRunGlobals()

	specPath := createBenchSpec(t)

	cmd := newRunCommand()
	cmd.SetArgs([]string{specPath, "--engine", "mock", "--no-save", "--interpret"})

	err := cmd.Execute()
	assert.NoError(t, err)
}

// ---------------------------------------------------------------------------
// Exit code behavior
// ---------------------------------------------------------------------------

func TestRunCommand_FailUnderTrips(t *testing.T) {
	resetRunGlobals()

	specPath := createBenchSpec(t)

	// Mock trials hit the target exactly, so a threshold above 100 must trip.
	cmd := newRunCommand()
	cmd.SetArgs([]string{specPath, "--engine", "mock", "--no-save", "--fail-under", "101"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)

	var thresholdErr *ThresholdError
	assert.True(t, errors.As(err, &thresholdErr), "expected ThresholdError type")
	assert.Contains(t, err.Error(), "below the --fail-under threshold")
}

func TestRunCommand_FailUnderPasses(t *testing.T) {
	resetRunGlobals()

	specPath := createBenchSpec(t)

	cmd := newRunCommand()
	cmd.SetArgs([]string{specPath, "--engine", "mock", "--no-save", "--fail-under", "50"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	assert.NoError(t, err)
}

func TestRunCommand_ReturnsRegularErrorOnConfigFailure(t *testing.T) {
	resetRunGlobals()

	specPath := createBenchSpec(t)

	cmd := newRunCommand()
	cmd.SetArgs([]string{specPath, "--engine", "nonexistent-engine"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)

	// Verify it's NOT a ThresholdError (it's a config error)
	var thresholdErr *ThresholdError
	assert.False(t, errors.As(err, &thresholdErr), "expected regular error, not ThresholdError")
}

// ---------------------------------------------------------------------------
// Spec assembly
// ---------------------------------------------------------------------------

func TestBuildSpec_FlagOverrides(t *testing.T) {
	resetRunGlobals()

	specPath := createBenchSpec(t)

	cmd := newRunCommand()
	require.NoError(t, cmd.ParseFlags([]string{
		"--model", "phi3",
		"--words", "30",
		"--trials", "3",
		"--temperature", "0.9",
	}))

	spec, err := buildSpec(cmd, specPath, projectconfig.New())
	require.NoError(t, err)

	assert.Equal(t, "count-check", spec.Name, "name comes from the spec file")
	assert.Equal(t, []string{"phi3"}, spec.Models)
	assert.Equal(t, []int{30}, spec.WordTargets)
	assert.Equal(t, 3, spec.TrialsPerTarget)
	assert.Equal(t, 0.9, spec.Temperature)
}

func TestBuildSpec_AdHocDefaults(t *testing.T) {
	resetRunGlobals()

	cmd := newRunCommand()
	require.NoError(t, cmd.ParseFlags(nil))

	spec, err := buildSpec(cmd, "", projectconfig.New())
	require.NoError(t, err)

	assert.Equal(t, "ad-hoc", spec.Name)
	assert.Equal(t, []string{projectconfig.DefaultModel}, spec.Models)
	assert.Equal(t, projectconfig.DefaultWordTargets, spec.WordTargets)
	assert.Equal(t, projectconfig.DefaultTrials, spec.TrialsPerTarget)
	assert.Equal(t, projectconfig.DefaultTemperature, spec.Temperature)
}

func TestBuildSpec_ZeroTemperatureOverride(t *testing.T) {
	resetRunGlobals()

	// --temperature 0 must override the spec's nonzero value; the override
	// keys off the flag being set, not the value being nonzero.
	dir := t.TempDir()
	spec := `name: warm
models: [llama3.2]
word_targets: [10]
trials_per_target: 1
temperature: 0.8
`
	specPath := filepath.Join(dir, "benchmark.yaml")
	require.NoError(t, os.WriteFile(specPath, []byte(spec), 0o644))

	cmd := newRunCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--temperature", "0"}))

	loaded, err := buildSpec(cmd, specPath, projectconfig.New())
	require.NoError(t, err)
	assert.Equal(t, 0.0, loaded.Temperature)
}

// ---------------------------------------------------------------------------
// Catalog extension for command-line models
// ---------------------------------------------------------------------------

func TestExtendCatalogForAdHoc(t *testing.T) {
	cat := catalog.Default()

	extended := extendCatalogForAdHoc(cat, []string{"llama3.2", "brand-new-model"}, catalog.ProviderMock)

	entry, err := extended.Resolve("brand-new-model")
	require.NoError(t, err)
	assert.Equal(t, catalog.ProviderMock, entry.Provider)

	// Known models keep their catalog provider.
	entry, err = extended.Resolve("llama3.2")
	require.NoError(t, err)
	assert.Equal(t, catalog.ProviderOllama, entry.Provider)
}

func TestExtendCatalogForAdHoc_NoUnknowns(t *testing.T) {
	cat := catalog.Default()

	extended := extendCatalogForAdHoc(cat, []string{"llama3.2"}, catalog.ProviderMock)
	assert.Same(t, cat, extended, "catalog should be returned unchanged when every id resolves")
}

// ---------------------------------------------------------------------------
// Topics resolution
// ---------------------------------------------------------------------------

func TestResolveTopicsPath(t *testing.T) {
	proj := projectconfig.New()
	proj.Paths.Topics = "/proj/topics.csv"

	tests := []struct {
		name     string
		flag     string
		specPath string
		spec     *models.BenchmarkSpec
		want     string
	}{
		{
			name: "flag wins",
			flag: "/flag/topics.csv",
			spec: &models.BenchmarkSpec{TopicsFile: "other.csv"},
			want: "/flag/topics.csv",
		},
		{
			name:     "spec relative to spec dir",
			specPath: "/specs/benchmark.yaml",
			spec:     &models.BenchmarkSpec{TopicsFile: "topics.csv"},
			want:     filepath.Join("/specs", "topics.csv"),
		},
		{
			name:     "spec absolute kept",
			specPath: "/specs/benchmark.yaml",
			spec:     &models.BenchmarkSpec{TopicsFile: "/data/topics.csv"},
			want:     "/data/topics.csv",
		},
		{
			name: "project fallback",
			spec: &models.BenchmarkSpec{},
			want: "/proj/topics.csv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetRunGlobals()
			topicsPath = tt.flag

			got := resolveTopicsPath(tt.specPath, tt.spec, proj)
			assert.Equal(t, tt.want, got)
		})
	}
}

// ---------------------------------------------------------------------------
// Publish target resolution
// ---------------------------------------------------------------------------

func TestResolvePublishConfig(t *testing.T) {
	proj := projectconfig.New()
	proj.Publish.AccountURL = "https://team.blob.core.windows.net"
	proj.Publish.Container = "team-results"

	t.Run("empty target uses project config", func(t *testing.T) {
		cfg := resolvePublishConfig("", proj)
		assert.Equal(t, "https://team.blob.core.windows.net", cfg.AccountURL)
		assert.Equal(t, "team-results", cfg.Container)
	})

	t.Run("bare name overrides container only", func(t *testing.T) {
		cfg := resolvePublishConfig("nightly", proj)
		assert.Equal(t, "https://team.blob.core.windows.net", cfg.AccountURL)
		assert.Equal(t, "nightly", cfg.Container)
	})

	t.Run("container URL sets account and container", func(t *testing.T) {
		cfg := resolvePublishConfig("https://other.blob.core.windows.net/runs", proj)
		assert.Equal(t, "https://other.blob.core.windows.net", cfg.AccountURL)
		assert.Equal(t, "runs", cfg.Container)
	})

	t.Run("query string is stripped", func(t *testing.T) {
		cfg := resolvePublishConfig("https://other.blob.core.windows.net/runs?sv=2024&sig=secret", proj)
		assert.Equal(t, "https://other.blob.core.windows.net", cfg.AccountURL)
		assert.Equal(t, "runs", cfg.Container)
	})

	t.Run("account URL without container keeps project container", func(t *testing.T) {
		cfg := resolvePublishConfig("https://other.blob.core.windows.net", proj)
		assert.Equal(t, "https://other.blob.core.windows.net", cfg.AccountURL)
		assert.Equal(t, "team-results", cfg.Container)
	})

	t.Run("connection string comes from the environment", func(t *testing.T) {
		t.Setenv(storageConnectionEnv, "UseDevelopmentStorage=true")
		cfg := resolvePublishConfig("nightly", proj)
		assert.Equal(t, "UseDevelopmentStorage=true", cfg.ConnectionString)
	})
}

// ---------------------------------------------------------------------------
// Root command wiring
// ---------------------------------------------------------------------------

func TestRootCommand_HasRunSubcommand(t *testing.T) {
	root := newRootCommand()
	found := false
	for _, c := range root.Commands() {
		if c.Name() == "run" {
			found = true
			break
		}
	}
	assert.True(t, found, "root command should have 'run' subcommand")
}
