package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wordbench/wordbench/internal/cache"
	"github.com/wordbench/wordbench/internal/catalog"
	"github.com/wordbench/wordbench/internal/config"
	"github.com/wordbench/wordbench/internal/dataset"
	"github.com/wordbench/wordbench/internal/execution"
	"github.com/wordbench/wordbench/internal/models"
	"github.com/wordbench/wordbench/internal/orchestration"
	"github.com/wordbench/wordbench/internal/projectconfig"
	"github.com/wordbench/wordbench/internal/reporting"
	"github.com/wordbench/wordbench/internal/results"
	"github.com/wordbench/wordbench/internal/spinner"
	"github.com/wordbench/wordbench/internal/triallog"
)

// storageConnectionEnv names the environment variable that carries the
// Azure Storage connection string for --publish. Connection strings are
// credentials, so they never appear in config files or flags.
const storageConnectionEnv = "WORDBENCH_STORAGE_CONNECTION_STRING"

var (
	modelOverrides []string
	wordTargets    []int
	trialsPerRun   int
	temperature    float64
	engineOverride string
	onlyPatterns   []string
	topicsPath     string
	runCatalogPath string
	outputPath     string
	noSave         bool
	junitPath      string
	csvPath        string
	trialLogDir    string
	enableCache    bool
	disableCache   bool
	runCacheDir    string
	compressReport bool
	publishTarget  string
	failUnder      float64
	randomSeed     int64
	verbose        bool
	interpret      bool
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [spec.yaml]",
		Short: "Run a word-count benchmark",
		Long: `Run a word-count benchmark from a spec file or from inline flags.

A spec file defines the models, word-count targets, trials per target, and
sampling temperature. Without a spec file, the same parameters come from
--model, --words, --trials, and --temperature, falling back to the
.wordbench.yaml project defaults.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCommandE,
	}

	cmd.Flags().StringArrayVar(&modelOverrides, "model", nil, "Model to benchmark (overrides spec, can be repeated)")
	cmd.Flags().IntSliceVar(&wordTargets, "words", nil, "Word-count targets (overrides spec, e.g. 10,25,50)")
	cmd.Flags().IntVar(&trialsPerRun, "trials", 0, "Trials per (model, target) pair (overrides spec)")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "Sampling temperature (overrides spec)")
	cmd.Flags().StringVar(&engineOverride, "engine", "", "Force every model through one engine: ollama, openai, copilot, mock")
	cmd.Flags().StringArrayVar(&onlyPatterns, "only", nil, "Filter models by id glob pattern (can be repeated)")
	cmd.Flags().StringVar(&topicsPath, "topics", "", "CSV file with a 'topic' column replacing the built-in topic pool")
	cmd.Flags().StringVar(&runCatalogPath, "catalog", "", "Model catalog YAML overlay file")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Report JSON path (default: timestamped file in the results directory)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Skip writing the report file")
	cmd.Flags().StringVar(&junitPath, "junit", "", "Write a JUnit XML report to this path")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Write a per-trial CSV export to this path")
	cmd.Flags().StringVar(&trialLogDir, "trial-log", "", "Directory for an NDJSON log of every trial")
	cmd.Flags().BoolVar(&enableCache, "cache", false, "Enable the completion response cache")
	cmd.Flags().BoolVar(&disableCache, "no-cache", false, "Disable the completion response cache")
	cmd.Flags().StringVar(&runCacheDir, "cache-dir", "", "Cache directory (default: .wordbench-cache)")
	cmd.Flags().BoolVar(&compressReport, "compress", false, "Gzip the report file")
	cmd.Flags().StringVar(&publishTarget, "publish", "", "Publish the report to Azure Blob Storage (container URL or container name)")
	cmd.Flags().Float64Var(&failUnder, "fail-under", 0, "Exit 1 when the best model's overall accuracy is below this percentage")
	cmd.Flags().Int64Var(&randomSeed, "seed", 0, "Seed for topic selection (0 seeds from the clock)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output with per-trial progress")
	cmd.Flags().BoolVar(&interpret, "interpret", false, "Print a plain-language interpretation of the results")

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string) error {
	proj, err := projectconfig.Load(".")
	if err != nil {
		return fmt.Errorf("failed to load project config: %w", err)
	}

	specPath := ""
	if len(args) > 0 {
		specPath = args[0]
	}

	spec, err := buildSpec(cmd, specPath, proj)
	if err != nil {
		return err
	}

	// Restrict the model list before any engine is built
	spec.Models, err = orchestration.FilterModels(spec.Models, onlyPatterns)
	if err != nil {
		return err
	}
	if len(spec.Models) == 0 {
		return fmt.Errorf("no models match the --only filters %v", onlyPatterns)
	}

	cat, err := loadCatalog(proj)
	if err != nil {
		return err
	}
	// Models named on the command line may be absent from the catalog;
	// assume the project's default provider for those.
	cat = extendCatalogForAdHoc(cat, modelOverrides, catalog.Provider(proj.Defaults.Engine))

	topicsFile := resolveTopicsPath(specPath, spec, proj)
	var topics []string
	if topicsFile != "" {
		topics, err = dataset.LoadTopics(topicsFile)
		if err != nil {
			return fmt.Errorf("failed to load topics: %w", err)
		}
	}

	cacheDir := runCacheDir
	if cacheDir == "" {
		cacheDir = proj.Cache.Dir
	}

	cfg := config.NewBenchmarkConfig(spec,
		config.WithSpecPath(specPath),
		config.WithCatalogPath(proj.Paths.Catalog),
		config.WithEngineOverride(engineOverride),
		config.WithOutputPath(outputPath),
		config.WithTrialLogPath(trialLogDir),
		config.WithTopicsPath(topicsFile),
		config.WithCacheDir(cacheDir),
		config.WithSeed(randomSeed),
		config.WithVerbose(verbose),
	)

	registry, err := execution.BuildRegistry(cat, spec.Models, catalog.Provider(engineOverride))
	if err != nil {
		return err
	}

	runnerOpts := []orchestration.RunnerOption{
		orchestration.WithTopics(topics),
	}

	useCaching := (enableCache || *proj.Cache.Enabled) && !disableCache
	if useCaching {
		absCacheDir, err := filepath.Abs(cfg.CacheDir())
		if err != nil {
			return fmt.Errorf("resolving cache directory: %w", err)
		}
		runnerOpts = append(runnerOpts, orchestration.WithCache(cache.New(absCacheDir)))
		if verbose {
			fmt.Printf("Cache enabled: %s\n", absCacheDir)
			if !cache.Deterministic(spec.Temperature) {
				fmt.Println("Note: temperature is above zero; cache hits replay one sample of a random distribution")
			}
		}
	}

	if cfg.TrialLogPath() != "" {
		logPath := triallog.DefaultLogPath(cfg.TrialLogPath())
		logger, err := triallog.NewJSONLogger(logPath)
		if err != nil {
			return fmt.Errorf("failed to open trial log: %w", err)
		}
		defer logger.Close() //nolint:errcheck
		runnerOpts = append(runnerOpts, orchestration.WithTrialLog(logger))
		fmt.Printf("Trial log: %s\n", logPath)
	}

	if cmd.Flags().Changed("seed") {
		runnerOpts = append(runnerOpts, orchestration.WithRandomSource(rand.New(rand.NewSource(cfg.Seed()))))
	}

	engine := orchestration.NewBenchmarkEngine(cfg, cat, registry, runnerOpts...)

	// Add progress listener
	if verbose {
		engine.OnProgress(verboseProgressListener)
	} else if term.IsTerminal(int(os.Stdout.Fd())) {
		engine.OnProgress(newSpinnerListener(os.Stdout))
	} else {
		engine.OnProgress(simpleProgressListener)
	}

	fmt.Printf("Running benchmark: %s\n", spec.Name)
	fmt.Printf("Models: %s\n", strings.Join(spec.Models, ", "))
	fmt.Printf("Targets: %s words\n", joinInts(spec.WordTargets))
	fmt.Printf("Trials per target: %d\n", spec.TrialsPerTarget)
	fmt.Printf("Temperature: %g\n", spec.Temperature)
	if engineOverride != "" {
		fmt.Printf("Engine: %s (forced)\n", engineOverride)
	}
	fmt.Println()

	// Ctrl-C stops the matrix between trials; the report then covers only
	// the groups that fully completed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := engine.Execute(ctx)
	if err != nil {
		return fmt.Errorf("benchmark failed: %w", err)
	}

	printSummary(os.Stdout, report)

	if interpret {
		fmt.Println()
		fmt.Print(reporting.FormatSummaryReport(report))
	}

	compressed := *proj.Defaults.Compress
	if cmd.Flags().Changed("compress") {
		compressed = compressReport
	}

	if !noSave {
		savePath := outputPath
		if savePath == "" {
			savePath = results.DefaultReportPath(proj.Paths.Results, report.RunID, compressed)
		}
		if err := results.WriteReport(report, savePath); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		fmt.Printf("\nReport saved to: %s\n", savePath)
	}

	if report.Interrupted {
		// Partial data would mislead CI consumers, so exports, publishing,
		// and the accuracy threshold are skipped.
		return fmt.Errorf("benchmark interrupted before completion")
	}

	if junitPath != "" {
		if err := reporting.WriteJUnitXML(report, junitPath); err != nil {
			return fmt.Errorf("failed to write JUnit report: %w", err)
		}
		fmt.Printf("JUnit report: %s\n", junitPath)
	}

	if csvPath != "" {
		if err := reporting.WriteCSVFile(report, csvPath); err != nil {
			return fmt.Errorf("failed to write CSV export: %w", err)
		}
		fmt.Printf("CSV export: %s\n", csvPath)
	}

	if publishTarget != "" {
		publisher, err := results.NewPublisher(resolvePublishConfig(publishTarget, proj))
		if err != nil {
			return fmt.Errorf("failed to configure publisher: %w", err)
		}
		uploaded, err := publisher.Publish(ctx, report)
		if err != nil {
			return fmt.Errorf("failed to publish report: %w", err)
		}
		for _, name := range uploaded {
			fmt.Printf("Published: %s\n", name)
		}
	}

	if failUnder > 0 && report.Summary != nil && len(report.Summary.Ranking) > 0 {
		best := report.Summary.Ranking[0]
		if best.Accuracy < failUnder {
			return &ThresholdError{
				Message: fmt.Sprintf("best model %s reached %.1f%% accuracy, below the --fail-under threshold of %.1f%%", best.Model, best.Accuracy, failUnder),
			}
		}
	}

	return nil
}

// buildSpec assembles the benchmark spec for this invocation. A spec file
// is the base when one is given; CLI flags override it, and project
// defaults fill whatever is left.
func buildSpec(cmd *cobra.Command, specPath string, proj *projectconfig.ProjectConfig) (*models.BenchmarkSpec, error) {
	var spec *models.BenchmarkSpec

	if specPath != "" {
		loaded, err := models.LoadBenchmarkSpec(specPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load spec: %w", err)
		}
		spec = loaded
	} else {
		spec = &models.BenchmarkSpec{
			Name:            "ad-hoc",
			Models:          proj.Defaults.Models,
			WordTargets:     proj.Defaults.WordTargets,
			TrialsPerTarget: proj.Defaults.Trials,
			Temperature:     *proj.Defaults.Temperature,
		}
	}

	if len(modelOverrides) > 0 {
		spec.Models = modelOverrides
	}
	if len(wordTargets) > 0 {
		spec.WordTargets = wordTargets
	}
	if trialsPerRun > 0 {
		spec.TrialsPerTarget = trialsPerRun
	}
	if cmd.Flags().Changed("temperature") {
		spec.Temperature = temperature
	}

	return spec, nil
}

// loadCatalog returns the model catalog for this run: the --catalog flag
// wins, then the project config's catalog path, then the built-in catalog.
func loadCatalog(proj *projectconfig.ProjectConfig) (*catalog.Catalog, error) {
	path := runCatalogPath
	if path == "" {
		path = proj.Paths.Catalog
	}
	if path == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return cat, nil
}

// extendCatalogForAdHoc registers command-line models the catalog does not
// know under the given provider. Spec-file models are left alone, so a
// typo in a spec still fails with an unknown-model error.
func extendCatalogForAdHoc(cat *catalog.Catalog, ids []string, provider catalog.Provider) *catalog.Catalog {
	var extras []catalog.Entry
	for _, id := range ids {
		if _, err := cat.Resolve(id); errors.Is(err, catalog.ErrUnknownModel) {
			extras = append(extras, catalog.Entry{ID: id, Provider: provider})
		}
	}
	if len(extras) == 0 {
		return cat
	}
	return catalog.New(append(cat.List(), extras...))
}

// resolveTopicsPath picks the topics file for this run: the --topics flag,
// then the spec's topics_file (relative to the spec file), then the
// project config. Empty means the built-in topic pool.
func resolveTopicsPath(specPath string, spec *models.BenchmarkSpec, proj *projectconfig.ProjectConfig) string {
	if topicsPath != "" {
		return topicsPath
	}
	if spec.TopicsFile != "" {
		if filepath.IsAbs(spec.TopicsFile) || specPath == "" {
			return spec.TopicsFile
		}
		return filepath.Join(filepath.Dir(specPath), spec.TopicsFile)
	}
	return proj.Paths.Topics
}

// resolvePublishConfig maps the --publish flag onto publisher settings.
// The flag carries either a full container URL or a bare container name;
// the account URL and container fall back to the project config, and the
// connection string only ever comes from the environment.
func resolvePublishConfig(target string, proj *projectconfig.ProjectConfig) results.PublishConfig {
	cfg := results.PublishConfig{
		AccountURL:       proj.Publish.AccountURL,
		Container:        proj.Publish.Container,
		ConnectionString: os.Getenv(storageConnectionEnv),
	}
	if target == "" {
		return cfg
	}

	if u, err := url.Parse(target); err == nil && u.Scheme != "" && u.Host != "" {
		if container := strings.Trim(u.Path, "/"); container != "" {
			cfg.Container = container
		}
		u.Path = ""
		u.RawQuery = ""
		cfg.AccountURL = u.String()
		return cfg
	}

	cfg.Container = target
	return cfg
}

func verboseProgressListener(event orchestration.ProgressEvent) {
	switch event.EventType {
	case orchestration.EventBenchmarkStart:
		fmt.Printf("Starting benchmark: %d model(s), %d trial(s) each...\n\n", event.TotalModels, event.TotalTrials)
	case orchestration.EventModelStart:
		fmt.Printf("[%d/%d] Model: %s\n", event.ModelNum, event.TotalModels, event.Model)
	case orchestration.EventTargetStart:
		fmt.Printf("  Target: %d words\n", event.Target)
	case orchestration.EventTrialStart:
		topic, _ := event.Details["topic"].(string) //nolint:errcheck
		fmt.Printf("    Trial %d/%d (topic %q)...", event.TrialNum, event.TotalTrials, topic)
	case orchestration.EventTrialComplete, orchestration.EventTrialCached:
		fmt.Printf(" %s\n", trialOutcome(event))
	case orchestration.EventTargetComplete:
		accuracy, _ := event.Details["accuracy"].(float64)          //nolint:errcheck
		avgDeviation, _ := event.Details["avg_deviation"].(float64) //nolint:errcheck
		fmt.Printf("  Target done: accuracy %.1f%%, avg deviation %.2f (%s)\n", accuracy, avgDeviation, formatDuration(time.Duration(event.DurationMs)*time.Millisecond))
	case orchestration.EventModelComplete:
		fmt.Printf("Model %s completed in %s\n\n", event.Model, formatDuration(time.Duration(event.DurationMs)*time.Millisecond))
	case orchestration.EventBenchmarkComplete:
		fmt.Printf("Benchmark completed in %s\n\n", formatDuration(time.Duration(event.DurationMs)*time.Millisecond))
	case orchestration.EventBenchmarkStopped:
		fmt.Printf("\nBenchmark stopped after %s\n\n", formatDuration(time.Duration(event.DurationMs)*time.Millisecond))
	}
}

func simpleProgressListener(event orchestration.ProgressEvent) {
	switch event.EventType {
	case orchestration.EventModelStart:
		fmt.Printf("[%d/%d] %s\n", event.ModelNum, event.TotalModels, event.Model)
	case orchestration.EventTrialComplete, orchestration.EventTrialCached:
		printTrialLine(os.Stdout, event)
	case orchestration.EventBenchmarkStopped:
		fmt.Println("\nStopped.")
	}
}

// newSpinnerListener animates a spinner while a trial is in flight and
// replaces it with the result line once the trial lands.
func newSpinnerListener(w io.Writer) orchestration.ProgressListener {
	sp := spinner.New(w)

	return func(event orchestration.ProgressEvent) {
		switch event.EventType {
		case orchestration.EventModelStart:
			sp.Stop()
			fmt.Fprintf(w, "[%d/%d] %s\n", event.ModelNum, event.TotalModels, event.Model) //nolint:errcheck
		case orchestration.EventTrialStart:
			sp.Start(fmt.Sprintf("%s target=%d trial %d/%d", event.Model, event.Target, event.TrialNum, event.TotalTrials))
		case orchestration.EventTrialComplete, orchestration.EventTrialCached:
			sp.Stop()
			printTrialLine(w, event)
		case orchestration.EventBenchmarkStopped:
			sp.Stop()
			fmt.Fprintln(w, "\nStopped.") //nolint:errcheck
		case orchestration.EventBenchmarkComplete:
			sp.Stop()
		}
	}
}

// printTrialLine renders one finished trial as a single status line.
//
//nolint:errcheck // display-only writes; errors are not actionable
func printTrialLine(w io.Writer, event orchestration.ProgressEvent) {
	icon := "✗"
	if event.Status == models.StatusOK {
		icon = "~"
		if deviation, ok := event.Details["deviation"].(int); ok && deviation == 0 {
			icon = "✓"
		}
	}
	fmt.Fprintf(w, "%s %s target=%d trial %d/%d: %s\n", icon, event.Model, event.Target, event.TrialNum, event.TotalTrials, trialOutcome(event))
}

// trialOutcome describes a finished trial: word count and deviation for
// successes, the provider error otherwise.
func trialOutcome(event orchestration.ProgressEvent) string {
	cached := ""
	if event.EventType == orchestration.EventTrialCached {
		cached = " [cached]"
	}
	if event.Status != models.StatusOK {
		msg, _ := event.Details["error"].(string) //nolint:errcheck
		return fmt.Sprintf("error: %s%s", msg, cached)
	}
	words, _ := event.Details["actual_words"].(int)  //nolint:errcheck
	deviation, _ := event.Details["deviation"].(int) //nolint:errcheck
	return fmt.Sprintf("%d words, deviation %d (%dms)%s", words, deviation, event.DurationMs, cached)
}
