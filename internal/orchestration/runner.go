// Package orchestration drives the benchmark matrix: models × word-count
// targets × trials, strictly in configured order. The engine owns every
// accumulator for the duration of a run and reports progress through
// registered listeners; it never prints or persists on its own.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/wordbench/wordbench/internal/cache"
	"github.com/wordbench/wordbench/internal/catalog"
	"github.com/wordbench/wordbench/internal/config"
	"github.com/wordbench/wordbench/internal/execution"
	"github.com/wordbench/wordbench/internal/models"
	"github.com/wordbench/wordbench/internal/triallog"
)

// ErrInvalidConfig is returned by Execute when the run configuration fails
// pre-flight validation. No trial has run when it is returned.
var ErrInvalidConfig = errors.New("invalid benchmark configuration")

// EventType identifies a progress event emitted during benchmark execution.
type EventType string

const (
	EventBenchmarkStart    EventType = "benchmark_start"
	EventBenchmarkComplete EventType = "benchmark_complete"
	EventBenchmarkStopped  EventType = "benchmark_stopped"
	EventModelStart        EventType = "model_start"
	EventModelComplete     EventType = "model_complete"
	EventTargetStart       EventType = "target_start"
	EventTargetComplete    EventType = "target_complete"
	EventTrialStart        EventType = "trial_start"
	EventTrialComplete     EventType = "trial_complete"
	EventTrialCached       EventType = "trial_cached"
)

// ProgressEvent carries details about benchmark execution progress.
type ProgressEvent struct {
	EventType   EventType
	Model       string
	ModelNum    int
	TotalModels int
	Target      int
	TrialNum    int
	TotalTrials int
	Status      models.Status
	DurationMs  int64
	Details     map[string]any
}

// ProgressListener receives progress events during benchmark execution.
type ProgressListener func(event ProgressEvent)

// BenchmarkEngine executes the full benchmark matrix sequentially: one
// completion call finishes before the next begins.
type BenchmarkEngine struct {
	cfg      *config.BenchmarkConfig
	catalog  *catalog.Catalog
	registry *execution.Registry
	trials   *TrialRunner

	cache    *cache.Cache
	trialLog triallog.Logger
	topics   []string
	random   IntSource

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// RunnerOption configures a BenchmarkEngine.
type RunnerOption func(*BenchmarkEngine)

// WithCache enables the completion-response cache for this run.
func WithCache(c *cache.Cache) RunnerOption {
	return func(e *BenchmarkEngine) {
		e.cache = c
	}
}

// WithTrialLog routes every trial into the given log.
func WithTrialLog(logger triallog.Logger) RunnerOption {
	return func(e *BenchmarkEngine) {
		if logger != nil {
			e.trialLog = logger
		}
	}
}

// WithTopics replaces the built-in topic pool.
func WithTopics(topics []string) RunnerOption {
	return func(e *BenchmarkEngine) {
		e.topics = topics
	}
}

// WithRandomSource fixes topic selection, used by tests and seeded runs.
func WithRandomSource(random IntSource) RunnerOption {
	return func(e *BenchmarkEngine) {
		e.random = random
	}
}

// NewBenchmarkEngine creates an engine around a run config, a model catalog
// and a registry of initialized-on-demand completion engines.
func NewBenchmarkEngine(cfg *config.BenchmarkConfig, cat *catalog.Catalog, registry *execution.Registry, opts ...RunnerOption) *BenchmarkEngine {
	engine := &BenchmarkEngine{
		cfg:      cfg,
		catalog:  cat,
		registry: registry,
		trialLog: triallog.NopLogger{},
	}

	for _, opt := range opts {
		opt(engine)
	}

	var temperature float64
	if spec := cfg.Spec(); spec != nil {
		temperature = spec.Temperature
	}
	engine.trials = NewTrialRunner(temperature, engine.topics, engine.random)

	return engine
}

// OnProgress registers a listener for progress events. Listeners registered
// mid-run receive subsequent events only.
func (e *BenchmarkEngine) OnProgress(listener ProgressListener) {
	e.progressMu.Lock()
	defer e.progressMu.Unlock()
	e.listeners = append(e.listeners, listener)
}

// notifyProgress snapshots the listeners under the lock and calls them
// outside it, so a slow listener cannot block registration.
func (e *BenchmarkEngine) notifyProgress(event ProgressEvent) {
	e.progressMu.Lock()
	listeners := make([]ProgressListener, len(e.listeners))
	copy(listeners, e.listeners)
	e.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// preflight validates everything that must hold before the first trial:
// spec domains, catalog resolution for every model, and an engine for every
// resolved provider.
func (e *BenchmarkEngine) preflight() error {
	spec := e.cfg.Spec()
	if spec == nil {
		return fmt.Errorf("%w: no benchmark spec", ErrInvalidConfig)
	}
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for _, id := range spec.Models {
		entry, err := e.catalog.Resolve(id)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		if _, err := e.registry.For(entry.Provider); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Execute runs the full matrix and returns the report. A trial-level
// failure never aborts the run; only pre-flight validation fails the call.
// When ctx is canceled the engine stops before the next trial, discards the
// group in progress, and returns a report covering only the groups that
// fully completed, with Interrupted set.
func (e *BenchmarkEngine) Execute(ctx context.Context) (*models.BenchmarkReport, error) {
	if err := e.preflight(); err != nil {
		return nil, err
	}

	spec := e.cfg.Spec()
	startTime := time.Now()
	runID := fmt.Sprintf("run-%s", startTime.UTC().Format("20060102-150405"))

	if err := e.registry.InitializeAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize engines: %w", err)
	}
	defer func() {
		// Shutdown still runs after a cancellation stopped the matrix.
		if err := e.registry.ShutdownAll(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("failed to shut down engines", "error", err)
		}
	}()

	e.notifyProgress(ProgressEvent{
		EventType:   EventBenchmarkStart,
		TotalModels: len(spec.Models),
		TotalTrials: spec.TotalTrials(),
	})
	e.logEvent(triallog.EventRunStart, triallog.RunStartData(runID, spec.Name, spec.Models, spec.TotalTrials()))

	report := &models.BenchmarkReport{
		RunID:     runID,
		Timestamp: startTime,
		Setup: models.ReportSetup{
			Models:          spec.Models,
			WordTargets:     spec.WordTargets,
			TrialsPerTarget: spec.TrialsPerTarget,
			Temperature:     spec.Temperature,
			Engine:          e.cfg.EngineOverride(),
		},
	}

	interrupted := false

	for modelNum, modelID := range spec.Models {
		if ctx.Err() != nil {
			interrupted = true
			break
		}

		entry, err := e.catalog.Resolve(modelID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		engine, err := e.registry.For(entry.Provider)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}

		e.notifyProgress(ProgressEvent{
			EventType:   EventModelStart,
			Model:       modelID,
			ModelNum:    modelNum + 1,
			TotalModels: len(spec.Models),
		})

		modelStart := time.Now()
		modelAcc := NewModelAccumulator(modelID, string(entry.Provider))

		for _, target := range spec.WordTargets {
			result, exhausted := e.runTargetGroup(ctx, engine, entry, modelID, target, spec.TrialsPerTarget)
			if !exhausted {
				interrupted = true
				break
			}
			modelAcc.Add(result)
		}

		// A model interrupted mid-run still contributes the groups it
		// finished; a model stopped before its first group does not appear.
		if modelAcc.Groups() > 0 {
			report.Models = append(report.Models, modelAcc.Finalize())
		}

		if interrupted {
			break
		}

		e.notifyProgress(ProgressEvent{
			EventType:   EventModelComplete,
			Model:       modelID,
			ModelNum:    modelNum + 1,
			TotalModels: len(spec.Models),
			DurationMs:  time.Since(modelStart).Milliseconds(),
		})
	}

	report.DurationMs = time.Since(startTime).Milliseconds()
	report.Interrupted = interrupted
	report.Summary = BuildSummary(report.Models)

	recorded, exact := reportTotals(report.Models)
	e.logEvent(triallog.EventRunEnd, triallog.RunCompleteData(runID, recorded, exact, interrupted, report.DurationMs))

	if interrupted {
		e.notifyProgress(ProgressEvent{
			EventType:  EventBenchmarkStopped,
			DurationMs: report.DurationMs,
		})
	} else {
		e.notifyProgress(ProgressEvent{
			EventType:  EventBenchmarkComplete,
			DurationMs: report.DurationMs,
		})
	}

	return report, nil
}

// runTargetGroup runs every trial for one (model, target) group in
// increasing trial-index order. It returns exhausted=false when
// cancellation stopped the group early; the partial group is discarded so
// the report only ever contains fully-run groups.
func (e *BenchmarkEngine) runTargetGroup(ctx context.Context, engine execution.CompletionEngine, entry catalog.Entry, modelID string, target, trials int) (models.WordCountResult, bool) {
	if ctx.Err() != nil {
		return models.WordCountResult{}, false
	}

	e.notifyProgress(ProgressEvent{
		EventType:   EventTargetStart,
		Model:       modelID,
		Target:      target,
		TotalTrials: trials,
	})

	acc := NewWordCountAccumulator(target)
	groupStart := time.Now()

	for trialIndex := 1; trialIndex <= trials; trialIndex++ {
		if ctx.Err() != nil {
			return models.WordCountResult{}, false
		}
		acc.Record(e.runTrial(ctx, engine, entry, modelID, target, trialIndex, trials))
	}

	result := acc.Finalize(trials)

	e.notifyProgress(ProgressEvent{
		EventType:  EventTargetComplete,
		Model:      modelID,
		Target:     target,
		DurationMs: time.Since(groupStart).Milliseconds(),
		Details: map[string]any{
			"accuracy":      result.Accuracy,
			"avg_deviation": result.AvgDeviation,
			"exact_matches": result.ExactMatches,
		},
	})

	return result, true
}

// runTrial executes one trial, consulting the cache first when one is
// configured. Cached responses are re-measured through the same counting
// path as live ones.
func (e *BenchmarkEngine) runTrial(ctx context.Context, engine execution.CompletionEngine, entry catalog.Entry, modelID string, target, trialIndex, totalTrials int) models.Trial {
	attempt := e.trials.Prepare(target, trialIndex)

	e.notifyProgress(ProgressEvent{
		EventType:   EventTrialStart,
		Model:       modelID,
		Target:      target,
		TrialNum:    trialIndex,
		TotalTrials: totalTrials,
		Details:     map[string]any{"topic": attempt.Topic},
	})

	var cacheKey string
	if e.cache != nil {
		key, err := cache.Key(modelID, target, trialIndex, attempt.Prompt, e.trials.Temperature())
		if err != nil {
			slog.Warn("failed to compute cache key", "error", err)
		} else {
			cacheKey = key
			if cached, found := e.cache.Get(cacheKey); found {
				trial := e.trials.Measure(attempt, cached.Text, cached.DurationMs)
				e.logTrial(modelID, entry, attempt, trial, true)
				e.notifyProgress(trialEvent(EventTrialCached, modelID, trial, totalTrials))
				return trial
			}
		}
	}

	trial := e.trials.Execute(ctx, engine, entry.ProviderModel, attempt)

	if cacheKey != "" && trial.Success() {
		cached := &cache.Entry{
			Model:      modelID,
			Target:     target,
			TrialIndex: trialIndex,
			Text:       trial.Text,
			DurationMs: trial.DurationMs,
			CachedAt:   time.Now().UTC(),
		}
		if err := e.cache.Put(cacheKey, cached); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] Failed to write cache entry: %v\n", err)
		}
	}

	e.logTrial(modelID, entry, attempt, trial, false)
	e.notifyProgress(trialEvent(EventTrialComplete, modelID, trial, totalTrials))

	return trial
}

func (e *BenchmarkEngine) logTrial(modelID string, entry catalog.Entry, attempt Attempt, trial models.Trial, cached bool) {
	data := triallog.TrialData(modelID, string(entry.Provider), attempt.Prompt, trial, cached)
	if err := e.trialLog.Log(triallog.NewEvent(triallog.EventTrial, data)); err != nil {
		slog.Warn("failed to write trial log", "error", err)
	}
}

func (e *BenchmarkEngine) logEvent(eventType triallog.EventType, data map[string]any) {
	if err := e.trialLog.Log(triallog.NewEvent(eventType, data)); err != nil {
		slog.Warn("failed to write trial log", "error", err)
	}
}

// trialEvent builds the completion progress event for one trial.
func trialEvent(eventType EventType, modelID string, trial models.Trial, totalTrials int) ProgressEvent {
	event := ProgressEvent{
		EventType:   eventType,
		Model:       modelID,
		Target:      trial.Target,
		TrialNum:    trial.TrialIndex,
		TotalTrials: totalTrials,
		Status:      trial.Status,
		DurationMs:  trial.DurationMs,
	}
	if trial.Success() {
		event.Details = map[string]any{
			"actual_words": trial.ActualWords,
			"deviation":    trial.Deviation,
		}
	} else {
		event.Details = map[string]any{
			"error": trial.ErrorMsg,
		}
	}
	return event
}

func reportTotals(results []models.ModelResult) (trials, exact int) {
	for _, mr := range results {
		trials += mr.TotalTrials
		exact += mr.TotalExact
	}
	return trials, exact
}
