package orchestration

import (
	"github.com/wordbench/wordbench/internal/models"
	"github.com/wordbench/wordbench/internal/statistics"
)

// WordCountAccumulator gathers the trials for one (model, target) group and
// finalizes them into a WordCountResult. The engine owns one accumulator per
// group; nothing else reads or writes it during a run.
type WordCountAccumulator struct {
	target int
	trials []models.Trial
}

// NewWordCountAccumulator creates an accumulator for one target word count.
func NewWordCountAccumulator(target int) *WordCountAccumulator {
	return &WordCountAccumulator{target: target}
}

// Record appends one finished trial, success or failure.
func (a *WordCountAccumulator) Record(trial models.Trial) {
	a.trials = append(a.trials, trial)
}

// Recorded returns the number of trials recorded so far.
func (a *WordCountAccumulator) Recorded() int {
	return len(a.trials)
}

// Finalize computes the group statistics. configuredTrials is the
// trials-per-target the run was configured with; it is the denominator for
// both average deviation and accuracy, so a failed trial still consumes a
// slot instead of shrinking the sample. Min/max deviation consider only
// successful trials and stay at the sentinel when every trial failed.
func (a *WordCountAccumulator) Finalize(configuredTrials int) models.WordCountResult {
	result := models.WordCountResult{
		Target:       a.target,
		Trials:       a.trials,
		TrialCount:   len(a.trials),
		MinDeviation: models.DeviationUnset,
		MaxDeviation: models.DeviationUnset,
	}

	var deviations []float64
	for i := range a.trials {
		trial := &a.trials[i]
		if !trial.Success() {
			continue
		}
		result.Successes++
		result.TotalDeviation += trial.Deviation
		if trial.ExactMatch() {
			result.ExactMatches++
		}
		if result.MinDeviation == models.DeviationUnset || trial.Deviation < result.MinDeviation {
			result.MinDeviation = trial.Deviation
		}
		if result.MaxDeviation == models.DeviationUnset || trial.Deviation > result.MaxDeviation {
			result.MaxDeviation = trial.Deviation
		}
		deviations = append(deviations, float64(trial.Deviation))
	}

	if configuredTrials > 0 {
		result.AvgDeviation = float64(result.TotalDeviation) / float64(configuredTrials)
		result.Accuracy = float64(result.ExactMatches) / float64(configuredTrials) * 100.0
	}
	result.DeviationStdDev = statistics.StdDev(deviations)

	return result
}

// ModelAccumulator collects one model's finalized per-target results, in
// configured target order, and rolls them up into a ModelResult.
type ModelAccumulator struct {
	model    string
	provider string
	results  []models.WordCountResult
}

// NewModelAccumulator creates an accumulator for one model.
func NewModelAccumulator(model, provider string) *ModelAccumulator {
	return &ModelAccumulator{model: model, provider: provider}
}

// Add appends a finalized group result. Callers add groups in configured
// target order; the accumulator preserves it.
func (a *ModelAccumulator) Add(result models.WordCountResult) {
	a.results = append(a.results, result)
}

// Groups returns the number of group results added so far.
func (a *ModelAccumulator) Groups() int {
	return len(a.results)
}

// Finalize sums the group results into the model's overall stats. Overall
// accuracy and average deviation use total trials as denominator, 0 when no
// group completed.
func (a *ModelAccumulator) Finalize() models.ModelResult {
	result := models.ModelResult{
		Model:    a.model,
		Provider: a.provider,
		Results:  a.results,
	}

	for _, r := range a.results {
		result.TotalTrials += r.TrialCount
		result.TotalExact += r.ExactMatches
		result.TotalDeviation += r.TotalDeviation
	}

	if result.TotalTrials > 0 {
		result.OverallAccuracy = float64(result.TotalExact) / float64(result.TotalTrials) * 100.0
		result.AvgDeviation = float64(result.TotalDeviation) / float64(result.TotalTrials)
	}

	return result
}
