package models

import "time"

// Status represents the outcome status of a single trial.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// DeviationUnset is the sentinel recorded for min/max deviation when a
// group finishes with zero successful trials.
const DeviationUnset = -1

// Trial is one prompt/response attempt for a (model, target) pair. A trial
// is immutable once recorded; deviation is only meaningful when Status is
// StatusOK.
type Trial struct {
	TrialIndex  int    `json:"trial_index"`
	Target      int    `json:"target"`
	Topic       string `json:"topic"`
	Status      Status `json:"status"`
	ActualWords int    `json:"actual_words"`
	Deviation   int    `json:"deviation"`
	Text        string `json:"text,omitempty"`
	Formatted   bool   `json:"formatted,omitempty"`
	ErrorMsg    string `json:"error_msg,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
}

// Success reports whether the trial produced a measurable response.
func (t *Trial) Success() bool {
	return t.Status == StatusOK
}

// ExactMatch reports whether the trial hit its target exactly.
func (t *Trial) ExactMatch() bool {
	return t.Status == StatusOK && t.Deviation == 0
}

// WordCountResult aggregates the trials for one (model, target) group.
// TrialCount is the configured trial count for the group; it is the
// denominator for both Accuracy and AvgDeviation, so a failed trial still
// consumes a slot instead of shrinking the sample.
type WordCountResult struct {
	Target          int     `json:"target"`
	Trials          []Trial `json:"trials"`
	TrialCount      int     `json:"trial_count"`
	Successes       int     `json:"successes"`
	ExactMatches    int     `json:"exact_matches"`
	TotalDeviation  int     `json:"total_deviation"`
	MinDeviation    int     `json:"min_deviation"` // DeviationUnset with zero successes
	MaxDeviation    int     `json:"max_deviation"` // DeviationUnset with zero successes
	AvgDeviation    float64 `json:"avg_deviation"`
	DeviationStdDev float64 `json:"deviation_std_dev"`
	Accuracy        float64 `json:"accuracy"`
}

// ModelResult aggregates one model's groups across all targets. Results
// keeps the configured target order.
type ModelResult struct {
	Model           string            `json:"model"`
	Provider        string            `json:"provider,omitempty"`
	Results         []WordCountResult `json:"results"`
	TotalTrials     int               `json:"total_trials"`
	TotalExact      int               `json:"total_exact"`
	TotalDeviation  int               `json:"total_deviation"`
	OverallAccuracy float64           `json:"overall_accuracy"`
	AvgDeviation    float64           `json:"avg_deviation"`
}

// ReportSetup echoes the configuration a report was produced from.
type ReportSetup struct {
	Models          []string `json:"models"`
	WordTargets     []int    `json:"word_targets"`
	TrialsPerTarget int      `json:"trials_per_target"`
	Temperature     float64  `json:"temperature"`
	Engine          string   `json:"engine,omitempty"`
}

// BenchmarkReport is the immutable snapshot handed to renderers and
// persisters once a run completes. Models stays in configured order;
// ranking lives only in the Summary.
type BenchmarkReport struct {
	RunID      string        `json:"run_id"`
	Timestamp  time.Time     `json:"timestamp"`
	DurationMs int64         `json:"duration_ms"`
	Setup      ReportSetup   `json:"config"`
	Models     []ModelResult `json:"models"`
	Summary    *Summary      `json:"summary,omitempty"`

	// Interrupted is set when cancellation stopped the run before the
	// matrix was exhausted; the report then covers only the groups that
	// fully completed.
	Interrupted bool `json:"interrupted,omitempty"`
}

// RankingEntry is one row of the accuracy leaderboard.
type RankingEntry struct {
	Rank         int     `json:"rank"`
	Model        string  `json:"model"`
	Accuracy     float64 `json:"accuracy"`
	AvgDeviation float64 `json:"avg_deviation"`
	ExactMatches int     `json:"exact_matches"`
	TotalTrials  int     `json:"total_trials"`
}

// TargetEntry is one model's showing at a single word target.
type TargetEntry struct {
	Model        string  `json:"model"`
	Accuracy     float64 `json:"accuracy"`
	AvgDeviation float64 `json:"avg_deviation"`
}

// TargetBreakdown ranks all models at one word target. Entries are sorted
// descending by accuracy; Best names the first entry.
type TargetBreakdown struct {
	Target       int           `json:"target"`
	Best         string        `json:"best_model"`
	BestAccuracy float64       `json:"best_accuracy"`
	Entries      []TargetEntry `json:"entries"`
}

// Summary is derived from the model results and holds no independent state.
type Summary struct {
	Ranking []RankingEntry    `json:"ranking"`
	Targets []TargetBreakdown `json:"targets"`
}
