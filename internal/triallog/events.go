package triallog

import (
	"time"

	"github.com/wordbench/wordbench/internal/models"
)

// EventType identifies the kind of trial-log event.
type EventType string

const (
	EventRunStart EventType = "run_start"
	EventRunEnd   EventType = "run_complete"
	EventTrial    EventType = "trial"
	EventError    EventType = "error"
)

// Event is a single timestamped entry in a trial log.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(t EventType, data map[string]any) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		Type:      t,
		Data:      data,
	}
}

// RunStartData returns event data for a run start.
func RunStartData(runID, specName string, models []string, totalTrials int) map[string]any {
	return map[string]any{
		"run_id":       runID,
		"spec_name":    specName,
		"models":       models,
		"total_trials": totalTrials,
	}
}

// RunCompleteData returns event data for a run end.
func RunCompleteData(runID string, totalTrials, exactMatches int, interrupted bool, durationMs int64) map[string]any {
	return map[string]any{
		"run_id":        runID,
		"total_trials":  totalTrials,
		"exact_matches": exactMatches,
		"interrupted":   interrupted,
		"duration_ms":   durationMs,
	}
}

// TrialData returns event data for one completed trial. Successful trials
// carry the measured counts and the generated text; failed trials carry the
// error description instead.
func TrialData(model, provider, prompt string, trial models.Trial, cached bool) map[string]any {
	d := map[string]any{
		"model":       model,
		"provider":    provider,
		"prompt":      prompt,
		"target":      trial.Target,
		"trial_index": trial.TrialIndex,
		"topic":       trial.Topic,
		"status":      string(trial.Status),
		"duration_ms": trial.DurationMs,
	}
	if trial.Success() {
		d["actual_words"] = trial.ActualWords
		d["deviation"] = trial.Deviation
		d["text"] = trial.Text
	} else {
		d["error"] = trial.ErrorMsg
	}
	if cached {
		d["cached"] = true
	}
	return d
}

// ErrorData returns event data for an error.
func ErrorData(message string, details map[string]any) map[string]any {
	d := map[string]any{
		"message": message,
	}
	for k, v := range details {
		d[k] = v
	}
	return d
}
