package orchestration

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/wordbench/wordbench/internal/execution"
	"github.com/wordbench/wordbench/internal/models"
	"github.com/wordbench/wordbench/internal/words"
)

// defaultTopics is the built-in pool trials draw their subject from. Varying
// the topic keeps repeated trials from degenerating into the same prompt.
var defaultTopics = []string{
	"the ocean",
	"mountain hiking",
	"city life",
	"a rainy afternoon",
	"the history of bread",
	"autumn leaves",
	"trains and railways",
	"the night sky",
	"a small garden",
	"morning coffee",
	"desert landscapes",
	"old libraries",
	"river crossings",
	"street markets",
	"winter mornings",
	"lighthouse keepers",
}

// maxTokensFactor sizes the generation cap relative to the target. Ten times
// the target leaves headroom for verbose responses; a tight cap would
// truncate output and corrupt the word-count measurement.
const maxTokensFactor = 10

// IntSource yields bounded non-negative ints; rand.Rand satisfies it. Tests
// inject a fixed source to make topic selection deterministic.
type IntSource interface {
	Intn(n int) int
}

// TrialRunner prepares and executes single trials against a completion
// engine. It holds no results; accumulators belong to the benchmark engine.
type TrialRunner struct {
	topics      []string
	random      IntSource
	temperature float64
}

// NewTrialRunner creates a trial runner. A nil topics slice falls back to
// the built-in pool; a nil random source is seeded from the clock.
func NewTrialRunner(temperature float64, topics []string, random IntSource) *TrialRunner {
	if len(topics) == 0 {
		topics = defaultTopics
	}
	if random == nil {
		random = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &TrialRunner{
		topics:      topics,
		random:      random,
		temperature: temperature,
	}
}

// Temperature returns the configured sampling temperature.
func (tr *TrialRunner) Temperature() float64 {
	return tr.temperature
}

// Attempt is one prepared trial: the sampled topic and the prompt built
// from it.
type Attempt struct {
	Target     int
	TrialIndex int
	Topic      string
	Prompt     string
	MaxTokens  int
}

// BuildPrompt renders the word-count instruction sent for every trial.
func BuildPrompt(target int, topic string) string {
	return fmt.Sprintf(
		"Write exactly %d words about %s. Respond with exactly %d words, no more and no less. Do not add a title, preamble or any commentary.",
		target, topic, target,
	)
}

// Prepare samples a topic and builds the prompt for one trial. trialIndex
// is 1-based within its (model, target) group.
func (tr *TrialRunner) Prepare(target, trialIndex int) Attempt {
	topic := tr.topics[tr.random.Intn(len(tr.topics))]
	return Attempt{
		Target:     target,
		TrialIndex: trialIndex,
		Topic:      topic,
		Prompt:     BuildPrompt(target, topic),
		MaxTokens:  target * maxTokensFactor,
	}
}

// Execute runs one prepared trial. Completion failures are recorded on the
// returned trial, never surfaced as errors: a failed completion is a
// measurement, not an abort.
func (tr *TrialRunner) Execute(ctx context.Context, engine execution.CompletionEngine, providerModel string, attempt Attempt) models.Trial {
	start := time.Now()

	resp, err := engine.Complete(ctx, &execution.CompletionRequest{
		Model:       providerModel,
		Prompt:      attempt.Prompt,
		MaxTokens:   attempt.MaxTokens,
		Temperature: tr.temperature,
	})
	if err != nil {
		return models.Trial{
			TrialIndex: attempt.TrialIndex,
			Target:     attempt.Target,
			Topic:      attempt.Topic,
			Status:     models.StatusError,
			ErrorMsg:   err.Error(),
			DurationMs: time.Since(start).Milliseconds(),
		}
	}

	durationMs := resp.DurationMs
	if durationMs == 0 {
		durationMs = time.Since(start).Milliseconds()
	}

	return tr.Measure(attempt, resp.Text, durationMs)
}

// Measure scores response text against the attempt's target. It is split
// out from Execute so cached responses go through the same counting path as
// live ones.
func (tr *TrialRunner) Measure(attempt Attempt, text string, durationMs int64) models.Trial {
	actual := words.Count(text)
	deviation := actual - attempt.Target
	if deviation < 0 {
		deviation = -deviation
	}

	return models.Trial{
		TrialIndex:  attempt.TrialIndex,
		Target:      attempt.Target,
		Topic:       attempt.Topic,
		Status:      models.StatusOK,
		ActualWords: actual,
		Deviation:   deviation,
		Text:        text,
		Formatted:   words.HasMarkdownStructure(text),
		DurationMs:  durationMs,
	}
}
