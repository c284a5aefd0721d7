package execution

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockEngine is an in-process engine for tests and dry runs. By default it
// replies with exactly the word count the prompt asks for, so a run against
// it lands at 100% accuracy. Tests can queue canned replies or install a
// response function to exercise other paths.
type MockEngine struct {
	mu      sync.Mutex
	queue   []mockReply
	respond func(req *CompletionRequest) (string, error)
	calls   []CompletionRequest
}

type mockReply struct {
	text string
	err  error
}

var promptTargetPattern = regexp.MustCompile(`\d+`)

// NewMockEngine creates a new mock engine
func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

func (m *MockEngine) Initialize(ctx context.Context) error {
	return nil
}

// Enqueue adds a canned reply. Queued replies are consumed in FIFO order
// before the default behavior applies.
func (m *MockEngine) Enqueue(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockReply{text: text})
}

// EnqueueError adds a reply that fails with the given error.
func (m *MockEngine) EnqueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockReply{err: err})
}

// RespondWith installs a function that computes replies once the queue is
// drained.
func (m *MockEngine) RespondWith(fn func(req *CompletionRequest) (string, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.respond = fn
}

// Calls returns a copy of every request received so far.
func (m *MockEngine) Calls() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CompletionRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockEngine) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	m.mu.Lock()
	m.calls = append(m.calls, *req)

	if len(m.queue) > 0 {
		reply := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()

		if reply.err != nil {
			return nil, reply.err
		}
		return &CompletionResponse{
			Text:       reply.text,
			Model:      req.Model,
			DurationMs: time.Since(start).Milliseconds(),
		}, nil
	}

	respond := m.respond
	m.mu.Unlock()

	if respond != nil {
		text, err := respond(req)
		if err != nil {
			return nil, err
		}
		return &CompletionResponse{
			Text:       text,
			Model:      req.Model,
			DurationMs: time.Since(start).Milliseconds(),
		}, nil
	}

	// Default: echo back exactly as many words as the prompt requests. The
	// first number in the prompt is the word target.
	n := 10
	if match := promptTargetPattern.FindString(req.Prompt); match != "" {
		if v, err := strconv.Atoi(match); err == nil {
			n = v
		}
	}

	return &CompletionResponse{
		Text:       WordsText(n),
		Model:      req.Model,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

func (m *MockEngine) Shutdown(ctx context.Context) error {
	return nil
}

var fillerWords = []string{"the", "quiet", "harbor", "holds", "small", "boats", "under", "grey", "morning", "light"}

// WordsText returns deterministic filler text with exactly n words.
func WordsText(n int) string {
	if n <= 0 {
		return ""
	}
	words := make([]string, n)
	for i := range words {
		words[i] = fillerWords[i%len(fillerWords)]
	}
	return strings.Join(words, " ")
}
