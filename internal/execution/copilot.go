package execution

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	copilot "github.com/github/copilot-sdk/go"
	"github.com/wordbench/wordbench/internal/utils"
)

const defaultCopilotTimeout = 5 * time.Minute

// CopilotOptions configures a CopilotEngine. Fields map from the catalog
// entry's settings block.
type CopilotOptions struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// CopilotEngine requests completions through the GitHub Copilot SDK. Each
// completion runs in its own session so trials stay independent.
type CopilotEngine struct {
	client  copilotClient
	timeout time.Duration

	startOnce sync.Once
}

// CopilotEngineBuilder builds a CopilotEngine with options
type CopilotEngineBuilder struct {
	engine *CopilotEngine
}

type CopilotEngineBuilderOptions struct {
	NewCopilotClient func(clientOptions *copilot.ClientOptions) copilotClient
}

// NewCopilotEngineBuilder creates a builder for CopilotEngine
func NewCopilotEngineBuilder(opts CopilotOptions, options *CopilotEngineBuilderOptions) *CopilotEngineBuilder {
	var client copilotClient

	copilotOptions := &copilot.ClientOptions{
		LogLevel:  "error",
		AutoStart: copilot.Bool(false),
	}

	if options == nil || options.NewCopilotClient == nil {
		client = newCopilotClient(copilotOptions)
	} else {
		client = options.NewCopilotClient(copilotOptions)
	}

	timeout := time.Duration(opts.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultCopilotTimeout
	}

	return &CopilotEngineBuilder{
		engine: &CopilotEngine{
			client:  client,
			timeout: timeout,
		},
	}
}

func (b *CopilotEngineBuilder) Build() *CopilotEngine {
	return b.engine
}

// Initialize sets up the Copilot client
func (e *CopilotEngine) Initialize(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Complete sends one prompt in a fresh session and returns the assistant's
// text. MaxTokens is advisory only; the SDK does not expose an output cap.
func (e *CopilotEngine) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil req was passed to CopilotEngine.Complete")
	}

	var startErr error

	e.startOnce.Do(func() {
		// NOTE: this is a workaround, copilot client has an 'autostart' feature, but it runs into issues
		// when it tries to autostart from separate goroutines.
		startErr = e.client.Start(ctx)
	})

	if startErr != nil {
		return nil, fmt.Errorf("copilot failed to start: %w", startErr)
	}

	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	session, err := e.client.CreateSession(ctx, &copilot.SessionConfig{
		Model: req.Model,

		OnPermissionRequest: allowAllTools,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	collector := NewSessionEventsCollector()

	unsubscribe := session.On(collector.On)
	defer unsubscribe()

	unsubscribe = session.On(utils.SessionToSlog)
	defer unsubscribe()

	_, err = session.SendAndWait(ctx, copilot.MessageOptions{
		Prompt: req.Prompt,
	})

	if err != nil {
		return nil, fmt.Errorf("copilot session failed: %w", err)
	}

	if errMsg := collector.ErrorMessage(); errMsg != "" {
		return nil, fmt.Errorf("copilot session failed: %s", errMsg)
	}

	return &CompletionResponse{
		Text:       joinParts(collector.OutputParts()),
		Model:      req.Model,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

// Shutdown cleans up resources
func (e *CopilotEngine) Shutdown(ctx context.Context) error {
	if err := e.client.Stop(); err != nil {
		// Log but continue cleanup
		slog.Info("failed to stop client", "error", err)
	}
	return nil
}

func joinParts(parts []string) string {
	var builder strings.Builder
	for _, p := range parts {
		builder.WriteString(p)
	}
	return builder.String()
}

func allowAllTools(request copilot.PermissionRequest, invocation copilot.PermissionInvocation) (copilot.PermissionRequestResult, error) {
	// value for 'Kind' came from the permissions_test.go in the Copilot SDK.
	return copilot.PermissionRequestResult{Kind: "approved"}, nil
}
