package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com"
	defaultOpenAIKeyEnv  = "OPENAI_API_KEY"
	defaultOpenAITimeout = 60 * time.Second
)

// OpenAIOptions configures an OpenAIEngine. Fields map from the catalog
// entry's settings block. The API key is never stored in the catalog; only
// the name of the environment variable holding it.
type OpenAIOptions struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKeyEnv      string `mapstructure:"api_key_env"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// OpenAIEngine talks to the OpenAI chat completions API, or any
// API-compatible endpoint given a base_url override.
type OpenAIEngine struct {
	baseURL string
	keyEnv  string
	apiKey  string
	client  *http.Client
}

// NewOpenAIEngine creates an engine for the given options, filling in
// defaults for anything unset.
func NewOpenAIEngine(opts OpenAIOptions) *OpenAIEngine {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	keyEnv := opts.APIKeyEnv
	if keyEnv == "" {
		keyEnv = defaultOpenAIKeyEnv
	}

	timeout := time.Duration(opts.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultOpenAITimeout
	}

	return &OpenAIEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		keyEnv:  keyEnv,
		client:  &http.Client{Timeout: timeout},
	}
}

// Initialize reads the API key from the environment.
func (e *OpenAIEngine) Initialize(ctx context.Context) error {
	e.apiKey = os.Getenv(e.keyEnv)
	if e.apiKey == "" {
		return fmt.Errorf("environment variable %s is not set", e.keyEnv)
	}
	return nil
}

type openaiChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message      openaiMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (e *OpenAIEngine) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	body, err := json.Marshal(openaiChatRequest{
		Model: req.Model,
		Messages: []openaiMessage{
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out openaiChatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("API error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("response contained no choices")
	}

	return &CompletionResponse{
		Text:       out.Choices[0].Message.Content,
		Model:      req.Model,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

func (e *OpenAIEngine) Shutdown(ctx context.Context) error {
	return nil
}
