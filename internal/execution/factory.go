package execution

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/wordbench/wordbench/internal/catalog"
)

// BuildEngine constructs the completion engine for a provider, decoding the
// catalog entry's settings into the provider's option struct.
func BuildEngine(provider catalog.Provider, settings map[string]any) (CompletionEngine, error) {
	switch provider {
	case catalog.ProviderOllama:
		var opts OllamaOptions
		if err := mapstructure.Decode(settings, &opts); err != nil {
			return nil, fmt.Errorf("invalid settings for provider %s: %w", provider, err)
		}
		return NewOllamaEngine(opts), nil

	case catalog.ProviderOpenAI:
		var opts OpenAIOptions
		if err := mapstructure.Decode(settings, &opts); err != nil {
			return nil, fmt.Errorf("invalid settings for provider %s: %w", provider, err)
		}
		return NewOpenAIEngine(opts), nil

	case catalog.ProviderCopilot:
		var opts CopilotOptions
		if err := mapstructure.Decode(settings, &opts); err != nil {
			return nil, fmt.Errorf("invalid settings for provider %s: %w", provider, err)
		}
		return NewCopilotEngineBuilder(opts, nil).Build(), nil

	case catalog.ProviderMock:
		return NewMockEngine(), nil

	default:
		return nil, fmt.Errorf("unknown provider: %q", provider)
	}
}
