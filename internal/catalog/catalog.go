// Package catalog maps benchmark model identifiers to the provider that
// serves them and the provider-specific model name. The mapping is data:
// a built-in set of entries that a YAML catalog file can extend or
// override, so adding a model never requires a code change.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Provider identifies the completion backend that serves a model.
type Provider string

const (
	ProviderOllama  Provider = "ollama"
	ProviderOpenAI  Provider = "openai"
	ProviderCopilot Provider = "copilot"
	ProviderMock    Provider = "mock"
)

// ErrUnknownModel is returned by Resolve for identifiers with no entry.
var ErrUnknownModel = errors.New("unknown model")

// Entry describes one model the harness can benchmark.
type Entry struct {
	ID            string         `yaml:"id" json:"id"`
	Provider      Provider       `yaml:"provider" json:"provider"`
	ProviderModel string         `yaml:"provider_model,omitempty" json:"provider_model,omitempty"`
	Settings      map[string]any `yaml:"settings,omitempty" json:"settings,omitempty"`
}

// defaultEntries are the models the harness knows about out of the box.
// Local models route to Ollama under their tagged name, hosted models to
// their respective APIs.
var defaultEntries = []Entry{
	{ID: "llama3.2", Provider: ProviderOllama, ProviderModel: "llama3.2:latest"},
	{ID: "mistral", Provider: ProviderOllama, ProviderModel: "mistral:latest"},
	{ID: "phi3", Provider: ProviderOllama, ProviderModel: "phi3:latest"},
	{ID: "qwen2.5", Provider: ProviderOllama, ProviderModel: "qwen2.5:latest"},
	{ID: "gpt-4o", Provider: ProviderOpenAI, ProviderModel: "gpt-4o"},
	{ID: "gpt-4o-mini", Provider: ProviderOpenAI, ProviderModel: "gpt-4o-mini"},
	{ID: "copilot-gpt-4o", Provider: ProviderCopilot, ProviderModel: "gpt-4o"},
}

// Catalog resolves model identifiers to entries. Lookup order follows
// registration order.
type Catalog struct {
	entries map[string]Entry
	order   []string
}

// New builds a catalog from the given entries. Later entries with a
// duplicate id replace earlier ones without changing their position.
func New(entries []Entry) *Catalog {
	c := &Catalog{entries: make(map[string]Entry)}
	for _, e := range entries {
		c.put(e)
	}
	return c
}

// Default returns a catalog holding only the built-in entries.
func Default() *Catalog {
	return New(defaultEntries)
}

// Load reads a YAML catalog file and overlays it on the defaults.
// File entries replace built-in entries with the same id and new ids are
// appended, keeping the built-in ordering stable.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file struct {
		Models []Entry `yaml:"models"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}

	c := Default()
	for _, e := range file.Models {
		if e.ID == "" {
			return nil, fmt.Errorf("catalog file %s: entry with empty id", path)
		}
		if e.Provider == "" {
			return nil, fmt.Errorf("catalog file %s: model %q has no provider", path, e.ID)
		}
		c.put(e)
	}
	return c, nil
}

func (c *Catalog) put(e Entry) {
	if e.ProviderModel == "" {
		e.ProviderModel = e.ID
	}
	if _, exists := c.entries[e.ID]; !exists {
		c.order = append(c.order, e.ID)
	}
	c.entries[e.ID] = e
}

// Resolve returns the entry for the given model identifier, or an error
// wrapping ErrUnknownModel when no entry exists.
func (c *Catalog) Resolve(id string) (Entry, error) {
	e, ok := c.entries[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownModel, id)
	}
	return e, nil
}

// List returns all entries in registration order.
func (c *Catalog) List() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id])
	}
	return out
}

// Providers returns the distinct providers used by the given model ids,
// in first-use order. Unknown ids are reported via ErrUnknownModel.
func (c *Catalog) Providers(ids []string) ([]Provider, error) {
	seen := make(map[Provider]bool)
	var out []Provider
	for _, id := range ids {
		e, err := c.Resolve(id)
		if err != nil {
			return nil, err
		}
		if !seen[e.Provider] {
			seen[e.Provider] = true
			out = append(out, e.Provider)
		}
	}
	return out, nil
}
