package execution

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/wordbench/wordbench/internal/catalog"
)

// Registry holds one engine per provider for the duration of a run.
// Models on the same provider share an engine; its settings come from the
// first catalog entry that names the provider.
type Registry struct {
	engines map[catalog.Provider]CompletionEngine
	order   []catalog.Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[catalog.Provider]CompletionEngine)}
}

// BuildRegistry resolves the given models against the catalog and builds
// one engine per distinct provider. A non-empty forced provider routes
// every model to a single engine of that kind instead, which is how
// --engine mock runs the whole matrix in-process.
func BuildRegistry(cat *catalog.Catalog, modelIDs []string, forced catalog.Provider) (*Registry, error) {
	registry := NewRegistry()

	if forced != "" {
		// Models must still resolve so unknown ids fail before any trial runs.
		providers, err := cat.Providers(modelIDs)
		if err != nil {
			return nil, err
		}
		engine, err := BuildEngine(forced, nil)
		if err != nil {
			return nil, err
		}
		for _, p := range providers {
			registry.Register(p, engine)
		}
		return registry, nil
	}

	for _, id := range modelIDs {
		entry, err := cat.Resolve(id)
		if err != nil {
			return nil, err
		}
		if _, exists := registry.engines[entry.Provider]; exists {
			continue
		}
		engine, err := BuildEngine(entry.Provider, entry.Settings)
		if err != nil {
			return nil, err
		}
		registry.Register(entry.Provider, engine)
	}
	return registry, nil
}

// Register adds an engine for a provider, replacing any existing one.
func (r *Registry) Register(provider catalog.Provider, engine CompletionEngine) {
	if _, exists := r.engines[provider]; !exists {
		r.order = append(r.order, provider)
	}
	r.engines[provider] = engine
}

// For returns the engine registered for a provider.
func (r *Registry) For(provider catalog.Provider) (CompletionEngine, error) {
	engine, ok := r.engines[provider]
	if !ok {
		return nil, fmt.Errorf("no engine registered for provider %q", provider)
	}
	return engine, nil
}

// Providers returns the registered providers in registration order.
func (r *Registry) Providers() []catalog.Provider {
	out := make([]catalog.Provider, len(r.order))
	copy(out, r.order)
	return out
}

// InitializeAll initializes every engine concurrently, failing on the
// first error. An engine registered under several providers is
// initialized once.
func (r *Registry) InitializeAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	seen := make(map[CompletionEngine]bool)
	for _, provider := range r.order {
		engine := r.engines[provider]
		if seen[engine] {
			continue
		}
		seen[engine] = true

		g.Go(func() error {
			if err := engine.Initialize(ctx); err != nil {
				return fmt.Errorf("failed to initialize %s engine: %w", provider, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// ShutdownAll shuts down every engine, joining any errors.
func (r *Registry) ShutdownAll(ctx context.Context) error {
	var errs []error

	seen := make(map[CompletionEngine]bool)
	for _, provider := range r.order {
		engine := r.engines[provider]
		if seen[engine] {
			continue
		}
		seen[engine] = true

		if err := engine.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down %s engine: %w", provider, err))
		}
	}

	return errors.Join(errs...)
}
