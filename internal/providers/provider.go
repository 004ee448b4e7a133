// internal/providers/provider.go

// Package providers defines the search-provider capability and the registry
// the job processor resolves provider ids against.
package providers

import (
	"context"

	"product-matcher/internal/models"
)

// SearchProvider searches one upstream supplier catalog. Implementations
// return an empty slice for "no results" and a *errors.RateLimitError when
// the upstream throttles, so the orchestrator can abort the job early.
type SearchProvider interface {
	ID() string
	Name() string
	Search(ctx context.Context, query models.ProductQuery, criteria models.SearchCriteria) ([]models.ProviderResult, error)
}

// Registry maps provider ids to implementations. It is built once at startup;
// jobs resolve their requested subset from it.
type Registry struct {
	providers map[string]SearchProvider
	order     []string
}

func NewRegistry(providers ...SearchProvider) *Registry {
	r := &Registry{providers: make(map[string]SearchProvider, len(providers))}
	for _, p := range providers {
		if _, exists := r.providers[p.ID()]; exists {
			continue
		}
		r.providers[p.ID()] = p
		r.order = append(r.order, p.ID())
	}
	return r
}

// Get returns the provider registered under id.
func (r *Registry) Get(id string) (SearchProvider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// Resolve returns the providers for the requested ids, in request order.
// Unknown ids are skipped; the caller decides whether an empty result is fatal.
func (r *Registry) Resolve(ids []string) []SearchProvider {
	var resolved []SearchProvider
	for _, id := range ids {
		if p, ok := r.providers[id]; ok {
			resolved = append(resolved, p)
		}
	}
	return resolved
}

// IDs returns all registered provider ids in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
