package strategy

import (
	"sort"

	"arb-core/internal/domain"
)

// Registry holds the configured strategy descriptors.
type Registry struct {
	strategies map[string]domain.Strategy
}

// NewRegistry builds a registry from a strategies-file map, dropping any
// malformed descriptor (one that isn't a well-formed buy/sell pair).
func NewRegistry(strategies map[string]domain.Strategy) *Registry {
	r := &Registry{strategies: make(map[string]domain.Strategy, len(strategies))}
	for id, s := range strategies {
		if !s.WellFormed() {
			continue
		}
		r.strategies[id] = s
	}
	return r
}

// EnabledStrategies returns the token-eligible strategies sorted by
// ascending priority. All strategies currently apply to every enabled
// token; per-token overrides are not modeled since a Strategy
// descriptor carries no token scoping field.
func (r *Registry) EnabledStrategies(token domain.TokenDescriptor) []domain.Strategy {
	out := make([]domain.Strategy, 0, len(r.strategies))
	for _, s := range r.strategies {
		if !s.Enabled {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}
