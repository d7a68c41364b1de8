package arbitrage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Registry holds one evaluator per price model.
type Registry struct {
	evaluators map[domain.PriceModel]Evaluator
	mu         sync.RWMutex
}

// NewRegistry returns an empty registry. Call Register to add evaluators.
func NewRegistry() *Registry {
	return &Registry{evaluators: make(map[domain.PriceModel]Evaluator)}
}

// Register adds an evaluator under its price model, replacing any previous
// evaluator for that model.
func (r *Registry) Register(e Evaluator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evaluators[e.Model()] = e
}

// Get returns the evaluator for a price model, or an error if none is
// registered.
func (r *Registry) Get(model domain.PriceModel) (Evaluator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.evaluators[model]
	if !ok {
		return nil, fmt.Errorf("arbitrage: no evaluator for price model %q", model)
	}
	return e, nil
}

// List returns the names of all registered evaluators, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.evaluators))
	for _, e := range r.evaluators {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}
