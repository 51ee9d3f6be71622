package provider

import (
	"errors"
	"fmt"
	"sync"
)

// Registry maintains one adapter per provider identity plus the process-wide
// default attempt order. The order is fixed after construction; per-request
// preferences are expressed through Chain.
type Registry struct {
	mu       sync.RWMutex
	adapters map[ProviderID]Adapter
	order    []ProviderID
}

// NewRegistry constructs an empty registry. A nil or empty order falls back
// to DefaultOrder.
func NewRegistry(order []ProviderID) *Registry {
	if len(order) == 0 {
		order = DefaultOrder()
	}
	out := make([]ProviderID, len(order))
	copy(out, order)

	return &Registry{
		adapters: make(map[ProviderID]Adapter),
		order:    out,
	}
}

// Register adds the adapter under its own identity.
func (r *Registry) Register(a Adapter) error {
	if a == nil {
		return errors.New("adapter must not be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := a.Identity()
	if _, exists := r.adapters[id]; exists {
		return fmt.Errorf("provider %q already registered", id)
	}
	r.adapters[id] = a
	return nil
}

// Lookup returns the adapter for the given identity.
func (r *Registry) Lookup(id ProviderID) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, id)
	}
	return a, nil
}

// Chain computes the attempt order for a single request: the preferred
// provider moves to the front and the remainder keeps its relative order. A
// preference that matches no configured entry is prepended without removing
// anything, so the router surfaces it as an ordinary per-provider failure
// instead of silently ignoring the request.
func (r *Registry) Chain(preferred ProviderID) []ProviderID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if preferred == "" {
		out := make([]ProviderID, len(r.order))
		copy(out, r.order)
		return out
	}

	out := make([]ProviderID, 0, len(r.order)+1)
	out = append(out, preferred)
	for _, id := range r.order {
		if id != preferred {
			out = append(out, id)
		}
	}
	return out
}

// Order returns a copy of the configured default attempt order.
func (r *Registry) Order() []ProviderID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderID, len(r.order))
	copy(out, r.order)
	return out
}
