package router

import (
	"context"
	"fmt"
	"log/slog"

	"unichat-router/internal/models"
	"unichat-router/internal/provider"
)

// RouteResult is a successful routed chat annotated with its origin.
// FallbackUsed reports whether the serving provider differs from the head of
// the attempt chain, so callers can detect degraded routing.
type RouteResult struct {
	models.ChatResult
	Provider     provider.ProviderID
	FallbackUsed bool
}

// AttemptError reports a single-attempt failure together with the provider
// that produced it. Returned when fallback is disabled.
type AttemptError struct {
	Provider provider.ProviderID
	Err      error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// ExhaustionError reports that every provider in the chain failed. Last
// holds the error of the final attempt; earlier failures are typically
// config-only and less diagnostic, so last-error-wins.
type ExhaustionError struct {
	Attempts     int
	LastProvider provider.ProviderID
	Last         error
}

func (e *ExhaustionError) Error() string {
	return fmt.Sprintf("all providers failed: %v", e.Last)
}

func (e *ExhaustionError) Unwrap() error {
	return e.Last
}

// Router attempts providers strictly in chain order until one succeeds.
// Attempts are sequential on purpose: parallel fan-out would duplicate
// billable generations and defeat the cheap-provider-first ordering.
type Router struct {
	registry *provider.Registry
}

// New constructs a router backed by the provided registry.
func New(registry *provider.Registry) *Router {
	return &Router{
		registry: registry,
	}
}

// Chat resolves the attempt chain for the request and invokes adapters in
// order, stopping at the first success. Per-provider failures never
// propagate mid-chain; the public contract is success or exhaustion.
func (r *Router) Chat(ctx context.Context, messages []models.Message, params models.GenerationParams) (*RouteResult, error) {
	params = params.WithDefaults()
	chain := r.registry.Chain(provider.ProviderID(params.PreferredProvider))

	var lastErr error
	var lastID provider.ProviderID
	attempts := 0

	for _, id := range chain {
		attempts++

		adapter, err := r.registry.Lookup(id)
		var result *models.ChatResult
		if err == nil {
			result, err = adapter.Chat(ctx, messages, params)
		}

		if err == nil {
			fallbackUsed := id != chain[0]
			slog.Debug("provider served request",
				"provider", id,
				"fallback_used", fallbackUsed,
				"attempts", attempts,
			)
			return &RouteResult{
				ChatResult:   *result,
				Provider:     id,
				FallbackUsed: fallbackUsed,
			}, nil
		}

		slog.Warn("provider attempt failed", "provider", id, "error", err)
		lastErr, lastID = err, id

		if params.DisableFallback {
			return nil, &AttemptError{Provider: id, Err: err}
		}
	}

	return nil, &ExhaustionError{
		Attempts:     attempts,
		LastProvider: lastID,
		Last:         lastErr,
	}
}
