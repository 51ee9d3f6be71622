package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"unichat-router/internal/models"
)

// ProviderID identifies one configured LLM backend. Using a typed constant
// keeps routing input and result annotations from drifting apart.
type ProviderID string

const (
	Ollama ProviderID = "ollama"
	Gemini ProviderID = "gemini"
	OpenAI ProviderID = "openai"
)

func (p ProviderID) String() string {
	return string(p)
}

// IsValid reports whether the ID names a known backend.
func (p ProviderID) IsValid() bool {
	switch p {
	case Ollama, Gemini, OpenAI:
		return true
	default:
		return false
	}
}

// DefaultOrder returns the fixed attempt order used when no process-wide
// override is configured. Self-hosted capacity goes before metered cloud
// backends so failover stays the cheap path.
func DefaultOrder() []ProviderID {
	return []ProviderID{Ollama, Gemini, OpenAI}
}

// ErrNoCredential indicates a provider has no usable API credential. The
// check runs before any network call so misconfigured providers fail fast
// and the chain can move on.
var ErrNoCredential = errors.New("provider credential missing")

// ErrNotRegistered indicates the requested provider has no adapter.
var ErrNotRegistered = errors.New("provider not registered")

// Adapter translates unified chat requests into one backend's wire format
// and normalizes the raw response back. Implementations must not mutate the
// caller-supplied message slice.
type Adapter interface {
	Identity() ProviderID
	Chat(ctx context.Context, messages []models.Message, params models.GenerationParams) (*models.ChatResult, error)
}

// placeholderKeys are template values that frequently survive from sample
// env files; they are treated the same as an absent credential.
var placeholderKeys = map[string]struct{}{
	"":                  {},
	"your-api-key-here": {},
	"your_api_key_here": {},
	"changeme":          {},
	"placeholder":       {},
}

// CheckCredential rejects absent or placeholder credential values so an
// adapter never spends a network round trip on a key that cannot work.
func CheckCredential(id ProviderID, key string) error {
	if _, bad := placeholderKeys[strings.ToLower(strings.TrimSpace(key))]; bad {
		return fmt.Errorf("%w: %s API key is not configured", ErrNoCredential, id)
	}
	return nil
}
