package provider

import (
	"context"
	"testing"

	"unichat-router/internal/models"
)

type stubAdapter struct {
	id ProviderID
}

func (s *stubAdapter) Identity() ProviderID {
	return s.id
}

func (s *stubAdapter) Chat(ctx context.Context, messages []models.Message, params models.GenerationParams) (*models.ChatResult, error) {
	return &models.ChatResult{}, nil
}

func TestChainPreferredFirst(t *testing.T) {
	registry := NewRegistry(nil)

	for _, preferred := range DefaultOrder() {
		t.Run(preferred.String(), func(t *testing.T) {
			chain := registry.Chain(preferred)

			if len(chain) != len(DefaultOrder()) {
				t.Fatalf("chain length = %d, want %d", len(chain), len(DefaultOrder()))
			}
			if chain[0] != preferred {
				t.Errorf("chain[0] = %s, want %s", chain[0], preferred)
			}

			seen := make(map[ProviderID]int)
			for _, id := range chain {
				seen[id]++
			}
			for _, id := range DefaultOrder() {
				if seen[id] != 1 {
					t.Errorf("provider %s appears %d times, want exactly once", id, seen[id])
				}
			}

			// The remainder keeps the default relative order.
			rest := chain[1:]
			var expected []ProviderID
			for _, id := range DefaultOrder() {
				if id != preferred {
					expected = append(expected, id)
				}
			}
			for i := range expected {
				if rest[i] != expected[i] {
					t.Errorf("chain[%d] = %s, want %s", i+1, rest[i], expected[i])
				}
			}
		})
	}
}

func TestChainUnknownPreferredIsPrepended(t *testing.T) {
	registry := NewRegistry(nil)

	chain := registry.Chain("anthropic")

	if len(chain) != len(DefaultOrder())+1 {
		t.Fatalf("chain length = %d, want %d", len(chain), len(DefaultOrder())+1)
	}
	if chain[0] != "anthropic" {
		t.Errorf("chain[0] = %s, want anthropic", chain[0])
	}
	for i, id := range DefaultOrder() {
		if chain[i+1] != id {
			t.Errorf("chain[%d] = %s, want %s", i+1, chain[i+1], id)
		}
	}
}

func TestChainNoPreference(t *testing.T) {
	registry := NewRegistry([]ProviderID{Gemini, Ollama, OpenAI})

	chain := registry.Chain("")

	want := []ProviderID{Gemini, Ollama, OpenAI}
	if len(chain) != len(want) {
		t.Fatalf("chain length = %d, want %d", len(chain), len(want))
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Errorf("chain[%d] = %s, want %s", i, chain[i], want[i])
		}
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	registry := NewRegistry(nil)

	if err := registry.Register(&stubAdapter{id: Gemini}); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := registry.Register(&stubAdapter{id: Gemini}); err == nil {
		t.Error("duplicate registration should fail")
	}
}

func TestLookupUnregistered(t *testing.T) {
	registry := NewRegistry(nil)

	if _, err := registry.Lookup(OpenAI); err == nil {
		t.Error("lookup of unregistered provider should fail")
	}
}

func TestProviderIDValidity(t *testing.T) {
	tests := []struct {
		id    ProviderID
		valid bool
	}{
		{Ollama, true},
		{Gemini, true},
		{OpenAI, true},
		{"anthropic", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := tt.id.IsValid(); got != tt.valid {
			t.Errorf("IsValid(%q) = %v, want %v", tt.id, got, tt.valid)
		}
	}
}

func TestCheckCredential(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"placeholder", "your-api-key-here", true},
		{"placeholder caps", "CHANGEME", true},
		{"real key", "sk-live-abc123", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCredential(OpenAI, tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckCredential(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}
