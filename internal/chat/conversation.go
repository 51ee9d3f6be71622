package chat

import (
	"context"
	"sync"

	"unichat-router/internal/models"
	"unichat-router/internal/provider"
	"unichat-router/internal/router"
)

// ChatRouter is the routing behaviour a conversation depends on.
type ChatRouter interface {
	Chat(ctx context.Context, messages []models.Message, params models.GenerationParams) (*router.RouteResult, error)
}

// Conversation owns an ordered transcript for a multi-turn exchange and
// delegates each turn to the failover router. The transcript and the current
// provider are instance state, never shared across conversations.
type Conversation struct {
	mu      sync.Mutex
	router  ChatRouter
	params  models.GenerationParams
	history []models.Message
	current provider.ProviderID
}

// NewConversation constructs an empty conversation using the given router
// and generation parameters for every turn.
func NewConversation(rt ChatRouter, params models.GenerationParams) *Conversation {
	return &Conversation{
		router: rt,
		params: params,
	}
}

// Send appends a user turn, routes the full history, and on success appends
// the reply as an assistant turn and returns it. On exhaustion the user turn
// stays in the transcript and the error propagates: a retried call reuses
// the history including the unanswered turn.
func (c *Conversation) Send(ctx context.Context, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history, models.Message{Role: models.RoleUser, Content: text})

	snapshot := make([]models.Message, len(c.history))
	copy(snapshot, c.history)

	res, err := c.router.Chat(ctx, snapshot, c.params)
	if err != nil {
		return "", err
	}

	c.current = res.Provider
	c.history = append(c.history, models.Message{Role: models.RoleAssistant, Content: res.Content})
	return res.Content, nil
}

// SetSystemInstruction removes any existing system turn and inserts the new
// one at position 0 without disturbing the remaining turn order.
func (c *Conversation) SetSystemInstruction(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := make([]models.Message, 0, len(c.history)+1)
	kept = append(kept, models.Message{Role: models.RoleSystem, Content: text})
	for _, msg := range c.history {
		if msg.Role != models.RoleSystem {
			kept = append(kept, msg)
		}
	}
	c.history = kept
}

// History returns a copy of the transcript.
func (c *Conversation) History() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.Message, len(c.history))
	copy(out, c.history)
	return out
}

// Clear empties the transcript and resets provider tracking.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = nil
	c.current = ""
}

// CurrentProvider reports the provider that served the most recent
// successful turn, or empty before the first success.
func (c *Conversation) CurrentProvider() provider.ProviderID {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.current
}
