package translator

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"unichat-router/internal/models"
	"unichat-router/internal/router"
)

// ErrInvalidMessages indicates the messages field is absent or not an array
// of role/content objects. The HTTP layer maps it to its fixed 400 body.
var ErrInvalidMessages = errors.New("missing or invalid messages array")

// ChatRequest models the unified chat endpoint payload.
type ChatRequest struct {
	Messages          []ChatMessage
	Model             string
	Temperature       *float64
	TopP              *float64
	MaxTokens         *int
	PreferredProvider string
	EnableFallback    *bool
}

// ChatMessage captures a single message within the request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UnmarshalJSON enforces the messages contract while keeping every other
// field optional.
func (r *ChatRequest) UnmarshalJSON(data []byte) error {
	type alias struct {
		Messages          json.RawMessage `json:"messages"`
		Model             string          `json:"model"`
		Temperature       *float64        `json:"temperature"`
		TopP              *float64        `json:"top_p"`
		MaxTokens         *int            `json:"maxTokens"`
		PreferredProvider string          `json:"preferredProvider"`
		EnableFallback    *bool           `json:"enableFallback"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode chat request: %w", err)
	}

	if len(raw.Messages) == 0 || string(raw.Messages) == "null" {
		return ErrInvalidMessages
	}

	var messages []ChatMessage
	if err := json.Unmarshal(raw.Messages, &messages); err != nil {
		return ErrInvalidMessages
	}

	r.Messages = messages
	r.Model = raw.Model
	r.Temperature = raw.Temperature
	r.TopP = raw.TopP
	r.MaxTokens = raw.MaxTokens
	r.PreferredProvider = raw.PreferredProvider
	r.EnableFallback = raw.EnableFallback

	return nil
}

// ToMessages converts the request messages into the unified model.
func (r ChatRequest) ToMessages() []models.Message {
	out := make([]models.Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		out = append(out, models.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// ToParams converts the request knobs into generation parameters. Fallback
// is enabled unless the caller explicitly turns it off.
func (r ChatRequest) ToParams() models.GenerationParams {
	params := models.GenerationParams{
		Temperature:       r.Temperature,
		TopP:              r.TopP,
		Model:             r.Model,
		PreferredProvider: r.PreferredProvider,
		DisableFallback:   r.EnableFallback != nil && !*r.EnableFallback,
	}
	if r.MaxTokens != nil {
		params.MaxTokens = *r.MaxTokens
	}
	return params
}

// ChatResponse is the OpenAI-compatible envelope returned on success, plus
// the routing annotations callers use to detect degraded service.
type ChatResponse struct {
	ID           string   `json:"id"`
	Object       string   `json:"object"`
	Created      int64    `json:"created"`
	Model        string   `json:"model"`
	Choices      []Choice `json:"choices"`
	Usage        *Usage   `json:"usage,omitempty"`
	Provider     string   `json:"_provider"`
	FallbackUsed bool     `json:"_fallbackUsed"`
}

// Choice represents the single generated completion.
type Choice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// Usage mirrors the token usage block of OpenAI responses.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// FromRouteResult builds the response envelope from a routed result.
func FromRouteResult(res *router.RouteResult) ChatResponse {
	var usage *Usage
	if res.Usage != nil {
		usage = &Usage{
			PromptTokens:     res.Usage.PromptTokens,
			CompletionTokens: res.Usage.CompletionTokens,
			TotalTokens:      res.Usage.TotalTokens,
		}
	}

	return ChatResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   res.Model,
		Choices: []Choice{
			{
				Index:        0,
				Message:      ChatMessage{Role: models.RoleAssistant, Content: res.Content},
				FinishReason: "stop",
			},
		},
		Usage:        usage,
		Provider:     res.Provider.String(),
		FallbackUsed: res.FallbackUsed,
	}
}
