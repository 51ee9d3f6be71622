package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"unichat-router/internal/config"
	"unichat-router/internal/models"
	"unichat-router/internal/provider"
)

const (
	defaultBaseURL = "https://ollama.com"
	defaultModel   = "gpt-oss:20b"

	contentTypeJSON = "application/json"
	userAgent       = "unichat-router/0.1"
)

// Adapter implements the Ollama-compatible chat API. Roles pass through
// verbatim; generation knobs ride inside the request's options block.
type Adapter struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	chatURL string
}

// New constructs an Ollama adapter. A missing base URL falls back to the
// hosted endpoint; a missing credential is tolerated here and reported at
// call time so the router can fall through to the next provider.
func New(cfg config.ProviderSettings, client *http.Client) (*Adapter, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &Adapter{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   model,
		client:  client,
		chatURL: baseURL + "/api/chat",
	}, nil
}

func (a *Adapter) Identity() provider.ProviderID {
	return provider.Ollama
}

func (a *Adapter) Chat(ctx context.Context, messages []models.Message, params models.GenerationParams) (*models.ChatResult, error) {
	if err := provider.CheckCredential(provider.Ollama, a.apiKey); err != nil {
		return nil, err
	}

	model := params.Model
	if model == "" {
		model = a.model
	}

	body, err := json.Marshal(buildChatPayload(model, messages, params))
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.chatURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentTypeJSON)
	httpReq.Header.Set("Accept", contentTypeJSON)
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama chat request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return nil, upstreamError(httpResp)
	}

	var resp chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}

	return resp.toUnified(model), nil
}

type chatPayload struct {
	Model    string             `json:"model"`
	Messages []wireMessage      `json:"messages"`
	Stream   bool               `json:"stream"`
	Options  *generationOptions `json:"options,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type generationOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

func buildChatPayload(model string, messages []models.Message, params models.GenerationParams) chatPayload {
	wire := make([]wireMessage, 0, len(messages))
	for _, msg := range messages {
		wire = append(wire, wireMessage{Role: msg.Role, Content: msg.Content})
	}

	return chatPayload{
		Model:    model,
		Messages: wire,
		Stream:   false,
		Options: &generationOptions{
			Temperature: params.Temperature,
			TopP:        params.TopP,
			NumPredict:  params.MaxTokens,
		},
	}
}

type chatResponse struct {
	Model           string       `json:"model"`
	Message         *wireMessage `json:"message"`
	Done            bool         `json:"done"`
	PromptEvalCount int          `json:"prompt_eval_count"`
	EvalCount       int          `json:"eval_count"`
}

func (r chatResponse) toUnified(requestedModel string) *models.ChatResult {
	content := ""
	if r.Message != nil {
		content = r.Message.Content
	}

	model := r.Model
	if model == "" {
		model = requestedModel
	}

	var usage *models.Usage
	if r.PromptEvalCount != 0 || r.EvalCount != 0 {
		usage = &models.Usage{
			PromptTokens:     r.PromptEvalCount,
			CompletionTokens: r.EvalCount,
			TotalTokens:      r.PromptEvalCount + r.EvalCount,
		}
	}

	return &models.ChatResult{
		Content: content,
		Model:   model,
		Usage:   usage,
	}
}

func upstreamError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("ollama error status %d and failed to read body: %w", resp.StatusCode, err)
	}
	return fmt.Errorf("ollama error status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
