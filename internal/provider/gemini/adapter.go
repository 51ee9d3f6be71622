package gemini

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
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.0-flash"

	contentTypeJSON = "application/json"
	userAgent       = "unichat-router/0.1"
)

// Adapter implements the Gemini generateContent API. The wire format differs
// from the OpenAI-style backends in two ways that must be translated: the
// assistant role is named "model", and system turns are not accepted inline
// in the contents list; they move to the top-level systemInstruction field.
type Adapter struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// New constructs a Gemini adapter.
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
	}, nil
}

func (a *Adapter) Identity() provider.ProviderID {
	return provider.Gemini
}

func (a *Adapter) Chat(ctx context.Context, messages []models.Message, params models.GenerationParams) (*models.ChatResult, error) {
	if err := provider.CheckCredential(provider.Gemini, a.apiKey); err != nil {
		return nil, err
	}

	model := params.Model
	if model == "" {
		model = a.model
	}

	body, err := json.Marshal(buildGeneratePayload(messages, params))
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", a.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentTypeJSON)
	httpReq.Header.Set("Accept", contentTypeJSON)
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("x-goog-api-key", a.apiKey)

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini chat request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return nil, upstreamError(httpResp)
	}

	var resp generateResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}

	return resp.toUnified(model), nil
}

type generatePayload struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

func buildGeneratePayload(messages []models.Message, params models.GenerationParams) generatePayload {
	contents := make([]content, 0, len(messages))
	var systemParts []part

	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			systemParts = append(systemParts, part{Text: msg.Content})
		case models.RoleAssistant:
			contents = append(contents, content{Role: "model", Parts: []part{{Text: msg.Content}}})
		default:
			contents = append(contents, content{Role: "user", Parts: []part{{Text: msg.Content}}})
		}
	}

	payload := generatePayload{
		Contents: contents,
		GenerationConfig: &generationConfig{
			Temperature:     params.Temperature,
			TopP:            params.TopP,
			MaxOutputTokens: params.MaxTokens,
		},
	}
	if len(systemParts) > 0 {
		payload.SystemInstruction = &content{Parts: systemParts}
	}
	return payload
}

type generateResponse struct {
	Candidates    []candidate    `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata"`
}

type candidate struct {
	Content      *content `json:"content"`
	FinishReason string   `json:"finishReason"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// toUnified extracts the generated text defensively: an absent candidate,
// content, or parts list yields empty content rather than an error.
func (r generateResponse) toUnified(model string) *models.ChatResult {
	content := ""
	if len(r.Candidates) > 0 && r.Candidates[0].Content != nil && len(r.Candidates[0].Content.Parts) > 0 {
		content = r.Candidates[0].Content.Parts[0].Text
	}

	var usage *models.Usage
	if r.UsageMetadata != nil {
		usage = &models.Usage{
			PromptTokens:     r.UsageMetadata.PromptTokenCount,
			CompletionTokens: r.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      r.UsageMetadata.TotalTokenCount,
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
		return fmt.Errorf("gemini error status %d and failed to read body: %w", resp.StatusCode, err)
	}
	return fmt.Errorf("gemini error status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
