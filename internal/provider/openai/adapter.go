package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"unichat-router/internal/config"
	"unichat-router/internal/models"
	"unichat-router/internal/provider"
)

const defaultModel = "gpt-4o-mini"

// Adapter implements the OpenAI backend through the go-openai client. Roles
// pass through verbatim; the SDK owns wire encoding and error parsing.
type Adapter struct {
	apiKey string
	model  string
	client *goopenai.Client
}

// New constructs an OpenAI adapter. BaseURL overrides target compatible
// gateways and test servers; it must include the version prefix (".../v1").
func New(cfg config.ProviderSettings, httpClient *http.Client) (*Adapter, error) {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" {
		clientCfg.BaseURL = base
	}
	if httpClient != nil {
		clientCfg.HTTPClient = httpClient
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &Adapter{
		apiKey: cfg.APIKey,
		model:  model,
		client: goopenai.NewClientWithConfig(clientCfg),
	}, nil
}

func (a *Adapter) Identity() provider.ProviderID {
	return provider.OpenAI
}

func (a *Adapter) Chat(ctx context.Context, messages []models.Message, params models.GenerationParams) (*models.ChatResult, error) {
	if err := provider.CheckCredential(provider.OpenAI, a.apiKey); err != nil {
		return nil, err
	}

	model := params.Model
	if model == "" {
		model = a.model
	}

	req := goopenai.ChatCompletionRequest{
		Model:     model,
		Messages:  toSDKMessages(messages),
		MaxTokens: params.MaxTokens,
	}
	if params.Temperature != nil {
		req.Temperature = float32(*params.Temperature)
	}
	if params.TopP != nil {
		req.TopP = float32(*params.TopP)
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai chat request failed: %w", err)
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	var usage *models.Usage
	if resp.Usage.PromptTokens != 0 || resp.Usage.CompletionTokens != 0 || resp.Usage.TotalTokens != 0 {
		usage = &models.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	respModel := resp.Model
	if respModel == "" {
		respModel = model
	}

	return &models.ChatResult{
		Content: content,
		Model:   respModel,
		Usage:   usage,
	}, nil
}

func toSDKMessages(messages []models.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, goopenai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return out
}
