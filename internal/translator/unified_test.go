package translator

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"unichat-router/internal/models"
	"unichat-router/internal/provider"
	"unichat-router/internal/router"
)

func TestChatRequestUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{
			name: "valid request",
			body: `{"messages":[{"role":"user","content":"hi"}]}`,
		},
		{
			name:    "missing messages",
			body:    `{"model":"x"}`,
			wantErr: ErrInvalidMessages,
		},
		{
			name:    "null messages",
			body:    `{"messages":null}`,
			wantErr: ErrInvalidMessages,
		},
		{
			name:    "messages not an array",
			body:    `{"messages":"hello"}`,
			wantErr: ErrInvalidMessages,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req ChatRequest
			err := json.Unmarshal([]byte(tt.body), &req)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unmarshal error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestToParams(t *testing.T) {
	body := `{
		"messages": [{"role":"user","content":"hi"}],
		"model": "llama3",
		"temperature": 0.2,
		"top_p": 0.9,
		"maxTokens": 64,
		"preferredProvider": "openai",
		"enableFallback": false
	}`

	var req ChatRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	params := req.ToParams()
	if params.Model != "llama3" {
		t.Errorf("model = %q", params.Model)
	}
	if params.Temperature == nil || *params.Temperature != 0.2 {
		t.Errorf("temperature = %v, want 0.2", params.Temperature)
	}
	if params.TopP == nil || *params.TopP != 0.9 {
		t.Errorf("topP = %v, want 0.9", params.TopP)
	}
	if params.MaxTokens != 64 {
		t.Errorf("maxTokens = %d, want 64", params.MaxTokens)
	}
	if params.PreferredProvider != "openai" {
		t.Errorf("preferredProvider = %q", params.PreferredProvider)
	}
	if !params.DisableFallback {
		t.Error("enableFallback=false should disable fallback")
	}
}

func TestToParamsFallbackDefaultsOn(t *testing.T) {
	var req ChatRequest
	if err := json.Unmarshal([]byte(`{"messages":[{"role":"user","content":"hi"}]}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if req.ToParams().DisableFallback {
		t.Error("fallback must default to enabled")
	}
}

func TestFromRouteResult(t *testing.T) {
	res := &router.RouteResult{
		ChatResult: models.ChatResult{
			Content: "hello",
			Model:   "gemini-2.0-flash",
			Usage:   &models.Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3},
		},
		Provider:     provider.Gemini,
		FallbackUsed: true,
	}

	envelope := FromRouteResult(res)

	if !strings.HasPrefix(envelope.ID, "chatcmpl-") {
		t.Errorf("id = %q, want chatcmpl- prefix", envelope.ID)
	}
	if envelope.Object != "chat.completion" {
		t.Errorf("object = %q", envelope.Object)
	}
	if envelope.Created == 0 {
		t.Error("created timestamp should be set")
	}
	if len(envelope.Choices) != 1 {
		t.Fatalf("choices length = %d, want 1", len(envelope.Choices))
	}
	choice := envelope.Choices[0]
	if choice.Index != 0 || choice.Message.Role != models.RoleAssistant || choice.Message.Content != "hello" {
		t.Errorf("choice = %+v", choice)
	}
	if choice.FinishReason != "stop" {
		t.Errorf("finish_reason = %q", choice.FinishReason)
	}
	if envelope.Usage == nil || envelope.Usage.TotalTokens != 3 {
		t.Errorf("usage = %+v", envelope.Usage)
	}
	if envelope.Provider != "gemini" || !envelope.FallbackUsed {
		t.Errorf("annotations = (%q, %v), want (gemini, true)", envelope.Provider, envelope.FallbackUsed)
	}
}

func TestFromRouteResultOmitsAbsentUsage(t *testing.T) {
	res := &router.RouteResult{
		ChatResult: models.ChatResult{Content: "hello", Model: "llama3"},
		Provider:   provider.Ollama,
	}

	data, err := json.Marshal(FromRouteResult(res))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), `"usage"`) {
		t.Errorf("serialized envelope %s should omit usage", data)
	}
	if !strings.Contains(string(data), `"_provider":"ollama"`) {
		t.Errorf("serialized envelope %s should annotate the provider", data)
	}
}
