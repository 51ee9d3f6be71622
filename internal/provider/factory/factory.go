package factory

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"unichat-router/internal/config"
	"unichat-router/internal/provider"
	geminiAdapter "unichat-router/internal/provider/gemini"
	ollamaAdapter "unichat-router/internal/provider/ollama"
	openaiAdapter "unichat-router/internal/provider/openai"
)

const (
	defaultHTTPTimeout     = 60 * time.Second
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// RegisterConfiguredProviders constructs all three adapters from
// configuration and stores them in the registry. Every adapter is registered
// even when its credential is absent: credential checks happen per call, so
// an unconfigured provider degrades into a fallback-eligible failure instead
// of shrinking the chain.
func RegisterConfiguredProviders(cfg config.Config, registry *provider.Registry) error {
	if registry == nil {
		return errors.New("registry must not be nil")
	}

	client := newHTTPClient(defaultHTTPTimeout)

	ollama, err := ollamaAdapter.New(cfg.Providers.Ollama, client)
	if err != nil {
		return fmt.Errorf("initialise ollama provider: %w", err)
	}
	if err := registry.Register(ollama); err != nil {
		return fmt.Errorf("register ollama provider: %w", err)
	}

	gemini, err := geminiAdapter.New(cfg.Providers.Gemini, client)
	if err != nil {
		return fmt.Errorf("initialise gemini provider: %w", err)
	}
	if err := registry.Register(gemini); err != nil {
		return fmt.Errorf("register gemini provider: %w", err)
	}

	openAI, err := openaiAdapter.New(cfg.Providers.OpenAI, client)
	if err != nil {
		return fmt.Errorf("initialise openai provider: %w", err)
	}
	if err := registry.Register(openAI); err != nil {
		return fmt.Errorf("register openai provider: %w", err)
	}

	return nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
