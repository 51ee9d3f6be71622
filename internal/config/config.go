package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"unichat-router/internal/provider"
)

// DefaultPort is used when neither the config file nor PORT specifies one.
const DefaultPort = 8080

// Config represents the application configuration. A YAML file is optional;
// environment variables always overlay it, so a pure-env deployment (the
// common serverless shape) works without any file at all.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// ProvidersConfig catalogues the upstream providers and the default attempt
// order. Providers without credentials stay configured: their adapters
// report a configuration error at call time, which the router treats as an
// ordinary failure eligible for fallback.
type ProvidersConfig struct {
	Order  []string         `yaml:"order"`
	Ollama ProviderSettings `yaml:"ollama"`
	Gemini ProviderSettings `yaml:"gemini"`
	OpenAI ProviderSettings `yaml:"openai"`
}

// ProviderSettings captures authentication and routing info for one provider.
type ProviderSettings struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Load reads optional YAML configuration, overlays the environment, and
// validates the result. An empty path means environment-only configuration.
func Load(path string) (Config, error) {
	cfg := Config{
		Server: ServerConfig{Port: DefaultPort},
	}

	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return Config{}, fmt.Errorf("resolve config path: %w", err)
		}

		data, err := os.ReadFile(absPath)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
		}
		if cfg.Server.Port == 0 {
			cfg.Server.Port = DefaultPort
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	overlay := func(target *string, key string) {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}

	overlay(&c.Providers.Ollama.APIKey, "OLLAMA_API_KEY")
	overlay(&c.Providers.Ollama.BaseURL, "OLLAMA_BASE_URL")
	overlay(&c.Providers.Ollama.Model, "OLLAMA_MODEL")
	overlay(&c.Providers.Gemini.APIKey, "GEMINI_API_KEY")
	overlay(&c.Providers.Gemini.BaseURL, "GEMINI_BASE_URL")
	overlay(&c.Providers.Gemini.Model, "GEMINI_MODEL")
	overlay(&c.Providers.OpenAI.APIKey, "OPENAI_API_KEY")
	overlay(&c.Providers.OpenAI.BaseURL, "OPENAI_BASE_URL")
	overlay(&c.Providers.OpenAI.Model, "OPENAI_MODEL")

	if v := os.Getenv("PROVIDER_ORDER"); v != "" {
		parts := strings.Split(v, ",")
		order := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				order = append(order, p)
			}
		}
		c.Providers.Order = order
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT %q is not a number: %w", v, err)
		}
		c.Server.Port = port
	}

	return nil
}

// Validate performs sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}

	seen := make(map[string]struct{}, len(c.Providers.Order))
	for _, name := range c.Providers.Order {
		if !provider.ProviderID(name).IsValid() {
			return fmt.Errorf("providers.order entry %q is not a known provider", name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("providers.order lists %q more than once", name)
		}
		seen[name] = struct{}{}
	}

	return nil
}

// ProviderOrder returns the configured default attempt order, or nil when
// the built-in default should apply.
func (c Config) ProviderOrder() []provider.ProviderID {
	if len(c.Providers.Order) == 0 {
		return nil
	}
	out := make([]provider.ProviderID, 0, len(c.Providers.Order))
	for _, name := range c.Providers.Order {
		out = append(out, provider.ProviderID(name))
	}
	return out
}
