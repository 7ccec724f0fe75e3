// Package config loads pipeline configuration from TOML.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/vinayprograms/ragmesh/llm"
)

// Config is the full pipeline configuration.
type Config struct {
	LLM         LLMConfig         `toml:"llm"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Index       IndexConfig       `toml:"index"`
	Coordinator CoordinatorConfig `toml:"coordinator"`
	Logging     LoggingConfig     `toml:"logging"`
}

// LLMConfig configures the generation provider.
type LLMConfig struct {
	Provider  string `toml:"provider"` // openai, anthropic, google, mock
	Model     string `toml:"model"`
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	MaxTokens int    `toml:"max_tokens"`
}

// EmbeddingConfig configures the embedder.
type EmbeddingConfig struct {
	Provider  string `toml:"provider"` // openai, deterministic, none
	Model     string `toml:"model"`
	APIKey    string `toml:"api_key"`
	Dimension int    `toml:"dimension"`
}

// IndexConfig configures index persistence.
type IndexConfig struct {
	// VectorPath is where the vector index snapshot is saved on
	// shutdown and loaded on startup. Empty disables persistence.
	VectorPath string `toml:"vector_path"`

	// KeywordPath is the on-disk bleve index. Empty keeps it in memory.
	KeywordPath string `toml:"keyword_path"`
}

// CoordinatorConfig configures request handling.
type CoordinatorConfig struct {
	// RequestTimeout bounds how long a user query waits for the chain.
	RequestTimeout duration `toml:"request_timeout"`

	// TopK is the default number of chunks retrieved per query.
	TopK int `toml:"top_k"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// duration lets TOML carry values like "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the configuration used when no file is given: mock
// LLM, deterministic embeddings, everything in memory.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "mock",
			MaxTokens: 1000,
		},
		Embedding: EmbeddingConfig{
			Provider: "deterministic",
		},
		Coordinator: CoordinatorConfig{
			RequestTimeout: duration{30 * time.Second},
			TopK:           5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path and overlays it on the defaults. Missing API keys are
// filled from the provider's standard environment variable.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills empty API keys from environment variables.
func (c *Config) applyEnv() {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv(envVarForProvider(c.LLM.Provider))
	}
	if c.Embedding.APIKey == "" {
		if key := os.Getenv(envVarForProvider(c.Embedding.Provider)); key != "" {
			c.Embedding.APIKey = key
		} else {
			// The embedder and the LLM often share an OpenAI key.
			c.Embedding.APIKey = c.LLM.APIKey
		}
	}
}

// envVarForProvider returns the environment variable name for a provider.
func envVarForProvider(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	case "mock", "deterministic", "none", "":
		return ""
	default:
		return strings.ToUpper(strings.ReplaceAll(provider, "-", "_")) + "_API_KEY"
	}
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "mock":
	case "openai", "anthropic", "google":
		if c.LLM.Model == "" {
			return fmt.Errorf("llm.model is required for provider %s", c.LLM.Provider)
		}
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required for provider %s (or set %s)", c.LLM.Provider, envVarForProvider(c.LLM.Provider))
		}
	default:
		return fmt.Errorf("unsupported llm.provider: %s", c.LLM.Provider)
	}

	switch c.Embedding.Provider {
	case "deterministic", "none":
	case "openai":
		if c.Embedding.APIKey == "" {
			return fmt.Errorf("embedding.api_key is required for provider openai (or set OPENAI_API_KEY)")
		}
	default:
		return fmt.Errorf("unsupported embedding.provider: %s", c.Embedding.Provider)
	}

	if c.Coordinator.RequestTimeout.Duration <= 0 {
		return fmt.Errorf("coordinator.request_timeout must be positive")
	}
	if c.Coordinator.TopK <= 0 {
		return fmt.Errorf("coordinator.top_k must be positive")
	}
	return nil
}

// RequestTimeout returns the configured coordinator deadline.
func (c *Config) RequestTimeout() time.Duration {
	return c.Coordinator.RequestTimeout.Duration
}

// LLMProviderConfig shapes the LLM section for the llm factory.
func (c *Config) LLMProviderConfig() llm.Config {
	return llm.Config{
		Provider:  c.LLM.Provider,
		Model:     c.LLM.Model,
		APIKey:    c.LLM.APIKey,
		BaseURL:   c.LLM.BaseURL,
		MaxTokens: c.LLM.MaxTokens,
	}
}
