package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.LLM.Provider != "mock" || cfg.Embedding.Provider != "deterministic" {
		t.Errorf("defaults = %s/%s", cfg.LLM.Provider, cfg.Embedding.Provider)
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Errorf("default timeout = %v", cfg.RequestTimeout())
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeConfig(t, `
[llm]
provider = "openai"
model = "gpt-4o"
api_key = "sk-test"
max_tokens = 2000

[coordinator]
request_timeout = "10s"
top_k = 3

[logging]
level = "debug"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o" || cfg.LLM.MaxTokens != 2000 {
		t.Errorf("llm section = %+v", cfg.LLM)
	}
	if cfg.RequestTimeout() != 10*time.Second {
		t.Errorf("timeout = %v", cfg.RequestTimeout())
	}
	if cfg.Coordinator.TopK != 3 {
		t.Errorf("top_k = %d", cfg.Coordinator.TopK)
	}
	// Untouched sections keep their defaults.
	if cfg.Embedding.Provider != "deterministic" {
		t.Errorf("embedding provider = %q", cfg.Embedding.Provider)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.LLM.Provider != "mock" {
		t.Errorf("provider = %q", cfg.LLM.Provider)
	}
}

func TestAPIKeyFromEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	path := writeConfig(t, `
[llm]
provider = "openai"
model = "gpt-4o"
max_tokens = 1000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.LLM.APIKey != "sk-from-env" {
		t.Errorf("api key = %q, want the env value", cfg.LLM.APIKey)
	}
	// Embedding with no key of its own shares the LLM key.
	if cfg.Embedding.APIKey != "sk-from-env" {
		t.Errorf("embedding key = %q", cfg.Embedding.APIKey)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown llm provider", func(c *Config) { c.LLM.Provider = "cohere" }},
		{"openai without key", func(c *Config) {
			c.LLM.Provider = "openai"
			c.LLM.Model = "gpt-4o"
			c.LLM.APIKey = ""
		}},
		{"openai without model", func(c *Config) {
			c.LLM.Provider = "openai"
			c.LLM.APIKey = "k"
			c.LLM.Model = ""
		}},
		{"unknown embedding provider", func(c *Config) { c.Embedding.Provider = "hash2vec" }},
		{"zero timeout", func(c *Config) { c.Coordinator.RequestTimeout = duration{} }},
		{"zero top_k", func(c *Config) { c.Coordinator.TopK = 0 }},
	}

	for _, tt := range tests {
		cfg := Default()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestMalformedTOML(t *testing.T) {
	path := writeConfig(t, "[llm\nprovider = ")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed toml")
	}
}
