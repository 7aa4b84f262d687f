package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("MEMORY_RETENTION_DAYS", "")
	t.Setenv("BUILD_MAX_RETRIES", "")

	cfg := Load()
	if cfg.LLMProvider != "ollama" {
		t.Errorf("default provider should be ollama, got %q", cfg.LLMProvider)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("default retries should be 3, got %d", cfg.MaxRetries)
	}
	if cfg.Retention() != 90*24*time.Hour {
		t.Errorf("default retention should be 90 days, got %v", cfg.Retention())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("BUILD_TIMEOUT", "30m")
	t.Setenv("MEMORY_RETENTION_DAYS", "0")

	cfg := Load()
	if cfg.LLMProvider != "openai" {
		t.Errorf("provider override not applied: %q", cfg.LLMProvider)
	}
	if cfg.BuildTimeout != 30*time.Minute {
		t.Errorf("timeout override not applied: %v", cfg.BuildTimeout)
	}
	if cfg.Retention() != 0 {
		t.Errorf("zero days should disable retention, got %v", cfg.Retention())
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			LLMProvider:   "ollama",
			OllamaBaseURL: "http://localhost:11434",
			MaxRetries:    3,
			BuildTimeout:  time.Minute,
		}
	}

	if err := base().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	c := base()
	c.LLMProvider = "openai"
	if err := c.Validate(); err == nil {
		t.Error("openai without api key must fail")
	}

	c = base()
	c.LLMProvider = "watson"
	if err := c.Validate(); err == nil {
		t.Error("unknown provider must fail")
	}

	c = base()
	c.BuildTimeout = 0
	if err := c.Validate(); err == nil {
		t.Error("zero build timeout must fail")
	}
}
