// Package config holds process configuration, loaded once at startup and
// passed into each component constructor.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// LLM provider selection: "ollama" or "openai"
	LLMProvider string

	OllamaBaseURL string
	OllamaModel   string

	OpenAIBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string

	// Event store
	DBPath             string
	RetentionDays      int
	RetentionSweepSpec string // cron spec for the purge job

	// Azure DevOps work tracking
	ADOOrgURL  string
	ADOProject string
	ADOPAT     string

	// Git identity used for commits
	GitUserName  string
	GitUserEmail string

	// Build monitoring
	MaxRetries   int
	BuildTimeout time.Duration

	WorkspaceDir string
	ReposFile    string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		LLMProvider: getEnv("LLM_PROVIDER", "ollama"),

		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "llama3.1"),

		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		DBPath:             getEnv("SDLC_AGENTS_DB", filepath.Join(home, ".sdlc-agents", "events.db")),
		RetentionDays:      getIntEnv("MEMORY_RETENTION_DAYS", 90),
		RetentionSweepSpec: getEnv("RETENTION_SWEEP_CRON", "17 3 * * *"),

		ADOOrgURL:  getEnv("ADO_ORG_URL", ""),
		ADOProject: getEnv("ADO_PROJECT", ""),
		ADOPAT:     getEnv("ADO_PAT", ""),

		GitUserName:  getEnv("GIT_USER_NAME", "sdlc-agents"),
		GitUserEmail: getEnv("GIT_USER_EMAIL", "sdlc-agents@localhost"),

		MaxRetries:   getIntEnv("BUILD_MAX_RETRIES", 3),
		BuildTimeout: getDurationEnv("BUILD_TIMEOUT", 10*time.Minute),

		WorkspaceDir: getEnv("WORKSPACE_DIR", filepath.Join(home, ".sdlc-agents", "workspace")),
		ReposFile:    getEnv("REPOS_FILE", "repositories.yaml"),
	}
}

// Retention converts the configured retention days into a duration.
// Zero or negative days disables retention.
func (c *Config) Retention() time.Duration {
	if c.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Validate reports non-recoverable setup defects. Missing credentials for
// an explicitly selected provider fail fast at construction time.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "ollama":
		if c.OllamaBaseURL == "" {
			return fmt.Errorf("OLLAMA_BASE_URL is required for the ollama provider")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q (use ollama or openai)", c.LLMProvider)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("BUILD_MAX_RETRIES must be non-negative")
	}
	if c.BuildTimeout <= 0 {
		return fmt.Errorf("BUILD_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
