package llm

import (
	"fmt"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/config"
)

// NewClient builds the provider selected by the configuration.
func NewClient(cfg *config.Config) (Client, error) {
	switch cfg.LLMProvider {
	case "ollama":
		return NewOllamaClient(cfg.OllamaBaseURL, cfg.OllamaModel), nil
	case "openai":
		return NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}
