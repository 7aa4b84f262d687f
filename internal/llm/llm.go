// Package llm wraps chat-completion providers behind one client interface.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response is a completed generation.
type Response struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	TokensUsed   int    `json:"tokens_used,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// GenerateOptions tune a single generation call.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int // 0 means provider default
}

// StreamFunc receives incremental text chunks during streaming generation.
type StreamFunc func(chunk string) error

// Client is a chat-completion provider. Generate suspends on network I/O
// and carries no timeout of its own; callers bound it through ctx.
type Client interface {
	Generate(ctx context.Context, messages []Message, opts GenerateOptions) (*Response, error)
	StreamGenerate(ctx context.Context, messages []Message, opts GenerateOptions, fn StreamFunc) error
	HealthCheck(ctx context.Context) bool
	Close() error
}

// ProviderError is a transport or provider-side failure.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func providerErr(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}

// Shared transport. Generation requests deliberately have no client-side
// timeout; health checks get a short one per call.
var httpClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConnsPerHost: 4,
	},
}
