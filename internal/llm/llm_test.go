package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("wrong path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("wrong auth header: %q", got)
		}

		var req struct {
			Model    string    `json:"model"`
			Messages []Message `json:"messages"`
			Stream   bool      `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("generate must not request streaming")
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != RoleSystem {
			t.Errorf("messages not passed through: %+v", req.Messages)
		}

		fmt.Fprint(w, `{
			"model": "gpt-4o-mini",
			"choices": [{"message": {"content": "hello back"}, "finish_reason": "stop"}],
			"usage": {"total_tokens": 17}
		}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL+"/v1", "test-key", "gpt-4o-mini")
	resp, err := c.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "you are a test"},
		{Role: RoleUser, Content: "hello"},
	}, GenerateOptions{Temperature: 0.2})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if resp.Content != "hello back" {
		t.Errorf("wrong content: %q", resp.Content)
	}
	if resp.TokensUsed != 17 {
		t.Errorf("wrong token count: %d", resp.TokensUsed)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("wrong finish reason: %q", resp.FinishReason)
	}
}

func TestOpenAIGenerateErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL, "k", "m")
	_, err := c.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, GenerateOptions{})
	if err == nil {
		t.Fatal("expected error for non-200 status")
	}

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if perr.Provider != "openai" {
		t.Errorf("wrong provider: %q", perr.Provider)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("status code should surface: %v", err)
	}
}

func TestOpenAIStreamGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL, "k", "m")
	var got strings.Builder
	err := c.StreamGenerate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}},
		GenerateOptions{}, func(chunk string) error {
			got.WriteString(chunk)
			return nil
		})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if got.String() != "hello" {
		t.Errorf("chunks not assembled: %q", got.String())
	}
}

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("wrong path: %s", r.URL.Path)
		}

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "llama3.1" {
			t.Errorf("wrong model: %q", req.Model)
		}
		if temp, ok := req.Options["temperature"].(float64); !ok || temp != 0.7 {
			t.Errorf("temperature not forwarded: %v", req.Options)
		}

		fmt.Fprint(w, `{
			"model": "llama3.1",
			"message": {"content": "pong"},
			"done": true,
			"done_reason": "stop",
			"prompt_eval_count": 10,
			"eval_count": 5
		}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "llama3.1")
	resp, err := c.Generate(context.Background(), []Message{{Role: RoleUser, Content: "ping"}},
		GenerateOptions{Temperature: 0.7})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Content != "pong" {
		t.Errorf("wrong content: %q", resp.Content)
	}
	if resp.TokensUsed != 15 {
		t.Errorf("token usage should sum prompt and eval counts, got %d", resp.TokensUsed)
	}
}

func TestOllamaStreamGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message": {"content": "po"}, "done": false}`)
		fmt.Fprintln(w, `{"message": {"content": "ng"}, "done": true}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "m")
	var chunks []string
	err := c.StreamGenerate(context.Background(), []Message{{Role: RoleUser, Content: "ping"}},
		GenerateOptions{}, func(chunk string) error {
			chunks = append(chunks, chunk)
			return nil
		})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if len(chunks) != 2 || chunks[0]+chunks[1] != "pong" {
		t.Errorf("wrong chunks: %v", chunks)
	}
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags", "/models":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	if !NewOllamaClient(srv.URL, "m").HealthCheck(context.Background()) {
		t.Error("ollama health check should pass")
	}
	if !NewOpenAIClient(srv.URL, "k", "m").HealthCheck(context.Background()) {
		t.Error("openai health check should pass")
	}
	if NewOllamaClient("http://127.0.0.1:1", "m").HealthCheck(context.Background()) {
		t.Error("unreachable server should fail the health check")
	}
}
