package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaClient talks to a local Ollama server's /api/chat endpoint.
type OllamaClient struct {
	baseURL string
	model   string
}

// NewOllamaClient creates a client for the given base URL and model.
func NewOllamaClient(baseURL, model string) *OllamaClient {
	return &OllamaClient{baseURL: baseURL, model: model}
}

type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Model   string `json:"model"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done          bool   `json:"done"`
	DoneReason    string `json:"done_reason"`
	PromptEvalCnt int    `json:"prompt_eval_count"`
	EvalCount     int    `json:"eval_count"`
}

func (c *OllamaClient) options(opts GenerateOptions) map[string]any {
	o := map[string]any{"temperature": opts.Temperature}
	if opts.MaxTokens > 0 {
		o["num_predict"] = opts.MaxTokens
	}
	return o
}

func (c *OllamaClient) post(ctx context.Context, body ollamaRequest) (*http.Response, error) {
	reqJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, b)
	}
	return resp, nil
}

func (c *OllamaClient) Generate(ctx context.Context, messages []Message, opts GenerateOptions) (*Response, error) {
	resp, err := c.post(ctx, ollamaRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options:  c.options(opts),
	})
	if err != nil {
		return nil, providerErr("ollama", err)
	}
	defer resp.Body.Close()

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, providerErr("ollama", fmt.Errorf("decode response: %w", err))
	}

	return &Response{
		Content:      out.Message.Content,
		Model:        out.Model,
		TokensUsed:   out.PromptEvalCnt + out.EvalCount,
		FinishReason: out.DoneReason,
	}, nil
}

func (c *OllamaClient) StreamGenerate(ctx context.Context, messages []Message, opts GenerateOptions, fn StreamFunc) error {
	resp, err := c.post(ctx, ollamaRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
		Options:  c.options(opts),
	})
	if err != nil {
		return providerErr("ollama", err)
	}
	defer resp.Body.Close()

	// Ollama streams one JSON object per line.
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var chunk ollamaResponse
		if err := json.Unmarshal(scanner.Bytes(), &chunk); err != nil {
			continue
		}
		if chunk.Message.Content != "" {
			if err := fn(chunk.Message.Content); err != nil {
				return err
			}
		}
		if chunk.Done {
			break
		}
	}
	return providerErr("ollama", scanner.Err())
}

func (c *OllamaClient) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *OllamaClient) Close() error { return nil }
