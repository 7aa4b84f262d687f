package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIClient talks to any OpenAI-compatible /chat/completions endpoint.
type OpenAIClient struct {
	baseURL string
	apiKey  string
	model   string
}

// NewOpenAIClient creates a client. baseURL should include the version
// prefix, e.g. "https://api.openai.com/v1".
func NewOpenAIClient(baseURL, apiKey, model string) *OpenAIClient {
	return &OpenAIClient{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, model: model}
}

func (c *OpenAIClient) post(ctx context.Context, path string, body map[string]any) (*http.Response, error) {
	reqJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

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

func (c *OpenAIClient) request(messages []Message, opts GenerateOptions, stream bool) map[string]any {
	body := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": opts.Temperature,
		"stream":      stream,
	}
	if opts.MaxTokens > 0 {
		body["max_tokens"] = opts.MaxTokens
	}
	return body
}

func (c *OpenAIClient) Generate(ctx context.Context, messages []Message, opts GenerateOptions) (*Response, error) {
	resp, err := c.post(ctx, "/chat/completions", c.request(messages, opts, false))
	if err != nil {
		return nil, providerErr("openai", err)
	}
	defer resp.Body.Close()

	var out struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, providerErr("openai", fmt.Errorf("decode response: %w", err))
	}
	if len(out.Choices) == 0 {
		return nil, providerErr("openai", fmt.Errorf("empty choices in response"))
	}

	return &Response{
		Content:      out.Choices[0].Message.Content,
		Model:        out.Model,
		TokensUsed:   out.Usage.TotalTokens,
		FinishReason: out.Choices[0].FinishReason,
	}, nil
}

func (c *OpenAIClient) StreamGenerate(ctx context.Context, messages []Message, opts GenerateOptions, fn StreamFunc) error {
	resp, err := c.post(ctx, "/chat/completions", c.request(messages, opts, true))
	if err != nil {
		return providerErr("openai", err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			if err := fn(chunk.Choices[0].Delta.Content); err != nil {
				return err
			}
		}
	}
	return providerErr("openai", scanner.Err())
}

func (c *OpenAIClient) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *OpenAIClient) Close() error { return nil }
