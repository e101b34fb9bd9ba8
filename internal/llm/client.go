// Package llm provides the text-generation collaborator: a Provider
// interface with HTTP implementations for OpenAI-compatible APIs
// (OpenAI, Groq), Anthropic, and local Ollama.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Provider is the interface for generation backends. Complete performs one
// blocking request-response round trip; callers decide how a failure
// degrades (sentinel report text, empty judgment list).
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// StatusError is a transport-level failure: the service answered with a
// non-success status. The body is kept (truncated) for the error sentinel
// the narrative layer builds from it.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.Code, e.Body)
}

// ErrMalformedResponse is a response-shape failure: the service answered
// 2xx but the payload did not match the expected structure.
var ErrMalformedResponse = errors.New("malformed provider response")

// Options tune sampling and transport behavior shared by all providers.
type Options struct {
	// Temperature approximates determinism; the pipeline uses a low value.
	Temperature float64
	// MaxTokens is a generous output ceiling to avoid truncation
	// mid-section.
	MaxTokens int
	// TimeoutSec overrides the per-provider default HTTP timeout; 0 keeps
	// the default.
	TimeoutSec int
}

const (
	defaultTemperature = 0.1
	defaultMaxTokens   = 8192
)

func (o Options) withDefaults() Options {
	if o.Temperature == 0 {
		o.Temperature = defaultTemperature
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = defaultMaxTokens
	}
	return o
}

// NewProvider creates a Provider from configuration.
func NewProvider(provider, apiKey, model, endpoint string, opts Options) (Provider, error) {
	opts = opts.withDefaults()
	switch provider {
	case "openai", "groq":
		ep := "https://api.openai.com/v1"
		if provider == "groq" {
			ep = "https://api.groq.com/openai/v1"
		}
		if endpoint != "" {
			ep = endpoint
		}
		return &OpenAIProvider{
			apiKey:   apiKey,
			model:    model,
			endpoint: ep,
			opts:     opts,
			client:   &http.Client{Timeout: httpTimeout(opts, 120*time.Second)},
		}, nil
	case "anthropic":
		ep := "https://api.anthropic.com/v1"
		if endpoint != "" {
			ep = endpoint
		}
		return &AnthropicProvider{
			apiKey:   apiKey,
			model:    model,
			endpoint: ep,
			opts:     opts,
			client:   &http.Client{Timeout: httpTimeout(opts, 120*time.Second)},
		}, nil
	case "ollama":
		ep := "http://localhost:11434"
		if endpoint != "" {
			ep = endpoint
		}
		return &OllamaProvider{
			model:    model,
			endpoint: ep,
			opts:     opts,
			client:   &http.Client{Timeout: httpTimeout(opts, 300*time.Second)},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %q", provider)
	}
}

func httpTimeout(opts Options, def time.Duration) time.Duration {
	if opts.TimeoutSec > 0 {
		return time.Duration(opts.TimeoutSec) * time.Second
	}
	return def
}

// --- OpenAI-compatible provider (OpenAI, Groq) ---

// OpenAIProvider implements Provider for OpenAI and compatible chat APIs.
type OpenAIProvider struct {
	apiKey   string
	model    string
	endpoint string
	opts     Options
	client   *http.Client
}

func (p *OpenAIProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []map[string]string{}
	if systemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": systemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": userPrompt})

	body := map[string]interface{}{
		"model":       p.model,
		"messages":    messages,
		"temperature": p.opts.Temperature,
		"max_tokens":  p.opts.MaxTokens,
	}

	respBody, err := postJSON(ctx, p.client, p.endpoint+"/chat/completions", body, map[string]string{
		"Authorization": "Bearer " + p.apiKey,
	}, "openai")
	if err != nil {
		return "", err
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	return result.Choices[0].Message.Content, nil
}

// --- Anthropic provider ---

// AnthropicProvider implements Provider for Claude.
type AnthropicProvider struct {
	apiKey   string
	model    string
	endpoint string
	opts     Options
	client   *http.Client
}

func (p *AnthropicProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body := map[string]interface{}{
		"model":       p.model,
		"max_tokens":  p.opts.MaxTokens,
		"temperature": p.opts.Temperature,
		"system":      systemPrompt,
		"messages": []map[string]interface{}{
			{"role": "user", "content": userPrompt},
		},
	}

	respBody, err := postJSON(ctx, p.client, p.endpoint+"/messages", body, map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": "2023-06-01",
	}, "anthropic")
	if err != nil {
		return "", err
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	for _, block := range result.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("%w: no text content block", ErrMalformedResponse)
}

// --- Ollama provider ---

// OllamaProvider implements Provider for local Ollama.
type OllamaProvider struct {
	model    string
	endpoint string
	opts     Options
	client   *http.Client
}

func (p *OllamaProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []map[string]string{}
	if systemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": systemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": userPrompt})

	body := map[string]interface{}{
		"model":    p.model,
		"messages": messages,
		"stream":   false,
		"options": map[string]interface{}{
			"temperature": p.opts.Temperature,
			"num_predict": p.opts.MaxTokens,
		},
	}

	respBody, err := postJSON(ctx, p.client, p.endpoint+"/api/chat", body, nil, "ollama")
	if err != nil {
		return "", err
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return result.Message.Content, nil
}

// postJSON marshals body, POSTs it with the given extra headers, and
// returns the response payload. Non-2xx statuses become a *StatusError.
func postJSON(ctx context.Context, client *http.Client, url string, body interface{}, headers map[string]string, provider string) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Provider: provider, Code: resp.StatusCode, Body: truncateAPIError(respBody)}
	}
	return respBody, nil
}

// truncateAPIError limits API error bodies carried in error values.
func truncateAPIError(body []byte) string {
	const maxLen = 512
	if len(body) <= maxLen {
		return string(body)
	}
	return string(body[:maxLen]) + "... (truncated)"
}
