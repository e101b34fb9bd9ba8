package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

// cannedRoundTripper returns a fixed response for every request and records
// the last request body.
type cannedRoundTripper struct {
	response string
	status   int
	lastBody []byte
}

func (rt *cannedRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		rt.lastBody, _ = io.ReadAll(req.Body)
	}
	return &http.Response{
		StatusCode: rt.status,
		Body:       io.NopCloser(strings.NewReader(rt.response)),
		Header:     make(http.Header),
	}, nil
}

func newOpenAITestProvider(response string, status int) (*OpenAIProvider, *cannedRoundTripper) {
	rt := &cannedRoundTripper{response: response, status: status}
	return &OpenAIProvider{
		apiKey:   "test-key",
		model:    "llama-3.3-70b-versatile",
		endpoint: "https://test.local/v1",
		opts:     Options{Temperature: 0.1, MaxTokens: 8192},
		client:   &http.Client{Transport: rt},
	}, rt
}

func TestOpenAIProvider_Success(t *testing.T) {
	resp := `{"choices":[{"message":{"content":"1. STEP-BY-STEP TIMELINE\n- event"}}]}`
	p, rt := newOpenAITestProvider(resp, http.StatusOK)

	got, err := p.Complete(context.Background(), "system contract", "logs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "STEP-BY-STEP TIMELINE") {
		t.Errorf("unexpected content: %q", got)
	}

	// Request carries sampling parameters.
	var sent map[string]interface{}
	if err := json.Unmarshal(rt.lastBody, &sent); err != nil {
		t.Fatalf("request body not JSON: %v", err)
	}
	if sent["temperature"] != 0.1 {
		t.Errorf("temperature = %v", sent["temperature"])
	}
	if sent["max_tokens"] != float64(8192) {
		t.Errorf("max_tokens = %v", sent["max_tokens"])
	}
}

func TestOpenAIProvider_StatusError(t *testing.T) {
	p, _ := newOpenAITestProvider(`{"error":"rate limited"}`, http.StatusTooManyRequests)

	_, err := p.Complete(context.Background(), "s", "u")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("want StatusError, got %v", err)
	}
	if se.Code != http.StatusTooManyRequests {
		t.Errorf("code = %d", se.Code)
	}
	if !strings.Contains(se.Body, "rate limited") {
		t.Errorf("body = %q", se.Body)
	}
}

func TestOpenAIProvider_MalformedResponse(t *testing.T) {
	tests := []string{
		`not json at all`,
		`{"choices":[]}`,
	}
	for _, resp := range tests {
		p, _ := newOpenAITestProvider(resp, http.StatusOK)
		_, err := p.Complete(context.Background(), "s", "u")
		if !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("response %q: want ErrMalformedResponse, got %v", resp, err)
		}
	}
}

func TestAnthropicProvider_Success(t *testing.T) {
	rt := &cannedRoundTripper{
		response: `{"content":[{"type":"text","text":"report body"}]}`,
		status:   http.StatusOK,
	}
	p := &AnthropicProvider{
		apiKey:   "test-key",
		model:    "claude-test",
		endpoint: "https://test.local/v1",
		opts:     Options{Temperature: 0.1, MaxTokens: 4096},
		client:   &http.Client{Transport: rt},
	}

	got, err := p.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "report body" {
		t.Errorf("got %q", got)
	}
}

func TestOllamaProvider_Success(t *testing.T) {
	rt := &cannedRoundTripper{
		response: `{"message":{"content":"local report"}}`,
		status:   http.StatusOK,
	}
	p := &OllamaProvider{
		model:    "llama3",
		endpoint: "http://test.local",
		opts:     Options{Temperature: 0.1, MaxTokens: 4096},
		client:   &http.Client{Transport: rt},
	}

	got, err := p.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "local report" {
		t.Errorf("got %q", got)
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		wantErr  bool
	}{
		{"openai", false},
		{"groq", false},
		{"anthropic", false},
		{"ollama", false},
		{"bard", true},
	}
	for _, tt := range tests {
		_, err := NewProvider(tt.provider, "key", "model", "", Options{})
		if (err != nil) != tt.wantErr {
			t.Errorf("NewProvider(%q) error = %v, wantErr %v", tt.provider, err, tt.wantErr)
		}
	}
}

func TestTruncateAPIError(t *testing.T) {
	long := strings.Repeat("x", 1000)
	got := truncateAPIError([]byte(long))
	if len(got) > 512+len("... (truncated)") {
		t.Errorf("not truncated: %d bytes", len(got))
	}
	if !strings.HasSuffix(got, "(truncated)") {
		t.Errorf("missing marker: %q", got[len(got)-30:])
	}
}
