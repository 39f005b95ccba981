package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestAnthropic(t *testing.T, url string, retries int) *AnthropicClient {
	t.Helper()
	c, err := NewAnthropicClient(Config{BaseURL: url, Model: "test-model", MaxRetries: retries}, "sk-test")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	c.t.interval = time.Millisecond
	return c
}

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "sk-test" {
			t.Errorf("expected api key header, got %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != anthropicAPIVersion {
			t.Errorf("expected version header, got %q", got)
		}

		var body anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request: %v", err)
			return
		}
		if body.Model != "test-model" || body.MaxTokens != 1500 || body.System != "sys" {
			t.Errorf("unexpected request body: %+v", body)
		}
		if len(body.Messages) != 1 || body.Messages[0].Role != "user" || body.Messages[0].Content != "hello" {
			t.Errorf("unexpected messages: %+v", body.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","content":[{"type":"text","text":"[1,"},{"type":"tool_use"},{"type":"text","text":"2]"}]}`))
	}))
	defer srv.Close()

	c := newTestAnthropic(t, srv.URL, 0)
	got, err := c.Complete(context.Background(), Request{System: "sys", User: "hello", MaxTokens: 1500})
	if err != nil {
		t.Fatalf("failed to complete: %v", err)
	}
	if got != "[1,2]" {
		t.Errorf("expected joined text, got %q", got)
	}
}

func TestAnthropicRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer srv.Close()

	c := newTestAnthropic(t, srv.URL, 2)
	got, err := c.Complete(context.Background(), Request{User: "hi"})
	if err != nil {
		t.Fatalf("failed to complete after retry: %v", err)
	}
	if got != "ok" {
		t.Errorf("expected ok, got %q", got)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("expected 2 calls, got %d", n)
	}
}

func TestAnthropicErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retries   int
		wantCalls int32
	}{
		{"client error is not retried", http.StatusBadRequest, 3, 1},
		{"retries exhausted", http.StatusBadGateway, 1, 2},
		{"rate limited", http.StatusTooManyRequests, 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			c := newTestAnthropic(t, srv.URL, tt.retries)
			_, err := c.Complete(context.Background(), Request{User: "hi"})

			var httpErr *HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("expected HTTPError, got %v", err)
			}
			if httpErr.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, httpErr.StatusCode)
			}
			if n := calls.Load(); n != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, n)
			}
		})
	}
}

func TestAnthropicEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	_, err := newTestAnthropic(t, srv.URL, 0).Complete(context.Background(), Request{User: "hi"})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestCompleteHonoursCancelledContext(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestAnthropic(t, srv.URL, 3).Complete(ctx, Request{User: "hi"})
	if err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-openai" {
			t.Errorf("unexpected authorization header %q", got)
		}

		var body responsesRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request: %v", err)
			return
		}
		if body.Instructions != "sys" || body.MaxOutputTokens != 900 {
			t.Errorf("unexpected request body: %+v", body)
		}
		if len(body.Input) != 1 || body.Input[0].Content != "hello" {
			t.Errorf("unexpected input: %+v", body.Input)
		}

		_, _ = w.Write([]byte(`{"output":[
			{"type":"reasoning"},
			{"type":"message","role":"assistant","content":[{"type":"output_text","text":"{\"observations\":[]}"}]}
		]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(Config{BaseURL: srv.URL + "/"}, "sk-openai")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	got, err := c.Complete(context.Background(), Request{System: "sys", User: "hello", MaxTokens: 900})
	if err != nil {
		t.Fatalf("failed to complete: %v", err)
	}
	if got != `{"observations":[]}` {
		t.Errorf("unexpected output %q", got)
	}
}

func TestOpenAIRefusal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output":[],"refusal":"no"}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(Config{BaseURL: srv.URL}, "sk-openai")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	if _, err := c.Complete(context.Background(), Request{User: "hi"}); err == nil {
		t.Error("expected an error for a refusal")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		key      string
		wantErr  error
		wantType string
	}{
		{"default provider", "", "k", nil, "anthropic"},
		{"anthropic", "Anthropic", "k", nil, "anthropic"},
		{"openai", "openai", "k", nil, "openai"},
		{"missing key", "openai", "", ErrMissingAPIKey, ""},
		{"unknown provider", "gemini", "k", ErrUnknownProvider, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(Config{Provider: tt.provider}, tt.key)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if c != nil {
					t.Error("expected a nil client on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("failed to create client: %v", err)
			}
			switch c.(type) {
			case *AnthropicClient:
				if tt.wantType != "anthropic" {
					t.Errorf("expected %s client, got anthropic", tt.wantType)
				}
			case *OpenAIClient:
				if tt.wantType != "openai" {
					t.Errorf("expected %s client, got openai", tt.wantType)
				}
			}
		})
	}
}

func TestAPIKeyEnv(t *testing.T) {
	if got := APIKeyEnv("openai"); got != "OPENAI_API_KEY" {
		t.Errorf("unexpected env var %s", got)
	}
	if got := APIKeyEnv(""); got != "ANTHROPIC_API_KEY" {
		t.Errorf("unexpected env var %s", got)
	}
}
