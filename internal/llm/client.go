// Package llm is a small request/response client for hosted text-completion
// APIs. Callers send a system prompt and user text and get back the raw text of
// the reply; interpreting that text is left to the caller.
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

	"github.com/cenkalti/backoff/v5"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// Request is a single non-streaming completion request.
type Request struct {
	System    string
	User      string
	MaxTokens int
}

// Client completes a request and returns the model's text output.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

var (
	ErrMissingAPIKey   = errors.New("llm: API key is required")
	ErrUnknownProvider = errors.New("llm: unknown provider")
	ErrEmptyResponse   = errors.New("llm: response contained no text")
)

// HTTPError is returned when the provider answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("llm http %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed if sent again.
func (e *HTTPError) Retryable() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode == http.StatusRequestTimeout:
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}

// Config selects and tunes a provider.
type Config struct {
	Provider          string
	Model             string
	BaseURL           string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerMinute int
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
	Logger     *log.Logger
}

// transport posts JSON with rate limiting and retries shared by all providers.
type transport struct {
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	interval   time.Duration
	log        *log.Logger
}

func newTransport(cfg Config) *transport {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	return &transport{
		http:       hc,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: retries,
		interval:   500 * time.Millisecond,
		log:        logger,
	}
}

// postJSON sends body to url and decodes a 2xx response into out. Network
// errors, 429 and 5xx responses are retried with exponential backoff.
func (t *transport) postJSON(ctx context.Context, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	attempt := 0
	op := func() ([]byte, error) {
		attempt++
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		raw, err := t.doOnce(ctx, url, headers, payload)
		if err == nil {
			return raw, nil
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			if !httpErr.Retryable() {
				return nil, backoff.Permanent(err)
			}
		}
		return nil, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = t.interval
	bo.MaxInterval = 10 * time.Second

	raw, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(t.maxRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			t.log.Warn("LLM request retrying",
				"attempt", attempt,
				"max_retries", t.maxRetries,
				"sleep", next.String(),
				"error", err.Error(),
			)
		}),
	)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (t *transport) doOnce(ctx context.Context, url string, headers map[string]string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}
