// Package llm provides one-shot text completion against hosted language
// models.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Vinayak1844/Statathon-Project/internal/observability"
)

// Providers accepted by New.
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
	ProviderStatic     = "static"
)

const defaultTimeout = 30 * time.Second

// Completer turns a prompt into text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config selects and tunes a provider.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	// Timeout bounds a single completion including retries.
	Timeout time.Duration
	Retry   RetryConfig
	// RateLimit is the sustained requests per second; zero disables it.
	RateLimit float64
	Burst     int
	// StaticReply is returned by the static provider.
	StaticReply string
}

// New builds the completer named by cfg.Provider.
func New(cfg Config, logger *observability.Logger) (Completer, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenRouter:
		c, err := NewOpenRouterClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProviderGemini, "":
		c, err := NewGeminiClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProviderStatic:
		return Static{Reply: cfg.StaticReply}, nil
	default:
		return nil, ConfigError(fmt.Sprintf("unknown provider %q", cfg.Provider), nil)
	}
}

// Static always answers with Reply, or "{}" when Reply is empty.
type Static struct {
	Reply string
}

// Complete returns the fixed reply.
func (s Static) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Reply == "" {
		return "{}", nil
	}
	return s.Reply, nil
}

// transport is the HTTP plumbing shared by the remote providers.
type transport struct {
	provider   string
	httpClient *http.Client
	timeout    time.Duration
	retry      RetryConfig
	limiter    *rate.Limiter
	logger     *observability.Logger
}

func newTransport(provider string, cfg Config, logger *observability.Logger) *transport {
	if logger == nil {
		logger = observability.NopLogger()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retry := cfg.Retry
	if retry == (RetryConfig{}) {
		retry = DefaultRetryConfig()
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	logger = logger.WithOperation("llm." + provider)
	logger.Debug().
		Dur("timeout", timeout).
		Int("max_retries", retry.MaxRetries).
		Float64("rate_limit", cfg.RateLimit).
		Msg("Completion client configured")

	return &transport{
		provider:   provider,
		httpClient: &http.Client{},
		timeout:    timeout,
		retry:      retry.withDefaults(),
		limiter:    limiter,
		logger:     logger,
	}
}

// post sends body as JSON to url and returns the 200 response body.
func (t *transport) post(ctx context.Context, url string, headers map[string]string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, ResponseError(t.provider, "Failed to marshal request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, APIError(t.provider, 0, "Rate limit wait aborted", err)
		}
	}

	start := time.Now()
	resp, err := retryWithBackoff(ctx, t.retry, t.logger, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return t.httpClient.Do(req)
	})
	if err != nil {
		t.observe(start, "error")
		var apiErr *Error
		if errors.As(err, &apiErr) {
			apiErr.Provider = t.provider
			return nil, apiErr
		}
		return nil, APIError(t.provider, 0, "Failed to send request", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.observe(start, "error")
		return nil, APIError(t.provider, resp.StatusCode, "Failed to read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.observe(start, strconv.Itoa(resp.StatusCode))
		return nil, APIError(t.provider, resp.StatusCode, truncate(string(data), 200), nil)
	}

	t.observe(start, "200")
	t.logger.Debug().Dur("elapsed", time.Since(start)).Int("bytes", len(data)).Msg("Completion received")
	return data, nil
}

func (t *transport) observe(start time.Time, status string) {
	observability.LLMRequestDuration.WithLabelValues(t.provider, status).Observe(time.Since(start).Seconds())
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
