// Package llm sends one system+user prompt pair to a chat model and returns
// the reply text. Providers sit behind Completer so scoring never sees an SDK.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"

	"essaygrader/internal/apperrors"
	"essaygrader/internal/metrics"
)

const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"

	DefaultTimeout   = 45 * time.Second
	DefaultMaxTokens = 1024
)

// Prompt is one completion request. Both parts are sent on every call.
type Prompt struct {
	System string
	User   string
}

// Completer returns the model's raw reply to a prompt.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

type Config struct {
	Provider string
	Model    string
	APIKey   string
	// BaseURL overrides the provider endpoint. Only the OpenAI client honors it.
	BaseURL   string
	Timeout   time.Duration
	MaxTokens int
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderGemini:
		return "gemini-2.5-flash"
	case ProviderAnthropic:
		return "claude-sonnet-4-5"
	default:
		return "gpt-4o-mini"
	}
}

// backend is what each provider file implements.
type backend interface {
	complete(ctx context.Context, model string, p Prompt, maxTokens int) (string, error)
}

// Client wraps a provider backend with a per-call timeout, logging, metrics and
// error classification.
type Client struct {
	provider  string
	model     string
	timeout   time.Duration
	maxTokens int
	backend   backend
	metrics   *metrics.Metrics
}

// New builds the client for cfg.Provider. Credentials are checked here so a
// misconfigured server fails at startup.
func New(ctx context.Context, cfg Config, m *metrics.Metrics) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: api key for provider %q is not set", cfg.Provider)
	}

	var (
		b   backend
		err error
	)
	switch cfg.Provider {
	case ProviderOpenAI, "":
		cfg.Provider = ProviderOpenAI
		b = newOpenAI(cfg)
	case ProviderGemini:
		b, err = newGemini(ctx, cfg)
	case ProviderAnthropic:
		b = newAnthropic(cfg)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("llm: init %s: %w", cfg.Provider, err)
	}
	return newClient(cfg, b, m), nil
}

func newClient(cfg Config, b backend, m *metrics.Metrics) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &Client{
		provider:  cfg.Provider,
		model:     cfg.Model,
		timeout:   cfg.Timeout,
		maxTokens: cfg.MaxTokens,
		backend:   b,
		metrics:   m,
	}
}

func (c *Client) Provider() string { return c.provider }
func (c *Client) Model() string    { return c.model }

// Complete makes exactly one provider call. Any transport, timeout or provider
// failure comes back as *apperrors.UpstreamError.
func (c *Client) Complete(ctx context.Context, p Prompt) (string, error) {
	log := clog.FromContext(ctx).With("provider", c.provider, "model", c.model)
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	log.Debug("llm.complete.start", "prompt_chars", len(p.System)+len(p.User))
	start := time.Now()
	out, err := c.backend.complete(ctx, c.model, p, c.maxTokens)
	elapsed := time.Since(start)
	c.metrics.LLMCall(c.provider, elapsed)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			err = fmt.Errorf("no reply within %s: %w", c.timeout, err)
		}
		log.Warn("llm.complete.failed", "elapsed_ms", elapsed.Milliseconds(), "error", err)
		return "", &apperrors.UpstreamError{Provider: c.provider, Cause: err}
	}
	out = strings.TrimSpace(out)
	log.Info("llm.complete.ok", "elapsed_ms", elapsed.Milliseconds(), "reply_chars", len(out))
	return out, nil
}
