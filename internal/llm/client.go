package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rohankatakam/autodoc/internal/config"
	"github.com/rohankatakam/autodoc/internal/errors"
	"github.com/rohankatakam/autodoc/internal/logging"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Provider represents the LLM provider
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderCustom Provider = "custom"
	ProviderNone   Provider = "none"
)

// Request is one completion call
type Request struct {
	System    string
	Prompt    string
	JSON      bool
	MaxTokens int
}

// Response is the raw answer of a backend
type Response struct {
	Text   string
	Tokens int
}

type backend interface {
	complete(ctx context.Context, req Request) (Response, error)
}

// Inferer is the narrow contract the pipeline depends on. Transport failures
// are returned as errors; undecodable answers come back as Result.Failure.
type Inferer interface {
	Infer(ctx context.Context, prompt string, mode Mode, responseKey string) (Result, error)
}

// Usage accumulates call statistics for a run
type Usage struct {
	Calls         int
	Failures      int
	ParseFailures int
	PromptChars   int
	ResponseChars int
	Tokens        int
	Elapsed       time.Duration
}

// Client is the rate-limited gateway in front of a provider backend. Calls
// are serialized through a single-slot semaphore so at most one request is in
// flight per process.
type Client struct {
	provider  Provider
	backend   backend
	limiter   *rate.Limiter
	gate      *semaphore.Weighted
	quota     *Quota
	timeout   time.Duration
	maxTokens int
	logger    *slog.Logger

	mu    sync.Mutex
	usage Usage
}

// Option configures a Client
type Option func(*Client)

// WithQuota adds a shared Redis quota in front of every call
func WithQuota(q *Quota) Option {
	return func(c *Client) { c.quota = q }
}

// WithRequestsPerMinute sets the in-process rate limit. Zero disables it.
func WithRequestsPerMinute(rpm int) Option {
	return func(c *Client) {
		if rpm <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	}
}

// WithTimeout bounds each individual call. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func newClient(provider Provider, b backend, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		backend:  b,
		gate:     semaphore.NewWeighted(1),
		logger:   logging.Component("llm").With("provider", provider),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClient builds a client for cfg's provider. A provider of "none" is a
// fatal configuration error because every pipeline stage needs a model.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	logger := logging.Component("llm")

	var (
		b   backend
		err error
	)
	switch Provider(cfg.LLM.Provider) {
	case ProviderOpenAI:
		b, err = newOpenAIBackend(cfg.LLM.APIKey, cfg.LLM.Model, logger)
	case ProviderGemini:
		b, err = newGeminiBackend(ctx, cfg.LLM.APIKey, cfg.LLM.Model, logger)
	case ProviderCustom:
		b, err = newCustomBackend(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, logger)
	case ProviderNone, "":
		return nil, errors.ConfigError("no LLM backend selected (set llm.provider)")
	default:
		return nil, errors.ConfigErrorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityCritical, "failed to initialize LLM backend")
	}

	opts := []Option{
		WithRequestsPerMinute(cfg.LLM.RequestsPerMinute),
		WithTimeout(cfg.LLM.Timeout),
	}
	if cfg.LLM.RedisURL != "" && cfg.LLM.DailyQuota > 0 {
		q, qerr := NewQuota(ctx, cfg.LLM.RedisURL, cfg.LLM.Provider, cfg.LLM.RequestsPerMinute, cfg.LLM.DailyQuota)
		if qerr != nil {
			logger.Warn("shared quota unavailable, continuing with local limiter only", "error", qerr)
		} else {
			opts = append(opts, WithQuota(q))
		}
	}

	c := newClient(Provider(cfg.LLM.Provider), b, opts...)
	c.maxTokens = cfg.LLM.MaxTokens
	logger.Info("llm client initialized",
		"provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"requests_per_minute", cfg.LLM.RequestsPerMinute,
		"shared_quota", c.quota != nil,
	)
	return c, nil
}

// Provider returns the active provider
func (c *Client) Provider() Provider {
	return c.provider
}

// Complete sends one request through the gateway and returns the raw text
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.gate.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.gate.Release(1)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	if c.quota != nil {
		if err := c.quota.Wait(ctx); err != nil {
			return "", errors.LLMError(err, "shared quota refused request")
		}
	}

	if req.MaxTokens == 0 {
		req.MaxTokens = c.maxTokens
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.backend.complete(callCtx, req)
	elapsed := time.Since(start)

	c.mu.Lock()
	c.usage.Calls++
	c.usage.PromptChars += len(req.System) + len(req.Prompt)
	c.usage.Elapsed += elapsed
	if err != nil {
		c.usage.Failures++
	} else {
		c.usage.ResponseChars += len(resp.Text)
		c.usage.Tokens += resp.Tokens
	}
	c.mu.Unlock()

	if err != nil {
		return "", errors.LLMError(err, fmt.Sprintf("%s request failed", c.provider))
	}
	return resp.Text, nil
}

// Infer asks the model and decodes the answer according to mode
func (c *Client) Infer(ctx context.Context, prompt string, mode Mode, responseKey string) (Result, error) {
	raw, err := c.Complete(ctx, Request{Prompt: prompt, JSON: mode == ModeJSON})
	if err != nil {
		return Result{}, err
	}

	res := Parse(raw, mode, responseKey)
	if res.Failure != nil {
		c.mu.Lock()
		c.usage.ParseFailures++
		c.mu.Unlock()
		c.logger.Warn("model answer could not be decoded",
			"mode", mode.String(),
			"key", responseKey,
			"reason", res.Failure.Reason,
		)
	}
	return res, nil
}

// Usage returns a snapshot of the accumulated statistics
func (c *Client) Usage() Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// Close releases the shared quota connection
func (c *Client) Close() error {
	if c.quota != nil {
		return c.quota.Close()
	}
	return nil
}
