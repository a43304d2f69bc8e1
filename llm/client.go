package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/marketstream/types"
)

// ErrNoProvider 未设置 Provider
var ErrNoProvider = errors.New("llm provider not set")

// Client binds a Provider to a Config and adds timeouts, caching and usage accounting.
type Client struct {
	provider Provider
	config   Config
	cache    *responseCache
	limiter  *rate.Limiter
	usage    *UsageTracker
	recorder Recorder
	logger   *zap.Logger
}

// NewClient creates a client. Caching is enabled when config.CacheSeed is non-zero,
// rate limiting when config.RequestsPerSecond is positive.
func NewClient(provider Provider, config Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		provider: provider,
		config:   config,
		usage:    &UsageTracker{},
		logger:   logger.With(zap.String("component", "llm_client")),
	}
	if config.CacheSeed != 0 {
		c.cache = newResponseCache(0)
	}
	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}
	return c
}

// WithRecorder attaches a metrics recorder.
func (c *Client) WithRecorder(r Recorder) *Client {
	c.recorder = r
	return c
}

// Config returns the bound configuration.
func (c *Client) Config() Config {
	return c.config
}

// Usage returns the usage accumulated by this client.
func (c *Client) Usage() Usage {
	return c.usage.Snapshot()
}

// ResetUsage clears accumulated usage.
func (c *Client) ResetUsage() {
	c.usage.Reset()
}

// Complete sends messages to the provider and returns its response.
func (c *Client) Complete(ctx context.Context, messages []types.Message) (*ChatResponse, error) {
	if c == nil || c.provider == nil {
		return nil, types.NewError(types.ErrLLMNotConfigured, "no llm provider").WithCause(ErrNoProvider)
	}

	req := &ChatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: c.config.Temperature,
		Timeout:     c.config.Timeout,
	}

	var key string
	if c.cache != nil {
		key = cacheKey(c.config.CacheSeed, req)
		if cached, ok := c.cache.get(key); ok {
			cached.Cached = true
			c.usage.record(&cached)
			c.logger.Debug("llm cache hit", zap.String("model", req.Model))
			return &cached, nil
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.record("rate_limited", 0, ChatUsage{})
			return nil, types.NewError(types.ErrRateLimited, "llm rate limit").WithCause(err)
		}
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.provider.Completion(ctx, req)
	duration := time.Since(start)
	if err != nil {
		c.record("error", duration, ChatUsage{})
		c.logger.Warn("llm completion failed",
			zap.String("provider", c.provider.Name()),
			zap.String("model", req.Model),
			zap.Error(err),
		)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, types.NewError(types.ErrTimeout, "llm completion timed out").WithCause(err)
		}
		return nil, fmt.Errorf("llm completion: %w", err)
	}

	if resp.Usage.Cost == 0 {
		resp.Usage.Cost = c.config.Cost(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}
	if resp.Usage.TotalTokens == 0 {
		resp.Usage.TotalTokens = resp.Usage.PromptTokens + resp.Usage.CompletionTokens
	}
	c.usage.record(resp)
	c.record("success", duration, resp.Usage)

	if c.cache != nil {
		c.cache.put(key, *resp)
	}
	return resp, nil
}

func (c *Client) record(status string, d time.Duration, u ChatUsage) {
	if c.recorder == nil {
		return
	}
	c.recorder.RecordLLMRequest(c.provider.Name(), c.config.Model, status, d, u.PromptTokens, u.CompletionTokens, u.Cost)
}
