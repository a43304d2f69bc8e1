package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/marketstream/types"
)

type stubProvider struct {
	mu      sync.Mutex
	calls   int
	content string
	usage   ChatUsage
	err     error
	delay   time.Duration
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &ChatResponse{Model: req.Model, Content: s.content, Usage: s.usage}, nil
}

type recordedCall struct {
	status string
	cost   float64
}

type stubRecorder struct {
	calls []recordedCall
}

func (r *stubRecorder) RecordLLMRequest(_, _, status string, _ time.Duration, _, _ int, cost float64) {
	r.calls = append(r.calls, recordedCall{status: status, cost: cost})
}

func TestClient_CompleteComputesCostFromPricing(t *testing.T) {
	p := &stubProvider{content: "ok", usage: ChatUsage{PromptTokens: 1000, CompletionTokens: 500}}
	rec := &stubRecorder{}
	c := NewClient(p, Config{Model: "m", PromptPricePer1K: 0.03, CompletionPricePer1K: 0.06}, zaptest.NewLogger(t)).
		WithRecorder(rec)

	resp, err := c.Complete(context.Background(), []types.Message{types.NewUserMessage("hi")})
	require.NoError(t, err)

	assert.Equal(t, "ok", resp.Content)
	assert.InDelta(t, 0.06, resp.Usage.Cost, 1e-9)
	assert.Equal(t, 1500, resp.Usage.TotalTokens)

	u := c.Usage()
	assert.Equal(t, 1, u.Requests)
	assert.Equal(t, 1000, u.PromptTokens)
	assert.InDelta(t, 0.06, u.Cost, 1e-9)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "success", rec.calls[0].status)
}

func TestClient_CacheHitSkipsProviderAndCost(t *testing.T) {
	p := &stubProvider{content: "cached", usage: ChatUsage{PromptTokens: 10, CompletionTokens: 10, Cost: 0.5}}
	c := NewClient(p, Config{Model: "m", CacheSeed: 41}, nil)
	msgs := []types.Message{types.NewUserMessage("same")}

	_, err := c.Complete(context.Background(), msgs)
	require.NoError(t, err)
	// 新建消息 ID 与时间戳不同，但内容相同，应命中缓存
	resp, err := c.Complete(context.Background(), []types.Message{types.NewUserMessage("same")})
	require.NoError(t, err)

	assert.True(t, resp.Cached)
	assert.Equal(t, 1, p.calls)
	u := c.Usage()
	assert.Equal(t, 2, u.Requests)
	assert.Equal(t, 1, u.CachedRequests)
	assert.InDelta(t, 0.5, u.Cost, 1e-9)
}

func TestClient_NoCacheWithoutSeed(t *testing.T) {
	p := &stubProvider{content: "x"}
	c := NewClient(p, Config{Model: "m"}, nil)
	msgs := []types.Message{types.NewUserMessage("same")}

	for i := 0; i < 3; i++ {
		_, err := c.Complete(context.Background(), msgs)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, p.calls)
}

func TestClient_DifferentSeedsDoNotShareCache(t *testing.T) {
	req := &ChatRequest{Model: "m", Messages: []types.Message{types.NewUserMessage("q")}}
	assert.NotEqual(t, cacheKey(1, req), cacheKey(2, req))
	assert.Equal(t, cacheKey(1, req), cacheKey(1, req))
}

func TestClient_Timeout(t *testing.T) {
	p := &stubProvider{content: "late", delay: time.Second}
	rec := &stubRecorder{}
	c := NewClient(p, Config{Model: "m", Timeout: 10 * time.Millisecond}, nil).WithRecorder(rec)

	_, err := c.Complete(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrTimeout))
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "error", rec.calls[0].status)
}

func TestClient_ProviderError(t *testing.T) {
	boom := errors.New("boom")
	c := NewClient(&stubProvider{err: boom}, Config{Model: "m"}, nil)

	_, err := c.Complete(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Usage().Requests)
}

func TestClient_NilProvider(t *testing.T) {
	var c *Client
	_, err := c.Complete(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoProvider)
	assert.True(t, types.IsErrorCode(err, types.ErrLLMNotConfigured))
}

func TestResponseCache_Evicts(t *testing.T) {
	c := newResponseCache(2)
	c.put("a", ChatResponse{Content: "a"})
	c.put("b", ChatResponse{Content: "b"})
	_, _ = c.get("a")
	c.put("c", ChatResponse{Content: "c"})

	_, okA := c.get("a")
	_, okB := c.get("b")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.Equal(t, 2, c.len())
}

func TestUsage_Add(t *testing.T) {
	a := Usage{Requests: 1, PromptTokens: 2, CompletionTokens: 3, Cost: 0.1}
	b := Usage{Requests: 2, CachedRequests: 1, PromptTokens: 1, Cost: 0.2}
	sum := a.Add(b)

	assert.Equal(t, 3, sum.Requests)
	assert.Equal(t, 1, sum.CachedRequests)
	assert.Equal(t, 3, sum.PromptTokens)
	assert.InDelta(t, 0.3, sum.Cost, 1e-9)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 41, cfg.CacheSeed)
	assert.Equal(t, 600*time.Second, cfg.Timeout)
	assert.Equal(t, float32(0), cfg.Temperature)
}

func TestClient_RateLimit(t *testing.T) {
	p := &stubProvider{content: "ok"}
	rec := &stubRecorder{}
	c := NewClient(p, Config{Model: "m", RequestsPerSecond: 0.01, Burst: 1}, nil).WithRecorder(rec)

	_, err := c.Complete(context.Background(), []types.Message{types.NewUserMessage("first")})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Complete(ctx, []types.Message{types.NewUserMessage("second")})
	require.Error(t, err)
	assert.Equal(t, types.ErrRateLimited, types.GetErrorCode(err))
	assert.Equal(t, 1, p.calls)
	require.Len(t, rec.calls, 2)
	assert.Equal(t, "rate_limited", rec.calls[1].status)
}

func TestClient_RateLimitSkipsCacheHits(t *testing.T) {
	p := &stubProvider{content: "ok"}
	c := NewClient(p, Config{Model: "m", CacheSeed: 7, RequestsPerSecond: 0.01}, nil)
	msgs := []types.Message{types.NewUserMessage("same")}

	_, err := c.Complete(context.Background(), msgs)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	resp, err := c.Complete(ctx, msgs)
	require.NoError(t, err)
	assert.True(t, resp.Cached)
	assert.Equal(t, 1, p.calls)
}
