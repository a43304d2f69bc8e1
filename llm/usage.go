package llm

import "sync"

// Usage aggregates token usage and cost across calls.
type Usage struct {
	Requests         int     `json:"requests"`
	CachedRequests   int     `json:"cached_requests"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	Cost             float64 `json:"cost"`
}

// Add returns the sum of two usages.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		Requests:         u.Requests + o.Requests,
		CachedRequests:   u.CachedRequests + o.CachedRequests,
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		Cost:             u.Cost + o.Cost,
	}
}

// UsageTracker is a concurrency-safe Usage accumulator.
type UsageTracker struct {
	mu    sync.Mutex
	usage Usage
}

func (t *UsageTracker) record(resp *ChatResponse) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.usage.Requests++
	if resp.Cached {
		// 缓存命中不计 token 与费用
		t.usage.CachedRequests++
		return
	}
	t.usage.PromptTokens += resp.Usage.PromptTokens
	t.usage.CompletionTokens += resp.Usage.CompletionTokens
	t.usage.Cost += resp.Usage.Cost
}

// Snapshot returns the accumulated usage.
func (t *UsageTracker) Snapshot() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}

// Reset clears the accumulated usage.
func (t *UsageTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage = Usage{}
}
