package bridge

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/BaSui01/marketstream/agent"
	"github.com/BaSui01/marketstream/stream"
)

const (
	// DefaultBanner 新闻回复的首行
	DefaultBanner = "Just got some latest news. Update the summary."
	// DefaultLatency 每次轮询前的模拟延迟
	DefaultLatency = 100 * time.Millisecond
	// ProviderName 注册到回复链时使用的名称
	ProviderName = "news_stream"
)

// StreamConfig is the registration payload; its Cell takes precedence over the provider's.
type StreamConfig struct {
	Cell *stream.Cell
}

// NewsReplyProvider turns accumulated news into a reply, or declines when there is none.
type NewsReplyProvider struct {
	Cell    *stream.Cell
	Latency time.Duration
	Banner  string

	onDrain func(entries int)
	drained atomic.Int64
}

// NewNewsReplyProvider creates a provider with the default banner and latency.
func NewNewsReplyProvider(cell *stream.Cell) *NewsReplyProvider {
	return &NewsReplyProvider{
		Cell:    cell,
		Latency: DefaultLatency,
		Banner:  DefaultBanner,
	}
}

// OnDrain registers a callback invoked with the number of entries drained.
func (p *NewsReplyProvider) OnDrain(fn func(entries int)) *NewsReplyProvider {
	p.onDrain = fn
	return p
}

// Drained returns the total number of entries this provider has consumed.
func (p *NewsReplyProvider) Drained() int {
	return int(p.drained.Load())
}

// Name implements agent.ReplyProvider.
func (p *NewsReplyProvider) Name() string { return ProviderName }

// Reply implements agent.ReplyProvider.
func (p *NewsReplyProvider) Reply(ctx context.Context, req agent.ReplyRequest) (agent.Reply, error) {
	if err := wait(ctx, p.Latency); err != nil {
		return agent.Declined(), err
	}

	cell := p.Cell
	switch cfg := req.Config.(type) {
	case StreamConfig:
		if cfg.Cell != nil {
			cell = cfg.Cell
		}
	case *StreamConfig:
		if cfg != nil && cfg.Cell != nil {
			cell = cfg.Cell
		}
	}
	if cell == nil {
		return agent.Declined(), nil
	}

	entries, ok := cell.DrainAndClear()
	if !ok {
		return agent.Declined(), nil
	}
	p.drained.Add(int64(len(entries)))
	if p.onDrain != nil {
		p.onDrain(len(entries))
	}

	banner := p.Banner
	if banner == "" {
		banner = DefaultBanner
	}
	return agent.HandledText(banner + "\n" + strings.Join(entries, "\n")), nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
