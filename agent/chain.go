package agent

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/marketstream/types"
)

// 内置 Provider 的默认优先级，数字越小越先执行
const (
	PriorityFirst   = 0
	PriorityLLM     = 50
	PriorityDefault = 1000
)

// Reply outcomes reported to a Recorder.
const (
	OutcomeHandled  = "handled"
	OutcomeDeclined = "declined"
	OutcomeSkipped  = "skipped"
	OutcomeError    = "error"
)

type registration struct {
	provider ReplyProvider
	priority int
	seq      int
	trigger  Trigger
	config   any
}

// RegisterOption customizes a provider registration.
type RegisterOption func(*registration)

// WithPriority sets the execution position; lower runs first. Ties keep registration order.
func WithPriority(priority int) RegisterOption {
	return func(r *registration) { r.priority = priority }
}

// WithTrigger restricts the provider to matching senders.
func WithTrigger(t Trigger) RegisterOption {
	return func(r *registration) { r.trigger = t }
}

// WithConfig attaches a payload handed to the provider as ReplyRequest.Config.
func WithConfig(cfg any) RegisterOption {
	return func(r *registration) { r.config = cfg }
}

// ReplyChain 按优先级顺序执行 ReplyProvider，第一个 Handled 的结果胜出
type ReplyChain struct {
	mu    sync.RWMutex
	regs  []registration
	seq   int
	owner string

	recorder Recorder
	logger   *zap.Logger
}

// NewReplyChain creates an empty chain for the named owner.
func NewReplyChain(owner string, logger *zap.Logger) *ReplyChain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplyChain{
		owner:  owner,
		logger: logger.With(zap.String("component", "reply_chain")),
	}
}

// Register adds a provider. Default priority is PriorityDefault-1 so custom
// providers run before the built-in fallback.
func (c *ReplyChain) Register(p ReplyProvider, opts ...RegisterOption) {
	reg := registration{provider: p, priority: PriorityDefault - 1}
	for _, opt := range opts {
		opt(&reg)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	reg.seq = c.seq
	c.seq++
	c.regs = append(c.regs, reg)
	sort.SliceStable(c.regs, func(i, j int) bool {
		if c.regs[i].priority != c.regs[j].priority {
			return c.regs[i].priority < c.regs[j].priority
		}
		return c.regs[i].seq < c.regs[j].seq
	})
}

// Remove drops every provider with the given name.
func (c *ReplyChain) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.regs[:0]
	removed := false
	for _, r := range c.regs {
		if r.provider.Name() == name {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	c.regs = kept
	return removed
}

// Providers returns provider names in execution order.
func (c *ReplyChain) Providers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.regs))
	for i, r := range c.regs {
		names[i] = r.provider.Name()
	}
	return names
}

// Len returns the number of registered providers.
func (c *ReplyChain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.regs)
}

func (c *ReplyChain) setRecorder(r Recorder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recorder = r
}

// Run tries providers in order. It returns the first Handled reply with the
// provider's name, or Declined with an empty name.
func (c *ReplyChain) Run(ctx context.Context, req ReplyRequest) (Reply, string, error) {
	c.mu.RLock()
	regs := make([]registration, len(c.regs))
	copy(regs, c.regs)
	recorder := c.recorder
	c.mu.RUnlock()

	report := func(provider, outcome string) {
		if recorder != nil {
			recorder.RecordReplyOutcome(c.owner, provider, outcome)
		}
	}

	for _, r := range regs {
		if err := ctx.Err(); err != nil {
			return Declined(), "", err
		}

		name := r.provider.Name()
		if r.trigger != nil && !r.trigger(req.Sender) {
			report(name, OutcomeSkipped)
			continue
		}

		call := req
		call.Config = r.config
		reply, err := r.provider.Reply(ctx, call)
		if err != nil {
			report(name, OutcomeError)
			c.logger.Warn("reply provider failed", zap.String("provider", name), zap.Error(err))
			return Declined(), name, types.NewError(types.ErrReplyProviderFailed, "provider "+name).WithCause(err)
		}
		if reply.IsHandled() {
			report(name, OutcomeHandled)
			c.logger.Debug("reply handled", zap.String("provider", name))
			return reply, name, nil
		}
		report(name, OutcomeDeclined)
	}
	return Declined(), "", nil
}
