package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/marketstream/llm"
	"github.com/BaSui01/marketstream/types"
)

const tracerName = "github.com/BaSui01/marketstream/agent"

// humanExit 人工输入该值时结束对话
const humanExit = "exit"

// Agent is a conversable participant whose replies come from an ordered ReplyChain.
type Agent struct {
	name          string
	systemMessage string
	llm           *llm.Client
	policy        AutoReplyPolicy
	isTermination TerminationFunc
	human         HumanInput
	chain         *ReplyChain

	recorder Recorder
	tracer   trace.Tracer
	logger   *zap.Logger

	mu          sync.RWMutex
	histories   map[string][]types.Message
	consecutive map[string]int
}

// New creates an agent with an empty reply chain (plus the LLM provider when WithLLM is given).
func New(name string, opts ...Option) (*Agent, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}
	a := &Agent{
		name:          name,
		policy:        DefaultAutoReplyPolicy(),
		isTermination: func(types.Message) bool { return false },
		tracer:        otel.Tracer(tracerName),
		logger:        zap.NewNop(),
		histories:     make(map[string][]types.Message),
		consecutive:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.policy.Validate(); err != nil {
		return nil, err
	}
	if a.policy.HumanInputMode != HumanInputNever && a.human == nil {
		return nil, types.NewError(types.ErrHumanInputUnavailable, string(a.policy.HumanInputMode)).WithCause(ErrHumanInputRequired)
	}

	a.logger = a.logger.With(zap.String("component", "agent"), zap.String("agent", name))
	a.chain = NewReplyChain(name, a.logger)
	if a.recorder != nil {
		a.chain.setRecorder(a.recorder)
	}
	if a.llm != nil {
		a.chain.Register(NewLLMReplyProvider(a.llm, a.systemMessage), WithPriority(PriorityLLM))
	}
	return a, nil
}

// NewAssistant creates a model-backed agent that replies to everything it receives.
func NewAssistant(name string, client *llm.Client, systemMessage string, opts ...Option) (*Agent, error) {
	if client == nil {
		return nil, types.NewError(types.ErrLLMNotConfigured, name).WithCause(ErrLLMNotSet)
	}
	base := []Option{WithLLM(client), WithSystemMessage(systemMessage)}
	return New(name, append(base, opts...)...)
}

// NewUserProxy creates an agent that replies from its policy rather than a model.
func NewUserProxy(name string, policy AutoReplyPolicy, opts ...Option) (*Agent, error) {
	base := []Option{WithAutoReplyPolicy(policy)}
	a, err := New(name, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	a.chain.Register(NewDefaultAutoReplyProvider(policy.DefaultAutoReply), WithPriority(PriorityDefault))
	return a, nil
}

// Name implements Conversable.
func (a *Agent) Name() string { return a.name }

// SystemMessage returns the system prompt.
func (a *Agent) SystemMessage() string { return a.systemMessage }

// LLM implements LLMHolder.
func (a *Agent) LLM() *llm.Client { return a.llm }

// Policy returns the auto-reply policy.
func (a *Agent) Policy() AutoReplyPolicy { return a.policy }

// Usage implements UsageReporter.
func (a *Agent) Usage() llm.Usage {
	if a.llm == nil {
		return llm.Usage{}
	}
	return a.llm.Usage()
}

// Chain exposes the reply chain for inspection.
func (a *Agent) Chain() *ReplyChain { return a.chain }

// RegisterReply adds a reply provider to the chain.
func (a *Agent) RegisterReply(p ReplyProvider, opts ...RegisterOption) {
	a.chain.Register(p, opts...)
}

// ChatMessages returns a copy of the history with peer.
func (a *Agent) ChatMessages(peer string) []types.Message {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return types.Clone(a.histories[peer])
}

// Peers returns the names of everyone this agent has exchanged messages with.
func (a *Agent) Peers() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	peers := make([]string, 0, len(a.histories))
	for p := range a.histories {
		peers = append(peers, p)
	}
	return peers
}

// LastMessage returns the last message exchanged with peer.
func (a *Agent) LastMessage(peer string) (types.Message, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	h := a.histories[peer]
	if len(h) == 0 {
		return types.Message{}, false
	}
	return h[len(h)-1], true
}

// ResetPeer implements HistoryResetter: history and auto-reply counter with peer are dropped.
func (a *Agent) ResetPeer(peer string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.histories, peer)
	delete(a.consecutive, peer)
}

// ConsecutiveAutoReplies returns the current auto-reply count toward peer.
func (a *Agent) ConsecutiveAutoReplies(peer string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.consecutive[peer]
}

func (a *Agent) appendHistory(peer string, msg types.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.histories[peer] = append(a.histories[peer], msg)
}

// Send implements Conversable.
func (a *Agent) Send(ctx context.Context, msg types.Message, recipient Conversable, requestReply bool) error {
	if recipient == nil {
		return ErrNilRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg.Name = a.name
	// 自己发出的消息在本地历史中记为 assistant
	local := msg
	local.Role = types.RoleAssistant
	a.appendHistory(recipient.Name(), local)

	if a.recorder != nil {
		a.recorder.RecordChatMessage(a.name, recipient.Name())
	}
	a.logger.Debug("message sent",
		zap.String("recipient", recipient.Name()),
		zap.Bool("request_reply", requestReply),
	)
	return recipient.Receive(ctx, msg, a, requestReply)
}

// Receive implements Conversable.
func (a *Agent) Receive(ctx context.Context, msg types.Message, sender Conversable, requestReply bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg.Role = types.RoleUser
	if msg.Name == "" {
		msg.Name = sender.Name()
	}
	a.appendHistory(sender.Name(), msg)

	if !requestReply {
		return nil
	}
	reply, err := a.GenerateReply(ctx, sender)
	if err != nil {
		return err
	}
	if reply == nil {
		return nil
	}
	return a.Send(ctx, *reply, sender, true)
}

// GenerateReply implements Conversable. It applies the human-input and
// auto-reply gates, then asks the reply chain.
func (a *Agent) GenerateReply(ctx context.Context, sender Conversable) (*types.Message, error) {
	if sender == nil {
		return nil, ErrNilRecipient
	}
	ctx, span := a.tracer.Start(ctx, "agent.generate_reply",
		trace.WithAttributes(
			attribute.String("agent.name", a.name),
			attribute.String("agent.sender", sender.Name()),
		),
	)
	defer span.End()

	peer := sender.Name()
	history := a.ChatMessages(peer)

	reply, stop, err := a.humanGate(ctx, peer, history)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if stop {
		span.SetAttributes(attribute.String("reply.source", "gate"))
		return nil, nil
	}
	if reply != nil {
		span.SetAttributes(attribute.String("reply.source", "human"))
		return reply, nil
	}

	result, provider, err := a.chain.Run(ctx, ReplyRequest{
		Recipient: a,
		Messages:  history,
		Sender:    sender,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("agent %s: %w", a.name, err)
	}
	msg, ok := result.Message()
	if !ok {
		span.SetAttributes(attribute.String("reply.source", "none"))
		return nil, nil
	}

	a.mu.Lock()
	a.consecutive[peer]++
	a.mu.Unlock()

	span.SetAttributes(attribute.String("reply.source", provider))
	msg.Name = a.name
	return &msg, nil
}

// humanGate returns (reply, stop, err). A nil reply with stop=false lets the chain answer.
func (a *Agent) humanGate(ctx context.Context, peer string, history []types.Message) (*types.Message, bool, error) {
	terminated := false
	if n := len(history); n > 0 && history[n-1].Role == types.RoleUser {
		terminated = a.isTermination(history[n-1])
	}

	a.mu.RLock()
	limitReached := a.consecutive[peer] >= a.policy.MaxConsecutiveAutoReply
	a.mu.RUnlock()

	switch a.policy.HumanInputMode {
	case HumanInputAlways:
		return a.askHuman(ctx, peer, false)
	case HumanInputTerminate:
		if terminated || limitReached {
			return a.askHuman(ctx, peer, true)
		}
	default:
		if terminated || limitReached {
			a.logger.Debug("auto reply stopped",
				zap.String("peer", peer),
				zap.Bool("terminated", terminated),
				zap.Bool("limit_reached", limitReached),
			)
			a.resetCounter(peer)
			return nil, true, nil
		}
	}
	return nil, false, nil
}

// askHuman: "exit" always stops; an empty answer stops when stopOnEmpty, otherwise falls through.
func (a *Agent) askHuman(ctx context.Context, peer string, stopOnEmpty bool) (*types.Message, bool, error) {
	prompt := fmt.Sprintf("Provide feedback to %s. Press enter to skip and use auto-reply, or type 'exit' to end the conversation: ", peer)
	input, err := a.human.Prompt(ctx, prompt)
	if err != nil {
		return nil, false, types.NewError(types.ErrHumanInputUnavailable, "prompt failed").WithCause(err)
	}
	input = strings.TrimSpace(input)
	switch {
	case input == humanExit:
		a.resetCounter(peer)
		return nil, true, nil
	case input == "":
		if stopOnEmpty {
			a.resetCounter(peer)
			return nil, true, nil
		}
		return nil, false, nil
	default:
		a.resetCounter(peer)
		msg := types.NewAssistantMessage(input).WithName(a.name)
		return &msg, false, nil
	}
}

func (a *Agent) resetCounter(peer string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.consecutive[peer] = 0
}
