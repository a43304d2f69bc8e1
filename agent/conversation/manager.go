package conversation

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/BaSui01/marketstream/agent"
	"github.com/BaSui01/marketstream/llm"
	"github.com/BaSui01/marketstream/types"
)

const meterName = "github.com/BaSui01/marketstream/agent/conversation"

// DefaultManagerName 默认管理者名称
const DefaultManagerName = "chat_manager"

// Stop reasons reported in RunResult.
const (
	StopMaxRound   = "max_round"
	StopTerminated = "terminated"
	StopNoReply    = "no_reply"
)

// RunResult describes the last group chat run.
type RunResult struct {
	Rounds      int    `json:"rounds"`
	Messages    int    `json:"messages"`
	StopReason  string `json:"stop_reason"`
	LastSpeaker string `json:"last_speaker"`
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithName overrides DefaultManagerName.
func WithName(name string) ManagerOption {
	return func(m *Manager) { m.name = name }
}

// WithTermination sets the predicate checked after each broadcast.
func WithTermination(fn agent.TerminationFunc) ManagerOption {
	return func(m *Manager) { m.isTermination = fn }
}

// WithLLM sets the client used by auto speaker selection.
func WithLLM(client *llm.Client) ManagerOption {
	return func(m *Manager) { m.llm = client }
}

// WithSelector overrides the selector derived from GroupChat.SpeakerSelection.
func WithSelector(s SpeakerSelector) ManagerOption {
	return func(m *Manager) { m.selector = s }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMeterProvider sets the meter provider for the rounds counter.
func WithMeterProvider(mp metric.MeterProvider) ManagerOption {
	return func(m *Manager) { m.meterProvider = mp }
}

// Manager runs a GroupChat. It is itself a participant: sending it a
// message with requestReply starts the chat.
type Manager struct {
	name          string
	gc            *GroupChat
	isTermination agent.TerminationFunc
	llm           *llm.Client
	selector      SpeakerSelector

	meterProvider metric.MeterProvider
	rounds        metric.Int64Counter
	logger        *zap.Logger

	runMu     sync.Mutex
	mu        sync.RWMutex
	histories map[string][]types.Message
	last      RunResult
}

// NewManager creates a manager for gc.
func NewManager(gc *GroupChat, opts ...ManagerOption) (*Manager, error) {
	if gc == nil || len(gc.Agents) == 0 {
		return nil, ErrNoAgents
	}
	m := &Manager{
		name:          DefaultManagerName,
		gc:            gc,
		isTermination: func(types.Message) bool { return false },
		logger:        zap.NewNop(),
		histories:     make(map[string][]types.Message),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(zap.String("component", "group_chat_manager"), zap.String("manager", m.name))

	if m.selector == nil {
		s, err := SelectorFor(gc.SpeakerSelection, m.llm, m.logger)
		if err != nil {
			return nil, err
		}
		m.selector = s
	}

	mp := m.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	rounds, err := mp.Meter(meterName).Int64Counter("marketstream.groupchat.rounds",
		metric.WithDescription("Group chat rounds executed"),
	)
	if err != nil {
		return nil, fmt.Errorf("create rounds counter: %w", err)
	}
	m.rounds = rounds
	return m, nil
}

// TerminationContains ends the chat when a message contains word.
func TerminationContains(word string) agent.TerminationFunc {
	return agent.ContainsTermination(word)
}

// Name implements agent.Conversable.
func (m *Manager) Name() string { return m.name }

// GroupChat returns the managed chat.
func (m *Manager) GroupChat() *GroupChat { return m.gc }

// LLM implements agent.LLMHolder.
func (m *Manager) LLM() *llm.Client { return m.llm }

// Usage implements agent.UsageReporter with the manager's own selection calls.
func (m *Manager) Usage() llm.Usage {
	if m.llm == nil {
		return llm.Usage{}
	}
	return m.llm.Usage()
}

// LastRun returns the outcome of the most recent run.
func (m *Manager) LastRun() RunResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// ChatMessages returns the manager's history with peer.
func (m *Manager) ChatMessages(peer string) []types.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return types.Clone(m.histories[peer])
}

// ResetPeer implements agent.HistoryResetter. The group log and every
// participant's history with the manager are cleared too.
func (m *Manager) ResetPeer(peer string) {
	m.mu.Lock()
	delete(m.histories, peer)
	m.mu.Unlock()

	m.gc.Reset()
	for _, a := range m.gc.Agents {
		if r, ok := a.(agent.HistoryResetter); ok && a.Name() != peer {
			r.ResetPeer(m.name)
		}
	}
}

func (m *Manager) appendHistory(peer string, msg types.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histories[peer] = append(m.histories[peer], msg)
}

// Send implements agent.Conversable. Broadcast messages keep the speaker's name.
func (m *Manager) Send(ctx context.Context, msg types.Message, recipient agent.Conversable, requestReply bool) error {
	if recipient == nil {
		return agent.ErrNilRecipient
	}
	if msg.Name == "" {
		msg.Name = m.name
	}
	m.appendHistory(recipient.Name(), msg)
	return recipient.Receive(ctx, msg, m, requestReply)
}

// Receive implements agent.Conversable.
func (m *Manager) Receive(ctx context.Context, msg types.Message, sender agent.Conversable, requestReply bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.Name == "" {
		msg.Name = sender.Name()
	}
	m.appendHistory(sender.Name(), msg)
	if !requestReply {
		return nil
	}
	_, err := m.GenerateReply(ctx, sender)
	return err
}

// GenerateReply implements agent.Conversable: it runs the chat starting
// from sender's last message and always returns a nil reply.
func (m *Manager) GenerateReply(ctx context.Context, sender agent.Conversable) (*types.Message, error) {
	if sender == nil {
		return nil, agent.ErrNilRecipient
	}
	history := m.ChatMessages(sender.Name())
	if len(history) == 0 {
		return nil, nil
	}

	m.runMu.Lock()
	defer m.runMu.Unlock()

	result, err := m.run(ctx, sender, history[len(history)-1])
	m.mu.Lock()
	m.last = result
	m.mu.Unlock()

	m.logger.Info("group chat finished",
		zap.Int("rounds", result.Rounds),
		zap.Int("messages", result.Messages),
		zap.String("reason", result.StopReason),
	)
	return nil, err
}

func (m *Manager) run(ctx context.Context, sender agent.Conversable, message types.Message) (RunResult, error) {
	speaker := sender
	result := RunResult{StopReason: StopMaxRound}
	attrs := metric.WithAttributes(attribute.String("manager", m.name))

	for i := 0; i < m.gc.MaxRound; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Rounds = i + 1
		result.LastSpeaker = speaker.Name()
		m.rounds.Add(ctx, 1, attrs)

		m.gc.Append(message, speaker.Name())
		result.Messages = m.gc.Len()

		// 广播给除发言人之外的所有参与者
		for _, a := range m.gc.Agents {
			if a.Name() == speaker.Name() {
				continue
			}
			if err := m.Send(ctx, message, a, false); err != nil {
				return result, fmt.Errorf("broadcast to %s: %w", a.Name(), err)
			}
		}

		if m.isTermination(message) {
			result.StopReason = StopTerminated
			return result, nil
		}
		if i == m.gc.MaxRound-1 {
			break
		}

		next, err := m.selector.SelectNext(ctx, m.gc, speaker)
		if err != nil {
			return result, types.NewError(types.ErrSpeakerSelectionFailed, "select next speaker").WithCause(err)
		}
		reply, err := next.GenerateReply(ctx, m)
		if err != nil {
			return result, fmt.Errorf("speaker %s: %w", next.Name(), err)
		}
		if reply == nil {
			result.StopReason = StopNoReply
			return result, nil
		}

		speaker = next
		if err := speaker.Send(ctx, *reply, m, false); err != nil {
			return result, fmt.Errorf("speaker %s: %w", speaker.Name(), err)
		}
		message, _ = m.lastFrom(speaker.Name())
	}
	return result, nil
}

func (m *Manager) lastFrom(peer string) (types.Message, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h := m.histories[peer]
	if len(h) == 0 {
		return types.Message{}, false
	}
	return h[len(h)-1], true
}
