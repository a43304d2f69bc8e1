package conversation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/marketstream/agent"
	"github.com/BaSui01/marketstream/llm"
	"github.com/BaSui01/marketstream/types"
)

// SpeakerSelection defines how the next speaker is chosen.
type SpeakerSelection string

const (
	SelectRoundRobin SpeakerSelection = "round_robin" // Agents take turns
	SelectRandom     SpeakerSelection = "random"      // Uniformly random
	SelectAuto       SpeakerSelection = "auto"        // LLM chooses, round robin fallback
)

var (
	// ErrNoAgents 群聊没有参与者
	ErrNoAgents = errors.New("group chat has no agents")
	// ErrDuplicateAgent 参与者名称重复
	ErrDuplicateAgent = errors.New("duplicate agent name in group chat")
	// ErrUnknownSelection 未知的发言人选择策略
	ErrUnknownSelection = errors.New("unknown speaker selection method")
	// ErrInvalidMaxRound 最大轮次必须为正数
	ErrInvalidMaxRound = errors.New("max round must be positive")
)

// ParseSpeakerSelection parses a selection method name.
func ParseSpeakerSelection(s string) (SpeakerSelection, error) {
	m := SpeakerSelection(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case SelectRoundRobin, SelectRandom, SelectAuto:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSelection, s)
}

// GroupChat is the shared state of a multi-agent chat.
type GroupChat struct {
	Agents           []agent.Conversable
	Messages         []types.Message
	MaxRound         int
	SpeakerSelection SpeakerSelection

	mu sync.RWMutex
}

// NewGroupChat validates and builds a group chat.
func NewGroupChat(agents []agent.Conversable, messages []types.Message, maxRound int, selection SpeakerSelection) (*GroupChat, error) {
	if len(agents) == 0 {
		return nil, ErrNoAgents
	}
	seen := make(map[string]struct{}, len(agents))
	for _, a := range agents {
		if _, ok := seen[a.Name()]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAgent, a.Name())
		}
		seen[a.Name()] = struct{}{}
	}
	if maxRound <= 0 {
		return nil, ErrInvalidMaxRound
	}
	if selection == "" {
		selection = SelectRoundRobin
	}
	if _, err := ParseSpeakerSelection(string(selection)); err != nil {
		return nil, err
	}
	return &GroupChat{
		Agents:           agents,
		Messages:         types.Clone(messages),
		MaxRound:         maxRound,
		SpeakerSelection: selection,
	}, nil
}

// Append adds a message spoken by speaker.
func (g *GroupChat) Append(msg types.Message, speaker string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if msg.Name == "" {
		msg.Name = speaker
	}
	g.Messages = append(g.Messages, msg)
}

// History returns a copy of the chat log.
func (g *GroupChat) History() []types.Message {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return types.Clone(g.Messages)
}

// Len returns the number of logged messages.
func (g *GroupChat) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.Messages)
}

// Reset clears the chat log.
func (g *GroupChat) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Messages = nil
}

// AgentNames returns participant names in order.
func (g *GroupChat) AgentNames() []string {
	names := make([]string, len(g.Agents))
	for i, a := range g.Agents {
		names[i] = a.Name()
	}
	return names
}

// AgentByName looks up a participant.
func (g *GroupChat) AgentByName(name string) (agent.Conversable, bool) {
	for _, a := range g.Agents {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

func (g *GroupChat) indexOf(c agent.Conversable) int {
	if c == nil {
		return -1
	}
	for i, a := range g.Agents {
		if a.Name() == c.Name() {
			return i
		}
	}
	return -1
}

// SpeakerSelector selects the next speaker.
type SpeakerSelector interface {
	SelectNext(ctx context.Context, gc *GroupChat, last agent.Conversable) (agent.Conversable, error)
}

// RoundRobinSelector picks the agent after the last speaker.
type RoundRobinSelector struct{}

func (RoundRobinSelector) SelectNext(_ context.Context, gc *GroupChat, last agent.Conversable) (agent.Conversable, error) {
	if len(gc.Agents) == 0 {
		return nil, ErrNoAgents
	}
	// 不在群聊中的发起者视为 -1，从第一个参与者开始
	return gc.Agents[(gc.indexOf(last)+1)%len(gc.Agents)], nil
}

// RandomSelector picks any agent uniformly.
type RandomSelector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomSelector creates a selector; a zero seed uses a random source.
func NewRandomSelector(seed uint64) *RandomSelector {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &RandomSelector{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *RandomSelector) SelectNext(_ context.Context, gc *GroupChat, _ agent.Conversable) (agent.Conversable, error) {
	if len(gc.Agents) == 0 {
		return nil, ErrNoAgents
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return gc.Agents[s.rnd.IntN(len(gc.Agents))], nil
}

// selectPrompt 提示 LLM 从参与者中选出下一位发言人
const selectPrompt = "You are in a role play game. The following roles are available:\n%s\nRead the above conversation. Then select the next role from %v to play. Only return the role."

// describer is implemented by participants that expose a system message.
type describer interface {
	SystemMessage() string
}

// LLMSelector asks a model for the next speaker and falls back to round robin.
type LLMSelector struct {
	Client   *llm.Client
	Fallback SpeakerSelector
	logger   *zap.Logger
}

// NewLLMSelector creates an auto selector.
func NewLLMSelector(client *llm.Client, logger *zap.Logger) *LLMSelector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMSelector{
		Client:   client,
		Fallback: RoundRobinSelector{},
		logger:   logger.With(zap.String("component", "llm_selector")),
	}
}

func (s *LLMSelector) SelectNext(ctx context.Context, gc *GroupChat, last agent.Conversable) (agent.Conversable, error) {
	if len(gc.Agents) == 0 {
		return nil, ErrNoAgents
	}
	fallback := s.Fallback
	if fallback == nil {
		fallback = RoundRobinSelector{}
	}
	if s.Client == nil {
		return fallback.SelectNext(ctx, gc, last)
	}

	var roles strings.Builder
	for _, a := range gc.Agents {
		desc := ""
		if d, ok := a.(describer); ok {
			desc = d.SystemMessage()
		}
		fmt.Fprintf(&roles, "%s: %s\n", a.Name(), desc)
	}
	messages := append(gc.History(), types.NewSystemMessage(fmt.Sprintf(selectPrompt, roles.String(), gc.AgentNames())))

	resp, err := s.Client.Complete(ctx, messages)
	if err != nil {
		s.logger.Warn("speaker selection failed, falling back", zap.Error(err))
		return fallback.SelectNext(ctx, gc, last)
	}
	if next, ok := matchSpeaker(gc, resp.Content); ok {
		return next, nil
	}
	s.logger.Warn("speaker selection unparsable, falling back", zap.String("response", resp.Content))
	return fallback.SelectNext(ctx, gc, last)
}

// matchSpeaker 先精确匹配名称，再要求回复中只提到唯一一个参与者
func matchSpeaker(gc *GroupChat, content string) (agent.Conversable, bool) {
	name := strings.TrimSpace(content)
	if a, ok := gc.AgentByName(name); ok {
		return a, true
	}
	var found agent.Conversable
	for _, a := range gc.Agents {
		if strings.Contains(content, a.Name()) {
			if found != nil {
				return nil, false
			}
			found = a
		}
	}
	return found, found != nil
}

// SelectorFor returns the selector implementing method.
func SelectorFor(method SpeakerSelection, client *llm.Client, logger *zap.Logger) (SpeakerSelector, error) {
	switch method {
	case SelectRoundRobin, "":
		return RoundRobinSelector{}, nil
	case SelectRandom:
		return NewRandomSelector(0), nil
	case SelectAuto:
		return NewLLMSelector(client, logger), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSelection, method)
}
