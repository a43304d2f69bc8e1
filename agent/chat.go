package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/marketstream/llm"
	"github.com/BaSui01/marketstream/types"
)

// SummaryMethod 决定对话结束后如何生成摘要
type SummaryMethod string

const (
	SummaryLastMessage       SummaryMethod = "last_msg"
	SummaryReflectionWithLLM SummaryMethod = "reflection_with_llm"
)

// DefaultSummaryPrompt is sent to the model by the reflection summary.
const DefaultSummaryPrompt = "Summarize the takeaway from the conversation. Do not add any introductory phrases."

// terminationWord is stripped from last_msg summaries.
const terminationWord = "TERMINATE"

// SummaryFunc builds a custom summary from the chat history.
type SummaryFunc func(ctx context.Context, history []types.Message) (string, error)

// ChatResult is what InitiateChat returns.
type ChatResult struct {
	ChatID  string          `json:"chat_id"`
	History []types.Message `json:"history"`
	Summary string          `json:"summary"`
	// Cost 为双方 LLM 用量之和
	Cost llm.Usage `json:"cost"`
}

// ChatOptions controls InitiateChat.
type ChatOptions struct {
	SummaryMethod SummaryMethod
	SummaryPrompt string
	SummaryFunc   SummaryFunc
	ClearHistory  bool
}

// ChatOption mutates ChatOptions.
type ChatOption func(*ChatOptions)

// WithSummaryMethod selects a built-in summary method.
func WithSummaryMethod(m SummaryMethod) ChatOption {
	return func(o *ChatOptions) { o.SummaryMethod = m }
}

// WithSummaryPrompt overrides DefaultSummaryPrompt.
func WithSummaryPrompt(prompt string) ChatOption {
	return func(o *ChatOptions) { o.SummaryPrompt = prompt }
}

// WithSummaryFunc replaces the built-in summary methods.
func WithSummaryFunc(fn SummaryFunc) ChatOption {
	return func(o *ChatOptions) { o.SummaryFunc = fn }
}

// WithClearHistory controls whether earlier history with the recipient is dropped first.
func WithClearHistory(clear bool) ChatOption {
	return func(o *ChatOptions) { o.ClearHistory = clear }
}

// InitiateChat sends message to recipient and lets the two sides reply to
// each other until one of them produces no reply.
func (a *Agent) InitiateChat(ctx context.Context, recipient Conversable, message string, opts ...ChatOption) (*ChatResult, error) {
	if recipient == nil {
		return nil, ErrNilRecipient
	}
	o := ChatOptions{
		SummaryMethod: SummaryLastMessage,
		SummaryPrompt: DefaultSummaryPrompt,
		ClearHistory:  true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.SummaryMethod == "" {
		o.SummaryMethod = SummaryLastMessage
	}
	if o.SummaryFunc == nil && o.SummaryMethod != SummaryLastMessage && o.SummaryMethod != SummaryReflectionWithLLM {
		return nil, types.NewError(types.ErrInvalidRequest, fmt.Sprintf("unknown summary method %q", o.SummaryMethod))
	}

	chatID := uuid.New().String()
	peer := recipient.Name()
	if o.ClearHistory {
		a.ResetPeer(peer)
		if r, ok := recipient.(HistoryResetter); ok {
			r.ResetPeer(a.name)
		}
	} else {
		a.resetCounter(peer)
	}

	a.logger.Info("chat initiated",
		zap.String("chat_id", chatID),
		zap.String("recipient", peer),
		zap.String("summary_method", string(o.SummaryMethod)),
	)

	if err := a.Send(ctx, types.NewUserMessage(message), recipient, true); err != nil {
		return nil, fmt.Errorf("chat %s: %w", chatID, err)
	}

	history := a.ChatMessages(peer)
	summary, err := a.summarize(ctx, recipient, history, o)
	if err != nil {
		return nil, fmt.Errorf("chat %s summary: %w", chatID, err)
	}

	cost := a.Usage()
	if r, ok := recipient.(UsageReporter); ok {
		cost = cost.Add(r.Usage())
	}

	a.logger.Info("chat finished",
		zap.String("chat_id", chatID),
		zap.Int("messages", len(history)),
		zap.Float64("cost", cost.Cost),
	)

	return &ChatResult{
		ChatID:  chatID,
		History: history,
		Summary: summary,
		Cost:    cost,
	}, nil
}

func (a *Agent) summarize(ctx context.Context, recipient Conversable, history []types.Message, o ChatOptions) (string, error) {
	if o.SummaryFunc != nil {
		return o.SummaryFunc(ctx, history)
	}
	if len(history) == 0 {
		return "", nil
	}

	switch o.SummaryMethod {
	case SummaryReflectionWithLLM:
		client := a.llm
		if client == nil {
			if h, ok := recipient.(LLMHolder); ok {
				client = h.LLM()
			}
		}
		if client == nil {
			return "", types.NewError(types.ErrLLMNotConfigured, "reflection summary").WithCause(ErrLLMNotSet)
		}
		messages := append(types.Clone(history), types.NewSystemMessage(o.SummaryPrompt))
		resp, err := client.Complete(ctx, messages)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(resp.Content), nil
	default:
		last := history[len(history)-1].Content
		return strings.TrimSpace(strings.ReplaceAll(last, terminationWord, "")), nil
	}
}
