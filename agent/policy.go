package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/marketstream/types"
)

// HumanInputMode 控制何时向人工征求回复
type HumanInputMode string

const (
	// HumanInputNever 从不询问，达到上限或收到终止消息时结束
	HumanInputNever HumanInputMode = "NEVER"
	// HumanInputAlways 每次回复前都询问
	HumanInputAlways HumanInputMode = "ALWAYS"
	// HumanInputTerminate 仅在收到终止消息或达到上限时询问
	HumanInputTerminate HumanInputMode = "TERMINATE"
)

// Valid reports whether m is a known mode.
func (m HumanInputMode) Valid() bool {
	switch m {
	case HumanInputNever, HumanInputAlways, HumanInputTerminate:
		return true
	}
	return false
}

// ParseHumanInputMode parses a case-insensitive mode name.
func ParseHumanInputMode(s string) (HumanInputMode, error) {
	m := HumanInputMode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidHumanInputMode, s)
	}
	return m, nil
}

// DefaultMaxConsecutiveAutoReply 默认最大连续自动回复次数
const DefaultMaxConsecutiveAutoReply = 100

// AutoReplyPolicy governs how a user proxy answers without a model.
type AutoReplyPolicy struct {
	MaxConsecutiveAutoReply int            `json:"max_consecutive_auto_reply" yaml:"max_consecutive_auto_reply"`
	HumanInputMode          HumanInputMode `json:"human_input_mode" yaml:"human_input_mode"`
	// DefaultAutoReply nil 表示不回复，让对话结束
	DefaultAutoReply *string `json:"default_auto_reply,omitempty" yaml:"default_auto_reply,omitempty"`
	CodeExecution    bool    `json:"code_execution" yaml:"code_execution"`
}

// DefaultAutoReplyPolicy returns NEVER mode with the default reply limit and no default reply.
func DefaultAutoReplyPolicy() AutoReplyPolicy {
	return AutoReplyPolicy{
		MaxConsecutiveAutoReply: DefaultMaxConsecutiveAutoReply,
		HumanInputMode:          HumanInputNever,
	}
}

// Validate checks the policy.
func (p AutoReplyPolicy) Validate() error {
	if !p.HumanInputMode.Valid() {
		return types.NewError(types.ErrInvalidConfig, string(p.HumanInputMode)).WithCause(ErrInvalidHumanInputMode)
	}
	if p.CodeExecution {
		return types.NewError(types.ErrCodeExecutionUnsupported, "code execution requested").WithCause(ErrCodeExecutionUnsupported)
	}
	if p.MaxConsecutiveAutoReply < 0 {
		return types.NewError(types.ErrInvalidConfig, "max_consecutive_auto_reply must not be negative")
	}
	return nil
}

// HumanInput supplies replies typed by a person.
type HumanInput interface {
	// Prompt asks for input. "exit" ends the conversation.
	Prompt(ctx context.Context, prompt string) (string, error)
}

// HumanInputFunc adapts a function to HumanInput.
type HumanInputFunc func(ctx context.Context, prompt string) (string, error)

// Prompt implements HumanInput.
func (f HumanInputFunc) Prompt(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// TerminationFunc reports whether a received message ends the conversation.
type TerminationFunc func(msg types.Message) bool

// ContainsTermination matches messages whose content contains word.
func ContainsTermination(word string) TerminationFunc {
	return func(msg types.Message) bool {
		return strings.Contains(msg.Content, word)
	}
}

// EndsWithTermination matches messages whose trimmed content ends with word.
func EndsWithTermination(word string) TerminationFunc {
	return func(msg types.Message) bool {
		return strings.HasSuffix(strings.TrimSpace(msg.Content), word)
	}
}
