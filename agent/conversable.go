package agent

import (
	"context"

	"github.com/BaSui01/marketstream/llm"
	"github.com/BaSui01/marketstream/types"
)

// Conversable is anything that can take part in a chat: agents and group chat managers.
type Conversable interface {
	// Name 返回参与者名称，在同一会话中唯一
	Name() string

	// Send records msg as sent to recipient and delivers it.
	Send(ctx context.Context, msg types.Message, recipient Conversable, requestReply bool) error

	// Receive records msg from sender and, if requestReply, answers through Send.
	Receive(ctx context.Context, msg types.Message, sender Conversable, requestReply bool) error

	// GenerateReply returns the next reply to sender, or nil when no reply should be sent.
	GenerateReply(ctx context.Context, sender Conversable) (*types.Message, error)
}

// UsageReporter exposes the LLM usage accumulated by a participant.
type UsageReporter interface {
	Usage() llm.Usage
}

// LLMHolder exposes a participant's LLM client.
type LLMHolder interface {
	LLM() *llm.Client
}

// HistoryResetter drops the history a participant holds with peer.
type HistoryResetter interface {
	ResetPeer(peer string)
}
