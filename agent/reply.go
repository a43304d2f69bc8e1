package agent

import (
	"context"

	"github.com/BaSui01/marketstream/types"
)

// Reply is the outcome of a ReplyProvider: Declined, or Handled with a message.
type Reply struct {
	handled bool
	message types.Message
}

// Declined lets the next provider in the chain answer.
func Declined() Reply {
	return Reply{}
}

// Handled answers with msg and stops the chain.
func Handled(msg types.Message) Reply {
	return Reply{handled: true, message: msg}
}

// HandledText answers with an assistant message carrying content.
func HandledText(content string) Reply {
	return Handled(types.NewAssistantMessage(content))
}

// IsHandled reports whether the provider answered.
func (r Reply) IsHandled() bool {
	return r.handled
}

// Message returns the reply message when handled.
func (r Reply) Message() (types.Message, bool) {
	return r.message, r.handled
}

// ReplyRequest carries everything a provider may look at.
type ReplyRequest struct {
	// Recipient is the agent producing the reply.
	Recipient *Agent
	// Messages is the recipient's history with Sender, oldest first.
	Messages []types.Message
	Sender   Conversable
	// Config is the payload given at registration time.
	Config any
}

// ReplyProvider is one source of replies in an agent's chain.
type ReplyProvider interface {
	Name() string
	Reply(ctx context.Context, req ReplyRequest) (Reply, error)
}

// ReplyFunc adapts a function to ReplyProvider.
type ReplyFunc func(ctx context.Context, req ReplyRequest) (Reply, error)

type funcProvider struct {
	name string
	fn   ReplyFunc
}

// NewReplyFunc wraps fn as a named ReplyProvider.
func NewReplyFunc(name string, fn ReplyFunc) ReplyProvider {
	return &funcProvider{name: name, fn: fn}
}

func (p *funcProvider) Name() string { return p.name }

func (p *funcProvider) Reply(ctx context.Context, req ReplyRequest) (Reply, error) {
	return p.fn(ctx, req)
}

// Trigger decides whether a provider applies to a sender.
type Trigger func(sender Conversable) bool

// AnySender matches every sender.
func AnySender() Trigger {
	return func(Conversable) bool { return true }
}

// SenderNamed matches senders by name.
func SenderNamed(names ...string) Trigger {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(sender Conversable) bool {
		if sender == nil {
			return false
		}
		_, ok := set[sender.Name()]
		return ok
	}
}

// SenderIn matches the given participants by identity.
func SenderIn(participants ...Conversable) Trigger {
	return func(sender Conversable) bool {
		for _, p := range participants {
			if p == sender {
				return true
			}
		}
		return false
	}
}
