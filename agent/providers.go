package agent

import (
	"context"

	"github.com/BaSui01/marketstream/llm"
	"github.com/BaSui01/marketstream/types"
)

// LLMReplyProvider answers with a model completion over the system message and history.
type LLMReplyProvider struct {
	client        *llm.Client
	systemMessage string
}

// NewLLMReplyProvider creates a provider bound to client.
func NewLLMReplyProvider(client *llm.Client, systemMessage string) *LLMReplyProvider {
	return &LLMReplyProvider{client: client, systemMessage: systemMessage}
}

// Name implements ReplyProvider.
func (p *LLMReplyProvider) Name() string { return "llm" }

// Reply implements ReplyProvider.
func (p *LLMReplyProvider) Reply(ctx context.Context, req ReplyRequest) (Reply, error) {
	if p.client == nil {
		return Declined(), nil
	}

	messages := make([]types.Message, 0, len(req.Messages)+1)
	if p.systemMessage != "" {
		messages = append(messages, types.NewSystemMessage(p.systemMessage))
	}
	messages = append(messages, req.Messages...)

	resp, err := p.client.Complete(ctx, messages)
	if err != nil {
		return Declined(), err
	}
	return HandledText(resp.Content), nil
}

// DefaultAutoReplyProvider answers with a fixed text; with no text it declines.
type DefaultAutoReplyProvider struct {
	text *string
}

// NewDefaultAutoReplyProvider creates the fallback provider.
func NewDefaultAutoReplyProvider(text *string) *DefaultAutoReplyProvider {
	return &DefaultAutoReplyProvider{text: text}
}

// Name implements ReplyProvider.
func (p *DefaultAutoReplyProvider) Name() string { return "default_auto_reply" }

// Reply implements ReplyProvider.
func (p *DefaultAutoReplyProvider) Reply(_ context.Context, _ ReplyRequest) (Reply, error) {
	if p.text == nil {
		return Declined(), nil
	}
	return HandledText(*p.text), nil
}
