package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BaSui01/marketstream/types"
)

// OfflineProvider is a deterministic extractive provider that never leaves the process.
// It turns lines carrying LinePrefix into bullet points and otherwise acknowledges
// the last message.
type OfflineProvider struct {
	// LinePrefix marks lines worth summarizing, e.g. "News summary: ".
	LinePrefix string
	// MaxBullets caps the number of bullets; 0 means 3.
	MaxBullets int
	// TerminateWord, when set, is appended to every reply.
	TerminateWord string
}

// Name implements Provider.
func (p *OfflineProvider) Name() string {
	return "offline"
}

// Completion implements Provider.
func (p *OfflineProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content := p.bullets(req.Messages)
	if content == "" {
		content = p.acknowledge(req.Messages)
	}
	if p.TerminateWord != "" {
		content += "\n" + p.TerminateWord
	}

	prompt := EstimateMessageTokens(req.Messages)
	completion := EstimateTokens(content)
	return &ChatResponse{
		ID:           uuid.NewString(),
		Provider:     p.Name(),
		Model:        req.Model,
		Content:      content,
		FinishReason: "stop",
		Usage: ChatUsage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
		CreatedAt: time.Now(),
	}, nil
}

func (p *OfflineProvider) bullets(messages []types.Message) string {
	if p.LinePrefix == "" {
		return ""
	}
	limit := p.MaxBullets
	if limit <= 0 {
		limit = 3
	}

	var headlines []string
	for _, m := range messages {
		for _, line := range strings.Split(m.Content, "\n") {
			if !strings.HasPrefix(line, p.LinePrefix) {
				continue
			}
			rest := strings.TrimPrefix(line, p.LinePrefix)
			if i := strings.Index(rest, ". "); i >= 0 {
				rest = rest[:i]
			}
			headlines = append(headlines, strings.TrimSpace(rest))
		}
	}
	if len(headlines) > limit {
		headlines = headlines[len(headlines)-limit:]
	}

	var b strings.Builder
	for i, h := range headlines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(h)
	}
	return b.String()
}

func (p *OfflineProvider) acknowledge(messages []types.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleSystem {
			continue
		}
		text := strings.TrimSpace(messages[i].Content)
		if r := []rune(text); len(r) > 80 {
			text = string(r[:80]) + "..."
		}
		return fmt.Sprintf("Noted: %s", text)
	}
	return "Noted."
}
