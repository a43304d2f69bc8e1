package bridge

import (
	"context"
	"fmt"

	"github.com/BaSui01/marketstream/agent"
)

// Drive polls from for replies to to until done is closed. Each non-nil
// reply is sent to to with a reply requested. Pacing comes from the reply
// providers themselves; Drive never sleeps. It returns the number of
// messages sent.
func Drive(ctx context.Context, done <-chan struct{}, from, to agent.Conversable) (int, error) {
	sent := 0
	for {
		select {
		case <-done:
			return sent, nil
		case <-ctx.Done():
			return sent, ctx.Err()
		default:
		}

		reply, err := from.GenerateReply(ctx, to)
		if err != nil {
			return sent, fmt.Errorf("generate reply: %w", err)
		}
		if reply == nil {
			continue
		}
		if err := from.Send(ctx, *reply, to, true); err != nil {
			return sent, fmt.Errorf("send reply: %w", err)
		}
		sent++
	}
}
