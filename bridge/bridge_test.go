package bridge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/marketstream/agent"
	"github.com/BaSui01/marketstream/llm"
	"github.com/BaSui01/marketstream/news"
	"github.com/BaSui01/marketstream/stream"
	"github.com/BaSui01/marketstream/testutil"
	"github.com/BaSui01/marketstream/testutil/mocks"
	"github.com/BaSui01/marketstream/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newAgents(t *testing.T, provider llm.Provider) (*agent.Agent, *agent.Agent) {
	t.Helper()
	cfg := llm.DefaultConfig()
	cfg.CacheSeed = 0
	assistant, err := agent.NewAssistant("assistant", llm.NewClient(provider, cfg, zaptest.NewLogger(t)), "You are a financial expert.")
	require.NoError(t, err)

	user, err := agent.NewUserProxy("user", agent.AutoReplyPolicy{
		MaxConsecutiveAutoReply: 5,
		HumanInputMode:          agent.HumanInputNever,
	}, agent.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return user, assistant
}

// countingRecorder 记录流式指标调用
type countingRecorder struct {
	mu          sync.Mutex
	ticks       int
	initialized int
	drained     int
}

func (r *countingRecorder) RecordStreamTick(initialized bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks++
	if initialized {
		r.initialized++
	}
}

func (r *countingRecorder) RecordNewsDrained(entries int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drained += entries
}

func TestNewsReplyProvider_UnsetCellDeclines(t *testing.T) {
	p := NewNewsReplyProvider(stream.NewCell())
	p.Latency = 0

	for i := 0; i < 3; i++ {
		reply, err := p.Reply(context.Background(), agent.ReplyRequest{})
		require.NoError(t, err)
		assert.False(t, reply.IsHandled())
	}
	assert.Zero(t, p.Drained())
}

func TestNewsReplyProvider_NilCellDeclines(t *testing.T) {
	p := NewNewsReplyProvider(nil)
	p.Latency = 0
	reply, err := p.Reply(context.Background(), agent.ReplyRequest{})
	require.NoError(t, err)
	assert.False(t, reply.IsHandled())
}

func TestNewsReplyProvider_DrainsAndClears(t *testing.T) {
	cell := stream.NewCell()
	cell.AppendOrInit(news.Slice(0, 1))
	cell.AppendOrInit(news.Slice(1, 2))

	var observed int
	p := NewNewsReplyProvider(cell).OnDrain(func(n int) { observed += n })
	p.Latency = time.Millisecond

	reply, err := p.Reply(context.Background(), agent.ReplyRequest{})
	require.NoError(t, err)
	msg, ok := reply.Message()
	require.True(t, ok)

	lines := strings.Split(msg.Content, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, DefaultBanner, lines[0])
	assert.Equal(t, news.Slice(0, 2), strings.Join(lines[1:], "\n"))
	assert.Equal(t, 2, p.Drained())
	assert.Equal(t, 2, observed)

	// 取走后保持已设置状态，再次轮询拒绝回复
	assert.True(t, cell.IsSet())
	assert.Zero(t, cell.Len())
	reply, err = p.Reply(context.Background(), agent.ReplyRequest{})
	require.NoError(t, err)
	assert.False(t, reply.IsHandled())

	// 之后的追加走 append 分支
	assert.False(t, cell.AppendOrInit("later"))
}

func TestNewsReplyProvider_ConfigCellWins(t *testing.T) {
	own := stream.NewCell()
	own.AppendOrInit("own")
	fromConfig := stream.NewCell()
	fromConfig.AppendOrInit("config")

	p := NewNewsReplyProvider(own)
	p.Latency = 0
	p.Banner = "News:"

	for _, cfg := range []any{StreamConfig{Cell: fromConfig}, &StreamConfig{Cell: fromConfig}} {
		fromConfig.AppendOrInit("config")
		reply, err := p.Reply(context.Background(), agent.ReplyRequest{Config: cfg})
		require.NoError(t, err)
		msg, ok := reply.Message()
		require.True(t, ok)
		assert.True(t, strings.HasPrefix(msg.Content, "News:\nconfig"))
	}
	assert.Equal(t, 1, own.Len())
}

func TestNewsReplyProvider_ContextCancelled(t *testing.T) {
	p := NewNewsReplyProvider(stream.NewCell())
	p.Latency = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Reply(ctx, agent.ReplyRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDrive_StopsWhenDoneClosed(t *testing.T) {
	user, assistant := newAgents(t, mocks.NewMockProvider().WithResponse("updated"))
	cell := stream.NewCell()
	p := NewNewsReplyProvider(cell)
	p.Latency = time.Millisecond
	user.RegisterReply(p, agent.WithPriority(DefaultPriority), agent.WithTrigger(agent.SenderIn(assistant)))

	cell.AppendOrInit("headline one")
	done := make(chan struct{})
	go func() {
		testutil.AssertEventuallyTrue(t, func() bool { return p.Drained() == 1 }, time.Second)
		close(done)
	}()

	sent, err := Drive(testutil.TestContext(t), done, user, assistant)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	history := user.ChatMessages("assistant")
	require.Len(t, history, 2)
	assert.Equal(t, DefaultBanner+"\nheadline one", history[0].Content)
	assert.Equal(t, "updated", history[1].Content)
}

func TestDrive_ClosedDoneSendsNothing(t *testing.T) {
	user, assistant := newAgents(t, mocks.NewMockProvider())
	done := make(chan struct{})
	close(done)

	sent, err := Drive(context.Background(), done, user, assistant)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, user.ChatMessages("assistant"))
}

func TestDrive_ContextCancelled(t *testing.T) {
	user, assistant := newAgents(t, mocks.NewMockProvider())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Drive(ctx, make(chan struct{}), user, assistant)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDrive_ReplyErrorStops(t *testing.T) {
	user, assistant := newAgents(t, mocks.NewMockProvider())
	boom := errors.New("boom")
	user.RegisterReply(agent.NewReplyFunc("broken", func(context.Context, agent.ReplyRequest) (agent.Reply, error) {
		return agent.Declined(), boom
	}), agent.WithPriority(1))

	_, err := Drive(context.Background(), make(chan struct{}), user, assistant)
	assert.ErrorIs(t, err, boom)
}

func TestSession_ForwardsAllNews(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponses("- Palantir\n- Hedge funds\n- Markets", "updated", "updated", "summary")
	user, assistant := newAgents(t, provider)

	cfg := DefaultSessionConfig()
	cfg.Producer = stream.ProducerConfig{Ticks: 2, Interval: 200 * time.Millisecond}
	cfg.Latency = 2 * time.Millisecond

	rec := &countingRecorder{}
	session, err := NewSession(user, assistant, cfg, WithRecorder(rec), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.Equal(t, []string{ProviderName, "default_auto_reply"}, user.Chain().Providers())

	res, err := session.Run(testutil.TestContextWithTimeout(t, 10*time.Second))
	require.NoError(t, err)
	require.NotNil(t, res.Chat)
	assert.NoError(t, res.ProducerErr)
	assert.NotEmpty(t, res.Chat.Summary)

	assert.Equal(t, 2, res.Drained)
	assert.Empty(t, res.Pending)

	// 两条新闻可能合并为一条，也可能分两次转发
	var forwarded []string
	for _, m := range assistant.ChatMessages("user") {
		if m.Role == types.RoleUser && strings.HasPrefix(m.Content, DefaultBanner) {
			forwarded = append(forwarded, strings.Split(m.Content, "\n")[1:]...)
		}
	}
	assert.Equal(t, []string{news.Slice(0, 1), news.Slice(1, 2)}, forwarded)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 2, rec.ticks)
	assert.Equal(t, 1, rec.initialized)
	assert.Equal(t, 2, rec.drained)

	_, err = session.Run(context.Background())
	assert.ErrorIs(t, err, ErrSessionStarted)
}

func TestSession_CustomFeedAndCancel(t *testing.T) {
	user, assistant := newAgents(t, mocks.NewMockProvider())
	feed := news.NewFeed([]news.Item{{Title: "Only", Summary: "One item.", SentimentScore: 0.5}})

	cfg := DefaultSessionConfig()
	cfg.Producer = stream.ProducerConfig{Ticks: 3, Interval: time.Hour}
	cfg.Latency = time.Millisecond
	cfg.SummaryMethod = agent.SummaryLastMessage

	session, err := NewSession(user, assistant, cfg, WithFeed(feed))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	res, err := session.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, res.ProducerErr, context.DeadlineExceeded)
	assert.Equal(t, 1, res.Drained+len(res.Pending))
}

func TestNewSession_NilAgents(t *testing.T) {
	user, _ := newAgents(t, mocks.NewMockProvider())
	_, err := NewSession(user, nil, DefaultSessionConfig())
	assert.ErrorIs(t, err, ErrNilAgent)
	_, err = NewSession(nil, user, DefaultSessionConfig())
	assert.ErrorIs(t, err, ErrNilAgent)
}

func TestNewSession_NonPositiveLatencyUsesDefault(t *testing.T) {
	for _, latency := range []time.Duration{0, -time.Millisecond} {
		user, assistant := newAgents(t, mocks.NewMockProvider())
		cfg := DefaultSessionConfig()
		cfg.Latency = latency

		session, err := NewSession(user, assistant, cfg, WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		assert.Equal(t, DefaultLatency, session.Provider().Latency, "latency %v", latency)
	}
}

func TestNewSession_PositiveLatencyKept(t *testing.T) {
	user, assistant := newAgents(t, mocks.NewMockProvider())
	cfg := DefaultSessionConfig()
	cfg.Latency = 3 * time.Millisecond

	session, err := NewSession(user, assistant, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Millisecond, session.Provider().Latency)
}
