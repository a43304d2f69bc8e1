package bridge

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/marketstream/agent"
	"github.com/BaSui01/marketstream/news"
	"github.com/BaSui01/marketstream/stream"
)

// DefaultPriority 新闻 Provider 在回复链中的位置
const DefaultPriority = 2

// DefaultInitialMessage opens the session chat.
const DefaultInitialMessage = "Summarize market dynamics in 3 bullet points."

var (
	// ErrNilAgent 会话缺少参与者
	ErrNilAgent = errors.New("session requires both agents")
	// ErrSessionStarted Run 只能调用一次
	ErrSessionStarted = errors.New("session already started")
)

// Recorder receives stream observations; internal/metrics.Collector implements it.
type Recorder interface {
	RecordStreamTick(initialized bool)
	RecordNewsDrained(entries int)
}

// SessionConfig 会话配置
type SessionConfig struct {
	Producer       stream.ProducerConfig `json:"producer" yaml:"producer"`
	Latency        time.Duration         `json:"latency" yaml:"latency"`
	Banner         string                `json:"banner" yaml:"banner"`
	Priority       int                   `json:"priority" yaml:"priority"`
	InitialMessage string                `json:"initial_message" yaml:"initial_message"`
	SummaryMethod  agent.SummaryMethod   `json:"summary_method" yaml:"summary_method"`
}

// DefaultSessionConfig returns the defaults used by the stream command.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Producer:       stream.DefaultProducerConfig(),
		Latency:        DefaultLatency,
		Banner:         DefaultBanner,
		Priority:       DefaultPriority,
		InitialMessage: DefaultInitialMessage,
		SummaryMethod:  agent.SummaryReflectionWithLLM,
	}
}

// SessionResult 会话结果
type SessionResult struct {
	Chat *agent.ChatResult `json:"chat"`
	// Forwarded 轮询循环发送的消息数
	Forwarded int `json:"forwarded"`
	// Drained 被取走的新闻条数，包括初始对话中取走的
	Drained     int      `json:"drained"`
	Pending     []string `json:"pending,omitempty"`
	ProducerErr error    `json:"-"`
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) SessionOption {
	return func(s *Session) { s.recorder = r }
}

// WithFeed replaces news.DefaultFeed.
func WithFeed(f *news.Feed) SessionOption {
	return func(s *Session) { s.feed = f }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session streams news into a chat between a user proxy and an assistant.
type Session struct {
	user      *agent.Agent
	assistant agent.Conversable
	config    SessionConfig

	feed     *news.Feed
	cell     *stream.Cell
	producer *stream.Producer
	provider *NewsReplyProvider
	recorder Recorder
	logger   *zap.Logger

	started atomic.Bool
}

// NewSession wires a cell, a producer over the feed and a NewsReplyProvider
// registered on user for messages from assistant.
func NewSession(user *agent.Agent, assistant agent.Conversable, config SessionConfig, opts ...SessionOption) (*Session, error) {
	if user == nil || assistant == nil {
		return nil, ErrNilAgent
	}
	s := &Session{
		user:      user,
		assistant: assistant,
		config:    config,
		feed:      news.DefaultFeed(),
		cell:      stream.NewCell(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "stream_session"))

	s.producer = stream.NewProducer(s.cell, config.Producer, stream.SliceFunc(s.feed.Slice), s.logger)
	s.provider = NewNewsReplyProvider(s.cell)
	if config.Latency > 0 {
		s.provider.Latency = config.Latency
	} else {
		// Drive 没有自己的等待，零延迟会让轮询空转
		s.logger.Warn("non-positive poll latency, using default",
			zap.Duration("latency", config.Latency),
			zap.Duration("default", DefaultLatency),
		)
	}
	if config.Banner != "" {
		s.provider.Banner = config.Banner
	}
	if s.recorder != nil {
		rec := s.recorder
		s.producer.WithObserver(func(_ int, initialized bool) { rec.RecordStreamTick(initialized) })
		s.provider.OnDrain(rec.RecordNewsDrained)
	}

	user.RegisterReply(s.provider,
		agent.WithPriority(config.Priority),
		agent.WithTrigger(agent.SenderIn(assistant)),
		agent.WithConfig(StreamConfig{Cell: s.cell}),
	)
	return s, nil
}

// Cell exposes the shared cell.
func (s *Session) Cell() *stream.Cell { return s.cell }

// Provider exposes the registered news provider.
func (s *Session) Provider() *NewsReplyProvider { return s.provider }

// Run starts the producer, opens the chat, then polls until the producer finishes.
func (s *Session) Run(ctx context.Context) (*SessionResult, error) {
	if !s.started.CompareAndSwap(false, true) {
		return nil, ErrSessionStarted
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.producer.Run(gctx)
	})

	result := &SessionResult{}
	g.Go(func() error {
		message := s.config.InitialMessage
		if message == "" {
			message = DefaultInitialMessage
		}
		chat, err := s.user.InitiateChat(gctx, s.assistant, message, agent.WithSummaryMethod(s.config.SummaryMethod))
		if err != nil {
			return err
		}
		result.Chat = chat
		s.logger.Info("initial chat finished", zap.String("summary", chat.Summary), zap.Float64("cost", chat.Cost.Cost))

		n, err := Drive(gctx, s.producer.Done(), s.user, s.assistant)
		result.Forwarded = n
		return err
	})

	err := g.Wait()
	result.Drained = s.provider.Drained()
	result.Pending = s.cell.Snapshot()
	result.ProducerErr = s.producer.Err()

	s.logger.Info("session finished",
		zap.Int("forwarded", result.Forwarded),
		zap.Int("drained", result.Drained),
		zap.Error(err),
	)
	return result, err
}
