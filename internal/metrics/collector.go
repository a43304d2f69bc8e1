// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	namespace string

	// LLM 指标
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec
	llmCost            *prometheus.CounterVec

	// Agent 指标
	replyOutcomes *prometheus.CounterVec
	chatMessages  *prometheus.CounterVec

	// 新闻流指标
	streamTicks  *prometheus.CounterVec
	newsDrained  prometheus.Counter
	drainBatches prometheus.Histogram

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		namespace: namespace,
		logger:    logger.With(zap.String("component", "metrics")),
	}

	// LLM 指标
	c.llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		},
		[]string{"provider", "model", "status"},
	)

	c.llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	c.llmTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"provider", "model", "type"}, // type: prompt, completion
	)

	c.llmCost = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_cost_total",
			Help:      "Total LLM cost in USD",
		},
		[]string{"provider", "model"},
	)

	// Agent 指标
	c.replyOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reply_provider_outcomes_total",
			Help:      "Reply provider invocations by outcome",
		},
		[]string{"agent", "provider", "outcome"},
	)

	c.chatMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_total",
			Help:      "Total number of chat messages sent",
		},
		[]string{"sender", "recipient"},
	)

	// 新闻流指标
	c.streamTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_ticks_total",
			Help:      "Producer ticks that published an entry",
		},
		[]string{"path"}, // path: init, append
	)

	c.newsDrained = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "news_entries_drained_total",
			Help:      "Total number of news entries drained into replies",
		},
	)

	c.drainBatches = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "news_drain_batch_size",
			Help:      "Entries per drained batch",
			Buckets:   []float64{1, 2, 3, 5, 8, 13},
		},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🤖 LLM 指标记录
// =============================================================================

// RecordLLMRequest 记录 LLM 请求
func (c *Collector) RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int, cost float64) {
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	c.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	c.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	c.llmCost.WithLabelValues(provider, model).Add(cost)
}

// =============================================================================
// 🎭 Agent 指标记录
// =============================================================================

// RecordReplyOutcome 记录回复链中单个 Provider 的结果
func (c *Collector) RecordReplyOutcome(agent, provider, outcome string) {
	c.replyOutcomes.WithLabelValues(agent, provider, outcome).Inc()
}

// RecordChatMessage 记录一条发送的消息
func (c *Collector) RecordChatMessage(sender, recipient string) {
	c.chatMessages.WithLabelValues(sender, recipient).Inc()
}

// =============================================================================
// 📰 新闻流指标记录
// =============================================================================

// RecordStreamTick 记录一次发布；initialized 表示本次初始化了结果单元
func (c *Collector) RecordStreamTick(initialized bool) {
	path := "append"
	if initialized {
		path = "init"
	}
	c.streamTicks.WithLabelValues(path).Inc()
}

// RecordNewsDrained 记录一次取走的新闻条数
func (c *Collector) RecordNewsDrained(entries int) {
	if entries <= 0 {
		return
	}
	c.newsDrained.Add(float64(entries))
	c.drainBatches.Observe(float64(entries))
}

// =============================================================================
// 📤 导出
// =============================================================================

// WriteText writes every metric family of this collector's namespace in
// the Prometheus text format.
func (c *Collector) WriteText(w io.Writer, g prometheus.Gatherer) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	prefix := c.namespace + "_"
	for _, mf := range families {
		if c.namespace != "" && !strings.HasPrefix(mf.GetName(), prefix) {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
