package agent

import (
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/marketstream/llm"
)

// Recorder receives agent-level observations; internal/metrics.Collector implements it.
type Recorder interface {
	RecordReplyOutcome(agent, provider, outcome string)
	RecordChatMessage(sender, recipient string)
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithLLM sets the model client and installs the LLM reply provider.
func WithLLM(client *llm.Client) Option {
	return func(a *Agent) { a.llm = client }
}

// WithSystemMessage sets the system prompt.
func WithSystemMessage(msg string) Option {
	return func(a *Agent) { a.systemMessage = msg }
}

// WithTermination sets the predicate applied to received messages.
func WithTermination(fn TerminationFunc) Option {
	return func(a *Agent) { a.isTermination = fn }
}

// WithHumanInput sets the source used in ALWAYS and TERMINATE modes.
func WithHumanInput(h HumanInput) Option {
	return func(a *Agent) { a.human = h }
}

// WithAutoReplyPolicy overrides the auto-reply policy.
func WithAutoReplyPolicy(p AutoReplyPolicy) Option {
	return func(a *Agent) { a.policy = p }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(a *Agent) { a.recorder = r }
}

// WithTracerProvider sets the tracer provider used for reply spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(a *Agent) {
		if tp != nil {
			a.tracer = tp.Tracer(tracerName)
		}
	}
}
