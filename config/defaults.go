// =============================================================================
// 📦 MarketStream 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/marketstream/bridge"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Log:       DefaultLogConfig(),
		Agent:     DefaultAgentConfig(),
		UserProxy: DefaultUserProxyConfig(),
		Stream:    DefaultStreamConfig(),
		GroupChat: DefaultGroupChatConfig(),
		Metrics:   DefaultMetricsConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultAgentConfig 返回默认 assistant 配置
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Name:         "assistant",
		Model:        "gpt-4",
		SystemPrompt: "You are a financial expert.",
		Temperature:  0,
		Timeout:      600 * time.Second,
		CacheSeed:    41,
	}
}

// DefaultUserProxyConfig 返回默认 user proxy 配置
func DefaultUserProxyConfig() UserProxyConfig {
	return UserProxyConfig{
		Name:                    "user",
		MaxConsecutiveAutoReply: 5,
		HumanInputMode:          "NEVER",
	}
}

// DefaultStreamConfig 返回默认新闻流配置
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Ticks:          2,
		Interval:       5 * time.Second,
		Start:          0,
		PollLatency:    bridge.DefaultLatency,
		Banner:         bridge.DefaultBanner,
		Priority:       bridge.DefaultPriority,
		InitialMessage: bridge.DefaultInitialMessage,
		SummaryMethod:  "reflection_with_llm",
	}
}

// DefaultGroupChatConfig 返回默认群聊配置
func DefaultGroupChatConfig() GroupChatConfig {
	return GroupChatConfig{
		MaxRound:         3,
		SpeakerSelection: "round_robin",
		TerminationWord:  "TERMINATE",
		InitialMessage:   "223434*3422=?.",
		SystemPrompt:     "You are a helpful assistant.  Reply 'TERMINATE' to end the conversation.",
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Namespace: "marketstream",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     false,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:        false,
		OTLPEndpoint:   "localhost:4317",
		ServiceName:    "marketstream",
		SampleRate:     0.1,
		MetricInterval: 15 * time.Second,
	}
}
