package config

import (
	"github.com/BaSui01/marketstream/agent"
	"github.com/BaSui01/marketstream/bridge"
	"github.com/BaSui01/marketstream/llm"
	"github.com/BaSui01/marketstream/stream"
)

// LLM 转换为 llm.Config
func (a AgentConfig) LLM() llm.Config {
	return llm.Config{
		Model:                a.Model,
		Temperature:          float32(a.Temperature),
		Timeout:              a.Timeout,
		CacheSeed:            a.CacheSeed,
		PromptPricePer1K:     a.PromptPricePer1K,
		CompletionPricePer1K: a.CompletionPricePer1K,
		RequestsPerSecond:    a.RequestsPerSecond,
		Burst:                a.Burst,
	}
}

// Policy 转换为 agent.AutoReplyPolicy
func (u UserProxyConfig) Policy() (agent.AutoReplyPolicy, error) {
	mode, err := agent.ParseHumanInputMode(u.HumanInputMode)
	if err != nil {
		return agent.AutoReplyPolicy{}, err
	}
	policy := agent.AutoReplyPolicy{
		MaxConsecutiveAutoReply: u.MaxConsecutiveAutoReply,
		HumanInputMode:          mode,
	}
	if u.DefaultAutoReply != "" {
		reply := u.DefaultAutoReply
		policy.DefaultAutoReply = &reply
	}
	return policy, nil
}

// Session 转换为 bridge.SessionConfig
func (s StreamConfig) Session() bridge.SessionConfig {
	return bridge.SessionConfig{
		Producer: stream.ProducerConfig{
			Ticks:    s.Ticks,
			Interval: s.Interval,
			Start:    s.Start,
		},
		Latency:        s.PollLatency,
		Banner:         s.Banner,
		Priority:       s.Priority,
		InitialMessage: s.InitialMessage,
		SummaryMethod:  agent.SummaryMethod(s.SummaryMethod),
	}
}
