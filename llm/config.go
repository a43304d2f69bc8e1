package llm

import "time"

// Config describes which model an agent talks to and how.
type Config struct {
	Model       string        `json:"model" yaml:"model"`
	Temperature float32       `json:"temperature" yaml:"temperature"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
	// CacheSeed 非零时启用响应缓存，不同 seed 之间互不命中
	CacheSeed int `json:"cache_seed" yaml:"cache_seed"`
	// 每千 token 价格（USD），Provider 未给出 Cost 时用于估算
	PromptPricePer1K     float64 `json:"prompt_price_per_1k" yaml:"prompt_price_per_1k"`
	CompletionPricePer1K float64 `json:"completion_price_per_1k" yaml:"completion_price_per_1k"`
	// RequestsPerSecond 限制发往 Provider 的请求速率，0 表示不限流；缓存命中不受限
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `json:"burst" yaml:"burst"`
}

// DefaultConfig returns the assistant defaults.
func DefaultConfig() Config {
	return Config{
		Model:       "gpt-4",
		Temperature: 0,
		Timeout:     600 * time.Second,
		CacheSeed:   41,
	}
}

// Cost estimates the USD cost of a call from token counts.
func (c Config) Cost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)/1000*c.PromptPricePer1K + float64(completionTokens)/1000*c.CompletionPricePer1K
}
