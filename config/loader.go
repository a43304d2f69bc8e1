// =============================================================================
// 📦 MarketStream 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("marketstream.yaml").
//	    WithEnvPrefix("MARKETSTREAM").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/marketstream/agent"
	"github.com/BaSui01/marketstream/agent/conversation"
)

// DefaultEnvPrefix 默认环境变量前缀
const DefaultEnvPrefix = "MARKETSTREAM"

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 MarketStream 的完整配置结构
type Config struct {
	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Agent assistant 配置
	Agent AgentConfig `yaml:"agent" env:"AGENT"`

	// UserProxy user proxy 配置
	UserProxy UserProxyConfig `yaml:"user_proxy" env:"USER_PROXY"`

	// Stream 新闻流配置
	Stream StreamConfig `yaml:"stream" env:"STREAM"`

	// GroupChat 群聊配置
	GroupChat GroupChatConfig `yaml:"group_chat" env:"GROUP_CHAT"`

	// Metrics Prometheus 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// AgentConfig assistant 配置
type AgentConfig struct {
	// 名称
	Name string `yaml:"name" env:"NAME"`
	// 模型名称
	Model string `yaml:"model" env:"MODEL"`
	// 系统提示词
	SystemPrompt string `yaml:"system_prompt" env:"SYSTEM_PROMPT"`
	// 温度参数
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// 单次调用超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 响应缓存 seed，0 表示关闭缓存
	CacheSeed int `yaml:"cache_seed" env:"CACHE_SEED"`
	// 每千 token 价格（USD）
	PromptPricePer1K     float64 `yaml:"prompt_price_per_1k" env:"PROMPT_PRICE_PER_1K"`
	CompletionPricePer1K float64 `yaml:"completion_price_per_1k" env:"COMPLETION_PRICE_PER_1K"`
	// 请求限流，0 表示不限
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
	Burst             int     `yaml:"burst" env:"BURST"`
}

// UserProxyConfig user proxy 配置
type UserProxyConfig struct {
	// 名称
	Name string `yaml:"name" env:"NAME"`
	// 最大连续自动回复次数
	MaxConsecutiveAutoReply int `yaml:"max_consecutive_auto_reply" env:"MAX_CONSECUTIVE_AUTO_REPLY"`
	// 人工输入模式: NEVER, ALWAYS, TERMINATE
	HumanInputMode string `yaml:"human_input_mode" env:"HUMAN_INPUT_MODE"`
	// 默认自动回复，空字符串表示不回复
	DefaultAutoReply string `yaml:"default_auto_reply" env:"DEFAULT_AUTO_REPLY"`
	// 终止词，空表示不检测
	TerminationWord string `yaml:"termination_word" env:"TERMINATION_WORD"`
}

// StreamConfig 新闻流配置
type StreamConfig struct {
	// 生产者 tick 次数
	Ticks int `yaml:"ticks" env:"TICKS"`
	// 每次 tick 之后的等待
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
	// 起始新闻下标
	Start int `yaml:"start" env:"START"`
	// 消费者轮询前的模拟延迟
	PollLatency time.Duration `yaml:"poll_latency" env:"POLL_LATENCY"`
	// 新闻回复首行
	Banner string `yaml:"banner" env:"BANNER"`
	// 新闻 Provider 在回复链中的优先级
	Priority int `yaml:"priority" env:"PRIORITY"`
	// 开场消息
	InitialMessage string `yaml:"initial_message" env:"INITIAL_MESSAGE"`
	// 摘要方式: last_msg, reflection_with_llm
	SummaryMethod string `yaml:"summary_method" env:"SUMMARY_METHOD"`
}

// GroupChatConfig 群聊配置
type GroupChatConfig struct {
	// 最大轮次
	MaxRound int `yaml:"max_round" env:"MAX_ROUND"`
	// 发言人选择: round_robin, random, auto
	SpeakerSelection string `yaml:"speaker_selection" env:"SPEAKER_SELECTION"`
	// 终止词
	TerminationWord string `yaml:"termination_word" env:"TERMINATION_WORD"`
	// 开场消息
	InitialMessage string `yaml:"initial_message" env:"INITIAL_MESSAGE"`
	// assistant 系统提示词
	SystemPrompt string `yaml:"system_prompt" env:"SYSTEM_PROMPT"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Prometheus namespace
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
	// 指标导出间隔
	MetricInterval time.Duration `yaml:"metric_interval" env:"METRIC_INTERVAL"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  DefaultEnvPrefix,
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 获取环境变量值
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	// 验证 Agent 配置
	if strings.TrimSpace(c.Agent.Name) == "" {
		errs = append(errs, "agent name is required")
	}
	if c.Agent.Temperature < 0 || c.Agent.Temperature > 2 {
		errs = append(errs, "temperature must be between 0 and 2")
	}
	if c.Agent.Timeout < 0 {
		errs = append(errs, "agent timeout must not be negative")
	}
	if c.Agent.RequestsPerSecond < 0 || c.Agent.Burst < 0 {
		errs = append(errs, "agent rate limit must not be negative")
	}

	// 验证 UserProxy 配置
	if strings.TrimSpace(c.UserProxy.Name) == "" {
		errs = append(errs, "user proxy name is required")
	}
	if c.UserProxy.Name == c.Agent.Name {
		errs = append(errs, "user proxy and agent names must differ")
	}
	if c.UserProxy.MaxConsecutiveAutoReply < 0 {
		errs = append(errs, "max_consecutive_auto_reply must not be negative")
	}
	if _, err := agent.ParseHumanInputMode(c.UserProxy.HumanInputMode); err != nil {
		errs = append(errs, err.Error())
	}

	// 验证 Stream 配置
	if c.Stream.Ticks <= 0 {
		errs = append(errs, "stream ticks must be positive")
	}
	if c.Stream.Interval < 0 {
		errs = append(errs, "stream interval must not be negative")
	}
	if c.Stream.Start < 0 {
		errs = append(errs, "stream start must not be negative")
	}
	// 轮询循环本身不休眠，节奏完全来自回调延迟
	if c.Stream.PollLatency <= 0 {
		errs = append(errs, "poll latency must be positive")
	}
	switch agent.SummaryMethod(c.Stream.SummaryMethod) {
	case "", agent.SummaryLastMessage, agent.SummaryReflectionWithLLM:
	default:
		errs = append(errs, fmt.Sprintf("unknown summary method %q", c.Stream.SummaryMethod))
	}

	// 验证 GroupChat 配置
	if c.GroupChat.MaxRound <= 0 {
		errs = append(errs, "group chat max_round must be positive")
	}
	if _, err := conversation.ParseSpeakerSelection(c.GroupChat.SpeakerSelection); err != nil {
		errs = append(errs, err.Error())
	}

	// 验证 Telemetry 配置
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "sample_rate must be between 0 and 1")
	}
	if c.Telemetry.MetricInterval < 0 {
		errs = append(errs, "metric_interval must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
