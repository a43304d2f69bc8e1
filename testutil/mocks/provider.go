// MockProvider 的 LLM 提供商测试模拟实现。
//
// 支持固定响应、按序响应与错误注入场景。
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BaSui01/marketstream/llm"
)

// --- MockProvider 结构 ---

// MockProvider 是 LLM Provider 的模拟实现
type MockProvider struct {
	mu sync.Mutex

	// 响应配置：按序消费，耗尽后重复最后一条
	responses []string
	err       error

	// Token 使用统计
	promptTokens     int
	completionTokens int
	cost             float64

	// 调用记录
	calls          []MockProviderCall
	completionFunc func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)

	// 行为控制
	delay     time.Duration
	failAfter int // 在第 N 次调用后失败，0 表示不启用
}

// MockProviderCall 记录单次调用
type MockProviderCall struct {
	Request  *llm.ChatRequest
	Response *llm.ChatResponse
	Error    error
}

// --- 构造函数和 Builder 方法 ---

// NewMockProvider 创建新的 MockProvider
func NewMockProvider() *MockProvider {
	return &MockProvider{
		responses:        []string{"Mock response"},
		promptTokens:     10,
		completionTokens: 20,
	}
}

// WithResponse 设置固定响应内容
func (m *MockProvider) WithResponse(response string) *MockProvider {
	return m.WithResponses(response)
}

// WithResponses 设置按序返回的响应内容
func (m *MockProvider) WithResponses(responses ...string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append([]string(nil), responses...)
	return m
}

// WithError 设置返回错误
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithTokens 设置每次调用报告的 token 数
func (m *MockProvider) WithTokens(prompt, completion int) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promptTokens = prompt
	m.completionTokens = completion
	return m
}

// WithCost 设置每次调用报告的费用
func (m *MockProvider) WithCost(cost float64) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cost = cost
	return m
}

// WithDelay 设置模拟延迟
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithFailAfter 在第 n 次调用之后返回错误
func (m *MockProvider) WithFailAfter(n int, err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	m.err = err
	return m
}

// WithCompletionFunc 设置自定义 Completion 函数
func (m *MockProvider) WithCompletionFunc(fn func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completionFunc = fn
	return m
}

// --- Provider 接口实现 ---

// Name 返回 Provider 名称
func (m *MockProvider) Name() string {
	return "mock"
}

// Completion 实现 llm.Provider
func (m *MockProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	delay := m.delay
	fn := m.completionFunc
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			m.recordCall(req, nil, ctx.Err())
			return nil, ctx.Err()
		}
	}

	if fn != nil {
		resp, err := fn(ctx, req)
		m.recordCall(req, resp, err)
		return resp, err
	}

	m.mu.Lock()
	callIndex := len(m.calls)
	shouldFail := m.err != nil && (m.failAfter == 0 || callIndex >= m.failAfter)
	err := m.err
	var content string
	if len(m.responses) > 0 {
		idx := callIndex
		if idx >= len(m.responses) {
			idx = len(m.responses) - 1
		}
		content = m.responses[idx]
	}
	usage := llm.ChatUsage{
		PromptTokens:     m.promptTokens,
		CompletionTokens: m.completionTokens,
		TotalTokens:      m.promptTokens + m.completionTokens,
		Cost:             m.cost,
	}
	m.mu.Unlock()

	if shouldFail {
		m.recordCall(req, nil, err)
		return nil, err
	}

	resp := &llm.ChatResponse{
		ID:           uuid.NewString(),
		Provider:     m.Name(),
		Model:        req.Model,
		Content:      content,
		FinishReason: "stop",
		Usage:        usage,
		CreatedAt:    time.Now(),
	}
	m.recordCall(req, resp, nil)
	return resp, nil
}

// --- 调用记录 ---

func (m *MockProvider) recordCall(req *llm.ChatRequest, resp *llm.ChatResponse, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockProviderCall{Request: req, Response: resp, Error: err})
}

// Calls 返回调用记录副本
func (m *MockProvider) Calls() []MockProviderCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockProviderCall(nil), m.calls...)
}

// CallCount 返回调用次数
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastRequest 返回最后一次请求
func (m *MockProvider) LastRequest() *llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1].Request
}

// Reset 清空调用记录
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
