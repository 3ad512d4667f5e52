// MockProvider 的 LLM 提供商测试模拟实现。
//
// 支持固定响应、错误注入与调用记录场景。
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/goblinos/overmind/llm"
)

// MockProvider 是 llm.Provider 的模拟实现
type MockProvider struct {
	mu sync.RWMutex

	name     string
	response string
	err      error
	healthy  bool

	promptTokens     int
	completionTokens int

	calls          []MockProviderCall
	completionFunc func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)

	delay     time.Duration // 模拟延迟
	failAfter int           // 在第 N 次调用后失败；0 表示从不
	callCount int
}

// MockProviderCall 记录单次调用
type MockProviderCall struct {
	Request  *llm.ChatRequest
	Response *llm.ChatResponse
	Error    error
}

// NewMockProvider 创建新的 MockProvider
func NewMockProvider() *MockProvider {
	return &MockProvider{
		name:             "mock",
		response:         "Mock response",
		healthy:          true,
		promptTokens:     10,
		completionTokens: 20,
	}
}

// WithName 设置 Provider 名字
func (m *MockProvider) WithName(name string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	return m
}

// WithResponse 设置固定响应内容
func (m *MockProvider) WithResponse(response string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithError 设置注入的错误
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithFailAfter 在第 n 次调用之后开始返回错误
func (m *MockProvider) WithFailAfter(n int, err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	m.err = err
	return m
}

// WithDelay 设置每次调用的模拟延迟
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithHealthy 设置健康检查结果
func (m *MockProvider) WithHealthy(healthy bool) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = healthy
	return m
}

// WithCompletionFunc 用自定义函数完全接管 Completion
func (m *MockProvider) WithCompletionFunc(fn func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completionFunc = fn
	return m
}

// Name 返回 Provider 名字
func (m *MockProvider) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.name
}

// Completion 按配置返回固定响应或注入的错误
func (m *MockProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	m.callCount++
	count := m.callCount
	fn := m.completionFunc
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if fn != nil {
		resp, err := fn(ctx, req)
		m.record(req, resp, err)
		return resp, err
	}

	m.mu.RLock()
	err := m.err
	if m.failAfter > 0 && count <= m.failAfter {
		err = nil
	}
	resp := &llm.ChatResponse{
		Provider: m.name,
		Model:    req.Model,
		Content:  m.response,
		Usage: llm.ChatUsage{
			PromptTokens:     m.promptTokens,
			CompletionTokens: m.completionTokens,
			TotalTokens:      m.promptTokens + m.completionTokens,
		},
		CreatedAt: time.Now(),
	}
	m.mu.RUnlock()

	if err != nil {
		m.record(req, nil, err)
		return nil, err
	}
	m.record(req, resp, nil)
	return resp, nil
}

// HealthCheck 返回配置的健康状态
func (m *MockProvider) HealthCheck(_ context.Context) (*llm.HealthStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &llm.HealthStatus{Healthy: m.healthy, Latency: time.Millisecond}, nil
}

// CallCount 返回 Completion 被调用的次数
func (m *MockProvider) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callCount
}

// Calls 返回调用记录的副本
func (m *MockProvider) Calls() []MockProviderCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]MockProviderCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockProvider) record(req *llm.ChatRequest, resp *llm.ChatResponse, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockProviderCall{Request: req, Response: resp, Error: err})
}
