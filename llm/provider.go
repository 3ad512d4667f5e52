package llm

import (
	"context"
	"time"

	"github.com/goblinos/overmind/types"
)

// ChatRequest 后端无关的模型调用请求
type ChatRequest struct {
	TraceID     string            `json:"trace_id,omitempty"`
	Model       string            `json:"model"`
	Messages    []types.Message   `json:"messages"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Temperature float32           `json:"temperature,omitempty"`
	Timeout     time.Duration     `json:"timeout,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ChatUsage token 用量与成本
type ChatUsage struct {
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	TotalTokens      int     `json:"total_tokens,omitempty"`
	Cost             float64 `json:"cost,omitempty"` // 以 USD 计
}

// ChatResponse 模型调用应答
type ChatResponse struct {
	Provider  string    `json:"provider,omitempty"`
	Model     string    `json:"model"`
	Content   string    `json:"content"`
	Usage     ChatUsage `json:"usage,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// HealthStatus 表示 Provider 健康检查结果
type HealthStatus struct {
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
}

// Provider 定义了统一的 LLM 适配接口，便于路由与监控。
// 引擎从不编码任何具体后端的传输格式；宿主注入实现。
type Provider interface {
	// Completion 发起同步聊天请求，返回完整响应
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// HealthCheck 执行轻量级健康检查（用于路由探活/降级）
	HealthCheck(ctx context.Context) (*HealthStatus, error)

	// Name 返回 Provider 的唯一标识
	Name() string
}
