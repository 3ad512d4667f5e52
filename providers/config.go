package providers

import (
	"net/http"
	"time"

	"github.com/goblinos/overmind/types"
)

// Config 各后端共享的连接配置
type Config struct {
	// APIKey 认证密钥；本地后端可为空
	APIKey string `yaml:"api_key" json:"api_key"`

	// BaseURL 协议端点根地址；为空时取各后端默认值
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Model 默认模型名，请求未指定时使用
	Model string `yaml:"model" json:"model"`

	// Timeout HTTP 超时，默认 60s
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// MapHTTPError 把上游 HTTP 状态码映射为结构化错误。
// 5xx 与限流可重试，认证与参数错误不可重试。
func MapHTTPError(backend string, status int, msg string) *types.Error {
	var code types.ErrorCode
	retryable := false
	switch {
	case status == http.StatusTooManyRequests:
		code = types.ErrProviderUnavailable
		retryable = true
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = types.ErrExecution
	case status >= 500:
		code = types.ErrProviderUnavailable
		retryable = true
	default:
		code = types.ErrExecution
	}
	return types.NewErrorf(code, "%s returned status %d: %s", backend, status, msg).
		WithBackend(backend).
		WithRetryable(retryable)
}
