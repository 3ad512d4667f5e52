// Package anthropic 实现 Anthropic Messages 协议的适配。
// 与 OpenAI 兼容协议的差异：认证用 x-api-key 请求头，
// system 消息单独传递，max_tokens 是必填字段。
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goblinos/overmind/llm"
	"github.com/goblinos/overmind/providers"
	"github.com/goblinos/overmind/types"
	"go.uber.org/zap"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultModel     = "claude-3-5-haiku"
	defaultMaxTokens = 4096
	apiVersion       = "2023-06-01"
)

// Provider Anthropic 的 llm.Provider 实现
type Provider struct {
	cfg    providers.Config
	client *http.Client
	logger *zap.Logger
}

// New 创建 Anthropic Provider
func New(cfg providers.Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		// Anthropic 响应可能较慢
		timeout = 60 * time.Second
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("provider", "anthropic")),
	}
}

func (p *Provider) Name() string { return "anthropic" }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float32            `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Completion 发起同步聊天请求。
// system 角色的消息提取到独立的 system 字段。
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	if model == "" {
		model = defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		// max_tokens 必填
		maxTokens = defaultMaxTokens
	}

	body := anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}
	for _, m := range req.Messages {
		if m.Role == types.RoleSystem {
			body.System = m.Content
			continue
		}
		body.Messages = append(body.Messages, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, types.NewError(types.ErrValidation, "failed to encode chat request").WithCause(err)
	}

	endpoint := fmt.Sprintf("%s/v1/messages", strings.TrimRight(p.cfg.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrValidation, "failed to build request").WithCause(err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, types.NewError(types.ErrProviderUnavailable, "anthropic request failed").
			WithBackend("anthropic").WithRetryable(true).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, providers.MapHTTPError("anthropic", resp.StatusCode, readErrMsg(resp.Body))
	}

	var out anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewError(types.ErrExecution, "anthropic returned undecodable response").
			WithBackend("anthropic").WithRetryable(true).WithCause(err)
	}

	var content string
	for _, block := range out.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &llm.ChatResponse{
		Provider: "anthropic",
		Model:    out.Model,
		Content:  content,
		Usage: llm.ChatUsage{
			PromptTokens:     out.Usage.InputTokens,
			CompletionTokens: out.Usage.OutputTokens,
			TotalTokens:      out.Usage.InputTokens + out.Usage.OutputTokens,
		},
		CreatedAt: time.Now(),
	}, nil
}

// HealthCheck 用模型列表端点做轻量探活
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	endpoint := fmt.Sprintf("%s/v1/models", strings.TrimRight(p.cfg.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &llm.HealthStatus{Healthy: false}, err
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &llm.HealthStatus{Healthy: false, Latency: latency},
			providers.MapHTTPError("anthropic", resp.StatusCode, readErrMsg(resp.Body))
	}
	return &llm.HealthStatus{Healthy: true, Latency: latency}, nil
}

func (p *Provider) buildHeaders(req *http.Request) {
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

func readErrMsg(body io.Reader) string {
	data, _ := io.ReadAll(body)
	var errResp anthropicError
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
	}
	return string(data)
}
