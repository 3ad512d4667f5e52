// Package openaicompat 实现 OpenAI 兼容的 chat completions 适配。
// OpenAI、DeepSeek、GLM 都按同一协议暴露，仅端点和默认模型不同。
package openaicompat

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

// Provider OpenAI 兼容协议的 llm.Provider 实现
type Provider struct {
	name   string
	cfg    providers.Config
	client *http.Client
	logger *zap.Logger
}

// New 创建指定后端名的 Provider；baseURL 为空时必须在 cfg 中给出
func New(name string, cfg providers.Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Provider{
		name:   name,
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("provider", name)),
	}
}

// NewOpenAI 创建 OpenAI Provider
func NewOpenAI(cfg providers.Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	return New("openai", cfg, logger)
}

// NewDeepSeek 创建 DeepSeek Provider
func NewDeepSeek(cfg providers.Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.deepseek.com"
	}
	return New("deepseek", cfg, logger)
}

// NewGLM 创建智谱 GLM Provider
func NewGLM(cfg providers.Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://open.bigmodel.cn/api/paas"
	}
	return New("glm", cfg, logger)
}

func (p *Provider) Name() string { return p.name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Completion 发起同步聊天请求
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	body := chatRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, types.NewError(types.ErrValidation, "failed to encode chat request").WithCause(err)
	}

	endpoint := fmt.Sprintf("%s/v1/chat/completions", strings.TrimRight(p.cfg.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrValidation, "failed to build request").WithCause(err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, types.NewErrorf(types.ErrProviderUnavailable, "%s request failed", p.name).
			WithBackend(p.name).WithRetryable(true).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, providers.MapHTTPError(p.name, resp.StatusCode, readErrMsg(resp.Body))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewErrorf(types.ErrExecution, "%s returned undecodable response", p.name).
			WithBackend(p.name).WithRetryable(true).WithCause(err)
	}
	if len(out.Choices) == 0 {
		return nil, types.NewErrorf(types.ErrExecution, "%s returned no choices", p.name).WithBackend(p.name)
	}

	return &llm.ChatResponse{
		Provider: p.name,
		Model:    out.Model,
		Content:  out.Choices[0].Message.Content,
		Usage: llm.ChatUsage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
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
			providers.MapHTTPError(p.name, resp.StatusCode, readErrMsg(resp.Body))
	}
	return &llm.HealthStatus{Healthy: true, Latency: latency}, nil
}

func (p *Provider) buildHeaders(req *http.Request) {
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

func readErrMsg(body io.Reader) string {
	data, _ := io.ReadAll(body)
	var errResp errorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return string(data)
}
