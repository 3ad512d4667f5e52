// Package ollama 实现本地 Ollama 的原生 /api/chat 适配。
// 本地后端没有认证，探活走 /api/tags。
package ollama

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

const defaultBaseURL = "http://localhost:11434"

// Provider Ollama 的 llm.Provider 实现
type Provider struct {
	cfg    providers.Config
	client *http.Client
	logger *zap.Logger
}

// New 创建 Ollama Provider
func New(cfg providers.Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		// 本地推理冷启动可能加载模型
		timeout = 120 * time.Second
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("provider", "ollama")),
	}
}

func (p *Provider) Name() string { return "ollama" }

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`

	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

// Completion 发起同步聊天请求
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	body := ollamaRequest{Model: model, Stream: false}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}
	if req.Temperature > 0 {
		body.Options = map[string]any{"temperature": req.Temperature}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, types.NewError(types.ErrValidation, "failed to encode chat request").WithCause(err)
	}

	endpoint := fmt.Sprintf("%s/api/chat", strings.TrimRight(p.cfg.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrValidation, "failed to build request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, types.NewError(types.ErrProviderUnavailable, "ollama request failed").
			WithBackend("ollama").WithRetryable(true).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return nil, providers.MapHTTPError("ollama", resp.StatusCode, string(data))
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewError(types.ErrExecution, "ollama returned undecodable response").
			WithBackend("ollama").WithRetryable(true).WithCause(err)
	}

	return &llm.ChatResponse{
		Provider: "ollama",
		Model:    out.Model,
		Content:  out.Message.Content,
		Usage: llm.ChatUsage{
			PromptTokens:     out.PromptEvalCount,
			CompletionTokens: out.EvalCount,
			TotalTokens:      out.PromptEvalCount + out.EvalCount,
		},
		CreatedAt: time.Now(),
	}, nil
}

// HealthCheck 用 /api/tags 做轻量探活
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	endpoint := fmt.Sprintf("%s/api/tags", strings.TrimRight(p.cfg.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &llm.HealthStatus{Healthy: false}, err
	}

	resp, err := p.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return &llm.HealthStatus{Healthy: false, Latency: latency},
			providers.MapHTTPError("ollama", resp.StatusCode, string(data))
	}
	return &llm.HealthStatus{Healthy: true, Latency: latency}, nil
}
