package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goblinos/overmind/internal/metrics"
	"github.com/goblinos/overmind/llm"
	"github.com/goblinos/overmind/llm/router"
	"github.com/goblinos/overmind/memory"
	"github.com/goblinos/overmind/policy"
	"github.com/goblinos/overmind/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Role 固定的人格角色集合
type Role string

const (
	RoleResearcher          Role = "researcher"
	RoleAnalyst             Role = "analyst"
	RoleCoder               Role = "coder"
	RoleWriter              Role = "writer"
	RoleReviewer            Role = "reviewer"
	RoleEnvironmentEngineer Role = "environment_engineer"
	RoleOrchestrator        Role = "orchestrator"
)

// validRoles 穷举角色表，避免运行时反射
var validRoles = map[Role]bool{
	RoleResearcher:          true,
	RoleAnalyst:             true,
	RoleCoder:               true,
	RoleWriter:              true,
	RoleReviewer:            true,
	RoleEnvironmentEngineer: true,
	RoleOrchestrator:        true,
}

// State Agent 状态
type State string

const (
	StateIdle      State = "idle"
	StateThinking  State = "thinking"
	StateExecuting State = "executing"
	StateWaiting   State = "waiting"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// maxHistoryTurns 前导之外保留的最近消息条数
const maxHistoryTurns = 10

// maxRecallHits 每个任务提示词附带的记忆检索条数上限
const maxRecallHits = 3

// ContextSource 为任务提示词提供相关记忆检索
type ContextSource interface {
	Search(ctx context.Context, query string, limit int) ([]memory.SearchResult, error)
}

// Config Agent 配置
type Config struct {
	ID       string
	Name     string
	Role     Role
	Team     string // 策略作用域；为空则跳过策略校验
	Persona  string // 为空时取角色名
	Preamble string // 为空时按角色取内置前导
	// MaxCallRetries 模型调用的有界重试次数，默认 2
	MaxCallRetries int
	// CallTimeout 单次模型调用超时，默认 30s
	CallTimeout time.Duration
	// RoutingPolicy 路由策略配置
	RoutingPolicy router.Policy
	// Memory 为 nil 时提示词不附带记忆
	Memory ContextSource
}

// Agent 绑定人格的执行单元。由创建它的 Crew 独占。
type Agent struct {
	id      string
	name    string
	role    Role
	team    string
	persona string
	cfg     Config

	state   State
	history []types.Message
	mu      sync.Mutex

	router    *router.Router
	enforcer  *policy.Enforcer
	providers map[string]llm.Provider
	collector *metrics.Collector
	logger    *zap.Logger
}

// New 创建 Agent；角色非法或缺少路由器时返回错误
func New(cfg Config, rt *router.Router, enforcer *policy.Enforcer, providers map[string]llm.Provider, collector *metrics.Collector, logger *zap.Logger) (*Agent, error) {
	if !validRoles[cfg.Role] {
		return nil, types.NewErrorf(types.ErrValidation, "unknown agent role %q", cfg.Role)
	}
	if rt == nil {
		return nil, types.NewError(types.ErrValidation, "agent requires a router")
	}
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	if cfg.Name == "" {
		short := cfg.ID
		if len(short) > 8 {
			short = short[:8]
		}
		cfg.Name = string(cfg.Role) + "-" + short
	}
	if cfg.Persona == "" {
		cfg.Persona = string(cfg.Role)
	}
	if cfg.Preamble == "" {
		cfg.Preamble = rolePreamble(cfg.Role)
	}
	if cfg.MaxCallRetries <= 0 {
		cfg.MaxCallRetries = 2
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Agent{
		id:        cfg.ID,
		name:      cfg.Name,
		role:      cfg.Role,
		team:      cfg.Team,
		persona:   cfg.Persona,
		cfg:       cfg,
		state:     StateIdle,
		history:   []types.Message{types.NewSystemMessage(cfg.Preamble)},
		router:    rt,
		enforcer:  enforcer,
		providers: providers,
		collector: collector,
		logger:    logger.With(zap.String("component", "agent"), zap.String("agent", cfg.Name)),
	}, nil
}

// ID 返回唯一标识
func (a *Agent) ID() string { return a.id }

// Name 返回展示名
func (a *Agent) Name() string { return a.name }

// Role 返回人格角色
func (a *Agent) Role() Role { return a.role }

// State 返回当前状态
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// History 返回会话历史副本
func (a *Agent) History() []types.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]types.Message(nil), a.history...)
}

// Reset 回到 idle，历史截断到人格前导
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transition(StateIdle)
	a.history = a.history[:1]
}

// Execute 端到端执行一个任务：路由、策略校验、模型调用、历史维护。
// 失败时进入 failed 状态并返回携带 Agent 标识的错误。
func (a *Agent) Execute(ctx context.Context, task *types.Task) (*types.ExecutionResult, error) {
	a.mu.Lock()
	// completed 的 Agent 可以直接接下一个任务；failed 必须先 Reset
	if a.state != StateIdle && a.state != StateCompleted {
		state := a.state
		a.mu.Unlock()
		return nil, types.NewErrorf(types.ErrAgentBusy, "agent %s is %s, not ready", a.name, state)
	}
	a.transition(StateThinking)
	a.mu.Unlock()

	start := time.Now()
	prompt := renderTaskPrompt(task) + a.recallContext(ctx, task)

	content, err := a.invoke(ctx, task, prompt)
	if err != nil {
		a.mu.Lock()
		a.transition(StateFailed)
		a.mu.Unlock()
		code := types.CodeOf(err)
		if code == "" {
			code = types.ErrExecution
		}
		return nil, types.NewErrorf(code, "agent %s: execution failed", a.name).WithCause(err)
	}

	a.mu.Lock()
	a.history = append(a.history, types.NewUserMessage(prompt), types.NewAssistantMessage(content))
	a.truncateHistory()
	a.transition(StateCompleted)
	a.mu.Unlock()

	return &types.ExecutionResult{
		TaskID:   task.ID,
		Status:   types.StatusCompleted,
		Content:  content,
		Duration: time.Since(start),
	}, nil
}

// invoke 带有界重试的模型调用；每次尝试产出新的路由决策
func (a *Agent) invoke(ctx context.Context, task *types.Task, prompt string) (string, error) {
	a.mu.Lock()
	a.transition(StateExecuting)
	messages := append([]types.Message(nil), a.history...)
	a.mu.Unlock()
	messages = append(messages, types.NewUserMessage(prompt))

	var lastErr error
	for attempt := 1; attempt <= a.cfg.MaxCallRetries; attempt++ {
		decision, err := a.router.Route(ctx, &router.Request{
			Prompt:  task.Prompt,
			Attempt: attempt,
			Policy:  a.cfg.RoutingPolicy,
		})
		if err != nil {
			// 无可用后端是致命的，直接上抛
			return "", err
		}

		if a.enforcer != nil && a.team != "" {
			decision, err = a.enforcer.Enforce(decision, a.team, a.persona, a.router.Available(router.BackendOllama))
			if err != nil {
				return "", err
			}
		}

		provider, ok := a.providers[decision.SelectedBackend]
		if !ok || provider == nil {
			lastErr = types.NewErrorf(types.ErrProviderUnavailable,
				"no client for backend %s", decision.SelectedBackend).WithBackend(decision.SelectedBackend)
			a.router.SetAvailable(decision.SelectedBackend, false)
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, a.cfg.CallTimeout)
		resp, err := provider.Completion(callCtx, &llm.ChatRequest{
			Model:    decision.SelectedModel,
			Messages: messages,
			Timeout:  a.cfg.CallTimeout,
		})
		cancel()
		if err != nil {
			lastErr = types.NewErrorf(types.ErrExecution, "backend %s call failed", decision.SelectedBackend).
				WithBackend(decision.SelectedBackend).WithCause(err)
			a.logger.Warn("model call failed",
				zap.Int("attempt", attempt),
				zap.String("backend", decision.SelectedBackend),
				zap.Error(err))
			continue
		}
		return resp.Content, nil
	}
	return "", lastErr
}

// recallContext 按任务提示词检索相关记忆，渲染为提示词附加段。
// 检索失败只降级为空段，不阻塞执行。
func (a *Agent) recallContext(ctx context.Context, task *types.Task) string {
	if a.cfg.Memory == nil {
		return ""
	}
	hits, err := a.cfg.Memory.Search(ctx, task.Prompt, maxRecallHits)
	if err != nil {
		a.logger.Warn("memory recall failed", zap.Error(err))
		return ""
	}
	if len(hits) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n### Relevant memory\n\n")
	for _, h := range hits {
		fmt.Fprintf(&sb, "- (%s) %s\n", h.Tier, h.Content)
	}
	return sb.String()
}

// transition 调用方必须持有 a.mu
func (a *Agent) transition(to State) {
	if a.collector != nil && a.state != to {
		a.collector.RecordAgentTransition(string(a.state), string(to))
	}
	a.state = to
}

// truncateHistory 调用方必须持有 a.mu；保留前导 + 最近 maxHistoryTurns 条
func (a *Agent) truncateHistory() {
	if len(a.history) <= 1+maxHistoryTurns {
		return
	}
	tail := a.history[len(a.history)-maxHistoryTurns:]
	a.history = append(a.history[:1:1], tail...)
}

// renderTaskPrompt 渲染结构化任务提示词
func renderTaskPrompt(task *types.Task) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Task %s\n\n", task.ID)
	fmt.Fprintf(&sb, "Type: %s\nPriority: %d\n\n", task.Type, task.Priority)
	sb.WriteString("### Instructions\n\n")
	sb.WriteString(task.Prompt)
	sb.WriteString("\n")

	if len(task.Context) > 0 {
		sb.WriteString("\n### Context\n\n")
		keys := make([]string, 0, len(task.Context))
		for k := range task.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "- %s: %v\n", k, task.Context[k])
		}
	}
	if len(task.Dependencies) > 0 {
		fmt.Fprintf(&sb, "\nDepends on: %s\n", strings.Join(task.Dependencies, ", "))
	}
	return sb.String()
}

func rolePreamble(role Role) string {
	switch role {
	case RoleResearcher:
		return "You are a research specialist. Gather facts and cite sources."
	case RoleAnalyst:
		return "You are an analyst. Break problems down and compare options rigorously."
	case RoleCoder:
		return "You are a software engineer. Produce working, tested code."
	case RoleWriter:
		return "You are a technical writer. Produce clear, structured prose."
	case RoleReviewer:
		return "You are a reviewer. Critique work for correctness and completeness."
	case RoleEnvironmentEngineer:
		return "You are an environment engineer. Keep builds, configs, and tooling healthy."
	case RoleOrchestrator:
		return "You are an orchestrator. Decompose work and delegate to the right specialists."
	default:
		return "You are a helpful assistant."
	}
}
