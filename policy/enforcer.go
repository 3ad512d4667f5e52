package policy

import (
	"strings"
	"time"

	"github.com/goblinos/overmind/llm/router"
	"github.com/goblinos/overmind/types"
	"go.uber.org/zap"
)

// Brains 一个 (team, persona) 的准入清单，顺序即替换优先级
type Brains struct {
	LocalModels []string `json:"local_models" yaml:"local_models"`
	Upstreams   []string `json:"upstreams" yaml:"upstreams"`
}

// Registry 策略注册表（外部协作者）。引擎只做查表。
type Registry interface {
	// AllowedBrains 返回 (team, persona) 的准入清单；不存在时 ok 为 false
	AllowedBrains(team, persona string) (Brains, bool)
}

// StaticRegistry 内存注册表实现，key 为 "team/persona"
type StaticRegistry map[string]Brains

// AllowedBrains 实现 Registry
func (r StaticRegistry) AllowedBrains(team, persona string) (Brains, bool) {
	b, ok := r[team+"/"+persona]
	return b, ok
}

// Verdict 校验结果
type Verdict struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Enforcer 校验路由决策并在违规时尝试替换
type Enforcer struct {
	registry     Registry
	upstreams    map[string]string // 上游标识 -> 具体后端
	localBackend string
	logger       *zap.Logger
}

// Config Enforcer 配置
type Config struct {
	// Upstreams 上游路由标识到具体后端的映射
	Upstreams map[string]string
	// LocalBackend 本地后端标识，默认 ollama
	LocalBackend string
}

// NewEnforcer 创建策略执行器
func NewEnforcer(registry Registry, cfg Config, logger *zap.Logger) *Enforcer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LocalBackend == "" {
		cfg.LocalBackend = router.BackendOllama
	}
	if cfg.Upstreams == nil {
		cfg.Upstreams = map[string]string{
			router.BackendOpenAI:    router.BackendOpenAI,
			router.BackendAnthropic: router.BackendAnthropic,
			router.BackendDeepSeek:  router.BackendDeepSeek,
			router.BackendGLM:       router.BackendGLM,
		}
	}
	return &Enforcer{
		registry:     registry,
		upstreams:    cfg.Upstreams,
		localBackend: cfg.LocalBackend,
		logger:       logger.With(zap.String("component", "policy_enforcer")),
	}
}

// Validate 校验 (后端, 模型) 是否在 (team, persona) 的准入清单内
func (e *Enforcer) Validate(team, persona, backend, model string) Verdict {
	brains, ok := e.registry.AllowedBrains(team, persona)
	if !ok {
		return Verdict{Valid: false, Reason: "no policy entry for " + team + "/" + persona}
	}

	if backend == e.localBackend {
		for _, m := range brains.LocalModels {
			if strings.EqualFold(m, model) {
				return Verdict{Valid: true}
			}
		}
		return Verdict{Valid: false, Reason: "local model " + model + " not allowed"}
	}

	for _, id := range brains.Upstreams {
		if e.upstreams[id] == backend {
			return Verdict{Valid: true}
		}
	}
	return Verdict{Valid: false, Reason: "backend " + backend + " not allowed"}
}

// AllowedBrains 暴露准入清单，供替换逻辑与调用方检视
func (e *Enforcer) AllowedBrains(team, persona string) (Brains, bool) {
	return e.registry.AllowedBrains(team, persona)
}

// Enforce 校验决策；违规时按固定顺序替换：
// 先允许的本地模型（本地后端可用时），再允许的上游后端。
// 无可行替换时返回 POLICY_VIOLATION。
func (e *Enforcer) Enforce(decision *router.Decision, team, persona string, localAvailable bool) (*router.Decision, error) {
	verdict := e.Validate(team, persona, decision.SelectedBackend, decision.SelectedModel)
	if verdict.Valid {
		return decision, nil
	}

	brains, ok := e.registry.AllowedBrains(team, persona)
	if !ok {
		return nil, types.NewErrorf(types.ErrPolicyViolation,
			"no policy entry for %s/%s", team, persona)
	}

	e.logger.Warn("route decision violates policy, substituting",
		zap.String("team", team),
		zap.String("persona", persona),
		zap.String("backend", decision.SelectedBackend),
		zap.String("model", decision.SelectedModel),
		zap.String("reason", verdict.Reason))

	if localAvailable {
		for _, m := range brains.LocalModels {
			if v := e.Validate(team, persona, e.localBackend, m); v.Valid {
				return substituted(decision, e.localBackend, m, "policy substitution: local model"), nil
			}
		}
	}

	for _, id := range brains.Upstreams {
		backend, ok := e.upstreams[id]
		if !ok {
			continue
		}
		if v := e.Validate(team, persona, backend, decision.SelectedModel); v.Valid {
			return substituted(decision, backend, decision.SelectedModel, "policy substitution: upstream "+id), nil
		}
	}

	return nil, types.NewErrorf(types.ErrPolicyViolation,
		"no compliant substitution for %s/%s (backend %s, model %s)",
		team, persona, decision.SelectedBackend, decision.SelectedModel)
}

func substituted(base *router.Decision, backend, model, reason string) *router.Decision {
	return &router.Decision{
		SelectedBackend:  backend,
		SelectedModel:    model,
		Reason:           reason,
		EstimatedCost:    base.EstimatedCost,
		EstimatedLatency: base.EstimatedLatency,
		Complexity:       base.Complexity,
		Timestamp:        time.Now(),
	}
}
