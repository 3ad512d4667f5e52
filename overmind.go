// Package overmind provides a top-level convenience entry point for wiring
// the orchestration engine with minimal boilerplate.
//
// Usage:
//
//	eng, err := overmind.New(overmind.Options{Providers: providerMap})
//	c, err := eng.NewCrew(crew.Config{Mode: crew.ProcessSequential})
//
// This is a thin wrapper around the router, policy, orchestrator, crew and
// memory packages; everything it builds can also be assembled by hand.
package overmind

import (
	"context"
	"time"

	"github.com/goblinos/overmind/agent"
	"github.com/goblinos/overmind/config"
	"github.com/goblinos/overmind/crew"
	"github.com/goblinos/overmind/internal/metrics"
	"github.com/goblinos/overmind/llm"
	"github.com/goblinos/overmind/llm/router"
	"github.com/goblinos/overmind/memory"
	"github.com/goblinos/overmind/orchestrator"
	"github.com/goblinos/overmind/policy"
	"go.uber.org/zap"
)

// Options 引擎装配选项
type Options struct {
	// Config 完整配置；为 nil 时取默认值
	Config *config.Config

	// Providers 已构建的模型 Provider，按后端名索引
	Providers map[string]llm.Provider

	// PolicyRegistry 策略注册表；为 nil 时跳过策略校验
	PolicyRegistry policy.Registry

	// MemoryStore 长期记忆后端；为 nil 时用内存实现
	MemoryStore memory.Store

	// Logger 为 nil 时使用 zap.NewNop()
	Logger *zap.Logger
}

// Engine 装配完成的编排引擎
type Engine struct {
	cfg         *config.Config
	routePolicy router.Policy
	router      *router.Router
	enforcer    *policy.Enforcer
	manager     *orchestrator.Manager
	memory      *memory.Tiered
	collector   *metrics.Collector
	providers   map[string]llm.Provider
	logger      *zap.Logger
}

// New 按选项装配引擎
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, nil, logger)
	}

	rt := router.New(router.DefaultCapabilityTable(), collector, logger)

	routePolicy, err := router.NewPolicy(router.Strategy(cfg.Router.Strategy), cfg.Router.FailoverEnabled)
	if err != nil {
		return nil, err
	}
	routePolicy.MonthlyCallVolume = cfg.Router.MonthlyCallVolume
	routePolicy.MediumCostThreshold = cfg.Router.MediumCostThreshold
	routePolicy.LocalSavingsBar = cfg.Router.LocalSavingsBar

	var enforcer *policy.Enforcer
	if opts.PolicyRegistry != nil {
		enforcer = policy.NewEnforcer(opts.PolicyRegistry, policy.Config{
			LocalBackend: cfg.Policy.LocalBackend,
		}, logger)
	}

	manager := orchestrator.NewManager(orchestrator.Config{
		OwnTeam:        cfg.Orchestrator.OwnTeam,
		AttemptTimeout: cfg.Orchestrator.AttemptTimeout,
	}, collector, logger)

	store := opts.MemoryStore
	if store == nil {
		store = memory.NewInMemoryStore()
	}
	mem, err := memory.NewTiered(memory.Config{
		ShortTermCapacity:     cfg.Memory.ShortTermCapacity,
		ShortTermTTL:          cfg.Memory.ShortTermTTL,
		ConsolidationInterval: cfg.Memory.ConsolidationInterval,
	}, store, collector, logger)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:         cfg,
		routePolicy: routePolicy,
		router:      rt,
		enforcer:    enforcer,
		manager:     manager,
		memory:      mem,
		collector:   collector,
		providers:   opts.Providers,
		logger:      logger,
	}, nil
}

// Router 返回装配好的路由器
func (e *Engine) Router() *router.Router { return e.router }

// Manager 返回装配好的执行管理器
func (e *Engine) Manager() *orchestrator.Manager { return e.manager }

// Memory 返回分层记忆
func (e *Engine) Memory() *memory.Tiered { return e.memory }

// NewAgent 用引擎的路由器、策略、记忆与指标装配一个 Agent
func (e *Engine) NewAgent(cfg agent.Config) (*agent.Agent, error) {
	if cfg.MaxCallRetries == 0 {
		cfg.MaxCallRetries = e.cfg.Agent.MaxCallRetries
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = e.cfg.Agent.CallTimeout
	}
	if cfg.RoutingPolicy.Strategy == "" {
		cfg.RoutingPolicy = e.routePolicy
	}
	if cfg.Memory == nil {
		cfg.Memory = e.memory
	}
	return agent.New(cfg, e.router, e.enforcer, e.providers, e.collector, e.logger)
}

// StartHealthProbes 按配置的间隔用已注入的 Provider 刷新后端可用性，
// ctx 取消时退出。
func (e *Engine) StartHealthProbes(ctx context.Context) {
	interval := e.cfg.Router.HealthCheckInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.router.ProbeHealth(ctx, e.providers)
			}
		}
	}()
}

// NewCrew 用引擎的执行管理器装配一个 Crew
func (e *Engine) NewCrew(cfg crew.Config) (*crew.Crew, error) {
	if cfg.Mode == "" {
		cfg.Mode = crew.ProcessMode(e.cfg.Crew.Mode)
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = e.cfg.Crew.Concurrency
	}
	return crew.New(cfg, e.manager, e.logger)
}
