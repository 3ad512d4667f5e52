package crew

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/goblinos/overmind/agent"
	"github.com/goblinos/overmind/orchestrator"
	"github.com/goblinos/overmind/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProcessMode 任务处理方式
type ProcessMode string

const (
	ProcessSequential   ProcessMode = "sequential"
	ProcessParallel     ProcessMode = "parallel"
	ProcessHierarchical ProcessMode = "hierarchical"
)

// Config Crew 配置
type Config struct {
	Name string
	Mode ProcessMode
	// Concurrency parallel 模式的批大小，默认 2
	Concurrency int
}

// Crew 拥有一组 Agent 与一个任务 DAG
type Crew struct {
	id          string
	name        string
	mode        ProcessMode
	concurrency int

	agents    map[string]*agent.Agent
	tasks     map[string]*types.Task
	taskOrder []string // 注册顺序，同优先级时的稳定次序

	manager *orchestrator.Manager
	logger  *zap.Logger
	mu      sync.Mutex
}

// New 创建 Crew
func New(cfg Config, manager *orchestrator.Manager, logger *zap.Logger) (*Crew, error) {
	switch cfg.Mode {
	case ProcessSequential, ProcessParallel, ProcessHierarchical:
	default:
		return nil, types.NewErrorf(types.ErrValidation, "unknown process mode %q", cfg.Mode)
	}
	if manager == nil {
		return nil, types.NewError(types.ErrValidation, "crew requires an execution manager")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crew{
		id:          uuid.New().String(),
		name:        cfg.Name,
		mode:        cfg.Mode,
		concurrency: cfg.Concurrency,
		agents:      make(map[string]*agent.Agent),
		tasks:       make(map[string]*types.Task),
		manager:     manager,
		logger:      logger.With(zap.String("component", "crew"), zap.String("crew", cfg.Name)),
	}, nil
}

// ID 返回 Crew 标识
func (c *Crew) ID() string { return c.id }

// AddAgent 注册一个 Agent；重复 id 返回错误
func (c *Crew) AddAgent(a *agent.Agent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.agents[a.ID()]; exists {
		return types.NewErrorf(types.ErrValidation, "agent %s already registered", a.ID())
	}
	c.agents[a.ID()] = a
	c.logger.Info("agent registered", zap.String("agent", a.Name()), zap.String("role", string(a.Role())))
	return nil
}

// AddTask 注册一个任务；校验失败或重复 id 返回错误
func (c *Crew) AddTask(task *types.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tasks[task.ID]; exists {
		return types.NewErrorf(types.ErrValidation, "task %s already registered", task.ID)
	}
	c.tasks[task.ID] = task
	c.taskOrder = append(c.taskOrder, task.ID)
	return nil
}

// Run 按处理模式执行全部任务，返回任务 id 到结果内容的映射
func (c *Crew) Run(ctx context.Context) (map[string]string, error) {
	c.logger.Info("crew run started",
		zap.String("mode", string(c.mode)),
		zap.Int("tasks", len(c.tasks)),
		zap.Int("agents", len(c.agents)))

	switch c.mode {
	case ProcessParallel:
		return c.runParallel(ctx)
	case ProcessHierarchical:
		return c.runHierarchical(ctx)
	default:
		return c.runSequential(ctx)
	}
}

// sortedByPriority 优先级降序；同级按注册顺序
func (c *Crew) sortedByPriority() []*types.Task {
	tasks := make([]*types.Task, 0, len(c.taskOrder))
	for _, id := range c.taskOrder {
		tasks = append(tasks, c.tasks[id])
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Priority > tasks[j].Priority
	})
	return tasks
}

func (c *Crew) depCompleted(id string) bool {
	dep, ok := c.tasks[id]
	return ok && dep.State == types.TaskCompleted
}

// runSequential 优先级降序逐个执行。依赖校验在任何执行器启动之前完成：
// 在既定顺序下无法满足依赖的任务让整次运行失败。
func (c *Crew) runSequential(ctx context.Context) (map[string]string, error) {
	ordered := c.sortedByPriority()

	// 预检：按执行顺序模拟完成集合
	done := make(map[string]bool, len(ordered))
	for _, task := range ordered {
		for _, dep := range task.Dependencies {
			if !done[dep] {
				return nil, types.NewErrorf(types.ErrDependencyUnmet,
					"task %s depends on %s which is not completed in run order", task.ID, dep)
			}
		}
		done[task.ID] = true
	}

	results := make(map[string]string, len(ordered))
	for _, task := range ordered {
		if task.Terminal() {
			results[task.ID] = task.Result
			continue
		}
		result, err := c.executeTask(ctx, task)
		if err != nil {
			return results, err
		}
		results[task.ID] = result.Content
		if result.Status == types.StatusFailed {
			return results, types.NewErrorf(types.ErrExecution,
				"task %s failed: %s", task.ID, result.Error)
		}
	}
	return results, nil
}

// runParallel 无依赖的待执行任务按并发上限分批，批内 fan-out/await-all
func (c *Crew) runParallel(ctx context.Context) (map[string]string, error) {
	var runnable []*types.Task
	for _, id := range c.taskOrder {
		task := c.tasks[id]
		if task.Terminal() || len(task.Dependencies) > 0 {
			continue
		}
		runnable = append(runnable, task)
	}

	results := make(map[string]string, len(runnable))
	var resultsMu sync.Mutex

	for start := 0; start < len(runnable); start += c.concurrency {
		end := start + c.concurrency
		if end > len(runnable) {
			end = len(runnable)
		}
		batch := runnable[start:end]

		g, gctx := errgroup.WithContext(ctx)
		for _, task := range batch {
			task := task
			g.Go(func() error {
				result, err := c.executeTask(gctx, task)
				if err != nil {
					return err
				}
				resultsMu.Lock()
				results[task.ID] = result.Content
				resultsMu.Unlock()
				if result.Status == types.StatusFailed {
					return types.NewErrorf(types.ErrExecution,
						"task %s failed: %s", task.ID, result.Error)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			// 本批失败中止后续批次；已完成批次的结果保留
			return results, err
		}
		c.logger.Debug("batch completed", zap.Int("size", len(batch)))
	}
	return results, nil
}

// executeTask 驱动任务状态机并经执行管理器运行
func (c *Crew) executeTask(ctx context.Context, task *types.Task) (*types.ExecutionResult, error) {
	worker, err := c.resolveAgent(task)
	if err != nil {
		return nil, err
	}
	task.AssignedTo = worker.ID()

	if err := task.Start(c.depCompleted); err != nil {
		return nil, err
	}

	result, err := c.manager.ExecuteWithRecovery(ctx, task, func(ctx context.Context, t *types.Task) (*types.ExecutionResult, error) {
		return worker.Execute(ctx, t)
	})
	if err != nil {
		_ = task.Fail(err.Error())
		return nil, err
	}

	if result.Status == types.StatusCompleted {
		_ = task.Complete(result.Content)
	} else {
		_ = task.Fail(result.Error)
	}
	return result, nil
}

// resolveAgent 显式指派优先，否则按任务类型匹配最佳空闲 Agent
func (c *Crew) resolveAgent(task *types.Task) (*agent.Agent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if task.AssignedTo != "" {
		if a, ok := c.agents[task.AssignedTo]; ok {
			return a, nil
		}
		return nil, types.NewErrorf(types.ErrAgentNotFound,
			"task %s assigned to unknown agent %s", task.ID, task.AssignedTo)
	}
	if a := c.findBestAgent(task); a != nil {
		return a, nil
	}
	return nil, types.NewErrorf(types.ErrAgentNotFound, "no ready agent for task %s", task.ID)
}

// typeRoles 任务类型关键词到偏好角色的固定映射
var typeRoles = []struct {
	keyword string
	role    agent.Role
}{
	{"research", agent.RoleResearcher},
	{"analysis", agent.RoleAnalyst},
	{"code", agent.RoleCoder},
	{"writing", agent.RoleWriter},
	{"review", agent.RoleReviewer},
	{"environment", agent.RoleEnvironmentEngineer},
	{"bootstrap", agent.RoleEnvironmentEngineer},
	{"hygiene", agent.RoleEnvironmentEngineer},
	{"config", agent.RoleEnvironmentEngineer},
}

// findBestAgent 调用方必须持有 c.mu
func (c *Crew) findBestAgent(task *types.Task) *agent.Agent {
	taskType := strings.ToLower(task.Type)
	for _, tr := range typeRoles {
		if !strings.Contains(taskType, tr.keyword) {
			continue
		}
		for _, id := range c.agentOrder() {
			a := c.agents[id]
			if a.Role() == tr.role && ready(a) {
				return a
			}
		}
	}
	for _, id := range c.agentOrder() {
		if a := c.agents[id]; ready(a) {
			return a
		}
	}
	return nil
}

func (c *Crew) agentOrder() []string {
	ids := make([]string, 0, len(c.agents))
	for id := range c.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func ready(a *agent.Agent) bool {
	s := a.State()
	return s == agent.StateIdle || s == agent.StateCompleted
}
