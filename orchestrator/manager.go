package orchestrator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/goblinos/overmind/internal/metrics"
	"github.com/goblinos/overmind/types"
	"go.uber.org/zap"
)

// Executor 由调用方提供的任务执行函数。
// 超时后底层调用被放弃而非取消：引擎不向执行器传播取消信号。
type Executor func(ctx context.Context, task *types.Task) (*types.ExecutionResult, error)

// ExecContext 单个任务的执行上下文
type ExecContext struct {
	Task           *types.Task
	Classification Classification
	Attempt        int
	MaxAttempts    int
	AttemptTimeout time.Duration
	StartedAt      time.Time
}

// ExecMetrics 任务的聚合执行指标
type ExecMetrics struct {
	Attempts      int           `json:"attempts"`
	TotalDuration time.Duration `json:"total_duration"`
	SuccessRate   float64       `json:"success_rate"`
}

// Config 执行管理器配置
type Config struct {
	// OwnTeam 分类器的兜底团队
	OwnTeam string
	// Patterns 问题检测模式；nil 使用内置集
	Patterns []IssuePattern
	// Runner 自动修复命令执行器；nil 表示无自动修复能力
	Runner RemediationRunner
	// AttemptTimeout 覆盖单次尝试超时；0 使用分类的预估时长
	AttemptTimeout time.Duration
}

// Manager 带恢复的任务执行管理器
type Manager struct {
	classifier *Classifier
	patterns   []IssuePattern
	runner     RemediationRunner
	timeout    time.Duration
	collector  *metrics.Collector

	history   map[string][]*types.ExecutionResult
	historyMu sync.RWMutex

	logger *zap.Logger
}

// NewManager 创建执行管理器
func NewManager(cfg Config, collector *metrics.Collector, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	patterns := cfg.Patterns
	if patterns == nil {
		patterns = DefaultIssuePatterns()
	}
	return &Manager{
		classifier: NewClassifier(cfg.OwnTeam),
		patterns:   patterns,
		runner:     cfg.Runner,
		timeout:    cfg.AttemptTimeout,
		collector:  collector,
		history:    make(map[string][]*types.ExecutionResult),
		logger:     logger.With(zap.String("component", "execution_manager")),
	}
}

// Classifier 返回管理器内部的分类器
func (m *Manager) Classifier() *Classifier {
	return m.classifier
}

// History 返回任务的执行历史副本
func (m *Manager) History(taskID string) []*types.ExecutionResult {
	m.historyMu.RLock()
	defer m.historyMu.RUnlock()
	return append([]*types.ExecutionResult(nil), m.history[taskID]...)
}

// Metrics 返回任务的聚合执行指标
func (m *Manager) Metrics(taskID string) ExecMetrics {
	m.historyMu.RLock()
	defer m.historyMu.RUnlock()

	attempts := m.history[taskID]
	em := ExecMetrics{Attempts: len(attempts)}
	if len(attempts) == 0 {
		return em
	}
	completed := 0
	for _, r := range attempts {
		em.TotalDuration += r.Duration
		if r.Status == types.StatusCompleted {
			completed++
		}
	}
	em.SuccessRate = float64(completed) / float64(len(attempts))
	return em
}

// ExecuteWithRecovery 以超时、重试与自动修复执行任务。
// 重试耗尽后返回最后一次的失败结果而不是错误；
// error 只用于无效输入。
func (m *Manager) ExecuteWithRecovery(ctx context.Context, task *types.Task, executor Executor) (*types.ExecutionResult, error) {
	if task == nil || executor == nil {
		return nil, types.NewError(types.ErrValidation, "task and executor are required")
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	cls := m.classifier.Classify(task)
	execCtx := &ExecContext{
		Task:           task,
		Classification: cls,
		MaxAttempts:    cls.MaxAttempts(),
		AttemptTimeout: m.attemptTimeout(cls),
		StartedAt:      time.Now(),
	}

	m.logger.Info("task execution started",
		zap.String("task", task.ID),
		zap.String("type", cls.Type),
		zap.String("complexity", string(cls.Complexity)),
		zap.String("retry", string(cls.Retry)),
		zap.Int("max_attempts", execCtx.MaxAttempts))

	var last *types.ExecutionResult
	for execCtx.Attempt = 1; execCtx.Attempt <= execCtx.MaxAttempts; execCtx.Attempt++ {
		result := m.runAttempt(ctx, execCtx, executor)
		m.record(task.ID, result, cls)
		last = result

		if result.Status == types.StatusCompleted {
			break
		}
		if !m.shouldRetry(execCtx) {
			break
		}
		if cls.Retry == RetryExponential {
			delay := time.Duration(math.Pow(2, float64(execCtx.Attempt))) * time.Second
			m.logger.Debug("retry backoff",
				zap.String("task", task.ID),
				zap.Int("attempt", execCtx.Attempt),
				zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return last, nil
			case <-time.After(delay):
			}
		}
	}

	em := m.Metrics(task.ID)
	m.logger.Info("task execution finished",
		zap.String("task", task.ID),
		zap.String("status", string(last.Status)),
		zap.Int("attempts", em.Attempts),
		zap.Float64("success_rate", em.SuccessRate),
		zap.Duration("total_duration", em.TotalDuration))

	return last, nil
}

func (m *Manager) attemptTimeout(cls Classification) time.Duration {
	if m.timeout > 0 {
		return m.timeout
	}
	return cls.EstimatedDuration
}

func (m *Manager) shouldRetry(execCtx *ExecContext) bool {
	switch execCtx.Classification.Retry {
	case RetryImmediate, RetryExponential:
		return execCtx.Attempt < execCtx.MaxAttempts
	default:
		return false
	}
}

type attemptOutcome struct {
	result *types.ExecutionResult
	err    error
}

// runAttempt 让执行器与硬超时赛跑。
// 超时后执行器协程被放弃，其结果写入带缓冲通道后丢弃。
func (m *Manager) runAttempt(ctx context.Context, execCtx *ExecContext, executor Executor) *types.ExecutionResult {
	task := execCtx.Task
	start := time.Now()

	outcome := make(chan attemptOutcome, 1)
	go func() {
		result, err := executor(ctx, task)
		outcome <- attemptOutcome{result: result, err: err}
	}()

	timer := time.NewTimer(execCtx.AttemptTimeout)
	defer timer.Stop()

	select {
	case out := <-outcome:
		duration := time.Since(start)
		if out.err != nil {
			execErr := types.NewErrorf(types.ErrExecution, "attempt %d failed", execCtx.Attempt).WithCause(out.err)
			return &types.ExecutionResult{
				TaskID:   task.ID,
				Status:   types.StatusFailed,
				Duration: duration,
				Error:    execErr.Error(),
			}
		}
		result := out.result
		if result == nil {
			result = &types.ExecutionResult{TaskID: task.ID, Status: types.StatusCompleted}
		}
		result.Duration = duration
		return m.inspect(ctx, task, result)

	case <-timer.C:
		timeoutErr := types.NewErrorf(types.ErrTimeout,
			"attempt %d exceeded deadline %s", execCtx.Attempt, execCtx.AttemptTimeout).WithRetryable(true)
		return &types.ExecutionResult{
			TaskID:   task.ID,
			Status:   types.StatusFailed,
			Duration: time.Since(start),
			Error:    timeoutErr.Error(),
		}

	case <-ctx.Done():
		return &types.ExecutionResult{
			TaskID:   task.ID,
			Status:   types.StatusFailed,
			Duration: time.Since(start),
			Error:    types.NewError(types.ErrExecution, "execution cancelled").WithCause(ctx.Err()).Error(),
		}
	}
}

// inspect 扫描成功结果中的已知问题并尝试自动修复
func (m *Manager) inspect(ctx context.Context, task *types.Task, result *types.ExecutionResult) *types.ExecutionResult {
	issue := matchIssue(m.patterns, result.Content)
	if issue == nil {
		return result
	}

	m.logger.Warn("issue detected in result",
		zap.String("task", task.ID),
		zap.String("issue", issue.Name),
		zap.String("severity", string(issue.Severity)))

	if issue.Remediation != "" && m.runner != nil {
		if err := m.runner(ctx, issue.Remediation); err == nil {
			result.Content += fmt.Sprintf("\n[resolved] %s remediated via %q", issue.Name, issue.Remediation)
			result.Status = types.StatusCompleted
			if m.collector != nil {
				m.collector.RecordRemediation(issue.Name, "resolved")
			}
			return result
		}
		if m.collector != nil {
			m.collector.RecordRemediation(issue.Name, "failed")
		}
	}

	issueErr := types.NewErrorf(types.ErrIssueDetected,
		"%s detected, escalate to %s team", issue.Name, issue.EscalateTo)
	result.Status = types.StatusFailed
	result.Error = issueErr.Error()
	return result
}

func (m *Manager) record(taskID string, result *types.ExecutionResult, cls Classification) {
	m.historyMu.Lock()
	m.history[taskID] = append(m.history[taskID], result)
	m.historyMu.Unlock()

	if m.collector != nil {
		m.collector.RecordExecutionAttempt(cls.Type, string(result.Status), result.Duration)
	}
}
