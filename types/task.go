package types

import (
	"time"

	"github.com/google/uuid"
)

// TaskState 任务状态
type TaskState string

const (
	TaskPending    TaskState = "pending"
	TaskInProgress TaskState = "in_progress"
	TaskCompleted  TaskState = "completed"
	TaskFailed     TaskState = "failed"
)

// ExecutionStatus 单次执行的结果状态
type ExecutionStatus string

const (
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
)

// Task 描述一个可编排的工作单元
type Task struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Prompt       string         `json:"prompt"`
	Context      map[string]any `json:"context,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
	Priority     int            `json:"priority"` // 0-10
	State        TaskState      `json:"state"`
	AssignedTo   string         `json:"assigned_to,omitempty"`
	Result       string         `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// NewTask 创建处于 pending 状态的任务；空 ID 自动生成
func NewTask(id, taskType, prompt string) *Task {
	if id == "" {
		id = uuid.New().String()
	}
	return &Task{
		ID:        id,
		Type:      taskType,
		Prompt:    prompt,
		State:     TaskPending,
		CreatedAt: time.Now(),
	}
}

// Validate 校验任务字段的基本约束
func (t *Task) Validate() error {
	if t.ID == "" {
		return NewError(ErrValidation, "task id is required")
	}
	if t.Prompt == "" {
		return NewErrorf(ErrValidation, "task %s has no prompt", t.ID)
	}
	if t.Priority < 0 || t.Priority > 10 {
		return NewErrorf(ErrValidation, "task %s priority %d out of range [0,10]", t.ID, t.Priority)
	}
	return nil
}

// Start 将任务转移到 in_progress。
// completedDeps 报告某个依赖任务是否已完成；任何依赖未完成时拒绝转移。
func (t *Task) Start(completedDeps func(id string) bool) error {
	if t.State != TaskPending {
		return NewErrorf(ErrInvalidTransition, "task %s cannot start from state %s", t.ID, t.State)
	}
	for _, dep := range t.Dependencies {
		if completedDeps == nil || !completedDeps(dep) {
			return NewErrorf(ErrDependencyUnmet, "task %s depends on incomplete task %s", t.ID, dep)
		}
	}
	now := time.Now()
	t.State = TaskInProgress
	t.StartedAt = &now
	return nil
}

// Complete 将任务转移到 completed 并记录结果
func (t *Task) Complete(result string) error {
	if t.State != TaskInProgress {
		return NewErrorf(ErrInvalidTransition, "task %s cannot complete from state %s", t.ID, t.State)
	}
	now := time.Now()
	t.State = TaskCompleted
	t.Result = result
	t.CompletedAt = &now
	return nil
}

// Fail 将任务转移到 failed 并记录错误
func (t *Task) Fail(reason string) error {
	if t.State != TaskInProgress {
		return NewErrorf(ErrInvalidTransition, "task %s cannot fail from state %s", t.ID, t.State)
	}
	now := time.Now()
	t.State = TaskFailed
	t.Error = reason
	t.CompletedAt = &now
	return nil
}

// Terminal reports whether the task reached a terminal state.
func (t *Task) Terminal() bool {
	return t.State == TaskCompleted || t.State == TaskFailed
}

// ExecutionResult 单次任务执行的结构化结果
type ExecutionResult struct {
	TaskID   string          `json:"task_id"`
	Status   ExecutionStatus `json:"status"`
	Content  string          `json:"content,omitempty"`
	Duration time.Duration   `json:"duration"`
	Error    string          `json:"error,omitempty"`
}
