package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTask_Lifecycle(t *testing.T) {
	task := NewTask("", "code", "implement the parser")
	require.NotEmpty(t, task.ID)
	assert.Equal(t, TaskPending, task.State)
	assert.False(t, task.CreatedAt.IsZero())

	require.NoError(t, task.Start(nil))
	assert.Equal(t, TaskInProgress, task.State)
	require.NotNil(t, task.StartedAt)

	require.NoError(t, task.Complete("done"))
	assert.Equal(t, TaskCompleted, task.State)
	assert.Equal(t, "done", task.Result)
	assert.True(t, task.Terminal())
}

func TestTask_Start_DependencyGate(t *testing.T) {
	task := NewTask("t2", "code", "depends on t1")
	task.Dependencies = []string{"t1"}

	err := task.Start(func(id string) bool { return false })
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrDependencyUnmet))
	assert.Equal(t, TaskPending, task.State)

	require.NoError(t, task.Start(func(id string) bool { return id == "t1" }))
	assert.Equal(t, TaskInProgress, task.State)
}

func TestTask_InvalidTransitions(t *testing.T) {
	task := NewTask("t1", "code", "p")

	// Cannot complete or fail from pending.
	assert.True(t, IsCode(task.Complete("x"), ErrInvalidTransition))
	assert.True(t, IsCode(task.Fail("x"), ErrInvalidTransition))

	require.NoError(t, task.Start(nil))
	require.NoError(t, task.Fail("boom"))

	// Terminal states are sticky.
	assert.True(t, IsCode(task.Start(nil), ErrInvalidTransition))
	assert.True(t, IsCode(task.Complete("x"), ErrInvalidTransition))
}

func TestTask_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Task)
		wantErr bool
	}{
		{"valid", func(task *Task) {}, false},
		{"missing prompt", func(task *Task) { task.Prompt = "" }, true},
		{"priority too high", func(task *Task) { task.Priority = 11 }, true},
		{"priority negative", func(task *Task) { task.Priority = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := NewTask("t1", "code", "prompt")
			tt.mutate(task)
			err := task.Validate()
			if tt.wantErr {
				assert.True(t, IsCode(err, ErrValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestError_CodeExtraction(t *testing.T) {
	base := NewError(ErrTimeout, "attempt deadline exceeded").WithRetryable(true)
	wrapped := NewError(ErrExecution, "model call failed").WithCause(base)

	assert.Equal(t, ErrExecution, CodeOf(wrapped))
	assert.Contains(t, wrapped.Error(), "model call failed")
	assert.Contains(t, wrapped.Error(), "attempt deadline exceeded")
	assert.Equal(t, base, wrapped.Unwrap())
}
