package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goblinos/overmind/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func succeedAfter(failures int, content string) Executor {
	calls := 0
	return func(ctx context.Context, task *types.Task) (*types.ExecutionResult, error) {
		calls++
		if calls <= failures {
			return nil, errors.New("transient backend error")
		}
		return &types.ExecutionResult{
			TaskID:  task.ID,
			Status:  types.StatusCompleted,
			Content: content,
		}, nil
	}
}

func TestExecuteWithRecoveryValidation(t *testing.T) {
	m := NewManager(Config{OwnTeam: "platform"}, nil, nil)

	_, err := m.ExecuteWithRecovery(context.Background(), nil, succeedAfter(0, "ok"))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrValidation))

	task := types.NewTask("t-1", "", "fix the bug")
	_, err = m.ExecuteWithRecovery(context.Background(), task, nil)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrValidation))

	_, err = m.ExecuteWithRecovery(context.Background(), types.NewTask("", "", ""), succeedAfter(0, "ok"))
	require.Error(t, err)
}

func TestExecuteWithRecoveryRetriesImmediate(t *testing.T) {
	m := NewManager(Config{OwnTeam: "platform"}, nil, nil)

	// "fix"/"bug" -> immediate 重试，共 3 次尝试
	task := types.NewTask("t-retry", "", "fix the bug in the scheduler")
	result, err := m.ExecuteWithRecovery(context.Background(), task, succeedAfter(2, "patched"))
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, result.Status)
	assert.Equal(t, "patched", result.Content)

	history := m.History(task.ID)
	require.Len(t, history, 3)
	assert.Equal(t, types.StatusFailed, history[0].Status)
	assert.Equal(t, types.StatusFailed, history[1].Status)
	assert.Equal(t, types.StatusCompleted, history[2].Status)

	em := m.Metrics(task.ID)
	assert.Equal(t, 3, em.Attempts)
	assert.InDelta(t, 1.0/3.0, em.SuccessRate, 1e-9)
}

func TestExecuteWithRecoveryExhaustionReturnsFailedResult(t *testing.T) {
	m := NewManager(Config{OwnTeam: "platform"}, nil, nil)

	task := types.NewTask("t-exhaust", "", "fix the flaky error path")
	result, err := m.ExecuteWithRecovery(context.Background(), task, succeedAfter(10, "never"))
	require.NoError(t, err, "exhaustion is reported through the result, not an error")
	assert.Equal(t, types.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "EXECUTION")
	assert.Len(t, m.History(task.ID), 3)
}

func TestExecuteWithRecoveryEscalationRunsOnce(t *testing.T) {
	m := NewManager(Config{OwnTeam: "platform"}, nil, nil)

	// "refactor" -> escalation，不重试
	task := types.NewTask("t-escalate", "", "refactor the storage layer")
	result, err := m.ExecuteWithRecovery(context.Background(), task, succeedAfter(1, "never"))
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, result.Status)
	assert.Len(t, m.History(task.ID), 1)
}

func TestExecuteWithRecoveryAttemptTimeout(t *testing.T) {
	m := NewManager(Config{OwnTeam: "platform", AttemptTimeout: 50 * time.Millisecond}, nil, nil)

	task := types.NewTask("t-slow", "", "summarize the incident report")
	slow := func(ctx context.Context, task *types.Task) (*types.ExecutionResult, error) {
		time.Sleep(500 * time.Millisecond)
		return &types.ExecutionResult{TaskID: task.ID, Status: types.StatusCompleted}, nil
	}

	result, err := m.ExecuteWithRecovery(context.Background(), task, slow)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "TIMEOUT")
}

func TestExecuteWithRecoveryCancelledContext(t *testing.T) {
	m := NewManager(Config{OwnTeam: "platform", AttemptTimeout: time.Second}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task := types.NewTask("t-cancel", "", "summarize the incident report")
	blocked := func(ctx context.Context, task *types.Task) (*types.ExecutionResult, error) {
		time.Sleep(time.Second)
		return nil, errors.New("should not matter")
	}

	result, err := m.ExecuteWithRecovery(ctx, task, blocked)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "cancelled")
}

func TestInspectRemediatesKnownIssue(t *testing.T) {
	var commands []string
	runner := func(ctx context.Context, command string) error {
		commands = append(commands, command)
		return nil
	}
	m := NewManager(Config{OwnTeam: "platform", Runner: runner}, nil, nil)

	task := types.NewTask("t-remediate", "", "summarize the ci run")
	executor := func(ctx context.Context, task *types.Task) (*types.ExecutionResult, error) {
		return &types.ExecutionResult{
			TaskID:  task.ID,
			Status:  types.StatusCompleted,
			Content: "pipeline output: build failed at step 3",
		}, nil
	}

	result, err := m.ExecuteWithRecovery(context.Background(), task, executor)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, result.Status)
	assert.Contains(t, result.Content, `[resolved] build_failure remediated via "rebuild --clean"`)
	assert.Equal(t, []string{"rebuild --clean"}, commands)
}

func TestInspectEscalatesWhenRemediationFails(t *testing.T) {
	runner := func(ctx context.Context, command string) error {
		return errors.New("remediation command crashed")
	}
	m := NewManager(Config{OwnTeam: "platform", Runner: runner}, nil, nil)

	task := types.NewTask("t-lint", "", "summarize the review")
	executor := func(ctx context.Context, task *types.Task) (*types.ExecutionResult, error) {
		return &types.ExecutionResult{
			TaskID:  task.ID,
			Status:  types.StatusCompleted,
			Content: "lint error: unused variable",
		}, nil
	}

	result, err := m.ExecuteWithRecovery(context.Background(), task, executor)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "ISSUE_DETECTED")
	assert.Contains(t, result.Error, TeamStandards)
}

func TestInspectNeverRemediatesSecurityIssues(t *testing.T) {
	runner := func(ctx context.Context, command string) error {
		t.Fatalf("runner must not be invoked for security issues, got %q", command)
		return nil
	}
	m := NewManager(Config{OwnTeam: "platform", Runner: runner}, nil, nil)

	task := types.NewTask("t-sec", "", "summarize the scan")
	executor := func(ctx context.Context, task *types.Task) (*types.ExecutionResult, error) {
		return &types.ExecutionResult{
			TaskID:  task.ID,
			Status:  types.StatusCompleted,
			Content: "scanner found CVE-2025-12345 in a transitive dependency",
		}, nil
	}

	result, err := m.ExecuteWithRecovery(context.Background(), task, executor)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "ISSUE_DETECTED")
	assert.Contains(t, result.Error, TeamTrust)
}

func TestMatchIssueFirstHitWins(t *testing.T) {
	patterns := DefaultIssuePatterns()

	issue := matchIssue(patterns, "build failed; also 2 tests failed")
	require.NotNil(t, issue)
	assert.Equal(t, "build_failure", issue.Name)

	assert.Nil(t, matchIssue(patterns, "everything is fine"))
}

func TestHistoryReturnsCopy(t *testing.T) {
	m := NewManager(Config{OwnTeam: "platform"}, nil, nil)

	task := types.NewTask("t-copy", "", "summarize the notes")
	_, err := m.ExecuteWithRecovery(context.Background(), task, succeedAfter(0, "done"))
	require.NoError(t, err)

	h := m.History(task.ID)
	require.Len(t, h, 1)
	h[0] = nil
	require.NotNil(t, m.History(task.ID)[0])
}
