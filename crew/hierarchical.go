package crew

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goblinos/overmind/agent"
	"github.com/goblinos/overmind/types"
	"go.uber.org/zap"
)

// delegation 委派计划中的一个子任务
type delegation struct {
	AgentID     string `json:"agent_id"`
	Description string `json:"description"`
}

const planningPromptFormat = `Plan the delegation of the following task across your team.

## Task

%s

## Available agents

%s

Respond with a JSON array only, each element {"agent_id": "...", "description": "..."}.`

// runHierarchical 要求恰好一个 orchestrator 角色的 Agent：
// 它先对每个任务产出委派计划，计划完成后子任务才逐个派发。
func (c *Crew) runHierarchical(ctx context.Context) (map[string]string, error) {
	planner, workers, err := c.splitOrchestrator()
	if err != nil {
		return nil, err
	}

	results := make(map[string]string, len(c.taskOrder))
	for _, id := range c.taskOrder {
		task := c.tasks[id]
		content, err := c.delegate(ctx, planner, workers, task)
		if err != nil {
			return results, err
		}
		results[task.ID] = content
	}
	return results, nil
}

func (c *Crew) splitOrchestrator() (*agent.Agent, []*agent.Agent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var planner *agent.Agent
	var workers []*agent.Agent
	for _, id := range c.agentOrder() {
		a := c.agents[id]
		if a.Role() == agent.RoleOrchestrator {
			if planner != nil {
				return nil, nil, types.NewError(types.ErrValidation,
					"hierarchical mode requires exactly one orchestrator agent, found more")
			}
			planner = a
		} else {
			workers = append(workers, a)
		}
	}
	if planner == nil {
		return nil, nil, types.NewError(types.ErrValidation,
			"hierarchical mode requires exactly one orchestrator agent, found none")
	}
	if len(workers) == 0 {
		return nil, nil, types.NewError(types.ErrValidation,
			"hierarchical mode requires at least one worker agent")
	}
	return planner, workers, nil
}

// delegate 编排计划在任何子任务派发之前完成；子任务串行执行，
// 失败只记录日志不中止。
func (c *Crew) delegate(ctx context.Context, planner *agent.Agent, workers []*agent.Agent, task *types.Task) (string, error) {
	plan := c.plan(ctx, planner, workers, task)

	if err := task.Start(c.depCompleted); err != nil {
		return "", err
	}

	var outputs []string
	failed := 0
	for i, d := range plan {
		worker := c.workerByID(workers, d.AgentID)
		if worker == nil {
			c.logger.Warn("delegation targets unknown agent, skipping",
				zap.String("task", task.ID), zap.String("agent", d.AgentID))
			continue
		}
		sub := types.NewTask(fmt.Sprintf("%s-sub-%d", task.ID, i+1), task.Type, d.Description)
		sub.Priority = task.Priority
		if err := sub.Start(nil); err != nil {
			continue
		}

		result, err := c.manager.ExecuteWithRecovery(ctx, sub, func(ctx context.Context, t *types.Task) (*types.ExecutionResult, error) {
			return worker.Execute(ctx, t)
		})
		if err != nil || result.Status == types.StatusFailed {
			failed++
			c.logger.Warn("subtask failed, continuing",
				zap.String("task", task.ID),
				zap.String("subtask", sub.ID),
				zap.String("agent", worker.Name()),
				zap.Error(err))
			continue
		}
		outputs = append(outputs, result.Content)
	}

	content := strings.Join(outputs, "\n\n")
	if len(outputs) > 0 {
		_ = task.Complete(content)
	} else {
		_ = task.Fail(fmt.Sprintf("all %d delegated subtasks failed", failed))
	}
	return content, nil
}

// plan 调用 orchestrator 产出委派计划。
// 输出无法解析时回退：整个任务交给任意一个可用 Agent。
func (c *Crew) plan(ctx context.Context, planner *agent.Agent, workers []*agent.Agent, task *types.Task) []delegation {
	var roster strings.Builder
	for _, w := range workers {
		fmt.Fprintf(&roster, "- %s (%s)\n", w.ID(), w.Role())
	}

	planTask := types.NewTask(task.ID+"-plan", "planning",
		fmt.Sprintf(planningPromptFormat, task.Prompt, roster.String()))
	_ = planTask.Start(nil)

	result, err := planner.Execute(ctx, planTask)
	if err != nil {
		c.logger.Warn("planning call failed, falling back to single agent",
			zap.String("task", task.ID), zap.Error(err))
		return c.fallbackPlan(workers, task)
	}

	plan, parseErr := parsePlan(result.Content)
	if parseErr != nil || len(plan) == 0 {
		c.logger.Warn("delegation plan unparseable, falling back to single agent",
			zap.String("task", task.ID), zap.Error(parseErr))
		return c.fallbackPlan(workers, task)
	}
	return plan
}

// fallbackPlan 把整个任务交给第一个 worker
func (c *Crew) fallbackPlan(workers []*agent.Agent, task *types.Task) []delegation {
	return []delegation{{AgentID: workers[0].ID(), Description: task.Prompt}}
}

func (c *Crew) workerByID(workers []*agent.Agent, id string) *agent.Agent {
	for _, w := range workers {
		if w.ID() == id {
			return w
		}
	}
	return nil
}

// parsePlan 从模型输出中提取 JSON 数组
func parsePlan(content string) ([]delegation, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, types.NewError(types.ErrValidation, "no JSON array in plan output")
	}
	var plan []delegation
	if err := json.Unmarshal([]byte(content[start:end+1]), &plan); err != nil {
		return nil, types.NewError(types.ErrValidation, "malformed delegation plan").WithCause(err)
	}
	return plan, nil
}
