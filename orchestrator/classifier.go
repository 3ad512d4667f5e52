package orchestrator

import (
	"strings"
	"time"

	"github.com/goblinos/overmind/types"
)

// RetryStrategy 失败后的重试策略
type RetryStrategy string

const (
	RetryNone        RetryStrategy = "none"
	RetryImmediate   RetryStrategy = "immediate"
	RetryExponential RetryStrategy = "exponential"
	RetryEscalation  RetryStrategy = "escalation"
)

// ComplexityLevel 任务复杂度
type ComplexityLevel string

const (
	ComplexityLow      ComplexityLevel = "low"
	ComplexityMedium   ComplexityLevel = "medium"
	ComplexityHigh     ComplexityLevel = "high"
	ComplexityCritical ComplexityLevel = "critical"
)

// RiskLevel 任务风险
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// PriorityLevel 派生的处理优先级
type PriorityLevel string

const (
	PriorityLow    PriorityLevel = "low"
	PriorityMedium PriorityLevel = "medium"
	PriorityHigh   PriorityLevel = "high"
)

// 领域团队标识
const (
	TeamInfra       = "infra"
	TeamIntegration = "integration"
	TeamQuality     = "quality"
	TeamTrust       = "trust"
	TeamStandards   = "standards"
)

// Classification 每个执行尝试周期由任务内容派生一次，不独立存储
type Classification struct {
	Type              string          `json:"type"`
	Priority          PriorityLevel   `json:"priority"`
	Complexity        ComplexityLevel `json:"complexity"`
	EstimatedDuration time.Duration   `json:"estimated_duration"`
	RequiredTeams     []string        `json:"required_teams"`
	Risk              RiskLevel       `json:"risk"`
	Retry             RetryStrategy   `json:"retry"`
}

// MaxAttempts 重试策略允许的总尝试次数
func (c Classification) MaxAttempts() int {
	switch c.Retry {
	case RetryImmediate:
		return 3
	case RetryExponential:
		return 5
	default: // escalation 和 none 只跑一次
		return 1
	}
}

// Classifier 基于关键词的任务分类器
type Classifier struct {
	ownTeam string // 无领域关键词命中时的兜底团队
}

// NewClassifier 创建分类器；ownTeam 为编排方自身团队
func NewClassifier(ownTeam string) *Classifier {
	return &Classifier{ownTeam: ownTeam}
}

// Classify 从任务内容派生分类
func (c *Classifier) Classify(task *types.Task) Classification {
	text := strings.ToLower(task.Type + " " + task.Prompt)

	cls := Classification{}
	switch {
	case containsAny(text, "refactor", "architect", "design"):
		cls.Complexity = ComplexityHigh
		cls.EstimatedDuration = 60 * time.Minute
		cls.Risk = RiskHigh
		cls.Retry = RetryEscalation
	case containsAny(text, "implement", "create", "build"):
		cls.Complexity = ComplexityMedium
		cls.EstimatedDuration = 30 * time.Minute
		cls.Risk = RiskMedium
		cls.Retry = RetryExponential
	case containsAny(text, "fix", "error", "bug"):
		cls.Complexity = ComplexityCritical
		cls.EstimatedDuration = 15 * time.Minute
		cls.Risk = RiskHigh
		cls.Retry = RetryImmediate
	default:
		cls.Complexity = ComplexityLow
		cls.EstimatedDuration = 5 * time.Minute
		cls.Risk = RiskLow
		cls.Retry = RetryNone
	}

	cls.Type = deriveType(text)
	cls.Priority = derivePriority(cls.Complexity, cls.Risk)
	cls.RequiredTeams = c.deriveTeams(text)
	return cls
}

func deriveType(text string) string {
	switch {
	case containsAny(text, "test", "coverage"):
		return "testing"
	case containsAny(text, "deploy", "release", "rollout"):
		return "deployment"
	case containsAny(text, "security", "secret", "vulnerability"):
		return "security"
	case containsAny(text, "performance", "latency", "throughput"):
		return "performance"
	default:
		return "general"
	}
}

func derivePriority(complexity ComplexityLevel, risk RiskLevel) PriorityLevel {
	if complexity == ComplexityCritical || risk == RiskHigh {
		return PriorityHigh
	}
	if complexity == ComplexityLow && risk == RiskLow {
		return PriorityLow
	}
	return PriorityMedium
}

func (c *Classifier) deriveTeams(text string) []string {
	var teams []string
	add := func(team string) {
		for _, t := range teams {
			if t == team {
				return
			}
		}
		teams = append(teams, team)
	}

	if containsAny(text, "build", "deploy", "performance") {
		add(TeamInfra)
	}
	if containsAny(text, "ui", "frontend", "api") {
		add(TeamIntegration)
	}
	if containsAny(text, "test", "bug", "error") {
		add(TeamQuality)
	}
	if containsAny(text, "security", "secret", "audit") {
		add(TeamTrust)
	}
	if containsAny(text, "lint", "quality", "validate") {
		add(TeamStandards)
	}

	if len(teams) == 0 {
		teams = []string{c.ownTeam}
	}
	return teams
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
