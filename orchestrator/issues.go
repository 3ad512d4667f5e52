package orchestrator

import (
	"context"
	"regexp"
)

// IssueSeverity 问题严重级别
type IssueSeverity string

const (
	SeverityWarning  IssueSeverity = "warning"
	SeverityError    IssueSeverity = "error"
	SeverityCritical IssueSeverity = "critical"
)

// IssuePattern 对执行结果内容的固定检测规则
type IssuePattern struct {
	Name        string
	Severity    IssueSeverity
	Detect      *regexp.Regexp
	Remediation string // 自动修复命令；为空表示无自动修复
	EscalateTo  string // 无法自动修复时升级到的团队
}

// RemediationRunner 执行修复命令的外部协作者
type RemediationRunner func(ctx context.Context, command string) error

// DefaultIssuePatterns 返回内置问题模式集
func DefaultIssuePatterns() []IssuePattern {
	return []IssuePattern{
		{
			Name:        "build_failure",
			Severity:    SeverityCritical,
			Detect:      regexp.MustCompile(`(?i)build failed|compilation error|cannot compile`),
			Remediation: "rebuild --clean",
			EscalateTo:  TeamInfra,
		},
		{
			Name:        "test_failure",
			Severity:    SeverityError,
			Detect:      regexp.MustCompile(`(?i)tests? failed|assertion failed|--- FAIL`),
			Remediation: "retest --failed-only",
			EscalateTo:  TeamQuality,
		},
		{
			Name:        "lint_error",
			Severity:    SeverityWarning,
			Detect:      regexp.MustCompile(`(?i)lint (error|warning)|style violation`),
			Remediation: "lint --fix",
			EscalateTo:  TeamStandards,
		},
		{
			Name:       "security_issue",
			Severity:   SeverityCritical,
			Detect:     regexp.MustCompile(`(?i)vulnerability|exposed secret|CVE-\d{4}-\d+`),
			EscalateTo: TeamTrust, // 安全问题从不自动修复
		},
	}
}

// matchIssue 返回第一个命中的模式；未命中返回 nil
func matchIssue(patterns []IssuePattern, content string) *IssuePattern {
	for i := range patterns {
		if patterns[i].Detect.MatchString(content) {
			return &patterns[i]
		}
	}
	return nil
}
