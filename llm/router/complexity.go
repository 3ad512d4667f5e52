package router

import "strings"

// Complexity 任务复杂度层级
type Complexity string

const (
	ComplexitySimple    Complexity = "simple"
	ComplexityModerate  Complexity = "moderate"
	ComplexityComplex   Complexity = "complex"
	ComplexityStrategic Complexity = "strategic"
)

// TaskKind 本地模型选型用的粗粒度任务类别
type TaskKind string

const (
	KindChat      TaskKind = "chat"
	KindCode      TaskKind = "code"
	KindEmbedding TaskKind = "embedding"
)

// 关键词表。顺序即裁决优先级：strategic 先于 complex 先于 simple。
var (
	strategicKeywords = []string{
		"plan", "architect", "design", "orchestrate", "roadmap",
		"strategy", "strategic", "coordinate", "multi-step",
	}
	complexKeywords = []string{
		"analyze", "compare", "debug", "refactor", "optimize",
		"investigate", "evaluate", "diagnose", "trace",
	}
	simplePrefixes = []string{
		"what is", "what are", "define", "list", "who is", "when did",
	}
)

const shortPromptThreshold = 100

// ClassifyComplexity 按关键词优先级对提示词分级。
// 这是硬性裁决：strategic 命中即返回，不与后续规则加权。
func ClassifyComplexity(prompt string) Complexity {
	lower := strings.ToLower(prompt)

	for _, kw := range strategicKeywords {
		if strings.Contains(lower, kw) {
			return ComplexityStrategic
		}
	}
	for _, kw := range complexKeywords {
		if strings.Contains(lower, kw) {
			return ComplexityComplex
		}
	}
	if len(prompt) < shortPromptThreshold {
		return ComplexitySimple
	}
	trimmed := strings.TrimSpace(lower)
	for _, prefix := range simplePrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return ComplexitySimple
		}
	}
	return ComplexityModerate
}

// DetectTaskKind 粗分任务类别，供 local_first 选择本地模型。
func DetectTaskKind(prompt string) TaskKind {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "embed") || strings.Contains(lower, "vector") || strings.Contains(lower, "similarity"):
		return KindEmbedding
	case strings.Contains(lower, "code") || strings.Contains(lower, "function") ||
		strings.Contains(lower, "implement") || strings.Contains(lower, "bug"):
		return KindCode
	default:
		return KindChat
	}
}
