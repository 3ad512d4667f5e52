package router

import "time"

// 后端标识。引擎只认名字，具体客户端由宿主注入。
const (
	BackendOllama    = "ollama" // 本地/离线后端
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
	BackendDeepSeek  = "deepseek"
	BackendGLM       = "glm"
)

// Candidate 能力表中的一个 (后端, 模型) 候选
type Candidate struct {
	Backend    string        `json:"backend"`
	Model      string        `json:"model"`
	Capability int           `json:"capability"` // 静态适配度评分 0-10
	InputCost  float64       `json:"input_cost"` // USD / 1K tokens
	OutputCost float64       `json:"output_cost"`
	Latency    time.Duration `json:"latency"` // 典型首响延迟
}

// Local reports whether the candidate runs on the local backend.
func (c Candidate) Local() bool {
	return c.Backend == BackendOllama
}

// EstimatedCost 按典型 2K token 往返估算单次成本
func (c Candidate) EstimatedCost() float64 {
	return (c.InputCost + c.OutputCost) * 2
}

// CapabilityTable 按复杂度层级固定的候选表
type CapabilityTable map[Complexity][]Candidate

// DefaultCapabilityTable 返回内置能力表。
// 表内顺序无意义；策略自行排序。
func DefaultCapabilityTable() CapabilityTable {
	return CapabilityTable{
		ComplexitySimple: {
			{Backend: BackendOllama, Model: "llama3.2:3b", Capability: 6, InputCost: 0, OutputCost: 0, Latency: 350 * time.Millisecond},
			{Backend: BackendGLM, Model: "glm-4-flash", Capability: 7, InputCost: 0.0001, OutputCost: 0.0001, Latency: 500 * time.Millisecond},
			{Backend: BackendDeepSeek, Model: "deepseek-chat", Capability: 7, InputCost: 0.00027, OutputCost: 0.0011, Latency: 700 * time.Millisecond},
		},
		ComplexityModerate: {
			{Backend: BackendDeepSeek, Model: "deepseek-chat", Capability: 7, InputCost: 0.00027, OutputCost: 0.0011, Latency: 700 * time.Millisecond},
			{Backend: BackendOpenAI, Model: "gpt-4o-mini", Capability: 8, InputCost: 0.00015, OutputCost: 0.0006, Latency: 600 * time.Millisecond},
			{Backend: BackendGLM, Model: "glm-4-air", Capability: 7, InputCost: 0.0001, OutputCost: 0.0001, Latency: 550 * time.Millisecond},
		},
		ComplexityComplex: {
			{Backend: BackendOpenAI, Model: "gpt-4o", Capability: 9, InputCost: 0.0025, OutputCost: 0.01, Latency: 900 * time.Millisecond},
			{Backend: BackendAnthropic, Model: "claude-3-5-sonnet", Capability: 9, InputCost: 0.003, OutputCost: 0.015, Latency: 1 * time.Second},
			{Backend: BackendDeepSeek, Model: "deepseek-reasoner", Capability: 8, InputCost: 0.00055, OutputCost: 0.00219, Latency: 2 * time.Second},
		},
		ComplexityStrategic: {
			{Backend: BackendAnthropic, Model: "claude-3-opus", Capability: 10, InputCost: 0.015, OutputCost: 0.075, Latency: 1500 * time.Millisecond},
			{Backend: BackendOpenAI, Model: "gpt-4o", Capability: 9, InputCost: 0.0025, OutputCost: 0.01, Latency: 900 * time.Millisecond},
		},
	}
}

// localModelByKind 本地后端按任务类别的固定选型
var localModelByKind = map[TaskKind]string{
	KindChat:      "llama3.2:3b",
	KindCode:      "qwen2.5-coder:7b",
	KindEmbedding: "nomic-embed-text",
}

// LocalModelFor 返回本地后端对给定任务类别的选型
func LocalModelFor(kind TaskKind) string {
	if m, ok := localModelByKind[kind]; ok {
		return m
	}
	return localModelByKind[KindChat]
}
