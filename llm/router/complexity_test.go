package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyComplexity(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   Complexity
	}{
		{
			name:   "short definitional question is simple",
			prompt: "What is the capital of France?",
			want:   ComplexitySimple,
		},
		{
			name:   "strategic keyword wins over length and other keywords",
			prompt: "Please architect a comprehensive multi-step migration plan",
			want:   ComplexityStrategic,
		},
		{
			name:   "debug keyword marks complex",
			prompt: "Debug the race condition in the checkout flow and compare alternative locking schemes",
			want:   ComplexityComplex,
		},
		{
			name:   "short prompt without keywords is simple",
			prompt: "Tell me a joke",
			want:   ComplexitySimple,
		},
		{
			name:   "long prompt without keywords is moderate",
			prompt: "Summarize the quarterly report for the finance team and include revenue numbers for every region in a readable table format",
			want:   ComplexityModerate,
		},
		{
			name:   "strategic beats complex when both match",
			prompt: "Analyze the failure modes and then design a mitigation roadmap covering every critical subsystem we currently operate",
			want:   ComplexityStrategic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyComplexity(tt.prompt))
		})
	}
}

func TestDetectTaskKind(t *testing.T) {
	assert.Equal(t, KindCode, DetectTaskKind("Implement a function that parses CSV"))
	assert.Equal(t, KindEmbedding, DetectTaskKind("Embed these documents for similarity search"))
	assert.Equal(t, KindChat, DetectTaskKind("How was your day?"))
}

func TestLocalModelFor(t *testing.T) {
	assert.Equal(t, "qwen2.5-coder:7b", LocalModelFor(KindCode))
	assert.Equal(t, "nomic-embed-text", LocalModelFor(KindEmbedding))
	// 未知类别回退到 chat 模型
	assert.Equal(t, "llama3.2:3b", LocalModelFor(TaskKind("unknown")))
}
