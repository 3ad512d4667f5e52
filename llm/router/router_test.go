package router

import (
	"context"
	"testing"
	"time"

	"github.com/goblinos/overmind/llm"
	"github.com/goblinos/overmind/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func mustPolicy(t *testing.T, strategy Strategy) Policy {
	t.Helper()
	p, err := NewPolicy(strategy, true)
	require.NoError(t, err)
	return p
}

func TestNewPolicyRejectsUnknownStrategy(t *testing.T) {
	_, err := NewPolicy(Strategy("weighted_random"), false)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrValidation))
}

func TestRouteCostOptimized(t *testing.T) {
	r := New(nil, nil, nil)

	// moderate tier: glm-4-air is cheapest and meets the capability bar
	d, err := r.Route(context.Background(), &Request{
		Prompt:     "irrelevant",
		Complexity: ComplexityModerate,
		Attempt:    1,
		Policy:     mustPolicy(t, StrategyCostOptimized),
	})
	require.NoError(t, err)
	assert.Equal(t, BackendGLM, d.SelectedBackend)
	assert.Equal(t, "glm-4-air", d.SelectedModel)
	assert.Equal(t, ComplexityModerate, d.Complexity)
	assert.NotEmpty(t, d.Reason)
}

func TestRouteCostOptimizedFallsBackBelowCapabilityBar(t *testing.T) {
	table := CapabilityTable{
		ComplexitySimple: {
			{Backend: "alpha", Model: "a", Capability: 5, InputCost: 0.001, OutputCost: 0.001},
			{Backend: "beta", Model: "b", Capability: 6, InputCost: 0.002, OutputCost: 0.002},
		},
	}
	r := New(table, nil, nil)

	d, err := r.Route(context.Background(), &Request{
		Prompt:     "hi",
		Complexity: ComplexitySimple,
		Policy:     mustPolicy(t, StrategyCostOptimized),
	})
	require.NoError(t, err)
	// 没有候选达到能力门槛时取最便宜的
	assert.Equal(t, "alpha", d.SelectedBackend)
}

func TestRouteLatencyOptimized(t *testing.T) {
	r := New(nil, nil, nil)

	d, err := r.Route(context.Background(), &Request{
		Prompt:     "hi",
		Complexity: ComplexitySimple,
		Policy:     mustPolicy(t, StrategyLatencyOptimized),
	})
	require.NoError(t, err)
	assert.Equal(t, BackendOllama, d.SelectedBackend)
}

func TestRouteCascadingEscalatesByAttempt(t *testing.T) {
	r := New(nil, nil, nil)
	policy := mustPolicy(t, StrategyCascading)

	// moderate tier sorted by input cost: glm, openai, deepseek
	expected := []string{BackendGLM, BackendOpenAI, BackendDeepSeek, BackendDeepSeek}
	for attempt := 1; attempt <= len(expected); attempt++ {
		d, err := r.Route(context.Background(), &Request{
			Prompt:     "hi",
			Complexity: ComplexityModerate,
			Attempt:    attempt,
			Policy:     policy,
		})
		require.NoError(t, err)
		assert.Equal(t, expected[attempt-1], d.SelectedBackend, "attempt %d", attempt)
	}
}

func TestRouteLocalFirstWithinVolumeThreshold(t *testing.T) {
	r := New(nil, nil, nil)
	policy := mustPolicy(t, StrategyLocalFirst)
	require.Less(t, policy.MonthlyCallVolume, policy.MediumCostThreshold)

	d, err := r.Route(context.Background(), &Request{
		Prompt:  "What is the capital of France?",
		Attempt: 1,
		Policy:  policy,
	})
	require.NoError(t, err)
	assert.Equal(t, BackendOllama, d.SelectedBackend)
	assert.Equal(t, "llama3.2:3b", d.SelectedModel)
}

func TestRouteLocalFirstPicksCodeModel(t *testing.T) {
	r := New(nil, nil, nil)

	d, err := r.Route(context.Background(), &Request{
		Prompt:  "Fix this bug in my code",
		Attempt: 1,
		Policy:  mustPolicy(t, StrategyLocalFirst),
	})
	require.NoError(t, err)
	assert.Equal(t, BackendOllama, d.SelectedBackend)
	assert.Equal(t, "qwen2.5-coder:7b", d.SelectedModel)
}

func TestRouteLocalFirstCloudFallback(t *testing.T) {
	r := New(nil, nil, nil)
	policy := mustPolicy(t, StrategyLocalFirst)
	// 超过量级阈值，且本地节省不足月度门槛
	policy.MonthlyCallVolume = 20000

	d, err := r.Route(context.Background(), &Request{
		Prompt:     "hello there",
		Complexity: ComplexitySimple,
		Attempt:    1,
		Policy:     policy,
	})
	require.NoError(t, err)
	// simple tier 最便宜的云端候选是 glm-4-flash
	assert.Equal(t, BackendGLM, d.SelectedBackend)
}

func TestRouteLocalFirstSavingsBar(t *testing.T) {
	table := CapabilityTable{
		ComplexitySimple: {
			{Backend: BackendOllama, Model: "llama3.2:3b"},
			{Backend: BackendOpenAI, Model: "gpt-4o", Capability: 9, InputCost: 0.0025, OutputCost: 0.01},
		},
	}
	r := New(table, nil, nil)
	policy := mustPolicy(t, StrategyLocalFirst)
	policy.MonthlyCallVolume = 20000

	// savings = 0.025 * 20000 = 500 USD/month，超过门槛，选本地
	d, err := r.Route(context.Background(), &Request{
		Prompt:     "hello there",
		Complexity: ComplexitySimple,
		Policy:     policy,
	})
	require.NoError(t, err)
	assert.Equal(t, BackendOllama, d.SelectedBackend)
}

func TestRoutePredictive(t *testing.T) {
	r := New(nil, nil, nil)

	// strategic tier: gpt-4o 的综合得分高于 claude-3-opus（成本项占优）
	d, err := r.Route(context.Background(), &Request{
		Prompt:     "x",
		Complexity: ComplexityStrategic,
		Policy:     mustPolicy(t, StrategyPredictive),
	})
	require.NoError(t, err)
	assert.Equal(t, BackendOpenAI, d.SelectedBackend)
}

func TestRouteNoAvailableBackend(t *testing.T) {
	r := New(nil, nil, nil)
	for _, b := range []string{BackendOllama, BackendOpenAI, BackendAnthropic, BackendDeepSeek, BackendGLM} {
		r.SetAvailable(b, false)
	}

	_, err := r.Route(context.Background(), &Request{
		Prompt: "hi",
		Policy: mustPolicy(t, StrategyCostOptimized),
	})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrProviderUnavailable))
}

func TestRouteRejectsEmptyPrompt(t *testing.T) {
	r := New(nil, nil, nil)
	_, err := r.Route(context.Background(), &Request{Policy: mustPolicy(t, StrategyCostOptimized)})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrValidation))
}

// 单后端性质：只有一个后端可用时，任何策略、任何层级、任何尝试序号
// 都只能选它，与能力评分无关。
func TestSingleBackendProperty(t *testing.T) {
	table := CapabilityTable{
		ComplexitySimple:    {{Backend: "solo", Model: "solo-s", Capability: 3, InputCost: 0.001, OutputCost: 0.002, Latency: 400 * time.Millisecond}},
		ComplexityModerate:  {{Backend: "solo", Model: "solo-m", Capability: 5, InputCost: 0.002, OutputCost: 0.004, Latency: 600 * time.Millisecond}},
		ComplexityComplex:   {{Backend: "solo", Model: "solo-c", Capability: 6, InputCost: 0.004, OutputCost: 0.008, Latency: 900 * time.Millisecond}},
		ComplexityStrategic: {{Backend: "solo", Model: "solo-x", Capability: 9, InputCost: 0.01, OutputCost: 0.03, Latency: 1200 * time.Millisecond}},
	}

	strategies := []Strategy{
		StrategyCostOptimized, StrategyLatencyOptimized, StrategyCascading,
		StrategyLocalFirst, StrategyPredictive,
	}
	tiers := []Complexity{ComplexitySimple, ComplexityModerate, ComplexityComplex, ComplexityStrategic}

	rapid.Check(t, func(t *rapid.T) {
		r := New(table, nil, nil)
		strategy := strategies[rapid.IntRange(0, len(strategies)-1).Draw(t, "strategy")]
		tier := tiers[rapid.IntRange(0, len(tiers)-1).Draw(t, "tier")]
		attempt := rapid.IntRange(1, 8).Draw(t, "attempt")

		policy, err := NewPolicy(strategy, true)
		if err != nil {
			t.Fatalf("policy: %v", err)
		}
		d, err := r.Route(context.Background(), &Request{
			Prompt:     "anything",
			Complexity: tier,
			Attempt:    attempt,
			Policy:     policy,
		})
		if err != nil {
			t.Fatalf("route: %v", err)
		}
		if d.SelectedBackend != "solo" {
			t.Fatalf("expected solo backend, got %s", d.SelectedBackend)
		}
	})
}

func TestFailover(t *testing.T) {
	r := New(nil, nil, nil)

	disabled := mustPolicy(t, StrategyCostOptimized)
	disabled.FailoverEnabled = false
	assert.Nil(t, r.Failover(BackendGLM, ComplexityModerate, disabled))

	d := r.Failover(BackendGLM, ComplexityModerate, mustPolicy(t, StrategyCostOptimized))
	require.NotNil(t, d)
	assert.NotEqual(t, BackendGLM, d.SelectedBackend)
	assert.Contains(t, d.Reason, "failover")
}

func TestFailoverNoAlternative(t *testing.T) {
	table := CapabilityTable{
		ComplexitySimple: {{Backend: "only", Model: "m"}},
	}
	r := New(table, nil, nil)
	assert.Nil(t, r.Failover("only", ComplexitySimple, mustPolicy(t, StrategyCostOptimized)))
}

type probeProvider struct {
	name    string
	healthy bool
}

func (p *probeProvider) Completion(context.Context, *llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{Content: "ok"}, nil
}

func (p *probeProvider) HealthCheck(context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: p.healthy, Latency: time.Millisecond}, nil
}

func (p *probeProvider) Name() string { return p.name }

func TestProbeHealth(t *testing.T) {
	r := New(nil, nil, nil)
	require.True(t, r.Available(BackendOpenAI))

	r.ProbeHealth(context.Background(), map[string]llm.Provider{
		BackendOpenAI: &probeProvider{name: "openai", healthy: false},
		BackendGLM:    &probeProvider{name: "glm", healthy: true},
	})

	assert.False(t, r.Available(BackendOpenAI))
	assert.True(t, r.Available(BackendGLM))
	// 未注入 Provider 的后端保持现状
	assert.True(t, r.Available(BackendAnthropic))
}
