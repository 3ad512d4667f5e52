package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Collector 指标收集器
type Collector struct {
	// 路由指标
	routeDecisionsTotal *prometheus.CounterVec

	// 执行指标
	executionAttemptsTotal *prometheus.CounterVec
	executionDuration      *prometheus.HistogramVec
	remediationsTotal      *prometheus.CounterVec

	// Agent 指标
	agentStateTransitions *prometheus.CounterVec

	// 记忆指标
	memoryConsolidations prometheus.Counter

	logger *zap.Logger
}

// NewCollector 创建指标收集器并注册到给定 registerer。
// registerer 为 nil 时使用进程默认注册表。
func NewCollector(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *Collector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	factory := func(name, help string, labels []string) *prometheus.CounterVec {
		v := prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help},
			labels,
		)
		registerer.MustRegister(v)
		return v
	}

	c.routeDecisionsTotal = factory(
		"route_decisions_total",
		"Total routing decisions by strategy, backend, and complexity tier",
		[]string{"strategy", "backend", "complexity"},
	)
	c.executionAttemptsTotal = factory(
		"execution_attempts_total",
		"Total task execution attempts by outcome",
		[]string{"task_type", "outcome"},
	)
	c.remediationsTotal = factory(
		"remediations_total",
		"Total automated issue remediations by issue kind and outcome",
		[]string{"issue", "outcome"},
	)
	c.agentStateTransitions = factory(
		"agent_state_transitions_total",
		"Total agent state transitions",
		[]string{"from", "to"},
	)

	c.executionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Task execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)
	registerer.MustRegister(c.executionDuration)

	c.memoryConsolidations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "memory_consolidations_total",
		Help:      "Total short-term to long-term memory consolidation runs",
	})
	registerer.MustRegister(c.memoryConsolidations)

	return c
}

// RecordRouteDecision 记录一次路由决策
func (c *Collector) RecordRouteDecision(strategy, backend, complexity string) {
	c.routeDecisionsTotal.WithLabelValues(strategy, backend, complexity).Inc()
}

// RecordExecutionAttempt 记录一次执行尝试
func (c *Collector) RecordExecutionAttempt(taskType, outcome string, duration time.Duration) {
	c.executionAttemptsTotal.WithLabelValues(taskType, outcome).Inc()
	c.executionDuration.WithLabelValues(taskType).Observe(duration.Seconds())
}

// RecordRemediation 记录一次自动修复
func (c *Collector) RecordRemediation(issue, outcome string) {
	c.remediationsTotal.WithLabelValues(issue, outcome).Inc()
}

// RecordAgentTransition 记录一次 Agent 状态转移
func (c *Collector) RecordAgentTransition(from, to string) {
	c.agentStateTransitions.WithLabelValues(from, to).Inc()
}

// RecordConsolidation 记录一次记忆整合
func (c *Collector) RecordConsolidation() {
	c.memoryConsolidations.Inc()
}
