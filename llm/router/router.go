package router

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goblinos/overmind/internal/metrics"
	"github.com/goblinos/overmind/llm"
	"github.com/goblinos/overmind/types"
	"go.uber.org/zap"
)

// Strategy 路由策略
type Strategy string

const (
	StrategyCostOptimized    Strategy = "cost_optimized"
	StrategyLatencyOptimized Strategy = "latency_optimized"
	StrategyCascading        Strategy = "cascading"
	StrategyLocalFirst       Strategy = "local_first"
	StrategyPredictive       Strategy = "predictive"
)

// predictive 策略的固定权重
const (
	predictiveCapabilityWeight = 0.5
	predictiveCostWeight       = 0.3
	predictiveLatencyWeight    = 0.2
)

const minPreferredCapability = 7

// Policy 路由策略配置。由验证构造器一次性产出，之后不可变。
type Policy struct {
	Strategy            Strategy
	FailoverEnabled     bool
	MonthlyCallVolume   int     // 预估月调用量
	MediumCostThreshold int     // local_first：低于该月调用量直接选本地
	LocalSavingsBar     float64 // local_first：相对最优云端的月节省门槛（USD）
}

// NewPolicy 校验并构造路由策略配置
func NewPolicy(strategy Strategy, failover bool) (Policy, error) {
	switch strategy {
	case StrategyCostOptimized, StrategyLatencyOptimized, StrategyCascading,
		StrategyLocalFirst, StrategyPredictive:
	default:
		return Policy{}, types.NewErrorf(types.ErrValidation, "unknown routing strategy %q", strategy)
	}
	return Policy{
		Strategy:            strategy,
		FailoverEnabled:     failover,
		MonthlyCallVolume:   5000,
		MediumCostThreshold: 10000,
		LocalSavingsBar:     10.0,
	}, nil
}

// Request 一次路由请求
type Request struct {
	Prompt     string
	Complexity Complexity // 为空时由 Prompt 分级
	Attempt    int        // 第几次尝试，从 1 开始；cascading 依赖该值
	Policy     Policy
}

// Decision 路由决策。产出后不可变；每次尝试产出新决策。
type Decision struct {
	SelectedBackend  string        `json:"selected_backend"`
	SelectedModel    string        `json:"selected_model"`
	Reason           string        `json:"reason"`
	EstimatedCost    float64       `json:"estimated_cost"`
	EstimatedLatency time.Duration `json:"estimated_latency"`
	Complexity       Complexity    `json:"complexity"`
	Timestamp        time.Time     `json:"timestamp"`
}

// Router 在固定能力表上执行多策略选择
type Router struct {
	table     CapabilityTable
	available map[string]bool // backend -> 可用性
	mu        sync.RWMutex
	collector *metrics.Collector
	logger    *zap.Logger
}

// New 创建路由器。table 为 nil 时使用内置能力表。
func New(table CapabilityTable, collector *metrics.Collector, logger *zap.Logger) *Router {
	if table == nil {
		table = DefaultCapabilityTable()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		table:     table,
		available: make(map[string]bool),
		collector: collector,
		logger:    logger.With(zap.String("component", "router")),
	}
	// 默认所有表内后端可用，由探活或宿主显式降级
	for _, candidates := range table {
		for _, c := range candidates {
			r.available[c.Backend] = true
		}
	}
	return r
}

// SetAvailable 标记后端可用性
func (r *Router) SetAvailable(backend string, available bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.available[backend] = available
}

// Available reports whether a backend is currently marked available.
func (r *Router) Available(backend string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.available[backend]
}

// Route 计算复杂度并按策略选择 (后端, 模型)
func (r *Router) Route(ctx context.Context, req *Request) (*Decision, error) {
	if req == nil || req.Prompt == "" {
		return nil, types.NewError(types.ErrValidation, "route request has no prompt")
	}
	complexity := req.Complexity
	if complexity == "" {
		complexity = ClassifyComplexity(req.Prompt)
	}

	candidates := r.availableCandidates(complexity)
	if len(candidates) == 0 {
		return nil, types.NewErrorf(types.ErrProviderUnavailable,
			"no available backend for complexity %s", complexity).WithRetryable(false)
	}

	var (
		selected Candidate
		reason   string
	)
	switch req.Policy.Strategy {
	case StrategyLatencyOptimized:
		selected, reason = pickLatencyOptimized(candidates)
	case StrategyCascading:
		selected, reason = pickCascading(candidates, req.Attempt)
	case StrategyLocalFirst:
		selected, reason = r.pickLocalFirst(candidates, req)
	case StrategyPredictive:
		selected, reason = pickPredictive(candidates)
	default:
		selected, reason = pickCostOptimized(candidates)
	}

	decision := &Decision{
		SelectedBackend:  selected.Backend,
		SelectedModel:    selected.Model,
		Reason:           reason,
		EstimatedCost:    selected.EstimatedCost(),
		EstimatedLatency: selected.Latency,
		Complexity:       complexity,
		Timestamp:        time.Now(),
	}

	if r.collector != nil {
		r.collector.RecordRouteDecision(string(req.Policy.Strategy), selected.Backend, string(complexity))
	}
	r.logger.Debug("route decision",
		zap.String("strategy", string(req.Policy.Strategy)),
		zap.String("backend", selected.Backend),
		zap.String("model", selected.Model),
		zap.String("complexity", string(complexity)),
		zap.String("reason", reason))

	return decision, nil
}

// Failover 返回同层级中第一个可用且不同于故障后端的候选。
// 策略禁用 failover 或无候选时返回 nil。
func (r *Router) Failover(failedBackend string, complexity Complexity, policy Policy) *Decision {
	if !policy.FailoverEnabled {
		return nil
	}
	for _, c := range r.availableCandidates(complexity) {
		if c.Backend == failedBackend {
			continue
		}
		return &Decision{
			SelectedBackend:  c.Backend,
			SelectedModel:    c.Model,
			Reason:           "failover from " + failedBackend,
			EstimatedCost:    c.EstimatedCost(),
			EstimatedLatency: c.Latency,
			Complexity:       complexity,
			Timestamp:        time.Now(),
		}
	}
	return nil
}

// ProbeHealth 用 Provider 探活刷新后端可用性。
// 未注入 provider 的后端保持现状，避免误报。
func (r *Router) ProbeHealth(ctx context.Context, providers map[string]llm.Provider) {
	for backend, p := range providers {
		if p == nil {
			continue
		}
		status, err := p.HealthCheck(ctx)
		healthy := err == nil && status != nil && status.Healthy
		r.SetAvailable(backend, healthy)
		if err != nil {
			r.logger.Warn("backend health check failed",
				zap.String("backend", backend), zap.Error(err))
		}
	}
}

func (r *Router) availableCandidates(complexity Complexity) []Candidate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Candidate
	for _, c := range r.table[complexity] {
		if r.available[c.Backend] {
			result = append(result, c)
		}
	}
	return result
}

func pickCostOptimized(candidates []Candidate) (Candidate, string) {
	sorted := append([]Candidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EstimatedCost() < sorted[j].EstimatedCost()
	})
	for _, c := range sorted {
		if c.Capability >= minPreferredCapability {
			return c, "cheapest candidate with capability >= 7"
		}
	}
	return sorted[0], "cheapest available candidate"
}

func pickLatencyOptimized(candidates []Candidate) (Candidate, string) {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Latency < best.Latency {
			best = c
		}
	}
	return best, "lowest known latency"
}

func pickCascading(candidates []Candidate, attempt int) (Candidate, string) {
	sorted := append([]Candidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].InputCost < sorted[j].InputCost
	})
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx > len(sorted)-1 {
		idx = len(sorted) - 1
	}
	return sorted[idx], "cascading escalation step"
}

func pickPredictive(candidates []Candidate) (Candidate, string) {
	best := candidates[0]
	bestScore := predictiveScore(best)
	for _, c := range candidates[1:] {
		if s := predictiveScore(c); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best, "highest predictive score"
}

func predictiveScore(c Candidate) float64 {
	score := predictiveCapabilityWeight * float64(c.Capability)
	if cost := c.EstimatedCost(); cost > 0 {
		score += predictiveCostWeight * (1 / cost)
	} else {
		// 零成本（本地）按极低成本处理，避免除零
		score += predictiveCostWeight * 1000
	}
	if sec := c.Latency.Seconds(); sec > 0 {
		score += predictiveLatencyWeight * (1 / sec)
	}
	return score
}

// pickLocalFirst 本地优先：量级或节省任一条件满足即选本地，
// 否则退回云端候选的成本优先选择。
func (r *Router) pickLocalFirst(candidates []Candidate, req *Request) (Candidate, string) {
	var local *Candidate
	var cloud []Candidate
	for i, c := range candidates {
		if c.Local() {
			if local == nil {
				local = &candidates[i]
			}
		} else {
			cloud = append(cloud, c)
		}
	}

	if local != nil {
		pick := *local
		pick.Model = LocalModelFor(DetectTaskKind(req.Prompt))

		if req.Policy.MonthlyCallVolume < req.Policy.MediumCostThreshold {
			return pick, "local backend within volume threshold"
		}
		if len(cloud) > 0 {
			bestCloud, _ := pickCostOptimized(cloud)
			savings := (bestCloud.EstimatedCost() - pick.EstimatedCost()) * float64(req.Policy.MonthlyCallVolume)
			if savings > req.Policy.LocalSavingsBar {
				return pick, "local backend saves over monthly bar"
			}
		} else {
			return pick, "local backend is the only candidate"
		}
	}

	if len(cloud) == 0 {
		// local != nil 在上面已经兜底；到这里只剩本地
		return *local, "local backend is the only candidate"
	}
	selected, _ := pickCostOptimized(cloud)
	return selected, "cloud fallback, cost optimized"
}
