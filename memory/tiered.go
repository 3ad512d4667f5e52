package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goblinos/overmind/internal/metrics"
	"github.com/goblinos/overmind/types"
	"go.uber.org/zap"
)

// 各层固定检索权重
const (
	weightWorking   = 1.0
	weightLongTerm  = 0.9
	weightShortTerm = 0.8
)

// defaultConsolidationInterval 固化周期默认值
const defaultConsolidationInterval = 5 * time.Minute

// Config 分层记忆配置
type Config struct {
	// ShortTermCapacity 短期缓冲容量
	ShortTermCapacity int `yaml:"short_term_capacity" json:"short_term_capacity"`

	// ShortTermTTL 短期条目存活时长
	ShortTermTTL time.Duration `yaml:"short_term_ttl" json:"short_term_ttl"`

	// ConsolidationInterval 固化周期；非正数取默认值
	ConsolidationInterval time.Duration `yaml:"consolidation_interval" json:"consolidation_interval"`
}

// Tiered 三层记忆的聚合入口
type Tiered struct {
	short     *ShortTerm
	working   *Working
	long      *LongTerm
	interval  time.Duration
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewTiered 创建分层记忆；store 为长期层后端，collector 可为 nil
func NewTiered(cfg Config, store Store, collector *metrics.Collector, logger *zap.Logger) (*Tiered, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	long, err := NewLongTerm(store, logger)
	if err != nil {
		return nil, err
	}
	interval := cfg.ConsolidationInterval
	if interval <= 0 {
		interval = defaultConsolidationInterval
	}
	return &Tiered{
		short:     NewShortTerm(cfg.ShortTermCapacity, cfg.ShortTermTTL),
		working:   NewWorking(),
		long:      long,
		interval:  interval,
		collector: collector,
		logger:    logger.With(zap.String("component", "memory")),
	}, nil
}

// ShortTerm 返回短期层
func (t *Tiered) ShortTerm() *ShortTerm { return t.short }

// Working 返回工作层
func (t *Tiered) Working() *Working { return t.working }

// LongTerm 返回长期层
func (t *Tiered) LongTerm() *LongTerm { return t.long }

// AddMessage 把一条会话消息写入短期层
func (t *Tiered) AddMessage(msg types.Message, importance Importance) {
	t.short.Add(msg, importance)
}

// StartConsolidation 启动固化循环，ctx 取消时退出
func (t *Tiered) StartConsolidation(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := t.Consolidate(ctx); err != nil {
					t.logger.Error("consolidation failed", zap.Error(err))
				}
			}
		}
	}()
}

// Consolidate 把短期层中重要性不低于 medium 且尚未固化的条目固化为
// 一条长期情节，随后运行一次过期清理。每条消息最多进入一次情节。
func (t *Tiered) Consolidate(ctx context.Context) error {
	items := t.short.drain(ImportanceMedium, minEpisodeMessages)
	if len(items) > 0 {
		summary := summarize(items)
		started := items[0].addedAt
		ended := items[len(items)-1].addedAt
		if _, err := t.long.RecordEpisode(ctx, summary, len(items), highestImportance(items), started, ended); err != nil {
			return err
		}
		if t.collector != nil {
			t.collector.RecordConsolidation()
		}
		t.logger.Debug("short-term memories consolidated", zap.Int("messages", len(items)))
	}

	_, err := t.long.Cleanup(ctx)
	return err
}

// Search 合并三层命中，按固定层权重降序，截断到 limit
func (t *Tiered) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	var results []SearchResult

	for _, hit := range t.working.search(query) {
		results = append(results, SearchResult{Tier: "working", Content: hit, Score: weightWorking})
	}

	entries, err := t.long.Search(ctx, Query{Text: query})
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		results = append(results, SearchResult{Tier: "long_term", Content: e.Content, Score: weightLongTerm})
	}
	episodes, err := t.long.Episodes(ctx, 0)
	if err != nil {
		return nil, err
	}
	for _, ep := range episodes {
		if containsFold(ep.Summary, query) {
			results = append(results, SearchResult{Tier: "long_term", Content: ep.Summary, Score: weightLongTerm})
		}
	}

	for _, hit := range t.short.search(query) {
		results = append(results, SearchResult{Tier: "short_term", Content: hit, Score: weightShortTerm})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// summarize 把短期条目拼成情节摘要。
// 没有接模型的摘要通道，先用角色标注的逐条拼接。
func summarize(items []shortItem) string {
	var out string
	for i, it := range items {
		if i > 0 {
			out += "; "
		}
		out += fmt.Sprintf("[%s] %s", it.msg.Role, it.msg.Content)
	}
	return out
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func highestImportance(items []shortItem) Importance {
	top := ImportanceMedium
	for _, it := range items {
		if it.importance.AtLeast(top) {
			top = it.importance
		}
	}
	return top
}
