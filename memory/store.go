package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNotFound 目标记录不存在
var ErrNotFound = fmt.Errorf("memory: not found")

// Query 长期记忆的检索条件
type Query struct {
	// Text 子串匹配的检索词；空串命中所有条目
	Text string

	// MinImportance 最低重要性；空值不过滤
	MinImportance Importance

	// Since 只返回该时刻之后创建的条目；零值不过滤
	Since time.Time

	// Limit 返回条数上限；非正数不限制
	Limit int
}

// Store 长期记忆的持久化后端。
// 长期层只做编排，所有读写都经由这个契约；
// 内存实现与 Redis 实现都必须满足同一套语义。
type Store interface {
	// SaveEntry 保存记忆条目（按 ID 覆盖）
	SaveEntry(ctx context.Context, entry *Entry) error

	// SearchEntries 按条件检索记忆条目，时间降序
	SearchEntries(ctx context.Context, q Query) ([]*Entry, error)

	// SaveEntity 保存实体（按规范化名字覆盖）
	SaveEntity(ctx context.Context, entity *Entity) error

	// FindEntityByName 按名字（大小写不敏感）查找实体；不存在返回 ErrNotFound
	FindEntityByName(ctx context.Context, name string) (*Entity, error)

	// ListEntities 返回全部实体，提及次数降序
	ListEntities(ctx context.Context) ([]*Entity, error)

	// SaveEpisode 保存情节
	SaveEpisode(ctx context.Context, episode *Episode) error

	// ListEpisodes 返回最近的情节，结束时间降序
	ListEpisodes(ctx context.Context, limit int) ([]*Episode, error)

	// Cleanup 删除在 now 时刻已过期的记忆条目，返回删除数量
	Cleanup(ctx context.Context, now time.Time) (int, error)

	// Close 释放后端资源
	Close() error
}

// entityKey 实体名字的规范化键
func entityKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// matchQuery 报告条目是否满足检索条件
func matchQuery(e *Entry, q Query) bool {
	if q.Text != "" && !strings.Contains(strings.ToLower(e.Content), strings.ToLower(q.Text)) {
		return false
	}
	if q.MinImportance != "" && !e.Importance.AtLeast(q.MinImportance) {
		return false
	}
	if !q.Since.IsZero() && e.CreatedAt.Before(q.Since) {
		return false
	}
	return true
}

// InMemoryStore 内存版持久化后端，测试与单机部署用
type InMemoryStore struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	entities map[string]*Entity
	episodes []*Episode
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore 创建内存后端
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries:  make(map[string]*Entry),
		entities: make(map[string]*Entity),
	}
}

// SaveEntry 保存记忆条目
func (s *InMemoryStore) SaveEntry(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.entries[entry.ID] = &cp
	return nil
}

// SearchEntries 按条件检索记忆条目
func (s *InMemoryStore) SearchEntries(_ context.Context, q Query) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Entry
	for _, e := range s.entries {
		if matchQuery(e, q) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// SaveEntity 保存实体
func (s *InMemoryStore) SaveEntity(_ context.Context, entity *Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entity
	s.entities[entityKey(entity.Name)] = &cp
	return nil
}

// FindEntityByName 按名字查找实体
func (s *InMemoryStore) FindEntityByName(_ context.Context, name string) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[entityKey(name)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// ListEntities 返回全部实体
func (s *InMemoryStore) ListEntities(_ context.Context) ([]*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Entity, 0, len(s.entities))
	for _, e := range s.entities {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mentions > out[j].Mentions })
	return out, nil
}

// SaveEpisode 保存情节
func (s *InMemoryStore) SaveEpisode(_ context.Context, episode *Episode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *episode
	s.episodes = append(s.episodes, &cp)
	return nil
}

// ListEpisodes 返回最近的情节
func (s *InMemoryStore) ListEpisodes(_ context.Context, limit int) ([]*Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Episode, len(s.episodes))
	for i, ep := range s.episodes {
		cp := *ep
		out[i] = &cp
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EndedAt.After(out[j].EndedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Cleanup 删除已过期的记忆条目
func (s *InMemoryStore) Cleanup(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if e.Expired(now) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Close 内存后端无资源可释放
func (s *InMemoryStore) Close() error { return nil }
