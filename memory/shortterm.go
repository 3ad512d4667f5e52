package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/goblinos/overmind/types"
)

// shortItem 短期缓冲中的一条消息
type shortItem struct {
	msg          types.Message
	importance   Importance
	addedAt      time.Time
	consolidated bool
}

// ShortTerm 带 TTL 的有界会话消息缓冲
type ShortTerm struct {
	mu       sync.Mutex
	items    []shortItem
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

const (
	defaultShortTermCapacity = 50
	defaultShortTermTTL      = 30 * time.Minute
)

// NewShortTerm 创建短期缓冲；capacity/ttl 非正时取默认值
func NewShortTerm(capacity int, ttl time.Duration) *ShortTerm {
	if capacity <= 0 {
		capacity = defaultShortTermCapacity
	}
	if ttl <= 0 {
		ttl = defaultShortTermTTL
	}
	return &ShortTerm{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Add 追加一条消息。先清除已过期条目；超出容量时丢弃最旧的一条。
func (s *ShortTerm) Add(msg types.Message, importance Importance) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired(s.now())
	s.items = append(s.items, shortItem{msg: msg, importance: importance, addedAt: s.now()})
	if len(s.items) > s.capacity {
		s.items = s.items[1:]
	}
}

// GetRecent 返回最近的 n 条未过期消息（时间升序）；n<=0 返回全部
func (s *ShortTerm) GetRecent(n int) []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired(s.now())
	items := s.items
	if n > 0 && len(items) > n {
		items = items[len(items)-n:]
	}
	out := make([]types.Message, len(items))
	for i, it := range items {
		out[i] = it.msg
	}
	return out
}

// Cleanup 清除过期条目，返回清除数量
func (s *ShortTerm) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.items)
	s.evictExpired(s.now())
	return before - len(s.items)
}

// Len 返回未过期条目数
func (s *ShortTerm) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired(s.now())
	return len(s.items)
}

// drain 取出重要性不低于 min 且尚未固化的条目，并打上固化标记。
// 候选数不足 want 时不取出任何条目，留待下一轮积累。
// 条目仍留在缓冲里供近期检索，到 TTL 后照常淘汰；标记保证
// 每条消息只进入一次情节。
func (s *ShortTerm) drain(min Importance, want int) []shortItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired(s.now())
	var idx []int
	for i := range s.items {
		if !s.items[i].consolidated && s.items[i].importance.AtLeast(min) {
			idx = append(idx, i)
		}
	}
	if len(idx) < want {
		return nil
	}
	out := make([]shortItem, 0, len(idx))
	for _, i := range idx {
		s.items[i].consolidated = true
		out = append(out, s.items[i])
	}
	return out
}

// search 按子串匹配返回命中的消息内容
func (s *ShortTerm) search(query string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired(s.now())
	q := strings.ToLower(query)
	var out []string
	for _, it := range s.items {
		if strings.Contains(strings.ToLower(it.msg.Content), q) {
			out = append(out, it.msg.Content)
		}
	}
	return out
}

// evictExpired 调用方必须持有 s.mu
func (s *ShortTerm) evictExpired(now time.Time) {
	cutoff := now.Add(-s.ttl)
	i := 0
	for i < len(s.items) && !s.items[i].addedAt.After(cutoff) {
		i++
	}
	if i > 0 {
		s.items = append(s.items[:0:0], s.items[i:]...)
	}
}
