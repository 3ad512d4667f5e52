package memory

import (
	"time"

	"github.com/google/uuid"
)

// Importance 记忆条目的重要性等级
type Importance string

const (
	ImportanceLow      Importance = "low"
	ImportanceMedium   Importance = "medium"
	ImportanceHigh     Importance = "high"
	ImportanceCritical Importance = "critical"
)

// importanceRank 等级序，用于阈值比较
var importanceRank = map[Importance]int{
	ImportanceLow:      1,
	ImportanceMedium:   2,
	ImportanceHigh:     3,
	ImportanceCritical: 4,
}

// AtLeast 报告 i 是否不低于 min
func (i Importance) AtLeast(min Importance) bool {
	return importanceRank[i] >= importanceRank[min]
}

// Valid 报告 i 是否为已知等级
func (i Importance) Valid() bool {
	_, ok := importanceRank[i]
	return ok
}

// Entry 一条长期记忆
type Entry struct {
	ID          string            `json:"id"`
	Content     string            `json:"content"`
	Type        string            `json:"type,omitempty"`
	Importance  Importance        `json:"importance"`
	CreatedAt   time.Time         `json:"created_at"`
	ExpiresAt   time.Time         `json:"expires_at,omitempty"`
	AccessCount int               `json:"access_count"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewEntry 创建记忆条目；id 为空时生成 uuid
func NewEntry(content string, importance Importance) *Entry {
	return &Entry{
		ID:         uuid.New().String(),
		Content:    content,
		Importance: importance,
		CreatedAt:  time.Now(),
	}
}

// Expired 报告条目在 now 时刻是否已过期；零值 ExpiresAt 表示永不过期
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Entity 从对话中抽取的命名实体。
// 按名字（大小写不敏感）去重：重复出现时提及计数递增，
// 置信度取新旧两值中的较大者。
type Entity struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type,omitempty"`
	Description string    `json:"description,omitempty"`
	Confidence  float64   `json:"confidence"`
	Mentions    int       `json:"mentions"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
}

// Episode 概括一段有界会话的长期情节记忆
type Episode struct {
	ID           string     `json:"id"`
	Summary      string     `json:"summary"`
	MessageCount int        `json:"message_count"`
	Importance   Importance `json:"importance"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      time.Time  `json:"ended_at"`
}

// SearchResult 跨层检索的一条命中
type SearchResult struct {
	Tier    string  `json:"tier"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}
