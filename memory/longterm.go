package memory

import (
	"context"
	"errors"
	"time"

	"github.com/goblinos/overmind/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// minEpisodeMessages 不足这个消息数的会话片段不值得固化为情节
const minEpisodeMessages = 2

// LongTerm 长期记忆层。自身不持有数据，所有读写编排到 Store 后端。
type LongTerm struct {
	store  Store
	logger *zap.Logger
}

// NewLongTerm 创建长期记忆层
func NewLongTerm(store Store, logger *zap.Logger) (*LongTerm, error) {
	if store == nil {
		return nil, types.NewError(types.ErrValidation, "long-term memory requires a store backend")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LongTerm{
		store:  store,
		logger: logger.With(zap.String("component", "memory.longterm")),
	}, nil
}

// Remember 保存一条记忆；retention 非零时条目在该时长后过期
func (l *LongTerm) Remember(ctx context.Context, content string, importance Importance, retention time.Duration) (*Entry, error) {
	if content == "" {
		return nil, types.NewError(types.ErrValidation, "memory content must not be empty")
	}
	if !importance.Valid() {
		return nil, types.NewErrorf(types.ErrValidation, "unknown importance level %q", importance)
	}

	entry := NewEntry(content, importance)
	if retention > 0 {
		entry.ExpiresAt = entry.CreatedAt.Add(retention)
	}
	if err := l.store.SaveEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Search 按条件检索记忆条目
func (l *LongTerm) Search(ctx context.Context, q Query) ([]*Entry, error) {
	return l.store.SearchEntries(ctx, q)
}

// UpsertEntity 按名字（大小写不敏感）去重保存实体。
// 已存在时提及计数递增、LastSeen 刷新，置信度取新旧较大者，
// 描述只在新值非空时覆盖。
func (l *LongTerm) UpsertEntity(ctx context.Context, name, entityType, description string, confidence float64) (*Entity, error) {
	if name == "" {
		return nil, types.NewError(types.ErrValidation, "entity name must not be empty")
	}

	now := time.Now()
	existing, err := l.store.FindEntityByName(ctx, name)
	switch {
	case errors.Is(err, ErrNotFound):
		existing = &Entity{
			ID:          uuid.New().String(),
			Name:        name,
			Type:        entityType,
			Description: description,
			Confidence:  confidence,
			Mentions:    1,
			FirstSeen:   now,
			LastSeen:    now,
		}
	case err != nil:
		return nil, err
	default:
		existing.Mentions++
		existing.LastSeen = now
		if confidence > existing.Confidence {
			existing.Confidence = confidence
		}
		if description != "" {
			existing.Description = description
		}
	}

	if err := l.store.SaveEntity(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Entities 返回全部已知实体
func (l *LongTerm) Entities(ctx context.Context) ([]*Entity, error) {
	return l.store.ListEntities(ctx)
}

// RecordEpisode 把一段有界会话固化为情节。消息数不足最小值时拒绝。
func (l *LongTerm) RecordEpisode(ctx context.Context, summary string, messageCount int, importance Importance, startedAt, endedAt time.Time) (*Episode, error) {
	if messageCount < minEpisodeMessages {
		return nil, types.NewErrorf(types.ErrValidation,
			"episode requires at least %d messages, got %d", minEpisodeMessages, messageCount)
	}
	if summary == "" {
		return nil, types.NewError(types.ErrValidation, "episode summary must not be empty")
	}

	ep := &Episode{
		ID:           uuid.New().String(),
		Summary:      summary,
		MessageCount: messageCount,
		Importance:   importance,
		StartedAt:    startedAt,
		EndedAt:      endedAt,
	}
	if err := l.store.SaveEpisode(ctx, ep); err != nil {
		return nil, err
	}
	return ep, nil
}

// Episodes 返回最近的情节
func (l *LongTerm) Episodes(ctx context.Context, limit int) ([]*Episode, error) {
	return l.store.ListEpisodes(ctx, limit)
}

// Cleanup 删除已过期的记忆条目
func (l *LongTerm) Cleanup(ctx context.Context) (int, error) {
	removed, err := l.store.Cleanup(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		l.logger.Debug("expired memories removed", zap.Int("count", removed))
	}
	return removed, nil
}
