package memory

import (
	"context"
	"testing"
	"time"

	"github.com/goblinos/overmind/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLongTerm(t *testing.T) *LongTerm {
	t.Helper()
	l, err := NewLongTerm(NewInMemoryStore(), nil)
	require.NoError(t, err)
	return l
}

func TestNewLongTermRequiresStore(t *testing.T) {
	_, err := NewLongTerm(nil, nil)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrValidation))
}

func TestRememberValidation(t *testing.T) {
	l := newTestLongTerm(t)
	ctx := context.Background()

	_, err := l.Remember(ctx, "", ImportanceMedium, 0)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrValidation))

	_, err = l.Remember(ctx, "something", "urgent", 0)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrValidation))
}

func TestRememberWithRetention(t *testing.T) {
	l := newTestLongTerm(t)
	ctx := context.Background()

	forever, err := l.Remember(ctx, "permanent fact", ImportanceHigh, 0)
	require.NoError(t, err)
	assert.True(t, forever.ExpiresAt.IsZero())

	bounded, err := l.Remember(ctx, "short lived fact", ImportanceLow, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, bounded.CreatedAt.Add(time.Hour), bounded.ExpiresAt)

	out, err := l.Search(ctx, Query{Text: "fact"})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestUpsertEntityMergesByName(t *testing.T) {
	l := newTestLongTerm(t)
	ctx := context.Background()

	first, err := l.UpsertEntity(ctx, "PostgreSQL", "database", "primary datastore", 0.8)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Mentions)

	// 大小写不同仍视为同一实体；置信度取较大者，描述非空才覆盖
	second, err := l.UpsertEntity(ctx, "postgresql", "database", "", 0.5)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Mentions)
	assert.Equal(t, 0.8, second.Confidence)
	assert.Equal(t, "primary datastore", second.Description)

	third, err := l.UpsertEntity(ctx, "POSTGRESQL", "database", "moved to cluster", 0.95)
	require.NoError(t, err)
	assert.Equal(t, 3, third.Mentions)
	assert.Equal(t, 0.95, third.Confidence)
	assert.Equal(t, "moved to cluster", third.Description)

	all, err := l.Entities(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpsertEntityRequiresName(t *testing.T) {
	l := newTestLongTerm(t)
	_, err := l.UpsertEntity(context.Background(), "", "database", "", 0.5)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrValidation))
}

func TestRecordEpisodeMinimumMessages(t *testing.T) {
	l := newTestLongTerm(t)
	ctx := context.Background()
	now := time.Now()

	_, err := l.RecordEpisode(ctx, "too short", 1, ImportanceMedium, now, now)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrValidation))

	_, err = l.RecordEpisode(ctx, "", 3, ImportanceMedium, now, now)
	require.Error(t, err)

	ep, err := l.RecordEpisode(ctx, "debugging session about the cache", 5, ImportanceHigh, now.Add(-time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, 5, ep.MessageCount)

	out, err := l.Episodes(ctx, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, ep.ID, out[0].ID)
}

func TestLongTermCleanup(t *testing.T) {
	l := newTestLongTerm(t)
	ctx := context.Background()

	_, err := l.Remember(ctx, "keep", ImportanceMedium, time.Hour)
	require.NoError(t, err)

	// 直接写入一条已过期条目模拟超龄数据
	stale := NewEntry("stale", ImportanceLow)
	stale.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, l.store.SaveEntry(ctx, stale))

	removed, err := l.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
