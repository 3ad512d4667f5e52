package memory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreFromClient(client, "test:memory", nil), mr
}

func TestRedisStoreEntryRoundTrip(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	e := NewEntry("the deploy failed on staging", ImportanceHigh)
	require.NoError(t, s.SaveEntry(ctx, e))

	out, err := s.SearchEntries(ctx, Query{Text: "deploy"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, e.ID, out[0].ID)
	assert.Equal(t, ImportanceHigh, out[0].Importance)

	out, err = s.SearchEntries(ctx, Query{Text: "production"})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRedisStoreEntryTTL(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	e := NewEntry("ephemeral note", ImportanceLow)
	e.ExpiresAt = time.Now().Add(time.Minute)
	require.NoError(t, s.SaveEntry(ctx, e))

	out, err := s.SearchEntries(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, out, 1)

	// Redis TTL 到期后条目消失
	mr.FastForward(2 * time.Minute)
	out, err = s.SearchEntries(ctx, Query{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRedisStoreSkipsAlreadyExpiredEntry(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	e := NewEntry("born expired", ImportanceLow)
	e.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, s.SaveEntry(ctx, e))

	out, err := s.SearchEntries(ctx, Query{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRedisStoreEntityCaseInsensitive(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveEntity(ctx, &Entity{ID: "e-1", Name: "Kafka", Mentions: 3}))

	e, err := s.FindEntityByName(ctx, "kafka")
	require.NoError(t, err)
	assert.Equal(t, "e-1", e.ID)

	_, err = s.FindEntityByName(ctx, "pulsar")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreListEntitiesByMentions(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveEntity(ctx, &Entity{ID: "e-1", Name: "redis", Mentions: 2}))
	require.NoError(t, s.SaveEntity(ctx, &Entity{ID: "e-2", Name: "kafka", Mentions: 7}))

	out, err := s.ListEntities(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "kafka", out[0].Name)
}

func TestRedisStoreEpisodesRecentFirst(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, s.SaveEpisode(ctx, &Episode{ID: "ep-1", Summary: "older", EndedAt: base.Add(-time.Hour)}))
	require.NoError(t, s.SaveEpisode(ctx, &Episode{ID: "ep-2", Summary: "newer", EndedAt: base}))

	// LPUSH 语义：后写入的在表头
	out, err := s.ListEpisodes(ctx, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "newer", out[0].Summary)

	out, err = s.ListEpisodes(ctx, 1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "ep-2", out[0].ID)
}

func TestRedisStoreCleanupScan(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	keep := NewEntry("keep me", ImportanceMedium)
	require.NoError(t, s.SaveEntry(ctx, keep))

	doomed := NewEntry("doomed", ImportanceLow)
	doomed.ExpiresAt = time.Now().Add(time.Hour)
	require.NoError(t, s.SaveEntry(ctx, doomed))

	// TTL 还没走完，但按给定时刻判断已过期的条目被兜底扫描删除
	removed, err := s.Cleanup(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	out, err := s.SearchEntries(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "keep me", out[0].Content)
}
