package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig Redis 后端配置
type RedisConfig struct {
	// Redis 地址
	Addr string `yaml:"addr" json:"addr"`

	// 密码
	Password string `yaml:"password" json:"password"`

	// 数据库编号
	DB int `yaml:"db" json:"db"`

	// 键前缀
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`

	// 连接池大小
	PoolSize int `yaml:"pool_size" json:"pool_size"`

	// 最大重试次数
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:       "localhost:6379",
		KeyPrefix:  "overmind:memory",
		PoolSize:   10,
		MaxRetries: 3,
	}
}

// RedisStore Redis 版持久化后端。
// 记忆条目与实体各占一个键，情节存在一个列表里；
// 条目的过期由 Redis TTL 承担，Cleanup 因此通常是空操作。
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore 创建 Redis 后端并验证连接
func NewRedisStore(config RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "overmind:memory"
	}

	client := redis.NewClient(&redis.Options{
		Addr:       config.Addr,
		Password:   config.Password,
		DB:         config.DB,
		PoolSize:   config.PoolSize,
		MaxRetries: config.MaxRetries,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis memory store initialized", zap.String("addr", config.Addr))

	return &RedisStore{
		client: client,
		prefix: config.KeyPrefix,
		logger: logger.With(zap.String("component", "memory.redis")),
	}, nil
}

// NewRedisStoreFromClient 用现成的客户端创建 Redis 后端，测试用
func NewRedisStoreFromClient(client *redis.Client, prefix string, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "overmind:memory"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger.With(zap.String("component", "memory.redis")),
	}
}

func (s *RedisStore) entryKey(id string) string   { return s.prefix + ":entry:" + id }
func (s *RedisStore) entityDBKey(n string) string { return s.prefix + ":entity:" + entityKey(n) }
func (s *RedisStore) episodeListKey() string      { return s.prefix + ":episodes" }

// SaveEntry 保存记忆条目；ExpiresAt 非零时转换为 Redis TTL
func (s *RedisStore) SaveEntry(ctx context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	var ttl time.Duration
	if !entry.ExpiresAt.IsZero() {
		ttl = time.Until(entry.ExpiresAt)
		if ttl <= 0 {
			// 已过期的条目不入库
			return nil
		}
	}

	if err := s.client.Set(ctx, s.entryKey(entry.ID), data, ttl).Err(); err != nil {
		s.logger.Error("entry save failed", zap.String("id", entry.ID), zap.Error(err))
		return fmt.Errorf("entry save failed: %w", err)
	}
	return nil
}

// SearchEntries 扫描条目键并在进程内过滤。
// 数据量大时应换全文索引，当前规模下 SCAN 足够。
func (s *RedisStore) SearchEntries(ctx context.Context, q Query) ([]*Entry, error) {
	var out []*Entry
	iter := s.client.Scan(ctx, 0, s.prefix+":entry:*", 0).Iterator()
	for iter.Next(ctx) {
		val, err := s.client.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("entry get failed: %w", err)
		}
		var e Entry
		if err := json.Unmarshal([]byte(val), &e); err != nil {
			s.logger.Warn("skipping undecodable entry", zap.String("key", iter.Val()), zap.Error(err))
			continue
		}
		if matchQuery(&e, q) {
			out = append(out, &e)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("entry scan failed: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// SaveEntity 保存实体
func (s *RedisStore) SaveEntity(ctx context.Context, entity *Entity) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}
	if err := s.client.Set(ctx, s.entityDBKey(entity.Name), data, 0).Err(); err != nil {
		return fmt.Errorf("entity save failed: %w", err)
	}
	return nil
}

// FindEntityByName 按名字查找实体
func (s *RedisStore) FindEntityByName(ctx context.Context, name string) (*Entity, error) {
	val, err := s.client.Get(ctx, s.entityDBKey(name)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("entity get failed: %w", err)
	}
	var e Entity
	if err := json.Unmarshal([]byte(val), &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return &e, nil
}

// ListEntities 返回全部实体
func (s *RedisStore) ListEntities(ctx context.Context) ([]*Entity, error) {
	var out []*Entity
	iter := s.client.Scan(ctx, 0, s.prefix+":entity:*", 0).Iterator()
	for iter.Next(ctx) {
		val, err := s.client.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("entity get failed: %w", err)
		}
		var e Entity
		if err := json.Unmarshal([]byte(val), &e); err != nil {
			continue
		}
		out = append(out, &e)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("entity scan failed: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mentions > out[j].Mentions })
	return out, nil
}

// SaveEpisode 保存情节
func (s *RedisStore) SaveEpisode(ctx context.Context, episode *Episode) error {
	data, err := json.Marshal(episode)
	if err != nil {
		return fmt.Errorf("failed to marshal episode: %w", err)
	}
	if err := s.client.LPush(ctx, s.episodeListKey(), data).Err(); err != nil {
		return fmt.Errorf("episode save failed: %w", err)
	}
	return nil
}

// ListEpisodes 返回最近的情节
func (s *RedisStore) ListEpisodes(ctx context.Context, limit int) ([]*Episode, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	vals, err := s.client.LRange(ctx, s.episodeListKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("episode list failed: %w", err)
	}
	out := make([]*Episode, 0, len(vals))
	for _, val := range vals {
		var ep Episode
		if err := json.Unmarshal([]byte(val), &ep); err != nil {
			continue
		}
		out = append(out, &ep)
	}
	return out, nil
}

// Cleanup 过期由 Redis TTL 承担，这里只做显式兜底扫描
func (s *RedisStore) Cleanup(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	iter := s.client.Scan(ctx, 0, s.prefix+":entry:*", 0).Iterator()
	for iter.Next(ctx) {
		val, err := s.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(val), &e); err != nil {
			continue
		}
		if e.Expired(now) {
			if err := s.client.Del(ctx, iter.Val()).Err(); err == nil {
				removed++
			}
		}
	}
	return removed, iter.Err()
}

// Close 关闭 Redis 连接
func (s *RedisStore) Close() error {
	return s.client.Close()
}
