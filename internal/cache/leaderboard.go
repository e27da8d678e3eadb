package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"beatwise/entity"
	"beatwise/internal/config"
	"beatwise/lib/sl"

	goredis "github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "leaderboard:"
	defaultTTL = 10 * time.Second
)

type Metrics interface {
	CacheHit()
	CacheMiss()
}

// Leaderboard keeps rendered leaderboard pages in Redis for a short TTL.
// Errors are logged and treated as misses.
type Leaderboard struct {
	client  goredis.UniversalClient
	ttl     time.Duration
	metrics Metrics
	log     *slog.Logger
}

// NewRedisClient connects to the configured server, or returns nil when
// redis is disabled.
func NewRedisClient(ctx context.Context, conf *config.Config) (*goredis.Client, error) {
	if !conf.Redis.Enabled {
		return nil, nil
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func NewLeaderboard(client goredis.UniversalClient, ttl time.Duration, log *slog.Logger) *Leaderboard {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Leaderboard{
		client: client,
		ttl:    ttl,
		log:    log.With(sl.Module("cache")),
	}
}

func (c *Leaderboard) SetMetrics(m Metrics) {
	c.metrics = m
}

func pageKey(scope entity.Scope, page, size int) string {
	return fmt.Sprintf("%s%s:%d:%d", keyPrefix, scope, page, size)
}

func (c *Leaderboard) Load(ctx context.Context, scope entity.Scope, page, size int, dst interface{}) bool {
	data, err := c.client.Get(ctx, pageKey(scope, page, size)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn("load page", sl.Err(err))
		}
		c.miss()
		return false
	}
	if err = json.Unmarshal(data, dst); err != nil {
		c.log.Warn("decode page", sl.Err(err))
		c.miss()
		return false
	}
	if c.metrics != nil {
		c.metrics.CacheHit()
	}
	return true
}

func (c *Leaderboard) Store(ctx context.Context, scope entity.Scope, page, size int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("encode page", sl.Err(err))
		return
	}
	if err = c.client.Set(ctx, pageKey(scope, page, size), data, c.ttl).Err(); err != nil {
		c.log.Warn("store page", sl.Err(err))
	}
}

// Flush drops every cached page; used after administrative resets.
func (c *Leaderboard) Flush(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err = c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (c *Leaderboard) miss() {
	if c.metrics != nil {
		c.metrics.CacheMiss()
	}
}
