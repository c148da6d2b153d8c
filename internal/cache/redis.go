package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/tubematch/internal/config"
)

// likeCountTTL is how long an idle like counter stays cached.
const likeCountTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	return c.Client.Del(ctx, keys...).Err()
}

// KeyForLikeCount generates Redis key for a user's like count
func (c *RedisCache) KeyForLikeCount(userID uint64) string {
	return fmt.Sprintf("likes:count:%d", userID)
}

// SetLikeCount caches count for userID with a fresh TTL.
func (c *RedisCache) SetLikeCount(ctx context.Context, userID uint64, count int64) error {
	return c.Client.Set(ctx, c.KeyForLikeCount(userID), count, likeCountTTL).Err()
}

// GetLikeCount returns the cached count; ok is false on a miss.
// A hit refreshes the TTL since the user is active.
func (c *RedisCache) GetLikeCount(ctx context.Context, userID uint64) (count int64, ok bool, err error) {
	key := c.KeyForLikeCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	_ = c.Client.Expire(ctx, key, likeCountTTL).Err()
	return n, true, nil
}

// InvalidateLikeCount drops the cached count. The next read recounts from the
// ledger, which stays correct when a like flips to a pass or back.
func (c *RedisCache) InvalidateLikeCount(ctx context.Context, userID uint64) error {
	return c.Del(ctx, c.KeyForLikeCount(userID))
}

//
// Deck pages
//

func (c *RedisCache) deckVersionKey(userID uint64) string {
	return fmt.Sprintf("deck:ver:%d", userID)
}

func (c *RedisCache) deckPageKey(userID uint64, version int64, limit, offset int) string {
	return fmt.Sprintf("deck:%d:v%d:%d:%d", userID, version, limit, offset)
}

func (c *RedisCache) deckVersion(ctx context.Context, userID uint64) (int64, error) {
	v, err := c.Client.Get(ctx, c.deckVersionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// GetDeckPage returns a cached, JSON encoded deck page; ok is false on a miss.
func (c *RedisCache) GetDeckPage(ctx context.Context, userID uint64, limit, offset int) ([]byte, bool, error) {
	ver, err := c.deckVersion(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	b, err := c.Client.Get(ctx, c.deckPageKey(userID, ver, limit, offset)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *RedisCache) SetDeckPage(ctx context.Context, userID uint64, limit, offset int, page []byte, ttl time.Duration) error {
	ver, err := c.deckVersion(ctx, userID)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, c.deckPageKey(userID, ver, limit, offset), page, ttl).Err()
}

// InvalidateDeck bumps userID's deck version so every cached page is skipped
// and left to expire.
func (c *RedisCache) InvalidateDeck(ctx context.Context, userID uint64) error {
	return c.Client.Incr(ctx, c.deckVersionKey(userID)).Err()
}
