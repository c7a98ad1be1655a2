// Package cache keeps like counts in Redis in front of the document store.
// The store stays authoritative: writers delete the key after a committed
// like or unlike and readers back-fill it from the document.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LikeCntTTL bounds how long a count can outlive a failed invalidation.
const (
	LikeCntTTL       = 10 * time.Minute
	LikeCntKeyPrefix = "like:cnt"
	LikeVerKeyPrefix = "like:ver"
)

type LikeCache interface {
	// Get returns the cached count and whether it was present. On a miss it
	// also returns the fill version the caller must hand back to Set.
	Get(ctx context.Context, target, id string) (n int64, ok bool, version int64, err error)
	// Set back-fills n read from the store, unless the item was invalidated
	// after version was observed.
	Set(ctx context.Context, target, id string, n, version int64) error
	Invalidate(ctx context.Context, target, id string) error
}

// Redis guards back-fills with a per-item version key.
//
// Why a version and not a plain SET? A reader that misses, reads N from the
// store and then writes it back can land after a writer committed N+1 and
// deleted the key. The plain SET would pin the stale N until the TTL. Every
// invalidation bumps the version, and Set only writes while the version is
// still the one seen before the store read (WATCH + MULTI), so a racing
// writer always wins.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb, ttl: LikeCntTTL}
}

// Open connects to a redis:// URL and pings it.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func likeCntKey(target, id string) string {
	return fmt.Sprintf("%s:%s:%s", LikeCntKeyPrefix, target, id)
}

func likeVerKey(target, id string) string {
	return fmt.Sprintf("%s:%s:%s", LikeVerKeyPrefix, target, id)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func version(ctx context.Context, g getter, key string) (int64, error) {
	v, err := g.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *Redis) Get(ctx context.Context, target, id string) (int64, bool, int64, error) {
	val, err := c.rdb.Get(ctx, likeCntKey(target, id)).Int64()
	if err == nil {
		return val, true, 0, nil
	}
	if !errors.Is(err, redis.Nil) {
		return 0, false, 0, fmt.Errorf("get like count: %w", err)
	}
	ver, err := version(ctx, c.rdb, likeVerKey(target, id))
	if err != nil {
		return 0, false, 0, fmt.Errorf("get like count version: %w", err)
	}
	return 0, false, ver, nil
}

func (c *Redis) Set(ctx context.Context, target, id string, n, ver int64) error {
	verKey := likeVerKey(target, id)
	err := c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := version(ctx, tx, verKey)
		if err != nil {
			return err
		}
		if cur != ver {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, likeCntKey(target, id), n, c.ttl)
			return nil
		})
		return err
	}, verKey)
	// A writer bumped the version between WATCH and EXEC: skip the fill.
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("set like count: %w", err)
	}
	return nil
}

// Invalidate bumps the fill version and drops the count in one MULTI.
func (c *Redis) Invalidate(ctx context.Context, target, id string) error {
	verKey := likeVerKey(target, id)
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, verKey)
		p.Expire(ctx, verKey, 2*c.ttl)
		p.Del(ctx, likeCntKey(target, id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate like count: %w", err)
	}
	return nil
}

// Nop caches nothing.
type Nop struct{}

func (Nop) Get(context.Context, string, string) (int64, bool, int64, error) {
	return 0, false, 0, nil
}
func (Nop) Set(context.Context, string, string, int64, int64) error { return nil }
func (Nop) Invalidate(context.Context, string, string) error        { return nil }
