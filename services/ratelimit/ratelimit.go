// Package ratelimit throttles requests per key (client IP, user id).
package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/chuo/core"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Limiter interface {
	// Allow consumes one request of key and reports whether it may proceed.
	Allow(ctx context.Context, key string) (bool, error)
}

// New returns the limiter configured by conf.Server: perMinute requests per key.
// The redis backend needs a client.
func New(conf *core.Config, client *redis.Client) (Limiter, error) {
	perMinute := conf.Server.RateLimitPerMinute
	switch conf.Server.RateLimitBackend {
	case BackendRedis:
		if client == nil {
			return nil, errors.New("ratelimit: redis backend without client")
		}
		return NewRedisWindow(client, "chuo:ratelimit", perMinute, time.Minute), nil
	case BackendMemory, "":
		return NewTokenBucket(perMinute, perMinute), nil
	default:
		return nil, errors.Errorf("ratelimit: unknown backend %q", conf.Server.RateLimitBackend)
	}
}

// TokenBucket is an in-process limiter: a burst of capacity requests, refilled at perMinute.
type TokenBucket struct {
	capacity int
	rate     int
	mu       sync.Mutex
	state    map[string]*bucket
	nowFunc  func() time.Time
}

type bucket struct {
	tokens int
	last   time.Time
}

var _ Limiter = (*TokenBucket)(nil)

func NewTokenBucket(capacity, perMinute int) *TokenBucket {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &TokenBucket{
		capacity: capacity,
		rate:     perMinute,
		state:    make(map[string]*bucket),
		nowFunc:  time.Now,
	}
}

func (l *TokenBucket) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	b, ok := l.state[key]
	if !ok {
		l.state[key] = &bucket{tokens: l.capacity - 1, last: now}
		return l.capacity > 0, nil
	}

	if refill := int(now.Sub(b.last).Minutes() * float64(l.rate)); refill > 0 {
		b.tokens += refill
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens <= 0 {
		return false, nil
	}
	b.tokens--
	return true, nil
}

// RedisWindow is a fixed-window counter shared by every API instance.
type RedisWindow struct {
	client  *redis.Client
	prefix  string
	limit   int
	window  time.Duration
	nowFunc func() time.Time
}

var _ Limiter = (*RedisWindow)(nil)

func NewRedisWindow(client *redis.Client, prefix string, limit int, window time.Duration) *RedisWindow {
	return &RedisWindow{client: client, prefix: prefix, limit: limit, window: window, nowFunc: time.Now}
}

func (l *RedisWindow) key(key string) string {
	slot := l.nowFunc().UnixNano() / int64(l.window)
	return l.prefix + ":" + key + ":" + strconv.FormatInt(slot, 10)
}

func (l *RedisWindow) Allow(ctx context.Context, key string) (bool, error) {
	k := l.key(key)
	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return false, errors.Wrap(err, "ratelimit: redis")
	}
	return incr.Val() <= int64(l.limit), nil
}
