// Package otp generates the 4-digit session codes and limits how many
// guesses can be made against one.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var maxCode = big.NewInt(10000)

// Generate returns a uniformly random 4-digit code.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, maxCode)
	if err != nil {
		return "", errors.Wrap(err, "otp: generate")
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// Limiter counts failed guesses per key. Reset is called whenever a new
// code is issued or a code is consumed.
type Limiter interface {
	// Failures returns the number of failed guesses recorded for key.
	Failures(ctx context.Context, key string) (int, error)
	// Fail records one failed guess and returns the new count.
	Fail(ctx context.Context, key string) (int, error)
	Reset(ctx context.Context, key string) error
}

// Once remembers keys that have been used, such as redeemed tokens.
type Once interface {
	// Claim marks key as used for ttl and reports whether it was unused.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Key names the counter for one code of one appointment.
func Key(appointmentID uint, phase string) string {
	return fmt.Sprintf("otp:%d:%s", appointmentID, phase)
}

type entry struct {
	count   int
	expires time.Time
}

// MemoryLimiter keeps counters in process. Counters expire after ttl and
// expired entries are swept on write.
type MemoryLimiter struct {
	mu      sync.Mutex
	ttl     time.Duration
	m       map[string]entry
	sweepAt time.Time
	now     func() time.Time
}

var (
	_ Limiter = (*MemoryLimiter)(nil)
	_ Once    = (*MemoryLimiter)(nil)
)

func NewMemoryLimiter(ttl time.Duration) *MemoryLimiter {
	return &MemoryLimiter{ttl: ttl, m: make(map[string]entry), now: time.Now}
}

func (l *MemoryLimiter) Failures(_ context.Context, key string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.m[key]
	if !ok {
		return 0, nil
	}
	if l.now().After(e.expires) {
		delete(l.m, key)
		return 0, nil
	}
	return e.count, nil
}

// sweep drops expired entries at most once per ttl. Callers hold mu.
func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Before(l.sweepAt) {
		return
	}
	for k, e := range l.m {
		if now.After(e.expires) {
			delete(l.m, k)
		}
	}
	l.sweepAt = now.Add(l.ttl)
}

func (l *MemoryLimiter) Fail(_ context.Context, key string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.sweep(now)
	e, ok := l.m[key]
	if !ok || now.After(e.expires) {
		e = entry{}
	}
	e.count++
	e.expires = now.Add(l.ttl)
	l.m[key] = e
	return e.count, nil
}

func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.m, key)
	l.mu.Unlock()
	return nil
}

func (l *MemoryLimiter) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.sweep(now)
	if e, ok := l.m[key]; ok && !now.After(e.expires) {
		return false, nil
	}
	l.m[key] = entry{count: 1, expires: now.Add(ttl)}
	return true, nil
}

// RedisLimiter shares counters between instances.
type RedisLimiter struct {
	client *redis.Client
	ttl    time.Duration
}

var (
	_ Limiter = (*RedisLimiter)(nil)
	_ Once    = (*RedisLimiter)(nil)
)

func NewRedisLimiter(client *redis.Client, ttl time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, ttl: ttl}
}

func (l *RedisLimiter) Failures(ctx context.Context, key string) (int, error) {
	n, err := l.client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "otp: read failures")
	}
	return n, nil
}

func (l *RedisLimiter) Fail(ctx context.Context, key string) (int, error) {
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, errors.Wrap(err, "otp: record failure")
	}
	return int(incr.Val()), nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return errors.Wrap(l.client.Del(ctx, key).Err(), "otp: reset")
}

func (l *RedisLimiter) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "otp: claim")
	}
	return ok, nil
}
