package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// MemoryDecisionLock is a keyed latch for a single bot process.
type MemoryDecisionLock struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewMemoryDecisionLock constructs an in-process lock.
func NewMemoryDecisionLock() *MemoryDecisionLock {
	return &MemoryDecisionLock{expires: make(map[string]time.Time), now: time.Now}
}

// Acquire takes key for ttl. It returns false while another holder has it.
func (l *MemoryDecisionLock) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if exp, ok := l.expires[key]; ok && now.Before(exp) {
		return false, nil
	}
	l.expires[key] = now.Add(ttl)
	return true, nil
}

// Release frees key.
func (l *MemoryDecisionLock) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.expires, key)
	return nil
}

var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisDecisionLock shares the latch between bot replicas with SET NX PX.
type RedisDecisionLock struct {
	client *redis.Client
	prefix string

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedisDecisionLock constructs a Redis backed lock.
func NewRedisDecisionLock(client *redis.Client, prefix string) *RedisDecisionLock {
	if prefix == "" {
		prefix = "lock"
	}
	return &RedisDecisionLock{client: client, prefix: prefix, tokens: make(map[string]string)}
}

// Acquire takes key for ttl.
func (l *RedisDecisionLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.prefix+":"+key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis lock %s: %w", key, err)
	}
	if ok {
		l.mu.Lock()
		l.tokens[key] = token
		l.mu.Unlock()
	}
	return ok, nil
}

// Release frees key if this process still holds it.
func (l *RedisDecisionLock) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	token, ok := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()
	if !ok {
		return nil
	}
	if err := releaseLockScript.Run(ctx, l.client, []string{l.prefix + ":" + key}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("redis unlock %s: %w", key, err)
	}
	return nil
}
