package repository

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

// MemoryRateLimitRepository keeps a sliding window of request timestamps per
// client key in process memory.
type MemoryRateLimitRepository struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewMemoryRateLimitRepository constructs an in-memory limiter allowing limit
// requests per window.
func NewMemoryRateLimitRepository(limit int, window time.Duration) *MemoryRateLimitRepository {
	return &MemoryRateLimitRepository{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow evicts timestamps older than the window, then admits the request
// unless the remaining count already reached the limit. Rejected requests do
// not extend the window.
func (r *MemoryRateLimitRepository) Allow(_ context.Context, key string) (bool, error) {
	now := r.now()
	cutoff := now.Add(-r.window)

	r.mu.Lock()
	defer r.mu.Unlock()

	hits := r.hits[key]
	i := 0
	for i < len(hits) && hits[i].Before(cutoff) {
		i++
	}
	hits = hits[i:]

	if len(hits) >= r.limit {
		r.hits[key] = hits
		return false, nil
	}
	r.hits[key] = append(hits, now)
	return true, nil
}

// Sweep drops keys whose window is empty.
func (r *MemoryRateLimitRepository) Sweep() {
	cutoff := r.now().Add(-r.window)
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, hits := range r.hits {
		if len(hits) == 0 || hits[len(hits)-1].Before(cutoff) {
			delete(r.hits, key)
		}
	}
}

var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', '(' .. (now - window))
if redis.call('ZCARD', key) >= limit then
	return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// RedisRateLimitRepository shares the sliding window across replicas using
// one sorted set per client. Client keys are hashed so raw addresses never
// reach Redis.
type RedisRateLimitRepository struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedisRateLimitRepository constructs a Redis backed limiter.
func NewRedisRateLimitRepository(client *redis.Client, prefix string, limit int, window time.Duration) *RedisRateLimitRepository {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisRateLimitRepository{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow applies the sliding window atomically on the server.
func (r *RedisRateLimitRepository) Allow(ctx context.Context, key string) (bool, error) {
	now := r.now().UnixMilli()
	member := fmt.Sprintf("%d-%s", now, uuid.NewString())
	res, err := slidingWindowScript.Run(ctx, r.client, []string{r.redisKey(key)},
		now, r.window.Milliseconds(), r.limit, member).Int()
	if err != nil {
		return false, fmt.Errorf("redis rate limit %s: %w", key, err)
	}
	return res == 1, nil
}

func (r *RedisRateLimitRepository) redisKey(key string) string {
	sum := blake2b.Sum256([]byte(key))
	return r.prefix + ":" + hex.EncodeToString(sum[:16])
}
