package node

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"mercator-hq/windowlimit/pkg/coordinator"
)

// incrementScript applies the counting rule atomically.
//
// KEYS[1] counter, KEYS[2] idempotency record.
// ARGV[1] cost, ARGV[2] limit, ARGV[3] reset (unix ms), ARGV[4] "1" when
// an idempotency key was supplied.
//
// Returns {current, passed}.
var incrementScript = redis.NewScript(`
if ARGV[4] == '1' then
  local prior = redis.call('HMGET', KEYS[2], 'current', 'passed')
  if prior[1] then
    return {tonumber(prior[1]), tonumber(prior[2])}
  end
end

local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local cost = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local passed = 0

if current + cost <= limit then
  current = redis.call('INCRBY', KEYS[1], cost)
  redis.call('PEXPIREAT', KEYS[1], ARGV[3])
  passed = 1
end

if ARGV[4] == '1' then
  redis.call('HSET', KEYS[2], 'current', current, 'passed', passed)
  redis.call('PEXPIREAT', KEYS[2], ARGV[3])
end

return {current, passed}
`)

// RedisStore keeps counters in Redis. Keys expire at their window reset, so
// Sweep has nothing to do.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix sets the prefix for every Redis key.
// Default: "windowlimit:"
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: "windowlimit:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// keys returns the counter and idempotency keys. Both carry the same hash
// tag so the script's keys share a cluster slot.
func (s *RedisStore) keys(inc Increment) []string {
	tagged := s.prefix + "{" + inc.Key + "}"
	return []string{tagged, tagged + ":idem:" + inc.IdempotencyKey}
}

// Increment implements Store.
func (s *RedisStore) Increment(ctx context.Context, inc Increment) (coordinator.Result, error) {
	hasKey := "0"
	if inc.IdempotencyKey != "" {
		hasKey = "1"
	}

	raw, err := incrementScript.Run(ctx, s.client, s.keys(inc),
		inc.Cost,
		inc.Limit,
		strconv.FormatInt(inc.Reset.UnixMilli(), 10),
		hasKey,
	).Result()
	if err != nil {
		return coordinator.Result{}, fmt.Errorf("redis increment failed: %w", err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return coordinator.Result{}, fmt.Errorf("unexpected redis script result: %v", raw)
	}
	current, ok1 := values[0].(int64)
	passed, ok2 := values[1].(int64)
	if !ok1 || !ok2 {
		return coordinator.Result{}, fmt.Errorf("unexpected redis script result types: %T, %T", values[0], values[1])
	}

	return coordinator.Result{Current: current, Passed: passed == 1}, nil
}

// Ping implements Store.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Sweep implements Store.
func (s *RedisStore) Sweep(time.Time) int { return 0 }

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
