package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Store persists rate-limit state per subdomain. Header updates and pauses
// touch disjoint fields, so concurrent writers never overwrite each other.
type Store interface {
	// Get returns nil and no error when nothing is stored for subdomain.
	Get(ctx context.Context, subdomain string) (*State, error)

	// SetHeaders writes limit, remaining and last update, leaving any pause
	// in place.
	SetHeaders(ctx context.Context, subdomain string, limit, remaining int, at time.Time) error

	// ExtendPause moves the pause end to until if it is later than the
	// stored one. It reports whether the pause was extended.
	ExtendPause(ctx context.Context, subdomain string, until time.Time) (bool, error)
}

// MemoryStore keeps state in process memory. It is the default store and
// confines coordination to one extractor process.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]State
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, subdomain string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[subdomain]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// SetHeaders implements Store.
func (m *MemoryStore) SetHeaders(_ context.Context, subdomain string, limit, remaining int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.states[subdomain]
	s.Limit = limit
	s.Remaining = remaining
	s.LastUpdate = at
	m.states[subdomain] = s
	return nil
}

// ExtendPause implements Store.
func (m *MemoryStore) ExtendPause(_ context.Context, subdomain string, until time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.states[subdomain]
	if !until.After(s.PausedUntil) {
		return false, nil
	}
	s.PausedUntil = until
	m.states[subdomain] = s
	return true, nil
}

// Redis key layout, one hash per subdomain.
const (
	RedisKeyPrefix   = "zendesk:rate_limit:"
	fieldLimit       = "limit"
	fieldRemaining   = "remaining"
	fieldPausedUntil = "paused_until"
	fieldLastUpdate  = "last_update"
)

// RedisStore shares state between extractor processes through Redis.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStore creates a store whose keys expire after ttl (0 keeps them).
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{redis: client, ttl: ttl}
}

// Key returns the Redis hash key for subdomain.
func (r *RedisStore) Key(subdomain string) string {
	return RedisKeyPrefix + subdomain
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, subdomain string) (*State, error) {
	fields, err := r.redis.HGetAll(ctx, r.Key(subdomain)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	state := &State{}
	if state.Limit, err = atoi(fields[fieldLimit]); err != nil {
		return nil, fmt.Errorf("parse %s: %w", fieldLimit, err)
	}
	if state.Remaining, err = atoi(fields[fieldRemaining]); err != nil {
		return nil, fmt.Errorf("parse %s: %w", fieldRemaining, err)
	}
	if v := fields[fieldPausedUntil]; v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", fieldPausedUntil, err)
		}
		if ms > 0 {
			state.PausedUntil = time.UnixMilli(ms)
		}
	}
	if v := fields[fieldLastUpdate]; v != "" {
		if err := gojson.Unmarshal([]byte(v), &state.LastUpdate); err != nil {
			return nil, fmt.Errorf("parse %s: %w", fieldLastUpdate, err)
		}
	}
	return state, nil
}

// SetHeaders implements Store. paused_until is never written here.
func (r *RedisStore) SetHeaders(ctx context.Context, subdomain string, limit, remaining int, at time.Time) error {
	lastUpdate, err := gojson.Marshal(at)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	key := r.Key(subdomain)
	pipe := r.redis.TxPipeline()
	pipe.HSet(ctx, key,
		fieldLimit, limit,
		fieldRemaining, remaining,
		fieldLastUpdate, string(lastUpdate),
	)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit headers in redis: %w", err)
	}
	return nil
}

// extendPauseScript sets paused_until (ARGV[1], unix ms) only when it moves
// the pause forward, and refreshes the TTL (ARGV[2], ms) when positive.
var extendPauseScript = redis.NewScript(`
local current = 0
local stored = redis.call('HGET', KEYS[1], 'paused_until')
if stored then
	current = tonumber(stored) or 0
end
if tonumber(ARGV[1]) <= current then
	return 0
end
redis.call('HSET', KEYS[1], 'paused_until', ARGV[1])
if tonumber(ARGV[2]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 1
`)

// ExtendPause implements Store. The compare and write run atomically in Redis.
func (r *RedisStore) ExtendPause(ctx context.Context, subdomain string, until time.Time) (bool, error) {
	extended, err := extendPauseScript.Run(ctx, r.redis,
		[]string{r.Key(subdomain)},
		until.UnixMilli(), r.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("extend rate limit pause in redis: %w", err)
	}
	return extended == 1, nil
}

func atoi(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
