package watch

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SeenStore remembers which items a watch already reported
type SeenStore interface {
	// MarkSeen records ids under key and returns the ones not recorded
	// before, in input order.
	MarkSeen(ctx context.Context, key string, ids []int64) ([]int64, error)
	Close() error
}

// MemoryStore keeps seen ids in process memory
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]map[int64]struct{}
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]map[int64]struct{})}
}

// MarkSeen implements SeenStore
func (s *MemoryStore) MarkSeen(_ context.Context, key string, ids []int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.seen[key]
	if !ok {
		set = make(map[int64]struct{}, len(ids))
		s.seen[key] = set
	}

	fresh := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := set[id]; ok {
			continue
		}
		set[id] = struct{}{}
		fresh = append(fresh, id)
	}
	return fresh, nil
}

// Close implements SeenStore
func (s *MemoryStore) Close() error {
	return nil
}

// RedisStore keeps seen ids in one Redis set per watch, so restarts and
// several instances share state.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection. A ttl of zero
// keeps sets forever; otherwise each write refreshes the expiry.
func NewRedisStore(ctx context.Context, opts *redis.Options, prefix string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return NewRedisStoreFromClient(client, prefix, ttl), nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "lolzmarket:seen:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// MarkSeen implements SeenStore
func (s *RedisStore) MarkSeen(ctx context.Context, key string, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return []int64{}, nil
	}

	setKey := s.prefix + key
	cmds := make([]*redis.IntCmd, len(ids))

	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.SAdd(ctx, setKey, strconv.FormatInt(id, 10))
		}
		if s.ttl > 0 {
			pipe.Expire(ctx, setKey, s.ttl)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record seen items in %s: %w", setKey, err)
	}

	fresh := make([]int64, 0, len(ids))
	for i, cmd := range cmds {
		if cmd.Val() > 0 {
			fresh = append(fresh, ids[i])
		}
	}
	return fresh, nil
}

// Close implements SeenStore
func (s *RedisStore) Close() error {
	return s.client.Close()
}
