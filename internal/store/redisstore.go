package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/heysubinoy/pyazcache/pkg/kv"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a kv.Store backed by a Redis server.
type RedisStore struct {
	client *redis.Client
}

// Compile-time check to ensure RedisStore implements kv.Store.
var _ kv.Store = (*RedisStore)(nil)

// NewRedisStore connects to the server described by opts and pings it so a
// bad address fails here instead of on first use.
func NewRedisStore(ctx context.Context, opts *redis.Options) (*RedisStore, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return &RedisStore{client: client}, nil
}

// Get returns nil, false for keys that do not exist.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, translate(err)
	}
	return val, true, nil
}

// Set stores value under key with no expiry.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return translate(s.client.Set(ctx, key, value, 0).Err())
}

// Incr increments the counter at key and returns the new value.
func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	return n, translate(err)
}

// RPush appends value to the list at key and returns the list length.
func (s *RedisStore) RPush(ctx context.Context, key string, value []byte) (int64, error) {
	n, err := s.client.RPush(ctx, key, value).Result()
	return n, translate(err)
}

// LRange returns the elements of the list at key between start and stop.
func (s *RedisStore) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	vals, err := s.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, translate(err)
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

// FlushAll empties the selected database with FLUSHDB. Other databases on the
// same server are left alone.
func (s *RedisStore) FlushAll(ctx context.Context) error {
	return translate(s.client.FlushDB(ctx).Err())
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// translate maps Redis error replies onto the kv sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "WRONGTYPE"):
		return fmt.Errorf("%w: %s", kv.ErrWrongType, msg)
	case strings.Contains(msg, "not an integer"), strings.Contains(msg, "would overflow"):
		return fmt.Errorf("%w: %s", kv.ErrNotInteger, msg)
	}
	return fmt.Errorf("redis: %w", err)
}
