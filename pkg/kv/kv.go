package kv

import "context"

// Store defines the interface for a key-value store.
// Implementations of this interface can be swapped out,
// allowing for different storage backends (e.g., in-memory, Redis, Raft-replicated, remote).
type Store interface {
	// Get retrieves the value associated with the given key.
	// Returns the value and true if the key exists, or nil and false if not.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value under key, replacing whatever was there.
	Set(ctx context.Context, key string, value []byte) error

	// Incr increments the integer stored at key by one and returns the new value.
	// A missing key counts as 0.
	Incr(ctx context.Context, key string) (int64, error)

	// RPush appends value to the list stored at key and returns the new length.
	RPush(ctx context.Context, key string, value []byte) (int64, error)

	// LRange returns the elements of the list at key between start and stop,
	// both inclusive. Negative offsets count from the end of the list.
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)

	// FlushAll removes every key from the store's keyspace.
	FlushAll(ctx context.Context) error
}
