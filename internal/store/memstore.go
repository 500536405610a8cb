package store

import (
	"context"
	"strconv"
	"sync"

	"github.com/heysubinoy/pyazcache/pkg/kv"
)

// entry is either a plain value or a list, never both.
type entry struct {
	Value  []byte   `json:"value,omitempty"`
	List   [][]byte `json:"list,omitempty"`
	IsList bool     `json:"is_list,omitempty"`
}

// MemStore is an in-memory implementation of the kv.Store interface.
// It uses a map protected by a RWMutex for thread-safe operations.
type MemStore struct {
	mu   sync.RWMutex
	data map[string]*entry
}

// Compile-time check to ensure MemStore implements kv.Store.
var _ kv.Store = (*MemStore)(nil)

// NewMemStore creates and returns a new MemStore instance.
func NewMemStore() *MemStore {
	return &MemStore{
		data: make(map[string]*entry),
	}
}

// Get retrieves a value by key from the store.
// The returned slice is a copy and may be modified by the caller.
func (s *MemStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	if e.IsList {
		return nil, false, kv.ErrWrongType
	}
	return clone(e.Value), true, nil
}

// Set stores a key-value pair in the store, replacing lists as well as values.
func (s *MemStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = &entry{Value: clone(value)}
	return nil
}

// Incr increments the decimal integer at key.
func (s *MemStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	if !ok {
		s.data[key] = &entry{Value: []byte("1")}
		return 1, nil
	}
	if e.IsList {
		return 0, kv.ErrWrongType
	}
	n, err := strconv.ParseInt(string(e.Value), 10, 64)
	if err != nil || n == 1<<63-1 {
		return 0, kv.ErrNotInteger
	}
	n++
	e.Value = strconv.AppendInt(nil, n, 10)
	return n, nil
}

// RPush appends value to the list at key, creating the list if needed.
func (s *MemStore) RPush(_ context.Context, key string, value []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	if !ok {
		e = &entry{IsList: true}
		s.data[key] = e
	}
	if !e.IsList {
		return 0, kv.ErrWrongType
	}
	e.List = append(e.List, clone(value))
	return int64(len(e.List)), nil
}

// LRange returns a copy of the requested slice of the list at key.
// A missing key yields an empty result.
func (s *MemStore) LRange(_ context.Context, key string, start, stop int64) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok {
		return [][]byte{}, nil
	}
	if !e.IsList {
		return nil, kv.ErrWrongType
	}
	lo, hi, ok := kv.Bounds(int64(len(e.List)), start, stop)
	if !ok {
		return [][]byte{}, nil
	}
	out := make([][]byte, 0, hi-lo)
	for _, v := range e.List[lo:hi] {
		out = append(out, clone(v))
	}
	return out, nil
}

// FlushAll drops every key.
func (s *MemStore) FlushAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]*entry)
	return nil
}

// Len reports the number of keys currently held.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *MemStore) dump() map[string]entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]entry, len(s.data))
	for k, e := range s.data {
		cp := entry{Value: clone(e.Value), IsList: e.IsList}
		for _, v := range e.List {
			cp.List = append(cp.List, clone(v))
		}
		out[k] = cp
	}
	return out
}

func (s *MemStore) load(data map[string]entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]*entry, len(data))
	for k, e := range data {
		e := e
		s.data[k] = &e
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
