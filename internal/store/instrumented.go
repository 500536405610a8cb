package store

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/heysubinoy/pyazcache/pkg/kv"
)

// opStats counts calls and cumulative latency for one store operation.
// Uses atomic operations for thread-safe updates without locks.
type opStats struct {
	Count     atomic.Uint64
	LatencyNs atomic.Uint64
}

func (o *opStats) observe(start time.Time) {
	o.Count.Add(1)
	o.LatencyNs.Add(uint64(time.Since(start).Nanoseconds()))
}

func (o *opStats) snapshot() OpSnapshot {
	count := o.Count.Load()
	var avg time.Duration
	if count > 0 {
		avg = time.Duration(o.LatencyNs.Load() / count)
	}
	return OpSnapshot{Count: count, AvgLatency: avg}
}

func (o *opStats) reset() {
	o.Count.Store(0)
	o.LatencyNs.Store(0)
}

// Metrics holds timing statistics for store operations.
type Metrics struct {
	Get    opStats
	Set    opStats
	Incr   opStats
	RPush  opStats
	LRange opStats
	Flush  opStats
}

// InstrumentedStore wraps any kv.Store implementation with timing metrics.
// This pattern works for every backend, local or remote.
type InstrumentedStore struct {
	store   kv.Store
	metrics *Metrics
}

// Compile-time check to ensure InstrumentedStore implements kv.Store.
var _ kv.Store = (*InstrumentedStore)(nil)

// NewInstrumentedStore wraps a store with instrumentation.
func NewInstrumentedStore(store kv.Store) *InstrumentedStore {
	return &InstrumentedStore{
		store:   store,
		metrics: &Metrics{},
	}
}

// Unwrap returns the store being measured.
func (s *InstrumentedStore) Unwrap() kv.Store {
	return s.store
}

// Get delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	defer s.metrics.Get.observe(time.Now())
	return s.store.Get(ctx, key)
}

// Set delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Set(ctx context.Context, key string, value []byte) error {
	defer s.metrics.Set.observe(time.Now())
	return s.store.Set(ctx, key, value)
}

// Incr delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Incr(ctx context.Context, key string) (int64, error) {
	defer s.metrics.Incr.observe(time.Now())
	return s.store.Incr(ctx, key)
}

// RPush delegates to the wrapped store and records timing.
func (s *InstrumentedStore) RPush(ctx context.Context, key string, value []byte) (int64, error) {
	defer s.metrics.RPush.observe(time.Now())
	return s.store.RPush(ctx, key, value)
}

// LRange delegates to the wrapped store and records timing.
func (s *InstrumentedStore) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	defer s.metrics.LRange.observe(time.Now())
	return s.store.LRange(ctx, key, start, stop)
}

// FlushAll delegates to the wrapped store and records timing.
func (s *InstrumentedStore) FlushAll(ctx context.Context) error {
	defer s.metrics.Flush.observe(time.Now())
	return s.store.FlushAll(ctx)
}

// GetMetrics returns a snapshot of current metrics.
func (s *InstrumentedStore) GetMetrics() MetricsSnapshot {
	return MetricsSnapshot{
		Get:    s.metrics.Get.snapshot(),
		Set:    s.metrics.Set.snapshot(),
		Incr:   s.metrics.Incr.snapshot(),
		RPush:  s.metrics.RPush.snapshot(),
		LRange: s.metrics.LRange.snapshot(),
		Flush:  s.metrics.Flush.snapshot(),
	}
}

// ResetMetrics clears all metrics counters.
func (s *InstrumentedStore) ResetMetrics() {
	s.metrics.Get.reset()
	s.metrics.Set.reset()
	s.metrics.Incr.reset()
	s.metrics.RPush.reset()
	s.metrics.LRange.reset()
	s.metrics.Flush.reset()
}

// OpSnapshot is the count and mean latency of one operation.
type OpSnapshot struct {
	Count      uint64
	AvgLatency time.Duration
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Get    OpSnapshot
	Set    OpSnapshot
	Incr   OpSnapshot
	RPush  OpSnapshot
	LRange OpSnapshot
	Flush  OpSnapshot
}

// Ops returns the snapshot keyed by operation name.
func (m MetricsSnapshot) Ops() map[string]OpSnapshot {
	return map[string]OpSnapshot{
		"get":    m.Get,
		"set":    m.Set,
		"incr":   m.Incr,
		"rpush":  m.RPush,
		"lrange": m.LRange,
		"flush":  m.Flush,
	}
}
