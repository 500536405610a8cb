package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/raft"
	"github.com/heysubinoy/pyazcache/pkg/kv"
)

// applyTimeout bounds how long a write waits to be enqueued on the raft log.
const applyTimeout = 5 * time.Second

// GetRaft returns the underlying raft.Raft pointer (for API layer leader checks)
func (rs *RaftStore) GetRaft() *raft.Raft {
	return rs.raft
}

// RaftCommand represents a write operation to be applied via Raft.
type RaftCommand struct {
	Op    string `json:"op"` // "set", "incr", "rpush" or "flush"
	Key   string `json:"key,omitempty"`
	Value []byte `json:"value,omitempty"`
}

// applyResult is what Apply hands back through the ApplyFuture.
type applyResult struct {
	n   int64
	err error
}

// RaftStore replicates writes through Raft and serves reads from the local MemStore.
type RaftStore struct {
	store *MemStore
	raft  *raft.Raft
}

// Compile-time checks for both roles RaftStore plays.
var (
	_ kv.Store = (*RaftStore)(nil)
	_ raft.FSM = (*RaftStore)(nil)
)

func NewRaftStore(store *MemStore) *RaftStore {
	return &RaftStore{store: store}
}

// attach binds the raft node once it has been created around this FSM.
func (rs *RaftStore) attach(r *raft.Raft) {
	rs.raft = r
}

// Apply applies a Raft log entry to the local store.
func (rs *RaftStore) Apply(log *raft.Log) interface{} {
	var cmd RaftCommand
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return applyResult{err: fmt.Errorf("failed to decode raft command: %w", err)}
	}

	ctx := context.Background()
	switch cmd.Op {
	case "set":
		return applyResult{err: rs.store.Set(ctx, cmd.Key, cmd.Value)}
	case "incr":
		n, err := rs.store.Incr(ctx, cmd.Key)
		return applyResult{n: n, err: err}
	case "rpush":
		n, err := rs.store.RPush(ctx, cmd.Key, cmd.Value)
		return applyResult{n: n, err: err}
	case "flush":
		return applyResult{err: rs.store.FlushAll(ctx)}
	}
	return applyResult{err: fmt.Errorf("unknown raft command %q", cmd.Op)}
}

// Snapshot captures the full contents of the local store.
func (rs *RaftStore) Snapshot() (raft.FSMSnapshot, error) {
	return &memSnapshot{data: rs.store.dump()}, nil
}

// Restore replaces the local store with a previously persisted snapshot.
func (rs *RaftStore) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var data map[string]entry
	if err := json.NewDecoder(rc).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	rs.store.load(data)
	return nil
}

type memSnapshot struct {
	data map[string]entry
}

func (m *memSnapshot) Persist(sink raft.SnapshotSink) error {
	if err := json.NewEncoder(sink).Encode(m.data); err != nil {
		sink.Cancel()
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}
	return sink.Close()
}

func (m *memSnapshot) Release() {}

func (rs *RaftStore) submit(cmd RaftCommand) (int64, error) {
	if rs.raft == nil {
		return 0, fmt.Errorf("raft node not started")
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return 0, err
	}
	f := rs.raft.Apply(data, applyTimeout)
	if err := f.Error(); err != nil {
		return 0, fmt.Errorf("raft apply %s: %w", cmd.Op, err)
	}
	res, ok := f.Response().(applyResult)
	if !ok {
		return 0, fmt.Errorf("unexpected raft response %T", f.Response())
	}
	return res.n, res.err
}

// Set submits a set command to Raft.
func (rs *RaftStore) Set(_ context.Context, key string, value []byte) error {
	_, err := rs.submit(RaftCommand{Op: "set", Key: key, Value: value})
	return err
}

// Incr submits an incr command to Raft.
func (rs *RaftStore) Incr(_ context.Context, key string) (int64, error) {
	return rs.submit(RaftCommand{Op: "incr", Key: key})
}

// RPush submits an rpush command to Raft.
func (rs *RaftStore) RPush(_ context.Context, key string, value []byte) (int64, error) {
	return rs.submit(RaftCommand{Op: "rpush", Key: key, Value: value})
}

// FlushAll submits a flush command to Raft.
func (rs *RaftStore) FlushAll(_ context.Context) error {
	_, err := rs.submit(RaftCommand{Op: "flush"})
	return err
}

// Get reads directly from the local store.
func (rs *RaftStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return rs.store.Get(ctx, key)
}

// LRange reads directly from the local store.
func (rs *RaftStore) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	return rs.store.LRange(ctx, key, start, stop)
}
