package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// RaftNodeConfig describes a single member of a replicated store.
type RaftNodeConfig struct {
	NodeID    string
	BindAddr  string
	DataDir   string
	Bootstrap bool
	LogLevel  string
}

// RaftNode owns the raft instance and the on-disk stores behind it.
type RaftNode struct {
	Raft      *raft.Raft
	Store     *RaftStore
	boltStore *raftboltdb.BoltStore
	transport *raft.NetworkTransport
}

// NewRaftNode starts a raft member that replicates into a fresh MemStore.
// Logs and stable state go to BoltDB under DataDir, snapshots next to it.
func NewRaftNode(cfg RaftNodeConfig) (*RaftNode, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create raft data dir: %w", err)
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "raft",
		Level:  hclog.LevelFromString(cfg.LogLevel),
		Output: os.Stderr,
	})

	conf := raft.DefaultConfig()
	conf.LocalID = raft.ServerID(cfg.NodeID)
	conf.Logger = logger

	// The listener's own address is advertised, so BindAddr needs a concrete host.
	transport, err := raft.NewTCPTransport(cfg.BindAddr, nil, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to create raft transport: %w", err)
	}

	snapshots, err := raft.NewFileSnapshotStore(cfg.DataDir, 2, os.Stderr)
	if err != nil {
		transport.Close()
		return nil, fmt.Errorf("failed to create snapshot store: %w", err)
	}

	boltStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft.db"))
	if err != nil {
		transport.Close()
		return nil, fmt.Errorf("failed to open bolt store: %w", err)
	}

	fsm := NewRaftStore(NewMemStore())
	r, err := raft.NewRaft(conf, fsm, boltStore, boltStore, snapshots, transport)
	if err != nil {
		boltStore.Close()
		transport.Close()
		return nil, fmt.Errorf("failed to start raft: %w", err)
	}
	fsm.attach(r)

	if cfg.Bootstrap {
		hasState, err := raft.HasExistingState(boltStore, boltStore, snapshots)
		if err != nil {
			r.Shutdown()
			boltStore.Close()
			return nil, fmt.Errorf("failed to inspect raft state: %w", err)
		}
		if !hasState {
			boot := raft.Configuration{
				Servers: []raft.Server{{ID: conf.LocalID, Address: transport.LocalAddr()}},
			}
			if err := r.BootstrapCluster(boot).Error(); err != nil {
				r.Shutdown()
				boltStore.Close()
				return nil, fmt.Errorf("failed to bootstrap cluster: %w", err)
			}
		}
	}

	return &RaftNode{Raft: r, Store: fsm, boltStore: boltStore, transport: transport}, nil
}

// Join adds a voter to the cluster. Only the leader can do this.
func (n *RaftNode) Join(id, addr string) error {
	f := n.Raft.AddVoter(raft.ServerID(id), raft.ServerAddress(addr), 0, 0)
	if err := f.Error(); err != nil {
		return fmt.Errorf("failed to add voter %s: %w", id, err)
	}
	return nil
}

// WaitForLeader blocks until the cluster has elected a leader or timeout expires.
func (n *RaftNode) WaitForLeader(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if addr, _ := n.Raft.LeaderWithID(); addr != "" {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("no raft leader after %s", timeout)
}

// Close shuts raft down and releases the log store.
func (n *RaftNode) Close() error {
	if err := n.Raft.Shutdown().Error(); err != nil {
		return err
	}
	n.transport.Close()
	return n.boltStore.Close()
}
