// Package backend opens the kv.Store named by the configuration.
package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/heysubinoy/pyazcache/internal/api"
	"github.com/heysubinoy/pyazcache/internal/store"
	"github.com/heysubinoy/pyazcache/pkg/config"
	"github.com/redis/go-redis/v9"
)

// leaderTimeout is how long Open waits for a bootstrapping raft node to win an election.
const leaderTimeout = 10 * time.Second

// Backend is an opened store wrapped with metrics.
type Backend struct {
	Store *store.InstrumentedStore
	// Raft is set only for the raft backend.
	Raft  *store.RaftNode
	close func() error
}

// Open connects to or starts the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	b := &Backend{close: func() error { return nil }}

	switch cfg.Backend {
	case config.BackendMemory:
		b.Store = store.NewInstrumentedStore(store.NewMemStore())

	case config.BackendRedis:
		rs, err := store.NewRedisStore(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		b.Store = store.NewInstrumentedStore(rs)
		b.close = rs.Close

	case config.BackendRaft:
		node, err := store.NewRaftNode(store.RaftNodeConfig{
			NodeID:    cfg.NodeID,
			BindAddr:  cfg.RaftAddr,
			DataDir:   cfg.RaftData,
			Bootstrap: cfg.RaftBootstrap,
			LogLevel:  cfg.LogLevel,
		})
		if err != nil {
			return nil, err
		}
		if cfg.RaftBootstrap {
			if err := node.WaitForLeader(leaderTimeout); err != nil {
				node.Close()
				return nil, err
			}
		}
		b.Store = store.NewInstrumentedStore(node.Store)
		b.Raft = node
		b.close = node.Close

	case config.BackendRemote:
		rs, err := api.DialRemoteStore(cfg.RemoteAddr)
		if err != nil {
			return nil, err
		}
		b.Store = store.NewInstrumentedStore(rs)
		b.close = rs.Close

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	log.WithField("backend", cfg.Backend).Info("store backend ready")
	return b, nil
}

// Close releases whatever the backend holds open.
func (b *Backend) Close() error {
	return b.close()
}
