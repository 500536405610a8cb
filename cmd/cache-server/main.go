package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/hashicorp/raft"
	"github.com/heysubinoy/pyazcache/internal/api"
	"github.com/heysubinoy/pyazcache/internal/backend"
	"github.com/heysubinoy/pyazcache/internal/cache"
	mylog "github.com/heysubinoy/pyazcache/internal/log"
	"github.com/heysubinoy/pyazcache/pkg/config"
	"github.com/urfave/cli/v3"
	"google.golang.org/grpc"
)

func main() {
	app := &cli.Command{
		Name:  "cache-server",
		Usage: "serve a cache over HTTP and its store over gRPC",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				Sources: cli.EnvVars("PYAZ_CONFIG"),
			},
		},
		Action: run,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	mylog.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := backend.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.Close()

	var raftNode *raft.Raft
	if be.Raft != nil {
		raftNode = be.Raft.Raft
	}

	// Followers cannot flush; they share the leader's fresh keyspace.
	var c *cache.Cache
	if raftNode != nil && raftNode.State() != raft.Leader {
		log.Warn("raft follower: attaching to replicated store without flushing")
		c = cache.Attach(be.Store)
	} else if c, err = cache.New(ctx, be.Store); err != nil {
		return err
	}

	errCh := make(chan error, 2)

	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
		}
		grpcServer = grpc.NewServer()
		// Serve the raw backend so remote clients do not count twice in /metrics.
		api.RegisterStoreServer(grpcServer, api.NewGRPCServer(be.Store.Unwrap()))

		go func() {
			log.WithField("addr", cfg.GRPCAddr).Info("gRPC server listening")
			errCh <- grpcServer.Serve(lis)
		}()
	}

	srv := api.NewServer(c, raftNode)
	if be.Raft != nil {
		srv.Joiner = be.Raft
	}

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	mux.Handle("/metrics", api.MetricsHandler(be.Store))

	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-errCh:
		log.WithError(err).Error("server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
		log.WithError(serr).Warn("HTTP shutdown")
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	return err
}
