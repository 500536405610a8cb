package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/apex/log"
	"github.com/heysubinoy/pyazcache/internal/api"
	"github.com/heysubinoy/pyazcache/internal/backend"
	"github.com/heysubinoy/pyazcache/internal/cache"
	mylog "github.com/heysubinoy/pyazcache/internal/log"
	"github.com/heysubinoy/pyazcache/pkg/config"
	"github.com/urfave/cli/v3"
)

func main() {
	mylog.InitLogger(os.Getenv("PYAZ_LOG"))

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "cache-cli",
		Usage: "store and fetch values through a cache-server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   "http://127.0.0.1:8080",
				Usage:   "cache-server HTTP address",
				Sources: cli.EnvVars("PYAZ_SERVER"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "store",
				Usage:     "store a value and print its key",
				ArgsUsage: "<value>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "type",
						Value: "str",
						Usage: "value type: str, bytes, int or float",
					},
				},
				Action: storeAction,
			},
			{
				Name:      "get",
				Usage:     "print the value stored under a key",
				ArgsUsage: "<key>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "as",
						Value: "raw",
						Usage: "decoding: raw, str, int or float",
					},
				},
				Action: getAction,
			},
			{
				Name:  "replay",
				Usage: "print the call history of a cache operation",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "method",
						Value: cache.StoreMethod,
						Usage: "operation name",
					},
				},
				Action: replayAction,
			},
			{
				Name:      "demo",
				Usage:     "store each argument in a fresh local cache and replay the calls",
				ArgsUsage: "<value>...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "config",
						Usage: "YAML config selecting the backend (defaults to memory)",
					},
				},
				Action: demoAction,
			},
		},
	}
}

func client(cmd *cli.Command) *api.Client {
	return api.NewClient(cmd.String("server"))
}

func storeAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("usage: cache-cli store [--type T] <value>")
	}
	value, err := parseValue(cmd.String("type"), cmd.Args().First())
	if err != nil {
		return err
	}

	key, err := client(cmd).Store(ctx, cmd.String("type"), value)
	if err != nil {
		return fmt.Errorf("store failed: %w", err)
	}
	fmt.Println(key)
	return nil
}

func getAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("usage: cache-cli get [--as A] <key>")
	}
	key := cmd.Args().First()

	value, err := client(cmd).Get(ctx, key, cmd.String("as"))
	if errors.Is(err, api.ErrKeyNotFound) {
		return fmt.Errorf("key '%s' not found", key)
	}
	if err != nil {
		return fmt.Errorf("get failed: %w", err)
	}
	os.Stdout.Write(value)
	fmt.Println()
	return nil
}

func replayAction(ctx context.Context, cmd *cli.Command) error {
	out, err := client(cmd).Replay(ctx, cmd.String("method"))
	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}
	fmt.Print(out)
	return nil
}

func demoAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	be, err := backend.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.Close()

	c, err := cache.New(ctx, be.Store)
	if err != nil {
		return err
	}
	for _, arg := range cmd.Args().Slice() {
		key, err := c.Store(ctx, guessValue(arg))
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{"value": arg, "key": key}).Debug("stored")
	}
	return c.Replay(ctx, os.Stdout, cache.StoreMethod)
}

// parseValue converts a command-line argument into the JSON value sent for typ.
func parseValue(typ, s string) (any, error) {
	switch typ {
	case "str":
		return s, nil
	case "bytes":
		return []byte(s), nil
	case "int":
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid int %q: %w", s, err)
		}
		return n, nil
	case "float":
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q: %w", s, err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("unknown type %q", typ)
}

// guessValue stores numbers as numbers and everything else as text.
func guessValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
