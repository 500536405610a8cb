package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Backend names accepted in Config.Backend.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendRaft   = "raft"
	BackendRemote = "remote"
)

type Config struct {
	Backend string `yaml:"backend"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	NodeID        string `yaml:"node_id"`
	RaftAddr      string `yaml:"raft_addr"`
	RaftData      string `yaml:"raft_data"`
	RaftBootstrap bool   `yaml:"raft_bootstrap"`

	RemoteAddr string `yaml:"remote_addr"`

	GRPCAddr string `yaml:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr"`
	LogLevel string `yaml:"log_level"`
}

// LoadConfig loads configuration from a YAML file if path is provided,
// then lets environment variables override it.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			// If path was explicitly provided but file doesn't exist, return error
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides allows environment variables to override YAML config values
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"PYAZ_BACKEND":   &cfg.Backend,
		"REDIS_ADDR":     &cfg.RedisAddr,
		"REDIS_PASSWORD": &cfg.RedisPassword,
		"NODE_ID":        &cfg.NodeID,
		"RAFT_ADDR":      &cfg.RaftAddr,
		"RAFT_DATA":      &cfg.RaftData,
		"REMOTE_ADDR":    &cfg.RemoteAddr,
		"GRPC_ADDR":      &cfg.GRPCAddr,
		"HTTP_ADDR":      &cfg.HTTPAddr,
		"PYAZ_LOG":       &cfg.LogLevel,
	}
	for env, dst := range strs {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB value: %w", err)
		}
		cfg.RedisDB = db
	}
	if v := os.Getenv("RAFT_BOOTSTRAP"); v != "" {
		boot, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid RAFT_BOOTSTRAP value: %w", err)
		}
		cfg.RaftBootstrap = boot
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Backend == "" {
		cfg.Backend = BackendMemory
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	switch cfg.Backend {
	case BackendRedis:
		if cfg.RedisAddr == "" {
			cfg.RedisAddr = "localhost:6379"
		}
	case BackendRaft:
		if cfg.RaftData == "" && cfg.NodeID != "" {
			cfg.RaftData = fmt.Sprintf("./pyaz/%s", cfg.NodeID)
		}
	}
}

// Validate checks that the settings the chosen backend needs are present.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisDB < 0 {
			return fmt.Errorf("redis_db must not be negative")
		}
	case BackendRaft:
		if c.NodeID == "" {
			return fmt.Errorf("NODE_ID is required for the raft backend (set via environment or config file)")
		}
		if c.RaftAddr == "" {
			return fmt.Errorf("RAFT_ADDR is required for the raft backend (set via environment or config file)")
		}
	case BackendRemote:
		if c.RemoteAddr == "" {
			return fmt.Errorf("REMOTE_ADDR is required for the remote backend (set via environment or config file)")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}
