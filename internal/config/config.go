// Package config loads the server's configuration from environment
// variables, following the same struct-tag convention the rest of the
// codebase uses for ambient configuration.
package config

import (
	"fmt"

	"github.com/dogma-project/dogma/common"
)

// ReplicationMethod selects whether the command executor runs standalone or
// replicated through the consensus log.
type ReplicationMethod string

const (
	// ReplicationNone runs a single, non-replicated server.
	ReplicationNone ReplicationMethod = "NONE"
	// ReplicationRaft runs the replicated command executor over hashicorp/raft.
	ReplicationRaft ReplicationMethod = "RAFT"
)

// Config is the top-level configuration for the dogmad server process.
type Config struct {
	EnvName  string `env:"ENV_NAME"`
	LogLevel string `env:"LOG_LEVEL"`

	// LogBackend selects the mlog.Logger implementation: "go" (default, the
	// stdlib-backed GoLogger) or "zap" (structured logging via
	// common/mzap.ZapLogger).
	LogBackend string `env:"DOGMA_LOG_BACKEND"`

	DataDir       string `env:"DOGMA_DATA_DIR"`
	ServerAddress string `env:"DOGMA_SERVER_ADDRESS"`

	// Repository worker pool (§5): fixed size, one in-flight slot per repository.
	RepositoryWorkers int `env:"DOGMA_REPOSITORY_WORKERS"`

	// Repository cache (§4.C).
	CacheMaxWeightBytes int64 `env:"DOGMA_CACHE_MAX_WEIGHT_BYTES"`
	CacheEntries        int   `env:"DOGMA_CACHE_ENTRIES"`

	// Replication (§4.F).
	ReplicationMethod   string `env:"DOGMA_REPLICATION_METHOD"`
	RaftBindAddress     string `env:"DOGMA_RAFT_BIND_ADDRESS"`
	RaftDataDir         string `env:"DOGMA_RAFT_DATA_DIR"`
	RaftBootstrap       bool   `env:"DOGMA_RAFT_BOOTSTRAP"`
	RaftMaxLogCount     int64  `env:"DOGMA_RAFT_MAX_LOG_COUNT"`
	RaftMinLogAgeMillis int64  `env:"DOGMA_RAFT_MIN_LOG_AGE_MILLIS"`

	// Quota defaults (§4.I).
	QuotaWritesPerWindow int `env:"DOGMA_QUOTA_WRITES_PER_WINDOW"`
	QuotaWindowSeconds   int `env:"DOGMA_QUOTA_WINDOW_SECONDS"`

	// Session & quota store (Postgres).
	PostgresConnectionString string `env:"DOGMA_POSTGRES_URL"`

	// Watch metrics counters (Redis).
	RedisConnectionString string `env:"DOGMA_REDIS_URL"`

	// Project-manager metadata/audit mirror (MongoDB).
	MongoConnectionString string `env:"DOGMA_MONGO_URL"`
	MongoDatabase         string `env:"DOGMA_MONGO_DATABASE"`

	// Replication notification fanout (RabbitMQ).
	RabbitMQConnectionString string `env:"DOGMA_RABBITMQ_URL"`
	RabbitMQExchange         string `env:"DOGMA_RABBITMQ_EXCHANGE"`

	// GracefulShutdownTimeoutSeconds bounds how long Run waits for
	// in-flight requests to drain before forcing the listener closed.
	GracefulShutdownTimeoutSeconds int `env:"DOGMA_GRACEFUL_SHUTDOWN_TIMEOUT_SECONDS"`

	// BasicAuthUsername/BasicAuthPassword, when both set, gate every
	// /api/v1 route behind HTTP basic auth.
	BasicAuthUsername string `env:"DOGMA_BASIC_AUTH_USERNAME"`
	BasicAuthPassword string `env:"DOGMA_BASIC_AUTH_PASSWORD"`
}

// Load builds a Config by reading every `env`-tagged field from the
// environment, the way common.SetConfigFromEnvVars does for every other
// service in this codebase, then fills any field left at its zero value
// with a standalone-mode default.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := common.SetConfigFromEnvVars(cfg); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.EnvName == "" {
		cfg.EnvName = "local"
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if cfg.LogBackend == "" {
		cfg.LogBackend = "go"
	}

	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}

	if cfg.ServerAddress == "" {
		cfg.ServerAddress = ":36462"
	}

	if cfg.RepositoryWorkers == 0 {
		cfg.RepositoryWorkers = 16
	}

	if cfg.CacheMaxWeightBytes == 0 {
		cfg.CacheMaxWeightBytes = 64 << 20
	}

	if cfg.CacheEntries == 0 {
		cfg.CacheEntries = 4096
	}

	if cfg.ReplicationMethod == "" {
		cfg.ReplicationMethod = string(ReplicationNone)
	}

	if cfg.RaftDataDir == "" {
		cfg.RaftDataDir = "./data/raft"
	}

	if cfg.RaftMaxLogCount == 0 {
		cfg.RaftMaxLogCount = 10000
	}

	if cfg.RaftMinLogAgeMillis == 0 {
		cfg.RaftMinLogAgeMillis = 3600000
	}

	if cfg.QuotaWritesPerWindow == 0 {
		cfg.QuotaWritesPerWindow = 1000
	}

	if cfg.QuotaWindowSeconds == 0 {
		cfg.QuotaWindowSeconds = 60
	}

	if cfg.GracefulShutdownTimeoutSeconds == 0 {
		cfg.GracefulShutdownTimeoutSeconds = 30
	}
}
