// Command dogmad runs the configuration-repository server: it loads its
// configuration from the environment, wires the repository, cache,
// replication, watch, and session layers together, and serves the HTTP API
// of §6 until signalled to stop.
package main

import (
	"context"
	"errors"
	"log"
	"net"
	"os/signal"
	"syscall"
	"time"

	commonhttp "github.com/dogma-project/dogma/common/net/http"
	"github.com/dogma-project/dogma/common/mlog"
	"github.com/dogma-project/dogma/common/mmongo"
	"github.com/dogma-project/dogma/common/mpostgres"
	"github.com/dogma-project/dogma/common/mrabbitmq"
	"github.com/dogma-project/dogma/common/mredis"
	"github.com/dogma-project/dogma/common/mzap"
	"github.com/dogma-project/dogma/internal/cache"
	"github.com/dogma-project/dogma/internal/command"
	"github.com/dogma-project/dogma/internal/config"
	ports "github.com/dogma-project/dogma/internal/ports/http"
	"github.com/dogma-project/dogma/internal/project"
	"github.com/dogma-project/dogma/internal/replication"
	"github.com/dogma-project/dogma/internal/repo"
	"github.com/dogma-project/dogma/internal/session"
	"github.com/dogma-project/dogma/internal/watch"
)

// version is set at build time via -ldflags; it defaults to "dev" for
// local/unreleased builds.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	level, err := mlog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = mlog.InfoLevel
	}

	logger := buildLogger(cfg, level)

	if err := run(cfg, logger); err != nil {
		logger.Fatalf("dogmad exited: %v", err)
	}
}

// buildLogger selects the mlog.Logger implementation per cfg.LogBackend.
// "zap" constructs the structured, production-capable common/mzap backend
// (reading ENV_NAME/LOG_LEVEL itself, the same variables config.Load already
// read); anything else keeps the plain stdlib-backed GoLogger.
func buildLogger(cfg *config.Config, level mlog.LogLevel) mlog.Logger {
	switch cfg.LogBackend {
	case "zap":
		return mzap.InitializeLogger()
	default:
		return &mlog.GoLogger{Level: level}
	}
}

func run(cfg *config.Config, logger mlog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := repo.NewWorkerPool(cfg.RepositoryWorkers)
	repoCache := cache.New(cfg.CacheEntries, cfg.CacheMaxWeightBytes, 0)

	var audit project.AuditMirror

	if cfg.MongoConnectionString != "" {
		mongoConn := &mmongo.MongoConnection{ConnectionStringSource: cfg.MongoConnectionString}
		if err := mongoConn.Connect(ctx); err != nil {
			return err
		}

		audit = project.NewMongoAuditMirror(mongoConn, cfg.MongoDatabase)
		logger.Info("mongo audit mirror enabled")
	}

	manager := project.NewManager(cfg.DataDir, pool, audit)
	if err := manager.Bootstrap(ctx); err != nil {
		return err
	}

	manager.SetCacheInvalidator(repoCache)

	var sessions command.SessionStore
	var quota command.QuotaChecker

	if cfg.PostgresConnectionString != "" {
		pgConn := &mpostgres.PostgresConnection{ConnectionString: cfg.PostgresConnectionString}
		if err := pgConn.Connect(ctx); err != nil {
			return err
		}
		defer pgConn.Close()

		sessions = session.NewStore(pgConn)
		quota = session.NewQuota(pgConn, cfg.QuotaWritesPerWindow, cfg.QuotaWindowSeconds)
		logger.Info("postgres session store and quota enabled")
	}

	var metrics *watch.Metrics

	if cfg.RedisConnectionString != "" {
		redisConn := &mredis.RedisConnection{ConnectionStringSource: cfg.RedisConnectionString, Logger: logger}
		if err := redisConn.Connect(ctx); err != nil {
			return err
		}

		redisClient, err := redisConn.GetDB(ctx)
		if err != nil {
			return err
		}

		metrics = watch.NewMetrics(redisClient)
		logger.Info("redis watch metrics enabled")
	}

	watchSvc := watch.NewService(manager, metrics)
	manager.SetCommitNotifier(watchSvc)

	executor, closeExecutor, err := buildExecutor(ctx, cfg, manager, sessions, quota, logger)
	if err != nil {
		return err
	}
	defer closeExecutor()

	var basicAuth commonhttp.BasicAuthFunc
	if cfg.BasicAuthUsername != "" && cfg.BasicAuthPassword != "" {
		basicAuth = commonhttp.FixedBasicAuthFunc(cfg.BasicAuthUsername, cfg.BasicAuthPassword)
	}

	app := ports.NewApp(ports.Dependencies{
		Projects:    manager,
		Executor:    executor,
		Watch:       watchSvc,
		BasicAuth:   basicAuth,
		ServiceName: "dogmad",
		Version:     version,
	})

	errCh := make(chan error, 1)

	go func() {
		if err := app.Listen(cfg.ServerAddress); err != nil {
			errCh <- err
		}
	}()

	logger.Infof("dogmad listening on %s", cfg.ServerAddress)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.GracefulShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	return app.ShutdownWithContext(shutdownCtx)
}

// buildExecutor constructs either a Standalone or a raft-Replicated command
// executor depending on cfg.ReplicationMethod, returning a cleanup func that
// stops the executor and, for the replicated case, tears down the raft log
// and the RabbitMQ fanout.
func buildExecutor(
	ctx context.Context,
	cfg *config.Config,
	manager *project.Manager,
	sessions command.SessionStore,
	quota command.QuotaChecker,
	logger mlog.Logger,
) (command.Executor, func(), error) {
	switch config.ReplicationMethod(cfg.ReplicationMethod) {
	case config.ReplicationRaft:
		return buildReplicatedExecutor(ctx, cfg, manager, sessions, quota, logger)
	default:
		exec := command.NewStandalone(manager, sessions, quota)
		exec.Start(command.LeadershipCallbacks{})

		return exec, exec.Stop, nil
	}
}

func buildReplicatedExecutor(
	ctx context.Context,
	cfg *config.Config,
	manager *project.Manager,
	sessions command.SessionStore,
	quota command.QuotaChecker,
	logger mlog.Logger,
) (command.Executor, func(), error) {
	nodeID := cfg.RaftBindAddress
	if nodeID == "" {
		nodeID = cfg.ServerAddress
	}

	// exec is built before the log it wraps: hashicorp/raft may replay
	// persisted log entries synchronously inside Open (including an
	// UpdateServerStatus entry), and Dispatch needs a stable
	// command.ServerStatusSetter to apply those against. exec's log is
	// attached with SetLog once Open returns; Execute is never called before
	// that (the caller doesn't get exec back until this function returns).
	exec := command.NewReplicated(nil)

	raftLog, err := replication.Open(replication.Config{
		NodeID:      nodeID,
		BindAddress: cfg.RaftBindAddress,
		DataDir:     cfg.RaftDataDir,
		Bootstrap:   cfg.RaftBootstrap,
		MaxLogCount: uint64(cfg.RaftMaxLogCount),
		MinLogAge:   time.Duration(cfg.RaftMinLogAgeMillis) * time.Millisecond,
	}, func(applyCtx context.Context, cmd command.Command) (command.Result, error) {
		return command.Dispatch(applyCtx, manager, sessions, exec, cmd)
	})
	if err != nil {
		return nil, nil, err
	}

	exec.SetLog(raftLog)

	var rmqConn *mrabbitmq.RabbitMQConnection

	if cfg.RabbitMQConnectionString != "" {
		rmqConn = &mrabbitmq.RabbitMQConnection{ConnectionStringSource: cfg.RabbitMQConnectionString, Logger: logger}
		if err := rmqConn.Connect(ctx); err != nil {
			_ = raftLog.Shutdown()
			return nil, nil, err
		}

		fanout := replication.NewFanout(rmqConn, cfg.RabbitMQExchange)
		raftLog.Subscribe(fanoutListener{fanout: fanout})
		logger.Info("rabbitmq replication fanout enabled")
	}

	exec.Start(command.LeadershipCallbacks{})

	leaderCtx, cancelLeader := context.WithCancel(ctx)

	go func() {
		for {
			select {
			case <-leaderCtx.Done():
				return
			case leader, ok := <-raftLog.LeaderCh():
				if !ok {
					return
				}
				exec.SetWritable(leader)
			}
		}
	}()

	cleanup := func() {
		cancelLeader()
		exec.Stop()

		if rmqConn != nil {
			_ = rmqConn.Close()
		}

		_ = raftLog.Shutdown()
	}

	return exec, cleanup, nil
}

// fanoutListener adapts replication.Fanout (a repo.CommitNotifier) to the
// replication log's CommitListener, so the exchange only hears about
// successful Push commands, not every command kind.
type fanoutListener struct {
	fanout *replication.Fanout
}

func (f fanoutListener) OnCommandApplied(cmd command.Command, res command.Result) {
	if cmd.Kind != command.Push {
		return
	}

	f.fanout.NotifyCommit(cmd.Project, cmd.Repository, res.Revision)
}
