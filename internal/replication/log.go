package replication

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"

	"github.com/dogma-project/dogma/common"
	cn "github.com/dogma-project/dogma/common/constant"
	"github.com/dogma-project/dogma/internal/command"
)

// Config configures one replica's participation in the replication log.
type Config struct {
	NodeID        string
	BindAddress   string
	DataDir       string
	Bootstrap     bool
	MaxLogCount   uint64
	MinLogAge     time.Duration
	ApplyTimeout  time.Duration
}

// Log is the hashicorp/raft-backed implementation of command.Log: commands
// are appended to a durable bolt-backed log, replicated to a quorum, and
// applied to local state only once raft has committed them in order.
type Log struct {
	raft   *raft.Raft
	cfg    Config
	notify []CommitListener
}

// CommitListener is notified after a command proposed through this replica's
// Log is durably applied by raft. Commands a replica applies only through
// replication from another replica are not reported to it.
type CommitListener interface {
	OnCommandApplied(cmd command.Command, res command.Result)
}

// Open starts (or rejoins) the raft group for this replica, applying every
// committed entry through apply.
func Open(cfg Config, apply Applier) (*Log, error) {
	if cfg.ApplyTimeout == 0 {
		cfg.ApplyTimeout = 10 * time.Second
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, wrapStorageErr(err)
	}

	raftCfg := raft.DefaultConfig()
	raftCfg.LocalID = raft.ServerID(cfg.NodeID)

	if cfg.MaxLogCount > 0 {
		raftCfg.TrailingLogs = cfg.MaxLogCount
	}

	if cfg.MinLogAge > 0 {
		raftCfg.SnapshotInterval = cfg.MinLogAge
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-log.db"))
	if err != nil {
		return nil, wrapStorageErr(err)
	}

	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-stable.db"))
	if err != nil {
		return nil, wrapStorageErr(err)
	}

	snapshotStore, err := raft.NewFileSnapshotStore(cfg.DataDir, 2, os.Stderr)
	if err != nil {
		return nil, wrapStorageErr(err)
	}

	addr, err := net.ResolveTCPAddr("tcp", cfg.BindAddress)
	if err != nil {
		return nil, wrapStorageErr(err)
	}

	transport, err := raft.NewTCPTransport(cfg.BindAddress, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, wrapStorageErr(err)
	}

	f, err := newFSM(apply)
	if err != nil {
		return nil, wrapStorageErr(err)
	}

	r, err := raft.NewRaft(raftCfg, f, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return nil, wrapStorageErr(err)
	}

	if cfg.Bootstrap {
		f := r.BootstrapCluster(raft.Configuration{
			Servers: []raft.Server{{ID: raftCfg.LocalID, Address: transport.LocalAddr()}},
		})
		if err := f.Error(); err != nil && err != raft.ErrCantBootstrap {
			return nil, wrapStorageErr(err)
		}
	}

	return &Log{raft: r, cfg: cfg}, nil
}

// Subscribe registers a listener invoked by Propose after each command it
// has committed and applied successfully. Listeners therefore run only on the
// replica that proposed the command (the leader).
func (l *Log) Subscribe(listener CommitListener) {
	l.notify = append(l.notify, listener)
}

// Propose appends cmd to the log and blocks until it is committed and
// applied locally, satisfying command.Log. Only the current leader may
// propose: on a follower Propose fails with a ReplicationUnavailable error
// ("not the leader"), and the command is not forwarded to the leader.
func (l *Log) Propose(ctx context.Context, cmd command.Command) (command.Result, error) {
	if l.raft.State() != raft.Leader {
		return command.Result{}, common.ValidateBusinessError(cn.ErrReplicationDown, "", "not the leader")
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return command.Result{}, common.ValidateBusinessError(cn.ErrInternal, "", err.Error())
	}

	future := l.raft.Apply(data, l.cfg.ApplyTimeout)
	if err := future.Error(); err != nil {
		return command.Result{}, common.ValidateBusinessError(cn.ErrReplicationDown, "", err.Error())
	}

	ar, _ := future.Response().(applyResult)
	if ar.err != nil {
		return command.Result{}, ar.err
	}

	for _, listener := range l.notify {
		listener.OnCommandApplied(cmd, ar.result)
	}

	return ar.result, nil
}

// LeaderCh exposes raft's leadership channel: it delivers true when this
// replica gains leadership and false when it loses it.
func (l *Log) LeaderCh() <-chan bool { return l.raft.LeaderCh() }

// IsLeader reports whether this replica currently holds leadership.
func (l *Log) IsLeader() bool { return l.raft.State() == raft.Leader }

// Shutdown releases raft's resources.
func (l *Log) Shutdown() error {
	return l.raft.Shutdown().Error()
}

func wrapStorageErr(err error) error {
	return common.ValidateBusinessError(cn.ErrStorage, "", err.Error())
}
