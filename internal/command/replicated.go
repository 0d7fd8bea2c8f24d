package command

import (
	"context"

	"github.com/dogma-project/dogma/common"
)

// Log is the seam the replication log (§4.F) implements: Propose appends
// cmd to the durable, totally-ordered log, waits for leader acknowledgement,
// and returns the result of applying it locally.
type Log interface {
	Propose(ctx context.Context, cmd Command) (Result, error)
}

// Replicated forwards every command through the replication log instead of
// applying it directly, so every replica observes the same total order.
type Replicated struct {
	lifecycle

	log Log
}

// NewReplicated builds a Replicated executor. log may be nil if the
// replication log is constructed after the executor itself — the raft log's
// Applier needs a stable *Replicated to dispatch UpdateServerStatus against
// before the Log it will eventually wrap exists yet — in which case SetLog
// must be called before Execute.
func NewReplicated(log Log) *Replicated {
	return &Replicated{log: log}
}

// SetLog attaches the replication log once it has been opened.
func (r *Replicated) SetLog(log Log) {
	r.log = log
}

func (r *Replicated) Status() Status { return r.StatusNow() }

// Execute proposes cmd to the replication log once the writable gate passes.
func (r *Replicated) Execute(ctx context.Context, cmd Command) (Result, error) {
	if err := r.checkWritable(cmd.ForcePush); err != nil {
		return Result{}, err
	}

	// A Push's RequestID is part of the log entry itself, so it survives
	// raft's at-least-once replay of that exact entry unchanged — the FSM
	// uses it to recognize a replay instead of re-running the commit.
	if cmd.Kind == Push && cmd.RequestID == "" {
		cmd.RequestID = common.GenerateUUIDv7().String()
	}

	return r.log.Propose(ctx, cmd)
}
