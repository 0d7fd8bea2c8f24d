// Package replication implements the replication log of §4.F: a
// totally-ordered, durable append-only log of commands shared by every
// replica, backed directly by hashicorp/raft rather than a hand-rolled
// consensus protocol.
package replication

import (
	"context"
	"encoding/json"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/raft"

	"github.com/dogma-project/dogma/common"
	cn "github.com/dogma-project/dogma/common/constant"
	"github.com/dogma-project/dogma/internal/command"
)

// Applier applies one already-ordered command to local state. It is the
// Standalone dispatch path, shared by every replica's FSM.
type Applier func(ctx context.Context, cmd command.Command) (command.Result, error)

// applyResult is what fsm.Apply returns through the raft.ApplyFuture; raft
// only requires it be an interface{}.
type applyResult struct {
	result command.Result
	err    error
}

// appliedPushLedgerSize bounds how many distinct Push RequestIDs the FSM
// remembers for replay detection. Sized generously above any realistic
// in-flight/retained-log window; eviction only matters for request IDs old
// enough that raft would never replay their entry again anyway.
const appliedPushLedgerSize = 4096

// fsm adapts Applier to raft's FSM contract. Committed state itself lives
// entirely in the project manager and repository object stores that Applier
// dispatches into. The FSM additionally keeps a small ledger of applied Push
// RequestIDs: hashicorp/raft applies at-least-once (a crash before a
// snapshot can replay already-committed entries on restart), and without a
// stable per-proposal identifier there is no way to tell that replay apart
// from a brand-new Push that happens to conflict.
type fsm struct {
	apply Applier

	appliedPushes *lru.Cache[string, applyResult]
}

func newFSM(apply Applier) (*fsm, error) {
	ledger, err := lru.New[string, applyResult](appliedPushLedgerSize)
	if err != nil {
		return nil, err
	}

	return &fsm{apply: apply, appliedPushes: ledger}, nil
}

func (f *fsm) Apply(entry *raft.Log) interface{} {
	var cmd command.Command
	if err := json.Unmarshal(entry.Data, &cmd); err != nil {
		return applyResult{err: common.ValidateBusinessError(cn.ErrInternal, "", "corrupt log entry: "+err.Error())}
	}

	replayable := cmd.Kind == command.Push && cmd.RequestID != ""
	ledgerKey := pushLedgerKey(cmd)

	if replayable {
		if cached, ok := f.appliedPushes.Get(ledgerKey); ok {
			// A genuine replay of an already-applied entry: return the
			// original successful outcome instead of re-running the commit
			// against a head it has already moved. Only successful pushes
			// are remembered, so a replay of a failed push is applied again.
			return cached
		}
	}

	res, err := f.apply(context.Background(), cmd)
	ar := applyResult{result: res, err: err}

	if replayable && err == nil {
		f.appliedPushes.Add(ledgerKey, ar)
	}

	return ar
}

func pushLedgerKey(cmd command.Command) string {
	return cmd.Project + "/" + cmd.Repository + "/" + cmd.RequestID
}

func (f *fsm) Snapshot() (raft.FSMSnapshot, error) {
	return noopSnapshot{}, nil
}

func (f *fsm) Restore(rc io.ReadCloser) error {
	defer rc.Close()
	_, err := io.Copy(io.Discard, rc)
	return err
}

// noopSnapshot defers to a repository snapshot transfer (a copy of each
// repository's object store directory) rather than an FSM-level byte
// snapshot, since the authoritative state already lives on disk per
// repository and is what joining replicas outside the retained log window
// need to copy.
type noopSnapshot struct{}

func (noopSnapshot) Persist(sink raft.SnapshotSink) error { return sink.Close() }
func (noopSnapshot) Release()                             {}
