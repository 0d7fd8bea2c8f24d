package replication

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hashicorp/raft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogma-project/dogma/common"
	cn "github.com/dogma-project/dogma/common/constant"
	"github.com/dogma-project/dogma/internal/command"
)

func TestFSMApplyDispatchesToApplier(t *testing.T) {
	var seen command.Command

	f, err := newFSM(func(ctx context.Context, cmd command.Command) (command.Result, error) {
		seen = cmd
		return command.Result{Revision: 7}, nil
	})
	require.NoError(t, err)

	data, err := json.Marshal(command.Command{Kind: command.CreateProject, Name: "payments"})
	require.NoError(t, err)

	out := f.Apply(&raft.Log{Data: data})
	ar, ok := out.(applyResult)
	require.True(t, ok)
	require.NoError(t, ar.err)
	assert.EqualValues(t, 7, ar.result.Revision)
	assert.Equal(t, command.CreateProject, seen.Kind)
}

func TestFSMApplyPropagatesGenuineConflict(t *testing.T) {
	calls := 0

	f, err := newFSM(func(ctx context.Context, cmd command.Command) (command.Result, error) {
		calls++
		return command.Result{}, common.ValidateBusinessError(cn.ErrChangeConflict, "")
	})
	require.NoError(t, err)

	data, err := json.Marshal(command.Command{Kind: command.Push, Project: "payments", Repository: "config", RequestID: "req-1"})
	require.NoError(t, err)

	out := f.Apply(&raft.Log{Data: data})
	ar, ok := out.(applyResult)
	require.True(t, ok)
	assert.Error(t, ar.err)
	assert.Equal(t, 1, calls)

	// A second, distinct Push that also conflicts is not mistaken for a
	// replay of the first: it has its own RequestID, so it is applied (and
	// fails) on its own merits.
	data2, err := json.Marshal(command.Command{Kind: command.Push, Project: "payments", Repository: "config", RequestID: "req-2"})
	require.NoError(t, err)

	out2 := f.Apply(&raft.Log{Data: data2})
	ar2, ok := out2.(applyResult)
	require.True(t, ok)
	assert.Error(t, ar2.err)
	assert.Equal(t, 2, calls)
}

func TestFSMApplyReplayReturnsCachedResult(t *testing.T) {
	calls := 0

	f, err := newFSM(func(ctx context.Context, cmd command.Command) (command.Result, error) {
		calls++
		return command.Result{Revision: 3}, nil
	})
	require.NoError(t, err)

	data, err := json.Marshal(command.Command{Kind: command.Push, Project: "payments", Repository: "config", RequestID: "req-1"})
	require.NoError(t, err)

	out := f.Apply(&raft.Log{Data: data})
	ar, ok := out.(applyResult)
	require.True(t, ok)
	require.NoError(t, ar.err)
	assert.EqualValues(t, 3, ar.result.Revision)
	assert.Equal(t, 1, calls)

	// A raft replay of the identical entry (same RequestID) returns the
	// original result without re-invoking the applier.
	replayed := f.Apply(&raft.Log{Data: data})
	rar, ok := replayed.(applyResult)
	require.True(t, ok)
	require.NoError(t, rar.err)
	assert.EqualValues(t, 3, rar.result.Revision)
	assert.Equal(t, 1, calls)
}
