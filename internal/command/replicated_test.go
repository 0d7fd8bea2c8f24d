package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLog struct {
	proposed []Command
}

func (f *fakeLog) Propose(ctx context.Context, cmd Command) (Result, error) {
	f.proposed = append(f.proposed, cmd)
	return Result{Revision: int32(len(f.proposed))}, nil
}

func TestReplicatedExecuteGeneratesRequestIDForPush(t *testing.T) {
	ctx := context.Background()
	log := &fakeLog{}
	exec := NewReplicated(log)
	exec.Start(LeadershipCallbacks{})

	_, err := exec.Execute(ctx, Command{Kind: Push, Project: "payments", Repository: "config"})
	require.NoError(t, err)
	require.Len(t, log.proposed, 1)
	assert.NotEmpty(t, log.proposed[0].RequestID)
}

func TestReplicatedExecutePreservesCallerSuppliedRequestID(t *testing.T) {
	ctx := context.Background()
	log := &fakeLog{}
	exec := NewReplicated(log)
	exec.Start(LeadershipCallbacks{})

	_, err := exec.Execute(ctx, Command{Kind: Push, Project: "payments", Repository: "config", RequestID: "caller-supplied"})
	require.NoError(t, err)
	require.Len(t, log.proposed, 1)
	assert.Equal(t, "caller-supplied", log.proposed[0].RequestID)
}

func TestReplicatedExecuteSetLogBeforeFirstUse(t *testing.T) {
	ctx := context.Background()
	exec := NewReplicated(nil)
	exec.Start(LeadershipCallbacks{})

	log := &fakeLog{}
	exec.SetLog(log)

	_, err := exec.Execute(ctx, Command{Kind: CreateProject, Name: "payments"})
	require.NoError(t, err)
	require.Len(t, log.proposed, 1)
}
