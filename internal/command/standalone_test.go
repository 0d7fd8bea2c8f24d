package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogma-project/dogma/internal/project"
	"github.com/dogma-project/dogma/internal/repo"
)

func newTestExecutor(t *testing.T) *Standalone {
	t.Helper()

	projects := project.NewManager(t.TempDir(), repo.NewWorkerPool(4), nil)
	exec := NewStandalone(projects, nil, nil)
	exec.Start(LeadershipCallbacks{})

	return exec
}

func TestExecuteCreateProjectAndPush(t *testing.T) {
	ctx := context.Background()
	exec := newTestExecutor(t)

	res, err := exec.Execute(ctx, Command{Kind: CreateProject, Name: "payments", Author: repo.Author{Name: "alice"}})
	require.NoError(t, err)
	require.NotNil(t, res.Project)
	assert.Equal(t, "payments", res.Project.Name)

	_, err = exec.Execute(ctx, Command{Kind: CreateRepository, Project: "payments", Name: "config", Author: repo.Author{Name: "alice"}})
	require.NoError(t, err)

	res, err = exec.Execute(ctx, Command{
		Kind: Push, Project: "payments", Repository: "config",
		Author: repo.Author{Name: "alice"}, Timestamp: time.Now(), Summary: "init",
		Changes: []repo.Change{{Type: repo.ChangeUpsertText, Path: "/a.txt", Content: []byte("hi")}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Revision)
	assert.Len(t, res.Applied, 1)
}

func TestExecuteFailsFastWhenNotWritable(t *testing.T) {
	ctx := context.Background()
	exec := newTestExecutor(t)
	exec.SetWritable(false)

	_, err := exec.Execute(ctx, Command{Kind: CreateProject, Name: "payments", Author: repo.Author{Name: "alice"}})
	assert.Error(t, err)
}

func TestExecuteForcePushBypassesReadOnly(t *testing.T) {
	ctx := context.Background()
	exec := newTestExecutor(t)
	exec.SetWritable(false)

	_, err := exec.Execute(ctx, Command{Kind: CreateProject, Name: "payments", Author: repo.Author{Name: "alice"}, ForcePush: true})
	assert.NoError(t, err)
}

func TestExecuteRotateEncryptionKeySetsMarker(t *testing.T) {
	ctx := context.Background()
	exec := newTestExecutor(t)

	_, err := exec.Execute(ctx, Command{Kind: CreateProject, Name: "payments", Author: repo.Author{Name: "alice"}})
	require.NoError(t, err)

	_, err = exec.Execute(ctx, Command{Kind: CreateRepository, Project: "payments", Name: "config", Author: repo.Author{Name: "alice"}})
	require.NoError(t, err)

	res, err := exec.Execute(ctx, Command{
		Kind: RotateEncryptionKey, Project: "payments", Repository: "config",
		EncryptionKeyID: "key-2",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Repo)
	assert.True(t, res.Repo.Encrypted)
	assert.Equal(t, "key-2", res.Repo.EncryptionKeyID)

	stored, err := exec.projects.GetRepository(ctx, "payments", "config")
	require.NoError(t, err)
	assert.True(t, stored.Encrypted)
	assert.Equal(t, "key-2", stored.EncryptionKeyID)
}

func TestExecuteUpdateServerStatusTogglesWritable(t *testing.T) {
	ctx := context.Background()
	exec := newTestExecutor(t)

	_, err := exec.Execute(ctx, Command{Kind: UpdateServerStatus, ServerWritable: false})
	require.NoError(t, err)

	_, err = exec.Execute(ctx, Command{Kind: CreateProject, Name: "payments", Author: repo.Author{Name: "alice"}})
	assert.Error(t, err)

	_, err = exec.Execute(ctx, Command{Kind: UpdateServerStatus, ServerWritable: true, ForcePush: true})
	require.NoError(t, err)

	_, err = exec.Execute(ctx, Command{Kind: CreateProject, Name: "payments", Author: repo.Author{Name: "alice"}})
	assert.NoError(t, err)
}

func TestExecuteRejectsCommandsBeforeStart(t *testing.T) {
	ctx := context.Background()
	projects := project.NewManager(t.TempDir(), repo.NewWorkerPool(4), nil)
	exec := NewStandalone(projects, nil, nil)

	_, err := exec.Execute(ctx, Command{Kind: CreateProject, Name: "payments", Author: repo.Author{Name: "alice"}})
	assert.Error(t, err)
}
