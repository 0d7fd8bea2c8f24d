package project

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogma-project/dogma/internal/repo"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(t.TempDir(), repo.NewWorkerPool(4), nil)
}

func TestCreateProjectProvisionsReservedRepositories(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	p, err := m.CreateProject(ctx, "payments", "alice")
	require.NoError(t, err)
	assert.Equal(t, "payments", p.Name)

	repos, err := m.ListRepositories(ctx, "payments")
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, ReservedRepoDogma, repos[0].Name)
	assert.Equal(t, ReservedRepoMeta, repos[1].Name)
}

func TestCreateProjectRejectsInternalName(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.CreateProject(ctx, InternalProjectName, "alice")
	assert.Error(t, err)
}

func TestCreateProjectRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.CreateProject(ctx, "payments", "alice")
	require.NoError(t, err)

	_, err = m.CreateProject(ctx, "payments", "alice")
	assert.Error(t, err)
}

func TestListProjectsExcludesInternalByDefault(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	require.NoError(t, m.Bootstrap(ctx))
	_, err := m.CreateProject(ctx, "payments", "alice")
	require.NoError(t, err)

	projects, err := m.ListProjects(ctx, false)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "payments", projects[0].Name)

	all, err := m.ListProjects(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRemoveAndUnremoveProject(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.CreateProject(ctx, "payments", "alice")
	require.NoError(t, err)

	require.NoError(t, m.RemoveProject(ctx, "payments"))

	projects, err := m.ListProjects(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, projects)

	removed, err := m.ListRemovedProjects(ctx)
	require.NoError(t, err)
	require.Len(t, removed, 1)

	require.NoError(t, m.UnremoveProject(ctx, "payments"))

	projects, err = m.ListProjects(ctx, false)
	require.NoError(t, err)
	require.Len(t, projects, 1)
}

func TestPurgeDeletesMarkedProjects(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.CreateProject(ctx, "payments", "alice")
	require.NoError(t, err)

	require.NoError(t, m.RemoveProject(ctx, "payments"))
	require.NoError(t, m.MarkProjectForPurge(ctx, "payments"))
	require.NoError(t, m.Purge(ctx))

	_, err = m.GetProject(ctx, "payments")
	assert.Error(t, err)
}

func TestCreateRepositoryRejectsReservedNames(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.CreateProject(ctx, "payments", "alice")
	require.NoError(t, err)

	_, err = m.CreateRepository(ctx, "payments", ReservedRepoMeta, "alice")
	assert.Error(t, err)
}

func TestEngineIsCachedPerRepository(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.CreateProject(ctx, "payments", "alice")
	require.NoError(t, err)

	e1, err := m.Engine(ctx, "payments", ReservedRepoMeta)
	require.NoError(t, err)

	e2, err := m.Engine(ctx, "payments", ReservedRepoMeta)
	require.NoError(t, err)

	assert.Same(t, e1, e2)
}
