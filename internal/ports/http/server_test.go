package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogma-project/dogma/internal/command"
	"github.com/dogma-project/dogma/internal/project"
	"github.com/dogma-project/dogma/internal/repo"
	"github.com/dogma-project/dogma/internal/watch"
)

func TestCreateProjectAndPush(t *testing.T) {
	pool := repo.NewWorkerPool(4)
	projects := project.NewManager(t.TempDir(), pool, nil)
	require.NoError(t, projects.Bootstrap(context.Background()))

	exec := command.NewStandalone(projects, nil, nil)
	exec.Start(command.LeadershipCallbacks{})
	defer exec.Stop()

	svc := watch.NewService(projects, nil)

	app := NewApp(Dependencies{Projects: projects, Executor: exec, Watch: svc, ServiceName: "dogmad", Version: "test"})

	createProjectBody, _ := json.Marshal(createProjectRequest{Name: "acme", Author: authorRequest{Name: "alice"}})
	req := httptest.NewRequest("POST", "/api/v1/projects", bytes.NewReader(createProjectBody))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	createRepoBody, _ := json.Marshal(createRepositoryRequest{Name: "config", Author: authorRequest{Name: "alice"}})
	req = httptest.NewRequest("POST", "/api/v1/projects/acme/repos", bytes.NewReader(createRepoBody))
	req.Header.Set("Content-Type", "application/json")

	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	pushBody, _ := json.Marshal(pushRequest{
		BaseRevision: "head",
		Summary:      "add a key",
		Changes:      []changeDTO{{Type: "UPSERT_TEXT", Path: "/a.txt", Content: []byte("hi")}},
		Author:       authorRequest{Name: "alice"},
	})
	req = httptest.NewRequest("POST", "/api/v1/projects/acme/repos/config/contents", bytes.NewReader(pushBody))
	req.Header.Set("Content-Type", "application/json")

	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	var pushed pushResponse
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &pushed))
	assert.EqualValues(t, 1, pushed.Revision)

	req = httptest.NewRequest("GET", "/api/v1/projects/acme/repos/config/contents/revisions/head/a.txt", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var entry entryResponse
	data, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "hi", string(entry.Content))
}

func TestRemoveProjectNotFound(t *testing.T) {
	pool := repo.NewWorkerPool(4)
	projects := project.NewManager(t.TempDir(), pool, nil)

	exec := command.NewStandalone(projects, nil, nil)
	exec.Start(command.LeadershipCallbacks{})
	defer exec.Stop()

	app := NewApp(Dependencies{Projects: projects, Executor: exec, Watch: watch.NewService(projects, nil), ServiceName: "dogmad"})

	req := httptest.NewRequest("DELETE", "/api/v1/projects/missing", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}
