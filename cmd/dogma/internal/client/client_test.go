package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListProjects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/projects", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode([]Project{{Name: "acme", Status: "active"}})
	}))
	defer srv.Close()

	c := New(srv.Listener.Addr().String(), "secret")

	projects, err := c.ListProjects(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "acme", projects[0].Name)
}

func TestServerErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"exception": "ProjectNotFound", "message": "no such project"})
	}))
	defer srv.Close()

	c := New(srv.Listener.Addr().String(), "")

	_, err := c.ListRepositories(context.Background(), "missing")
	require.Error(t, err)

	var serr *ServerError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusNotFound, serr.Status)
	assert.Equal(t, "ProjectNotFound", serr.Exception)
}

func TestNetworkError(t *testing.T) {
	c := New("127.0.0.1:1", "")

	_, err := c.ListProjects(context.Background(), false)
	require.Error(t, err)

	var nerr *NetworkError
	require.ErrorAs(t, err, &nerr)
}
