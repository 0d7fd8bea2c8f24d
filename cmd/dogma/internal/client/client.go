// Package client is the dogma CLI's HTTP transport: a thin wrapper over
// net/http that mirrors the way components/mdz's internal/rest package talks
// to its server — manual JSON marshal/unmarshal, a bearer token header, and
// typed errors that let the command layer choose the right exit code.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ServerError is returned when the server answered with a non-2xx status;
// it carries the {exception, message} envelope the HTTP seam emits.
type ServerError struct {
	Status    int
	Exception string
	Message   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d %s): %s", e.Status, e.Exception, e.Message)
}

// NetworkError wraps a transport-level failure (DNS, connection refused,
// timeout) so the CLI can distinguish it from a server-side rejection.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// Client talks to one dogmad server.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// New builds a Client. connect is a "host:port" pair, per --connect.
func New(connect, token string) *Client {
	return &Client{
		BaseURL:    "http://" + connect + "/api/v1",
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	uri := c.BaseURL + path
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}

	var reader io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}

		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}

	if resp.StatusCode == http.StatusNotModified {
		return ErrNotModified
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env struct {
			Exception string `json:"exception"`
			Message   string `json:"message"`
		}

		_ = json.Unmarshal(data, &env)

		return &ServerError{Status: resp.StatusCode, Exception: env.Exception, Message: env.Message}
	}

	if out == nil || len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// ErrNotModified is returned by Watch when the long poll timed out without
// a new revision.
var ErrNotModified = fmt.Errorf("not modified")

type Author struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type Project struct {
	Name      string `json:"name"`
	CreatedBy string `json:"createdBy"`
	CreatedAt string `json:"createdAt"`
	Status    string `json:"status"`
}

type Repository struct {
	Project   string `json:"project"`
	Name      string `json:"name"`
	CreatedBy string `json:"createdBy"`
	CreatedAt string `json:"createdAt"`
	Status    string `json:"status"`
	Encrypted bool   `json:"encrypted"`
}

type Entry struct {
	Path     string `json:"path"`
	Revision int32  `json:"revision"`
	Kind     string `json:"kind"`
	Content  []byte `json:"content,omitempty"`
}

type Change struct {
	Type    string `json:"type"`
	Path    string `json:"path"`
	NewPath string `json:"newPath,omitempty"`
	Content []byte `json:"content,omitempty"`
}

type Commit struct {
	Revision int32    `json:"revision"`
	Author   Author   `json:"author"`
	Ts       string   `json:"timestamp"`
	Summary  string   `json:"summary"`
	Detail   string   `json:"detail"`
	Markup   string   `json:"markup"`
	Changes  []Change `json:"changes"`
}

// ListProjects lists every project. includeInternal also lists the
// reserved "dogma" project used for the server's own metadata.
func (c *Client) ListProjects(ctx context.Context, includeInternal bool) ([]Project, error) {
	q := url.Values{}
	if includeInternal {
		q.Set("includeInternal", "true")
	}

	var out []Project

	return out, c.do(ctx, http.MethodGet, "/projects", q, nil, &out)
}

// CreateProject creates project name.
func (c *Client) CreateProject(ctx context.Context, name string, author Author) error {
	return c.do(ctx, http.MethodPost, "/projects", nil, map[string]any{"name": name, "author": author}, nil)
}

// RemoveProject soft-removes project.
func (c *Client) RemoveProject(ctx context.Context, project string) error {
	return c.do(ctx, http.MethodDelete, "/projects/"+project, nil, nil, nil)
}

// ListRepositories lists every repository in project.
func (c *Client) ListRepositories(ctx context.Context, project string) ([]Repository, error) {
	var out []Repository
	return out, c.do(ctx, http.MethodGet, "/projects/"+project+"/repos", nil, nil, &out)
}

// CreateRepository creates repository name under project.
func (c *Client) CreateRepository(ctx context.Context, project, name string, author Author) error {
	return c.do(ctx, http.MethodPost, "/projects/"+project+"/repos", nil,
		map[string]any{"name": name, "author": author}, nil)
}

// RemoveRepository soft-removes a repository.
func (c *Client) RemoveRepository(ctx context.Context, project, repository string) error {
	return c.do(ctx, http.MethodDelete, "/projects/"+project+"/repos/"+repository, nil, nil, nil)
}

// Get fetches the entry at path and revision, optionally projected through
// a query (queryType may be empty for an identity read). A nil Entry with
// nil error means the path does not exist at that revision.
func (c *Client) Get(ctx context.Context, project, repository, revision, path, queryType, expression string) (*Entry, error) {
	var out Entry

	q := url.Values{}
	if queryType != "" {
		q.Set("queryType", queryType)
		q.Set("expression", expression)
	}

	err := c.do(ctx, http.MethodGet,
		"/projects/"+project+"/repos/"+repository+"/contents/revisions/"+revision+path, q, nil, &out)
	if err != nil {
		if se, ok := err.(*ServerError); ok && se.Status == http.StatusNotFound {
			return nil, nil
		}

		return nil, err
	}

	return &out, nil
}

// List lists tree entries under path at revision.
func (c *Client) List(ctx context.Context, project, repository, revision, path string) ([]Entry, error) {
	var out []Entry

	return out, c.do(ctx, http.MethodGet,
		"/projects/"+project+"/repos/"+repository+"/tree/revisions/"+revision+path, nil, nil, &out)
}

// PushRequest is one commit envelope, as accepted by the push endpoint.
type PushRequest struct {
	BaseRevision string   `json:"baseRevision"`
	Summary      string   `json:"summary"`
	Detail       string   `json:"detail,omitempty"`
	Markup       string   `json:"markup,omitempty"`
	Changes      []Change `json:"changes"`
	Normalizing  bool     `json:"normalizing,omitempty"`
	ForcePush    bool     `json:"forcePush,omitempty"`
	Author       Author   `json:"author"`
}

type PushResult struct {
	Revision int32    `json:"revision"`
	Applied  []Change `json:"applied"`
}

// Push submits a commit.
func (c *Client) Push(ctx context.Context, project, repository string, req PushRequest) (*PushResult, error) {
	var out PushResult
	return &out, c.do(ctx, http.MethodPost, "/projects/"+project+"/repos/"+repository+"/contents", nil, req, &out)
}

// History lists commits affecting path between from and to.
func (c *Client) History(ctx context.Context, project, repository, from, to, path string, maxCommits int) ([]Commit, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}

	if to != "" {
		q.Set("to", to)
	}

	if maxCommits > 0 {
		q.Set("maxCommits", strconv.Itoa(maxCommits))
	}

	var out []Commit

	return out, c.do(ctx, http.MethodGet, "/projects/"+project+"/repos/"+repository+"/history"+path, q, nil, &out)
}

// Compare diffs path between from and to.
func (c *Client) Compare(ctx context.Context, project, repository, from, to, path string) ([]Change, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}

	if to != "" {
		q.Set("to", to)
	}

	var out []Change

	return out, c.do(ctx, http.MethodGet, "/projects/"+project+"/repos/"+repository+"/compare"+path, q, nil, &out)
}

// NormalizeRevision resolves rev against the repository's current HEAD.
func (c *Client) NormalizeRevision(ctx context.Context, project, repository, rev string) (int32, error) {
	var out struct {
		Revision int32 `json:"revision"`
	}

	err := c.do(ctx, http.MethodGet, "/projects/"+project+"/repos/"+repository+"/revision/"+rev, nil, nil, &out)

	return out.Revision, err
}

// Watch issues one long-poll watch call. waitSeconds bounds how long the
// server may hold the request open. ErrNotModified is returned on timeout.
func (c *Client) Watch(ctx context.Context, project, repository, lastKnown, path string, waitSeconds int) (*Entry, error) {
	q := url.Values{}
	q.Set("revision", lastKnown)

	uri := c.BaseURL + "/projects/" + project + "/repos/" + repository + "/contents" + path
	if len(q) > 0 {
		uri += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("prefer", fmt.Sprintf("wait=%d", waitSeconds))

	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	if resp.StatusCode == http.StatusNotModified {
		return nil, ErrNotModified
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env struct {
			Exception string `json:"exception"`
			Message   string `json:"message"`
		}

		_ = json.Unmarshal(data, &env)

		return nil, &ServerError{Status: resp.StatusCode, Exception: env.Exception, Message: env.Message}
	}

	var out Entry
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &out, nil
}
