package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogma-project/dogma/internal/objectstore"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	store, err := objectstore.Open(t.TempDir())
	require.NoError(t, err)

	return NewEngine("myproject", "myrepo", store, NewWorkerPool(4))
}

func TestCommitAndGet(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	rev, applied, err := e.Commit(ctx, 0, time.Now(), Author{Name: "alice", Email: "alice@example.com"},
		"initial commit", "", MarkupPlain,
		[]Change{{Type: ChangeUpsertJSON, Path: "/a.json", Content: []byte(`{"x":1}`)}}, false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rev)
	assert.Len(t, applied, 1)

	entry, err := e.Get(ctx, 0, "/a.json", Query{Type: QueryIdentity})
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, EntryJSON, entry.Kind)
	assert.JSONEq(t, `{"x":1}`, string(entry.Content))
}

func TestCommitRejectsRedundant(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	_, _, err := e.Commit(ctx, 0, time.Now(), Author{Name: "a"}, "c1", "", MarkupPlain,
		[]Change{{Type: ChangeUpsertText, Path: "/a.txt", Content: []byte("hello")}}, false)
	require.NoError(t, err)

	_, _, err = e.Commit(ctx, 0, time.Now(), Author{Name: "a"}, "c2", "", MarkupPlain,
		[]Change{{Type: ChangeUpsertText, Path: "/a.txt", Content: []byte("hello")}}, false)
	assert.Error(t, err)
}

func TestListAndHistory(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	_, _, err := e.Commit(ctx, 0, time.Now(), Author{Name: "a"}, "c1", "", MarkupPlain,
		[]Change{{Type: ChangeUpsertText, Path: "/dir/a.txt", Content: []byte("one")}}, false)
	require.NoError(t, err)

	_, _, err = e.Commit(ctx, 0, time.Now(), Author{Name: "a"}, "c2", "", MarkupPlain,
		[]Change{{Type: ChangeUpsertText, Path: "/dir/b.txt", Content: []byte("two")}}, false)
	require.NoError(t, err)

	entries, err := e.List(ctx, 0, "/dir/*")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "/dir/a.txt", entries[0].Path)
	assert.Equal(t, "/dir/b.txt", entries[1].Path)

	commits, err := e.History(ctx, 1, 2, "/dir/**", 0)
	require.NoError(t, err)
	assert.Len(t, commits, 2)
}

func TestDiff(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	_, _, err := e.Commit(ctx, 0, time.Now(), Author{Name: "a"}, "c1", "", MarkupPlain,
		[]Change{{Type: ChangeUpsertJSON, Path: "/a.json", Content: []byte(`{"x":1}`)}}, false)
	require.NoError(t, err)

	_, _, err = e.Commit(ctx, 0, time.Now(), Author{Name: "a"}, "c2", "", MarkupPlain,
		[]Change{{Type: ChangeUpsertJSON, Path: "/a.json", Content: []byte(`{"x":2}`)}}, false)
	require.NoError(t, err)

	changes, err := e.Diff(ctx, 1, 2, "/**")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeApplyJSONPatch, changes[0].Type)
}

func TestPreviewDiffDropsRedundant(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	_, _, err := e.Commit(ctx, 0, time.Now(), Author{Name: "a"}, "c1", "", MarkupPlain,
		[]Change{{Type: ChangeUpsertText, Path: "/a.txt", Content: []byte("hello")}}, false)
	require.NoError(t, err)

	kept, err := e.PreviewDiff(ctx, 0, []Change{
		{Type: ChangeUpsertText, Path: "/a.txt", Content: []byte("hello")},
		{Type: ChangeUpsertText, Path: "/b.txt", Content: []byte("new")},
	}, false)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "/b.txt", kept[0].Path)
}

func TestNormalizeRevision(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	_, _, err := e.Commit(ctx, 0, time.Now(), Author{Name: "a"}, "c1", "", MarkupPlain,
		[]Change{{Type: ChangeUpsertText, Path: "/a.txt", Content: []byte("hello")}}, false)
	require.NoError(t, err)

	abs, err := e.NormalizeRevision(ctx, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, abs)
}
