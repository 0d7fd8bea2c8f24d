package watch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogma-project/dogma/internal/objectstore"
	"github.com/dogma-project/dogma/internal/repo"
)

type fakeLookup struct {
	engine *repo.Engine
}

func (f *fakeLookup) Engine(ctx context.Context, project, repository string) (*repo.Engine, error) {
	return f.engine, nil
}

func newTestService(t *testing.T) (*Service, *repo.Engine) {
	t.Helper()

	store, err := objectstore.Open(t.TempDir())
	require.NoError(t, err)

	engine := repo.NewEngine("p", "r", store, repo.NewWorkerPool(4))
	svc := NewService(&fakeLookup{engine: engine}, nil)
	engine.SetCommitNotifier(svc)

	return svc, engine
}

func TestWatchImmediateWakeup(t *testing.T) {
	ctx := context.Background()
	svc, engine := newTestService(t)

	_, _, err := engine.Commit(ctx, 0, time.Now(), repo.Author{Name: "a"}, "c1", "", repo.MarkupPlain,
		[]repo.Change{{Type: repo.ChangeUpsertText, Path: "/a.txt", Content: []byte("hi")}}, false)
	require.NoError(t, err)

	result, err := svc.Watch(ctx, "p", "r", 0, PathPatternMatcher{Pattern: "/**"}, time.Second)
	require.NoError(t, err)
	assert.False(t, result.TimedOut)
	assert.EqualValues(t, 1, result.Revision)
}

func TestWatchWakesOnLaterCommit(t *testing.T) {
	ctx := context.Background()
	svc, engine := newTestService(t)

	_, _, err := engine.Commit(ctx, 0, time.Now(), repo.Author{Name: "a"}, "c1", "", repo.MarkupPlain,
		[]repo.Change{{Type: repo.ChangeUpsertText, Path: "/a.txt", Content: []byte("hi")}}, false)
	require.NoError(t, err)

	resultCh := make(chan Result, 1)
	errCh := make(chan error, 1)

	go func() {
		r, err := svc.Watch(ctx, "p", "r", 1, PathPatternMatcher{Pattern: "/**"}, 2*time.Second)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- r
	}()

	time.Sleep(50 * time.Millisecond)

	_, _, err = engine.Commit(ctx, 0, time.Now(), repo.Author{Name: "a"}, "c2", "", repo.MarkupPlain,
		[]repo.Change{{Type: repo.ChangeUpsertText, Path: "/b.txt", Content: []byte("new")}}, false)
	require.NoError(t, err)

	select {
	case r := <-resultCh:
		assert.EqualValues(t, 2, r.Revision)
	case err := <-errCh:
		t.Fatalf("watch failed: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not wake up")
	}
}

func TestWatchTimesOut(t *testing.T) {
	ctx := context.Background()
	svc, engine := newTestService(t)

	_, _, err := engine.Commit(ctx, 0, time.Now(), repo.Author{Name: "a"}, "c1", "", repo.MarkupPlain,
		[]repo.Change{{Type: repo.ChangeUpsertText, Path: "/a.txt", Content: []byte("hi")}}, false)
	require.NoError(t, err)

	result, err := svc.Watch(ctx, "p", "r", 1, PathPatternMatcher{Pattern: "/**"}, 100*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, result.TimedOut)
}

func TestFileQueryMatcherIgnoresUnrelatedChanges(t *testing.T) {
	ctx := context.Background()
	svc, engine := newTestService(t)

	_, _, err := engine.Commit(ctx, 0, time.Now(), repo.Author{Name: "a"}, "c1", "", repo.MarkupPlain,
		[]repo.Change{{Type: repo.ChangeUpsertJSON, Path: "/a.json", Content: []byte(`{"x":1}`)}}, false)
	require.NoError(t, err)

	matcher := FileQueryMatcher{Path: "/a.json", Query: repo.Query{Type: repo.QueryIdentity}}

	resultCh := make(chan Result, 1)

	go func() {
		r, err := svc.Watch(ctx, "p", "r", 1, matcher, time.Second)
		require.NoError(t, err)
		resultCh <- r
	}()

	time.Sleep(50 * time.Millisecond)

	_, _, err = engine.Commit(ctx, 0, time.Now(), repo.Author{Name: "a"}, "c2", "", repo.MarkupPlain,
		[]repo.Change{{Type: repo.ChangeUpsertText, Path: "/unrelated.txt", Content: []byte("new")}}, false)
	require.NoError(t, err)

	select {
	case r := <-resultCh:
		t.Fatalf("file-query matcher fired on an unrelated path change: %+v", r)
	case <-time.After(300 * time.Millisecond):
	}
}
