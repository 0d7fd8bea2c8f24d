package objectstore

import (
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(t.TempDir())
	require.NoError(t, err)

	return s
}

func TestPutReadBlob(t *testing.T) {
	s := newTestStore(t)

	hash, err := s.PutBlob([]byte(`{"a":1}`))
	require.NoError(t, err)

	data, err := s.ReadBlob(hash)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
}

func TestPutReadTree(t *testing.T) {
	s := newTestStore(t)

	blobHash, err := s.PutBlob([]byte("hello"))
	require.NoError(t, err)

	treeHash, err := s.PutTree([]TreeEntry{
		{Name: "b.txt", Mode: filemode.Regular, Hash: blobHash},
		{Name: "a.txt", Mode: filemode.Regular, Hash: blobHash},
	})
	require.NoError(t, err)

	entries, err := s.ReadTree(treeHash)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.txt", entries[0].Name)
	assert.Equal(t, "b.txt", entries[1].Name)
}

func TestPutReadCommit(t *testing.T) {
	s := newTestStore(t)

	treeHash, err := s.PutTree(nil)
	require.NoError(t, err)

	commitHash, err := s.PutCommit(plumbing.ZeroHash, treeHash, CommitMeta{
		Author:    Author{Name: "alice", Email: "alice@example.com"},
		Timestamp: time.Unix(0, 0).UTC(),
		Summary:   "initial commit",
	})
	require.NoError(t, err)

	c, err := s.ReadCommit(commitHash)
	require.NoError(t, err)
	assert.Equal(t, "alice", c.Author.Name)
	assert.Equal(t, treeHash, c.TreeHash)
	assert.Empty(t, c.ParentHashes)
}

func TestUpdateRefCAS(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.Head()
	require.NoError(t, err)
	assert.False(t, ok)

	treeHash, err := s.PutTree(nil)
	require.NoError(t, err)

	c1, err := s.PutCommit(plumbing.ZeroHash, treeHash, CommitMeta{Timestamp: time.Now()})
	require.NoError(t, err)

	require.NoError(t, s.UpdateRef(plumbing.ZeroHash, c1))

	head, ok, err := s.Head()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, c1, head)

	// a stale expected hash is rejected as a conflict.
	c2, err := s.PutCommit(c1, treeHash, CommitMeta{Timestamp: time.Now()})
	require.NoError(t, err)

	err = s.UpdateRef(plumbing.ZeroHash, c2)
	assert.Error(t, err)
}

func TestTagRoundTrip(t *testing.T) {
	s := newTestStore(t)

	treeHash, err := s.PutTree(nil)
	require.NoError(t, err)

	commitHash, err := s.PutCommit(plumbing.ZeroHash, treeHash, CommitMeta{Timestamp: time.Now()})
	require.NoError(t, err)

	require.NoError(t, s.PutTag("1", commitHash))

	resolved, ok, err := s.Tag("1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, commitHash, resolved)

	_, ok, err = s.Tag("2")
	require.NoError(t, err)
	assert.False(t, ok)
}
