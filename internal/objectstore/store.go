// Package objectstore implements the content-addressed blob/tree/commit
// store of §4.A: objects are keyed by hash, writes are append-only, and a
// small sharded tag space maps human-readable names (revision numbers) to
// commit hashes.
//
// Object storage itself is delegated to go-git's filesystem storer, which
// already lays objects out the way §4.A asks for ("sharded directory layout,
// first byte pairs") — it is the same on-disk convention as .git/objects.
package objectstore

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/dogma-project/dogma/common"
	cn "github.com/dogma-project/dogma/common/constant"
)

// ZeroHash is the expected-hash value meaning "the ref must not currently
// exist" when passed to UpdateRef.
var ZeroHash = plumbing.ZeroHash

// Author identifies the principal that authored a commit.
type Author struct {
	Name  string
	Email string
}

// CommitMeta carries the non-tree fields of a commit object.
type CommitMeta struct {
	Author    Author
	Timestamp time.Time
	Summary   string
	Detail    string
}

// TreeEntry is one child of a tree object: either a blob (Regular) or a
// nested tree (Dir).
type TreeEntry struct {
	Name string
	Mode filemode.FileMode
	Hash plumbing.Hash
}

// IsDir reports whether the entry points at a nested tree.
func (e TreeEntry) IsDir() bool { return e.Mode == filemode.Dir }

// Store is a content-addressed object store rooted at a directory. One Store
// backs one repository; callers are responsible for serializing writes to a
// given Store (§4.B's repository worker pool does this).
type Store struct {
	fs      billy.Filesystem
	storage *filesystem.Storage
}

// Open roots a Store at dataDir, creating it if absent.
func Open(dataDir string) (*Store, error) {
	fs := osfs.New(dataDir)

	storage := filesystem.NewStorage(fs, cache.NewObjectLRUDefault())

	return &Store{fs: fs, storage: storage}, nil
}

// PutBlob stores raw bytes and returns its hash.
func (s *Store) PutBlob(data []byte) (plumbing.Hash, error) {
	obj := s.storage.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, wrapStorageErr(err)
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, wrapStorageErr(err)
	}

	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, wrapStorageErr(err)
	}

	hash, err := s.storage.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, wrapStorageErr(err)
	}

	return hash, nil
}

// ReadBlob returns the raw bytes stored under hash.
func (s *Store) ReadBlob(hash plumbing.Hash) ([]byte, error) {
	obj, err := s.storage.EncodedObject(plumbing.BlobObject, hash)
	if err != nil {
		return nil, notFoundOrStorageErr(err)
	}

	r, err := obj.Reader()
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, wrapStorageErr(err)
	}

	return data, nil
}

// PutTree encodes entries (sorted by name, the way git requires for a stable
// hash) and stores the resulting tree object.
func (s *Store) PutTree(entries []TreeEntry) (plumbing.Hash, error) {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	sortTreeEntries(sorted)

	tree := &object.Tree{}
	for _, e := range sorted {
		tree.Entries = append(tree.Entries, object.TreeEntry{
			Name: e.Name,
			Mode: e.Mode,
			Hash: e.Hash,
		})
	}

	obj := s.storage.NewEncodedObject()
	obj.SetType(plumbing.TreeObject)

	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, wrapStorageErr(err)
	}

	hash, err := s.storage.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, wrapStorageErr(err)
	}

	return hash, nil
}

// ReadTree decodes the tree object stored under hash.
func (s *Store) ReadTree(hash plumbing.Hash) ([]TreeEntry, error) {
	obj, err := s.storage.EncodedObject(plumbing.TreeObject, hash)
	if err != nil {
		return nil, notFoundOrStorageErr(err)
	}

	tree := &object.Tree{}
	if err := tree.Decode(obj); err != nil {
		return nil, wrapStorageErr(err)
	}

	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		entries = append(entries, TreeEntry{Name: e.Name, Mode: e.Mode, Hash: e.Hash})
	}

	return entries, nil
}

// PutCommit stores a commit object pointing at tree, with an optional single
// parent (pass plumbing.ZeroHash for the initial commit of a repository).
func (s *Store) PutCommit(parent, tree plumbing.Hash, meta CommitMeta) (plumbing.Hash, error) {
	sig := object.Signature{Name: meta.Author.Name, Email: meta.Author.Email, When: meta.Timestamp}

	c := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      commitMessage(meta),
		TreeHash:     tree,
		ParentHashes: nil,
	}

	if parent != plumbing.ZeroHash {
		c.ParentHashes = []plumbing.Hash{parent}
	}

	obj := s.storage.NewEncodedObject()
	obj.SetType(plumbing.CommitObject)

	if err := c.Encode(obj); err != nil {
		return plumbing.ZeroHash, wrapStorageErr(err)
	}

	hash, err := s.storage.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, wrapStorageErr(err)
	}

	return hash, nil
}

// ReadCommit decodes the commit object stored under hash.
func (s *Store) ReadCommit(hash plumbing.Hash) (*object.Commit, error) {
	obj, err := s.storage.EncodedObject(plumbing.CommitObject, hash)
	if err != nil {
		return nil, notFoundOrStorageErr(err)
	}

	c := &object.Commit{}
	if err := c.Decode(obj); err != nil {
		return nil, wrapStorageErr(err)
	}

	return c, nil
}

func commitMessage(meta CommitMeta) string {
	if strings.TrimSpace(meta.Detail) == "" {
		return meta.Summary
	}

	return meta.Summary + "\n\n" + meta.Detail
}

// refName is the one mutable ref a Store exposes: the repository head.
const refName = plumbing.ReferenceName("refs/heads/head")

// Head returns the commit hash the head ref currently points at, and false
// if the ref has never been set (a freshly created, empty repository).
func (s *Store) Head() (plumbing.Hash, bool, error) {
	ref, err := s.storage.Reference(refName)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return plumbing.ZeroHash, false, nil
	}

	if err != nil {
		return plumbing.ZeroHash, false, wrapStorageErr(err)
	}

	return ref.Hash(), true, nil
}

// UpdateRef compare-and-swaps the head ref from expected to next. Pass
// ZeroHash as expected to require the ref is currently unset. A mismatch is
// reported as ChangeConflict so callers can distinguish it from a genuine
// storage failure.
func (s *Store) UpdateRef(expected, next plumbing.Hash) error {
	current, _, err := s.Head()
	if err != nil {
		return err
	}

	if current != expected {
		return common.ValidateBusinessError(cn.ErrChangeConflict, "")
	}

	ref := plumbing.NewHashReference(refName, next)
	if err := s.storage.SetReference(ref); err != nil {
		return wrapStorageErr(err)
	}

	return nil
}

const headRevisionPath = "head_revision"

// HeadRevision returns the repository's current revision counter, 0 if no
// commit has ever been made. It is maintained alongside the head ref by the
// repository engine under the same per-repository serialization that
// protects UpdateRef, so it never needs its own CAS.
func (s *Store) HeadRevision() (int32, error) {
	f, err := s.fs.Open(headRevisionPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}

		return 0, wrapStorageErr(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return 0, wrapStorageErr(err)
	}

	var rev int32
	if _, err := fmt.Sscanf(strings.TrimSpace(string(data)), "%d", &rev); err != nil {
		return 0, wrapStorageErr(err)
	}

	return rev, nil
}

// SetHeadRevision persists the repository's current revision counter.
func (s *Store) SetHeadRevision(rev int32) error {
	f, err := s.fs.Create(headRevisionPath)
	if err != nil {
		return wrapStorageErr(err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%d", rev); err != nil {
		return wrapStorageErr(err)
	}

	return nil
}

// PutTag assigns a human-readable alias (a stringified revision number) to a
// commit hash, in a directory sharded by the first byte of the tag's own
// hash so no single directory accumulates every revision a busy repository
// ever produced.
func (s *Store) PutTag(name string, hash plumbing.Hash) error {
	p := tagPath(name)

	if err := s.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return wrapStorageErr(err)
	}

	f, err := s.fs.Create(p)
	if err != nil {
		return wrapStorageErr(err)
	}
	defer f.Close()

	if _, err := f.Write([]byte(hash.String())); err != nil {
		return wrapStorageErr(err)
	}

	return nil
}

// Tag resolves a previously assigned alias back to its commit hash.
func (s *Store) Tag(name string) (plumbing.Hash, bool, error) {
	f, err := s.fs.Open(tagPath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return plumbing.ZeroHash, false, nil
		}

		return plumbing.ZeroHash, false, wrapStorageErr(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return plumbing.ZeroHash, false, wrapStorageErr(err)
	}

	return plumbing.NewHash(strings.TrimSpace(string(data))), true, nil
}

func tagPath(name string) string {
	sum := sha1.Sum([]byte(name))
	shard := hex.EncodeToString(sum[:1])

	return path.Join("tags", shard, name)
}

func sortTreeEntries(entries []TreeEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j-1].Name > entries[j].Name; j-- {
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
}

func wrapStorageErr(err error) error {
	return common.ValidateBusinessError(cn.ErrStorage, "", err.Error())
}

func notFoundOrStorageErr(err error) error {
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return common.ValidateBusinessError(cn.ErrStorage, "", "object not found: "+err.Error())
	}

	return wrapStorageErr(err)
}
