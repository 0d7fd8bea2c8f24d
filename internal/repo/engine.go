package repo

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/dogma-project/dogma/common"
	cn "github.com/dogma-project/dogma/common/constant"
	"github.com/dogma-project/dogma/internal/objectstore"
	"github.com/dogma-project/dogma/internal/revision"
)

// CacheInvalidator is notified whenever a repository's head advances, so a
// process-wide cache (§4.C) can drop entries keyed by that repository.
type CacheInvalidator interface {
	InvalidateRepository(project, repository string)
}

// CommitNotifier is notified whenever a repository's head advances, so the
// watch service (§4.G) can wake waiters whose matcher fires against the new
// revision.
type CommitNotifier interface {
	NotifyCommit(project, repository string, newRevision int32)
}

// commitEnvelope is the structured payload stored as a commit's message.
// The object store itself only understands opaque commit messages; the
// repository engine is the layer that knows a message is actually this
// envelope.
type commitEnvelope struct {
	Summary string   `json:"summary"`
	Detail  string   `json:"detail"`
	Markup  Markup   `json:"markup"`
	Changes []Change `json:"changes"`
}

// Engine is the versioned repository engine of §4.B for a single
// repository.
type Engine struct {
	Project    string
	Repository string

	store *objectstore.Store
	pool  *WorkerPool

	invalidator CacheInvalidator
	notifier    CommitNotifier
}

// NewEngine builds an Engine over an already-open object store, sharing pool
// across every repository in the process per §5.
func NewEngine(project, repository string, store *objectstore.Store, pool *WorkerPool) *Engine {
	return &Engine{Project: project, Repository: repository, store: store, pool: pool}
}

// SetCacheInvalidator wires the repository cache's invalidation hook.
func (e *Engine) SetCacheInvalidator(inv CacheInvalidator) { e.invalidator = inv }

// SetCommitNotifier wires the watch service's commit notification hook.
func (e *Engine) SetCommitNotifier(n CommitNotifier) { e.notifier = n }

func (e *Engine) repoKey() string { return e.Project + "/" + e.Repository }

// Commit applies changes on top of base (possibly reparented onto the
// current head if base is stale and no conflicting path was touched in
// between), appending a new commit and atomically advancing the head ref.
func (e *Engine) Commit(ctx context.Context, base int32, ts time.Time, author Author, summary, detail string, markup Markup, changes []Change, normalizing bool) (revision.Revision, []Change, error) {
	var (
		newRev  revision.Revision
		applied []Change
	)

	err := e.pool.Submit(ctx, e.repoKey(), func() error {
		head, err := e.store.HeadRevision()
		if err != nil {
			return err
		}

		baseRev, err := revision.Normalize(base, head)
		if err != nil {
			return err
		}

		headHash, _, err := e.store.Head()
		if err != nil {
			return err
		}

		idxTreeHash, err := e.treeHashAt(int32(baseRev))
		if err != nil {
			return err
		}

		if int32(baseRev) != head {
			conflict, err := e.conflicts(baseRev, revision.Revision(head), headHash, changes)
			if err != nil {
				return err
			}

			if conflict {
				return common.ValidateBusinessError(cn.ErrChangeConflict, "")
			}

			// No conflicting path: reparent onto the current head's tree.
			idxTreeHash, err = e.treeHashAt(head)
			if err != nil {
				return err
			}
		}

		idx, err := loadTreeIndex(e.store, idxTreeHash)
		if err != nil {
			return err
		}

		var nonRedundant []Change

		for _, ch := range changes {
			redundant, err := applyChange(e.store, idx, ch, normalizing)
			if err != nil {
				return err
			}

			if !redundant {
				nonRedundant = append(nonRedundant, ch)
			}
		}

		if len(nonRedundant) == 0 {
			return common.ValidateBusinessError(cn.ErrRedundantChange, "")
		}

		newTreeHash, err := buildTree(e.store, idx)
		if err != nil {
			return err
		}

		envelope := commitEnvelope{Summary: summary, Detail: detail, Markup: markup, Changes: nonRedundant}

		message, err := json.Marshal(envelope)
		if err != nil {
			return common.ValidateBusinessError(cn.ErrInternal, "", err.Error())
		}

		commitHash, err := e.store.PutCommit(headHash, newTreeHash, objectstore.CommitMeta{
			Author:    objectstore.Author{Name: author.Name, Email: author.Email},
			Timestamp: ts,
			Summary:   string(message),
		})
		if err != nil {
			return err
		}

		nextRev := head + 1

		if err := e.store.UpdateRef(headHash, commitHash); err != nil {
			return err
		}

		if err := e.store.SetHeadRevision(nextRev); err != nil {
			return err
		}

		if err := e.store.PutTag(strconv.Itoa(int(nextRev)), commitHash); err != nil {
			return err
		}

		newRev = revision.Revision(nextRev)
		applied = nonRedundant

		if e.invalidator != nil {
			e.invalidator.InvalidateRepository(e.Project, e.Repository)
		}

		if e.notifier != nil {
			e.notifier.NotifyCommit(e.Project, e.Repository, nextRev)
		}

		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	return newRev, applied, nil
}

// Get reads path at revision rev through query projection q, returning nil
// if the path does not exist.
func (e *Engine) Get(ctx context.Context, rev int32, path string, q Query) (*Entry, error) {
	head, err := e.store.HeadRevision()
	if err != nil {
		return nil, err
	}

	abs, err := revision.Normalize(rev, head)
	if err != nil {
		return nil, err
	}

	treeHash, err := e.treeHashAt(int32(abs))
	if err != nil {
		return nil, err
	}

	idx, err := loadTreeIndex(e.store, treeHash)
	if err != nil {
		return nil, err
	}

	hash, ok := idx[path]
	if !ok {
		if isDirectory(idx, path) {
			return &Entry{Path: path, Revision: int32(abs), Kind: EntryDirectory}, nil
		}

		return nil, nil
	}

	content, err := e.store.ReadBlob(hash)
	if err != nil {
		return nil, err
	}

	entry := Entry{Path: path, Revision: int32(abs), Kind: kindForPath(path), Content: content}

	projected, err := applyQuery(entry, q)
	if err != nil {
		return nil, err
	}

	return &projected, nil
}

// Exists reports whether path exists at rev.
func (e *Engine) Exists(ctx context.Context, rev int32, path string) (bool, error) {
	entry, err := e.Get(ctx, rev, path, Query{Type: QueryIdentity})
	if err != nil {
		return false, err
	}

	return entry != nil, nil
}

// List traverses the tree at rev, returning entries matching pathPattern in
// lexicographic path order.
func (e *Engine) List(ctx context.Context, rev int32, pathPattern string) ([]Entry, error) {
	head, err := e.store.HeadRevision()
	if err != nil {
		return nil, err
	}

	abs, err := revision.Normalize(rev, head)
	if err != nil {
		return nil, err
	}

	treeHash, err := e.treeHashAt(int32(abs))
	if err != nil {
		return nil, err
	}

	idx, err := loadTreeIndex(e.store, treeHash)
	if err != nil {
		return nil, err
	}

	pattern := CompilePattern(pathPattern)

	dirs := map[string]bool{"/": true}
	var entries []Entry

	for p, hash := range idx {
		for _, d := range directoriesOf(p) {
			dirs[d] = true
		}

		if !pattern.Match(p) {
			continue
		}

		content, err := e.store.ReadBlob(hash)
		if err != nil {
			return nil, err
		}

		entries = append(entries, Entry{Path: p, Revision: int32(abs), Kind: kindForPath(p), Content: content})
	}

	for d := range dirs {
		if pattern.Match(d) {
			entries = append(entries, Entry{Path: d, Revision: int32(abs), Kind: EntryDirectory})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	return entries, nil
}

// History walks commits between from and to (inclusive), returning those
// whose applied changes touch at least one path matching pathPattern,
// oriented newest-first relative to the from->to direction, bounded by
// maxCommits.
func (e *Engine) History(ctx context.Context, from, to int32, pathPattern string, maxCommits int) ([]Commit, error) {
	head, err := e.store.HeadRevision()
	if err != nil {
		return nil, err
	}

	fromAbs, err := revision.Normalize(from, head)
	if err != nil {
		return nil, err
	}

	toAbs, err := revision.Normalize(to, head)
	if err != nil {
		return nil, err
	}

	lo, hi := int32(fromAbs), int32(toAbs)
	descending := fromAbs > toAbs

	if lo > hi {
		lo, hi = hi, lo
	}

	pattern := CompilePattern(pathPattern)

	var out []Commit

	walk := func(rev int32) error {
		if maxCommits > 0 && len(out) >= maxCommits {
			return nil
		}

		c, err := e.commitAt(rev)
		if err != nil {
			return err
		}

		if pathPattern != "" {
			touched, err := touchedByCommit(c)
			if err != nil {
				return err
			}

			if !anyMatch(pattern, touched) {
				return nil
			}
		}

		out = append(out, *c)

		return nil
	}

	if descending {
		for r := hi; r >= lo; r-- {
			if err := walk(r); err != nil {
				return nil, err
			}
		}
	} else {
		for r := lo; r <= hi; r++ {
			if err := walk(r); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

// Diff computes the per-path difference between the trees at from and to,
// restricted to pathPattern.
func (e *Engine) Diff(ctx context.Context, from, to int32, pathPattern string) ([]Change, error) {
	head, err := e.store.HeadRevision()
	if err != nil {
		return nil, err
	}

	fromAbs, err := revision.Normalize(from, head)
	if err != nil {
		return nil, err
	}

	toAbs, err := revision.Normalize(to, head)
	if err != nil {
		return nil, err
	}

	fromTree, err := e.treeHashAt(int32(fromAbs))
	if err != nil {
		return nil, err
	}

	toTree, err := e.treeHashAt(int32(toAbs))
	if err != nil {
		return nil, err
	}

	fromIdx, err := loadTreeIndex(e.store, fromTree)
	if err != nil {
		return nil, err
	}

	toIdx, err := loadTreeIndex(e.store, toTree)
	if err != nil {
		return nil, err
	}

	pattern := CompilePattern(pathPattern)

	paths := map[string]bool{}
	for p := range fromIdx {
		paths[p] = true
	}

	for p := range toIdx {
		paths[p] = true
	}

	var changes []Change

	for p := range paths {
		if !pattern.Match(p) {
			continue
		}

		fromHash, inFrom := fromIdx[p]
		toHash, inTo := toIdx[p]

		if inFrom && inTo && fromHash == toHash {
			continue
		}

		ch, err := e.diffOne(p, inFrom, fromHash, inTo, toHash)
		if err != nil {
			return nil, err
		}

		changes = append(changes, ch)
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })

	return changes, nil
}

// PreviewDiff applies changes in memory against the tree at base and
// returns the subset that would actually alter state.
func (e *Engine) PreviewDiff(ctx context.Context, base int32, changes []Change, normalizing bool) ([]Change, error) {
	head, err := e.store.HeadRevision()
	if err != nil {
		return nil, err
	}

	abs, err := revision.Normalize(base, head)
	if err != nil {
		return nil, err
	}

	treeHash, err := e.treeHashAt(int32(abs))
	if err != nil {
		return nil, err
	}

	idx, err := loadTreeIndex(e.store, treeHash)
	if err != nil {
		return nil, err
	}

	var kept []Change

	for _, ch := range changes {
		redundant, err := applyChange(e.store, idx, ch, normalizing)
		if err != nil {
			return nil, err
		}

		if !redundant {
			kept = append(kept, ch)
		}
	}

	return kept, nil
}

// Head returns the current head revision number.
func (e *Engine) Head(ctx context.Context) (int32, error) {
	return e.store.HeadRevision()
}

// NormalizeRevision resolves rev against the current head.
func (e *Engine) NormalizeRevision(ctx context.Context, rev int32) (int32, error) {
	head, err := e.store.HeadRevision()
	if err != nil {
		return 0, err
	}

	abs, err := revision.Normalize(rev, head)
	if err != nil {
		return 0, err
	}

	return int32(abs), nil
}

func (e *Engine) commitHashAt(rev int32) (plumbing.Hash, error) {
	hash, ok, err := e.store.Tag(strconv.Itoa(int(rev)))
	if err != nil {
		return plumbing.ZeroHash, err
	}

	if !ok {
		return plumbing.ZeroHash, common.ValidateBusinessError(cn.ErrRevisionNotFound, "", strconv.Itoa(int(rev)))
	}

	return hash, nil
}

func (e *Engine) treeHashAt(rev int32) (plumbing.Hash, error) {
	if rev == 0 {
		return plumbing.ZeroHash, nil
	}

	hash, err := e.commitHashAt(rev)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	c, err := e.store.ReadCommit(hash)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	return c.TreeHash, nil
}

func (e *Engine) commitAt(rev int32) (*Commit, error) {
	hash, err := e.commitHashAt(rev)
	if err != nil {
		return nil, err
	}

	gc, err := e.store.ReadCommit(hash)
	if err != nil {
		return nil, err
	}

	var envelope commitEnvelope
	if err := json.Unmarshal([]byte(gc.Message), &envelope); err != nil {
		return nil, common.ValidateBusinessError(cn.ErrStorage, "", "corrupt commit envelope: "+err.Error())
	}

	return &Commit{
		Revision: rev,
		Author:   Author{Name: gc.Author.Name, Email: gc.Author.Email},
		Ts:       gc.Author.When,
		Summary:  envelope.Summary,
		Detail:   envelope.Detail,
		Markup:   envelope.Markup,
		Changes:  envelope.Changes,
	}, nil
}

func touchedByCommit(c *Commit) ([]string, error) {
	var paths []string

	for _, ch := range c.Changes {
		paths = append(paths, ch.Path)

		if ch.Type == ChangeRename {
			paths = append(paths, ch.NewPath)
		}
	}

	return paths, nil
}

func anyMatch(p *Pattern, paths []string) bool {
	for _, path := range paths {
		if p.Match(path) {
			return true
		}
	}

	return false
}

// conflicts reports whether any commit strictly after baseRev up to and
// including head touched a path also touched by changes.
func (e *Engine) conflicts(baseRev, head revision.Revision, headHash plumbing.Hash, changes []Change) (bool, error) {
	touched := map[string]bool{}

	for _, ch := range changes {
		touched[ch.Path] = true

		if ch.Type == ChangeRename {
			touched[ch.NewPath] = true
		}
	}

	count := int(head) - int(baseRev)
	hash := headHash

	for i := 0; i < count; i++ {
		c, err := e.store.ReadCommit(hash)
		if err != nil {
			return false, err
		}

		var envelope commitEnvelope
		if err := json.Unmarshal([]byte(c.Message), &envelope); err != nil {
			return false, common.ValidateBusinessError(cn.ErrStorage, "", "corrupt commit envelope: "+err.Error())
		}

		for _, ch := range envelope.Changes {
			if touched[ch.Path] || (ch.Type == ChangeRename && touched[ch.NewPath]) {
				return true, nil
			}
		}

		if len(c.ParentHashes) == 0 {
			break
		}

		hash = c.ParentHashes[0]
	}

	return false, nil
}

func isDirectory(idx map[string]plumbing.Hash, dir string) bool {
	if dir == "/" {
		return true
	}

	prefix := strings.TrimSuffix(dir, "/") + "/"

	for p := range idx {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}

	return false
}

func (e *Engine) diffOne(path string, inFrom bool, fromHash plumbing.Hash, inTo bool, toHash plumbing.Hash) (Change, error) {
	kind := kindForPath(path)

	if !inTo {
		return Change{Type: ChangeRemove, Path: path}, nil
	}

	toContent, err := e.store.ReadBlob(toHash)
	if err != nil {
		return Change{}, err
	}

	if !inFrom {
		return upsertChangeFor(kind, path, toContent), nil
	}

	fromContent, err := e.store.ReadBlob(fromHash)
	if err != nil {
		return Change{}, err
	}

	switch kind {
	case EntryJSON:
		patch, err := createJSONPatch(fromContent, toContent)
		if err != nil {
			return Change{}, err
		}

		return Change{Type: ChangeApplyJSONPatch, Path: path, Content: patch}, nil
	case EntryText:
		return Change{Type: ChangeApplyTextPatch, Path: path, Content: createTextPatch(fromContent, toContent)}, nil
	default:
		return upsertChangeFor(kind, path, toContent), nil
	}
}

func upsertChangeFor(kind EntryKind, path string, content []byte) Change {
	switch kind {
	case EntryJSON:
		return Change{Type: ChangeUpsertJSON, Path: path, Content: content}
	case EntryYAML:
		return Change{Type: ChangeUpsertYAML, Path: path, Content: content}
	default:
		return Change{Type: ChangeUpsertText, Path: path, Content: content}
	}
}
