package repo

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"

	"github.com/dogma-project/dogma/internal/objectstore"
)

// loadTreeIndex flattens a tree object into path -> blob hash, recursing
// into every nested directory. A zero root hash (an empty repository) loads
// to an empty index.
func loadTreeIndex(store *objectstore.Store, root plumbing.Hash) (map[string]plumbing.Hash, error) {
	idx := map[string]plumbing.Hash{}

	if root == plumbing.ZeroHash {
		return idx, nil
	}

	var walk func(prefix string, hash plumbing.Hash) error

	walk = func(prefix string, hash plumbing.Hash) error {
		entries, err := store.ReadTree(hash)
		if err != nil {
			return err
		}

		for _, e := range entries {
			p := prefix + "/" + e.Name

			if e.IsDir() {
				if err := walk(p, e.Hash); err != nil {
					return err
				}

				continue
			}

			idx[p] = e.Hash
		}

		return nil
	}

	if err := walk("", root); err != nil {
		return nil, err
	}

	return idx, nil
}

// dirNode is an in-memory trie used to rebuild nested tree objects
// bottom-up from a flat path -> blob hash index.
type dirNode struct {
	dirs  map[string]*dirNode
	files map[string]plumbing.Hash
}

func newDirNode() *dirNode {
	return &dirNode{dirs: map[string]*dirNode{}, files: map[string]plumbing.Hash{}}
}

func (n *dirNode) insert(segments []string, hash plumbing.Hash) {
	if len(segments) == 1 {
		n.files[segments[0]] = hash
		return
	}

	child, ok := n.dirs[segments[0]]
	if !ok {
		child = newDirNode()
		n.dirs[segments[0]] = child
	}

	child.insert(segments[1:], hash)
}

func persistDir(store *objectstore.Store, n *dirNode) (plumbing.Hash, error) {
	var entries []objectstore.TreeEntry

	for name, child := range n.dirs {
		hash, err := persistDir(store, child)
		if err != nil {
			return plumbing.ZeroHash, err
		}

		entries = append(entries, objectstore.TreeEntry{Name: name, Mode: filemode.Dir, Hash: hash})
	}

	for name, hash := range n.files {
		entries = append(entries, objectstore.TreeEntry{Name: name, Mode: filemode.Regular, Hash: hash})
	}

	return store.PutTree(entries)
}

// buildTree persists idx (path -> blob hash) as a nested tree and returns
// its root hash. An empty idx produces the empty tree.
func buildTree(store *objectstore.Store, idx map[string]plumbing.Hash) (plumbing.Hash, error) {
	root := newDirNode()

	for p, hash := range idx {
		segments := strings.Split(strings.TrimPrefix(p, "/"), "/")
		root.insert(segments, hash)
	}

	return persistDir(store, root)
}

func kindForPath(path string) EntryKind {
	switch {
	case strings.HasSuffix(path, ".json"):
		return EntryJSON
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		return EntryYAML
	default:
		return EntryText
	}
}

// directoriesOf returns every directory path that is a proper ancestor of p,
// including the root "/".
func directoriesOf(p string) []string {
	var dirs []string

	segments := strings.Split(strings.Trim(p, "/"), "/")

	for i := 0; i < len(segments); i++ {
		dirs = append(dirs, "/"+strings.Join(segments[:i], "/"))
	}

	return dirs
}
