package repo

import (
	"encoding/json"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/tidwall/pretty"
	"gopkg.in/yaml.v3"

	"github.com/dogma-project/dogma/common"
	cn "github.com/dogma-project/dogma/common/constant"
	"github.com/dogma-project/dogma/internal/objectstore"
)

// applyChange mutates idx in place (path -> blob hash) and reports whether
// the net effect was a no-op (a "redundant change", §3), so the caller can
// reject a commit whose every change is redundant. Blobs for new content are
// written eagerly; an aborted commit simply leaves unreferenced objects
// behind, which is harmless in a content-addressed store.
func applyChange(store *objectstore.Store, idx map[string]plumbing.Hash, ch Change, normalizing bool) (bool, error) {
	switch ch.Type {
	case ChangeUpsertText:
		return upsert(store, idx, ch.Path, EntryText, ch.Content, normalizing)
	case ChangeUpsertJSON:
		return upsert(store, idx, ch.Path, EntryJSON, ch.Content, normalizing)
	case ChangeUpsertYAML:
		return upsert(store, idx, ch.Path, EntryYAML, ch.Content, normalizing)
	case ChangeApplyJSONPatch:
		return applyJSONPatch(store, idx, ch, normalizing)
	case ChangeApplyTextPatch:
		return applyTextPatch(store, idx, ch)
	case ChangeRename:
		return rename(idx, ch.Path, ch.NewPath)
	case ChangeRemove:
		return remove(idx, ch.Path)
	default:
		return false, common.ValidateBusinessError(cn.ErrQueryExecution, "", "unknown change type "+string(ch.Type))
	}
}

func upsert(store *objectstore.Store, idx map[string]plumbing.Hash, path string, kind EntryKind, content []byte, normalizing bool) (bool, error) {
	if kindForPath(path) != kind {
		return false, common.ValidateBusinessError(cn.ErrQueryExecution, "",
			"change kind does not match the path's extension: "+path)
	}

	if err := validateKind(kind, content); err != nil {
		return false, err
	}

	final := content

	if normalizing {
		normalized, err := normalize(kind, content)
		if err != nil {
			return false, err
		}

		final = normalized
	}

	hash, err := store.PutBlob(final)
	if err != nil {
		return false, err
	}

	prior, existed := idx[path]
	redundant := existed && prior == hash

	idx[path] = hash

	return redundant, nil
}

func applyJSONPatch(store *objectstore.Store, idx map[string]plumbing.Hash, ch Change, normalizing bool) (bool, error) {
	priorHash, ok := idx[ch.Path]
	if !ok {
		return false, common.ValidateBusinessError(cn.ErrEntryNotFound, "", ch.Path)
	}

	priorContent, err := store.ReadBlob(priorHash)
	if err != nil {
		return false, err
	}

	patch, err := jsonpatch.DecodePatch(ch.Content)
	if err != nil {
		return false, common.ValidateBusinessError(cn.ErrQueryExecution, "", "malformed json patch: "+err.Error())
	}

	patched, err := patch.Apply(priorContent)
	if err != nil {
		return false, common.ValidateBusinessError(cn.ErrQueryExecution, "", "json patch application failed: "+err.Error())
	}

	return upsert(store, idx, ch.Path, EntryJSON, patched, normalizing)
}

func applyTextPatch(store *objectstore.Store, idx map[string]plumbing.Hash, ch Change) (bool, error) {
	priorHash, ok := idx[ch.Path]
	if !ok {
		return false, common.ValidateBusinessError(cn.ErrEntryNotFound, "", ch.Path)
	}

	priorContent, err := store.ReadBlob(priorHash)
	if err != nil {
		return false, err
	}

	dmp := diffmatchpatch.New()

	patches, err := dmp.PatchFromText(string(ch.Content))
	if err != nil {
		return false, common.ValidateBusinessError(cn.ErrQueryExecution, "", "malformed text patch: "+err.Error())
	}

	patchedText, applied := dmp.PatchApply(patches, string(priorContent))
	for _, ok := range applied {
		if !ok {
			return false, common.ValidateBusinessError(cn.ErrQueryExecution, "", "text patch did not apply cleanly to "+ch.Path)
		}
	}

	hash, err := store.PutBlob([]byte(patchedText))
	if err != nil {
		return false, err
	}

	redundant := priorHash == hash
	idx[ch.Path] = hash

	return redundant, nil
}

func rename(idx map[string]plumbing.Hash, from, to string) (bool, error) {
	hash, ok := idx[from]
	if !ok {
		return false, common.ValidateBusinessError(cn.ErrEntryNotFound, "", from)
	}

	if from == to {
		return true, nil
	}

	if _, exists := idx[to]; exists {
		return false, common.ValidateBusinessError(cn.ErrChangeConflict, "", to)
	}

	delete(idx, from)
	idx[to] = hash

	return false, nil
}

func remove(idx map[string]plumbing.Hash, path string) (bool, error) {
	if _, ok := idx[path]; !ok {
		return false, common.ValidateBusinessError(cn.ErrEntryNotFound, "", path)
	}

	delete(idx, path)

	return false, nil
}

func validateKind(kind EntryKind, content []byte) error {
	switch kind {
	case EntryJSON:
		if !json.Valid(content) {
			return common.ValidateBusinessError(cn.ErrQueryExecution, "", "content does not parse as JSON")
		}
	case EntryYAML:
		var v any
		if err := yaml.Unmarshal(content, &v); err != nil {
			return common.ValidateBusinessError(cn.ErrQueryExecution, "", "content does not parse as YAML: "+err.Error())
		}
	}

	return nil
}

// normalize re-serializes JSON/YAML content to a canonical form: sorted
// object keys and stable whitespace. encoding/json already sorts map keys
// on marshal; tidwall/pretty re-indents deterministically on top of that.
func normalize(kind EntryKind, content []byte) ([]byte, error) {
	switch kind {
	case EntryJSON:
		var v any
		if err := json.Unmarshal(content, &v); err != nil {
			return nil, common.ValidateBusinessError(cn.ErrQueryExecution, "", err.Error())
		}

		canonical, err := json.Marshal(v)
		if err != nil {
			return nil, common.ValidateBusinessError(cn.ErrQueryExecution, "", err.Error())
		}

		return pretty.PrettyOptions(canonical, &pretty.Options{Indent: "  ", SortKeys: true}), nil
	case EntryYAML:
		var v any
		if err := yaml.Unmarshal(content, &v); err != nil {
			return nil, common.ValidateBusinessError(cn.ErrQueryExecution, "", err.Error())
		}

		canonical, err := yaml.Marshal(v)
		if err != nil {
			return nil, common.ValidateBusinessError(cn.ErrQueryExecution, "", err.Error())
		}

		return canonical, nil
	default:
		return content, nil
	}
}
