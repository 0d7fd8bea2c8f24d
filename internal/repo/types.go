// Package repo implements the versioned repository engine (§4.B): commit,
// get, list, history, diff and revision normalization over the
// content-addressed object store.
package repo

import "time"

// EntryKind classifies the content stored at a path, inferred from the
// path's extension: ".json" is JSON, ".yaml"/".yml" is YAML, everything else
// is TEXT. Directories are DIRECTORY and carry no content.
type EntryKind string

const (
	EntryText      EntryKind = "TEXT"
	EntryJSON      EntryKind = "JSON"
	EntryYAML      EntryKind = "YAML"
	EntryDirectory EntryKind = "DIRECTORY"
)

// Entry is a leaf or directory observed at a given revision.
type Entry struct {
	Path     string
	Revision int32
	Kind     EntryKind
	Content  []byte
}

// Author identifies a commit's author.
type Author struct {
	Name  string
	Email string
}

// Markup selects how a commit's Detail is rendered by external viewers.
type Markup string

const (
	MarkupPlain    Markup = "PLAIN"
	MarkupMarkdown Markup = "MARKDOWN"
)

// ChangeType discriminates the Change union (§3).
type ChangeType string

const (
	ChangeUpsertText     ChangeType = "UPSERT_TEXT"
	ChangeUpsertJSON     ChangeType = "UPSERT_JSON"
	ChangeUpsertYAML     ChangeType = "UPSERT_YAML"
	ChangeApplyJSONPatch ChangeType = "APPLY_JSON_PATCH"
	ChangeApplyTextPatch ChangeType = "APPLY_TEXT_PATCH"
	ChangeRename         ChangeType = "RENAME"
	ChangeRemove         ChangeType = "REMOVE"
)

// Change is one intended mutation within a commit.
type Change struct {
	Type ChangeType
	// Path is the target path for every variant except RENAME, where it is
	// the source path.
	Path string
	// NewPath is only set for RENAME.
	NewPath string
	// Content is the upsert body, the RFC 6902 patch document, or the
	// unified diff text, depending on Type. Unused for RENAME/REMOVE.
	Content []byte
}

// Commit is one immutable, applied revision.
type Commit struct {
	Revision int32
	Author   Author
	Ts       time.Time
	Summary  string
	Detail   string
	Markup   Markup
	Changes  []Change
}

// QueryType discriminates the read-projection union (§4.B get).
type QueryType string

const (
	QueryIdentity QueryType = "IDENTITY"
	QueryJSONPath QueryType = "JSON_PATH"
	QueryText     QueryType = "TEXT"
)

// Query is a read projection applied to an Entry's content.
type Query struct {
	Type QueryType
	// Expressions holds one or more JSON-Path expressions, applied in
	// order, for QueryJSONPath. Unused otherwise.
	Expressions []string
}
