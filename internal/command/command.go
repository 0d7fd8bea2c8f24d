// Package command implements the write-path command model and executor of
// §4.E: every mutation is expressed as a typed Command value dispatched
// through a single execute contract, whether applied locally (Standalone) or
// sequenced through the replication log (Replicated).
package command

import (
	"time"

	"github.com/dogma-project/dogma/internal/project"
	"github.com/dogma-project/dogma/internal/repo"
)

// Kind discriminates the Command variants.
type Kind string

const (
	CreateProject     Kind = "CREATE_PROJECT"
	RemoveProject     Kind = "REMOVE_PROJECT"
	UnremoveProject   Kind = "UNREMOVE_PROJECT"
	PurgeProject      Kind = "PURGE_PROJECT"
	CreateRepository  Kind = "CREATE_REPOSITORY"
	RemoveRepository  Kind = "REMOVE_REPOSITORY"
	Push              Kind = "PUSH"
	CreateSession     Kind = "CREATE_SESSION"
	RemoveSession     Kind = "REMOVE_SESSION"
	RotateEncryptionKey Kind = "ROTATE_ENCRYPTION_KEY"
	UpdateServerStatus  Kind = "UPDATE_SERVER_STATUS"
)

// Command carries everything needed to apply, and re-apply, one mutation
// deterministically: a fixed timestamp and author so that replay on a
// follower (or on log recovery) reaches the same state as the leader did.
type Command struct {
	Kind      Kind
	Timestamp time.Time
	Author    repo.Author

	Project    string
	Repository string
	Name       string // new project/repository name, for the create variants

	// Push fields.
	BaseRevision int32
	Summary      string
	Detail       string
	Markup       repo.Markup
	Changes      []repo.Change
	Normalizing  bool

	// RequestID identifies one Push proposal across raft's at-least-once
	// replay of its log entry, so the FSM can tell a genuine replay of an
	// already-applied entry apart from a brand-new conflicting Push. Set by
	// Replicated.Execute for Push commands; unused by Standalone.
	RequestID string

	// Session fields.
	SessionID        string
	SessionPrincipal string
	SessionExpiresAt time.Time

	// Encryption-key-rotation fields.
	EncryptionKeyID string

	// UpdateServerStatus fields: the target value of the writable gate.
	ServerWritable bool

	// ForcePush allows the command through a read-only gate (§4.E).
	ForcePush bool
}

// Result is the outcome of a successfully applied command. Only the fields
// relevant to the command's Kind are populated.
type Result struct {
	Revision int32
	Applied  []repo.Change
	Project  *project.Project
	Repo     *project.Repository
}
