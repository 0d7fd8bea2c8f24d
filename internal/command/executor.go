package command

import (
	"context"

	"github.com/dogma-project/dogma/common"
	cn "github.com/dogma-project/dogma/common/constant"
	"github.com/dogma-project/dogma/internal/project"
)

// Executor is the single write-path contract of §4.E, implemented by both
// Standalone and Replicated.
type Executor interface {
	Start(cb LeadershipCallbacks)
	Stop()
	SetWritable(writable bool)
	Status() Status
	Execute(ctx context.Context, cmd Command) (Result, error)
}

// SessionStore is the subset of the session manager (§4.I) the executor
// dispatches session commands to.
type SessionStore interface {
	Create(ctx context.Context, id, principal string, cmd Command) error
	Remove(ctx context.Context, id string) error
}

// QuotaChecker enforces the per-repository write quota of §4.I ahead of
// push-variant dispatch.
type QuotaChecker interface {
	Allow(ctx context.Context, project, repository string) (bool, error)
}

// ServerStatusSetter is the target of an UpdateServerStatus command: the
// writable gate §4.E describes as "a separate flag toggled by operators or
// by read-only gating". Both Standalone and Replicated satisfy it through
// their embedded lifecycle's SetWritable, so Dispatch can apply the command
// without importing either concrete executor type.
type ServerStatusSetter interface {
	SetWritable(writable bool)
}

// keyRotator sequences encryption-key-rotation commands; it is a separate,
// dedicated serial path so key material changes are totally ordered with
// respect to each other even though other commands run on the repository
// worker pool.
type keyRotator struct {
	ch chan func()
}

func newKeyRotator() *keyRotator {
	r := &keyRotator{ch: make(chan func(), 64)}
	go r.run()
	return r
}

func (r *keyRotator) run() {
	for fn := range r.ch {
		fn()
	}
}

func (r *keyRotator) submit(fn func()) { r.ch <- fn }

// Dispatch fans cmd out to the project manager or a repository engine. It is
// exported so the replication log's Applier can be built from it directly,
// and shared by Standalone (direct call) and Replicated (called once a
// command has been durably appended and is the next entry to apply).
func Dispatch(ctx context.Context, projects *project.Manager, sessions SessionStore, status ServerStatusSetter, cmd Command) (Result, error) {
	switch cmd.Kind {
	case CreateProject:
		p, err := projects.CreateProject(ctx, cmd.Name, cmd.Author.Name)
		if err != nil {
			return Result{}, err
		}
		return Result{Project: p}, nil

	case RemoveProject:
		if err := projects.RemoveProject(ctx, cmd.Project); err != nil {
			return Result{}, err
		}
		return Result{}, nil

	case UnremoveProject:
		if err := projects.UnremoveProject(ctx, cmd.Project); err != nil {
			return Result{}, err
		}
		return Result{}, nil

	case PurgeProject:
		if err := projects.MarkProjectForPurge(ctx, cmd.Project); err != nil {
			return Result{}, err
		}
		return Result{}, nil

	case CreateRepository:
		r, err := projects.CreateRepository(ctx, cmd.Project, cmd.Name, cmd.Author.Name)
		if err != nil {
			return Result{}, err
		}
		return Result{Repo: r}, nil

	case RemoveRepository:
		if err := projects.RemoveRepository(ctx, cmd.Project, cmd.Repository); err != nil {
			return Result{}, err
		}
		return Result{}, nil

	case Push:
		engine, err := projects.Engine(ctx, cmd.Project, cmd.Repository)
		if err != nil {
			return Result{}, err
		}

		rev, applied, err := engine.Commit(ctx, cmd.BaseRevision, cmd.Timestamp, cmd.Author,
			cmd.Summary, cmd.Detail, cmd.Markup, cmd.Changes, cmd.Normalizing)
		if err != nil {
			return Result{}, err
		}

		return Result{Revision: rev.Int32(), Applied: applied}, nil

	case CreateSession:
		if sessions == nil {
			return Result{}, common.ValidateBusinessError(cn.ErrInternal, "", "no session store configured")
		}
		if err := sessions.Create(ctx, cmd.SessionID, cmd.SessionPrincipal, cmd); err != nil {
			return Result{}, err
		}
		return Result{}, nil

	case RemoveSession:
		if sessions == nil {
			return Result{}, common.ValidateBusinessError(cn.ErrInternal, "", "no session store configured")
		}
		if err := sessions.Remove(ctx, cmd.SessionID); err != nil {
			return Result{}, err
		}
		return Result{}, nil

	case UpdateServerStatus:
		if status == nil {
			return Result{}, common.ValidateBusinessError(cn.ErrInternal, "", "no server-status target configured")
		}
		status.SetWritable(cmd.ServerWritable)
		return Result{}, nil

	default:
		return Result{}, common.ValidateBusinessError(cn.ErrBadRequest, "", "unsupported command kind "+string(cmd.Kind))
	}
}
