package command

import (
	"context"

	"github.com/dogma-project/dogma/internal/project"
)

// Standalone dispatches every command directly against the local project
// manager and repository engines, on the repository worker pool each engine
// already serializes through.
type Standalone struct {
	lifecycle

	projects *project.Manager
	sessions SessionStore
	quota    QuotaChecker
	rotator  *keyRotator
}

// NewStandalone builds a Standalone executor. sessions and quota may be nil
// if the deployment does not need session/quota enforcement.
func NewStandalone(projects *project.Manager, sessions SessionStore, quota QuotaChecker) *Standalone {
	return &Standalone{
		projects: projects,
		sessions: sessions,
		quota:    quota,
		rotator:  newKeyRotator(),
	}
}

func (s *Standalone) Status() Status { return s.StatusNow() }

// Execute applies cmd synchronously against local state.
func (s *Standalone) Execute(ctx context.Context, cmd Command) (Result, error) {
	if err := s.checkWritable(cmd.ForcePush); err != nil {
		return Result{}, err
	}

	if cmd.Kind == Push && s.quota != nil {
		allowed, err := s.quota.Allow(ctx, cmd.Project, cmd.Repository)
		if err != nil {
			return Result{}, err
		}

		if !allowed {
			return Result{}, quotaExceeded(cmd.Project, cmd.Repository)
		}
	}

	if cmd.Kind == RotateEncryptionKey {
		return s.executeKeyRotation(ctx, cmd)
	}

	return Dispatch(ctx, s.projects, s.sessions, s, cmd)
}

// executeKeyRotation runs cmd on the dedicated key-rotation serial executor
// (§4.E) so concurrent rotations for the same or different repositories
// never interleave their I/O, then records the rotation against the
// repository's metadata.
func (s *Standalone) executeKeyRotation(ctx context.Context, cmd Command) (Result, error) {
	done := make(chan struct{})

	var (
		result Result
		err    error
	)

	s.rotator.submit(func() {
		defer close(done)

		var r *project.Repository

		r, err = s.projects.RotateEncryptionKey(ctx, cmd.Project, cmd.Repository, cmd.EncryptionKeyID)
		if err != nil {
			return
		}

		result = Result{Repo: r}
	})
	<-done

	return result, err
}
