package watch

import (
	"context"
	"sync"
	"time"

	"github.com/dogma-project/dogma/internal/repo"
)

// EngineLookup resolves a repository engine by (project, repository); it is
// satisfied structurally by *project.Manager.
type EngineLookup interface {
	Engine(ctx context.Context, project, repository string) (*repo.Engine, error)
}

type waiter struct {
	project, repository string
	lastKnown           int32
	matcher              Matcher
	result               chan Result
	once                 sync.Once
}

func (w *waiter) complete(r Result) {
	w.once.Do(func() { w.result <- r })
}

// Result is what a watch call resolves to: either a new revision, or a
// timeout with no new revision.
type Result struct {
	Revision int32
	TimedOut bool
}

// Service is the process-wide watch registry. It implements
// repo.CommitNotifier so repository engines can wake waiters directly from
// the commit path without the watch service polling anything.
type Service struct {
	lookup EngineLookup
	metrics *Metrics

	mu      sync.Mutex
	waiters map[string][]*waiter
}

// NewService builds a Service. metrics may be nil.
func NewService(lookup EngineLookup, metrics *Metrics) *Service {
	return &Service{lookup: lookup, metrics: metrics, waiters: make(map[string][]*waiter)}
}

func repoKey(project, repository string) string { return project + "/" + repository }

// Watch implements the five-step protocol of §4.G. It blocks until the
// matcher fires, the deadline passes, or ctx is cancelled.
func (s *Service) Watch(ctx context.Context, project, repository string, lastKnown int32, matcher Matcher, timeout time.Duration) (Result, error) {
	engine, err := s.lookup.Engine(ctx, project, repository)
	if err != nil {
		return Result{}, err
	}

	absLastKnown, err := engine.NormalizeRevision(ctx, lastKnown)
	if err != nil {
		return Result{}, err
	}

	head, err := engine.Head(ctx)
	if err != nil {
		return Result{}, err
	}

	if head > absLastKnown {
		matched, rev, err := s.scanForMatch(ctx, engine, absLastKnown, head, matcher)
		if err != nil {
			return Result{}, err
		}

		if matched {
			s.recordWatcherRevision(project, repository, rev)
			s.recordNotifiedRevision(project, repository, rev)
			return Result{Revision: rev}, nil
		}
	}

	w := &waiter{project: project, repository: repository, lastKnown: absLastKnown, matcher: matcher, result: make(chan Result, 1)}

	s.register(w)
	defer s.unregister(w)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-w.result:
		return r, nil
	case <-timer.C:
		return Result{TimedOut: true}, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (s *Service) scanForMatch(ctx context.Context, engine *repo.Engine, lastKnown, head int32, matcher Matcher) (bool, int32, error) {
	for rev := lastKnown + 1; rev <= head; rev++ {
		matched, err := matcher.Matches(ctx, engine, lastKnown, rev)
		if err != nil {
			return false, 0, err
		}

		if matched {
			return true, rev, nil
		}
	}

	return false, 0, nil
}

func (s *Service) register(w *waiter) {
	key := repoKey(w.project, w.repository)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.waiters[key] = append(s.waiters[key], w)
}

func (s *Service) unregister(w *waiter) {
	key := repoKey(w.project, w.repository)

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.waiters[key]
	for i, other := range list {
		if other == w {
			s.waiters[key] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

// NotifyCommit implements repo.CommitNotifier. It is called synchronously
// from the repository engine's commit path, outside any worker-pool slot, so
// it must not block on matcher evaluation for long; matcher evaluation here
// is the same Diff/Get calls a regular read would perform.
func (s *Service) NotifyCommit(project, repository string, newRevision int32) {
	key := repoKey(project, repository)

	s.mu.Lock()
	waiters := append([]*waiter(nil), s.waiters[key]...)
	s.mu.Unlock()

	engine, err := s.lookup.Engine(context.Background(), project, repository)
	if err != nil {
		return
	}

	s.recordWatcherRevision(project, repository, newRevision)

	for _, w := range waiters {
		matched, err := w.matcher.Matches(context.Background(), engine, w.lastKnown, newRevision)
		if err != nil || !matched {
			continue
		}

		s.recordNotifiedRevision(project, repository, newRevision)
		w.complete(Result{Revision: newRevision})
		s.unregister(w)
	}
}

func (s *Service) recordNotifiedRevision(project, repository string, rev int32) {
	if s.metrics != nil {
		s.metrics.RecordNotified(project, repository, rev)
	}
}

func (s *Service) recordWatcherRevision(project, repository string, rev int32) {
	if s.metrics != nil {
		s.metrics.RecordWatcher(project, repository, rev)
	}
}
