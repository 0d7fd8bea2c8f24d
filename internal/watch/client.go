package watch

import (
	"context"
	"log"
	"math/rand"
	"reflect"
	"sync"
	"time"
)

// DelayOnSuccess is the pause inserted after a successful round-trip before
// the next watch is issued, coalescing flurries of rapid updates.
const DelayOnSuccess = 1 * time.Second

const (
	backoffBase = 200 * time.Millisecond
	backoffMax  = 30 * time.Second
)

// backoffDelay returns the deterministic exponential-backoff-with-jitter
// delay for the nth consecutive failure (n starting at 0), given a seeded
// random source so the sequence is reproducible in tests.
func backoffDelay(n int, rng *rand.Rand) time.Duration {
	d := backoffBase << uint(n)
	if d > backoffMax || d <= 0 {
		d = backoffMax
	}

	jitter := time.Duration(rng.Int63n(int64(d) / 2))

	return d/2 + jitter
}

// Poll performs one long-poll round-trip starting from lastRevision, timing
// out after timeout. timedOut is true when no new value arrived in time.
type Poll func(ctx context.Context, lastRevision int32, timeout time.Duration) (revision int32, value any, timedOut bool, err error)

// Listener is invoked for the initial value and every subsequent distinct
// value observed by a Watcher.
type Listener func(revision int32, value any)

// Watcher is the long-lived client-side abstraction of §4.G: it re-issues
// watch requests internally so callers always observe the latest value,
// coalescing successes with DelayOnSuccess and backing off on failure.
type Watcher struct {
	poll Poll
	rng  *rand.Rand

	mu        sync.Mutex
	rev       int32
	val       any
	haveValue bool
	listeners map[int]Listener
	nextID    int
	closed    bool

	initialCh chan struct{}
	cancel    context.CancelFunc
}

// NewWatcher starts the background polling loop immediately.
func NewWatcher(poll Poll) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())

	w := &Watcher{
		poll:      poll,
		rng:       rand.New(rand.NewSource(1)),
		listeners: make(map[int]Listener),
		initialCh: make(chan struct{}),
		cancel:    cancel,
	}

	go w.loop(ctx)

	return w
}

func (w *Watcher) loop(ctx context.Context) {
	var lastRevision int32
	var failures int

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rev, val, timedOut, err := w.poll(ctx, lastRevision, 30*time.Second)
		if err != nil {
			failures++
			select {
			case <-time.After(backoffDelay(failures-1, w.rng)):
			case <-ctx.Done():
				return
			}

			continue
		}

		failures = 0

		if !timedOut {
			lastRevision = rev
			w.publish(rev, val)
		}

		select {
		case <-time.After(DelayOnSuccess):
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) publish(rev int32, val any) {
	w.mu.Lock()
	first := !w.haveValue
	w.rev = rev
	w.val = val
	w.haveValue = true
	listeners := make([]Listener, 0, len(w.listeners))
	for _, l := range w.listeners {
		listeners = append(listeners, l)
	}
	closed := w.closed
	w.mu.Unlock()

	if first {
		close(w.initialCh)
	}

	if closed {
		return
	}

	for _, l := range listeners {
		invokeListener(l, rev, val)
	}
}

func invokeListener(l Listener, rev int32, val any) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("watch listener panicked: %v", r)
		}
	}()

	l(rev, val)
}

// AwaitInitialValue blocks until the first observation arrives, or timeout
// elapses.
func (w *Watcher) AwaitInitialValue(timeout time.Duration) (int32, any, bool) {
	select {
	case <-w.initialCh:
		rev, val := w.Latest()
		return rev, val, true
	case <-time.After(timeout):
		return 0, nil, false
	}
}

// Latest returns the most recently observed (revision, value).
func (w *Watcher) Latest() (int32, any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rev, w.val
}

// Watch subscribes listener to every subsequent distinct value, invoking it
// immediately with the current value if one has already been observed. The
// returned id can be passed to Unwatch to stop delivery to this listener
// alone, leaving the watcher and its other listeners running.
func (w *Watcher) Watch(listener Listener) int {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = listener
	rev, val, have := w.rev, w.val, w.haveValue
	w.mu.Unlock()

	if have {
		invokeListener(listener, rev, val)
	}

	return id
}

// Unwatch removes the listener previously registered with the given id.
// Unlike Close, it leaves the watcher's background polling loop and its
// other listeners running.
func (w *Watcher) Unwatch(id int) {
	w.mu.Lock()
	delete(w.listeners, id)
	w.mu.Unlock()
}

// Close makes the watcher deaf: the background loop stops, Latest keeps
// returning the last observed value, and outstanding long-polls are
// cancelled.
func (w *Watcher) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.cancel()
}

// TransformingWatcher wraps a source watcher with a pure function f,
// emitting only when f(newValue) differs from f(oldValue) by value equality.
type TransformingWatcher struct {
	source   *Watcher
	sourceID int
	f        func(any) any

	mu        sync.Mutex
	lastOut   any
	haveLast  bool
	listeners []Listener
	closed    bool
}

// NewTransformingWatcher derives a watcher whose values are f applied to the
// source watcher's values, deduplicated by reflect.DeepEqual.
func NewTransformingWatcher(source *Watcher, f func(any) any) *TransformingWatcher {
	t := &TransformingWatcher{source: source, f: f}
	t.sourceID = source.Watch(t.onSourceValue)
	return t
}

func (t *TransformingWatcher) onSourceValue(rev int32, val any) {
	out := t.f(val)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	if t.haveLast && reflect.DeepEqual(t.lastOut, out) {
		t.mu.Unlock()
		return
	}

	t.lastOut = out
	t.haveLast = true
	listeners := append([]Listener(nil), t.listeners...)
	t.mu.Unlock()

	for _, l := range listeners {
		invokeListener(l, rev, out)
	}
}

// Watch subscribes listener to every subsequent distinct transformed value.
func (t *TransformingWatcher) Watch(listener Listener) {
	t.mu.Lock()
	t.listeners = append(t.listeners, listener)
	out, have := t.lastOut, t.haveLast
	t.mu.Unlock()

	if have {
		invokeListener(listener, 0, out)
	}
}

// Close stops this transformed view: it unregisters the transforming
// watcher's own listener from source and drops its own listeners, but
// leaves source itself running and delivering to any other watchers
// (transforming or not) derived from it.
func (t *TransformingWatcher) Close() {
	t.source.Unwatch(t.sourceID)

	t.mu.Lock()
	t.closed = true
	t.listeners = nil
	t.mu.Unlock()
}
