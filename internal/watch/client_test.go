package watch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherDeliversInitialAndSubsequentValues(t *testing.T) {
	var call int32

	poll := func(ctx context.Context, lastRevision int32, timeout time.Duration) (int32, any, bool, error) {
		n := atomic.AddInt32(&call, 1)
		if n == 1 {
			return 1, "v1", false, nil
		}
		return 2, "v2", false, nil
	}

	w := NewWatcher(poll)
	defer w.Close()

	rev, val, ok := w.AwaitInitialValue(time.Second)
	require.True(t, ok)
	assert.EqualValues(t, 1, rev)
	assert.Equal(t, "v1", val)

	assert.Eventually(t, func() bool {
		latestRev, latestVal := w.Latest()
		return latestRev == 2 && latestVal == "v2"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcherCloseStopsDelivering(t *testing.T) {
	poll := func(ctx context.Context, lastRevision int32, timeout time.Duration) (int32, any, bool, error) {
		return lastRevision + 1, "v", false, nil
	}

	w := NewWatcher(poll)
	_, _, ok := w.AwaitInitialValue(time.Second)
	require.True(t, ok)

	var calls int32
	w.Watch(func(rev int32, val any) { atomic.AddInt32(&calls, 1) })

	w.Close()

	time.Sleep(50 * time.Millisecond)
	before := atomic.LoadInt32(&calls)
	time.Sleep(DelayOnSuccess + 200*time.Millisecond)
	assert.Equal(t, before, atomic.LoadInt32(&calls))

	rev, _ := w.Latest()
	assert.GreaterOrEqual(t, rev, int32(1))
}

func TestTransformingWatcherDedupsByValueEquality(t *testing.T) {
	values := []string{"a", "a", "b"}
	var idx int32

	poll := func(ctx context.Context, lastRevision int32, timeout time.Duration) (int32, any, bool, error) {
		i := atomic.AddInt32(&idx, 1) - 1
		if int(i) >= len(values) {
			return lastRevision, nil, true, nil
		}
		return lastRevision + 1, values[i], false, nil
	}

	source := NewWatcher(poll)
	defer source.Close()

	transformed := NewTransformingWatcher(source, func(v any) any { return v })

	var seen []any
	done := make(chan struct{}, 1)

	transformed.Watch(func(rev int32, val any) {
		seen = append(seen, val)
		if len(seen) >= 2 {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}

	assert.Equal(t, []any{"a", "b"}, seen)
}

func TestTransformingWatcherCloseStopsOwnDeliveryNotSource(t *testing.T) {
	poll := func(ctx context.Context, lastRevision int32, timeout time.Duration) (int32, any, bool, error) {
		return lastRevision + 1, "v", false, nil
	}

	source := NewWatcher(poll)
	defer source.Close()

	transformed := NewTransformingWatcher(source, func(v any) any { return v })

	var sourceCalls, transformedCalls int32
	source.Watch(func(rev int32, val any) { atomic.AddInt32(&sourceCalls, 1) })
	transformed.Watch(func(rev int32, val any) { atomic.AddInt32(&transformedCalls, 1) })

	_, _, ok := source.AwaitInitialValue(time.Second)
	require.True(t, ok)

	transformed.Close()

	// source keeps delivering to its own (non-transforming) listener even
	// though the transformed view has been closed.
	time.Sleep(50 * time.Millisecond)
	before := atomic.LoadInt32(&sourceCalls)
	time.Sleep(200 * time.Millisecond)
	assert.Greater(t, atomic.LoadInt32(&sourceCalls), before)

	assert.False(t, source.closed)
}
