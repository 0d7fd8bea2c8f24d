package watch

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Metrics maintains the notified-revision / watcher-revision counters of
// §4.G in Redis, so they survive process restarts and are comparable across
// replicas. Both counters are monotonic non-decreasing per repository; the
// per-path breakdown the spec describes is approximated here at
// repository granularity, since the watch service itself dispatches
// matchers per repository rather than per path.
type Metrics struct {
	client *redis.Client
}

// NewMetrics builds a Metrics instance over an already-configured client.
func NewMetrics(client *redis.Client) *Metrics {
	return &Metrics{client: client}
}

// RecordNotified advances the notified-revision counter for (project,
// repository) to rev if rev is greater than the currently stored value.
func (m *Metrics) RecordNotified(project, repository string, rev int32) {
	m.advance(context.Background(), "watch:notified-revision:"+project+"/"+repository, rev)
}

// RecordWatcher advances the watcher-revision counter for (project,
// repository) to rev if rev is greater than the currently stored value.
func (m *Metrics) RecordWatcher(project, repository string, rev int32) {
	m.advance(context.Background(), "watch:watcher-revision:"+project+"/"+repository, rev)
}

func (m *Metrics) advance(ctx context.Context, key string, rev int32) {
	current, err := m.client.Get(ctx, key).Int64()
	if err != nil && err != redis.Nil {
		return
	}

	if int64(rev) <= current {
		return
	}

	m.client.Set(ctx, key, strconv.FormatInt(int64(rev), 10), 0)
}
