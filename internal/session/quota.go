package session

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dogma-project/dogma/common/mpostgres"
)

// Quota enforces the per-repository write quota of §4.I as a fixed window:
// at most writesPerWindow pushes from the window's start until windowSeconds
// have elapsed, after which the next push opens a new window. The window is
// stored per (project, repository) so the budget is shared by every replica
// a writer might land on.
type Quota struct {
	conn            *mpostgres.PostgresConnection
	writesPerWindow int
	windowSeconds   int
}

// NewQuota builds a Quota checker over an already-configured connection.
func NewQuota(conn *mpostgres.PostgresConnection, writesPerWindow, windowSeconds int) *Quota {
	return &Quota{conn: conn, writesPerWindow: writesPerWindow, windowSeconds: windowSeconds}
}

// Allow reports whether one more write may proceed for (project,
// repository) right now, consuming one token if so. It satisfies
// command.QuotaChecker.
func (q *Quota) Allow(ctx context.Context, project, repository string) (bool, error) {
	pool, err := q.conn.GetDB(ctx)
	if err != nil {
		return false, wrapErr(err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, wrapErr(err)
	}
	defer tx.Rollback(ctx)

	var windowStart time.Time
	var count int

	err = tx.QueryRow(ctx,
		`SELECT window_start, count FROM repository_quotas WHERE project = $1 AND repository = $2 FOR UPDATE`,
		project, repository).Scan(&windowStart, &count)

	now := time.Now()
	window := time.Duration(q.windowSeconds) * time.Second

	switch {
	case err == pgx.ErrNoRows:
		if _, err := tx.Exec(ctx,
			`INSERT INTO repository_quotas (project, repository, window_start, count) VALUES ($1, $2, $3, 1)`,
			project, repository, now); err != nil {
			return false, wrapErr(err)
		}

		return true, tx.Commit(ctx)

	case err != nil:
		return false, wrapErr(err)

	case now.Sub(windowStart) >= window:
		if _, err := tx.Exec(ctx,
			`UPDATE repository_quotas SET window_start = $3, count = 1 WHERE project = $1 AND repository = $2`,
			project, repository, now); err != nil {
			return false, wrapErr(err)
		}

		return true, tx.Commit(ctx)

	case count >= q.writesPerWindow:
		return false, tx.Commit(ctx)

	default:
		if _, err := tx.Exec(ctx,
			`UPDATE repository_quotas SET count = count + 1 WHERE project = $1 AND repository = $2`,
			project, repository); err != nil {
			return false, wrapErr(err)
		}

		return true, tx.Commit(ctx)
	}
}
