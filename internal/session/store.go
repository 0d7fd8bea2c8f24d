// Package session implements the session registry and per-repository write
// quota of §4.I, both backed by Postgres so every replica (and every
// process restart) observes the same state.
package session

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dogma-project/dogma/common"
	cn "github.com/dogma-project/dogma/common/constant"
	"github.com/dogma-project/dogma/common/mpostgres"
	"github.com/dogma-project/dogma/internal/command"
)

// Store is the (id, principal, expiresAt) session registry. Sessions are
// created and removed as replicated Commands so every replica's Store stays
// in sync; Store itself only needs to persist and evict.
type Store struct {
	conn *mpostgres.PostgresConnection
}

// NewStore builds a Store over an already-configured Postgres connection.
// The caller is responsible for having run the sessions table migration.
func NewStore(conn *mpostgres.PostgresConnection) *Store {
	return &Store{conn: conn}
}

// Create persists a session record. It satisfies command.SessionStore.
func (s *Store) Create(ctx context.Context, id, principal string, cmd command.Command) error {
	pool, err := s.conn.GetDB(ctx)
	if err != nil {
		return wrapErr(err)
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO sessions (id, principal, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET principal = EXCLUDED.principal, expires_at = EXCLUDED.expires_at`,
		id, principal, cmd.SessionExpiresAt)
	if err != nil {
		return wrapErr(err)
	}

	return nil
}

// Remove deletes a session record. It satisfies command.SessionStore.
func (s *Store) Remove(ctx context.Context, id string) error {
	pool, err := s.conn.GetDB(ctx)
	if err != nil {
		return wrapErr(err)
	}

	_, err = pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return wrapErr(err)
	}

	return nil
}

// Get returns the session's principal, evicting it first (lazily) if it has
// already expired.
func (s *Store) Get(ctx context.Context, id string) (string, error) {
	pool, err := s.conn.GetDB(ctx)
	if err != nil {
		return "", err
	}

	var principal string
	var expiresAt time.Time

	err = pool.QueryRow(ctx, `SELECT principal, expires_at FROM sessions WHERE id = $1`, id).Scan(&principal, &expiresAt)
	if err == pgx.ErrNoRows {
		return "", common.ValidateBusinessError(cn.ErrUnauthenticated, "", id)
	}

	if err != nil {
		return "", wrapErr(err)
	}

	if time.Now().After(expiresAt) {
		_ = s.Remove(ctx, id)
		return "", common.ValidateBusinessError(cn.ErrUnauthenticated, "", id)
	}

	return principal, nil
}

func wrapErr(err error) error {
	return common.ValidateBusinessError(cn.ErrStorage, "", err.Error())
}
