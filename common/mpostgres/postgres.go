package mpostgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConnection is a hub which deals with postgres connections. The
// session and quota store (internal/session) is the only component that
// talks to Postgres; everything else lives in the content-addressed object
// store.
type PostgresConnection struct {
	ConnectionString string
	Pool             *pgxpool.Pool
	Connected        bool
}

// Connect keeps a singleton connection pool with postgres.
func (pc *PostgresConnection) Connect(ctx context.Context) error {
	fmt.Println("Connecting to postgres...")

	pool, err := pgxpool.New(ctx, pc.ConnectionString)
	if err != nil {
		return fmt.Errorf("failed to open connection to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}

	pc.Connected = true
	pc.Pool = pool

	fmt.Println("Connected to postgres ✅ ")

	return nil
}

// GetDB returns the connection pool, initializing it if necessary.
func (pc *PostgresConnection) GetDB(ctx context.Context) (*pgxpool.Pool, error) {
	if pc.Pool == nil {
		if err := pc.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return pc.Pool, nil
}

// Close releases the connection pool.
func (pc *PostgresConnection) Close() {
	if pc.Pool != nil {
		pc.Pool.Close()
	}
}
