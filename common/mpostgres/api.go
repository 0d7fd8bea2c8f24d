package mpostgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dogma-project/dogma/common"
)

// Table is a thin helper around a pgxpool.Pool for a single table, scoping
// writes to a known column allow-list and building statements with squirrel.
type Table struct {
	Name    string
	db      *pgxpool.Pool
	Columns []string
}

// NewTable binds a Table helper to a connection pool.
func NewTable(db *pgxpool.Pool, name string, columns []string) *Table {
	return &Table{Name: name, db: db, Columns: columns}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Create inserts a new record into the specified table.
func Create(ctx context.Context, t *Table, data map[string]any) (int64, error) {
	if len(data) == 0 {
		return 0, errors.New("no data provided for insertion")
	}

	builder := psql.Insert(t.Name)

	cols := make([]string, 0, len(data))
	vals := make([]any, 0, len(data))

	for k, v := range data {
		if !common.Contains(t.Columns, k) {
			return 0, fmt.Errorf("invalid column for table: %s", k)
		}

		cols = append(cols, k)
		vals = append(vals, v)
	}

	query, args, err := builder.Columns(cols...).Values(vals...).Suffix("RETURNING id").ToSql()
	if err != nil {
		return 0, err
	}

	var lastInsertID int64

	if err := t.db.QueryRow(ctx, query, args...).Scan(&lastInsertID); err != nil {
		return 0, err
	}

	return lastInsertID, nil
}

// Update safely updates records in a specified table.
func Update(ctx context.Context, t *Table, id int64, data map[string]any) error {
	if len(data) == 0 {
		return errors.New("no data provided to update")
	}

	builder := psql.Update(t.Name)

	for k, v := range data {
		if !common.Contains(t.Columns, k) {
			return fmt.Errorf("invalid column name: %s", k)
		}

		builder = builder.Set(k, v)
	}

	query, args, err := builder.Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}

	_, err = t.db.Exec(ctx, query, args...)

	return err
}

// Delete removes a record identified by its ID.
func Delete(ctx context.Context, t *Table, id int64) error {
	query, args, err := psql.Delete(t.Name).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}

	_, err = t.db.Exec(ctx, query, args...)

	return err
}

// RowScanner abstracts over pgx.Rows/pgx.Row for FindAll-style scanning via a caller-supplied function.
type RowScanner func(rows pgx.Rows) error

// FindAll fetches records from a PostgreSQL table, calling scan once per row.
func FindAll(ctx context.Context, t *Table, conditions sq.Sqlizer, scan RowScanner) error {
	builder := psql.Select("*").From(t.Name)
	if conditions != nil {
		builder = builder.Where(conditions)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	rows, err := t.db.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	if err := scan(rows); err != nil {
		return err
	}

	return rows.Err()
}

// Count returns the number of rows in the table matching conditions.
func Count(ctx context.Context, t *Table, conditions sq.Sqlizer) (int64, error) {
	builder := psql.Select("COUNT(*)").From(t.Name)
	if conditions != nil {
		builder = builder.Where(conditions)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}

	var count int64

	err = t.db.QueryRow(ctx, query, args...).Scan(&count)

	return count, err
}

// FindByID finds a row by ID and scans it with the given function.
func FindByID(ctx context.Context, t *Table, id int64, scan func(pgx.Row) error) error {
	query, args, err := psql.Select("*").From(t.Name).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}

	return scan(t.db.QueryRow(ctx, query, args...))
}
