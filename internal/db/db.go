// Package db is the typed query layer over Postgres. Every query the service
// runs lives in this package as a method on *Queries; callers depend on the
// Querier interface so tests can substitute in-memory stubs.
package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

// Schema is the full DDL for the service. It is idempotent.
//
//go:embed schema.sql
var Schema string

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries implements Querier. Build it with New (unprepared) or Prepare
// (every statement prepared and validated against the live schema).
type Queries struct {
	db    DBTX
	tx    *sql.Tx
	stmts map[string]*sql.Stmt // query text → prepared statement
}

// New returns Queries that send every query as plain text.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Prepare prepares every statement in allQueries. A missing column or table
// fails here rather than on the first request.
func Prepare(ctx context.Context, db DBTX) (*Queries, error) {
	q := &Queries{db: db, stmts: make(map[string]*sql.Stmt, len(allQueries))}
	for name, query := range allQueries {
		stmt, err := db.PrepareContext(ctx, query)
		if err != nil {
			_ = q.Close()
			return nil, fmt.Errorf("error preparing query %s: %w", name, err)
		}
		q.stmts[query] = stmt
	}
	return q, nil
}

// Close releases every prepared statement.
func (q *Queries) Close() error {
	var errs []error
	for _, stmt := range q.stmts {
		if err := stmt.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithTx returns Queries bound to tx. Prepared statements are re-bound to the
// transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, tx: tx, stmts: q.stmts}
}

func (q *Queries) stmt(ctx context.Context, query string) *sql.Stmt {
	stmt, ok := q.stmts[query]
	if !ok {
		return nil
	}
	if q.tx != nil {
		return q.tx.StmtContext(ctx, stmt)
	}
	return stmt
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if stmt := q.stmt(ctx, query); stmt != nil {
		return stmt.ExecContext(ctx, args...)
	}
	return q.db.ExecContext(ctx, query, args...)
}

func (q *Queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if stmt := q.stmt(ctx, query); stmt != nil {
		return stmt.QueryContext(ctx, args...)
	}
	return q.db.QueryContext(ctx, query, args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	if stmt := q.stmt(ctx, query); stmt != nil {
		return stmt.QueryRowContext(ctx, args...)
	}
	return q.db.QueryRowContext(ctx, query, args...)
}
