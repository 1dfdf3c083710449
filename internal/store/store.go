// Package store holds the portal's multi-statement writes: account creation,
// assessment saves and follow-up bookkeeping, and the session and chat
// lifecycle. Each runs in one serializable transaction.
//
// Plain reads go straight to db.Querier. store imports db and assessment
// only.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/nyashahama/counselling-portal-backend/internal/db"
)

// Store is shared by the API, the worker and portalctl. Methods live in
// accounts.go, assessments.go and sessions.go.
type Store struct {
	pool *sql.DB // begins transactions and answers Ping
	q    db.Querier
}

// New wraps an open pool and the Querier prepared on it.
func New(pool *sql.DB, q db.Querier) *Store {
	return &Store{pool: pool, q: q}
}

// Q returns the Querier for reads outside a transaction.
func (s *Store) Q() db.Querier {
	return s.q
}

// Ping backs /healthz.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.PingContext(ctx)
}

// txFunc runs inside withTx. A non-nil error rolls the transaction back.
type txFunc func(ctx context.Context, q db.Querier) error

// withTx runs fn in a serializable transaction and commits if it returns nil.
// A panic in fn rolls back and re-panics.
func (s *Store) withTx(ctx context.Context, fn txFunc) error {
	tx, err := s.pool.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, s.q.(*db.Queries).WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("store: %w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit transaction: %w", err)
	}
	return nil
}

// Postgres SQLSTATE codes the store reacts to.
const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
)

func isPQCode(err error, code string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == code
}

// IsNotFound reports whether err is a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
