package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/learnhub/internal/auth/store"
)

type txStore struct {
	tx  *sql.Tx
	now func() time.Time
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the caller commits or rolls back and the outer DB stays open.
func (t *txStore) Close() error { return nil }

// Ping is a no-op: the transaction already holds a live connection.
func (t *txStore) Ping(ctx context.Context) error { return nil }

// Nested transactions are not supported.
func (t *txStore) Tx(ctx context.Context) (store.Tx, error) { return nil, sql.ErrTxDone }

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Identities() store.Identities   { return &identitiesRepo{db: t.tx, now: t.now} }
func (t *txStore) Sessions() store.Sessions       { return &sessionsRepo{db: t.tx, now: t.now} }
func (t *txStore) Revocations() store.Revocations { return &revocationsRepo{db: t.tx, now: t.now} }

// ApplyMigrations is a no-op; migrations run before any transaction starts.
func (t *txStore) ApplyMigrations() error { return nil }
