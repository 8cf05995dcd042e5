package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/learnhub/internal/auth/domain"
	"github.com/aussiebroadwan/learnhub/pkg/cryptox"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface implemented by the sqlite driver.
// It exposes sub-repositories to keep concerns tidy and testable. Session and
// revocation state can also come from the memory driver, so services depend
// on the sub-repository interfaces rather than on Store.
type Store interface {
	Identities() Identities
	Sessions() Sessions
	Revocations() Revocations

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. Only the Tx
	// passed to fn may be used inside it: the pool holds a single
	// connection.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Identities interface {
	// GetAccountByEmail is used by the credential verifier. Matching is
	// case-insensitive.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// GetIdentityByID returns ErrNotFound for unknown ids.
	GetIdentityByID(ctx context.Context, id int64) (domain.Identity, error)

	// CreateAccount inserts an account and returns its id. A duplicate email
	// yields ErrAlreadyExists.
	CreateAccount(ctx context.Context, a domain.Account) (int64, error)

	// UpdateRole changes the role and bumps updated_at.
	UpdateRole(ctx context.Context, id int64, role domain.Role) error

	// SetActive flips the active flag and bumps updated_at.
	SetActive(ctx context.Context, id int64, active bool) error

	// DeleteIdentity removes the identity. Sessions stored in the same
	// database cascade.
	DeleteIdentity(ctx context.Context, id int64) error

	// IsEmpty returns true if there are no identities.
	IsEmpty(ctx context.Context) (bool, error)
}

// Sessions tracks logins. Unknown ids are never errors for the check and
// invalidate operations.
type Sessions interface {
	// CreateSession stores s, assigning a fresh id when s.ID is empty, and
	// returns the stored value.
	CreateSession(ctx context.Context, s domain.Session) (domain.Session, error)

	// GetSession returns ErrNotFound for unknown ids. Revoked and expired
	// sessions are returned as stored.
	GetSession(ctx context.Context, id string) (domain.Session, error)

	// IsSessionValid reports whether id exists, is not revoked and has not
	// expired.
	IsSessionValid(ctx context.Context, id string) (bool, error)

	// ListIdentitySessions returns the identity's valid sessions, newest
	// first.
	ListIdentitySessions(ctx context.Context, identityID int64) ([]domain.Session, error)

	// InvalidateSession marks the session revoked. Idempotent.
	InvalidateSession(ctx context.Context, id string) error

	// InvalidateIdentitySessions revokes every live session of the identity
	// and returns how many were affected.
	InvalidateIdentitySessions(ctx context.Context, identityID int64) (int64, error)

	// DeleteExpiredSessions removes sessions past their expiry.
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// Revocations is the token id blacklist.
type Revocations interface {
	// RevokeToken records tokenID until expiresAt. It reports whether this
	// call created the entry; the check and insert are atomic, so exactly
	// one of many concurrent callers sees true.
	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error)

	// IsTokenRevoked reports whether tokenID has an entry.
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)

	// DeleteExpiredRevocations removes entries whose tokens have expired
	// anyway.
	DeleteExpiredRevocations(ctx context.Context) (int64, error)
}

// NewSessionID returns 256 random bits, base64url encoded.
func NewSessionID() (string, error) {
	return cryptox.GenerateToken(cryptox.TokenSize256)
}
