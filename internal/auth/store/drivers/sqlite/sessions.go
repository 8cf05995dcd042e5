package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/learnhub/internal/auth/domain"
	"github.com/aussiebroadwan/learnhub/internal/auth/store"
)

const (
	sessionColumns = `id, identity_id, email, role, origin_addr, user_agent, created_at_ms, expires_at_ms, revoked`

	createSessionSQL = `INSERT INTO sessions (` + sessionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	getSessionSQL = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`

	validSessionSQL = `SELECT EXISTS (
    SELECT 1 FROM sessions WHERE id = ? AND revoked = 0 AND expires_at_ms > ?
)`

	listIdentitySessionsSQL = `SELECT ` + sessionColumns + ` FROM sessions
WHERE identity_id = ? AND revoked = 0 AND expires_at_ms > ?
ORDER BY created_at_ms DESC, id`

	invalidateSessionSQL = `UPDATE sessions SET revoked = 1 WHERE id = ? AND revoked = 0`

	invalidateIdentitySessionsSQL = `UPDATE sessions SET revoked = 1 WHERE identity_id = ? AND revoked = 0`

	deleteExpiredSessionsSQL = `DELETE FROM sessions WHERE expires_at_ms <= ?`
)

type sessionsRepo struct {
	db  dbtx
	now func() time.Time
}

func scanSession(row rowScanner) (domain.Session, error) {
	var (
		s         domain.Session
		role      string
		createdMs int64
		expiresMs int64
		revoked   int
	)
	err := row.Scan(&s.ID, &s.IdentityID, &s.Email, &role, &s.OriginAddr, &s.UserAgent, &createdMs, &expiresMs, &revoked)
	if err != nil {
		return domain.Session{}, err
	}
	s.Role = domain.Role(role)
	s.CreatedAt = fromMillis(createdMs)
	s.ExpiresAt = fromMillis(expiresMs)
	s.Revoked = revoked != 0
	return s, nil
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) (domain.Session, error) {
	if s.ID == "" {
		id, err := store.NewSessionID()
		if err != nil {
			return domain.Session{}, fmt.Errorf("create session: %w", err)
		}
		s.ID = id
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now()
	}

	// Round-trip through millis so the returned value matches a later read.
	s.CreatedAt = fromMillis(toMillis(s.CreatedAt))
	s.ExpiresAt = fromMillis(toMillis(s.ExpiresAt))

	_, err := r.db.ExecContext(ctx, createSessionSQL,
		s.ID,
		s.IdentityID,
		s.Email,
		string(s.Role),
		s.OriginAddr,
		s.UserAgent,
		toMillis(s.CreatedAt),
		toMillis(s.ExpiresAt),
		boolToInt(s.Revoked),
	)
	if err != nil {
		return domain.Session{}, mapConstraint(err)
	}
	return s, nil
}

func (r *sessionsRepo) GetSession(ctx context.Context, id string) (domain.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, getSessionSQL, id))
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) IsSessionValid(ctx context.Context, id string) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, validSessionSQL, id, toMillis(r.now())).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *sessionsRepo) ListIdentitySessions(ctx context.Context, identityID int64) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, listIdentitySessionsSQL, identityID, toMillis(r.now()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionsRepo) InvalidateSession(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, invalidateSessionSQL, id)
	return err
}

func (r *sessionsRepo) InvalidateIdentitySessions(ctx context.Context, identityID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, invalidateIdentitySessionsSQL, identityID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteExpiredSessionsSQL, toMillis(r.now()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
