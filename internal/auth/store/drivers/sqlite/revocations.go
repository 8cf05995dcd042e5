package sqlite

import (
	"context"
	"time"
)

const (
	revokeTokenSQL = `INSERT INTO revoked_tokens (token_id, expires_at_ms) VALUES (?, ?)
ON CONFLICT (token_id) DO NOTHING`

	isTokenRevokedSQL = `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_id = ?)`

	deleteExpiredRevocationsSQL = `DELETE FROM revoked_tokens WHERE expires_at_ms <= ?`
)

type revocationsRepo struct {
	db  dbtx
	now func() time.Time
}

// RevokeToken relies on ON CONFLICT DO NOTHING: the row count tells the
// caller whether it won.
func (r *revocationsRepo) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, revokeTokenSQL, tokenID, toMillis(expiresAt))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *revocationsRepo) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, isTokenRevokedSQL, tokenID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *revocationsRepo) DeleteExpiredRevocations(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteExpiredRevocationsSQL, toMillis(r.now()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
