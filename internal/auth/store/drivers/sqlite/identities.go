package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/aussiebroadwan/learnhub/internal/auth/domain"
)

const (
	identityColumns = `id, email, password_hash, role, active, created_at_ms, updated_at_ms`

	getAccountByEmailSQL = `SELECT ` + identityColumns + ` FROM identities WHERE email = ? COLLATE NOCASE`

	getIdentityByIDSQL = `SELECT ` + identityColumns + ` FROM identities WHERE id = ?`

	createAccountSQL = `INSERT INTO identities (email, password_hash, role, active, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?)`

	updateRoleSQL = `UPDATE identities SET role = ?, updated_at_ms = ? WHERE id = ?`

	setActiveSQL = `UPDATE identities SET active = ?, updated_at_ms = ? WHERE id = ?`

	deleteIdentitySQL = `DELETE FROM identities WHERE id = ?`

	countIdentitiesSQL = `SELECT COUNT(*) FROM identities`
)

type identitiesRepo struct {
	db  dbtx
	now func() time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		a         domain.Account
		role      string
		active    int
		createdMs int64
		updatedMs int64
	)
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &role, &active, &createdMs, &updatedMs); err != nil {
		return domain.Account{}, err
	}
	a.Role = domain.Role(role)
	a.Active = active != 0
	a.CreatedAt = fromMillis(createdMs)
	a.UpdatedAt = fromMillis(updatedMs)
	return a, nil
}

func (r *identitiesRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, getAccountByEmailSQL, strings.TrimSpace(email)))
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *identitiesRepo) GetIdentityByID(ctx context.Context, id int64) (domain.Identity, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, getIdentityByIDSQL, id))
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	return a.Identity, nil
}

func (r *identitiesRepo) CreateAccount(ctx context.Context, a domain.Account) (int64, error) {
	now := toMillis(r.now())
	res, err := r.db.ExecContext(ctx, createAccountSQL,
		strings.ToLower(strings.TrimSpace(a.Email)),
		a.PasswordHash,
		string(a.Role),
		boolToInt(a.Active),
		now,
		now,
	)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return res.LastInsertId()
}

func (r *identitiesRepo) UpdateRole(ctx context.Context, id int64, role domain.Role) error {
	res, err := r.db.ExecContext(ctx, updateRoleSQL, string(role), toMillis(r.now()), id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (r *identitiesRepo) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, setActiveSQL, boolToInt(active), toMillis(r.now()), id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (r *identitiesRepo) DeleteIdentity(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteIdentitySQL, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (r *identitiesRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, countIdentitiesSQL).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}
