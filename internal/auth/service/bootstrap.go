package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/learnhub/internal/auth/domain"
	"github.com/aussiebroadwan/learnhub/internal/auth/store"
	"github.com/aussiebroadwan/learnhub/pkg/cryptox"
	"github.com/aussiebroadwan/learnhub/pkg/slogx"
)

// MinBootstrapPasswordLength guards against seeding an admin with a trivial
// password from a misconfigured environment.
const MinBootstrapPasswordLength = 12

var ErrBootstrapAlready = errors.New("system already bootstrapped")

// BootstrapService seeds the first admin identity on an empty store.
type BootstrapService struct {
	Store store.Store
}

// IsBootstrapped reports whether any identity exists.
func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Identities().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// Bootstrap creates an active admin account when no identity exists yet. It
// returns ErrBootstrapAlready otherwise.
func (s *BootstrapService) Bootstrap(ctx context.Context, email, password string) (int64, error) {
	l := slogx.FromContext(ctx)

	email, err := NormalizeEmail(email)
	if err != nil {
		return 0, err
	}
	if len(password) < MinBootstrapPasswordLength {
		return 0, fmt.Errorf("%w: bootstrap password must be at least %d characters", ErrValidation, MinBootstrapPasswordLength)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return 0, fmt.Errorf("hash admin password: %w", err)
	}

	var id int64
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		empty, err := tx.Identities().IsEmpty(ctx)
		if err != nil {
			return err
		}
		if !empty {
			return ErrBootstrapAlready
		}

		id, err = tx.Identities().CreateAccount(ctx, domain.Account{
			Identity: domain.Identity{
				Email:  email,
				Role:   domain.RoleAdmin,
				Active: true,
			},
			PasswordHash: hash,
		})
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrBootstrapAlready) {
			l.Error("failed to bootstrap admin", slog.Any("error", err))
		}
		return 0, err
	}

	l.Info("successfully bootstrapped system", slog.Int64("admin_id", id))
	return id, nil
}
