package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/aussiebroadwan/learnhub/internal/auth/domain"
	"github.com/aussiebroadwan/learnhub/internal/auth/store"
	"github.com/aussiebroadwan/learnhub/pkg/cryptox"
)

// CredentialVerifier checks an identifier and secret pair.
type CredentialVerifier interface {
	Verify(ctx context.Context, identifier, secret string) (domain.Identity, error)
}

// StoreCredentialVerifier verifies against argon2id hashes kept in the
// identity store.
type StoreCredentialVerifier struct {
	Identities store.Identities
}

var _ CredentialVerifier = (*StoreCredentialVerifier)(nil)

// Verify returns ErrInvalidCredentials for an unknown identifier, a wrong
// secret and an inactive identity alike. Unknown identifiers still pay for a
// hash verification.
func (v *StoreCredentialVerifier) Verify(ctx context.Context, identifier, secret string) (domain.Identity, error) {
	email, err := NormalizeEmail(identifier)
	if err != nil {
		return domain.Identity{}, err
	}
	if secret == "" {
		return domain.Identity{}, fmt.Errorf("%w: password is required", ErrValidation)
	}

	acc, err := v.Identities.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			cryptox.BurnVerify(secret)
			return domain.Identity{}, ErrInvalidCredentials
		}
		return domain.Identity{}, fmt.Errorf("load account: %w", err)
	}

	if err := cryptox.VerifyPassword(secret, acc.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			return domain.Identity{}, ErrInvalidCredentials
		}
		return domain.Identity{}, fmt.Errorf("verify password: %w", err)
	}

	if !acc.Active {
		return domain.Identity{}, ErrInvalidCredentials
	}
	return acc.Identity, nil
}

// NormalizeEmail trims and lower-cases s and requires a bare address, so
// "Name <a@b>" is rejected.
func NormalizeEmail(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("%w: email is required", ErrValidation)
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return "", fmt.Errorf("%w: malformed email", ErrValidation)
	}
	return s, nil
}
