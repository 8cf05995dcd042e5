package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/learnhub/internal/auth/domain"
	"github.com/aussiebroadwan/learnhub/pkg/idx"
	"github.com/aussiebroadwan/learnhub/pkg/jwtx"
)

// IssuerConfig configures a TokenIssuer.
type IssuerConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// TokenIssuer mints and verifies HS256 token pairs.
type TokenIssuer struct {
	signer     jwtx.Signer
	verifier   *jwtx.HS256Verifier
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer fails with ErrMissingSigningSecret when the secret is
// absent or too short.
func NewTokenIssuer(cfg IssuerConfig) (*TokenIssuer, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = jwtx.DefaultRefreshTokenTTL
	}

	signer, err := jwtx.NewSignerHS256(cfg.Secret)
	if err != nil {
		return nil, ErrMissingSigningSecret
	}
	verifier, err := jwtx.NewVerifierHS256(cfg.Secret, cfg.Issuer, jwtx.WithClock(cfg.Now))
	if err != nil {
		return nil, ErrMissingSigningSecret
	}

	return &TokenIssuer{
		signer:     signer,
		verifier:   verifier,
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
	}, nil
}

func (i *TokenIssuer) AccessTTL() time.Duration  { return i.accessTTL }
func (i *TokenIssuer) RefreshTTL() time.Duration { return i.refreshTTL }

// Now is the issuer's clock; the gate shares it so session and token expiry
// agree.
func (i *TokenIssuer) Now() time.Time { return i.now() }

// Issue mints an access/refresh pair for identity bound to sessionID.
func (i *TokenIssuer) Issue(identity domain.Identity, sessionID string) (domain.TokenPair, error) {
	return i.issue(identity, sessionID, time.Time{})
}

// issue caps the refresh token at notAfter when set, so rotation never
// outlives the session.
func (i *TokenIssuer) issue(identity domain.Identity, sessionID string, notAfter time.Time) (domain.TokenPair, error) {
	// NumericDate has second precision; keep the reported expiries in step
	// with what the tokens carry.
	now := i.now().Truncate(time.Second)

	refreshTTL := i.refreshTTL
	if !notAfter.IsZero() {
		if left := notAfter.Sub(now); left < refreshTTL {
			refreshTTL = left.Truncate(time.Second)
		}
	}
	if refreshTTL <= 0 {
		return domain.TokenPair{}, ErrUnauthenticated
	}

	sub := jwtx.Subject{
		UID:   identity.ID,
		Email: identity.Email,
		Role:  identity.Role.String(),
		SID:   sessionID,
	}

	accessID := idx.NewAt(now).String()
	access := jwtx.NewClaims(jwtx.KindAccess, sub, accessID, i.issuer, i.accessTTL, now)
	accessToken, err := i.signer.Sign(access)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshID := idx.NewAt(now).String()
	refresh := jwtx.NewClaims(jwtx.KindRefresh, sub, refreshID, i.issuer, refreshTTL, now)
	refresh.PairID = accessID
	refreshToken, err := i.signer.Sign(refresh)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:      accessToken,
		AccessTokenID:    accessID,
		AccessExpiresAt:  access.ExpiresAt.Time,
		RefreshToken:     refreshToken,
		RefreshTokenID:   refreshID,
		RefreshExpiresAt: refresh.ExpiresAt.Time,
		SessionID:        sessionID,
	}, nil
}

// Verify returns ErrTokenExpired once now reaches exp and ErrTokenInvalid for
// every other failure.
func (i *TokenIssuer) Verify(token string) (*jwtx.Claims, error) {
	claims, err := i.verifier.Verify(token)
	if err != nil {
		return nil, mapTokenError(err)
	}
	return claims, nil
}

// Decode checks the signature and required claims but ignores expiry.
func (i *TokenIssuer) Decode(token string) (*jwtx.Claims, error) {
	claims, err := i.verifier.Decode(token)
	if err != nil {
		return nil, mapTokenError(err)
	}
	return claims, nil
}

func mapTokenError(err error) error {
	if errors.Is(err, jwtx.ErrExpired) {
		return ErrTokenExpired
	}
	return fmt.Errorf("%w: %w", ErrTokenInvalid, err)
}
