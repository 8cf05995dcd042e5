package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/learnhub/internal/auth/domain"
	"github.com/aussiebroadwan/learnhub/internal/auth/store"
	"github.com/aussiebroadwan/learnhub/pkg/cryptox"
	"github.com/aussiebroadwan/learnhub/pkg/jwtx"
	"github.com/aussiebroadwan/learnhub/pkg/obs"
	"github.com/aussiebroadwan/learnhub/pkg/slogx"
)

// Gate runs login, refresh, logout and per-request authentication.
type Gate struct {
	Credentials CredentialVerifier
	Tokens      *TokenIssuer
	Sessions    store.Sessions
	Revocations store.Revocations
	Metrics     *obs.Metrics
}

type LoginRequest struct {
	Email      string
	Password   string
	OriginAddr string
	UserAgent  string
}

// LoginResult is returned by Login and Refresh.
type LoginResult struct {
	Identity domain.Identity
	Tokens   domain.TokenPair
}

// Principal is an authenticated identity plus the session its token is
// bound to.
type Principal struct {
	domain.Identity
	SessionID string
	TokenID   string
}

// Login verifies credentials, opens a session that lives as long as the
// refresh token, and issues the first pair.
func (g *Gate) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	l := slogx.FromContext(ctx)

	identity, err := g.Credentials.Verify(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrValidation):
			g.Metrics.ObserveLogin(obs.OutcomeRejected)
		default:
			g.Metrics.ObserveLogin(obs.OutcomeError)
		}
		return LoginResult{}, err
	}

	now := g.Tokens.Now()
	sess, err := g.Sessions.CreateSession(ctx, domain.Session{
		IdentityID: identity.ID,
		Email:      identity.Email,
		Role:       identity.Role,
		OriginAddr: req.OriginAddr,
		UserAgent:  req.UserAgent,
		CreatedAt:  now,
		ExpiresAt:  g.sessionExpiry(now),
	})
	if err != nil {
		g.Metrics.ObserveLogin(obs.OutcomeError)
		return LoginResult{}, fmt.Errorf("create session: %w", err)
	}

	pair, err := g.Tokens.issue(identity, sess.ID, sess.ExpiresAt)
	if err != nil {
		if ierr := g.Sessions.InvalidateSession(ctx, sess.ID); ierr != nil {
			l.Error("failed to invalidate orphaned session", slog.Any("error", ierr))
		}
		g.Metrics.ObserveLogin(obs.OutcomeError)
		return LoginResult{}, err
	}

	g.Metrics.ObserveLogin(obs.OutcomeSuccess)
	l.Info("login succeeded",
		slog.Int64("identity_id", identity.ID),
		slog.String("session", cryptox.ShortFingerprint(sess.ID)),
	)
	return LoginResult{Identity: identity, Tokens: pair}, nil
}

// Authenticate resolves an access token to the identity it was issued for.
func (g *Gate) Authenticate(ctx context.Context, raw string) (domain.Identity, error) {
	p, err := g.AuthenticateSession(ctx, raw)
	if err != nil {
		return domain.Identity{}, err
	}
	return p.Identity, nil
}

// AuthenticateSession is Authenticate that also reports the session and
// token ids. The identity comes from the claims; the identity store is not
// consulted.
func (g *Gate) AuthenticateSession(ctx context.Context, raw string) (Principal, error) {
	if raw == "" {
		return Principal{}, ErrUnauthenticated
	}

	claims, err := g.Tokens.Verify(raw)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return Principal{}, ErrTokenExpired
		}
		return Principal{}, ErrUnauthenticated
	}
	if claims.Kind != jwtx.KindAccess {
		return Principal{}, ErrUnauthenticated
	}

	revoked, err := g.Revocations.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return Principal{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return Principal{}, ErrUnauthenticated
	}

	valid, err := g.Sessions.IsSessionValid(ctx, claims.SID)
	if err != nil {
		return Principal{}, fmt.Errorf("check session: %w", err)
	}
	if !valid {
		return Principal{}, ErrUnauthenticated
	}

	return principalFromClaims(claims), nil
}

// AuthenticateOptional never fails; any problem reads as anonymous.
func (g *Gate) AuthenticateOptional(ctx context.Context, raw string) (domain.Identity, bool) {
	if raw == "" {
		return domain.Identity{}, false
	}
	identity, err := g.Authenticate(ctx, raw)
	if err != nil {
		return domain.Identity{}, false
	}
	return identity, true
}

// Refresh rotates a refresh token. Revoking the presented token id is the
// serialization point: of any number of concurrent callers, only the one
// whose revocation inserts the entry gets a new pair.
func (g *Gate) Refresh(ctx context.Context, raw string) (LoginResult, error) {
	res, outcome, err := g.refresh(ctx, raw)
	g.Metrics.ObserveRefresh(outcome)
	return res, err
}

func (g *Gate) refresh(ctx context.Context, raw string) (LoginResult, string, error) {
	l := slogx.FromContext(ctx)

	if raw == "" {
		return LoginResult{}, obs.OutcomeRejected, ErrUnauthenticated
	}
	claims, err := g.Tokens.Verify(raw)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return LoginResult{}, obs.OutcomeExpired, ErrTokenExpired
		}
		return LoginResult{}, obs.OutcomeRejected, ErrUnauthenticated
	}
	if claims.Kind != jwtx.KindRefresh {
		return LoginResult{}, obs.OutcomeRejected, ErrUnauthenticated
	}

	revoked, err := g.Revocations.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return LoginResult{}, obs.OutcomeError, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		l.Warn("refresh token replayed", slog.Int64("identity_id", claims.UID))
		return LoginResult{}, obs.OutcomeReplayed, ErrUnauthenticated
	}

	valid, err := g.Sessions.IsSessionValid(ctx, claims.SID)
	if err != nil {
		return LoginResult{}, obs.OutcomeError, fmt.Errorf("check session: %w", err)
	}
	if !valid {
		return LoginResult{}, obs.OutcomeRejected, ErrUnauthenticated
	}

	inserted, err := g.Revocations.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		return LoginResult{}, obs.OutcomeError, fmt.Errorf("revoke refresh token: %w", err)
	}
	if !inserted {
		l.Warn("refresh token rotation lost race", slog.Int64("identity_id", claims.UID))
		return LoginResult{}, obs.OutcomeReplayed, ErrUnauthenticated
	}
	g.Metrics.ObserveRevocation()

	g.revokePair(ctx, claims)

	// The session may have been invalidated between the first check and
	// winning the revocation.
	sess, err := g.Sessions.GetSession(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, obs.OutcomeRejected, ErrUnauthenticated
		}
		return LoginResult{}, obs.OutcomeError, fmt.Errorf("load session: %w", err)
	}
	if !sess.IsValid(g.Tokens.Now()) {
		return LoginResult{}, obs.OutcomeRejected, ErrUnauthenticated
	}

	p := principalFromClaims(claims)
	pair, err := g.Tokens.issue(p.Identity, sess.ID, sess.ExpiresAt)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return LoginResult{}, obs.OutcomeRejected, err
		}
		return LoginResult{}, obs.OutcomeError, err
	}

	l.Debug("refresh token rotated",
		slog.Int64("identity_id", p.ID),
		slog.String("session", cryptox.ShortFingerprint(sess.ID)),
	)
	return LoginResult{Identity: p.Identity, Tokens: pair}, obs.OutcomeSuccess, nil
}

// Logout revokes the presented token (and its paired access token) and
// invalidates its session. Expired tokens are accepted; forged or malformed
// ones are ignored. It never fails from the caller's point of view.
func (g *Gate) Logout(ctx context.Context, raw string) {
	l := slogx.FromContext(ctx)
	if raw == "" {
		return
	}

	claims, err := g.Tokens.Decode(raw)
	if err != nil {
		l.Debug("logout with unverifiable token ignored")
		return
	}

	inserted, err := g.Revocations.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		l.Error("failed to revoke token on logout", slog.Any("error", err))
	} else if inserted {
		g.Metrics.ObserveRevocation()
	}
	g.revokePair(ctx, claims)

	if err := g.Sessions.InvalidateSession(ctx, claims.SID); err != nil {
		l.Error("failed to invalidate session on logout", slog.Any("error", err))
		return
	}
	l.Info("logged out",
		slog.Int64("identity_id", claims.UID),
		slog.String("session", cryptox.ShortFingerprint(claims.SID)),
	)
}

// revokePair blacklists the access token minted with a refresh token. Its
// expiry is derived from the refresh token's issue time.
func (g *Gate) revokePair(ctx context.Context, claims *jwtx.Claims) {
	if claims.Kind != jwtx.KindRefresh || claims.PairID == "" {
		return
	}
	exp := claims.IssuedAt.Add(g.Tokens.AccessTTL())
	inserted, err := g.Revocations.RevokeToken(ctx, claims.PairID, exp)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to revoke paired access token", slog.Any("error", err))
		return
	}
	if inserted {
		g.Metrics.ObserveRevocation()
	}
}

// ListSessions returns the identity's live sessions, newest first.
func (g *Gate) ListSessions(ctx context.Context, identityID int64) ([]domain.Session, error) {
	sessions, err := g.Sessions.ListIdentitySessions(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// RevokeSession invalidates one of the caller's own sessions. Sessions that
// belong to someone else read as not found.
func (g *Gate) RevokeSession(ctx context.Context, identityID int64, sessionID string) error {
	sess, err := g.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load session: %w", err)
	}
	if sess.IdentityID != identityID {
		return ErrNotFound
	}
	if err := g.Sessions.InvalidateSession(ctx, sessionID); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	return nil
}

func principalFromClaims(c *jwtx.Claims) Principal {
	return Principal{
		Identity: domain.Identity{
			ID:     c.UID,
			Email:  c.Email,
			Role:   domain.Role(c.Role),
			Active: true,
		},
		SessionID: c.SID,
		TokenID:   c.ID,
	}
}

// sessionExpiry is how long a session opened now would last.
func (g *Gate) sessionExpiry(now time.Time) time.Time {
	return now.Add(g.Tokens.RefreshTTL())
}
