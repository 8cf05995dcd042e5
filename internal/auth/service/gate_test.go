package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/learnhub/internal/auth/domain"
	"github.com/aussiebroadwan/learnhub/pkg/jwtx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestLoginAuthenticateRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		want := h.createAccount(t, "ada@example.com", domain.RoleEmployer)

		res, err := h.gate.Login(ctx, LoginRequest{Email: "  ADA@example.com ", Password: testPassword})
		require.NoError(t, err)
		require.Equal(t, want, res.Identity)
		require.NotEmpty(t, res.Tokens.SessionID)

		got, err := h.gate.Authenticate(ctx, res.Tokens.AccessToken)
		require.NoError(t, err)
		require.Equal(t, want, got)

		p, err := h.gate.AuthenticateSession(ctx, res.Tokens.AccessToken)
		require.NoError(t, err)
		require.Equal(t, res.Tokens.SessionID, p.SessionID)
		require.Equal(t, res.Tokens.AccessTokenID, p.TokenID)
	})
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	h := newHarness(t, "memory")
	ctx := context.Background()
	h.createAccount(t, "ada@example.com", domain.RoleEmployer)
	inactive := h.createAccount(t, "off@example.com", domain.RoleEmployer)
	require.NoError(t, h.store.Identities().SetActive(ctx, inactive.ID, false))

	cases := map[string]LoginRequest{
		"unknown identifier": {Email: "ghost@example.com", Password: testPassword},
		"wrong password":     {Email: "ada@example.com", Password: "not it"},
		"inactive identity":  {Email: "off@example.com", Password: testPassword},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := h.gate.Login(ctx, req)
			require.Equal(t, ErrInvalidCredentials, err)
		})
	}

	require.NoError(t, testutil.GatherAndCompare(h.metrics.Registry(), strings.NewReader(`
# HELP auth_logins_total Login attempts by outcome.
# TYPE auth_logins_total counter
auth_logins_total{outcome="rejected"} 3
`), "auth_logins_total"))
}

func TestLoginValidation(t *testing.T) {
	h := newHarness(t, "memory")

	for _, req := range []LoginRequest{
		{Email: "", Password: testPassword},
		{Email: "not-an-email", Password: testPassword},
		{Email: "Ada <ada@example.com>", Password: testPassword},
		{Email: "ada@example.com", Password: ""},
	} {
		_, err := h.gate.Login(context.Background(), req)
		require.ErrorIs(t, err, ErrValidation, "email %q", req.Email)
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	h := newHarness(t, "memory")
	identity := domain.Identity{ID: 42, Email: "ada@example.com", Role: domain.RoleInstructor, Active: true}

	pair, err := h.tokens.Issue(identity, "session-id")
	require.NoError(t, err)
	require.NotEqual(t, pair.AccessTokenID, pair.RefreshTokenID)
	require.NotEqual(t, "session-id", pair.AccessTokenID)

	access, err := h.tokens.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, jwtx.KindAccess, access.Kind)
	require.Equal(t, int64(42), access.UID)
	require.Equal(t, "42", access.Subject)
	require.Equal(t, "ada@example.com", access.Email)
	require.Equal(t, "instructor", access.Role)
	require.Equal(t, "session-id", access.SID)
	require.Equal(t, pair.AccessTokenID, access.ID)
	require.Equal(t, "learnhub-test", access.Issuer)
	require.WithinDuration(t, pair.AccessExpiresAt, access.ExpiresAt.Time, 0)

	refresh, err := h.tokens.Verify(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, jwtx.KindRefresh, refresh.Kind)
	require.Equal(t, pair.AccessTokenID, refresh.PairID)
	require.WithinDuration(t, pair.RefreshExpiresAt, refresh.ExpiresAt.Time, 0)

	_, err = h.tokens.Verify(pair.AccessToken + "x")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	for _, secret := range [][]byte{nil, []byte("short")} {
		_, err := NewTokenIssuer(IssuerConfig{Secret: secret})
		require.ErrorIs(t, err, ErrMissingSigningSecret)
	}
}

func TestExpiry(t *testing.T) {
	forEachBackend(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		h.createAccount(t, "ada@example.com", domain.RoleEmployer)
		res := h.login(t, "ada@example.com")

		h.clock.Advance(15*time.Minute - time.Second)
		_, err := h.gate.Authenticate(ctx, res.Tokens.AccessToken)
		require.NoError(t, err)

		h.clock.Advance(time.Second)
		_, err = h.gate.Authenticate(ctx, res.Tokens.AccessToken)
		require.ErrorIs(t, err, ErrTokenExpired)

		h.clock.Advance(24 * time.Hour)
		_, err = h.gate.Refresh(ctx, res.Tokens.RefreshToken)
		require.ErrorIs(t, err, ErrTokenExpired)
	})
}

func TestRefreshRotatesOnce(t *testing.T) {
	forEachBackend(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		h.createAccount(t, "ada@example.com", domain.RoleEmployer)
		first := h.login(t, "ada@example.com")

		h.clock.Advance(time.Minute)
		second, err := h.gate.Refresh(ctx, first.Tokens.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, first.Tokens.SessionID, second.Tokens.SessionID)
		require.Equal(t, first.Identity, second.Identity)
		require.NotEqual(t, first.Tokens.RefreshTokenID, second.Tokens.RefreshTokenID)

		_, err = h.gate.Refresh(ctx, first.Tokens.RefreshToken)
		require.ErrorIs(t, err, ErrUnauthenticated)

		// The access token minted with the rotated refresh token is dead too.
		_, err = h.gate.Authenticate(ctx, first.Tokens.AccessToken)
		require.ErrorIs(t, err, ErrUnauthenticated)

		_, err = h.gate.Authenticate(ctx, second.Tokens.AccessToken)
		require.NoError(t, err)

		third, err := h.gate.Refresh(ctx, second.Tokens.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, first.Tokens.SessionID, third.Tokens.SessionID)
	})
}

func TestRefreshNeverOutlivesSession(t *testing.T) {
	h := newHarness(t, "memory")
	h.createAccount(t, "ada@example.com", domain.RoleEmployer)
	first := h.login(t, "ada@example.com")

	h.clock.Advance(20 * time.Hour)
	second, err := h.gate.Refresh(context.Background(), first.Tokens.RefreshToken)
	require.NoError(t, err)
	require.WithinDuration(t, first.Tokens.RefreshExpiresAt, second.Tokens.RefreshExpiresAt, 0)
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	h := newHarness(t, "memory")
	ctx := context.Background()
	h.createAccount(t, "ada@example.com", domain.RoleEmployer)
	res := h.login(t, "ada@example.com")

	_, err := h.gate.Authenticate(ctx, res.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = h.gate.Refresh(ctx, res.Tokens.AccessToken)
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = h.gate.Authenticate(ctx, "")
	require.ErrorIs(t, err, ErrUnauthenticated)
	_, err = h.gate.Authenticate(ctx, "garbage")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestConcurrentRefreshHasOneWinner(t *testing.T) {
	forEachBackend(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		h.createAccount(t, "ada@example.com", domain.RoleEmployer)
		res := h.login(t, "ada@example.com")

		const callers = 50
		var (
			wins   atomic.Int32
			losses atomic.Int32
			start  = make(chan struct{})
			wg     sync.WaitGroup
		)
		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if _, err := h.gate.Refresh(ctx, res.Tokens.RefreshToken); err == nil {
					wins.Add(1)
				} else if errors.Is(err, ErrUnauthenticated) {
					losses.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		require.Equal(t, int32(1), wins.Load())
		require.Equal(t, int32(callers-1), losses.Load())

		require.NoError(t, testutil.GatherAndCompare(h.metrics.Registry(), strings.NewReader(`
# HELP auth_refreshes_total Refresh-token rotations by outcome.
# TYPE auth_refreshes_total counter
auth_refreshes_total{outcome="replayed"} 49
auth_refreshes_total{outcome="success"} 1
`), "auth_refreshes_total"))
	})
}

func TestLogout(t *testing.T) {
	forEachBackend(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		h.createAccount(t, "ada@example.com", domain.RoleEmployer)
		res := h.login(t, "ada@example.com")

		h.gate.Logout(ctx, res.Tokens.RefreshToken)
		h.gate.Logout(ctx, res.Tokens.RefreshToken)

		_, err := h.gate.Authenticate(ctx, res.Tokens.AccessToken)
		require.ErrorIs(t, err, ErrUnauthenticated)
		_, err = h.gate.Refresh(ctx, res.Tokens.RefreshToken)
		require.ErrorIs(t, err, ErrUnauthenticated)

		valid, err := h.gate.Sessions.IsSessionValid(ctx, res.Tokens.SessionID)
		require.NoError(t, err)
		require.False(t, valid)

		// Refresh token revocation plus its paired access token, once each.
		require.NoError(t, testutil.GatherAndCompare(h.metrics.Registry(), strings.NewReader(`
# HELP auth_token_revocations_total Token ids newly added to the revocation registry.
# TYPE auth_token_revocations_total counter
auth_token_revocations_total 2
`), "auth_token_revocations_total"))
	})
}

func TestLogoutAcceptsExpiredAndIgnoresForged(t *testing.T) {
	h := newHarness(t, "memory")
	ctx := context.Background()
	h.createAccount(t, "ada@example.com", domain.RoleEmployer)
	res := h.login(t, "ada@example.com")

	h.gate.Logout(ctx, "")
	h.gate.Logout(ctx, "not.a.jwt")

	other, err := NewTokenIssuer(IssuerConfig{
		Secret: []byte("ffffffffffffffffffffffffffffffff"),
		Issuer: "learnhub-test",
		Now:    h.clock.Now,
	})
	require.NoError(t, err)
	forged, err := other.Issue(res.Identity, res.Tokens.SessionID)
	require.NoError(t, err)
	h.gate.Logout(ctx, forged.AccessToken)

	valid, err := h.gate.Sessions.IsSessionValid(ctx, res.Tokens.SessionID)
	require.NoError(t, err)
	require.True(t, valid)

	h.clock.Advance(time.Hour)
	h.gate.Logout(ctx, res.Tokens.AccessToken)

	valid, err = h.gate.Sessions.IsSessionValid(ctx, res.Tokens.SessionID)
	require.NoError(t, err)
	require.False(t, valid)
}

func TestAuthenticateOptional(t *testing.T) {
	h := newHarness(t, "memory")
	ctx := context.Background()
	want := h.createAccount(t, "ada@example.com", domain.RoleEmployer)
	res := h.login(t, "ada@example.com")

	got, ok := h.gate.AuthenticateOptional(ctx, res.Tokens.AccessToken)
	require.True(t, ok)
	require.Equal(t, want, got)

	for _, raw := range []string{"", "garbage", res.Tokens.RefreshToken} {
		_, ok := h.gate.AuthenticateOptional(ctx, raw)
		require.False(t, ok)
	}
}

func TestSessions(t *testing.T) {
	h := newHarness(t, "memory")
	ctx := context.Background()
	ada := h.createAccount(t, "ada@example.com", domain.RoleEmployer)
	bob := h.createAccount(t, "bob@example.com", domain.RoleEmployer)

	older := h.login(t, "ada@example.com")
	h.clock.Advance(time.Minute)
	newer := h.login(t, "ada@example.com")
	bobs := h.login(t, "bob@example.com")

	list, err := h.gate.ListSessions(ctx, ada.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, newer.Tokens.SessionID, list[0].ID)
	require.Equal(t, older.Tokens.SessionID, list[1].ID)

	require.ErrorIs(t, h.gate.RevokeSession(ctx, ada.ID, bobs.Tokens.SessionID), ErrNotFound)
	require.ErrorIs(t, h.gate.RevokeSession(ctx, ada.ID, "missing"), ErrNotFound)
	require.NoError(t, h.gate.RevokeSession(ctx, ada.ID, older.Tokens.SessionID))

	_, err = h.gate.Authenticate(ctx, older.Tokens.AccessToken)
	require.ErrorIs(t, err, ErrUnauthenticated)
	_, err = h.gate.Authenticate(ctx, bobs.Tokens.AccessToken)
	require.NoError(t, err)

	list, err = h.gate.ListSessions(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}
