//go:build e2e

package auth_test

import (
	"testing"

	"github.com/aussiebroadwan/learnhub/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestLoginStatusLogout walks the whole lifecycle of one session.
func TestLoginStatusLogout(t *testing.T) {
	client := setupAuthContainer(t)
	ctx := t.Context()

	session := loginAdmin(t, client)
	require.Equal(t, adminEmail, session.Identity().Email)
	require.Equal(t, "admin", session.Identity().Role)

	me, err := session.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, adminEmail, me.Email)

	status, err := client.Status(ctx, session.AccessToken())
	require.NoError(t, err)
	require.True(t, status.Authenticated)

	access := session.AccessToken()
	require.NoError(t, session.Logout(ctx))

	status, err = client.Status(ctx, access)
	require.NoError(t, err)
	require.False(t, status.Authenticated, "logged out token must not authenticate")
}

// TestLoginFailuresLookAlike checks unknown accounts and wrong passwords
// produce the same error.
func TestLoginFailuresLookAlike(t *testing.T) {
	client := setupAuthContainer(t)
	ctx := t.Context()

	_, errUnknown := client.Login(ctx, "nobody@example.com", adminPassword)
	_, errWrong := client.Login(ctx, adminEmail, "not the password")

	require.ErrorIs(t, errUnknown, authsdk.ErrInvalidCredentials)
	require.ErrorIs(t, errWrong, authsdk.ErrInvalidCredentials)
	require.Equal(t, errUnknown.Error(), errWrong.Error())
}

// TestLogoutUnknownToken verifies logout never reveals whether a token was
// valid.
func TestLogoutUnknownToken(t *testing.T) {
	client := setupAuthContainer(t)

	require.NoError(t, client.Logout(t.Context(), "not-a-token"))
}
