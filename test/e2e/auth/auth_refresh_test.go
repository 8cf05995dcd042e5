//go:build e2e

package auth_test

import (
	"sync"
	"testing"

	"github.com/aussiebroadwan/learnhub/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestRefreshRotation verifies a refresh rotates both tokens and kills the
// old pair.
func TestRefreshRotation(t *testing.T) {
	client := setupAuthContainer(t)
	ctx := t.Context()

	session := loginAdmin(t, client)
	oldAccess, oldRefresh := session.AccessToken(), session.RefreshToken()

	tok, err := client.Refresh(ctx, oldRefresh)
	require.NoError(t, err)
	assertTokenResponse(t, tok)
	require.NotEqual(t, oldAccess, tok.AccessToken, "access token should be rotated")
	require.NotEqual(t, oldRefresh, tok.RefreshToken, "refresh token should be rotated")

	_, err = client.Refresh(ctx, oldRefresh)
	require.ErrorIs(t, err, authsdk.ErrInvalidToken, "a refresh token is single use")

	status, err := client.Status(ctx, oldAccess)
	require.NoError(t, err)
	require.False(t, status.Authenticated, "the access token of a rotated pair is revoked")

	status, err = client.Status(ctx, tok.AccessToken)
	require.NoError(t, err)
	require.True(t, status.Authenticated)
}

// TestConcurrentRefreshSingleWinner races one refresh token from many
// clients. Exactly one may rotate it.
func TestConcurrentRefreshSingleWinner(t *testing.T) {
	client := setupAuthContainer(t)
	ctx := t.Context()

	refresh := loginAdmin(t, client).RefreshToken()

	const attempts = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Refresh(ctx, refresh); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, winners)
}

// TestAccessTokenCannotRefresh checks token kinds are not interchangeable.
func TestAccessTokenCannotRefresh(t *testing.T) {
	client := setupAuthContainer(t)

	session := loginAdmin(t, client)
	_, err := client.Refresh(t.Context(), session.AccessToken())
	require.ErrorIs(t, err, authsdk.ErrInvalidToken)
}
