//go:build e2e

package auth_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/aussiebroadwan/learnhub/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestRateLimitLoginEndpoint verifies repeated guesses against one account
// are cut off by the strict limit (5 req/min).
func TestRateLimitLoginEndpoint(t *testing.T) {
	client := setupAuthContainerWithDefaultRateLimits(t)
	ctx := t.Context()

	for i := range 5 {
		_, err := client.Login(ctx, adminEmail, "wrong password")
		require.ErrorIs(t, err, authsdk.ErrInvalidCredentials, "request %d should not be rate limited yet", i+1)
	}

	_, err := client.Login(ctx, adminEmail, "wrong password")
	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Equal(t, authsdk.ErrorCodeRateLimited, apiErr.Code)
}
