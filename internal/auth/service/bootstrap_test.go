package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/learnhub/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestBootstrap(t *testing.T) {
	h := newHarness(t, "memory")
	ctx := context.Background()
	svc := &BootstrapService{Store: h.store}

	done, err := svc.IsBootstrapped(ctx)
	require.NoError(t, err)
	require.False(t, done)

	_, err = svc.Bootstrap(ctx, "root@example.com", "short")
	require.ErrorIs(t, err, ErrValidation)

	id, err := svc.Bootstrap(ctx, "Root@Example.com", testPassword)
	require.NoError(t, err)
	require.Positive(t, id)

	_, err = svc.Bootstrap(ctx, "second@example.com", testPassword)
	require.ErrorIs(t, err, ErrBootstrapAlready)

	res := h.login(t, "root@example.com")
	require.Equal(t, domain.RoleAdmin, res.Identity.Role)
	require.Equal(t, id, res.Identity.ID)
}
