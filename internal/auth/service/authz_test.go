package service

import (
	"testing"

	"github.com/aussiebroadwan/learnhub/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestRequireMinimumRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		actor  domain.Role
		target domain.Role
		ok     bool
	}{
		{domain.RoleAdmin, domain.RoleInstructor, true},
		{domain.RoleAdmin, domain.RoleJobSeeker, true},
		{domain.RoleInstructor, domain.RoleEmployer, true},
		{domain.RoleInstructor, domain.RoleInstructor, false},
		{domain.RoleAdmin, domain.RoleAdmin, false},
		{domain.RoleEmployer, domain.RoleAdmin, false},
		{domain.RoleJobSeeker, domain.RoleEmployer, false},
		{domain.Role("root"), domain.RoleJobSeeker, false},
	}
	for _, tt := range tests {
		err := RequireMinimumRole(domain.Identity{ID: 1, Role: tt.actor}, tt.target)
		if tt.ok {
			require.NoError(t, err, "%s over %s", tt.actor, tt.target)
		} else {
			require.ErrorIs(t, err, ErrForbidden, "%s over %s", tt.actor, tt.target)
		}
	}
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	admin := domain.Identity{ID: 1, Role: domain.RoleAdmin}
	employer := domain.Identity{ID: 2, Role: domain.RoleEmployer}

	require.NoError(t, RequireRole(admin, domain.RoleAdmin))
	require.NoError(t, RequireRole(employer, domain.RoleInstructor, domain.RoleEmployer))
	require.ErrorIs(t, RequireRole(employer, domain.RoleAdmin), ErrForbidden)
	require.ErrorIs(t, RequireRole(admin), ErrForbidden)
}

func TestGuards(t *testing.T) {
	t.Parallel()

	t.Run("self action", func(t *testing.T) {
		require.ErrorIs(t, GuardSelfAction(7, 7), ErrForbidden)
		require.NoError(t, GuardSelfAction(7, 8))
	})

	t.Run("role change", func(t *testing.T) {
		require.ErrorIs(t, GuardRoleChange(7, 7, domain.RoleInstructor), ErrForbidden)
		require.NoError(t, GuardRoleChange(7, 7, domain.RoleAdmin))
		require.NoError(t, GuardRoleChange(7, 8, domain.RoleJobSeeker))
	})
}
