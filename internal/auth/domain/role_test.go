package domain_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/learnhub/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestRoleOrder(t *testing.T) {
	require.Equal(t, 0, domain.RoleJobSeeker.Rank())
	require.Equal(t, 3, domain.RoleAdmin.Rank())
	require.Equal(t, -1, domain.Role("root").Rank())

	require.True(t, domain.RoleAdmin.Outranks(domain.RoleInstructor))
	require.False(t, domain.RoleInstructor.Outranks(domain.RoleInstructor))
	require.False(t, domain.RoleEmployer.Outranks(domain.RoleAdmin))
	require.False(t, domain.Role("root").Outranks(domain.RoleJobSeeker))
	require.False(t, domain.RoleAdmin.Outranks(domain.Role("root")))

	require.True(t, domain.RoleInstructor.AtLeast(domain.RoleInstructor))
	require.False(t, domain.RoleAdmin.AtLeast(domain.Role("root")))
}

func TestParseRole(t *testing.T) {
	r, err := domain.ParseRole(" Instructor ")
	require.NoError(t, err)
	require.Equal(t, domain.RoleInstructor, r)

	_, err = domain.ParseRole("superuser")
	require.ErrorIs(t, err, domain.ErrUnknownRole)
}

func TestSessionIsValid(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := domain.Session{ExpiresAt: now.Add(time.Minute)}

	require.True(t, s.IsValid(now))
	require.False(t, s.IsValid(now.Add(time.Minute)))

	s.Revoked = true
	require.False(t, s.IsValid(now))
}
