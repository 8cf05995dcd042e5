package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/learnhub/internal/auth/domain"
	"github.com/aussiebroadwan/learnhub/internal/auth/store"
	"github.com/aussiebroadwan/learnhub/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/learnhub/internal/auth/store/storetest"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...sqlite.Option) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func createAccount(t *testing.T, s store.Store, email string, role domain.Role) int64 {
	t.Helper()

	id, err := s.Identities().CreateAccount(context.Background(), domain.Account{
		Identity:     domain.Identity{Email: email, Role: role, Active: true},
		PasswordHash: "$argon2id$placeholder",
	})
	require.NoError(t, err)
	return id
}

func TestSessions(t *testing.T) {
	storetest.RunSessions(t, func(t *testing.T, clock *storetest.Clock) (store.Sessions, []int64) {
		s := newTestStore(t, sqlite.WithClock(clock.Now))
		a := createAccount(t, s, "a@example.com", domain.RoleEmployer)
		b := createAccount(t, s, "b@example.com", domain.RoleJobSeeker)
		return s.Sessions(), []int64{a, b}
	})
}

func TestRevocations(t *testing.T) {
	storetest.RunRevocations(t, func(t *testing.T, clock *storetest.Clock) store.Revocations {
		return newTestStore(t, sqlite.WithClock(clock.Now)).Revocations()
	})
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))
}

func TestIdentities(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ids := s.Identities()

	empty, err := ids.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	id := createAccount(t, s, "Ada@Example.com", domain.RoleInstructor)
	require.Positive(t, id)

	t.Run("email lookup is case-insensitive", func(t *testing.T) {
		acc, err := ids.GetAccountByEmail(ctx, "ADA@example.COM")
		require.NoError(t, err)
		require.Equal(t, id, acc.ID)
		require.Equal(t, "ada@example.com", acc.Email)
		require.Equal(t, domain.RoleInstructor, acc.Role)
		require.True(t, acc.Active)
		require.Equal(t, "$argon2id$placeholder", acc.PasswordHash)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := ids.CreateAccount(ctx, domain.Account{
			Identity:     domain.Identity{Email: "ADA@example.com", Role: domain.RoleAdmin},
			PasswordHash: "x",
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("update role and active flag", func(t *testing.T) {
		require.NoError(t, ids.UpdateRole(ctx, id, domain.RoleEmployer))
		require.NoError(t, ids.SetActive(ctx, id, false))

		got, err := ids.GetIdentityByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, domain.RoleEmployer, got.Role)
		require.False(t, got.Active)
	})

	t.Run("unknown ids", func(t *testing.T) {
		_, err := ids.GetIdentityByID(ctx, 9999)
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = ids.GetAccountByEmail(ctx, "ghost@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
		require.ErrorIs(t, ids.UpdateRole(ctx, 9999, domain.RoleAdmin), store.ErrNotFound)
		require.ErrorIs(t, ids.SetActive(ctx, 9999, true), store.ErrNotFound)
		require.ErrorIs(t, ids.DeleteIdentity(ctx, 9999), store.ErrNotFound)
	})

	t.Run("delete cascades to sessions", func(t *testing.T) {
		sess, err := s.Sessions().CreateSession(ctx, domain.Session{
			IdentityID: id,
			Email:      "ada@example.com",
			Role:       domain.RoleEmployer,
			ExpiresAt:  time.Now().Add(time.Hour),
		})
		require.NoError(t, err)

		require.NoError(t, ids.DeleteIdentity(ctx, id))

		_, err = s.Sessions().GetSession(ctx, sess.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("rollback on error", func(t *testing.T) {
		err := s.WithTx(ctx, func(tx store.Tx) error {
			createAccount(t, tx, "rolled@example.com", domain.RoleAdmin)
			return context.Canceled
		})
		require.ErrorIs(t, err, context.Canceled)

		empty, err := s.Identities().IsEmpty(ctx)
		require.NoError(t, err)
		require.True(t, empty)
	})

	t.Run("commit on success", func(t *testing.T) {
		require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
			createAccount(t, tx, "kept@example.com", domain.RoleAdmin)
			return nil
		}))

		_, err := s.Identities().GetAccountByEmail(ctx, "kept@example.com")
		require.NoError(t, err)
	})

	t.Run("no nested transactions", func(t *testing.T) {
		require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
			require.Error(t, tx.WithTx(ctx, func(store.Tx) error { return nil }))
			return nil
		}))
	})
}
