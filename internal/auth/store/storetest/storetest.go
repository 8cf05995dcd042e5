// Package storetest holds behaviour tests shared by every Sessions and
// Revocations driver.
package storetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/learnhub/internal/auth/domain"
	"github.com/aussiebroadwan/learnhub/internal/auth/store"
	"github.com/stretchr/testify/require"
)

// Clock is a settable time source for drivers under test.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{now: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SessionsFactory returns a fresh driver bound to clock, plus the id of an
// identity sessions may reference (some drivers enforce the foreign key).
type SessionsFactory func(t *testing.T, clock *Clock) (store.Sessions, []int64)

// RevocationsFactory returns a fresh driver bound to clock.
type RevocationsFactory func(t *testing.T, clock *Clock) store.Revocations

// RunSessions exercises the store.Sessions contract.
func RunSessions(t *testing.T, factory SessionsFactory) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	newSession := func(identityID int64, ttl time.Duration, created time.Time) domain.Session {
		return domain.Session{
			IdentityID: identityID,
			Email:      "user@example.com",
			Role:       domain.RoleEmployer,
			OriginAddr: "198.51.100.7",
			UserAgent:  "test",
			CreatedAt:  created,
			ExpiresAt:  created.Add(ttl),
		}
	}

	t.Run("create assigns distinct ids", func(t *testing.T) {
		clock := NewClock(start)
		s, ids := factory(t, clock)

		a, err := s.CreateSession(ctx, newSession(ids[0], time.Hour, start))
		require.NoError(t, err)
		b, err := s.CreateSession(ctx, newSession(ids[0], time.Hour, start))
		require.NoError(t, err)

		require.Len(t, a.ID, 43)
		require.NotEqual(t, a.ID, b.ID)

		got, err := s.GetSession(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, a, got)
	})

	t.Run("validity follows expiry and revocation", func(t *testing.T) {
		clock := NewClock(start)
		s, ids := factory(t, clock)

		sess, err := s.CreateSession(ctx, newSession(ids[0], time.Hour, start))
		require.NoError(t, err)

		ok, err := s.IsSessionValid(ctx, sess.ID)
		require.NoError(t, err)
		require.True(t, ok)

		clock.Advance(time.Hour)
		ok, err = s.IsSessionValid(ctx, sess.ID)
		require.NoError(t, err)
		require.False(t, ok, "session is dead once now reaches expiry")

		clock.Advance(-time.Minute)
		require.NoError(t, s.InvalidateSession(ctx, sess.ID))
		require.NoError(t, s.InvalidateSession(ctx, sess.ID), "invalidate is idempotent")

		ok, err = s.IsSessionValid(ctx, sess.ID)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("unknown ids are not errors", func(t *testing.T) {
		s, _ := factory(t, NewClock(start))

		ok, err := s.IsSessionValid(ctx, "nope")
		require.NoError(t, err)
		require.False(t, ok)
		require.NoError(t, s.InvalidateSession(ctx, "nope"))

		_, err = s.GetSession(ctx, "nope")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("list returns live sessions newest first", func(t *testing.T) {
		clock := NewClock(start)
		s, ids := factory(t, clock)

		old, err := s.CreateSession(ctx, newSession(ids[0], time.Hour, start.Add(-2*time.Minute)))
		require.NoError(t, err)
		recent, err := s.CreateSession(ctx, newSession(ids[0], time.Hour, start.Add(-time.Minute)))
		require.NoError(t, err)
		dead, err := s.CreateSession(ctx, newSession(ids[0], time.Hour, start))
		require.NoError(t, err)
		require.NoError(t, s.InvalidateSession(ctx, dead.ID))
		_, err = s.CreateSession(ctx, newSession(ids[1], time.Hour, start))
		require.NoError(t, err)

		list, err := s.ListIdentitySessions(ctx, ids[0])
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Equal(t, recent.ID, list[0].ID)
		require.Equal(t, old.ID, list[1].ID)
	})

	t.Run("invalidate identity sessions", func(t *testing.T) {
		clock := NewClock(start)
		s, ids := factory(t, clock)

		a, err := s.CreateSession(ctx, newSession(ids[0], time.Hour, start))
		require.NoError(t, err)
		_, err = s.CreateSession(ctx, newSession(ids[0], time.Hour, start))
		require.NoError(t, err)
		other, err := s.CreateSession(ctx, newSession(ids[1], time.Hour, start))
		require.NoError(t, err)
		require.NoError(t, s.InvalidateSession(ctx, a.ID))

		n, err := s.InvalidateIdentitySessions(ctx, ids[0])
		require.NoError(t, err)
		require.Equal(t, int64(1), n)

		list, err := s.ListIdentitySessions(ctx, ids[0])
		require.NoError(t, err)
		require.Empty(t, list)

		ok, err := s.IsSessionValid(ctx, other.ID)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("sweep removes only expired sessions", func(t *testing.T) {
		clock := NewClock(start)
		s, ids := factory(t, clock)

		short, err := s.CreateSession(ctx, newSession(ids[0], time.Minute, start))
		require.NoError(t, err)
		long, err := s.CreateSession(ctx, newSession(ids[0], time.Hour, start))
		require.NoError(t, err)

		clock.Advance(time.Minute)
		n, err := s.DeleteExpiredSessions(ctx)
		require.NoError(t, err)
		require.Equal(t, int64(1), n)

		_, err = s.GetSession(ctx, short.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.GetSession(ctx, long.ID)
		require.NoError(t, err)
	})
}

// RunRevocations exercises the store.Revocations contract.
func RunRevocations(t *testing.T, factory RevocationsFactory) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("revoke is insert-if-absent", func(t *testing.T) {
		r := factory(t, NewClock(start))

		ok, err := r.IsTokenRevoked(ctx, "jti-1")
		require.NoError(t, err)
		require.False(t, ok)

		inserted, err := r.RevokeToken(ctx, "jti-1", start.Add(time.Hour))
		require.NoError(t, err)
		require.True(t, inserted)

		inserted, err = r.RevokeToken(ctx, "jti-1", start.Add(time.Hour))
		require.NoError(t, err)
		require.False(t, inserted)

		ok, err = r.IsTokenRevoked(ctx, "jti-1")
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("concurrent revokes have one winner", func(t *testing.T) {
		r := factory(t, NewClock(start))

		const workers = 50
		var (
			wins atomic.Int32
			wg   sync.WaitGroup
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				inserted, err := r.RevokeToken(ctx, "contended", start.Add(time.Hour))
				if err == nil && inserted {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		require.Equal(t, int32(1), wins.Load())
	})

	t.Run("sweep removes expired entries", func(t *testing.T) {
		clock := NewClock(start)
		r := factory(t, clock)

		_, err := r.RevokeToken(ctx, "short", start.Add(time.Minute))
		require.NoError(t, err)
		_, err = r.RevokeToken(ctx, "long", start.Add(time.Hour))
		require.NoError(t, err)

		clock.Advance(time.Minute)
		n, err := r.DeleteExpiredRevocations(ctx)
		require.NoError(t, err)
		require.Equal(t, int64(1), n)

		ok, err := r.IsTokenRevoked(ctx, "short")
		require.NoError(t, err)
		require.False(t, ok)
		ok, err = r.IsTokenRevoked(ctx, "long")
		require.NoError(t, err)
		require.True(t, ok)
	})
}
