package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/aussiebroadwan/learnhub/internal/auth/domain"
	"github.com/aussiebroadwan/learnhub/internal/auth/store"
)

// Sessions is a store.Sessions backed by a map guarded by one RWMutex.
type Sessions struct {
	now func() time.Time

	mu   sync.RWMutex
	byID map[string]domain.Session
}

var _ store.Sessions = (*Sessions)(nil)

func NewSessions(opts ...Option) *Sessions {
	o := buildOptions(opts)
	return &Sessions{
		now:  o.now,
		byID: make(map[string]domain.Session),
	}
}

func (s *Sessions) CreateSession(_ context.Context, sess domain.Session) (domain.Session, error) {
	if sess.ID == "" {
		id, err := store.NewSessionID()
		if err != nil {
			return domain.Session{}, fmt.Errorf("create session: %w", err)
		}
		sess.ID = id
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[sess.ID]; exists {
		return domain.Session{}, store.ErrAlreadyExists
	}
	s.byID[sess.ID] = sess
	return sess, nil
}

func (s *Sessions) GetSession(_ context.Context, id string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.byID[id]
	if !ok {
		return domain.Session{}, store.ErrNotFound
	}
	return sess, nil
}

func (s *Sessions) IsSessionValid(_ context.Context, id string) (bool, error) {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.byID[id]
	return ok && sess.IsValid(now), nil
}

func (s *Sessions) ListIdentitySessions(_ context.Context, identityID int64) ([]domain.Session, error) {
	now := s.now()

	s.mu.RLock()
	var out []domain.Session
	for _, sess := range s.byID {
		if sess.IdentityID == identityID && sess.IsValid(now) {
			out = append(out, sess)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.Session) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *Sessions) InvalidateSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.byID[id]; ok && !sess.Revoked {
		sess.Revoked = true
		s.byID[id] = sess
	}
	return nil
}

func (s *Sessions) InvalidateIdentitySessions(_ context.Context, identityID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, sess := range s.byID {
		if sess.IdentityID == identityID && !sess.Revoked {
			sess.Revoked = true
			s.byID[id] = sess
			n++
		}
	}
	return n, nil
}

func (s *Sessions) DeleteExpiredSessions(_ context.Context) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, sess := range s.byID {
		if !now.Before(sess.ExpiresAt) {
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}
