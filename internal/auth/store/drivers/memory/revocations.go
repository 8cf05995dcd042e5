package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/learnhub/internal/auth/store"
)

// Revocations is a store.Revocations backed by a map guarded by one RWMutex.
// The insert-if-absent in RevokeToken happens under the write lock.
type Revocations struct {
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]time.Time
}

var _ store.Revocations = (*Revocations)(nil)

func NewRevocations(opts ...Option) *Revocations {
	o := buildOptions(opts)
	return &Revocations{
		now:     o.now,
		entries: make(map[string]time.Time),
	}
}

func (r *Revocations) RevokeToken(_ context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[tokenID]; exists {
		return false, nil
	}
	r.entries[tokenID] = expiresAt
	return true, nil
}

func (r *Revocations) IsTokenRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[tokenID]
	return ok, nil
}

func (r *Revocations) DeleteExpiredRevocations(_ context.Context) (int64, error) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, exp := range r.entries {
		if !now.Before(exp) {
			delete(r.entries, id)
			n++
		}
	}
	return n, nil
}
