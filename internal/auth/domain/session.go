package domain

import "time"

// Session is one login. Every token pair minted by login or refresh is bound
// to it through the sid claim. ExpiresAt is fixed at creation and bounds the
// whole refresh chain.
type Session struct {
	ID         string
	IdentityID int64
	Email      string
	Role       Role
	OriginAddr string
	UserAgent  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Revoked    bool
}

// IsValid reports whether the session can still authenticate requests.
func (s Session) IsValid(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}
