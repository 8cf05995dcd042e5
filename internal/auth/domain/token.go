package domain

import "time"

// TokenPair is what login and refresh hand back.
type TokenPair struct {
	AccessToken      string
	AccessTokenID    string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshTokenID   string
	RefreshExpiresAt time.Time
	SessionID        string
}
