package jwtx

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants. Services override them through config.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens. It
	// also bounds the session the pair belongs to.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenKind distinguishes the two halves of a token pair. Both share the
// same claim layout and are verified by the same key.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Valid reports whether k is a known token kind.
func (k TokenKind) Valid() bool {
	return k == KindAccess || k == KindRefresh
}

// Claims is the payload carried by both access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims

	// UID is the numeric identity id. Subject carries the same value in
	// decimal form for consumers that only read registered claims.
	UID int64 `json:"uid"`

	// Email of the identity at issuance time.
	Email string `json:"email"`

	// Role of the identity at issuance time.
	Role string `json:"role"`

	// Session ID
	SID string `json:"sid"`

	// Kind is either "access" or "refresh".
	Kind TokenKind `json:"typ"`

	// PairID is set on refresh tokens only and names the jti of the access
	// token minted alongside it, so rotation and logout can revoke both.
	PairID string `json:"pti,omitempty"`
}

// Subject identifies who a token is being minted for.
type Subject struct {
	UID   int64
	Email string
	Role  string
	SID   string
}

// NewClaims builds claims for one token of a pair. The caller supplies the
// token id so it can be recorded alongside the pair.
func NewClaims(kind TokenKind, sub Subject, jti, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(sub.UID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
		UID:   sub.UID,
		Email: sub.Email,
		Role:  sub.Role,
		SID:   sub.SID,
		Kind:  kind,
	}
}

// checkRequired rejects tokens that verify cryptographically but lack the
// claims every consumer depends on.
func (c *Claims) checkRequired() error {
	switch {
	case c.UID <= 0:
		return ErrInvalidClaim
	case c.Subject != strconv.FormatInt(c.UID, 10):
		return ErrInvalidClaim
	case c.Email == "", c.Role == "", c.SID == "", c.ID == "":
		return ErrInvalidClaim
	case !c.Kind.Valid():
		return ErrInvalidClaim
	case c.IssuedAt == nil, c.ExpiresAt == nil:
		return ErrInvalidClaim
	}
	return nil
}
