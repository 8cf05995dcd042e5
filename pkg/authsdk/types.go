package authsdk

import "time"

// ErrorResponse is the error envelope every endpoint uses.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest is the optional body of POST /v1/auth/logout. When absent
// the bearer token from the Authorization header is used.
type LogoutRequest struct {
	Token string `json:"token"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int `json:"expires_in"`

	// RefreshExpiresIn is the refresh token lifetime in seconds.
	RefreshExpiresIn int `json:"refresh_expires_in"`

	Identity IdentityResponse `json:"identity"`
}

// IdentityResponse describes an authenticated principal.
type IdentityResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// StatusResponse is returned by GET /v1/auth/status. Identity is nil when
// the caller is anonymous.
type StatusResponse struct {
	Authenticated bool              `json:"authenticated"`
	Identity      *IdentityResponse `json:"identity,omitempty"`
}

// SessionResponse describes one login session.
type SessionResponse struct {
	ID         string    `json:"id"`
	OriginAddr string    `json:"origin_addr,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`

	// Current marks the session the request was made with.
	Current bool `json:"current"`
}

// SessionListResponse is returned by GET /v1/auth/sessions.
type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

// ChangeRoleRequest is the body of PATCH /v1/accounts/{id}/role.
type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// AccountResponse is returned by the account administration endpoints.
type AccountResponse struct {
	ID     int64  `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}
