package authsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ErrNoRefreshToken is returned when the access token expired and the
// session has nothing to rotate with.
var ErrNoRefreshToken = errors.New("authsdk: access token expired and no refresh token available")

// Session holds a token pair and rotates it before the access token expires.
// It is safe for concurrent use; concurrent callers share one rotation.
type Session struct {
	client *Client

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	identity     IdentityResponse
}

func newSession(c *Client, tok *TokenResponse) *Session {
	s := &Session{client: c}
	s.apply(tok)
	return s
}

func (s *Session) apply(tok *TokenResponse) {
	s.accessToken = tok.AccessToken
	s.refreshToken = tok.RefreshToken
	s.expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - s.client.RefreshSkew)
	if tok.Identity.ID != 0 {
		s.identity = tok.Identity
	}
}

// Identity returns the identity reported at login or last rotation.
func (s *Session) Identity() IdentityResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// AccessToken returns the current access token without checking expiration.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// Rotate exchanges the refresh token for a new pair now.
func (s *Session) Rotate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotateLocked(ctx)
}

func (s *Session) rotateLocked(ctx context.Context) error {
	if s.refreshToken == "" {
		return ErrNoRefreshToken
	}
	tok, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}
	s.apply(tok)
	return nil
}

// validToken returns an access token, rotating first if it is about to
// expire.
func (s *Session) validToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have rotated while we waited.
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}
	if err := s.rotateLocked(ctx); err != nil {
		return "", err
	}
	return s.accessToken, nil
}

func (s *Session) call(ctx context.Context, method, path string, in any, wantStatus int, out any) error {
	token, err := s.validToken(ctx)
	if err != nil {
		return err
	}
	return s.client.call(ctx, method, path, token, in, wantStatus, out)
}

// Me returns the identity the access token authenticates.
func (s *Session) Me(ctx context.Context) (*IdentityResponse, error) {
	var id IdentityResponse
	if err := s.call(ctx, http.MethodGet, "/v1/auth/me", nil, http.StatusOK, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// Sessions lists the caller's live sessions, newest first.
func (s *Session) Sessions(ctx context.Context) ([]SessionResponse, error) {
	var list SessionListResponse
	if err := s.call(ctx, http.MethodGet, "/v1/auth/sessions", nil, http.StatusOK, &list); err != nil {
		return nil, err
	}
	return list.Sessions, nil
}

// RevokeSession ends one of the caller's own sessions.
func (s *Session) RevokeSession(ctx context.Context, sessionID string) error {
	return s.call(ctx, http.MethodDelete, "/v1/auth/sessions/"+sessionID, nil, http.StatusNoContent, nil)
}

// ChangeRole sets another account's role. Admin only.
func (s *Session) ChangeRole(ctx context.Context, accountID int64, role string) (*AccountResponse, error) {
	var acc AccountResponse
	path := "/v1/accounts/" + strconv.FormatInt(accountID, 10) + "/role"
	if err := s.call(ctx, http.MethodPatch, path, ChangeRoleRequest{Role: role}, http.StatusOK, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// Deactivate disables another account and ends its sessions. Admin only.
func (s *Session) Deactivate(ctx context.Context, accountID int64) (*AccountResponse, error) {
	var acc AccountResponse
	path := "/v1/accounts/" + strconv.FormatInt(accountID, 10) + "/deactivate"
	if err := s.call(ctx, http.MethodPost, path, nil, http.StatusOK, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// DeleteAccount removes another account. Admin only.
func (s *Session) DeleteAccount(ctx context.Context, accountID int64) error {
	return s.call(ctx, http.MethodDelete, "/v1/accounts/"+strconv.FormatInt(accountID, 10), nil, http.StatusNoContent, nil)
}

// Logout revokes the refresh token (and with it the paired access token)
// and ends the session. The Session is unusable afterwards.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	token := s.refreshToken
	if token == "" {
		token = s.accessToken
	}
	s.accessToken, s.refreshToken = "", ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()

	if token == "" {
		return nil
	}
	return s.client.Logout(ctx, token)
}
