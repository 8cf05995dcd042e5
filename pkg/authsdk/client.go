package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the auth service. It performs unauthenticated calls
// directly and hands out Sessions for everything else.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// RefreshSkew is how long before access token expiry a Session rotates.
	RefreshSkew time.Duration
}

// NewClient creates a client with a 10 second request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:     strings.TrimSuffix(baseURL, "/"),
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
		RefreshSkew: 30 * time.Second,
	}
}

// Login exchanges credentials for a token pair and wraps it in a Session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var tok TokenResponse
	err := c.call(ctx, http.MethodPost, "/v1/auth/login", "", LoginRequest{Email: email, Password: password}, http.StatusOK, &tok)
	if err != nil {
		return nil, err
	}
	return newSession(c, &tok), nil
}

// Refresh rotates a refresh token. The old pair is dead afterwards.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var tok TokenResponse
	err := c.call(ctx, http.MethodPost, "/v1/auth/refresh", "", RefreshRequest{RefreshToken: refreshToken}, http.StatusOK, &tok)
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

// Logout revokes token (access or refresh) and ends its session. The
// service answers 200 even for unknown tokens.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.call(ctx, http.MethodPost, "/v1/auth/logout", "", LogoutRequest{Token: token}, http.StatusOK, nil)
}

// Status reports whether accessToken (which may be empty) authenticates.
func (c *Client) Status(ctx context.Context, accessToken string) (*StatusResponse, error) {
	var st StatusResponse
	if err := c.call(ctx, http.MethodGet, "/v1/auth/status", accessToken, nil, http.StatusOK, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Health calls /readyz.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var h HealthResponse
	if err := c.call(ctx, http.MethodGet, "/readyz", "", nil, http.StatusOK, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// NewSessionFromTokens resumes a session from a stored pair. expiresIn is
// the access token's remaining lifetime.
func (c *Client) NewSessionFromTokens(accessToken, refreshToken string, expiresIn time.Duration) *Session {
	return &Session{
		client:       c,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		expiresAt:    time.Now().Add(expiresIn - c.RefreshSkew),
	}
}

// call performs one JSON round trip. A nil in skips the body, a nil out
// discards the response body.
func (c *Client) call(ctx context.Context, method, path, bearer string, in any, wantStatus int, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != wantStatus {
		if perr := parseErrorResponse(resp, raw); perr != nil {
			return perr
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
