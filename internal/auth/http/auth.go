package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/learnhub/internal/auth/domain"
	"github.com/aussiebroadwan/learnhub/internal/auth/service"
	"github.com/aussiebroadwan/learnhub/pkg/authsdk"
	"github.com/aussiebroadwan/learnhub/pkg/httpx"
)

const maxUserAgentLen = 256

// AuthHandler serves the login, refresh, logout, me and status endpoints.
type AuthHandler struct {
	Gate       *service.Gate
	TrustProxy bool
}

// HandleLogin handles POST /v1/auth/login
//
//	@Summary		Log in
//	@Description	Verifies email and password, opens a session and returns an access/refresh token pair.
//	@Description	Unknown email, wrong password and deactivated accounts produce the same error.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_credentials"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ua := r.UserAgent()
	if len(ua) > maxUserAgentLen {
		ua = ua[:maxUserAgentLen]
	}

	res, err := h.Gate.Login(r.Context(), service.LoginRequest{
		Email:      req.Email,
		Password:   req.Password,
		OriginAddr: httpx.ClientIP(r, h.TrustProxy),
		UserAgent:  ua,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, h.tokenResponse(res))
}

// HandleRefresh handles POST /v1/auth/refresh
//
//	@Summary		Rotate a refresh token
//	@Description	Exchanges a refresh token for a new pair bound to the same session. Each refresh token works once;
//	@Description	presenting it again, or racing it, fails with invalid_token.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_token or token_expired"
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		authsdk.ErrInvalidRequest.WithDescription("refresh_token is required").WriteError(w)
		return
	}

	res, err := h.Gate.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, h.tokenResponse(res))
}

// HandleLogout handles POST /v1/auth/logout
//
//	@Summary		Log out
//	@Description	Revokes the given token (body "token", else the bearer token) and ends its session.
//	@Description	Expired tokens are accepted. Always returns 200 so the endpoint cannot be used to probe tokens.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LogoutRequest	false	"Token to revoke"
//	@Success		200		{object}	authsdk.StatusResponse
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	// An unreadable body falls back to the bearer token.
	var req authsdk.LogoutRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		req = authsdk.LogoutRequest{}
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		token = httpx.BearerToken(r)
	}
	h.Gate.Logout(r.Context(), token)

	httpx.WriteJSON(w, http.StatusOK, authsdk.StatusResponse{Authenticated: false})
}

// HandleMe handles GET /v1/auth/me
//
//	@Summary		Current identity
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.IdentityResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token or token_expired"
//	@Router			/v1/auth/me [get].
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, r, service.ErrUnauthenticated)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, identityResponse(p.Identity))
}

// HandleStatus handles GET /v1/auth/status
//
//	@Summary		Authentication status
//	@Description	Reports whether the bearer token, if any, is valid. Never fails on a bad token.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.StatusResponse
//	@Router			/v1/auth/status [get].
func (h *AuthHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := authsdk.StatusResponse{}
	if identity, ok := h.Gate.AuthenticateOptional(r.Context(), httpx.BearerToken(r)); ok {
		id := identityResponse(identity)
		resp.Authenticated = true
		resp.Identity = &id
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) tokenResponse(res service.LoginResult) authsdk.TokenResponse {
	now := h.Gate.Tokens.Now()
	return authsdk.TokenResponse{
		AccessToken:      res.Tokens.AccessToken,
		RefreshToken:     res.Tokens.RefreshToken,
		TokenType:        "Bearer",
		ExpiresIn:        seconds(res.Tokens.AccessExpiresAt.Sub(now)),
		RefreshExpiresIn: seconds(res.Tokens.RefreshExpiresAt.Sub(now)),
		Identity:         identityResponse(res.Identity),
	}
}

func identityResponse(id domain.Identity) authsdk.IdentityResponse {
	return authsdk.IdentityResponse{
		ID:    id.ID,
		Email: id.Email,
		Role:  id.Role.String(),
	}
}

func seconds(d time.Duration) int {
	return max(int(d/time.Second), 0)
}
