package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/learnhub/internal/auth/service"
	"github.com/aussiebroadwan/learnhub/pkg/authsdk"
	"github.com/aussiebroadwan/learnhub/pkg/httpx"
)

// SessionsHandler lets an identity see and end its own sessions.
type SessionsHandler struct {
	Gate *service.Gate
}

// HandleList handles GET /v1/auth/sessions
//
//	@Summary		List own sessions
//	@Description	Returns the caller's live sessions, newest first. The session of the presented token is marked current.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.SessionListResponse
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/sessions [get].
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, r, service.ErrUnauthenticated)
		return
	}

	sessions, err := h.Gate.ListSessions(r.Context(), p.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := authsdk.SessionListResponse{Sessions: make([]authsdk.SessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, authsdk.SessionResponse{
			ID:         s.ID,
			OriginAddr: s.OriginAddr,
			UserAgent:  s.UserAgent,
			CreatedAt:  s.CreatedAt,
			ExpiresAt:  s.ExpiresAt,
			Current:    s.ID == p.SessionID,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleRevoke handles DELETE /v1/auth/sessions/{id}
//
//	@Summary		End one of your sessions
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Session id"
//	@Success		204
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		404	{object}	authsdk.ErrorResponse	"unknown session or not yours"
//	@Router			/v1/auth/sessions/{id} [delete].
func (h *SessionsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, r, service.ErrUnauthenticated)
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		authsdk.ErrInvalidRequest.WithDescription("session id is required").WriteError(w)
		return
	}

	if err := h.Gate.RevokeSession(r.Context(), p.ID, id); err != nil {
		writeError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
