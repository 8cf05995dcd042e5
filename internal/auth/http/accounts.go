package http

import (
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/learnhub/internal/auth/domain"
	"github.com/aussiebroadwan/learnhub/internal/auth/service"
	"github.com/aussiebroadwan/learnhub/pkg/authsdk"
	"github.com/aussiebroadwan/learnhub/pkg/httpx"
)

// AccountsHandler serves the admin-only account endpoints.
type AccountsHandler struct {
	Accounts *service.AccountService
}

// HandleChangeRole handles PATCH /v1/accounts/{id}/role
//
//	@Summary		Change an account's role
//	@Description	Admin only. The caller must outrank the target and cannot demote themselves.
//	@Description	The target's sessions are ended so the new role applies immediately.
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int							true	"Account id"
//	@Param			request	body		authsdk.ChangeRoleRequest	true	"New role"
//	@Success		200		{object}	authsdk.AccountResponse
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		401		{object}	authsdk.ErrorResponse
//	@Failure		403		{object}	authsdk.ErrorResponse
//	@Failure		404		{object}	authsdk.ErrorResponse
//	@Router			/v1/accounts/{id}/role [patch].
func (h *AccountsHandler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, targetID, ok := h.parse(w, r)
	if !ok {
		return
	}

	var req authsdk.ChangeRoleRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		authsdk.ErrInvalidRequest.WithDescription("unknown role").WriteError(w)
		return
	}

	updated, err := h.Accounts.ChangeRole(r.Context(), actor, targetID, role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, accountResponse(updated))
}

// HandleDeactivate handles POST /v1/accounts/{id}/deactivate
//
//	@Summary		Deactivate an account
//	@Description	Admin only. Blocks future logins and ends the target's sessions. Self-deactivation is refused.
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		int	true	"Account id"
//	@Success		200	{object}	authsdk.AccountResponse
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		403	{object}	authsdk.ErrorResponse
//	@Failure		404	{object}	authsdk.ErrorResponse
//	@Router			/v1/accounts/{id}/deactivate [post].
func (h *AccountsHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	actor, targetID, ok := h.parse(w, r)
	if !ok {
		return
	}

	updated, err := h.Accounts.Deactivate(r.Context(), actor, targetID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, accountResponse(updated))
}

// HandleDelete handles DELETE /v1/accounts/{id}
//
//	@Summary		Delete an account
//	@Description	Admin only. Self-deletion is refused.
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Account id"
//	@Success		204
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		403	{object}	authsdk.ErrorResponse
//	@Failure		404	{object}	authsdk.ErrorResponse
//	@Router			/v1/accounts/{id} [delete].
func (h *AccountsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, targetID, ok := h.parse(w, r)
	if !ok {
		return
	}

	if err := h.Accounts.Delete(r.Context(), actor, targetID); err != nil {
		writeError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountsHandler) parse(w http.ResponseWriter, r *http.Request) (domain.Identity, int64, bool) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, r, service.ErrUnauthenticated)
		return domain.Identity{}, 0, false
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		authsdk.ErrInvalidRequest.WithDescription("account id must be a positive integer").WriteError(w)
		return domain.Identity{}, 0, false
	}
	return p.Identity, id, true
}

func accountResponse(id domain.Identity) authsdk.AccountResponse {
	return authsdk.AccountResponse{
		ID:     id.ID,
		Email:  id.Email,
		Role:   id.Role.String(),
		Active: id.Active,
	}
}
