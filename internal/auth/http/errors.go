package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/learnhub/internal/auth/service"
	"github.com/aussiebroadwan/learnhub/pkg/authsdk"
	"github.com/aussiebroadwan/learnhub/pkg/httpx"
	"github.com/aussiebroadwan/learnhub/pkg/slogx"
)

// writeError maps service errors onto the authsdk envelope. Anything
// unrecognised is logged and reported as a server error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, httpx.ErrBadBody):
		authsdk.ErrInvalidRequest.WithDescription("malformed JSON body").WriteError(w)
	case errors.Is(err, service.ErrValidation):
		desc := strings.TrimPrefix(err.Error(), service.ErrValidation.Error()+": ")
		authsdk.ErrInvalidRequest.WithDescription(desc).WriteError(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrTokenExpired):
		httpx.SetBearerChallenge(w, authsdk.ErrorCodeInvalidToken, "token expired")
		authsdk.ErrTokenExpired.WriteError(w)
	case errors.Is(err, service.ErrUnauthenticated):
		httpx.SetBearerChallenge(w, authsdk.ErrorCodeInvalidToken, "")
		authsdk.ErrInvalidToken.WriteError(w)
	case errors.Is(err, service.ErrForbidden):
		authsdk.ErrForbidden.WriteError(w)
	case errors.Is(err, service.ErrNotFound):
		authsdk.ErrNotFound.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("request failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
	}
}
