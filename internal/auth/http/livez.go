package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/learnhub/pkg/authsdk"
	"github.com/aussiebroadwan/learnhub/pkg/httpx"
)

// healthBody is shared by both probes. Uptime is reported to the second.
func healthBody(startTime time.Time, version, status string, checks map[string]string) authsdk.HealthResponse {
	return authsdk.HealthResponse{
		Status:  status,
		Uptime:  time.Since(startTime).Truncate(time.Second).String(),
		Version: version,
		Checks:  checks,
	}
}

// LivezHandler godoc
//
//	@Summary		Liveness probe
//	@Description	Answers 200 while the auth process can serve HTTP. Stores and the token issuer are not consulted, see /readyz.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, healthBody(startTime, version, "ok", nil))
	}
}
