package http

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/learnhub/internal/auth/domain"
	"github.com/aussiebroadwan/learnhub/internal/auth/service"
	"github.com/aussiebroadwan/learnhub/pkg/httpx"
	"github.com/aussiebroadwan/learnhub/pkg/slogx"
)

type principalKey struct{}

func withPrincipal(ctx context.Context, p service.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// principalFrom returns the principal stored by the authenticate middleware.
func principalFrom(ctx context.Context) (service.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(service.Principal)
	return p, ok
}

// authenticate requires a valid bearer access token and stores the
// principal in the request context.
func authenticate(gate *service.Gate) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := gate.AuthenticateSession(r.Context(), httpx.BearerToken(r))
			if err != nil {
				writeError(w, r, err)
				return
			}

			ctx := withPrincipal(r.Context(), p)
			ctx = httpx.WithIdentityID(ctx, p.ID)
			ctx = slogx.WithIdentity(ctx, p.ID, p.Role.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireRole must run after authenticate.
func requireRole(roles ...domain.Role) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := principalFrom(r.Context())
			if !ok {
				writeError(w, r, service.ErrUnauthenticated)
				return
			}
			if err := service.RequireRole(p.Identity, roles...); err != nil {
				slogx.FromContext(r.Context()).Warn("role check failed", "path", r.URL.Path)
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
