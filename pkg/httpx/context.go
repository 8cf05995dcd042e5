package httpx

import "context"

type ctxKey string

const (
	CtxKeyIdentityID ctxKey = "identity_id"
)

// WithIdentityID records the authenticated identity for rate limiting and
// other identity-keyed middleware.
func WithIdentityID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, CtxKeyIdentityID, id)
}

// IdentityIDFromContext returns the identity id stored by WithIdentityID.
func IdentityIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(CtxKeyIdentityID).(int64)
	return id, ok && id > 0
}
