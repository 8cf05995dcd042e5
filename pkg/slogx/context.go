package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

type holderKey struct{}

// loggerHolder lets the access-log middleware see a logger that was enriched
// deeper in the handler chain.
type loggerHolder struct {
	logger *slog.Logger
}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// WithRequestID tags every line of the request logger with reqID.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	l := FromContext(ctx)
	return WithContext(ctx, l.With("req_id", reqID))
}

// WithIdentity enriches the request logger once the caller is authenticated.
// The enriched logger also writes the request's access log line.
func WithIdentity(ctx context.Context, identityID int64, role string) context.Context {
	l := FromContext(ctx).With("identity_id", identityID, "role", role)
	if h, ok := ctx.Value(holderKey{}).(*loggerHolder); ok {
		h.logger = l
	}
	return WithContext(ctx, l)
}

func withHolder(ctx context.Context, h *loggerHolder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}
