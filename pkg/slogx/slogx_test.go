package slogx_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/learnhub/pkg/idx"
	"github.com/aussiebroadwan/learnhub/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func jsonLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &m))
	return m
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, slogx.ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, slogx.ParseLevel("warning"))
	require.Equal(t, slog.LevelError, slogx.ParseLevel(" error "))
	require.Equal(t, slog.LevelInfo, slogx.ParseLevel("nonsense"))
}

func TestNewWritesBaseAttributes(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	l := slogx.New(slogx.Config{Service: "auth", Version: "v1", Env: "test", Output: &buf})
	l.Info("hello")

	m := lastLine(t, &buf)
	require.Equal(t, "auth", m["service"])
	require.Equal(t, "v1", m["version"])
	require.Equal(t, "test", m["env"])
}

func TestHTTPMiddlewareGeneratesRequestID(t *testing.T) {
	var buf bytes.Buffer
	h := slogx.HTTPMiddleware(jsonLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

	reqID := rec.Header().Get(slogx.HeaderRequestID)
	_, err := idx.Parse(reqID)
	require.NoError(t, err)

	m := lastLine(t, &buf)
	require.Equal(t, "http_request", m["msg"])
	require.Equal(t, reqID, m["req_id"])
	require.EqualValues(t, http.StatusTeapot, m["status"])
}

func TestHTTPMiddlewareKeepsClientRequestID(t *testing.T) {
	var buf bytes.Buffer
	h := slogx.HTTPMiddleware(jsonLogger(&buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	clientID := idx.New().String()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(slogx.HeaderRequestID, clientID)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, clientID, rec.Header().Get(slogx.HeaderRequestID))
	require.Equal(t, clientID, lastLine(t, &buf)["req_id"])

	for _, bad := range []string{"abc-123", strings.Repeat("x", 200), "id\nforged=1"} {
		req.Header.Set(slogx.HeaderRequestID, bad)
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		got := rec.Header().Get(slogx.HeaderRequestID)
		require.NotEqual(t, bad, got)
		_, err := idx.Parse(got)
		require.NoError(t, err, "replacement for %q", bad)
	}
}

func TestWithIdentityReachesAccessLog(t *testing.T) {
	var buf bytes.Buffer
	h := slogx.HTTPMiddleware(jsonLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := slogx.WithIdentity(r.Context(), 7, "admin")
		slogx.FromContext(ctx).Info("inside")
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil))

	m := lastLine(t, &buf)
	require.Equal(t, "http_request", m["msg"])
	require.EqualValues(t, 7, m["identity_id"])
	require.Equal(t, "admin", m["role"])
}
