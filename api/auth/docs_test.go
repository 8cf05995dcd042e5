package auth_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"

	"github.com/aussiebroadwan/learnhub/api/auth"
)

type document struct {
	Paths map[string]map[string]struct {
		Responses map[string]json.RawMessage `json:"responses"`
	} `json:"paths"`
}

func readDocument(t *testing.T) document {
	t.Helper()

	raw, err := swag.ReadDoc(auth.SwaggerInfo.InstanceName())
	require.NoError(t, err)

	var doc document
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestDocumentCoversRoutes(t *testing.T) {
	doc := readDocument(t)

	routes := map[string]string{
		"/livez":                       "get",
		"/readyz":                      "get",
		"/v1/auth/login":               "post",
		"/v1/auth/refresh":             "post",
		"/v1/auth/logout":              "post",
		"/v1/auth/me":                  "get",
		"/v1/auth/status":              "get",
		"/v1/auth/sessions":            "get",
		"/v1/auth/sessions/{id}":       "delete",
		"/v1/accounts/{id}":            "delete",
		"/v1/accounts/{id}/deactivate": "post",
		"/v1/accounts/{id}/role":       "patch",
	}
	for path, method := range routes {
		require.Contains(t, doc.Paths, path)
		require.Contains(t, doc.Paths[path], method, "path %s", path)
	}
}

func TestLogoutDocumentsOnlySuccess(t *testing.T) {
	doc := readDocument(t)

	responses := doc.Paths["/v1/auth/logout"]["post"].Responses
	require.Len(t, responses, 1)
	require.Contains(t, responses, "200")
}
