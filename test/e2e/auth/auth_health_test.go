//go:build e2e

package auth_test

import (
	"testing"
)

// TestReadyzEndpoint verifies the readiness check reports the database.
func TestReadyzEndpoint(t *testing.T) {
	client := setupAuthContainer(t)

	health, err := client.Health(t.Context())
	assertHealthy(t, health, err)

	t.Logf("Readyz endpoint is healthy: %v", health.Checks)
}
