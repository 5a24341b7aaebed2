package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigReadsPrefixedVariables(t *testing.T) {
	t.Setenv("ATRIUM_SESSION_SECRET", "session-secret")
	t.Setenv("ATRIUM_CSRF_SECRET", "csrf-secret")
	t.Setenv("ATRIUM_APP_ADDR", ":9999")
	t.Setenv("ATRIUM_UPSTREAM_BASE_URL", "https://platform.internal/api")
	t.Setenv("ATRIUM_APPROVALS_CACHE_TTL", "90s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "session-secret", cfg.SessionSecret)
	require.Equal(t, "csrf-secret", cfg.CSRFSecret)
	require.Equal(t, ":9999", cfg.AppAddr)
	require.Equal(t, "https://platform.internal/api", cfg.UpstreamBaseURL)
	require.Equal(t, 90*time.Second, cfg.ApprovalsCacheTTL)
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("ATRIUM_SESSION_SECRET", "")
	t.Setenv("ATRIUM_CSRF_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
}
