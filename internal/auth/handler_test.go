package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/atrium-console/atrium/internal/authz"
	"github.com/atrium-console/atrium/internal/gateway"
	"github.com/atrium-console/atrium/internal/shared"
	"github.com/atrium-console/atrium/internal/tenant"
)

type stubIdentityUpstream struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
}

func (u *stubIdentityUpstream) Dispatch(ctx context.Context, req gateway.Request) (*gateway.Response, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	if u.err != nil {
		return nil, u.err
	}
	return &gateway.Response{Status: http.StatusOK, Body: []byte(u.response)}, nil
}

func newTestHandler(t *testing.T, upstream *stubIdentityUpstream) (*Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := shared.NewSessionManager(client, "atrium_session", "test-secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	store := tenant.NewRedisStore(client)
	service := NewService(upstream, Breakglass{}, slog.Default())
	return NewHandler(slog.Default(), service, sessions, csrf, store), sessions
}

func authenticatedRequest(t *testing.T, sessions *shared.SessionManager, p *authz.Principal, method, path string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	sess, err := sessions.Load(req.Context(), req)
	require.NoError(t, err)
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	sess.SetPrincipal(raw)

	ctx := shared.ContextWithSession(req.Context(), sess)
	ctx = authz.ContextWithPrincipal(ctx, p)
	return req.WithContext(ctx)
}

func TestRefreshReplacesThePrincipalSnapshot(t *testing.T) {
	upstream := &stubIdentityUpstream{
		response: `{"user":{"id":7,"company_id":42,"role":{"slug":"admin","level":20,"permissions":["users.view","users.edit"]}}}`,
	}
	handler, sessions := newTestHandler(t, upstream)
	router := chi.NewRouter()
	handler.MountRoutes(router)

	stale := &authz.Principal{ID: 7, TenantID: 42, Role: authz.Role{Slug: "editor", Level: 10}}
	req := authenticatedRequest(t, sessions, stale, http.MethodPost, "/api/session/refresh")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, upstream.calls)

	var view struct {
		User struct {
			Role  string `json:"role"`
			Level int    `json:"level"`
		} `json:"user"`
		ActiveTenantID *int64 `json:"active_tenant_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "admin", view.User.Role)
	require.Equal(t, 20, view.User.Level)
	require.NotNil(t, view.ActiveTenantID)
	require.EqualValues(t, 42, *view.ActiveTenantID)

	// The stored snapshot was replaced wholesale.
	sess := shared.SessionFromContext(req.Context())
	var stored authz.Principal
	require.NoError(t, json.Unmarshal(sess.Principal(), &stored))
	require.Equal(t, authz.RoleSlug("admin"), stored.Role.Slug)
	require.Equal(t, 20, stored.Role.Level)
}

func TestRefreshWithoutIdentityIsUnauthorized(t *testing.T) {
	handler, _ := newTestHandler(t, &stubIdentityUpstream{response: `{}`})
	router := chi.NewRouter()
	handler.MountRoutes(router)

	req := httptest.NewRequest(http.MethodPost, "/api/session/refresh", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshDropsAVanishedIdentity(t *testing.T) {
	// The upstream no longer knows the user: the snapshot must be cleared,
	// not kept stale.
	upstream := &stubIdentityUpstream{response: `{"user":{"id":0}}`}
	handler, sessions := newTestHandler(t, upstream)
	router := chi.NewRouter()
	handler.MountRoutes(router)

	p := &authz.Principal{ID: 7, TenantID: 42, Role: authz.Role{Slug: "editor", Level: 10}}
	req := authenticatedRequest(t, sessions, p, http.MethodPost, "/api/session/refresh")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	sess := shared.SessionFromContext(req.Context())
	require.False(t, sess.Authenticated())
}
