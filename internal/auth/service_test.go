package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/atrium-console/atrium/internal/authz"
	"github.com/atrium-console/atrium/internal/gateway"
	"github.com/atrium-console/atrium/internal/shared"
)

type stubUpstream struct {
	res *gateway.Response
	err error
}

func (u *stubUpstream) Dispatch(ctx context.Context, req gateway.Request) (*gateway.Response, error) {
	if u.err != nil {
		return nil, u.err
	}
	return u.res, nil
}

func TestAuthenticateMapsUpstreamIdentity(t *testing.T) {
	upstream := &stubUpstream{res: &gateway.Response{
		Status: http.StatusOK,
		Body: []byte(`{"user":{"id":7,"company_id":42,"role":{"slug":"editor","level":10,"permissions":["posts.edit"]}}}`),
	}}
	svc := NewService(upstream, Breakglass{}, slog.Default())

	p, err := svc.Authenticate(context.Background(), Credentials{Email: "e@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.EqualValues(t, 7, p.ID)
	require.EqualValues(t, 42, p.TenantID)
	require.Equal(t, authz.RoleSlug("editor"), p.Role.Slug)
	require.Equal(t, 10, p.Role.Level)
	require.True(t, p.Role.Permissions.Has("posts.edit"))
}

func TestAuthenticateRejectionIsInvalidCredentials(t *testing.T) {
	svc := NewService(&stubUpstream{err: gateway.ErrSessionExpired}, Breakglass{}, slog.Default())
	_, err := svc.Authenticate(context.Background(), Credentials{Email: "e@example.com", Password: "secret123"})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestBreakglassWhenUpstreamUnreachable(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("override-me"), bcrypt.MinCost)
	require.NoError(t, err)

	svc := NewService(
		&stubUpstream{err: errors.New("dial tcp: connection refused")},
		Breakglass{Email: "ops@example.com", PasswordHash: string(hash)},
		slog.Default(),
	)

	p, err := svc.Authenticate(context.Background(), Credentials{Email: "ops@example.com", Password: "override-me"})
	require.NoError(t, err)
	require.True(t, authz.IsDeveloper(p))

	_, err = svc.Authenticate(context.Background(), Credentials{Email: "ops@example.com", Password: "wrong-password"})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), Credentials{Email: "other@example.com", Password: "override-me"})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestBreakglassDisabledWithoutHash(t *testing.T) {
	svc := NewService(&stubUpstream{err: errors.New("connection refused")}, Breakglass{}, slog.Default())
	_, err := svc.Authenticate(context.Background(), Credentials{Email: "ops@example.com", Password: "whatever1"})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRefreshRebuildsPrincipal(t *testing.T) {
	upstream := &stubUpstream{res: &gateway.Response{
		Status: http.StatusOK,
		Body: []byte(`{"user":{"id":7,"company_id":42,"role":{"slug":"admin","level":50,"permissions":["users.edit"]}}}`),
	}}
	svc := NewService(upstream, Breakglass{}, slog.Default())

	current := &authz.Principal{ID: 7, TenantID: 42, Role: authz.Role{Slug: "editor", Level: 10}}
	refreshed, err := svc.Refresh(context.Background(), current)
	require.NoError(t, err)
	require.Equal(t, authz.RoleSlug("admin"), refreshed.Role.Slug)
	require.Equal(t, 50, refreshed.Role.Level)
}
