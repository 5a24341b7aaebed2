package roles

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atrium-console/atrium/internal/gateway"
)

type stubUpstream struct {
	getCalls      map[string]int
	dispatchCalls []gateway.Request
	roles         map[string]Role
}

func newStubUpstream() *stubUpstream {
	return &stubUpstream{getCalls: map[string]int{}, roles: map[string]Role{}}
}

func (s *stubUpstream) Get(ctx context.Context, path string, query url.Values, dest any) error {
	s.getCalls[path]++
	role, ok := s.roles[path]
	if !ok {
		return nil
	}
	data, err := json.Marshal(role)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (s *stubUpstream) Dispatch(ctx context.Context, req gateway.Request) (*gateway.Response, error) {
	s.dispatchCalls = append(s.dispatchCalls, req)
	return &gateway.Response{Status: http.StatusOK, Body: []byte(`{"id":7,"slug":"auditor","level":5}`)}, nil
}

func TestGetCachesDetailLookups(t *testing.T) {
	upstream := newStubUpstream()
	upstream.roles["/roles/7"] = Role{ID: 7, Slug: "auditor", Level: 5}

	svc, err := NewService(upstream, nil)
	require.NoError(t, err)

	first, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "Auditor", first.DisplayName)

	second, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, upstream.getCalls["/roles/7"], "second lookup should be served from cache")
}

func TestUpdateEvictsCachedDetail(t *testing.T) {
	upstream := newStubUpstream()
	upstream.roles["/roles/7"] = Role{ID: 7, Slug: "auditor", Level: 5}

	svc, err := NewService(upstream, nil)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), 7)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), 7, UpdateRoleRequest{Level: 8})
	require.NoError(t, err)

	upstream.roles["/roles/7"] = Role{ID: 7, Slug: "auditor", Level: 8}
	refreshed, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 8, refreshed.Level)
	require.Equal(t, 2, upstream.getCalls["/roles/7"], "eviction should force a refetch")
}

func TestSetPermissionsEvictsAndProxies(t *testing.T) {
	upstream := newStubUpstream()
	upstream.roles["/roles/7"] = Role{ID: 7, Slug: "auditor"}

	svc, err := NewService(upstream, nil)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), 7)
	require.NoError(t, err)

	require.NoError(t, svc.SetPermissions(context.Background(), 7, []string{"users.view"}))
	require.Len(t, upstream.dispatchCalls, 1)
	require.Equal(t, http.MethodPut, upstream.dispatchCalls[0].Method)
	require.Equal(t, "/roles/7/permissions", upstream.dispatchCalls[0].Path)

	_, err = svc.Get(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 2, upstream.getCalls["/roles/7"])
}

func TestDisplayNameHumanizesSlugs(t *testing.T) {
	require.Equal(t, "Super Admin", displayName("super_admin"))
	require.Equal(t, "Billing Manager", displayName("billing-manager"))
	require.Equal(t, "Ops Lead", displayName("ops.lead"))
}
