package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func guardedRequest(t *testing.T, mw func(http.Handler) http.Handler, p *Principal) *httptest.ResponseRecorder {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/roles", nil)
	if p != nil {
		req = req.WithContext(ContextWithPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	return rec
}

func TestGuardRejectsAnonymousRequests(t *testing.T) {
	guard := Guard{}
	rec := guardedRequest(t, guard.Require(Requirement{Permission: PermRolesView}), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuardDeniesMissingPermission(t *testing.T) {
	guard := Guard{}
	viewer := &Principal{ID: 3, Role: Role{Slug: "viewer", Permissions: NewPermissionSet("users.view")}}
	rec := guardedRequest(t, guard.Require(Requirement{Permission: PermRolesEdit}), viewer)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuardAllowsMatchingPermission(t *testing.T) {
	guard := Guard{}
	editor := &Principal{ID: 3, Role: Role{Slug: "editor", Permissions: NewPermissionSet("roles.edit")}}
	rec := guardedRequest(t, guard.Require(Requirement{Permission: PermRolesEdit}), editor)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGuardPrivilegedRoleBypassesChecks(t *testing.T) {
	guard := Guard{}
	dev := &Principal{ID: 1, Role: Role{Slug: RoleDeveloper}}
	mw := guard.Require(Requirement{Permission: PermRolesEdit, MinLevel: MinLevel(100), DeveloperOnly: false})
	rec := guardedRequest(t, mw, dev)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGuardDeveloperOnlyExcludesSuperAdmin(t *testing.T) {
	guard := Guard{}
	admin := &Principal{ID: 2, Role: Role{Slug: RoleSuperAdmin}}
	rec := guardedRequest(t, guard.Require(Requirement{DeveloperOnly: true}), admin)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuardShorthands(t *testing.T) {
	guard := Guard{}
	p := &Principal{ID: 4, Role: Role{Slug: "ops", Permissions: NewPermissionSet("users.view")}}

	rec := guardedRequest(t, guard.RequireAny(PermUsersView, PermUsersEdit), p)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = guardedRequest(t, guard.RequireAll(PermUsersView, PermUsersEdit), p)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
