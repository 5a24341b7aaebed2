package roles

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/atrium-console/atrium/internal/gateway"
)

// Upstream is the dispatcher slice the service needs.
type Upstream interface {
	Dispatch(ctx context.Context, req gateway.Request) (*gateway.Response, error)
	Get(ctx context.Context, path string, query url.Values, dest any) error
}

// Service proxies role CRUD to the upstream API. Detail lookups are kept in
// a small LRU because permission screens re-read the same roles constantly;
// any local mutation evicts the entry.
type Service struct {
	upstream Upstream
	details  *lru.Cache[int64, Role]
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(upstream Upstream, logger *slog.Logger) (*Service, error) {
	details, err := lru.New[int64, Role](256)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{upstream: upstream, details: details, logger: logger}, nil
}

// List returns all roles.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	var out []Role
	if err := s.upstream.Get(ctx, "/roles", nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].DisplayName = displayName(out[i].Slug)
	}
	return out, nil
}

// Get fetches one role, preferring the local LRU.
func (s *Service) Get(ctx context.Context, id int64) (Role, error) {
	if cached, ok := s.details.Get(id); ok {
		return cached, nil
	}
	var role Role
	if err := s.upstream.Get(ctx, fmt.Sprintf("/roles/%d", id), nil, &role); err != nil {
		return Role{}, err
	}
	role.DisplayName = displayName(role.Slug)
	s.details.Add(id, role)
	return role, nil
}

// Create submits a new role. A deferred write surfaces as a
// *gateway.PendingApproval through the error return.
func (s *Service) Create(ctx context.Context, req CreateRoleRequest) (Role, error) {
	res, err := s.upstream.Dispatch(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/roles",
		Body:   req,
	})
	if err != nil {
		return Role{}, err
	}
	var role Role
	if err := res.Decode(&role); err != nil {
		return Role{}, err
	}
	role.DisplayName = displayName(role.Slug)
	return role, nil
}

// Update edits an existing role and evicts the cached detail.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRoleRequest) (Role, error) {
	res, err := s.upstream.Dispatch(ctx, gateway.Request{
		Method: http.MethodPut,
		Path:   fmt.Sprintf("/roles/%d", id),
		Body:   req,
	})
	s.details.Remove(id)
	if err != nil {
		return Role{}, err
	}
	var role Role
	if err := res.Decode(&role); err != nil {
		return Role{}, err
	}
	role.DisplayName = displayName(role.Slug)
	return role, nil
}

// Delete removes a role and evicts the cached detail.
func (s *Service) Delete(ctx context.Context, id int64) error {
	_, err := s.upstream.Dispatch(ctx, gateway.Request{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("/roles/%d", id),
	})
	s.details.Remove(id)
	return err
}

// SetPermissions replaces a role's permission assignment.
func (s *Service) SetPermissions(ctx context.Context, id int64, permissions []string) error {
	_, err := s.upstream.Dispatch(ctx, gateway.Request{
		Method: http.MethodPut,
		Path:   fmt.Sprintf("/roles/%d/permissions", id),
		Body:   map[string][]string{"permissions": permissions},
	})
	s.details.Remove(id)
	return err
}

// ListPermissions returns the assignable permission catalogue.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	var out []Permission
	if err := s.upstream.Get(ctx, "/permissions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
