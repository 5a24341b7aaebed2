package users

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/atrium-console/atrium/internal/gateway"
)

// Upstream is the dispatcher slice the service needs.
type Upstream interface {
	Dispatch(ctx context.Context, req gateway.Request) (*gateway.Response, error)
	Get(ctx context.Context, path string, query url.Values, dest any) error
}

// Service proxies user CRUD to the upstream API.
type Service struct {
	upstream Upstream
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(upstream Upstream, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{upstream: upstream, logger: logger}
}

// List returns users, optionally filtered by an email/name search term.
func (s *Service) List(ctx context.Context, search string) ([]User, error) {
	var query url.Values
	if search != "" {
		query = url.Values{"q": []string{search}}
	}
	var out []User
	if err := s.upstream.Get(ctx, "/users", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one user.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	var user User
	if err := s.upstream.Get(ctx, fmt.Sprintf("/users/%d", id), nil, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Create submits a new user.
func (s *Service) Create(ctx context.Context, req CreateUserRequest) (User, error) {
	res, err := s.upstream.Dispatch(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/users",
		Body:   req,
	})
	if err != nil {
		return User{}, err
	}
	var user User
	if err := res.Decode(&user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Update edits an existing user.
func (s *Service) Update(ctx context.Context, id int64, req UpdateUserRequest) (User, error) {
	res, err := s.upstream.Dispatch(ctx, gateway.Request{
		Method: http.MethodPut,
		Path:   fmt.Sprintf("/users/%d", id),
		Body:   req,
	})
	if err != nil {
		return User{}, err
	}
	var user User
	if err := res.Decode(&user); err != nil {
		return User{}, err
	}
	return user, nil
}

// AssignRole changes the user's role.
func (s *Service) AssignRole(ctx context.Context, id int64, req AssignRoleRequest) error {
	_, err := s.upstream.Dispatch(ctx, gateway.Request{
		Method: http.MethodPut,
		Path:   fmt.Sprintf("/users/%d/role", id),
		Body:   req,
	})
	return err
}

// Deactivate disables the account.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	_, err := s.upstream.Dispatch(ctx, gateway.Request{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("/users/%d", id),
	})
	return err
}
