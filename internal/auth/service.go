// Package auth establishes the console principal: ordinarily by
// authenticating against the upstream platform API, or through the
// config-provisioned break-glass account when the upstream is unreachable.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"

	"github.com/atrium-console/atrium/internal/authz"
	"github.com/atrium-console/atrium/internal/gateway"
	"github.com/atrium-console/atrium/internal/shared"
)

// Upstream is the dispatcher slice the service needs.
type Upstream interface {
	Dispatch(ctx context.Context, req gateway.Request) (*gateway.Response, error)
}

// Breakglass describes the emergency developer account. The hash is a
// bcrypt digest provisioned through configuration; an empty value disables
// the account.
type Breakglass struct {
	Email        string
	PasswordHash string
}

// Service wraps authentication business rules.
type Service struct {
	upstream   Upstream
	breakglass Breakglass
	logger     *slog.Logger
	refresh    singleflight.Group
}

// NewService constructs a new Service.
func NewService(upstream Upstream, breakglass Breakglass, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{upstream: upstream, breakglass: breakglass, logger: logger}
}

// Authenticate validates credentials and returns the principal snapshot.
// Upstream rejections map to ErrInvalidCredentials; transport failures fall
// back to the break-glass account when one is provisioned.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (*authz.Principal, error) {
	res, err := s.upstream.Dispatch(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   creds,
	})
	if err != nil {
		if errors.Is(err, gateway.ErrSessionExpired) {
			return nil, shared.ErrInvalidCredentials
		}
		var upstream *gateway.UpstreamError
		if errors.As(err, &upstream) {
			if upstream.Status == http.StatusForbidden || upstream.Status == http.StatusUnprocessableEntity {
				return nil, shared.ErrInvalidCredentials
			}
			return nil, err
		}
		// Transport-level failure: the platform is unreachable.
		s.logger.Warn("upstream login unreachable", slog.Any("error", err))
		return s.breakglassLogin(creds)
	}

	var payload identityPayload
	if err := res.Decode(&payload); err != nil {
		return nil, err
	}
	if payload.User.ID == 0 {
		return nil, shared.ErrInvalidCredentials
	}
	return payload.principal(), nil
}

// Refresh re-reads the principal snapshot from upstream. Concurrent
// refreshes for the same identity collapse into one upstream call.
func (s *Service) Refresh(ctx context.Context, current *authz.Principal) (*authz.Principal, error) {
	if current == nil {
		return nil, shared.ErrInvalidCredentials
	}
	key := strconv.FormatInt(current.ID, 10)
	value, err, _ := s.refresh.Do(key, func() (any, error) {
		res, err := s.upstream.Dispatch(ctx, gateway.Request{Method: http.MethodGet, Path: "/auth/me"})
		if err != nil {
			return nil, err
		}
		var payload identityPayload
		if err := res.Decode(&payload); err != nil {
			return nil, err
		}
		if payload.User.ID == 0 {
			return nil, shared.ErrInvalidCredentials
		}
		return payload.principal(), nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*authz.Principal), nil
}

func (s *Service) breakglassLogin(creds Credentials) (*authz.Principal, error) {
	if s.breakglass.Email == "" || s.breakglass.PasswordHash == "" {
		return nil, shared.ErrInvalidCredentials
	}
	if creds.Email != s.breakglass.Email {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.breakglass.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	s.logger.Warn("break-glass login used", slog.String("email", creds.Email))
	return &authz.Principal{
		ID:   0,
		Role: authz.Role{Slug: authz.RoleDeveloper, Permissions: authz.NewPermissionSet()},
	}, nil
}
