package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atrium-console/atrium/internal/authz"
	"github.com/atrium-console/atrium/internal/gateway"
	"github.com/atrium-console/atrium/internal/platform/httpx"
	"github.com/atrium-console/atrium/internal/shared"
	"github.com/atrium-console/atrium/internal/tenant"
)

// Handler serves login, logout and the session snapshot.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	sessions    *shared.SessionManager
	csrf        *shared.CSRFManager
	tenantStore tenant.Store
	validate    *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, tenantStore tenant.Store) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		sessions:    sessions,
		csrf:        csrf,
		tenantStore: tenantStore,
		validate:    validator.New(),
	}
}

// MountRoutes registers authentication routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.Get("/api/session", h.session)
	r.Post("/api/session/refresh", h.refresh)
}

type sessionView struct {
	User           *userView `json:"user"`
	ActiveTenantID *int64    `json:"active_tenant_id,omitempty"`
	CSRFToken      string    `json:"csrf_token,omitempty"`
}

type userView struct {
	ID          int64              `json:"id"`
	Role        string             `json:"role"`
	Level       int                `json:"level"`
	Permissions []authz.Permission `json:"permissions"`
	IsDeveloper bool               `json:"is_developer"`
}

func viewOf(p *authz.Principal) *userView {
	if p == nil {
		return nil
	}
	return &userView{
		ID:          p.ID,
		Role:        string(p.Role.Slug),
		Level:       p.Role.Level,
		Permissions: p.Role.Permissions.Slugs(),
		IsDeveloper: authz.IsDeveloper(p),
	}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := httpx.DecodeJSON(r, &creds); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed body")
		return
	}
	if err := h.validate.Struct(creds); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	principal, err := h.service.Authenticate(r.Context(), creds)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
			return
		}
		h.logger.Error("authenticate", slog.Any("error", err))
		gateway.RespondError(w, r, err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	raw, err := json.Marshal(principal)
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetPrincipal(raw)

	resolver := tenant.NewResolver(h.tenantStore, h.logger)
	if err := resolver.Initialize(r.Context(), principal); err != nil {
		h.logger.Error("initialize tenant scope", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	h.logger.Info("login", slog.Int64("principal", principal.ID), slog.String("role", string(principal.Role.Slug)))
	httpx.JSON(w, http.StatusOK, sessionView{
		User:           viewOf(principal),
		ActiveTenantID: resolver.ActiveTenant(),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.sessions.Destroy(sess)
	}
	if resolver := tenant.ResolverFromContext(r.Context()); resolver != nil {
		resolver.Teardown()
	}
	w.WriteHeader(http.StatusNoContent)
}

// refresh re-reads the principal from upstream and replaces the stored
// snapshot wholesale, picking up role or permission changes without a new
// login. The tenant scope is re-derived from the fresh principal.
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	current := authz.PrincipalFromContext(r.Context())
	if sess == nil || current == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	principal, err := h.service.Refresh(r.Context(), current)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			sess.ClearPrincipal()
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "session no longer valid")
			return
		}
		h.logger.Error("refresh principal", slog.Any("error", err))
		gateway.RespondError(w, r, err)
		return
	}

	raw, err := json.Marshal(principal)
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetPrincipal(raw)

	resolver := tenant.NewResolver(h.tenantStore, h.logger)
	if err := resolver.Initialize(r.Context(), principal); err != nil {
		h.logger.Error("initialize tenant scope", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, sessionView{
		User:           viewOf(principal),
		ActiveTenantID: resolver.ActiveTenant(),
	})
}

// session returns the current identity, active tenant and a CSRF token. It
// answers before authentication too: the SPA needs the token to log in.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	view := sessionView{}
	if sess != nil {
		if token, err := h.csrf.EnsureToken(r.Context(), sess); err == nil {
			view.CSRFToken = token
		}
	}
	if p := authz.PrincipalFromContext(r.Context()); p != nil {
		view.User = viewOf(p)
		view.ActiveTenantID = tenant.ScopeFromContext(r.Context())
	}
	httpx.JSON(w, http.StatusOK, view)
}
