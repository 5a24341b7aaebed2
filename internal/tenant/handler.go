package tenant

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atrium-console/atrium/internal/authz"
	"github.com/atrium-console/atrium/internal/platform/httpx"
)

// Handler exposes the tenant switcher endpoints.
type Handler struct {
	logger *slog.Logger
	guard  authz.Guard
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, guard authz.Guard) *Handler {
	return &Handler{logger: logger, guard: guard}
}

// MountRoutes registers tenant routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Requirement{}))
		r.Get("/", h.current)
		r.Put("/", h.selectTenant)
	})
}

type selectRequest struct {
	TenantID *int64 `json:"tenant_id"`
}

type scopeView struct {
	ActiveTenantID *int64 `json:"active_tenant_id"`
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, scopeView{ActiveTenantID: ScopeFromContext(r.Context())})
}

func (h *Handler) selectTenant(w http.ResponseWriter, r *http.Request) {
	resolver := ResolverFromContext(r.Context())
	if resolver == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var req selectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed body")
		return
	}
	if err := resolver.Select(r.Context(), req.TenantID); err != nil {
		if errors.Is(err, ErrScopeLocked) {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "tenant scope is fixed for this role")
			return
		}
		h.logger.Error("select tenant", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, scopeView{ActiveTenantID: resolver.ActiveTenant()})
}
