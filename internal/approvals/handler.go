package approvals

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atrium-console/atrium/internal/authz"
	"github.com/atrium-console/atrium/internal/gateway"
	"github.com/atrium-console/atrium/internal/platform/httpx"
)

// Handler serves the approval screens' JSON endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   authz.Guard
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers approval routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Requirement{Permission: authz.PermApprovalsView}))
		r.Get("/", h.list)
		r.Get("/pending", h.pending)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Requirement{DeveloperOnly: true}))
		r.Get("/intercepts", h.intercepts)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		gateway.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"approvals": items})
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Pending(r.Context())
	if err != nil {
		gateway.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"approvals": items})
}

type interceptView struct {
	ID          int64     `json:"id"`
	DispatchID  string    `json:"dispatch_id"`
	Message     string    `json:"message"`
	PrincipalID int64     `json:"principal_id"`
	TenantID    *int64    `json:"tenant_id,omitempty"`
	At          time.Time `json:"at"`
}

func (h *Handler) intercepts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.service.History(r.Context(), limit)
	if err != nil {
		h.logger.Error("list intercepts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]interceptView, 0, len(records))
	for _, rec := range records {
		views = append(views, interceptView{
			ID:          rec.ID,
			DispatchID:  rec.DispatchID,
			Message:     rec.Message,
			PrincipalID: rec.PrincipalID,
			TenantID:    rec.TenantID,
			At:          rec.At,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"intercepts": views})
}
