// Package tenant resolves the active tenant scope for a session. Ordinary
// roles are pinned to their own tenant; the developer role may switch
// freely, with the chosen tenant persisted as a user preference.
package tenant

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/atrium-console/atrium/internal/authz"
)

// ErrScopeLocked rejects a tenant switch by a non-developer principal. Such
// a call never originates from correctly gated UI, so it is logged rather
// than surfaced to the user.
var ErrScopeLocked = errors.New("tenant: scope locked to principal's own tenant")

// ErrNoPrincipal rejects resolver use before a principal is established.
var ErrNoPrincipal = errors.New("tenant: no principal")

// Resolver computes and mutates the active tenant id for one session.
//
// States: unscoped (developer, nil active tenant), scoped-to-self (any other
// role, pinned), scoped-to-selected (developer with a persisted choice).
type Resolver struct {
	store  Store
	logger *slog.Logger

	mu        sync.RWMutex
	principal *authz.Principal
	active    *int64
}

// NewResolver constructs a Resolver.
func NewResolver(store Store, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Initialize derives the scope from a freshly established principal. For a
// developer the persisted selection is consulted; everyone else is pinned to
// their own tenant.
func (r *Resolver) Initialize(ctx context.Context, p *authz.Principal) error {
	if p == nil {
		return ErrNoPrincipal
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.principal = p
	if authz.IsDeveloper(p) {
		selected, err := r.store.Selection(ctx, p.ID)
		if err != nil {
			return err
		}
		r.active = selected
		return nil
	}
	own := p.TenantID
	r.active = &own
	return nil
}

// Select switches the active tenant; nil selects system-wide scope. Only
// the developer role may switch. For anyone else the call is rejected in
// place: no state changes, the attempt is logged for diagnosability.
func (r *Resolver) Select(ctx context.Context, tenantID *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.principal == nil {
		return ErrNoPrincipal
	}
	if !authz.IsDeveloper(r.principal) {
		if r.logger != nil {
			attrs := []any{
				slog.Int64("principal", r.principal.ID),
				slog.String("role", string(r.principal.Role.Slug)),
			}
			if tenantID != nil {
				attrs = append(attrs, slog.Int64("requested_tenant", *tenantID))
			}
			r.logger.Warn("tenant switch rejected", attrs...)
		}
		return ErrScopeLocked
	}
	if err := r.store.SaveSelection(ctx, r.principal.ID, tenantID); err != nil {
		return err
	}
	if tenantID == nil {
		r.active = nil
	} else {
		id := *tenantID
		r.active = &id
	}
	return nil
}

// ActiveTenant returns a snapshot of the active tenant id, nil when the
// scope is system-wide. Callers dispatching a request read the scope once
// here; a concurrent Select does not retroactively rescope them.
func (r *Resolver) ActiveTenant() *int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == nil {
		return nil
	}
	id := *r.active
	return &id
}

// Teardown clears in-memory state when the principal is destroyed. The
// persisted developer selection survives: it is a preference, not session
// state.
func (r *Resolver) Teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.principal = nil
	r.active = nil
}
