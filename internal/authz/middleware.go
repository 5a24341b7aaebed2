package authz

import (
	"log/slog"
	"net/http"
)

// Guard wires authorization checks into HTTP handler chains.
type Guard struct {
	Logger *slog.Logger
}

// Require denies the request unless the context principal satisfies the
// requirement. An absent principal yields 401, a failed check 403; the body
// is deliberately bare so callers own the presentation.
func (g Guard) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p == nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if !req.Allows(p) {
				if g.Logger != nil {
					g.Logger.Warn("authorization denied",
						slog.Int64("principal", p.ID),
						slog.String("role", string(p.Role.Slug)),
						slog.String("path", r.URL.Path))
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny is shorthand for a Requirement with an any-of permission list.
func (g Guard) RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	return g.Require(Requirement{AnyOf: perms})
}

// RequireAll is shorthand for a Requirement with an all-of permission list.
func (g Guard) RequireAll(perms ...Permission) func(http.Handler) http.Handler {
	return g.Require(Requirement{AllOf: perms})
}
