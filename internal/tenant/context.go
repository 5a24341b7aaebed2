package tenant

import "context"

type scopeContextKey struct{}

// ContextWithScope stores the active tenant snapshot for the request.
func ContextWithScope(ctx context.Context, tenantID *int64) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, tenantID)
}

// ScopeFromContext returns the active tenant snapshot, nil when unscoped or
// unset.
func ScopeFromContext(ctx context.Context) *int64 {
	id, _ := ctx.Value(scopeContextKey{}).(*int64)
	return id
}

type resolverContextKey struct{}

// ContextWithResolver stores the session's resolver for the request.
func ContextWithResolver(ctx context.Context, r *Resolver) context.Context {
	return context.WithValue(ctx, resolverContextKey{}, r)
}

// ResolverFromContext extracts the resolver, nil before authentication.
func ResolverFromContext(ctx context.Context) *Resolver {
	r, _ := ctx.Value(resolverContextKey{}).(*Resolver)
	return r
}
