package shared

import "context"

// Scope is the caller identity resolved from the bearer token.
type Scope struct {
	Subject     string
	BranchID    string
	Permissions []string
}

type scopeContextKey struct{}

// ContextWithScope stores the caller scope in context.
func ContextWithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFromContext extracts the caller scope from context.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeContextKey{}).(Scope)
	return scope, ok
}
