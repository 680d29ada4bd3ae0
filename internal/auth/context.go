package auth

import (
	"context"

	"kurylys.org/internal/identity"
)

type principalContextKey struct{}
type targetUserContextKey struct{}

// ContextWithPrincipal attaches the authenticated user to the context.
func ContextWithPrincipal(ctx context.Context, user *identity.User) context.Context {
	if user == nil {
		return ctx
	}
	return context.WithValue(ctx, principalContextKey{}, user)
}

// PrincipalFromContext extracts the authenticated user from the context.
func PrincipalFromContext(ctx context.Context) (*identity.User, bool) {
	if ctx == nil {
		return nil, false
	}
	u, ok := ctx.Value(principalContextKey{}).(*identity.User)
	if !ok || u == nil {
		return nil, false
	}
	return u, true
}

// ContextWithTargetUser attaches the resolved management target so the
// handler can reuse it without a second lookup.
func ContextWithTargetUser(ctx context.Context, user *identity.User) context.Context {
	if user == nil {
		return ctx
	}
	return context.WithValue(ctx, targetUserContextKey{}, user)
}

// TargetUserFromContext returns the management target resolved by the
// user-management guard, if it ran.
func TargetUserFromContext(ctx context.Context) (*identity.User, bool) {
	if ctx == nil {
		return nil, false
	}
	u, ok := ctx.Value(targetUserContextKey{}).(*identity.User)
	if !ok || u == nil {
		return nil, false
	}
	return u, true
}
