// Package appctx provides request-scoped values extraction.
package appctx

import (
	"context"
)

// Role names used across the three surfaces.
const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
	RoleVendor  = "vendor"
)

// UserContext contains authenticated user information.
// The lifecycle engine never falls back to a default actor: operations
// that attribute stock movements or audit entries reject requests with
// no user in context.
type UserContext struct {
	UserID   string
	Username string
	Role     string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// HasRole checks if user has specific role.
func HasRole(ctx context.Context, role string) bool {
	u := GetUser(ctx)
	return u != nil && u.Role == role
}
