// Package context provides request-scoped values extraction.
package context

import (
	"context"

	"quimstock/internal/core/security"
)

// UserContext contains authenticated user information.
type UserContext struct {
	UserID   string
	Username string
	Email    string
	Scope    security.Scope
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

// GetUsername returns the username from context or empty string.
func GetUsername(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.Username
	}
	return ""
}

// CanActOn reports whether the request's user may act on the given area.
// Requests without a user context have no capabilities.
func CanActOn(ctx context.Context, area security.Area) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	return u.Scope.CanActOn(area)
}
