// Package auth turns bearer tokens into a typed principal. Every protected
// operation consumes the same Principal; no handler inspects raw claims.
package auth

import (
	"context"

	"github.com/thokbazaar/server/internal/domain"
)

// Role constants checked at authorization boundaries.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Principal is the verified identity attached to a request.
type Principal struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// TokenVerifier verifies a bearer token and extracts the principal.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
}

// ErrTokenInvalid is returned for expired, malformed, or unverifiable tokens.
var ErrTokenInvalid = domain.Errorf(domain.EUNAUTHORIZED, "auth.verify", "Invalid or expired token")

type contextKey string

const principalContextKey contextKey = "principal"

// WithPrincipal stores the principal within the context for downstream
// handlers.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext retrieves the principal previously stored in context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	return p, ok
}
