package auth

import (
	"context"

	"github.com/productcatalog/catalog/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const identityContextKey contextKey = "identity"

// ContextWithIdentity adds the authenticated identity to the context.
func ContextWithIdentity(ctx context.Context, id *model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext returns the authenticated identity, or nil for anonymous callers.
func IdentityFromContext(ctx context.Context) *model.Identity {
	id, ok := ctx.Value(identityContextKey).(*model.Identity)
	if !ok {
		return nil
	}
	return id
}

// IsAnonymous reports whether no identity is attached to ctx.
func IsAnonymous(ctx context.Context) bool {
	return IdentityFromContext(ctx) == nil
}
