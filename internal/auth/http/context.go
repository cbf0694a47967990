// Package http provides the owner authentication middleware, rate limiters and the token
// endpoint.
package http

import (
	"context"

	authDomain "github.com/allisson/esign/internal/auth/domain"
)

type ownerKey struct{}

// WithOwner stores the authenticated owner in the context.
func WithOwner(ctx context.Context, owner *authDomain.Owner) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// GetOwner retrieves the authenticated owner from the context.
func GetOwner(ctx context.Context) (*authDomain.Owner, bool) {
	owner, ok := ctx.Value(ownerKey{}).(*authDomain.Owner)
	return owner, ok && owner != nil
}
