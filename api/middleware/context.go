package middleware

import (
	"context"

	"github.com/lamaai/lama-api/pkg/identity"
)

type contextKey string

const ctxIdentity contextKey = "identity"

// IdentityFromContext returns the verified caller attached by VerifyToken.
func IdentityFromContext(ctx context.Context) (identity.Identity, bool) {
	if ctx == nil {
		return identity.Identity{}, false
	}
	ident, ok := ctx.Value(ctxIdentity).(identity.Identity)
	return ident, ok
}

// UserIDFromContext returns the verified caller's uid or "".
func UserIDFromContext(ctx context.Context) string {
	ident, _ := IdentityFromContext(ctx)
	return ident.UID
}

// WithIdentity injects a verified identity into the context.
func WithIdentity(ctx context.Context, ident identity.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, ident)
}
