package middleware

import (
	"context"
	"net/http"

	"github.com/lamaai/lama-api/api/responses"
	pkgerrors "github.com/lamaai/lama-api/pkg/errors"
	"github.com/lamaai/lama-api/pkg/identity"
	"github.com/lamaai/lama-api/pkg/logger"
)

// RoleAuthorizer accepts or rejects a verified identity for privileged routes.
type RoleAuthorizer interface {
	Authorize(ctx context.Context, caller identity.Identity) error
}

// RequireAdmin must run after VerifyToken.
func RequireAdmin(authz RoleAuthorizer, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, ok := IdentityFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized"))
				return
			}
			if err := authz.Authorize(r.Context(), ident); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
