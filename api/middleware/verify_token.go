package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/lamaai/lama-api/api/responses"
	pkgerrors "github.com/lamaai/lama-api/pkg/errors"
	"github.com/lamaai/lama-api/pkg/identity"
	"github.com/lamaai/lama-api/pkg/logger"
)

// TokenVerifier turns a bearer credential into an identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (identity.Identity, error)
}

const bearerPrefix = "bearer "

// VerifyToken requires "Authorization: Bearer <token>". A missing or malformed
// header is 401; any verification failure is 403. On success the identity is
// attached to the request context and its uid/email to the log fields.
func VerifyToken(verifier TokenVerifier, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if len(raw) < len(bearerPrefix) || !strings.EqualFold(raw[:len(bearerPrefix)], bearerPrefix) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized"))
				return
			}
			token := strings.TrimSpace(raw[len(bearerPrefix):])
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized"))
				return
			}

			ident, err := verifier.Verify(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "Forbidden"))
				return
			}

			ctx := WithIdentity(r.Context(), ident)
			if logg != nil {
				ctx = logg.WithUserID(ctx, ident.UID)
				if ident.Email != "" {
					ctx = logg.WithEmail(ctx, ident.Email)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
