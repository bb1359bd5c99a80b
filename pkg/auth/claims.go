package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/lamaai/lama-api/pkg/enums"
)

// IDTokenPayload captures the data available when minting a local ID token.
type IDTokenPayload struct {
	UID   string
	Email string
	Role  enums.UserRole
}

// IDTokenClaims is the typed body of a locally issued ID token. The subject
// carries the uid, mirroring hosted identity providers.
type IDTokenClaims struct {
	Email string         `json:"email,omitempty"`
	Role  enums.UserRole `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UID returns the subject of the token.
func (c *IDTokenClaims) UID() string {
	return c.Subject
}

// AsMap flattens the claims into the shape identity providers expose.
func (c *IDTokenClaims) AsMap() map[string]any {
	out := map[string]any{
		"sub": c.Subject,
		"iss": c.Issuer,
	}
	if c.Email != "" {
		out["email"] = c.Email
	}
	if c.Role != "" {
		out["role"] = string(c.Role)
	}
	if c.ExpiresAt != nil {
		out["exp"] = c.ExpiresAt.Unix()
	}
	if c.IssuedAt != nil {
		out["iat"] = c.IssuedAt.Unix()
	}
	return out
}
