// Package identity adapts external identity providers to the verify, lookup,
// list and delete surface the API consumes.
package identity

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrInvalidToken is returned when a credential is malformed, expired,
	// revoked or signed by someone else.
	ErrInvalidToken = errors.New("identity: invalid token")
	// ErrUserNotFound is returned by lookups and deletes for unknown accounts.
	ErrUserNotFound = errors.New("identity: user not found")
)

// Identity is the verified caller extracted from a bearer credential.
type Identity struct {
	UID    string
	Email  string
	Claims map[string]any
}

// Claim returns a string claim or "" when absent.
func (i Identity) Claim(key string) string {
	if i.Claims == nil {
		return ""
	}
	if v, ok := i.Claims[key].(string); ok {
		return v
	}
	return ""
}

// Record is an account as stored by the provider.
type Record struct {
	UID          string         `json:"uid"`
	Email        string         `json:"email"`
	DisplayName  string         `json:"displayName"`
	PhotoURL     string         `json:"photoURL,omitempty"`
	CustomClaims map[string]any `json:"-"`
}

// Role returns the custom "role" claim, if any.
func (r Record) Role() string {
	if r.CustomClaims == nil {
		return ""
	}
	role, _ := r.CustomClaims["role"].(string)
	return role
}

// Provider is the external identity capability.
type Provider interface {
	Verify(ctx context.Context, token string) (Identity, error)
	LookupByEmail(ctx context.Context, email string) (Record, error)
	ListAll(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, uid string) error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
