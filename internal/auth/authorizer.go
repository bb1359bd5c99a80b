// Package auth decides whether a verified identity may run privileged operations.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/lamaai/lama-api/pkg/config"
	"github.com/lamaai/lama-api/pkg/db/models"
	"github.com/lamaai/lama-api/pkg/enums"
	pkgerrors "github.com/lamaai/lama-api/pkg/errors"
	"github.com/lamaai/lama-api/pkg/identity"
)

// RoleResolver returns the role currently granted to an identity.
type RoleResolver interface {
	ResolveRole(ctx context.Context, caller identity.Identity) (enums.UserRole, error)
}

// Authorizer gates admin operations.
type Authorizer struct {
	resolver RoleResolver
}

func NewAuthorizer(resolver RoleResolver) (*Authorizer, error) {
	if resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "role resolver required")
	}
	return &Authorizer{resolver: resolver}, nil
}

// Authorize returns nil for admins, CodeForbidden for anyone else and
// CodeInternal when the role cannot be resolved.
func (a *Authorizer) Authorize(ctx context.Context, caller identity.Identity) error {
	role, err := a.resolver.ResolveRole(ctx, caller)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve caller role")
	}
	if !role.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}

var errNoRecord = errors.New("no record for caller")

// userFinder is the directory lookup DirectoryResolver needs.
type userFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUID(ctx context.Context, uid string) (*models.User, error)
}

// DirectoryResolver reads the role from the persisted user directory, looking
// the caller up by email and falling back to uid when the token has no email.
type DirectoryResolver struct {
	users userFinder
}

func NewDirectoryResolver(users userFinder) *DirectoryResolver {
	return &DirectoryResolver{users: users}
}

func (r *DirectoryResolver) ResolveRole(ctx context.Context, caller identity.Identity) (enums.UserRole, error) {
	var (
		user *models.User
		err  error
	)
	if strings.TrimSpace(caller.Email) != "" {
		user, err = r.users.FindByEmail(ctx, caller.Email)
	} else {
		user, err = r.users.FindByUID(ctx, caller.UID)
	}
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", errNoRecord
	}
	return user.Role, nil
}

// ClaimsResolver reads the "role" custom claim from the identity provider's
// account record.
type ClaimsResolver struct {
	provider identity.Provider
}

func NewClaimsResolver(provider identity.Provider) *ClaimsResolver {
	return &ClaimsResolver{provider: provider}
}

func (r *ClaimsResolver) ResolveRole(ctx context.Context, caller identity.Identity) (enums.UserRole, error) {
	if caller.Email == "" {
		return "", errNoRecord
	}
	record, err := r.provider.LookupByEmail(ctx, caller.Email)
	if err != nil {
		return "", err
	}
	role, err := enums.ParseUserRole(record.Role())
	if err != nil {
		// missing or unrecognised claim
		return enums.UserRoleUser, nil
	}
	return role, nil
}

// NewResolver picks the resolver named by the configured role source.
func NewResolver(source string, users userFinder, provider identity.Provider) (RoleResolver, error) {
	switch strings.ToLower(source) {
	case config.RoleSourceClaims:
		if provider == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "identity provider required")
		}
		return NewClaimsResolver(provider), nil
	case config.RoleSourceDirectory, "":
		if users == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
		}
		return NewDirectoryResolver(users), nil
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeDependency, "unknown role source %q", source)
	}
}
