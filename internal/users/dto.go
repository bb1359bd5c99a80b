package users

import (
	"time"

	"github.com/lamaai/lama-api/pkg/db/models"
	"github.com/lamaai/lama-api/pkg/enums"
)

const MessageAlreadyExists = "user already exists"

// PublicUser is the directory projection any signed-in user may list.
type PublicUser struct {
	UID      string  `json:"uid"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	PhotoURL *string `json:"photoURL,omitempty"`
}

// UserDTO is the full directory record returned to admins.
type UserDTO struct {
	UID       string         `json:"uid"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	PhotoURL  *string        `json:"photoURL,omitempty"`
	Role      enums.UserRole `json:"role"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// ProviderUser is the identity provider's view of an account.
type ProviderUser struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// UpsertRequest is the body of POST /api/users. uid and email default to the
// verified identity and may only restate it.
type UpsertRequest struct {
	UID      string  `json:"uid"`
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"omitempty,email"`
	PhotoURL *string `json:"photoURL" validate:"omitempty,url"`
}

type UpsertResult struct {
	Created bool   `json:"created"`
	Message string `json:"message"`
}

type PromoteResult struct {
	Matched  int64 `json:"matched"`
	Modified int64 `json:"modified"`
}

// RemoveReport records which half of a two-system delete took effect.
type RemoveReport struct {
	UID              string `json:"uid"`
	IdentityDeleted  bool   `json:"identityDeleted"`
	DirectoryDeleted bool   `json:"directoryDeleted"`
	ChatsPurged      int64  `json:"chatsPurged"`
	IndexPurged      int64  `json:"indexPurged"`
}

// AdminStatus answers the self-check route.
type AdminStatus struct {
	Admin bool `json:"admin"`
}

func PublicFromModel(u models.User) PublicUser {
	return PublicUser{
		UID:      u.UID,
		Name:     u.Name,
		Email:    u.Email,
		PhotoURL: u.PhotoURL,
	}
}

func FromModel(u models.User) UserDTO {
	return UserDTO{
		UID:       u.UID,
		Name:      u.Name,
		Email:     u.Email,
		PhotoURL:  u.PhotoURL,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
