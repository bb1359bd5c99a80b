package models

import (
	"time"

	"github.com/lamaai/lama-api/pkg/enums"
)

// User is the directory record created on first sign-in.
type User struct {
	UID       string         `gorm:"column:uid;type:text;primaryKey"`
	Name      string         `gorm:"column:name;type:text;not null"`
	Email     string         `gorm:"column:email;type:text;not null;uniqueIndex:idx_users_email_lower,expression:LOWER(email)"`
	PhotoURL  *string        `gorm:"column:photo_url;type:text"`
	Role      enums.UserRole `gorm:"column:role;type:text;not null;default:'user'"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }
