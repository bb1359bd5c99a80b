package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lamaai/lama-api/pkg/db/models"
	"github.com/lamaai/lama-api/pkg/enums"
)

// Repository exposes directory persistence operations.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// InsertIfAbsent creates the user unless the uid or email is already taken.
// Emails are stored lowercased so the LOWER(email) index sees one spelling.
// It reports whether a row was written.
func (r *Repository) InsertIfAbsent(ctx context.Context, user *models.User) (bool, error) {
	now := r.now().UTC()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Role == "" {
		user.Role = enums.UserRoleUser
	}
	user.CreatedAt, user.UpdatedAt = now, now

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(user)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FindByEmail returns nil without error when no user has the email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
}

// FindByUID returns nil without error when the uid is unknown.
func (r *Repository) FindByUID(ctx context.Context, uid string) (*models.User, error) {
	return r.findOne(ctx, "uid = ?", uid)
}

func (r *Repository) findOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(query, args...).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns every directory record ordered by creation.
func (r *Repository) List(ctx context.Context) ([]models.User, error) {
	var rows []models.User
	if err := r.db.WithContext(ctx).Order("created_at ASC, uid ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SetRole updates the role and reports how many rows matched the uid and how
// many actually changed.
func (r *Repository) SetRole(ctx context.Context, uid string, role enums.UserRole) (matched, modified int64, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("uid = ? AND role <> ?", uid, role).
			Updates(map[string]any{"role": role, "updated_at": r.now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		modified = res.RowsAffected
		if modified > 0 {
			matched = modified
			return nil
		}
		return tx.Model(&models.User{}).Where("uid = ?", uid).Count(&matched).Error
	})
	return matched, modified, err
}

// Delete removes the record and reports whether one existed.
func (r *Repository) Delete(ctx context.Context, uid string) (bool, error) {
	res := r.db.WithContext(ctx).Where("uid = ?", uid).Delete(&models.User{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
