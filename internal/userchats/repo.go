package userchats

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lamaai/lama-api/pkg/db/models"
)

// Repository maintains the per-user chat summary index.
type Repository interface {
	RecordChat(ctx context.Context, uid string, chatID uuid.UUID, title string) error
	ListFor(ctx context.Context, uid string) ([]Entry, error)
	RemoveEntries(ctx context.Context, uid string, chatIDs []uuid.UUID) (int64, error)
	DeleteFor(ctx context.Context, uid string) (int64, error)
	ListUnindexed(ctx context.Context, createdBefore time.Time, limit int) ([]OrphanChat, error)
	ListDangling(ctx context.Context, limit int) ([]DanglingEntry, error)
}

type repositoryImpl struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository returns an index repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db, now: time.Now}
}

// RecordChat creates the index row or bumps its counter in one upsert, then
// inserts the entry at the allocated position while the upsert's row lock is
// held. A chat already present in the index is left untouched.
func (r *repositoryImpl) RecordChat(ctx context.Context, uid string, chatID uuid.UUID, title string) error {
	now := r.now().UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		header := models.UserChatIndex{UID: uid, ChatCount: 1, CreatedAt: now, UpdatedAt: now}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "uid"}},
			DoUpdates: clause.Assignments(map[string]any{
				"chat_count": gorm.Expr("user_chat_indexes.chat_count + 1"),
				"updated_at": now,
			}),
		}).Create(&header).Error
		if err != nil {
			return fmt.Errorf("upsert user chat index: %w", err)
		}

		var current models.UserChatIndex
		if err := tx.Select("chat_count").Where("uid = ?", uid).Take(&current).Error; err != nil {
			return fmt.Errorf("read chat count: %w", err)
		}

		entry := models.UserChatEntry{
			UID:       uid,
			Position:  current.ChatCount,
			ChatID:    chatID,
			Title:     title,
			CreatedAt: now,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error; err != nil {
			return fmt.Errorf("insert user chat entry: %w", err)
		}
		return nil
	})
}

// ListFor returns the user's entries in insertion order, empty for unknown users.
func (r *repositoryImpl) ListFor(ctx context.Context, uid string) ([]Entry, error) {
	var rows []models.UserChatEntry
	if err := r.db.WithContext(ctx).
		Where("uid = ?", uid).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry{ChatID: row.ChatID, Title: row.Title})
	}
	return entries, nil
}

func (r *repositoryImpl) RemoveEntries(ctx context.Context, uid string, chatIDs []uuid.UUID) (int64, error) {
	if len(chatIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("uid = ? AND chat_id IN ?", uid, chatIDs).
		Delete(&models.UserChatEntry{})
	return res.RowsAffected, res.Error
}

func (r *repositoryImpl) DeleteFor(ctx context.Context, uid string) (int64, error) {
	var purged int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("uid = ?", uid).Delete(&models.UserChatEntry{})
		if res.Error != nil {
			return fmt.Errorf("delete user chat entries: %w", res.Error)
		}
		purged = res.RowsAffected
		if err := tx.Where("uid = ?", uid).Delete(&models.UserChatIndex{}).Error; err != nil {
			return fmt.Errorf("delete user chat index: %w", err)
		}
		return nil
	})
	return purged, err
}

// ListUnindexed finds transcripts created before the cutoff that are missing
// from their owner's index, with the parts of their opening turn.
func (r *repositoryImpl) ListUnindexed(ctx context.Context, createdBefore time.Time, limit int) ([]OrphanChat, error) {
	var rows []OrphanChat
	err := r.db.WithContext(ctx).
		Table("chat_sessions AS s").
		Select("s.id AS chat_id, s.owner_uid AS owner_uid, t.parts AS parts").
		Joins("LEFT JOIN chat_turns t ON t.chat_id = s.id AND t.seq = 1").
		Where("s.created_at < ?", createdBefore.UTC()).
		Where("NOT EXISTS (SELECT 1 FROM user_chat_entries e WHERE e.uid = s.owner_uid AND e.chat_id = s.id)").
		Order("s.created_at ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// ListDangling finds entries whose transcript is missing or owned by another uid.
func (r *repositoryImpl) ListDangling(ctx context.Context, limit int) ([]DanglingEntry, error) {
	var rows []DanglingEntry
	err := r.db.WithContext(ctx).
		Table("user_chat_entries AS e").
		Select("e.uid AS uid, e.chat_id AS chat_id").
		Where("NOT EXISTS (SELECT 1 FROM chat_sessions s WHERE s.id = e.chat_id AND s.owner_uid = e.uid)").
		Order("e.uid ASC, e.position ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
