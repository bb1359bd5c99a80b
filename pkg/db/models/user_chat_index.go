package models

import (
	"time"

	"github.com/google/uuid"
)

// UserChatIndex is the per-user summary header. ChatCount is bumped by an
// upsert and doubles as the position allocator for entries.
type UserChatIndex struct {
	UID       string    `gorm:"column:uid;type:text;primaryKey"`
	ChatCount int       `gorm:"column:chat_count;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (UserChatIndex) TableName() string { return "user_chat_indexes" }

// UserChatEntry is one {chatId, title} summary in a user's index.
type UserChatEntry struct {
	UID       string    `gorm:"column:uid;type:text;primaryKey;uniqueIndex:ux_user_chat_entries_uid_chat,priority:1"`
	Position  int       `gorm:"column:position;primaryKey;autoIncrement:false"`
	ChatID    uuid.UUID `gorm:"column:chat_id;type:uuid;not null;uniqueIndex:ux_user_chat_entries_uid_chat,priority:2"`
	Title     string    `gorm:"column:title;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (UserChatEntry) TableName() string { return "user_chat_entries" }
