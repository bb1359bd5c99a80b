package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/lamaai/lama-api/pkg/enums"
)

// ChatSession is the header row of a transcript. Turns live in chat_turns and
// TurnCount always equals the highest assigned Seq.
type ChatSession struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OwnerUID  string    `gorm:"column:owner_uid;type:text;not null;index"`
	TurnCount int       `gorm:"column:turn_count;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ChatSession) TableName() string { return "chat_sessions" }

// ChatTurn is one immutable entry in a transcript.
type ChatTurn struct {
	ChatID    uuid.UUID      `gorm:"column:chat_id;type:uuid;primaryKey"`
	Seq       int            `gorm:"column:seq;primaryKey;autoIncrement:false"`
	Role      enums.TurnRole `gorm:"column:role;type:text;not null"`
	Parts     datatypes.JSON `gorm:"column:parts;type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (ChatTurn) TableName() string { return "chat_turns" }
