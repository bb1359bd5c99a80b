package chats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lamaai/lama-api/pkg/db"
	"github.com/lamaai/lama-api/pkg/db/models"
	"github.com/lamaai/lama-api/pkg/enums"
)

// ErrTurnSequenceTaken means another append claimed the same sequence numbers.
// Only engines without row locks on UPDATE (SQLite under WAL) can surface it.
var ErrTurnSequenceTaken = errors.New("turn sequence already taken")

// Repository persists transcripts as a header row plus ordered turns.
type Repository interface {
	Create(ctx context.Context, ownerUID string, first Turn) (*ChatSession, error)
	Append(ctx context.Context, chatID uuid.UUID, ownerUID string, turns []Turn) (AppendResult, error)
	Get(ctx context.Context, chatID uuid.UUID, ownerUID string) (*ChatSession, error)
	DeleteByOwner(ctx context.Context, ownerUID string) (int64, error)
}

type repositoryImpl struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository returns a transcript repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repositoryImpl{db: conn, now: time.Now}
}

func (r *repositoryImpl) Create(ctx context.Context, ownerUID string, first Turn) (*ChatSession, error) {
	now := r.now().UTC()
	header := models.ChatSession{
		ID:        uuid.New(),
		OwnerUID:  ownerUID,
		TurnCount: 1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	row, err := turnRow(header.ID, 1, first, now)
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&header).Error; err != nil {
			return fmt.Errorf("insert chat session: %w", err)
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert first turn: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ChatSession{
		ID:        header.ID,
		OwnerUID:  ownerUID,
		History:   []Turn{first},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Append reserves len(turns) sequence numbers with a conditional update scoped
// to (id, owner_uid) and inserts the turns under the row lock that update holds.
func (r *repositoryImpl) Append(ctx context.Context, chatID uuid.UUID, ownerUID string, turns []Turn) (AppendResult, error) {
	if len(turns) == 0 {
		return AppendResult{Updated: true}, nil
	}
	now := r.now().UTC()
	result := AppendResult{Updated: true}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ChatSession{}).
			Where("id = ? AND owner_uid = ?", chatID, ownerUID).
			Updates(map[string]any{
				"turn_count": gorm.Expr("turn_count + ?", len(turns)),
				"updated_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("reserve turn sequence: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			result = AppendResult{Updated: false, Reason: ReasonNotFoundOrForbidden}
			return nil
		}

		var header models.ChatSession
		if err := tx.Select("turn_count").Where("id = ?", chatID).Take(&header).Error; err != nil {
			return fmt.Errorf("read turn count: %w", err)
		}

		start := header.TurnCount - len(turns) + 1
		rows := make([]models.ChatTurn, 0, len(turns))
		for i, turn := range turns {
			row, err := turnRow(chatID, start+i, turn, now)
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		if err := tx.Create(&rows).Error; err != nil {
			if db.IsUniqueViolation(err, "") {
				return ErrTurnSequenceTaken
			}
			return fmt.Errorf("insert turns: %w", err)
		}
		return nil
	})
	if err != nil {
		return AppendResult{}, err
	}
	return result, nil
}

// Get returns nil without error when the chat is absent or owned by someone else.
func (r *repositoryImpl) Get(ctx context.Context, chatID uuid.UUID, ownerUID string) (*ChatSession, error) {
	var header models.ChatSession
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_uid = ?", chatID, ownerUID).
		Take(&header).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rows []models.ChatTurn
	if err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	history := make([]Turn, 0, len(rows))
	for _, row := range rows {
		turn, err := turnFromRow(row)
		if err != nil {
			return nil, err
		}
		history = append(history, turn)
	}

	return &ChatSession{
		ID:        header.ID,
		OwnerUID:  header.OwnerUID,
		History:   history,
		CreatedAt: header.CreatedAt,
		UpdatedAt: header.UpdatedAt,
	}, nil
}

func (r *repositoryImpl) DeleteByOwner(ctx context.Context, ownerUID string) (int64, error) {
	var purged int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := tx.Model(&models.ChatSession{}).Select("id").Where("owner_uid = ?", ownerUID)
		if err := tx.Where("chat_id IN (?)", owned).Delete(&models.ChatTurn{}).Error; err != nil {
			return fmt.Errorf("delete turns: %w", err)
		}
		res := tx.Where("owner_uid = ?", ownerUID).Delete(&models.ChatSession{})
		if res.Error != nil {
			return fmt.Errorf("delete chat sessions: %w", res.Error)
		}
		purged = res.RowsAffected
		return nil
	})
	return purged, err
}

func turnRow(chatID uuid.UUID, seq int, turn Turn, now time.Time) (models.ChatTurn, error) {
	parts, err := json.Marshal(turn.Parts)
	if err != nil {
		return models.ChatTurn{}, fmt.Errorf("encode turn parts: %w", err)
	}
	return models.ChatTurn{
		ChatID:    chatID,
		Seq:       seq,
		Role:      turn.Role,
		Parts:     datatypes.JSON(parts),
		CreatedAt: now,
	}, nil
}

func turnFromRow(row models.ChatTurn) (Turn, error) {
	role, err := enums.ParseTurnRole(string(row.Role))
	if err != nil {
		return Turn{}, err
	}
	parts := make([]Part, 0, 1)
	if len(row.Parts) > 0 {
		if err := json.Unmarshal(row.Parts, &parts); err != nil {
			return Turn{}, fmt.Errorf("decode turn %d parts: %w", row.Seq, err)
		}
	}
	return Turn{Role: role, Parts: parts}, nil
}
