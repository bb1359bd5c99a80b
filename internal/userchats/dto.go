package userchats

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const titleMaxRunes = 40

// Entry is one chat summary in a user's index.
type Entry struct {
	ChatID uuid.UUID `json:"chatId"`
	Title  string    `json:"title"`
}

// OrphanChat is a transcript that has no entry in its owner's index.
type OrphanChat struct {
	ChatID   uuid.UUID
	OwnerUID string
	Parts    datatypes.JSON
}

// FirstText returns the text of the first part of the transcript's opening turn.
func (o OrphanChat) FirstText() string {
	if len(o.Parts) == 0 {
		return ""
	}
	var parts []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(o.Parts, &parts); err != nil || len(parts) == 0 {
		return ""
	}
	return parts[0].Text
}

// DanglingEntry is an index entry whose transcript is gone or owned by someone else.
type DanglingEntry struct {
	UID    string
	ChatID uuid.UUID
}

// TitleFrom derives the index title from the first user message.
func TitleFrom(text string) string {
	runes := []rune(text)
	if len(runes) <= titleMaxRunes {
		return text
	}
	return string(runes[:titleMaxRunes])
}
