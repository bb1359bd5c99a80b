package chats

import (
	"time"

	"github.com/google/uuid"

	"github.com/lamaai/lama-api/pkg/enums"
)

// ReasonNotFoundOrForbidden is reported when an append matched no transcript
// owned by the caller. Absent and foreign chats are deliberately conflated.
const ReasonNotFoundOrForbidden = "not_found_or_forbidden"

// Part is one fragment of a turn.
type Part struct {
	Text string `json:"text"`
	Img  string `json:"img,omitempty"`
}

// Turn is a single immutable message in a transcript.
type Turn struct {
	Role  enums.TurnRole `json:"role"`
	Parts []Part         `json:"parts"`
}

// ChatSession is a transcript as returned to its owner.
type ChatSession struct {
	ID        uuid.UUID `json:"id"`
	OwnerUID  string    `json:"ownerUid"`
	History   []Turn    `json:"history"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AppendResult reports whether an owner-scoped append matched a transcript.
type AppendResult struct {
	Updated bool   `json:"updated"`
	Reason  string `json:"reason,omitempty"`
}

// CreateRequest is the body of POST /api/chats.
type CreateRequest struct {
	Text string `json:"text" validate:"required"`
}

// AppendRequest is the body of PUT /api/chats/{id}.
type AppendRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer" validate:"required"`
	Img      string `json:"img"`
}

// CreateResponse is returned after a chat is created.
type CreateResponse struct {
	ID uuid.UUID `json:"id"`
}

// TurnsFor builds the turns appended by one exchange: an optional user turn
// (only when question is set, carrying img) followed by the model turn.
func TurnsFor(question, answer, img string) []Turn {
	turns := make([]Turn, 0, 2)
	if question != "" {
		turns = append(turns, Turn{
			Role:  enums.TurnRoleUser,
			Parts: []Part{{Text: question, Img: img}},
		})
	}
	turns = append(turns, Turn{
		Role:  enums.TurnRoleModel,
		Parts: []Part{{Text: answer}},
	})
	return turns
}
