package chats

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/lamaai/lama-api/internal/userchats"
	"github.com/lamaai/lama-api/pkg/enums"
	pkgerrors "github.com/lamaai/lama-api/pkg/errors"
	"github.com/lamaai/lama-api/pkg/identity"
	"github.com/lamaai/lama-api/pkg/logger"
)

// Service orchestrates transcript writes and the per-user summary index.
type Service interface {
	Create(ctx context.Context, caller identity.Identity, text string) (uuid.UUID, error)
	Append(ctx context.Context, caller identity.Identity, chatID string, req AppendRequest) (AppendResult, error)
	Get(ctx context.Context, caller identity.Identity, chatID string) (*ChatSession, error)
	ListForUser(ctx context.Context, caller identity.Identity) ([]userchats.Entry, error)
}

// Indexer is the summary index surface chat creation depends on.
type Indexer interface {
	RecordChat(ctx context.Context, uid string, chatID uuid.UUID, title string) error
	ListFor(ctx context.Context, uid string) ([]userchats.Entry, error)
}

type service struct {
	repo  Repository
	index Indexer
	logg  *logger.Logger
}

// NewService wires chat dependencies.
func NewService(repo Repository, index Indexer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "chats repository required")
	}
	if index == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user chat index required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: repo, index: index, logg: logg}, nil
}

// Create stores the transcript first and then records it in the owner's
// index. The two writes are not atomic: when the index write fails the
// transcript is left in place for the reconcile job to pick up.
func (s *service) Create(ctx context.Context, caller identity.Identity, text string) (uuid.UUID, error) {
	if caller.UID == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity required")
	}
	if strings.TrimSpace(text) == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "text is required")
	}

	session, err := s.repo.Create(ctx, caller.UID, Turn{
		Role:  enums.TurnRoleUser,
		Parts: []Part{{Text: text}},
	})
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create chat")
	}

	if err := s.index.RecordChat(ctx, caller.UID, session.ID, userchats.TitleFrom(text)); err != nil {
		logCtx := s.logg.WithChatID(ctx, session.ID.String())
		s.logg.Warn(logCtx, "chat stored but not indexed; left for reconcile")
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "index chat")
	}

	return session.ID, nil
}

func (s *service) Append(ctx context.Context, caller identity.Identity, chatID string, req AppendRequest) (AppendResult, error) {
	if caller.UID == "" {
		return AppendResult{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity required")
	}
	if strings.TrimSpace(req.Answer) == "" {
		return AppendResult{}, pkgerrors.New(pkgerrors.CodeValidation, "answer is required")
	}

	id, err := uuid.Parse(chatID)
	if err != nil {
		return AppendResult{Updated: false, Reason: ReasonNotFoundOrForbidden}, nil
	}

	result, err := s.repo.Append(ctx, id, caller.UID, TurnsFor(req.Question, req.Answer, req.Img))
	if errors.Is(err, ErrTurnSequenceTaken) {
		return AppendResult{}, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "chat was modified concurrently, retry the append")
	}
	if err != nil {
		return AppendResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append chat turns")
	}
	return result, nil
}

// Get returns nil for absent, foreign or malformed ids.
func (s *service) Get(ctx context.Context, caller identity.Identity, chatID string) (*ChatSession, error) {
	if caller.UID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity required")
	}
	id, err := uuid.Parse(chatID)
	if err != nil {
		return nil, nil
	}

	session, err := s.repo.Get(ctx, id, caller.UID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetch chat")
	}
	return session, nil
}

func (s *service) ListForUser(ctx context.Context, caller identity.Identity) ([]userchats.Entry, error) {
	if caller.UID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity required")
	}
	entries, err := s.index.ListFor(ctx, caller.UID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetch user chats")
	}
	return entries, nil
}
