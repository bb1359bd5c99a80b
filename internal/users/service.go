package users

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/multierr"

	"github.com/lamaai/lama-api/pkg/db/models"
	"github.com/lamaai/lama-api/pkg/enums"
	pkgerrors "github.com/lamaai/lama-api/pkg/errors"
	"github.com/lamaai/lama-api/pkg/identity"
	"github.com/lamaai/lama-api/pkg/logger"
)

// Service manages the user directory and its mirror in the identity provider.
type Service interface {
	UpsertFromIdentity(ctx context.Context, caller identity.Identity, req UpsertRequest) (UpsertResult, error)
	List(ctx context.Context) ([]PublicUser, error)
	ListAll(ctx context.Context) ([]UserDTO, error)
	ListProviderUsers(ctx context.Context) ([]ProviderUser, error)
	AdminStatus(ctx context.Context, caller identity.Identity, email string) AdminStatus
	Promote(ctx context.Context, uid string) (PromoteResult, error)
	Remove(ctx context.Context, uid string) (RemoveReport, error)
}

// Directory is the persistence surface the service needs.
type Directory interface {
	InsertIfAbsent(ctx context.Context, user *models.User) (bool, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUID(ctx context.Context, uid string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	SetRole(ctx context.Context, uid string, role enums.UserRole) (int64, int64, error)
	Delete(ctx context.Context, uid string) (bool, error)
}

// ChatPurger removes every transcript a user owns.
type ChatPurger interface {
	DeleteByOwner(ctx context.Context, ownerUID string) (int64, error)
}

// IndexPurger removes a user's chat summary index.
type IndexPurger interface {
	DeleteFor(ctx context.Context, uid string) (int64, error)
}

type ServiceParams struct {
	Directory Directory
	Provider  identity.Provider
	Chats     ChatPurger
	Index     IndexPurger
	Logger    *logger.Logger
}

type service struct {
	repo     Directory
	provider identity.Provider
	chats    ChatPurger
	index    IndexPurger
	logg     *logger.Logger
}

// NewService wires directory dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Directory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if params.Provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "identity provider required")
	}
	if params.Chats == nil || params.Index == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "chat purgers required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:     params.Directory,
		provider: params.Provider,
		chats:    params.Chats,
		index:    params.Index,
		logg:     params.Logger,
	}, nil
}

// UpsertFromIdentity creates the caller's directory record on first sign-in.
// Repeated calls are reported as "already exists" rather than failing.
func (s *service) UpsertFromIdentity(ctx context.Context, caller identity.Identity, req UpsertRequest) (UpsertResult, error) {
	if caller.UID == "" {
		return UpsertResult{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity required")
	}
	if req.UID != "" && req.UID != caller.UID {
		return UpsertResult{}, pkgerrors.New(pkgerrors.CodeForbidden, "cannot register another user")
	}
	// The stored email always comes from the verified token. A body email is
	// only accepted as a restatement of it.
	email := strings.ToLower(strings.TrimSpace(caller.Email))
	if email == "" {
		return UpsertResult{}, pkgerrors.New(pkgerrors.CodeForbidden, "a verified email is required")
	}
	if body := strings.TrimSpace(req.Email); body != "" && !strings.EqualFold(body, email) {
		return UpsertResult{}, pkgerrors.New(pkgerrors.CodeForbidden, "email does not match the signed-in identity").
			WithDetails(map[string]string{"email": "mismatch"})
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return UpsertResult{}, pkgerrors.New(pkgerrors.CodeValidation, "name is required").
			WithDetails(map[string]string{"name": "required"})
	}

	created, err := s.repo.InsertIfAbsent(ctx, &models.User{
		UID:      caller.UID,
		Name:     name,
		Email:    email,
		PhotoURL: req.PhotoURL,
		Role:     enums.UserRoleUser,
	})
	if err != nil {
		return UpsertResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save user")
	}
	if !created {
		return UpsertResult{Created: false, Message: MessageAlreadyExists}, nil
	}
	return UpsertResult{Created: true, Message: "user created"}, nil
}

func (s *service) List(ctx context.Context) ([]PublicUser, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	out := make([]PublicUser, 0, len(rows))
	for _, row := range rows {
		out = append(out, PublicFromModel(row))
	}
	return out, nil
}

func (s *service) ListAll(ctx context.Context) ([]UserDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}

func (s *service) ListProviderUsers(ctx context.Context) ([]ProviderUser, error) {
	records, err := s.provider.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list identity provider users")
	}
	out := make([]ProviderUser, 0, len(records))
	for _, record := range records {
		out = append(out, ProviderUser{UID: record.UID, Email: record.Email, DisplayName: record.DisplayName})
	}
	return out, nil
}

// AdminStatus never fails: a mismatched email, unknown record or lookup error
// all answer {admin:false}.
func (s *service) AdminStatus(ctx context.Context, caller identity.Identity, email string) AdminStatus {
	if caller.Email == "" || !strings.EqualFold(strings.TrimSpace(email), caller.Email) {
		return AdminStatus{Admin: false}
	}
	user, err := s.repo.FindByEmail(ctx, caller.Email)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "admin self-check lookup failed")
		return AdminStatus{Admin: false}
	}
	if user == nil {
		return AdminStatus{Admin: false}
	}
	return AdminStatus{Admin: user.Role.IsAdmin()}
}

func (s *service) Promote(ctx context.Context, uid string) (PromoteResult, error) {
	matched, modified, err := s.repo.SetRole(ctx, uid, enums.UserRoleAdmin)
	if err != nil {
		return PromoteResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "promote user")
	}
	if matched == 0 {
		return PromoteResult{}, pkgerrors.Newf(pkgerrors.CodeInternal, "user %s does not resolve to a record", uid)
	}
	return PromoteResult{Matched: matched, Modified: modified}, nil
}

// Remove deletes the account from the identity provider and the directory,
// then purges the user's transcripts and index. Each half is attempted even
// when the other fails and the report says which ones took effect.
func (s *service) Remove(ctx context.Context, uid string) (RemoveReport, error) {
	report := RemoveReport{UID: uid}
	if strings.TrimSpace(uid) == "" {
		return report, pkgerrors.New(pkgerrors.CodeValidation, "uid is required")
	}

	var errs error
	identityMissing := false
	if err := s.provider.Delete(ctx, uid); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			identityMissing = true
		} else {
			errs = multierr.Append(errs, err)
		}
	} else {
		report.IdentityDeleted = true
	}

	deleted, err := s.repo.Delete(ctx, uid)
	if err != nil {
		errs = multierr.Append(errs, err)
	}
	report.DirectoryDeleted = deleted
	directoryMissing := err == nil && !deleted

	if errs == nil && identityMissing && directoryMissing {
		return report, pkgerrors.Newf(pkgerrors.CodeNotFound, "user %s not found", uid)
	}

	chats, err := s.chats.DeleteByOwner(ctx, uid)
	errs = multierr.Append(errs, err)
	report.ChatsPurged = chats

	entries, err := s.index.DeleteFor(ctx, uid)
	errs = multierr.Append(errs, err)
	report.IndexPurged = entries

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"target_uid":        uid,
		"identity_deleted":  report.IdentityDeleted,
		"directory_deleted": report.DirectoryDeleted,
		"chats_purged":      report.ChatsPurged,
		"index_purged":      report.IndexPurged,
	})
	if errs != nil {
		s.logg.Error(logCtx, "user removal partially failed", errs)
		return report, pkgerrors.Wrap(pkgerrors.CodePartialFailure, errs, "user removal partially failed").
			WithDetails(report)
	}
	s.logg.Info(logCtx, "user removed")
	return report, nil
}
