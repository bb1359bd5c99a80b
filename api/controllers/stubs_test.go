package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lamaai/lama-api/api/middleware"
	"github.com/lamaai/lama-api/internal/chats"
	"github.com/lamaai/lama-api/internal/userchats"
	"github.com/lamaai/lama-api/internal/users"
	"github.com/lamaai/lama-api/pkg/identity"
	"github.com/lamaai/lama-api/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type stubChatsService struct {
	createFn func(ctx context.Context, caller identity.Identity, text string) (uuid.UUID, error)
	appendFn func(ctx context.Context, caller identity.Identity, chatID string, req chats.AppendRequest) (chats.AppendResult, error)
	getFn    func(ctx context.Context, caller identity.Identity, chatID string) (*chats.ChatSession, error)
	listFn   func(ctx context.Context, caller identity.Identity) ([]userchats.Entry, error)
}

func (s stubChatsService) Create(ctx context.Context, caller identity.Identity, text string) (uuid.UUID, error) {
	return s.createFn(ctx, caller, text)
}

func (s stubChatsService) Append(ctx context.Context, caller identity.Identity, chatID string, req chats.AppendRequest) (chats.AppendResult, error) {
	return s.appendFn(ctx, caller, chatID, req)
}

func (s stubChatsService) Get(ctx context.Context, caller identity.Identity, chatID string) (*chats.ChatSession, error) {
	return s.getFn(ctx, caller, chatID)
}

func (s stubChatsService) ListForUser(ctx context.Context, caller identity.Identity) ([]userchats.Entry, error) {
	return s.listFn(ctx, caller)
}

type stubUsersService struct {
	upsertFn       func(ctx context.Context, caller identity.Identity, req users.UpsertRequest) (users.UpsertResult, error)
	listFn         func(ctx context.Context) ([]users.PublicUser, error)
	listAllFn      func(ctx context.Context) ([]users.UserDTO, error)
	listProviderFn func(ctx context.Context) ([]users.ProviderUser, error)
	adminStatusFn  func(ctx context.Context, caller identity.Identity, email string) users.AdminStatus
	promoteFn      func(ctx context.Context, uid string) (users.PromoteResult, error)
	removeFn       func(ctx context.Context, uid string) (users.RemoveReport, error)
}

func (s stubUsersService) UpsertFromIdentity(ctx context.Context, caller identity.Identity, req users.UpsertRequest) (users.UpsertResult, error) {
	return s.upsertFn(ctx, caller, req)
}

func (s stubUsersService) List(ctx context.Context) ([]users.PublicUser, error) {
	return s.listFn(ctx)
}

func (s stubUsersService) ListAll(ctx context.Context) ([]users.UserDTO, error) {
	return s.listAllFn(ctx)
}

func (s stubUsersService) ListProviderUsers(ctx context.Context) ([]users.ProviderUser, error) {
	return s.listProviderFn(ctx)
}

func (s stubUsersService) AdminStatus(ctx context.Context, caller identity.Identity, email string) users.AdminStatus {
	return s.adminStatusFn(ctx, caller, email)
}

func (s stubUsersService) Promote(ctx context.Context, uid string) (users.PromoteResult, error) {
	return s.promoteFn(ctx, uid)
}

func (s stubUsersService) Remove(ctx context.Context, uid string) (users.RemoveReport, error) {
	return s.removeFn(ctx, uid)
}

// withCaller attaches a verified identity and chi URL params to req.
func withCaller(req *http.Request, caller *identity.Identity, params map[string]string) *http.Request {
	ctx := req.Context()
	if caller != nil {
		ctx = middleware.WithIdentity(ctx, *caller)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return envelope.Error.Code
}
