package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamaai/lama-api/internal/users"
	pkgerrors "github.com/lamaai/lama-api/pkg/errors"
	"github.com/lamaai/lama-api/pkg/identity"
)

func TestUserUpsertReportsExisting(t *testing.T) {
	svc := stubUsersService{upsertFn: func(_ context.Context, caller identity.Identity, req users.UpsertRequest) (users.UpsertResult, error) {
		assert.Equal(t, "alice", caller.UID)
		assert.Equal(t, "Alice", req.Name)
		return users.UpsertResult{Created: false, Message: users.MessageAlreadyExists}, nil
	}}

	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(`{"name":"Alice"}`)), alice, nil)
	rec := httptest.NewRecorder()
	UserUpsert(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result users.UpsertResult
	decodeData(t, rec, &result)
	assert.False(t, result.Created)
	assert.Equal(t, users.MessageAlreadyExists, result.Message)
}

func TestUserUpsertValidatesBody(t *testing.T) {
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(`{"email":"not-an-email","name":"A"}`)), alice, nil)
	rec := httptest.NewRecorder()
	UserUpsert(stubUsersService{}, testLogger()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserAdminStatusUsesPathEmail(t *testing.T) {
	svc := stubUsersService{adminStatusFn: func(_ context.Context, caller identity.Identity, email string) users.AdminStatus {
		return users.AdminStatus{Admin: email == caller.Email}
	}}

	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/users/admin/alice@example.com", nil), alice, map[string]string{"id": "alice@example.com"})
	rec := httptest.NewRecorder()
	UserAdminStatus(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"admin":true}}`, rec.Body.String())
}

func TestUserPromote(t *testing.T) {
	svc := stubUsersService{promoteFn: func(_ context.Context, uid string) (users.PromoteResult, error) {
		assert.Equal(t, "bob", uid)
		return users.PromoteResult{Matched: 1, Modified: 1}, nil
	}}

	req := withCaller(httptest.NewRequest(http.MethodPatch, "/api/users/admin/bob", nil), alice, map[string]string{"id": "bob"})
	rec := httptest.NewRecorder()
	UserPromote(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"matched":1,"modified":1}}`, rec.Body.String())
}

func TestUserRemoveNotFound(t *testing.T) {
	svc := stubUsersService{removeFn: func(_ context.Context, uid string) (users.RemoveReport, error) {
		return users.RemoveReport{UID: uid}, pkgerrors.Newf(pkgerrors.CodeNotFound, "user %s not found", uid)
	}}

	req := withCaller(httptest.NewRequest(http.MethodDelete, "/api/delete-user/ghost", nil), alice, map[string]string{"uid": "ghost"})
	rec := httptest.NewRecorder()
	UserRemove(svc, testLogger()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserRemovePartialFailureCarriesReport(t *testing.T) {
	svc := stubUsersService{removeFn: func(_ context.Context, uid string) (users.RemoveReport, error) {
		report := users.RemoveReport{UID: uid, DirectoryDeleted: true}
		return report, pkgerrors.New(pkgerrors.CodePartialFailure, "user removal partially failed").WithDetails(report)
	}}

	req := withCaller(httptest.NewRequest(http.MethodDelete, "/api/delete-user/bob", nil), alice, map[string]string{"uid": "bob"})
	rec := httptest.NewRecorder()
	UserRemove(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"directoryDeleted":true`)
}

func TestListsNeverReturnNull(t *testing.T) {
	svc := stubUsersService{
		listFn:         func(context.Context) ([]users.PublicUser, error) { return nil, nil },
		listAllFn:      func(context.Context) ([]users.UserDTO, error) { return nil, nil },
		listProviderFn: func(context.Context) ([]users.ProviderUser, error) { return nil, nil },
	}
	for name, h := range map[string]http.HandlerFunc{
		"public":   UserList(svc, testLogger()),
		"all":      AdminUserList(svc, testLogger()),
		"provider": ProviderUserList(svc, testLogger()),
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, withCaller(httptest.NewRequest(http.MethodGet, "/", nil), alice, nil))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
		})
	}
}
