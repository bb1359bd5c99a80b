package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lamaai/lama-api/internal/auth"
	"github.com/lamaai/lama-api/internal/chats"
	"github.com/lamaai/lama-api/internal/userchats"
	"github.com/lamaai/lama-api/internal/users"
	"github.com/lamaai/lama-api/pkg/config"
	"github.com/lamaai/lama-api/pkg/db"
	"github.com/lamaai/lama-api/pkg/db/models"
	"github.com/lamaai/lama-api/pkg/enums"
	"github.com/lamaai/lama-api/pkg/identity"
	"github.com/lamaai/lama-api/pkg/imagekit"
	"github.com/lamaai/lama-api/pkg/logger"
	"github.com/lamaai/lama-api/pkg/migrate"
)

type testServer struct {
	handler  http.Handler
	provider *identity.Local
	conn     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	migrations, err := migrate.NewRunner(sqlDB, migrate.Dialect(config.DBConfig{Driver: config.DBDriverSQLite}), migrate.Embedded(), logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	require.NoError(t, migrations.Up(context.Background()))

	cfg := &config.Config{
		App: config.AppConfig{Env: config.AppEnvDev, ClientURL: "http://localhost:5173"},
		Identity: config.IdentityConfig{
			Provider:      config.IdentityProviderLocal,
			RoleSource:    config.RoleSourceDirectory,
			LocalSecret:   "router-test-secret",
			LocalIssuer:   "lama-local",
			LocalTokenTTL: time.Hour,
		},
		ImageKit: config.ImageKitConfig{PrivateKey: "private_key_test", SignatureTTL: 30 * time.Minute},
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	provider, err := identity.NewLocal(cfg.Identity)
	require.NoError(t, err)

	chatRepo := chats.NewRepository(conn)
	indexRepo := userchats.NewRepository(conn)
	userRepo := users.NewRepository(conn)

	chatSvc, err := chats.NewService(chatRepo, indexRepo, logg)
	require.NoError(t, err)
	userSvc, err := users.NewService(users.ServiceParams{
		Directory: userRepo,
		Provider:  provider,
		Chats:     chatRepo,
		Index:     indexRepo,
		Logger:    logg,
	})
	require.NoError(t, err)
	resolver, err := auth.NewResolver(cfg.Identity.RoleSource, userRepo, provider)
	require.NoError(t, err)
	authz, err := auth.NewAuthorizer(resolver)
	require.NoError(t, err)

	handler := NewRouter(cfg, logg, db.FromGorm(conn), nil, Services{
		Verifier:   provider,
		Authorizer: authz,
		Chats:      chatSvc,
		Users:      userSvc,
		Uploads:    imagekit.NewSigner(cfg.ImageKit),
	})
	return &testServer{handler: handler, provider: provider, conn: conn}
}

func (s *testServer) register(t *testing.T, uid string, role enums.UserRole) string {
	t.Helper()
	email := uid + "@example.com"
	token, err := s.provider.Register(identity.Record{UID: uid, Email: email, DisplayName: uid})
	require.NoError(t, err)
	require.NoError(t, s.conn.Create(&models.User{
		UID:       uid,
		Name:      uid,
		Email:     email,
		Role:      role,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}).Error)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func data[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	return envelope.Data
}

func createChat(t *testing.T, s *testServer, token, text string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/chats", token, fmt.Sprintf(`{"text":%q}`, text))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return data[chats.CreateResponse](t, rec).ID.String()
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello Lama Ai Server", rec.Body.String())

	rec = s.do(t, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/upload", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var params imagekit.AuthParams
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &params))
	assert.NotContains(t, rec.Body.String(), `"data"`)
	assert.NotEmpty(t, params.Token)
	assert.Len(t, params.Signature, 40)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/userchats", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/userchats", "not-a-jwt", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/chats", "", `{"text":"Hello"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var count int64
	require.NoError(t, s.conn.Model(&models.ChatSession{}).Count(&count).Error)
	assert.Zero(t, count, "rejected requests must not write")
}

// Created chats show up in the index in insertion order.
func TestCreateChatsAppearInIndex(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "u1", enums.UserRoleUser)

	c1 := createChat(t, s, token, "Hello")
	rec := s.do(t, http.MethodGet, "/api/userchats", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"data":[{"chatId":%q,"title":"Hello"}]}`, c1), rec.Body.String())

	c2 := createChat(t, s, token, "Second")
	entries := data[[]userchats.Entry](t, s.do(t, http.MethodGet, "/api/userchats", token, ""))
	require.Len(t, entries, 2)
	assert.Equal(t, c1, entries[0].ChatID.String())
	assert.Equal(t, c2, entries[1].ChatID.String())
	assert.Equal(t, "Second", entries[1].Title)
}

// An exchange appends a user and a model turn.
func TestAppendExtendsHistory(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "u1", enums.UserRoleUser)
	c1 := createChat(t, s, token, "Hello")

	before := data[chats.ChatSession](t, s.do(t, http.MethodGet, "/api/chats/"+c1, token, ""))
	require.Len(t, before.History, 1)

	rec := s.do(t, http.MethodPut, "/api/chats/"+c1, token, `{"question":"Q","answer":"A"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"data":{"updated":true}}`, rec.Body.String())

	after := data[chats.ChatSession](t, s.do(t, http.MethodGet, "/api/chats/"+c1, token, ""))
	require.Len(t, after.History, len(before.History)+2)
	last := after.History[len(after.History)-1]
	assert.Equal(t, enums.TurnRoleModel, last.Role)
	assert.Equal(t, []chats.Part{{Text: "A"}}, last.Parts)
	assert.Equal(t, []chats.Part{{Text: "Q"}}, after.History[1].Parts)
}

// Another user cannot read or write someone else's chat.
func TestChatsAreOwnerScoped(t *testing.T) {
	s := newTestServer(t)
	owner := s.register(t, "u1", enums.UserRoleUser)
	intruder := s.register(t, "u2", enums.UserRoleUser)
	c1 := createChat(t, s, owner, "private")

	rec := s.do(t, http.MethodGet, "/api/chats/"+c1, intruder, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":null}`, rec.Body.String())

	rec = s.do(t, http.MethodPut, "/api/chats/"+c1, intruder, `{"answer":"hijack"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"updated":false,"reason":"not_found_or_forbidden"}}`, rec.Body.String())

	session := data[chats.ChatSession](t, s.do(t, http.MethodGet, "/api/chats/"+c1, owner, ""))
	assert.Len(t, session.History, 1)

	rec = s.do(t, http.MethodGet, "/api/chats/not-a-uuid", owner, "")
	assert.JSONEq(t, `{"data":null}`, rec.Body.String())
}

// Admin-only routes reject regular users.
func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	user := s.register(t, "u1", enums.UserRoleUser)
	admin := s.register(t, "root", enums.UserRoleAdmin)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/all-users"},
		{http.MethodGet, "/api/firebase-users"},
		{http.MethodPatch, "/api/users/admin/u1"},
		{http.MethodDelete, "/api/delete-user/u1"},
	} {
		rec := s.do(t, tc.method, tc.path, user, "")
		assert.Equal(t, http.StatusForbidden, rec.Code, tc.path)
	}

	rec := s.do(t, http.MethodGet, "/api/all-users", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, data[[]users.UserDTO](t, rec), 2)

	rec = s.do(t, http.MethodGet, "/api/firebase-users", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, data[[]users.ProviderUser](t, rec), 2)
}

func TestAdminSelfCheckAndPromote(t *testing.T) {
	s := newTestServer(t)
	user := s.register(t, "u1", enums.UserRoleUser)
	admin := s.register(t, "root", enums.UserRoleAdmin)

	rec := s.do(t, http.MethodGet, "/api/users/admin/root@example.com", admin, "")
	assert.JSONEq(t, `{"data":{"admin":true}}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/users/admin/root@example.com", user, "")
	assert.JSONEq(t, `{"data":{"admin":false}}`, rec.Body.String(), "self-check only answers for the caller")

	rec = s.do(t, http.MethodPatch, "/api/users/admin/u1", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"matched":1,"modified":1}}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/users/admin/u1@example.com", user, "")
	assert.JSONEq(t, `{"data":{"admin":true}}`, rec.Body.String())
}

func TestUserUpsertAndPublicList(t *testing.T) {
	s := newTestServer(t)
	token, err := s.provider.Register(identity.Record{UID: "new", Email: "new@example.com"})
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, "/api/users", token, `{"name":"Newcomer"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, data[users.UpsertResult](t, rec).Created)

	rec = s.do(t, http.MethodPost, "/api/users", token, `{"name":"Newcomer"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	result := data[users.UpsertResult](t, rec)
	assert.False(t, result.Created)
	assert.Equal(t, users.MessageAlreadyExists, result.Message)

	list := data[[]users.PublicUser](t, s.do(t, http.MethodGet, "/api/users", token, ""))
	require.Len(t, list, 1)
	assert.Equal(t, "new@example.com", list[0].Email)
}

func TestUserUpsertCannotClaimAnotherEmail(t *testing.T) {
	s := newTestServer(t)
	noEmail, err := s.provider.Register(identity.Record{UID: "anon"})
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, "/api/users", noEmail, `{"name":"Squatter","email":"victim@example.com"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	other := s.register(t, "u1", enums.UserRoleUser)
	rec = s.do(t, http.MethodPost, "/api/users", other, `{"name":"u1","email":"victim@example.com"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	var count int64
	require.NoError(t, s.conn.Model(&models.User{}).Where("LOWER(email) = ?", "victim@example.com").Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeleteUserCascades(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, "root", enums.UserRoleAdmin)
	victim := s.register(t, "u1", enums.UserRoleUser)
	createChat(t, s, victim, "doomed")

	rec := s.do(t, http.MethodDelete, "/api/delete-user/u1", admin, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := data[users.RemoveReport](t, rec)
	assert.True(t, report.IdentityDeleted)
	assert.True(t, report.DirectoryDeleted)
	assert.Equal(t, int64(1), report.ChatsPurged)
	assert.Equal(t, int64(1), report.IndexPurged)

	rec = s.do(t, http.MethodGet, "/api/userchats", victim, "")
	assert.Equal(t, http.StatusForbidden, rec.Code, "deleted accounts can no longer authenticate")

	rec = s.do(t, http.MethodDelete, "/api/delete-user/u1", admin, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
