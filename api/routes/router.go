package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lamaai/lama-api/api/controllers"
	"github.com/lamaai/lama-api/api/middleware"
	"github.com/lamaai/lama-api/internal/chats"
	"github.com/lamaai/lama-api/internal/users"
	"github.com/lamaai/lama-api/pkg/config"
	"github.com/lamaai/lama-api/pkg/logger"
	pkgredis "github.com/lamaai/lama-api/pkg/redis"
)

// RedisStore is the redis surface the HTTP layer uses. It may be nil, in which
// case idempotency replay and rate limiting are disabled.
type RedisStore interface {
	pkgredis.IdempotencyStore
	middleware.RateLimitStore
	Ping(ctx context.Context) error
}

// Services groups the domain dependencies behind the API.
type Services struct {
	Verifier   middleware.TokenVerifier
	Authorizer middleware.RoleAuthorizer
	Chats      chats.Service
	Users      users.Service
	Uploads    controllers.UploadSigner
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisStore RedisStore,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.ClientURL),
	)

	var (
		idemStore pkgredis.IdempotencyStore
		rateStore middleware.RateLimitStore
		readyDeps = map[string]controllers.Pinger{"db": dbP}
	)
	if redisStore != nil {
		idemStore = redisStore
		rateStore = redisStore
		readyDeps["redis"] = redisStore
	}

	chatWrites := chi.Chain(
		middleware.ChatWriteRateLimit(middleware.ChatWritePolicy{
			Window: cfg.RateLimit.ChatWindow,
			Limit:  int64(cfg.RateLimit.ChatLimit),
		}, rateStore, logg),
		middleware.Idempotency(idemStore, logg),
	)

	r.Get("/", controllers.Root())

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyDeps))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", controllers.UploadAuth(svc.Uploads, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.VerifyToken(svc.Verifier, logg))

			r.With(chatWrites...).Post("/chats", controllers.ChatCreate(svc.Chats, logg))
			r.Get("/userchats", controllers.ChatList(svc.Chats, logg))
			r.Get("/chats/{id}", controllers.ChatDetail(svc.Chats, logg))
			r.With(chatWrites...).Put("/chats/{id}", controllers.ChatAppend(svc.Chats, logg))

			r.Get("/users", controllers.UserList(svc.Users, logg))
			r.Post("/users", controllers.UserUpsert(svc.Users, logg))
			r.Get("/users/admin/{id}", controllers.UserAdminStatus(svc.Users, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(svc.Authorizer, logg))
				r.Patch("/users/admin/{id}", controllers.UserPromote(svc.Users, logg))
				r.Get("/all-users", controllers.AdminUserList(svc.Users, logg))
				r.Get("/firebase-users", controllers.ProviderUserList(svc.Users, logg))
				r.Delete("/delete-user/{uid}", controllers.UserRemove(svc.Users, logg))
			})
		})
	})

	return r
}
