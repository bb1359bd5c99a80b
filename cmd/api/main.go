package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lamaai/lama-api/api/routes"
	"github.com/lamaai/lama-api/internal/auth"
	"github.com/lamaai/lama-api/internal/chats"
	"github.com/lamaai/lama-api/internal/userchats"
	"github.com/lamaai/lama-api/internal/users"
	"github.com/lamaai/lama-api/pkg/config"
	"github.com/lamaai/lama-api/pkg/db"
	"github.com/lamaai/lama-api/pkg/db/models"
	"github.com/lamaai/lama-api/pkg/identity"
	"github.com/lamaai/lama-api/pkg/imagekit"
	"github.com/lamaai/lama-api/pkg/logger"
	"github.com/lamaai/lama-api/pkg/migrate"
	"github.com/lamaai/lama-api/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	printTokens := flag.Bool("print-local-tokens", false, "dev only: print an ID token for every seeded local account to stdout")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	userRepo := users.NewRepository(dbClient.DB())
	chatRepo := chats.NewRepository(dbClient.DB())
	indexRepo := userchats.NewRepository(dbClient.DB())

	var tokensOut io.Writer
	if *printTokens {
		if cfg.App.IsDev() {
			tokensOut = os.Stdout
		} else {
			logg.Warn(ctx, "-print-local-tokens is ignored outside dev")
		}
	}
	provider, err := newIdentityProvider(ctx, cfg, logg, userRepo, tokensOut)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap identity provider", err)
		os.Exit(1)
	}

	chatService, err := chats.NewService(chatRepo, indexRepo, logg)
	if err != nil {
		logg.Error(ctx, "failed to create chats service", err)
		os.Exit(1)
	}
	userService, err := users.NewService(users.ServiceParams{
		Directory: userRepo,
		Provider:  provider,
		Chats:     chatRepo,
		Index:     indexRepo,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create users service", err)
		os.Exit(1)
	}
	resolver, err := auth.NewResolver(cfg.Identity.RoleSource, userRepo, provider)
	if err != nil {
		logg.Error(ctx, "failed to create role resolver", err)
		os.Exit(1)
	}
	authorizer, err := auth.NewAuthorizer(resolver)
	if err != nil {
		logg.Error(ctx, "failed to create authorizer", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":               cfg.App.Env,
		"addr":              addr,
		"identity_provider": cfg.Identity.Provider,
		"role_source":       cfg.Identity.RoleSource,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, routes.Services{
			Verifier:   provider,
			Authorizer: authorizer,
			Chats:      chatService,
			Users:      userService,
			Uploads:    imagekit.NewSigner(cfg.ImageKit),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server stopped")
	}
}

// newIdentityProvider builds the configured provider. The local provider keeps
// accounts in memory, so it is seeded from the user directory.
func newIdentityProvider(ctx context.Context, cfg *config.Config, logg *logger.Logger, directory *users.Repository, tokensOut io.Writer) (identity.Provider, error) {
	if !cfg.Identity.IsLocal() {
		fb, err := identity.NewFirebase(ctx, cfg.Identity, logg)
		if err != nil {
			return nil, err
		}
		return fb, nil
	}

	local, err := identity.NewLocal(cfg.Identity)
	if err != nil {
		return nil, err
	}
	records, err := directory.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := seedLocalIdentity(ctx, logg, local, records, tokensOut); err != nil {
		return nil, err
	}
	return local, nil
}

// seedLocalIdentity registers every directory record with the local provider.
// Minted tokens are credentials: they only go to tokensOut, never to the log.
func seedLocalIdentity(ctx context.Context, logg *logger.Logger, local *identity.Local, records []models.User, tokensOut io.Writer) error {
	for _, rec := range records {
		record := identity.Record{
			UID:          rec.UID,
			Email:        rec.Email,
			DisplayName:  rec.Name,
			CustomClaims: map[string]any{"role": string(rec.Role)},
		}
		if rec.PhotoURL != nil {
			record.PhotoURL = *rec.PhotoURL
		}
		token, err := local.Register(record)
		if err != nil {
			return fmt.Errorf("seeding local account %s: %w", rec.UID, err)
		}
		logg.Debug(logg.WithField(ctx, "uid", rec.UID), "local identity seeded")
		if tokensOut != nil {
			fmt.Fprintf(tokensOut, "%s\t%s\t%s\n", rec.UID, rec.Email, token)
		}
	}
	logg.Info(logg.WithField(ctx, "accounts", len(records)), "local identity provider ready")
	return nil
}
