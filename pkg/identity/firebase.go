package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/lamaai/lama-api/pkg/config"
	"github.com/lamaai/lama-api/pkg/logger"
)

// authClient is the subset of the Firebase Admin auth client in use.
type authClient interface {
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*auth.Token, error)
	GetUserByEmail(ctx context.Context, email string) (*auth.UserRecord, error)
	Users(ctx context.Context, nextPageToken string) *auth.UserIterator
	DeleteUser(ctx context.Context, uid string) error
}

// Firebase verifies ID tokens and manages accounts through the Admin SDK.
type Firebase struct {
	client authClient
}

// NewFirebase boots a Firebase app from a service account file or inline JSON.
func NewFirebase(ctx context.Context, cfg config.IdentityConfig, logg *logger.Logger) (*Firebase, error) {
	var opts []option.ClientOption
	switch {
	case cfg.FirebaseCredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.FirebaseCredentialsJSON)))
	case cfg.FirebaseCredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}

	var appCfg *firebase.Config
	if cfg.FirebaseProjectID != "" {
		appCfg = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}

	app, err := firebase.NewApp(ctx, appCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase auth: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "project_id", cfg.FirebaseProjectID), "firebase identity provider ready")
	}
	return &Firebase{client: client}, nil
}

// Verify also rejects tokens of revoked sessions and disabled or deleted
// accounts, at the cost of one Admin API lookup per request.
func (f *Firebase) Verify(ctx context.Context, token string) (Identity, error) {
	decoded, err := f.client.VerifyIDTokenAndCheckRevoked(ctx, token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	email, _ := decoded.Claims["email"].(string)
	return Identity{
		UID:    decoded.UID,
		Email:  email,
		Claims: decoded.Claims,
	}, nil
}

func (f *Firebase) LookupByEmail(ctx context.Context, email string) (Record, error) {
	user, err := f.client.GetUserByEmail(ctx, email)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return Record{}, ErrUserNotFound
		}
		return Record{}, fmt.Errorf("get firebase user by email: %w", err)
	}
	return recordFromFirebase(user), nil
}

func (f *Firebase) ListAll(ctx context.Context) ([]Record, error) {
	records := make([]Record, 0)
	iter := f.client.Users(ctx, "")
	for {
		user, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list firebase users: %w", err)
		}
		records = append(records, recordFromFirebase(user.UserRecord))
	}
	return records, nil
}

func (f *Firebase) Delete(ctx context.Context, uid string) error {
	if err := f.client.DeleteUser(ctx, uid); err != nil {
		if auth.IsUserNotFound(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete firebase user: %w", err)
	}
	return nil
}

func recordFromFirebase(user *auth.UserRecord) Record {
	if user == nil || user.UserInfo == nil {
		return Record{}
	}
	return Record{
		UID:          user.UID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		PhotoURL:     user.PhotoURL,
		CustomClaims: user.CustomClaims,
	}
}
