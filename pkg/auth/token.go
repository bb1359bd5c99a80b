package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lamaai/lama-api/pkg/config"
)

var (
	ErrMissingSecret = errors.New("local token secret is required")
	ErrMissingUID    = errors.New("token uid is required")
)

// Signer mints and checks HS256 ID tokens for the local identity provider.
type Signer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
}

func NewSigner(cfg config.IdentityConfig) (*Signer, error) {
	if cfg.LocalSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.LocalIssuer == "" {
		return nil, errors.New("local token issuer is required")
	}
	if cfg.LocalTokenTTL <= 0 {
		return nil, fmt.Errorf("local token ttl must be positive, got %s", cfg.LocalTokenTTL)
	}
	return &Signer{
		key:    []byte(cfg.LocalSecret),
		issuer: cfg.LocalIssuer,
		ttl:    cfg.LocalTokenTTL,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.LocalIssuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
	}, nil
}

// Mint signs a token for payload that is valid from issuedAt for the configured ttl.
func (s *Signer) Mint(issuedAt time.Time, payload IDTokenPayload) (string, error) {
	uid := strings.TrimSpace(payload.UID)
	if uid == "" {
		return "", ErrMissingUID
	}
	if payload.Role != "" && !payload.Role.IsValid() {
		return "", fmt.Errorf("invalid user role %q", payload.Role)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, IDTokenClaims{
		Email: strings.TrimSpace(payload.Email),
		Role:  payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   uid,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
		},
	}).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("signing id token: %w", err)
	}
	return signed, nil
}

// Parse checks signature, issuer and expiry and returns the claims of a subject-bearing token.
func (s *Signer) Parse(raw string) (*IDTokenClaims, error) {
	claims := &IDTokenClaims{}
	if _, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	}); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, ErrMissingUID
	}
	return claims, nil
}
