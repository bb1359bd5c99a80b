package identity

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lamaai/lama-api/pkg/auth"
	"github.com/lamaai/lama-api/pkg/config"
	"github.com/lamaai/lama-api/pkg/enums"
)

// Local is a self-contained provider backed by HS256 tokens and an in-memory
// account registry. It exists for development and tests.
type Local struct {
	signer *auth.Signer
	now    func() time.Time

	mu       sync.RWMutex
	accounts map[string]Record
}

func NewLocal(cfg config.IdentityConfig) (*Local, error) {
	if cfg.LocalIssuer == "" {
		cfg.LocalIssuer = "lama-local"
	}
	if cfg.LocalTokenTTL <= 0 {
		cfg.LocalTokenTTL = time.Hour
	}
	signer, err := auth.NewSigner(cfg)
	if err != nil {
		return nil, fmt.Errorf("local identity provider: %w", err)
	}
	return &Local{
		signer:   signer,
		now:      time.Now,
		accounts: make(map[string]Record),
	}, nil
}

// Register adds or replaces an account and returns a freshly minted ID token for it.
func (l *Local) Register(record Record) (string, error) {
	if record.UID == "" {
		return "", fmt.Errorf("uid is required")
	}
	l.mu.Lock()
	l.accounts[record.UID] = record
	l.mu.Unlock()
	return l.MintToken(record.UID)
}

// MintToken issues an ID token for a registered account.
func (l *Local) MintToken(uid string) (string, error) {
	l.mu.RLock()
	record, ok := l.accounts[uid]
	l.mu.RUnlock()
	if !ok {
		return "", ErrUserNotFound
	}
	return l.signer.Mint(l.now(), auth.IDTokenPayload{
		UID:   record.UID,
		Email: record.Email,
		Role:  enums.UserRole(record.Role()),
	})
}

func (l *Local) Verify(_ context.Context, token string) (Identity, error) {
	claims, err := l.signer.Parse(token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	l.mu.RLock()
	_, known := l.accounts[claims.UID()]
	l.mu.RUnlock()
	if !known {
		return Identity{}, fmt.Errorf("%w: account %s revoked", ErrInvalidToken, claims.UID())
	}

	return Identity{
		UID:    claims.UID(),
		Email:  claims.Email,
		Claims: claims.AsMap(),
	}, nil
}

func (l *Local) LookupByEmail(_ context.Context, email string) (Record, error) {
	target := normalizeEmail(email)
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, record := range l.accounts {
		if normalizeEmail(record.Email) == target {
			return record, nil
		}
	}
	return Record{}, ErrUserNotFound
}

func (l *Local) ListAll(_ context.Context) ([]Record, error) {
	l.mu.RLock()
	records := make([]Record, 0, len(l.accounts))
	for _, record := range l.accounts {
		records = append(records, record)
	}
	l.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool { return records[i].UID < records[j].UID })
	return records, nil
}

func (l *Local) Delete(_ context.Context, uid string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.accounts[uid]; !ok {
		return ErrUserNotFound
	}
	delete(l.accounts, uid)
	return nil
}
