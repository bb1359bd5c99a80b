// Package imagekit issues the client-side upload authentication parameters
// ImageKit expects: a one-time token, an expiry and an HMAC-SHA1 signature.
package imagekit

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/lamaai/lama-api/pkg/config"
)

const defaultTTL = 30 * time.Minute

var ErrMissingPrivateKey = errors.New("imagekit private key is not configured")

// AuthParams is the payload returned to the browser uploader.
type AuthParams struct {
	Token     string `json:"token"`
	Expire    int64  `json:"expire"`
	Signature string `json:"signature"`
}

type Signer struct {
	privateKey []byte
	ttl        time.Duration
	now        func() time.Time
	newToken   func() string
}

func NewSigner(cfg config.ImageKitConfig) *Signer {
	ttl := cfg.SignatureTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Signer{
		privateKey: []byte(cfg.PrivateKey),
		ttl:        ttl,
		now:        time.Now,
		newToken:   uuid.NewString,
	}
}

// AuthenticationParameters mints a fresh token valid for the configured TTL.
func (s *Signer) AuthenticationParameters() (AuthParams, error) {
	if len(s.privateKey) == 0 {
		return AuthParams{}, ErrMissingPrivateKey
	}
	token := s.newToken()
	expire := s.now().Add(s.ttl).Unix()
	return AuthParams{
		Token:     token,
		Expire:    expire,
		Signature: s.sign(token, expire),
	}, nil
}

func (s *Signer) sign(token string, expire int64) string {
	mac := hmac.New(sha1.New, s.privateKey)
	mac.Write([]byte(token + strconv.FormatInt(expire, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
