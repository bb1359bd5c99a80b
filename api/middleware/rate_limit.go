package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lamaai/lama-api/api/responses"
	pkgerrors "github.com/lamaai/lama-api/pkg/errors"
	"github.com/lamaai/lama-api/pkg/logger"
)

// RateLimitStore is the fixed-window counter surface of pkg/redis.
type RateLimitStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// ChatWritePolicy caps chat writes per caller within a fixed window.
type ChatWritePolicy struct {
	Window time.Duration
	Limit  int64
}

// ChatWriteRateLimit must run after VerifyToken. Requests are keyed by uid and
// fall back to the client IP. A failing counter store lets the request through.
func ChatWriteRateLimit(policy ChatWritePolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || policy.Limit <= 0 || policy.Window <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := UserIDFromContext(r.Context())
			if subject == "" {
				subject = "ip:" + clientIP(r)
			}
			scope := "chat_write:" + subject

			allowed, _, err := store.FixedWindowAllow(r.Context(), scope, policy.Limit, policy.Window)
			if err != nil {
				if logg != nil {
					logg.Warn(r.Context(), "rate limit check failed: "+err.Error())
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				respondRateLimited(w, r, logg, policy.Window)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func respondRateLimited(w http.ResponseWriter, r *http.Request, logg *logger.Logger, window time.Duration) {
	if secs := int(window.Seconds()); secs > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
