package redis

import (
	"strconv"
	"strings"
	"time"
)

const (
	keyNamespace      = "lama"
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
	lockPrefix        = "lock"
)

// IdempotencyKey is lama:idempotency:<scope>:<client key>.
func (c *Client) IdempotencyKey(scope, id string) string {
	return joinKey(idempotencyPrefix, scope, id)
}

// RateLimitKey names the counter for scope in the window containing at,
// suffixed with the window start in unix seconds.
func (c *Client) RateLimitKey(scope string, at time.Time, window time.Duration) string {
	return joinKey(rateLimitPrefix, scope, strconv.FormatInt(at.Truncate(window).Unix(), 10))
}

func (c *Client) LockKey(name string) string {
	return joinKey(lockPrefix, name)
}

func joinKey(parts ...string) string {
	segments := make([]string, 0, len(parts)+1)
	segments = append(segments, keyNamespace)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			segments = append(segments, part)
		}
	}
	return strings.Join(segments, ":")
}
