package redis

import (
	"context"
	"time"
)

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.cmds == nil {
		return "", errNotInitialized
	}
	return c.cmds.Get(ctx, key).Result()
}

// Set overwrites key. A zero ttl keeps the value until deleted.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.cmds == nil {
		return errNotInitialized
	}
	return c.cmds.Set(ctx, key, value, ttl).Err()
}

// SetNX writes key only when it is absent and reports whether it won.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.cmds == nil {
		return false, errNotInitialized
	}
	return c.cmds.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.cmds == nil {
		return errNotInitialized
	}
	if len(keys) == 0 {
		return nil
	}
	return c.cmds.Del(ctx, keys...).Err()
}

// FixedWindowAllow counts a hit against scope in the clock-aligned window that
// contains now. Every window gets its own key, so a counter never outlives its
// window even if the expire call is lost.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if c.cmds == nil {
		return false, 0, errNotInitialized
	}
	if window <= 0 {
		window = time.Minute
	}
	now := c.clock()
	key := c.RateLimitKey(scope, now, window)

	count, err := c.cmds.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if count == 1 {
		// One extra second keeps the key alive across small clock skew between replicas.
		if err := c.cmds.Expire(ctx, key, windowRemaining(now, window)+time.Second).Err(); err != nil {
			return count <= limit, count, err
		}
	}
	return count <= limit, count, nil
}

func (c *Client) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

func windowRemaining(now time.Time, window time.Duration) time.Duration {
	return now.Truncate(window).Add(window).Sub(now)
}
