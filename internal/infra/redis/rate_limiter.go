package redis

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RateLimiter throttles login and signup attempts with a fixed window
// (INCR + EXPIRE). It fails open: a redis outage never blocks sign-in.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		err = r.client.Expire(ctx, key, window)
		if err != nil {
			return false, err
		}
	}

	if count > int64(limit) {
		return false, nil
	}

	return true, nil
}

// AuthAttemptKey buckets auth attempts per action and email.
func AuthAttemptKey(action, email string) string {
	return fmt.Sprintf("rate_limit:%s:%s", action, strings.ToLower(strings.TrimSpace(email)))
}
