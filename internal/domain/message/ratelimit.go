package message

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	rateLimitMax    = 30
	rateLimitWindow = time.Minute
)

// RateLimiter caps how many messages a user may send per window. It is
// fail-open: if redis is down or not configured, sends are allowed.
type RateLimiter struct {
	client *redis.Client
}

// NewRateLimiter creates a rate limiter; client may be nil.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow reports whether the user may send another message right now.
func (rl *RateLimiter) Allow(ctx context.Context, userID uuid.UUID) bool {
	if rl == nil || rl.client == nil {
		return true
	}

	key := fmt.Sprintf("ratelimit:messages:%s", userID)

	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		log.Warn().Err(err).Msg("Rate limiter unavailable, allowing send")
		return true
	}
	if count == 1 {
		if err := rl.client.Expire(ctx, key, rateLimitWindow).Err(); err != nil {
			log.Warn().Err(err).Msg("Failed to set rate limit window")
		}
	}

	return count <= rateLimitMax
}
