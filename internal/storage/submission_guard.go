package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	submissionKeyPrefix = "submission:"
	submissionKeyTTL    = 2 * time.Minute
)

// RedisSubmissionGuard reserves a short-lived key per submission fingerprint
// so a double-clicked form produces one order instead of two. Reservations
// expire on their own; there is nothing to release.
type RedisSubmissionGuard struct {
	client *redis.Client
}

func NewRedisSubmissionGuard(client *redis.Client) *RedisSubmissionGuard {
	return &RedisSubmissionGuard{client: client}
}

// Reserve returns false when an identical submission was accepted within the
// reservation window.
func (g *RedisSubmissionGuard) Reserve(ctx context.Context, fingerprint string) (bool, error) {
	return g.client.SetNX(ctx, submissionKeyPrefix+fingerprint, 1, submissionKeyTTL).Result()
}
