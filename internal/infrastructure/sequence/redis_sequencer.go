// Package sequence provides the sequence backends behind document
// number generation: a Redis counter for distributed deployments and a
// count-based fallback that needs nothing but the database.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/salesflow/backend/internal/domain/document"
	"github.com/salesflow/backend/internal/infrastructure/config"
)

// keyTTL is how long a period counter lives. Periods are months, so two
// months is enough for any in-flight generation against the old period.
const keyTTL = 62 * 24 * time.Hour

// RedisSequencer yields document sequence numbers from a Redis counter
// per prefix and period. INCR is atomic, so instances sharing the Redis
// never hand out the same sequence twice within a period.
type RedisSequencer struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisSequencer creates a sequencer with its own Redis connection
func NewRedisSequencer(cfg *config.RedisConfig) (*RedisSequencer, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSequencerWithClient(client), nil
}

// NewRedisSequencerWithClient creates a sequencer with an existing Redis client
// This is useful for testing or when sharing a client across components
func NewRedisSequencerWithClient(client *redis.Client) *RedisSequencer {
	return &RedisSequencer{
		client:    client,
		keyPrefix: "document:sequence:",
	}
}

// Next returns the next sequence number for the prefix and period.
// The counter key expires after the period can no longer be generated
// against, so stale months clean themselves up.
func (s *RedisSequencer) Next(ctx context.Context, prefix, period string) (int64, error) {
	key := fmt.Sprintf("%s%s:%s", s.keyPrefix, prefix, period)

	seq, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence %s: %w", key, err)
	}
	if seq == 1 {
		// First use of this period; TTL failures only delay cleanup.
		s.client.Expire(ctx, key, keyTTL)
	}
	return seq, nil
}

// Close closes the Redis client
func (s *RedisSequencer) Close() error {
	return s.client.Close()
}

// Ensure RedisSequencer implements document.Sequencer
var _ document.Sequencer = (*RedisSequencer)(nil)
