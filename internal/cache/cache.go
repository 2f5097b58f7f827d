// Package cache holds the Redis-backed short-lived state: placement
// idempotency keys and processed webhook markers.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kartcore/internal/config"
	"kartcore/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	keyIdempotency = "idem:order:place:%s:%s"
	keyWebhook     = "dedup:webhook:%s"

	// pendingMarker is stored while the first request for a key is running.
	pendingMarker = "-"
	// pendingTTL bounds how long a crashed request can block its key.
	pendingTTL = time.Minute
)

// IdempotencyStore remembers which order a placement request produced.
type IdempotencyStore interface {
	// Claim reserves key for userID. When the key was already claimed it
	// returns the stored order number, or ErrRequestInProgress while the
	// first request is still running.
	Claim(ctx context.Context, userID, key string) (orderNumber string, claimed bool, err error)

	// Complete stores the order number produced for a claimed key.
	Complete(ctx context.Context, userID, key, orderNumber string) error

	// Abandon drops a claim so the client may retry.
	Abandon(ctx context.Context, userID, key string) error
}

// WebhookDeduper remembers webhooks that were fully processed.
type WebhookDeduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("redis connection established")
	return client, nil
}

type redisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewIdempotencyStore creates a Redis-backed idempotency store.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) IdempotencyStore {
	return &redisIdempotencyStore{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "idempotency").Logger(),
	}
}

func (s *redisIdempotencyStore) Claim(ctx context.Context, userID, key string) (string, bool, error) {
	k := fmt.Sprintf(keyIdempotency, userID, key)

	ok, err := s.client.SetNX(ctx, k, pendingMarker, pendingTTL).Result()
	if err != nil {
		s.logger.Error().Err(err).Str("key", k).Msg("failed to claim idempotency key")
		return "", false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if ok {
		return "", true, nil
	}

	number, err := s.client.Get(ctx, k).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired between SETNX and GET.
			return s.Claim(ctx, userID, key)
		}
		s.logger.Error().Err(err).Str("key", k).Msg("failed to read idempotency key")
		return "", false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if number == pendingMarker {
		return "", false, model.ErrRequestInProgress
	}
	return number, false, nil
}

func (s *redisIdempotencyStore) Complete(ctx context.Context, userID, key, orderNumber string) error {
	k := fmt.Sprintf(keyIdempotency, userID, key)
	if err := s.client.Set(ctx, k, orderNumber, s.ttl).Err(); err != nil {
		s.logger.Error().Err(err).Str("key", k).Msg("failed to store idempotency key")
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}

func (s *redisIdempotencyStore) Abandon(ctx context.Context, userID, key string) error {
	k := fmt.Sprintf(keyIdempotency, userID, key)
	if err := s.client.Del(ctx, k).Err(); err != nil {
		s.logger.Error().Err(err).Str("key", k).Msg("failed to drop idempotency key")
		return fmt.Errorf("failed to drop idempotency key: %w", err)
	}
	return nil
}

type redisWebhookDeduper struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewWebhookDeduper creates a Redis-backed webhook deduper.
func NewWebhookDeduper(client *redis.Client, ttl time.Duration, logger zerolog.Logger) WebhookDeduper {
	return &redisWebhookDeduper{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "webhook_dedup").Logger(),
	}
}

func (d *redisWebhookDeduper) Seen(ctx context.Context, key string) (bool, error) {
	n, err := d.client.Exists(ctx, fmt.Sprintf(keyWebhook, key)).Result()
	if err != nil {
		d.logger.Error().Err(err).Str("key", key).Msg("failed to check webhook marker")
		return false, fmt.Errorf("failed to check webhook marker: %w", err)
	}
	return n > 0, nil
}

func (d *redisWebhookDeduper) Mark(ctx context.Context, key string) error {
	if err := d.client.Set(ctx, fmt.Sprintf(keyWebhook, key), "1", d.ttl).Err(); err != nil {
		d.logger.Error().Err(err).Str("key", key).Msg("failed to store webhook marker")
		return fmt.Errorf("failed to store webhook marker: %w", err)
	}
	return nil
}

// NoopIdempotencyStore claims every key and remembers nothing.
type NoopIdempotencyStore struct{}

func (NoopIdempotencyStore) Claim(context.Context, string, string) (string, bool, error) {
	return "", true, nil
}
func (NoopIdempotencyStore) Complete(context.Context, string, string, string) error { return nil }
func (NoopIdempotencyStore) Abandon(context.Context, string, string) error          { return nil }

// NoopWebhookDeduper never reports a webhook as seen.
type NoopWebhookDeduper struct{}

func (NoopWebhookDeduper) Seen(context.Context, string) (bool, error) { return false, nil }
func (NoopWebhookDeduper) Mark(context.Context, string) error         { return nil }
