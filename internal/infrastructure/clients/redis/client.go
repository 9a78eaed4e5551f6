package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
	"github.com/zatekoja/Medicalreportanalysis/backend/pkg/config"
	"github.com/zatekoja/Medicalreportanalysis/backend/pkg/retry"
)

// Redis is optional for the API, so startup gives up quickly and falls back
// to in-process components.
var connectRetry = retry.Config{
	MaxAttempts:    3,
	InitialDelay:   200 * time.Millisecond,
	MaxDelay:       time.Second,
	BackoffFactor:  2.0,
	AttemptTimeout: 2 * time.Second,
}

// Client wraps the go-redis client shared by the cache adapter, the rate
// limiter and the event bus
type Client struct {
	client *redis.Client
}

// NewClient connects to Redis, retrying the initial ping a few times
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	logger := observability.GetLogger()
	err := retry.Do(logger.WithContext(ctx), connectRetry, "Redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info().Str("addr", cfg.RedisAddr()).Msg("Successfully connected to Redis")
	return &Client{client: client}, nil
}

// Client returns the underlying Redis client
func (c *Client) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}
