package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/danghamo/posture/pkg/logger"
)

const connectTimeout = 5 * time.Second

// Client wraps redis.Client with logging and health checks
type Client struct {
	*redis.Client
	url    string
	logger *logger.Logger
}

// NewClient creates a Redis client from URL and verifies the connection
func NewClient(redisURL string, log *logger.Logger) (*Client, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis URL cannot be empty")
	}

	if log == nil {
		log = logger.GetGlobalLogger()
	}

	redisOptions, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := &Client{
		Client: redis.NewClient(redisOptions),
		url:    redisURL,
		logger: log.WithComponent("redisx"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	client.logger.Info("Redis client connected successfully",
		zap.String("addr", redisOptions.Addr),
		zap.Int("db", redisOptions.DB),
		zap.Int("pool_size", redisOptions.PoolSize),
	)

	return client, nil
}

// Close closes the Redis client connection
func (c *Client) Close() error {
	c.logger.Info("Closing Redis connection")
	return c.Client.Close()
}

// HealthCheck performs a health check on the Redis connection
func (c *Client) HealthCheck(ctx context.Context) error {
	start := time.Now()
	err := c.Ping(ctx).Err()
	duration := time.Since(start)

	if err != nil {
		c.logger.Error("Redis health check failed",
			zap.Error(err),
			zap.Duration("duration", duration),
		)
		return err
	}

	c.logger.Debug("Redis health check passed", zap.Duration("duration", duration))

	return nil
}
