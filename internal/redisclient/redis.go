// Package redisclient opens the redis connection shared by the components that
// need one, today only the redis rate limit backend.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/mergington/activity-signup/internal/config"
	"github.com/redis/go-redis/v9"
)

// Client wraps a go-redis client.
type Client struct {
	*redis.Client
}

// New creates a client for cfg. go-redis dials lazily, so New never fails on an
// unreachable server; call Ping to check.
func New(cfg config.RedisConfig) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	return &Client{Client: rdb}
}

// Ping checks that redis answers.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close releases the connection pool. It is safe on a nil receiver.
func (c *Client) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
