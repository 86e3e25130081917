package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "warfront"
	dialCheck     = 5 * time.Second
)

// Client keeps live run state in Redis. Every key lives under a prefix so
// several deployments can share a database.
type Client struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithPrefix sets the key namespace. Empty keeps the default.
func WithPrefix(prefix string) Option {
	return func(c *Client) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithTTL expires a run's keys after d without writes. Zero keeps them.
func WithTTL(d time.Duration) Option {
	return func(c *Client) { c.ttl = d }
}

// NewClient connects to the Redis at redisURL and checks it answers.
func NewClient(ctx context.Context, redisURL string, opts ...Option) (*Client, error) {
	ro, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	ro.ClientName = defaultPrefix
	c := NewClientFromPool(redis.NewClient(ro), opts...)

	pingCtx, cancel := context.WithTimeout(ctx, dialCheck)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		c.rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", ro.Addr, err)
	}
	return c, nil
}

// NewClientFromPool wraps an existing connection, as the integration tests do.
func NewClientFromPool(rdb *redis.Client, opts ...Option) *Client {
	c := &Client{rdb: rdb, prefix: defaultPrefix}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) key(runID, kind string) string {
	return c.prefix + ":run:" + runID + ":" + kind
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection, for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
