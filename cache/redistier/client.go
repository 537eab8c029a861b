package redistier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrNoAddress indicates a Config without a Redis address.
var ErrNoAddress = errors.New("redistier: address is required")

// Config configures the Redis connection.
type Config struct {
	Address  string
	Password string
	DB       int

	// PoolSize defaults to 10.
	PoolSize int

	// Prefix namespaces every key and the invalidation channel.
	// Default: "qc:"
	Prefix string

	// DialTimeout bounds the connection check in NewClient. Default: 5s
	DialTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.Prefix == "" {
		c.Prefix = "qc:"
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
}

// NewClient connects to Redis and verifies the connection with PING.
func NewClient(cfg Config) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, ErrNoAddress
	}
	cfg.applyDefaults()

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Address,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

type keyspace string

func (p keyspace) entry(key string) string  { return string(p) + "e:" + key }
func (p keyspace) tag(tag string) string    { return string(p) + "t:" + tag }
func (p keyspace) tagsOf(key string) string { return string(p) + "k:" + key }
func (p keyspace) channel() string          { return string(p) + "invalidate" }

func prefixOf(prefix string) keyspace {
	if prefix == "" {
		prefix = "qc:"
	}
	return keyspace(prefix)
}
