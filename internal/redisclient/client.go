package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"furniture-orders/internal/models"

	"github.com/go-redis/redis/v8"
)

const slaDefaultsKey = "sla:defaults"

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and checks the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewFromRedis(rdb), nil
}

// NewFromRedis wraps an existing go-redis client without pinging it
func NewFromRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Ping checks the connection, used by the readiness probe
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetSlaDefaults returns the cached global thresholds.
// found is false on a cache miss; a cached "no defaults" comes back as (nil, true).
func (c *Client) GetSlaDefaults(ctx context.Context) (sla *models.StatusSla, found bool, err error) {
	raw, err := c.rdb.Get(ctx, slaDefaultsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var cached models.StatusSla
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached SLA defaults: %w", err)
	}
	return cached.Normalize(), true, nil
}

// SetSlaDefaults caches the global thresholds with TTL
func (c *Client) SetSlaDefaults(ctx context.Context, sla *models.StatusSla, ttl time.Duration) error {
	raw, err := json.Marshal(sla.Normalize())
	if err != nil {
		return err
	}
	if string(raw) == "null" {
		raw = []byte("{}")
	}
	return c.rdb.Set(ctx, slaDefaultsKey, raw, ttl).Err()
}

// InvalidateSlaDefaults drops the cached thresholds
func (c *Client) InvalidateSlaDefaults(ctx context.Context) error {
	return c.rdb.Del(ctx, slaDefaultsKey).Err()
}

// SetIdempotencyKey stores the order created for an idempotency key with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, orderID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), orderID, ttl).Err()
}

// GetIdempotencyKey returns the order created for an idempotency key, if any
func (c *Client) GetIdempotencyKey(ctx context.Context, key string) (int64, bool, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	orderID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt idempotency entry %q: %w", key, err)
	}
	return orderID, true, nil
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
