package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"verification-service/internal/models"

	"github.com/go-redis/redis/v8"
)

// Client wraps Redis for the two side concerns the core keeps outside the
// ledger rows: per-tenant unviewed-notification counters and a short-lived
// cache of tenant gate state.
type Client struct {
	rdb *redis.Client
}

const (
	counterTTL     = 30 * 24 * time.Hour
	tenantCacheTTL = time.Minute
)

// NewClient creates a new Redis client
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

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func counterKey(tenantID string) string {
	return "notifications:unviewed:" + tenantID
}

// IncrUnviewed bumps the tenant's unviewed-notification counter.
func (c *Client) IncrUnviewed(ctx context.Context, tenantID string) (int64, error) {
	key := counterKey(tenantID)
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, counterTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// GetUnviewed returns the tenant's current unviewed-notification count.
func (c *Client) GetUnviewed(ctx context.Context, tenantID string) (int64, error) {
	n, err := c.rdb.Get(ctx, counterKey(tenantID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// ResetUnviewed clears the counter, typically when the tenant opens the queue.
func (c *Client) ResetUnviewed(ctx context.Context, tenantID string) error {
	return c.rdb.Del(ctx, counterKey(tenantID)).Err()
}

func tenantKey(tenantID string) string {
	return "tenant:gate:" + tenantID
}

// CacheTenant stores the tenant's gate-relevant fields with a short TTL.
// Invalidation is by expiry only; the admin verification workflow owns the
// authoritative record.
func (c *Client) CacheTenant(ctx context.Context, tenant *models.Tenant) error {
	payload, err := json.Marshal(tenant)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, tenantKey(tenant.ID), payload, tenantCacheTTL).Err()
}

// GetCachedTenant returns the cached tenant, or nil on miss.
func (c *Client) GetCachedTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	payload, err := c.rdb.Get(ctx, tenantKey(tenantID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var tenant models.Tenant
	if err := json.Unmarshal(payload, &tenant); err != nil {
		return nil, err
	}
	return &tenant, nil
}
