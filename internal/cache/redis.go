package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"go-pms-api/internal/model"
)

// New creates a new Redis client.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}

	return client, nil
}

// PermissionCache keeps resolved role permission sets in Redis so all worker
// processes observe the same invalidations.
type PermissionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPermissionCache(client *redis.Client, ttl time.Duration) *PermissionCache {
	return &PermissionCache{client: client, ttl: ttl}
}

func roleKey(roleID string) string {
	return "rbac:role:" + roleID + ":permissions"
}

func (c *PermissionCache) Get(ctx context.Context, roleID string) (model.PermissionSet, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, roleKey(roleID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return model.NewPermissionSet(raw), true, nil
}

func (c *PermissionCache) Set(ctx context.Context, roleID string, perms model.PermissionSet) error {
	if c == nil || c.client == nil {
		return nil
	}
	value, err := perms.Value()
	if err != nil {
		return err
	}
	return c.client.Set(ctx, roleKey(roleID), value, c.ttl).Err()
}

func (c *PermissionCache) Invalidate(ctx context.Context, roleIDs ...string) error {
	if c == nil || c.client == nil || len(roleIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(roleIDs))
	for _, id := range roleIDs {
		keys = append(keys, roleKey(id))
	}
	return c.client.Del(ctx, keys...).Err()
}
