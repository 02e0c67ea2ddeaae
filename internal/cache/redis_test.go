package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pms-api/internal/model"
)

func newTestCache(t *testing.T) (*PermissionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPermissionCache(client, time.Minute), mr
}

func TestPermissionCacheRoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "r1", model.NewPermissionSet("add_task", "get_all_tasks")))
	assert.True(t, mr.Exists("rbac:role:r1:permissions"))

	perms, ok, err := c.Get(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.PermissionSet{"add_task", "get_all_tasks"}, perms)
}

func TestPermissionCacheExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "r1", model.NewPermissionSet("add_task")))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPermissionCacheInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "r1", model.NewPermissionSet("add_task")))
	require.NoError(t, c.Set(ctx, "r2", model.NewPermissionSet("edit_task")))
	require.NoError(t, c.Invalidate(ctx, "r1", "r2"))

	_, ok, _ := c.Get(ctx, "r1")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "r2")
	assert.False(t, ok)
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *PermissionCache
	ctx := context.Background()
	_, ok, err := c.Get(ctx, "r1")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Set(ctx, "r1", nil))
	assert.NoError(t, c.Invalidate(ctx, "r1"))
}

func TestNewFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), addr)
	assert.Error(t, err)
}
