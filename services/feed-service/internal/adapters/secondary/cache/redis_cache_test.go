package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/lytDeveloper/Lyt-sub003/pkg/explore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexKey(t *testing.T) {
	assert.Equal(t, "explore:first:idx:partner", indexKey(explore.TypePartner))
}

// Nécessite un Redis réel (LYT_TEST_REDIS_ADDR).
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("LYT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LYT_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestPageCache_SetGetInvalidate(t *testing.T) {
	c := NewRedisPageCache(testClient(t), time.Minute)
	ctx := context.Background()
	key := "test:" + time.Now().Format("150405.000000")

	at := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	next := explore.Cursor{CreatedAt: at, ID: "pa-1"}
	page := explore.PageResult{
		Partners: []explore.FeedItem{{Type: explore.TypePartner, ID: "pa-1", Title: "Studio", Status: explore.StatusActive, CreatedAt: at}},
		Cursors:  explore.Cursors{Partners: &next},
	}

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, key, []explore.EntityType{explore.TypePartner}, page))
	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got.Partners, 1)
	assert.Equal(t, "pa-1", got.Partners[0].ID)
	require.NotNil(t, got.Cursors.Partners)
	assert.Equal(t, "pa-1", got.Cursors.Partners.ID)

	// un changement de projets ne touche pas cette page
	require.NoError(t, c.InvalidateType(ctx, explore.TypeProject))
	_, ok, _ = c.Get(ctx, key)
	assert.True(t, ok)

	require.NoError(t, c.InvalidateType(ctx, explore.TypePartner))
	_, ok, _ = c.Get(ctx, key)
	assert.False(t, ok)
}

func TestPageCache_ZeroTTLDisables(t *testing.T) {
	c := NewRedisPageCache(testClient(t), 0)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "disabled", explore.AllTypes, explore.PageResult{}))
	_, ok, err := c.Get(ctx, "disabled")
	require.NoError(t, err)
	assert.False(t, ok)
}
