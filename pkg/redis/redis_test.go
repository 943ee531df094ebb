package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return Wrap(rdb), mr
}

func TestNilClientReportsNotInitialized(t *testing.T) {
	var c *Client
	ctx := context.Background()

	_, _, err := c.GetUnreadCount(ctx, 1, nil)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.NoError(t, c.Close())
}

func TestUnreadCountPerSender(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	sender := uint(9)

	_, found, err := c.GetUnreadCount(ctx, 1, &sender)
	require.NoError(t, err)
	assert.False(t, found)

	gen, err := c.UnreadGeneration(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, gen)

	stored, err := c.SetUnreadCount(ctx, 1, &sender, 3, gen)
	require.NoError(t, err)
	assert.True(t, stored)
	stored, err = c.SetUnreadCount(ctx, 1, nil, 5, gen)
	require.NoError(t, err)
	assert.True(t, stored)

	n, found, err := c.GetUnreadCount(ctx, 1, &sender)
	require.NoError(t, err)
	assert.True(t, found)
	assert.EqualValues(t, 3, n)

	n, _, err = c.GetUnreadCount(ctx, 1, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	require.NoError(t, c.InvalidateUnread(ctx, 1))
	_, found, err = c.GetUnreadCount(ctx, 1, nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSetUnreadCountRejectsStaleGeneration(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	gen, err := c.UnreadGeneration(ctx, 1)
	require.NoError(t, err)

	// 计算期间发生了一次写入
	require.NoError(t, c.InvalidateUnread(ctx, 1))

	stored, err := c.SetUnreadCount(ctx, 1, nil, 4, gen)
	require.NoError(t, err)
	assert.False(t, stored)
	_, found, err := c.GetUnreadCount(ctx, 1, nil)
	require.NoError(t, err)
	assert.False(t, found)

	gen, err = c.UnreadGeneration(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, gen)
	assert.True(t, mr.TTL(KeyPrefix+"unread_gen:1") > 0)

	stored, err = c.SetUnreadCount(ctx, 1, nil, 5, gen)
	require.NoError(t, err)
	assert.True(t, stored)
	n, found, err := c.GetUnreadCount(ctx, 1, nil)
	require.NoError(t, err)
	assert.True(t, found)
	assert.EqualValues(t, 5, n)
	assert.True(t, mr.TTL(KeyPrefix+"unread:1") > 0)
}

func TestTryLock(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	release, ok, err := c.TryLock(ctx, "import:1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = c.TryLock(ctx, "import:1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	_, ok, err = c.TryLock(ctx, "import:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPresenceExpires(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetOnline(ctx, 4))
	online, err := c.IsOnline(ctx, 4)
	require.NoError(t, err)
	assert.True(t, online)

	mr.FastForward(PresenceTTL + time.Second)

	users, err := c.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestResponseCache(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.CacheResponse(ctx, "anime/1", []byte(`{"data":{}}`), time.Minute))
	body, found, err := c.CachedResponse(ctx, "anime/1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"data":{}}`, string(body))

	mr.FastForward(2 * time.Minute)
	_, found, err = c.CachedResponse(ctx, "anime/1")
	require.NoError(t, err)
	assert.False(t, found)
}
