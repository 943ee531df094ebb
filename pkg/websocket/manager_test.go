package websocket

import (
	"testing"

	redisPkg "animeshelf/pkg/redis"

	"github.com/stretchr/testify/assert"
)

func TestManagerTracksConnectionsPerUser(t *testing.T) {
	m := NewManager()
	a := NewClient(1, nil)
	b := NewClient(1, nil)
	c := NewClient(2, nil)

	assert.True(t, m.AddClient(a))
	assert.False(t, m.AddClient(b))
	assert.True(t, m.AddClient(c))
	assert.Equal(t, 3, m.Count())

	assert.True(t, m.Push(a, []byte("x")))
	assert.Len(t, a.Send, 1)

	assert.False(t, m.RemoveClient(a))
	assert.False(t, m.RemoveClient(a), "second removal is a no-op")
	assert.False(t, m.Push(a, []byte("y")), "removed clients are skipped")

	online, _ := m.IsOnline(t.Context(), 1)
	assert.True(t, online)
	assert.True(t, m.RemoveClient(b))
	online, _ = m.IsOnline(t.Context(), 1)
	assert.False(t, online)
}

func TestPushDropsWhenBufferFull(t *testing.T) {
	m := NewManager()
	c := NewClient(1, nil)
	m.AddClient(c)
	for range cap(c.Send) {
		assert.True(t, m.Push(c, []byte("x")))
	}
	assert.False(t, m.Push(c, []byte("overflow")))
}

func TestNewHandlerDropsDisabledRedisPresence(t *testing.T) {
	var rdb *redisPkg.Client
	h := NewHandler(Deps{Presence: rdb})
	assert.Nil(t, h.deps.Presence)

	// 不会调用到未初始化的客户端
	h.presence(t.Context(), presenceOnline, 1)
}
