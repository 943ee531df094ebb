package service

import (
	"context"
	"testing"

	"animeshelf/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkConversationReadOnlyAffectsOneSender(t *testing.T) {
	e := newTestEnv(t, 1, 2, 3)
	ctx := t.Context()

	for _, content := range []string{"hi", "are you there?"} {
		_, err := e.messages.Send(ctx, 2, 1, content)
		require.NoError(t, err)
	}
	_, err := e.messages.Send(ctx, 3, 1, "yo")
	require.NoError(t, err)
	_, err = e.messages.Send(ctx, 1, 2, "reply from the reader")
	require.NoError(t, err)

	total, err := e.messages.UnreadCount(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	from2, from3 := uint(2), uint(3)
	n, err := e.messages.MarkConversationRead(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := e.messages.UnreadCount(ctx, 1, &from2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	count, err = e.messages.UnreadCount(ctx, 1, &from3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// 读者自己发出的消息保持未读
	from1 := uint(1)
	count, err = e.messages.UnreadCount(ctx, 2, &from1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUnreadCountCacheIsInvalidatedOnWrite(t *testing.T) {
	e := newTestEnv(t, 1, 2)
	ctx := t.Context()

	count, err := e.messages.UnreadCount(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	cached, found, err := e.rdb.GetUnreadCount(ctx, 1, nil)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(0), cached)

	_, err = e.messages.Send(ctx, 2, 1, "new message")
	require.NoError(t, err)

	_, found, err = e.rdb.GetUnreadCount(ctx, 1, nil)
	require.NoError(t, err)
	assert.False(t, found)

	count, err = e.messages.UnreadCount(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUnreadCountWithoutRedis(t *testing.T) {
	e := newTestEnv(t, 1, 2)
	messages := NewMessageService(e.messageRepo, e.profileRepo, nil, nil)

	_, err := messages.Send(t.Context(), 2, 1, "hello")
	require.NoError(t, err)
	count, err := messages.UnreadCount(t.Context(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSendValidation(t *testing.T) {
	e := newTestEnv(t, 1, 2)
	ctx := t.Context()

	_, err := e.messages.Send(ctx, 1, 1, "me")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.messages.Send(ctx, 1, 2, "   ")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.messages.Send(ctx, 1, 42, "hello")
	assert.ErrorIs(t, err, ErrProfileNotFound)
	_, err = e.messages.Send(ctx, 0, 2, "hello")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestConversationOrdering(t *testing.T) {
	e := newTestEnv(t, 1, 2, 3)
	ctx := t.Context()

	for _, m := range []struct {
		from, to uint
		text     string
	}{
		{1, 2, "one"},
		{2, 1, "two"},
		{1, 3, "to three"},
		{1, 2, "three"},
	} {
		_, err := e.messages.Send(ctx, m.from, m.to, m.text)
		require.NoError(t, err)
	}

	conv, err := e.messages.Conversation(ctx, 1, 2, 1, 20)
	require.NoError(t, err)
	var texts []string
	for _, m := range conv {
		texts = append(texts, m.Content)
	}
	assert.Equal(t, []string{"one", "two", "three"}, texts)

	list, err := e.messages.Conversations(ctx, 2, 20)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, uint(1), list[0].Partner.ID)
	assert.Equal(t, "three", list[0].LastMessage.Content)
	assert.Equal(t, int64(2), list[0].UnreadCount)

	list, err = e.messages.Conversations(ctx, 1, 20)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, uint(2), list[0].Partner.ID)
	assert.Equal(t, uint(3), list[1].Partner.ID)
	assert.Equal(t, int64(1), list[0].UnreadCount)
}

func TestSendPublishesInsert(t *testing.T) {
	e := newTestEnv(t, 1, 2)
	sub := e.broker.SubscribeToInserts(realtime.TableMessage, realtime.Involving(1))
	defer sub.Close()

	msg, err := e.messages.Send(t.Context(), 2, 1, "ping")
	require.NoError(t, err)

	c := <-sub.C
	assert.Equal(t, msg.ID, c.RecordID)
	assert.True(t, c.Involves(2))
}

// sendDuringCount 在未读数查库之后、回写缓存之前插入一次写入
type sendDuringCount struct {
	MessageStore
	hook func()
}

func (s *sendDuringCount) UnreadCount(ctx context.Context, userID uint, senderID *uint) (int64, error) {
	n, err := s.MessageStore.UnreadCount(ctx, userID, senderID)
	if s.hook != nil {
		hook := s.hook
		s.hook = nil
		hook()
	}
	return n, err
}

func TestUnreadCountDoesNotCacheCountOverlappingSend(t *testing.T) {
	e := newTestEnv(t, 1, 2)
	ctx := t.Context()

	store := &sendDuringCount{MessageStore: e.messageRepo}
	messages := NewMessageService(store, e.profileRepo, e.rdb, nil)

	_, err := messages.Send(ctx, 2, 1, "first")
	require.NoError(t, err)

	store.hook = func() {
		_, err := messages.Send(ctx, 2, 1, "second")
		require.NoError(t, err)
	}
	count, err := messages.UnreadCount(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "the count read before the overlapping send")

	_, found, err := e.rdb.GetUnreadCount(ctx, 1, nil)
	require.NoError(t, err)
	assert.False(t, found, "stale count must not be cached")

	count, err = messages.UnreadCount(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	cached, found, err := e.rdb.GetUnreadCount(ctx, 1, nil)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(2), cached)
}
