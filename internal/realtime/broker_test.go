package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func receive(t *testing.T, sub *Subscription) Change {
	t.Helper()
	select {
	case c, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return c
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change")
	}
	return Change{}
}

func assertNothing(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case c := <-sub.C:
		t.Fatalf("unexpected change %+v", c)
	default:
	}
}

func TestPublishRoutesByTableAndFilter(t *testing.T) {
	defer goleak.VerifyNone(t)
	b := NewBroker()
	defer b.Close()

	mine := b.Subscribe(TableMessage, Involving(1))
	all := b.Subscribe(TableMessage, nil)
	feed := b.SubscribeToInserts(TableActivity, nil)

	b.Publish(t.Context(), Change{Table: TableMessage, Op: OpInsert, RecordID: 7, UserIDs: []uint{1, 2}})
	b.Publish(t.Context(), Change{Table: TableMessage, Op: OpInsert, RecordID: 8, UserIDs: []uint{2, 3}})

	assert.Equal(t, uint(7), receive(t, mine).RecordID)
	assertNothing(t, mine)
	assert.Equal(t, uint(7), receive(t, all).RecordID)
	assert.Equal(t, uint(8), receive(t, all).RecordID)
	assertNothing(t, feed)

	b.Publish(t.Context(), Change{Table: TableActivity, Op: OpUpdate, RecordID: 1})
	b.Publish(t.Context(), Change{Table: TableActivity, Op: OpInsert, RecordID: 2})
	assert.Equal(t, uint(2), receive(t, feed).RecordID)
	assertNothing(t, feed)
}

func TestSubscriptionClose(t *testing.T) {
	defer goleak.VerifyNone(t)
	b := NewBroker()
	defer b.Close()

	sub := b.Subscribe(TableFriendEdge, nil)
	assert.Equal(t, 1, b.Subscribers(TableFriendEdge))

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, b.Subscribers(TableFriendEdge))
	_, ok := <-sub.C
	assert.False(t, ok)

	// 取消订阅后发布不会阻塞也不会 panic
	b.Publish(t.Context(), Change{Table: TableFriendEdge, Op: OpDelete})
}

func TestBrokerCloseEndsConsumers(t *testing.T) {
	defer goleak.VerifyNone(t)
	b := NewBroker()

	var wg sync.WaitGroup
	for range 4 {
		sub := b.Subscribe(TableMessage, nil)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range sub.C {
			}
		}()
	}

	b.Close()
	wg.Wait()
	b.Close()

	late := b.Subscribe(TableMessage, nil)
	_, ok := <-late.C
	assert.False(t, ok, "subscribing after close yields a closed channel")
	late.Close()
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	slow := b.Subscribe(TableActivity, nil)
	for i := range subscriptionBuffer + 10 {
		b.Publish(t.Context(), Change{Table: TableActivity, Op: OpInsert, RecordID: uint(i)})
	}
	assert.Len(t, slow.C, subscriptionBuffer)
}

func TestNilBrokerPublish(t *testing.T) {
	var b *Broker
	assert.NotPanics(t, func() {
		b.Publish(t.Context(), Change{Table: TableMessage})
	})
}

func TestInvolves(t *testing.T) {
	c := Change{UserIDs: []uint{4, 9}}
	assert.True(t, c.Involves(9))
	assert.False(t, c.Involves(5))
	assert.False(t, Change{}.Involves(0))
}
