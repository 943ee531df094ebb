package realtime

import (
	"context"
	"sync"

	"animeshelf/pkg/logger"

	"go.uber.org/zap"
)

const subscriptionBuffer = 32

// Subscription 一个订阅者，C 在取消订阅或 Broker 关闭后被关闭
type Subscription struct {
	C <-chan Change

	ch     chan Change
	table  Table
	filter Filter
	broker *Broker
}

// Close 取消订阅，可重复调用
func (s *Subscription) Close() {
	s.broker.unsubscribe(s)
}

// Broker 按表分发变更通知
type Broker struct {
	mu      sync.RWMutex
	subs    map[Table]map[*Subscription]struct{}
	closed  bool
	forward func(ctx context.Context, c Change) error
}

// NewBroker 创建 Broker
func NewBroker() *Broker {
	return &Broker{
		subs: make(map[Table]map[*Subscription]struct{}),
	}
}

// Subscribe 订阅某张表的变更
func (b *Broker) Subscribe(table Table, filter Filter) *Subscription {
	ch := make(chan Change, subscriptionBuffer)
	sub := &Subscription{C: ch, ch: ch, table: table, filter: filter, broker: b}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return sub
	}
	if _, ok := b.subs[table]; !ok {
		b.subs[table] = make(map[*Subscription]struct{})
	}
	b.subs[table][sub] = struct{}{}
	return sub
}

// SubscribeToInserts 只订阅插入
func (b *Broker) SubscribeToInserts(table Table, filter Filter) *Subscription {
	return b.Subscribe(table, InsertsOnly(filter))
}

func (b *Broker) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.subs[sub.table]; ok {
		if _, ok := subs[sub]; ok {
			delete(subs, sub)
			close(sub.ch)
			if len(subs) == 0 {
				delete(b.subs, sub.table)
			}
		}
	}
}

// Publish 本地分发，并在配置了转发时发往其他实例
// nil Broker 上调用为空操作
func (b *Broker) Publish(ctx context.Context, c Change) {
	if b == nil {
		return
	}
	b.dispatch(c)

	b.mu.RLock()
	forward := b.forward
	b.mu.RUnlock()
	if forward != nil {
		if err := forward(ctx, c); err != nil {
			logger.Warn("转发变更通知失败", zap.String("table", string(c.Table)), zap.Error(err))
		}
	}
}

// dispatch 非阻塞发送，慢订阅者会丢失通知
func (b *Broker) dispatch(c Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[c.Table] {
		if sub.filter != nil && !sub.filter(c) {
			continue
		}
		select {
		case sub.ch <- c:
		default:
			logger.Warn("订阅者通道已满，丢弃通知", zap.String("table", string(c.Table)))
		}
	}
}

// Subscribers 当前某张表的订阅数
func (b *Broker) Subscribers(table Table) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[table])
}

// Close 关闭全部订阅
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for table, subs := range b.subs {
		for sub := range subs {
			close(sub.ch)
		}
		delete(b.subs, table)
	}
}
