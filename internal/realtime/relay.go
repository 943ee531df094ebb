package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"animeshelf/pkg/logger"
	redisPkg "animeshelf/pkg/redis"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RedisRelay 通过 Redis 发布订阅在多个实例之间同步变更通知
type RedisRelay struct {
	client *redisPkg.Client
	broker *Broker
	origin string
}

// AttachRedisRelay 为 broker 挂载 Redis 转发，需调用 Run 接收其他实例的通知
func AttachRedisRelay(broker *Broker, client *redisPkg.Client) *RedisRelay {
	r := &RedisRelay{
		client: client,
		broker: broker,
		origin: uuid.NewString(),
	}

	broker.mu.Lock()
	broker.forward = r.publish
	broker.mu.Unlock()
	return r
}

func (r *RedisRelay) publish(ctx context.Context, c Change) error {
	c.Origin = r.origin
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("序列化变更通知失败: %w", err)
	}
	return r.client.Publish(ctx, redisPkg.ChangesChannel, payload)
}

// Run 阻塞接收其他实例发布的通知，直到 ctx 取消
func (r *RedisRelay) Run(ctx context.Context) error {
	sub, err := r.client.Subscribe(ctx, redisPkg.ChangesChannel)
	if err != nil {
		return err
	}
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var c Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				logger.Warn("无法解析变更通知", zap.Error(err))
				continue
			}
			if c.Origin == r.origin {
				continue
			}
			r.broker.dispatch(c)
		}
	}
}
