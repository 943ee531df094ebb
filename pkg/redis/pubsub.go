package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ChangesChannel 跨实例广播表变更的频道
const ChangesChannel = KeyPrefix + "changes"

// Publish 发布消息
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := c.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("发布消息失败: %w", err)
	}
	return nil
}

// Subscribe 订阅频道，调用方负责 Close
func (c *Client) Subscribe(ctx context.Context, channel string) (*redis.PubSub, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	sub := c.rdb.Subscribe(ctx, channel)
	// 等待订阅确认，保证之后的发布不会丢失
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("订阅频道失败: %w", err)
	}
	return sub, nil
}
