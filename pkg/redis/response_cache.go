package redis

import (
	"context"
	"fmt"
	"time"
)

// CatalogKeyPrefix 目录API响应缓存key前缀
const CatalogKeyPrefix = KeyPrefix + "catalog:"

// CacheResponse 缓存一次外部请求的原始响应体
func (c *Client) CacheResponse(ctx context.Context, requestKey string, body []byte, ttl time.Duration) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, CatalogKeyPrefix+requestKey, body, ttl).Err(); err != nil {
		return fmt.Errorf("缓存目录响应失败: %w", err)
	}
	return nil
}

// CachedResponse 读取缓存的响应体
func (c *Client) CachedResponse(ctx context.Context, requestKey string) ([]byte, bool, error) {
	return c.Get(ctx, CatalogKeyPrefix+requestKey)
}
