package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"animeshelf/config"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix 所有key的统一前缀
const KeyPrefix = "animeshelf:"

// ErrNotInitialized Redis未启用或未初始化
var ErrNotInitialized = errors.New("redis客户端未初始化")

// Client Redis客户端封装
// nil *Client 是合法值：所有方法返回 ErrNotInitialized，调用方按缓存未命中处理
type Client struct {
	rdb *redis.Client
}

// New 初始化Redis连接，Host 为空时返回 nil 客户端
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.Host == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		// 连接池配置
		PoolSize:     10,              // 连接池大小
		MinIdleConns: 5,               // 最小空闲连接
		MaxRetries:   3,               // 最大重试次数
		DialTimeout:  5 * time.Second, // 连接超时
		ReadTimeout:  3 * time.Second, // 读超时
		WriteTimeout: 3 * time.Second, // 写超时
	})

	// 测试连接
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis连接失败: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Wrap 用已有的 go-redis 客户端构建（测试与工具使用）
func Wrap(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func (c *Client) ready() error {
	if c == nil || c.rdb == nil {
		return ErrNotInitialized
	}
	return nil
}


// Close 关闭Redis连接
func (c *Client) Close() error {
	if err := c.ready(); err != nil {
		return nil
	}
	return c.rdb.Close()
}

// HealthCheck 检查Redis健康状态
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis连接异常: %w", err)
	}
	return nil
}




// Exists 检查键是否存在
func (c *Client) Exists(ctx context.Context, keys ...string) (int64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	return c.rdb.Exists(ctx, keys...).Result()
}
