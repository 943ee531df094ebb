package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// 在线状态相关常量
const (
	PresenceKeyPrefix = KeyPrefix + "presence:user:" // 用户在线状态key前缀
	OnlineUsersKey    = KeyPrefix + "online:users"   // 在线用户集合key
	PresenceTTL       = 2 * time.Minute              // 在线状态TTL（2倍心跳周期）
)

func presenceKey(userID uint) string {
	return fmt.Sprintf("%s%d", PresenceKeyPrefix, userID)
}

// SetOnline 标记用户在线
func (c *Client) SetOnline(ctx context.Context, userID uint) error {
	if err := c.ready(); err != nil {
		return err
	}

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, presenceKey(userID), time.Now().Unix(), PresenceTTL)
	pipe.SAdd(ctx, OnlineUsersKey, userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("设置用户在线状态失败: %w", err)
	}
	return nil
}

// RefreshPresence 心跳续期
func (c *Client) RefreshPresence(ctx context.Context, userID uint) error {
	if err := c.ready(); err != nil {
		return err
	}
	ok, err := c.rdb.Expire(ctx, presenceKey(userID), PresenceTTL).Result()
	if err != nil {
		return fmt.Errorf("刷新用户在线状态失败: %w", err)
	}
	if !ok {
		return c.SetOnline(ctx, userID)
	}
	return nil
}

// SetOffline 移除用户在线状态
func (c *Client) SetOffline(ctx context.Context, userID uint) error {
	if err := c.ready(); err != nil {
		return err
	}

	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, presenceKey(userID))
	pipe.SRem(ctx, OnlineUsersKey, userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("移除用户在线状态失败: %w", err)
	}
	return nil
}

// IsOnline 检查用户是否在线
func (c *Client) IsOnline(ctx context.Context, userID uint) (bool, error) {
	n, err := c.Exists(ctx, presenceKey(userID))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// OnlineUsers 获取在线用户ID，顺带清理过期成员
func (c *Client) OnlineUsers(ctx context.Context) ([]uint, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	members, err := c.rdb.SMembers(ctx, OnlineUsersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("获取在线用户列表失败: %w", err)
	}

	var userIDs []uint
	for _, member := range members {
		id, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			continue
		}
		online, err := c.IsOnline(ctx, uint(id))
		if err != nil {
			return nil, err
		}
		if !online {
			c.rdb.SRem(ctx, OnlineUsersKey, member)
			continue
		}
		userIDs = append(userIDs, uint(id))
	}
	return userIDs, nil
}
