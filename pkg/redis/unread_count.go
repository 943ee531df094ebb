package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// 未读消息计数缓存
// 每个用户一个hash：field 为发送者ID，"total" 为总数
// 数据库是唯一事实来源，任何写入后整体失效，读取时重新计算
const (
	UnreadCountKeyPrefix = KeyPrefix + "unread:"
	unreadGenKeyPrefix   = KeyPrefix + "unread_gen:"
	unreadTotalField     = "total"
	UnreadCountTTL       = 5 * time.Minute
	unreadGenTTL         = 24 * time.Hour
)

// 代数未变时才写入，缺失的代数视为 0
var setUnreadScript = redis.NewScript(`
local gen = tonumber(redis.call("GET", KEYS[2]) or "0")
if gen ~= tonumber(ARGV[3]) then
	return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
redis.call("EXPIRE", KEYS[1], ARGV[4])
return 1
`)

func unreadKey(userID uint) string {
	return fmt.Sprintf("%s%d", UnreadCountKeyPrefix, userID)
}

func unreadGenKey(userID uint) string {
	return fmt.Sprintf("%s%d", unreadGenKeyPrefix, userID)
}

func unreadField(senderID *uint) string {
	if senderID == nil {
		return unreadTotalField
	}
	return strconv.FormatUint(uint64(*senderID), 10)
}

// GetUnreadCount 获取缓存的未读数，senderID 为 nil 时取总数
func (c *Client) GetUnreadCount(ctx context.Context, userID uint, senderID *uint) (count int64, found bool, err error) {
	if err := c.ready(); err != nil {
		return 0, false, err
	}

	result, err := c.rdb.HGet(ctx, unreadKey(userID), unreadField(senderID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("获取未读消息计数失败: %w", err)
	}

	count, err = strconv.ParseInt(result, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("解析未读消息计数失败: %w", err)
	}
	return count, true, nil
}

// UnreadGeneration 读取用户未读缓存的代数，每次失效加一
// 计算未读数前先取代数，写回时用它判断期间是否发生过失效
func (c *Client) UnreadGeneration(ctx context.Context, userID uint) (int64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	gen, err := c.rdb.Get(ctx, unreadGenKey(userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("获取未读缓存代数失败: %w", err)
	}
	return gen, nil
}

// SetUnreadCount 写入重新计算后的未读数
// 代数已变化时放弃写入，stored 为 false
func (c *Client) SetUnreadCount(ctx context.Context, userID uint, senderID *uint, count, generation int64) (stored bool, err error) {
	if err := c.ready(); err != nil {
		return false, err
	}

	n, err := setUnreadScript.Run(ctx, c.rdb,
		[]string{unreadKey(userID), unreadGenKey(userID)},
		unreadField(senderID), count, generation, int64(UnreadCountTTL/time.Second),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("设置未读消息计数失败: %w", err)
	}
	return n == 1, nil
}

// InvalidateUnread 清除用户的全部未读缓存并推进代数
func (c *Client) InvalidateUnread(ctx context.Context, userID uint) error {
	if err := c.ready(); err != nil {
		return err
	}

	genKey := unreadGenKey(userID)
	pipe := c.rdb.TxPipeline()
	pipe.Incr(ctx, genKey)
	pipe.Expire(ctx, genKey, unreadGenTTL)
	pipe.Del(ctx, unreadKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("清除未读消息计数失败: %w", err)
	}
	return nil
}
