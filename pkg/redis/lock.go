package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// LockKeyPrefix 分布式锁key前缀
const LockKeyPrefix = KeyPrefix + "lock:"

// 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TryLock 尝试获取锁，acquired 为 false 表示已被他人持有
func (c *Client) TryLock(ctx context.Context, name string, ttl time.Duration) (release func(), acquired bool, err error) {
	if err := c.ready(); err != nil {
		return func() {}, false, err
	}

	key := LockKeyPrefix + name
	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return func() {}, false, fmt.Errorf("获取锁失败: %w", err)
	}
	if !ok {
		return func() {}, false, nil
	}

	release = func() {
		_ = releaseScript.Run(context.Background(), c.rdb, []string{key}, token).Err()
	}
	return release, true, nil
}
