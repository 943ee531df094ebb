// Package testutil 测试用的数据库与Redis夹具
package testutil

import (
	"strconv"
	"testing"

	"animeshelf/config"
	"animeshelf/internal/model"
	dbPkg "animeshelf/pkg/db"
	redisPkg "animeshelf/pkg/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB 创建已迁移全部模型的内存 sqlite 库
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := dbPkg.Open(config.DatabaseConfig{Driver: "sqlite", Database: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, dbPkg.AutoMigrate(gdb, model.All()...))

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// NewRedis 启动 miniredis 并返回包装后的客户端
func NewRedis(t testing.TB) (*redisPkg.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return redisPkg.Wrap(rdb), mr
}

// Seed 写入若干用户资料，用户名为 user<ID>
func Seed(t testing.TB, gdb *gorm.DB, ids ...uint) {
	t.Helper()
	for _, id := range ids {
		name := "user" + strconv.FormatUint(uint64(id), 10)
		require.NoError(t, gdb.Create(&model.Profile{ID: id, Username: &name}).Error)
	}
}

