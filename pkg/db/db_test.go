package db

import (
	"errors"
	"testing"

	"animeshelf/config"
	"animeshelf/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestSQLiteTranslatesDuplicateKey(t *testing.T) {
	gdb, err := Open(config.DatabaseConfig{Driver: "sqlite", Database: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(gdb, &model.FriendEdge{}))

	require.NoError(t, gdb.Create(&model.FriendEdge{RequesterID: 1, TargetID: 2, Status: model.FriendPending}).Error)
	err = gdb.Create(&model.FriendEdge{RequesterID: 2, TargetID: 1, Status: model.FriendPending}).Error
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)
}

func TestHealthCheckWithoutInit(t *testing.T) {
	DB = nil
	assert.Error(t, HealthCheck())
}
