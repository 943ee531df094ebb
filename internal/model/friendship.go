package model

import (
	"time"

	"gorm.io/gorm"
)

// FriendStatus 好友关系状态
type FriendStatus string

const (
	FriendPending  FriendStatus = "pending"
	FriendAccepted FriendStatus = "accepted"
)

// FriendEdge 有向好友关系：RequesterID 发起，TargetID 接受
// UserLow/UserHigh 为无序二元组，联合唯一索引保证任意两人之间最多一条边

type FriendEdge struct {
	ID          uint         `gorm:"primaryKey"`
	RequesterID uint         `gorm:"not null;index;comment:发起人ID"`
	TargetID    uint         `gorm:"not null;index;comment:接收人ID"`
	Status      FriendStatus `gorm:"type:varchar(16);not null;default:'pending';comment:关系状态"`
	UserLow     uint         `gorm:"not null;uniqueIndex:ux_friend_pair,priority:1"`
	UserHigh    uint         `gorm:"not null;uniqueIndex:ux_friend_pair,priority:2"`
	CreatedAt   time.Time    `gorm:"comment:创建时间"`
	UpdatedAt   time.Time    `gorm:"comment:更新时间"`
}

func (FriendEdge) TableName() string { return "friend_edge" }

// BeforeCreate 写入前填充无序二元组
func (e *FriendEdge) BeforeCreate(_ *gorm.DB) error {
	e.UserLow, e.UserHigh = OrderedPair(e.RequesterID, e.TargetID)
	return nil
}

// OrderedPair 返回 (较小ID, 较大ID)
func OrderedPair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

// Other 返回边上不是 userID 的另一方
func (e *FriendEdge) Other(userID uint) uint {
	if e.RequesterID == userID {
		return e.TargetID
	}
	return e.RequesterID
}
