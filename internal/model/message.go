package model

import (
	"time"
)

// Message 私聊消息，创建后内容不可变
// IsRead 只能由接收者从 false 置为 true

type Message struct {
	ID         uint      `gorm:"primaryKey"`
	SenderID   uint      `gorm:"not null;index:idx_message_pair,priority:1;comment:发送者ID"`
	ReceiverID uint      `gorm:"not null;index:idx_message_pair,priority:2;index:idx_message_unread,priority:1;comment:接收者ID"`
	Content    string    `gorm:"type:text;not null;comment:消息内容"`
	IsRead     bool      `gorm:"default:false;index:idx_message_unread,priority:2;comment:是否已读"`
	CreatedAt  time.Time `gorm:"index;comment:创建时间"`
}

func (Message) TableName() string { return "message" }
