package repository

import (
	"context"
	"fmt"

	"animeshelf/internal/model"

	"gorm.io/gorm"
)

// MessageRepository 消息数据仓储
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建MessageRepository实例
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create 创建消息
func (r *MessageRepository) Create(ctx context.Context, message *model.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// Conversation 两人之间的消息，按时间升序返回
// offset 从最新一条往前计算
func (r *MessageRepository) Conversation(ctx context.Context, a, b uint, limit, offset int) ([]*model.Message, error) {
	var messages []*model.Message

	// 查询双向消息
	err := r.db.WithContext(ctx).Where(
		"(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
		a, b, b, a,
	).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkConversationAsRead 单条 UPDATE：只标记 other 发给 reader 的未读消息
func (r *MessageRepository) MarkConversationAsRead(ctx context.Context, readerID, otherID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", readerID, otherID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// UnreadCount 未读消息数量，senderID 不为空时只统计该发送者
func (r *MessageRepository) UnreadCount(ctx context.Context, userID uint, senderID *uint) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("receiver_id = ? AND is_read = ?", userID, false)
	if senderID != nil {
		q = q.Where("sender_id = ?", *senderID)
	}
	err := q.Count(&count).Error
	return count, err
}

// UnreadBySender 按发送者分组的未读数量
func (r *MessageRepository) UnreadBySender(ctx context.Context, userID uint) (map[uint]int64, error) {
	var rows []struct {
		SenderID uint
		Total    int64
	}
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Select("sender_id, COUNT(*) AS total").
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Group("sender_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.SenderID] = row.Total
	}
	return counts, nil
}

// LatestPerPartner 与每个聊天对象的最后一条消息，最新的对话在前
func (r *MessageRepository) LatestPerPartner(ctx context.Context, userID uint, limit int) ([]*model.Message, error) {
	var messages []*model.Message

	latest := r.db.Model(&model.Message{}).
		Select("MAX(id)").
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Group(fmt.Sprintf("CASE WHEN sender_id = %d THEN receiver_id ELSE sender_id END", userID))

	err := r.db.WithContext(ctx).
		Where("id IN (?)", latest).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}
