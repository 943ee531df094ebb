package repository

import (
	"context"

	"animeshelf/internal/model"

	"gorm.io/gorm"
)

// FriendRepository 好友关系仓储
// 查询统一走 (user_low, user_high) 联合索引，与方向无关
type FriendRepository struct {
	db *gorm.DB
}

func NewFriendRepository(db *gorm.DB) *FriendRepository {
	return &FriendRepository{db: db}
}

// FindBetween 查询两人之间的关系边，不存在时返回 (nil, nil)
func (r *FriendRepository) FindBetween(ctx context.Context, a, b uint) (*model.FriendEdge, error) {
	low, high := model.OrderedPair(a, b)
	var edges []*model.FriendEdge
	err := r.db.WithContext(ctx).
		Where("user_low = ? AND user_high = ?", low, high).
		Limit(1).
		Find(&edges).Error
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, nil
	}
	return edges[0], nil
}

func (r *FriendRepository) Create(ctx context.Context, edge *model.FriendEdge) error {
	return r.db.WithContext(ctx).Create(edge).Error
}

// Accept 条件更新：仅当存在 requester→target 的待处理请求时生效
func (r *FriendRepository) Accept(ctx context.Context, requesterID, targetID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.FriendEdge{}).
		Where("requester_id = ? AND target_id = ? AND status = ?", requesterID, targetID, model.FriendPending).
		Update("status", model.FriendAccepted)
	return res.RowsAffected, res.Error
}

// DeleteBetween 删除两人之间的任意关系边
func (r *FriendRepository) DeleteBetween(ctx context.Context, a, b uint) (int64, error) {
	low, high := model.OrderedPair(a, b)
	res := r.db.WithContext(ctx).
		Where("user_low = ? AND user_high = ?", low, high).
		Delete(&model.FriendEdge{})
	return res.RowsAffected, res.Error
}

// FriendIDs 返回已接受的好友ID
func (r *FriendRepository) FriendIDs(ctx context.Context, userID uint) ([]uint, error) {
	var edges []*model.FriendEdge
	err := r.db.WithContext(ctx).
		Where("(requester_id = ? OR target_id = ?) AND status = ?", userID, userID, model.FriendAccepted).
		Order("updated_at DESC").
		Find(&edges).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.Other(userID))
	}
	return ids, nil
}

// Incoming 收到的待处理请求
func (r *FriendRepository) Incoming(ctx context.Context, userID uint) ([]*model.FriendEdge, error) {
	var edges []*model.FriendEdge
	err := r.db.WithContext(ctx).
		Where("target_id = ? AND status = ?", userID, model.FriendPending).
		Order("created_at DESC").
		Find(&edges).Error
	return edges, err
}

// Outgoing 发出的待处理请求
func (r *FriendRepository) Outgoing(ctx context.Context, userID uint) ([]*model.FriendEdge, error) {
	var edges []*model.FriendEdge
	err := r.db.WithContext(ctx).
		Where("requester_id = ? AND status = ?", userID, model.FriendPending).
		Order("created_at DESC").
		Find(&edges).Error
	return edges, err
}

// CountBetween 两人之间的边数，用于校验唯一性
func (r *FriendRepository) CountBetween(ctx context.Context, a, b uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.FriendEdge{}).
		Where("(requester_id = ? AND target_id = ?) OR (requester_id = ? AND target_id = ?)", a, b, b, a).
		Count(&n).Error
	return n, err
}
