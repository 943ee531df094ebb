package repository

import (
	"context"

	"animeshelf/internal/model"

	"gorm.io/gorm"
)

// ActivityRepository 动态仓储，只追加
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, activity *model.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

// Recent 全站最新动态
func (r *ActivityRepository) Recent(ctx context.Context, limit int) ([]*model.Activity, error) {
	var activities []*model.Activity
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}

// RecentByActors 指定用户集合的最新动态
func (r *ActivityRepository) RecentByActors(ctx context.Context, actorIDs []uint, limit int) ([]*model.Activity, error) {
	var activities []*model.Activity
	if len(actorIDs) == 0 {
		return activities, nil
	}
	err := r.db.WithContext(ctx).
		Where("actor_id IN ?", actorIDs).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}
