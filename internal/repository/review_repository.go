package repository

import (
	"context"

	"animeshelf/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReviewRepository 评论仓储
type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Upsert 同一用户对同一作品只保留一条评论
func (r *ReviewRepository) Upsert(ctx context.Context, review *model.Review) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "media_id"}, {Name: "media_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "score", "updated_at"}),
		}).
		Create(review).Error
}

func (r *ReviewRepository) Get(ctx context.Context, userID uint, mediaID int64, mediaType model.MediaType) (*model.Review, error) {
	var rv model.Review
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND media_id = ? AND media_type = ?", userID, mediaID, mediaType).
		First(&rv).Error
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

// Delete 仅删除 userID 本人的评论
func (r *ReviewRepository) Delete(ctx context.Context, userID uint, mediaID int64, mediaType model.MediaType) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND media_id = ? AND media_type = ?", userID, mediaID, mediaType).
		Delete(&model.Review{})
	return res.RowsAffected, res.Error
}

func (r *ReviewRepository) UpdateScore(ctx context.Context, userID uint, mediaID int64, mediaType model.MediaType, score int) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Review{}).
		Where("user_id = ? AND media_id = ? AND media_type = ?", userID, mediaID, mediaType).
		Update("score", score)
	return res.RowsAffected, res.Error
}

// ListForMedia 作品下的评论，最新在前
func (r *ReviewRepository) ListForMedia(ctx context.Context, mediaID int64, mediaType model.MediaType, limit, offset int) ([]*model.Review, error) {
	var reviews []*model.Review
	err := r.db.WithContext(ctx).
		Where("media_id = ? AND media_type = ?", mediaID, mediaType).
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&reviews).Error
	return reviews, err
}
