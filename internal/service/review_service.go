package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"animeshelf/internal/model"
	"animeshelf/internal/repository"
	"animeshelf/pkg/logger"

	"go.uber.org/zap"
)

const (
	minReviewLength = 10
	maxReviewLength = 5000
)

// ReviewService 评论
// 评论与片单各自保存评分，互相同步只是尽力而为
type ReviewService struct {
	reviews ReviewStore
	entries LibraryStore
}

func NewReviewService(reviews ReviewStore, entries LibraryStore) *ReviewService {
	return &ReviewService{reviews: reviews, entries: entries}
}

// SubmitReview 提交或覆盖自己的评论
func (s *ReviewService) SubmitReview(ctx context.Context, userID uint, media Media, content string, score int) (*model.Review, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := media.validate(); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(content); n < minReviewLength || n > maxReviewLength {
		return nil, invalid("review must be %d to %d characters", minReviewLength, maxReviewLength)
	}
	if score < 1 || score > 10 {
		return nil, invalid("score must be between 1 and 10")
	}

	review := &model.Review{
		UserID:    userID,
		MediaID:   media.ID,
		MediaType: media.Type,
		Content:   content,
		Score:     score,
	}
	if err := s.reviews.Upsert(ctx, review); err != nil {
		return nil, storeErr("upsert review", err)
	}

	if _, err := s.entries.UpdateScore(ctx, userID, media.ID, media.Type, score); err != nil {
		logger.Warn("同步片单评分失败",
			zap.Uint("user_id", userID),
			zap.Int64("media_id", media.ID),
			zap.Error(err),
		)
	}

	return s.Review(ctx, userID, media)
}

// DeleteReview 删除自己的评论，片单评分不受影响
func (s *ReviewService) DeleteReview(ctx context.Context, userID uint, media Media) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := media.validate(); err != nil {
		return err
	}
	n, err := s.reviews.Delete(ctx, userID, media.ID, media.Type)
	if err != nil {
		return storeErr("delete review", err)
	}
	if n == 0 {
		return ErrReviewNotFound
	}
	return nil
}

// Review 某用户对某作品的评论
func (s *ReviewService) Review(ctx context.Context, userID uint, media Media) (*model.Review, error) {
	review, err := s.reviews.Get(ctx, userID, media.ID, media.Type)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrReviewNotFound
		}
		return nil, storeErr("get review", err)
	}
	return review, nil
}

// ReviewsFor 作品下的评论列表
func (s *ReviewService) ReviewsFor(ctx context.Context, media Media, page, pageSize int) ([]*model.Review, error) {
	if err := media.validate(); err != nil {
		return nil, err
	}
	limit, offset := paginate(page, pageSize)
	reviews, err := s.reviews.ListForMedia(ctx, media.ID, media.Type, limit, offset)
	if err != nil {
		return nil, storeErr("list reviews", err)
	}
	return reviews, nil
}

// paginate 页码从1开始，每页默认20条，最多100条
func paginate(page, pageSize int) (limit, offset int) {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	if page < 1 {
		page = 1
	}
	return pageSize, (page - 1) * pageSize
}
