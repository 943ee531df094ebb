package service

import (
	"context"
	"errors"
	"time"

	"animeshelf/internal/catalog"
	"animeshelf/internal/model"
	"animeshelf/pkg/logger"

	"go.uber.org/zap"
)

// ItemFetcher 按ID读取目录条目，不存在时返回 (nil, nil)
type ItemFetcher interface {
	FetchByID(ctx context.Context, mediaType model.MediaType, id int64) (*catalog.Item, error)
}

// BackfillResult 一次回填的结果
type BackfillResult struct {
	Synced      int  `json:"synced"`
	Skipped     int  `json:"skipped"`
	RateLimited bool `json:"rate_limited"`
}

// BackfillService 为缺少元数据的片单条目补全快照
// 每次调用只处理一小批，请求之间固定间隔
type BackfillService struct {
	entries   LibraryStore
	fetcher   ItemFetcher
	batchSize int
	delay     time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time
}

func NewBackfillService(entries LibraryStore, fetcher ItemFetcher, batchSize int, delay time.Duration) *BackfillService {
	if batchSize <= 0 {
		batchSize = 5
	}
	return &BackfillService{
		entries:   entries,
		fetcher:   fetcher,
		batchSize: batchSize,
		delay:     delay,
		sleep:     sleepCtx,
		now:       time.Now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run 处理 userID 的下一批待回填条目
// 上游已无此作品时也标记为已同步；遇到限流立即结束本次调用；其他上游错误跳过该条
func (s *BackfillService) Run(ctx context.Context, userID uint) (BackfillResult, error) {
	var result BackfillResult
	if err := requireUser(userID); err != nil {
		return result, err
	}

	pending, err := s.entries.PendingMetadata(ctx, userID, s.batchSize)
	if err != nil {
		return result, storeErr("pending metadata", err)
	}

	for i, entry := range pending {
		if i > 0 {
			if err := s.sleep(ctx, s.delay); err != nil {
				return result, err
			}
		}

		item, err := s.fetcher.FetchByID(ctx, entry.MediaType, entry.MediaID)
		if errors.Is(err, catalog.ErrRateLimited) {
			result.RateLimited = true
			logger.Info("回填遇到限流，结束本次调用", zap.Uint("user_id", userID), zap.Int("synced", result.Synced))
			break
		}
		if err != nil {
			result.Skipped++
			logger.Warn("回填单条失败",
				zap.Uint("entry_id", entry.ID),
				zap.Int64("media_id", entry.MediaID),
				zap.Error(err),
			)
			continue
		}

		var snapshot *model.MediaSnapshot
		if item != nil {
			snap := item.Snapshot()
			snapshot = &snap
		}
		if err := s.entries.MarkSynced(ctx, entry.ID, snapshot, s.now()); err != nil {
			return result, storeErr("mark synced", err)
		}
		result.Synced++
	}
	return result, nil
}
