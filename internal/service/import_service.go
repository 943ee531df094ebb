package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"animeshelf/internal/catalog"
	"animeshelf/internal/model"
	"animeshelf/pkg/logger"

	"go.uber.org/zap"
)

// ListFetcher 读取外部用户片单的一页
type ListFetcher interface {
	FetchUserList(ctx context.Context, username string, offset int) ([]catalog.ListEntry, error)
}

// Importer 批量写入片单
type Importer interface {
	BulkImport(ctx context.Context, userID uint, items []ImportItem) (ImportResult, error)
}

// ImportService 从外部片单导入
type ImportService struct {
	fetcher  ListFetcher
	library  Importer
	pageSize int
	maxItems int
}

func NewImportService(fetcher ListFetcher, library Importer, pageSize, maxItems int) *ImportService {
	if pageSize <= 0 {
		pageSize = 300
	}
	return &ImportService{fetcher: fetcher, library: library, pageSize: pageSize, maxItems: maxItems}
}

// MapListStatus 外部状态码映射：1 在看，2 看完，其他都算想看
func MapListStatus(code int) model.LibraryStatus {
	switch code {
	case catalog.ListStatusWatching:
		return model.StatusWatching
	case catalog.ListStatusCompleted:
		return model.StatusCompleted
	default:
		return model.StatusPlanToWatch
	}
}

// CollectList 逐页读取直到空页或达到上限
func (s *ImportService) CollectList(ctx context.Context, username string) ([]ImportItem, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, invalid("username is required")
	}

	var items []ImportItem
	for offset := 0; ; offset += s.pageSize {
		page, err := s.fetcher.FetchUserList(ctx, username, offset)
		if err != nil {
			if errors.Is(err, catalog.ErrInvalidArgument) {
				return nil, invalid("%s", err.Error())
			}
			return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
		}
		if len(page) == 0 {
			break
		}

		for _, entry := range page {
			score := entry.Score
			if score < 0 || score > 10 {
				score = 0
			}
			items = append(items, ImportItem{
				Media:  Media{ID: entry.MediaID, Type: model.MediaAnime},
				Status: MapListStatus(entry.Status),
				Score:  score,
				Snapshot: model.MediaSnapshot{
					Title:    entry.Title,
					ImageURL: entry.ImageURL,
				},
			})
		}
		if s.maxItems > 0 && len(items) >= s.maxItems {
			items = items[:s.maxItems]
			break
		}
	}
	return items, nil
}

// Run 读取外部片单并导入到 userID 的片单
func (s *ImportService) Run(ctx context.Context, userID uint, username string) (ImportResult, error) {
	if err := requireUser(userID); err != nil {
		return ImportResult{}, err
	}
	items, err := s.CollectList(ctx, username)
	if err != nil {
		return ImportResult{}, err
	}

	logger.Info("开始导入片单",
		zap.Uint("user_id", userID),
		zap.String("username", username),
		zap.Int("items", len(items)),
	)
	return s.library.BulkImport(ctx, userID, items)
}
