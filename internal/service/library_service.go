package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"animeshelf/internal/model"
	"animeshelf/internal/repository"
	"animeshelf/pkg/logger"
	redisPkg "animeshelf/pkg/redis"

	"go.uber.org/zap"
)

const (
	defaultChunkSize = 500
	importLockTTL    = 10 * time.Minute
)

// EventRecorder 追加动态
type EventRecorder interface {
	RecordEvent(ctx context.Context, actorID uint, kind model.ActivityKind, media Media, snapshot model.MediaSnapshot, rating *int)
}

// ImportItem 一条待导入的外部条目
type ImportItem struct {
	Media    Media
	Status   model.LibraryStatus
	Score    int
	Snapshot model.MediaSnapshot
}

// ImportResult 导入结果
type ImportResult struct {
	Committed int `json:"committed"`
	Batches   int `json:"batches"`
}

// LibraryService 片单与评分
type LibraryService struct {
	entries   LibraryStore
	reviews   ReviewStore
	profiles  ProfileStore
	events    EventRecorder
	locker    Locker
	chunkSize int
	now       func() time.Time
}

func NewLibraryService(entries LibraryStore, reviews ReviewStore, profiles ProfileStore, events EventRecorder, locker Locker, chunkSize int) *LibraryService {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &LibraryService{
		entries:   entries,
		reviews:   reviews,
		profiles:  profiles,
		events:    events,
		locker:    locker,
		chunkSize: chunkSize,
		now:       time.Now,
	}
}

// snapshotColumns 快照为空时不覆盖已有的冗余信息
func (s *LibraryService) snapshotColumns(entry *model.LibraryEntry, snapshot model.MediaSnapshot) []string {
	if snapshot.Title == "" {
		return nil
	}
	entry.ApplySnapshot(snapshot)
	now := s.now()
	entry.MetadataSyncedAt = &now
	return []string{"title", "image_url", "genres", "metadata_synced_at"}
}

// SetStatus 设置片单状态，status 为 nil 时移除条目
// 冲突时只覆盖状态和快照，已有评分保留
func (s *LibraryService) SetStatus(ctx context.Context, userID uint, media Media, status *model.LibraryStatus, snapshot model.MediaSnapshot) (*model.LibraryEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := media.validate(); err != nil {
		return nil, err
	}

	if status == nil {
		if _, err := s.entries.Delete(ctx, userID, media.ID, media.Type); err != nil {
			return nil, storeErr("delete entry", err)
		}
		s.refreshItemsCount(ctx, userID)
		return nil, nil
	}
	if !status.Valid() {
		return nil, invalid("unknown status %q", *status)
	}

	entry := &model.LibraryEntry{
		UserID:    userID,
		MediaID:   media.ID,
		MediaType: media.Type,
		Status:    *status,
	}
	columns := append([]string{"status"}, s.snapshotColumns(entry, snapshot)...)
	if err := s.entries.Upsert(ctx, entry, columns); err != nil {
		return nil, storeErr("upsert entry", err)
	}

	switch *status {
	case model.StatusPlanToWatch:
		s.events.RecordEvent(ctx, userID, model.ActivityAddPlan, media, snapshot, nil)
	case model.StatusCompleted:
		s.events.RecordEvent(ctx, userID, model.ActivityAddCompleted, media, snapshot, nil)
	}
	s.refreshItemsCount(ctx, userID)

	return s.reload(ctx, userID, media)
}

// SetScore 评分 1..10，条目不存在时以 completed 状态创建
// 同步到已有评论的评分是尽力而为
func (s *LibraryService) SetScore(ctx context.Context, userID uint, media Media, score int, snapshot model.MediaSnapshot) (*model.LibraryEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := media.validate(); err != nil {
		return nil, err
	}
	if score < 1 || score > 10 {
		return nil, invalid("score must be between 1 and 10")
	}

	entry := &model.LibraryEntry{
		UserID:    userID,
		MediaID:   media.ID,
		MediaType: media.Type,
		Status:    model.StatusCompleted,
		Score:     score,
	}
	columns := append([]string{"score"}, s.snapshotColumns(entry, snapshot)...)
	if err := s.entries.Upsert(ctx, entry, columns); err != nil {
		return nil, storeErr("upsert score", err)
	}

	rating := score
	s.events.RecordEvent(ctx, userID, model.ActivityRated, media, snapshot, &rating)

	if _, err := s.reviews.UpdateScore(ctx, userID, media.ID, media.Type, score); err != nil {
		logger.Warn("同步评论评分失败",
			zap.Uint("user_id", userID),
			zap.Int64("media_id", media.ID),
			zap.Error(err),
		)
	}
	s.refreshItemsCount(ctx, userID)

	return s.reload(ctx, userID, media)
}

// BulkImport 分批写入外部导入的条目
// 某一批失败时中止，返回此前已提交的条数；全部成功后只记录一条汇总动态
func (s *LibraryService) BulkImport(ctx context.Context, userID uint, items []ImportItem) (ImportResult, error) {
	var result ImportResult
	if err := requireUser(userID); err != nil {
		return result, err
	}

	if s.locker != nil {
		release, acquired, err := s.locker.TryLock(ctx, fmt.Sprintf("import:%d", userID), importLockTTL)
		switch {
		case err == nil && !acquired:
			return result, ErrImportInProgress
		case err != nil && !errors.Is(err, redisPkg.ErrNotInitialized):
			logger.Warn("获取导入锁失败，继续导入", zap.Uint("user_id", userID), zap.Error(err))
		}
		defer release()
	}

	entries := s.importEntries(userID, items)
	for start := 0; start < len(entries); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(entries) {
			end = len(entries)
		}
		if err := s.entries.UpsertBatch(ctx, entries[start:end]); err != nil {
			s.refreshItemsCount(ctx, userID)
			return result, storeErr(fmt.Sprintf("import batch %d (committed %d)", result.Batches+1, result.Committed), err)
		}
		result.Batches++
		result.Committed += end - start
	}

	if result.Committed > 0 {
		count := result.Committed
		s.events.RecordEvent(ctx, userID, model.ActivityImportedList, Media{}, model.MediaSnapshot{
			Title: fmt.Sprintf("%d titles", count),
		}, &count)
	}
	s.refreshItemsCount(ctx, userID)

	logger.Info("片单导入完成",
		zap.Uint("user_id", userID),
		zap.Int("committed", result.Committed),
		zap.Int("batches", result.Batches),
	)
	return result, nil
}

// importEntries 校验并去重，同一作品以最后一条为准
func (s *LibraryService) importEntries(userID uint, items []ImportItem) []*model.LibraryEntry {
	index := make(map[Media]int, len(items))
	entries := make([]*model.LibraryEntry, 0, len(items))
	for _, item := range items {
		if item.Media.validate() != nil {
			continue
		}
		status := item.Status
		if !status.Valid() {
			status = model.StatusPlanToWatch
		}
		score := item.Score
		if score < 0 || score > 10 {
			score = 0
		}

		entry := &model.LibraryEntry{
			UserID:    userID,
			MediaID:   item.Media.ID,
			MediaType: item.Media.Type,
			Status:    status,
			Score:     score,
		}
		entry.ApplySnapshot(item.Snapshot)

		if i, ok := index[item.Media]; ok {
			entries[i] = entry
			continue
		}
		index[item.Media] = len(entries)
		entries = append(entries, entry)
	}
	return entries
}

// Library 用户片单，status 为空时返回全部
func (s *LibraryService) Library(ctx context.Context, userID uint, status model.LibraryStatus) ([]*model.LibraryEntry, error) {
	if status != "" && !status.Valid() {
		return nil, invalid("unknown status %q", status)
	}
	entries, err := s.entries.List(ctx, userID, status)
	if err != nil {
		return nil, storeErr("list entries", err)
	}
	return entries, nil
}

// Entry 单个条目
func (s *LibraryService) Entry(ctx context.Context, userID uint, media Media) (*model.LibraryEntry, error) {
	if err := media.validate(); err != nil {
		return nil, err
	}
	return s.reload(ctx, userID, media)
}

func (s *LibraryService) reload(ctx context.Context, userID uint, media Media) (*model.LibraryEntry, error) {
	entry, err := s.entries.Get(ctx, userID, media.ID, media.Type)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrEntryNotFound
		}
		return nil, storeErr("get entry", err)
	}
	return entry, nil
}

// refreshItemsCount 重新统计冗余计数，失败只记日志
func (s *LibraryService) refreshItemsCount(ctx context.Context, userID uint) {
	n, err := s.entries.Count(ctx, userID)
	if err == nil {
		err = s.profiles.SetItemsCount(ctx, userID, n)
	}
	if err != nil {
		logger.Warn("更新片单计数失败", zap.Uint("user_id", userID), zap.Error(err))
	}
}
