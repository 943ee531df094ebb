package repository

import (
	"context"
	"time"

	"animeshelf/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var libraryConflictKey = []clause.Column{{Name: "user_id"}, {Name: "media_id"}, {Name: "media_type"}}

// LibraryRepository 片单仓储
type LibraryRepository struct {
	db *gorm.DB
}

func NewLibraryRepository(db *gorm.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

// Upsert 按 (user_id, media_id, media_type) 插入或更新，冲突时只覆盖 columns 列
func (r *LibraryRepository) Upsert(ctx context.Context, entry *model.LibraryEntry, columns []string) error {
	cols := append(append([]string{}, columns...), "updated_at")
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   libraryConflictKey,
			DoUpdates: clause.AssignmentColumns(cols),
		}).
		Create(entry).Error
}

// UpsertBatch 单条语句批量写入导入条目，已回填的元数据时间不被覆盖
func (r *LibraryRepository) UpsertBatch(ctx context.Context, entries []*model.LibraryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   libraryConflictKey,
			DoUpdates: clause.AssignmentColumns([]string{"status", "score", "title", "image_url", "updated_at"}),
		}).
		Create(&entries).Error
}

func (r *LibraryRepository) Get(ctx context.Context, userID uint, mediaID int64, mediaType model.MediaType) (*model.LibraryEntry, error) {
	var e model.LibraryEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND media_id = ? AND media_type = ?", userID, mediaID, mediaType).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *LibraryRepository) Delete(ctx context.Context, userID uint, mediaID int64, mediaType model.MediaType) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND media_id = ? AND media_type = ?", userID, mediaID, mediaType).
		Delete(&model.LibraryEntry{})
	return res.RowsAffected, res.Error
}

// List 用户片单，status 为空时返回全部
func (r *LibraryRepository) List(ctx context.Context, userID uint, status model.LibraryStatus) ([]*model.LibraryEntry, error) {
	var entries []*model.LibraryEntry
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("updated_at DESC").Order("id DESC").Find(&entries).Error
	return entries, err
}

func (r *LibraryRepository) Count(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.LibraryEntry{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// UpdateScore 只修改已有条目的评分
func (r *LibraryRepository) UpdateScore(ctx context.Context, userID uint, mediaID int64, mediaType model.MediaType, score int) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.LibraryEntry{}).
		Where("user_id = ? AND media_id = ? AND media_type = ?", userID, mediaID, mediaType).
		Update("score", score)
	return res.RowsAffected, res.Error
}

// PendingMetadata 需要回填元数据的条目，按ID升序
func (r *LibraryRepository) PendingMetadata(ctx context.Context, userID uint, limit int) ([]*model.LibraryEntry, error) {
	var entries []*model.LibraryEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND metadata_synced_at IS NULL", userID).
		Order("id ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// MarkSynced 写入回填结果，snapshot 为空表示上游已无此作品，仅标记时间
func (r *LibraryRepository) MarkSynced(ctx context.Context, id uint, snapshot *model.MediaSnapshot, at time.Time) error {
	updates := map[string]interface{}{"metadata_synced_at": at}
	if snapshot != nil {
		updates["title"] = snapshot.Title
		updates["image_url"] = snapshot.ImageURL
		updates["genres"] = datatypes.JSONSlice[string](snapshot.Genres)
	}
	return r.db.WithContext(ctx).Model(&model.LibraryEntry{}).Where("id = ?", id).Updates(updates).Error
}
