package repository

import (
	"context"
	"errors"

	"animeshelf/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository 用户资料仓储
type ProfileRepository struct {
	orm *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{orm: db}
}

func (r *ProfileRepository) GetByID(ctx context.Context, id uint) (*model.Profile, error) {
	var p model.Profile
	if err := r.orm.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Ensure 首次登录时创建资料，已存在则原样返回
func (r *ProfileRepository) Ensure(ctx context.Context, id uint) (*model.Profile, error) {
	p := &model.Profile{ID: id}
	err := r.orm.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(p).Error
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *ProfileRepository) GetByUsername(ctx context.Context, username string) (*model.Profile, error) {
	var p model.Profile
	if err := r.orm.WithContext(ctx).Where("username = ?", username).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateUsername 修改用户名，重名时返回 gorm.ErrDuplicatedKey
func (r *ProfileRepository) UpdateUsername(ctx context.Context, id uint, username string) error {
	res := r.orm.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ?", id).
		Update("username", username)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ProfileRepository) UpdateAvatar(ctx context.Context, id uint, avatarURL string) error {
	return r.orm.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ?", id).
		Update("avatar_url", avatarURL).Error
}

// SetItemsCount 覆盖冗余的片单条目数
func (r *ProfileRepository) SetItemsCount(ctx context.Context, id uint, count int64) error {
	return r.orm.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ?", id).
		Update("items_count", count).Error
}

func (r *ProfileRepository) ListByIDs(ctx context.Context, ids []uint) ([]*model.Profile, error) {
	var profiles []*model.Profile
	if len(ids) == 0 {
		return profiles, nil
	}
	err := r.orm.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&profiles).Error
	return profiles, err
}

// SearchByUsername 按用户名前缀查找
func (r *ProfileRepository) SearchByUsername(ctx context.Context, prefix string, limit int) ([]*model.Profile, error) {
	var profiles []*model.Profile
	err := r.orm.WithContext(ctx).
		Where("username LIKE ?", prefix+"%").
		Order("username ASC").
		Limit(limit).
		Find(&profiles).Error
	return profiles, err
}

// IsNotFound 判断是否为记录不存在
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate 判断是否为唯一约束冲突
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
