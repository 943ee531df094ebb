package repository

import (
	"context"
	"time"

	"animeshelf/internal/model"

	"gorm.io/gorm"
)

// AccountRepository 登录凭据仓储
type AccountRepository struct {
	orm *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{orm: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	return r.orm.WithContext(ctx).Create(account).Error
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	var a model.Account
	if err := r.orm.WithContext(ctx).Where("email = ?", email).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) TouchLastSeen(ctx context.Context, id uint, at time.Time) error {
	return r.orm.WithContext(ctx).Model(&model.Account{}).
		Where("id = ?", id).
		Update("last_seen", at).Error
}
