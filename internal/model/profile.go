package model

import (
	"time"
)

// Profile 用户资料，ID 与身份提供方的账号ID一致
// Username 首次登录时为空，由本人设置后唯一
// ItemsCount 由片单模块维护的冗余计数

type Profile struct {
	ID         uint      `gorm:"primaryKey;autoIncrement:false"`
	Username   *string   `gorm:"type:varchar(32);uniqueIndex;comment:用户名"`
	AvatarURL  string    `gorm:"type:varchar(255);comment:头像地址"`
	Role       string    `gorm:"type:varchar(32);default:'member';comment:角色标签"`
	IsPremium  bool      `gorm:"default:false;comment:是否高级会员"`
	IsAdmin    bool      `gorm:"default:false;comment:是否管理员"`
	ItemsCount int64     `gorm:"default:0;comment:片单条目数"`
	CreatedAt  time.Time `gorm:"comment:创建时间"`
	UpdatedAt  time.Time `gorm:"comment:更新时间"`
}

func (Profile) TableName() string { return "profile" }

// DisplayName 返回用户名，未设置时为空串
func (p *Profile) DisplayName() string {
	if p == nil || p.Username == nil {
		return ""
	}
	return *p.Username
}

// Account 本地身份提供方的登录凭据
// 说明：密码仅存储哈希（PasswordHash），不存储明文

type Account struct {
	ID           uint      `gorm:"primaryKey"`
	Email        string    `gorm:"type:varchar(128);not null;uniqueIndex;comment:邮箱"`
	PasswordHash string    `gorm:"type:varchar(255);not null;comment:密码哈希"`
	LastSeen     time.Time `gorm:"comment:最近登录时间"`
	CreatedAt    time.Time `gorm:"comment:创建时间"`
	UpdatedAt    time.Time `gorm:"comment:更新时间"`
}

func (Account) TableName() string { return "account" }
