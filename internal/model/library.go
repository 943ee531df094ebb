package model

import (
	"time"

	"gorm.io/datatypes"
)

// MediaType 作品类型
type MediaType string

const (
	MediaAnime MediaType = "anime"
	MediaManga MediaType = "manga"
)

// Valid 是否为已知类型
func (t MediaType) Valid() bool {
	return t == MediaAnime || t == MediaManga
}

// LibraryStatus 片单状态，状态为空表示移除
type LibraryStatus string

const (
	StatusPlanToWatch LibraryStatus = "plan_to_watch"
	StatusWatching    LibraryStatus = "watching"
	StatusCompleted   LibraryStatus = "completed"
)

// Valid 是否为已知状态
func (s LibraryStatus) Valid() bool {
	switch s {
	case StatusPlanToWatch, StatusWatching, StatusCompleted:
		return true
	}
	return false
}

// MediaSnapshot 写入时冗余保存的作品信息
type MediaSnapshot struct {
	Title    string
	ImageURL string
	Genres   []string
}

// LibraryEntry 用户片单条目
// (UserID, MediaID, MediaType) 唯一，Score 取值 0..10，0 表示未评分
// MetadataSyncedAt 为空表示需要回填元数据

type LibraryEntry struct {
	ID               uint                        `gorm:"primaryKey"`
	UserID           uint                        `gorm:"not null;uniqueIndex:ux_library_key,priority:1;comment:用户ID"`
	MediaID          int64                       `gorm:"not null;uniqueIndex:ux_library_key,priority:2;comment:作品ID"`
	MediaType        MediaType                   `gorm:"type:varchar(16);not null;uniqueIndex:ux_library_key,priority:3;comment:作品类型"`
	Status           LibraryStatus               `gorm:"type:varchar(32);not null;comment:状态"`
	Score            int                         `gorm:"not null;default:0;comment:评分"`
	Title            string                      `gorm:"type:varchar(255);comment:标题快照"`
	ImageURL         string                      `gorm:"type:varchar(512);comment:封面快照"`
	Genres           datatypes.JSONSlice[string] `gorm:"comment:类型快照"`
	MetadataSyncedAt *time.Time                  `gorm:"index;comment:元数据回填时间"`
	CreatedAt        time.Time                   `gorm:"comment:创建时间"`
	UpdatedAt        time.Time                   `gorm:"comment:更新时间"`
}

func (LibraryEntry) TableName() string { return "library_entry" }

// ApplySnapshot 覆盖冗余的作品信息
func (e *LibraryEntry) ApplySnapshot(s MediaSnapshot) {
	e.Title = s.Title
	e.ImageURL = s.ImageURL
	e.Genres = datatypes.JSONSlice[string](s.Genres)
}

// Review 用户评论，(UserID, MediaID, MediaType) 唯一
type Review struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:ux_review_key,priority:1;comment:用户ID"`
	MediaID   int64     `gorm:"not null;uniqueIndex:ux_review_key,priority:2;index:idx_review_media,priority:1;comment:作品ID"`
	MediaType MediaType `gorm:"type:varchar(16);not null;uniqueIndex:ux_review_key,priority:3;index:idx_review_media,priority:2;comment:作品类型"`
	Content   string    `gorm:"type:text;not null;comment:评论内容"`
	Score     int       `gorm:"not null;comment:评分"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
	UpdatedAt time.Time `gorm:"comment:更新时间"`
}

func (Review) TableName() string { return "review" }
