package model

import "time"

// ActivityKind 动态类型
type ActivityKind string

const (
	ActivityAddPlan      ActivityKind = "add_plan"
	ActivityAddCompleted ActivityKind = "add_completed"
	ActivityRated        ActivityKind = "rated"
	ActivityImportedList ActivityKind = "imported_list"
)

// Activity 不可变的用户动态，只追加不修改
type Activity struct {
	ID         uint         `gorm:"primaryKey"`
	ActorID    uint         `gorm:"not null;index;comment:触发者ID"`
	MediaID    int64        `gorm:"comment:作品ID"`
	MediaType  MediaType    `gorm:"type:varchar(16);comment:作品类型"`
	MediaTitle string       `gorm:"type:varchar(255);comment:标题快照"`
	MediaImage string       `gorm:"type:varchar(512);comment:封面快照"`
	Kind       ActivityKind `gorm:"type:varchar(32);not null;comment:动态类型"`
	Rating     *int         `gorm:"comment:评分"`
	CreatedAt  time.Time    `gorm:"index;comment:创建时间"`
}

func (Activity) TableName() string { return "activity" }

// All 返回需要迁移的全部模型
func All() []interface{} {
	return []interface{}{
		&Account{}, &Profile{}, &FriendEdge{}, &LibraryEntry{}, &Review{}, &Message{}, &Activity{},
	}
}
