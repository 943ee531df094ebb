// Package realtime 进程内的表变更通知，可选通过 Redis 在多实例间转发
package realtime

// Table 被订阅的表
type Table string

const (
	TableMessage    Table = "message"
	TableActivity   Table = "activity"
	TableFriendEdge Table = "friend_edge"
)

// Op 变更类型
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change 一次行变更
// UserIDs 为该行涉及的用户（发送者/接收者、动态作者、好友边两端）
type Change struct {
	Table    Table  `json:"table"`
	Op       Op     `json:"op"`
	RecordID uint   `json:"record_id"`
	UserIDs  []uint `json:"user_ids"`
	Origin   string `json:"origin,omitempty"`
}

// Involves 变更是否涉及 userID
func (c Change) Involves(userID uint) bool {
	for _, id := range c.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Filter 订阅过滤条件，nil 表示接收全部
type Filter func(Change) bool

// Involving 只接收涉及 userID 的变更
func Involving(userID uint) Filter {
	return func(c Change) bool { return c.Involves(userID) }
}

// InsertsOnly 只接收插入
func InsertsOnly(next Filter) Filter {
	return func(c Change) bool {
		if c.Op != OpInsert {
			return false
		}
		return next == nil || next(c)
	}
}
