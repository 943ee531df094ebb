package service

import (
	"context"
	"time"

	"animeshelf/internal/model"
)

// 服务依赖的存储接口，由 repository 包中的实现满足

type AccountStore interface {
	Create(ctx context.Context, account *model.Account) error
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	TouchLastSeen(ctx context.Context, id uint, at time.Time) error
}

type ProfileStore interface {
	GetByID(ctx context.Context, id uint) (*model.Profile, error)
	Ensure(ctx context.Context, id uint) (*model.Profile, error)
	GetByUsername(ctx context.Context, username string) (*model.Profile, error)
	UpdateUsername(ctx context.Context, id uint, username string) error
	UpdateAvatar(ctx context.Context, id uint, avatarURL string) error
	SetItemsCount(ctx context.Context, id uint, count int64) error
	ListByIDs(ctx context.Context, ids []uint) ([]*model.Profile, error)
	SearchByUsername(ctx context.Context, prefix string, limit int) ([]*model.Profile, error)
}

// FriendLister 查询已接受的好友
type FriendLister interface {
	FriendIDs(ctx context.Context, userID uint) ([]uint, error)
}

type FriendStore interface {
	FriendLister
	FindBetween(ctx context.Context, a, b uint) (*model.FriendEdge, error)
	Create(ctx context.Context, edge *model.FriendEdge) error
	Accept(ctx context.Context, requesterID, targetID uint) (int64, error)
	DeleteBetween(ctx context.Context, a, b uint) (int64, error)
	Incoming(ctx context.Context, userID uint) ([]*model.FriendEdge, error)
	Outgoing(ctx context.Context, userID uint) ([]*model.FriendEdge, error)
}

type LibraryStore interface {
	Upsert(ctx context.Context, entry *model.LibraryEntry, columns []string) error
	UpsertBatch(ctx context.Context, entries []*model.LibraryEntry) error
	Get(ctx context.Context, userID uint, mediaID int64, mediaType model.MediaType) (*model.LibraryEntry, error)
	Delete(ctx context.Context, userID uint, mediaID int64, mediaType model.MediaType) (int64, error)
	List(ctx context.Context, userID uint, status model.LibraryStatus) ([]*model.LibraryEntry, error)
	Count(ctx context.Context, userID uint) (int64, error)
	UpdateScore(ctx context.Context, userID uint, mediaID int64, mediaType model.MediaType, score int) (int64, error)
	PendingMetadata(ctx context.Context, userID uint, limit int) ([]*model.LibraryEntry, error)
	MarkSynced(ctx context.Context, id uint, snapshot *model.MediaSnapshot, at time.Time) error
}

type ReviewStore interface {
	Upsert(ctx context.Context, review *model.Review) error
	Get(ctx context.Context, userID uint, mediaID int64, mediaType model.MediaType) (*model.Review, error)
	Delete(ctx context.Context, userID uint, mediaID int64, mediaType model.MediaType) (int64, error)
	UpdateScore(ctx context.Context, userID uint, mediaID int64, mediaType model.MediaType, score int) (int64, error)
	ListForMedia(ctx context.Context, mediaID int64, mediaType model.MediaType, limit, offset int) ([]*model.Review, error)
}

type MessageStore interface {
	Create(ctx context.Context, message *model.Message) error
	Conversation(ctx context.Context, a, b uint, limit, offset int) ([]*model.Message, error)
	MarkConversationAsRead(ctx context.Context, readerID, otherID uint) (int64, error)
	UnreadCount(ctx context.Context, userID uint, senderID *uint) (int64, error)
	UnreadBySender(ctx context.Context, userID uint) (map[uint]int64, error)
	LatestPerPartner(ctx context.Context, userID uint, limit int) ([]*model.Message, error)
}

type ActivityStore interface {
	Create(ctx context.Context, activity *model.Activity) error
	Recent(ctx context.Context, limit int) ([]*model.Activity, error)
	RecentByActors(ctx context.Context, actorIDs []uint, limit int) ([]*model.Activity, error)
}

// UnreadCache 未读数缓存，只作读优化
type UnreadCache interface {
	GetUnreadCount(ctx context.Context, userID uint, senderID *uint) (int64, bool, error)
	UnreadGeneration(ctx context.Context, userID uint) (int64, error)
	SetUnreadCount(ctx context.Context, userID uint, senderID *uint, count, generation int64) (bool, error)
	InvalidateUnread(ctx context.Context, userID uint) error
}

// Locker 跨实例互斥
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(), acquired bool, err error)
}

// Media 作品标识
type Media struct {
	ID   int64
	Type model.MediaType
}

func (m Media) validate() error {
	if m.ID <= 0 {
		return invalid("media id must be positive")
	}
	if !m.Type.Valid() {
		return invalid("unknown media type %q", m.Type)
	}
	return nil
}

func requireUser(userID uint) error {
	if userID == 0 {
		return ErrNotAuthenticated
	}
	return nil
}
