package service

import (
	"context"

	"animeshelf/internal/model"
	"animeshelf/internal/realtime"
	"animeshelf/pkg/logger"

	"go.uber.org/zap"
)

// FeedScope 动态流范围
type FeedScope string

const (
	FeedGlobal  FeedScope = "global"
	FeedFriends FeedScope = "friends"
)

// ParseFeedScope 未知值按好友范围处理
func ParseFeedScope(s string) FeedScope {
	if FeedScope(s) == FeedGlobal {
		return FeedGlobal
	}
	return FeedFriends
}

// ActivityService 动态记录与动态流
type ActivityService struct {
	activities ActivityStore
	friends    FriendLister
	broker     *realtime.Broker
	limit      int
}

func NewActivityService(activities ActivityStore, friends FriendLister, broker *realtime.Broker, limit int) *ActivityService {
	if limit <= 0 {
		limit = 30
	}
	return &ActivityService{activities: activities, friends: friends, broker: broker, limit: limit}
}

// RecordEvent 追加一条动态，失败只记日志，不影响触发它的操作
func (s *ActivityService) RecordEvent(ctx context.Context, actorID uint, kind model.ActivityKind, media Media, snapshot model.MediaSnapshot, rating *int) {
	activity := &model.Activity{
		ActorID:    actorID,
		MediaID:    media.ID,
		MediaType:  media.Type,
		MediaTitle: snapshot.Title,
		MediaImage: snapshot.ImageURL,
		Kind:       kind,
		Rating:     rating,
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		logger.Warn("记录动态失败",
			zap.Uint("actor_id", actorID),
			zap.String("kind", string(kind)),
			zap.Int64("media_id", media.ID),
			zap.Error(err),
		)
		return
	}

	s.broker.Publish(ctx, realtime.Change{
		Table:    realtime.TableActivity,
		Op:       realtime.OpInsert,
		RecordID: activity.ID,
		UserIDs:  []uint{actorID},
	})
}

// FeedFor 全站或好友范围的最新动态
// 好友范围包含自己，没有好友时只返回自己的动态
func (s *ActivityService) FeedFor(ctx context.Context, viewerID uint, scope FeedScope) ([]*model.Activity, error) {
	if scope == FeedGlobal {
		activities, err := s.activities.Recent(ctx, s.limit)
		if err != nil {
			return nil, storeErr("recent activities", err)
		}
		return activities, nil
	}

	if err := requireUser(viewerID); err != nil {
		return nil, err
	}
	friendIDs, err := s.friends.FriendIDs(ctx, viewerID)
	if err != nil {
		return nil, storeErr("friend ids", err)
	}
	actors := append([]uint{viewerID}, friendIDs...)

	activities, err := s.activities.RecentByActors(ctx, actors, s.limit)
	if err != nil {
		return nil, storeErr("friend activities", err)
	}
	return activities, nil
}
