package websocket

import (
	"context"
	"encoding/json"

	"animeshelf/internal/realtime"
	"animeshelf/internal/service"
	"animeshelf/pkg/response"

	"go.uber.org/zap"
)

// session 单个连接的通知循环，所有推送都在 run 所在的协程里完成
type session struct {
	deps   Deps
	client *Client
	log    *zap.Logger

	msgs  *realtime.Subscription
	acts  *realtime.Subscription
	edges *realtime.Subscription

	// actors 自己和已接受的好友，决定哪些动态会触发动态流刷新
	actors map[uint]bool
}

// run 推送初始数据后处理变更通知，直到 ctx 取消
// 返回 true 表示通知流被关闭
func (s *session) run(ctx context.Context) bool {
	s.refreshActors(ctx)
	s.pushUnread(ctx)
	s.pushFeed(ctx)

	for {
		select {
		case <-ctx.Done():
			return false
		case c, ok := <-s.msgs.C:
			if !ok {
				return true
			}
			s.push(EventMessage, MessageNotice{ID: c.RecordID, Op: c.Op, UserIDs: c.UserIDs})
			s.pushUnread(ctx)
		case c, ok := <-s.acts.C:
			if !ok {
				return true
			}
			if s.watches(c) {
				s.pushFeed(ctx)
			}
		case c, ok := <-s.edges.C:
			if !ok {
				return true
			}
			s.onRelationship(ctx, c)
		}
	}
}

func (s *session) close() {
	s.msgs.Close()
	s.acts.Close()
	s.edges.Close()
}

func (s *session) watches(c realtime.Change) bool {
	for _, id := range c.UserIDs {
		if s.actors[id] {
			return true
		}
	}
	return false
}

// refreshActors 重新读取好友集合，返回集合是否变化
// 读取失败时保留旧集合
func (s *session) refreshActors(ctx context.Context) bool {
	userID := s.client.UserID
	friends, err := s.deps.Relations.Friends(ctx, userID)
	if err != nil {
		s.log.Warn("读取好友列表失败", zap.Error(err))
		if s.actors == nil {
			s.actors = map[uint]bool{userID: true}
		}
		return false
	}

	actors := map[uint]bool{userID: true}
	for _, f := range friends {
		actors[f.ID] = true
	}
	changed := len(actors) != len(s.actors)
	for id := range actors {
		if !s.actors[id] {
			changed = true
			break
		}
	}
	s.actors = actors
	return changed
}

func (s *session) onRelationship(ctx context.Context, c realtime.Change) {
	userID := s.client.UserID
	for _, other := range c.UserIDs {
		if other == userID {
			continue
		}
		status, err := s.deps.Relations.StatusFor(ctx, userID, other)
		if err != nil {
			s.log.Warn("读取好友关系失败", zap.Uint("other_id", other), zap.Error(err))
			continue
		}
		s.push(EventRelationship, response.RelationshipResponse{UserID: other, Status: string(status)})
	}

	// 好友集合变化后动态流范围随之变化
	if s.refreshActors(ctx) {
		s.pushFeed(ctx)
	}
}

func (s *session) pushUnread(ctx context.Context) {
	userID := s.client.UserID
	total, err := s.deps.Inbox.UnreadCount(ctx, userID, nil)
	if err != nil {
		s.log.Warn("读取未读数失败", zap.Error(err))
		return
	}
	bySender, err := s.deps.Inbox.UnreadBySender(ctx, userID)
	if err != nil {
		s.log.Warn("读取分组未读数失败", zap.Error(err))
		return
	}
	s.push(EventUnread, UnreadInfo{Total: total, BySender: bySender})
}

func (s *session) pushFeed(ctx context.Context) {
	userID := s.client.UserID
	activities, err := s.deps.Feed.FeedFor(ctx, userID, service.FeedFriends)
	if err != nil {
		s.log.Warn("读取动态流失败", zap.Error(err))
		return
	}
	s.push(EventFeed, response.FilterActivities(activities))
}

func (s *session) push(kind string, data interface{}) {
	payload, err := json.Marshal(Event{Type: kind, Data: data})
	if err != nil {
		s.log.Error("序列化推送事件失败", zap.String("type", kind), zap.Error(err))
		return
	}
	if !s.deps.Manager.Push(s.client, payload) {
		s.log.Debug("推送被丢弃", zap.String("type", kind))
	}
}
