package service

import (
	"context"

	"animeshelf/internal/model"
	"animeshelf/internal/realtime"
	"animeshelf/internal/repository"
)

// RelationStatus 查看者视角的好友关系
type RelationStatus string

const (
	RelationSelf            RelationStatus = "self"
	RelationNone            RelationStatus = "none"
	RelationAccepted        RelationStatus = "accepted"
	RelationPendingSent     RelationStatus = "pending_sent"
	RelationPendingReceived RelationStatus = "pending_received"
)

// DeriveStatus 由两人之间的关系边推导查看者视角的状态
func DeriveStatus(viewerID, subjectID uint, edge *model.FriendEdge) RelationStatus {
	switch {
	case viewerID == subjectID:
		return RelationSelf
	case edge == nil:
		return RelationNone
	case edge.Status == model.FriendAccepted:
		return RelationAccepted
	case edge.RequesterID == viewerID:
		return RelationPendingSent
	default:
		return RelationPendingReceived
	}
}

// SocialService 好友关系状态机
type SocialService struct {
	edges    FriendStore
	profiles ProfileStore
	broker   *realtime.Broker
}

func NewSocialService(edges FriendStore, profiles ProfileStore, broker *realtime.Broker) *SocialService {
	return &SocialService{edges: edges, profiles: profiles, broker: broker}
}

// SendRequest 发送好友请求
// 先检查再插入，并发时由 (user_low, user_high) 唯一索引裁决，冲突后按库中现状返回
func (s *SocialService) SendRequest(ctx context.Context, viewerID, targetID uint) (*model.FriendEdge, error) {
	if err := requireUser(viewerID); err != nil {
		return nil, err
	}
	if viewerID == targetID {
		return nil, ErrAlreadySelf
	}
	if _, err := s.profiles.GetByID(ctx, targetID); err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrProfileNotFound
		}
		return nil, storeErr("get profile", err)
	}

	existing, err := s.edges.FindBetween(ctx, viewerID, targetID)
	if err != nil {
		return nil, storeErr("find edge", err)
	}
	if existing != nil {
		return nil, edgeConflict(existing)
	}

	edge := &model.FriendEdge{
		RequesterID: viewerID,
		TargetID:    targetID,
		Status:      model.FriendPending,
	}
	if err := s.edges.Create(ctx, edge); err != nil {
		if !repository.IsDuplicate(err) {
			return nil, storeErr("create edge", err)
		}
		current, findErr := s.edges.FindBetween(ctx, viewerID, targetID)
		if findErr != nil || current == nil {
			return nil, ErrAlreadyRequested
		}
		return nil, edgeConflict(current)
	}

	s.publish(ctx, realtime.OpInsert, edge.ID, viewerID, targetID)
	return edge, nil
}

func edgeConflict(edge *model.FriendEdge) error {
	if edge.Status == model.FriendAccepted {
		return ErrAlreadyFriends
	}
	return ErrAlreadyRequested
}

// AcceptRequest 接受 requester 发来的待处理请求
func (s *SocialService) AcceptRequest(ctx context.Context, viewerID, requesterID uint) error {
	if err := requireUser(viewerID); err != nil {
		return err
	}
	n, err := s.edges.Accept(ctx, requesterID, viewerID)
	if err != nil {
		return storeErr("accept edge", err)
	}
	if n == 0 {
		return ErrNoSuchRequest
	}

	s.publish(ctx, realtime.OpUpdate, 0, requesterID, viewerID)
	return nil
}

// RemoveOrCancel 删除两人之间的关系边：撤回、拒绝、解除好友都走这里
// 没有关系边时直接返回成功
func (s *SocialService) RemoveOrCancel(ctx context.Context, viewerID, otherID uint) error {
	if err := requireUser(viewerID); err != nil {
		return err
	}
	n, err := s.edges.DeleteBetween(ctx, viewerID, otherID)
	if err != nil {
		return storeErr("delete edge", err)
	}
	if n > 0 {
		s.publish(ctx, realtime.OpDelete, 0, viewerID, otherID)
	}
	return nil
}

// StatusFor 每次都重新读取关系边
func (s *SocialService) StatusFor(ctx context.Context, viewerID, subjectID uint) (RelationStatus, error) {
	if err := requireUser(viewerID); err != nil {
		return "", err
	}
	if viewerID == subjectID {
		return RelationSelf, nil
	}
	edge, err := s.edges.FindBetween(ctx, viewerID, subjectID)
	if err != nil {
		return "", storeErr("find edge", err)
	}
	return DeriveStatus(viewerID, subjectID, edge), nil
}

// Friends 已接受的好友资料
func (s *SocialService) Friends(ctx context.Context, viewerID uint) ([]*model.Profile, error) {
	if err := requireUser(viewerID); err != nil {
		return nil, err
	}
	ids, err := s.edges.FriendIDs(ctx, viewerID)
	if err != nil {
		return nil, storeErr("friend ids", err)
	}
	profiles, err := s.profiles.ListByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr("list profiles", err)
	}
	return profiles, nil
}

// Requests 收到和发出的待处理请求
func (s *SocialService) Requests(ctx context.Context, viewerID uint) (incoming, outgoing []*model.FriendEdge, err error) {
	if err := requireUser(viewerID); err != nil {
		return nil, nil, err
	}
	if incoming, err = s.edges.Incoming(ctx, viewerID); err != nil {
		return nil, nil, storeErr("incoming requests", err)
	}
	if outgoing, err = s.edges.Outgoing(ctx, viewerID); err != nil {
		return nil, nil, storeErr("outgoing requests", err)
	}
	return incoming, outgoing, nil
}

func (s *SocialService) publish(ctx context.Context, op realtime.Op, id uint, a, b uint) {
	s.broker.Publish(ctx, realtime.Change{
		Table:    realtime.TableFriendEdge,
		Op:       op,
		RecordID: id,
		UserIDs:  []uint{a, b},
	})
}
