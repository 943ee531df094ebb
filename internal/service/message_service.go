package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"animeshelf/internal/model"
	"animeshelf/internal/realtime"
	"animeshelf/internal/repository"
	"animeshelf/pkg/logger"
	redisPkg "animeshelf/pkg/redis"

	"go.uber.org/zap"
)

const maxMessageLength = 2000

// ConversationSummary 对话列表中的一项
type ConversationSummary struct {
	Partner     *model.Profile
	LastMessage *model.Message
	UnreadCount int64
}

// MessageService 消息服务
// 未读数以数据库为准，缓存在每次写入后整体失效
type MessageService struct {
	messages MessageStore
	profiles ProfileStore
	cache    UnreadCache
	broker   *realtime.Broker
}

// NewMessageService 创建MessageService实例
func NewMessageService(messages MessageStore, profiles ProfileStore, cache UnreadCache, broker *realtime.Broker) *MessageService {
	if cache == nil {
		cache = (*redisPkg.Client)(nil)
	}
	return &MessageService{
		messages: messages,
		profiles: profiles,
		cache:    cache,
		broker:   broker,
	}
}

// Send 发送私聊消息
func (s *MessageService) Send(ctx context.Context, senderID, receiverID uint, content string) (*model.Message, error) {
	if err := requireUser(senderID); err != nil {
		return nil, err
	}
	// 不能给自己发消息
	if senderID == receiverID {
		return nil, invalid("cannot send message to yourself")
	}
	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(content); n == 0 || n > maxMessageLength {
		return nil, invalid("message must be 1 to %d characters", maxMessageLength)
	}

	// 检查接收者是否存在
	if _, err := s.profiles.GetByID(ctx, receiverID); err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrProfileNotFound
		}
		return nil, storeErr("get receiver", err)
	}

	message := &model.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, storeErr("create message", err)
	}

	s.invalidate(ctx, receiverID)
	s.broker.Publish(ctx, realtime.Change{
		Table:    realtime.TableMessage,
		Op:       realtime.OpInsert,
		RecordID: message.ID,
		UserIDs:  []uint{senderID, receiverID},
	})
	return message, nil
}

// Conversation 与对方的消息，按时间升序
func (s *MessageService) Conversation(ctx context.Context, userID, otherID uint, page, pageSize int) ([]*model.Message, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	limit, offset := paginate(page, pageSize)
	messages, err := s.messages.Conversation(ctx, userID, otherID, limit, offset)
	if err != nil {
		return nil, storeErr("conversation", err)
	}
	return messages, nil
}

// Conversations 对话列表，最近有消息的在前
func (s *MessageService) Conversations(ctx context.Context, userID uint, limit int) ([]*ConversationSummary, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	latest, err := s.messages.LatestPerPartner(ctx, userID, limit)
	if err != nil {
		return nil, storeErr("latest messages", err)
	}
	unread, err := s.messages.UnreadBySender(ctx, userID)
	if err != nil {
		return nil, storeErr("unread by sender", err)
	}

	partnerIDs := make([]uint, 0, len(latest))
	for _, m := range latest {
		partnerIDs = append(partnerIDs, partnerOf(m, userID))
	}
	profiles, err := s.profiles.ListByIDs(ctx, partnerIDs)
	if err != nil {
		return nil, storeErr("list partners", err)
	}
	byID := make(map[uint]*model.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	summaries := make([]*ConversationSummary, 0, len(latest))
	for _, m := range latest {
		partnerID := partnerOf(m, userID)
		partner := byID[partnerID]
		if partner == nil {
			partner = &model.Profile{ID: partnerID}
		}
		summaries = append(summaries, &ConversationSummary{
			Partner:     partner,
			LastMessage: m,
			UnreadCount: unread[partnerID],
		})
	}
	return summaries, nil
}

func partnerOf(m *model.Message, userID uint) uint {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// UnreadCount 未读数量，senderID 不为空时只统计该发送者
// 缓存未命中时从数据库计算，期间没有发生失效才回写
func (s *MessageService) UnreadCount(ctx context.Context, userID uint, senderID *uint) (int64, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}

	if count, found, err := s.cache.GetUnreadCount(ctx, userID, senderID); err == nil && found {
		return count, nil
	}

	// 代数必须在查库之前读取，查库后若有写入失效，回写会被拒绝
	gen, genErr := s.cache.UnreadGeneration(ctx, userID)
	count, err := s.messages.UnreadCount(ctx, userID, senderID)
	if err != nil {
		return 0, storeErr("unread count", err)
	}
	if genErr == nil {
		_, _ = s.cache.SetUnreadCount(ctx, userID, senderID, count, gen)
	}
	return count, nil
}

// UnreadBySender 每个发送者的未读数量
func (s *MessageService) UnreadBySender(ctx context.Context, userID uint) (map[uint]int64, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	counts, err := s.messages.UnreadBySender(ctx, userID)
	if err != nil {
		return nil, storeErr("unread by sender", err)
	}
	return counts, nil
}

// MarkConversationRead 把 other 发给 reader 的未读消息全部标记已读
// reader 自己发出的消息不受影响
func (s *MessageService) MarkConversationRead(ctx context.Context, readerID, otherID uint) (int64, error) {
	if err := requireUser(readerID); err != nil {
		return 0, err
	}
	n, err := s.messages.MarkConversationAsRead(ctx, readerID, otherID)
	if err != nil {
		return 0, storeErr("mark read", err)
	}

	s.invalidate(ctx, readerID)
	if n > 0 {
		s.broker.Publish(ctx, realtime.Change{
			Table:   realtime.TableMessage,
			Op:      realtime.OpUpdate,
			UserIDs: []uint{readerID, otherID},
		})
	}
	return n, nil
}

func (s *MessageService) invalidate(ctx context.Context, userID uint) {
	if err := s.cache.InvalidateUnread(ctx, userID); err != nil {
		logger.Debug("清除未读缓存失败", zap.Uint("user_id", userID), zap.Error(err))
	}
}
