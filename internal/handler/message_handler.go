package handler

import (
	"strconv"

	"animeshelf/internal/service"
	"animeshelf/pkg/response"

	"github.com/gin-gonic/gin"
)

// MessageHandler 私聊消息
type MessageHandler struct {
	messages *service.MessageService
	profiles *service.ProfileService
}

func NewMessageHandler(messages *service.MessageService, profiles *service.ProfileService) *MessageHandler {
	return &MessageHandler{messages: messages, profiles: profiles}
}

// Send 发送消息
func (h *MessageHandler) Send(c *gin.Context) {
	var r struct {
		ReceiverID uint   `json:"receiver_id" binding:"required"`
		Content    string `json:"content"`
	}
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	msg, err := h.messages.Send(c.Request.Context(), currentUser(c), r.ReceiverID, r.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "发送成功", response.FilterMessage(msg))
}

// Conversation 与 :id 的消息记录，按时间升序
func (h *MessageHandler) Conversation(c *gin.Context) {
	otherID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	page, pageSize := queryInt(c, "page", 1), queryInt(c, "page_size", 50)
	messages, err := h.messages.Conversation(c.Request.Context(), currentUser(c), otherID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, &response.Page{Items: response.FilterMessages(messages), Page: page, PageSize: pageSize})
}

// Conversations 会话列表
func (h *MessageHandler) Conversations(c *gin.Context) {
	ctx := c.Request.Context()
	summaries, err := h.messages.Conversations(ctx, currentUser(c), queryInt(c, "limit", 20))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]*response.ConversationInfo, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, &response.ConversationInfo{
			Partner:     response.FilterProfile(s.Partner, h.profiles.IsOnline(ctx, s.Partner.ID)),
			LastMessage: response.FilterMessage(s.LastMessage),
			UnreadCount: s.UnreadCount,
		})
	}
	response.Success(c, out)
}

// Unread 未读数量，?sender_id= 只统计该发送者
func (h *MessageHandler) Unread(c *gin.Context) {
	var senderID *uint
	if v := c.Query("sender_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			response.BadRequest(c, "invalid sender_id")
			return
		}
		sid := uint(id)
		senderID = &sid
	}
	count, err := h.messages.UnreadCount(c.Request.Context(), currentUser(c), senderID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"unread_count": count})
}

// MarkRead 把 :id 发来的消息全部标记为已读
func (h *MessageHandler) MarkRead(c *gin.Context) {
	otherID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	n, err := h.messages.MarkConversationRead(c.Request.Context(), currentUser(c), otherID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"marked": n})
}
