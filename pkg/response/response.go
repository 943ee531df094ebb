package response

import (
	"net/http"
	"time"

	"animeshelf/internal/model"

	"github.com/gin-gonic/gin"
)

// 错误码，与HTTP语义保持一致
const (
	CodeOK                 = 0
	CodeBadRequest         = 400
	CodeUnauthorized       = 401
	CodeForbidden          = 403
	CodeNotFound           = 404
	CodeConflict           = 409
	CodeValidation         = 422
	CodeInternal           = 500
	CodeServiceUnavailable = 503
)

const timeLayout = time.RFC3339

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`            // 状态码：0表示成功，其他表示错误
	Message string      `json:"message"`         // 响应消息
	Data    interface{} `json:"data,omitempty"`  // 响应数据
	Error   string      `json:"error,omitempty"` // 错误详情（仅在开发环境显示）
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	SuccessWithMessage(c, "success", data)
}

// SuccessWithMessage 带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeOK,
		Message: message,
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

// ErrorWithDetails 带错误详情的错误响应
func ErrorWithDetails(c *gin.Context, code int, message string, err error) {
	resp := Response{
		Code:    code,
		Message: message,
	}

	// 在开发环境下显示错误详情
	if gin.Mode() == gin.DebugMode && err != nil {
		resp.Error = err.Error()
	}

	c.JSON(http.StatusOK, resp)
}

// BadRequest 400错误
func BadRequest(c *gin.Context, message string) {
	Error(c, CodeBadRequest, message)
}

// Unauthorized 401错误
func Unauthorized(c *gin.Context, message string) {
	Error(c, CodeUnauthorized, message)
}

// Forbidden 403错误
func Forbidden(c *gin.Context, message string) {
	Error(c, CodeForbidden, message)
}

// NotFound 404错误
func NotFound(c *gin.Context, message string) {
	Error(c, CodeNotFound, message)
}

// InternalError 500错误
func InternalError(c *gin.Context, message string) {
	Error(c, CodeInternal, message)
}

// Conflict 409错误
func Conflict(c *gin.Context, message string) {
	Error(c, CodeConflict, message)
}

// Validation 422错误
func Validation(c *gin.Context, message string) {
	Error(c, CodeValidation, message)
}

// ServiceUnavailable 503错误
func ServiceUnavailable(c *gin.Context, message string) {
	Error(c, CodeServiceUnavailable, message)
}

// ProfileInfo 用户资料
type ProfileInfo struct {
	ID         uint   `json:"id"`
	Username   string `json:"username"`
	AvatarURL  string `json:"avatar_url"`
	Role       string `json:"role"`
	IsPremium  bool   `json:"is_premium"`
	IsAdmin    bool   `json:"is_admin"`
	ItemsCount int64  `json:"items_count"`
	Online     bool   `json:"online"`
	CreatedAt  string `json:"created_at"`
}

// FilterProfile 转换用户资料
func FilterProfile(p *model.Profile, online bool) *ProfileInfo {
	if p == nil {
		return nil
	}
	return &ProfileInfo{
		ID:         p.ID,
		Username:   p.DisplayName(),
		AvatarURL:  p.AvatarURL,
		Role:       p.Role,
		IsPremium:  p.IsPremium,
		IsAdmin:    p.IsAdmin,
		ItemsCount: p.ItemsCount,
		Online:     online,
		CreatedAt:  p.CreatedAt.Format(timeLayout),
	}
}

// AuthResponse 注册/登录响应
type AuthResponse struct {
	Profile     *ProfileInfo `json:"profile"`
	AccessToken string       `json:"access_token"`
}

// RelationshipResponse 查看者与对方的关系
type RelationshipResponse struct {
	UserID uint   `json:"user_id"`
	Status string `json:"status"`
}

// MessageInfo 消息
type MessageInfo struct {
	ID         uint   `json:"id"`
	SenderID   uint   `json:"sender_id"`
	ReceiverID uint   `json:"receiver_id"`
	Content    string `json:"content"`
	IsRead     bool   `json:"is_read"`
	CreatedAt  string `json:"created_at"`
}

// FilterMessage 转换消息
func FilterMessage(m *model.Message) *MessageInfo {
	if m == nil {
		return nil
	}
	return &MessageInfo{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt.Format(timeLayout),
	}
}

// FilterMessages 批量转换消息
func FilterMessages(ms []*model.Message) []*MessageInfo {
	out := make([]*MessageInfo, 0, len(ms))
	for _, m := range ms {
		out = append(out, FilterMessage(m))
	}
	return out
}

// LibraryEntryInfo 片单条目
type LibraryEntryInfo struct {
	MediaID   int64    `json:"media_id"`
	MediaType string   `json:"media_type"`
	Status    string   `json:"status"`
	Score     int      `json:"score"`
	Title     string   `json:"title"`
	ImageURL  string   `json:"image_url"`
	Genres    []string `json:"genres"`
	UpdatedAt string   `json:"updated_at"`
}

// FilterLibraryEntry 转换片单条目
func FilterLibraryEntry(e *model.LibraryEntry) *LibraryEntryInfo {
	if e == nil {
		return nil
	}
	genres := []string(e.Genres)
	if genres == nil {
		genres = []string{}
	}
	return &LibraryEntryInfo{
		MediaID:   e.MediaID,
		MediaType: string(e.MediaType),
		Status:    string(e.Status),
		Score:     e.Score,
		Title:     e.Title,
		ImageURL:  e.ImageURL,
		Genres:    genres,
		UpdatedAt: e.UpdatedAt.Format(timeLayout),
	}
}

// ActivityInfo 动态
type ActivityInfo struct {
	ID         uint   `json:"id"`
	ActorID    uint   `json:"actor_id"`
	MediaID    int64  `json:"media_id"`
	MediaType  string `json:"media_type"`
	MediaTitle string `json:"media_title"`
	MediaImage string `json:"media_image"`
	Kind       string `json:"kind"`
	Rating     *int   `json:"rating,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// FilterActivities 转换动态列表
func FilterActivities(as []*model.Activity) []*ActivityInfo {
	out := make([]*ActivityInfo, 0, len(as))
	for _, a := range as {
		out = append(out, &ActivityInfo{
			ID:         a.ID,
			ActorID:    a.ActorID,
			MediaID:    a.MediaID,
			MediaType:  string(a.MediaType),
			MediaTitle: a.MediaTitle,
			MediaImage: a.MediaImage,
			Kind:       string(a.Kind),
			Rating:     a.Rating,
			CreatedAt:  a.CreatedAt.Format(timeLayout),
		})
	}
	return out
}

// ReviewInfo 评论
type ReviewInfo struct {
	UserID    uint   `json:"user_id"`
	MediaID   int64  `json:"media_id"`
	MediaType string `json:"media_type"`
	Content   string `json:"content"`
	Score     int    `json:"score"`
	UpdatedAt string `json:"updated_at"`
}

// FilterReview 转换评论
func FilterReview(r *model.Review) *ReviewInfo {
	if r == nil {
		return nil
	}
	return &ReviewInfo{
		UserID:    r.UserID,
		MediaID:   r.MediaID,
		MediaType: string(r.MediaType),
		Content:   r.Content,
		Score:     r.Score,
		UpdatedAt: r.UpdatedAt.Format(timeLayout),
	}
}

// ConversationInfo 会话列表项
type ConversationInfo struct {
	Partner     *ProfileInfo `json:"partner"`
	LastMessage *MessageInfo `json:"last_message"`
	UnreadCount int64        `json:"unread_count"`
}

// Page 分页列表
type Page struct {
	Items    interface{} `json:"items"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// FriendRequestInfo 待处理的好友请求
type FriendRequestInfo struct {
	UserID    uint   `json:"user_id"`
	CreatedAt string `json:"created_at"`
}

// FilterFriendRequests 转换好友请求，UserID 为对方
func FilterFriendRequests(edges []*model.FriendEdge, viewerID uint) []*FriendRequestInfo {
	out := make([]*FriendRequestInfo, 0, len(edges))
	for _, e := range edges {
		out = append(out, &FriendRequestInfo{
			UserID:    e.Other(viewerID),
			CreatedAt: e.CreatedAt.Format(timeLayout),
		})
	}
	return out
}
