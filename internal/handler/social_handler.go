package handler

import (
	"animeshelf/internal/service"
	"animeshelf/pkg/response"

	"github.com/gin-gonic/gin"
)

// SocialHandler 好友关系
type SocialHandler struct {
	social   *service.SocialService
	profiles *service.ProfileService
}

func NewSocialHandler(social *service.SocialService, profiles *service.ProfileService) *SocialHandler {
	return &SocialHandler{social: social, profiles: profiles}
}

func (h *SocialHandler) respondStatus(c *gin.Context, viewerID, subjectID uint) {
	status, err := h.social.StatusFor(c.Request.Context(), viewerID, subjectID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, &response.RelationshipResponse{UserID: subjectID, Status: string(status)})
}

// SendRequest 发送好友请求
func (h *SocialHandler) SendRequest(c *gin.Context) {
	var r struct {
		UserID uint `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	viewerID := currentUser(c)
	if _, err := h.social.SendRequest(c.Request.Context(), viewerID, r.UserID); err != nil {
		respondError(c, err)
		return
	}
	h.respondStatus(c, viewerID, r.UserID)
}

// AcceptRequest 接受 :id 发来的好友请求
func (h *SocialHandler) AcceptRequest(c *gin.Context) {
	requesterID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	viewerID := currentUser(c)
	if err := h.social.AcceptRequest(c.Request.Context(), viewerID, requesterID); err != nil {
		respondError(c, err)
		return
	}
	h.respondStatus(c, viewerID, requesterID)
}

// Remove 删除好友、取消或拒绝请求，重复调用结果相同
func (h *SocialHandler) Remove(c *gin.Context) {
	otherID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	viewerID := currentUser(c)
	if err := h.social.RemoveOrCancel(c.Request.Context(), viewerID, otherID); err != nil {
		respondError(c, err)
		return
	}
	h.respondStatus(c, viewerID, otherID)
}

// Status 查看与 :id 的关系
func (h *SocialHandler) Status(c *gin.Context) {
	subjectID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	h.respondStatus(c, currentUser(c), subjectID)
}

// Friends 好友列表
func (h *SocialHandler) Friends(c *gin.Context) {
	ctx := c.Request.Context()
	friends, err := h.social.Friends(ctx, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]*response.ProfileInfo, 0, len(friends))
	for _, p := range friends {
		out = append(out, response.FilterProfile(p, h.profiles.IsOnline(ctx, p.ID)))
	}
	response.Success(c, out)
}

// Requests 收到和发出的待处理请求
func (h *SocialHandler) Requests(c *gin.Context) {
	viewerID := currentUser(c)
	incoming, outgoing, err := h.social.Requests(c.Request.Context(), viewerID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{
		"incoming": response.FilterFriendRequests(incoming, viewerID),
		"outgoing": response.FilterFriendRequests(outgoing, viewerID),
	})
}
