package handler

import (
	"animeshelf/internal/service"
	"animeshelf/pkg/response"

	"github.com/gin-gonic/gin"
)

// FeedHandler 动态流
type FeedHandler struct {
	activity *service.ActivityService
}

func NewFeedHandler(activity *service.ActivityService) *FeedHandler {
	return &FeedHandler{activity: activity}
}

// Feed ?scope=global 全站，默认好友范围（需登录）
func (h *FeedHandler) Feed(c *gin.Context) {
	activities, err := h.activity.FeedFor(c.Request.Context(), currentUser(c), service.ParseFeedScope(c.Query("scope")))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, response.FilterActivities(activities))
}
