package handler

import (
	"animeshelf/internal/model"
	"animeshelf/internal/service"
	"animeshelf/pkg/response"

	"github.com/gin-gonic/gin"
)

// ProfileHandler 用户资料
type ProfileHandler struct {
	profiles *service.ProfileService
}

func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

func (h *ProfileHandler) respond(c *gin.Context, p *model.Profile) {
	response.Success(c, response.FilterProfile(p, h.profiles.IsOnline(c.Request.Context(), p.ID)))
}

// Get 按ID查看资料
func (h *ProfileHandler) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	p, err := h.profiles.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, p)
}

// GetByUsername 按用户名查看资料
func (h *ProfileHandler) GetByUsername(c *gin.Context) {
	p, err := h.profiles.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, p)
}

// UpdateUsername 修改自己的用户名
func (h *ProfileHandler) UpdateUsername(c *gin.Context) {
	var r struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.profiles.SetUsername(c.Request.Context(), currentUser(c), r.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, p)
}

// UpdateAvatar 修改自己的头像，空串表示清除
func (h *ProfileHandler) UpdateAvatar(c *gin.Context) {
	var r struct {
		AvatarURL string `json:"avatar_url"`
	}
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.profiles.SetAvatar(c.Request.Context(), currentUser(c), r.AvatarURL)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, p)
}

// Search 用户名前缀搜索
func (h *ProfileHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()
	profiles, err := h.profiles.Search(ctx, c.Query("q"), queryInt(c, "limit", 20))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]*response.ProfileInfo, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, response.FilterProfile(p, h.profiles.IsOnline(ctx, p.ID)))
	}
	response.Success(c, out)
}
