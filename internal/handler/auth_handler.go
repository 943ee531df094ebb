package handler

import (
	"animeshelf/internal/service"
	"animeshelf/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler 注册与登录
type AuthHandler struct {
	auth     *service.AuthService
	profiles *service.ProfileService
}

func NewAuthHandler(auth *service.AuthService, profiles *service.ProfileService) *AuthHandler {
	return &AuthHandler{auth: auth, profiles: profiles}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register 用户注册
func (h *AuthHandler) Register(c *gin.Context) {
	var r credentialsRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	profile, token, err := h.auth.Register(c.Request.Context(), r.Email, r.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "注册成功", &response.AuthResponse{
		Profile:     response.FilterProfile(profile, false),
		AccessToken: token,
	})
}

// Login 用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var r credentialsRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	profile, token, err := h.auth.Login(c.Request.Context(), r.Email, r.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "登录成功", &response.AuthResponse{
		Profile:     response.FilterProfile(profile, h.profiles.IsOnline(c.Request.Context(), profile.ID)),
		AccessToken: token,
	})
}

// Me 当前用户资料，首次访问时创建
func (h *AuthHandler) Me(c *gin.Context) {
	profile, err := h.auth.EnsureProfile(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, response.FilterProfile(profile, true))
}
