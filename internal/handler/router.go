package handler

import (
	"animeshelf/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// Handlers 所有 HTTP 处理器
type Handlers struct {
	Auth    *AuthHandler
	Profile *ProfileHandler
	Social  *SocialHandler
	Library *LibraryHandler
	Review  *ReviewHandler
	Message *MessageHandler
	Feed    *FeedHandler
	Catalog *CatalogHandler
}

// RegisterRoutes 绑定 /api/v1 下的业务路由
func RegisterRoutes(r gin.IRouter, jwtSvc *jwt.JWTService, h *Handlers) {
	auth := jwtSvc.AuthMiddleware()
	optional := jwtSvc.OptionalAuthMiddleware()

	v1 := r.Group("/api/v1")

	// 公开接口（无需认证）
	accounts := v1.Group("/auth")
	{
		accounts.POST("/register", h.Auth.Register)
		accounts.POST("/login", h.Auth.Login)
	}

	catalog := v1.Group("/catalog")
	{
		catalog.GET("/top", h.Catalog.Top)
		catalog.GET("/search", h.Catalog.Search)
		catalog.GET("/seasons/:year/:season", h.Catalog.Season)
		catalog.GET("/items/:type/:id", h.Catalog.Item)
	}

	v1.GET("/feed", optional, h.Feed.Feed)
	v1.GET("/reviews/:type/:id", h.Review.List)

	// 需要认证的接口
	profiles := v1.Group("/profiles")
	{
		profiles.GET("/me", auth, h.Auth.Me)
		profiles.PUT("/me/username", auth, h.Profile.UpdateUsername)
		profiles.PUT("/me/avatar", auth, h.Profile.UpdateAvatar)
		profiles.GET("/search", h.Profile.Search)
		profiles.GET("/by-username/:username", h.Profile.GetByUsername)
		profiles.GET("/:id", h.Profile.Get)
	}

	friends := v1.Group("/friends", auth)
	{
		friends.GET("", h.Social.Friends)
		friends.GET("/requests", h.Social.Requests)
		friends.POST("/requests", h.Social.SendRequest)
		friends.POST("/requests/:id/accept", h.Social.AcceptRequest)
		friends.GET("/status/:id", h.Social.Status)
		friends.DELETE("/:id", h.Social.Remove)
	}

	library := v1.Group("/library", auth)
	{
		library.GET("", h.Library.List)
		library.POST("/import", h.Library.Import)
		library.POST("/backfill", h.Library.Backfill)
		library.GET("/:type/:id", h.Library.Get)
		library.PUT("/:type/:id/status", h.Library.SetStatus)
		library.PUT("/:type/:id/score", h.Library.SetScore)
	}

	reviews := v1.Group("/reviews", auth)
	{
		reviews.GET("/:type/:id/mine", h.Review.Mine)
		reviews.PUT("/:type/:id", h.Review.Submit)
		reviews.DELETE("/:type/:id", h.Review.Delete)
	}

	messages := v1.Group("/messages", auth)
	{
		messages.GET("", h.Message.Conversations)
		messages.POST("", h.Message.Send)
		messages.GET("/unread", h.Message.Unread)
		messages.GET("/:id", h.Message.Conversation)
		messages.POST("/:id/read", h.Message.MarkRead)
	}
}
