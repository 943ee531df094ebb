package jwt

import (
	"strings"

	"animeshelf/pkg/logger"
	"animeshelf/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// ContextUserIDKey 用户ID在gin.Context中的键名
	ContextUserIDKey = "user_id"
	// ContextClaimsKey JWT声明在gin.Context中的键名
	ContextClaimsKey = "jwt_claims"
)

// bearerToken 从 Authorization: Bearer <token> 中提取令牌
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

// authenticate 校验令牌并写入Context，返回是否成功
func (s *JWTService) authenticate(c *gin.Context, token string) bool {
	claims, err := s.ValidateToken(token)
	if err != nil {
		logger.Warn("JWT验证失败", zap.Error(err), zap.String("path", c.Request.URL.Path))
		return false
	}
	userID, err := claims.UserID()
	if err != nil {
		logger.Warn("JWT主体无效", zap.String("subject", claims.Subject))
		return false
	}

	c.Set(ContextUserIDKey, userID)
	c.Set(ContextClaimsKey, claims)
	return true
}

// AuthMiddleware JWT认证中间件
// 验证token并将用户信息存入gin.Context
func (s *JWTService) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		if !s.authenticate(c, token) {
			response.Unauthorized(c, "token无效或已过期")
			c.Abort()
			return
		}

		c.Next()
	}
}

// OptionalAuthMiddleware 可选认证：带有效token时写入用户信息，否则匿名继续
func (s *JWTService) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			s.authenticate(c, token)
		}
		c.Next()
	}
}

// GetUserID 从gin.Context中获取用户ID
func GetUserID(c *gin.Context) (uint, bool) {
	if v, exists := c.Get(ContextUserIDKey); exists {
		if id, ok := v.(uint); ok && id != 0 {
			return id, true
		}
	}
	return 0, false
}

// GetClaims 从gin.Context中获取JWT声明
func GetClaims(c *gin.Context) *CustomClaims {
	if claims, exists := c.Get(ContextClaimsKey); exists {
		if cc, ok := claims.(*CustomClaims); ok {
			return cc
		}
	}
	return nil
}
