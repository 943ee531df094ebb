package handler

import (
	"errors"
	"strconv"

	"animeshelf/internal/model"
	"animeshelf/internal/service"
	"animeshelf/pkg/jwt"
	"animeshelf/pkg/logger"
	"animeshelf/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError 按错误类别映射响应码
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotAuthenticated):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrValidation):
		response.Validation(c, err.Error())
	case errors.Is(err, service.ErrConflict):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrUpstreamUnavailable):
		response.ServiceUnavailable(c, "目录服务暂不可用")
	default:
		logger.Error("请求处理失败",
			zap.String("path", c.FullPath()),
			zap.String("request_id", logger.GetRequestID(c)),
			zap.Error(err),
		)
		response.ErrorWithDetails(c, response.CodeInternal, "服务器内部错误", err)
	}
}

// currentUser 认证中间件写入的用户ID，匿名时为 0
func currentUser(c *gin.Context) uint {
	id, _ := jwt.GetUserID(c)
	return id
}

// uintParam 解析路径参数中的ID
func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// mediaParam 解析 /:type/:id 形式的作品参数
func mediaParam(c *gin.Context) (service.Media, bool) {
	mediaType := model.MediaType(c.Param("type"))
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 || !mediaType.Valid() {
		response.BadRequest(c, "invalid media")
		return service.Media{}, false
	}
	return service.Media{ID: id, Type: mediaType}, true
}

// queryInt 解析查询参数，缺失或非法时返回默认值
func queryInt(c *gin.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.Query(name)); err == nil {
		return v
	}
	return def
}

// snapshotRequest 客户端在写片单时附带的作品信息
type snapshotRequest struct {
	Title    string   `json:"title"`
	ImageURL string   `json:"image_url"`
	Genres   []string `json:"genres"`
}

func (r snapshotRequest) snapshot() model.MediaSnapshot {
	return model.MediaSnapshot{Title: r.Title, ImageURL: r.ImageURL, Genres: r.Genres}
}
