package handler

import (
	"context"
	"errors"
	"strconv"

	"animeshelf/internal/catalog"
	"animeshelf/internal/model"
	"animeshelf/pkg/logger"
	"animeshelf/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Catalog 目录查询，*catalog.Client 满足此接口
type Catalog interface {
	FetchTop(ctx context.Context, mediaType model.MediaType, page int, filter string) ([]catalog.Item, error)
	FetchByID(ctx context.Context, mediaType model.MediaType, id int64) (*catalog.Item, error)
	Search(ctx context.Context, query string) ([]catalog.Item, error)
	FetchBySeason(ctx context.Context, year int, season string) ([]catalog.Item, error)
}

// CatalogHandler 目录浏览，上游不可用时列表接口返回空列表
type CatalogHandler struct {
	catalog Catalog
}

func NewCatalogHandler(c Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// respondList 限流或上游故障降级为空列表
func (h *CatalogHandler) respondList(c *gin.Context, items []catalog.Item, err error) {
	switch {
	case err == nil:
		response.Success(c, items)
	case catalog.IsUnavailable(err):
		logger.Warn("目录服务不可用，返回空列表", zap.String("path", c.FullPath()), zap.Error(err))
		response.Success(c, []catalog.Item{})
	case errors.Is(err, catalog.ErrInvalidArgument):
		response.Validation(c, err.Error())
	default:
		respondError(c, err)
	}
}

// Top 排行榜 ?type=anime|manga&page=&filter=
func (h *CatalogHandler) Top(c *gin.Context) {
	mediaType := model.MediaType(c.DefaultQuery("type", string(model.MediaAnime)))
	items, err := h.catalog.FetchTop(c.Request.Context(), mediaType, queryInt(c, "page", 1), c.Query("filter"))
	h.respondList(c, items, err)
}

// Search 同时搜索动画和漫画
func (h *CatalogHandler) Search(c *gin.Context) {
	items, err := h.catalog.Search(c.Request.Context(), c.Query("q"))
	h.respondList(c, items, err)
}

// Season 某年某季度的动画
func (h *CatalogHandler) Season(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		response.BadRequest(c, "invalid year")
		return
	}
	items, err := h.catalog.FetchBySeason(c.Request.Context(), year, c.Param("season"))
	h.respondList(c, items, err)
}

// Item 作品详情
func (h *CatalogHandler) Item(c *gin.Context) {
	media, ok := mediaParam(c)
	if !ok {
		return
	}
	item, err := h.catalog.FetchByID(c.Request.Context(), media.Type, media.ID)
	switch {
	case err == nil && item == nil:
		response.NotFound(c, "作品不存在")
	case err == nil:
		response.Success(c, item)
	case catalog.IsUnavailable(err):
		logger.Warn("目录服务不可用", zap.Int64("media_id", media.ID), zap.Error(err))
		response.ServiceUnavailable(c, "目录服务暂不可用")
	case errors.Is(err, catalog.ErrInvalidArgument):
		response.Validation(c, err.Error())
	default:
		respondError(c, err)
	}
}
