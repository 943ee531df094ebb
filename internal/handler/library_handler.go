package handler

import (
	"animeshelf/internal/model"
	"animeshelf/internal/service"
	"animeshelf/pkg/response"

	"github.com/gin-gonic/gin"
)

// LibraryHandler 片单、导入与元数据回填
type LibraryHandler struct {
	library  *service.LibraryService
	importer *service.ImportService
	backfill *service.BackfillService
}

func NewLibraryHandler(library *service.LibraryService, importer *service.ImportService, backfill *service.BackfillService) *LibraryHandler {
	return &LibraryHandler{library: library, importer: importer, backfill: backfill}
}

// List 自己的片单，?status= 过滤
func (h *LibraryHandler) List(c *gin.Context) {
	entries, err := h.library.Library(c.Request.Context(), currentUser(c), model.LibraryStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]*response.LibraryEntryInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, response.FilterLibraryEntry(e))
	}
	response.Success(c, out)
}

// Get 单个条目
func (h *LibraryHandler) Get(c *gin.Context) {
	media, ok := mediaParam(c)
	if !ok {
		return
	}
	entry, err := h.library.Entry(c.Request.Context(), currentUser(c), media)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, response.FilterLibraryEntry(entry))
}

// SetStatus 设置状态，status 为 null 时从片单移除
func (h *LibraryHandler) SetStatus(c *gin.Context) {
	media, ok := mediaParam(c)
	if !ok {
		return
	}
	var r struct {
		Status *model.LibraryStatus `json:"status"`
		snapshotRequest
	}
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	entry, err := h.library.SetStatus(c.Request.Context(), currentUser(c), media, r.Status, r.snapshot())
	if err != nil {
		respondError(c, err)
		return
	}
	if entry == nil {
		response.SuccessWithMessage(c, "已移除", nil)
		return
	}
	response.Success(c, response.FilterLibraryEntry(entry))
}

// SetScore 评分 1..10
func (h *LibraryHandler) SetScore(c *gin.Context) {
	media, ok := mediaParam(c)
	if !ok {
		return
	}
	var r struct {
		Score *int `json:"score" binding:"required"`
		snapshotRequest
	}
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	entry, err := h.library.SetScore(c.Request.Context(), currentUser(c), media, *r.Score, r.snapshot())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, response.FilterLibraryEntry(entry))
}

// Import 从外部片单导入
func (h *LibraryHandler) Import(c *gin.Context) {
	var r struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.importer.Run(c.Request.Context(), currentUser(c), r.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "导入完成", result)
}

// Backfill 为下一批缺少元数据的条目补全快照
func (h *LibraryHandler) Backfill(c *gin.Context) {
	result, err := h.backfill.Run(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}
