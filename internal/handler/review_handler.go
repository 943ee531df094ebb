package handler

import (
	"animeshelf/internal/model"
	"animeshelf/internal/service"
	"animeshelf/pkg/response"

	"github.com/gin-gonic/gin"
)

// ReviewHandler 评论
type ReviewHandler struct {
	reviews *service.ReviewService
}

func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// Submit 新建或更新自己的评论
func (h *ReviewHandler) Submit(c *gin.Context) {
	media, ok := mediaParam(c)
	if !ok {
		return
	}
	var r struct {
		Content string `json:"content"`
		Score   int    `json:"score"`
	}
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	review, err := h.reviews.SubmitReview(c.Request.Context(), currentUser(c), media, r.Content, r.Score)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, response.FilterReview(review))
}

// Delete 删除自己的评论，不影响片单评分
func (h *ReviewHandler) Delete(c *gin.Context) {
	media, ok := mediaParam(c)
	if !ok {
		return
	}
	if err := h.reviews.DeleteReview(c.Request.Context(), currentUser(c), media); err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已删除", nil)
}

// Mine 自己对该作品的评论
func (h *ReviewHandler) Mine(c *gin.Context) {
	media, ok := mediaParam(c)
	if !ok {
		return
	}
	review, err := h.reviews.Review(c.Request.Context(), currentUser(c), media)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, response.FilterReview(review))
}

// List 作品的评论列表
func (h *ReviewHandler) List(c *gin.Context) {
	media, ok := mediaParam(c)
	if !ok {
		return
	}
	page, pageSize := queryInt(c, "page", 1), queryInt(c, "page_size", 20)
	reviews, err := h.reviews.ReviewsFor(c.Request.Context(), media, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, &response.Page{Items: filterReviews(reviews), Page: page, PageSize: pageSize})
}

func filterReviews(reviews []*model.Review) []*response.ReviewInfo {
	out := make([]*response.ReviewInfo, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, response.FilterReview(r))
	}
	return out
}
