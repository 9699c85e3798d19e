// internal/interfaces/http/handlers/comment.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/domain/catalog"
)

// CommentHandler handles product comment endpoints
type CommentHandler struct {
	commentService *catalog.CommentService
	logger         *logrus.Logger
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(commentService *catalog.CommentService, logger *logrus.Logger) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		logger:         logger,
	}
}

// GetProductComments handles GET /products/:id/comments
func (h *CommentHandler) GetProductComments(c *gin.Context) {
	var req catalog.CommentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.commentService.ListForProduct(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Comments retrieved successfully", response)
}

// GetCommentStats handles GET /products/:id/comments/stats
func (h *CommentHandler) GetCommentStats(c *gin.Context) {
	stats, err := h.commentService.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Comment statistics retrieved successfully", stats)
}

// CreateComment handles POST /products/:id/comments
func (h *CommentHandler) CreateComment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req catalog.CommentCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	comment, err := h.commentService.Create(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondCreated(c, "Comment created successfully", comment)
}

// GetComment handles GET /comments/:id
func (h *CommentHandler) GetComment(c *gin.Context) {
	comment, err := h.commentService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Comment retrieved successfully", comment)
}

// UpdateComment handles PUT /comments/:id for the author or an admin
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req catalog.CommentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	comment, err := h.commentService.Update(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Comment updated successfully", comment)
}

// DeleteComment handles DELETE /comments/:id for the author or an admin
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.commentService.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Comment deleted successfully",
	})
}

// AdminGetComments handles GET /admin/comments
func (h *CommentHandler) AdminGetComments(c *gin.Context) {
	var req catalog.CommentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.commentService.List(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Comments retrieved successfully", response)
}
