package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"Pitch_Board/internal/middleware"
	"Pitch_Board/internal/service"
	"Pitch_Board/internal/view"
)

// CommentHandler 挂在 /ideas/:id/comments 下
type CommentHandler struct {
	svc *service.IdeaService
	log *logrus.Logger
}

type CommentReq struct {
	Content string `json:"content" binding:"required"`
}

func NewCommentHandler(svc *service.IdeaService, log *logrus.Logger) *CommentHandler {
	return &CommentHandler{svc: svc, log: log}
}

func (h *CommentHandler) List(c *gin.Context) {
	ideaID, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.ListComments(c.Request.Context(), ideaID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view.NewComments(list))
}

func (h *CommentHandler) Create(c *gin.Context) {
	ideaID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CommentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	comment, err := h.svc.AddComment(c.Request.Context(), middleware.UserID(c), ideaID, req.Content)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, view.NewComment(comment))
}

func (h *CommentHandler) Get(c *gin.Context) {
	ideaID, ok := pathID(c, "id")
	if !ok {
		return
	}
	commentID, ok := pathID(c, "cid")
	if !ok {
		return
	}
	comment, err := h.svc.GetComment(c.Request.Context(), ideaID, commentID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view.NewComment(comment))
}

func (h *CommentHandler) Update(c *gin.Context) {
	ideaID, ok := pathID(c, "id")
	if !ok {
		return
	}
	commentID, ok := pathID(c, "cid")
	if !ok {
		return
	}
	var req CommentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	comment, err := h.svc.UpdateComment(c.Request.Context(), middleware.UserID(c), ideaID, commentID, req.Content)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view.NewComment(comment))
}

func (h *CommentHandler) Delete(c *gin.Context) {
	ideaID, ok := pathID(c, "id")
	if !ok {
		return
	}
	commentID, ok := pathID(c, "cid")
	if !ok {
		return
	}
	if err := h.svc.DeleteComment(c.Request.Context(), middleware.UserID(c), ideaID, commentID); err != nil {
		fail(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
