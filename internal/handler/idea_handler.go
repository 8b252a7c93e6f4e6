package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"Pitch_Board/internal/middleware"
	"Pitch_Board/internal/model"
	"Pitch_Board/internal/service"
	"Pitch_Board/internal/view"
)

type IdeaHandler struct {
	svc *service.IdeaService
	log *logrus.Logger
}

type IdeaReq struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// PatchIdeaReq 未出现的字段不修改
type PatchIdeaReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func NewIdeaHandler(svc *service.IdeaService, log *logrus.Logger) *IdeaHandler {
	return &IdeaHandler{svc: svc, log: log}
}

func rankedView(list []service.RankedIdea) []view.Idea {
	ideas := make([]model.Idea, 0, len(list))
	liked := make(map[uint64]bool, len(list))
	for _, r := range list {
		ideas = append(ideas, r.Idea)
		liked[r.Idea.ID] = r.Liked
	}
	return view.NewIdeas(ideas, liked)
}

// List 默认返回全部；带 page/size 时分页
func (h *IdeaHandler) List(c *gin.Context) {
	offset, limit := 0, 0
	if c.Query("page") != "" || c.Query("size") != "" {
		page, err1 := strconv.Atoi(c.DefaultQuery("page", "1"))
		size, err2 := strconv.Atoi(c.DefaultQuery("size", "20"))
		if err1 != nil || err2 != nil || page < 1 || size < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid page/size"})
			return
		}
		if size > service.MaxPageSize {
			size = service.MaxPageSize
		}
		offset, limit = (page-1)*size, size
	}

	list, err := h.svc.ListIdeas(c.Request.Context(), middleware.UserID(c), offset, limit)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, rankedView(list))
}

// Top 排行榜，limit 默认 5
func (h *IdeaHandler) Top(c *gin.Context) {
	limit := service.DefaultTopLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid limit"})
			return
		}
		limit = n
	}

	list, err := h.svc.TopIdeas(c.Request.Context(), middleware.UserID(c), limit)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, rankedView(list))
}

func (h *IdeaHandler) Create(c *gin.Context) {
	var req IdeaReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	idea, err := h.svc.CreateIdea(c.Request.Context(), middleware.UserID(c), req.Title, req.Description)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, view.NewIdea(idea, false))
}

func (h *IdeaHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.svc.GetIdea(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view.NewIdeaDetail(detail.Idea, detail.Comments, detail.Liked))
}

// Update PUT 要求完整字段，PATCH 只改出现的字段
func (h *IdeaHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var patch service.IdeaPatch
	if c.Request.Method == http.MethodPut {
		var req IdeaReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		patch = service.IdeaPatch{Title: &req.Title, Description: &req.Description}
	} else {
		var req PatchIdeaReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		patch = service.IdeaPatch{Title: req.Title, Description: req.Description}
	}

	viewer := middleware.UserID(c)
	idea, err := h.svc.UpdateIdea(c.Request.Context(), viewer, id, patch)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	detail, err := h.svc.GetIdea(c.Request.Context(), viewer, idea.ID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view.NewIdea(detail.Idea, detail.Liked))
}

func (h *IdeaHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteIdea(c.Request.Context(), middleware.UserID(c), id); err != nil {
		fail(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Like 切换点赞：新点赞 201，取消 200
func (h *IdeaHandler) Like(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	res, err := h.svc.ToggleLike(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	code := http.StatusOK
	if res.Status == service.LikeStatusLiked {
		code = http.StatusCreated
	}
	c.JSON(code, view.Like{Status: res.Status, LikesCount: res.LikesCount})
}
