package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"Pitch_Board/internal/middleware"
	"Pitch_Board/internal/service"
	"Pitch_Board/internal/view"
)

type AccountHandler struct {
	svc *service.AccountService
	log *logrus.Logger
}

// RegisterReq 注册请求体；字段校验在 service 里做，错误按字段返回
type RegisterReq struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
}

// LoginReq username 也可以填邮箱
type LoginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ChangePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type RefreshReq struct {
	Refresh string `json:"refresh" binding:"required"`
}

func NewAccountHandler(svc *service.AccountService, log *logrus.Logger) *AccountHandler {
	return &AccountHandler{svc: svc, log: log}
}

func authBody(res *service.AuthResult) gin.H {
	return gin.H{
		"user":    view.NewUser(res.User),
		"access":  res.Tokens.AccessToken,
		"refresh": res.Tokens.RefreshToken,
	}
}

func (h *AccountHandler) Register(c *gin.Context) {
	var req RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.svc.Register(c.Request.Context(), service.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
	})
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, authBody(res))
}

func (h *AccountHandler) Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, authBody(res))
}

// Logout 只要签名有效就处理，会话已失效也返回成功
func (h *AccountHandler) Logout(c *gin.Context) {
	tokenStr, err := middleware.BearerToken(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": err.Error()})
		return
	}
	claims, err := h.svc.ParseAccess(tokenStr)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	if err = h.svc.Logout(c.Request.Context(), claims.UserID, claims.SessionID()); err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Successfully logged out"})
}

func (h *AccountHandler) Refresh(c *gin.Context) {
	var req RefreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tokens, err := h.svc.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func (h *AccountHandler) Me(c *gin.Context) {
	user, err := h.svc.Me(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view.NewUser(user))
}

// ChangePassword 成功后返回新的 token 对
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tokens, err := h.svc.ChangePassword(c.Request.Context(), middleware.UserID(c), req.OldPassword, req.NewPassword)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}
