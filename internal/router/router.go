package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"Pitch_Board/internal/config"
	"Pitch_Board/internal/handler"
	"Pitch_Board/internal/metrics"
	"Pitch_Board/internal/middleware"
	"Pitch_Board/internal/service"
)

// Deps 路由需要的全部依赖，在 main 里组装
type Deps struct {
	Ideas     *service.IdeaService
	Accounts  *service.AccountService
	Metrics   *metrics.Metrics
	Log       *logrus.Logger
	RateLimit config.RateLimitConfig
}

func InitRouter(d Deps) *gin.Engine {
	handler.UseJSONFieldNames()

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.Metrics(d.Metrics),
		middleware.RequestLogger(d.Log),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	idea := handler.NewIdeaHandler(d.Ideas, d.Log)
	comment := handler.NewCommentHandler(d.Ideas, d.Log)
	account := handler.NewAccountHandler(d.Accounts, d.Log)

	optional := middleware.OptionalAuth(d.Accounts, d.Log)
	required := middleware.RequireAuth(d.Accounts, d.Log)

	api := r.Group("/api")

	// 创意
	ideaGroup := api.Group("/ideas")
	{
		ideaGroup.GET("", optional, idea.List)
		ideaGroup.POST("", required, idea.Create)
		ideaGroup.GET("/:id", optional, idea.Get)
		ideaGroup.PUT("/:id", required, idea.Update)
		ideaGroup.PATCH("/:id", required, idea.Update)
		ideaGroup.DELETE("/:id", required, idea.Delete)
		ideaGroup.POST("/:id/like", required, idea.Like)

		// 评论
		ideaGroup.GET("/:id/comments", optional, comment.List)
		ideaGroup.POST("/:id/comments", required, comment.Create)
		ideaGroup.GET("/:id/comments/:cid", optional, comment.Get)
		ideaGroup.PATCH("/:id/comments/:cid", required, comment.Update)
		ideaGroup.DELETE("/:id/comments/:cid", required, comment.Delete)
	}

	api.GET("/top-ideas", optional, idea.Top)

	// 账号；按 IP 限流
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.NewRateLimiter(d.RateLimit.RPS, d.RateLimit.Burst, d.Log).Handler())
	{
		authGroup.POST("/register", account.Register)
		authGroup.POST("/login", account.Login)
		authGroup.POST("/logout", account.Logout)
		authGroup.POST("/refresh", account.Refresh)
		authGroup.GET("/me", required, account.Me)
		authGroup.POST("/change-password", required, account.ChangePassword)
	}

	return r
}
