package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"Pitch_Board/internal/config"
	"Pitch_Board/internal/logger"
	"Pitch_Board/internal/metrics"
	"Pitch_Board/internal/pkg"
	"Pitch_Board/internal/repository/database"
	"Pitch_Board/internal/repository/redis"
	"Pitch_Board/internal/router"
	"Pitch_Board/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logger.New(cfg.Log)
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer func() { _ = database.Close(db) }()

	// 自动建表
	if err = database.Migrate(db); err != nil {
		log.WithError(err).Fatal("migrate database")
	}

	// 连接redis
	rdb, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.WithError(err).Fatal("connect redis")
	}
	defer func() { _ = rdb.Close() }()

	tokens := pkg.NewTokenIssuer(cfg.JWT)
	sessions := redis.NewSessionRepository(rdb, tokens.RefreshTTL())
	m := metrics.New()

	// 没配 SMTP 就不发欢迎邮件；接口变量保持 nil
	var mailer service.Mailer
	if cfg.SMTP.Enabled() {
		mailer = pkg.NewSMTPMailer(cfg.SMTP)
	}

	ideas := service.NewIdeaService(
		&database.IdeaRepository{DB: db},
		&database.CommentRepository{DB: db},
		&database.LikeRepository{DB: db},
		m, log,
	)
	accounts := service.NewAccountService(&database.UserRepository{DB: db}, sessions, tokens, mailer, m, log)

	r := router.InitRouter(router.Deps{
		Ideas:     ideas,
		Accounts:  accounts,
		Metrics:   m,
		Log:       log,
		RateLimit: cfg.RateLimit,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
