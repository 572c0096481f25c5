// Package main runs the meet API server: room token minting and refresh,
// plus the dial-out proxy, with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/team-telnyx/telnyx-meet-sub000/config"
	"github.com/team-telnyx/telnyx-meet-sub000/internal/auth"
	"github.com/team-telnyx/telnyx-meet-sub000/internal/dialout"
	"github.com/team-telnyx/telnyx-meet-sub000/internal/middleware"
	"github.com/team-telnyx/telnyx-meet-sub000/pkg/database"
	"github.com/team-telnyx/telnyx-meet-sub000/pkg/redis"
	"github.com/team-telnyx/telnyx-meet-sub000/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Tokens
	tokenService := auth.NewTokenService(cfg.Token.Secret, time.Duration(cfg.Token.AccessTTLSec)*time.Second)
	refreshStore := auth.NewRefreshStore(rdb.Client, time.Duration(cfg.Token.RefreshTTLHours)*time.Hour)
	authHandler := auth.NewHandler(tokenService, refreshStore, logger)

	// Dial-out
	dialoutRepo := dialout.NewRepository(pool)
	carrier := dialout.NewCarrier(cfg.Dialout.Endpoint, cfg.Dialout.APIKey)
	dialoutHandler := dialout.NewHandler(dialoutRepo, carrier, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Tokens (public; minting is gated upstream by the room service)
	router.POST("/rooms/:id/tokens", authHandler.Mint)
	router.POST("/tokens/refresh", authHandler.Refresh)

	// Protected API (room token required)
	api := router.Group("")
	api.Use(middleware.RequireRoomToken(tokenService))
	{
		api.POST("/rooms/:id/dialout", dialoutHandler.Invite)
		api.GET("/rooms/:id/dialout", dialoutHandler.List)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
