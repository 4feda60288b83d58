package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/sardorbek21324/Kairos-team/api/swagger"
	"github.com/sardorbek21324/Kairos-team/internal/handler"
	internalmiddleware "github.com/sardorbek21324/Kairos-team/internal/middleware"
	"github.com/sardorbek21324/Kairos-team/internal/repository"
	"github.com/sardorbek21324/Kairos-team/internal/service"
	"github.com/sardorbek21324/Kairos-team/pkg/cache"
	"github.com/sardorbek21324/Kairos-team/pkg/config"
	"github.com/sardorbek21324/Kairos-team/pkg/jobs"
	"github.com/sardorbek21324/Kairos-team/pkg/logger"
	corsmiddleware "github.com/sardorbek21324/Kairos-team/pkg/middleware/cors"
	reqidmiddleware "github.com/sardorbek21324/Kairos-team/pkg/middleware/requestid"
	"github.com/sardorbek21324/Kairos-team/pkg/telegram"
	"github.com/sardorbek21324/Kairos-team/pkg/tracking"
)

// @title Kairos Lead API
// @version 1.0.0
// @description Receives website contact form submissions and forwards them to the sales chat.
// @BasePath /
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	flush, err := tracking.Init(cfg, "lead-api")
	if err != nil {
		logr.Warn("sentry disabled", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metricsSvc := service.NewMetricsService()

	var limiter interface {
		Allow(ctx context.Context, key string) (bool, error)
	}
	var checks []handler.HealthCheck
	if cfg.Redis.Enabled() {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer client.Close() //nolint:errcheck
		limiter = repository.NewRedisRateLimitRepository(client, "lead", cfg.Lead.RateLimit, cfg.Lead.RateLimitWindow)
		checks = append(checks, handler.HealthCheck{Name: "redis", Probe: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
		logr.Info("rate limiter backed by redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		memory := repository.NewMemoryRateLimitRepository(cfg.Lead.RateLimit, cfg.Lead.RateLimitWindow)
		sweeper := jobs.NewPeriodic("rate_limit_sweep", func(context.Context) error {
			memory.Sweep()
			return nil
		}, jobs.PeriodicConfig{Interval: cfg.Lead.RateLimitWindow, Logger: logr})
		sweeper.Start(ctx)
		defer sweeper.Stop()
		limiter = memory
	}

	sender := telegram.NewClient(cfg.Lead.BotToken, cfg.Lead.TelegramTimeout, telegram.WithBaseURL(cfg.Lead.TelegramAPIBase))
	if !sender.Configured() {
		logr.Warn("telegram bot token is not configured; /lead will answer 500")
	}
	checks = append(checks, handler.HealthCheck{Name: "telegram", Probe: func(context.Context) error {
		if !sender.Configured() || cfg.Lead.TargetChatID == "" {
			return errors.New("not configured")
		}
		return nil
	}})
	leadSvc := service.NewLeadService(limiter, sender, service.LeadServiceConfig{
		AllowedOrigins: cfg.Lead.AllowedOrigins,
		TargetChatID:   cfg.Lead.TargetChatID,
	}, metricsSvc, logger.Named(logr, "lead"))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(tracking.GinMiddleware())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/health", "/metrics"))
	r.Use(corsmiddleware.New(corsmiddleware.Options{AllowedOrigins: cfg.Lead.AllowedOrigins}))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks...)
	leadHandler := handler.NewLeadHandler(leadSvc)

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.POST("/lead", leadHandler.Submit)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Lead.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logr.Warn("graceful shutdown failed", zap.Error(err))
		}
	}()

	logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
