package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sardorbek21324/Kairos-team/internal/bot"
	"github.com/sardorbek21324/Kairos-team/internal/handler"
	"github.com/sardorbek21324/Kairos-team/internal/repository"
	"github.com/sardorbek21324/Kairos-team/internal/service"
	"github.com/sardorbek21324/Kairos-team/pkg/cache"
	"github.com/sardorbek21324/Kairos-team/pkg/config"
	"github.com/sardorbek21324/Kairos-team/pkg/logger"
	"github.com/sardorbek21324/Kairos-team/pkg/tracking"
)

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

	if cfg.Discord.Token == "" {
		logr.Fatal("DISCORD_TOKEN is not set")
	}

	flush, err := tracking.Init(cfg, "bot")
	if err != nil {
		logr.Warn("sentry disabled", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policy, err := service.LoadPermissionPolicy(cfg.Workflow.PolicyFile, cfg.Roles)
	if err != nil {
		logr.Fatal("failed to load permission policy", zap.Error(err))
	}

	var lock interface {
		Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
		Release(ctx context.Context, key string) error
	} = repository.NewMemoryDecisionLock()
	if cfg.Redis.Enabled() {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer client.Close() //nolint:errcheck
		lock = repository.NewRedisDecisionLock(client, "kairos:decision")
		logr.Info("decision lock backed by redis", zap.String("addr", cfg.Redis.Addr))
	}

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		logr.Fatal("failed to create discord session", zap.Error(err))
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	metricsSvc := service.NewMetricsService()
	workflow := service.NewWorkflowService(bot.NewGateway(session), policy, lock, service.WorkflowServiceConfig{
		Channels:        cfg.Channels,
		Roles:           cfg.Roles,
		OutboundTimeout: cfg.Workflow.OutboundTimeout,
		DecisionLockTTL: cfg.Workflow.DecisionLockTTL,
	}, logger.Named(logr, "workflow"), service.WithWorkflowMetrics(metricsSvc))

	router := bot.NewRouter(workflow, metricsSvc, logger.Named(logr, "router"), cfg.Discord.RequestTimeout)
	session.AddHandler(router.Handle)
	var readiness bot.Readiness
	readiness.Attach(session)
	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		logr.Info("connected to discord",
			zap.String("user", r.User.Username),
			zap.Int("guilds", len(r.Guilds)),
			zap.Strings("controls", router.ComponentIDs()),
		)
	})

	if err := session.Open(); err != nil {
		logr.Fatal("failed to open discord session", zap.Error(err))
	}
	defer session.Close() //nolint:errcheck

	if cfg.Discord.AppID != "" {
		if err := bot.SyncCommands(ctx, session, cfg.Discord.AppID, cfg.Discord.CommandGuilds, logr); err != nil {
			logr.Error("failed to sync application commands", zap.Error(err))
		}
	} else {
		logr.Warn("DISCORD_APP_ID is not set; slash commands were not synced")
	}

	srv := metricsServer(cfg, metricsSvc, handler.HealthCheck{Name: "discord", Probe: readiness.Probe})
	go func() {
		logr.Info("metrics listener starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("metrics listener failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("metrics listener shutdown failed", zap.Error(err))
	}
}

func metricsServer(cfg *config.Config, metricsSvc *service.MetricsService, checks ...handler.HealthCheck) *http.Server {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	h := handler.NewMetricsHandler(metricsSvc, checks...)
	r.GET("/health", h.Health)
	r.GET("/metrics", h.Prometheus)
	return &http.Server{
		Addr:              cfg.Discord.MetricsAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
