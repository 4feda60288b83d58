package config

import (
	"errors"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env string

	Log      LogConfig
	Discord  DiscordConfig
	Roles    RoleConfig
	Channels ChannelConfig
	Workflow WorkflowConfig
	Lead     LeadConfig
	Redis    RedisConfig
	Sentry   SentryConfig
}

type LogConfig struct {
	Level  string
	Format string
}

// DiscordConfig holds the bot credential and command registration scope.
type DiscordConfig struct {
	Token          string
	AppID          string
	CommandGuilds  []string
	MetricsAddr    string
	RequestTimeout time.Duration
}

// RoleConfig maps workflow roles to guild role IDs.
type RoleConfig struct {
	Editor   uint64
	Operator uint64
	CEO      uint64
	Staff    []uint64
}

// ChannelConfig lists every surface the workflow posts to.
type ChannelConfig struct {
	ShootingReport uint64
	ShootingReview uint64
	EditingReport  uint64
	EditingReview  uint64
	PublishReview  uint64
	Done           uint64
}

// WorkflowConfig tunes the approval workflow.
type WorkflowConfig struct {
	PolicyFile      string
	OutboundTimeout time.Duration
	DecisionLockTTL time.Duration
}

// LeadConfig configures the lead capture endpoint.
type LeadConfig struct {
	Port            int
	AllowedOrigins  []string
	RateLimit       int
	RateLimitWindow time.Duration
	BotToken        string
	TargetChatID    string
	TelegramAPIBase string
	TelegramTimeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type SentryConfig struct {
	DSN     string
	Release string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Discord = DiscordConfig{
		Token:          v.GetString("DISCORD_TOKEN"),
		AppID:          v.GetString("DISCORD_APP_ID"),
		CommandGuilds:  splitAndTrim(v.GetString("COMMAND_GUILD_IDS")),
		MetricsAddr:    v.GetString("BOT_METRICS_ADDR"),
		RequestTimeout: parseDuration(v.GetString("DISCORD_REQUEST_TIMEOUT"), 10*time.Second),
	}

	cfg.Roles = RoleConfig{
		Editor:   v.GetUint64("EDITOR_ROLE_ID"),
		Operator: v.GetUint64("OPERATOR_ROLE_ID"),
		CEO:      v.GetUint64("CEO_ROLE_ID"),
		Staff:    parseIDs(v.GetString("STAFF_ROLE_IDS")),
	}

	cfg.Channels = ChannelConfig{
		ShootingReport: v.GetUint64("SHOOTING_REPORT_CHANNEL_ID"),
		ShootingReview: v.GetUint64("SHOOTING_REVIEW_CHANNEL_ID"),
		EditingReport:  v.GetUint64("EDITING_REPORT_CHANNEL_ID"),
		EditingReview:  v.GetUint64("EDITING_REVIEW_CHANNEL_ID"),
		PublishReview:  v.GetUint64("PUBLISH_REVIEW_CHANNEL_ID"),
		Done:           v.GetUint64("DONE_CHANNEL_ID"),
	}

	cfg.Workflow = WorkflowConfig{
		PolicyFile:      v.GetString("POLICY_FILE"),
		OutboundTimeout: parseDuration(v.GetString("OUTBOUND_TIMEOUT"), 5*time.Second),
		DecisionLockTTL: parseDuration(v.GetString("DECISION_LOCK_TTL"), 30*time.Second),
	}

	botToken := v.GetString("TG_BOT_TOKEN")
	if botToken == "" {
		botToken = v.GetString("BOT_TOKEN")
	}
	rateLimit := v.GetInt("RATE_LIMIT_PER_MIN")
	if rateLimit <= 0 {
		rateLimit = 10
	}
	cfg.Lead = LeadConfig{
		Port:            v.GetInt("PORT"),
		AllowedOrigins:  splitAndTrim(v.GetString("ALLOWED_ORIGINS")),
		RateLimit:       rateLimit,
		RateLimitWindow: parseDuration(v.GetString("RATE_LIMIT_WINDOW"), time.Minute),
		BotToken:        botToken,
		TargetChatID:    v.GetString("TARGET_CHAT_ID"),
		TelegramAPIBase: v.GetString("TELEGRAM_API_BASE"),
		TelegramTimeout: parseDuration(v.GetString("TELEGRAM_TIMEOUT"), 10*time.Second),
	}

	cfg.Redis = RedisConfig{
		Addr:     v.GetString("REDIS_ADDR"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Sentry = SentryConfig{
		DSN:     v.GetString("SENTRY_DSN"),
		Release: v.GetString("SENTRY_RELEASE"),
	}

	if len(cfg.Roles.Staff) == 0 && cfg.Roles.CEO != 0 {
		cfg.Roles.Staff = []uint64{cfg.Roles.CEO}
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DISCORD_TOKEN", "")
	v.SetDefault("DISCORD_APP_ID", "")
	v.SetDefault("COMMAND_GUILD_IDS", "")
	v.SetDefault("BOT_METRICS_ADDR", ":9090")
	v.SetDefault("DISCORD_REQUEST_TIMEOUT", "10s")

	v.SetDefault("EDITOR_ROLE_ID", uint64(1442942510065516544))
	v.SetDefault("OPERATOR_ROLE_ID", uint64(1442942699144609962))
	v.SetDefault("CEO_ROLE_ID", uint64(1442943268412194816))
	v.SetDefault("STAFF_ROLE_IDS", "")

	v.SetDefault("SHOOTING_REPORT_CHANNEL_ID", uint64(1442879984682401942))
	v.SetDefault("SHOOTING_REVIEW_CHANNEL_ID", uint64(1442888528752017628))
	v.SetDefault("EDITING_REPORT_CHANNEL_ID", uint64(1442880740537925662))
	v.SetDefault("EDITING_REVIEW_CHANNEL_ID", uint64(1442888546871545886))
	v.SetDefault("PUBLISH_REVIEW_CHANNEL_ID", uint64(0))
	v.SetDefault("DONE_CHANNEL_ID", uint64(0))

	v.SetDefault("POLICY_FILE", "")
	v.SetDefault("OUTBOUND_TIMEOUT", "5s")
	v.SetDefault("DECISION_LOCK_TTL", "30s")

	v.SetDefault("PORT", 8000)
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("RATE_LIMIT_PER_MIN", 10)
	v.SetDefault("RATE_LIMIT_WINDOW", "60s")
	v.SetDefault("TG_BOT_TOKEN", "")
	v.SetDefault("BOT_TOKEN", "")
	v.SetDefault("TARGET_CHAT_ID", "-1003882605920")
	v.SetDefault("TELEGRAM_API_BASE", "https://api.telegram.org")
	v.SetDefault("TELEGRAM_TIMEOUT", "10s")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SENTRY_DSN", "")
	v.SetDefault("SENTRY_RELEASE", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func parseIDs(raw string) []uint64 {
	parts := splitAndTrim(raw)
	if len(parts) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil || id == 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
