package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sardorbek21324/Kairos-team/internal/dto"
	appErrors "github.com/sardorbek21324/Kairos-team/pkg/errors"
	"github.com/sardorbek21324/Kairos-team/pkg/middleware/cors"
)

type rateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type leadSender interface {
	Configured() bool
	SendMessage(ctx context.Context, chatID, text string) error
}

// LeadServiceConfig configures lead forwarding.
type LeadServiceConfig struct {
	AllowedOrigins []string
	TargetChatID   string
}

// LeadMeta carries the request attributes the checks depend on.
type LeadMeta struct {
	Origin   string
	ClientIP string
}

// LeadService validates website leads and forwards them to Telegram.
type LeadService struct {
	limiter rateLimiter
	sender  leadSender
	origins map[string]struct{}
	chatID  string
	metrics *MetricsService
	logger  *zap.Logger
}

// NewLeadService constructs the service.
func NewLeadService(limiter rateLimiter, sender leadSender, cfg LeadServiceConfig, metrics *MetricsService, logger *zap.Logger) *LeadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if origin = cors.NormalizeOrigin(origin); origin != "" {
			origins[origin] = struct{}{}
		}
	}
	return &LeadService{
		limiter: limiter,
		sender:  sender,
		origins: origins,
		chatID:  cfg.TargetChatID,
		metrics: metrics,
		logger:  logger,
	}
}

// Submit runs the lead checks in order (email, origin, rate limit, token)
// and forwards the message in a single attempt.
func (s *LeadService) Submit(ctx context.Context, req dto.LeadRequest, meta LeadMeta) error {
	if !strings.Contains(req.Email, "@") {
		s.metrics.RecordLead("invalid_email")
		return appErrors.ErrInvalidEmail
	}
	if !s.originAllowed(meta.Origin) {
		s.metrics.RecordLead("origin_rejected")
		return appErrors.ErrOriginNotAllowed
	}
	if !s.allow(ctx, meta.ClientIP) {
		s.metrics.RecordLead("rate_limited")
		return appErrors.ErrRateLimited
	}
	if s.sender == nil || !s.sender.Configured() {
		s.metrics.RecordLead("not_configured")
		return appErrors.Clone(appErrors.ErrNotConfigured, "Bot token is not configured")
	}

	if err := s.sender.SendMessage(ctx, s.chatID, LeadText(req)); err != nil {
		s.logger.Warn("failed to forward lead", zap.Error(err))
		s.metrics.RecordLead("send_failed")
		return appErrors.CloneWrap(appErrors.ErrUpstream, err, "")
	}
	s.metrics.RecordLead("sent")
	return nil
}

func (s *LeadService) originAllowed(origin string) bool {
	if len(s.origins) == 0 {
		return true
	}
	origin = cors.NormalizeOrigin(origin)
	if origin == "" {
		return false
	}
	_, ok := s.origins[origin]
	return ok
}

// allow fails open when the limiter backend is unavailable.
func (s *LeadService) allow(ctx context.Context, clientIP string) bool {
	if s.limiter == nil {
		return true
	}
	if clientIP == "" {
		clientIP = "unknown"
	}
	ok, err := s.limiter.Allow(ctx, clientIP)
	if err != nil {
		s.logger.Warn("rate limiter unavailable", zap.Error(err))
		return true
	}
	return ok
}

// LeadText formats the Telegram message for a lead.
func LeadText(req dto.LeadRequest) string {
	return fmt.Sprintf("📩 New lead\nName: %s\nEmail: %s\nMessage: %s", req.Name, req.Email, req.Message)
}
