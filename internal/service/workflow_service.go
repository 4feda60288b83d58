package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sardorbek21324/Kairos-team/internal/models"
	"github.com/sardorbek21324/Kairos-team/internal/report"
	"github.com/sardorbek21324/Kairos-team/pkg/config"
	appErrors "github.com/sardorbek21324/Kairos-team/pkg/errors"
)

// ChatGateway is the platform surface the workflow reads and writes through.
// Implementations return an appErrors.ErrNotFound clone for unknown channels
// and messages.
type ChatGateway interface {
	Post(ctx context.Context, channelID uint64, msg models.OutboundMessage) (*models.PostedMessage, error)
	Edit(ctx context.Context, ref models.MessageRef, msg models.OutboundMessage) (*models.PostedMessage, error)
	Fetch(ctx context.Context, ref models.MessageRef) (*models.PostedMessage, error)
	DirectMessage(ctx context.Context, userID uint64, content string) error
	ChannelAccess(ctx context.Context, channelID, userID uint64) (models.ChannelAccess, error)
}

// Responder answers the interaction that triggered an operation. Replies are
// visible to the acting user only.
type Responder interface {
	Reply(ctx context.Context, content string) error
	OpenForm(ctx context.Context, form models.Form) error
	Defer(ctx context.Context) error
}

type decisionLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// WorkflowServiceConfig carries the surfaces and limits of the workflow.
type WorkflowServiceConfig struct {
	Channels        config.ChannelConfig
	Roles           config.RoleConfig
	OutboundTimeout time.Duration
	DecisionLockTTL time.Duration
}

// WorkflowService runs the shooting, editing and publish approval chain.
type WorkflowService struct {
	gateway   ChatGateway
	policy    *PermissionPolicy
	lock      decisionLock
	metrics   *MetricsService
	validator *validator.Validate
	cfg       WorkflowServiceConfig
	logger    *zap.Logger
	now       func() time.Time
}

// WorkflowServiceOption configures the service.
type WorkflowServiceOption func(*WorkflowService)

// WithWorkflowMetrics attaches Prometheus instrumentation.
func WithWorkflowMetrics(metrics *MetricsService) WorkflowServiceOption {
	return func(s *WorkflowService) {
		s.metrics = metrics
	}
}

// WithWorkflowClock overrides the time source.
func WithWorkflowClock(now func() time.Time) WorkflowServiceOption {
	return func(s *WorkflowService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithWorkflowValidator overrides the form validator.
func WithWorkflowValidator(validate *validator.Validate) WorkflowServiceOption {
	return func(s *WorkflowService) {
		if validate != nil {
			s.validator = newFormValidator(validate)
		}
	}
}

// NewWorkflowService constructs the service with defaults.
func NewWorkflowService(gateway ChatGateway, policy *PermissionPolicy, lock decisionLock, cfg WorkflowServiceConfig, logger *zap.Logger, opts ...WorkflowServiceOption) *WorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.OutboundTimeout <= 0 {
		cfg.OutboundTimeout = 5 * time.Second
	}
	if cfg.DecisionLockTTL <= 0 {
		cfg.DecisionLockTTL = 30 * time.Second
	}
	svc := &WorkflowService{
		gateway:   gateway,
		policy:    policy,
		lock:      lock,
		validator: newFormValidator(nil),
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Policy exposes the permission table in use.
func (s *WorkflowService) Policy() *PermissionPolicy {
	return s.policy
}

func (s *WorkflowService) reviewChannel(kind report.Kind) uint64 {
	if kind == report.KindShooting {
		return s.cfg.Channels.ShootingReview
	}
	return s.cfg.Channels.EditingReview
}

func scopeFor(kind report.Kind) PolicyScope {
	if kind == report.KindShooting {
		return ScopeShooting
	}
	return ScopeEditing
}

func (s *WorkflowService) mentionContent(roles []uint64) string {
	parts := make([]string, 0, len(roles))
	for _, id := range roles {
		if id != 0 {
			parts = append(parts, models.RoleMention(id))
		}
	}
	return strings.Join(parts, " ")
}

// outboundContext bounds calls that happen after the user-visible outcome
// has been committed.
func (s *WorkflowService) outboundContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.cfg.OutboundTimeout)
}

// withDecisionLock serialises operations on one message. A held lock means
// another reviewer is committing a decision right now.
func (s *WorkflowService) withDecisionLock(ctx context.Context, ref models.MessageRef, fn func() error) error {
	if s.lock == nil {
		return fn()
	}
	key := fmt.Sprintf("decision:%d:%d", ref.ChannelID, ref.MessageID)
	acquired, err := s.lock.Acquire(ctx, key, s.cfg.DecisionLockTTL)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire decision lock")
	}
	if !acquired {
		return appErrors.Clone(appErrors.ErrConflict, alreadyDecidedMessage)
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), key); err != nil {
			s.logger.Warn("failed to release decision lock", zap.String("key", key), zap.Error(err))
		}
	}()
	return fn()
}

// loadSource fetches the current state of the message an interaction came
// from and rebuilds its record.
func (s *WorkflowService) loadSource(ctx context.Context, in models.Interaction) (*models.PostedMessage, report.Record, error) {
	if in.Source == nil {
		return nil, report.Record{}, appErrors.Clone(appErrors.ErrNotFound, sourceMissingMessage)
	}
	current, err := s.gateway.Fetch(ctx, in.Source.Ref)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrNotFound) {
			return nil, report.Record{}, appErrors.CloneWrap(appErrors.ErrNotFound, err, sourceMissingMessage)
		}
		return nil, report.Record{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report message")
	}
	if current.Document == nil {
		return nil, report.Record{}, appErrors.Clone(appErrors.ErrNotFound, sourceMissingMessage)
	}
	rec, err := report.Parse(*current.Document)
	if err != nil {
		return nil, report.Record{}, appErrors.CloneWrap(appErrors.ErrNotFound, err, sourceMissingMessage)
	}
	return current, rec, nil
}

func (s *WorkflowService) post(ctx context.Context, channelID uint64, msg models.OutboundMessage) (*models.PostedMessage, error) {
	if channelID == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "channel is not configured")
	}
	posted, err := s.gateway.Post(ctx, channelID, msg)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrNotFound) {
			return nil, appErrors.CloneWrap(appErrors.ErrNotFound, err, fmt.Sprintf("channel %d not found", channelID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to post message")
	}
	return posted, nil
}

// User-facing replies.
const (
	submittedMessage      = "✅ Your %s report has been sent for review."
	decisionSavedMessage  = "The decision has been saved."
	finishSavedMessage    = "✅ Editing finished. The report has been sent for review."
	publishSavedMessage   = "📢 Publication confirmed."
	alreadyDecidedMessage = "This report has already been decided."
	reviewMissingMessage  = "The review channel was not found. Contact an administrator."
	sourceMissingMessage  = "The original message was not found. Try again or contact an administrator."
	publishPendingMessage = "This report is not awaiting publication."
	finishNotOpenMessage  = "This editing task is already finished."
)
