package bot

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/sardorbek21324/Kairos-team/internal/models"
	"github.com/sardorbek21324/Kairos-team/internal/report"
	"github.com/sardorbek21324/Kairos-team/internal/service"
	appErrors "github.com/sardorbek21324/Kairos-team/pkg/errors"
	"github.com/sardorbek21324/Kairos-team/pkg/middleware/requestid"
	"github.com/sardorbek21324/Kairos-team/pkg/tracking"
)

const (
	genericErrorMessage  = "An error occurred. Try again or contact an administrator."
	unknownControlReason = "This control is no longer active."
)

type workflowService interface {
	OpenSubmissionForm(ctx context.Context, kind report.Kind, in models.Interaction, r service.Responder) error
	Submit(ctx context.Context, kind report.Kind, in models.Interaction, r service.Responder) error
	RequestDecision(ctx context.Context, kind report.Kind, status report.Status, in models.Interaction, r service.Responder) error
	Decide(ctx context.Context, kind report.Kind, status report.Status, in models.Interaction, r service.Responder) error
	OpenFinishForm(ctx context.Context, in models.Interaction, r service.Responder) error
	FinishEditing(ctx context.Context, in models.Interaction, r service.Responder) error
	ConfirmPublish(ctx context.Context, in models.Interaction, r service.Responder) error
	SetupPanels(ctx context.Context, in models.Interaction, r service.Responder) error
	SetupPanelHere(ctx context.Context, kind report.Kind, in models.Interaction, r service.Responder) error
	Diagnostics(ctx context.Context, in models.Interaction, r service.Responder) error
}

// Router dispatches Discord interactions to the workflow.
type Router struct {
	commands   *Registry
	components *Registry
	modals     *Registry
	metrics    *service.MetricsService
	logger     *zap.Logger
	timeout    time.Duration
}

// NewRouter registers every command, control and form the workflow serves.
func NewRouter(workflow workflowService, metrics *service.MetricsService, logger *zap.Logger, timeout time.Duration) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	r := &Router{
		commands:   NewRegistry(),
		components: NewRegistry(),
		modals:     NewRegistry(),
		metrics:    metrics,
		logger:     logger,
		timeout:    timeout,
	}

	r.commands.Handle(CommandSetupPanels, workflow.SetupPanels)
	r.commands.Handle(CommandSetupShootingPanel, func(ctx context.Context, in models.Interaction, resp service.Responder) error {
		return workflow.SetupPanelHere(ctx, report.KindShooting, in, resp)
	})
	r.commands.Handle(CommandSetupEditingPanel, func(ctx context.Context, in models.Interaction, resp service.Responder) error {
		return workflow.SetupPanelHere(ctx, report.KindEditing, in, resp)
	})
	r.commands.Handle(CommandDiagnostics, workflow.Diagnostics)

	for id, kind := range map[string]report.Kind{
		service.ControlShootingPanelSubmit: report.KindShooting,
		service.ControlEditingPanelSubmit:  report.KindEditing,
	} {
		kind := kind
		r.components.Handle(id, func(ctx context.Context, in models.Interaction, resp service.Responder) error {
			return workflow.OpenSubmissionForm(ctx, kind, in, resp)
		})
	}
	for id, decision := range decisionButtons {
		decision := decision
		r.components.Handle(id, func(ctx context.Context, in models.Interaction, resp service.Responder) error {
			return workflow.RequestDecision(ctx, decision.kind, decision.status, in, resp)
		})
	}
	r.components.Handle(service.ControlEditingFinish, workflow.OpenFinishForm)
	r.components.Handle(service.ControlPublishConfirm, workflow.ConfirmPublish)

	r.modals.Handle(service.FormShootingReport, func(ctx context.Context, in models.Interaction, resp service.Responder) error {
		return workflow.Submit(ctx, report.KindShooting, in, resp)
	})
	r.modals.Handle(service.FormEditingReport, func(ctx context.Context, in models.Interaction, resp service.Responder) error {
		return workflow.Submit(ctx, report.KindEditing, in, resp)
	})
	r.modals.Handle(service.FormEditingFinish, workflow.FinishEditing)
	r.modals.HandlePrefix(service.FormDecisionCommentPrefix, func(ctx context.Context, in models.Interaction, resp service.Responder) error {
		kind, status, ok := service.ParseDecisionCommentFormID(in.CustomID)
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, unknownControlReason)
		}
		return workflow.Decide(ctx, kind, status, in, resp)
	})
	return r
}

type decisionButton struct {
	kind   report.Kind
	status report.Status
}

var decisionButtons = map[string]decisionButton{
	service.ControlShootingAccept: {report.KindShooting, report.StatusAccepted},
	service.ControlShootingMixed:  {report.KindShooting, report.StatusMixed},
	service.ControlShootingReject: {report.KindShooting, report.StatusRejected},
	service.ControlEditingAccept:  {report.KindEditing, report.StatusAccepted},
	service.ControlEditingReject:  {report.KindEditing, report.StatusRejected},
}

// ComponentIDs lists the control IDs the router answers.
func (r *Router) ComponentIDs() []string {
	return r.components.IDs()
}

// Handle is the discordgo event handler.
func (r *Router) Handle(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	r.Dispatch(context.Background(), s, ic.Interaction)
}

// Dispatch routes one interaction and answers it. It never panics.
func (r *Router) Dispatch(ctx context.Context, api interactionAPI, i *discordgo.Interaction) {
	if i == nil {
		return
	}
	ctx, cancel := context.WithTimeout(requestid.WithValue(ctx, i.ID), r.timeout)
	defer cancel()

	in := toInteraction(i)
	registry, name := r.route(i)
	resp := newResponder(api, i)
	logger := r.logger.With(
		zap.String("interaction_id", i.ID),
		zap.String("custom_id", in.CustomID),
		zap.Uint64("user_id", in.Actor.ID),
	)
	start := time.Now()
	outcome := "ok"

	defer func() {
		if rec := recover(); rec != nil {
			outcome = "panic"
			logger.Error("interaction handler panicked", zap.Any("panic", rec), zap.Stack("stack"))
			tracking.CapturePanic(ctx, rec, map[string]string{"custom_id": in.CustomID})
			r.reply(ctx, resp, logger, genericErrorMessage)
		}
		r.metrics.ObserveInteraction(name, outcome, time.Since(start))
	}()

	if registry == nil {
		outcome = "ignored"
		return
	}
	handler, ok := registry.Lookup(in.CustomID)
	if !ok {
		outcome = "unknown"
		logger.Warn("no handler for interaction")
		r.reply(ctx, resp, logger, unknownControlReason)
		return
	}

	if err := handler(ctx, in, resp); err != nil {
		outcome = errorOutcome(err)
		message, capture := replyFor(err)
		if capture {
			logger.Error("interaction failed", zap.Error(err))
			tracking.CaptureError(ctx, err, map[string]string{"custom_id": in.CustomID, "handler": name})
		} else {
			logger.Info("interaction rejected", zap.String("reason", outcome), zap.Error(err))
		}
		r.reply(ctx, resp, logger, message)
	}
}

func (r *Router) route(i *discordgo.Interaction) (*Registry, string) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		return r.commands, "command"
	case discordgo.InteractionMessageComponent:
		return r.components, "component"
	case discordgo.InteractionModalSubmit:
		return r.modals, "modal"
	default:
		return nil, "other"
	}
}

func (r *Router) reply(ctx context.Context, resp service.Responder, logger *zap.Logger, message string) {
	if err := resp.Reply(context.WithoutCancel(ctx), message); err != nil {
		logger.Warn("failed to reply to interaction", zap.Error(err))
	}
}

// replyFor picks the private message for err and whether it should be
// reported as an exception. Expected refusals are answered with their own
// message; resolution and internal failures are reported.
func replyFor(err error) (string, bool) {
	var appErr *appErrors.Error
	if !errors.As(err, &appErr) {
		return genericErrorMessage, true
	}
	switch appErr.Code {
	case appErrors.ErrValidation.Code, appErrors.ErrForbidden.Code, appErrors.ErrConflict.Code:
		return appErr.Message, false
	case appErrors.ErrNotFound.Code:
		return appErr.Message, true
	default:
		return genericErrorMessage, true
	}
}

func errorOutcome(err error) string {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return appErrors.ErrInternal.Code
}

func toInteraction(i *discordgo.Interaction) models.Interaction {
	in := models.Interaction{
		ID:        i.ID,
		Actor:     actorFromInteraction(i),
		ChannelID: parseID(i.ChannelID),
		GuildID:   parseID(i.GuildID),
		Source:    postedFromMessage(i.Message, parseID(i.GuildID)),
	}
	switch data := i.Data.(type) {
	case discordgo.ApplicationCommandInteractionData:
		in.CustomID = data.Name
	case discordgo.MessageComponentInteractionData:
		in.CustomID = data.CustomID
	case discordgo.ModalSubmitInteractionData:
		in.CustomID = data.CustomID
		in.Values = modalValues(data.Components)
	}
	return in
}
