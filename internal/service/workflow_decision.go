package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/sardorbek21324/Kairos-team/internal/models"
	"github.com/sardorbek21324/Kairos-team/internal/report"
	appErrors "github.com/sardorbek21324/Kairos-team/pkg/errors"
)

// RequestDecision answers a decision button with the comment form. The
// record is not touched until the comment is submitted.
func (s *WorkflowService) RequestDecision(ctx context.Context, kind report.Kind, status report.Status, in models.Interaction, r Responder) error {
	if err := s.policy.Guard(scopeFor(kind), PolicyReview, in.Actor); err != nil {
		return err
	}
	if in.Source == nil || !models.AnyActive(in.Source.Controls) {
		return appErrors.Clone(appErrors.ErrConflict, alreadyDecidedMessage)
	}
	return r.OpenForm(ctx, DecisionCommentForm(kind, status))
}

// Decide records a reviewer decision on the message the comment form was
// opened from. The decision and the disabled controls are written in one
// edit; forwarding and notification follow and never fail the decision.
func (s *WorkflowService) Decide(ctx context.Context, kind report.Kind, status report.Status, in models.Interaction, r Responder) error {
	// The button was already guarded, but the comment arrives as a separate
	// interaction.
	if err := s.policy.Guard(scopeFor(kind), PolicyReview, in.Actor); err != nil {
		return err
	}
	form, err := bindDecisionComment(in, status)
	if err != nil {
		return err
	}
	if in.Source == nil {
		return appErrors.Clone(appErrors.ErrNotFound, sourceMissingMessage)
	}
	if err := r.Defer(ctx); err != nil {
		return err
	}

	var (
		decided report.Record
		updated *models.PostedMessage
	)
	err = s.withDecisionLock(ctx, in.Source.Ref, func() error {
		current, rec, err := s.loadSource(ctx, in)
		if err != nil {
			return err
		}
		if rec.Kind != kind || rec.Stage != report.StageReview {
			return appErrors.Clone(appErrors.ErrConflict, alreadyDecidedMessage)
		}
		if rec.Status != report.StatusPending || !models.AnyActive(current.Controls) {
			return appErrors.Clone(appErrors.ErrConflict, alreadyDecidedMessage)
		}
		decided, err = report.WithDecision(rec, status, in.Actor.Identity(), form.Comment, s.now())
		if err != nil {
			return appErrors.CloneWrap(appErrors.ErrConflict, err, alreadyDecidedMessage)
		}
		doc := report.Render(decided)
		updated, err = s.gateway.Edit(ctx, current.Ref, models.OutboundMessage{
			Document: &doc,
			Controls: models.DisableAll(current.Controls),
		})
		if err != nil {
			if appErrors.HasCode(err, appErrors.ErrNotFound) {
				return appErrors.CloneWrap(appErrors.ErrNotFound, err, sourceMissingMessage)
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record decision")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RecordDecision(string(kind), string(status))
	s.logger.Info("report decided",
		zap.String("kind", string(kind)),
		zap.String("status", string(status)),
		zap.Uint64("reviewer_id", in.Actor.ID),
		zap.Uint64("message_id", updated.Ref.MessageID),
	)
	if err := r.Reply(ctx, decisionSavedMessage); err != nil {
		s.logger.Warn("failed to confirm decision", zap.Error(err))
	}

	s.notifyDecision(ctx, decided, updated)
	s.forwardDecision(ctx, decided)
	return nil
}
