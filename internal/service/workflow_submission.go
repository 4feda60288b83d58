package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sardorbek21324/Kairos-team/internal/models"
	"github.com/sardorbek21324/Kairos-team/internal/report"
	appErrors "github.com/sardorbek21324/Kairos-team/pkg/errors"
)

// OpenSubmissionForm answers a panel click with the kind's report form.
func (s *WorkflowService) OpenSubmissionForm(ctx context.Context, kind report.Kind, in models.Interaction, r Responder) error {
	if err := s.policy.Guard(scopeFor(kind), PolicySubmit, in.Actor); err != nil {
		return err
	}
	if kind == report.KindShooting {
		return r.OpenForm(ctx, ShootingForm())
	}
	return r.OpenForm(ctx, EditingForm(FormEditingReport))
}

// Submit validates a submitted report form and posts the pending record to
// the kind's review channel. Nothing is posted unless every rule passes.
func (s *WorkflowService) Submit(ctx context.Context, kind report.Kind, in models.Interaction, r Responder) error {
	if err := s.policy.Guard(scopeFor(kind), PolicySubmit, in.Actor); err != nil {
		return err
	}

	var fields []report.Field
	if kind == report.KindShooting {
		form, err := s.bindShootingForm(in)
		if err != nil {
			s.metrics.RecordSubmission(string(kind), "invalid")
			return err
		}
		fields = shootingFields(form)
	} else {
		form, err := s.bindEditingForm(in)
		if err != nil {
			s.metrics.RecordSubmission(string(kind), "invalid")
			return err
		}
		fields = editingFields(form)
	}

	rec := report.New(kind, report.StageReview, in.Actor.Identity(), s.now(), fields...)
	doc := report.Render(rec)
	reviewers := s.policy.RequiredRoles(scopeFor(kind), PolicyReview)
	posted, err := s.post(ctx, s.reviewChannel(kind), models.OutboundMessage{
		Content:      s.mentionContent(reviewers),
		MentionRoles: reviewers,
		Document:     &doc,
		Controls:     decisionControls(kind),
	})
	if err != nil {
		s.metrics.RecordSubmission(string(kind), "failed")
		if appErrors.HasCode(err, appErrors.ErrNotFound) {
			return appErrors.CloneWrap(appErrors.ErrNotFound, err, reviewMissingMessage)
		}
		return err
	}

	s.metrics.RecordSubmission(string(kind), "posted")
	s.logger.Info("report submitted",
		zap.String("kind", string(kind)),
		zap.Uint64("author_id", in.Actor.ID),
		zap.Uint64("message_id", posted.Ref.MessageID),
	)
	return r.Reply(ctx, fmt.Sprintf(submittedMessage, kind.Label()))
}
