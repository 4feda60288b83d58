package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/sardorbek21324/Kairos-team/internal/models"
	"github.com/sardorbek21324/Kairos-team/internal/report"
	appErrors "github.com/sardorbek21324/Kairos-team/pkg/errors"
	"github.com/sardorbek21324/Kairos-team/pkg/tracking"
)

// forwardDecision posts the next-stage record for advancing decisions. A
// missing or unpostable destination stops the chain here; the decision that
// triggered it stays recorded.
func (s *WorkflowService) forwardDecision(ctx context.Context, decided report.Record) {
	switch {
	case decided.Kind == report.KindShooting && (decided.Status == report.StatusAccepted || decided.Status == report.StatusMixed):
		s.forwardToEditing(ctx, decided)
	case decided.Kind == report.KindEditing && decided.Status == report.StatusAccepted:
		s.forwardToPublish(ctx, decided)
	}
}

func (s *WorkflowService) forwardToEditing(ctx context.Context, decided report.Record) {
	next := report.CloneForNextStage(decided, report.KindEditing, report.StageFinish, s.now(),
		report.Field{Name: report.FieldProcessingStatus, Value: report.ProcessingInProgress},
	)
	editors := []uint64{s.cfg.Roles.Editor}
	s.forward(ctx, "shooting", "editing", s.cfg.Channels.EditingReport, next, models.OutboundMessage{
		Content:      s.mentionContent(editors),
		MentionRoles: editors,
		Controls:     finishControls(),
	})
}

func (s *WorkflowService) forwardToPublish(ctx context.Context, decided report.Record) {
	next := report.CloneForNextStage(decided, report.KindEditing, report.StagePublish, s.now())
	staff := s.policy.RequiredRoles(ScopePublish, PolicyConfirm)
	s.forward(ctx, "editing", "publish", s.cfg.Channels.PublishReview, next, models.OutboundMessage{
		Content:      s.mentionContent(staff),
		MentionRoles: staff,
		Controls:     publishControls(),
	})
}

func (s *WorkflowService) forward(ctx context.Context, from, to string, channelID uint64, next report.Record, msg models.OutboundMessage) {
	logger := s.logger.With(zap.String("from", from), zap.String("to", to), zap.Uint64("channel_id", channelID))
	if channelID == 0 {
		logger.Warn("forward destination not configured")
		s.metrics.RecordForward(from, to, "skipped")
		return
	}

	outCtx, cancel := s.outboundContext(ctx)
	defer cancel()

	doc := report.Render(next)
	msg.Document = &doc
	posted, err := s.post(outCtx, channelID, msg)
	if err != nil {
		logger.Error("failed to forward report", zap.Error(err))
		s.metrics.RecordForward(from, to, "failed")
		tracking.CaptureError(ctx, err, map[string]string{"operation": "forward", "to": to})
		return
	}
	s.metrics.RecordForward(from, to, "posted")
	logger.Info("report forwarded", zap.Uint64("message_id", posted.Ref.MessageID))
}

// OpenFinishForm answers the finish-editing button with the editing form.
func (s *WorkflowService) OpenFinishForm(ctx context.Context, in models.Interaction, r Responder) error {
	if err := s.policy.Guard(ScopeEditing, PolicyFinish, in.Actor); err != nil {
		return err
	}
	if in.Source == nil || !models.AnyActive(in.Source.Controls) {
		return appErrors.Clone(appErrors.ErrConflict, finishNotOpenMessage)
	}
	return r.OpenForm(ctx, EditingForm(FormEditingFinish))
}

// FinishEditing turns an in-progress editing task into an editing report.
// The new record keeps every field of the task, appends the editor's input
// and is authored by the editor. The task is closed first and reopened when
// the report cannot be posted.
func (s *WorkflowService) FinishEditing(ctx context.Context, in models.Interaction, r Responder) error {
	if err := s.policy.Guard(ScopeEditing, PolicyFinish, in.Actor); err != nil {
		return err
	}
	form, err := s.bindEditingForm(in)
	if err != nil {
		s.metrics.RecordSubmission(string(report.KindEditing), "invalid")
		return err
	}
	if in.Source == nil {
		return appErrors.Clone(appErrors.ErrNotFound, sourceMissingMessage)
	}
	if err := r.Defer(ctx); err != nil {
		return err
	}

	err = s.withDecisionLock(ctx, in.Source.Ref, func() error {
		current, task, err := s.loadSource(ctx, in)
		if err != nil {
			return err
		}
		if task.Kind != report.KindEditing || task.Stage != report.StageFinish ||
			task.Status != report.StatusPending || !models.AnyActive(current.Controls) {
			return appErrors.Clone(appErrors.ErrConflict, finishNotOpenMessage)
		}

		next := report.CloneForNextStage(task, report.KindEditing, report.StageReview, s.now(),
			report.Field{Name: report.FieldProcessingStatus, Value: report.ProcessingDone},
		)
		next.Author = in.Actor.Identity()
		for _, f := range editingFields(form) {
			next.SetField(f.Name, f.Value)
		}

		// The task closes before the report exists.
		task.SetField(report.FieldProcessingStatus, report.ProcessingDone)
		taskDoc := report.Render(task)
		if _, err := s.gateway.Edit(ctx, current.Ref, models.OutboundMessage{
			Document: &taskDoc,
			Controls: models.DisableAll(current.Controls),
		}); err != nil {
			s.metrics.RecordSubmission(string(report.KindEditing), "failed")
			if appErrors.HasCode(err, appErrors.ErrNotFound) {
				return appErrors.CloneWrap(appErrors.ErrNotFound, err, sourceMissingMessage)
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close editing task")
		}

		doc := report.Render(next)
		reviewers := s.policy.RequiredRoles(ScopeEditing, PolicyReview)
		if _, err := s.post(ctx, s.cfg.Channels.EditingReview, models.OutboundMessage{
			Content:      s.mentionContent(reviewers),
			MentionRoles: reviewers,
			Document:     &doc,
			Controls:     decisionControls(report.KindEditing),
		}); err != nil {
			s.metrics.RecordSubmission(string(report.KindEditing), "failed")
			s.reopenTask(ctx, current)
			if appErrors.HasCode(err, appErrors.ErrNotFound) {
				return appErrors.CloneWrap(appErrors.ErrNotFound, err, reviewMissingMessage)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RecordSubmission(string(report.KindEditing), "posted")
	s.logger.Info("editing finished", zap.Uint64("editor_id", in.Actor.ID))
	return r.Reply(ctx, finishSavedMessage)
}

// reopenTask restores a task closed by FinishEditing to its prior content.
func (s *WorkflowService) reopenTask(ctx context.Context, task *models.PostedMessage) {
	if _, err := s.gateway.Edit(ctx, task.Ref, models.OutboundMessage{
		Document: task.Document,
		Controls: task.Controls,
	}); err != nil {
		s.logger.Error("failed to reopen editing task", zap.Uint64("message_id", task.Ref.MessageID), zap.Error(err))
		tracking.CaptureError(ctx, err, map[string]string{"operation": "reopen_editing_task"})
	}
}

// ConfirmPublish marks a publish-stage record as published, posts the final
// copy to the done channel and tells the author.
func (s *WorkflowService) ConfirmPublish(ctx context.Context, in models.Interaction, r Responder) error {
	if err := s.policy.Guard(ScopePublish, PolicyConfirm, in.Actor); err != nil {
		return err
	}
	if in.Source == nil {
		return appErrors.Clone(appErrors.ErrNotFound, sourceMissingMessage)
	}
	if err := r.Defer(ctx); err != nil {
		return err
	}

	var (
		published report.Record
		updated   *models.PostedMessage
	)
	err := s.withDecisionLock(ctx, in.Source.Ref, func() error {
		current, rec, err := s.loadSource(ctx, in)
		if err != nil {
			return err
		}
		if rec.Stage != report.StagePublish || rec.Status != report.StatusPending || !models.AnyActive(current.Controls) {
			return appErrors.Clone(appErrors.ErrConflict, publishPendingMessage)
		}
		published, err = report.WithDecision(rec, report.StatusPublished, in.Actor.Identity(), "", s.now())
		if err != nil {
			return appErrors.CloneWrap(appErrors.ErrConflict, err, publishPendingMessage)
		}
		doc := report.Render(published)
		updated, err = s.gateway.Edit(ctx, current.Ref, models.OutboundMessage{
			Document: &doc,
			Controls: models.DisableAll(current.Controls),
		})
		if err != nil {
			if appErrors.HasCode(err, appErrors.ErrNotFound) {
				return appErrors.CloneWrap(appErrors.ErrNotFound, err, sourceMissingMessage)
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record publication")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RecordDecision(string(published.Kind), string(report.StatusPublished))
	if err := r.Reply(ctx, publishSavedMessage); err != nil {
		s.logger.Warn("failed to confirm publication", zap.Error(err))
	}

	s.notifyDecision(ctx, published, updated)
	s.forward(ctx, "publish", "done", s.cfg.Channels.Done, published, models.OutboundMessage{})
	return nil
}
