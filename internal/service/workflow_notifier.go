package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sardorbek21324/Kairos-team/internal/models"
	"github.com/sardorbek21324/Kairos-team/internal/report"
)

var notifyKeyFields = map[report.Kind][]string{
	report.KindShooting: {report.FieldShootingDate, report.FieldLocation, report.FieldClipCount},
	report.KindEditing:  {report.FieldProject, report.FieldEditedCount, report.FieldEditLink},
}

// notifyDecision sends the author a direct message about the outcome. The
// author is read back from the rendered message; when that fails, or the
// message cannot be delivered, the failure is logged and dropped.
func (s *WorkflowService) notifyDecision(ctx context.Context, rec report.Record, msg *models.PostedMessage) {
	doc := report.Render(rec)
	jumpURL := ""
	if msg != nil {
		jumpURL = msg.JumpURL
		if msg.Document != nil {
			doc = *msg.Document
		}
	}

	authorID, ok := report.ParseAuthorIdentity(doc)
	if !ok {
		s.logger.Debug("author not recoverable, skipping notification", zap.String("title", doc.Title))
		s.metrics.RecordNotification("skipped")
		return
	}

	outCtx, cancel := s.outboundContext(ctx)
	defer cancel()

	if err := s.gateway.DirectMessage(outCtx, authorID, NotificationText(rec, jumpURL)); err != nil {
		s.logger.Warn("failed to notify author", zap.Uint64("author_id", authorID), zap.Error(err))
		s.metrics.RecordNotification("failed")
		return
	}
	s.metrics.RecordNotification("sent")
}

// NotificationText renders the direct message summarising a decided record.
func NotificationText(rec report.Record, jumpURL string) string {
	var b strings.Builder
	kind := rec.Kind.Label()
	if rec.Stage == report.StagePublish || rec.Status == report.StatusPublished {
		kind = "publication"
	}
	fmt.Fprintf(&b, "Your %s report has been processed.\n", kind)
	fmt.Fprintf(&b, "Status: %s.%s\n", report.StatusLabel(rec.Status), forwardNote(rec))
	for _, name := range notifyKeyFields[rec.Kind] {
		if value, ok := rec.Field(name); ok {
			fmt.Fprintf(&b, "%s: %s\n", name, value)
		}
	}
	if !rec.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Submitted at: %s\n", rec.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))
	}
	if rec.Decision != nil {
		fmt.Fprintf(&b, "Reviewer: %s\n", rec.Decision.Reviewer.Mention())
		fmt.Fprintf(&b, "Reviewer comment: %s\n", rec.Decision.Comment)
		if !rec.Decision.DecidedAt.IsZero() {
			fmt.Fprintf(&b, "Decided at: %s\n", rec.Decision.DecidedAt.UTC().Format("2006-01-02 15:04 UTC"))
		}
	}
	if jumpURL != "" {
		fmt.Fprintf(&b, "Report link: %s", jumpURL)
	}
	return strings.TrimRight(b.String(), "\n")
}

func forwardNote(rec report.Record) string {
	switch {
	case rec.Kind == report.KindShooting && (rec.Status == report.StatusAccepted || rec.Status == report.StatusMixed):
		return " The footage has been sent to editing."
	case rec.Kind == report.KindEditing && rec.Status == report.StatusAccepted:
		return " The video has been sent for publication."
	default:
		return ""
	}
}
