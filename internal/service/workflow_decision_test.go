package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sardorbek21324/Kairos-team/internal/models"
	"github.com/sardorbek21324/Kairos-team/internal/report"
	appErrors "github.com/sardorbek21324/Kairos-team/pkg/errors"
)

func TestAcceptShootingForwardsToEditing(t *testing.T) {
	svc, gw := newTestWorkflow(t, allChannels())
	submitted := submitShooting(t, svc, gw)
	r := &responderStub{}

	err := svc.Decide(context.Background(), report.KindShooting, report.StatusAccepted, clickFrom(gw, submitted.ref, editor, comment("")), r)
	require.NoError(t, err)
	assert.Equal(t, 1, r.deferred)
	assert.Equal(t, []string{decisionSavedMessage}, r.replies)

	source := gw.message(submitted.ref)
	assert.Equal(t, "✅ Shooting report [ACCEPTED]", source.Document.Title)
	assert.Equal(t, report.ColorGreen, source.Document.Color)
	assert.False(t, models.AnyActive(source.Controls))
	require.Len(t, source.Controls, 3)
	last := source.Document.Fields[len(source.Document.Fields)-1]
	assert.Equal(t, report.DecisionFieldName, last.Name)
	assert.Contains(t, last.Value, "Decision: ACCEPTED")
	assert.Contains(t, last.Value, "Reviewer: <@222>")
	assert.Contains(t, last.Value, "Comment: no comment")

	forwarded := gw.postsTo(chEditingReport)
	require.Len(t, forwarded, 1)
	task := forwarded[0].msg
	assert.Equal(t, "<@&1>", task.Content)
	assert.Equal(t, "Editing task", task.Document.Title)
	assert.Equal(t, []string{
		report.FieldShootingDate, report.FieldLocation, report.FieldClipCount,
		report.FieldFootageLink, report.FieldExamples, report.FieldProcessingStatus,
	}, fieldNames(task.Document.Fields))
	assert.Equal(t, report.ProcessingInProgress, task.Document.Fields[5].Value)
	assert.Equal(t, operatorID, task.Document.AuthorID)
	require.Len(t, task.Controls, 1)
	assert.Equal(t, ControlEditingFinish, task.Controls[0].ID)

	dms := gw.dms[operatorID]
	require.Len(t, dms, 1)
	assert.True(t, strings.HasPrefix(dms[0], "Your shooting report has been processed.\nStatus: ACCEPTED. The footage has been sent to editing."))
	assert.Contains(t, dms[0], "Location: Studio A")
	assert.Contains(t, dms[0], "Reviewer comment: no comment")
	assert.Contains(t, dms[0], "Report link: https://discord.com/channels/900/11/1001")
}

func TestDecideLongestCommentFitsField(t *testing.T) {
	svc, gw := newTestWorkflow(t, allChannels())
	submitted := submitShooting(t, svc, gw)
	form := DecisionCommentForm(report.KindShooting, report.StatusRejected)
	text := strings.Repeat("x", form.Fields[0].MaxLength)

	err := svc.Decide(context.Background(), report.KindShooting, report.StatusRejected, clickFrom(gw, submitted.ref, editor, comment(text)), &responderStub{})
	require.NoError(t, err)

	fields := gw.message(submitted.ref).Document.Fields
	last := fields[len(fields)-1]
	assert.Equal(t, report.DecisionFieldName, last.Name)
	assert.LessOrEqual(t, len(last.Value), report.FieldValueLimit)
	assert.True(t, strings.HasSuffix(last.Value, "Comment: "+text))
}

func TestDecisionCommentRequirements(t *testing.T) {
	for _, status := range []report.Status{report.StatusRejected, report.StatusMixed} {
		t.Run(string(status), func(t *testing.T) {
			svc, gw := newTestWorkflow(t, allChannels())
			submitted := submitShooting(t, svc, gw)
			r := &responderStub{}

			err := svc.Decide(context.Background(), report.KindShooting, status, clickFrom(gw, submitted.ref, editor, comment("  ")), r)
			appErr := requireCode(t, err, appErrors.ErrValidation)
			assert.Equal(t, "A comment is required for this decision.", appErr.Message)
			assert.Empty(t, gw.edits)
			assert.Zero(t, r.deferred)
			assert.True(t, models.AnyActive(gw.message(submitted.ref).Controls))
		})
	}
}

func TestRejectShootingStopsChain(t *testing.T) {
	svc, gw := newTestWorkflow(t, allChannels())
	submitted := submitShooting(t, svc, gw)

	err := svc.Decide(context.Background(), report.KindShooting, report.StatusRejected, clickFrom(gw, submitted.ref, ceo, comment("too dark")), &responderStub{})
	require.NoError(t, err)

	source := gw.message(submitted.ref)
	assert.Equal(t, "❌ Shooting report [REJECTED]", source.Document.Title)
	assert.Contains(t, source.Document.Fields[len(source.Document.Fields)-1].Value, "Comment: too dark")
	assert.Empty(t, gw.postsTo(chEditingReport))
	require.Len(t, gw.dms[operatorID], 1)
	assert.Contains(t, gw.dms[operatorID][0], "Status: REJECTED.\n")
}

func TestMixedShootingForwards(t *testing.T) {
	svc, gw := newTestWorkflow(t, allChannels())
	submitted := submitShooting(t, svc, gw)

	err := svc.Decide(context.Background(), report.KindShooting, report.StatusMixed, clickFrom(gw, submitted.ref, editor, comment("half usable")), &responderStub{})
	require.NoError(t, err)

	assert.Equal(t, "➗ Shooting report [50/50]", gw.message(submitted.ref).Document.Title)
	assert.Len(t, gw.postsTo(chEditingReport), 1)
}

func TestDecideOnlyOnce(t *testing.T) {
	svc, gw := newTestWorkflow(t, allChannels())
	submitted := submitShooting(t, svc, gw)
	// Both reviewers clicked before either decision landed.
	first := clickFrom(gw, submitted.ref, editor, comment(""))
	second := clickFrom(gw, submitted.ref, ceo, comment("no"))

	require.NoError(t, svc.Decide(context.Background(), report.KindShooting, report.StatusAccepted, first, &responderStub{}))
	err := svc.Decide(context.Background(), report.KindShooting, report.StatusRejected, second, &responderStub{})
	appErr := requireCode(t, err, appErrors.ErrConflict)
	assert.Equal(t, alreadyDecidedMessage, appErr.Message)

	assert.Len(t, gw.edits, 1)
	assert.Len(t, gw.postsTo(chEditingReport), 1)
	assert.Len(t, gw.dms[operatorID], 1)
	assert.Equal(t, 1, strings.Count(strings.Join(fieldNames(gw.message(submitted.ref).Document.Fields), ","), report.DecisionFieldName))
}

func TestDecideWhileAnotherDecisionInFlight(t *testing.T) {
	svc, gw := newTestWorkflow(t, allChannels())
	submitted := submitShooting(t, svc, gw)

	var inner error
	gw.fetchHook = func() {
		gw.fetchHook = nil
		inner = svc.Decide(context.Background(), report.KindShooting, report.StatusRejected, clickFrom(gw, submitted.ref, ceo, comment("no")), &responderStub{})
	}

	require.NoError(t, svc.Decide(context.Background(), report.KindShooting, report.StatusAccepted, clickFrom(gw, submitted.ref, editor, comment("")), &responderStub{}))
	requireCode(t, inner, appErrors.ErrConflict)
	assert.Len(t, gw.edits, 1)
	assert.Equal(t, "✅ Shooting report [ACCEPTED]", gw.message(submitted.ref).Document.Title)
}

func TestRequestDecision(t *testing.T) {
	svc, gw := newTestWorkflow(t, allChannels())
	submitted := submitShooting(t, svc, gw)
	r := &responderStub{}

	require.NoError(t, svc.RequestDecision(context.Background(), report.KindShooting, report.StatusRejected, clickFrom(gw, submitted.ref, editor, nil), r))
	require.Len(t, r.forms, 1)
	assert.Equal(t, "decision_comment:shooting:rejected", r.forms[0].ID)
	assert.True(t, r.forms[0].Fields[0].Required)
	assert.Empty(t, gw.edits)

	err := svc.RequestDecision(context.Background(), report.KindShooting, report.StatusAccepted, clickFrom(gw, submitted.ref, operator, nil), r)
	requireCode(t, err, appErrors.ErrForbidden)

	require.NoError(t, svc.Decide(context.Background(), report.KindShooting, report.StatusAccepted, clickFrom(gw, submitted.ref, editor, comment("")), &responderStub{}))
	err = svc.RequestDecision(context.Background(), report.KindShooting, report.StatusAccepted, clickFrom(gw, submitted.ref, ceo, nil), r)
	requireCode(t, err, appErrors.ErrConflict)
}

func TestDecideRequiresReviewerRole(t *testing.T) {
	svc, gw := newTestWorkflow(t, allChannels())
	submitted := submitShooting(t, svc, gw)

	err := svc.Decide(context.Background(), report.KindShooting, report.StatusAccepted, clickFrom(gw, submitted.ref, operator, comment("")), &responderStub{})
	requireCode(t, err, appErrors.ErrForbidden)
	assert.Empty(t, gw.edits)
}

func TestDecideSurvivesNotificationFailure(t *testing.T) {
	svc, gw := newTestWorkflow(t, allChannels())
	submitted := submitShooting(t, svc, gw)
	gw.dmErr = errors.New("cannot send messages to this user")
	r := &responderStub{}

	require.NoError(t, svc.Decide(context.Background(), report.KindShooting, report.StatusAccepted, clickFrom(gw, submitted.ref, editor, comment("")), r))
	assert.Equal(t, []string{decisionSavedMessage}, r.replies)
	assert.Len(t, gw.edits, 1)
	assert.Len(t, gw.postsTo(chEditingReport), 1)
}

func TestDecideWithMissingForwardDestination(t *testing.T) {
	for name, target := range map[string]uint64{"unset": 0, "deleted": chMissing} {
		t.Run(name, func(t *testing.T) {
			channels := allChannels()
			channels.EditingReport = target
			svc, gw := newTestWorkflow(t, channels)
			submitted := submitShooting(t, svc, gw)

			require.NoError(t, svc.Decide(context.Background(), report.KindShooting, report.StatusAccepted, clickFrom(gw, submitted.ref, editor, comment("")), &responderStub{}))
			assert.Equal(t, "✅ Shooting report [ACCEPTED]", gw.message(submitted.ref).Document.Title)
			assert.Len(t, gw.posts, 1)
			assert.Len(t, gw.dms[operatorID], 1)
		})
	}
}

func TestDecideEditFailureLeavesNoSideEffects(t *testing.T) {
	svc, gw := newTestWorkflow(t, allChannels())
	submitted := submitShooting(t, svc, gw)
	gw.editErr = errors.New("discord unavailable")

	err := svc.Decide(context.Background(), report.KindShooting, report.StatusAccepted, clickFrom(gw, submitted.ref, editor, comment("")), &responderStub{})
	requireCode(t, err, appErrors.ErrInternal)
	assert.Empty(t, gw.postsTo(chEditingReport))
	assert.Empty(t, gw.dms)
}

func TestDecideOnDeletedMessage(t *testing.T) {
	svc, gw := newTestWorkflow(t, allChannels())
	submitted := submitShooting(t, svc, gw)
	in := clickFrom(gw, submitted.ref, editor, comment(""))
	delete(gw.messages, submitted.ref)

	err := svc.Decide(context.Background(), report.KindShooting, report.StatusAccepted, in, &responderStub{})
	appErr := requireCode(t, err, appErrors.ErrNotFound)
	assert.Equal(t, sourceMissingMessage, appErr.Message)
}

func TestParseDecisionCommentFormID(t *testing.T) {
	cases := []struct {
		id     string
		kind   report.Kind
		status report.Status
		ok     bool
	}{
		{"decision_comment:shooting:accepted", report.KindShooting, report.StatusAccepted, true},
		{"decision_comment:shooting:mixed", report.KindShooting, report.StatusMixed, true},
		{"decision_comment:editing:rejected", report.KindEditing, report.StatusRejected, true},
		{"decision_comment:editing:mixed", "", "", false},
		{"decision_comment:editing:published", "", "", false},
		{"decision_comment:publish:accepted", "", "", false},
		{"decision_comment:shooting", "", "", false},
		{"shooting_report_modal", "", "", false},
	}
	for _, tc := range cases {
		kind, status, ok := ParseDecisionCommentFormID(tc.id)
		assert.Equal(t, tc.ok, ok, tc.id)
		assert.Equal(t, tc.kind, kind, tc.id)
		assert.Equal(t, tc.status, status, tc.id)
	}
	kind, status, ok := ParseDecisionCommentFormID(DecisionCommentFormID(report.KindEditing, report.StatusAccepted))
	require.True(t, ok)
	assert.Equal(t, report.KindEditing, kind)
	assert.Equal(t, report.StatusAccepted, status)
}

func TestNotificationText(t *testing.T) {
	rec := report.New(report.KindEditing, report.StageReview, report.Identity{ID: editorID, DisplayName: "editor.boris"}, testNow,
		report.Field{Name: report.FieldProject, Value: "Instagram"},
		report.Field{Name: report.FieldEditedCount, Value: "2"},
		report.Field{Name: report.FieldEditLink, Value: "https://drive.example/edit"},
	)
	decided, err := report.WithDecision(rec, report.StatusAccepted, report.Identity{ID: ceoID}, "great", testNow)
	require.NoError(t, err)

	text := NotificationText(decided, "")
	assert.Equal(t, strings.Join([]string{
		"Your editing report has been processed.",
		"Status: ACCEPTED. The video has been sent for publication.",
		"Project: Instagram",
		"Edited videos: 2",
		"Edit link: https://drive.example/edit",
		"Submitted at: 2024-01-15 10:30 UTC",
		"Reviewer: <@333>",
		"Reviewer comment: great",
		"Decided at: 2024-01-15 10:30 UTC",
	}, "\n"), text)
}
