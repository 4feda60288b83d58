package service

import (
	"fmt"
	"strings"

	"github.com/sardorbek21324/Kairos-team/internal/models"
	"github.com/sardorbek21324/Kairos-team/internal/report"
)

// Stable control and form identifiers. They survive restarts, so never
// rename one that has already been posted.
const (
	ControlShootingPanelSubmit = "shooting_panel_submit"
	ControlShootingAccept      = "shooting_decision_accept"
	ControlShootingMixed       = "shooting_decision_mixed"
	ControlShootingReject      = "shooting_decision_reject"
	ControlEditingPanelSubmit  = "editing_panel_submit"
	ControlEditingAccept       = "editing_decision_accept"
	ControlEditingReject       = "editing_decision_reject"
	ControlEditingFinish       = "editing_finish"
	ControlPublishConfirm      = "publish_confirm"

	FormShootingReport        = "shooting_report_modal"
	FormEditingReport         = "editing_report_modal"
	FormEditingFinish         = "editing_finish_modal"
	FormDecisionCommentPrefix = "decision_comment:"

	InputShootingDate     = "shooting_date"
	InputShootingLocation = "shooting_location"
	InputShootingCount    = "shooting_count"
	InputShootingDrive    = "shooting_drive"
	InputShootingExamples = "shooting_examples"
	InputEditingProject   = "editing_project"
	InputEditingCount     = "editing_count"
	InputEditingDrive     = "editing_drive"
	InputEditingComment   = "editing_comment"
	InputDecisionComment  = "decision_comment"
)

// decisionControls returns the review buttons offered for kind.
func decisionControls(kind report.Kind) []models.Control {
	if kind == report.KindShooting {
		return []models.Control{
			{ID: ControlShootingAccept, Label: "Accept", Style: models.ControlSuccess},
			{ID: ControlShootingMixed, Label: "50/50", Style: models.ControlSecondary},
			{ID: ControlShootingReject, Label: "Reject", Style: models.ControlDanger},
		}
	}
	return []models.Control{
		{ID: ControlEditingAccept, Label: "Accept", Style: models.ControlSuccess},
		{ID: ControlEditingReject, Label: "Reject", Style: models.ControlDanger},
	}
}

func finishControls() []models.Control {
	return []models.Control{{ID: ControlEditingFinish, Label: "Finish editing", Style: models.ControlPrimary}}
}

func publishControls() []models.Control {
	return []models.Control{{ID: ControlPublishConfirm, Label: "Confirm publish", Style: models.ControlSuccess}}
}

// PanelControls returns the entry control posted on a reporting panel.
func PanelControls(kind report.Kind) []models.Control {
	if kind == report.KindShooting {
		return []models.Control{{ID: ControlShootingPanelSubmit, Label: "Submit shooting report", Style: models.ControlPrimary}}
	}
	return []models.Control{{ID: ControlEditingPanelSubmit, Label: "Submit editing report", Style: models.ControlPrimary}}
}

// DecisionCommentFormID encodes the pending decision into the form ID.
func DecisionCommentFormID(kind report.Kind, status report.Status) string {
	return fmt.Sprintf("%s%s:%s", FormDecisionCommentPrefix, kind, status)
}

// ParseDecisionCommentFormID reverses DecisionCommentFormID.
func ParseDecisionCommentFormID(id string) (report.Kind, report.Status, bool) {
	rest, ok := strings.CutPrefix(id, FormDecisionCommentPrefix)
	if !ok {
		return "", "", false
	}
	kindRaw, statusRaw, ok := strings.Cut(rest, ":")
	if !ok {
		return "", "", false
	}
	kind := report.Kind(kindRaw)
	status := report.Status(statusRaw)
	if kind != report.KindShooting && kind != report.KindEditing {
		return "", "", false
	}
	if !report.CanTransition(kind, report.StageReview, report.StatusPending, status) {
		return "", "", false
	}
	return kind, status, true
}

// commentRequired reports whether a decision needs a non-empty comment.
func commentRequired(status report.Status) bool {
	return status == report.StatusRejected || status == report.StatusMixed
}
