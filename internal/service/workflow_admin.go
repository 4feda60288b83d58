package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sardorbek21324/Kairos-team/internal/models"
	"github.com/sardorbek21324/Kairos-team/internal/report"
	appErrors "github.com/sardorbek21324/Kairos-team/pkg/errors"
)

// PanelResult is the outcome of posting one reporting panel.
type PanelResult struct {
	Kind      report.Kind
	ChannelID uint64
	Posted    bool
	Err       error
}

// Line renders the result for the operator.
func (p PanelResult) Line() string {
	if p.Posted {
		return fmt.Sprintf("✅ Posted the %s panel to %s", p.Kind.Label(), models.ChannelMention(p.ChannelID))
	}
	return fmt.Sprintf("❌ Could not post the %s panel. Check the channel ID (%d).", p.Kind.Label(), p.ChannelID)
}

// PanelDocument is the entry message shown above a panel's submit control.
func PanelDocument(kind report.Kind) report.Document {
	if kind == report.KindShooting {
		return report.Document{
			Title:       "Shooting reports",
			Description: "Panel for shooting reports. Press the button below to submit a report.",
			Color:       report.ColorBlurple,
		}
	}
	return report.Document{
		Title:       "Editing reports",
		Description: "Panel for editing reports. Press the button below to submit a report.",
		Color:       report.ColorBlurple,
	}
}

// PostPanel posts the kind's reporting panel to channelID.
func (s *WorkflowService) PostPanel(ctx context.Context, kind report.Kind, channelID uint64) PanelResult {
	result := PanelResult{Kind: kind, ChannelID: channelID}
	doc := PanelDocument(kind)
	if _, err := s.post(ctx, channelID, models.OutboundMessage{Document: &doc, Controls: PanelControls(kind)}); err != nil {
		s.logger.Error("failed to post panel", zap.String("kind", string(kind)), zap.Uint64("channel_id", channelID), zap.Error(err))
		result.Err = err
		return result
	}
	result.Posted = true
	return result
}

// PostPanels posts both reporting panels to their configured channels.
func (s *WorkflowService) PostPanels(ctx context.Context) []PanelResult {
	return []PanelResult{
		s.PostPanel(ctx, report.KindShooting, s.cfg.Channels.ShootingReport),
		s.PostPanel(ctx, report.KindEditing, s.cfg.Channels.EditingReport),
	}
}

// SetupPanels handles the setup command that deploys every panel.
func (s *WorkflowService) SetupPanels(ctx context.Context, in models.Interaction, r Responder) error {
	if err := s.policy.Guard(ScopeAdmin, PolicySetup, in.Actor); err != nil {
		return appErrors.CloneWrap(appErrors.ErrForbidden, err, "Only the CEO can use this command.")
	}
	if err := r.Defer(ctx); err != nil {
		return err
	}
	results := s.PostPanels(ctx)
	lines := make([]string, 0, len(results))
	for _, res := range results {
		lines = append(lines, res.Line())
	}
	return r.Reply(ctx, strings.Join(lines, "\n"))
}

// SetupPanelHere posts a single panel into the channel the command ran in.
func (s *WorkflowService) SetupPanelHere(ctx context.Context, kind report.Kind, in models.Interaction, r Responder) error {
	if err := s.policy.Guard(ScopeAdmin, PolicySetup, in.Actor); err != nil {
		return appErrors.CloneWrap(appErrors.ErrForbidden, err, "Only the CEO can use this command.")
	}
	res := s.PostPanel(ctx, kind, in.ChannelID)
	return r.Reply(ctx, res.Line())
}

// Diagnostics reports the caller's workflow roles and their access to the
// reporting channels.
func (s *WorkflowService) Diagnostics(ctx context.Context, in models.Interaction, r Responder) error {
	if !in.Actor.InGuild {
		return appErrors.Clone(appErrors.ErrValidation, "This command can only be used inside a server.")
	}
	if err := r.Defer(ctx); err != nil {
		return err
	}

	roles := []struct {
		label string
		id    uint64
	}{
		{"Operator", s.cfg.Roles.Operator},
		{"Editor", s.cfg.Roles.Editor},
		{"CEO", s.cfg.Roles.CEO},
	}
	roleLines := []string{"**Roles**"}
	for _, role := range roles {
		icon := "❌"
		if HasAnyRole(in.Actor, []uint64{role.id}) {
			icon = "✅"
		}
		roleLines = append(roleLines, fmt.Sprintf("%s %s: %s", icon, role.label, models.RoleMention(role.id)))
	}

	channels := []struct {
		label string
		id    uint64
	}{
		{"Shooting report channel", s.cfg.Channels.ShootingReport},
		{"Editing report channel", s.cfg.Channels.EditingReport},
	}
	channelLines := []string{"**Reporting channels**"}
	for _, ch := range channels {
		channelLines = append(channelLines, s.describeChannelAccess(ctx, ch.label, ch.id, in.Actor.ID))
	}

	return r.Reply(ctx, strings.Join(roleLines, "\n")+"\n\n"+strings.Join(channelLines, "\n"))
}

func (s *WorkflowService) describeChannelAccess(ctx context.Context, label string, channelID, userID uint64) string {
	access, err := s.gateway.ChannelAccess(ctx, channelID, userID)
	if err != nil || !access.Found {
		if err != nil {
			s.logger.Warn("failed to resolve channel for diagnostics", zap.Uint64("channel_id", channelID), zap.Error(err))
		}
		return fmt.Sprintf("❌ %s: could not fetch the channel (ID: %d).", label, channelID)
	}
	if !access.IsText {
		return fmt.Sprintf("❌ %s: channel (ID: %d) is not a text channel.", label, channelID)
	}
	if access.CanView && access.CanSend {
		return fmt.Sprintf("✅ %s: %s is available, you can send messages.", label, models.ChannelMention(channelID))
	}
	var reasons []string
	if !access.CanView {
		reasons = append(reasons, "no view permission")
	}
	if !access.CanSend {
		reasons = append(reasons, "no send permission")
	}
	where := fmt.Sprintf("%d", channelID)
	if access.CanView {
		where = models.ChannelMention(channelID)
	}
	return fmt.Sprintf("❌ %s: %s, %s.", label, where, strings.Join(reasons, ", "))
}
