package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sardorbek21324/Kairos-team/internal/models"
	"github.com/sardorbek21324/Kairos-team/internal/report"
	"github.com/sardorbek21324/Kairos-team/internal/service"
	appErrors "github.com/sardorbek21324/Kairos-team/pkg/errors"
)

type workflowCall struct {
	op     string
	kind   report.Kind
	status report.Status
	in     models.Interaction
}

type workflowStub struct {
	calls      []workflowCall
	err        error
	panic      bool
	deferFirst bool
}

func (w *workflowStub) record(ctx context.Context, op string, kind report.Kind, status report.Status, in models.Interaction, r service.Responder) error {
	w.calls = append(w.calls, workflowCall{op: op, kind: kind, status: status, in: in})
	if w.panic {
		panic("boom")
	}
	if w.deferFirst {
		if err := r.Defer(ctx); err != nil {
			return err
		}
	}
	return w.err
}

func (w *workflowStub) OpenSubmissionForm(ctx context.Context, kind report.Kind, in models.Interaction, r service.Responder) error {
	return w.record(ctx, "open_form", kind, "", in, r)
}

func (w *workflowStub) Submit(ctx context.Context, kind report.Kind, in models.Interaction, r service.Responder) error {
	return w.record(ctx, "submit", kind, "", in, r)
}

func (w *workflowStub) RequestDecision(ctx context.Context, kind report.Kind, status report.Status, in models.Interaction, r service.Responder) error {
	return w.record(ctx, "request_decision", kind, status, in, r)
}

func (w *workflowStub) Decide(ctx context.Context, kind report.Kind, status report.Status, in models.Interaction, r service.Responder) error {
	return w.record(ctx, "decide", kind, status, in, r)
}

func (w *workflowStub) OpenFinishForm(ctx context.Context, in models.Interaction, r service.Responder) error {
	return w.record(ctx, "open_finish", "", "", in, r)
}

func (w *workflowStub) FinishEditing(ctx context.Context, in models.Interaction, r service.Responder) error {
	return w.record(ctx, "finish", "", "", in, r)
}

func (w *workflowStub) ConfirmPublish(ctx context.Context, in models.Interaction, r service.Responder) error {
	return w.record(ctx, "publish", "", "", in, r)
}

func (w *workflowStub) SetupPanels(ctx context.Context, in models.Interaction, r service.Responder) error {
	return w.record(ctx, "setup_panels", "", "", in, r)
}

func (w *workflowStub) SetupPanelHere(ctx context.Context, kind report.Kind, in models.Interaction, r service.Responder) error {
	return w.record(ctx, "setup_here", kind, "", in, r)
}

func (w *workflowStub) Diagnostics(ctx context.Context, in models.Interaction, r service.Responder) error {
	return w.record(ctx, "diagnostics", "", "", in, r)
}

func newTestRouter(w *workflowStub) *Router {
	return NewRouter(w, service.NewMetricsService(), nil, time.Second)
}

func guildMember() *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: "222", Username: "editor"}, Roles: []string{"1"}}
}

func componentInteraction(customID string) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:        "int-1",
		Type:      discordgo.InteractionMessageComponent,
		GuildID:   "900",
		ChannelID: "11",
		Member:    guildMember(),
		Data:      discordgo.MessageComponentInteractionData{CustomID: customID},
		Message: &discordgo.Message{
			ID:        "1001",
			ChannelID: "11",
			Embeds:    []*discordgo.MessageEmbed{documentToEmbed(pendingShootingDocument())},
		},
	}
}

func lastContent(api *fakeDiscord) string {
	if n := len(api.followups); n > 0 {
		return api.followups[n-1].Content
	}
	if n := len(api.responses); n > 0 && api.responses[n-1].Data != nil {
		return api.responses[n-1].Data.Content
	}
	return ""
}

func TestRouterDecisionButton(t *testing.T) {
	w := &workflowStub{}
	api := newFakeDiscord()

	newTestRouter(w).Dispatch(context.Background(), api, componentInteraction(service.ControlShootingMixed))

	require.Len(t, w.calls, 1)
	call := w.calls[0]
	assert.Equal(t, "request_decision", call.op)
	assert.Equal(t, report.KindShooting, call.kind)
	assert.Equal(t, report.StatusMixed, call.status)
	assert.Equal(t, uint64(222), call.in.Actor.ID)
	assert.True(t, call.in.Actor.InGuild)
	require.NotNil(t, call.in.Source)
	assert.Equal(t, models.MessageRef{GuildID: 900, ChannelID: 11, MessageID: 1001}, call.in.Source.Ref)
	assert.Equal(t, uint64(111222333), call.in.Source.Document.AuthorID)
}

func TestRouterDecisionCommentModal(t *testing.T) {
	w := &workflowStub{}
	api := newFakeDiscord()
	i := componentInteraction("")
	i.Type = discordgo.InteractionModalSubmit
	i.Data = discordgo.ModalSubmitInteractionData{
		CustomID: service.DecisionCommentFormID(report.KindEditing, report.StatusRejected),
		Components: []discordgo.MessageComponent{
			&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				&discordgo.TextInput{CustomID: service.InputDecisionComment, Value: " redo the intro "},
			}},
		},
	}

	newTestRouter(w).Dispatch(context.Background(), api, i)

	require.Len(t, w.calls, 1)
	assert.Equal(t, "decide", w.calls[0].op)
	assert.Equal(t, report.KindEditing, w.calls[0].kind)
	assert.Equal(t, report.StatusRejected, w.calls[0].status)
	assert.Equal(t, "redo the intro", w.calls[0].in.Value(service.InputDecisionComment))
}

func TestRouterRejectsForgedDecisionForm(t *testing.T) {
	w := &workflowStub{}
	api := newFakeDiscord()
	i := componentInteraction("")
	i.Type = discordgo.InteractionModalSubmit
	i.Data = discordgo.ModalSubmitInteractionData{CustomID: "decision_comment:editing:mixed"}

	newTestRouter(w).Dispatch(context.Background(), api, i)

	assert.Empty(t, w.calls)
	assert.Equal(t, unknownControlReason, lastContent(api))
}

func TestRouterCommands(t *testing.T) {
	cases := []struct {
		name string
		op   string
		kind report.Kind
	}{
		{CommandSetupPanels, "setup_panels", ""},
		{CommandSetupShootingPanel, "setup_here", report.KindShooting},
		{CommandSetupEditingPanel, "setup_here", report.KindEditing},
		{CommandDiagnostics, "diagnostics", ""},
	}
	for _, tc := range cases {
		w := &workflowStub{}
		newTestRouter(w).Dispatch(context.Background(), newFakeDiscord(), &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   "900",
			ChannelID: "77",
			Member:    guildMember(),
			Data:      discordgo.ApplicationCommandInteractionData{Name: tc.name},
		})
		require.Len(t, w.calls, 1, tc.name)
		assert.Equal(t, tc.op, w.calls[0].op)
		assert.Equal(t, tc.kind, w.calls[0].kind)
		assert.Equal(t, uint64(77), w.calls[0].in.ChannelID)
	}
}

func TestRouterErrorReplies(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		deferFirst bool
		want       string
	}{
		{"forbidden", appErrors.Clone(appErrors.ErrForbidden, ""), false, appErrors.ErrForbidden.Message},
		{"validation", appErrors.Clone(appErrors.ErrValidation, "The number of videos must be a positive integer."), false, "The number of videos must be a positive integer."},
		{"conflict after defer", appErrors.Clone(appErrors.ErrConflict, "This report has already been decided."), true, "This report has already been decided."},
		{"resolution", appErrors.Clone(appErrors.ErrNotFound, "The review channel was not found. Contact an administrator."), false, "The review channel was not found. Contact an administrator."},
		{"internal", errors.New("database exploded"), true, genericErrorMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := &workflowStub{err: tc.err, deferFirst: tc.deferFirst}
			api := newFakeDiscord()

			newTestRouter(w).Dispatch(context.Background(), api, componentInteraction(service.ControlPublishConfirm))

			assert.Equal(t, tc.want, lastContent(api))
			if tc.deferFirst {
				require.Len(t, api.responses, 1)
				assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, api.responses[0].Type)
				require.Len(t, api.followups, 1)
				assert.Equal(t, discordgo.MessageFlagsEphemeral, api.followups[0].Flags)
			} else {
				require.Len(t, api.responses, 1)
				assert.Equal(t, discordgo.MessageFlagsEphemeral, api.responses[0].Data.Flags)
			}
		})
	}
}

func TestRouterRecoversPanics(t *testing.T) {
	w := &workflowStub{panic: true}
	api := newFakeDiscord()

	assert.NotPanics(t, func() {
		newTestRouter(w).Dispatch(context.Background(), api, componentInteraction(service.ControlEditingFinish))
	})
	assert.Equal(t, genericErrorMessage, lastContent(api))
}

func TestRouterUnknownControl(t *testing.T) {
	w := &workflowStub{}
	api := newFakeDiscord()

	newTestRouter(w).Dispatch(context.Background(), api, componentInteraction("legacy_button"))

	assert.Empty(t, w.calls)
	assert.Equal(t, unknownControlReason, lastContent(api))
}

func TestResponderOpenFormMustComeFirst(t *testing.T) {
	api := newFakeDiscord()
	r := newResponder(api, &discordgo.Interaction{})

	require.NoError(t, r.OpenForm(context.Background(), service.ShootingForm()))
	assert.ErrorIs(t, r.OpenForm(context.Background(), service.ShootingForm()), errAlreadyAcknowledged)
	require.NoError(t, r.Defer(context.Background()))
	assert.Len(t, api.responses, 1)
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()
	hit := ""
	reg.Handle("decision_comment:special", func(ctx context.Context, in models.Interaction, r service.Responder) error {
		hit = "exact"
		return nil
	})
	reg.HandlePrefix("decision_comment:", func(ctx context.Context, in models.Interaction, r service.Responder) error {
		hit = "prefix"
		return nil
	})

	h, ok := reg.Lookup("decision_comment:special")
	require.True(t, ok)
	require.NoError(t, h(context.Background(), models.Interaction{}, nil))
	assert.Equal(t, "exact", hit)

	h, ok = reg.Lookup("decision_comment:shooting:accepted")
	require.True(t, ok)
	require.NoError(t, h(context.Background(), models.Interaction{}, nil))
	assert.Equal(t, "prefix", hit)

	_, ok = reg.Lookup("other")
	assert.False(t, ok)
}

func TestSyncAndClearCommands(t *testing.T) {
	api := newFakeDiscord()

	require.NoError(t, SyncCommands(context.Background(), api, "app", []string{"900", "901"}, nil))
	assert.Len(t, api.overwrites["900"], 4)
	assert.Len(t, api.overwrites["901"], 4)
	for _, cmd := range api.overwrites["900"] {
		require.NotNil(t, cmd.DMPermission)
		assert.False(t, *cmd.DMPermission)
	}

	require.NoError(t, ClearCommands(context.Background(), api, "app", nil, nil))
	cleared, ok := api.overwrites[""]
	assert.True(t, ok)
	assert.Empty(t, cleared)

	assert.Error(t, SyncCommands(context.Background(), api, "", nil, nil))
}
