package bot

import (
	"context"
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/sardorbek21324/Kairos-team/internal/models"
)

type interactionAPI interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var errAlreadyAcknowledged = errors.New("bot: interaction already acknowledged")

// responder answers one interaction. Discord accepts exactly one initial
// response; everything after it goes out as an ephemeral follow-up.
type responder struct {
	api         interactionAPI
	interaction *discordgo.Interaction

	mu    sync.Mutex
	acked bool
}

func newResponder(api interactionAPI, interaction *discordgo.Interaction) *responder {
	return &responder{api: api, interaction: interaction}
}

func (r *responder) Reply(ctx context.Context, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.acked {
		_, err := r.api.FollowupMessageCreate(r.interaction, true, &discordgo.WebhookParams{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		}, discordgo.WithContext(ctx))
		return err
	}
	err := r.api.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
	if err == nil {
		r.acked = true
	}
	return err
}

func (r *responder) OpenForm(ctx context.Context, form models.Form) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.acked {
		return errAlreadyAcknowledged
	}
	if err := r.api.InteractionRespond(r.interaction, formToModal(form), discordgo.WithContext(ctx)); err != nil {
		return err
	}
	r.acked = true
	return nil
}

func (r *responder) Defer(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.acked {
		return nil
	}
	err := r.api.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}, discordgo.WithContext(ctx))
	if err == nil {
		r.acked = true
	}
	return err
}
