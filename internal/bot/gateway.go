package bot

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/sardorbek21324/Kairos-team/internal/models"
	appErrors "github.com/sardorbek21324/Kairos-team/pkg/errors"
)

// restAPI is the slice of *discordgo.Session the gateway uses.
type restAPI interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
}

// Gateway implements service.ChatGateway on top of the Discord REST API.
type Gateway struct {
	api    restAPI
	mu     sync.RWMutex
	guilds map[uint64]uint64
}

// NewGateway wraps a Discord session.
func NewGateway(api restAPI) *Gateway {
	return &Gateway{api: api, guilds: make(map[uint64]uint64)}
}

// Post sends a new message to channelID.
func (g *Gateway) Post(ctx context.Context, channelID uint64, msg models.OutboundMessage) (*models.PostedMessage, error) {
	send := &discordgo.MessageSend{
		Content:         msg.Content,
		Components:      controlsToComponents(msg.Controls),
		AllowedMentions: allowedMentions(msg.MentionRoles),
	}
	if msg.Document != nil {
		send.Embeds = []*discordgo.MessageEmbed{documentToEmbed(*msg.Document)}
	}
	sent, err := g.api.ChannelMessageSendComplex(formatID(channelID), send, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapRESTError(err, "channel not found")
	}
	return postedFromMessage(sent, g.guildOf(ctx, channelID)), nil
}

// Edit replaces the document and controls of an existing message. The
// content line is left as posted.
func (g *Gateway) Edit(ctx context.Context, ref models.MessageRef, msg models.OutboundMessage) (*models.PostedMessage, error) {
	edit := discordgo.NewMessageEdit(formatID(ref.ChannelID), formatID(ref.MessageID))
	if msg.Document != nil {
		edit.SetEmbeds([]*discordgo.MessageEmbed{documentToEmbed(*msg.Document)})
	}
	components := controlsToComponents(msg.Controls)
	edit.Components = &components

	edited, err := g.api.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapRESTError(err, "message not found")
	}
	return postedFromMessage(edited, ref.GuildID), nil
}

// Fetch reads the current state of a message.
func (g *Gateway) Fetch(ctx context.Context, ref models.MessageRef) (*models.PostedMessage, error) {
	msg, err := g.api.ChannelMessage(formatID(ref.ChannelID), formatID(ref.MessageID), discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapRESTError(err, "message not found")
	}
	return postedFromMessage(msg, ref.GuildID), nil
}

// DirectMessage opens a DM channel with userID and sends content.
func (g *Gateway) DirectMessage(ctx context.Context, userID uint64, content string) error {
	channel, err := g.api.UserChannelCreate(formatID(userID), discordgo.WithContext(ctx))
	if err != nil {
		return mapRESTError(err, "user not found")
	}
	if _, err := g.api.ChannelMessageSend(channel.ID, content, discordgo.WithContext(ctx)); err != nil {
		return mapRESTError(err, "direct message channel not found")
	}
	return nil
}

// ChannelAccess resolves channelID and the permissions userID holds there.
// An unknown channel is reported as Found=false rather than an error.
func (g *Gateway) ChannelAccess(ctx context.Context, channelID, userID uint64) (models.ChannelAccess, error) {
	access := models.ChannelAccess{ChannelID: channelID}
	channel, err := g.api.Channel(formatID(channelID), discordgo.WithContext(ctx))
	if err != nil {
		mapped := mapRESTError(err, "channel not found")
		if appErrors.HasCode(mapped, appErrors.ErrNotFound) {
			return access, nil
		}
		return access, mapped
	}
	access.Found = true
	access.Name = channel.Name
	access.IsText = channel.Type == discordgo.ChannelTypeGuildText || channel.Type == discordgo.ChannelTypeGuildNews
	g.rememberGuild(channelID, channel.GuildID)

	perms, err := g.api.UserChannelPermissions(formatID(userID), channel.ID, discordgo.WithContext(ctx))
	if err != nil {
		return access, mapRESTError(err, "member not found")
	}
	access.CanView = perms&discordgo.PermissionViewChannel != 0
	access.CanSend = perms&discordgo.PermissionSendMessages != 0
	return access, nil
}

// guildOf returns the guild a channel belongs to, asking the API once per
// channel. Zero means unknown.
func (g *Gateway) guildOf(ctx context.Context, channelID uint64) uint64 {
	g.mu.RLock()
	guild, ok := g.guilds[channelID]
	g.mu.RUnlock()
	if ok {
		return guild
	}
	channel, err := g.api.Channel(formatID(channelID), discordgo.WithContext(ctx))
	if err != nil {
		return 0
	}
	return g.rememberGuild(channelID, channel.GuildID)
}

func (g *Gateway) rememberGuild(channelID uint64, rawGuild string) uint64 {
	guild := parseID(rawGuild)
	g.mu.Lock()
	g.guilds[channelID] = guild
	g.mu.Unlock()
	return guild
}

func allowedMentions(roles []uint64) *discordgo.MessageAllowedMentions {
	mentions := &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}}
	for _, id := range roles {
		if id != 0 {
			mentions.Roles = append(mentions.Roles, formatID(id))
		}
	}
	return mentions
}

// mapRESTError turns unknown or inaccessible resources into ErrNotFound so
// callers can tell resolution failures from transport failures.
func mapRESTError(err error, message string) error {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}
	if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return appErrors.CloneWrap(appErrors.ErrNotFound, err, message)
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownUser, discordgo.ErrCodeMissingAccess:
			return appErrors.CloneWrap(appErrors.ErrNotFound, err, message)
		}
	}
	return err
}
