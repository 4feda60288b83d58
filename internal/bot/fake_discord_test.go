package bot

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
)

type fakeDiscord struct {
	mu         sync.Mutex
	nextID     int
	messages   map[string]*discordgo.Message
	channels   map[string]*discordgo.Channel
	sent       []*discordgo.MessageSend
	edits      []*discordgo.MessageEdit
	dms        map[string][]string
	perms      int64
	sendErr    error
	channelErr error
	responses  []*discordgo.InteractionResponse
	followups  []*discordgo.WebhookParams
	overwrites map[string][]*discordgo.ApplicationCommand
}

func newFakeDiscord() *fakeDiscord {
	return &fakeDiscord{
		nextID:     5000,
		messages:   make(map[string]*discordgo.Message),
		channels:   map[string]*discordgo.Channel{"11": {ID: "11", GuildID: "900", Name: "shooting-review", Type: discordgo.ChannelTypeGuildText}},
		dms:        make(map[string][]string),
		overwrites: make(map[string][]*discordgo.ApplicationCommand),
	}
}

func restError(status, code int) error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status, Status: http.StatusText(status)},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: "error"},
	}
}

func (f *fakeDiscord) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.nextID++
	msg := &discordgo.Message{
		ID:         fmt.Sprintf("%d", f.nextID),
		ChannelID:  channelID,
		Content:    data.Content,
		Embeds:     data.Embeds,
		Components: data.Components,
	}
	f.sent = append(f.sent, data)
	f.messages[channelID+"/"+msg.ID] = msg
	return msg, nil
}

func (f *fakeDiscord) ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[m.Channel+"/"+m.ID]
	if !ok {
		return nil, restError(http.StatusNotFound, discordgo.ErrCodeUnknownMessage)
	}
	if m.Embeds != nil {
		msg.Embeds = *m.Embeds
	}
	if m.Components != nil {
		msg.Components = *m.Components
	}
	f.edits = append(f.edits, m)
	return msg, nil
}

func (f *fakeDiscord) ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[channelID+"/"+messageID]
	if !ok {
		return nil, restError(http.StatusNotFound, discordgo.ErrCodeUnknownMessage)
	}
	return msg, nil
}

func (f *fakeDiscord) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms[channelID] = append(f.dms[channelID], content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func (f *fakeDiscord) UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: "dm-" + recipientID, Type: discordgo.ChannelTypeDM}, nil
}

func (f *fakeDiscord) Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.channelErr != nil {
		return nil, f.channelErr
	}
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, restError(http.StatusNotFound, discordgo.ErrCodeUnknownChannel)
	}
	return ch, nil
}

func (f *fakeDiscord) UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error) {
	return f.perms, nil
}

func (f *fakeDiscord) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeDiscord) FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followups = append(f.followups, data)
	return &discordgo.Message{Content: data.Content}, nil
}

func (f *fakeDiscord) ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overwrites[guildID] = commands
	return commands, nil
}
