package bot

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sardorbek21324/Kairos-team/internal/models"
	"github.com/sardorbek21324/Kairos-team/internal/report"
)

// Embeds have no typed metadata slot, so the author travels in the footer
// text and AuthorID is recovered from it on the way back.
func documentToEmbed(doc report.Document) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       doc.Title,
		Description: doc.Description,
		Color:       doc.Color,
	}
	for _, f := range doc.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value})
	}
	if doc.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: doc.Footer}
	}
	if !doc.Timestamp.IsZero() {
		embed.Timestamp = doc.Timestamp.UTC().Format(time.RFC3339)
	}
	return embed
}

func embedToDocument(embed *discordgo.MessageEmbed) report.Document {
	doc := report.Document{
		Title:       embed.Title,
		Description: embed.Description,
		Color:       embed.Color,
	}
	for _, f := range embed.Fields {
		if f == nil {
			continue
		}
		doc.Fields = append(doc.Fields, report.Field{Name: f.Name, Value: f.Value})
	}
	if embed.Footer != nil {
		doc.Footer = embed.Footer.Text
	}
	if embed.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, embed.Timestamp); err == nil {
			doc.Timestamp = ts.UTC()
		}
	}
	doc.AuthorID, _ = report.ParseAuthorIdentity(doc)
	return doc
}

var buttonStyles = map[models.ControlStyle]discordgo.ButtonStyle{
	models.ControlPrimary:   discordgo.PrimaryButton,
	models.ControlSecondary: discordgo.SecondaryButton,
	models.ControlSuccess:   discordgo.SuccessButton,
	models.ControlDanger:    discordgo.DangerButton,
}

func controlsToComponents(controls []models.Control) []discordgo.MessageComponent {
	if len(controls) == 0 {
		return []discordgo.MessageComponent{}
	}
	buttons := make([]discordgo.MessageComponent, 0, len(controls))
	for _, c := range controls {
		style, ok := buttonStyles[c.Style]
		if !ok {
			style = discordgo.SecondaryButton
		}
		buttons = append(buttons, discordgo.Button{
			CustomID: c.ID,
			Label:    c.Label,
			Style:    style,
			Disabled: c.Disabled,
		})
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}}
}

func componentsToControls(components []discordgo.MessageComponent) []models.Control {
	var controls []models.Control
	for _, row := range components {
		var inner []discordgo.MessageComponent
		switch r := row.(type) {
		case *discordgo.ActionsRow:
			inner = r.Components
		case discordgo.ActionsRow:
			inner = r.Components
		default:
			continue
		}
		for _, component := range inner {
			var button discordgo.Button
			switch b := component.(type) {
			case *discordgo.Button:
				button = *b
			case discordgo.Button:
				button = b
			default:
				continue
			}
			if button.CustomID == "" {
				continue
			}
			controls = append(controls, models.Control{
				ID:       button.CustomID,
				Label:    button.Label,
				Style:    controlStyle(button.Style),
				Disabled: button.Disabled,
			})
		}
	}
	return controls
}

func controlStyle(style discordgo.ButtonStyle) models.ControlStyle {
	for k, v := range buttonStyles {
		if v == style {
			return k
		}
	}
	return models.ControlSecondary
}

func formToModal(form models.Form) *discordgo.InteractionResponse {
	rows := make([]discordgo.MessageComponent, 0, len(form.Fields))
	for _, f := range form.Fields {
		style := discordgo.TextInputShort
		if f.Long {
			style = discordgo.TextInputParagraph
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    f.ID,
				Label:       f.Label,
				Style:       style,
				Placeholder: f.Placeholder,
				Required:    f.Required,
				MaxLength:   f.MaxLength,
			},
		}})
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   form.ID,
			Title:      form.Title,
			Components: rows,
		},
	}
}

func modalValues(components []discordgo.MessageComponent) map[string]string {
	values := make(map[string]string)
	for _, row := range components {
		var inner []discordgo.MessageComponent
		switch r := row.(type) {
		case *discordgo.ActionsRow:
			inner = r.Components
		case discordgo.ActionsRow:
			inner = r.Components
		}
		for _, component := range inner {
			switch input := component.(type) {
			case *discordgo.TextInput:
				values[input.CustomID] = input.Value
			case discordgo.TextInput:
				values[input.CustomID] = input.Value
			}
		}
	}
	return values
}

// postedFromMessage rebuilds what the workflow knows about a platform
// message. guildID fills in for REST responses that omit it.
func postedFromMessage(msg *discordgo.Message, guildID uint64) *models.PostedMessage {
	if msg == nil {
		return nil
	}
	if id := parseID(msg.GuildID); id != 0 {
		guildID = id
	}
	ref := models.MessageRef{
		GuildID:   guildID,
		ChannelID: parseID(msg.ChannelID),
		MessageID: parseID(msg.ID),
	}
	posted := &models.PostedMessage{
		Ref:      ref,
		JumpURL:  jumpURL(ref),
		Controls: componentsToControls(msg.Components),
	}
	if len(msg.Embeds) > 0 && msg.Embeds[0] != nil {
		doc := embedToDocument(msg.Embeds[0])
		posted.Document = &doc
	}
	return posted
}

func jumpURL(ref models.MessageRef) string {
	guild := "@me"
	if ref.GuildID != 0 {
		guild = formatID(ref.GuildID)
	}
	return fmt.Sprintf("https://discord.com/channels/%s/%d/%d", guild, ref.ChannelID, ref.MessageID)
}

// actorFromInteraction resolves who acted. Member is only present for
// interactions inside a guild.
func actorFromInteraction(i *discordgo.Interaction) models.Actor {
	if i.Member != nil && i.Member.User != nil {
		roles := make([]uint64, 0, len(i.Member.Roles))
		for _, raw := range i.Member.Roles {
			if id := parseID(raw); id != 0 {
				roles = append(roles, id)
			}
		}
		name := i.Member.Nick
		if name == "" {
			name = userDisplayName(i.Member.User)
		}
		return models.Actor{
			ID:          parseID(i.Member.User.ID),
			DisplayName: name,
			RoleIDs:     roles,
			InGuild:     i.GuildID != "",
		}
	}
	if i.User != nil {
		return models.Actor{ID: parseID(i.User.ID), DisplayName: userDisplayName(i.User)}
	}
	return models.Actor{}
}

func userDisplayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func parseID(raw string) uint64 {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
