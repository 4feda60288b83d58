package models

import (
	"fmt"
	"strings"

	"github.com/sardorbek21324/Kairos-team/internal/report"
)

// Actor is the user behind an interaction, as resolved by the chat binding.
type Actor struct {
	ID          uint64
	DisplayName string
	RoleIDs     []uint64

	// InGuild is false for interactions from direct messages, where role
	// membership cannot be resolved.
	InGuild bool
}

// Identity converts the actor into the identity stored on records.
func (a Actor) Identity() report.Identity {
	return report.Identity{ID: a.ID, DisplayName: a.DisplayName}
}

// Mention renders the actor as a user mention.
func (a Actor) Mention() string {
	return fmt.Sprintf("<@%d>", a.ID)
}

// RoleMention renders a role mention.
func RoleMention(roleID uint64) string {
	return fmt.Sprintf("<@&%d>", roleID)
}

// ChannelMention renders a channel mention.
func ChannelMention(channelID uint64) string {
	return fmt.Sprintf("<#%d>", channelID)
}

// MessageRef locates a posted message.
type MessageRef struct {
	GuildID   uint64
	ChannelID uint64
	MessageID uint64
}

// ControlStyle is the visual weight of a control.
type ControlStyle int

const (
	ControlPrimary ControlStyle = iota + 1
	ControlSecondary
	ControlSuccess
	ControlDanger
)

// Control is one clickable element attached to a message. ID is the stable
// custom identifier the registry dispatches on.
type Control struct {
	ID       string
	Label    string
	Style    ControlStyle
	Disabled bool
}

// DisableAll returns a copy of controls with every control disabled.
func DisableAll(controls []Control) []Control {
	out := make([]Control, len(controls))
	for i, c := range controls {
		c.Disabled = true
		out[i] = c
	}
	return out
}

// AnyActive reports whether at least one control still accepts input.
func AnyActive(controls []Control) bool {
	for _, c := range controls {
		if !c.Disabled {
			return true
		}
	}
	return false
}

// OutboundMessage is a message the workflow wants posted or edited.
type OutboundMessage struct {
	Content      string
	MentionRoles []uint64
	Document     *report.Document
	Controls     []Control
}

// PostedMessage is a message as currently visible on the platform.
type PostedMessage struct {
	Ref      MessageRef
	JumpURL  string
	Document *report.Document
	Controls []Control
}

// Interaction is one user action delivered by the binding. Source is the
// message the control was attached to, if any.
type Interaction struct {
	ID        string
	CustomID  string
	Actor     Actor
	ChannelID uint64
	GuildID   uint64
	Source    *PostedMessage
	Values    map[string]string
}

// Value returns a trimmed form value.
func (i Interaction) Value(key string) string {
	if i.Values == nil {
		return ""
	}
	return strings.TrimSpace(i.Values[key])
}

// FormField is one text input of a form.
type FormField struct {
	ID          string
	Label       string
	Placeholder string
	Required    bool
	Long        bool
	MaxLength   int
}

// Form is a modal dialog opened in response to a control.
type Form struct {
	ID     string
	Title  string
	Fields []FormField
}

// ChannelAccess describes what a user can do in a channel.
type ChannelAccess struct {
	ChannelID uint64
	Name      string
	Found     bool
	IsText    bool
	CanView   bool
	CanSend   bool
}
