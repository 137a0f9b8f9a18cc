package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/kingchat/kingchat/internal/chat"
	"github.com/kingchat/kingchat/internal/tui/ui"
)

// ConversationInfo shows the details of one conversation.
type ConversationInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewConversationInfo creates an empty details view.
func NewConversationInfo(theme *ui.Theme) *ConversationInfo {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitleColor(theme.TitleColor)
	return &ConversationInfo{TextView: tv, theme: theme}
}

// Name implements ui.Component.
func (ci *ConversationInfo) Name() string { return "Details" }

// Hints implements ui.Component.
func (ci *ConversationInfo) Hints() []ui.MenuHint { return nil }

// Update renders c. messages is the number of loaded messages.
func (ci *ConversationInfo) Update(c chat.Conversation, messages int) {
	ci.Clear()
	fg, val := ui.Tag(ci.theme.FgColor), ui.Tag(ci.theme.CounterColor)

	last := "-"
	if !c.LastMessageAt.IsZero() {
		last = c.LastMessageAt.Local().Format(time.DateTime)
	}
	flags := ""
	for _, f := range []struct {
		on   bool
		name string
	}{{c.Online, "online"}, {c.Verified, "verified"}, {c.Muted, "muted"}, {c.Public, "public"}} {
		if f.on {
			if flags != "" {
				flags += ", "
			}
			flags += f.name
		}
	}
	if flags == "" {
		flags = "-"
	}

	role := c.Role
	if role == "" {
		role = "-"
	}
	rows := [][2]string{
		{"Name", text(c.Name)},
		{"ID", tview.Escape(c.ID)},
		{"Type", typeLabel(c.Type)},
		{"Flags", flags},
		{"Your role", tview.Escape(role)},
		{"About", text(c.Description)},
		{"Unread", fmt.Sprint(c.UnreadCount)},
		{"Loaded", fmt.Sprintf("%d messages", messages)},
		{"Last active", last},
		{"Last message", text(c.LastMessagePreview)},
	}
	_, _ = fmt.Fprint(ci, "\n")
	for _, r := range rows {
		_, _ = fmt.Fprintf(ci, " [%s::b]%-13s[-:-:-][%s]%s[-]\n", fg, r[0]+":", val, r[1])
	}
	ci.SetTitle(fmt.Sprintf(" %s ", text(c.Name)))
}
