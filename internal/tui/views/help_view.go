package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/kingchat/kingchat/internal/tui/ui"
)

// HelpView lists every keybinding and command.
type HelpView struct {
	*tview.TextView
}

type helpSection struct {
	title string
	rows  [][2]string
}

var helpSections = []helpSection{
	{"Global", [][2]string{
		{":", "Command mode"},
		{"?", "This help"},
		{"Esc", "Back"},
		{"Ctrl-C", "Quit"},
	}},
	{"Conversations", [][2]string{
		{"Enter", "Open conversation"},
		{"1-9", "Open the n-th listed conversation"},
		{"Tab / Shift-Tab", "Next / previous folder"},
		{"/", "Search names and previews"},
		{"d", "Conversation details"},
		{"p", "Privacy defaults"},
		{"q", "Quit"},
	}},
	{"Thread", [][2]string{
		{"i", "Write a message"},
		{"j / k", "Move the message cursor"},
		{"e", "Edit your message"},
		{"D", "Delete your message"},
		{"f", "Forward the message"},
		{"r", "Retry a failed message"},
		{"x", "Discard a failed message"},
		{"+", "React to the message"},
		{"o", "Load older messages"},
		{"p", "Privacy for this contact"},
		{"d", "Conversation details"},
	}},
	{"Forward", [][2]string{
		{"Space", "Pick or unpick a target"},
		{"c", "Edit the caption"},
		{"Enter", "Send to the picked targets"},
	}},
	{"Results", [][2]string{
		{"Enter", "Open the conversation of the message"},
	}},
	{"Commands", [][2]string{
		{":folder <all|unread|channels|bots|groups>", "Switch folder"},
		{":chat <name>", "Open the first conversation matching name"},
		{":search <text>", "Filter the sidebar"},
		{":find <text>", "Search message text"},
		{":new [group|channel|dm] [+public] <name> @id...", "Create a conversation"},
		{":join <conversation-id>", "Join a public conversation"},
		{":leave", "Leave the conversation"},
		{":delete-chat", "Delete a conversation you own"},
		{":react / :unreact <emoji>", "Toggle or remove a reaction"},
		{":privacy [contact-id]", "Privacy settings"},
		{":reload", "Reload conversations"},
		{":logout", "Forget the session"},
		{":quit", "Quit"},
	}},
}

// NewHelpView renders the help text with theme colors.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	kc := ui.Tag(theme.MenuKeyColor)
	var b strings.Builder
	for _, s := range helpSections {
		fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, r := range s.rows {
			fmt.Fprintf(&b, "  [%s]%-50s[-] %s\n", kc, tview.Escape(r[0]), r[1])
		}
	}
	_, _ = fmt.Fprint(tv, b.String())
	return &HelpView{TextView: tv}
}

// Name implements ui.Component.
func (hv *HelpView) Name() string { return "Help" }

// Hints implements ui.Component.
func (hv *HelpView) Hints() []ui.MenuHint { return nil }
