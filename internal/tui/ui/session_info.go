package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// SessionData is the header summary of the running client.
type SessionData struct {
	Session string
	User    string
	Backend string
	Status  string
	Chats   int
	Unread  int
}

// SessionInfo renders SessionData in the header.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates an empty panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)
	return &SessionInfo{TextView: tv, theme: theme}
}

// Update redraws the panel.
func (si *SessionInfo) Update(d SessionData) {
	si.Clear()
	fg, val := Tag(si.theme.FgColor), Tag(si.theme.CounterColor)
	user := d.User
	if user == "" {
		user = "-"
	}
	rows := [][2]string{
		{"Session:", d.Session},
		{"User:", user},
		{"Backend:", d.Backend},
		{"Status:", d.Status},
		{"Chats:", fmt.Sprint(d.Chats)},
		{"Unread:", fmt.Sprint(d.Unread)},
	}
	for i, r := range rows {
		if i > 0 {
			_, _ = fmt.Fprint(si, "\n")
		}
		_, _ = fmt.Fprintf(si, "[%s::b]%-9s[-:-:-][%s]%s[-]", fg, r[0], val, tview.Escape(r[1]))
	}
}
