package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/kingchat/kingchat/internal/status"
)

// StatusBar is the bottom line: session, lifecycle state, backend and clock.
type StatusBar struct {
	*tview.TextView
	session string
	state   status.State
	offline bool
	now     func() time.Time
}

// NewStatusBar creates a bar for session.
func NewStatusBar(session string, offline bool) *StatusBar {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)
	sb := &StatusBar{TextView: tv, session: session, offline: offline, state: status.Booting, now: time.Now}
	sb.render()
	return sb
}

// SetState updates the lifecycle state.
func (sb *StatusBar) SetState(s status.State) {
	sb.state = s
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()
	color := "yellow"
	switch sb.state {
	case status.Ready:
		color = "green"
	case status.Offline:
		color = "aqua"
	case status.Error, status.AuthRequired:
		color = "red"
	}
	backend := "api"
	if sb.offline {
		backend = "local"
	}
	_, _ = fmt.Fprintf(sb, " [::b]%s[-:-:-] | [%s]%s[-] | %s | %s",
		tview.Escape(sb.session), color, sb.state, backend, sb.now().Format("15:04"))
}
