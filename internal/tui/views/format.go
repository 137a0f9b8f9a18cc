package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"

	"github.com/kingchat/kingchat/internal/chat"
	"github.com/kingchat/kingchat/internal/tui/ui"
)

// text prepares user content for a dynamic-color view.
func text(s string) string {
	return tview.Escape(sanitize(s))
}

// stamp formats t relative to now: clock time today, otherwise the date.
func stamp(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.Local()
	now = now.Local()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	if t.Year() == now.Year() {
		return t.Format("02/01")
	}
	return t.Format("02/01/06")
}

func typeLabel(t chat.ChatType) string {
	switch t {
	case chat.Group:
		return "GROUP"
	case chat.Channel:
		return "CHANNEL"
	case chat.Bot:
		return "BOT"
	default:
		return "DM"
	}
}

// statusMarker is the suffix shown after a message body.
func statusMarker(m chat.Message, theme *ui.Theme) string {
	switch m.Status {
	case chat.Pending:
		return " [" + ui.Tag(theme.PendingColor) + "]sending...[-]"
	case chat.Failed:
		return " [" + ui.Tag(theme.FailedColor) + "]failed: r retry, x discard[-]"
	case chat.Edited:
		return " [" + ui.Tag(theme.MutedColor) + "](edited)[-]"
	default:
		return ""
	}
}

// reactionLine summarises the reactions of m, such as "👍 2  🎉 1".
func reactionLine(m chat.Message, theme *ui.Theme) string {
	var parts []string
	for _, r := range m.Reactions {
		if r.Count() > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", text(r.Emoji), r.Count()))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "\n[" + ui.Tag(theme.MutedColor) + "]" + strings.Join(parts, "  ") + "[-]"
}
