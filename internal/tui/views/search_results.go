package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/kingchat/kingchat/internal/chat"
	"github.com/kingchat/kingchat/internal/tui/ui"
)

// SearchResults lists the messages matching a text search, newest first.
type SearchResults struct {
	*tview.Table
	theme *ui.Theme
	now   func() time.Time

	found []chat.Message
}

// NewSearchResults creates an empty result list.
func NewSearchResults(theme *ui.Theme) *SearchResults {
	table := tview.NewTable().SetSelectable(true, false)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)
	return &SearchResults{Table: table, theme: theme, now: time.Now}
}

// Name implements ui.Component.
func (sr *SearchResults) Name() string { return "Results" }

// Hints implements ui.Component.
func (sr *SearchResults) Hints() []ui.MenuHint { return nil }

// Update shows found for query. convs names the conversations.
func (sr *SearchResults) Update(query string, found []chat.Message, convs []chat.Conversation) {
	names := make(map[string]string, len(convs))
	for _, c := range convs {
		names[c.ID] = c.Name
	}
	sr.found = found
	sr.Clear()
	now := sr.now()
	for i, m := range found {
		where := names[m.ConversationID]
		if where == "" {
			where = m.ConversationID
		}
		sender := m.SenderName
		if m.IsOwn {
			sender = "You"
		}
		sr.SetCell(i, 0, tview.NewTableCell(" "+text(where)).SetTextColor(sr.theme.FgColor))
		sr.SetCell(i, 1, tview.NewTableCell(text(sender)).SetTextColor(sr.theme.OwnColor))
		sr.SetCell(i, 2, tview.NewTableCell(text(chat.Preview(m.Text, 80))).SetExpansion(1).SetTextColor(sr.theme.FgColor))
		sr.SetCell(i, 3, tview.NewTableCell(stamp(m.Timestamp, now)+" ").SetTextColor(sr.theme.MutedColor))
	}
	sr.SetTitle(fmt.Sprintf(" %d messages matching %q ", len(found), tview.Escape(query)))
	sr.Select(0, 0)
}

// Selected returns the message under the cursor.
func (sr *SearchResults) Selected() (chat.Message, bool) {
	row, _ := sr.GetSelection()
	if row < 0 || row >= len(sr.found) {
		return chat.Message{}, false
	}
	return sr.found[row], true
}
