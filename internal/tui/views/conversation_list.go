package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/kingchat/kingchat/internal/chat"
	"github.com/kingchat/kingchat/internal/tui/ui"
)

// ConversationList is the sidebar: folder tabs above the filtered table.
type ConversationList struct {
	*tview.Flex
	theme *ui.Theme
	tabs  *tview.TextView
	table *tview.Table
	convs []chat.Conversation
	now   func() time.Time
}

// NewConversationList creates an empty sidebar.
func NewConversationList(theme *ui.Theme) *ConversationList {
	tabs := tview.NewTextView().SetDynamicColors(true)
	tabs.SetBackgroundColor(theme.BgColor)

	table := tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(tabs, 1, 0, false).
		AddItem(table, 0, 1, true)

	return &ConversationList{Flex: flex, theme: theme, tabs: tabs, table: table, now: time.Now}
}

// Name implements ui.Component.
func (cl *ConversationList) Name() string { return "Conversations" }

// Hints implements ui.Component.
func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{{Key: "1-9", Description: "Jump", Numeric: true}}
}

// Table returns the focusable table.
func (cl *ConversationList) Table() *tview.Table { return cl.table }

// Update redraws the sidebar. convs is already filtered by folder and search;
// active marks the open conversation.
func (cl *ConversationList) Update(convs []chat.Conversation, folder chat.Folder, counts map[chat.Folder]int, search, active string) {
	selected := cl.SelectedID()
	cl.convs = convs
	cl.renderTabs(folder, counts)

	cl.table.Clear()
	for col, h := range []struct {
		text string
		exp  int
	}{{" NAME", 2}, {" LAST MESSAGE", 3}, {" TIME", 0}, {" TYPE", 0}} {
		cl.table.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	now := cl.now()
	row := 1
	for i, c := range convs {
		name := text(c.Name)
		if c.Verified {
			name += " ✓"
		}
		if c.Muted {
			name += " ∅"
		}
		if c.UnreadCount > 0 {
			name = fmt.Sprintf("[%s::b](%d)[-:-:-] %s", ui.Tag(cl.theme.CounterColor), c.UnreadCount, name)
		}
		if c.ID == active {
			name = "> " + name
		}
		online := "  "
		if c.Online {
			online = "● "
		}
		fg := cl.theme.FgColor
		if c.Muted {
			fg = cl.theme.MutedColor
		}
		cl.table.SetCell(row, 0, tview.NewTableCell(fmt.Sprintf("%d %s%s", i+1, online, name)).SetExpansion(2).SetTextColor(fg))
		cl.table.SetCell(row, 1, tview.NewTableCell(" "+text(c.LastMessagePreview)).SetExpansion(3).SetTextColor(fg).SetMaxWidth(48))
		cl.table.SetCell(row, 2, tview.NewTableCell(stamp(c.LastMessageAt, now)).SetTextColor(fg).SetAlign(tview.AlignRight))
		cl.table.SetCell(row, 3, tview.NewTableCell(typeLabel(c.Type)).SetTextColor(fg).SetAlign(tview.AlignRight))
		if c.ID == selected {
			cl.table.Select(row, 0)
		}
		row++
	}

	title := fmt.Sprintf(" %s (%d) ", folder.Title(), len(convs))
	if search != "" {
		title = fmt.Sprintf(" %s (%d) search: %s ", folder.Title(), len(convs), tview.Escape(search))
	}
	cl.table.SetTitle(title)
	if r, _ := cl.table.GetSelection(); r < 1 || r > len(convs) {
		cl.table.Select(1, 0)
	}
}

func (cl *ConversationList) renderTabs(folder chat.Folder, counts map[chat.Folder]int) {
	cl.tabs.Clear()
	parts := make([]string, 0, len(chat.Folders))
	for _, f := range chat.Folders {
		label := fmt.Sprintf("%s %d", f.Title(), counts[f])
		if f == folder {
			parts = append(parts, fmt.Sprintf("[%s:%s:b] %s [-:-:-]", ui.Tag(cl.theme.CrumbActiveFg), ui.Tag(cl.theme.CrumbActiveBg), label))
			continue
		}
		parts = append(parts, fmt.Sprintf("[%s] %s [-]", ui.Tag(cl.theme.MutedColor), label))
	}
	_, _ = fmt.Fprint(cl.tabs, " "+strings.Join(parts, " "))
}

// SelectedID returns the id under the cursor, or empty.
func (cl *ConversationList) SelectedID() string {
	row, _ := cl.table.GetSelection()
	return cl.IDAt(row)
}

// IDAt returns the id of the n-th listed conversation, 1-based.
func (cl *ConversationList) IDAt(n int) string {
	if n < 1 || n > len(cl.convs) {
		return ""
	}
	return cl.convs[n-1].ID
}
