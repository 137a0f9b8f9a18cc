package views

import (
	"fmt"
	"slices"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/kingchat/kingchat/internal/chat"
	"github.com/kingchat/kingchat/internal/tui/ui"
)

// ForwardPicker selects target conversations and an optional caption.
// Targets keep the order they were picked in.
type ForwardPicker struct {
	*tview.Flex
	theme   *ui.Theme
	preview *tview.TextView
	table   *tview.Table
	caption *tview.InputField

	message chat.Message
	convs   []chat.Conversation
	picked  []string
}

// NewForwardPicker creates an empty picker.
func NewForwardPicker(theme *ui.Theme) *ForwardPicker {
	preview := tview.NewTextView().SetDynamicColors(true).SetWordWrap(true)
	preview.SetBorder(true)
	preview.SetBorderColor(theme.BorderColor)
	preview.SetBackgroundColor(theme.BgColor)
	preview.SetTitle(" Forward ")
	preview.SetTitleColor(theme.TitleColor)

	table := tview.NewTable().SetSelectable(true, false)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	caption := tview.NewInputField().SetLabel(" caption: ").SetFieldWidth(0)
	caption.SetBorder(true)
	caption.SetBorderColor(theme.BorderColor)
	caption.SetBackgroundColor(theme.BgColor)
	caption.SetFieldBackgroundColor(theme.BgColor)
	caption.SetFieldTextColor(theme.FgColor)
	caption.SetLabelColor(theme.MenuKeyColor)

	return &ForwardPicker{
		Flex: tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(preview, 4, 0, false).
			AddItem(table, 0, 1, true).
			AddItem(caption, 3, 0, false),
		theme:   theme,
		preview: preview,
		table:   table,
		caption: caption,
	}
}

// Name implements ui.Component.
func (fp *ForwardPicker) Name() string { return "Forward" }

// Hints implements ui.Component.
func (fp *ForwardPicker) Hints() []ui.MenuHint { return nil }

// Table returns the target list.
func (fp *ForwardPicker) Table() *tview.Table { return fp.table }

// Caption returns the caption field.
func (fp *ForwardPicker) Caption() *tview.InputField { return fp.caption }

// Reset starts a new pick for m over convs.
func (fp *ForwardPicker) Reset(m chat.Message, convs []chat.Conversation) {
	fp.message = m
	fp.convs = convs
	fp.picked = nil
	fp.caption.SetText("")
	fp.preview.Clear()
	_, _ = fmt.Fprintf(fp.preview, " [::b]%s[-:-:-]\n %s", text(m.SenderName), text(chat.Preview(m.Text, 120)))
	fp.table.Select(0, 0)
	fp.render()
}

// Toggle picks or unpicks the conversation under the cursor.
func (fp *ForwardPicker) Toggle() {
	row, _ := fp.table.GetSelection()
	if row < 0 || row >= len(fp.convs) {
		return
	}
	id := fp.convs[row].ID
	if i := slices.Index(fp.picked, id); i >= 0 {
		fp.picked = slices.Delete(fp.picked, i, i+1)
	} else {
		fp.picked = append(fp.picked, id)
	}
	fp.render()
}

// MessageID returns the id of the message being forwarded.
func (fp *ForwardPicker) MessageID() string { return fp.message.ID }

// Targets returns the picked ids in pick order.
func (fp *ForwardPicker) Targets() []string { return slices.Clone(fp.picked) }

// CaptionText returns the caption.
func (fp *ForwardPicker) CaptionText() string { return fp.caption.GetText() }

func (fp *ForwardPicker) render() {
	row, _ := fp.table.GetSelection()
	fp.table.Clear()
	for i, c := range fp.convs {
		mark := "[ ]"
		if n := slices.Index(fp.picked, c.ID); n >= 0 {
			mark = fmt.Sprintf("[%d]", n+1)
		}
		fp.table.SetCell(i, 0, tview.NewTableCell(" "+tview.Escape(mark)).SetTextColor(fp.theme.CounterColor))
		fp.table.SetCell(i, 1, tview.NewTableCell(text(c.Name)).SetExpansion(1).SetTextColor(fp.theme.FgColor))
		fp.table.SetCell(i, 2, tview.NewTableCell(typeLabel(c.Type)).SetTextColor(fp.theme.MutedColor))
	}
	fp.table.SetTitle(fmt.Sprintf(" Targets (%d selected) ", len(fp.picked)))
	if row >= 0 && row < len(fp.convs) {
		fp.table.Select(row, 0)
	}
}
