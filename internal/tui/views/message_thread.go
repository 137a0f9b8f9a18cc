package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/kingchat/kingchat/internal/chat"
	"github.com/kingchat/kingchat/internal/tui/ui"
)

// MessageThread shows the active conversation with a message cursor and the
// composer. The composer doubles as the edit field.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	now      func() time.Time

	conv    chat.Conversation
	msgs    []chat.Message
	cursor  int
	editing string
	onDone  func(text, editing string)
}

// NewMessageThread creates an empty thread view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetRegions(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitleColor(theme.TitleColor)

	mt := &MessageThread{
		Flex: tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(messages, 0, 1, true).
			AddItem(composer, 3, 0, false),
		theme:    theme,
		messages: messages,
		composer: composer,
		now:      time.Now,
		cursor:   -1,
	}
	mt.resetComposer()

	composer.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter || mt.onDone == nil {
			return
		}
		if t := composer.GetText(); t != "" {
			mt.onDone(t, mt.editing)
		}
	})
	return mt
}

// Name implements ui.Component.
func (mt *MessageThread) Name() string {
	if mt.conv.Name != "" {
		return mt.conv.Name
	}
	return "Messages"
}

// Hints implements ui.Component.
func (mt *MessageThread) Hints() []ui.MenuHint { return nil }

// SetOnDone sets the composer submit callback. editing is the id of the
// message being edited, or empty for a new message.
func (mt *MessageThread) SetOnDone(fn func(text, editing string)) { mt.onDone = fn }

// Messages returns the scrollable message pane.
func (mt *MessageThread) Messages() *tview.TextView { return mt.messages }

// Composer returns the input field.
func (mt *MessageThread) Composer() *tview.InputField { return mt.composer }

// ConversationID returns the id of the shown conversation.
func (mt *MessageThread) ConversationID() string { return mt.conv.ID }

// Update redraws the thread. A conversation change moves the cursor to the
// newest message; otherwise the cursor stays on the same message id.
func (mt *MessageThread) Update(conv chat.Conversation, msgs []chat.Message, loading bool) {
	keep := ""
	if conv.ID == mt.conv.ID {
		if m, ok := mt.Selected(); ok {
			keep = m.ID
		}
	} else {
		mt.resetComposer()
	}
	mt.conv = conv
	mt.msgs = msgs
	mt.cursor = len(msgs) - 1
	for i, m := range msgs {
		if m.ID == keep {
			mt.cursor = i
		}
	}

	title := " " + text(conv.Name) + " "
	if conv.Type != chat.Private {
		title = fmt.Sprintf(" %s [%s] ", text(conv.Name), typeLabel(conv.Type))
	}
	if loading {
		title += "loading... "
	}
	mt.messages.SetTitle(title)
	mt.render(loading)
}

func (mt *MessageThread) render(loading bool) {
	mt.messages.Clear()
	if len(mt.msgs) == 0 {
		hint := "No messages yet. Press i to write one."
		if loading {
			hint = "Loading messages..."
		}
		_, _ = fmt.Fprintf(mt.messages, "\n  [%s]%s[-]", ui.Tag(mt.theme.MutedColor), hint)
		return
	}
	now := mt.now()
	muted := ui.Tag(mt.theme.MutedColor)
	for i, m := range mt.msgs {
		sender := text(m.SenderName)
		color := mt.theme.FgColor
		if m.IsOwn {
			sender = "You"
			color = mt.theme.OwnColor
		}
		if sender == "" {
			sender = text(m.SenderID)
		}
		var extra string
		if m.ForwardedFrom != "" {
			extra += fmt.Sprintf(" [%s]forwarded[-]", muted)
		}
		if m.ReplyTo != "" {
			extra += fmt.Sprintf(" [%s]reply[-]", muted)
		}
		_, _ = fmt.Fprintf(mt.messages, "[\"m%d\"][%s::b]%s[-:-:-] [%s]%s[-]%s\n%s%s%s[\"\"]\n\n",
			i, ui.Tag(color), sender, muted, stamp(m.Timestamp, now), extra,
			text(m.Text), statusMarker(m, mt.theme), reactionLine(m, mt.theme))
	}
	mt.highlight()
}

func (mt *MessageThread) highlight() {
	if mt.cursor < 0 {
		mt.messages.Highlight()
		return
	}
	mt.messages.Highlight(fmt.Sprintf("m%d", mt.cursor))
	mt.messages.ScrollToHighlight()
}

// MoveCursor shifts the message cursor by delta and reports whether it
// was already at the oldest message when moving up.
func (mt *MessageThread) MoveCursor(delta int) (atTop bool) {
	if len(mt.msgs) == 0 {
		return delta < 0
	}
	next := mt.cursor + delta
	if next < 0 {
		next, atTop = 0, true
	}
	if next >= len(mt.msgs) {
		next = len(mt.msgs) - 1
	}
	mt.cursor = next
	mt.highlight()
	return atTop
}

// Selected returns the message under the cursor.
func (mt *MessageThread) Selected() (chat.Message, bool) {
	if mt.cursor < 0 || mt.cursor >= len(mt.msgs) {
		return chat.Message{}, false
	}
	return mt.msgs[mt.cursor], true
}

// BeginEdit loads m into the composer in edit mode.
func (mt *MessageThread) BeginEdit(m chat.Message) {
	mt.editing = m.ID
	mt.composer.SetLabel(" edit> ")
	mt.composer.SetTitle(" Editing (Enter saves, Esc cancels) ")
	mt.composer.SetText(m.Text)
}

// Editing reports whether the composer is in edit mode.
func (mt *MessageThread) Editing() bool { return mt.editing != "" }

// ResetComposer clears the composer and leaves edit mode.
func (mt *MessageThread) ResetComposer() { mt.resetComposer() }

func (mt *MessageThread) resetComposer() {
	mt.editing = ""
	mt.composer.SetLabel(" > ")
	mt.composer.SetTitle(" Compose (i to focus) ")
	mt.composer.SetText("")
}
