package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/kingchat/kingchat/internal/tui/ui"
)

// LoginView is shown while no session is stored.
type LoginView struct {
	*tview.Flex
	theme   *ui.Theme
	message *tview.TextView
	form    *tview.Form
}

// NewLoginView creates the view. login and quit back the two buttons.
func NewLoginView(theme *ui.Theme, login, quit func()) *LoginView {
	message := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	message.SetBackgroundColor(theme.BgColor)

	form := tview.NewForm().
		AddButton("Demo login", login).
		AddButton("Quit", quit).
		SetButtonsAlign(tview.AlignCenter)
	form.SetBackgroundColor(theme.BgColor)
	form.SetButtonBackgroundColor(theme.BorderColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(message, 0, 1, false).
		AddItem(form, 3, 0, true)
	flex.SetBorder(true)
	flex.SetBorderColor(theme.BorderColor)
	flex.SetBackgroundColor(theme.BgColor)
	flex.SetTitle(" Sign in ")
	flex.SetTitleColor(theme.TitleColor)

	lv := &LoginView{Flex: flex, theme: theme, message: message, form: form}
	lv.ShowMessage("No session is stored. Sign in with the demo account to continue.")
	return lv
}

// Name implements ui.Component.
func (lv *LoginView) Name() string { return "Login" }

// Hints implements ui.Component.
func (lv *LoginView) Hints() []ui.MenuHint {
	return []ui.MenuHint{{Key: "Enter", Description: "Press button"}}
}

// Form returns the focusable button row.
func (lv *LoginView) Form() *tview.Form { return lv.form }

// ShowMessage replaces the message text.
func (lv *LoginView) ShowMessage(msg string) {
	lv.message.Clear()
	_, _ = fmt.Fprintf(lv.message, "\n\n[%s]%s[-]", ui.Tag(lv.theme.FgColor), tview.Escape(msg))
}

// ShowError shows msg in the error color.
func (lv *LoginView) ShowError(msg string) {
	lv.message.Clear()
	_, _ = fmt.Fprintf(lv.message, "\n\n[%s]%s[-]", ui.Tag(lv.theme.FlashErrColor), tview.Escape(msg))
}
