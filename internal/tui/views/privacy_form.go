package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/kingchat/kingchat/internal/chat"
	"github.com/kingchat/kingchat/internal/tui/ui"
)

// PrivacyForm edits the global defaults or one contact's overrides.
type PrivacyForm struct {
	*tview.Form
	theme    *ui.Theme
	scope    chat.Scope
	settings chat.PrivacySettings
	onSave   func(scope chat.Scope, settings chat.PrivacySettings)
	onCancel func()
}

// NewPrivacyForm creates an empty form.
func NewPrivacyForm(theme *ui.Theme) *PrivacyForm {
	form := tview.NewForm()
	form.SetBorder(true)
	form.SetBorderColor(theme.BorderColor)
	form.SetBackgroundColor(theme.BgColor)
	form.SetTitleColor(theme.TitleColor)
	form.SetFieldBackgroundColor(theme.BgColor)
	form.SetFieldTextColor(theme.FgColor)
	form.SetLabelColor(theme.FgColor)
	form.SetButtonBackgroundColor(theme.BorderColor)
	return &PrivacyForm{Form: form, theme: theme}
}

// Name implements ui.Component.
func (pf *PrivacyForm) Name() string { return "Privacy" }

// Hints implements ui.Component.
func (pf *PrivacyForm) Hints() []ui.MenuHint {
	return []ui.MenuHint{{Key: "Tab", Description: "Next field"}, {Key: "Space", Description: "Toggle"}}
}

// SetOnSave sets the Save button callback.
func (pf *PrivacyForm) SetOnSave(fn func(scope chat.Scope, settings chat.PrivacySettings)) {
	pf.onSave = fn
}

// SetOnCancel sets the Cancel button callback.
func (pf *PrivacyForm) SetOnCancel(fn func()) { pf.onCancel = fn }

// Load rebuilds the form for scope. name labels a contact scope.
func (pf *PrivacyForm) Load(scope chat.Scope, name string, s chat.PrivacySettings) {
	pf.scope = scope
	pf.settings = s
	pf.Clear(true)

	suffix := ""
	if scope.IsGlobal() {
		pf.SetTitle(" Privacy: defaults ")
	} else {
		pf.SetTitle(fmt.Sprintf(" Privacy: %s ", text(name)))
		suffix = " to contact"
	}
	pf.AddCheckbox("Show read receipts"+suffix, s.ShowReadReceipts, func(on bool) { pf.settings.ShowReadReceipts = on })
	pf.AddCheckbox("Show last seen"+suffix, s.ShowLastSeen, func(on bool) { pf.settings.ShowLastSeen = on })
	pf.AddCheckbox("Show online status"+suffix, s.ShowOnlineStatus, func(on bool) { pf.settings.ShowOnlineStatus = on })
	if !scope.IsGlobal() {
		pf.AddTextView("Contact shares", fmt.Sprintf("read receipts %s, last seen %s, online %s",
			yesNo(s.SeeReadReceipts), yesNo(s.SeeLastSeen), yesNo(s.SeeOnlineStatus)), 0, 1, false, false)
	}
	pf.AddButton("Save", func() {
		if pf.onSave != nil {
			pf.onSave(pf.scope, pf.settings)
		}
	})
	pf.AddButton("Cancel", func() {
		if pf.onCancel != nil {
			pf.onCancel()
		}
	})
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
