package tui

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/kingchat/kingchat/internal/chat"
)

// async runs fn off the UI goroutine and flashes its error.
func (a *App) async(action string, fn func() error) {
	go func() {
		if err := fn(); err != nil {
			a.logger.Debug("action failed", zap.String("action", action), zap.Error(err))
			a.tv.QueueUpdateDraw(func() { a.fail(action, err) })
		}
	}()
}

func (a *App) fail(action string, err error) {
	a.flash.Err(errors.New(chat.Describe(action, err)))
	a.flashBar.Update(a.flash.Current())
}

func (a *App) notice(msg string) {
	a.flash.Info(msg)
	a.flashBar.Update(a.flash.Current())
}

func (a *App) doLogin() {
	a.login.ShowMessage("Signing in...")
	go func() {
		user, err := a.client.Login(a.ctx)
		a.tv.QueueUpdateDraw(func() {
			if err != nil {
				a.login.ShowError(chat.Describe("login", err))
				return
			}
			a.notice("Signed in as " + user.Name)
		})
	}()
}

func (a *App) logout() {
	if err := a.client.Logout(); err != nil {
		a.fail("logout", err)
	}
}

func (a *App) open(id string) {
	if id == "" {
		return
	}
	a.async("open conversation", func() error { return a.client.Engine.Open(a.ctx, id) })
	a.refresh()
	if a.pages.Current() != pageThread {
		a.push(pageThread)
	}
}

func (a *App) cycleFolder(step int) {
	st := a.client.Store
	i := slices.Index(chat.Folders, st.Folder())
	n := len(chat.Folders)
	st.SelectFolder(string(chat.Folders[((i+step)%n+n)%n]))
}

func (a *App) showDetails(id string) {
	conv, ok := a.client.Store.Conversation(id)
	if !ok {
		return
	}
	a.info.Update(conv, len(a.client.Store.Messages(id)))
	a.push(pageDetails)
}

func (a *App) cursorUp() {
	if a.thread.MoveCursor(-1) {
		a.loadOlder()
	}
}

func (a *App) loadOlder() {
	id := a.thread.ConversationID()
	if id == "" {
		return
	}
	go func() {
		n, err := a.client.Engine.LoadOlder(a.ctx, id)
		a.tv.QueueUpdateDraw(func() {
			switch {
			case err != nil:
				a.fail("load older messages", err)
			case n == 0:
				a.notice("No older messages")
			default:
				a.notice(fmt.Sprintf("Loaded %d older messages", n))
			}
		})
	}()
}

func (a *App) submitComposer(text, editing string) {
	action, err := "send", error(nil)
	if editing != "" {
		action, err = "edit", a.client.Sender.Edit(a.ctx, editing, text)
	} else {
		_, err = a.client.Sender.Send(a.ctx, a.thread.ConversationID(), chat.Draft{Text: text})
	}
	if err != nil {
		a.fail(action, err)
		return
	}
	a.thread.ResetComposer()
	if editing != "" {
		a.tv.SetFocus(a.thread.Messages())
	}
}

func (a *App) selected() (chat.Message, bool) {
	m, ok := a.thread.Selected()
	if !ok {
		a.notice("No message selected")
	}
	return m, ok
}

func (a *App) beginEdit() {
	m, ok := a.selected()
	if !ok {
		return
	}
	if !m.IsOwn {
		a.fail("edit", fmt.Errorf("%w: you can only edit your own messages", chat.ErrForbidden))
		return
	}
	a.thread.BeginEdit(m)
	a.tv.SetFocus(a.thread.Composer())
}

func (a *App) confirmDelete() {
	m, ok := a.selected()
	if !ok {
		return
	}
	a.confirm.ClearButtons().
		SetText(fmt.Sprintf("Delete this message?\n\n%s", chat.Preview(m.Text, 60))).
		AddButtons([]string{"Delete", "Cancel"}).
		SetDoneFunc(func(_ int, label string) {
			a.back()
			if label != "Delete" {
				return
			}
			if err := a.client.Sender.Delete(a.ctx, m.ID); err != nil {
				a.fail("delete", err)
			}
		})
	a.push(pageConfirm)
}

func (a *App) beginForward() {
	m, ok := a.selected()
	if !ok {
		return
	}
	if m.Temporary() || m.Status == chat.Failed {
		a.notice("Only delivered messages can be forwarded")
		return
	}
	a.forward.Reset(m, a.client.Store.All())
	a.push(pageForward)
}

func (a *App) submitForward() {
	err := a.client.Sender.Forward(a.ctx, a.forward.MessageID(), a.forward.Targets(), a.forward.CaptionText())
	if err != nil {
		a.fail("forward", err)
		return
	}
	a.back()
}

func (a *App) retry() {
	m, ok := a.selected()
	if !ok {
		return
	}
	if _, err := a.client.Sender.Retry(a.ctx, m.ID); err != nil {
		a.fail("retry", err)
	}
}

func (a *App) discard() {
	m, ok := a.selected()
	if !ok {
		return
	}
	if err := a.client.Sender.Discard(m.ID); err != nil {
		a.fail("discard", err)
	}
}

// contactPrivacy opens the overrides for the other participant of a private
// conversation.
func (a *App) contactPrivacy() {
	conv, ok := a.client.Store.Conversation(a.thread.ConversationID())
	if !ok {
		return
	}
	if conv.Type != chat.Private {
		a.notice("Contact privacy applies to private conversations")
		return
	}
	for _, m := range a.client.Store.Messages(conv.ID) {
		if !m.IsOwn && m.SenderID != "" {
			a.showPrivacy(chat.Scope{ContactID: m.SenderID}, conv.Name)
			return
		}
	}
	a.notice("No message from this contact yet")
}

func (a *App) showPrivacy(scope chat.Scope, name string) {
	go func() {
		settings, err := a.client.Engine.Privacy(a.ctx, scope)
		a.tv.QueueUpdateDraw(func() {
			if err != nil {
				a.fail("load privacy settings", err)
				return
			}
			a.privacy.Load(scope, name, settings)
			a.push(pagePrivacy)
		})
	}()
}

func (a *App) savePrivacy(scope chat.Scope, settings chat.PrivacySettings) {
	a.back()
	a.async("save privacy settings", func() error {
		return a.client.Engine.SetPrivacy(a.ctx, scope, settings)
	})
}

// openByName opens the first conversation whose name contains name.
func (a *App) openByName(name string) {
	name = strings.ToLower(name)
	for _, c := range a.client.Store.All() {
		if strings.Contains(strings.ToLower(c.Name), name) {
			a.open(c.ID)
			return
		}
	}
	a.notice("No conversation matches " + name)
}

// targetConversation is the open conversation on the thread page and the
// highlighted one elsewhere.
func (a *App) targetConversation() (chat.Conversation, bool) {
	id := a.list.SelectedID()
	if a.pages.Current() == pageThread {
		id = a.thread.ConversationID()
	}
	conv, ok := a.client.Store.Conversation(id)
	if !ok {
		a.notice("No conversation selected")
	}
	return conv, ok
}

func (a *App) confirmDeleteConversation() {
	conv, ok := a.targetConversation()
	if !ok {
		return
	}
	if conv.Role != "" && !conv.CanDelete() {
		a.fail("delete conversation", fmt.Errorf("%w: only the owner can delete %s", chat.ErrForbidden, conv.Name))
		return
	}
	a.confirm.ClearButtons().
		SetText(fmt.Sprintf("Delete %s for every member?", conv.Name)).
		AddButtons([]string{"Delete", "Cancel"}).
		SetDoneFunc(func(_ int, label string) {
			a.back()
			if label != "Delete" {
				return
			}
			a.leaveThread(conv.ID)
			a.async("delete conversation", func() error {
				return a.client.Engine.DeleteConversation(a.ctx, conv.ID)
			})
		})
	a.push(pageConfirm)
}

func (a *App) leave() {
	conv, ok := a.targetConversation()
	if !ok {
		return
	}
	a.leaveThread(conv.ID)
	a.async("leave conversation", func() error { return a.client.Engine.Leave(a.ctx, conv.ID) })
}

// leaveThread returns to the list when id is the conversation on screen.
func (a *App) leaveThread(id string) {
	if a.pages.Current() == pageThread && a.thread.ConversationID() == id {
		a.back()
	}
}

func (a *App) join(id string) {
	go func() {
		conv, err := a.client.Engine.Join(a.ctx, id)
		a.tv.QueueUpdateDraw(func() {
			if err != nil {
				a.fail("join conversation", err)
				return
			}
			a.open(conv.ID)
		})
	}()
}

// react toggles emoji on the selected message, or removes it when remove
// is set.
func (a *App) react(emoji string, remove bool) {
	if a.pages.Current() != pageThread {
		a.notice("Open a conversation to react")
		return
	}
	m, ok := a.selected()
	if !ok {
		return
	}
	if remove {
		a.async("remove reaction", func() error { return a.client.Engine.Unreact(a.ctx, m.ID, emoji) })
		return
	}
	a.async("react", func() error { return a.client.Engine.ToggleReaction(a.ctx, m.ID, emoji) })
}

// findMessages searches message text, inside the open conversation on the
// thread page and across every conversation elsewhere.
func (a *App) findMessages(query string) {
	convID := ""
	if a.pages.Current() == pageThread {
		convID = a.thread.ConversationID()
	}
	go func() {
		found, err := a.client.Engine.SearchMessages(a.ctx, query, convID, 0)
		a.tv.QueueUpdateDraw(func() {
			if err != nil {
				a.fail("search messages", err)
				return
			}
			if len(found) == 0 {
				a.notice("No message matches " + query)
				return
			}
			a.results.Update(query, found, a.client.Store.All())
			a.push(pageResults)
		})
	}()
}

func (a *App) openResult() {
	m, ok := a.results.Selected()
	if !ok {
		return
	}
	a.back()
	a.open(m.ConversationID)
}
