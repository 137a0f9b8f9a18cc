package tui

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/kingchat/kingchat/internal/app"
	"github.com/kingchat/kingchat/internal/bus"
	"github.com/kingchat/kingchat/internal/chat"
	"github.com/kingchat/kingchat/internal/logging"
	"github.com/kingchat/kingchat/internal/status"
	"github.com/kingchat/kingchat/internal/tui/keys"
	"github.com/kingchat/kingchat/internal/tui/ui"
	"github.com/kingchat/kingchat/internal/tui/views"
)

// Page names.
const (
	pageLogin         = "login"
	pageConversations = "conversations"
	pageThread        = "thread"
	pageDetails       = "details"
	pageForward       = "forward"
	pagePrivacy       = "privacy"
	pageHelp          = "help"
	pageConfirm       = "confirm"
	pageResults       = "results"
)

// App is the terminal UI over an assembled client. Every widget is touched
// on the tview goroutine only; bus events are funneled through QueueUpdateDraw.
type App struct {
	tv     *tview.Application
	client *app.Client
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc

	theme    *ui.Theme
	registry *keys.Registry
	pages    *ui.Pages
	layout   *tview.Flex

	sessionInfo *ui.SessionInfo
	menu        *ui.Menu
	crumbs      *ui.Crumbs
	prompt      *ui.Prompt
	flash       *ui.FlashModel
	flashBar    *ui.FlashBar
	statusBar   *views.StatusBar

	list    *views.ConversationList
	thread  *views.MessageThread
	info    *views.ConversationInfo
	help    *views.HelpView
	forward *views.ForwardPicker
	privacy *views.PrivacyForm
	results *views.SearchResults
	login   *views.LoginView
	confirm *tview.Modal

	components    map[string]ui.Component
	promptVisible bool
	events        <-chan bus.Event
	unsubscribe   func()
}

// New builds the UI for c. It subscribes to the bus right away so no status
// change between construction and Run is missed.
func New(c *app.Client) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		tv:          tview.NewApplication(),
		client:      c,
		logger:      logging.OrNop(c.Logger).Named("tui"),
		ctx:         ctx,
		cancel:      cancel,
		theme:       theme,
		registry:    keys.NewRegistry(),
		pages:       ui.NewPages(),
		sessionInfo: ui.NewSessionInfo(theme),
		menu:        ui.NewMenu(theme),
		prompt:      ui.NewPrompt(theme),
		flash:       ui.NewFlashModel(),
		flashBar:    ui.NewFlashBar(theme),
		statusBar:   views.NewStatusBar(c.Session, c.Offline()),
		list:        views.NewConversationList(theme),
		thread:      views.NewMessageThread(theme),
		info:        views.NewConversationInfo(theme),
		help:        views.NewHelpView(theme),
		forward:     views.NewForwardPicker(theme),
		privacy:     views.NewPrivacyForm(theme),
		results:     views.NewSearchResults(theme),
		confirm:     tview.NewModal(),
	}
	a.login = views.NewLoginView(theme, a.doLogin, a.Stop)
	a.crumbs = ui.NewCrumbs(theme, a.crumbLabel)
	a.components = map[string]ui.Component{
		pageLogin:         a.login,
		pageConversations: a.list,
		pageThread:        a.thread,
		pageDetails:       a.info,
		pageForward:       a.forward,
		pagePrivacy:       a.privacy,
		pageHelp:          a.help,
		pageResults:       a.results,
	}

	a.events, a.unsubscribe = c.Bus.Subscribe("", 256)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupLayout() {
	a.pages.Register(pageLogin, a.login)
	a.pages.Register(pageConversations, a.list)
	a.pages.Register(pageThread, a.thread)
	a.pages.Register(pageDetails, a.info)
	a.pages.Register(pageForward, a.forward)
	a.pages.Register(pagePrivacy, a.privacy)
	a.pages.Register(pageHelp, a.help)
	a.pages.Register(pageConfirm, a.confirm)
	a.pages.Register(pageResults, a.results)
	a.pages.SetOnChange(func(stack []string) {
		a.crumbs.Update(stack)
		a.updateMenu()
	})

	header := tview.NewFlex().
		AddItem(ui.NewLogo(a.theme), 26, 0, false).
		AddItem(a.sessionInfo, 30, 0, false).
		AddItem(a.menu, 0, 1, false)

	a.layout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 7, 0, false).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.flashBar, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false)

	a.tv.SetRoot(a.layout, true)
	a.tv.SetInputCapture(a.capture)
}

func (a *App) crumbLabel(page string) string {
	if c, ok := a.components[page]; ok {
		return c.Name()
	}
	return page
}

func (a *App) updateMenu() {
	page := a.pages.Current()
	var hints []ui.MenuHint
	if c, ok := a.components[page]; ok {
		hints = append(hints, c.Hints()...)
	}
	a.menu.Update(append(hints, a.registry.Hints(page)...))
}

func (a *App) setupBindings() {
	r := a.registry
	r.AddGlobal(keys.Rune(':', "Command", func() { a.showPrompt(ui.PromptCommand, "") }))
	r.AddGlobal(keys.Rune('?', "Help", func() { a.push(pageHelp) }))

	r.AddView(pageConversations, keys.Key(tcell.KeyEnter, "Open", func() { a.open(a.list.SelectedID()) }))
	r.AddView(pageConversations, keys.Key(tcell.KeyTab, "Next folder", func() { a.cycleFolder(1) }))
	r.AddView(pageConversations, &keys.Action{Key: tcell.KeyBacktab, Label: "S-Tab", Description: "Prev folder", Visible: true, Handler: func() { a.cycleFolder(-1) }})
	r.AddView(pageConversations, keys.Rune('/', "Search", func() { a.showPrompt(ui.PromptSearch, a.client.Store.Search()) }))
	r.AddView(pageConversations, keys.Rune('d', "Details", func() { a.showDetails(a.list.SelectedID()) }))
	r.AddView(pageConversations, keys.Rune('p', "Privacy", func() { a.showPrivacy(chat.Global, "") }))
	r.AddView(pageConversations, keys.Rune('q', "Quit", a.Stop))

	r.AddView(pageThread, keys.Rune('i', "Compose", func() { a.tv.SetFocus(a.thread.Composer()) }))
	r.AddView(pageThread, &keys.Action{Key: tcell.KeyRune, Rune: 'j', Handler: func() { a.thread.MoveCursor(1) }})
	r.AddView(pageThread, &keys.Action{Key: tcell.KeyDown, Handler: func() { a.thread.MoveCursor(1) }})
	r.AddView(pageThread, &keys.Action{Key: tcell.KeyRune, Rune: 'k', Handler: a.cursorUp})
	r.AddView(pageThread, &keys.Action{Key: tcell.KeyUp, Handler: a.cursorUp})
	r.AddView(pageThread, keys.Rune('e', "Edit", a.beginEdit))
	r.AddView(pageThread, keys.Rune('D', "Delete", a.confirmDelete))
	r.AddView(pageThread, keys.Rune('f', "Forward", a.beginForward))
	r.AddView(pageThread, keys.Rune('r', "Retry", a.retry))
	r.AddView(pageThread, keys.Rune('x', "Discard", a.discard))
	r.AddView(pageThread, keys.Rune('o', "Older", a.loadOlder))
	r.AddView(pageThread, keys.Rune('p', "Privacy", a.contactPrivacy))
	r.AddView(pageThread, keys.Rune('+', "React", func() { a.showPrompt(ui.PromptCommand, "react ") }))
	r.AddView(pageThread, keys.Rune('d', "Details", func() { a.showDetails(a.thread.ConversationID()) }))
	r.AddView(pageThread, keys.Rune('q', "Back", a.back))

	r.AddView(pageResults, keys.Key(tcell.KeyEnter, "Open", a.openResult))

	r.AddView(pageForward, &keys.Action{Key: tcell.KeyRune, Rune: ' ', Label: "Space", Description: "Pick", Visible: true, Handler: a.forward.Toggle})
	r.AddView(pageForward, keys.Rune('c', "Caption", func() { a.tv.SetFocus(a.forward.Caption()) }))
	r.AddView(pageForward, keys.Key(tcell.KeyEnter, "Send", a.submitForward))
}

func (a *App) setupCallbacks() {
	a.thread.SetOnDone(a.submitComposer)
	a.forward.Caption().SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			a.submitForward()
			return
		}
		a.tv.SetFocus(a.forward.Table())
	})
	a.privacy.SetOnSave(a.savePrivacy)
	a.privacy.SetOnCancel(a.back)

	a.prompt.SetOnChange(func(mode ui.PromptMode, text string) {
		if mode == ui.PromptSearch {
			a.client.Store.SetSearch(text)
		}
	})
	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		if mode == ui.PromptCommand {
			a.execute(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(func(mode ui.PromptMode) {
		if mode == ui.PromptSearch {
			a.client.Store.SetSearch("")
		}
		a.hidePrompt()
	})
}

// capture routes keys: text inputs keep their keys, Escape navigates back,
// everything else goes through the registry.
func (a *App) capture(ev *tcell.EventKey) *tcell.EventKey {
	if ev.Key() == tcell.KeyCtrlC {
		a.Stop()
		return nil
	}
	page := a.pages.Current()
	switch focused := a.tv.GetFocus().(type) {
	case *tview.InputField:
		if ev.Key() == tcell.KeyEscape && focused == a.thread.Composer() {
			a.thread.ResetComposer()
			a.tv.SetFocus(a.thread.Messages())
			return nil
		}
		return ev
	case *tview.Button, *tview.Checkbox:
		if ev.Key() == tcell.KeyEscape && page != pageLogin {
			a.back()
			return nil
		}
		return ev
	}
	if page == pageConfirm {
		return ev
	}
	if ev.Key() == tcell.KeyEscape {
		a.back()
		return nil
	}
	if page == pageConversations && ev.Key() == tcell.KeyRune && ev.Rune() >= '1' && ev.Rune() <= '9' {
		a.open(a.list.IDAt(int(ev.Rune() - '0')))
		return nil
	}
	if a.registry.HandleEvent(page, ev) {
		return nil
	}
	return ev
}

func (a *App) push(page string) {
	a.pages.Push(page)
	a.focusPage()
}

func (a *App) back() {
	switch a.pages.Current() {
	case pageLogin, pageConversations:
		return
	case pageThread:
		a.thread.ResetComposer()
	}
	a.pages.Pop()
	a.focusPage()
}

func (a *App) focusPage() {
	switch a.pages.Current() {
	case pageLogin:
		a.tv.SetFocus(a.login.Form())
	case pageConversations:
		a.tv.SetFocus(a.list.Table())
	case pageThread:
		a.tv.SetFocus(a.thread.Messages())
	case pageForward:
		a.tv.SetFocus(a.forward.Table())
	case pagePrivacy:
		a.tv.SetFocus(a.privacy)
	case pageHelp:
		a.tv.SetFocus(a.help)
	case pageDetails:
		a.tv.SetFocus(a.info)
	case pageConfirm:
		a.tv.SetFocus(a.confirm)
	case pageResults:
		a.tv.SetFocus(a.results)
	}
}

func (a *App) showPrompt(mode ui.PromptMode, text string) {
	a.prompt.Activate(mode, text)
	if !a.promptVisible {
		a.layout.AddItem(a.prompt, 3, 0, false)
		a.promptVisible = true
	}
	a.tv.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	if a.promptVisible {
		a.layout.RemoveItem(a.prompt)
		a.promptVisible = false
	}
	a.focusPage()
}

// refresh redraws every view from the Store.
func (a *App) refresh() {
	st := a.client.Store
	all := st.All()
	unread := 0
	for _, c := range all {
		unread += c.UnreadCount
	}
	a.list.Update(st.Conversations(), st.Folder(), st.FolderCounts(), st.Search(), st.ActiveID())
	if conv, ok := st.Active(); ok {
		a.thread.Update(conv, st.ActiveMessages(), st.LoadingMessages())
	}
	backend := "api"
	if a.client.Offline() {
		backend = "local"
	}
	a.sessionInfo.Update(ui.SessionData{
		Session: a.client.Session,
		User:    st.CurrentUser().Name,
		Backend: backend,
		Status:  string(a.client.Status.Current()),
		Chats:   len(all),
		Unread:  unread,
	})
	a.crumbs.Update(a.pages.Stack())
}

// handle applies one bus event on the UI goroutine.
func (a *App) handle(evt bus.Event) {
	switch p := evt.Payload.(type) {
	case bus.Notice:
		a.flash.Notice(p)
		a.flashBar.Update(a.flash.Current())
	case status.StatusChange:
		a.applyState(p.To)
	}
	a.refresh()
}

func (a *App) applyState(s status.State) {
	a.statusBar.SetState(s)
	switch {
	case s == status.AuthRequired:
		a.thread.ResetComposer()
		a.pages.Reset(pageLogin)
		a.focusPage()
	case s.Settled() && a.pages.Current() == pageLogin:
		a.pages.Reset(pageConversations)
		a.focusPage()
	}
}

func (a *App) pump() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case evt := <-a.events:
			a.tv.QueueUpdateDraw(func() { a.handle(evt) })
		case <-ticker.C:
			a.tv.QueueUpdateDraw(func() {
				a.flashBar.Update(a.flash.Current())
				a.statusBar.SetState(a.client.Status.Current())
			})
		case <-a.ctx.Done():
			return
		}
	}
}

// Run resumes the stored session and blocks until the UI exits.
func (a *App) Run() error {
	if a.client.Status.Current() == status.AuthRequired {
		a.pages.Reset(pageLogin)
	} else {
		a.pages.Reset(pageConversations)
	}
	a.focusPage()
	a.refresh()

	go a.pump()
	go func() {
		if err := a.client.Resume(a.ctx); err != nil {
			a.logger.Warn("resume failed", zap.Error(err))
		}
	}()

	defer a.unsubscribe()
	return a.tv.Run()
}

// Stop exits the UI.
func (a *App) Stop() {
	a.cancel()
	a.tv.Stop()
}
