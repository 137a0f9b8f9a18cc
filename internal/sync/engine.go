package sync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/kingchat/kingchat/internal/bus"
	"github.com/kingchat/kingchat/internal/chat"
	"github.com/kingchat/kingchat/internal/logging"
	"github.com/kingchat/kingchat/internal/metrics"
	"github.com/kingchat/kingchat/internal/outbox"
	"github.com/kingchat/kingchat/internal/session"
	"github.com/kingchat/kingchat/internal/status"
)

// DefaultPageSize is the number of messages fetched per thread page.
const DefaultPageSize = 50

// Options configures an Engine.
type Options struct {
	PageSize int
	Timeout  time.Duration
	// Offline marks the backend as the local fallback; a successful load
	// settles in status.Offline instead of status.Ready.
	Offline bool
}

// Engine loads server state into the Store and ingests inbound events.
type Engine struct {
	store  *chat.Store
	status *status.Machine
	vault  *session.Vault
	bus    *bus.Bus
	logger *zap.Logger
	opts   Options

	mu      gosync.Mutex
	backend chat.Backend
	cancel  context.CancelFunc
	loop    gosync.WaitGroup
	wg      gosync.WaitGroup
}

// NewEngine creates a sync engine. vault may be nil when credentials are not persisted.
func NewEngine(store *chat.Store, backend chat.Backend, st *status.Machine, vault *session.Vault, b *bus.Bus, logger *zap.Logger, opts Options) *Engine {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	return &Engine{
		store:   store,
		backend: backend,
		status:  st,
		vault:   vault,
		bus:     b,
		logger:  logging.OrNop(logger),
		opts:    opts,
	}
}

// SetBackend swaps the facade, e.g. when falling back to the local backend.
func (e *Engine) SetBackend(backend chat.Backend, offline bool) {
	e.mu.Lock()
	e.backend = backend
	e.opts.Offline = offline
	e.mu.Unlock()
}

func (e *Engine) current() (chat.Backend, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.backend, e.opts.Offline
}

func (e *Engine) call(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opts.Timeout > 0 {
		return context.WithTimeout(ctx, e.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

func (e *Engine) transition(to status.State) {
	if e.status == nil || e.status.Current() == to {
		return
	}
	if err := e.status.Transition(to); err != nil {
		e.logger.Debug("status transition skipped", zap.Error(err))
	}
}

func (e *Engine) notifyError(action string, err error) {
	e.bus.Emit(bus.KindNotifyError, bus.Notice{Level: "error", Message: chat.Describe(action, err)})
}

// Start subscribes to inbound messages and forward results.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	remote, unsubRemote := e.bus.Subscribe("remote.", 256)
	forwarded, unsubForwarded := e.bus.Subscribe(outbox.KindForwarded, 16)

	e.loop.Add(1)
	go func() {
		defer e.loop.Done()
		defer unsubRemote()
		defer unsubForwarded()
		for {
			select {
			case evt := <-remote:
				e.handleRemote(ctx, evt)
			case evt := <-forwarded:
				e.handleForwarded(ctx, evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine and waits for background loads.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	e.loop.Wait()
	e.wg.Wait()
}

// Wait blocks until background loads finish.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) handleRemote(ctx context.Context, evt bus.Event) {
	if evt.Kind != chat.EventRemoteMessage {
		return
	}
	m, ok := evt.Payload.(chat.Message)
	if !ok {
		return
	}
	if !e.store.ReceiveMessage(m) {
		return
	}
	e.logger.Debug("message received", zap.String("msg_id", m.ID), zap.String("conversation", m.ConversationID))
	if e.store.ActiveID() == m.ConversationID {
		e.markRead(ctx, m.ConversationID)
	}
}

// handleForwarded reloads the active thread when it received a forwarded copy.
func (e *Engine) handleForwarded(ctx context.Context, evt bus.Event) {
	fwd, ok := evt.Payload.(outbox.Forwarded)
	if !ok {
		return
	}
	active := e.store.ActiveID()
	if active == "" || !slices.Contains(fwd.Result.Sent, active) {
		return
	}
	e.loadThread(ctx, active)
}

// Resume restores persisted credentials and loads the conversation list.
// Without a token the client waits in status.AuthRequired.
func (e *Engine) Resume(ctx context.Context) error {
	if e.vault == nil {
		return e.Load(ctx)
	}
	creds, err := e.vault.Load()
	if err != nil {
		e.logger.Warn("failed to read stored credentials", zap.Error(err))
	}
	if !creds.Authenticated() {
		e.transition(status.AuthRequired)
		return nil
	}
	e.store.SetCurrentUser(creds.User)
	return e.Load(ctx)
}

// Login performs the demo login, persists the credentials and loads.
func (e *Engine) Login(ctx context.Context, auth chat.Authenticator) (chat.User, error) {
	cctx, cancel := e.call(ctx)
	token, user, err := auth.DemoLogin(cctx)
	cancel()
	if err != nil {
		e.logger.Error("login failed", zap.Error(err))
		return chat.User{}, fmt.Errorf("login: %w", err)
	}
	if e.vault != nil {
		if err := e.vault.Save(session.Credentials{Token: token, User: user}); err != nil {
			return chat.User{}, fmt.Errorf("save credentials: %w", err)
		}
	}
	e.store.SetCurrentUser(user)
	e.logger.Info("logged in", zap.String("user_id", user.ID))
	return user, e.Load(ctx)
}

// Logout clears local state and stored credentials.
func (e *Engine) Logout() error {
	e.store.Reset()
	e.transition(status.AuthRequired)
	if e.vault == nil {
		return nil
	}
	return e.vault.Clear()
}

// Load fetches the conversation list. A rejected token clears the stored
// credentials and returns to status.AuthRequired.
func (e *Engine) Load(ctx context.Context) error {
	backend, offline := e.current()
	e.transition(status.Loading)

	cctx, cancel := e.call(ctx)
	start := time.Now()
	convs, err := backend.ListConversations(cctx)
	cancel()
	metrics.RecordRemote("list_conversations", outcomeOf(err), time.Since(start).Seconds())
	if err != nil {
		e.logger.Error("failed to load conversations", zap.Error(err))
		if errors.Is(err, chat.ErrForbidden) {
			e.store.Reset()
			if e.vault != nil {
				_ = e.vault.Clear()
			}
			e.transition(status.AuthRequired)
		} else {
			e.transition(status.Error)
		}
		e.notifyError("load conversations", err)
		return err
	}

	e.store.ReplaceConversations(convs)
	e.logger.Info("conversations loaded", zap.Int("count", len(convs)), zap.Bool("offline", offline))
	if offline {
		e.transition(status.Offline)
	} else {
		e.transition(status.Ready)
	}
	if active := e.store.ActiveID(); active != "" {
		e.loadThread(ctx, active)
	}
	return nil
}

// Open selects convID and fetches its newest page in the background. The
// thread shows the loading flag until the page arrives or fails.
func (e *Engine) Open(ctx context.Context, convID string) error {
	conv, ok := e.store.Conversation(convID)
	if !ok {
		return fmt.Errorf("conversation %s: %w", convID, chat.ErrNotFound)
	}
	e.store.SelectConversation(convID)
	e.loadThread(ctx, convID)
	if conv.UnreadCount > 0 {
		e.markRead(ctx, convID)
	}
	return nil
}

func (e *Engine) loadThread(ctx context.Context, convID string) {
	backend, _ := e.current()
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		cctx, cancel := e.call(ctx)
		defer cancel()
		start := time.Now()
		msgs, err := backend.ListMessages(cctx, convID, chat.Page{Limit: e.opts.PageSize})
		metrics.RecordRemote("list_messages", outcomeOf(err), time.Since(start).Seconds())
		if err != nil {
			e.store.FinishLoading(convID)
			e.logger.Error("failed to load messages", zap.Error(err), zap.String("conversation", convID))
			e.notifyError("load messages", err)
			return
		}
		e.store.SetMessages(convID, msgs)
	}()
}

// LoadOlder fetches the page before the oldest loaded message of convID and
// returns how many messages were added.
func (e *Engine) LoadOlder(ctx context.Context, convID string) (int, error) {
	cursor := e.store.OldestMessageID(convID)
	if cursor == "" {
		return 0, nil
	}
	backend, _ := e.current()
	cctx, cancel := e.call(ctx)
	defer cancel()
	msgs, err := backend.ListMessages(cctx, convID, chat.Page{Limit: e.opts.PageSize, Before: cursor})
	if err != nil {
		e.notifyError("load older messages", err)
		return 0, err
	}
	return e.store.PrependMessages(convID, msgs), nil
}

func (e *Engine) markRead(ctx context.Context, convID string) {
	backend, _ := e.current()
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		cctx, cancel := e.call(ctx)
		defer cancel()
		if err := backend.MarkRead(cctx, convID); err != nil {
			e.logger.Warn("failed to mark conversation read", zap.Error(err), zap.String("conversation", convID))
		}
	}()
}

// Privacy returns the settings for scope.
func (e *Engine) Privacy(ctx context.Context, scope chat.Scope) (chat.PrivacySettings, error) {
	backend, _ := e.current()
	cctx, cancel := e.call(ctx)
	defer cancel()
	return backend.GetPrivacySettings(cctx, scope)
}

// SetPrivacy stores the settings for scope.
func (e *Engine) SetPrivacy(ctx context.Context, scope chat.Scope, settings chat.PrivacySettings) error {
	backend, _ := e.current()
	cctx, cancel := e.call(ctx)
	defer cancel()
	if err := backend.SetPrivacySettings(cctx, scope, settings); err != nil {
		e.notifyError("save privacy settings", err)
		return err
	}
	e.bus.Emit(bus.KindNotifyInfo, bus.Notice{Level: "info", Message: "privacy settings saved for " + scope.String()})
	return nil
}

// CreateConversation creates a conversation on the server, puts it at the top
// of the list and opens it.
func (e *Engine) CreateConversation(ctx context.Context, nc chat.NewConversation) (chat.Conversation, error) {
	if err := nc.Validate(); err != nil {
		return chat.Conversation{}, err
	}
	backend, _ := e.current()
	cctx, cancel := e.call(ctx)
	start := time.Now()
	c, err := backend.CreateConversation(cctx, nc)
	cancel()
	metrics.RecordRemote("create_conversation", outcomeOf(err), time.Since(start).Seconds())
	if err != nil {
		e.notifyError("create conversation", err)
		return chat.Conversation{}, err
	}
	e.store.AddConversation(c)
	e.logger.Info("conversation created", zap.String("conversation", c.ID), zap.String("type", string(c.Type)))
	e.bus.Emit(bus.KindNotifyInfo, bus.Notice{Level: "info", Message: "created " + c.Name})
	return c, e.Open(ctx, c.ID)
}

// DeleteConversation deletes convID for every member. Only the owner may;
// others are refused before any network call when the role is known.
func (e *Engine) DeleteConversation(ctx context.Context, convID string) error {
	conv, ok := e.store.Conversation(convID)
	if !ok {
		return fmt.Errorf("conversation %s: %w", convID, chat.ErrNotFound)
	}
	if conv.Role != "" && !conv.CanDelete() {
		return fmt.Errorf("only the owner can delete %s: %w", conv.Name, chat.ErrForbidden)
	}
	return e.drop(ctx, conv, "delete conversation", func(ctx context.Context, b chat.Backend) error {
		return b.DeleteConversation(ctx, convID)
	})
}

// Leave removes the user from convID. The owner has to delete it instead.
func (e *Engine) Leave(ctx context.Context, convID string) error {
	conv, ok := e.store.Conversation(convID)
	if !ok {
		return fmt.Errorf("conversation %s: %w", convID, chat.ErrNotFound)
	}
	if conv.Role == chat.RoleOwner {
		return fmt.Errorf("the owner cannot leave %s: %w", conv.Name, chat.ErrForbidden)
	}
	return e.drop(ctx, conv, "leave conversation", func(ctx context.Context, b chat.Backend) error {
		return b.LeaveConversation(ctx, convID)
	})
}

// drop runs a server call that ends the user's membership of conv and
// removes it from the Store on success.
func (e *Engine) drop(ctx context.Context, conv chat.Conversation, action string, fn func(context.Context, chat.Backend) error) error {
	backend, _ := e.current()
	cctx, cancel := e.call(ctx)
	start := time.Now()
	err := fn(cctx, backend)
	cancel()
	metrics.RecordRemote(strings.ReplaceAll(action, " ", "_"), outcomeOf(err), time.Since(start).Seconds())
	if err != nil {
		e.logger.Error("failed to "+action, zap.Error(err), zap.String("conversation", conv.ID))
		e.notifyError(action, err)
		return err
	}
	e.store.RemoveConversation(conv.ID)
	e.logger.Info(action+" done", zap.String("conversation", conv.ID))
	return nil
}

// Join adds the user to a public conversation and lists it.
func (e *Engine) Join(ctx context.Context, convID string) (chat.Conversation, error) {
	backend, _ := e.current()
	cctx, cancel := e.call(ctx)
	start := time.Now()
	c, err := backend.JoinConversation(cctx, convID)
	cancel()
	metrics.RecordRemote("join_conversation", outcomeOf(err), time.Since(start).Seconds())
	if err != nil {
		e.notifyError("join conversation", err)
		return chat.Conversation{}, err
	}
	if e.store.AddConversation(c) {
		e.bus.Emit(bus.KindNotifyInfo, bus.Notice{Level: "info", Message: "joined " + c.Name})
	}
	return c, nil
}

// React adds emoji from the current user to a confirmed message.
func (e *Engine) React(ctx context.Context, msgID, emoji string) error {
	return e.react(ctx, msgID, emoji, false)
}

// Unreact removes the current user's emoji from a message.
func (e *Engine) Unreact(ctx context.Context, msgID, emoji string) error {
	return e.react(ctx, msgID, emoji, true)
}

// ToggleReaction removes emoji when the current user already chose it and
// adds it otherwise.
func (e *Engine) ToggleReaction(ctx context.Context, msgID, emoji string) error {
	m, ok := e.store.Message(msgID)
	if !ok {
		return fmt.Errorf("message %s: %w", msgID, chat.ErrNotFound)
	}
	return e.react(ctx, msgID, emoji, m.ReactedBy(e.store.CurrentUser().ID, strings.TrimSpace(emoji)))
}

func (e *Engine) react(ctx context.Context, msgID, emoji string, remove bool) error {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return fmt.Errorf("%w: emoji is empty", chat.ErrValidation)
	}
	m, ok := e.store.Message(msgID)
	if !ok || m.Status == chat.Deleted {
		return fmt.Errorf("message %s: %w", msgID, chat.ErrNotFound)
	}
	if m.Temporary() {
		return fmt.Errorf("message %s is not sent yet: %w", msgID, chat.ErrValidation)
	}

	backend, _ := e.current()
	cctx, cancel := e.call(ctx)
	start := time.Now()
	var (
		updated chat.Message
		err     error
	)
	action := "react"
	if remove {
		action = "unreact"
		updated, err = backend.Unreact(cctx, msgID, emoji)
	} else {
		updated, err = backend.React(cctx, msgID, emoji)
	}
	cancel()
	metrics.RecordRemote(action, outcomeOf(err), time.Since(start).Seconds())
	if err != nil {
		e.notifyError(action, err)
		return err
	}
	e.store.SetReactions(msgID, updated.Reactions)
	return nil
}

// SearchMessages searches the user's conversations, or only convID when set.
// Results are not added to the Store.
func (e *Engine) SearchMessages(ctx context.Context, query, convID string, limit int) ([]chat.Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is empty", chat.ErrValidation)
	}
	backend, _ := e.current()
	cctx, cancel := e.call(ctx)
	defer cancel()
	start := time.Now()
	msgs, err := backend.SearchMessages(cctx, query, convID, limit)
	metrics.RecordRemote("search_messages", outcomeOf(err), time.Since(start).Seconds())
	if err != nil {
		e.notifyError("search", err)
		return nil, err
	}
	me := e.store.CurrentUser().ID
	for i := range msgs {
		msgs[i].IsOwn = msgs[i].SenderID == me
	}
	return msgs, nil
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	return string(chat.Classify(err))
}
