package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kingchat/kingchat/internal/chat"
)

// forwardBanner separates a caption from the forwarded text.
const forwardBanner = "--- Mensagem encaminhada ---"

// Local serves chat.Backend for one user straight from the database. It backs
// offline mode and every request of the mock API server.
type Local struct {
	db   *DB
	user chat.User
	now  func() time.Time
}

var (
	_ chat.Backend       = (*Local)(nil)
	_ chat.Authenticator = (*Local)(nil)
)

// As returns a backend acting as user.
func (db *DB) As(user chat.User) *Local {
	return &Local{db: db, user: user, now: time.Now}
}

// User returns the acting user.
func (l *Local) User() chat.User { return l.user }

// DemoLogin registers the acting user, seeds its demo conversations and
// returns an opaque local token.
func (l *Local) DemoLogin(ctx context.Context) (string, chat.User, error) {
	if _, err := l.db.SeedDemo(ctx, l.user, l.now()); err != nil {
		return "", chat.User{}, fmt.Errorf("seed demo data: %w", err)
	}
	return "local-" + uuid.NewString(), l.user, nil
}

// Me returns the acting user as stored.
func (l *Local) Me(ctx context.Context) (chat.User, error) {
	u, err := l.db.GetUser(ctx, l.user.ID)
	if err != nil {
		return chat.User{}, err
	}
	if u == nil {
		return chat.User{}, fmt.Errorf("user %s: %w", l.user.ID, chat.ErrNotFound)
	}
	return *u, nil
}

func (l *Local) ListConversations(ctx context.Context) ([]chat.Conversation, error) {
	return l.db.ListChats(ctx, l.user.ID)
}

func (l *Local) requireMember(ctx context.Context, chatID string) (string, error) {
	role, err := l.db.MemberRole(ctx, chatID, l.user.ID)
	if err != nil {
		return "", err
	}
	if role == "" {
		return "", fmt.Errorf("chat %s: %w", chatID, chat.ErrNotFound)
	}
	return role, nil
}

func (l *Local) ListMessages(ctx context.Context, conversationID string, page chat.Page) ([]chat.Message, error) {
	if _, err := l.requireMember(ctx, conversationID); err != nil {
		return nil, err
	}
	return l.db.ListMessages(ctx, conversationID, page.Before, page.Limit)
}

func (l *Local) SendMessage(ctx context.Context, conversationID string, draft chat.Draft) (chat.Message, error) {
	if err := draft.Validate(); err != nil {
		return chat.Message{}, err
	}
	conv, err := l.db.GetChat(ctx, conversationID, l.user.ID)
	if err != nil {
		return chat.Message{}, err
	}
	if conv == nil {
		return chat.Message{}, fmt.Errorf("chat %s: %w", conversationID, chat.ErrNotFound)
	}
	if draft.ClientMsgID != "" {
		prior, err := l.db.MessageByClientID(ctx, l.user.ID, draft.ClientMsgID)
		if err != nil {
			return chat.Message{}, err
		}
		if prior != nil {
			if prior.ConversationID != conversationID {
				return chat.Message{}, fmt.Errorf("%w: client message id reused in another chat", chat.ErrValidation)
			}
			return *prior, nil
		}
	}
	if conv.Type == chat.Channel {
		role, err := l.requireMember(ctx, conversationID)
		if err != nil {
			return chat.Message{}, err
		}
		if role == RoleMember {
			return chat.Message{}, fmt.Errorf("only channel admins can post: %w", chat.ErrForbidden)
		}
	}
	m := chat.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       l.user.ID,
		SenderName:     l.user.Name,
		Text:           strings.TrimSpace(draft.Text),
		Type:           draft.ContentType(),
		ReplyTo:        draft.ReplyTo,
		ClientMsgID:    draft.ClientMsgID,
		Timestamp:      l.now(),
		Status:         chat.Sent,
	}
	if err := l.db.InsertMessage(ctx, m); err != nil {
		// A concurrent retry may have stored the same client id first.
		if m.ClientMsgID != "" {
			if prior, _ := l.db.MessageByClientID(ctx, l.user.ID, m.ClientMsgID); prior != nil {
				return *prior, nil
			}
		}
		return chat.Message{}, err
	}
	return m, nil
}

// Deliver stores a message from another member of conversationID, as a
// simulated reply.
func (l *Local) Deliver(ctx context.Context, conversationID string, from chat.User, text string) (chat.Message, error) {
	role, err := l.db.MemberRole(ctx, conversationID, from.ID)
	if err != nil {
		return chat.Message{}, err
	}
	if role == "" {
		return chat.Message{}, fmt.Errorf("%s in chat %s: %w", from.ID, conversationID, chat.ErrNotFound)
	}
	m := chat.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       from.ID,
		SenderName:     from.Name,
		Text:           text,
		Type:           chat.ContentText,
		Timestamp:      l.now(),
		Status:         chat.Sent,
	}
	if err := l.db.InsertMessage(ctx, m); err != nil {
		return chat.Message{}, err
	}
	return m, nil
}

// Conversation returns conversationID as seen by the acting user.
func (l *Local) Conversation(ctx context.Context, conversationID string) (chat.Conversation, error) {
	c, err := l.db.GetChat(ctx, conversationID, l.user.ID)
	if err != nil {
		return chat.Conversation{}, err
	}
	if c == nil {
		return chat.Conversation{}, fmt.Errorf("chat %s: %w", conversationID, chat.ErrNotFound)
	}
	return *c, nil
}

// Message returns a stored message by id.
func (l *Local) Message(ctx context.Context, id string) (chat.Message, error) {
	m, err := l.db.GetMessage(ctx, id)
	if err != nil {
		return chat.Message{}, err
	}
	if m == nil {
		return chat.Message{}, fmt.Errorf("message %s: %w", id, chat.ErrNotFound)
	}
	return *m, nil
}

// Counterparts returns the other members of conversationID.
func (l *Local) Counterparts(ctx context.Context, conversationID string) ([]chat.User, error) {
	return l.db.Members(ctx, conversationID, l.user.ID)
}

// ownMessage loads id and checks the acting user may modify it. Admins and
// owners of the chat may delete other members' messages.
func (l *Local) ownMessage(ctx context.Context, id string, allowAdmin bool) (*chat.Message, error) {
	m, err := l.db.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil || m.Status == chat.Deleted {
		return nil, fmt.Errorf("message %s: %w", id, chat.ErrNotFound)
	}
	role, err := l.requireMember(ctx, m.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", id, chat.ErrNotFound)
	}
	if m.SenderID == l.user.ID || (allowAdmin && role != RoleMember) {
		return m, nil
	}
	return nil, fmt.Errorf("message %s: %w", id, chat.ErrForbidden)
}

func (l *Local) EditMessage(ctx context.Context, messageID, text string) (chat.Message, error) {
	text = strings.TrimSpace(text)
	m, err := l.ownMessage(ctx, messageID, false)
	if err != nil {
		return chat.Message{}, err
	}
	if text == "" {
		return chat.Message{}, fmt.Errorf("%w: message text is empty", chat.ErrValidation)
	}
	if err := l.db.UpdateMessageText(ctx, messageID, text); err != nil {
		return chat.Message{}, err
	}
	m.Text = text
	m.Status = chat.Edited
	return *m, nil
}

func (l *Local) DeleteMessage(ctx context.Context, messageID string) error {
	if _, err := l.ownMessage(ctx, messageID, true); err != nil {
		return err
	}
	return l.db.SoftDeleteMessage(ctx, messageID)
}

func (l *Local) ForwardMessage(ctx context.Context, messageID string, targets []string, caption string) (chat.ForwardResult, error) {
	var res chat.ForwardResult
	if len(targets) == 0 {
		return res, fmt.Errorf("%w: no forward targets", chat.ErrValidation)
	}
	orig, err := l.db.GetMessage(ctx, messageID)
	if err != nil {
		return res, err
	}
	if orig == nil || orig.Status == chat.Deleted {
		return res, fmt.Errorf("message %s: %w", messageID, chat.ErrNotFound)
	}
	if _, err := l.requireMember(ctx, orig.ConversationID); err != nil {
		return res, fmt.Errorf("message %s: %w", messageID, chat.ErrNotFound)
	}

	text := orig.Text
	if c := strings.TrimSpace(caption); c != "" {
		text = c + "\n\n" + forwardBanner + "\n" + orig.Text
	}
	for _, target := range targets {
		if _, err := l.requireMember(ctx, target); err != nil {
			res.Failed = append(res.Failed, chat.ForwardFailure{ConversationID: target, Reason: "chat not found or no access"})
			continue
		}
		m := chat.Message{
			ID:             uuid.NewString(),
			ConversationID: target,
			SenderID:       l.user.ID,
			SenderName:     l.user.Name,
			Text:           text,
			Type:           orig.Type,
			ForwardedFrom:  orig.SenderID,
			Timestamp:      l.now(),
		}
		if err := l.db.InsertMessage(ctx, m); err != nil {
			res.Failed = append(res.Failed, chat.ForwardFailure{ConversationID: target, Reason: err.Error()})
			continue
		}
		res.Sent = append(res.Sent, target)
	}
	return res, nil
}

func (l *Local) MarkRead(ctx context.Context, conversationID string) error {
	if _, err := l.requireMember(ctx, conversationID); err != nil {
		return err
	}
	return l.db.MarkRead(ctx, conversationID, l.user.ID)
}

func (l *Local) GetPrivacySettings(ctx context.Context, scope chat.Scope) (chat.PrivacySettings, error) {
	global, err := l.db.GetPrivacy(ctx, l.user.ID, "")
	if err != nil {
		return chat.PrivacySettings{}, err
	}
	base := chat.DefaultPrivacy()
	if global != nil {
		base = *global
	}
	if scope.IsGlobal() {
		return base, nil
	}
	contact, err := l.db.GetPrivacy(ctx, l.user.ID, scope.ContactID)
	if err != nil {
		return chat.PrivacySettings{}, err
	}
	if contact != nil {
		return *contact, nil
	}
	// A contact without overrides inherits what the account reveals.
	out := chat.DefaultPrivacy()
	out.ShowReadReceipts = base.ShowReadReceipts
	out.ShowLastSeen = base.ShowLastSeen
	out.ShowOnlineStatus = base.ShowOnlineStatus
	return out, nil
}

func (l *Local) SetPrivacySettings(ctx context.Context, scope chat.Scope, settings chat.PrivacySettings) error {
	if scope.ContactID == l.user.ID {
		return fmt.Errorf("%w: privacy contact cannot be yourself", chat.ErrValidation)
	}
	if !scope.IsGlobal() {
		u, err := l.db.GetUser(ctx, scope.ContactID)
		if err != nil {
			return err
		}
		if u == nil {
			return fmt.Errorf("contact %s: %w", scope.ContactID, chat.ErrNotFound)
		}
	}
	return l.db.UpsertPrivacy(ctx, l.user.ID, scope.ContactID, settings)
}

// MaxSearchResults caps SearchMessages.
const MaxSearchResults = 100

func (l *Local) CreateConversation(ctx context.Context, nc chat.NewConversation) (chat.Conversation, error) {
	if err := nc.Validate(); err != nil {
		return chat.Conversation{}, err
	}
	if nc.Type == "" {
		nc.Type = chat.Group
	}
	members := map[string]string{l.user.ID: RoleOwner}
	for _, id := range nc.Participants {
		if id == l.user.ID {
			continue
		}
		u, err := l.db.GetUser(ctx, id)
		if err != nil {
			return chat.Conversation{}, err
		}
		if u == nil {
			return chat.Conversation{}, fmt.Errorf("participant %s: %w", id, chat.ErrNotFound)
		}
		members[id] = RoleMember
	}
	if nc.Type == chat.Private && len(members) != 2 {
		return chat.Conversation{}, fmt.Errorf("%w: a private conversation needs another participant", chat.ErrValidation)
	}
	rec := ChatRecord{
		ID:          uuid.NewString(),
		Type:        nc.Type,
		Name:        strings.TrimSpace(nc.Name),
		Description: strings.TrimSpace(nc.Description),
		Public:      nc.Public && nc.Type != chat.Private,
		Verified:    nc.Type == chat.Bot,
		CreatedBy:   l.user.ID,
	}
	if err := l.db.CreateChat(ctx, rec, members); err != nil {
		return chat.Conversation{}, err
	}
	return l.Conversation(ctx, rec.ID)
}

func (l *Local) DeleteConversation(ctx context.Context, conversationID string) error {
	role, err := l.requireMember(ctx, conversationID)
	if err != nil {
		return err
	}
	if role != RoleOwner {
		return fmt.Errorf("only the owner can delete chat %s: %w", conversationID, chat.ErrForbidden)
	}
	return l.db.DeleteChat(ctx, conversationID)
}

// JoinConversation adds the acting user to a public chat. Joining a chat the
// user already belongs to returns it unchanged.
func (l *Local) JoinConversation(ctx context.Context, conversationID string) (chat.Conversation, error) {
	role, err := l.db.MemberRole(ctx, conversationID, l.user.ID)
	if err != nil {
		return chat.Conversation{}, err
	}
	if role == "" {
		exists, public, err := l.db.ChatAccess(ctx, conversationID)
		if err != nil {
			return chat.Conversation{}, err
		}
		if !exists {
			return chat.Conversation{}, fmt.Errorf("chat %s: %w", conversationID, chat.ErrNotFound)
		}
		if !public {
			return chat.Conversation{}, fmt.Errorf("chat %s is not public: %w", conversationID, chat.ErrForbidden)
		}
		if err := l.db.AddMember(ctx, conversationID, l.user.ID, RoleMember, 0); err != nil {
			return chat.Conversation{}, err
		}
	}
	return l.Conversation(ctx, conversationID)
}

// LeaveConversation removes the acting user from a chat. The owner cannot
// leave.
func (l *Local) LeaveConversation(ctx context.Context, conversationID string) error {
	role, err := l.requireMember(ctx, conversationID)
	if err != nil {
		return err
	}
	if role == RoleOwner {
		return fmt.Errorf("the owner cannot leave chat %s: %w", conversationID, chat.ErrForbidden)
	}
	return l.db.RemoveMember(ctx, conversationID, l.user.ID)
}

// reactable loads a visible message from a chat the acting user belongs to.
func (l *Local) reactable(ctx context.Context, messageID, emoji string) (string, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return "", fmt.Errorf("%w: emoji is empty", chat.ErrValidation)
	}
	m, err := l.db.GetMessage(ctx, messageID)
	if err != nil {
		return "", err
	}
	if m == nil || m.Status == chat.Deleted {
		return "", fmt.Errorf("message %s: %w", messageID, chat.ErrNotFound)
	}
	if _, err := l.requireMember(ctx, m.ConversationID); err != nil {
		return "", fmt.Errorf("message %s: %w", messageID, chat.ErrNotFound)
	}
	return emoji, nil
}

func (l *Local) React(ctx context.Context, messageID, emoji string) (chat.Message, error) {
	emoji, err := l.reactable(ctx, messageID, emoji)
	if err != nil {
		return chat.Message{}, err
	}
	if err := l.db.AddReaction(ctx, messageID, l.user.ID, emoji); err != nil {
		return chat.Message{}, err
	}
	return l.Message(ctx, messageID)
}

// Unreact removes the acting user's emoji. Removing a reaction that is not
// there leaves the message unchanged.
func (l *Local) Unreact(ctx context.Context, messageID, emoji string) (chat.Message, error) {
	emoji, err := l.reactable(ctx, messageID, emoji)
	if err != nil {
		return chat.Message{}, err
	}
	if err := l.db.RemoveReaction(ctx, messageID, l.user.ID, emoji); err != nil {
		return chat.Message{}, err
	}
	return l.Message(ctx, messageID)
}

func (l *Local) SearchMessages(ctx context.Context, query, conversationID string, limit int) ([]chat.Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is empty", chat.ErrValidation)
	}
	if conversationID != "" {
		if _, err := l.requireMember(ctx, conversationID); err != nil {
			return nil, err
		}
	}
	limit = min(limit, MaxSearchResults)
	return l.db.SearchMessages(ctx, l.user.ID, query, conversationID, limit)
}
