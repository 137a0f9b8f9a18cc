package chat

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ChatType classifies a conversation.
type ChatType string

const (
	Private ChatType = "private"
	Group   ChatType = "group"
	Channel ChatType = "channel"
	Bot     ChatType = "bot"
)

// ParseChatType maps a wire value onto a ChatType. Unknown values are private.
func ParseChatType(s string) ChatType {
	switch ChatType(strings.ToLower(s)) {
	case Group:
		return Group
	case Channel:
		return Channel
	case Bot:
		return Bot
	default:
		return Private
	}
}

// ContentType is the message_type of a message body.
type ContentType string

const (
	ContentText   ContentType = "text"
	ContentImage  ContentType = "image"
	ContentFile   ContentType = "file"
	ContentAudio  ContentType = "audio"
	ContentVideo  ContentType = "video"
	ContentPoll   ContentType = "poll"
	ContentSystem ContentType = "system"
)

// Conversation is one entry of the sidebar.
type Conversation struct {
	ID                 string
	Type               ChatType
	Name               string
	Avatar             string
	LastMessagePreview string
	LastMessageAt      time.Time
	UnreadCount        int
	Online             bool
	Verified           bool
	Muted              bool
	Public             bool
	Description        string
	// Role is the current user's membership role: member, admin or owner.
	Role string
}

// Member roles.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
	RoleOwner  = "owner"
)

// CanDelete reports whether the current user may delete the conversation.
func (c Conversation) CanDelete() bool { return c.Role == RoleOwner }

// NewConversation is the request to create a conversation. Participants are
// user ids besides the creator; a private conversation takes exactly one.
type NewConversation struct {
	Name         string
	Type         ChatType
	Description  string
	Participants []string
	Public       bool
}

// Validate rejects requests that must never reach the network.
func (n NewConversation) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("%w: conversation name is empty", ErrValidation)
	}
	if n.Type == Private && len(n.Participants) != 1 {
		return fmt.Errorf("%w: a private conversation needs exactly one participant", ErrValidation)
	}
	return nil
}

// Message is a single entry of a conversation thread.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	SenderName     string
	Text           string
	Type           ContentType
	Timestamp      time.Time
	Status         Status
	ReplyTo        string
	ForwardedFrom  string
	// ClientMsgID is generated with the pending copy and echoed by the server,
	// so a reload can recognise a send that is still awaiting its response.
	ClientMsgID string
	Reactions   []Reaction

	// IsOwn is derived from the current user on every read.
	IsOwn bool
}

// Temporary reports whether the message still carries a client-generated id.
func (m Message) Temporary() bool {
	return IsTemporaryID(m.ID)
}

// Reaction is one emoji on a message and the users who chose it.
type Reaction struct {
	Emoji string
	Users []string
}

// Count returns the number of users who reacted.
func (r Reaction) Count() int { return len(r.Users) }

// ReactedBy reports whether userID chose emoji on m.
func (m Message) ReactedBy(userID, emoji string) bool {
	for _, r := range m.Reactions {
		if r.Emoji == emoji {
			return slices.Contains(r.Users, userID)
		}
	}
	return false
}

// Draft is the user's input for a new message.
type Draft struct {
	Text        string
	Type        ContentType
	ReplyTo     string
	ClientMsgID string
}

// Validate rejects drafts that must never reach the network.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Text) == "" {
		return fmt.Errorf("%w: message text is empty", ErrValidation)
	}
	return nil
}

// ContentType returns the draft type, defaulting to text.
func (d Draft) ContentType() ContentType {
	if d.Type == "" {
		return ContentText
	}
	return d.Type
}

// User is the authenticated account.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Premium  bool   `json:"is_premium"`
}

// Page bounds a message listing. Before is an exclusive message id cursor.
type Page struct {
	Limit  int
	Before string
}

// Scope selects global privacy defaults (empty ContactID) or a per-contact override.
type Scope struct {
	ContactID string
}

// Global is the scope of the account-wide privacy defaults.
var Global = Scope{}

// IsGlobal reports whether the scope addresses the account defaults.
func (s Scope) IsGlobal() bool { return s.ContactID == "" }

func (s Scope) String() string {
	if s.IsGlobal() {
		return "global"
	}
	return "contact:" + s.ContactID
}

// PrivacySettings controls presence disclosure. The See* fields only apply to
// contact scope and describe what the contact reveals to the current user.
type PrivacySettings struct {
	ShowReadReceipts bool
	ShowLastSeen     bool
	ShowOnlineStatus bool

	SeeReadReceipts bool
	SeeLastSeen     bool
	SeeOnlineStatus bool
}

// DefaultPrivacy returns the settings of an account that never changed them.
func DefaultPrivacy() PrivacySettings {
	return PrivacySettings{
		ShowReadReceipts: true,
		ShowLastSeen:     true,
		ShowOnlineStatus: true,
		SeeReadReceipts:  true,
		SeeLastSeen:      true,
		SeeOnlineStatus:  true,
	}
}

// ForwardFailure names a target that did not receive a forwarded message.
type ForwardFailure struct {
	ConversationID string
	Reason         string
}

// ForwardResult is the outcome of a fan-out forward.
type ForwardResult struct {
	Sent   []string
	Failed []ForwardFailure
}

func (r ForwardResult) SentCount() int   { return len(r.Sent) }
func (r ForwardResult) FailedCount() int { return len(r.Failed) }

// Preview truncates text for the sidebar.
func Preview(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	return string(r[:max]) + "..."
}
