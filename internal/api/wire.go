// Package api defines the JSON shapes exchanged with the KingChat HTTP API and
// their mapping onto the chat model. Both the REST client and the mock server
// use it.
package api

import (
	"time"

	"github.com/kingchat/kingchat/internal/chat"
)

// LoginResponse is returned by POST /auth/demo-login.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	User        chat.User `json:"user"`
}

// Chat is a conversation as listed by GET /chats.
type Chat struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Type            string     `json:"type"`
	Avatar          string     `json:"avatar,omitempty"`
	LastMessage     string     `json:"last_message,omitempty"`
	LastMessageTime *time.Time `json:"last_message_time,omitempty"`
	UnreadCount     int        `json:"unread_count"`
	IsOnline        bool       `json:"is_online"`
	IsVerified      bool       `json:"is_verified"`
	IsMuted         bool       `json:"is_muted"`
	IsPublic        bool       `json:"is_public"`
	Description     string     `json:"description,omitempty"`
	Role            string     `json:"role,omitempty"`
}

// CreateChatRequest is the body of POST /chats.
type CreateChatRequest struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Description  string   `json:"description,omitempty"`
	Participants []string `json:"participants"`
	IsPublic     bool     `json:"is_public"`
}

// Reaction is one emoji on a message.
type Reaction struct {
	Emoji string   `json:"emoji"`
	Users []string `json:"users"`
	Count int      `json:"count"`
}

// Message is a chat message on the wire.
type Message struct {
	ID            string     `json:"id"`
	ChatID        string     `json:"chat_id"`
	SenderID      string     `json:"sender_id"`
	SenderName    string     `json:"sender_name"`
	Text          string     `json:"text"`
	MessageType   string     `json:"message_type"`
	ReplyTo       string     `json:"reply_to,omitempty"`
	ForwardedFrom string     `json:"forwarded_from,omitempty"`
	ClientMsgID   string     `json:"client_msg_id,omitempty"`
	Reactions     []Reaction `json:"reactions"`
	IsEdited      bool       `json:"is_edited"`
	IsDeleted     bool       `json:"is_deleted"`
	Timestamp     time.Time  `json:"timestamp"`
}

// SendRequest is the body of POST /chats/{id}/messages.
type SendRequest struct {
	Text        string `json:"text"`
	MessageType string `json:"message_type,omitempty"`
	ReplyTo     string `json:"reply_to,omitempty"`
	ClientMsgID string `json:"client_msg_id,omitempty"`
}

// SendResponse wraps the stored message.
type SendResponse struct {
	Message Message `json:"message"`
}

// EditRequest is the body of PUT /messages/{id}.
type EditRequest struct {
	Text string `json:"text"`
}

// ForwardRequest is the body of POST /messages/{id}/forward.
type ForwardRequest struct {
	TargetChatIDs []string `json:"target_chat_ids"`
	AddCaption    string   `json:"add_caption,omitempty"`
}

// ForwardFailure names a target that did not receive the message.
type ForwardFailure struct {
	ChatID string `json:"chat_id"`
	Error  string `json:"error"`
}

// ForwardResponse reports the fan-out outcome.
type ForwardResponse struct {
	SuccessfulForwards []string         `json:"successful_forwards"`
	FailedForwards     []ForwardFailure `json:"failed_forwards"`
	TotalSent          int              `json:"total_sent"`
	TotalFailed        int              `json:"total_failed"`
}

// GlobalPrivacy is served by GET/PUT /privacy.
type GlobalPrivacy struct {
	ShowReadReceipts bool `json:"default_show_read_receipts"`
	ShowLastSeen     bool `json:"default_show_last_seen"`
	ShowOnlineStatus bool `json:"default_show_online_status"`
}

// ContactPrivacy is served by GET/PUT /privacy/contacts/{id}.
type ContactPrivacy struct {
	ContactID        string `json:"contact_id"`
	ShowReadReceipts bool   `json:"show_read_receipts_to_contact"`
	SeeReadReceipts  bool   `json:"can_see_contact_read_receipts"`
	ShowLastSeen     bool   `json:"show_last_seen_to_contact"`
	SeeLastSeen      bool   `json:"can_see_contact_last_seen"`
	ShowOnlineStatus bool   `json:"show_online_status_to_contact"`
	SeeOnlineStatus  bool   `json:"can_see_contact_online_status"`
}

// Health is returned by GET /health.
type Health struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error string `json:"error"`
}

func ChatFromModel(c chat.Conversation) Chat {
	out := Chat{
		ID:          c.ID,
		Name:        c.Name,
		Type:        string(c.Type),
		Avatar:      c.Avatar,
		LastMessage: c.LastMessagePreview,
		UnreadCount: c.UnreadCount,
		IsOnline:    c.Online,
		IsVerified:  c.Verified,
		IsMuted:     c.Muted,
		IsPublic:    c.Public,
		Description: c.Description,
		Role:        c.Role,
	}
	if !c.LastMessageAt.IsZero() {
		t := c.LastMessageAt
		out.LastMessageTime = &t
	}
	return out
}

func (c Chat) Model() chat.Conversation {
	out := chat.Conversation{
		ID:                 c.ID,
		Type:               chat.ParseChatType(c.Type),
		Name:               c.Name,
		Avatar:             c.Avatar,
		LastMessagePreview: c.LastMessage,
		UnreadCount:        max(c.UnreadCount, 0),
		Online:             c.IsOnline,
		Verified:           c.IsVerified,
		Muted:              c.IsMuted,
		Public:             c.IsPublic,
		Description:        c.Description,
		Role:               c.Role,
	}
	if c.LastMessageTime != nil {
		out.LastMessageAt = *c.LastMessageTime
	}
	return out
}

// Model defaults a missing type to group.
func (r CreateChatRequest) Model() chat.NewConversation {
	typ := chat.Group
	if r.Type != "" {
		typ = chat.ParseChatType(r.Type)
	}
	return chat.NewConversation{
		Name:         r.Name,
		Type:         typ,
		Description:  r.Description,
		Participants: r.Participants,
		Public:       r.IsPublic,
	}
}

func CreateChatFromModel(nc chat.NewConversation) CreateChatRequest {
	out := CreateChatRequest{
		Name:         nc.Name,
		Type:         string(nc.Type),
		Description:  nc.Description,
		Participants: nc.Participants,
		IsPublic:     nc.Public,
	}
	if out.Participants == nil {
		out.Participants = []string{}
	}
	return out
}

// ReactionsFromModel never returns nil so the field encodes as [].
func ReactionsFromModel(rs []chat.Reaction) []Reaction {
	out := make([]Reaction, 0, len(rs))
	for _, r := range rs {
		out = append(out, Reaction{Emoji: r.Emoji, Users: r.Users, Count: r.Count()})
	}
	return out
}

// reactionsModel drops entries nobody holds.
func reactionsModel(rs []Reaction) []chat.Reaction {
	var out []chat.Reaction
	for _, r := range rs {
		if len(r.Users) == 0 {
			continue
		}
		out = append(out, chat.Reaction{Emoji: r.Emoji, Users: r.Users})
	}
	return out
}

func MessageFromModel(m chat.Message) Message {
	return Message{
		ID:            m.ID,
		ChatID:        m.ConversationID,
		SenderID:      m.SenderID,
		SenderName:    m.SenderName,
		Text:          m.Text,
		MessageType:   string(m.Type),
		ReplyTo:       m.ReplyTo,
		ForwardedFrom: m.ForwardedFrom,
		ClientMsgID:   m.ClientMsgID,
		Reactions:     ReactionsFromModel(m.Reactions),
		IsEdited:      m.Status == chat.Edited,
		IsDeleted:     m.Status == chat.Deleted,
		Timestamp:     m.Timestamp,
	}
}

// Model converts a server message. Server messages are never pending.
func (m Message) Model() chat.Message {
	st := chat.Sent
	switch {
	case m.IsDeleted:
		st = chat.Deleted
	case m.IsEdited:
		st = chat.Edited
	}
	return chat.Message{
		ID:             m.ID,
		ConversationID: m.ChatID,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		Text:           m.Text,
		Type:           chat.ContentType(m.MessageType),
		Timestamp:      m.Timestamp,
		Status:         st,
		ReplyTo:        m.ReplyTo,
		ForwardedFrom:  m.ForwardedFrom,
		ClientMsgID:    m.ClientMsgID,
		Reactions:      reactionsModel(m.Reactions),
	}
}

func ForwardFromModel(r chat.ForwardResult) ForwardResponse {
	out := ForwardResponse{
		SuccessfulForwards: r.Sent,
		FailedForwards:     make([]ForwardFailure, 0, len(r.Failed)),
		TotalSent:          r.SentCount(),
		TotalFailed:        r.FailedCount(),
	}
	if out.SuccessfulForwards == nil {
		out.SuccessfulForwards = []string{}
	}
	for _, f := range r.Failed {
		out.FailedForwards = append(out.FailedForwards, ForwardFailure{ChatID: f.ConversationID, Error: f.Reason})
	}
	return out
}

func (r ForwardResponse) Model() chat.ForwardResult {
	out := chat.ForwardResult{Sent: r.SuccessfulForwards}
	for _, f := range r.FailedForwards {
		out.Failed = append(out.Failed, chat.ForwardFailure{ConversationID: f.ChatID, Reason: f.Error})
	}
	return out
}

func GlobalFromModel(p chat.PrivacySettings) GlobalPrivacy {
	return GlobalPrivacy{
		ShowReadReceipts: p.ShowReadReceipts,
		ShowLastSeen:     p.ShowLastSeen,
		ShowOnlineStatus: p.ShowOnlineStatus,
	}
}

// Model fills the See* fields with their defaults; they have no global meaning.
func (g GlobalPrivacy) Model() chat.PrivacySettings {
	p := chat.DefaultPrivacy()
	p.ShowReadReceipts = g.ShowReadReceipts
	p.ShowLastSeen = g.ShowLastSeen
	p.ShowOnlineStatus = g.ShowOnlineStatus
	return p
}

func ContactFromModel(contactID string, p chat.PrivacySettings) ContactPrivacy {
	return ContactPrivacy{
		ContactID:        contactID,
		ShowReadReceipts: p.ShowReadReceipts,
		SeeReadReceipts:  p.SeeReadReceipts,
		ShowLastSeen:     p.ShowLastSeen,
		SeeLastSeen:      p.SeeLastSeen,
		ShowOnlineStatus: p.ShowOnlineStatus,
		SeeOnlineStatus:  p.SeeOnlineStatus,
	}
}

func (c ContactPrivacy) Model() chat.PrivacySettings {
	return chat.PrivacySettings{
		ShowReadReceipts: c.ShowReadReceipts,
		SeeReadReceipts:  c.SeeReadReceipts,
		ShowLastSeen:     c.ShowLastSeen,
		SeeLastSeen:      c.SeeLastSeen,
		ShowOnlineStatus: c.ShowOnlineStatus,
		SeeOnlineStatus:  c.SeeOnlineStatus,
	}
}
