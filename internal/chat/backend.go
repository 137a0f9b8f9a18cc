package chat

import "context"

// Backend is the remote service facade. Implementations return errors wrapping
// one of ErrNetwork, ErrValidation, ErrForbidden or ErrNotFound.
type Backend interface {
	ListConversations(ctx context.Context) ([]Conversation, error)
	ListMessages(ctx context.Context, conversationID string, page Page) ([]Message, error)
	SendMessage(ctx context.Context, conversationID string, draft Draft) (Message, error)
	EditMessage(ctx context.Context, messageID, text string) (Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
	ForwardMessage(ctx context.Context, messageID string, targets []string, caption string) (ForwardResult, error)
	MarkRead(ctx context.Context, conversationID string) error
	GetPrivacySettings(ctx context.Context, scope Scope) (PrivacySettings, error)
	SetPrivacySettings(ctx context.Context, scope Scope, settings PrivacySettings) error

	CreateConversation(ctx context.Context, nc NewConversation) (Conversation, error)
	// DeleteConversation is reserved to the owner.
	DeleteConversation(ctx context.Context, conversationID string) error
	JoinConversation(ctx context.Context, conversationID string) (Conversation, error)
	LeaveConversation(ctx context.Context, conversationID string) error

	// React and Unreact return the message with its updated reactions.
	React(ctx context.Context, messageID, emoji string) (Message, error)
	Unreact(ctx context.Context, messageID, emoji string) (Message, error)
	// SearchMessages matches text across the user's conversations, newest
	// first. An empty conversationID searches all of them.
	SearchMessages(ctx context.Context, query, conversationID string, limit int) ([]Message, error)
}

// Authenticator issues and checks bearer tokens.
type Authenticator interface {
	DemoLogin(ctx context.Context) (token string, user User, err error)
	Me(ctx context.Context) (User, error)
}
