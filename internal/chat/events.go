package chat

// Bus event kinds published by the Store.
const (
	EventConversations = "chat.conversations_changed"
	EventSelection     = "chat.selection_changed"
	EventThread        = "chat.thread_changed"
	EventReset         = "chat.reset"
)

// ThreadChange is the payload of EventThread.
type ThreadChange struct {
	ConversationID string
	MessageID      string
}

// EventRemoteMessage carries a Message written by another participant.
const EventRemoteMessage = "remote.message"
