package bus

import "time"

// Event is a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Notice is the payload of notify.* events shown to the user as a flash message.
type Notice struct {
	Level   string // info, warn, error
	Message string
}

// Notification kinds.
const (
	KindNotifyInfo  = "notify.info"
	KindNotifyError = "notify.error"
)
