package chat

import "slices"

// Status is the delivery state of a message.
type Status string

const (
	Pending Status = "pending"
	Sent    Status = "sent"
	Failed  Status = "failed"
	Edited  Status = "edited"
	Deleted Status = "deleted"
)

// validTransitions defines allowed message status transitions.
// Failed and Deleted are terminal.
var validTransitions = map[Status][]Status{
	Pending: {Sent, Failed},
	Sent:    {Edited, Deleted},
	Edited:  {Edited, Deleted},
}

// CanTransition reports whether a message may move from one status to another.
func CanTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return len(validTransitions[s]) == 0
}
