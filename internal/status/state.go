package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/kingchat/kingchat/internal/bus"
)

// State represents the client lifecycle state.
type State string

const (
	Booting      State = "BOOTING"
	AuthRequired State = "AUTH_REQUIRED"
	Loading      State = "LOADING"
	Ready        State = "READY"
	Offline      State = "OFFLINE"
	Error        State = "ERROR"
)

// KindStatusChanged is published on every successful transition.
const KindStatusChanged = "session.status_changed"

// validTransitions defines allowed state transitions. Offline is Ready on the
// local backend.
var validTransitions = map[State][]State{
	Booting:      {AuthRequired, Loading, Error},
	AuthRequired: {Loading, Error},
	Loading:      {Ready, Offline, AuthRequired, Error},
	Ready:        {Loading, AuthRequired, Error},
	Offline:      {Loading, AuthRequired, Error},
	Error:        {Booting, Loading, AuthRequired},
}

// Machine tracks and enforces client lifecycle transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.bus.Emit(KindStatusChanged, StatusChange{From: from, To: to})
	return nil
}

// Settled reports whether the conversation list is usable.
func (s State) Settled() bool {
	return s == Ready || s == Offline
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
