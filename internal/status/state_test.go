package status

import (
	"testing"

	"github.com/kingchat/kingchat/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Booting {
		t.Errorf("initial state = %s, want BOOTING", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		path []State
	}{
		{[]State{AuthRequired, Loading, Ready}},
		{[]State{Loading, Offline}},
		{[]State{Loading, Ready, Loading, Ready}},
		{[]State{Loading, Ready, AuthRequired}},
		{[]State{Loading, Error, Loading}},
		{[]State{Error, Booting}},
	}
	for _, tt := range tests {
		m := NewMachine(nil)
		for _, to := range tt.path {
			from := m.Current()
			if err := m.Transition(to); err != nil {
				t.Fatalf("Transition(%s -> %s) error = %v", from, to, err)
			}
		}
		if want := tt.path[len(tt.path)-1]; m.Current() != want {
			t.Errorf("state = %s, want %s", m.Current(), want)
		}
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Ready); err == nil {
		t.Error("Transition(BOOTING -> READY) should fail")
	}
	_ = m.Transition(AuthRequired)
	if err := m.Transition(Offline); err == nil {
		t.Error("Transition(AUTH_REQUIRED -> OFFLINE) should fail; must load first")
	}
	if m.Current() != AuthRequired {
		t.Errorf("state = %s, want AUTH_REQUIRED (should not have changed)", m.Current())
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(AuthRequired); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != KindStatusChanged {
		t.Errorf("event kind = %q, want %s", evt.Kind, KindStatusChanged)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Booting || change.To != AuthRequired {
		t.Errorf("change = %v -> %v, want BOOTING -> AUTH_REQUIRED", change.From, change.To)
	}
}

func TestSettled(t *testing.T) {
	for s, want := range map[State]bool{Ready: true, Offline: true, Loading: false, AuthRequired: false} {
		if got := s.Settled(); got != want {
			t.Errorf("%s.Settled() = %v, want %v", s, got, want)
		}
	}
}
