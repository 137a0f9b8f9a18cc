package chat

import (
	"errors"
	"fmt"
	"testing"
)

func TestMessageTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{Pending, Sent, true},
		{Pending, Failed, true},
		{Pending, Edited, false},
		{Sent, Edited, true},
		{Sent, Deleted, true},
		{Sent, Pending, false},
		{Edited, Edited, true},
		{Edited, Deleted, true},
		{Failed, Sent, false},
		{Deleted, Edited, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition = %v, want %v", got, tt.want)
			}
		})
	}
	for _, s := range []Status{Failed, Deleted} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{fmt.Errorf("send: %w", ErrNetwork), KindNetwork},
		{fmt.Errorf("x: %w", ErrValidation), KindValidation},
		{ErrForbidden, KindAuthorization},
		{fmt.Errorf("y: %w", ErrNotFound), KindNotFound},
		{errors.New("boom"), KindUnknown},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestParseChatType(t *testing.T) {
	for in, want := range map[string]ChatType{
		"group": Group, "CHANNEL": Channel, "bot": Bot, "private": Private, "secret": Private,
	} {
		if got := ParseChatType(in); got != want {
			t.Errorf("ParseChatType(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("a\n  b", 10); got != "a b" {
		t.Errorf("Preview = %q", got)
	}
	if got := Preview("olá mundo", 3); got != "olá..." {
		t.Errorf("Preview = %q", got)
	}
}
