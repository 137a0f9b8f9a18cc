package ui

import (
	"slices"
	"testing"
	"time"

	"github.com/rivo/tview"

	"github.com/kingchat/kingchat/internal/bus"
)

func TestPagesStack(t *testing.T) {
	p := NewPages()
	for _, name := range []string{"list", "thread", "forward", "help"} {
		p.Register(name, tview.NewBox())
	}
	var seen [][]string
	p.SetOnChange(func(stack []string) { seen = append(seen, stack) })

	p.Reset("list")
	p.Push("thread")
	p.Push("forward")
	if got := p.Stack(); !slices.Equal(got, []string{"list", "thread", "forward"}) {
		t.Fatalf("stack = %v", got)
	}

	// Pushing a page already on the stack unwinds to it.
	p.Push("thread")
	if got := p.Stack(); !slices.Equal(got, []string{"list", "thread"}) {
		t.Fatalf("stack after unwind = %v", got)
	}

	if top := p.Pop(); top != "list" {
		t.Errorf("Pop = %q, want list", top)
	}
	if top := p.Pop(); top != "list" {
		t.Errorf("popping the root = %q, want it kept", top)
	}
	if len(seen) != 5 {
		t.Errorf("onChange fired %d times, want 5", len(seen))
	}
}

func TestFlashExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	f := NewFlashModel()
	f.now = func() time.Time { return now }

	if f.Current() != nil {
		t.Fatal("empty model should have no message")
	}
	f.Notice(bus.Notice{Level: "warn", Message: "forwarded to 1 of 2 conversations (1 failed)"})
	m := f.Current()
	if m == nil || m.Level != FlashWarn {
		t.Fatalf("current = %+v, want warn", m)
	}

	now = now.Add(7 * time.Second)
	if f.Current() == nil {
		t.Error("warn should still be live after 7s")
	}
	now = now.Add(2 * time.Second)
	if f.Current() != nil {
		t.Error("warn should expire after 8s")
	}
}

func TestParseFlashLevel(t *testing.T) {
	for in, want := range map[string]FlashLevel{"info": FlashInfo, "warn": FlashWarn, "error": FlashErr, "": FlashInfo} {
		if got := ParseFlashLevel(in); got != want {
			t.Errorf("ParseFlashLevel(%q) = %d, want %d", in, got, want)
		}
	}
}
