package bot

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kingchat/kingchat/internal/bus"
	"github.com/kingchat/kingchat/internal/chat"
	"github.com/kingchat/kingchat/internal/outbox"
	"github.com/kingchat/kingchat/internal/store"
)

func first(int) int { return 0 }

func TestReply(t *testing.T) {
	tests := []struct {
		name   string
		kind   chat.ChatType
		text   string
		want   string
		answer bool
	}{
		{"private chatter", chat.Private, "oi", "Entendi! 👍", true},
		{"group chatter", chat.Group, "bom dia", "Entendi! 👍", true},
		{"channel silent", chat.Channel, "oi", "", false},
		{"bot help", chat.Bot, "/help", "Comandos disponíveis: /weather, /news, /joke", true},
		{"bot command case", chat.Bot, "/JOKE agora", commands["/joke"], true},
		{"bot unknown command", chat.Bot, "/dance", unknownCommand, true},
		{"bot free text", chat.Bot, "olá", "Entendi! 👍", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Reply(tt.kind, tt.text, first)
			if ok != tt.answer || got != tt.want {
				t.Errorf("Reply = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.answer)
			}
		})
	}
}

func seeded(t *testing.T) *store.Local {
	t.Helper()
	db, err := store.OpenMigrated(filepath.Join(t.TempDir(), "kingchat.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.SeedDemo(context.Background(), store.DemoUser, time.Now()); err != nil {
		t.Fatal(err)
	}
	return db.As(store.DemoUser)
}

func TestResponderAnswersBot(t *testing.T) {
	local := seeded(t)
	ctx := context.Background()
	b := bus.New()
	replies, unsub := b.Subscribe(chat.EventRemoteMessage, 4)
	defer unsub()

	r := NewResponder(local, b, nil, time.Millisecond)
	r.pick = first
	r.Start(ctx)
	defer r.Stop()

	sent, err := local.SendMessage(ctx, "demo_chat_3", chat.Draft{Text: "/weather"})
	if err != nil {
		t.Fatal(err)
	}
	b.Emit(outbox.KindSendAck, outbox.SendAck{ConversationID: "demo_chat_3", TempID: "tmp-1", ServerMsgID: sent.ID})

	select {
	case evt := <-replies:
		m := evt.Payload.(chat.Message)
		if m.SenderID != "bot_assistant" || !strings.Contains(m.Text, "ensolarado") {
			t.Errorf("reply = %+v", m)
		}
		msgs, _ := local.ListMessages(ctx, "demo_chat_3", chat.Page{Limit: 10})
		if last := msgs[len(msgs)-1]; last.ID != m.ID {
			t.Errorf("reply not stored, last = %s", last.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for bot reply")
	}
}

func TestResponderIgnoresChannels(t *testing.T) {
	local := seeded(t)
	b := bus.New()
	replies, unsub := b.Subscribe(chat.EventRemoteMessage, 4)
	defer unsub()

	r := NewResponder(local, b, nil, time.Millisecond)
	r.Start(context.Background())

	msgs, _ := local.ListMessages(context.Background(), "demo_chat_2", chat.Page{Limit: 1})
	b.Emit(outbox.KindSendAck, outbox.SendAck{ConversationID: "demo_chat_2", ServerMsgID: msgs[0].ID})
	time.Sleep(50 * time.Millisecond)
	r.Stop()

	select {
	case evt := <-replies:
		t.Errorf("unexpected reply %+v", evt.Payload)
	default:
	}
}

func TestResponderStopCancelsPendingReply(t *testing.T) {
	local := seeded(t)
	ctx := context.Background()
	b := bus.New()
	replies, unsub := b.Subscribe(chat.EventRemoteMessage, 4)
	defer unsub()

	r := NewResponder(local, b, nil, time.Hour)
	r.Start(ctx)
	sent, _ := local.SendMessage(ctx, "demo_chat_5", chat.Draft{Text: "oi"})
	b.Emit(outbox.KindSendAck, outbox.SendAck{ConversationID: "demo_chat_5", ServerMsgID: sent.ID})
	time.Sleep(20 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a pending reply")
	}
	if len(replies) != 0 {
		t.Error("reply delivered after stop")
	}
}
