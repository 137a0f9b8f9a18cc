package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kingchat/kingchat/internal/chat"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seededDB(t *testing.T) *DB {
	t.Helper()
	db := testDB(t)
	if _, err := db.SeedDemo(context.Background(), DemoUser, time.Now()); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 3 {
		t.Errorf("version = %d, want 3 (init + privacy + social)", result.Version)
	}
}

func TestSeedDemo(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	created, err := db.SeedDemo(ctx, DemoUser, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Fatal("first SeedDemo() = false")
	}
	created, err = db.SeedDemo(ctx, DemoUser, time.Now())
	if err != nil || created {
		t.Errorf("second SeedDemo() = %v, %v; want false, nil", created, err)
	}

	convs, err := db.ListChats(ctx, DemoUser.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 7 {
		t.Fatalf("chats = %d, want 7", len(convs))
	}
	if convs[0].Name != "Maria Silva" || convs[0].UnreadCount != 2 {
		t.Errorf("first chat = %+v, want Maria Silva with 2 unread", convs[0])
	}
	counts := chat.CountFolders(convs)
	want := map[chat.Folder]int{
		chat.FolderAll: 7, chat.FolderUnread: 3, chat.FolderChannels: 1,
		chat.FolderBots: 1, chat.FolderGroups: 1,
	}
	for f, n := range want {
		if counts[f] != n {
			t.Errorf("folder %s = %d, want %d", f, counts[f], n)
		}
	}
}

func TestListMessagesPagination(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	if err := db.UpsertChat(ctx, ChatRecord{ID: "c", Name: "C"}); err != nil {
		t.Fatal(err)
	}
	base := time.UnixMilli(1_000_000)
	for i := 0; i < 5; i++ {
		m := chat.Message{
			ID: string(rune('a' + i)), ConversationID: "c", SenderID: "u",
			Text: "m", Type: chat.ContentText,
			// Two messages share a timestamp; rowid breaks the tie.
			Timestamp: base.Add(time.Duration(i/2*2) * time.Second),
		}
		if err := db.InsertMessage(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	page, err := db.ListMessages(ctx, "c", "", 3)
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(page); got != "cde" {
		t.Errorf("latest page = %s, want cde", got)
	}
	older, err := db.ListMessages(ctx, "c", "c", 3)
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(older); got != "ab" {
		t.Errorf("older page = %s, want ab", got)
	}
}

func ids(msgs []chat.Message) string {
	var s string
	for _, m := range msgs {
		s += m.ID
	}
	return s
}

func TestSoftDeleteRefreshesPreview(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()

	msgs, err := db.ListMessages(ctx, "demo_chat_7", "", 50)
	if err != nil {
		t.Fatal(err)
	}
	last := msgs[len(msgs)-1]
	if err := db.SoftDeleteMessage(ctx, last.ID); err != nil {
		t.Fatal(err)
	}
	c, err := db.GetChat(ctx, "demo_chat_7", DemoUser.ID)
	if err != nil {
		t.Fatal(err)
	}
	if c.LastMessagePreview != msgs[len(msgs)-2].Text {
		t.Errorf("preview = %q, want %q", c.LastMessagePreview, msgs[len(msgs)-2].Text)
	}
	after, _ := db.ListMessages(ctx, "demo_chat_7", "", 50)
	if len(after) != len(msgs)-1 {
		t.Errorf("visible messages = %d, want %d", len(after), len(msgs)-1)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	if m, err := db.GetMessage(ctx, "nope"); m != nil || err != nil {
		t.Errorf("GetMessage = %v, %v", m, err)
	}
	if c, err := db.GetChat(ctx, "nope", "u"); c != nil || err != nil {
		t.Errorf("GetChat = %v, %v", c, err)
	}
	if u, err := db.GetUser(ctx, "nope"); u != nil || err != nil {
		t.Errorf("GetUser = %v, %v", u, err)
	}
}
