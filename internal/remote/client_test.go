package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/kingchat/kingchat/internal/chat"
	"github.com/kingchat/kingchat/internal/mockapi"
	"github.com/kingchat/kingchat/internal/store"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := store.OpenMigrated(filepath.Join(t.TempDir(), "mock.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	cfg := mockapi.Config{
		JWTSecret:         "test-secret",
		JWTExpiration:     time.Hour,
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
	}
	srv := httptest.NewServer(mockapi.NewServer(db, cfg, nil).Router())
	t.Cleanup(srv.Close)
	return srv
}

func loggedIn(t *testing.T) *Client {
	t.Helper()
	c := New(testServer(t).URL, 5*time.Second, nil)
	if _, _, err := c.DemoLogin(context.Background()); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestHealthAndLogin(t *testing.T) {
	c := New(testServer(t).URL, 5*time.Second, nil)
	ctx := context.Background()

	if err := c.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}
	if _, err := c.ListConversations(ctx); !errors.Is(err, chat.ErrForbidden) {
		t.Errorf("unauthenticated list err = %v, want ErrForbidden", err)
	}

	token, user, err := c.DemoLogin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if token == "" || c.Token() != token {
		t.Errorf("token not kept")
	}
	if user.ID != store.DemoUser.ID {
		t.Errorf("user = %+v", user)
	}
	me, err := c.Me(ctx)
	if err != nil || me.ID != user.ID {
		t.Errorf("Me = %+v, %v", me, err)
	}

	c.SetToken("garbage")
	if _, err := c.Me(ctx); !errors.Is(err, chat.ErrForbidden) {
		t.Errorf("bad token err = %v, want ErrForbidden", err)
	}
}

func TestConversationsAndMessages(t *testing.T) {
	c := loggedIn(t)
	ctx := context.Background()

	convs, err := c.ListConversations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 7 {
		t.Fatalf("conversations = %d, want 7", len(convs))
	}
	counts := chat.CountFolders(convs)
	if counts[chat.FolderUnread] != 3 || counts[chat.FolderChannels] != 1 || counts[chat.FolderBots] != 1 {
		t.Errorf("folder counts = %v", counts)
	}

	msgs, err := c.ListMessages(ctx, "demo_chat_1", chat.Page{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("page = %d, want 2", len(msgs))
	}
	older, err := c.ListMessages(ctx, "demo_chat_1", chat.Page{Limit: 10, Before: msgs[0].ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(older) != 1 || older[0].Text != "Oi! Como você está?" {
		t.Errorf("older = %+v", older)
	}

	if _, err := c.ListMessages(ctx, "nope", chat.Page{}); !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("unknown chat err = %v, want ErrNotFound", err)
	}
}

func TestSendEditDelete(t *testing.T) {
	c := loggedIn(t)
	ctx := context.Background()

	m, err := c.SendMessage(ctx, "demo_chat_5", chat.Draft{Text: "olá"})
	if err != nil {
		t.Fatal(err)
	}
	if m.ID == "" || m.Status != chat.Sent || m.SenderID != store.DemoUser.ID || m.Timestamp.IsZero() {
		t.Errorf("sent = %+v", m)
	}

	edited, err := c.EditMessage(ctx, m.ID, "olá de novo")
	if err != nil {
		t.Fatal(err)
	}
	if edited.Status != chat.Edited || edited.Text != "olá de novo" {
		t.Errorf("edited = %+v", edited)
	}
	if err := c.DeleteMessage(ctx, m.ID); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteMessage(ctx, m.ID); !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"channel post", errOf(c.SendMessage(ctx, "demo_chat_2", chat.Draft{Text: "x"})), chat.ErrForbidden},
		{"edit missing", errOf(c.EditMessage(ctx, "missing", "x")), chat.ErrNotFound},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, tt.err, tt.want)
		}
	}

	msgs, _ := c.ListMessages(ctx, "demo_chat_1", chat.Page{})
	for _, other := range msgs {
		if other.SenderID == store.DemoUser.ID {
			continue
		}
		if _, err := c.EditMessage(ctx, other.ID, "x"); !errors.Is(err, chat.ErrForbidden) {
			t.Errorf("edit others err = %v, want ErrForbidden", err)
		}
		break
	}
}

func errOf(_ any, err error) error { return err }

func TestForwardPartial(t *testing.T) {
	c := loggedIn(t)
	ctx := context.Background()
	msgs, _ := c.ListMessages(ctx, "demo_chat_1", chat.Page{Limit: 1})

	res, err := c.ForwardMessage(ctx, msgs[0].ID, []string{"demo_chat_5", "nope"}, "veja")
	if err != nil {
		t.Fatal(err)
	}
	if res.SentCount() != 1 || res.FailedCount() != 1 || res.Failed[0].ConversationID != "nope" {
		t.Errorf("result = %+v", res)
	}
	if _, err := c.ForwardMessage(ctx, msgs[0].ID, nil, ""); !errors.Is(err, chat.ErrValidation) {
		t.Errorf("empty targets err = %v, want ErrValidation", err)
	}
}

func TestMarkReadAndPrivacy(t *testing.T) {
	c := loggedIn(t)
	ctx := context.Background()

	if err := c.MarkRead(ctx, "demo_chat_1"); err != nil {
		t.Fatal(err)
	}
	convs, _ := c.ListConversations(ctx)
	for _, conv := range convs {
		if conv.ID == "demo_chat_1" && conv.UnreadCount != 0 {
			t.Errorf("unread = %d after mark read", conv.UnreadCount)
		}
	}

	global := chat.DefaultPrivacy()
	global.ShowLastSeen = false
	if err := c.SetPrivacySettings(ctx, chat.Global, global); err != nil {
		t.Fatal(err)
	}
	got, err := c.GetPrivacySettings(ctx, chat.Global)
	if err != nil || got.ShowLastSeen {
		t.Errorf("global = %+v, %v", got, err)
	}

	contact := chat.Scope{ContactID: "user_maria"}
	inherited, err := c.GetPrivacySettings(ctx, contact)
	if err != nil || inherited.ShowLastSeen {
		t.Errorf("contact inherits = %+v, %v", inherited, err)
	}
	p := chat.DefaultPrivacy()
	p.SeeOnlineStatus = false
	if err := c.SetPrivacySettings(ctx, contact, p); err != nil {
		t.Fatal(err)
	}
	got, _ = c.GetPrivacySettings(ctx, contact)
	if got.SeeOnlineStatus || !got.ShowLastSeen {
		t.Errorf("contact = %+v", got)
	}
	if err := c.SetPrivacySettings(ctx, chat.Scope{ContactID: "ghost"}, p); !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("unknown contact err = %v, want ErrNotFound", err)
	}
}

func TestTransportAndServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	c := New(srv.URL, time.Second, nil)
	if err := c.Health(context.Background()); !errors.Is(err, chat.ErrNetwork) {
		t.Errorf("5xx err = %v, want ErrNetwork", err)
	}
	srv.Close()
	if err := c.Health(context.Background()); !errors.Is(err, chat.ErrNetwork) {
		t.Errorf("closed server err = %v, want ErrNetwork", err)
	}
}

func TestCorrelationHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Correlation-ID")
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()
	c := New(srv.URL, time.Second, nil)
	c.SetToken("tok")
	if _, err := c.ListConversations(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(got) != 36 {
		t.Errorf("correlation id = %q", got)
	}
}

func TestConversationLifecycle(t *testing.T) {
	c := loggedIn(t)
	ctx := context.Background()

	created, err := c.CreateConversation(ctx, chat.NewConversation{
		Name: "Viagem", Type: chat.Group, Participants: []string{"user_joao"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.Role != chat.RoleOwner || created.Type != chat.Group {
		t.Errorf("created = %+v", created)
	}
	if err := c.LeaveConversation(ctx, created.ID); !errors.Is(err, chat.ErrForbidden) {
		t.Errorf("owner leave err = %v, want ErrForbidden", err)
	}
	if err := c.DeleteConversation(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteConversation(ctx, "demo_chat_4"); !errors.Is(err, chat.ErrForbidden) {
		t.Errorf("member delete err = %v, want ErrForbidden", err)
	}

	joined, err := c.JoinConversation(ctx, "demo_public_1")
	if err != nil {
		t.Fatal(err)
	}
	if !joined.Public || joined.Role != chat.RoleMember {
		t.Errorf("joined = %+v", joined)
	}
	if err := c.LeaveConversation(ctx, "demo_public_1"); err != nil {
		t.Fatal(err)
	}

	if _, err := c.CreateConversation(ctx, chat.NewConversation{Name: " "}); !errors.Is(err, chat.ErrValidation) {
		t.Errorf("blank create err = %v, want ErrValidation", err)
	}
}

func TestReactAndSearch(t *testing.T) {
	c := loggedIn(t)
	ctx := context.Background()

	m, err := c.SendMessage(ctx, "demo_chat_6", chat.Draft{Text: "parabéns pelo projeto", ClientMsgID: "c-7"})
	if err != nil {
		t.Fatal(err)
	}
	if m.ClientMsgID != "c-7" {
		t.Errorf("client id = %q, want c-7", m.ClientMsgID)
	}

	reacted, err := c.React(ctx, m.ID, "🎉")
	if err != nil {
		t.Fatal(err)
	}
	if !reacted.ReactedBy(store.DemoUser.ID, "🎉") {
		t.Errorf("reactions = %+v", reacted.Reactions)
	}
	found, err := c.SearchMessages(ctx, "parabéns", "demo_chat_6", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].ID != m.ID || len(found[0].Reactions) != 1 {
		t.Errorf("search = %+v", found)
	}
	unreacted, err := c.Unreact(ctx, m.ID, "🎉")
	if err != nil {
		t.Fatal(err)
	}
	if len(unreacted.Reactions) != 0 {
		t.Errorf("after unreact = %+v", unreacted.Reactions)
	}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"blank emoji", errOf(c.React(ctx, m.ID, "")), chat.ErrValidation},
		{"react missing", errOf(c.React(ctx, "missing", "👍")), chat.ErrNotFound},
		{"blank query", errOf(c.SearchMessages(ctx, " ", "", 0)), chat.ErrValidation},
		{"foreign chat", errOf(c.SearchMessages(ctx, "x", "demo_public_1", 0)), chat.ErrNotFound},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, tt.err, tt.want)
		}
	}
}
