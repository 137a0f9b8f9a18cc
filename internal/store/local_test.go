package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kingchat/kingchat/internal/chat"
)

func TestLocalSendAndList(t *testing.T) {
	l := seededDB(t).As(DemoUser)
	ctx := context.Background()

	m, err := l.SendMessage(ctx, "demo_chat_5", chat.Draft{Text: "  hi  "})
	if err != nil {
		t.Fatal(err)
	}
	if m.ID == "" || m.Text != "hi" || m.Status != chat.Sent || m.SenderID != DemoUser.ID {
		t.Errorf("sent = %+v", m)
	}
	msgs, err := l.ListMessages(ctx, "demo_chat_5", chat.Page{Limit: 50})
	if err != nil {
		t.Fatal(err)
	}
	if got := msgs[len(msgs)-1]; got.ID != m.ID {
		t.Errorf("last message = %s, want %s", got.ID, m.ID)
	}
	convs, _ := l.ListConversations(ctx)
	if convs[0].ID != "demo_chat_5" || convs[0].LastMessagePreview != "hi" {
		t.Errorf("first conversation = %+v", convs[0])
	}
}

func TestLocalErrors(t *testing.T) {
	l := seededDB(t).As(DemoUser)
	ctx := context.Background()

	msgs, _ := l.ListMessages(ctx, "demo_chat_1", chat.Page{})
	var theirs, mine string
	for _, m := range msgs {
		if m.SenderID == DemoUser.ID {
			mine = m.ID
		} else {
			theirs = m.ID
		}
	}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"blank send", errOf(l.SendMessage(ctx, "demo_chat_1", chat.Draft{Text: " "})), chat.ErrValidation},
		{"unknown chat", errOf(l.SendMessage(ctx, "nope", chat.Draft{Text: "x"})), chat.ErrNotFound},
		{"channel post", errOf(l.SendMessage(ctx, "demo_chat_2", chat.Draft{Text: "x"})), chat.ErrForbidden},
		{"edit others", errOf(l.EditMessage(ctx, theirs, "x")), chat.ErrForbidden},
		{"edit blank", errOf(l.EditMessage(ctx, mine, "")), chat.ErrValidation},
		{"delete others", l.DeleteMessage(ctx, theirs), chat.ErrForbidden},
		{"delete unknown", l.DeleteMessage(ctx, "nope"), chat.ErrNotFound},
		{"list unknown", errOf(l.ListMessages(ctx, "nope", chat.Page{})), chat.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("err = %v, want %v", tt.err, tt.want)
			}
		})
	}
}

func errOf(_ any, err error) error { return err }

func TestLocalEditAndDelete(t *testing.T) {
	l := seededDB(t).As(DemoUser)
	ctx := context.Background()

	m, _ := l.SendMessage(ctx, "demo_chat_1", chat.Draft{Text: "first"})
	edited, err := l.EditMessage(ctx, m.ID, "second")
	if err != nil {
		t.Fatal(err)
	}
	if edited.Text != "second" || edited.Status != chat.Edited {
		t.Errorf("edited = %+v", edited)
	}
	if err := l.DeleteMessage(ctx, m.ID); err != nil {
		t.Fatal(err)
	}
	if err := l.DeleteMessage(ctx, m.ID); !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestLocalForward(t *testing.T) {
	l := seededDB(t).As(DemoUser)
	ctx := context.Background()

	m, _ := l.SendMessage(ctx, "demo_chat_1", chat.Draft{Text: "olha isso"})
	res, err := l.ForwardMessage(ctx, m.ID, []string{"demo_chat_5", "nope", "demo_chat_6"}, "veja")
	if err != nil {
		t.Fatal(err)
	}
	if res.SentCount() != 2 || res.FailedCount() != 1 || res.Failed[0].ConversationID != "nope" {
		t.Errorf("result = %+v", res)
	}
	msgs, _ := l.ListMessages(ctx, "demo_chat_6", chat.Page{})
	fwd := msgs[len(msgs)-1]
	if fwd.ForwardedFrom != DemoUser.ID || !strings.Contains(fwd.Text, forwardBanner) || !strings.HasPrefix(fwd.Text, "veja") {
		t.Errorf("forwarded = %+v", fwd)
	}

	if _, err := l.ForwardMessage(ctx, m.ID, nil, ""); !errors.Is(err, chat.ErrValidation) {
		t.Errorf("empty targets err = %v, want ErrValidation", err)
	}
}

func TestLocalMarkReadAndDeliver(t *testing.T) {
	l := seededDB(t).As(DemoUser)
	ctx := context.Background()

	if err := l.MarkRead(ctx, "demo_chat_1"); err != nil {
		t.Fatal(err)
	}
	c, _ := l.db.GetChat(ctx, "demo_chat_1", DemoUser.ID)
	if c.UnreadCount != 0 {
		t.Errorf("unread = %d, want 0", c.UnreadCount)
	}

	others, err := l.Counterparts(ctx, "demo_chat_1")
	if err != nil || len(others) != 1 || others[0].ID != "user_maria" {
		t.Fatalf("counterparts = %v, %v", others, err)
	}
	if _, err := l.Deliver(ctx, "demo_chat_1", others[0], "Entendi! 👍"); err != nil {
		t.Fatal(err)
	}
	c, _ = l.db.GetChat(ctx, "demo_chat_1", DemoUser.ID)
	if c.UnreadCount != 1 || c.LastMessagePreview != "Entendi! 👍" {
		t.Errorf("after deliver = %+v", c)
	}
}

func TestLocalPrivacy(t *testing.T) {
	l := seededDB(t).As(DemoUser)
	ctx := context.Background()

	got, err := l.GetPrivacySettings(ctx, chat.Global)
	if err != nil {
		t.Fatal(err)
	}
	if got != chat.DefaultPrivacy() {
		t.Errorf("default = %+v", got)
	}

	global := chat.DefaultPrivacy()
	global.ShowLastSeen = false
	if err := l.SetPrivacySettings(ctx, chat.Global, global); err != nil {
		t.Fatal(err)
	}
	inherited, _ := l.GetPrivacySettings(ctx, chat.Scope{ContactID: "user_maria"})
	if inherited.ShowLastSeen || !inherited.SeeLastSeen {
		t.Errorf("inherited = %+v", inherited)
	}

	override := chat.PrivacySettings{ShowOnlineStatus: true}
	if err := l.SetPrivacySettings(ctx, chat.Scope{ContactID: "user_maria"}, override); err != nil {
		t.Fatal(err)
	}
	if got, _ := l.GetPrivacySettings(ctx, chat.Scope{ContactID: "user_maria"}); got != override {
		t.Errorf("override = %+v, want %+v", got, override)
	}

	if err := l.SetPrivacySettings(ctx, chat.Scope{ContactID: DemoUser.ID}, override); !errors.Is(err, chat.ErrValidation) {
		t.Errorf("self scope err = %v", err)
	}
	if err := l.SetPrivacySettings(ctx, chat.Scope{ContactID: "ghost"}, override); !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("unknown contact err = %v", err)
	}
}

func TestLocalDemoLogin(t *testing.T) {
	l := testDB(t).As(DemoUser)
	ctx := context.Background()
	token, user, err := l.DemoLogin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if token == "" || user.ID != DemoUser.ID {
		t.Errorf("login = %q, %+v", token, user)
	}
	me, err := l.Me(ctx)
	if err != nil || me.Name != "Usuário Demo" {
		t.Errorf("Me() = %+v, %v", me, err)
	}
}

func TestLocalSendIsIdempotentOnClientID(t *testing.T) {
	l := seededDB(t).As(DemoUser)
	ctx := context.Background()

	draft := chat.Draft{Text: "once", ClientMsgID: "c-1"}
	first, err := l.SendMessage(ctx, "demo_chat_5", draft)
	if err != nil {
		t.Fatal(err)
	}
	again, err := l.SendMessage(ctx, "demo_chat_5", draft)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != first.ID || again.ClientMsgID != "c-1" {
		t.Errorf("retry = %+v, want %s", again, first.ID)
	}
	msgs, _ := l.ListMessages(ctx, "demo_chat_5", chat.Page{})
	n := 0
	for _, m := range msgs {
		if m.ClientMsgID == "c-1" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("stored %d copies, want 1", n)
	}
	if _, err := l.SendMessage(ctx, "demo_chat_6", draft); !errors.Is(err, chat.ErrValidation) {
		t.Errorf("reuse in another chat err = %v, want ErrValidation", err)
	}
}

func TestLocalCreateAndDeleteConversation(t *testing.T) {
	db := seededDB(t)
	l := db.As(DemoUser)
	ctx := context.Background()

	c, err := l.CreateConversation(ctx, chat.NewConversation{
		Name: " Viagem ", Type: chat.Group, Participants: []string{"user_maria", "user_joao"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != "Viagem" || c.Role != chat.RoleOwner || !c.CanDelete() || c.Type != chat.Group {
		t.Errorf("created = %+v", c)
	}
	maria := db.As(chat.User{ID: "user_maria", Name: "Maria Silva"})
	if got, err := maria.Conversation(ctx, c.ID); err != nil || got.Role != chat.RoleMember {
		t.Errorf("maria sees %+v, %v", got, err)
	}

	tests := []struct {
		name string
		nc   chat.NewConversation
		want error
	}{
		{"blank name", chat.NewConversation{Name: " ", Type: chat.Group}, chat.ErrValidation},
		{"private without peer", chat.NewConversation{Name: "x", Type: chat.Private}, chat.ErrValidation},
		{"private with self", chat.NewConversation{Name: "x", Type: chat.Private, Participants: []string{DemoUser.ID}}, chat.ErrValidation},
		{"unknown participant", chat.NewConversation{Name: "x", Type: chat.Group, Participants: []string{"ghost"}}, chat.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := l.CreateConversation(ctx, tt.nc); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if err := maria.DeleteConversation(ctx, c.ID); !errors.Is(err, chat.ErrForbidden) {
		t.Errorf("member delete err = %v, want ErrForbidden", err)
	}
	if _, err := l.SendMessage(ctx, c.ID, chat.Draft{Text: "bye"}); err != nil {
		t.Fatal(err)
	}
	if err := l.DeleteConversation(ctx, c.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := l.ListMessages(ctx, c.ID, chat.Page{}); !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("list after delete err = %v, want ErrNotFound", err)
	}
	var orphans int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE chat_id = ?`, c.ID).Scan(&orphans); err != nil || orphans != 0 {
		t.Errorf("messages left = %d, %v", orphans, err)
	}
}

func TestLocalJoinAndLeave(t *testing.T) {
	l := seededDB(t).As(DemoUser)
	ctx := context.Background()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"join unknown", errOf(l.JoinConversation(ctx, "nope")), chat.ErrNotFound},
		{"leave unknown", l.LeaveConversation(ctx, "nope"), chat.ErrNotFound},
		{"leave not joined", l.LeaveConversation(ctx, "demo_public_1"), chat.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("err = %v, want %v", tt.err, tt.want)
			}
		})
	}

	joined, err := l.JoinConversation(ctx, "demo_public_1")
	if err != nil {
		t.Fatal(err)
	}
	if !joined.Public || joined.Role != chat.RoleMember || joined.Description == "" {
		t.Errorf("joined = %+v", joined)
	}
	if _, err := l.JoinConversation(ctx, "demo_public_1"); err != nil {
		t.Errorf("second join err = %v", err)
	}
	if err := l.LeaveConversation(ctx, "demo_public_1"); err != nil {
		t.Fatal(err)
	}
	convs, _ := l.ListConversations(ctx)
	for _, c := range convs {
		if c.ID == "demo_public_1" {
			t.Error("left chat still listed")
		}
	}

	// A private chat cannot be joined by outsiders.
	outsider := l.db.As(chat.User{ID: "user_carlos"})
	if _, err := outsider.JoinConversation(ctx, "demo_chat_1"); !errors.Is(err, chat.ErrForbidden) {
		t.Errorf("join private err = %v, want ErrForbidden", err)
	}

	mine, _ := l.CreateConversation(ctx, chat.NewConversation{Name: "Meu", Type: chat.Group})
	if err := l.LeaveConversation(ctx, mine.ID); !errors.Is(err, chat.ErrForbidden) {
		t.Errorf("owner leave err = %v, want ErrForbidden", err)
	}
}

func TestLocalReactions(t *testing.T) {
	db := seededDB(t)
	l := db.As(DemoUser)
	maria := db.As(chat.User{ID: "user_maria", Name: "Maria Silva"})
	ctx := context.Background()

	m, _ := l.SendMessage(ctx, "demo_chat_1", chat.Draft{Text: "festa sábado"})
	if _, err := l.React(ctx, m.ID, "👍"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.React(ctx, m.ID, "👍"); err != nil {
		t.Fatal(err)
	}
	if _, err := maria.React(ctx, m.ID, "🎉"); err != nil {
		t.Fatal(err)
	}
	got, err := maria.React(ctx, m.ID, "👍")
	if err != nil {
		t.Fatal(err)
	}
	want := []chat.Reaction{
		{Emoji: "👍", Users: []string{DemoUser.ID, "user_maria"}},
		{Emoji: "🎉", Users: []string{"user_maria"}},
	}
	if len(got.Reactions) != 2 || got.Reactions[0].Emoji != "👍" || got.Reactions[0].Count() != 2 || got.Reactions[1].Emoji != "🎉" {
		t.Errorf("reactions = %+v, want %+v", got.Reactions, want)
	}
	if !got.ReactedBy(DemoUser.ID, "👍") || got.ReactedBy(DemoUser.ID, "🎉") {
		t.Errorf("ReactedBy wrong for %+v", got.Reactions)
	}

	after, err := l.Unreact(ctx, m.ID, "👍")
	if err != nil {
		t.Fatal(err)
	}
	if after.Reactions[0].Count() != 1 || after.ReactedBy(DemoUser.ID, "👍") {
		t.Errorf("after unreact = %+v", after.Reactions)
	}
	if _, err := l.Unreact(ctx, m.ID, "🎉"); err != nil {
		t.Errorf("unreact of someone else's emoji err = %v", err)
	}
	msgs, _ := l.ListMessages(ctx, "demo_chat_1", chat.Page{})
	if last := msgs[len(msgs)-1]; len(last.Reactions) != 2 {
		t.Errorf("listed reactions = %+v", last.Reactions)
	}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"blank emoji", errOf(l.React(ctx, m.ID, " ")), chat.ErrValidation},
		{"unknown message", errOf(l.React(ctx, "nope", "👍")), chat.ErrNotFound},
		{"not a member", errOf(db.As(chat.User{ID: "user_carlos"}).React(ctx, m.ID, "👍")), chat.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("err = %v, want %v", tt.err, tt.want)
			}
		})
	}
}

func TestLocalSearchMessages(t *testing.T) {
	l := seededDB(t).As(DemoUser)
	ctx := context.Background()

	first, _ := l.SendMessage(ctx, "demo_chat_1", chat.Draft{Text: "reunião amanhã"})
	second, _ := l.SendMessage(ctx, "demo_chat_5", chat.Draft{Text: "a REUNIÃO foi adiada"})
	gone, _ := l.SendMessage(ctx, "demo_chat_5", chat.Draft{Text: "reunião cancelada"})
	if err := l.DeleteMessage(ctx, gone.ID); err != nil {
		t.Fatal(err)
	}
	l.SendMessage(ctx, "demo_chat_6", chat.Draft{Text: "100% pronto"})

	ids := func(msgs []chat.Message) []string {
		var out []string
		for _, m := range msgs {
			out = append(out, m.ID)
		}
		return out
	}

	got, err := l.SearchMessages(ctx, "reunião", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != first.ID {
		// SQLite LIKE folds ASCII case only.
		t.Errorf("search = %v, want [%s]", ids(got), first.ID)
	}
	got, _ = l.SearchMessages(ctx, "reuni", "", 10)
	if len(got) != 2 || got[0].ID != second.ID || got[1].ID != first.ID {
		t.Errorf("newest first = %v, want [%s %s]", ids(got), second.ID, first.ID)
	}
	got, _ = l.SearchMessages(ctx, "reuni", "demo_chat_1", 10)
	if len(got) != 1 || got[0].ID != first.ID {
		t.Errorf("scoped = %v", ids(got))
	}
	got, _ = l.SearchMessages(ctx, "reuni", "", 1)
	if len(got) != 1 {
		t.Errorf("limit 1 returned %d", len(got))
	}
	got, _ = l.SearchMessages(ctx, "%", "", 10)
	if len(got) != 1 || got[0].Text != "100% pronto" {
		t.Errorf("literal %% = %v", ids(got))
	}
	// The public chat is not joined, so its history stays out of results.
	if got, _ := l.SearchMessages(ctx, "comunidade", "", 10); len(got) != 0 {
		t.Errorf("unjoined chat leaked %v", ids(got))
	}

	if _, err := l.SearchMessages(ctx, " ", "", 10); !errors.Is(err, chat.ErrValidation) {
		t.Errorf("blank query err = %v", err)
	}
	if _, err := l.SearchMessages(ctx, "x", "demo_public_1", 10); !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("unjoined chat err = %v", err)
	}
}
