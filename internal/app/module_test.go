package app

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/kingchat/kingchat/internal/chat"
	"github.com/kingchat/kingchat/internal/config"
	"github.com/kingchat/kingchat/internal/lock"
	"github.com/kingchat/kingchat/internal/mockapi"
	"github.com/kingchat/kingchat/internal/session"
	"github.com/kingchat/kingchat/internal/status"
	"github.com/kingchat/kingchat/internal/store"
)

func startClient(t *testing.T, cfg *config.Config) *Client {
	t.Helper()
	t.Setenv(session.HomeEnv, t.TempDir())
	var c *Client
	app := fxtest.New(t,
		Module(Params{SessionName: "test", Command: "kingchat-test", Config: cfg}),
		fx.Populate(&c),
	)
	app.RequireStart()
	t.Cleanup(app.RequireStop)
	return c
}

func offlineConfig() *config.Config {
	cfg := config.Default()
	cfg.Offline = true
	cfg.BotReplyDelay.Duration = 10 * time.Millisecond
	return cfg
}

func TestOfflineLifecycle(t *testing.T) {
	c := startClient(t, offlineConfig())
	ctx := context.Background()

	if !c.Offline() {
		t.Fatal("expected local backend")
	}
	if err := c.Resume(ctx); err != nil {
		t.Fatal(err)
	}
	if got := c.Status.Current(); got != status.AuthRequired {
		t.Fatalf("status = %s, want AUTH_REQUIRED", got)
	}

	user, err := c.Login(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if user.ID != store.DemoUser.ID {
		t.Errorf("user = %+v", user)
	}
	if got := c.Status.Current(); got != status.Offline {
		t.Errorf("status = %s, want OFFLINE", got)
	}
	if n := len(c.Store.All()); n != 7 {
		t.Errorf("conversations = %d, want 7", n)
	}

	if err := c.Engine.Open(ctx, "demo_chat_5"); err != nil {
		t.Fatal(err)
	}
	c.Engine.Wait()
	before := len(c.Store.ActiveMessages())
	if _, err := c.Sender.Send(ctx, "demo_chat_5", chat.Draft{Text: "oi João"}); err != nil {
		t.Fatal(err)
	}

	// The confirmed send and the simulated reply both land in the thread.
	deadline := time.Now().Add(3 * time.Second)
	for len(c.Store.ActiveMessages()) < before+2 {
		if time.Now().After(deadline) {
			t.Fatalf("thread = %+v", c.Store.ActiveMessages())
		}
		time.Sleep(10 * time.Millisecond)
	}
	msgs := c.Store.ActiveMessages()
	if own := msgs[before]; !own.IsOwn || own.Status != chat.Sent {
		t.Errorf("own message = %+v", own)
	}
	if reply := msgs[before+1]; reply.IsOwn || reply.SenderID != "user_joao" {
		t.Errorf("reply = %+v", reply)
	}

	if err := c.Logout(); err != nil {
		t.Fatal(err)
	}
	if c.Status.Current() != status.AuthRequired || len(c.Store.All()) != 0 {
		t.Error("logout left state behind")
	}
}

func TestSessionLockHeld(t *testing.T) {
	c := startClient(t, offlineConfig())
	_, err := lock.Acquire(session.LockPath(c.Session), "second")
	var held *lock.HeldError
	if !errors.As(err, &held) {
		t.Fatalf("err = %v, want HeldError", err)
	}
}

func TestRemoteBackendSelected(t *testing.T) {
	db, err := store.OpenMigrated(filepath.Join(t.TempDir(), "mock.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	srv := httptest.NewServer(mockapi.NewServer(db, mockapi.Config{
		JWTSecret:         "s",
		JWTExpiration:     time.Hour,
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
	}, nil).Router())
	defer srv.Close()

	cfg := config.Default()
	cfg.APIURL = srv.URL
	c := startClient(t, cfg)
	if c.Offline() || c.Backends.Remote == nil {
		t.Fatal("expected remote backend")
	}
	if _, err := c.Login(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := c.Status.Current(); got != status.Ready {
		t.Errorf("status = %s, want READY", got)
	}
	if c.Backends.Remote.Token() == "" {
		t.Error("token not set after login")
	}
}

func TestUnreachableAPIFallsBack(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	cfg := config.Default()
	cfg.APIURL = url
	c := startClient(t, cfg)
	if !c.Offline() {
		t.Error("expected local fallback")
	}
}
