package mockapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kingchat/kingchat/internal/api"
	"github.com/kingchat/kingchat/internal/store"
)

func testRouter(t *testing.T, cfg Config) http.Handler {
	t.Helper()
	db, err := store.OpenMigrated(filepath.Join(t.TempDir(), "mock.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "test-secret"
	}
	if cfg.JWTExpiration == 0 {
		cfg.JWTExpiration = time.Hour
	}
	if cfg.RateLimitRequests == 0 {
		cfg.RateLimitRequests = 1000
		cfg.RateLimitWindow = time.Minute
	}
	return NewServer(db, cfg, nil).Router()
}

func serve(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := serve(h, http.MethodPost, "/api/auth/demo-login", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body)
	}
	var resp api.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.TokenType != "bearer" || resp.User.ID != store.DemoUser.ID {
		t.Errorf("login = %+v", resp)
	}
	return resp.AccessToken
}

func TestPublicRoutes(t *testing.T) {
	h := testRouter(t, Config{})
	for _, path := range []string{"/api/", "/api/health", "/metrics"} {
		if rec := serve(h, http.MethodGet, path, "", ""); rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, rec.Code)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	h := testRouter(t, Config{})
	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not-a-jwt"},
		{"wrong secret", mustToken(t, "other-secret", time.Hour)},
		{"expired", mustToken(t, "test-secret", -time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, http.MethodGet, "/api/chats", tt.token, "")
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			var body api.ErrorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error == "" {
				t.Errorf("body = %s", rec.Body)
			}
		})
	}
}

func mustToken(t *testing.T, secret string, ttl time.Duration) string {
	t.Helper()
	tok, err := IssueToken(secret, store.DemoUser.ID, "", ttl, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestUnknownSubject(t *testing.T) {
	h := testRouter(t, Config{})
	tok, _ := IssueToken("test-secret", "nobody", "", time.Hour, time.Now())
	if rec := serve(h, http.MethodGet, "/api/chats", tok, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestErrorStatuses(t *testing.T) {
	h := testRouter(t, Config{})
	tok := login(t, h)

	tests := []struct {
		name, method, path, body string
		want                     int
	}{
		{"list chats", http.MethodGet, "/api/chats", "", http.StatusOK},
		{"get chat", http.MethodGet, "/api/chats/demo_chat_1", "", http.StatusOK},
		{"unknown chat", http.MethodGet, "/api/chats/nope/messages", "", http.StatusNotFound},
		{"bad limit", http.MethodGet, "/api/chats/demo_chat_1/messages?limit=x", "", http.StatusBadRequest},
		{"bad body", http.MethodPost, "/api/chats/demo_chat_1/messages", "{", http.StatusBadRequest},
		{"blank text", http.MethodPost, "/api/chats/demo_chat_1/messages", `{"text":"  "}`, http.StatusBadRequest},
		{"channel post", http.MethodPost, "/api/chats/demo_chat_2/messages", `{"text":"x"}`, http.StatusForbidden},
		{"send", http.MethodPost, "/api/chats/demo_chat_1/messages", `{"text":"oi"}`, http.StatusOK},
		{"edit missing", http.MethodPut, "/api/messages/nope", `{"text":"x"}`, http.StatusNotFound},
		{"read chat", http.MethodPost, "/api/chats/demo_chat_1/read", "", http.StatusOK},
		{"privacy", http.MethodGet, "/api/privacy", "", http.StatusOK},
		{"privacy mismatch", http.MethodPut, "/api/privacy/contacts/user_ana", `{"contact_id":"user_joao"}`, http.StatusBadRequest},
		{"privacy self", http.MethodPut, "/api/privacy/contacts/demo_user_123", `{}`, http.StatusBadRequest},
		{"create blank", http.MethodPost, "/api/chats", `{"name":" "}`, http.StatusBadRequest},
		{"create unknown member", http.MethodPost, "/api/chats", `{"name":"x","participants":["ghost"]}`, http.StatusNotFound},
		{"create", http.MethodPost, "/api/chats", `{"name":"Amigos","participants":["user_ana"]}`, http.StatusCreated},
		{"delete not owner", http.MethodDelete, "/api/chats/demo_chat_4", "", http.StatusForbidden},
		{"join unknown", http.MethodPost, "/api/chats/nope/join", "", http.StatusNotFound},
		{"join public", http.MethodPost, "/api/chats/demo_public_1/join", "", http.StatusOK},
		{"leave public", http.MethodPost, "/api/chats/demo_public_1/leave", "", http.StatusOK},
		{"leave again", http.MethodPost, "/api/chats/demo_public_1/leave", "", http.StatusNotFound},
		{"react blank", http.MethodPost, "/api/messages/demo_chat_1_msg_1/react?emoji=", "", http.StatusBadRequest},
		{"react missing", http.MethodPost, "/api/messages/nope/react?emoji=x", "", http.StatusNotFound},
		{"react", http.MethodPost, "/api/messages/demo_chat_1_msg_1/react?emoji=%F0%9F%91%8D", "", http.StatusOK},
		{"unreact", http.MethodDelete, "/api/messages/demo_chat_1_msg_1/react/%F0%9F%91%8D", "", http.StatusOK},
		{"search blank", http.MethodGet, "/api/search/messages?q=", "", http.StatusBadRequest},
		{"search bad limit", http.MethodGet, "/api/search/messages?q=oi&limit=0", "", http.StatusBadRequest},
		{"search foreign chat", http.MethodGet, "/api/search/messages?q=oi&chat_id=nope", "", http.StatusNotFound},
		{"search", http.MethodGet, "/api/search/messages?q=Maria", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.method, tt.path, tok, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body, err)
	}
	return out
}

func TestChatLifecycle(t *testing.T) {
	h := testRouter(t, Config{})
	tok := login(t, h)

	rec := serve(h, http.MethodPost, "/api/chats", tok, `{"name":"Trabalho","type":"group","is_public":true,"participants":["user_carlos"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body)
	}
	created := decodeBody[api.Chat](t, rec)
	if created.Role != "owner" || !created.IsPublic || created.Type != "group" {
		t.Errorf("created = %+v", created)
	}

	listed := decodeBody[[]api.Chat](t, serve(h, http.MethodGet, "/api/chats", tok, ""))
	found := false
	for _, c := range listed {
		found = found || c.ID == created.ID
	}
	if !found {
		t.Error("created chat not listed")
	}

	if rec := serve(h, http.MethodPost, "/api/chats/"+created.ID+"/leave", tok, ""); rec.Code != http.StatusForbidden {
		t.Errorf("owner leave = %d, want 403", rec.Code)
	}
	if rec := serve(h, http.MethodDelete, "/api/chats/"+created.ID, tok, ""); rec.Code != http.StatusOK {
		t.Fatalf("delete = %d: %s", rec.Code, rec.Body)
	}
	if rec := serve(h, http.MethodGet, "/api/chats/"+created.ID, tok, ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
}

func TestReactionsAndSearch(t *testing.T) {
	h := testRouter(t, Config{})
	tok := login(t, h)

	rec := serve(h, http.MethodPost, "/api/chats/demo_chat_5/messages", tok, `{"text":"churrasco domingo","client_msg_id":"c-42"}`)
	sent := decodeBody[api.SendResponse](t, rec).Message
	if sent.ClientMsgID != "c-42" {
		t.Errorf("client id not echoed: %+v", sent)
	}
	again := decodeBody[api.SendResponse](t, serve(h, http.MethodPost, "/api/chats/demo_chat_5/messages", tok, `{"text":"churrasco domingo","client_msg_id":"c-42"}`)).Message
	if again.ID != sent.ID {
		t.Errorf("retried send stored twice: %s, %s", sent.ID, again.ID)
	}

	reacted := decodeBody[api.Message](t, serve(h, http.MethodPost, "/api/messages/"+sent.ID+"/react?emoji=%F0%9F%8D%96", tok, ""))
	if len(reacted.Reactions) != 1 || reacted.Reactions[0].Emoji != "🍖" || reacted.Reactions[0].Count != 1 {
		t.Errorf("reactions = %+v", reacted.Reactions)
	}

	found := decodeBody[[]api.Message](t, serve(h, http.MethodGet, "/api/search/messages?q=churrasco&limit=5", tok, ""))
	if len(found) != 2 || found[0].ID != sent.ID || len(found[0].Reactions) != 1 {
		// The seeded family group also talks about churrasco.
		t.Errorf("search = %+v", found)
	}

	unreacted := decodeBody[api.Message](t, serve(h, http.MethodDelete, "/api/messages/"+sent.ID+"/react/%F0%9F%8D%96", tok, ""))
	if len(unreacted.Reactions) != 0 {
		t.Errorf("after unreact = %+v", unreacted.Reactions)
	}
}

func TestCorrelationIDEchoed(t *testing.T) {
	h := testRouter(t, Config{})
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Correlation-ID"); got != "abc-123" {
		t.Errorf("correlation id = %q", got)
	}

	rec = serve(h, http.MethodGet, "/api/health", "", "")
	if got := rec.Header().Get("X-Correlation-ID"); got == "" {
		t.Error("no correlation id generated")
	}
}

func TestRateLimit(t *testing.T) {
	h := testRouter(t, Config{RateLimitRequests: 2, RateLimitWindow: time.Minute})
	var last int
	for i := 0; i < 3; i++ {
		last = serve(h, http.MethodPost, "/api/auth/demo-login", "", "").Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third login status = %d, want 429", last)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("RATE_LIMIT_REQUESTS", "oops")
	cfg := LoadConfig()
	if cfg.Port != "9999" || cfg.RateLimitWindow != 30*time.Second || cfg.RateLimitRequests != 120 {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.JWTExpiration != 30*24*time.Hour {
		t.Errorf("jwt expiration = %s", cfg.JWTExpiration)
	}
}
