// Package remote implements the chat backend over the KingChat HTTP API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kingchat/kingchat/internal/api"
	"github.com/kingchat/kingchat/internal/chat"
	"github.com/kingchat/kingchat/internal/logging"
)

var (
	_ chat.Backend       = (*Client)(nil)
	_ chat.Authenticator = (*Client)(nil)
)

// Client talks to <base>/api with a bearer token.
type Client struct {
	base   string
	http   *http.Client
	logger *zap.Logger

	mu    sync.RWMutex
	token string
}

// New creates a client for baseURL, e.g. http://localhost:8001. timeout
// bounds each request; zero means no bound.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		base:   strings.TrimRight(baseURL, "/") + "/api",
		http:   &http.Client{Timeout: timeout},
		logger: logging.OrNop(logger),
	}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	correlationID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Correlation-ID", correlationID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("method", method), zap.String("path", path),
			zap.String("correlation_id", correlationID), zap.Error(err))
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%s %s: %v: %w", method, path, err, chat.ErrNetwork)
	}
	defer resp.Body.Close()
	c.logger.Debug("request completed", zap.String("method", method), zap.String("path", path),
		zap.Int("status", resp.StatusCode), zap.Duration("duration", time.Since(start)),
		zap.String("correlation_id", correlationID))

	if resp.StatusCode >= http.StatusBadRequest {
		var e api.ErrorBody
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e)
		return fmt.Errorf("%s %s: %w", method, path, api.ErrorFor(resp.StatusCode, e.Error))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %v: %w", method, path, err, chat.ErrNetwork)
	}
	return nil
}

// Health probes the API. It is used to decide between remote and local mode.
func (c *Client) Health(ctx context.Context) error {
	var h api.Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return err
	}
	if h.Status != "healthy" {
		return fmt.Errorf("api status %q: %w", h.Status, chat.ErrNetwork)
	}
	return nil
}

// DemoLogin logs in as the demo user and keeps the returned token.
func (c *Client) DemoLogin(ctx context.Context) (string, chat.User, error) {
	var resp api.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/demo-login", nil, &resp); err != nil {
		return "", chat.User{}, err
	}
	if resp.AccessToken == "" {
		return "", chat.User{}, fmt.Errorf("login returned no token: %w", chat.ErrNetwork)
	}
	c.SetToken(resp.AccessToken)
	return resp.AccessToken, resp.User, nil
}

func (c *Client) Me(ctx context.Context) (chat.User, error) {
	var u chat.User
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, &u)
	return u, err
}

func (c *Client) ListConversations(ctx context.Context) ([]chat.Conversation, error) {
	var wire []api.Chat
	if err := c.do(ctx, http.MethodGet, "/chats", nil, &wire); err != nil {
		return nil, err
	}
	out := make([]chat.Conversation, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.Model())
	}
	return out, nil
}

func (c *Client) ListMessages(ctx context.Context, conversationID string, page chat.Page) ([]chat.Message, error) {
	q := url.Values{}
	if page.Limit > 0 {
		q.Set("limit", strconv.Itoa(page.Limit))
	}
	if page.Before != "" {
		q.Set("before", page.Before)
	}
	path := "/chats/" + url.PathEscape(conversationID) + "/messages"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var wire []api.Message
	if err := c.do(ctx, http.MethodGet, path, nil, &wire); err != nil {
		return nil, err
	}
	out := make([]chat.Message, 0, len(wire))
	for _, w := range wire {
		m := w.Model()
		if m.ConversationID == "" {
			m.ConversationID = conversationID
		}
		out = append(out, m)
	}
	return out, nil
}

func (c *Client) SendMessage(ctx context.Context, conversationID string, draft chat.Draft) (chat.Message, error) {
	if err := draft.Validate(); err != nil {
		return chat.Message{}, err
	}
	var resp api.SendResponse
	err := c.do(ctx, http.MethodPost, "/chats/"+url.PathEscape(conversationID)+"/messages", api.SendRequest{
		Text:        draft.Text,
		MessageType: string(draft.ContentType()),
		ReplyTo:     draft.ReplyTo,
		ClientMsgID: draft.ClientMsgID,
	}, &resp)
	if err != nil {
		return chat.Message{}, err
	}
	return resp.Message.Model(), nil
}

func (c *Client) EditMessage(ctx context.Context, messageID, text string) (chat.Message, error) {
	var resp api.Message
	if err := c.do(ctx, http.MethodPut, "/messages/"+url.PathEscape(messageID), api.EditRequest{Text: text}, &resp); err != nil {
		return chat.Message{}, err
	}
	return resp.Model(), nil
}

func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	return c.do(ctx, http.MethodDelete, "/messages/"+url.PathEscape(messageID), nil, nil)
}

func (c *Client) ForwardMessage(ctx context.Context, messageID string, targets []string, caption string) (chat.ForwardResult, error) {
	var resp api.ForwardResponse
	err := c.do(ctx, http.MethodPost, "/messages/"+url.PathEscape(messageID)+"/forward", api.ForwardRequest{
		TargetChatIDs: targets,
		AddCaption:    caption,
	}, &resp)
	if err != nil {
		return chat.ForwardResult{}, err
	}
	return resp.Model(), nil
}

func (c *Client) MarkRead(ctx context.Context, conversationID string) error {
	return c.do(ctx, http.MethodPost, "/chats/"+url.PathEscape(conversationID)+"/read", nil, nil)
}

func (c *Client) GetPrivacySettings(ctx context.Context, scope chat.Scope) (chat.PrivacySettings, error) {
	if scope.IsGlobal() {
		var g api.GlobalPrivacy
		if err := c.do(ctx, http.MethodGet, "/privacy", nil, &g); err != nil {
			return chat.PrivacySettings{}, err
		}
		return g.Model(), nil
	}
	var cp api.ContactPrivacy
	if err := c.do(ctx, http.MethodGet, "/privacy/contacts/"+url.PathEscape(scope.ContactID), nil, &cp); err != nil {
		return chat.PrivacySettings{}, err
	}
	return cp.Model(), nil
}

func (c *Client) SetPrivacySettings(ctx context.Context, scope chat.Scope, settings chat.PrivacySettings) error {
	if scope.IsGlobal() {
		return c.do(ctx, http.MethodPut, "/privacy", api.GlobalFromModel(settings), nil)
	}
	return c.do(ctx, http.MethodPut, "/privacy/contacts/"+url.PathEscape(scope.ContactID),
		api.ContactFromModel(scope.ContactID, settings), nil)
}

func (c *Client) CreateConversation(ctx context.Context, nc chat.NewConversation) (chat.Conversation, error) {
	if err := nc.Validate(); err != nil {
		return chat.Conversation{}, err
	}
	var resp api.Chat
	if err := c.do(ctx, http.MethodPost, "/chats", api.CreateChatFromModel(nc), &resp); err != nil {
		return chat.Conversation{}, err
	}
	return resp.Model(), nil
}

func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	return c.do(ctx, http.MethodDelete, "/chats/"+url.PathEscape(conversationID), nil, nil)
}

func (c *Client) JoinConversation(ctx context.Context, conversationID string) (chat.Conversation, error) {
	var resp api.Chat
	if err := c.do(ctx, http.MethodPost, "/chats/"+url.PathEscape(conversationID)+"/join", nil, &resp); err != nil {
		return chat.Conversation{}, err
	}
	return resp.Model(), nil
}

func (c *Client) LeaveConversation(ctx context.Context, conversationID string) error {
	return c.do(ctx, http.MethodPost, "/chats/"+url.PathEscape(conversationID)+"/leave", nil, nil)
}

func (c *Client) React(ctx context.Context, messageID, emoji string) (chat.Message, error) {
	if strings.TrimSpace(emoji) == "" {
		return chat.Message{}, fmt.Errorf("%w: emoji is empty", chat.ErrValidation)
	}
	path := "/messages/" + url.PathEscape(messageID) + "/react?" + url.Values{"emoji": {emoji}}.Encode()
	var resp api.Message
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return chat.Message{}, err
	}
	return resp.Model(), nil
}

func (c *Client) Unreact(ctx context.Context, messageID, emoji string) (chat.Message, error) {
	if strings.TrimSpace(emoji) == "" {
		return chat.Message{}, fmt.Errorf("%w: emoji is empty", chat.ErrValidation)
	}
	var resp api.Message
	err := c.do(ctx, http.MethodDelete, "/messages/"+url.PathEscape(messageID)+"/react/"+url.PathEscape(emoji), nil, &resp)
	if err != nil {
		return chat.Message{}, err
	}
	return resp.Model(), nil
}

func (c *Client) SearchMessages(ctx context.Context, query, conversationID string, limit int) ([]chat.Message, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query is empty", chat.ErrValidation)
	}
	q := url.Values{"q": {query}}
	if conversationID != "" {
		q.Set("chat_id", conversationID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var wire []api.Message
	if err := c.do(ctx, http.MethodGet, "/search/messages?"+q.Encode(), nil, &wire); err != nil {
		return nil, err
	}
	out := make([]chat.Message, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.Model())
	}
	return out, nil
}
