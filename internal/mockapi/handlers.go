package mockapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kingchat/kingchat/internal/api"
	"github.com/kingchat/kingchat/internal/chat"
	"github.com/kingchat/kingchat/internal/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// backend resolves the authenticated user and returns a store view acting as them.
func (s *Server) backend(w http.ResponseWriter, r *http.Request) (*store.Local, bool) {
	userID := GetUserID(r.Context())
	u, err := s.db.GetUser(r.Context(), userID)
	if err != nil {
		s.fail(w, r, "load user", err)
		return nil, false
	}
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unknown user")
		return nil, false
	}
	return s.db.As(*u), true
}

// fail writes err with the status of its kind. Unexpected errors are logged
// and hidden from the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	status := api.StatusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("action", action),
			zap.Error(err),
			zap.String("correlation_id", GetCorrelationID(r.Context())),
		)
		writeError(w, status, "failed to "+action)
		return
	}
	writeError(w, status, err.Error())
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "KingChat API is running! 👑"})
}

// health handles GET /api/health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.Health{
		Status:    "healthy",
		Service:   "KingChat API",
		Version:   "1.0.0",
		Timestamp: s.now().UTC(),
	})
}

// demoLogin handles POST /api/auth/demo-login
func (s *Server) demoLogin(w http.ResponseWriter, r *http.Request) {
	// The local token is discarded; API clients get a signed JWT instead.
	_, user, err := s.db.As(store.DemoUser).DemoLogin(r.Context())
	if err != nil {
		s.fail(w, r, "log in", err)
		return
	}
	token, err := IssueToken(s.cfg.JWTSecret, user.ID, user.Name, s.cfg.JWTExpiration, s.now())
	if err != nil {
		s.fail(w, r, "issue token", err)
		return
	}
	s.logger.Info("demo login", zap.String("user_id", user.ID))
	writeJSON(w, http.StatusOK, api.LoginResponse{AccessToken: token, TokenType: "bearer", User: user})
}

// me handles GET /api/auth/me
func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	local, ok := s.backend(w, r)
	if !ok {
		return
	}
	u, err := local.Me(r.Context())
	if err != nil {
		s.fail(w, r, "load user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// listChats handles GET /api/chats
func (s *Server) listChats(w http.ResponseWriter, r *http.Request) {
	local, ok := s.backend(w, r)
	if !ok {
		return
	}
	convs, err := local.ListConversations(r.Context())
	if err != nil {
		s.fail(w, r, "list chats", err)
		return
	}
	out := make([]api.Chat, 0, len(convs))
	for _, c := range convs {
		out = append(out, api.ChatFromModel(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// getChat handles GET /api/chats/{id}
func (s *Server) getChat(w http.ResponseWriter, r *http.Request) {
	local, ok := s.backend(w, r)
	if !ok {
		return
	}
	c, err := local.Conversation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, "get chat", err)
		return
	}
	writeJSON(w, http.StatusOK, api.ChatFromModel(c))
}

// createChat handles POST /api/chats
func (s *Server) createChat(w http.ResponseWriter, r *http.Request) {
	local, ok := s.backend(w, r)
	if !ok {
		return
	}
	var req api.CreateChatRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := local.CreateConversation(r.Context(), req.Model())
	if err != nil {
		s.fail(w, r, "create chat", err)
		return
	}
	s.logger.Info("chat created", zap.String("chat_id", c.ID), zap.String("type", string(c.Type)))
	writeJSON(w, http.StatusCreated, api.ChatFromModel(c))
}

// deleteChat handles DELETE /api/chats/{id}
func (s *Server) deleteChat(w http.ResponseWriter, r *http.Request) {
	local, ok := s.backend(w, r)
	if !ok {
		return
	}
	if err := local.DeleteConversation(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, "delete chat", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Chat deleted successfully"})
}

// joinChat handles POST /api/chats/{id}/join
func (s *Server) joinChat(w http.ResponseWriter, r *http.Request) {
	local, ok := s.backend(w, r)
	if !ok {
		return
	}
	c, err := local.JoinConversation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, "join chat", err)
		return
	}
	writeJSON(w, http.StatusOK, api.ChatFromModel(c))
}

// leaveChat handles POST /api/chats/{id}/leave
func (s *Server) leaveChat(w http.ResponseWriter, r *http.Request) {
	local, ok := s.backend(w, r)
	if !ok {
		return
	}
	if err := local.LeaveConversation(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, "leave chat", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully left chat"})
}

// listMessages handles GET /api/chats/{id}/messages?limit=&before=
func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	local, ok := s.backend(w, r)
	if !ok {
		return
	}
	page := chat.Page{Limit: defaultPageSize, Before: r.URL.Query().Get("before")}
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		page.Limit = min(parsed, maxPageSize)
	}
	msgs, err := local.ListMessages(r.Context(), chi.URLParam(r, "id"), page)
	if err != nil {
		s.fail(w, r, "list messages", err)
		return
	}
	out := make([]api.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, api.MessageFromModel(m))
	}
	writeJSON(w, http.StatusOK, out)
}

// sendMessage handles POST /api/chats/{id}/messages
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	local, ok := s.backend(w, r)
	if !ok {
		return
	}
	var req api.SendRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	m, err := local.SendMessage(r.Context(), chi.URLParam(r, "id"), chat.Draft{
		Text:        req.Text,
		Type:        chat.ContentType(req.MessageType),
		ReplyTo:     req.ReplyTo,
		ClientMsgID: req.ClientMsgID,
	})
	if err != nil {
		s.fail(w, r, "send message", err)
		return
	}
	writeJSON(w, http.StatusOK, api.SendResponse{Message: api.MessageFromModel(m)})
}

// markChatRead handles POST /api/chats/{id}/read
func (s *Server) markChatRead(w http.ResponseWriter, r *http.Request) {
	local, ok := s.backend(w, r)
	if !ok {
		return
	}
	if err := local.MarkRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, "mark chat read", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Chat marked as read"})
}

// editMessage handles PUT /api/messages/{id}
func (s *Server) editMessage(w http.ResponseWriter, r *http.Request) {
	local, ok := s.backend(w, r)
	if !ok {
		return
	}
	var req api.EditRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	m, err := local.EditMessage(r.Context(), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		s.fail(w, r, "edit message", err)
		return
	}
	writeJSON(w, http.StatusOK, api.MessageFromModel(m))
}

// deleteMessage handles DELETE /api/messages/{id}
func (s *Server) deleteMessage(w http.ResponseWriter, r *http.Request) {
	local, ok := s.backend(w, r)
	if !ok {
		return
	}
	if err := local.DeleteMessage(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, "delete message", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Message deleted successfully"})
}

// markMessageRead handles POST /api/messages/{id}/read
func (s *Server) markMessageRead(w http.ResponseWriter, r *http.Request) {
	local, ok := s.backend(w, r)
	if !ok {
		return
	}
	m, err := local.Message(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, "mark message read", err)
		return
	}
	if err := local.MarkRead(r.Context(), m.ConversationID); err != nil {
		s.fail(w, r, "mark message read", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Message marked as read"})
}

// forwardMessage handles POST /api/messages/{id}/forward
func (s *Server) forwardMessage(w http.ResponseWriter, r *http.Request) {
	local, ok := s.backend(w, r)
	if !ok {
		return
	}
	var req api.ForwardRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := local.ForwardMessage(r.Context(), chi.URLParam(r, "id"), req.TargetChatIDs, req.AddCaption)
	if err != nil {
		s.fail(w, r, "forward message", err)
		return
	}
	writeJSON(w, http.StatusOK, api.ForwardFromModel(res))
}

// getGlobalPrivacy handles GET /api/privacy
func (s *Server) getGlobalPrivacy(w http.ResponseWriter, r *http.Request) {
	local, ok := s.backend(w, r)
	if !ok {
		return
	}
	p, err := local.GetPrivacySettings(r.Context(), chat.Global)
	if err != nil {
		s.fail(w, r, "load privacy settings", err)
		return
	}
	writeJSON(w, http.StatusOK, api.GlobalFromModel(p))
}

// putGlobalPrivacy handles PUT /api/privacy
func (s *Server) putGlobalPrivacy(w http.ResponseWriter, r *http.Request) {
	local, ok := s.backend(w, r)
	if !ok {
		return
	}
	var req api.GlobalPrivacy
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := local.SetPrivacySettings(r.Context(), chat.Global, req.Model()); err != nil {
		s.fail(w, r, "save privacy settings", err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// getContactPrivacy handles GET /api/privacy/contacts/{id}
func (s *Server) getContactPrivacy(w http.ResponseWriter, r *http.Request) {
	local, ok := s.backend(w, r)
	if !ok {
		return
	}
	contactID := chi.URLParam(r, "id")
	p, err := local.GetPrivacySettings(r.Context(), chat.Scope{ContactID: contactID})
	if err != nil {
		s.fail(w, r, "load privacy settings", err)
		return
	}
	writeJSON(w, http.StatusOK, api.ContactFromModel(contactID, p))
}

// putContactPrivacy handles PUT /api/privacy/contacts/{id}
func (s *Server) putContactPrivacy(w http.ResponseWriter, r *http.Request) {
	local, ok := s.backend(w, r)
	if !ok {
		return
	}
	var req api.ContactPrivacy
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	contactID := chi.URLParam(r, "id")
	if req.ContactID != "" && req.ContactID != contactID {
		writeError(w, http.StatusBadRequest, "contact id does not match the path")
		return
	}
	if err := local.SetPrivacySettings(r.Context(), chat.Scope{ContactID: contactID}, req.Model()); err != nil {
		s.fail(w, r, "save privacy settings", err)
		return
	}
	req.ContactID = contactID
	writeJSON(w, http.StatusOK, req)
}

// react handles POST /api/messages/{id}/react?emoji=
func (s *Server) react(w http.ResponseWriter, r *http.Request) {
	local, ok := s.backend(w, r)
	if !ok {
		return
	}
	m, err := local.React(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("emoji"))
	if err != nil {
		s.fail(w, r, "add reaction", err)
		return
	}
	writeJSON(w, http.StatusOK, api.MessageFromModel(m))
}

// unreact handles DELETE /api/messages/{id}/react/{emoji}
func (s *Server) unreact(w http.ResponseWriter, r *http.Request) {
	local, ok := s.backend(w, r)
	if !ok {
		return
	}
	m, err := local.Unreact(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "emoji"))
	if err != nil {
		s.fail(w, r, "remove reaction", err)
		return
	}
	writeJSON(w, http.StatusOK, api.MessageFromModel(m))
}

// searchMessages handles GET /api/search/messages?q=&chat_id=&limit=
func (s *Server) searchMessages(w http.ResponseWriter, r *http.Request) {
	local, ok := s.backend(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	limit := defaultPageSize
	if l := q.Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(parsed, maxPageSize)
	}
	msgs, err := local.SearchMessages(r.Context(), q.Get("q"), q.Get("chat_id"), limit)
	if err != nil {
		s.fail(w, r, "search messages", err)
		return
	}
	out := make([]api.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, api.MessageFromModel(m))
	}
	writeJSON(w, http.StatusOK, out)
}
