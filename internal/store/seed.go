package store

import (
	"context"
	"fmt"
	"time"

	"github.com/kingchat/kingchat/internal/chat"
)

// DemoUser is the account returned by demo login.
var DemoUser = chat.User{ID: "demo_user_123", Name: "Usuário Demo", Username: "demo"}

type seedChat struct {
	record  ChatRecord
	members map[string]string // user id -> role
	unread  int
	lines   []seedLine
}

type seedLine struct {
	sender string
	text   string
	ago    time.Duration
}

var seedUsers = []chat.User{
	{ID: "user_maria", Name: "Maria Silva", Username: "maria"},
	{ID: "user_joao", Name: "João Santos", Username: "joao"},
	{ID: "user_ana", Name: "Ana Costa", Username: "ana"},
	{ID: "user_carlos", Name: "Carlos Oliveira", Username: "carlos"},
	{ID: "user_mae", Name: "Mãe", Username: "mae"},
	{ID: "user_pedro", Name: "Pedro", Username: "pedro"},
	{ID: "admin_user", Name: "Admin", Username: "admin"},
	{ID: "bot_assistant", Name: "AssistentBot", Username: "assistentbot"},
}

func seedChats(me string) []seedChat {
	private := func(id, name, other string, online bool, unread int, lines ...seedLine) seedChat {
		return seedChat{
			record:  ChatRecord{ID: id, Type: chat.Private, Name: name, Online: online},
			members: map[string]string{me: RoleMember, other: RoleMember},
			unread:  unread,
			lines:   lines,
		}
	}
	return []seedChat{
		private("demo_chat_1", "Maria Silva", "user_maria", true, 2,
			seedLine{"user_maria", "Oi! Como você está?", 32 * time.Minute},
			seedLine{me, "Oi Maria! Estou bem, e você?", 31 * time.Minute},
			seedLine{"user_maria", "Tudo ótimo por aqui!", 30 * time.Minute},
		),
		{
			record:  ChatRecord{ID: "demo_chat_2", Type: chat.Channel, Name: "Canal Tech News 📢", Verified: true},
			members: map[string]string{me: RoleMember, "admin_user": RoleOwner},
			lines: []seedLine{
				{"admin_user", "🚀 BREAKING: Nova atualização revolucionária do KingChat!", 40 * time.Minute},
				{"admin_user", "Breaking: Nova atualização revolucionária lançada!", 38 * time.Minute},
			},
		},
		{
			record:  ChatRecord{ID: "demo_chat_3", Type: chat.Bot, Name: "🤖 AssistentBot", Verified: true},
			members: map[string]string{me: RoleMember, "bot_assistant": RoleOwner},
			lines: []seedLine{
				{"bot_assistant", "Olá! Sou seu assistente pessoal do KingChat 🤖", 50 * time.Minute},
				{"bot_assistant", "Como posso ajudar você hoje?", 49 * time.Minute},
			},
		},
		private("demo_chat_5", "João Santos", "user_joao", false, 0,
			seedLine{"user_joao", "Vamos marcar aquele encontro", 77 * time.Minute},
			seedLine{me, "Claro! Que tal amanhã?", 76 * time.Minute},
			seedLine{"user_joao", "Perfeito! Às 19h no café da esquina", 75 * time.Minute},
		),
		private("demo_chat_6", "Ana Costa", "user_ana", true, 1,
			seedLine{me, "Conseguiu terminar o projeto?", 3 * time.Hour},
			seedLine{"user_ana", "Sim! Graças à sua ajuda", 2*time.Hour + 15*time.Minute},
			seedLine{"user_ana", "Obrigada pela ajuda hoje! 😊", 2*time.Hour + 10*time.Minute},
		),
		{
			record: ChatRecord{ID: "demo_chat_4", Type: chat.Group, Name: "Grupo Família 👨‍👩‍👧‍👦"},
			members: map[string]string{
				me: RoleMember, "user_mae": RoleOwner, "user_pedro": RoleMember,
			},
			unread: 5,
			lines: []seedLine{
				{"user_mae", "Pessoal, como foi o dia de vocês?", 4 * time.Hour},
				{me, "Tudo bem aqui! Trabalhando muito", 3*time.Hour + 45*time.Minute},
				{"user_pedro", "Vai ter churrasco no domingo!", 3*time.Hour + 15*time.Minute},
			},
		},
		{
			// Public and not joined: the demo user can find it with :join.
			record: ChatRecord{
				ID: "demo_public_1", Type: chat.Group, Name: "Comunidade KingChat 👑",
				Description: "Dicas e novidades para quem usa o KingChat", Public: true,
			},
			members: map[string]string{"admin_user": RoleOwner, "user_ana": RoleMember},
			lines: []seedLine{
				{"admin_user", "Bem-vindos à comunidade!", 6 * time.Hour},
				{"user_ana", "Alguém sabe como encaminhar mensagens?", 5*time.Hour + 50*time.Minute},
			},
		},
		private("demo_chat_7", "Carlos Oliveira", "user_carlos", false, 0,
			seedLine{"user_carlos", "Bom dia! Precisa do relatório hoje?", 5 * time.Hour},
			seedLine{me, "Bom dia Carlos! Sim, pode enviar quando puder", 4*time.Hour + 45*time.Minute},
			seedLine{"user_carlos", "Documento enviado por email", 4*time.Hour + 30*time.Minute},
		),
	}
}

// SeedDemo installs the demo conversations for user unless it already
// belongs to a chat. Message timestamps are relative to now.
func (db *DB) SeedDemo(ctx context.Context, user chat.User, now time.Time) (bool, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_members WHERE user_id = ?`, user.ID).Scan(&n); err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	if err := db.UpsertUser(ctx, user); err != nil {
		return false, err
	}
	names := map[string]string{user.ID: "Você"}
	for _, u := range seedUsers {
		if err := db.UpsertUser(ctx, u); err != nil {
			return false, err
		}
		names[u.ID] = u.Name
	}

	for _, sc := range seedChats(user.ID) {
		rec := sc.record
		rec.ID = scopedChatID(rec.ID, user.ID)
		if err := db.UpsertChat(ctx, rec); err != nil {
			return false, fmt.Errorf("seed chat %s: %w", rec.ID, err)
		}
		for id, role := range sc.members {
			if err := db.AddMember(ctx, rec.ID, id, role, 0); err != nil {
				return false, err
			}
		}
		for i, line := range sc.lines {
			m := chat.Message{
				ID:             fmt.Sprintf("%s_msg_%d", rec.ID, i+1),
				ConversationID: rec.ID,
				SenderID:       line.sender,
				SenderName:     names[line.sender],
				Text:           line.text,
				Type:           chat.ContentText,
				Timestamp:      now.Add(-line.ago),
			}
			if err := db.InsertMessage(ctx, m); err != nil {
				return false, fmt.Errorf("seed message %s: %w", m.ID, err)
			}
		}
		// Unread counters reflect the seed, not the inserted history.
		if role, ok := sc.members[user.ID]; ok {
			if err := db.AddMember(ctx, rec.ID, user.ID, role, sc.unread); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}

// scopedChatID keeps seeded chats of different accounts apart. The demo
// account keeps the well-known ids.
func scopedChatID(id, userID string) string {
	if userID == DemoUser.ID {
		return id
	}
	return id + "_" + userID
}
