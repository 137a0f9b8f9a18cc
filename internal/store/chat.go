package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kingchat/kingchat/internal/chat"
)

// Member roles.
const (
	RoleMember = chat.RoleMember
	RoleAdmin  = chat.RoleAdmin
	RoleOwner  = chat.RoleOwner
)

// ChatRecord is a chat row as written by UpsertChat.
type ChatRecord struct {
	ID          string
	Type        chat.ChatType
	Name        string
	Description string
	Avatar      string
	Online      bool
	Verified    bool
	Public      bool
	CreatedBy   string
}

// UpsertChat inserts or updates a chat record, leaving its preview untouched.
func (db *DB) UpsertChat(ctx context.Context, c ChatRecord) error {
	return upsertChat(ctx, db, c)
}

func upsertChat(ctx context.Context, ex execer, c ChatRecord) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO chats (id, type, name, description, avatar, is_online, is_verified, is_public, created_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			name = excluded.name,
			description = excluded.description,
			avatar = excluded.avatar,
			is_online = excluded.is_online,
			is_verified = excluded.is_verified,
			is_public = excluded.is_public,
			updated_at = excluded.updated_at`,
		c.ID, string(c.Type), c.Name, c.Description, c.Avatar, c.Online, c.Verified, c.Public,
		c.CreatedBy, time.Now().UnixMilli())
	return err
}

// CreateChat stores a new chat and its members in one transaction. members
// maps user id to role.
func (db *DB) CreateChat(ctx context.Context, c ChatRecord, members map[string]string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertChat(ctx, tx, c); err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}
	for userID, role := range members {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_members (chat_id, user_id, role) VALUES (?, ?, ?)`,
			c.ID, userID, role); err != nil {
			return fmt.Errorf("add member %s: %w", userID, err)
		}
	}
	return tx.Commit()
}

// DeleteChat removes a chat. Members, messages and reactions go with it.
func (db *DB) DeleteChat(ctx context.Context, chatID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, chatID)
	return err
}

// ChatAccess reports whether chatID exists and whether anyone may join it.
func (db *DB) ChatAccess(ctx context.Context, chatID string) (exists, public bool, err error) {
	err = db.QueryRowContext(ctx, `SELECT is_public FROM chats WHERE id = ?`, chatID).Scan(&public)
	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return true, public, nil
}

// RemoveMember drops userID from chatID.
func (db *DB) RemoveMember(ctx context.Context, chatID, userID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM chat_members WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	return err
}

// AddMember adds userID to a chat with the given role.
func (db *DB) AddMember(ctx context.Context, chatID, userID, role string, unread int) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO chat_members (chat_id, user_id, role, unread_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chat_id, user_id) DO UPDATE SET
			role = excluded.role,
			unread_count = excluded.unread_count`,
		chatID, userID, role, unread)
	return err
}

// MemberRole returns the role of userID in chatID, or "" if not a member.
func (db *DB) MemberRole(ctx context.Context, chatID, userID string) (string, error) {
	var role string
	err := db.QueryRowContext(ctx, `SELECT role FROM chat_members WHERE chat_id = ? AND user_id = ?`, chatID, userID).
		Scan(&role)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return role, err
}

// Members returns the users of chatID other than exclude.
func (db *DB) Members(ctx context.Context, chatID, exclude string) ([]chat.User, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT u.id, u.name, u.username, u.is_premium
		FROM chat_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.chat_id = ? AND m.user_id != ?
		ORDER BY u.id`, chatID, exclude)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var users []chat.User
	for rows.Next() {
		var u chat.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Username, &u.Premium); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

const chatColumns = `
	c.id, c.type, c.name, c.description, c.avatar, c.is_online, c.is_verified, c.is_public,
	c.last_message_at, c.last_message_preview, m.unread_count, m.muted, m.role`

func scanConversation(scan func(...any) error) (chat.Conversation, error) {
	var (
		c      chat.Conversation
		typ    string
		lastAt int64
	)
	if err := scan(&c.ID, &typ, &c.Name, &c.Description, &c.Avatar, &c.Online, &c.Verified, &c.Public,
		&lastAt, &c.LastMessagePreview, &c.UnreadCount, &c.Muted, &c.Role); err != nil {
		return c, err
	}
	c.Type = chat.ParseChatType(typ)
	if lastAt > 0 {
		c.LastMessageAt = time.UnixMilli(lastAt)
	}
	return c, nil
}

// ListChats returns the chats userID belongs to, most recent first.
func (db *DB) ListChats(ctx context.Context, userID string) ([]chat.Conversation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+chatColumns+`
		FROM chats c
		JOIN chat_members m ON m.chat_id = c.id AND m.user_id = ?
		ORDER BY c.last_message_at DESC, c.id`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []chat.Conversation
	for rows.Next() {
		c, err := scanConversation(rows.Scan)
		if err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// GetChat returns a chat as seen by userID, or nil if userID is not a member.
func (db *DB) GetChat(ctx context.Context, chatID, userID string) (*chat.Conversation, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+chatColumns+`
		FROM chats c
		JOIN chat_members m ON m.chat_id = c.id AND m.user_id = ?
		WHERE c.id = ?`, userID, chatID)
	c, err := scanConversation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// MarkRead zeroes the unread counter of userID in chatID.
func (db *DB) MarkRead(ctx context.Context, chatID, userID string) error {
	_, err := db.ExecContext(ctx, `UPDATE chat_members SET unread_count = 0 WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	return err
}

// refreshChatPreview recomputes the preview from the newest visible message.
func refreshChatPreview(ctx context.Context, ex execer, chatID string) error {
	_, err := ex.ExecContext(ctx, `
		UPDATE chats SET
			last_message_preview = COALESCE((
				SELECT text FROM messages
				WHERE chat_id = ? AND is_deleted = 0
				ORDER BY timestamp DESC, rowid DESC LIMIT 1), ''),
			last_message_at = COALESCE((
				SELECT MAX(timestamp) FROM messages
				WHERE chat_id = ? AND is_deleted = 0), last_message_at),
			updated_at = ?
		WHERE id = ?`, chatID, chatID, time.Now().UnixMilli(), chatID)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
