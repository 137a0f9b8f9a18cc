package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kingchat/kingchat/internal/chat"
)

// InsertMessage stores m, updates the chat preview and bumps the unread
// counter of every member except the sender, in one transaction.
func (db *DB) InsertMessage(ctx context.Context, m chat.Message) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := m.Timestamp.UnixMilli()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, chat_id, sender_id, sender_name, text, message_type, reply_to, forwarded_from, client_msg_id, timestamp, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, m.SenderID, m.SenderName, m.Text, string(m.Type),
		m.ReplyTo, m.ForwardedFrom, m.ClientMsgID, ts, ts); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE chats SET last_message_at = ?, last_message_preview = ?, updated_at = ?
		WHERE id = ?`, ts, chat.Preview(m.Text, 100), ts, m.ConversationID); err != nil {
		return fmt.Errorf("update chat preview: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE chat_members SET unread_count = unread_count + 1
		WHERE chat_id = ? AND user_id != ?`, m.ConversationID, m.SenderID); err != nil {
		return fmt.Errorf("bump unread: %w", err)
	}
	return tx.Commit()
}

const messageColumns = `id, chat_id, sender_id, sender_name, text, message_type, reply_to, forwarded_from, client_msg_id, is_edited, is_deleted, timestamp`

func scanMessage(scan func(...any) error) (chat.Message, error) {
	var (
		m               chat.Message
		typ             string
		edited, deleted bool
		ts              int64
	)
	if err := scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderName, &m.Text, &typ,
		&m.ReplyTo, &m.ForwardedFrom, &m.ClientMsgID, &edited, &deleted, &ts); err != nil {
		return m, err
	}
	m.Type = chat.ContentType(typ)
	m.Timestamp = time.UnixMilli(ts)
	switch {
	case deleted:
		m.Status = chat.Deleted
	case edited:
		m.Status = chat.Edited
	default:
		m.Status = chat.Sent
	}
	return m, nil
}

// GetMessage returns a message by id with its reactions, or nil if it does
// not exist.
func (db *DB) GetMessage(ctx context.Context, id string) (*chat.Message, error) {
	row := db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	return db.oneMessage(ctx, row)
}

// MessageByClientID returns the message senderID stored under clientMsgID,
// or nil.
func (db *DB) MessageByClientID(ctx context.Context, senderID, clientMsgID string) (*chat.Message, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE sender_id = ? AND client_msg_id = ?`, senderID, clientMsgID)
	return db.oneMessage(ctx, row)
}

func (db *DB) oneMessage(ctx context.Context, row *sql.Row) (*chat.Message, error) {
	m, err := scanMessage(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	msgs := []chat.Message{m}
	if err := db.attachReactions(ctx, msgs); err != nil {
		return nil, err
	}
	return &msgs[0], nil
}

func (db *DB) collect(ctx context.Context, rows *sql.Rows) ([]chat.Message, error) {
	defer func() { _ = rows.Close() }()
	var msgs []chat.Message
	for rows.Next() {
		m, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := db.attachReactions(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListMessages returns up to limit visible messages of chatID older than the
// message beforeID (all when empty), in chronological order.
func (db *DB) ListMessages(ctx context.Context, chatID, beforeID string, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var (
		rows *sql.Rows
		err  error
	)
	if beforeID == "" {
		rows, err = db.QueryContext(ctx, `
			SELECT `+messageColumns+` FROM messages
			WHERE chat_id = ? AND is_deleted = 0
			ORDER BY timestamp DESC, rowid DESC
			LIMIT ?`, chatID, limit)
	} else {
		rows, err = db.QueryContext(ctx, `
			SELECT `+messageColumns+` FROM messages
			WHERE chat_id = ? AND is_deleted = 0
			  AND (timestamp, rowid) < (SELECT timestamp, rowid FROM messages WHERE id = ?)
			ORDER BY timestamp DESC, rowid DESC
			LIMIT ?`, chatID, beforeID, limit)
	}
	if err != nil {
		return nil, err
	}
	msgs, err := db.collect(ctx, rows)
	if err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// SearchMessages returns visible messages whose text contains query, from the
// chats userID belongs to (only chatID when set), newest first.
func (db *DB) SearchMessages(ctx context.Context, userID, query, chatID string, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + likeEscaper.Replace(query) + "%"
	q := `
		SELECT ` + messageColumns + ` FROM messages
		WHERE is_deleted = 0 AND text LIKE ? ESCAPE '\'
		  AND chat_id IN (SELECT chat_id FROM chat_members WHERE user_id = ?)`
	args := []any{pattern, userID}
	if chatID != "" {
		q += ` AND chat_id = ?`
		args = append(args, chatID)
	}
	q += ` ORDER BY timestamp DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return db.collect(ctx, rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// AddReaction records emoji from userID on a message. Repeats are ignored.
func (db *DB) AddReaction(ctx context.Context, messageID, userID, emoji string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO message_reactions (message_id, user_id, emoji, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING`, messageID, userID, emoji, time.Now().UnixMilli())
	return err
}

// RemoveReaction drops emoji from userID on a message.
func (db *DB) RemoveReaction(ctx context.Context, messageID, userID, emoji string) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM message_reactions WHERE message_id = ? AND user_id = ? AND emoji = ?`,
		messageID, userID, emoji)
	return err
}

// attachReactions fills in the reactions of msgs, emojis in the order they
// were first used.
func (db *DB) attachReactions(ctx context.Context, msgs []chat.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	index := make(map[string]int, len(msgs))
	args := make([]any, 0, len(msgs))
	for i, m := range msgs {
		index[m.ID] = i
		args = append(args, m.ID)
	}
	rows, err := db.QueryContext(ctx, `
		SELECT message_id, emoji, user_id FROM message_reactions
		WHERE message_id IN (?`+strings.Repeat(", ?", len(args)-1)+`)
		ORDER BY created_at, rowid`, args...)
	if err != nil {
		return fmt.Errorf("list reactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var msgID, emoji, userID string
		if err := rows.Scan(&msgID, &emoji, &userID); err != nil {
			return err
		}
		m := &msgs[index[msgID]]
		i := slices.IndexFunc(m.Reactions, func(r chat.Reaction) bool { return r.Emoji == emoji })
		if i < 0 {
			m.Reactions = append(m.Reactions, chat.Reaction{Emoji: emoji})
			i = len(m.Reactions) - 1
		}
		m.Reactions[i].Users = append(m.Reactions[i].Users, userID)
	}
	return rows.Err()
}

// UpdateMessageText replaces the text of a message and flags it edited.
func (db *DB) UpdateMessageText(ctx context.Context, id, text string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var chatID string
	if err := tx.QueryRowContext(ctx, `SELECT chat_id FROM messages WHERE id = ?`, id).Scan(&chatID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE messages SET text = ?, is_edited = 1, updated_at = ? WHERE id = ?`,
		text, time.Now().UnixMilli(), id); err != nil {
		return err
	}
	if err := refreshChatPreview(ctx, tx, chatID); err != nil {
		return err
	}
	return tx.Commit()
}

// SoftDeleteMessage flags a message deleted and refreshes the chat preview.
func (db *DB) SoftDeleteMessage(ctx context.Context, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var chatID string
	if err := tx.QueryRowContext(ctx, `SELECT chat_id FROM messages WHERE id = ?`, id).Scan(&chatID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE messages SET is_deleted = 1, updated_at = ? WHERE id = ?`,
		time.Now().UnixMilli(), id); err != nil {
		return err
	}
	if err := refreshChatPreview(ctx, tx, chatID); err != nil {
		return err
	}
	return tx.Commit()
}
