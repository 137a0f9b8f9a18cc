package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/kingchat/kingchat/internal/chat"
)

// UpsertUser inserts or updates a user record.
func (db *DB) UpsertUser(ctx context.Context, u chat.User) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, name, username, is_premium, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			username = excluded.username,
			is_premium = excluded.is_premium`,
		u.ID, u.Name, u.Username, u.Premium, time.Now().UnixMilli())
	return err
}

// GetUser returns a user by id, or nil if it does not exist.
func (db *DB) GetUser(ctx context.Context, id string) (*chat.User, error) {
	var u chat.User
	err := db.QueryRowContext(ctx, `SELECT id, name, username, is_premium FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Username, &u.Premium)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
