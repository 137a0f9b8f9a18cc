package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/kingchat/kingchat/internal/chat"
)

// GetPrivacy returns the stored settings of userID for contactID ("" for the
// account defaults), or nil if none were saved.
func (db *DB) GetPrivacy(ctx context.Context, userID, contactID string) (*chat.PrivacySettings, error) {
	var p chat.PrivacySettings
	err := db.QueryRowContext(ctx, `
		SELECT show_read_receipts, show_last_seen, show_online_status,
			see_read_receipts, see_last_seen, see_online_status
		FROM privacy_settings WHERE user_id = ? AND contact_id = ?`, userID, contactID).
		Scan(&p.ShowReadReceipts, &p.ShowLastSeen, &p.ShowOnlineStatus,
			&p.SeeReadReceipts, &p.SeeLastSeen, &p.SeeOnlineStatus)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertPrivacy stores the settings of userID for contactID.
func (db *DB) UpsertPrivacy(ctx context.Context, userID, contactID string, p chat.PrivacySettings) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO privacy_settings (user_id, contact_id,
			show_read_receipts, show_last_seen, show_online_status,
			see_read_receipts, see_last_seen, see_online_status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, contact_id) DO UPDATE SET
			show_read_receipts = excluded.show_read_receipts,
			show_last_seen = excluded.show_last_seen,
			show_online_status = excluded.show_online_status,
			see_read_receipts = excluded.see_read_receipts,
			see_last_seen = excluded.see_last_seen,
			see_online_status = excluded.see_online_status,
			updated_at = excluded.updated_at`,
		userID, contactID,
		p.ShowReadReceipts, p.ShowLastSeen, p.ShowOnlineStatus,
		p.SeeReadReceipts, p.SeeLastSeen, p.SeeOnlineStatus,
		time.Now().UnixMilli())
	return err
}
