package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/skillshare/internal/model"
	"github.com/sakif/skillshare/internal/repository"
)

var _ repository.NotificationRepository = (*DB)(nil)

const notificationColumns = `id, user_id, sender_id, sender_username, sender_profile_picture,
	type, message, read, created_at`

func (db *DB) CreateNotification(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = xid.New().String()
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO notifications (`+notificationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.SenderID, n.SenderUsername, nullString(n.SenderProfilePicture),
		string(n.Type), n.Message, n.Read, toNanos(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting notification: %w", err)
	}
	return nil
}

func (db *DB) ListNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notifications: %w", err)
	}
	defer rows.Close()

	out := []model.Notification{}
	for rows.Next() {
		var (
			n       model.Notification
			kind    string
			picture sql.NullString
			created int64
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.SenderID, &n.SenderUsername, &picture,
			&kind, &n.Message, &n.Read, &created); err != nil {
			return nil, fmt.Errorf("sqlite: scanning notification: %w", err)
		}
		n.Type = model.NotificationType(kind)
		n.SenderProfilePicture = stringPtr(picture)
		n.CreatedAt = fromNanos(created)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating notifications: %w", err)
	}
	return out, nil
}

func (db *DB) MarkNotificationRead(ctx context.Context, id, userID string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("sqlite: marking notification %s read: %w", id, err)
	}
	return requireRow(res, "notification", id)
}
