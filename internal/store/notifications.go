package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DueSoonAssignment names an assignee who should be warned that a card's due
// date is approaching.
type DueSoonAssignment struct {
	CardID     string
	CardTitle  string
	DueDate    time.Time
	BoardID    string
	AssigneeID string
}

func (s *PostgresStore) InsertNotification(ctx context.Context, notification Notification) (Notification, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO notifications (id, user_id, type, card_id, comment_id, title, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, notification.ID, notification.UserID, notification.Type, notification.CardID,
		notification.CommentID, notification.Title, notification.Message).
		Scan(&notification.CreatedAt)
	if err != nil {
		return Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return notification, nil
}

func (s *PostgresStore) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error) {
	query := `
		SELECT id, user_id, type, card_id, comment_id, title, message, read_at, created_at
		FROM notifications WHERE user_id=$1
	`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := make([]Notification, 0)
	for rows.Next() {
		var item Notification
		var cardID, commentID sql.NullString
		var readAt sql.NullTime
		if err := rows.Scan(&item.ID, &item.UserID, &item.Type, &cardID, &commentID,
			&item.Title, &item.Message, &readAt, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if cardID.Valid {
			item.CardID = &cardID.String
		}
		if commentID.Valid {
			item.CommentID = &commentID.String
		}
		item.ReadAt = scanNullTime(readAt)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UnreadNotificationCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND read_at IS NULL
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) MarkNotificationRead(ctx context.Context, notificationID, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read_at=NOW()
		WHERE id=$1 AND user_id=$2 AND read_at IS NULL
	`, notificationID, userID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark notification read rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ListDueSoonAssignments(ctx context.Context, within time.Duration) ([]DueSoonAssignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.due_date, c.board_id, ca.user_id
		FROM cards c
		JOIN card_assignees ca ON ca.card_id = c.id
		WHERE c.due_date IS NOT NULL
		  AND c.due_date >= CURRENT_DATE
		  AND c.due_date <= CURRENT_DATE + $1::interval
	`, fmt.Sprintf("%d hours", int(within.Hours())))
	if err != nil {
		return nil, fmt.Errorf("list due soon assignments: %w", err)
	}
	defer rows.Close()

	items := make([]DueSoonAssignment, 0)
	for rows.Next() {
		var item DueSoonAssignment
		if err := rows.Scan(&item.CardID, &item.CardTitle, &item.DueDate, &item.BoardID, &item.AssigneeID); err != nil {
			return nil, fmt.Errorf("scan due soon assignment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due soon assignments: %w", err)
	}
	return items, nil
}

// HasDueSoonNotification prevents duplicate reminders for the same card and
// user.
func (s *PostgresStore) HasDueSoonNotification(ctx context.Context, userID, cardID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM notifications
			WHERE user_id=$1 AND card_id=$2 AND type='card_due_soon'
		)
	`, userID, cardID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check due soon notification: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read_at=NOW() WHERE user_id=$1 AND read_at IS NULL
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read rows: %w", err)
	}
	return affected, nil
}
