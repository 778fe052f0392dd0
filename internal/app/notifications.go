package app

import (
	"context"

	"taskboard/api/internal/realtime"
	"taskboard/api/internal/store"
	"taskboard/api/internal/util"
)

func (s *Service) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]store.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.ListNotifications(ctx, userID, unreadOnly, limit)
}

func (s *Service) UnreadNotificationCount(ctx context.Context, userID string) (int, error) {
	return s.store.UnreadNotificationCount(ctx, userID)
}

func (s *Service) MarkNotificationRead(ctx context.Context, notificationID, userID string) error {
	marked, err := s.store.MarkNotificationRead(ctx, notificationID, userID)
	if err != nil {
		return err
	}
	if !marked {
		return notFound("Notification not found")
	}
	return nil
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	return s.store.MarkAllNotificationsRead(ctx, userID)
}

// notify files a notification and pushes it to the recipient's workspace
// stream. Failures are logged; a lost notification never fails the operation
// that triggered it.
func (s *Service) notify(ctx context.Context, workspaceID string, notification store.Notification) {
	if notification.ID == "" {
		notification.ID = util.NewID()
	}
	saved, err := s.store.InsertNotification(ctx, notification)
	if err != nil {
		s.logger.Warn("insert notification", "type", notification.Type, "error", err)
		return
	}
	if s.rt == nil {
		return
	}
	s.rt.BroadcastWorkspace(workspaceID, realtime.Message{
		EventType: "notification",
		UserID:    saved.UserID,
		Payload: map[string]any{
			"notification_id": saved.ID,
			"type":            saved.Type,
			"title":           saved.Title,
			"message":         saved.Message,
			"recipient_id":    saved.UserID,
		},
	}, "")
}
