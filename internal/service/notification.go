package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/skillshare/internal/clock"
	"github.com/sakif/skillshare/internal/model"
	"github.com/sakif/skillshare/internal/repository"
)

// Notifier records that sender did something concerning recipientID.
// Implementations must not fail the caller's operation.
type Notifier interface {
	Notify(ctx context.Context, recipientID string, sender *model.User, kind model.NotificationType)
}

type NotificationService struct {
	notifications repository.NotificationRepository
	clock         clock.Clock
	logger        *slog.Logger
}

func NewNotificationService(
	notifications repository.NotificationRepository,
	clk clock.Clock,
	logger *slog.Logger,
) *NotificationService {
	return &NotificationService{notifications: notifications, clock: clk, logger: logger}
}

var _ Notifier = (*NotificationService)(nil)

// Notify stores a notification. Self-actions are skipped and store errors are
// logged, never returned.
func (s *NotificationService) Notify(ctx context.Context, recipientID string, sender *model.User, kind model.NotificationType) {
	if sender == nil || recipientID == "" || recipientID == sender.ID {
		return
	}

	n := &model.Notification{
		UserID:               recipientID,
		SenderID:             sender.ID,
		SenderUsername:       sender.Username,
		SenderProfilePicture: sender.ProfilePicture,
		Type:                 kind,
		Message:              notificationMessage(sender.Username, kind),
		CreatedAt:            s.clock.Now(),
	}
	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		s.logger.Warn("recording notification",
			slog.String("type", string(kind)),
			slog.String("recipient", recipientID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *NotificationService) List(ctx context.Context, principal *model.User) ([]model.Notification, error) {
	out, err := s.notifications.ListNotifications(ctx, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("service/notification: listing for %s: %w", principal.ID, err)
	}
	return out, nil
}

// MarkRead flags one of the principal's notifications as read. Someone else's
// notification reads as NotFound.
func (s *NotificationService) MarkRead(ctx context.Context, principal *model.User, id string) error {
	if err := s.notifications.MarkNotificationRead(ctx, id, principal.ID); err != nil {
		return fmt.Errorf("service/notification: marking %s read: %w", id, err)
	}
	return nil
}

func notificationMessage(username string, kind model.NotificationType) string {
	switch kind {
	case model.NotificationFollow:
		return username + " started following you"
	case model.NotificationLike:
		return username + " liked your post"
	case model.NotificationComment:
		return username + " commented on your post"
	}
	return username + " interacted with you"
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, *model.User, model.NotificationType) {}
