package model

import "time"

type NotificationType string

const (
	NotificationFollow  NotificationType = "FOLLOW"
	NotificationLike    NotificationType = "LIKE"
	NotificationComment NotificationType = "COMMENT"
)

// Notification records that Sender did something that concerns UserID.
// Nothing is pushed; clients poll GET /notifications.
type Notification struct {
	ID                   string           `json:"id"`
	UserID               string           `json:"userId"`
	SenderID             string           `json:"senderId"`
	SenderUsername       string           `json:"senderUsername"`
	SenderProfilePicture *string          `json:"senderProfilePicture"`
	Type                 NotificationType `json:"type"`
	Message              string           `json:"message"`
	Read                 bool             `json:"read"`
	CreatedAt            time.Time        `json:"createdAt"`
}
