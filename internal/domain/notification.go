package domain

import (
	"fmt"
	"time"
)

// Notification is a scheduled message bound to a user and, optionally, to a
// calendar event. Rows are created ahead of time and flipped to sent or
// failed by the delivery side.
type Notification struct {
	ID               int64      `db:"id" json:"id"`
	UserID           int64      `db:"user_id" json:"user_id"`
	EventID          *int64     `db:"event_id" json:"event_id,omitempty"`
	NotificationType string     `db:"notification_type" json:"notification_type"`
	Message          string     `db:"message" json:"message"`
	ScheduledTime    time.Time  `db:"scheduled_time" json:"scheduled_time"`
	SentAt           *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	Status           string     `db:"status" json:"status"`
	ErrorMessage     *string    `db:"error_message" json:"error_message,omitempty"`
	RetryCount       int        `db:"retry_count" json:"retry_count"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// NotificationCreate is the payload accepted when scheduling a notification.
type NotificationCreate struct {
	UserID           int64     `json:"user_id" validate:"required"`
	EventID          *int64    `json:"event_id"`
	NotificationType string    `json:"notification_type" validate:"required"`
	Message          string    `json:"message" validate:"required"`
	ScheduledTime    time.Time `json:"scheduled_time" validate:"required"`
}

// Validate checks the notification type.
func (c NotificationCreate) Validate() error {
	if !NotificationType(c.NotificationType).Valid() {
		return fmt.Errorf("invalid notification type: %s", c.NotificationType)
	}
	return nil
}

// Fields maps the payload onto store columns. New rows always start pending.
func (c NotificationCreate) Fields() map[string]any {
	return map[string]any{
		"user_id":           c.UserID,
		"event_id":          c.EventID,
		"notification_type": c.NotificationType,
		"message":           c.Message,
		"scheduled_time":    c.ScheduledTime,
		"status":            string(StatusPending),
	}
}
