package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fxnewsbot/backend/internal/apperr"
	"github.com/fxnewsbot/backend/internal/domain"
)

var notificationFilterableFields = []string{
	"user_id",
	"event_id",
	"status",
	"notification_type",
}

// NotificationRepository persists scheduled notifications, adding the
// queue-style queries the delivery side polls.
type NotificationRepository struct {
	*Store[domain.Notification]
}

// NewNotificationRepository creates a SQL-backed notification repository.
func NewNotificationRepository(db *sqlx.DB, log *slog.Logger) *NotificationRepository {
	return &NotificationRepository{
		Store: NewStore[domain.Notification](db, log, "notifications", notificationFilterableFields),
	}
}

// ListPending returns pending notifications earliest due first.
func (r *NotificationRepository) ListPending(ctx context.Context) ([]domain.Notification, error) {
	const query = `
		SELECT * FROM notifications
		WHERE status = 'pending'
		ORDER BY scheduled_time ASC
	`

	notifications := []domain.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query); err != nil {
		r.logError("list_pending", err)
		return nil, apperr.NewPersistenceError(fmt.Errorf("select pending notifications: %w", err))
	}

	return notifications, nil
}

// ListDue returns pending notifications whose scheduled time has passed.
func (r *NotificationRepository) ListDue(ctx context.Context, now time.Time) ([]domain.Notification, error) {
	const query = `
		SELECT * FROM notifications
		WHERE status = 'pending' AND scheduled_time <= $1
		ORDER BY scheduled_time ASC
	`

	notifications := []domain.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, now); err != nil {
		r.logError("list_due", err)
		return nil, apperr.NewPersistenceError(fmt.Errorf("select due notifications: %w", err))
	}

	return notifications, nil
}

// ListByUser returns a user's notifications newest schedule first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64, skip, limit int) ([]domain.Notification, error) {
	if limit < 1 {
		return nil, apperr.NewValidationError("limit must be at least 1")
	}

	const query = `
		SELECT * FROM notifications
		WHERE user_id = $1
		ORDER BY scheduled_time DESC
		LIMIT $2 OFFSET $3
	`

	notifications := []domain.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, userID, limit, skip); err != nil {
		r.logError("list_by_user", err)
		return nil, apperr.NewPersistenceError(fmt.Errorf("select notifications by user: %w", err))
	}

	return notifications, nil
}

// CountByStatus aggregates notification counts per status.
func (r *NotificationRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	const query = `SELECT status AS key, COUNT(*) AS count FROM notifications GROUP BY status`

	type bucket struct {
		Key   string `db:"key"`
		Count int64  `db:"count"`
	}

	buckets := []bucket{}
	if err := r.db.SelectContext(ctx, &buckets, query); err != nil {
		r.logError("count_by_status", err)
		return nil, apperr.NewPersistenceError(fmt.Errorf("count notifications by status: %w", err))
	}

	counts := make(map[string]int64, len(buckets))
	for _, b := range buckets {
		counts[b.Key] = b.Count
	}

	return counts, nil
}
