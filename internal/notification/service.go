// Package notification implements the notification-record domain service.
// Rows are created ahead of delivery; the delivery side polls the pending and
// due queries and flips status through MarkSent and MarkFailed. There is no
// transition table: re-marking an already sent row succeeds and overwrites
// sent_at.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fxnewsbot/backend/internal/apperr"
	"github.com/fxnewsbot/backend/internal/domain"
)

// Repository defines the persistence operations the service relies on. It is
// satisfied by repository.NotificationRepository.
type Repository interface {
	Insert(ctx context.Context, fields map[string]any) (*domain.Notification, error)
	GetByID(ctx context.Context, id int64) (*domain.Notification, error)
	List(ctx context.Context, skip, limit int, filters map[string]any) ([]domain.Notification, error)
	Update(ctx context.Context, id int64, fields map[string]any) (*domain.Notification, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context, filters map[string]any) (int64, error)
	ListPending(ctx context.Context) ([]domain.Notification, error)
	ListDue(ctx context.Context, now time.Time) ([]domain.Notification, error)
	ListByUser(ctx context.Context, userID int64, skip, limit int) ([]domain.Notification, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// Service provides business operations over notification records.
type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

// NewService constructs a new Service instance.
func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// Create schedules a notification. New rows always start pending.
func (s *Service) Create(ctx context.Context, in domain.NotificationCreate) (*domain.Notification, error) {
	if err := in.Validate(); err != nil {
		return nil, apperr.NewValidationError(err.Error())
	}

	created, err := s.repo.Insert(ctx, in.Fields())
	if err != nil {
		s.logError("create", 0, err)
		return nil, err
	}

	return created, nil
}

// CreateEventReminder schedules an event_reminder notification minutesBefore
// minutes ahead of the event time.
func (s *Service) CreateEventReminder(ctx context.Context, userID, eventID int64, eventTime time.Time, minutesBefore int) (*domain.Notification, error) {
	if minutesBefore < 5 || minutesBefore > 120 {
		return nil, apperr.NewValidationError(fmt.Sprintf("minutes before event must be within 5..120, got %d", minutesBefore))
	}

	return s.Create(ctx, domain.NotificationCreate{
		UserID:           userID,
		EventID:          &eventID,
		NotificationType: string(domain.NotificationEventReminder),
		Message:          fmt.Sprintf("Upcoming event in %d minutes", minutesBefore),
		ScheduledTime:    eventTime.Add(-time.Duration(minutesBefore) * time.Minute),
	})
}

// CreateDigest schedules a daily_digest notification at the given time.
func (s *Service) CreateDigest(ctx context.Context, userID int64, digestTime time.Time) (*domain.Notification, error) {
	return s.Create(ctx, domain.NotificationCreate{
		UserID:           userID,
		NotificationType: string(domain.NotificationDailyDigest),
		Message:          "Your daily forex news digest is ready",
		ScheduledTime:    digestTime,
	})
}

// GetByID returns one record, or nil when unknown.
func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Notification, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns records matching the equality filters, paginated.
func (s *Service) List(ctx context.Context, skip, limit int, filters map[string]any) ([]domain.Notification, error) {
	return s.repo.List(ctx, skip, limit, filters)
}

// ByUser returns one user's notifications.
func (s *Service) ByUser(ctx context.Context, userID int64, skip, limit int) ([]domain.Notification, error) {
	return s.repo.ListByUser(ctx, userID, skip, limit)
}

// ByStatus returns records in the given status.
func (s *Service) ByStatus(ctx context.Context, status string, skip, limit int) ([]domain.Notification, error) {
	if !domain.NotificationStatus(status).Valid() {
		return nil, apperr.NewValidationError(fmt.Sprintf("invalid notification status: %s", status))
	}

	return s.repo.List(ctx, skip, limit, map[string]any{"status": status})
}

// Pending returns pending notifications earliest due first.
func (s *Service) Pending(ctx context.Context) ([]domain.Notification, error) {
	return s.repo.ListPending(ctx)
}

// Due returns pending notifications whose scheduled time has passed.
func (s *Service) Due(ctx context.Context) ([]domain.Notification, error) {
	return s.repo.ListDue(ctx, s.now().UTC())
}

// MarkSent flips the record to sent and stamps sent_at. Reports false when
// the id is unknown. Calling it again overwrites sent_at; there is no guard.
func (s *Service) MarkSent(ctx context.Context, id int64) (bool, error) {
	updated, err := s.repo.Update(ctx, id, map[string]any{
		"status":  string(domain.StatusSent),
		"sent_at": s.now().UTC(),
	})
	if err != nil {
		s.logError("mark_sent", id, err)
		return false, err
	}

	return updated != nil, nil
}

// MarkFailed flips the record to failed, stores the error message and bumps
// the retry counter. Reports false when the id is unknown.
func (s *Service) MarkFailed(ctx context.Context, id int64, errorMessage string) (bool, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logError("mark_failed.find", id, err)
		return false, err
	}
	if current == nil {
		return false, nil
	}

	if _, err := s.repo.Update(ctx, id, map[string]any{
		"status":        string(domain.StatusFailed),
		"error_message": errorMessage,
		"retry_count":   current.RetryCount + 1,
	}); err != nil {
		s.logError("mark_failed.apply", id, err)
		return false, err
	}

	return true, nil
}

// Cancel flips the record to cancelled. Reports false when the id is unknown.
func (s *Service) Cancel(ctx context.Context, id int64) (bool, error) {
	updated, err := s.repo.Update(ctx, id, map[string]any{
		"status": string(domain.StatusCancelled),
	})
	if err != nil {
		s.logError("cancel", id, err)
		return false, err
	}

	return updated != nil, nil
}

// Delete removes one record, reporting whether it existed.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	return s.repo.Delete(ctx, id)
}

// Statistics aggregates record counts per status.
func (s *Service) Statistics(ctx context.Context) (map[string]int64, error) {
	return s.repo.CountByStatus(ctx)
}

func (s *Service) logError(operation string, id int64, err error) {
	if s == nil || s.log == nil || err == nil {
		return
	}

	s.log.Error("notification service operation failed",
		slog.String("operation", operation),
		slog.Int64("notification_id", id),
		slog.Any("error", err),
	)
}
