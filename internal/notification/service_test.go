package notification

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxnewsbot/backend/internal/apperr"
	"github.com/fxnewsbot/backend/internal/domain"
)

type fakeNotificationRepo struct {
	records map[int64]*domain.Notification
	nextID  int64
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{records: make(map[int64]*domain.Notification), nextID: 1}
}

func (f *fakeNotificationRepo) Insert(ctx context.Context, fields map[string]any) (*domain.Notification, error) {
	n := &domain.Notification{ID: f.nextID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	f.nextID++
	applyNotificationFields(n, fields)
	f.records[n.ID] = n

	out := *n
	return &out, nil
}

func (f *fakeNotificationRepo) GetByID(ctx context.Context, id int64) (*domain.Notification, error) {
	n, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	out := *n
	return &out, nil
}

func (f *fakeNotificationRepo) List(ctx context.Context, skip, limit int, filters map[string]any) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, n := range f.sorted() {
		if status, ok := filters["status"].(string); ok && n.Status != status {
			continue
		}
		out = append(out, *n)
	}
	return out, nil
}

func (f *fakeNotificationRepo) Update(ctx context.Context, id int64, fields map[string]any) (*domain.Notification, error) {
	n, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	applyNotificationFields(n, fields)
	n.UpdatedAt = time.Now()

	out := *n
	return &out, nil
}

func (f *fakeNotificationRepo) Delete(ctx context.Context, id int64) (bool, error) {
	if _, ok := f.records[id]; !ok {
		return false, nil
	}
	delete(f.records, id)
	return true, nil
}

func (f *fakeNotificationRepo) Count(ctx context.Context, filters map[string]any) (int64, error) {
	return int64(len(f.records)), nil
}

func (f *fakeNotificationRepo) ListPending(ctx context.Context) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, n := range f.sorted() {
		if n.Status == string(domain.StatusPending) {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledTime.Before(out[j].ScheduledTime) })
	return out, nil
}

func (f *fakeNotificationRepo) ListDue(ctx context.Context, now time.Time) ([]domain.Notification, error) {
	pending, _ := f.ListPending(ctx)
	var out []domain.Notification
	for _, n := range pending {
		if !n.ScheduledTime.After(now) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) ListByUser(ctx context.Context, userID int64, skip, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, n := range f.sorted() {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, n := range f.records {
		counts[n.Status]++
	}
	return counts, nil
}

func (f *fakeNotificationRepo) sorted() []*domain.Notification {
	out := make([]*domain.Notification, 0, len(f.records))
	for _, n := range f.records {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func applyNotificationFields(n *domain.Notification, fields map[string]any) {
	for col, val := range fields {
		switch col {
		case "user_id":
			n.UserID = val.(int64)
		case "event_id":
			n.EventID, _ = val.(*int64)
		case "notification_type":
			n.NotificationType = val.(string)
		case "message":
			n.Message = val.(string)
		case "scheduled_time":
			n.ScheduledTime = val.(time.Time)
		case "status":
			n.Status = val.(string)
		case "sent_at":
			ts := val.(time.Time)
			n.SentAt = &ts
		case "error_message":
			msg := val.(string)
			n.ErrorMessage = &msg
		case "retry_count":
			n.RetryCount = val.(int)
		}
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(repo Repository, now time.Time) *Service {
	svc := NewService(repo, testLogger())
	svc.now = func() time.Time { return now }
	return svc
}

var baseTime = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func TestCreate_StartsPending(t *testing.T) {
	svc := newTestService(newFakeNotificationRepo(), baseTime)

	created, err := svc.Create(context.Background(), domain.NotificationCreate{
		UserID:           1,
		NotificationType: string(domain.NotificationSystem),
		Message:          "maintenance tonight",
		ScheduledTime:    baseTime.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusPending), created.Status)
	assert.Equal(t, 0, created.RetryCount)
	assert.Nil(t, created.SentAt)
}

func TestCreate_RejectsUnknownType(t *testing.T) {
	svc := newTestService(newFakeNotificationRepo(), baseTime)

	_, err := svc.Create(context.Background(), domain.NotificationCreate{
		UserID:           1,
		NotificationType: "push",
		Message:          "nope",
		ScheduledTime:    baseTime,
	})
	var appErr *apperr.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "E100", appErr.Code)
}

func TestCreateEventReminder_SchedulesBeforeEvent(t *testing.T) {
	svc := newTestService(newFakeNotificationRepo(), baseTime)

	eventTime := baseTime.Add(3 * time.Hour)
	created, err := svc.CreateEventReminder(context.Background(), 1, 55, eventTime, 30)
	require.NoError(t, err)

	assert.Equal(t, string(domain.NotificationEventReminder), created.NotificationType)
	assert.Equal(t, eventTime.Add(-30*time.Minute), created.ScheduledTime)
	require.NotNil(t, created.EventID)
	assert.Equal(t, int64(55), *created.EventID)
}

func TestCreateEventReminder_EnforcesBounds(t *testing.T) {
	svc := newTestService(newFakeNotificationRepo(), baseTime)
	ctx := context.Background()
	eventTime := baseTime.Add(3 * time.Hour)

	for _, minutes := range []int{4, 121, 0, -5} {
		_, err := svc.CreateEventReminder(ctx, 1, 55, eventTime, minutes)
		var appErr *apperr.AppError
		require.ErrorAs(t, err, &appErr, "minutes=%d", minutes)
		assert.Equal(t, "E100", appErr.Code)
	}

	for _, minutes := range []int{5, 120} {
		_, err := svc.CreateEventReminder(ctx, 1, 55, eventTime, minutes)
		assert.NoError(t, err, "minutes=%d", minutes)
	}
}

func TestPendingAndDue_Ordering(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := newTestService(repo, baseTime)
	ctx := context.Background()

	for _, offset := range []time.Duration{2 * time.Hour, -time.Hour, -10 * time.Minute} {
		_, err := svc.Create(ctx, domain.NotificationCreate{
			UserID:           1,
			NotificationType: string(domain.NotificationSystem),
			Message:          "m",
			ScheduledTime:    baseTime.Add(offset),
		})
		require.NoError(t, err)
	}

	pending, err := svc.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.True(t, pending[0].ScheduledTime.Before(pending[1].ScheduledTime))

	due, err := svc.Due(ctx)
	require.NoError(t, err)
	assert.Len(t, due, 2)
}

func TestMarkSent_StampsAndReportsAbsence(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := newTestService(repo, baseTime)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.NotificationCreate{
		UserID:           1,
		NotificationType: string(domain.NotificationSystem),
		Message:          "m",
		ScheduledTime:    baseTime,
	})
	require.NoError(t, err)

	found, err := svc.MarkSent(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, found)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusSent), got.Status)
	require.NotNil(t, got.SentAt)
	assert.Equal(t, baseTime, got.SentAt.UTC())

	found, err = svc.MarkSent(ctx, 999)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMarkFailed_BumpsRetryCount(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := newTestService(repo, baseTime)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.NotificationCreate{
		UserID:           1,
		NotificationType: string(domain.NotificationSystem),
		Message:          "m",
		ScheduledTime:    baseTime,
	})
	require.NoError(t, err)

	found, err := svc.MarkFailed(ctx, created.ID, "telegram timeout")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = svc.MarkFailed(ctx, created.ID, "telegram timeout again")
	require.NoError(t, err)
	assert.True(t, found)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusFailed), got.Status)
	assert.Equal(t, 2, got.RetryCount)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "telegram timeout again", *got.ErrorMessage)
}

func TestMarkSentThenFailed_LastWriteWins(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := newTestService(repo, baseTime)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.NotificationCreate{
		UserID:           1,
		NotificationType: string(domain.NotificationSystem),
		Message:          "m",
		ScheduledTime:    baseTime,
	})
	require.NoError(t, err)

	_, err = svc.MarkSent(ctx, created.ID)
	require.NoError(t, err)
	_, err = svc.MarkFailed(ctx, created.ID, "late failure report")
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusFailed), got.Status)
}

func TestCancel_AndStatistics(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := newTestService(repo, baseTime)
	ctx := context.Background()

	first, err := svc.Create(ctx, domain.NotificationCreate{
		UserID:           1,
		NotificationType: string(domain.NotificationSystem),
		Message:          "m",
		ScheduledTime:    baseTime,
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.NotificationCreate{
		UserID:           1,
		NotificationType: string(domain.NotificationSystem),
		Message:          "m",
		ScheduledTime:    baseTime,
	})
	require.NoError(t, err)

	found, err := svc.Cancel(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, found)

	stats, err := svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[string(domain.StatusCancelled)])
	assert.Equal(t, int64(1), stats[string(domain.StatusPending)])
}

func TestByStatus_ValidatesEnum(t *testing.T) {
	svc := newTestService(newFakeNotificationRepo(), baseTime)

	_, err := svc.ByStatus(context.Background(), "queued", 0, 10)
	var appErr *apperr.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "E100", appErr.Code)
}
