// Package forex implements the calendar-entry domain service.
package forex

import (
	"context"
	"log/slog"
	"time"

	"github.com/fxnewsbot/backend/internal/apperr"
	"github.com/fxnewsbot/backend/internal/domain"
)

// Repository defines the persistence operations the service relies on. It is
// satisfied by repository.ForexRepository.
type Repository interface {
	Insert(ctx context.Context, fields map[string]any) (*domain.ForexNews, error)
	GetByID(ctx context.Context, id int64) (*domain.ForexNews, error)
	List(ctx context.Context, skip, limit int, filters map[string]any) ([]domain.ForexNews, error)
	Update(ctx context.Context, id int64, fields map[string]any) (*domain.ForexNews, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context, filters map[string]any) (int64, error)
	ListRange(ctx context.Context, from, to time.Time, currency, impact *string, skip, limit int) ([]domain.ForexNews, error)
	ListForDay(ctx context.Context, day time.Time, currency, impact *string) ([]domain.ForexNews, error)
	Search(ctx context.Context, text string, currency, impact *string, limit int) ([]domain.ForexNews, error)
	FindByEventKey(ctx context.Context, day time.Time, currency, event string) (*domain.ForexNews, error)
	Stats(ctx context.Context) (*domain.NewsStatistics, error)
}

// Service provides business operations over calendar entries.
type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

// NewService constructs a new Service instance.
func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// Create validates and stores one calendar entry.
func (s *Service) Create(ctx context.Context, in domain.ForexNewsCreate) (*domain.ForexNews, error) {
	if err := in.Validate(); err != nil {
		return nil, apperr.NewValidationError(err.Error())
	}

	created, err := s.repo.Insert(ctx, in.Fields())
	if err != nil {
		s.logError("create", err)
		return nil, err
	}

	return created, nil
}

// BulkImport stores a batch of entries, updating rows that already exist for
// the same day, currency and event name instead of duplicating them. Returns
// how many rows were created and how many updated.
func (s *Service) BulkImport(ctx context.Context, items []domain.ForexNewsCreate) (created, updated int, err error) {
	for _, in := range items {
		if err := in.Validate(); err != nil {
			return created, updated, apperr.NewValidationError(err.Error())
		}

		existing, err := s.repo.FindByEventKey(ctx, in.Date, in.Currency, in.Event)
		if err != nil {
			s.logError("bulk_import.find", err)
			return created, updated, err
		}

		if existing == nil {
			if _, err := s.repo.Insert(ctx, in.Fields()); err != nil {
				s.logError("bulk_import.insert", err)
				return created, updated, err
			}
			created++
			continue
		}

		fields := map[string]any{
			"actual":   in.Actual,
			"forecast": in.Forecast,
			"previous": in.Previous,
			"analysis": in.Analysis,
		}
		if _, err := s.repo.Update(ctx, existing.ID, fields); err != nil {
			s.logError("bulk_import.update", err)
			return created, updated, err
		}
		updated++
	}

	return created, updated, nil
}

// GetByID returns one entry, or nil when unknown.
func (s *Service) GetByID(ctx context.Context, id int64) (*domain.ForexNews, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns entries matching the equality filters, paginated.
func (s *Service) List(ctx context.Context, skip, limit int, filters map[string]any) ([]domain.ForexNews, error) {
	return s.repo.List(ctx, skip, limit, filters)
}

// Range returns entries within the date range newest first, optionally
// narrowed by currency and impact level.
func (s *Service) Range(ctx context.Context, from, to time.Time, currency, impact *string, skip, limit int) ([]domain.ForexNews, error) {
	if to.Before(from) {
		return nil, apperr.NewValidationError("date range end precedes start")
	}
	if err := validateOptionalEnums(currency, impact); err != nil {
		return nil, err
	}

	return s.repo.ListRange(ctx, from, to, currency, impact, skip, limit)
}

// Today returns entries dated on the current day ordered by display time.
func (s *Service) Today(ctx context.Context, currency, impact *string) ([]domain.ForexNews, error) {
	if err := validateOptionalEnums(currency, impact); err != nil {
		return nil, err
	}

	return s.repo.ListForDay(ctx, s.now().UTC(), currency, impact)
}

// ForDate returns entries dated on the given day ordered by display time.
func (s *Service) ForDate(ctx context.Context, day time.Time, currency, impact *string) ([]domain.ForexNews, error) {
	if err := validateOptionalEnums(currency, impact); err != nil {
		return nil, err
	}

	return s.repo.ListForDay(ctx, day, currency, impact)
}

// Upcoming returns entries scheduled within the next hoursAhead hours.
func (s *Service) Upcoming(ctx context.Context, hoursAhead int, skip, limit int) ([]domain.ForexNews, error) {
	if hoursAhead < 1 {
		return nil, apperr.NewValidationError("hours ahead must be at least 1")
	}

	now := s.now().UTC()
	return s.repo.ListRange(ctx, now, now.Add(time.Duration(hoursAhead)*time.Hour), nil, nil, skip, limit)
}

// ByCurrency returns entries for one currency newest first.
func (s *Service) ByCurrency(ctx context.Context, code string, skip, limit int) ([]domain.ForexNews, error) {
	if err := domain.ValidateCurrency(code); err != nil {
		return nil, apperr.NewValidationError(err.Error())
	}

	return s.repo.List(ctx, skip, limit, map[string]any{"currency": code})
}

// ByImpactLevel returns entries for one impact level.
func (s *Service) ByImpactLevel(ctx context.Context, level string, skip, limit int) ([]domain.ForexNews, error) {
	if err := domain.ValidateImpact(level); err != nil {
		return nil, apperr.NewValidationError(err.Error())
	}

	return s.repo.List(ctx, skip, limit, map[string]any{"impact_level": level})
}

// Search matches free text against event names and analysis.
func (s *Service) Search(ctx context.Context, text string, currency, impact *string, limit int) ([]domain.ForexNews, error) {
	if text == "" {
		return nil, apperr.NewValidationError("search query must not be empty")
	}
	if err := validateOptionalEnums(currency, impact); err != nil {
		return nil, err
	}

	return s.repo.Search(ctx, text, currency, impact, limit)
}

// Update applies a partial update to the mutable columns. Returns (nil, nil)
// when the id is unknown.
func (s *Service) Update(ctx context.Context, id int64, upd domain.ForexNewsUpdate) (*domain.ForexNews, error) {
	if upd.Empty() {
		return s.repo.GetByID(ctx, id)
	}

	fields := map[string]any{}
	applyString(fields, "actual", upd.Actual)
	applyString(fields, "forecast", upd.Forecast)
	applyString(fields, "previous", upd.Previous)
	applyString(fields, "analysis", upd.Analysis)

	updated, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		s.logError("update", err)
		return nil, err
	}

	return updated, nil
}

// Delete removes one entry, reporting whether it existed.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	return s.repo.Delete(ctx, id)
}

// Statistics aggregates entry counts by currency and impact level.
func (s *Service) Statistics(ctx context.Context) (*domain.NewsStatistics, error) {
	return s.repo.Stats(ctx)
}

func validateOptionalEnums(currency, impact *string) error {
	if currency != nil {
		if err := domain.ValidateCurrency(*currency); err != nil {
			return apperr.NewValidationError(err.Error())
		}
	}
	if impact != nil {
		if err := domain.ValidateImpact(*impact); err != nil {
			return apperr.NewValidationError(err.Error())
		}
	}
	return nil
}

func applyString(fields map[string]any, col string, opt domain.Optional[string]) {
	if !opt.IsSet() {
		return
	}
	if opt.IsNull() {
		fields[col] = nil
		return
	}

	v, _ := opt.Get()
	fields[col] = v
}

func (s *Service) logError(operation string, err error) {
	if s == nil || s.log == nil || err == nil {
		return
	}

	s.log.Error("forex service operation failed",
		slog.String("operation", operation),
		slog.Any("error", err),
	)
}
