package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fxnewsbot/backend/internal/apperr"
	"github.com/fxnewsbot/backend/internal/domain"
)

var forexFilterableFields = []string{
	"currency",
	"impact_level",
	"event_type",
	"country",
	"source",
}

// ForexRepository persists calendar entries and provides the date-scoped and
// text-search queries on top of the generic store.
type ForexRepository struct {
	*Store[domain.ForexNews]
}

// NewForexRepository creates a SQL-backed forex news repository.
func NewForexRepository(db *sqlx.DB, log *slog.Logger) *ForexRepository {
	return &ForexRepository{
		Store: NewStore[domain.ForexNews](db, log, "forex_news", forexFilterableFields),
	}
}

// ListRange returns entries within [from, to], optionally narrowed by
// currency and impact, newest first.
func (r *ForexRepository) ListRange(ctx context.Context, from, to time.Time, currency, impact *string, skip, limit int) ([]domain.ForexNews, error) {
	if limit < 1 {
		return nil, apperr.NewValidationError("limit must be at least 1")
	}

	predicates := []string{"date >= $1", "date <= $2"}
	args := []any{from, to}
	if currency != nil {
		args = append(args, *currency)
		predicates = append(predicates, fmt.Sprintf("currency = $%d", len(args)))
	}
	if impact != nil {
		args = append(args, *impact)
		predicates = append(predicates, fmt.Sprintf("impact_level = $%d", len(args)))
	}

	args = append(args, limit, skip)
	query := fmt.Sprintf(
		`SELECT * FROM forex_news WHERE %s ORDER BY date DESC, time DESC LIMIT $%d OFFSET $%d`,
		strings.Join(predicates, " AND "), len(args)-1, len(args),
	)

	news := []domain.ForexNews{}
	if err := r.db.SelectContext(ctx, &news, query, args...); err != nil {
		r.logError("list_range", err)
		return nil, apperr.NewPersistenceError(fmt.Errorf("select forex news range: %w", err))
	}

	return news, nil
}

// ListForDay returns entries dated on the given calendar day ordered by the
// display time ascending, so earlier events come first.
func (r *ForexRepository) ListForDay(ctx context.Context, day time.Time, currency, impact *string) ([]domain.ForexNews, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	predicates := []string{"date >= $1", "date < $2"}
	args := []any{start, end}
	if currency != nil {
		args = append(args, *currency)
		predicates = append(predicates, fmt.Sprintf("currency = $%d", len(args)))
	}
	if impact != nil {
		args = append(args, *impact)
		predicates = append(predicates, fmt.Sprintf("impact_level = $%d", len(args)))
	}

	query := fmt.Sprintf(
		`SELECT * FROM forex_news WHERE %s ORDER BY time ASC`,
		strings.Join(predicates, " AND "),
	)

	news := []domain.ForexNews{}
	if err := r.db.SelectContext(ctx, &news, query, args...); err != nil {
		r.logError("list_for_day", err)
		return nil, apperr.NewPersistenceError(fmt.Errorf("select forex news for day: %w", err))
	}

	return news, nil
}

// Search matches the query text against event name and analysis,
// case-insensitively, optionally narrowed by currency and impact.
func (r *ForexRepository) Search(ctx context.Context, text string, currency, impact *string, limit int) ([]domain.ForexNews, error) {
	if limit < 1 {
		return nil, apperr.NewValidationError("limit must be at least 1")
	}

	pattern := "%" + text + "%"
	predicates := []string{"(event ILIKE $1 OR analysis ILIKE $1)"}
	args := []any{pattern}
	if currency != nil {
		args = append(args, *currency)
		predicates = append(predicates, fmt.Sprintf("currency = $%d", len(args)))
	}
	if impact != nil {
		args = append(args, *impact)
		predicates = append(predicates, fmt.Sprintf("impact_level = $%d", len(args)))
	}

	args = append(args, limit)
	query := fmt.Sprintf(
		`SELECT * FROM forex_news WHERE %s ORDER BY date DESC, time DESC LIMIT $%d`,
		strings.Join(predicates, " AND "), len(args),
	)

	news := []domain.ForexNews{}
	if err := r.db.SelectContext(ctx, &news, query, args...); err != nil {
		r.logError("search", err)
		return nil, apperr.NewPersistenceError(fmt.Errorf("search forex news: %w", err))
	}

	return news, nil
}

// FindByEventKey looks up an entry by its natural key (calendar day,
// currency, event name). Bulk import uses this to upsert instead of creating
// duplicates. Absence is (nil, nil).
func (r *ForexRepository) FindByEventKey(ctx context.Context, day time.Time, currency, event string) (*domain.ForexNews, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	const query = `
		SELECT * FROM forex_news
		WHERE date >= $1 AND date < $2 AND currency = $3 AND event = $4
		LIMIT 1
	`

	var news domain.ForexNews
	if err := r.db.GetContext(ctx, &news, query, start, end, currency, event); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		r.logError("find_by_event_key", err)
		return nil, apperr.NewPersistenceError(fmt.Errorf("select forex news by event key: %w", err))
	}

	return &news, nil
}

// Stats aggregates entry counts overall and per currency and impact level.
func (r *ForexRepository) Stats(ctx context.Context) (*domain.NewsStatistics, error) {
	stats := &domain.NewsStatistics{
		ByCurrency:    map[string]int64{},
		ByImpactLevel: map[string]int64{},
	}

	if err := r.db.GetContext(ctx, &stats.TotalCount, `SELECT COUNT(*) FROM forex_news`); err != nil {
		r.logError("stats_total", err)
		return nil, apperr.NewPersistenceError(fmt.Errorf("count forex news: %w", err))
	}

	type bucket struct {
		Key   string `db:"key"`
		Count int64  `db:"count"`
	}

	byCurrency := []bucket{}
	if err := r.db.SelectContext(ctx, &byCurrency,
		`SELECT currency AS key, COUNT(*) AS count FROM forex_news GROUP BY currency`); err != nil {
		r.logError("stats_by_currency", err)
		return nil, apperr.NewPersistenceError(fmt.Errorf("count forex news by currency: %w", err))
	}
	for _, b := range byCurrency {
		stats.ByCurrency[b.Key] = b.Count
	}

	byImpact := []bucket{}
	if err := r.db.SelectContext(ctx, &byImpact,
		`SELECT impact_level AS key, COUNT(*) AS count FROM forex_news GROUP BY impact_level`); err != nil {
		r.logError("stats_by_impact", err)
		return nil, apperr.NewPersistenceError(fmt.Errorf("count forex news by impact: %w", err))
	}
	for _, b := range byImpact {
		stats.ByImpactLevel[b.Key] = b.Count
	}

	return stats, nil
}
