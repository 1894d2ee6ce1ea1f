package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/fxnewsbot/backend/internal/apperr"
	"github.com/fxnewsbot/backend/internal/domain"
)

// Equality filters on users are restricted to these columns; anything else in
// a filter payload is dropped. The array-valued preference columns are
// reachable only through the dedicated membership queries below.
var userFilterableFields = []string{
	"telegram_id",
	"is_active",
	"is_bot",
	"is_premium",
	"language_code",
	"timezone",
	"notifications_enabled",
	"charts_enabled",
	"chart_type",
}

// UserRepository persists users: generic CRUD through the embedded store plus
// the telegram-id and preference-membership queries.
type UserRepository struct {
	*Store[domain.User]
}

// NewUserRepository creates a SQL-backed user repository.
func NewUserRepository(db *sqlx.DB, log *slog.Logger) *UserRepository {
	return &UserRepository{
		Store: NewStore[domain.User](db, log, "users", userFilterableFields),
	}
}

// FindByTelegramID retrieves a user by the Telegram identifier. Absence is
// (nil, nil).
func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	const query = `SELECT * FROM users WHERE telegram_id = $1`

	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, telegramID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		r.logError("find_by_telegram_id", err)
		return nil, apperr.NewPersistenceError(fmt.Errorf("select user by telegram id: %w", err))
	}

	return &user, nil
}

// ListPage returns users ordered newest first.
func (r *UserRepository) ListPage(ctx context.Context, skip, limit int) ([]domain.User, error) {
	if limit < 1 {
		return nil, apperr.NewValidationError("limit must be at least 1")
	}

	const query = `SELECT * FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	users := []domain.User{}
	if err := r.db.SelectContext(ctx, &users, query, limit, skip); err != nil {
		r.logError("list_page", err)
		return nil, apperr.NewPersistenceError(fmt.Errorf("select users page: %w", err))
	}

	return users, nil
}

// ListByCurrency returns active users whose preferred currency set contains
// code. This is a membership predicate over the array column, not an equality
// filter.
func (r *UserRepository) ListByCurrency(ctx context.Context, code string) ([]domain.User, error) {
	const query = `
		SELECT * FROM users
		WHERE is_active = TRUE AND $1 = ANY(preferred_currencies)
		ORDER BY id
	`

	users := []domain.User{}
	if err := r.db.SelectContext(ctx, &users, query, code); err != nil {
		r.logError("list_by_currency", err)
		return nil, apperr.NewPersistenceError(fmt.Errorf("select users by currency: %w", err))
	}

	return users, nil
}

// ListByImpactLevel returns active users whose impact-level set contains level.
func (r *UserRepository) ListByImpactLevel(ctx context.Context, level string) ([]domain.User, error) {
	const query = `
		SELECT * FROM users
		WHERE is_active = TRUE AND $1 = ANY(impact_levels)
		ORDER BY id
	`

	users := []domain.User{}
	if err := r.db.SelectContext(ctx, &users, query, level); err != nil {
		r.logError("list_by_impact_level", err)
		return nil, apperr.NewPersistenceError(fmt.Errorf("select users by impact level: %w", err))
	}

	return users, nil
}

// TouchLastActive stamps last_active for the user with the given Telegram id,
// reporting whether such a user exists.
func (r *UserRepository) TouchLastActive(ctx context.Context, telegramID int64) (bool, error) {
	const query = `
		UPDATE users SET last_active = now(), updated_at = now()
		WHERE telegram_id = $1
	`

	res, err := r.db.ExecContext(ctx, query, telegramID)
	if err != nil {
		r.logError("touch_last_active", err)
		return false, apperr.NewPersistenceError(fmt.Errorf("update last_active: %w", err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, apperr.NewPersistenceError(fmt.Errorf("update last_active: %w", err))
	}

	return affected > 0, nil
}
