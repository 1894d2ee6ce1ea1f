// Package user implements the user domain service: registration keyed by
// Telegram id, partial profile updates and the preference queries used when
// selecting notification recipients.
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fxnewsbot/backend/internal/apperr"
	"github.com/fxnewsbot/backend/internal/domain"
)

// Repository defines the persistence operations the service relies on. It is
// satisfied by repository.UserRepository.
type Repository interface {
	Insert(ctx context.Context, fields map[string]any) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context, skip, limit int, filters map[string]any) ([]domain.User, error)
	Update(ctx context.Context, id int64, fields map[string]any) (*domain.User, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context, filters map[string]any) (int64, error)
	FindByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	ListPage(ctx context.Context, skip, limit int) ([]domain.User, error)
	ListByCurrency(ctx context.Context, code string) ([]domain.User, error)
	ListByImpactLevel(ctx context.Context, level string) ([]domain.User, error)
	TouchLastActive(ctx context.Context, telegramID int64) (bool, error)
}

// Service provides business operations over users.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// NewService constructs a new Service instance.
func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create registers a user. A second registration with the same Telegram id
// fails with a validation error; the first record stays untouched.
func (s *Service) Create(ctx context.Context, in domain.UserCreate) (*domain.User, error) {
	prefs := domain.DefaultPreferences()
	if in.Preferences != nil {
		prefs = *in.Preferences
	}
	if err := prefs.Validate(); err != nil {
		return nil, apperr.NewValidationError(err.Error())
	}

	existing, err := s.repo.FindByTelegramID(ctx, in.TelegramID)
	if err != nil {
		s.logError("create.find", in.TelegramID, err)
		return nil, err
	}
	if existing != nil {
		return nil, apperr.NewValidationError(fmt.Sprintf("user with telegram id %d already exists", in.TelegramID))
	}

	fields := prefs.Fields()
	fields["telegram_id"] = in.TelegramID
	fields["username"] = in.Username
	fields["first_name"] = in.FirstName
	fields["last_name"] = in.LastName
	fields["language_code"] = in.LanguageCode
	fields["is_bot"] = in.IsBot
	fields["is_premium"] = in.IsPremium

	created, err := s.repo.Insert(ctx, fields)
	if err != nil {
		s.logError("create.insert", in.TelegramID, err)
		return nil, err
	}

	return created, nil
}

// GetOrCreate fetches the user for a Telegram sender, registering a default
// profile on first contact.
func (s *Service) GetOrCreate(ctx context.Context, in domain.UserCreate) (*domain.User, error) {
	existing, err := s.repo.FindByTelegramID(ctx, in.TelegramID)
	if err != nil {
		s.logError("get_or_create.find", in.TelegramID, err)
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	return s.Create(ctx, in)
}

// GetByID returns the user for the internal identifier, or nil when unknown.
func (s *Service) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logError("get_by_id", id, err)
		return nil, err
	}

	return user, nil
}

// GetByTelegramID returns the user for the external identifier, or nil when
// unknown.
func (s *Service) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	user, err := s.repo.FindByTelegramID(ctx, telegramID)
	if err != nil {
		s.logError("get_by_telegram_id", telegramID, err)
		return nil, err
	}

	return user, nil
}

// List returns users matching the equality filters, paginated.
func (s *Service) List(ctx context.Context, skip, limit int, filters map[string]any) ([]domain.User, error) {
	return s.repo.List(ctx, skip, limit, filters)
}

// ListPage returns users newest first.
func (s *Service) ListPage(ctx context.Context, skip, limit int) ([]domain.User, error) {
	return s.repo.ListPage(ctx, skip, limit)
}

// ActiveUsers returns users with is_active set.
func (s *Service) ActiveUsers(ctx context.Context, skip, limit int) ([]domain.User, error) {
	return s.repo.List(ctx, skip, limit, map[string]any{"is_active": true})
}

// Update applies a partial update addressed by Telegram id. Fields absent
// from the payload stay untouched; fields explicitly set to null are cleared.
// Returns (nil, nil) when the user is unknown.
func (s *Service) Update(ctx context.Context, telegramID int64, upd domain.UserUpdate) (*domain.User, error) {
	current, err := s.repo.FindByTelegramID(ctx, telegramID)
	if err != nil {
		s.logError("update.find", telegramID, err)
		return nil, err
	}
	if current == nil {
		return nil, nil
	}
	if upd.Empty() {
		return current, nil
	}

	fields := map[string]any{}
	applyString(fields, "username", upd.Username)
	applyString(fields, "first_name", upd.FirstName)
	applyString(fields, "last_name", upd.LastName)
	applyString(fields, "language_code", upd.LanguageCode)
	if v, ok := upd.IsPremium.Get(); ok {
		fields["is_premium"] = v
	}
	if v, ok := upd.IsActive.Get(); ok {
		fields["is_active"] = v
	}
	if prefs, ok := upd.Preferences.Get(); ok {
		if err := prefs.Validate(); err != nil {
			return nil, apperr.NewValidationError(err.Error())
		}
		for col, val := range prefs.Fields() {
			fields[col] = val
		}
	}

	updated, err := s.repo.Update(ctx, current.ID, fields)
	if err != nil {
		s.logError("update.apply", telegramID, err)
		return nil, err
	}

	return updated, nil
}

// UpdatePreferences replaces the whole preference block; this is not a merge.
// Returns (nil, nil) when the user is unknown.
func (s *Service) UpdatePreferences(ctx context.Context, telegramID int64, prefs domain.Preferences) (*domain.User, error) {
	if err := prefs.Validate(); err != nil {
		return nil, apperr.NewValidationError(err.Error())
	}

	current, err := s.repo.FindByTelegramID(ctx, telegramID)
	if err != nil {
		s.logError("update_preferences.find", telegramID, err)
		return nil, err
	}
	if current == nil {
		return nil, nil
	}

	updated, err := s.repo.Update(ctx, current.ID, prefs.Fields())
	if err != nil {
		s.logError("update_preferences.apply", telegramID, err)
		return nil, err
	}

	return updated, nil
}

// ByCurrency returns active users whose currency set contains code.
func (s *Service) ByCurrency(ctx context.Context, code string) ([]domain.User, error) {
	if err := domain.ValidateCurrency(code); err != nil {
		return nil, apperr.NewValidationError(err.Error())
	}

	return s.repo.ListByCurrency(ctx, code)
}

// ByImpactLevel returns active users whose impact-level set contains level.
func (s *Service) ByImpactLevel(ctx context.Context, level string) ([]domain.User, error) {
	if err := domain.ValidateImpact(level); err != nil {
		return nil, apperr.NewValidationError(err.Error())
	}

	return s.repo.ListByImpactLevel(ctx, level)
}

// UpdateLastActive stamps the activity timestamp. Unknown Telegram ids report
// false so the boundary can answer not-found, which is stricter than the
// silent no-op the old backend had.
func (s *Service) UpdateLastActive(ctx context.Context, telegramID int64) (bool, error) {
	found, err := s.repo.TouchLastActive(ctx, telegramID)
	if err != nil {
		s.logError("update_last_active", telegramID, err)
		return false, err
	}

	return found, nil
}

// Deactivate clears is_active without removing the record.
func (s *Service) Deactivate(ctx context.Context, telegramID int64) (bool, error) {
	current, err := s.repo.FindByTelegramID(ctx, telegramID)
	if err != nil {
		s.logError("deactivate.find", telegramID, err)
		return false, err
	}
	if current == nil {
		return false, nil
	}

	if _, err := s.repo.Update(ctx, current.ID, map[string]any{"is_active": false}); err != nil {
		s.logError("deactivate.apply", telegramID, err)
		return false, err
	}

	return true, nil
}

// Delete removes the user record; the schema cascades the delete to the
// user's notifications.
func (s *Service) Delete(ctx context.Context, telegramID int64) (bool, error) {
	current, err := s.repo.FindByTelegramID(ctx, telegramID)
	if err != nil {
		s.logError("delete.find", telegramID, err)
		return false, err
	}
	if current == nil {
		return false, nil
	}

	deleted, err := s.repo.Delete(ctx, current.ID)
	if err != nil {
		s.logError("delete.apply", telegramID, err)
		return false, err
	}

	return deleted, nil
}

// Count returns the total number of users.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx, nil)
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

func (s *Service) logError(operation string, telegramID int64, err error) {
	if s == nil || s.log == nil || err == nil {
		return
	}

	s.log.Error("user service operation failed",
		slog.String("operation", operation),
		slog.Int64("telegram_id", telegramID),
		slog.Any("error", err),
	)
}
