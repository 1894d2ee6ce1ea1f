package user

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxnewsbot/backend/internal/apperr"
	"github.com/fxnewsbot/backend/internal/domain"
)

// fakeUserRepo is an in-memory Repository used to exercise the service rules
// without a database.
type fakeUserRepo struct {
	users  map[int64]*domain.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*domain.User), nextID: 1}
}

func (f *fakeUserRepo) Insert(ctx context.Context, fields map[string]any) (*domain.User, error) {
	u := &domain.User{
		ID:        f.nextID,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.nextID++
	applyFields(u, fields)
	f.users[u.ID] = u

	out := *u
	return &out, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	out := *u
	return &out, nil
}

func (f *fakeUserRepo) List(ctx context.Context, skip, limit int, filters map[string]any) ([]domain.User, error) {
	var out []domain.User
	for _, u := range f.sorted() {
		if active, ok := filters["is_active"].(bool); ok && u.IsActive != active {
			continue
		}
		out = append(out, *u)
	}
	return page(out, skip, limit), nil
}

func (f *fakeUserRepo) Update(ctx context.Context, id int64, fields map[string]any) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	applyFields(u, fields)
	u.UpdatedAt = time.Now()

	out := *u
	return &out, nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id int64) (bool, error) {
	if _, ok := f.users[id]; !ok {
		return false, nil
	}
	delete(f.users, id)
	return true, nil
}

func (f *fakeUserRepo) Count(ctx context.Context, filters map[string]any) (int64, error) {
	return int64(len(f.users)), nil
}

func (f *fakeUserRepo) FindByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	for _, u := range f.users {
		if u.TelegramID == telegramID {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) ListPage(ctx context.Context, skip, limit int) ([]domain.User, error) {
	var out []domain.User
	for _, u := range f.sorted() {
		out = append(out, *u)
	}
	return page(out, skip, limit), nil
}

func (f *fakeUserRepo) ListByCurrency(ctx context.Context, code string) ([]domain.User, error) {
	var out []domain.User
	for _, u := range f.sorted() {
		if u.IsActive && contains(u.PreferredCurrencies, code) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) ListByImpactLevel(ctx context.Context, level string) ([]domain.User, error) {
	var out []domain.User
	for _, u := range f.sorted() {
		if u.IsActive && contains(u.ImpactLevels, level) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) TouchLastActive(ctx context.Context, telegramID int64) (bool, error) {
	for _, u := range f.users {
		if u.TelegramID == telegramID {
			now := time.Now()
			u.LastActive = &now
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) sorted() []*domain.User {
	out := make([]*domain.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func applyFields(u *domain.User, fields map[string]any) {
	for col, val := range fields {
		switch col {
		case "telegram_id":
			u.TelegramID = val.(int64)
		case "username":
			u.Username = textValue(val)
		case "first_name":
			u.FirstName = textValue(val)
		case "last_name":
			u.LastName = textValue(val)
		case "language_code":
			u.LanguageCode = textValue(val)
		case "is_bot":
			u.IsBot = val.(bool)
		case "is_premium":
			u.IsPremium = val.(bool)
		case "is_active":
			u.IsActive = val.(bool)
		case "preferred_currencies":
			u.PreferredCurrencies = val.(pq.StringArray)
		case "impact_levels":
			u.ImpactLevels = val.(pq.StringArray)
		case "analysis_required":
			u.AnalysisRequired = val.(bool)
		case "digest_time":
			u.DigestTime = val.(string)
		case "timezone":
			u.Timezone = val.(string)
		case "notifications_enabled":
			u.NotificationsEnabled = val.(bool)
		case "notification_minutes":
			u.NotificationMinutes = val.(int)
		case "notification_impact_levels":
			u.NotificationImpactLevels = val.(pq.StringArray)
		case "charts_enabled":
			u.ChartsEnabled = val.(bool)
		case "chart_type":
			u.ChartType = val.(string)
		case "chart_window_hours":
			u.ChartWindowHours = val.(int)
		}
	}
}

// textValue mirrors how the store binds text columns: inserts carry *string,
// partial updates carry plain string or nil.
func textValue(val any) *string {
	switch v := val.(type) {
	case string:
		return &v
	case *string:
		return v
	}
	return nil
}

func contains(arr pq.StringArray, v string) bool {
	for _, s := range arr {
		if s == v {
			return true
		}
	}
	return false
}

func page(in []domain.User, skip, limit int) []domain.User {
	if skip >= len(in) {
		return nil
	}
	in = in[skip:]
	if limit > 0 && len(in) > limit {
		in = in[:limit]
	}
	return in
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func TestCreate_AppliesDefaults(t *testing.T) {
	svc := NewService(newFakeUserRepo(), testLogger())

	created, err := svc.Create(context.Background(), domain.UserCreate{
		TelegramID: 100,
		Username:   strPtr("trader"),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(100), created.TelegramID)
	assert.Equal(t, domain.DefaultPreferences(), created.Preferences())
	assert.True(t, created.IsActive)
}

func TestCreate_DuplicateTelegramIDFails(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, testLogger())
	ctx := context.Background()

	first, err := svc.Create(ctx, domain.UserCreate{TelegramID: 100, Username: strPtr("first")})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.UserCreate{TelegramID: 100, Username: strPtr("second")})
	var appErr *apperr.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "E100", appErr.Code)

	// The original record stays untouched.
	got, err := svc.GetByTelegramID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "first", *got.Username)
}

func TestCreate_RejectsInvalidPreferences(t *testing.T) {
	svc := NewService(newFakeUserRepo(), testLogger())

	prefs := domain.DefaultPreferences()
	prefs.NotificationMinutes = 7

	_, err := svc.Create(context.Background(), domain.UserCreate{TelegramID: 1, Preferences: &prefs})
	var appErr *apperr.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "E100", appErr.Code)
}

func TestGetOrCreate_ReturnsExisting(t *testing.T) {
	svc := NewService(newFakeUserRepo(), testLogger())
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.UserCreate{TelegramID: 5})
	require.NoError(t, err)

	got, err := svc.GetOrCreate(ctx, domain.UserCreate{TelegramID: 5, Username: strPtr("ignored")})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Nil(t, got.Username)
}

func TestUpdate_PartialSemantics(t *testing.T) {
	svc := NewService(newFakeUserRepo(), testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.UserCreate{
		TelegramID: 7,
		Username:   strPtr("old"),
		FirstName:  strPtr("Ada"),
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, 7, domain.UserUpdate{
		Username:  domain.Some("new"),
		FirstName: domain.Null[string](),
	})
	require.NoError(t, err)

	assert.Equal(t, "new", *updated.Username)
	assert.Nil(t, updated.FirstName)
}

func TestUpdate_EmptyPayloadIsNoOp(t *testing.T) {
	svc := NewService(newFakeUserRepo(), testLogger())
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.UserCreate{TelegramID: 7, Username: strPtr("keep")})
	require.NoError(t, err)

	got, err := svc.Update(ctx, 7, domain.UserUpdate{})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "keep", *got.Username)
}

func TestUpdate_UnknownUserIsNilNil(t *testing.T) {
	svc := NewService(newFakeUserRepo(), testLogger())

	got, err := svc.Update(context.Background(), 999, domain.UserUpdate{Username: domain.Some("x")})
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdatePreferences_FullReplace(t *testing.T) {
	svc := NewService(newFakeUserRepo(), testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.UserCreate{TelegramID: 9})
	require.NoError(t, err)

	prefs := domain.DefaultPreferences()
	prefs.PreferredCurrencies = []string{"EUR"}
	prefs.NotificationMinutes = 60

	updated, err := svc.UpdatePreferences(ctx, 9, prefs)
	require.NoError(t, err)
	assert.Equal(t, prefs, updated.Preferences())
}

func TestByCurrency_MembershipAndValidation(t *testing.T) {
	svc := NewService(newFakeUserRepo(), testLogger())
	ctx := context.Background()

	eur := domain.DefaultPreferences()
	eur.PreferredCurrencies = []string{"EUR", "USD"}
	_, err := svc.Create(ctx, domain.UserCreate{TelegramID: 1, Preferences: &eur})
	require.NoError(t, err)

	gbp := domain.DefaultPreferences()
	gbp.PreferredCurrencies = []string{"GBP"}
	_, err = svc.Create(ctx, domain.UserCreate{TelegramID: 2, Preferences: &gbp})
	require.NoError(t, err)

	got, err := svc.ByCurrency(ctx, "EUR")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].TelegramID)

	_, err = svc.ByCurrency(ctx, "EURO")
	var appErr *apperr.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "E100", appErr.Code)
}

func TestDeactivate_ExcludesFromActiveQueries(t *testing.T) {
	svc := NewService(newFakeUserRepo(), testLogger())
	ctx := context.Background()

	prefs := domain.DefaultPreferences()
	prefs.PreferredCurrencies = []string{"USD"}
	_, err := svc.Create(ctx, domain.UserCreate{TelegramID: 1, Preferences: &prefs})
	require.NoError(t, err)

	found, err := svc.Deactivate(ctx, 1)
	require.NoError(t, err)
	assert.True(t, found)

	active, err := svc.ActiveUsers(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, active)

	byCurrency, err := svc.ByCurrency(ctx, "USD")
	require.NoError(t, err)
	assert.Empty(t, byCurrency)
}

func TestUpdateLastActive_ReportsAbsence(t *testing.T) {
	svc := NewService(newFakeUserRepo(), testLogger())
	ctx := context.Background()

	found, err := svc.UpdateLastActive(ctx, 42)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = svc.Create(ctx, domain.UserCreate{TelegramID: 42})
	require.NoError(t, err)

	found, err = svc.UpdateLastActive(ctx, 42)
	require.NoError(t, err)
	assert.True(t, found)

	got, err := svc.GetByTelegramID(ctx, 42)
	require.NoError(t, err)
	assert.NotNil(t, got.LastActive)
}

func TestDelete_ReportsExistence(t *testing.T) {
	svc := NewService(newFakeUserRepo(), testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.UserCreate{TelegramID: 1})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, 1)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.Delete(ctx, 1)
	require.NoError(t, err)
	assert.False(t, deleted)
}
