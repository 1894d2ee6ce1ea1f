package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fxnewsbot/backend/internal/apperr"
	"github.com/fxnewsbot/backend/internal/domain"
)

func newTestStore() *Store[domain.User] {
	return NewStore[domain.User](nil, nil, "users", []string{"telegram_id", "is_active", "language_code"})
}

func TestWhereClause_FiltersWhitelisted(t *testing.T) {
	store := newTestStore()

	where, args := store.whereClause(map[string]any{
		"telegram_id": int64(42),
		"is_active":   true,
	}, 1)

	assert.Equal(t, " WHERE is_active = $1 AND telegram_id = $2", where)
	assert.Equal(t, []any{true, int64(42)}, args)
}

func TestWhereClause_IgnoresUnknownKeys(t *testing.T) {
	store := newTestStore()

	where, args := store.whereClause(map[string]any{
		"telegram_id": int64(42),
		"role":        "admin",
		"1=1; DROP":   "x",
	}, 1)

	assert.Equal(t, " WHERE telegram_id = $1", where)
	assert.Equal(t, []any{int64(42)}, args)
}

func TestWhereClause_AllUnknownKeysMeansNoClause(t *testing.T) {
	store := newTestStore()

	where, args := store.whereClause(map[string]any{"role": "admin"}, 1)

	assert.Empty(t, where)
	assert.Nil(t, args)
}

func TestWhereClause_EmptyFilters(t *testing.T) {
	store := newTestStore()

	where, args := store.whereClause(nil, 1)

	assert.Empty(t, where)
	assert.Nil(t, args)
}

func TestWhereClause_FirstArgOffset(t *testing.T) {
	store := newTestStore()

	where, args := store.whereClause(map[string]any{"is_active": false}, 3)

	assert.Equal(t, " WHERE is_active = $3", where)
	assert.Equal(t, []any{false}, args)
}

func TestList_RejectsZeroLimit(t *testing.T) {
	store := newTestStore()

	_, err := store.List(context.Background(), 0, 0, nil)

	var appErr *apperr.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, "E100", appErr.Code)
}

func TestInsert_RejectsEmptyFieldMap(t *testing.T) {
	store := newTestStore()

	_, err := store.Insert(context.Background(), nil)

	var appErr *apperr.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, "E100", appErr.Code)
}

func TestSortedKeys_Deterministic(t *testing.T) {
	keys := sortedKeys(map[string]any{"c": 1, "a": 2, "b": 3})
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}
