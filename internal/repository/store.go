// Package repository implements the typed data-access layer: a generic
// CRUD+filter store parameterized by record type, plus per-entity
// repositories adding the named queries the services need.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/fxnewsbot/backend/internal/apperr"
	"github.com/fxnewsbot/backend/pkg/metrics"
)

// Store provides uniform create/read/update/delete/count over one table.
// Each instantiation declares its filterable-field whitelist up front; filter
// keys outside the whitelist are silently ignored, matching the boundary
// contract that unknown filter names must not be rejected.
type Store[T any] struct {
	db         *sqlx.DB
	log        *slog.Logger
	table      string
	filterable map[string]struct{}
}

// NewStore constructs a store bound to table with the given filter whitelist.
func NewStore[T any](db *sqlx.DB, log *slog.Logger, table string, filterable []string) *Store[T] {
	allowed := make(map[string]struct{}, len(filterable))
	for _, field := range filterable {
		allowed[field] = struct{}{}
	}

	return &Store[T]{
		db:         db,
		log:        log,
		table:      table,
		filterable: allowed,
	}
}

// Insert creates a row from the supplied column map and returns the stored
// record, including generated id and default timestamps.
func (s *Store[T]) Insert(ctx context.Context, fields map[string]any) (*T, error) {
	if len(fields) == 0 {
		return nil, apperr.NewValidationError("insert requires at least one field")
	}

	cols := sortedKeys(fields)
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = fields[col]
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		s.table,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
	)

	var rec T
	if err := s.db.QueryRowxContext(ctx, query, args...).StructScan(&rec); err != nil {
		s.logError("insert", err)
		return nil, apperr.NewPersistenceError(fmt.Errorf("insert into %s: %w", s.table, err))
	}

	metrics.RecordStoreQuery(s.table, "insert", "ok")
	return &rec, nil
}

// GetByID fetches a row by primary key. Absence is (nil, nil), not an error;
// the boundary layer translates it into a not-found response.
func (s *Store[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = $1", s.table)

	var rec T
	if err := s.db.GetContext(ctx, &rec, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		s.logError("get_by_id", err)
		return nil, apperr.NewPersistenceError(fmt.Errorf("select %s by id: %w", s.table, err))
	}

	metrics.RecordStoreQuery(s.table, "get_by_id", "ok")
	return &rec, nil
}

// List returns rows matching the equality conjunction of filters, bounded by
// skip and limit. Callers must supply limit >= 1.
func (s *Store[T]) List(ctx context.Context, skip, limit int, filters map[string]any) ([]T, error) {
	if limit < 1 {
		return nil, apperr.NewValidationError("limit must be at least 1")
	}
	if skip < 0 {
		skip = 0
	}

	where, args := s.whereClause(filters, 1)
	query := fmt.Sprintf(
		"SELECT * FROM %s%s ORDER BY id LIMIT $%d OFFSET $%d",
		s.table, where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, skip)

	recs := []T{}
	if err := s.db.SelectContext(ctx, &recs, query, args...); err != nil {
		s.logError("list", err)
		return nil, apperr.NewPersistenceError(fmt.Errorf("select %s: %w", s.table, err))
	}

	metrics.RecordStoreQuery(s.table, "list", "ok")
	return recs, nil
}

// Update applies every supplied column to the row with the given id. A nil
// map value writes SQL NULL; the services decide which fields to include, so
// the store never second-guesses the intent. Returns (nil, nil) when the id
// is unknown, the updated record otherwise. An empty field map is a no-op
// read.
func (s *Store[T]) Update(ctx context.Context, id int64, fields map[string]any) (*T, error) {
	if len(fields) == 0 {
		return s.GetByID(ctx, id)
	}

	cols := sortedKeys(fields)
	assignments := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		assignments = append(assignments, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, fields[col])
	}
	assignments = append(assignments, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = $%d RETURNING *",
		s.table,
		strings.Join(assignments, ", "),
		len(args),
	)

	var rec T
	if err := s.db.QueryRowxContext(ctx, query, args...).StructScan(&rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		s.logError("update", err)
		return nil, apperr.NewPersistenceError(fmt.Errorf("update %s: %w", s.table, err))
	}

	metrics.RecordStoreQuery(s.table, "update", "ok")
	return &rec, nil
}

// Delete removes a row by id, reporting whether a row existed.
func (s *Store[T]) Delete(ctx context.Context, id int64) (bool, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.table)

	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		s.logError("delete", err)
		return false, apperr.NewPersistenceError(fmt.Errorf("delete from %s: %w", s.table, err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, apperr.NewPersistenceError(fmt.Errorf("delete from %s: %w", s.table, err))
	}

	metrics.RecordStoreQuery(s.table, "delete", "ok")
	return affected > 0, nil
}

// Count returns the number of rows matching filters, unbounded by skip/limit.
func (s *Store[T]) Count(ctx context.Context, filters map[string]any) (int64, error) {
	where, args := s.whereClause(filters, 1)
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", s.table, where)

	var count int64
	if err := s.db.GetContext(ctx, &count, query, args...); err != nil {
		s.logError("count", err)
		return 0, apperr.NewPersistenceError(fmt.Errorf("count %s: %w", s.table, err))
	}

	metrics.RecordStoreQuery(s.table, "count", "ok")
	return count, nil
}

// whereClause builds an AND-conjunction of exact-match predicates from the
// whitelisted filter entries. Keys are processed in sorted order so generated
// SQL is deterministic. Returns an empty string when nothing survives the
// whitelist.
func (s *Store[T]) whereClause(filters map[string]any, firstArg int) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}

	var predicates []string
	var args []any
	idx := firstArg
	for _, key := range sortedKeys(filters) {
		if _, ok := s.filterable[key]; !ok {
			continue
		}

		predicates = append(predicates, fmt.Sprintf("%s = $%d", key, idx))
		args = append(args, filters[key])
		idx++
	}

	if len(predicates) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(predicates, " AND "), args
}

func (s *Store[T]) logError(operation string, err error) {
	if err == nil {
		return
	}

	metrics.RecordStoreQuery(s.table, operation, "error")

	if s.log == nil {
		return
	}

	s.log.Error("store operation failed",
		slog.String("table", s.table),
		slog.String("operation", operation),
		slog.Any("error", err),
	)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
