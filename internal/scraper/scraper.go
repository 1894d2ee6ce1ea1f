// Package scraper imports calendar entries from external sources. Sources
// are pluggable; the backend ships a static source used for seeding and
// tests, while production deployments register a real feed behind the same
// interface.
package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/fxnewsbot/backend/internal/cache"
	"github.com/fxnewsbot/backend/internal/domain"
)

// Source supplies calendar entries for a date range.
type Source interface {
	Name() string
	Fetch(ctx context.Context, from, to time.Time) ([]domain.ForexNewsCreate, error)
}

// NewsStore is the slice of the forex service the importer stores through.
// Satisfied by forex.Service.
type NewsStore interface {
	BulkImport(ctx context.Context, items []domain.ForexNewsCreate) (created, updated int, err error)
}

// Importer pulls entries from a source and upserts them through the forex
// service, invalidating cached day buckets afterwards.
type Importer struct {
	source Source
	news   NewsStore
	cache  *cache.Cache
	log    *slog.Logger
}

// NewImporter constructs an Importer for the given source.
func NewImporter(source Source, news NewsStore, c *cache.Cache, log *slog.Logger) *Importer {
	return &Importer{
		source: source,
		news:   news,
		cache:  c,
		log:    log,
	}
}

// Run fetches the range from the source and stores it. Returns how many
// entries were created and how many updated in place.
func (i *Importer) Run(ctx context.Context, from, to time.Time) (created, updated int, err error) {
	start := time.Now()

	items, err := i.source.Fetch(ctx, from, to)
	if err != nil {
		i.log.Error("calendar fetch failed",
			slog.String("source", i.source.Name()), slog.Any("error", err))
		return 0, 0, err
	}

	created, updated, err = i.news.BulkImport(ctx, items)
	if err != nil {
		return created, updated, err
	}

	if cacheErr := i.cache.InvalidateNews(ctx); cacheErr != nil {
		i.log.Warn("failed to invalidate news cache after import", slog.Any("error", cacheErr))
	}

	i.log.Info("calendar import finished",
		slog.String("source", i.source.Name()),
		slog.Int("fetched", len(items)),
		slog.Int("created", created),
		slog.Int("updated", updated),
		slog.Duration("elapsed", time.Since(start)),
	)

	return created, updated, nil
}

// StaticSource serves a fixed set of entries. Used for seeding and tests.
type StaticSource struct {
	name  string
	items []domain.ForexNewsCreate
}

// NewStaticSource constructs a source returning the given entries.
func NewStaticSource(name string, items []domain.ForexNewsCreate) *StaticSource {
	return &StaticSource{name: name, items: items}
}

// Name identifies the source in logs.
func (s *StaticSource) Name() string {
	return s.name
}

// Fetch returns the entries dated within [from, to].
func (s *StaticSource) Fetch(ctx context.Context, from, to time.Time) ([]domain.ForexNewsCreate, error) {
	matched := make([]domain.ForexNewsCreate, 0, len(s.items))
	for _, item := range s.items {
		if item.Date.Before(from) || item.Date.After(to) {
			continue
		}
		matched = append(matched, item)
	}
	return matched, nil
}
