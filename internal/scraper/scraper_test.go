package scraper

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxnewsbot/backend/internal/domain"
)

// fakeNewsStore records what the importer hands to the forex service.
type fakeNewsStore struct {
	received []domain.ForexNewsCreate
}

func (f *fakeNewsStore) BulkImport(ctx context.Context, items []domain.ForexNewsCreate) (int, int, error) {
	f.received = append(f.received, items...)
	return len(items), 0, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStaticSource_FetchFiltersByRange(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
	}

	source := NewStaticSource("seed", []domain.ForexNewsCreate{
		{Date: day(1), Currency: "USD", Event: "Before"},
		{Date: day(2), Currency: "USD", Event: "Inside"},
		{Date: day(3), Currency: "EUR", Event: "Edge"},
		{Date: day(5), Currency: "GBP", Event: "After"},
	})

	assert.Equal(t, "seed", source.Name())

	got, err := source.Fetch(context.Background(), day(2), day(3))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Inside", got[0].Event)
	assert.Equal(t, "Edge", got[1].Event)
}

func TestImporter_RunStoresFetchedRange(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
	}

	source := NewStaticSource("seed", []domain.ForexNewsCreate{
		{Date: day(1), Currency: "USD", Event: "Outside"},
		{Date: day(2), Currency: "EUR", Event: "ECB Rate Decision"},
		{Date: day(3), Currency: "GBP", Event: "BoE Minutes"},
	})

	store := &fakeNewsStore{}
	imp := NewImporter(source, store, nil, testLogger())

	created, updated, err := imp.Run(context.Background(), day(2), day(3))
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Zero(t, updated)

	require.Len(t, store.received, 2)
	assert.Equal(t, "ECB Rate Decision", store.received[0].Event)
	assert.Equal(t, "BoE Minutes", store.received[1].Event)
}

func TestStaticSource_EmptyRange(t *testing.T) {
	source := NewStaticSource("seed", nil)

	got, err := source.Fetch(context.Background(), time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
}
