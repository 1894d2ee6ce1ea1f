package chart

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxnewsbot/backend/internal/apperr"
	"github.com/fxnewsbot/backend/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var center = time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

func TestWindow_Deterministic(t *testing.T) {
	g := NewGenerator(testLogger())
	ctx := context.Background()

	first, err := g.Window(ctx, "EUR", center, 2)
	require.NoError(t, err)
	second, err := g.Window(ctx, "EUR", center, 2)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestWindow_Shape(t *testing.T) {
	g := NewGenerator(testLogger())

	series, err := g.Window(context.Background(), "EUR", center, 2)
	require.NoError(t, err)

	assert.Equal(t, "EUR/USD", series.Pair)
	assert.Equal(t, "5m", series.Interval)
	assert.Len(t, series.Candles, 24)
	assert.Equal(t, 2*time.Hour, series.To.Sub(series.From))

	for _, c := range series.Candles {
		assert.GreaterOrEqual(t, c.High, c.Open)
		assert.GreaterOrEqual(t, c.High, c.Close)
		assert.LessOrEqual(t, c.Low, c.Open)
		assert.LessOrEqual(t, c.Low, c.Close)
		assert.Positive(t, c.Close)
	}
}

func TestWindow_Validation(t *testing.T) {
	g := NewGenerator(testLogger())
	ctx := context.Background()

	var appErr *apperr.AppError

	_, err := g.Window(ctx, "DOGE", center, 2)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "E100", appErr.Code)

	_, err = g.Window(ctx, "EUR", center, 0)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "E100", appErr.Code)

	_, err = g.Window(ctx, "EUR", center, 25)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "E100", appErr.Code)
}

func TestCurrencies_SortedAndChartable(t *testing.T) {
	g := NewGenerator(testLogger())

	codes := g.Currencies()
	require.NotEmpty(t, codes)
	assert.IsIncreasing(t, codes)
	assert.Contains(t, codes, "EUR")
	assert.Contains(t, codes, "XAU")

	for _, code := range codes {
		_, err := g.Window(context.Background(), code, center, 2)
		assert.NoError(t, err, code)
	}
}

func TestEventWindow_UsesEntryCurrency(t *testing.T) {
	g := NewGenerator(testLogger())

	entry := &domain.ForexNews{Currency: "GBP", Date: center}
	series, err := g.EventWindow(context.Background(), entry, 4)
	require.NoError(t, err)
	assert.Equal(t, "GBP/USD", series.Pair)
	assert.Len(t, series.Candles, 48)

	_, err = g.EventWindow(context.Background(), nil, 4)
	assert.Error(t, err)
}
