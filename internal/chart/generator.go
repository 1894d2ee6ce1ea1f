// Package chart produces candlestick data windows around calendar events.
// The generator is deterministic: the same pair and window always produce
// the same series, which keeps the API testable without a market data feed.
package chart

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/fxnewsbot/backend/internal/apperr"
	"github.com/fxnewsbot/backend/internal/domain"
)

// Candle is one OHLC bar.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
}

// Series is a chart window for one currency pair.
type Series struct {
	Pair     string    `json:"pair"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Interval string    `json:"interval"`
	Candles  []Candle  `json:"candles"`
}

// Generator builds chart windows.
type Generator struct {
	log *slog.Logger
}

// NewGenerator constructs a chart generator.
func NewGenerator(log *slog.Logger) *Generator {
	return &Generator{log: log}
}

// baseRate anchors each currency at a plausible USD rate so generated
// windows look sane per pair.
var baseRate = map[domain.Currency]float64{
	domain.CurrencyUSD: 1.0,
	domain.CurrencyEUR: 1.09,
	domain.CurrencyGBP: 1.27,
	domain.CurrencyJPY: 0.0067,
	domain.CurrencyCHF: 1.13,
	domain.CurrencyAUD: 0.66,
	domain.CurrencyCAD: 0.73,
	domain.CurrencyNZD: 0.61,
	domain.CurrencyXAU: 2350.0,
	domain.CurrencyBTC: 64000.0,
	domain.CurrencyETH: 3400.0,
}

// Window produces a deterministic candle series for the currency covering
// windowHours around the given center time, one candle per five minutes.
func (g *Generator) Window(ctx context.Context, code string, center time.Time, windowHours int) (*Series, error) {
	if err := domain.ValidateCurrency(code); err != nil {
		return nil, apperr.NewValidationError(err.Error())
	}
	if windowHours < 1 || windowHours > 24 {
		return nil, apperr.NewValidationError(fmt.Sprintf("chart window must be between 1 and 24 hours, got %d", windowHours))
	}

	currency := domain.Currency(code)
	base := baseRate[currency]
	if base == 0 {
		base = 1.0
	}

	const step = 5 * time.Minute
	half := time.Duration(windowHours) * time.Hour / 2
	from := center.UTC().Truncate(step).Add(-half)
	to := from.Add(time.Duration(windowHours) * time.Hour)

	count := int(to.Sub(from) / step)
	candles := make([]Candle, 0, count)

	prev := base
	for i := 0; i < count; i++ {
		ts := from.Add(time.Duration(i) * step)

		// Price path is a seeded sine walk so re-requests reproduce the
		// exact same window.
		seed := float64(ts.Unix()/300) + float64(len(code))
		drift := math.Sin(seed*0.7) * base * 0.002
		wave := math.Sin(seed*0.13) * base * 0.005

		open := prev
		closePrice := base + wave + drift
		high := math.Max(open, closePrice) + base*0.0008
		low := math.Min(open, closePrice) - base*0.0008

		candles = append(candles, Candle{
			Timestamp: ts,
			Open:      round(open),
			High:      round(high),
			Low:       round(low),
			Close:     round(closePrice),
		})
		prev = closePrice
	}

	return &Series{
		Pair:     pairName(currency),
		From:     from,
		To:       to,
		Interval: "5m",
		Candles:  candles,
	}, nil
}

// EventWindow charts the currency of a calendar entry centered on its date.
func (g *Generator) EventWindow(ctx context.Context, entry *domain.ForexNews, windowHours int) (*Series, error) {
	if entry == nil {
		return nil, apperr.NewValidationError("calendar entry is required")
	}
	return g.Window(ctx, entry.Currency, entry.Date, windowHours)
}

// Currencies lists the codes the generator can chart, sorted.
func (g *Generator) Currencies() []string {
	codes := make([]string, 0, len(baseRate))
	for c := range baseRate {
		codes = append(codes, string(c))
	}
	sort.Strings(codes)

	return codes
}

func pairName(c domain.Currency) string {
	if c == domain.CurrencyUSD {
		return "USD/EUR"
	}
	return string(c) + "/USD"
}

func round(v float64) float64 {
	return math.Round(v*100000) / 100000
}
