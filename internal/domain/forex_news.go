package domain

import "time"

// ForexNews is a single economic calendar entry. Actual, forecast and previous
// are kept as free-text strings because the upstream calendar mixes units and
// formats ("3.2%", "1.2M", "-0.1").
type ForexNews struct {
	ID          int64     `db:"id" json:"id"`
	Date        time.Time `db:"date" json:"date"`
	Time        string    `db:"time" json:"time"` // HH:MM:SS display string
	Currency    string    `db:"currency" json:"currency"`
	Event       string    `db:"event" json:"event"`
	Actual      *string   `db:"actual" json:"actual,omitempty"`
	Forecast    *string   `db:"forecast" json:"forecast,omitempty"`
	Previous    *string   `db:"previous" json:"previous,omitempty"`
	ImpactLevel string    `db:"impact_level" json:"impact_level"`
	Analysis    *string   `db:"analysis" json:"analysis,omitempty"`
	Source      *string   `db:"source" json:"source,omitempty"`
	Country     *string   `db:"country" json:"country,omitempty"`
	EventType   *string   `db:"event_type" json:"event_type,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ForexNewsCreate is the payload accepted when storing a calendar entry.
type ForexNewsCreate struct {
	Date        time.Time `json:"date" validate:"required"`
	Time        string    `json:"time" validate:"required"`
	Currency    string    `json:"currency" validate:"required"`
	Event       string    `json:"event" validate:"required"`
	Actual      *string   `json:"actual"`
	Forecast    *string   `json:"forecast"`
	Previous    *string   `json:"previous"`
	ImpactLevel string    `json:"impact_level" validate:"required"`
	Analysis    *string   `json:"analysis"`
	Source      *string   `json:"source"`
	Country     *string   `json:"country"`
	EventType   *string   `json:"event_type"`
}

// Validate checks the enumerated columns.
func (c ForexNewsCreate) Validate() error {
	if err := ValidateCurrency(c.Currency); err != nil {
		return err
	}
	return ValidateImpact(c.ImpactLevel)
}

// Fields maps the payload onto store columns.
func (c ForexNewsCreate) Fields() map[string]any {
	return map[string]any{
		"date":         c.Date,
		"time":         c.Time,
		"currency":     c.Currency,
		"event":        c.Event,
		"actual":       c.Actual,
		"forecast":     c.Forecast,
		"previous":     c.Previous,
		"impact_level": c.ImpactLevel,
		"analysis":     c.Analysis,
		"source":       c.Source,
		"country":      c.Country,
		"event_type":   c.EventType,
	}
}

// ForexNewsUpdate carries the mutable columns of a calendar entry. Absent
// fields are untouched, explicit nulls clear the stored value.
type ForexNewsUpdate struct {
	Actual   Optional[string] `json:"actual"`
	Forecast Optional[string] `json:"forecast"`
	Previous Optional[string] `json:"previous"`
	Analysis Optional[string] `json:"analysis"`
}

// Empty reports whether the payload carries no changes.
func (u ForexNewsUpdate) Empty() bool {
	return !u.Actual.IsSet() && !u.Forecast.IsSet() && !u.Previous.IsSet() && !u.Analysis.IsSet()
}

// NewsStatistics aggregates calendar entry counts.
type NewsStatistics struct {
	TotalCount    int64            `json:"total_count"`
	ByCurrency    map[string]int64 `json:"by_currency"`
	ByImpactLevel map[string]int64 `json:"by_impact_level"`
}
