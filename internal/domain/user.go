package domain

import (
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Preferences holds the per-user delivery settings embedded in the user record.
// They are persisted as flat columns on the users table.
type Preferences struct {
	PreferredCurrencies      []string `json:"preferred_currencies"`
	ImpactLevels             []string `json:"impact_levels"`
	AnalysisRequired         bool     `json:"analysis_required"`
	DigestTime               string   `json:"digest_time"` // HH:MM:SS
	Timezone                 string   `json:"timezone"`
	NotificationsEnabled     bool     `json:"notifications_enabled"`
	NotificationMinutes      int      `json:"notification_minutes"`
	NotificationImpactLevels []string `json:"notification_impact_levels"`
	ChartsEnabled            bool     `json:"charts_enabled"`
	ChartType                string   `json:"chart_type"`
	ChartWindowHours         int      `json:"chart_window_hours"`
}

// DefaultPreferences mirrors the column defaults of the users table.
func DefaultPreferences() Preferences {
	return Preferences{
		PreferredCurrencies:      []string{},
		ImpactLevels:             []string{"high", "medium"},
		AnalysisRequired:         true,
		DigestTime:               "08:00:00",
		Timezone:                 "Europe/Prague",
		NotificationsEnabled:     false,
		NotificationMinutes:      30,
		NotificationImpactLevels: []string{"high"},
		ChartsEnabled:            false,
		ChartType:                "single",
		ChartWindowHours:         2,
	}
}

// Validate checks every enumerated domain the preference block carries.
func (p Preferences) Validate() error {
	for _, code := range p.PreferredCurrencies {
		if err := ValidateCurrency(code); err != nil {
			return err
		}
	}
	for _, level := range p.ImpactLevels {
		if err := ValidateImpact(level); err != nil {
			return err
		}
	}
	for _, level := range p.NotificationImpactLevels {
		if err := ValidateImpact(level); err != nil {
			return err
		}
	}
	switch p.NotificationMinutes {
	case 15, 30, 60:
	default:
		return fmt.Errorf("notification minutes must be 15, 30 or 60, got %d", p.NotificationMinutes)
	}
	if p.ChartWindowHours < 1 || p.ChartWindowHours > 24 {
		return fmt.Errorf("chart window must be between 1 and 24 hours, got %d", p.ChartWindowHours)
	}
	switch p.ChartType {
	case "single", "multi":
	default:
		return fmt.Errorf("invalid chart type: %s", p.ChartType)
	}
	return nil
}

// Fields flattens the preference block into the column map used by the store.
func (p Preferences) Fields() map[string]any {
	return map[string]any{
		"preferred_currencies":       pq.StringArray(p.PreferredCurrencies),
		"impact_levels":              pq.StringArray(p.ImpactLevels),
		"analysis_required":          p.AnalysisRequired,
		"digest_time":                p.DigestTime,
		"timezone":                   p.Timezone,
		"notifications_enabled":      p.NotificationsEnabled,
		"notification_minutes":       p.NotificationMinutes,
		"notification_impact_levels": pq.StringArray(p.NotificationImpactLevels),
		"charts_enabled":             p.ChartsEnabled,
		"chart_type":                 p.ChartType,
		"chart_window_hours":         p.ChartWindowHours,
	}
}

// User is a bot subscriber keyed by the Telegram identifier. The internal id
// never crosses the service boundary; every user-facing operation addresses
// users by telegram_id.
type User struct {
	ID           int64   `db:"id" json:"id"`
	TelegramID   int64   `db:"telegram_id" json:"telegram_id"`
	Username     *string `db:"username" json:"username,omitempty"`
	FirstName    *string `db:"first_name" json:"first_name,omitempty"`
	LastName     *string `db:"last_name" json:"last_name,omitempty"`
	LanguageCode *string `db:"language_code" json:"language_code,omitempty"`
	IsBot        bool    `db:"is_bot" json:"is_bot"`
	IsPremium    bool    `db:"is_premium" json:"is_premium"`

	PreferredCurrencies      pq.StringArray `db:"preferred_currencies" json:"preferred_currencies"`
	ImpactLevels             pq.StringArray `db:"impact_levels" json:"impact_levels"`
	AnalysisRequired         bool           `db:"analysis_required" json:"analysis_required"`
	DigestTime               string         `db:"digest_time" json:"digest_time"`
	Timezone                 string         `db:"timezone" json:"timezone"`
	NotificationsEnabled     bool           `db:"notifications_enabled" json:"notifications_enabled"`
	NotificationMinutes      int            `db:"notification_minutes" json:"notification_minutes"`
	NotificationImpactLevels pq.StringArray `db:"notification_impact_levels" json:"notification_impact_levels"`
	ChartsEnabled            bool           `db:"charts_enabled" json:"charts_enabled"`
	ChartType                string         `db:"chart_type" json:"chart_type"`
	ChartWindowHours         int            `db:"chart_window_hours" json:"chart_window_hours"`

	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
	LastActive *time.Time `db:"last_active" json:"last_active,omitempty"`
	IsActive   bool       `db:"is_active" json:"is_active"`
}

// Preferences reassembles the flat columns back into a preference block.
func (u *User) Preferences() Preferences {
	return Preferences{
		PreferredCurrencies:      []string(u.PreferredCurrencies),
		ImpactLevels:             []string(u.ImpactLevels),
		AnalysisRequired:         u.AnalysisRequired,
		DigestTime:               u.DigestTime,
		Timezone:                 u.Timezone,
		NotificationsEnabled:     u.NotificationsEnabled,
		NotificationMinutes:      u.NotificationMinutes,
		NotificationImpactLevels: []string(u.NotificationImpactLevels),
		ChartsEnabled:            u.ChartsEnabled,
		ChartType:                u.ChartType,
		ChartWindowHours:         u.ChartWindowHours,
	}
}

// UserCreate is the payload accepted when registering a user.
type UserCreate struct {
	TelegramID   int64        `json:"telegram_id" validate:"required"`
	Username     *string      `json:"username"`
	FirstName    *string      `json:"first_name"`
	LastName     *string      `json:"last_name"`
	LanguageCode *string      `json:"language_code"`
	IsBot        bool         `json:"is_bot"`
	IsPremium    bool         `json:"is_premium"`
	Preferences  *Preferences `json:"preferences"`
}

// UserUpdate is a partial-update payload. Absent fields are untouched,
// explicit nulls clear the stored value.
type UserUpdate struct {
	Username     Optional[string]      `json:"username"`
	FirstName    Optional[string]      `json:"first_name"`
	LastName     Optional[string]      `json:"last_name"`
	LanguageCode Optional[string]      `json:"language_code"`
	IsPremium    Optional[bool]        `json:"is_premium"`
	IsActive     Optional[bool]        `json:"is_active"`
	Preferences  Optional[Preferences] `json:"preferences"`
}

// Empty reports whether the payload carries no changes at all.
func (u UserUpdate) Empty() bool {
	return !u.Username.IsSet() && !u.FirstName.IsSet() && !u.LastName.IsSet() &&
		!u.LanguageCode.IsSet() && !u.IsPremium.IsSet() && !u.IsActive.IsSet() &&
		!u.Preferences.IsSet()
}
