package domain

import "fmt"

// Currency is an ISO-style code tracked by the economic calendar.
// Gold and the two large crypto assets ride along with the fiat majors.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyJPY Currency = "JPY"
	CurrencyAUD Currency = "AUD"
	CurrencyCAD Currency = "CAD"
	CurrencyCHF Currency = "CHF"
	CurrencyNZD Currency = "NZD"
	CurrencyCNY Currency = "CNY"
	CurrencyINR Currency = "INR"
	CurrencyBRL Currency = "BRL"
	CurrencyRUB Currency = "RUB"
	CurrencyKRW Currency = "KRW"
	CurrencyMXN Currency = "MXN"
	CurrencySGD Currency = "SGD"
	CurrencyHKD Currency = "HKD"
	CurrencyXAU Currency = "XAU"
	CurrencyBTC Currency = "BTC"
	CurrencyETH Currency = "ETH"
)

var supportedCurrencies = map[Currency]struct{}{
	CurrencyUSD: {}, CurrencyEUR: {}, CurrencyGBP: {}, CurrencyJPY: {},
	CurrencyAUD: {}, CurrencyCAD: {}, CurrencyCHF: {}, CurrencyNZD: {},
	CurrencyCNY: {}, CurrencyINR: {}, CurrencyBRL: {}, CurrencyRUB: {},
	CurrencyKRW: {}, CurrencyMXN: {}, CurrencySGD: {}, CurrencyHKD: {},
	CurrencyXAU: {}, CurrencyBTC: {}, CurrencyETH: {},
}

// SupportedCurrencies returns the full code list in a stable order.
func SupportedCurrencies() []Currency {
	return []Currency{
		CurrencyUSD, CurrencyEUR, CurrencyGBP, CurrencyJPY,
		CurrencyAUD, CurrencyCAD, CurrencyCHF, CurrencyNZD,
		CurrencyCNY, CurrencyINR, CurrencyBRL, CurrencyRUB,
		CurrencyKRW, CurrencyMXN, CurrencySGD, CurrencyHKD,
		CurrencyXAU, CurrencyBTC, CurrencyETH,
	}
}

// Valid reports whether the code belongs to the supported set.
func (c Currency) Valid() bool {
	_, ok := supportedCurrencies[c]
	return ok
}

// ValidateCurrency rejects codes outside the supported set.
func ValidateCurrency(code string) error {
	if !Currency(code).Valid() {
		return fmt.Errorf("invalid currency: %s", code)
	}
	return nil
}

// Impact describes how strongly an event is expected to move the market.
type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// Valid reports whether the impact level is one of high, medium or low.
func (i Impact) Valid() bool {
	switch i {
	case ImpactHigh, ImpactMedium, ImpactLow:
		return true
	}
	return false
}

// ValidateImpact rejects unknown impact levels.
func ValidateImpact(level string) error {
	if !Impact(level).Valid() {
		return fmt.Errorf("invalid impact level: %s", level)
	}
	return nil
}

// NotificationType categorizes a scheduled notification.
type NotificationType string

const (
	NotificationEventReminder NotificationType = "event_reminder"
	NotificationDailyDigest   NotificationType = "daily_digest"
	NotificationPriceAlert    NotificationType = "price_alert"
	NotificationSystem        NotificationType = "system"
)

// Valid reports whether the notification type is known.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationEventReminder, NotificationDailyDigest, NotificationPriceAlert, NotificationSystem:
		return true
	}
	return false
}

// NotificationStatus tracks delivery progress of a notification.
//
// Only pending -> sent and pending -> failed are exercised by the service
// mutators; cancelled is reachable through a direct update. There is no
// transition table, so re-marking an already sent notification overwrites
// sent_at.
type NotificationStatus string

const (
	StatusPending   NotificationStatus = "pending"
	StatusSent      NotificationStatus = "sent"
	StatusFailed    NotificationStatus = "failed"
	StatusCancelled NotificationStatus = "cancelled"
)

// Valid reports whether the status is known.
func (s NotificationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed, StatusCancelled:
		return true
	}
	return false
}
