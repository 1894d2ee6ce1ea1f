package domain

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPreferences_Valid(t *testing.T) {
	prefs := DefaultPreferences()

	require.NoError(t, prefs.Validate())
	assert.Equal(t, []string{"high", "medium"}, prefs.ImpactLevels)
	assert.Equal(t, "08:00:00", prefs.DigestTime)
	assert.Equal(t, "Europe/Prague", prefs.Timezone)
	assert.Equal(t, 30, prefs.NotificationMinutes)
	assert.Equal(t, "single", prefs.ChartType)
	assert.Equal(t, 2, prefs.ChartWindowHours)
}

func TestPreferences_Validate(t *testing.T) {
	prefs := DefaultPreferences()
	prefs.PreferredCurrencies = []string{"USD", "XAU"}
	assert.NoError(t, prefs.Validate())

	prefs.PreferredCurrencies = []string{"USD", "DOGE"}
	assert.Error(t, prefs.Validate())

	prefs = DefaultPreferences()
	prefs.ImpactLevels = []string{"extreme"}
	assert.Error(t, prefs.Validate())

	prefs = DefaultPreferences()
	prefs.NotificationMinutes = 45
	assert.Error(t, prefs.Validate())

	prefs = DefaultPreferences()
	prefs.ChartWindowHours = 0
	assert.Error(t, prefs.Validate())

	prefs = DefaultPreferences()
	prefs.ChartWindowHours = 25
	assert.Error(t, prefs.Validate())

	prefs = DefaultPreferences()
	prefs.ChartType = "panorama"
	assert.Error(t, prefs.Validate())
}

func TestPreferences_FieldsRoundTrip(t *testing.T) {
	prefs := DefaultPreferences()
	prefs.PreferredCurrencies = []string{"EUR", "GBP"}

	fields := prefs.Fields()
	assert.Len(t, fields, 11)
	assert.Equal(t, pq.StringArray{"EUR", "GBP"}, fields["preferred_currencies"])
	assert.Equal(t, "08:00:00", fields["digest_time"])

	u := User{
		PreferredCurrencies:      pq.StringArray(prefs.PreferredCurrencies),
		ImpactLevels:             pq.StringArray(prefs.ImpactLevels),
		AnalysisRequired:         prefs.AnalysisRequired,
		DigestTime:               prefs.DigestTime,
		Timezone:                 prefs.Timezone,
		NotificationsEnabled:     prefs.NotificationsEnabled,
		NotificationMinutes:      prefs.NotificationMinutes,
		NotificationImpactLevels: pq.StringArray(prefs.NotificationImpactLevels),
		ChartsEnabled:            prefs.ChartsEnabled,
		ChartType:                prefs.ChartType,
		ChartWindowHours:         prefs.ChartWindowHours,
	}
	assert.Equal(t, prefs, u.Preferences())
}

func TestSupportedCurrencies(t *testing.T) {
	codes := SupportedCurrencies()
	assert.Len(t, codes, 19)
	assert.Contains(t, codes, CurrencyUSD)
	assert.Contains(t, codes, CurrencyXAU)
	assert.Contains(t, codes, CurrencyBTC)

	assert.NoError(t, ValidateCurrency("USD"))
	assert.Error(t, ValidateCurrency("usd"))
	assert.Error(t, ValidateCurrency(""))
}

func TestImpactAndStatusEnums(t *testing.T) {
	assert.NoError(t, ValidateImpact("high"))
	assert.NoError(t, ValidateImpact("medium"))
	assert.NoError(t, ValidateImpact("low"))
	assert.Error(t, ValidateImpact("severe"))

	assert.True(t, NotificationType("event_reminder").Valid())
	assert.True(t, NotificationType("daily_digest").Valid())
	assert.False(t, NotificationType("push").Valid())

	assert.True(t, NotificationStatus("pending").Valid())
	assert.True(t, NotificationStatus("cancelled").Valid())
	assert.False(t, NotificationStatus("queued").Valid())
}
