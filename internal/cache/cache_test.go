package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxnewsbot/backend/internal/domain"
	"github.com/fxnewsbot/backend/pkg/redis"
)

func setupCache(t *testing.T) *Cache {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(redis.NewFromClient(client))
}

func TestUserCache_RoundTrip(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	miss, err := c.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, miss)

	u := &domain.User{ID: 1, TelegramID: 42, DigestTime: "08:00:00", IsActive: true}
	require.NoError(t, c.SetUser(ctx, u))

	got, err := c.GetUser(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(42), got.TelegramID)
	assert.Equal(t, "08:00:00", got.DigestTime)

	require.NoError(t, c.InvalidateUser(ctx, 42))

	gone, err := c.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestDayNews_RoundTripAndInvalidation(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	currency := "USD"

	miss, err := c.GetDayNews(ctx, day, &currency, nil)
	require.NoError(t, err)
	assert.Nil(t, miss)

	entries := []domain.ForexNews{{ID: 1, Currency: "USD", Event: "CPI", ImpactLevel: "high", Date: day}}
	require.NoError(t, c.SetDayNews(ctx, day, &currency, nil, entries))

	got, err := c.GetDayNews(ctx, day, &currency, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "CPI", got[0].Event)

	// A different filter combination is a separate bucket.
	other, err := c.GetDayNews(ctx, day, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, c.InvalidateNews(ctx))

	gone, err := c.GetDayNews(ctx, day, &currency, nil)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestClaimDelivery_DeduplicatesConcurrentSenders(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	first, err := c.ClaimDelivery(ctx, 1, 55, "event_reminder")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := c.ClaimDelivery(ctx, 1, 55, "event_reminder")
	require.NoError(t, err)
	assert.False(t, second)

	// Different event is a separate claim.
	other, err := c.ClaimDelivery(ctx, 1, 56, "event_reminder")
	require.NoError(t, err)
	assert.True(t, other)
}

func TestNilCache_IsDisabled(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	got, err := c.GetUser(ctx, 1)
	assert.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, c.SetUser(ctx, &domain.User{TelegramID: 1}))
	assert.NoError(t, c.InvalidateNews(ctx))

	claimed, err := c.ClaimDelivery(ctx, 1, 2, "event_reminder")
	assert.NoError(t, err)
	assert.True(t, claimed)
}
