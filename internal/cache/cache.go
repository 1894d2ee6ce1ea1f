// Package cache layers Redis caching over the domain services: user profile
// snapshots, day buckets of calendar entries, and delivery deduplication keys.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxnewsbot/backend/internal/domain"
	"github.com/fxnewsbot/backend/pkg/redis"
)

// Store abstracts the Redis client so the instrumented wrapper slots in.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const (
	userTTL  = 10 * time.Minute
	newsTTL  = 5 * time.Minute
	dedupTTL = 24 * time.Hour
)

// Cache bundles the application's Redis caching concerns. A nil Cache is
// valid and disables caching entirely.
type Cache struct {
	store Store
}

// New constructs a Cache over the given store.
func New(store Store) *Cache {
	if store == nil {
		return nil
	}
	return &Cache{store: store}
}

// GetUser fetches a cached user snapshot by telegram id. A miss returns
// (nil, nil).
func (c *Cache) GetUser(ctx context.Context, telegramID int64) (*domain.User, error) {
	if c == nil {
		return nil, nil
	}

	data, err := c.store.Get(ctx, userKey(telegramID))
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached user: %w", err)
	}

	var user domain.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("decode cached user: %w", err)
	}

	return &user, nil
}

// SetUser stores a user snapshot keyed by telegram id.
func (c *Cache) SetUser(ctx context.Context, user *domain.User) error {
	if c == nil || user == nil {
		return nil
	}

	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user for cache: %w", err)
	}

	if err := c.store.Set(ctx, userKey(user.TelegramID), payload, userTTL); err != nil {
		return fmt.Errorf("set cached user: %w", err)
	}

	return nil
}

// InvalidateUser drops the cached snapshot for one telegram id.
func (c *Cache) InvalidateUser(ctx context.Context, telegramID int64) error {
	if c == nil {
		return nil
	}

	if err := c.store.Delete(ctx, userKey(telegramID)); err != nil {
		return fmt.Errorf("delete cached user: %w", err)
	}

	return nil
}

// GetDayNews fetches the cached calendar entries for one day and filter
// combination. A miss returns (nil, nil).
func (c *Cache) GetDayNews(ctx context.Context, day time.Time, currency, impact *string) ([]domain.ForexNews, error) {
	if c == nil {
		return nil, nil
	}

	data, err := c.store.Get(ctx, dayKey(day, currency, impact))
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached news: %w", err)
	}

	var entries []domain.ForexNews
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return nil, fmt.Errorf("decode cached news: %w", err)
	}

	return entries, nil
}

// SetDayNews stores one day's calendar entries for a filter combination.
func (c *Cache) SetDayNews(ctx context.Context, day time.Time, currency, impact *string, entries []domain.ForexNews) error {
	if c == nil || entries == nil {
		return nil
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode news for cache: %w", err)
	}

	if err := c.store.Set(ctx, dayKey(day, currency, impact), payload, newsTTL); err != nil {
		return fmt.Errorf("set cached news: %w", err)
	}

	return nil
}

// InvalidateNews drops every cached day bucket. Called after imports and
// entry mutations.
func (c *Cache) InvalidateNews(ctx context.Context) error {
	if c == nil {
		return nil
	}

	if err := c.store.DeleteByPattern(ctx, "news:day:*"); err != nil {
		return fmt.Errorf("invalidate cached news: %w", err)
	}

	return nil
}

// ClaimDelivery marks a (user, event, type) delivery as claimed. Reports
// false when another worker already claimed it within the dedup window.
func (c *Cache) ClaimDelivery(ctx context.Context, userID, eventID int64, notificationType string) (bool, error) {
	if c == nil {
		return true, nil
	}

	key := fmt.Sprintf("notif:dedup:%d:%d:%s", userID, eventID, notificationType)
	claimed, err := c.store.SetNX(ctx, key, "1", dedupTTL)
	if err != nil {
		return false, fmt.Errorf("claim delivery: %w", err)
	}

	return claimed, nil
}

func userKey(telegramID int64) string {
	return fmt.Sprintf("user:tg:%d", telegramID)
}

func dayKey(day time.Time, currency, impact *string) string {
	key := "news:day:" + day.UTC().Format("2006-01-02")
	if currency != nil {
		key += ":c=" + *currency
	}
	if impact != nil {
		key += ":i=" + *impact
	}
	return key
}
