// Package telegram is the thin boundary between the backend and the Telegram
// Bot API. It owns the telebot session, registers the user on first contact
// and sends outbound notifications; everything else lives in the domain
// services.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/fxnewsbot/backend/internal/cache"
	"github.com/fxnewsbot/backend/internal/domain"
	"github.com/fxnewsbot/backend/internal/user"
	"github.com/fxnewsbot/backend/pkg/config"
)

const (
	CommandStart    = "/start"
	CommandSettings = "/settings"
)

// Service wraps telebot.Bot with the application dependencies needed to
// register users and deliver notifications.
type Service struct {
	bot   *telebot.Bot
	users *user.Service
	cache *cache.Cache
	log   *slog.Logger
}

// New builds the Telegram boundary service. With cfg.Offline the session
// skips the getMe verification call, so tests run without a token.
func New(cfg config.TelegramConfig, users *user.Service, c *cache.Cache, log *slog.Logger) (*Service, error) {
	settings := telebot.Settings{
		Token:   cfg.Token,
		Offline: cfg.Offline,
		Poller:  &telebot.LongPoller{Timeout: 10 * time.Second},
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	s := &Service{
		bot:   tb,
		users: users,
		cache: c,
		log:   log,
	}

	tb.Handle(CommandStart, s.handleStart)
	tb.Handle(CommandSettings, s.handleSettings)
	tb.Handle(telebot.OnText, s.handleText)

	return s, nil
}

// Start runs the long-polling event loop. Blocks until Stop is called.
func (s *Service) Start() {
	s.bot.Start()
}

// Stop gracefully stops the polling loop.
func (s *Service) Stop() {
	if s.log != nil {
		s.log.Info("stopping telegram bot")
	}
	s.bot.Stop()
}

// Bot exposes the underlying telebot instance for health checks.
func (s *Service) Bot() *telebot.Bot {
	return s.bot
}

// SendMessage delivers a plain text message to a Telegram chat.
func (s *Service) SendMessage(ctx context.Context, telegramID int64, text string) error {
	if _, err := s.bot.Send(&telebot.User{ID: telegramID}, text); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// Deliver sends one scheduled notification to its recipient, claiming a
// dedup key first so concurrent workers never double-send event reminders.
// Reports false when another worker already holds the claim.
func (s *Service) Deliver(ctx context.Context, n *domain.Notification, telegramID int64) (bool, error) {
	if n.EventID != nil {
		claimed, err := s.cache.ClaimDelivery(ctx, n.UserID, *n.EventID, n.NotificationType)
		if err != nil {
			s.log.Warn("delivery dedup claim failed, sending anyway",
				slog.Int64("notification_id", n.ID), slog.Any("error", err))
		} else if !claimed {
			return false, nil
		}
	}

	if err := s.SendMessage(ctx, telegramID, n.Message); err != nil {
		return false, err
	}

	return true, nil
}

// SetWebhook registers the webhook URL with the Bot API.
func (s *Service) SetWebhook(ctx context.Context, url string) error {
	params := map[string]string{"url": url}
	if _, err := s.bot.Raw("setWebhook", params); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

// WebhookInfo reports the currently registered webhook configuration.
func (s *Service) WebhookInfo(ctx context.Context) (map[string]any, error) {
	data, err := s.bot.Raw("getWebhookInfo", nil)
	if err != nil {
		return nil, fmt.Errorf("get webhook info: %w", err)
	}

	var resp struct {
		Result map[string]any `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode webhook info: %w", err)
	}

	return resp.Result, nil
}

func (s *Service) handleStart(c telebot.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx := context.Background()
	u, err := s.users.GetOrCreate(ctx, domain.UserCreate{
		TelegramID:   sender.ID,
		Username:     optionalString(sender.Username),
		FirstName:    optionalString(sender.FirstName),
		LastName:     optionalString(sender.LastName),
		LanguageCode: optionalString(sender.LanguageCode),
	})
	if err != nil {
		s.log.Error("start handler failed to register user",
			slog.Int64("telegram_id", sender.ID), slog.Any("error", err))
		return c.Send("Something went wrong. Please try again later.")
	}

	if err := s.cache.SetUser(ctx, u); err != nil {
		s.log.Warn("failed to cache user snapshot", slog.Any("error", err))
	}

	return c.Send("Welcome! You will now receive forex news notifications. Use /settings to adjust your preferences.")
}

func (s *Service) handleSettings(c telebot.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx := context.Background()
	u, err := s.users.GetByTelegramID(ctx, sender.ID)
	if err != nil {
		s.log.Error("settings handler failed", slog.Int64("telegram_id", sender.ID), slog.Any("error", err))
		return c.Send("Something went wrong. Please try again later.")
	}
	if u == nil {
		return c.Send("Send /start first to set up your profile.")
	}

	return c.Send(settingsMessage(u.Preferences()))
}

func settingsMessage(prefs domain.Preferences) string {
	return fmt.Sprintf(
		"Your settings:\nCurrencies: %v\nImpact levels: %v\nReminder: %d minutes before\nNotifications: %v\nDaily digest at %s\nTimezone: %s",
		prefs.PreferredCurrencies,
		prefs.ImpactLevels,
		prefs.NotificationMinutes,
		prefs.NotificationsEnabled,
		prefs.DigestTime,
		prefs.Timezone,
	)
}

func (s *Service) handleText(c telebot.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	if found, err := s.users.UpdateLastActive(context.Background(), sender.ID); err != nil {
		s.log.Warn("failed to touch last_active", slog.Int64("telegram_id", sender.ID), slog.Any("error", err))
	} else if !found {
		return c.Send("Send /start first to set up your profile.")
	}

	return nil
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
