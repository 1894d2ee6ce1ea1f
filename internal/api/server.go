// Package api exposes the backend over HTTP. Handlers stay thin: decode,
// call the matching domain service, encode. All business rules live below.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fxnewsbot/backend/internal/apperr"
	"github.com/fxnewsbot/backend/internal/cache"
	"github.com/fxnewsbot/backend/internal/chart"
	"github.com/fxnewsbot/backend/internal/forex"
	"github.com/fxnewsbot/backend/internal/health"
	"github.com/fxnewsbot/backend/internal/middleware"
	"github.com/fxnewsbot/backend/internal/notification"
	"github.com/fxnewsbot/backend/internal/ratelimit"
	"github.com/fxnewsbot/backend/internal/telegram"
	"github.com/fxnewsbot/backend/internal/user"
	"github.com/fxnewsbot/backend/pkg/logger"
)

// Server bundles the HTTP handlers and their dependencies.
type Server struct {
	users         *user.Service
	news          *forex.Service
	notifications *notification.Service
	charts        *chart.Generator
	tg            *telegram.Service
	cache         *cache.Cache
	checker       *health.Checker
	errHandler    *apperr.Handler
	log           *slog.Logger

	limiter         ratelimit.Limiter
	rateLimit       int
	rateLimitWindow time.Duration
}

// Options carries the optional pieces of the server.
type Options struct {
	Telegram        *telegram.Service
	Cache           *cache.Cache
	Limiter         ratelimit.Limiter
	RateLimit       int
	RateLimitWindow time.Duration
}

// NewServer wires the handler set. Telegram, cache and rate limiting are
// optional; their routes and middleware degrade gracefully when absent.
func NewServer(
	users *user.Service,
	news *forex.Service,
	notifications *notification.Service,
	charts *chart.Generator,
	checker *health.Checker,
	errHandler *apperr.Handler,
	log *slog.Logger,
	opts Options,
) *Server {
	if log == nil {
		log = slog.Default()
	}

	window := opts.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}

	return &Server{
		users:           users,
		news:            news,
		notifications:   notifications,
		charts:          charts,
		tg:              opts.Telegram,
		cache:           opts.Cache,
		checker:         checker,
		errHandler:      errHandler,
		log:             log,
		limiter:         opts.Limiter,
		rateLimit:       opts.RateLimit,
		rateLimitWindow: window,
	}
}

// Handler builds the routing table and wraps it in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleLiveness)
	mux.HandleFunc("GET /readyz", s.handleReadiness)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/v1/users", s.handleCreateUser)
	mux.HandleFunc("GET /api/v1/users", s.handleListUsers)
	mux.HandleFunc("GET /api/v1/users/active", s.handleActiveUsers)
	mux.HandleFunc("GET /api/v1/users/by-currency/{code}", s.handleUsersByCurrency)
	mux.HandleFunc("GET /api/v1/users/by-impact/{level}", s.handleUsersByImpact)
	mux.HandleFunc("GET /api/v1/users/{telegramID}", s.handleGetUser)
	mux.HandleFunc("PATCH /api/v1/users/{telegramID}", s.handleUpdateUser)
	mux.HandleFunc("DELETE /api/v1/users/{telegramID}", s.handleDeleteUser)
	mux.HandleFunc("PUT /api/v1/users/{telegramID}/preferences", s.handleUpdatePreferences)
	mux.HandleFunc("POST /api/v1/users/{telegramID}/deactivate", s.handleDeactivateUser)
	mux.HandleFunc("POST /api/v1/users/{telegramID}/touch", s.handleTouchUser)

	mux.HandleFunc("POST /api/v1/news", s.handleCreateNews)
	mux.HandleFunc("POST /api/v1/news/import", s.handleImportNews)
	mux.HandleFunc("GET /api/v1/news", s.handleListNews)
	mux.HandleFunc("GET /api/v1/news/today", s.handleTodayNews)
	mux.HandleFunc("GET /api/v1/news/date/{date}", s.handleNewsForDate)
	mux.HandleFunc("GET /api/v1/news/currency/{code}", s.handleNewsByCurrency)
	mux.HandleFunc("GET /api/v1/news/impact/{level}", s.handleNewsByImpact)
	mux.HandleFunc("GET /api/v1/news/upcoming", s.handleUpcomingNews)
	mux.HandleFunc("GET /api/v1/news/range", s.handleNewsRange)
	mux.HandleFunc("GET /api/v1/news/search", s.handleSearchNews)
	mux.HandleFunc("GET /api/v1/news/statistics", s.handleNewsStatistics)
	mux.HandleFunc("GET /api/v1/news/{id}", s.handleGetNews)
	mux.HandleFunc("PATCH /api/v1/news/{id}", s.handleUpdateNews)
	mux.HandleFunc("DELETE /api/v1/news/{id}", s.handleDeleteNews)

	mux.HandleFunc("POST /api/v1/notifications", s.handleCreateNotification)
	mux.HandleFunc("POST /api/v1/notifications/event-reminder", s.handleCreateEventReminder)
	mux.HandleFunc("POST /api/v1/notifications/digest", s.handleCreateDigest)
	mux.HandleFunc("GET /api/v1/notifications", s.handleListNotifications)
	mux.HandleFunc("GET /api/v1/notifications/pending", s.handlePendingNotifications)
	mux.HandleFunc("GET /api/v1/notifications/due", s.handleDueNotifications)
	mux.HandleFunc("GET /api/v1/notifications/statistics", s.handleNotificationStatistics)
	mux.HandleFunc("GET /api/v1/notifications/user/{telegramID}", s.handleNotificationsByUser)
	mux.HandleFunc("GET /api/v1/notifications/{id}", s.handleGetNotification)
	mux.HandleFunc("POST /api/v1/notifications/{id}/sent", s.handleMarkSent)
	mux.HandleFunc("POST /api/v1/notifications/{id}/failed", s.handleMarkFailed)
	mux.HandleFunc("POST /api/v1/notifications/{id}/cancel", s.handleCancelNotification)
	mux.HandleFunc("DELETE /api/v1/notifications/{id}", s.handleDeleteNotification)

	mux.HandleFunc("GET /api/v1/charts/currencies", s.handleChartCurrencies)
	mux.HandleFunc("GET /api/v1/charts/event/{id}", s.handleEventChart)
	mux.HandleFunc("GET /api/v1/charts/{code}", s.handleChart)

	if s.tg != nil {
		mux.HandleFunc("POST /api/v1/notifications/deliver", s.handleDeliverDue)
		mux.HandleFunc("POST /api/v1/telegram/webhook", s.handleSetWebhook)
		mux.HandleFunc("GET /api/v1/telegram/webhook", s.handleWebhookInfo)
		mux.HandleFunc("POST /api/v1/telegram/send", s.handleSendMessage)
	}

	var h http.Handler = mux
	h = middleware.Metrics(h)
	h = middleware.Logging(s.log)(h)
	if s.limiter != nil && s.rateLimit > 0 {
		h = middleware.RateLimit(s.limiter, s.rateLimit, s.rateLimitWindow, s.log)(h)
	}
	h = logger.Middleware(h)

	return h
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	report := s.checker.Check(r.Context())

	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, report)
}
