package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jmoiron/sqlx"

	_ "github.com/lib/pq"

	"github.com/fxnewsbot/backend/internal/api"
	"github.com/fxnewsbot/backend/internal/apperr"
	"github.com/fxnewsbot/backend/internal/cache"
	"github.com/fxnewsbot/backend/internal/chart"
	"github.com/fxnewsbot/backend/internal/database"
	"github.com/fxnewsbot/backend/internal/forex"
	"github.com/fxnewsbot/backend/internal/health"
	"github.com/fxnewsbot/backend/internal/lifecycle"
	"github.com/fxnewsbot/backend/internal/notification"
	"github.com/fxnewsbot/backend/internal/ratelimit"
	"github.com/fxnewsbot/backend/internal/repository"
	"github.com/fxnewsbot/backend/internal/telegram"
	"github.com/fxnewsbot/backend/internal/user"
	"github.com/fxnewsbot/backend/pkg/config"
	"github.com/fxnewsbot/backend/pkg/graceful"
	"github.com/fxnewsbot/backend/pkg/logger"
	"github.com/fxnewsbot/backend/pkg/metrics"
	appredis "github.com/fxnewsbot/backend/pkg/redis"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, _, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		return 1
	}

	log, levelVar := logger.New(*cfg)

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.AppEnv,
		}); err != nil {
			log.Error("failed to initialize sentry", slog.Any("error", err))
			return 1
		}
		defer sentry.Flush(2 * time.Second)
	}

	log.Info("starting forex news backend",
		slog.String("env", cfg.AppEnv),
		slog.String("http_port", cfg.HTTP.Port),
	)

	db, err := sqlx.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Error("failed to open database", slog.Any("error", err))
		return 1
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Error("error closing database", slog.Any("error", cerr))
		}
	}()

	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to ping database", slog.Any("error", err))
		return 1
	}

	migrationsDir := cfg.Database.MigrationsDir
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}
	if err := database.NewMigrator(db, log).ApplyDir(ctx, migrationsDir); err != nil {
		log.Error("failed to apply migrations", slog.Any("error", err))
		return 1
	}

	var (
		redisClient *appredis.Client
		appCache    *cache.Cache
		limiter     ratelimit.Limiter
	)
	if cfg.Redis.Enabled {
		redisClient, err = appredis.New(ctx, cfg.Redis)
		if err != nil {
			log.Error("failed to connect to redis", slog.Any("error", err))
			return 1
		}
		appCache = cache.New(appredis.NewMetricsClient(redisClient))
		limiter = ratelimit.NewRedisLimiter(redisClient.Client, log)
	} else {
		limiter = ratelimit.NewMemoryLimiter()
	}

	userRepo := repository.NewUserRepository(db, log)
	forexRepo := repository.NewForexRepository(db, log)
	notificationRepo := repository.NewNotificationRepository(db, log)

	userService := user.NewService(userRepo, log)
	forexService := forex.NewService(forexRepo, log)
	notificationService := notification.NewService(notificationRepo, log)
	chartGenerator := chart.NewGenerator(log)
	errHandler := apperr.NewHandler(log, cfg.Sentry.Enabled)

	checker := health.NewChecker(log)
	checker.AddCheck("database", health.NewDBChecker(db))
	if redisClient != nil {
		checker.AddCheck("redis", health.NewRedisChecker(redisClient.Client))
	}

	var tg *telegram.Service
	if cfg.Telegram.Enabled {
		tg, err = telegram.New(cfg.Telegram, userService, appCache, log)
		if err != nil {
			log.Error("failed to initialize telegram bot", slog.Any("error", err))
			return 1
		}
		checker.AddCheck("telegram", health.NewTelegramChecker(tg.Bot()))
		go tg.Start()
	}

	sampler := metrics.NewSampler(
		func(ctx context.Context) (int, error) {
			pending, err := notificationService.Pending(ctx)
			return len(pending), err
		},
		func(ctx context.Context) (int64, error) {
			return userService.Count(ctx)
		},
		30*time.Second,
	)
	go sampler.Run(ctx)

	if err := config.WatchLogLevel(ctx, config.ConfigPath(cfg.AppEnv), log, func(level string) {
		levelVar.Set(logger.ParseLevel(level))
	}); err != nil {
		log.Warn("config watcher unavailable", slog.Any("error", err))
	}

	server := api.NewServer(
		userService,
		forexService,
		notificationService,
		chartGenerator,
		checker,
		errHandler,
		log,
		api.Options{
			Telegram:        tg,
			Cache:           appCache,
			Limiter:         limiter,
			RateLimit:       cfg.HTTP.RateLimit,
			RateLimitWindow: cfg.HTTP.RateLimitWindow,
		},
	)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	shutdown := lifecycle.NewShutdown(log, cfg.HTTP.ShutdownTimeout)
	if tg != nil {
		shutdown.Register("telegram", func(context.Context) error {
			tg.Stop()
			return nil
		})
	}
	if redisClient != nil {
		shutdown.Register("redis", func(context.Context) error {
			return redisClient.Close()
		})
	}

	serveErr := graceful.NewServer(log, httpServer, cfg.HTTP.ShutdownTimeout).ListenAndServe(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", slog.Any("error", err))
	}

	if serveErr != nil {
		log.Error("http server failed", slog.Any("error", serveErr))
		return 1
	}

	log.Info("forex news backend stopped")
	return 0
}
