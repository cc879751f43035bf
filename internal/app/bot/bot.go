// Package botapp собирает основное приложение: Telegram-бот кассы и
// служебный HTTP-сервер с health, метриками и API отчетов.
package botapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/khaydarthegreat/brutalbot/internal/bot"
	"github.com/khaydarthegreat/brutalbot/internal/cache"
	"github.com/khaydarthegreat/brutalbot/internal/config"
	"github.com/khaydarthegreat/brutalbot/internal/migrations"
	invoiceservice "github.com/khaydarthegreat/brutalbot/internal/services/invoice"
	reportservice "github.com/khaydarthegreat/brutalbot/internal/services/report"
	settingsservice "github.com/khaydarthegreat/brutalbot/internal/services/settings"
	"github.com/khaydarthegreat/brutalbot/internal/storage/repository"
)

// App основное приложение: бот и служебный HTTP-сервер.
type App struct {
	bot    *bot.Bot
	server *http.Server
	db     *repository.Storage
	logger *slog.Logger
}

// New собирает зависимости приложения: хранилище с миграциями, кеш,
// API Telegram, сервисы и маршруты служебного сервера.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize bot: %w", err)
	}

	notifier := bot.NewNotifier(api, cfg.VIPGroupID)
	invoiceService := invoiceservice.New(db, notifier, logger)
	settingsService := settingsservice.New(db, cacheRedis, logger)
	reportService := reportservice.New(db, logger)

	loc := cfg.Location()
	b := bot.New(api, cfg.Telegram, invoiceService, settingsService, reportService, logger, loc)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, reportService, loc)

	srv := &http.Server{
		Addr:         cfg.OpsServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.OpsServer.Timeout,
		WriteTimeout: cfg.OpsServer.Timeout,
		IdleTimeout:  cfg.OpsServer.IdleTimeout,
	}

	return &App{
		bot:    b,
		server: srv,
		db:     db,
		logger: logger,
	}, nil
}

// Run запускает бота и служебный сервер до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("ops server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	go func() {
		err := a.bot.Run(ctx)
		if errors.Is(err, context.Canceled) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.db.DB.Close()
		return err
	}
}
