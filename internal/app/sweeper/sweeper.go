// Package sweeperapp собирает приложение свипера: ежедневный проход по
// истекшим подпискам с публикацией кандидатов на кик в очередь.
package sweeperapp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/streadway/amqp"

	"github.com/khaydarthegreat/brutalbot/internal/config"
	"github.com/khaydarthegreat/brutalbot/internal/lib/rabbitmq"
	subscriptionservice "github.com/khaydarthegreat/brutalbot/internal/services/subscription"
	sweeperservice "github.com/khaydarthegreat/brutalbot/internal/services/sweeper"
	"github.com/khaydarthegreat/brutalbot/internal/storage/repository"
)

// App приложение свипера.
type App struct {
	sweeper  *sweeperservice.Service
	cron     *cron.Cron
	schedule string
	conn     *amqp.Connection
	ch       *amqp.Channel
	db       *repository.Storage
	logger   *slog.Logger
}

func waitForDB(db *repository.Storage) error {
	for range 10 {
		if err := repository.CheckDatabaseReady(db); err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New собирает зависимости свипера: брокер, хранилище и расписание.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, []rabbitmq.QueueConfig{rabbitmq.KickQueue})
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := waitForDB(db); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	subscriptionService := subscriptionservice.New(db, logger)
	sweeperService := sweeperservice.New(subscriptionService, &rabbitmq.Producer{Channel: ch}, logger)

	return &App{
		sweeper:  sweeperService,
		cron:     cron.New(cron.WithLocation(cfg.Location())),
		schedule: cfg.Sweep.Schedule,
		conn:     conn,
		ch:       ch,
		db:       db,
		logger:   logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", slog.Any("err", err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", slog.Any("err", err))
		}
	}
}

// Run регистрирует проход свипа в планировщике и блокируется до отмены
// контекста.
func (a *App) Run(ctx context.Context) error {
	_, err := a.cron.AddFunc(a.schedule, func() {
		a.sweeper.Run(ctx, time.Now())
	})
	if err != nil {
		return fmt.Errorf("bad sweep schedule %q: %w", a.schedule, err)
	}

	a.cron.Start()
	a.logger.Info("sweeper scheduled", slog.String("schedule", a.schedule))

	<-ctx.Done()
	a.logger.Info("shutting down sweeper")

	stopCtx := a.cron.Stop()
	<-stopCtx.Done()

	closeResources(a.ch, a.conn, a.logger)
	a.db.DB.Close()
	return nil
}
