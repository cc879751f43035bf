// Package kickerapp собирает приложение кикера: потребитель очереди
// киков, отзывающий VIP-доступ у истекших подписчиков.
package kickerapp

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/streadway/amqp"

	"github.com/khaydarthegreat/brutalbot/internal/bot"
	"github.com/khaydarthegreat/brutalbot/internal/config"
	"github.com/khaydarthegreat/brutalbot/internal/lib/rabbitmq"
	kickerservice "github.com/khaydarthegreat/brutalbot/internal/services/kicker"
	subscriptionservice "github.com/khaydarthegreat/brutalbot/internal/services/subscription"
	"github.com/khaydarthegreat/brutalbot/internal/storage/repository"
)

// App приложение кикера.
type App struct {
	kicker *kickerservice.Service
	conn   *amqp.Connection
	ch     *amqp.Channel
	db     *repository.Storage
	logger *slog.Logger
}

// New собирает зависимости кикера: брокер, хранилище и API Telegram
// для бана в VIP-группе.
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

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to authorize bot: %w", err)
	}

	subscriptionService := subscriptionservice.New(db, logger)
	gate := bot.NewNotifier(api, cfg.VIPGroupID)
	kickerService := kickerservice.New(subscriptionService, gate, logger)

	return &App{
		kicker: kickerService,
		conn:   conn,
		ch:     ch,
		db:     db,
		logger: logger,
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

// Run запускает потребителя очереди киков и блокируется до отмены
// контекста.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumeMessages(ctx, a.ch, rabbitmq.KickQueue.QueueName, a.kicker.HandleKick)
	if err != nil {
		a.logger.Error("failed to start kick queue consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutting down kicker")

	closeResources(a.ch, a.conn, a.logger)
	a.db.DB.Close()
	return nil
}
