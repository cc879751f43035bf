// Package sweeper публикует кандидатов на кик в очередь.
// Запускается по расписанию раз в день.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/khaydarthegreat/brutalbot/internal/lib/rabbitmq"
	"github.com/khaydarthegreat/brutalbot/internal/lib/sl"
	"github.com/khaydarthegreat/brutalbot/internal/models"
)

// Expirer выбирает подписчиков с истекшей подпиской.
type Expirer interface {
	SweepExpired(ctx context.Context, now time.Time) ([]models.KickCandidate, error)
}

// Publisher публикует сообщение в обменник брокера.
type Publisher interface {
	Publish(exchange, routingKey string, message any) error
}

// Service один проход свипа: выборка и публикация в очередь киков.
type Service struct {
	expirer   Expirer
	publisher Publisher
	log       *slog.Logger
}

// New создает сервис свипа.
func New(expirer Expirer, publisher Publisher, log *slog.Logger) *Service {
	return &Service{expirer: expirer, publisher: publisher, log: log}
}

// Run выполняет один проход: выбирает истекших подписчиков и публикует
// каждого в очередь киков. Ошибка публикации одного кандидата не
// прерывает остальных, пропущенные попадут в следующий ежедневный проход.
func (s *Service) Run(ctx context.Context, now time.Time) {
	s.log.Info("starting expired subscriptions sweep", slog.Time("now", now))

	candidates, err := s.expirer.SweepExpired(ctx, now)
	if err != nil {
		s.log.Error("failed to select expired subscriptions", sl.Err(err))
		return
	}
	if len(candidates) == 0 {
		s.log.Info("no expired subscriptions found")
		return
	}

	for _, candidate := range candidates {
		err = s.publisher.Publish(rabbitmq.Exchange, rabbitmq.KickQueue.RoutingKey, candidate)
		if err != nil {
			s.log.Error("failed to publish kick candidate", sl.Err(err),
				slog.Int64("customer_id", candidate.CustomerID))
			continue
		}
		s.log.Info("kick candidate published",
			slog.Int64("customer_id", candidate.CustomerID),
			slog.Time("kick_date", candidate.KickDate))
	}
}
