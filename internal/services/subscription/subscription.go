// Package subscription содержит сторону отзыва доступа движка подписок:
// выборку истекших подписчиков и снятие строки после кика.
// Продление выполняет машина состояний счета при проставлении типа.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/khaydarthegreat/brutalbot/internal/metrics"
	"github.com/khaydarthegreat/brutalbot/internal/models"
)

// Repository определяет методы хранилища подписок.
type Repository interface {
	GetSubscription(ctx context.Context, customerID int64) (*models.Subscription, error)
	ListExpiredSubscriptions(ctx context.Context, now time.Time) ([]models.KickCandidate, error)
	DeleteSubscription(ctx context.Context, customerID int64) error
}

// Service читает и сворачивает подписки.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// New создает сервис подписок.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Get возвращает подписку клиента.
func (s *Service) Get(ctx context.Context, customerID int64) (*models.Subscription, error) {
	const op = "subscription.Get"

	sub, err := s.repo.GetSubscription(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// SweepExpired возвращает подписчиков с истекшей подпиской на момент now.
// Только выборка кандидатов, отзыв доступа выполняет потребитель очереди.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) ([]models.KickCandidate, error) {
	const op = "subscription.SweepExpired"
	log := s.log.With(slog.String("op", op))

	candidates, err := s.repo.ListExpiredSubscriptions(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("expired subscriptions selected", slog.Int("count", len(candidates)))
	return candidates, nil
}

// Revoke удаляет строку подписки после отзыва доступа. Без строки клиент
// не вернется в выборку и не получит доступ без нового подтвержденного счета.
func (s *Service) Revoke(ctx context.Context, customerID int64) error {
	const op = "subscription.Revoke"

	if err := s.repo.DeleteSubscription(ctx, customerID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	metrics.SubscriptionKicks.Inc()
	s.log.Info("subscription revoked",
		slog.String("op", op), slog.Int64("customer_id", customerID))
	return nil
}
