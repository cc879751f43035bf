// Package kicker потребляет кандидатов на кик из очереди и отзывает
// VIP-доступ: бан в группе, уведомление клиента, снятие строки подписки.
package kicker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/khaydarthegreat/brutalbot/internal/lib/sl"
	"github.com/khaydarthegreat/brutalbot/internal/models"
)

// Revoker снимает строку подписки после отзыва доступа.
type Revoker interface {
	Revoke(ctx context.Context, customerID int64) error
}

// GroupGate управляет членством клиента в VIP-группе.
type GroupGate interface {
	Ban(ctx context.Context, customerID int64) error
	NotifyKicked(ctx context.Context, candidate models.KickCandidate) error
}

// Service обработчик сообщений очереди киков.
type Service struct {
	revoker Revoker
	gate    GroupGate
	log     *slog.Logger
}

// New создает сервис кикера.
func New(revoker Revoker, gate GroupGate, log *slog.Logger) *Service {
	return &Service{revoker: revoker, gate: gate, log: log}
}

// HandleKick обрабатывает одно сообщение очереди: бан, уведомление,
// удаление подписки. Ошибка бана возвращается для переобработки, ошибка
// уведомления не блокирует снятие строки.
func (s *Service) HandleKick(body []byte) error {
	const op = "kicker.HandleKick"
	log := s.log.With(slog.String("op", op))

	var candidate models.KickCandidate
	if err := json.Unmarshal(body, &candidate); err != nil {
		log.Error("failed to unmarshal kick candidate", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	log = log.With(slog.Int64("customer_id", candidate.CustomerID))

	ctx := context.Background()
	if err := s.gate.Ban(ctx, candidate.CustomerID); err != nil {
		log.Error("failed to ban customer", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.gate.NotifyKicked(ctx, candidate); err != nil {
		log.Warn("failed to notify kicked customer", sl.Err(err))
	}

	if err := s.revoker.Revoke(ctx, candidate.CustomerID); err != nil {
		log.Error("failed to revoke subscription", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("customer kicked", slog.Time("kick_date", candidate.KickDate))
	return nil
}
