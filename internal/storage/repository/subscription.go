package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/khaydarthegreat/brutalbot/internal/lib/renewal"
	"github.com/khaydarthegreat/brutalbot/internal/models"
)

// GetSubscription возвращает VIP-подписку клиента.
func (s *Storage) GetSubscription(ctx context.Context, customerID int64) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var sub models.Subscription
	var username sql.NullString
	err := s.DB.QueryRowContext(ctx, `
		SELECT user_id, name, username, duration, kick_date, paid, renewal_times
		FROM vip WHERE user_id = $1`, customerID).
		Scan(&sub.CustomerID, &sub.CustomerName, &username, &sub.DurationDays,
			&sub.KickDate, &sub.Paid, &sub.RenewalTimes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sub.CustomerUsername = username.String
	return &sub, nil
}

// RenewSubscription создает подписку при первой покупке или продлевает
// существующую. Чтение и запись идут в одной транзакции с блокировкой
// строки, чтобы два одновременно подтвержденных VIP-счета одного клиента
// не потеряли продление.
func (s *Storage) RenewSubscription(ctx context.Context, customerID int64, name, username string, days int, now time.Time) (*models.Subscription, error) {
	const op = "storage.RenewSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var duration, renewals int
	var kickDate time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT duration, kick_date, renewal_times
		FROM vip WHERE user_id = $1 FOR UPDATE`, customerID).
		Scan(&duration, &kickDate, &renewals)

	sub := models.Subscription{
		CustomerID:       customerID,
		CustomerName:     name,
		CustomerUsername: username,
		Paid:             true,
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		sub.DurationDays = days
		sub.KickDate = renewal.FirstKickDate(now, days)
		sub.RenewalTimes = 0

		_, err = tx.ExecContext(ctx, `
			INSERT INTO vip (user_id, name, username, duration, kick_date, paid, renewal_times)
			VALUES ($1, $2, $3, $4, $5, TRUE, 0)`,
			customerID, name, username, sub.DurationDays, sub.KickDate)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	default:
		sub.DurationDays = duration + days
		sub.KickDate = renewal.NextKickDate(kickDate, now, days)
		sub.RenewalTimes = renewals + 1

		_, err = tx.ExecContext(ctx, `
			UPDATE vip SET duration = $1, kick_date = $2, renewal_times = $3, paid = TRUE
			WHERE user_id = $4`,
			sub.DurationDays, sub.KickDate, sub.RenewalTimes, customerID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &sub, nil
}

// ListExpiredSubscriptions возвращает подписчиков с kick_date <= now.
// Сама по себе выборка ничего не отзывает, кик выполняет потребитель очереди.
func (s *Storage) ListExpiredSubscriptions(ctx context.Context, now time.Time) ([]models.KickCandidate, error) {
	const op = "storage.ListExpiredSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT user_id, name, kick_date FROM vip WHERE kick_date <= $1`, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.KickCandidate
	for rows.Next() {
		var c models.KickCandidate
		if err := rows.Scan(&c.CustomerID, &c.CustomerName, &c.KickDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DeleteSubscription удаляет строку подписки после отзыва доступа,
// чтобы клиент не попадал в выборку повторно и не вернулся без новой оплаты.
func (s *Storage) DeleteSubscription(ctx context.Context, customerID int64) error {
	const op = "storage.DeleteSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	_, err := s.DB.ExecContext(ctx, `DELETE FROM vip WHERE user_id = $1`, customerID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
