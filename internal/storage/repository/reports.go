package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/khaydarthegreat/brutalbot/internal/models"
)

// В отчеты попадают только оплаченные счета. Все периоды включительные
// с обеих сторон, как BETWEEN в исходных запросах.

func (s *Storage) countPaid(ctx context.Context, op, query string, from, to time.Time) (int, error) {
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var n int
	if err := s.DB.QueryRowContext(ctx, query, from, to).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// TotalIncome возвращает сумму оплаченных счетов за период.
func (s *Storage) TotalIncome(ctx context.Context, from, to time.Time) (int, error) {
	return s.countPaid(ctx, "storage.TotalIncome", `
		SELECT COALESCE(SUM(amount), 0) FROM invoices
		WHERE date BETWEEN $1 AND $2 AND status = 'PAID'`, from, to)
}

// DealQuantity возвращает число оплаченных счетов за период.
func (s *Storage) DealQuantity(ctx context.Context, from, to time.Time) (int, error) {
	return s.countPaid(ctx, "storage.DealQuantity", `
		SELECT COUNT(*) FROM invoices
		WHERE date BETWEEN $1 AND $2 AND status = 'PAID'`, from, to)
}

// UniqueCustomers возвращает число уникальных покупателей за период.
func (s *Storage) UniqueCustomers(ctx context.Context, from, to time.Time) (int, error) {
	return s.countPaid(ctx, "storage.UniqueCustomers", `
		SELECT COUNT(DISTINCT user_id) FROM invoices
		WHERE date BETWEEN $1 AND $2 AND status = 'PAID'`, from, to)
}

// NewCustomers возвращает число покупателей, чья первая оплата пришлась
// на период.
func (s *Storage) NewCustomers(ctx context.Context, from, to time.Time) (int, error) {
	return s.countPaid(ctx, "storage.NewCustomers", `
		SELECT COUNT(*) FROM (
			SELECT user_id, MIN(date) AS first_purchase_date
			FROM invoices WHERE status = 'PAID'
			GROUP BY user_id
		) AS user_first_purchases
		WHERE first_purchase_date BETWEEN $1 AND $2`, from, to)
}

// NewCustomerIncome возвращает доход от покупателей, впервые заплативших
// в периоде.
func (s *Storage) NewCustomerIncome(ctx context.Context, from, to time.Time) (int, error) {
	return s.countPaid(ctx, "storage.NewCustomerIncome", `
		SELECT COALESCE(SUM(invoices.amount), 0) FROM invoices
		INNER JOIN (
			SELECT user_id, MIN(date) AS first_purchase_date
			FROM invoices WHERE status = 'PAID'
			GROUP BY user_id
		) AS user_first_purchases ON invoices.user_id = user_first_purchases.user_id
		WHERE first_purchase_date BETWEEN $1 AND $2 AND status = 'PAID'`, from, to)
}

// DealsByType возвращает число оплаченных счетов заданного типа за период.
func (s *Storage) DealsByType(ctx context.Context, typ models.InvoiceType, from, to time.Time) (int, error) {
	const op = "storage.DealsByType"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var n int
	err := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM invoices
		WHERE status = 'PAID' AND type = $1 AND date BETWEEN $2 AND $3`,
		typ, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// AmountByType возвращает сумму оплаченных счетов заданного типа за период.
func (s *Storage) AmountByType(ctx context.Context, typ models.InvoiceType, from, to time.Time) (int, error) {
	const op = "storage.AmountByType"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var sum int
	err := s.DB.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM invoices
		WHERE status = 'PAID' AND type = $1 AND date BETWEEN $2 AND $3`,
		typ, from, to).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return sum, nil
}

// SalesBook возвращает все оплаченные счета периода, по строке на сделку.
func (s *Storage) SalesBook(ctx context.Context, from, to time.Time) ([]models.SalesBookRow, error) {
	const op = "storage.SalesBook"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT invoice_id, amount, date, name, COALESCE(username, ''), user_id, type
		FROM invoices
		WHERE status = 'PAID' AND date BETWEEN $1 AND $2
		ORDER BY date`, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.SalesBookRow
	for rows.Next() {
		var r models.SalesBookRow
		if err := rows.Scan(&r.InvoiceID, &r.Amount, &r.Date, &r.CustomerName,
			&r.CustomerUsername, &r.CustomerID, &r.Type); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ClientsBook возвращает агрегат по покупателям периода, по строке на клиента.
func (s *Storage) ClientsBook(ctx context.Context, from, to time.Time) ([]models.ClientsBookRow, error) {
	const op = "storage.ClientsBook"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT user_id, COALESCE(username, ''), name,
		       MIN(date) AS first_deal_date, MAX(date) AS last_deal_date,
		       COUNT(*) AS total_deals, SUM(amount) AS total_amount
		FROM invoices
		WHERE status = 'PAID' AND date BETWEEN $1 AND $2
		GROUP BY user_id, username, name
		ORDER BY total_amount DESC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.ClientsBookRow
	for rows.Next() {
		var r models.ClientsBookRow
		if err := rows.Scan(&r.CustomerID, &r.CustomerUsername, &r.CustomerName,
			&r.FirstDealDate, &r.LastDealDate, &r.TotalDeals, &r.TotalAmount); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
