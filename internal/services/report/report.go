// Package report собирает статистику продаж и клиентов за период
// и кодирует книги продаж и клиентов в CSV для выгрузки.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/khaydarthegreat/brutalbot/internal/lib/period"
	"github.com/khaydarthegreat/brutalbot/internal/models"
)

const csvTimeLayout = "2006-01-02 15:04"

// Repository определяет запросы отчетов к хранилищу.
type Repository interface {
	TotalIncome(ctx context.Context, from, to time.Time) (int, error)
	DealQuantity(ctx context.Context, from, to time.Time) (int, error)
	UniqueCustomers(ctx context.Context, from, to time.Time) (int, error)
	NewCustomers(ctx context.Context, from, to time.Time) (int, error)
	NewCustomerIncome(ctx context.Context, from, to time.Time) (int, error)
	DealsByType(ctx context.Context, typ models.InvoiceType, from, to time.Time) (int, error)
	AmountByType(ctx context.Context, typ models.InvoiceType, from, to time.Time) (int, error)
	SalesBook(ctx context.Context, from, to time.Time) ([]models.SalesBookRow, error)
	ClientsBook(ctx context.Context, from, to time.Time) ([]models.ClientsBookRow, error)
}

// Service агрегатор отчетов.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// New создает сервис отчетов.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Stats собирает десять метрик продаж за период.
func (s *Service) Stats(ctx context.Context, r period.Range) (*models.ReportStats, error) {
	const op = "report.Stats"

	var stats models.ReportStats
	var err error

	if stats.TotalIncome, err = s.repo.TotalIncome(ctx, r.From, r.To); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if stats.DealQuantity, err = s.repo.DealQuantity(ctx, r.From, r.To); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if stats.UniqueCustomers, err = s.repo.UniqueCustomers(ctx, r.From, r.To); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if stats.NewCustomers, err = s.repo.NewCustomers(ctx, r.From, r.To); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if stats.NewCustomerIncome, err = s.repo.NewCustomerIncome(ctx, r.From, r.To); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if stats.IncomingDeals, err = s.repo.DealsByType(ctx, models.TypeIncoming, r.From, r.To); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if stats.OutgoingDeals, err = s.repo.DealsByType(ctx, models.TypeOutgoing, r.From, r.To); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if stats.IncomingAmount, err = s.repo.AmountByType(ctx, models.TypeIncoming, r.From, r.To); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if stats.OutgoingAmount, err = s.repo.AmountByType(ctx, models.TypeOutgoing, r.From, r.To); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if stats.DealQuantity > 0 {
		stats.AverageDealAmount = float64(stats.TotalIncome) / float64(stats.DealQuantity)
	}

	s.log.Info("stats report built",
		slog.String("op", op),
		slog.String("period", r.String()),
		slog.Int("deals", stats.DealQuantity))
	return &stats, nil
}

// SalesBook возвращает строки книги продаж за период.
func (s *Service) SalesBook(ctx context.Context, r period.Range) ([]models.SalesBookRow, error) {
	const op = "report.SalesBook"

	rows, err := s.repo.SalesBook(ctx, r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rows, nil
}

// ClientsBook возвращает строки книги клиентов за период.
func (s *Service) ClientsBook(ctx context.Context, r period.Range) ([]models.ClientsBookRow, error) {
	const op = "report.ClientsBook"

	rows, err := s.repo.ClientsBook(ctx, r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rows, nil
}

// SalesBookCSV кодирует книгу продаж в CSV для отправки документом.
func (s *Service) SalesBookCSV(ctx context.Context, r period.Range) ([]byte, error) {
	const op = "report.SalesBookCSV"

	rows, err := s.SalesBook(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	records := [][]string{
		{"invoice_id", "amount", "date", "name", "username", "user_id", "type"},
	}
	for _, row := range rows {
		records = append(records, []string{
			strconv.Itoa(row.InvoiceID),
			strconv.Itoa(row.Amount),
			row.Date.Format(csvTimeLayout),
			row.CustomerName,
			row.CustomerUsername,
			strconv.FormatInt(row.CustomerID, 10),
			string(row.Type),
		})
	}
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return buf.Bytes(), nil
}

// ClientsBookCSV кодирует книгу клиентов в CSV для отправки документом.
func (s *Service) ClientsBookCSV(ctx context.Context, r period.Range) ([]byte, error) {
	const op = "report.ClientsBookCSV"

	rows, err := s.ClientsBook(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	records := [][]string{
		{"user_id", "username", "name", "first_deal_date", "last_deal_date", "total_deals", "total_amount"},
	}
	for _, row := range rows {
		records = append(records, []string{
			strconv.FormatInt(row.CustomerID, 10),
			row.CustomerUsername,
			row.CustomerName,
			row.FirstDealDate.Format(csvTimeLayout),
			row.LastDealDate.Format(csvTimeLayout),
			strconv.Itoa(row.TotalDeals),
			strconv.Itoa(row.TotalAmount),
		})
	}
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return buf.Bytes(), nil
}
