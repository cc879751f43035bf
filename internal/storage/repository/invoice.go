package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/khaydarthegreat/brutalbot/internal/models"
)

const invoiceColumns = `invoice_id, amount, product, user_id, name, username,
       salesman, status, type, date, screenshot_id, subscription_length`

func scanInvoice(row *sql.Row) (*models.Invoice, error) {
	var inv models.Invoice
	var username, salesman sql.NullString
	err := row.Scan(&inv.ID, &inv.Amount, &inv.Product, &inv.CustomerID,
		&inv.CustomerName, &username, &salesman, &inv.Status, &inv.Type,
		&inv.CreatedAt, &inv.ScreenshotID, &inv.SubscriptionLength)
	if err != nil {
		return nil, err
	}
	inv.CustomerUsername = username.String
	inv.Salesman = salesman.String
	return &inv, nil
}

// NextInvoiceID возвращает max(invoice_id)+1. Сервис досканирует вверх
// через InvoiceExists, если этот id занят вставленной извне строкой.
func (s *Storage) NextInvoiceID(ctx context.Context) (int, error) {
	const op = "storage.NextInvoiceID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var next int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(invoice_id), 0) + 1 FROM invoices`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return next, nil
}

// InvoiceExists сообщает, занят ли invoice_id.
func (s *Storage) InvoiceExists(ctx context.Context, id int) (bool, error) {
	const op = "storage.InvoiceExists"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM invoices WHERE invoice_id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// CreateInvoice сохраняет новый счет со статусом PENDING.
func (s *Storage) CreateInvoice(ctx context.Context, inv models.Invoice) error {
	const op = "storage.CreateInvoice"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO invoices (invoice_id, amount, product, user_id, name, username,
		                      salesman, status, type, date, subscription_length)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		inv.ID, inv.Amount, inv.Product, inv.CustomerID, inv.CustomerName,
		inv.CustomerUsername, inv.Salesman, models.StatusPending, models.TypeUnset,
		inv.CreatedAt, inv.SubscriptionLength)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetInvoice возвращает счет по id.
func (s *Storage) GetInvoice(ctx context.Context, id int) (*models.Invoice, error) {
	const op = "storage.GetInvoice"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	row := s.DB.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE invoice_id = $1`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return inv, nil
}

// GetInvoiceStatus возвращает только статус счета.
func (s *Storage) GetInvoiceStatus(ctx context.Context, id int) (models.Status, error) {
	const op = "storage.GetInvoiceStatus"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var status models.Status
	err := s.DB.QueryRowContext(ctx,
		`SELECT status FROM invoices WHERE invoice_id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return status, nil
}

// UpdateInvoiceStatus переводит счет из PENDING в терминальный статус.
// Проверка и запись идут одним UPDATE: при двух конкурирующих решениях
// по одному счету запись выполняет только первое, второе получает
// ErrTerminalStatus и терминальный статус не переписывается.
func (s *Storage) UpdateInvoiceStatus(ctx context.Context, id int, status models.Status) error {
	const op = "storage.UpdateInvoiceStatus"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tag, err := s.DB.ExecContext(ctx,
		`UPDATE invoices SET status = $1 WHERE invoice_id = $2 AND status = $3`,
		status, id, models.StatusPending)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := tag.RowsAffected(); n == 0 {
		exists, err := s.InvoiceExists(ctx, id)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !exists {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, ErrTerminalStatus)
	}
	return nil
}

// UpdateInvoiceType записывает тип продажи.
func (s *Storage) UpdateInvoiceType(ctx context.Context, id int, typ models.InvoiceType) error {
	const op = "storage.UpdateInvoiceType"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tag, err := s.DB.ExecContext(ctx,
		`UPDATE invoices SET type = $1 WHERE invoice_id = $2`, typ, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := tag.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// LatestInvoiceByCustomer возвращает последний по дате создания счет клиента.
// Именно он адресуется при отправке скриншота.
func (s *Storage) LatestInvoiceByCustomer(ctx context.Context, customerID int64) (*models.Invoice, error) {
	const op = "storage.LatestInvoiceByCustomer"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	row := s.DB.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE user_id = $1 ORDER BY date DESC LIMIT 1`, customerID)
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return inv, nil
}

// AttachEvidence привязывает к счету id сообщения со скриншотом.
// Повторная отправка перезаписывает предыдущую, история не хранится.
func (s *Storage) AttachEvidence(ctx context.Context, id int, messageID int64) error {
	const op = "storage.AttachEvidence"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tag, err := s.DB.ExecContext(ctx,
		`UPDATE invoices SET screenshot_id = $1 WHERE invoice_id = $2`, messageID, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := tag.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
