package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/khaydarthegreat/brutalbot/internal/models"
)

// AddCard добавляет карту. Новая карта не становится текущей автоматически.
func (s *Storage) AddCard(ctx context.Context, number, bank string) error {
	const op = "storage.AddCard"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO cards (card_number, bank, is_current) VALUES ($1, $2, FALSE)`,
		number, bank)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteCard удаляет карту по номеру.
func (s *Storage) DeleteCard(ctx context.Context, number string) error {
	const op = "storage.DeleteCard"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	_, err := s.DB.ExecContext(ctx, `DELETE FROM cards WHERE card_number = $1`, number)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListCards возвращает все карты.
func (s *Storage) ListCards(ctx context.Context) ([]models.Card, error) {
	const op = "storage.ListCards"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT card_number, bank, is_current FROM cards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Card
	for rows.Next() {
		var c models.Card
		if err := rows.Scan(&c.Number, &c.Bank, &c.IsCurrent); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CurrentCard возвращает текущую карту для приема платежей.
func (s *Storage) CurrentCard(ctx context.Context) (*models.Card, error) {
	const op = "storage.CurrentCard"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var c models.Card
	err := s.DB.QueryRowContext(ctx,
		`SELECT card_number, bank, is_current FROM cards WHERE is_current = TRUE LIMIT 1`).
		Scan(&c.Number, &c.Bank, &c.IsCurrent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &c, nil
}

// SetCurrentCard атомарно переключает текущую карту: в одной транзакции
// снимает флаг со всех карт и ставит его выбранной. Окна с нулем или двумя
// текущими картами не существует.
func (s *Storage) SetCurrentCard(ctx context.Context, number string) error {
	const op = "storage.SetCurrentCard"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	return s.swapCurrent(ctx, op,
		`UPDATE cards SET is_current = FALSE WHERE is_current = TRUE`,
		`UPDATE cards SET is_current = TRUE WHERE card_number = $1`, number)
}

// AddSalesman добавляет продажника.
func (s *Storage) AddSalesman(ctx context.Context, name string) error {
	const op = "storage.AddSalesman"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	_, err := s.DB.ExecContext(ctx, `INSERT INTO salesman (name) VALUES ($1)`, name)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteSalesman удаляет продажника по имени.
func (s *Storage) DeleteSalesman(ctx context.Context, name string) error {
	const op = "storage.DeleteSalesman"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	_, err := s.DB.ExecContext(ctx, `DELETE FROM salesman WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListSalesmen возвращает всех продажников.
func (s *Storage) ListSalesmen(ctx context.Context) ([]models.Salesman, error) {
	const op = "storage.ListSalesmen"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT name, is_current FROM salesman ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Salesman
	for rows.Next() {
		var sm models.Salesman
		if err := rows.Scan(&sm.Name, &sm.IsCurrent); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CurrentSalesman возвращает имя текущего продажника.
func (s *Storage) CurrentSalesman(ctx context.Context) (string, error) {
	const op = "storage.CurrentSalesman"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var name string
	err := s.DB.QueryRowContext(ctx,
		`SELECT name FROM salesman WHERE is_current = TRUE LIMIT 1`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return name, nil
}

// SetCurrentSalesman атомарно переключает текущего продажника.
func (s *Storage) SetCurrentSalesman(ctx context.Context, name string) error {
	const op = "storage.SetCurrentSalesman"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	return s.swapCurrent(ctx, op,
		`UPDATE salesman SET is_current = FALSE WHERE is_current = TRUE`,
		`UPDATE salesman SET is_current = TRUE WHERE name = $1`, name)
}

func (s *Storage) swapCurrent(ctx context.Context, op, clearQuery, setQuery string, arg any) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, clearQuery); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	tag, err := tx.ExecContext(ctx, setQuery, arg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := tag.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
