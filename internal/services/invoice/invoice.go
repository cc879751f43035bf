// Package invoice содержит машину состояний счета: выставление, заявка
// об оплате, прием скриншота, подтверждение и отклонение ревьюером,
// проставление типа сделки с продлением VIP-подписки.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/khaydarthegreat/brutalbot/internal/lib/sl"
	"github.com/khaydarthegreat/brutalbot/internal/metrics"
	"github.com/khaydarthegreat/brutalbot/internal/models"
	"github.com/khaydarthegreat/brutalbot/internal/storage/repository"
)

// Ошибки валидации входных данных. Возвращаются до любой записи в хранилище.
var (
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrUnknownProduct = errors.New("unknown product")
	ErrNoInvoice      = errors.New("customer has no invoice")
	ErrBadToken       = errors.New("confirmation token mismatch")
)

// Repository определяет методы хранилища, нужные машине состояний.
type Repository interface {
	NextInvoiceID(ctx context.Context) (int, error)
	InvoiceExists(ctx context.Context, id int) (bool, error)
	CreateInvoice(ctx context.Context, inv models.Invoice) error
	GetInvoice(ctx context.Context, id int) (*models.Invoice, error)
	GetInvoiceStatus(ctx context.Context, id int) (models.Status, error)
	UpdateInvoiceStatus(ctx context.Context, id int, status models.Status) error
	UpdateInvoiceType(ctx context.Context, id int, typ models.InvoiceType) error
	LatestInvoiceByCustomer(ctx context.Context, customerID int64) (*models.Invoice, error)
	AttachEvidence(ctx context.Context, id int, messageID int64) error
	RenewSubscription(ctx context.Context, customerID int64, name, username string, days int, now time.Time) (*models.Subscription, error)
}

// Notifier доставляет клиенту сообщения о решении по счету.
type Notifier interface {
	NotifyPaid(ctx context.Context, inv *models.Invoice) error
	NotifyDeclined(ctx context.Context, inv *models.Invoice) error
	NotifyVIPAccess(ctx context.Context, inv *models.Invoice, sub *models.Subscription) error
}

// CreateRequest данные для выставления нового счета.
type CreateRequest struct {
	Amount             int
	Product            models.Product
	CustomerID         int64
	CustomerName       string
	CustomerUsername   string
	Salesman           string
	SubscriptionLength *int
}

// Service машина состояний счета поверх хранилища и реестра подтверждений.
type Service struct {
	repo     Repository
	registry *ConfirmRegistry
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

// New создает сервис счетов.
func New(repo Repository, notifier Notifier, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		registry: NewConfirmRegistry(),
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Create выставляет новый счет. Id выделяется сканом вверх от max+1,
// пока не найдется свободный: в таблицу могут попадать строки извне.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Invoice, error) {
	const op = "invoice.Create"
	log := s.log.With(slog.String("op", op))

	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, ok := models.ParseProduct(string(req.Product)); !ok {
		return nil, ErrUnknownProduct
	}

	id, err := s.repo.NextInvoiceID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for {
		exists, err := s.repo.InvoiceExists(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !exists {
			break
		}
		id++
	}

	inv := models.Invoice{
		ID:                 id,
		Amount:             req.Amount,
		Product:            req.Product,
		CustomerID:         req.CustomerID,
		CustomerName:       req.CustomerName,
		CustomerUsername:   req.CustomerUsername,
		Salesman:           req.Salesman,
		Status:             models.StatusPending,
		Type:               models.TypeUnset,
		CreatedAt:          s.now(),
		SubscriptionLength: req.SubscriptionLength,
	}
	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.InvoicesCreated.Inc()
	log.Info("invoice created",
		slog.Int("invoice_id", id),
		slog.Int("amount", req.Amount),
		slog.String("product", string(req.Product)))
	return &inv, nil
}

// Get возвращает счет по id.
func (s *Service) Get(ctx context.Context, invoiceID int) (*models.Invoice, error) {
	const op = "invoice.Get"

	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return inv, nil
}

// ClaimPayment обрабатывает нажатие "я оплатил". Чистое чтение: по
// терминальному счету всегда возвращается тот же статус, без мутаций.
func (s *Service) ClaimPayment(ctx context.Context, invoiceID int) (models.Status, error) {
	const op = "invoice.ClaimPayment"

	status, err := s.repo.GetInvoiceStatus(ctx, invoiceID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return status, nil
}

// SubmitEvidence привязывает скриншот к последнему счету клиента.
// Адресация по клиенту, а не по id из состояния диалога: работает после
// рестарта и со второго устройства. Клиент без счета не получает ошибку,
// случай только логируется.
func (s *Service) SubmitEvidence(ctx context.Context, customerID, messageID int64) (*models.Invoice, error) {
	const op = "invoice.SubmitEvidence"
	log := s.log.With(slog.String("op", op), slog.Int64("customer_id", customerID))

	inv, err := s.repo.LatestInvoiceByCustomer(ctx, customerID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Warn("evidence from customer without invoice")
		return nil, ErrNoInvoice
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.AttachEvidence(ctx, inv.ID, messageID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	inv.ScreenshotID = &messageID

	log.Info("evidence attached", slog.Int("invoice_id", inv.ID))
	return inv, nil
}

// RequestApproval первый шаг подтверждения оплаты: регистрирует ожидающее
// подтверждение и возвращает его токен. Статус не меняется. Повторный
// запрос возвращает тот же токен.
func (s *Service) RequestApproval(ctx context.Context, invoiceID int) (string, error) {
	return s.request(ctx, invoiceID, ActionApprove)
}

// RequestDecline первый шаг отклонения счета.
func (s *Service) RequestDecline(ctx context.Context, invoiceID int) (string, error) {
	return s.request(ctx, invoiceID, ActionDecline)
}

func (s *Service) request(ctx context.Context, invoiceID int, action ConfirmAction) (string, error) {
	const op = "invoice.request"

	// Счет должен существовать: ревьюер по несуществующему id получает ошибку.
	if _, err := s.repo.GetInvoiceStatus(ctx, invoiceID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return s.registry.Request(invoiceID, action), nil
}

// ConfirmApproval второй шаг: переводит счет в PAID. Повтор по
// терминальному счету ничего не меняет и не считается ошибкой, так
// гасятся двойные клики ревьюера.
func (s *Service) ConfirmApproval(ctx context.Context, invoiceID int, token string) (*models.Invoice, bool, error) {
	const op = "invoice.ConfirmApproval"
	log := s.log.With(slog.String("op", op), slog.Int("invoice_id", invoiceID))

	inv, terminal, err := s.checkTerminal(ctx, op, invoiceID)
	if err != nil || terminal {
		return inv, false, err
	}

	if !s.registry.Check(invoiceID, ActionApprove, token) {
		return nil, false, ErrBadToken
	}

	if err := s.repo.UpdateInvoiceStatus(ctx, invoiceID, models.StatusPaid); err != nil {
		// Конкурирующее решение успело перевести счет первым, повтор
		// по терминальному счету определен как no-op.
		if errors.Is(err, repository.ErrTerminalStatus) {
			inv, gerr := s.repo.GetInvoice(ctx, invoiceID)
			if gerr != nil {
				return nil, false, fmt.Errorf("%s: %w", op, gerr)
			}
			return inv, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	s.registry.Clear(invoiceID)
	metrics.InvoicesApproved.Inc()

	inv, err = s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, true, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("invoice approved", slog.Int("amount", inv.Amount))
	return inv, true, nil
}

// ConfirmDecline второй шаг отклонения: переводит счет в DECLINED и
// уведомляет клиента.
func (s *Service) ConfirmDecline(ctx context.Context, invoiceID int, token string) (*models.Invoice, bool, error) {
	const op = "invoice.ConfirmDecline"
	log := s.log.With(slog.String("op", op), slog.Int("invoice_id", invoiceID))

	inv, terminal, err := s.checkTerminal(ctx, op, invoiceID)
	if err != nil || terminal {
		return inv, false, err
	}

	if !s.registry.Check(invoiceID, ActionDecline, token) {
		return nil, false, ErrBadToken
	}

	if err := s.repo.UpdateInvoiceStatus(ctx, invoiceID, models.StatusDeclined); err != nil {
		if errors.Is(err, repository.ErrTerminalStatus) {
			inv, gerr := s.repo.GetInvoice(ctx, invoiceID)
			if gerr != nil {
				return nil, false, fmt.Errorf("%s: %w", op, gerr)
			}
			return inv, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	s.registry.Clear(invoiceID)
	metrics.InvoicesDeclined.Inc()

	inv, err = s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, true, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.notifier.NotifyDeclined(ctx, inv); err != nil {
		log.Warn("failed to notify customer about decline", sl.Err(err))
	}

	log.Info("invoice declined")
	return inv, true, nil
}

func (s *Service) checkTerminal(ctx context.Context, op string, invoiceID int) (*models.Invoice, bool, error) {
	status, err := s.repo.GetInvoiceStatus(ctx, invoiceID)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if !status.Terminal() {
		return nil, false, nil
	}
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, true, fmt.Errorf("%s: %w", op, err)
	}
	return inv, true, nil
}

// SetInvoiceType проставляет тип сделки после подтверждения. Статус не
// трогает никогда. Для продукта VIP продлевает подписку и уведомляет
// клиента о доступе, для остальных шлет уведомление об оплате. Повторный
// вызов переотправляет уведомления, это действие классификации ревьюера.
func (s *Service) SetInvoiceType(ctx context.Context, invoiceID int, typ models.InvoiceType) (*models.Subscription, error) {
	const op = "invoice.SetInvoiceType"
	log := s.log.With(slog.String("op", op), slog.Int("invoice_id", invoiceID))

	if err := s.repo.UpdateInvoiceType(ctx, invoiceID, typ); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if inv.Product != models.ProductVIP {
		if err := s.notifier.NotifyPaid(ctx, inv); err != nil {
			log.Warn("failed to notify customer about payment", sl.Err(err))
		}
		log.Info("invoice type set", slog.String("type", string(typ)))
		return nil, nil
	}

	days := 30
	if inv.SubscriptionLength != nil {
		days = *inv.SubscriptionLength
	}
	sub, err := s.repo.RenewSubscription(ctx, inv.CustomerID, inv.CustomerName,
		inv.CustomerUsername, days, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.SubscriptionRenewals.Inc()

	if err := s.notifier.NotifyVIPAccess(ctx, inv, sub); err != nil {
		log.Warn("failed to notify customer about vip access", sl.Err(err))
	}

	log.Info("vip subscription renewed",
		slog.Int64("customer_id", inv.CustomerID),
		slog.Time("kick_date", sub.KickDate),
		slog.Int("renewal_times", sub.RenewalTimes))
	return sub, nil
}
