package invoice

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/khaydarthegreat/brutalbot/internal/models"
	"github.com/khaydarthegreat/brutalbot/internal/storage/repository"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) NextInvoiceID(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
func (m *RepoMock) InvoiceExists(ctx context.Context, id int) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
func (m *RepoMock) CreateInvoice(ctx context.Context, inv models.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}
func (m *RepoMock) GetInvoice(ctx context.Context, id int) (*models.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}
func (m *RepoMock) GetInvoiceStatus(ctx context.Context, id int) (models.Status, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Status), args.Error(1)
}
func (m *RepoMock) UpdateInvoiceStatus(ctx context.Context, id int, status models.Status) error {
	return m.Called(ctx, id, status).Error(0)
}
func (m *RepoMock) UpdateInvoiceType(ctx context.Context, id int, typ models.InvoiceType) error {
	return m.Called(ctx, id, typ).Error(0)
}
func (m *RepoMock) LatestInvoiceByCustomer(ctx context.Context, customerID int64) (*models.Invoice, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}
func (m *RepoMock) AttachEvidence(ctx context.Context, id int, messageID int64) error {
	return m.Called(ctx, id, messageID).Error(0)
}
func (m *RepoMock) RenewSubscription(ctx context.Context, customerID int64, name, username string, days int, now time.Time) (*models.Subscription, error) {
	args := m.Called(ctx, customerID, name, username, days, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) NotifyPaid(ctx context.Context, inv *models.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}
func (m *NotifierMock) NotifyDeclined(ctx context.Context, inv *models.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}
func (m *NotifierMock) NotifyVIPAccess(ctx context.Context, inv *models.Invoice, sub *models.Subscription) error {
	return m.Called(ctx, inv, sub).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newTestService(r *RepoMock, n *NotifierMock) *Service {
	svc := New(r, n, newNoopLogger())
	svc.now = func() time.Time {
		return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(r *RepoMock)
		req        CreateRequest
		wantID     int
		wantErr    error
	}{
		{
			name: "success",
			setupMocks: func(r *RepoMock) {
				r.On("NextInvoiceID", mock.Anything).Return(1, nil).Once()
				r.On("InvoiceExists", mock.Anything, 1).Return(false, nil).Once()
				r.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(inv models.Invoice) bool {
					return inv.ID == 1 && inv.Status == models.StatusPending &&
						inv.Type == models.TypeUnset && inv.Amount == 500
				})).Return(nil).Once()
			},
			req:    CreateRequest{Amount: 500, Product: models.ProductCombo, CustomerID: 1, CustomerName: "A"},
			wantID: 1,
		},
		{
			name: "scans past occupied ids",
			setupMocks: func(r *RepoMock) {
				r.On("NextInvoiceID", mock.Anything).Return(5, nil).Once()
				r.On("InvoiceExists", mock.Anything, 5).Return(true, nil).Once()
				r.On("InvoiceExists", mock.Anything, 6).Return(true, nil).Once()
				r.On("InvoiceExists", mock.Anything, 7).Return(false, nil).Once()
				r.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(inv models.Invoice) bool {
					return inv.ID == 7
				})).Return(nil).Once()
			},
			req:    CreateRequest{Amount: 500, Product: models.ProductExpress, CustomerID: 1, CustomerName: "A"},
			wantID: 7,
		},
		{
			name:       "non-positive amount",
			setupMocks: func(_ *RepoMock) {},
			req:        CreateRequest{Amount: 0, Product: models.ProductCombo},
			wantErr:    ErrInvalidAmount,
		},
		{
			name:       "unknown product",
			setupMocks: func(_ *RepoMock) {},
			req:        CreateRequest{Amount: 500, Product: "Roulette"},
			wantErr:    ErrUnknownProduct,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setupMocks(repo)
			svc := newTestService(repo, new(NotifierMock))

			inv, err := svc.Create(context.Background(), tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, inv.ID)
			assert.Equal(t, models.StatusPending, inv.Status)
			repo.AssertExpectations(t)
		})
	}
}

func TestClaimPaymentIdempotentOnTerminal(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetInvoiceStatus", mock.Anything, 1).Return(models.StatusPaid, nil).Times(3)
	svc := newTestService(repo, new(NotifierMock))

	// Повторные заявки по терминальному счету дают тот же ответ без мутаций.
	for i := 0; i < 3; i++ {
		status, err := svc.ClaimPayment(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPaid, status)
	}
	repo.AssertNotCalled(t, "UpdateInvoiceStatus", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestSubmitEvidence(t *testing.T) {
	t.Run("attaches to latest invoice", func(t *testing.T) {
		repo := new(RepoMock)
		inv := &models.Invoice{ID: 3, CustomerID: 42, Status: models.StatusPending}
		repo.On("LatestInvoiceByCustomer", mock.Anything, int64(42)).Return(inv, nil).Once()
		repo.On("AttachEvidence", mock.Anything, 3, int64(900)).Return(nil).Once()
		svc := newTestService(repo, new(NotifierMock))

		got, err := svc.SubmitEvidence(context.Background(), 42, 900)
		require.NoError(t, err)
		assert.Equal(t, 3, got.ID)
		require.NotNil(t, got.ScreenshotID)
		assert.EqualValues(t, 900, *got.ScreenshotID)
		repo.AssertExpectations(t)
	})

	t.Run("customer without invoice", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("LatestInvoiceByCustomer", mock.Anything, int64(42)).
			Return(nil, repository.ErrNotFound).Once()
		svc := newTestService(repo, new(NotifierMock))

		_, err := svc.SubmitEvidence(context.Background(), 42, 900)
		require.ErrorIs(t, err, ErrNoInvoice)
		repo.AssertNotCalled(t, "AttachEvidence", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTwoStepApproval(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetInvoiceStatus", mock.Anything, 1).Return(models.StatusPending, nil)
	repo.On("UpdateInvoiceStatus", mock.Anything, 1, models.StatusPaid).Return(nil).Once()
	repo.On("GetInvoice", mock.Anything, 1).
		Return(&models.Invoice{ID: 1, Status: models.StatusPaid, Amount: 500}, nil).Once()
	svc := newTestService(repo, new(NotifierMock))
	ctx := context.Background()

	// Первый шаг только регистрирует подтверждение, статус не меняется.
	token, err := svc.RequestApproval(ctx, 1)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Повторный запрос возвращает тот же токен, нового приглашения нет.
	token2, err := svc.RequestApproval(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, token, token2)

	// Чужой токен не проходит.
	_, _, err = svc.ConfirmApproval(ctx, 1, "not-a-token")
	require.ErrorIs(t, err, ErrBadToken)

	inv, changed, err := svc.ConfirmApproval(ctx, 1, token)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.StatusPaid, inv.Status)
	repo.AssertExpectations(t)
}

func TestConfirmReplayOnTerminalIsNoop(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetInvoiceStatus", mock.Anything, 1).Return(models.StatusDeclined, nil)
	repo.On("GetInvoice", mock.Anything, 1).
		Return(&models.Invoice{ID: 1, Status: models.StatusDeclined}, nil)
	svc := newTestService(repo, new(NotifierMock))

	// Подтверждение по уже терминальному счету гасится без мутации.
	inv, changed, err := svc.ConfirmApproval(context.Background(), 1, "stale-token")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, models.StatusDeclined, inv.Status)
	repo.AssertNotCalled(t, "UpdateInvoiceStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmLosesRaceToConcurrentDecision(t *testing.T) {
	repo := new(RepoMock)
	notifier := new(NotifierMock)
	declined := &models.Invoice{ID: 1, Status: models.StatusDeclined, CustomerID: 42}

	// Предпроверка видит PENDING, но к моменту записи конкурирующее
	// решение уже перевело счет в DECLINED: запись отклоняется базой.
	repo.On("GetInvoiceStatus", mock.Anything, 1).Return(models.StatusPending, nil)
	repo.On("UpdateInvoiceStatus", mock.Anything, 1, models.StatusPaid).
		Return(repository.ErrTerminalStatus).Once()
	repo.On("GetInvoice", mock.Anything, 1).Return(declined, nil).Once()

	svc := newTestService(repo, notifier)
	ctx := context.Background()

	token, err := svc.RequestApproval(ctx, 1)
	require.NoError(t, err)

	inv, changed, err := svc.ConfirmApproval(ctx, 1, token)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, models.StatusDeclined, inv.Status)
	notifier.AssertNotCalled(t, "NotifyPaid", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestDeclinePath(t *testing.T) {
	repo := new(RepoMock)
	notifier := new(NotifierMock)
	declined := &models.Invoice{ID: 1, Status: models.StatusDeclined, CustomerID: 42}

	repo.On("GetInvoiceStatus", mock.Anything, 1).Return(models.StatusPending, nil).Twice()
	repo.On("UpdateInvoiceStatus", mock.Anything, 1, models.StatusDeclined).Return(nil).Once()
	repo.On("GetInvoice", mock.Anything, 1).Return(declined, nil)
	notifier.On("NotifyDeclined", mock.Anything, declined).Return(nil).Once()

	svc := newTestService(repo, notifier)
	ctx := context.Background()

	token, err := svc.RequestDecline(ctx, 1)
	require.NoError(t, err)

	inv, changed, err := svc.ConfirmDecline(ctx, 1, token)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.StatusDeclined, inv.Status)

	// После отклонения подтверждение оплаты уже ничего не меняет.
	repo.On("GetInvoiceStatus", mock.Anything, 1).Return(models.StatusDeclined, nil)
	_, changed, err = svc.ConfirmApproval(ctx, 1, token)
	require.NoError(t, err)
	assert.False(t, changed)

	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestSetInvoiceType(t *testing.T) {
	t.Run("ordinary product notifies customer", func(t *testing.T) {
		repo := new(RepoMock)
		notifier := new(NotifierMock)
		inv := &models.Invoice{ID: 1, Product: models.ProductCombo, CustomerID: 42, Status: models.StatusPaid}

		repo.On("UpdateInvoiceType", mock.Anything, 1, models.TypeIncoming).Return(nil).Once()
		repo.On("GetInvoice", mock.Anything, 1).Return(inv, nil).Once()
		notifier.On("NotifyPaid", mock.Anything, inv).Return(nil).Once()

		svc := newTestService(repo, notifier)
		sub, err := svc.SetInvoiceType(context.Background(), 1, models.TypeIncoming)
		require.NoError(t, err)
		assert.Nil(t, sub)
		repo.AssertNotCalled(t, "RenewSubscription",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		notifier.AssertExpectations(t)
	})

	t.Run("vip product renews subscription", func(t *testing.T) {
		repo := new(RepoMock)
		notifier := new(NotifierMock)
		days := 30
		now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
		inv := &models.Invoice{
			ID: 2, Product: models.ProductVIP, CustomerID: 42,
			CustomerName: "Ivan", CustomerUsername: "ivan",
			Status: models.StatusPaid, SubscriptionLength: &days,
		}
		sub := &models.Subscription{CustomerID: 42, DurationDays: 30, KickDate: now.AddDate(0, 0, 30)}

		repo.On("UpdateInvoiceType", mock.Anything, 2, models.TypeOutgoing).Return(nil).Once()
		repo.On("GetInvoice", mock.Anything, 2).Return(inv, nil).Once()
		repo.On("RenewSubscription", mock.Anything, int64(42), "Ivan", "ivan", 30, now).
			Return(sub, nil).Once()
		notifier.On("NotifyVIPAccess", mock.Anything, inv, sub).Return(nil).Once()

		svc := newTestService(repo, notifier)
		got, err := svc.SetInvoiceType(context.Background(), 2, models.TypeOutgoing)
		require.NoError(t, err)
		assert.Equal(t, sub, got)
		repo.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})
}

func TestConfirmRegistry(t *testing.T) {
	r := NewConfirmRegistry()

	approve := r.Request(1, ActionApprove)
	decline := r.Request(1, ActionDecline)
	assert.NotEqual(t, approve, decline)

	assert.True(t, r.Check(1, ActionApprove, approve))
	assert.False(t, r.Check(1, ActionApprove, decline))
	assert.False(t, r.Check(1, ActionApprove, ""))

	r.Clear(1)
	assert.False(t, r.Check(1, ActionApprove, approve))
	assert.False(t, r.Check(1, ActionDecline, decline))
}
