package report

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/khaydarthegreat/brutalbot/internal/lib/period"
	"github.com/khaydarthegreat/brutalbot/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) TotalIncome(ctx context.Context, from, to time.Time) (int, error) {
	args := m.Called(ctx, from, to)
	return args.Int(0), args.Error(1)
}
func (m *RepoMock) DealQuantity(ctx context.Context, from, to time.Time) (int, error) {
	args := m.Called(ctx, from, to)
	return args.Int(0), args.Error(1)
}
func (m *RepoMock) UniqueCustomers(ctx context.Context, from, to time.Time) (int, error) {
	args := m.Called(ctx, from, to)
	return args.Int(0), args.Error(1)
}
func (m *RepoMock) NewCustomers(ctx context.Context, from, to time.Time) (int, error) {
	args := m.Called(ctx, from, to)
	return args.Int(0), args.Error(1)
}
func (m *RepoMock) NewCustomerIncome(ctx context.Context, from, to time.Time) (int, error) {
	args := m.Called(ctx, from, to)
	return args.Int(0), args.Error(1)
}
func (m *RepoMock) DealsByType(ctx context.Context, typ models.InvoiceType, from, to time.Time) (int, error) {
	args := m.Called(ctx, typ, from, to)
	return args.Int(0), args.Error(1)
}
func (m *RepoMock) AmountByType(ctx context.Context, typ models.InvoiceType, from, to time.Time) (int, error) {
	args := m.Called(ctx, typ, from, to)
	return args.Int(0), args.Error(1)
}
func (m *RepoMock) SalesBook(ctx context.Context, from, to time.Time) ([]models.SalesBookRow, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SalesBookRow), args.Error(1)
}
func (m *RepoMock) ClientsBook(ctx context.Context, from, to time.Time) ([]models.ClientsBookRow, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ClientsBookRow), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func testRange() period.Range {
	return period.Range{
		From: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC),
	}
}

func TestStats(t *testing.T) {
	r := testRange()
	repo := new(RepoMock)
	repo.On("TotalIncome", mock.Anything, r.From, r.To).Return(10000, nil).Once()
	repo.On("DealQuantity", mock.Anything, r.From, r.To).Return(4, nil).Once()
	repo.On("UniqueCustomers", mock.Anything, r.From, r.To).Return(3, nil).Once()
	repo.On("NewCustomers", mock.Anything, r.From, r.To).Return(2, nil).Once()
	repo.On("NewCustomerIncome", mock.Anything, r.From, r.To).Return(6000, nil).Once()
	repo.On("DealsByType", mock.Anything, models.TypeIncoming, r.From, r.To).Return(3, nil).Once()
	repo.On("DealsByType", mock.Anything, models.TypeOutgoing, r.From, r.To).Return(1, nil).Once()
	repo.On("AmountByType", mock.Anything, models.TypeIncoming, r.From, r.To).Return(7000, nil).Once()
	repo.On("AmountByType", mock.Anything, models.TypeOutgoing, r.From, r.To).Return(3000, nil).Once()

	svc := New(repo, newNoopLogger())
	stats, err := svc.Stats(context.Background(), r)
	require.NoError(t, err)

	assert.Equal(t, 10000, stats.TotalIncome)
	assert.Equal(t, 4, stats.DealQuantity)
	assert.InDelta(t, 2500.0, stats.AverageDealAmount, 0.001)
	assert.Equal(t, 3, stats.UniqueCustomers)
	assert.Equal(t, 2, stats.NewCustomers)
	assert.Equal(t, 6000, stats.NewCustomerIncome)
	assert.Equal(t, 3, stats.IncomingDeals)
	assert.Equal(t, 1, stats.OutgoingDeals)
	assert.Equal(t, 7000, stats.IncomingAmount)
	assert.Equal(t, 3000, stats.OutgoingAmount)
	repo.AssertExpectations(t)
}

func TestStatsEmptyPeriod(t *testing.T) {
	r := testRange()
	repo := new(RepoMock)
	repo.On("TotalIncome", mock.Anything, r.From, r.To).Return(0, nil).Once()
	repo.On("DealQuantity", mock.Anything, r.From, r.To).Return(0, nil).Once()
	repo.On("UniqueCustomers", mock.Anything, r.From, r.To).Return(0, nil).Once()
	repo.On("NewCustomers", mock.Anything, r.From, r.To).Return(0, nil).Once()
	repo.On("NewCustomerIncome", mock.Anything, r.From, r.To).Return(0, nil).Once()
	repo.On("DealsByType", mock.Anything, mock.Anything, r.From, r.To).Return(0, nil).Twice()
	repo.On("AmountByType", mock.Anything, mock.Anything, r.From, r.To).Return(0, nil).Twice()

	svc := New(repo, newNoopLogger())
	stats, err := svc.Stats(context.Background(), r)
	require.NoError(t, err)
	assert.Zero(t, stats.AverageDealAmount)
}

func TestStatsStorageError(t *testing.T) {
	r := testRange()
	repo := new(RepoMock)
	repo.On("TotalIncome", mock.Anything, r.From, r.To).
		Return(0, errors.New("db error")).Once()

	svc := New(repo, newNoopLogger())
	_, err := svc.Stats(context.Background(), r)
	require.Error(t, err)
}

func TestSalesBookCSV(t *testing.T) {
	r := testRange()
	repo := new(RepoMock)
	repo.On("SalesBook", mock.Anything, r.From, r.To).Return([]models.SalesBookRow{
		{
			InvoiceID: 1, Amount: 500,
			Date:         time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC),
			CustomerName: "Ivan", CustomerUsername: "ivan",
			CustomerID: 42, Type: models.TypeIncoming,
		},
	}, nil).Once()

	svc := New(repo, newNoopLogger())
	data, err := svc.SalesBookCSV(context.Background(), r)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "invoice_id,amount,date,name,username,user_id,type", lines[0])
	assert.Equal(t, "1,500,2026-03-02 15:30,Ivan,ivan,42,Incoming", lines[1])
}

func TestClientsBookCSV(t *testing.T) {
	r := testRange()
	repo := new(RepoMock)
	repo.On("ClientsBook", mock.Anything, r.From, r.To).Return([]models.ClientsBookRow{
		{
			CustomerID: 42, CustomerUsername: "ivan", CustomerName: "Ivan",
			FirstDealDate: time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC),
			LastDealDate:  time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC),
			TotalDeals:    2, TotalAmount: 1500,
		},
	}, nil).Once()

	svc := New(repo, newNoopLogger())
	data, err := svc.ClientsBookCSV(context.Background(), r)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "42,ivan,Ivan,2026-03-02 15:30,2026-03-20 10:00,2,1500", lines[1])
}
