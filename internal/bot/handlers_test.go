package bot

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/khaydarthegreat/brutalbot/internal/config"
	"github.com/khaydarthegreat/brutalbot/internal/models"
	"github.com/khaydarthegreat/brutalbot/internal/services/invoice"
	"github.com/khaydarthegreat/brutalbot/internal/storage/repository"
)

// recordingClient подменяет HTTP-клиент Bot API и копит исходящие
// запросы, не отправляя их в Telegram.
type recordingClient struct {
	mu       sync.Mutex
	requests []*http.Request
}

func (c *recordingClient) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(`{"ok":true,"result":{}}`)),
	}, nil
}

func (c *recordingClient) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

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

func newTestBot(t *testing.T, repo *RepoMock) (*Bot, *recordingClient) {
	t.Helper()

	client := &recordingClient{}
	api := &tgbotapi.BotAPI{Token: "test-token", Client: client}
	api.SetAPIEndpoint(tgbotapi.APIEndpoint)

	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	svc := invoice.New(repo, NewNotifier(api, -100), log)
	cfg := config.Telegram{PaymentManagerIDs: []int64{77}}
	return New(api, cfg, svc, nil, nil, log, time.UTC), client
}

func TestHandleScreenshot(t *testing.T) {
	tests := []struct {
		name         string
		setupMocks   func(r *RepoMock)
		wantRequests int
	}{
		{
			// Скриншот без счета игнорируется молча: ни ответа клиенту,
			// ни пересылки ревьюерам.
			name: "customer without invoice gets no reply",
			setupMocks: func(r *RepoMock) {
				r.On("LatestInvoiceByCustomer", mock.Anything, int64(100)).
					Return(nil, repository.ErrNotFound).Once()
			},
			wantRequests: 0,
		},
		{
			// Пересылка ревьюеру, сообщение с кнопками решения и
			// подтверждение клиенту.
			name: "screenshot forwarded to reviewers",
			setupMocks: func(r *RepoMock) {
				inv := &models.Invoice{
					ID: 3, Amount: 500, Product: models.ProductCombo,
					CustomerID: 100, CustomerName: "Ivan", CustomerUsername: "ivan",
					Status: models.StatusPending,
				}
				r.On("LatestInvoiceByCustomer", mock.Anything, int64(100)).
					Return(inv, nil).Once()
				r.On("AttachEvidence", mock.Anything, 3, int64(5)).Return(nil).Once()
			},
			wantRequests: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setupMocks(repo)
			b, client := newTestBot(t, repo)

			b.handleMessage(context.Background(), &tgbotapi.Message{
				MessageID: 5,
				From:      &tgbotapi.User{ID: 100},
				Chat:      &tgbotapi.Chat{ID: 100, Type: "private"},
				Photo:     []tgbotapi.PhotoSize{{FileID: "f"}},
			})

			assert.Equal(t, tt.wantRequests, client.count())
			repo.AssertExpectations(t)
		})
	}
}
