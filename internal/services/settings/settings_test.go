package settings

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
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) AddCard(ctx context.Context, number, bank string) error {
	return m.Called(ctx, number, bank).Error(0)
}
func (m *RepoMock) DeleteCard(ctx context.Context, number string) error {
	return m.Called(ctx, number).Error(0)
}
func (m *RepoMock) ListCards(ctx context.Context) ([]models.Card, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Card), args.Error(1)
}
func (m *RepoMock) CurrentCard(ctx context.Context) (*models.Card, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Card), args.Error(1)
}
func (m *RepoMock) SetCurrentCard(ctx context.Context, number string) error {
	return m.Called(ctx, number).Error(0)
}
func (m *RepoMock) AddSalesman(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}
func (m *RepoMock) DeleteSalesman(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}
func (m *RepoMock) ListSalesmen(ctx context.Context) ([]models.Salesman, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Salesman), args.Error(1)
}
func (m *RepoMock) CurrentSalesman(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
func (m *RepoMock) SetCurrentSalesman(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}
func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}
func (m *CacheMock) Invalidate(key string) error {
	return m.Called(key).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestCurrentCard(t *testing.T) {
	card := &models.Card{Number: "4276000011112222", Bank: "Sber", IsCurrent: true}

	tests := []struct {
		name       string
		setupMocks func(r *RepoMock, c *CacheMock)
	}{
		{
			name: "cache miss reads storage and fills cache",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				c.On("Get", "settings:current_card", mock.Anything).Return(false, nil).Once()
				r.On("CurrentCard", mock.Anything).Return(card, nil).Once()
				c.On("Set", "settings:current_card", card, cacheTTL).Return(nil).Once()
			},
		},
		{
			name: "cache hit skips storage",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				c.On("Get", "settings:current_card", mock.Anything).
					Run(func(args mock.Arguments) {
						*args.Get(1).(*models.Card) = *card
					}).Return(true, nil).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			c := new(CacheMock)
			tt.setupMocks(repo, c)

			svc := New(repo, c, newNoopLogger())
			got, err := svc.CurrentCard(context.Background())
			require.NoError(t, err)
			assert.Equal(t, card.Number, got.Number)
			repo.AssertExpectations(t)
			c.AssertExpectations(t)
		})
	}
}

func TestSetCurrentCardInvalidatesCache(t *testing.T) {
	repo := new(RepoMock)
	c := new(CacheMock)
	repo.On("SetCurrentCard", mock.Anything, "4276").Return(nil).Once()
	c.On("Invalidate", "settings:current_card").Return(nil).Once()

	svc := New(repo, c, newNoopLogger())
	require.NoError(t, svc.SetCurrentCard(context.Background(), "4276"))
	repo.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestCurrentSalesman(t *testing.T) {
	repo := new(RepoMock)
	c := new(CacheMock)
	c.On("Get", "settings:current_salesman", mock.Anything).Return(false, nil).Once()
	repo.On("CurrentSalesman", mock.Anything).Return("Artur", nil).Once()
	c.On("Set", "settings:current_salesman", "Artur", cacheTTL).Return(nil).Once()

	svc := New(repo, c, newNoopLogger())
	name, err := svc.CurrentSalesman(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Artur", name)
	repo.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestDeleteSalesmanInvalidatesCache(t *testing.T) {
	repo := new(RepoMock)
	c := new(CacheMock)
	repo.On("DeleteSalesman", mock.Anything, "Artur").Return(nil).Once()
	c.On("Invalidate", "settings:current_salesman").Return(nil).Once()

	svc := New(repo, c, newNoopLogger())
	require.NoError(t, svc.DeleteSalesman(context.Background(), "Artur"))
	repo.AssertExpectations(t)
	c.AssertExpectations(t)
}
