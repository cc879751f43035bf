// Package settings управляет реестром карт и продажников. Текущая карта
// и текущий продажник читаются при каждом выставлении счета, поэтому
// эти чтения идут через кеш.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/khaydarthegreat/brutalbot/internal/lib/sl"
	"github.com/khaydarthegreat/brutalbot/internal/models"
)

const (
	cacheKeyCurrentCard     = "settings:current_card"
	cacheKeyCurrentSalesman = "settings:current_salesman"
	cacheTTL                = 10 * time.Minute
)

// Repository определяет методы хранилища карт и продажников.
type Repository interface {
	AddCard(ctx context.Context, number, bank string) error
	DeleteCard(ctx context.Context, number string) error
	ListCards(ctx context.Context) ([]models.Card, error)
	CurrentCard(ctx context.Context) (*models.Card, error)
	SetCurrentCard(ctx context.Context, number string) error
	AddSalesman(ctx context.Context, name string) error
	DeleteSalesman(ctx context.Context, name string) error
	ListSalesmen(ctx context.Context) ([]models.Salesman, error)
	CurrentSalesman(ctx context.Context) (string, error)
	SetCurrentSalesman(ctx context.Context, name string) error
}

// Cache описывает методы кеширования.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Service реестр карт и продажников с кешированием текущих значений.
type Service struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
}

// New создает сервис настроек.
func New(repo Repository, cache Cache, log *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, log: log}
}

// AddCard добавляет карту в реестр.
func (s *Service) AddCard(ctx context.Context, number, bank string) error {
	const op = "settings.AddCard"

	if err := s.repo.AddCard(ctx, number, bank); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("card added", slog.String("op", op), slog.String("bank", bank))
	return nil
}

// DeleteCard удаляет карту и сбрасывает кеш текущей: удалить могли ее.
func (s *Service) DeleteCard(ctx context.Context, number string) error {
	const op = "settings.DeleteCard"

	if err := s.repo.DeleteCard(ctx, number); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Invalidate(cacheKeyCurrentCard); err != nil {
		s.log.Warn("failed to invalidate current card cache", sl.Err(err))
	}
	return nil
}

// ListCards возвращает все карты реестра.
func (s *Service) ListCards(ctx context.Context) ([]models.Card, error) {
	const op = "settings.ListCards"

	cards, err := s.repo.ListCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cards, nil
}

// CurrentCard возвращает текущую карту для приема платежей.
func (s *Service) CurrentCard(ctx context.Context) (*models.Card, error) {
	const op = "settings.CurrentCard"

	var cached models.Card
	found, err := s.cache.Get(cacheKeyCurrentCard, &cached)
	if err != nil {
		s.log.Warn("failed to read current card cache", sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	card, err := s.repo.CurrentCard(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(cacheKeyCurrentCard, card, cacheTTL); err != nil {
		s.log.Warn("failed to cache current card", sl.Err(err))
	}
	return card, nil
}

// SetCurrentCard переключает текущую карту и сбрасывает кеш.
func (s *Service) SetCurrentCard(ctx context.Context, number string) error {
	const op = "settings.SetCurrentCard"

	if err := s.repo.SetCurrentCard(ctx, number); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Invalidate(cacheKeyCurrentCard); err != nil {
		s.log.Warn("failed to invalidate current card cache", sl.Err(err))
	}
	s.log.Info("current card switched", slog.String("op", op))
	return nil
}

// AddSalesman добавляет продажника в реестр.
func (s *Service) AddSalesman(ctx context.Context, name string) error {
	const op = "settings.AddSalesman"

	if err := s.repo.AddSalesman(ctx, name); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("salesman added", slog.String("op", op), slog.String("name", name))
	return nil
}

// DeleteSalesman удаляет продажника и сбрасывает кеш текущего.
func (s *Service) DeleteSalesman(ctx context.Context, name string) error {
	const op = "settings.DeleteSalesman"

	if err := s.repo.DeleteSalesman(ctx, name); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Invalidate(cacheKeyCurrentSalesman); err != nil {
		s.log.Warn("failed to invalidate current salesman cache", sl.Err(err))
	}
	return nil
}

// ListSalesmen возвращает всех продажников реестра.
func (s *Service) ListSalesmen(ctx context.Context) ([]models.Salesman, error) {
	const op = "settings.ListSalesmen"

	salesmen, err := s.repo.ListSalesmen(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return salesmen, nil
}

// CurrentSalesman возвращает имя текущего продажника.
func (s *Service) CurrentSalesman(ctx context.Context) (string, error) {
	const op = "settings.CurrentSalesman"

	var cached string
	found, err := s.cache.Get(cacheKeyCurrentSalesman, &cached)
	if err != nil {
		s.log.Warn("failed to read current salesman cache", sl.Err(err))
	}
	if found {
		return cached, nil
	}

	name, err := s.repo.CurrentSalesman(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(cacheKeyCurrentSalesman, name, cacheTTL); err != nil {
		s.log.Warn("failed to cache current salesman", sl.Err(err))
	}
	return name, nil
}

// SetCurrentSalesman переключает текущего продажника и сбрасывает кеш.
func (s *Service) SetCurrentSalesman(ctx context.Context, name string) error {
	const op = "settings.SetCurrentSalesman"

	if err := s.repo.SetCurrentSalesman(ctx, name); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Invalidate(cacheKeyCurrentSalesman); err != nil {
		s.log.Warn("failed to invalidate current salesman cache", sl.Err(err))
	}
	s.log.Info("current salesman switched", slog.String("op", op), slog.String("name", name))
	return nil
}
