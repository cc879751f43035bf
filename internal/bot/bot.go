// Package bot реализует Telegram-транспорт кассы: выставление счетов
// через inline-режим и deep-link, прием скриншотов оплаты, двухшаговое
// подтверждение ревьюером, отчеты и управление реестром карт.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/khaydarthegreat/brutalbot/internal/config"
	"github.com/khaydarthegreat/brutalbot/internal/lib/period"
	"github.com/khaydarthegreat/brutalbot/internal/services/invoice"
	"github.com/khaydarthegreat/brutalbot/internal/services/report"
	"github.com/khaydarthegreat/brutalbot/internal/services/settings"
)

// Кнопки постоянной клавиатуры операторов.
const (
	btnReports        = "📊 Отчеты"
	btnManageCards    = "💳 Карты"
	btnManageSalesmen = "🧑‍💼 Продажники"
)

// Теги кнопочных периодов отчетов.
const (
	periodToday     = "today"
	periodYesterday = "yesterday"
	periodWeek      = "week"
	periodMonth     = "month"
	period30Days    = "30days"
	periodCustom    = "custom"
)

// awaitKind вид текстового ввода, которого бот ждет от оператора.
type awaitKind string

const (
	awaitCard     awaitKind = "card"
	awaitSalesman awaitKind = "salesman"
	awaitPeriod   awaitKind = "period"
)

// Bot длинноживущий обработчик обновлений Telegram.
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      config.Telegram
	invoices *invoice.Service
	settings *settings.Service
	reports  *report.Service
	log      *slog.Logger
	loc      *time.Location
	now      func() time.Time

	mu       sync.Mutex
	awaiting map[int64]awaitKind
}

// New создает бота поверх уже авторизованного API.
func New(api *tgbotapi.BotAPI, cfg config.Telegram, invoices *invoice.Service,
	settingsSvc *settings.Service, reports *report.Service,
	log *slog.Logger, loc *time.Location) *Bot {
	return &Bot{
		api:      api,
		cfg:      cfg,
		invoices: invoices,
		settings: settingsSvc,
		reports:  reports,
		log:      log,
		loc:      loc,
		now:      time.Now,
		awaiting: make(map[int64]awaitKind),
	}
}

// Run запускает цикл long polling до отмены контекста.
func (b *Bot) Run(ctx context.Context) error {
	const op = "bot.Run"

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	b.log.Info("bot started", slog.String("op", op), slog.String("username", b.api.Self.UserName))
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.InlineQuery != nil:
		b.handleInlineQuery(ctx, update.InlineQuery)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) isSalesManager(id int64) bool   { return contains(b.cfg.SalesManagerIDs, id) }
func (b *Bot) isPaymentManager(id int64) bool { return contains(b.cfg.PaymentManagerIDs, id) }
func (b *Bot) isAnalyst(id int64) bool        { return contains(b.cfg.AnalyticIDs, id) }

func (b *Bot) isOperator(id int64) bool {
	return b.isSalesManager(id) || b.isPaymentManager(id) || b.isAnalyst(id)
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (b *Bot) setAwaiting(userID int64, kind awaitKind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.awaiting[userID] = kind
}

func (b *Bot) takeAwaiting(userID int64) (awaitKind, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kind, ok := b.awaiting[userID]
	if ok {
		delete(b.awaiting, userID)
	}
	return kind, ok
}

// rangeForTag превращает тег кнопочного периода в границы отчета.
func (b *Bot) rangeForTag(tag string) (period.Range, bool) {
	now := b.now().In(b.loc)
	switch tag {
	case periodToday:
		return period.Today(now), true
	case periodYesterday:
		return period.Yesterday(now), true
	case periodWeek:
		return period.ThisWeek(now), true
	case periodMonth:
		return period.ThisMonth(now), true
	case period30Days:
		return period.Last30Days(now), true
	default:
		return period.Range{}, false
	}
}
