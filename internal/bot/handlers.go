package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/khaydarthegreat/brutalbot/internal/lib/period"
	"github.com/khaydarthegreat/brutalbot/internal/lib/sl"
	"github.com/khaydarthegreat/brutalbot/internal/models"
	"github.com/khaydarthegreat/brutalbot/internal/services/invoice"
	"github.com/khaydarthegreat/brutalbot/internal/storage/repository"
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || !msg.Chat.IsPrivate() {
		return
	}

	if len(msg.Photo) > 0 || msg.Document != nil {
		b.handleScreenshot(ctx, msg)
		return
	}

	if msg.IsCommand() && msg.Command() == "start" {
		if payload := msg.CommandArguments(); payload != "" {
			b.handleDeepLink(ctx, msg, payload)
			return
		}
		b.handleStart(msg)
		return
	}

	if kind, ok := b.takeAwaiting(msg.From.ID); ok {
		b.handleAwaitedInput(ctx, msg, kind)
		return
	}

	switch msg.Text {
	case btnReports:
		if !b.isAnalyst(msg.From.ID) {
			return
		}
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Выберите период отчета:")
		reply.ReplyMarkup = reportKeyboard()
		b.send(reply)
	case btnManageCards:
		if !b.isPaymentManager(msg.From.ID) {
			return
		}
		b.sendCards(ctx, msg.Chat.ID)
	case btnManageSalesmen:
		if !b.isPaymentManager(msg.From.ID) {
			return
		}
		b.sendSalesmen(ctx, msg.Chat.ID)
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	if b.isOperator(msg.From.ID) {
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Панель оператора.")
		reply.ReplyMarkup = managerKeyboard()
		b.send(reply)
		return
	}
	text := fmt.Sprintf(
		"Привет! Этот бот принимает оплату по счетам.\nЧтобы получить счет, обратитесь к менеджеру: %s",
		b.cfg.ManagerURL)
	b.send(tgbotapi.NewMessage(msg.Chat.ID, text))
}

// handleDeepLink выставляет счет клиенту, пришедшему по ссылке продажника.
func (b *Bot) handleDeepLink(ctx context.Context, msg *tgbotapi.Message, payload string) {
	const op = "bot.handleDeepLink"
	log := b.log.With(slog.String("op", op), slog.Int64("customer_id", msg.From.ID))

	amount, product, ok := ParseStartPayload(payload)
	if !ok {
		log.Warn("bad deep link payload", slog.String("payload", payload))
		b.send(tgbotapi.NewMessage(msg.Chat.ID, "Ссылка повреждена. Запросите новую у менеджера."))
		return
	}

	card, err := b.settings.CurrentCard(ctx)
	if err != nil {
		log.Error("failed to get current card", sl.Err(err))
		b.send(tgbotapi.NewMessage(msg.Chat.ID,
			"Реквизиты временно недоступны. Попробуйте позже или напишите менеджеру."))
		return
	}

	salesman, err := b.settings.CurrentSalesman(ctx)
	if err != nil {
		// Счет без продажника лучше, чем потерянный клиент.
		log.Warn("failed to get current salesman", sl.Err(err))
	}

	inv, err := b.invoices.Create(ctx, invoice.CreateRequest{
		Amount:           amount,
		Product:          product,
		CustomerID:       msg.From.ID,
		CustomerName:     strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName),
		CustomerUsername: msg.From.UserName,
		Salesman:         salesman,
	})
	if err != nil {
		log.Error("failed to create invoice", sl.Err(err))
		b.send(tgbotapi.NewMessage(msg.Chat.ID,
			"Не удалось выставить счет. Попробуйте позже или напишите менеджеру."))
		return
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, requisitesText(inv, card))
	reply.ReplyMarkup = payKeyboard(inv.ID, b.cfg.ManagerURL)
	b.send(reply)
}

func requisitesText(inv *models.Invoice, card *models.Card) string {
	return fmt.Sprintf(
		"Счет №%d\nПродукт: %s\nСумма: %d ₽\n\nПереведите на карту:\n%s (%s)\n\nПосле перевода нажмите кнопку ниже.",
		inv.ID, inv.Product, inv.Amount, card.Number, card.Bank)
}

// handleScreenshot привязывает скриншот к последнему счету клиента и
// пересылает его всем ревьюерам с кнопками решения.
func (b *Bot) handleScreenshot(ctx context.Context, msg *tgbotapi.Message) {
	const op = "bot.handleScreenshot"
	log := b.log.With(slog.String("op", op), slog.Int64("customer_id", msg.From.ID))

	inv, err := b.invoices.SubmitEvidence(ctx, msg.From.ID, int64(msg.MessageID))
	if errors.Is(err, invoice.ErrNoInvoice) {
		// Клиент без счета не получает ответа, случай уже залогирован сервисом.
		return
	}
	if err != nil {
		log.Error("failed to submit evidence", sl.Err(err))
		b.send(tgbotapi.NewMessage(msg.Chat.ID, "Не удалось принять скриншот. Попробуйте еще раз."))
		return
	}

	review := fmt.Sprintf(
		"Счет №%d\nПродукт: %s\nСумма: %d ₽\nКлиент: %s (@%s)\nПродажник: %s",
		inv.ID, inv.Product, inv.Amount, inv.CustomerName, inv.CustomerUsername, inv.Salesman)
	for _, reviewerID := range b.cfg.PaymentManagerIDs {
		b.send(tgbotapi.NewForward(reviewerID, msg.Chat.ID, msg.MessageID))
		reply := tgbotapi.NewMessage(reviewerID, review)
		reply.ReplyMarkup = reviewKeyboard(inv.ID)
		b.send(reply)
	}

	b.send(tgbotapi.NewMessage(msg.Chat.ID,
		"Скриншот получен. Мы проверим оплату и пришлем подтверждение."))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	const op = "bot.handleCallback"
	log := b.log.With(slog.String("op", op), slog.Int64("user_id", cb.From.ID))

	action, err := ParseAction(cb.Data)
	if err != nil || cb.Message == nil {
		log.Warn("unroutable callback", slog.String("data", cb.Data))
		b.answer(cb, "Неизвестное действие")
		return
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	switch action.Kind {
	case KindClaim, KindBack:
		b.handleCustomerCallback(ctx, cb, action, chatID, messageID)
	case KindApprove, KindConfirmApprove, KindDecline, KindConfirmDecline,
		KindSetType, KindDismiss:
		if !b.isPaymentManager(cb.From.ID) {
			b.answer(cb, "Недостаточно прав")
			return
		}
		b.handleReviewCallback(ctx, cb, action, chatID, messageID)
	case KindReport, KindSalesBook, KindClientsBook:
		if !b.isAnalyst(cb.From.ID) {
			b.answer(cb, "Недостаточно прав")
			return
		}
		b.handleReportCallback(ctx, cb, action, chatID)
	case KindUseCard, KindDeleteCard, KindAddCard,
		KindUseSalesman, KindDeleteSalesman, KindAddSalesman:
		if !b.isPaymentManager(cb.From.ID) {
			b.answer(cb, "Недостаточно прав")
			return
		}
		b.handleSettingsCallback(ctx, cb, action, chatID, messageID)
	}
}

func (b *Bot) handleCustomerCallback(ctx context.Context, cb *tgbotapi.CallbackQuery,
	action Action, chatID int64, messageID int) {
	const op = "bot.handleCustomerCallback"
	log := b.log.With(slog.String("op", op), slog.Int("invoice_id", action.InvoiceID))

	switch action.Kind {
	case KindClaim:
		status, err := b.invoices.ClaimPayment(ctx, action.InvoiceID)
		if err != nil {
			log.Error("failed to claim payment", sl.Err(err))
			b.answer(cb, "Счет не найден")
			return
		}
		if status.Terminal() {
			b.editText(chatID, messageID,
				fmt.Sprintf("Счет №%d уже закрыт.", action.InvoiceID), nil)
			b.answer(cb, "")
			return
		}
		kb := backKeyboard(action.InvoiceID)
		b.editText(chatID, messageID,
			"Пришлите скриншот перевода одним сообщением.", &kb)
		b.answer(cb, "")
	case KindBack:
		inv, err := b.invoices.Get(ctx, action.InvoiceID)
		if err != nil {
			log.Error("failed to get invoice", sl.Err(err))
			b.answer(cb, "Счет не найден")
			return
		}
		card, err := b.settings.CurrentCard(ctx)
		if err != nil {
			log.Error("failed to get current card", sl.Err(err))
			b.answer(cb, "Реквизиты временно недоступны")
			return
		}
		kb := payKeyboard(inv.ID, b.cfg.ManagerURL)
		b.editText(chatID, messageID, requisitesText(inv, card), &kb)
		b.answer(cb, "")
	}
}

func (b *Bot) handleReviewCallback(ctx context.Context, cb *tgbotapi.CallbackQuery,
	action Action, chatID int64, messageID int) {
	const op = "bot.handleReviewCallback"
	log := b.log.With(slog.String("op", op), slog.Int("invoice_id", action.InvoiceID))

	switch action.Kind {
	case KindApprove:
		token, err := b.invoices.RequestApproval(ctx, action.InvoiceID)
		if err != nil {
			log.Error("failed to request approval", sl.Err(err))
			b.answer(cb, "Счет не найден")
			return
		}
		kb := confirmKeyboard(KindConfirmApprove, action.InvoiceID, token)
		b.editText(chatID, messageID,
			fmt.Sprintf("Подтвердить оплату счета №%d?", action.InvoiceID), &kb)
		b.answer(cb, "")
	case KindDecline:
		token, err := b.invoices.RequestDecline(ctx, action.InvoiceID)
		if err != nil {
			log.Error("failed to request decline", sl.Err(err))
			b.answer(cb, "Счет не найден")
			return
		}
		kb := confirmKeyboard(KindConfirmDecline, action.InvoiceID, token)
		b.editText(chatID, messageID,
			fmt.Sprintf("Отклонить счет №%d?", action.InvoiceID), &kb)
		b.answer(cb, "")
	case KindConfirmApprove:
		_, changed, err := b.invoices.ConfirmApproval(ctx, action.InvoiceID, action.Token)
		if errors.Is(err, invoice.ErrBadToken) {
			b.answer(cb, "Подтверждение устарело, запросите заново")
			return
		}
		if err != nil {
			log.Error("failed to confirm approval", sl.Err(err))
			b.answer(cb, "Не удалось подтвердить счет")
			return
		}
		if !changed {
			b.editText(chatID, messageID,
				fmt.Sprintf("Счет №%d уже закрыт.", action.InvoiceID), nil)
			b.answer(cb, "")
			return
		}
		kb := typeKeyboard(action.InvoiceID)
		b.editText(chatID, messageID,
			fmt.Sprintf("Счет №%d оплачен. Выберите тип сделки:", action.InvoiceID), &kb)
		b.answer(cb, "")
	case KindConfirmDecline:
		_, changed, err := b.invoices.ConfirmDecline(ctx, action.InvoiceID, action.Token)
		if errors.Is(err, invoice.ErrBadToken) {
			b.answer(cb, "Подтверждение устарело, запросите заново")
			return
		}
		if err != nil {
			log.Error("failed to confirm decline", sl.Err(err))
			b.answer(cb, "Не удалось отклонить счет")
			return
		}
		if !changed {
			b.editText(chatID, messageID,
				fmt.Sprintf("Счет №%d уже закрыт.", action.InvoiceID), nil)
			b.answer(cb, "")
			return
		}
		b.editText(chatID, messageID,
			fmt.Sprintf("Счет №%d отклонен, клиент уведомлен.", action.InvoiceID), nil)
		b.answer(cb, "")
	case KindSetType:
		if _, err := b.invoices.SetInvoiceType(ctx, action.InvoiceID, action.Type); err != nil {
			log.Error("failed to set invoice type", sl.Err(err))
			b.answer(cb, "Не удалось проставить тип")
			return
		}
		b.editText(chatID, messageID,
			fmt.Sprintf("Счет №%d закрыт, тип: %s.", action.InvoiceID, action.Type), nil)
		b.answer(cb, "")
	case KindDismiss:
		kb := reviewKeyboard(action.InvoiceID)
		b.editText(chatID, messageID,
			fmt.Sprintf("Счет №%d ожидает решения.", action.InvoiceID), &kb)
		b.answer(cb, "Отменено")
	}
}

func (b *Bot) handleReportCallback(ctx context.Context, cb *tgbotapi.CallbackQuery,
	action Action, chatID int64) {
	const op = "bot.handleReportCallback"
	log := b.log.With(slog.String("op", op))

	if action.Kind == KindReport && action.Arg == periodCustom {
		b.setAwaiting(cb.From.ID, awaitPeriod)
		b.send(tgbotapi.NewMessage(chatID,
			"Пришлите период в формате 02.01.2006 или 02.01.2006 - 02.01.2006."))
		b.answer(cb, "")
		return
	}

	rng, ok := b.rangeForTag(action.Arg)
	if !ok {
		b.answer(cb, "Неизвестный период")
		return
	}

	switch action.Kind {
	case KindReport:
		b.sendStats(ctx, chatID, rng)
	case KindSalesBook:
		data, err := b.reports.SalesBookCSV(ctx, rng)
		if err != nil {
			log.Error("failed to build sales book", sl.Err(err))
			b.answer(cb, "Не удалось собрать отчет")
			return
		}
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: "sales_book.csv", Bytes: data})
		doc.Caption = "Книга продаж за " + rng.String()
		b.send(doc)
	case KindClientsBook:
		data, err := b.reports.ClientsBookCSV(ctx, rng)
		if err != nil {
			log.Error("failed to build clients book", sl.Err(err))
			b.answer(cb, "Не удалось собрать отчет")
			return
		}
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: "clients_book.csv", Bytes: data})
		doc.Caption = "Книга клиентов за " + rng.String()
		b.send(doc)
	}
	b.answer(cb, "")
}

func (b *Bot) sendStats(ctx context.Context, chatID int64, rng period.Range) {
	const op = "bot.sendStats"

	stats, err := b.reports.Stats(ctx, rng)
	if err != nil {
		b.log.Error("failed to build stats", slog.String("op", op), sl.Err(err))
		b.send(tgbotapi.NewMessage(chatID, "Не удалось собрать статистику."))
		return
	}

	text := fmt.Sprintf(
		"📊 Статистика за %s\n\n"+
			"Выручка: %d ₽\nСделок: %d\nСредний чек: %.2f ₽\n\n"+
			"Уникальных клиентов: %d\nНовых клиентов: %d\nВыручка с новых: %d ₽\n\n"+
			"Входящих сделок: %d на %d ₽\nИсходящих сделок: %d на %d ₽",
		rng.String(),
		stats.TotalIncome, stats.DealQuantity, stats.AverageDealAmount,
		stats.UniqueCustomers, stats.NewCustomers, stats.NewCustomerIncome,
		stats.IncomingDeals, stats.IncomingAmount,
		stats.OutgoingDeals, stats.OutgoingAmount)
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) handleSettingsCallback(ctx context.Context, cb *tgbotapi.CallbackQuery,
	action Action, chatID int64, messageID int) {
	const op = "bot.handleSettingsCallback"
	log := b.log.With(slog.String("op", op))

	var err error
	switch action.Kind {
	case KindAddCard:
		b.setAwaiting(cb.From.ID, awaitCard)
		b.send(tgbotapi.NewMessage(chatID, "Пришлите карту в формате: номер банк."))
		b.answer(cb, "")
		return
	case KindAddSalesman:
		b.setAwaiting(cb.From.ID, awaitSalesman)
		b.send(tgbotapi.NewMessage(chatID, "Пришлите имя продажника."))
		b.answer(cb, "")
		return
	case KindUseCard:
		err = b.settings.SetCurrentCard(ctx, action.Arg)
	case KindDeleteCard:
		err = b.settings.DeleteCard(ctx, action.Arg)
	case KindUseSalesman:
		err = b.settings.SetCurrentSalesman(ctx, action.Arg)
	case KindDeleteSalesman:
		err = b.settings.DeleteSalesman(ctx, action.Arg)
	}
	if errors.Is(err, repository.ErrNotFound) {
		b.answer(cb, "Запись не найдена")
		return
	}
	if err != nil {
		log.Error("failed to update settings", sl.Err(err))
		b.answer(cb, "Не удалось применить изменение")
		return
	}

	switch action.Kind {
	case KindUseCard, KindDeleteCard:
		b.refreshCards(ctx, chatID, messageID)
	case KindUseSalesman, KindDeleteSalesman:
		b.refreshSalesmen(ctx, chatID, messageID)
	}
	b.answer(cb, "Готово")
}

func (b *Bot) handleAwaitedInput(ctx context.Context, msg *tgbotapi.Message, kind awaitKind) {
	const op = "bot.handleAwaitedInput"
	log := b.log.With(slog.String("op", op), slog.Int64("user_id", msg.From.ID))

	switch kind {
	case awaitCard:
		if !b.isPaymentManager(msg.From.ID) {
			return
		}
		number, bank, ok := strings.Cut(strings.TrimSpace(msg.Text), " ")
		if !ok {
			b.setAwaiting(msg.From.ID, awaitCard)
			b.send(tgbotapi.NewMessage(msg.Chat.ID, "Нужны номер и банк через пробел."))
			return
		}
		if err := b.settings.AddCard(ctx, number, strings.TrimSpace(bank)); err != nil {
			log.Error("failed to add card", sl.Err(err))
			b.send(tgbotapi.NewMessage(msg.Chat.ID, "Не удалось добавить карту."))
			return
		}
		b.sendCards(ctx, msg.Chat.ID)
	case awaitSalesman:
		if !b.isPaymentManager(msg.From.ID) {
			return
		}
		name := strings.TrimSpace(msg.Text)
		if name == "" {
			b.setAwaiting(msg.From.ID, awaitSalesman)
			b.send(tgbotapi.NewMessage(msg.Chat.ID, "Имя не может быть пустым."))
			return
		}
		if err := b.settings.AddSalesman(ctx, name); err != nil {
			log.Error("failed to add salesman", sl.Err(err))
			b.send(tgbotapi.NewMessage(msg.Chat.ID, "Не удалось добавить продажника."))
			return
		}
		b.sendSalesmen(ctx, msg.Chat.ID)
	case awaitPeriod:
		if !b.isAnalyst(msg.From.ID) {
			return
		}
		rng, err := period.ParseCustom(msg.Text, b.loc)
		if errors.Is(err, period.ErrBadFormat) {
			b.setAwaiting(msg.From.ID, awaitPeriod)
			b.send(tgbotapi.NewMessage(msg.Chat.ID,
				"Не понял период. Формат: 02.01.2006 - 02.01.2006."))
			return
		}
		b.sendStats(ctx, msg.Chat.ID, rng)
	}
}

// handleInlineQuery отвечает продажнику списком продуктов на введенную
// сумму. Каждый результат несет кнопку с deep-link на выставление счета.
func (b *Bot) handleInlineQuery(_ context.Context, q *tgbotapi.InlineQuery) {
	const op = "bot.handleInlineQuery"
	log := b.log.With(slog.String("op", op), slog.Int64("user_id", q.From.ID))

	if !b.isSalesManager(q.From.ID) {
		return
	}

	amount, err := strconv.Atoi(strings.TrimSpace(q.Query))
	if err != nil || amount <= 0 {
		if _, err := b.api.Request(tgbotapi.InlineConfig{InlineQueryID: q.ID, CacheTime: 1}); err != nil {
			log.Warn("failed to answer inline query", sl.Err(err))
		}
		return
	}

	results := make([]interface{}, 0, len(models.Products))
	for _, product := range models.Products {
		link := fmt.Sprintf("%s?start=amount_%d_product_%s", b.cfg.BotURL, amount, product)
		text := fmt.Sprintf(
			"Счет на %d ₽, продукт %s.\nНажмите кнопку ниже, чтобы получить реквизиты.",
			amount, product)
		article := tgbotapi.NewInlineQueryResultArticle(uuid.NewString(),
			fmt.Sprintf("%s за %d ₽", product, amount), text)
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("💳 Оплатить", link),
			),
		)
		article.ReplyMarkup = &kb
		results = append(results, article)
	}

	answer := tgbotapi.InlineConfig{
		InlineQueryID: q.ID,
		Results:       results,
		IsPersonal:    true,
		CacheTime:     1,
	}
	if _, err := b.api.Request(answer); err != nil {
		log.Warn("failed to answer inline query", sl.Err(err))
	}
}

func (b *Bot) sendCards(ctx context.Context, chatID int64) {
	cards, err := b.settings.ListCards(ctx)
	if err != nil {
		b.log.Error("failed to list cards", sl.Err(err))
		b.send(tgbotapi.NewMessage(chatID, "Не удалось загрузить карты."))
		return
	}
	reply := tgbotapi.NewMessage(chatID, "Карты реестра. ⭐ отмечает текущую:")
	reply.ReplyMarkup = cardsKeyboard(cards)
	b.send(reply)
}

func (b *Bot) sendSalesmen(ctx context.Context, chatID int64) {
	salesmen, err := b.settings.ListSalesmen(ctx)
	if err != nil {
		b.log.Error("failed to list salesmen", sl.Err(err))
		b.send(tgbotapi.NewMessage(chatID, "Не удалось загрузить продажников."))
		return
	}
	reply := tgbotapi.NewMessage(chatID, "Продажники. ⭐ отмечает текущего:")
	reply.ReplyMarkup = salesmenKeyboard(salesmen)
	b.send(reply)
}

func (b *Bot) refreshCards(ctx context.Context, chatID int64, messageID int) {
	cards, err := b.settings.ListCards(ctx)
	if err != nil {
		b.log.Error("failed to list cards", sl.Err(err))
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, cardsKeyboard(cards))
	if _, err := b.api.Send(edit); err != nil {
		b.log.Warn("failed to refresh cards keyboard", sl.Err(err))
	}
}

func (b *Bot) refreshSalesmen(ctx context.Context, chatID int64, messageID int) {
	salesmen, err := b.settings.ListSalesmen(ctx)
	if err != nil {
		b.log.Error("failed to list salesmen", sl.Err(err))
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, salesmenKeyboard(salesmen))
	if _, err := b.api.Send(edit); err != nil {
		b.log.Warn("failed to refresh salesmen keyboard", sl.Err(err))
	}
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.log.Warn("failed to send message", sl.Err(err))
	}
}

func (b *Bot) answer(cb *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
		b.log.Warn("failed to answer callback", sl.Err(err))
	}
}

func (b *Bot) editText(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ReplyMarkup = markup
	if _, err := b.api.Send(edit); err != nil {
		b.log.Warn("failed to edit message", sl.Err(err))
	}
}
