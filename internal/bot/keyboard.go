package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/khaydarthegreat/brutalbot/internal/models"
)

// managerKeyboard постоянная reply-клавиатура операторов.
func managerKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnReports)),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnManageCards),
			tgbotapi.NewKeyboardButton(btnManageSalesmen),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// payKeyboard клавиатура под сообщением с реквизитами.
func payKeyboard(invoiceID int, managerURL string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Я оплатил",
				Action{Kind: KindClaim, InvoiceID: invoiceID}.Encode()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("👨‍💼 Помощь", managerURL),
		),
	)
}

// backKeyboard возврат от запроса скриншота к реквизитам.
func backKeyboard(invoiceID int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 К реквизитам",
				Action{Kind: KindBack, InvoiceID: invoiceID}.Encode()),
		),
	)
}

// reviewKeyboard кнопки под пересланным ревьюеру скриншотом.
func reviewKeyboard(invoiceID int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить",
				Action{Kind: KindApprove, InvoiceID: invoiceID}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить",
				Action{Kind: KindDecline, InvoiceID: invoiceID}.Encode()),
		),
	)
}

// confirmKeyboard второй шаг подтверждения или отклонения.
func confirmKeyboard(kind Kind, invoiceID int, token string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Да",
				Action{Kind: kind, InvoiceID: invoiceID, Token: token}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("↩️ Отмена",
				Action{Kind: KindDismiss, InvoiceID: invoiceID}.Encode()),
		),
	)
}

// typeKeyboard выбор типа сделки после подтверждения оплаты.
func typeKeyboard(invoiceID int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📥 Входящий",
				Action{Kind: KindSetType, InvoiceID: invoiceID, Type: models.TypeIncoming}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("📤 Исходящий",
				Action{Kind: KindSetType, InvoiceID: invoiceID, Type: models.TypeOutgoing}.Encode()),
		),
	)
}

// reportKeyboard меню периодов статистики и выгрузок.
func reportKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Сегодня",
				Action{Kind: KindReport, Arg: periodToday}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("Вчера",
				Action{Kind: KindReport, Arg: periodYesterday}.Encode()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Неделя",
				Action{Kind: KindReport, Arg: periodWeek}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("Месяц",
				Action{Kind: KindReport, Arg: periodMonth}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("30 дней",
				Action{Kind: KindReport, Arg: period30Days}.Encode()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Свой период",
				Action{Kind: KindReport, Arg: periodCustom}.Encode()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📗 Книга продаж",
				Action{Kind: KindSalesBook, Arg: periodMonth}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("📘 Книга клиентов",
				Action{Kind: KindClientsBook, Arg: periodMonth}.Encode()),
		),
	)
}

// cardsKeyboard список карт: переключение текущей и удаление.
func cardsKeyboard(cards []models.Card) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(cards)+1)
	for _, c := range cards {
		label := fmt.Sprintf("%s (%s)", c.Number, c.Bank)
		if c.IsCurrent {
			label = "⭐ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label,
				Action{Kind: KindUseCard, Arg: c.Number}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("🗑",
				Action{Kind: KindDeleteCard, Arg: c.Number}.Encode()),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➕ Добавить карту",
			Action{Kind: KindAddCard}.Encode()),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// salesmenKeyboard список продажников: переключение текущего и удаление.
func salesmenKeyboard(salesmen []models.Salesman) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(salesmen)+1)
	for _, s := range salesmen {
		label := s.Name
		if s.IsCurrent {
			label = "⭐ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label,
				Action{Kind: KindUseSalesman, Arg: s.Name}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("🗑",
				Action{Kind: KindDeleteSalesman, Arg: s.Name}.Encode()),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➕ Добавить продажника",
			Action{Kind: KindAddSalesman}.Encode()),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
