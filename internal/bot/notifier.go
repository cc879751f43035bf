package bot

import (
	"context"
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/khaydarthegreat/brutalbot/internal/models"
)

// Notifier доставляет клиентам решения по счетам и управляет членством
// в VIP-группе. Используется сервисом счетов и кикером.
type Notifier struct {
	api        *tgbotapi.BotAPI
	vipGroupID int64
}

// NewNotifier создает нотификатор поверх API бота.
func NewNotifier(api *tgbotapi.BotAPI, vipGroupID int64) *Notifier {
	return &Notifier{api: api, vipGroupID: vipGroupID}
}

// NotifyPaid сообщает клиенту о подтверждении оплаты обычного продукта.
func (n *Notifier) NotifyPaid(_ context.Context, inv *models.Invoice) error {
	const op = "bot.NotifyPaid"

	text := fmt.Sprintf(
		"✅ Ваш платеж по счету №%d подтвержден.\nСпасибо за покупку, %s!",
		inv.ID, inv.CustomerName)
	if _, err := n.api.Send(tgbotapi.NewMessage(inv.CustomerID, text)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// NotifyDeclined сообщает клиенту об отклонении счета.
func (n *Notifier) NotifyDeclined(_ context.Context, inv *models.Invoice) error {
	const op = "bot.NotifyDeclined"

	text := fmt.Sprintf(
		"❌ Платеж по счету №%d не найден.\nЕсли вы уверены, что оплатили, свяжитесь с менеджером.",
		inv.ID)
	if _, err := n.api.Send(tgbotapi.NewMessage(inv.CustomerID, text)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// NotifyVIPAccess разбанивает клиента на случай прошлого кика и шлет ему
// одноразовую ссылку-приглашение в VIP-группу.
func (n *Notifier) NotifyVIPAccess(_ context.Context, inv *models.Invoice, sub *models.Subscription) error {
	const op = "bot.NotifyVIPAccess"

	// Прошлый кик оставляет клиента в бане группы, без снятия бана
	// ссылка-приглашение не сработает.
	unban := tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: n.vipGroupID,
			UserID: inv.CustomerID,
		},
		OnlyIfBanned: true,
	}
	if _, err := n.api.Request(unban); err != nil {
		return fmt.Errorf("%s: unban: %w", op, err)
	}

	invite := tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: n.vipGroupID},
		MemberLimit: 1,
	}
	resp, err := n.api.Request(invite)
	if err != nil {
		return fmt.Errorf("%s: invite link: %w", op, err)
	}
	var link struct {
		InviteLink string `json:"invite_link"`
	}
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return fmt.Errorf("%s: invite link: %w", op, err)
	}

	text := fmt.Sprintf(
		"✅ Оплата подтверждена!\nВаша VIP-подписка активна до %s.\nСсылка для входа в группу: %s",
		sub.KickDate.Format("02.01.2006"), link.InviteLink)
	if _, err := n.api.Send(tgbotapi.NewMessage(inv.CustomerID, text)); err != nil {
		return fmt.Errorf("%s: send: %w", op, err)
	}
	return nil
}

// Ban удаляет клиента из VIP-группы.
func (n *Notifier) Ban(_ context.Context, customerID int64) error {
	const op = "bot.Ban"

	ban := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: n.vipGroupID,
			UserID: customerID,
		},
	}
	if _, err := n.api.Request(ban); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// NotifyKicked сообщает клиенту об окончании подписки.
func (n *Notifier) NotifyKicked(_ context.Context, candidate models.KickCandidate) error {
	const op = "bot.NotifyKicked"

	text := fmt.Sprintf(
		"Ваша VIP-подписка закончилась %s.\nЧтобы продлить доступ, свяжитесь с менеджером.",
		candidate.KickDate.Format("02.01.2006"))
	if _, err := n.api.Send(tgbotapi.NewMessage(candidate.CustomerID, text)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
