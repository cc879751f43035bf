package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/khaydarthegreat/brutalbot/internal/models"
)

// ErrBadAction возвращается на callback-данные, которые не разбираются
// ни в один известный вариант действия.
var ErrBadAction = errors.New("bot: bad action payload")

// Kind вид действия, закодированного в callback-данных кнопки.
type Kind string

const (
	KindClaim          Kind = "claim"    // клиент нажал "я оплатил"
	KindBack           Kind = "back"     // клиент вернулся к реквизитам
	KindApprove        Kind = "approve"  // ревьюер запросил подтверждение оплаты
	KindConfirmApprove Kind = "approve!" // ревьюер подтвердил оплату
	KindDecline        Kind = "decline"  // ревьюер запросил отклонение
	KindConfirmDecline Kind = "decline!" // ревьюер подтвердил отклонение
	KindSetType        Kind = "settype"  // ревьюер выбрал тип сделки
	KindDismiss        Kind = "dismiss"  // отмена второго шага, кнопки ревью возвращаются
	KindReport         Kind = "report"   // аналитик выбрал период статистики
	KindSalesBook      Kind = "sales"    // аналитик запросил книгу продаж
	KindClientsBook    Kind = "clients"  // аналитик запросил книгу клиентов
	KindUseCard        Kind = "usecard"  // менеджер переключил текущую карту
	KindDeleteCard     Kind = "delcard"  // менеджер удалил карту
	KindUseSalesman    Kind = "usesales" // менеджер переключил продажника
	KindDeleteSalesman Kind = "delsales" // менеджер удалил продажника
	KindAddCard        Kind = "addcard"  // менеджер начал добавление карты
	KindAddSalesman    Kind = "addsales" // менеджер начал добавление продажника
)

// Action один вариант действия кнопки. Все кнопки всех меню проходят
// через Encode при создании и через ParseAction при диспетчеризации.
type Action struct {
	Kind      Kind
	InvoiceID int
	Token     string             // токен подтверждения для approve!/decline!
	Type      models.InvoiceType // для settype
	Arg       string             // номер карты, имя продажника или тег периода
}

// Encode упаковывает действие в callback-данные. Формат:
// kind[:invoice_id][:token|type|arg], лимит Telegram 64 байта.
func (a Action) Encode() string {
	parts := []string{string(a.Kind)}
	switch a.Kind {
	case KindClaim, KindBack, KindApprove, KindDecline, KindDismiss:
		parts = append(parts, strconv.Itoa(a.InvoiceID))
	case KindConfirmApprove, KindConfirmDecline:
		parts = append(parts, strconv.Itoa(a.InvoiceID), a.Token)
	case KindSetType:
		parts = append(parts, strconv.Itoa(a.InvoiceID), string(a.Type))
	case KindReport, KindSalesBook, KindClientsBook,
		KindUseCard, KindDeleteCard, KindUseSalesman, KindDeleteSalesman:
		parts = append(parts, a.Arg)
	}
	return strings.Join(parts, ":")
}

// ParseAction разбирает callback-данные обратно в действие.
func ParseAction(data string) (Action, error) {
	parts := strings.Split(data, ":")
	a := Action{Kind: Kind(parts[0])}

	switch a.Kind {
	case KindAddCard, KindAddSalesman:
		if len(parts) != 1 {
			return Action{}, fmt.Errorf("%w: %q", ErrBadAction, data)
		}
		return a, nil
	case KindClaim, KindBack, KindApprove, KindDecline, KindDismiss:
		if len(parts) != 2 {
			return Action{}, fmt.Errorf("%w: %q", ErrBadAction, data)
		}
		id, err := strconv.Atoi(parts[1])
		if err != nil {
			return Action{}, fmt.Errorf("%w: %q", ErrBadAction, data)
		}
		a.InvoiceID = id
		return a, nil
	case KindConfirmApprove, KindConfirmDecline:
		if len(parts) != 3 || parts[2] == "" {
			return Action{}, fmt.Errorf("%w: %q", ErrBadAction, data)
		}
		id, err := strconv.Atoi(parts[1])
		if err != nil {
			return Action{}, fmt.Errorf("%w: %q", ErrBadAction, data)
		}
		a.InvoiceID = id
		a.Token = parts[2]
		return a, nil
	case KindSetType:
		if len(parts) != 3 {
			return Action{}, fmt.Errorf("%w: %q", ErrBadAction, data)
		}
		id, err := strconv.Atoi(parts[1])
		if err != nil {
			return Action{}, fmt.Errorf("%w: %q", ErrBadAction, data)
		}
		typ := models.InvoiceType(parts[2])
		if typ != models.TypeIncoming && typ != models.TypeOutgoing {
			return Action{}, fmt.Errorf("%w: %q", ErrBadAction, data)
		}
		a.InvoiceID = id
		a.Type = typ
		return a, nil
	case KindReport, KindSalesBook, KindClientsBook,
		KindUseCard, KindDeleteCard, KindUseSalesman, KindDeleteSalesman:
		if len(parts) != 2 || parts[1] == "" {
			return Action{}, fmt.Errorf("%w: %q", ErrBadAction, data)
		}
		a.Arg = parts[1]
		return a, nil
	default:
		return Action{}, fmt.Errorf("%w: %q", ErrBadAction, data)
	}
}

// ParseStartPayload разбирает полезную нагрузку deep-link команды /start
// вида amount_500_product_Combo, которую продажник вкладывает в кнопку
// оплаты inline-счета.
func ParseStartPayload(payload string) (amount int, product models.Product, ok bool) {
	parts := strings.Split(payload, "_")
	if len(parts) != 4 || parts[0] != "amount" || parts[2] != "product" {
		return 0, "", false
	}
	amount, err := strconv.Atoi(parts[1])
	if err != nil || amount <= 0 {
		return 0, "", false
	}
	product, ok = models.ParseProduct(parts[3])
	if !ok {
		return 0, "", false
	}
	return amount, product, true
}
