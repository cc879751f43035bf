// Package models содержит доменные структуры кассового контура:
// счета, VIP-подписки, карты для приема платежей и продажники,
// а также вспомогательные типы для приема данных из внешних источников.
package models

import "time"

// Status статус счета. Переходы монотонные: PENDING -> PAID | DECLINED,
// терминальные статусы не переписываются.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusPaid     Status = "PAID"
	StatusDeclined Status = "DECLINED"
)

// Terminal сообщает, является ли статус конечным.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusDeclined
}

// InvoiceType тип продажи, проставляется только после подтверждения счета.
type InvoiceType string

const (
	TypeUnset    InvoiceType = ""
	TypeIncoming InvoiceType = "Incoming"
	TypeOutgoing InvoiceType = "Outgoing"
)

// Product продукт, на который выставлен счет.
type Product string

const (
	ProductExpress Product = "Express"
	ProductOrdinar Product = "Ordinar"
	ProductCombo   Product = "Combo"
	ProductLesenka Product = "Lesenka"
	ProductVIP     Product = "VIP"
)

// Products перечень всех продуктов в порядке показа в inline-меню.
var Products = []Product{ProductVIP, ProductExpress, ProductOrdinar, ProductCombo, ProductLesenka}

// ParseProduct возвращает продукт по строковому тегу.
func ParseProduct(s string) (Product, bool) {
	for _, p := range Products {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// Invoice счет на оплату. ID уникален глобально и никогда не переиспользуется.
type Invoice struct {
	ID                 int
	Amount             int
	Product            Product
	CustomerID         int64
	CustomerName       string
	CustomerUsername   string
	Salesman           string
	Status             Status
	Type               InvoiceType
	CreatedAt          time.Time
	ScreenshotID       *int64 // id сообщения со скриншотом, nil пока не прислан
	SubscriptionLength *int   // дни подписки, только для продукта VIP
}

// Subscription VIP-подписка, одна строка на клиента. Продления мутируют
// существующую строку, kick_date никогда не уменьшается при продлении.
type Subscription struct {
	CustomerID       int64
	CustomerName     string
	CustomerUsername string
	DurationDays     int
	KickDate         time.Time
	Paid             bool
	RenewalTimes     int
}

// Card карта для приема платежей. Текущей может быть не более одной.
type Card struct {
	Number    string
	Bank      string
	IsCurrent bool
}

// Salesman продажник. Текущим может быть не более одного.
type Salesman struct {
	Name      string
	IsCurrent bool
}

// KickCandidate подписчик с истекшей подпиской, публикуется свипером в очередь.
type KickCandidate struct {
	CustomerID   int64     `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	KickDate     time.Time `json:"kick_date"`
}

// ReportStats агрегированная статистика продаж за период.
type ReportStats struct {
	TotalIncome       int     `json:"total_income"`
	DealQuantity      int     `json:"deal_quantity"`
	AverageDealAmount float64 `json:"average_deal_amount"`
	UniqueCustomers   int     `json:"unique_customers"`
	NewCustomers      int     `json:"new_customers"`
	NewCustomerIncome int     `json:"new_customer_income"`
	IncomingDeals     int     `json:"incoming_deals"`
	OutgoingDeals     int     `json:"outgoing_deals"`
	IncomingAmount    int     `json:"incoming_amount"`
	OutgoingAmount    int     `json:"outgoing_amount"`
}

// SalesBookRow строка книги продаж: один оплаченный счет.
type SalesBookRow struct {
	InvoiceID        int         `json:"invoice_id"`
	Amount           int         `json:"amount"`
	Date             time.Time   `json:"date"`
	CustomerName     string      `json:"customer_name"`
	CustomerUsername string      `json:"customer_username"`
	CustomerID       int64       `json:"customer_id"`
	Type             InvoiceType `json:"type"`
}

// ClientsBookRow строка книги клиентов: агрегат по одному покупателю.
type ClientsBookRow struct {
	CustomerID       int64     `json:"customer_id"`
	CustomerUsername string    `json:"customer_username"`
	CustomerName     string    `json:"customer_name"`
	FirstDealDate    time.Time `json:"first_deal_date"`
	LastDealDate     time.Time `json:"last_deal_date"`
	TotalDeals       int       `json:"total_deals"`
	TotalAmount      int       `json:"total_amount"`
}

// DummyReportRange используется для приема периода отчета из JSON-запроса
// до валидации и парсинга дат. Даты приходят строками в формате 02.01.2006.
type DummyReportRange struct {
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}
