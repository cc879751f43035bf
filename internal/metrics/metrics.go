// Package metrics объявляет счетчики Prometheus кассового контура.
// Отдаются через /metrics служебного HTTP-сервера.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InvoicesCreated число выставленных счетов.
	InvoicesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brutalbot_invoices_created_total",
		Help: "Number of invoices issued to customers.",
	})

	// InvoicesApproved число подтвержденных счетов.
	InvoicesApproved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brutalbot_invoices_approved_total",
		Help: "Number of invoices confirmed as paid.",
	})

	// InvoicesDeclined число отклоненных счетов.
	InvoicesDeclined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brutalbot_invoices_declined_total",
		Help: "Number of invoices declined by reviewers.",
	})

	// SubscriptionRenewals число продлений VIP-подписок, включая первые покупки.
	SubscriptionRenewals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brutalbot_subscription_renewals_total",
		Help: "Number of VIP subscription renewals, first purchases included.",
	})

	// SubscriptionKicks число отзывов VIP-доступа по истечении подписки.
	SubscriptionKicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brutalbot_subscription_kicks_total",
		Help: "Number of customers kicked after subscription expiry.",
	})
)
