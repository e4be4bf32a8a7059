package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for business-level observability
// of the checkout and settlement pipeline.
type BusinessMetrics struct {
	// Checkout funnel
	CheckoutStarted   prometheus.Counter
	CheckoutStep      *prometheus.CounterVec
	CheckoutCompleted prometheus.Counter
	CheckoutAbandoned *prometheus.CounterVec

	// Payments
	PaymentIntents     prometheus.Counter
	PaymentDismissed   prometheus.Counter
	GatewayUnavailable prometheus.Counter

	// Settlement
	SettlementVerified   prometheus.Counter
	SettlementUnverified prometheus.Counter

	// Ledger
	OrdersRecorded         prometheus.Counter
	OrderValue             prometheus.Histogram
	ReconciliationRequired prometheus.Counter

	// Cart
	CartAdds       prometheus.Counter
	CartOutOfStock prometheus.Counter
}

// NewBusinessMetrics creates and registers all business metrics
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "storefront"
	}

	subsystem := "business"

	return &BusinessMetrics{
		CheckoutStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "checkout_started_total",
			Help:      "Total checkout flows started",
		}),
		CheckoutStep: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_step_total",
				Help:      "Checkout state transitions by destination state",
			},
			[]string{"state"},
		),
		CheckoutCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "checkout_completed_total",
			Help:      "Total checkouts that reached a settled order",
		}),
		CheckoutAbandoned: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_abandoned_total",
				Help:      "Checkouts abandoned, by the state they were in",
			},
			[]string{"state"},
		),
		PaymentIntents: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "payment_intents_total",
			Help:      "Payment intents created at the gateway",
		}),
		PaymentDismissed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "payment_dismissed_total",
			Help:      "Payment UIs dismissed by the user without paying",
		}),
		GatewayUnavailable: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "gateway_unavailable_total",
			Help:      "Payment gateway calls that failed or timed out",
		}),
		SettlementVerified: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "settlement_verified_total",
			Help:      "Settlement callbacks whose signature verified",
		}),
		SettlementUnverified: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "settlement_unverified_total",
			Help:      "Settlement callbacks rejected for signature mismatch",
		}),
		OrdersRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "orders_recorded_total",
			Help:      "Orders durably written to the ledger",
		}),
		OrderValue: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "order_value",
			Help:      "Recorded order totals in major currency units",
			Buckets:   []float64{100, 500, 1000, 2500, 5000, 10000, 25000},
		}),
		ReconciliationRequired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reconciliation_required_total",
			Help:      "Payments captured at the gateway whose ledger write failed",
		}),
		CartAdds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cart_adds_total",
			Help:      "Successful cart add or merge operations",
		}),
		CartOutOfStock: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cart_out_of_stock_total",
			Help:      "Cart mutations rejected for insufficient stock",
		}),
	}
}
