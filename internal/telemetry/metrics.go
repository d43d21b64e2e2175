package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CheckoutMetrics holds Prometheus metrics for checkout-level observability.
// All recording methods are nil-safe so services can run without metrics in
// tests.
type CheckoutMetrics struct {
	// Checkout funnel
	OrdersPlaced    prometheus.Counter
	OrdersPaid      prometheus.Counter
	PaymentFailures *prometheus.CounterVec
	StockConflicts  prometheus.Counter

	// Order economics
	OrderValue prometheus.Histogram

	// Reservation sweep
	ReservationsExpired prometheus.Counter
	SweepDuration       prometheus.Histogram
}

// NewCheckoutMetrics creates and registers all checkout metrics.
func NewCheckoutMetrics(namespace string) *CheckoutMetrics {
	if namespace == "" {
		namespace = "thokbazaar"
	}

	subsystem := "checkout"

	return &CheckoutMetrics{
		OrdersPlaced: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "orders_placed_total",
			Help:      "Total orders placed with stock held and a gateway order created",
		}),
		OrdersPaid: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "orders_paid_total",
			Help:      "Total orders confirmed paid",
		}),
		PaymentFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "payment_failures_total",
			Help:      "Total payment failures",
		}, []string{"reason"}), // reason: signature_invalid, gateway_mismatch, expired
		StockConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stock_conflicts_total",
			Help:      "Total checkouts rejected for insufficient stock",
		}),
		OrderValue: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "order_value_paise",
			Help:      "Placed order total distribution in paise",
			Buckets:   []float64{50000, 100000, 250000, 500000, 1000000, 2500000, 5000000},
		}),
		ReservationsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reservations_expired_total",
			Help:      "Total stock holds released by the expiry sweep",
		}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sweep_duration_seconds",
			Help:      "Reservation sweep pass duration",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10},
		}),
	}
}

func (m *CheckoutMetrics) RecordOrderPlaced(totalPaise int64) {
	if m == nil {
		return
	}
	m.OrdersPlaced.Inc()
	m.OrderValue.Observe(float64(totalPaise))
}

func (m *CheckoutMetrics) RecordOrderPaid() {
	if m == nil {
		return
	}
	m.OrdersPaid.Inc()
}

func (m *CheckoutMetrics) RecordPaymentFailure(reason string) {
	if m == nil {
		return
	}
	m.PaymentFailures.WithLabelValues(reason).Inc()
}

func (m *CheckoutMetrics) RecordStockConflict() {
	if m == nil {
		return
	}
	m.StockConflicts.Inc()
}

func (m *CheckoutMetrics) RecordReservationsExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ReservationsExpired.Add(float64(n))
}

func (m *CheckoutMetrics) ObserveSweep(seconds float64) {
	if m == nil {
		return
	}
	m.SweepDuration.Observe(seconds)
}
