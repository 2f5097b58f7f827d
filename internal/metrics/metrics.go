// Package metrics exposes Prometheus instrumentation for the order core.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kartcore"

// Metrics holds every collector the service records into.
type Metrics struct {
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	ordersPlaced     *prometheus.CounterVec
	statusChanges    *prometheus.CounterVec
	webhooks         *prometheus.CounterVec
	refundsRequired  prometheus.Counter
	rollbackFailures prometheus.Counter
	expired          prometheus.Counter
	drift            prometheus.Gauge
	outboxRelayed    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "placed_total",
			Help:      "Order placement attempts by payment method and outcome.",
		}, []string{"payment_method", "outcome"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "status_changes_total",
			Help:      "Applied order status transitions.",
		}, []string{"status"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "webhooks_total",
			Help:      "Payment webhooks by reported status and outcome.",
		}, []string{"status", "outcome"}),
		refundsRequired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "refund_required_total",
			Help:      "Paid orders left unconfirmed because their stock could not be held.",
		}),
		rollbackFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "rollback_failures_total",
			Help:      "Transactions whose rollback returned an error.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweeper",
			Name:      "expired_orders_total",
			Help:      "Unpaid gateway orders cancelled after the reservation TTL.",
		}),
		drift: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweeper",
			Name:      "reservation_drift_products",
			Help:      "Products whose reserved counter disagrees with open reservations.",
		}),
		outboxRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "relayed_total",
			Help:      "Outbox messages relayed by topic.",
		}, []string{"topic"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpLatency,
		m.ordersPlaced,
		m.statusChanges,
		m.webhooks,
		m.refundsRequired,
		m.rollbackFailures,
		m.expired,
		m.drift,
		m.outboxRelayed,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(route).Observe(float64(elapsed.Microseconds()) / 1000)
}

// OrderPlaced records a placement outcome such as "created" or an error code.
func (m *Metrics) OrderPlaced(method, outcome string) {
	if m == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(method, outcome).Inc()
}

// StatusChanged records an applied transition into status.
func (m *Metrics) StatusChanged(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

// Webhook records how a payment notification was handled.
func (m *Metrics) Webhook(status, outcome string) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(status, outcome).Inc()
}

// RefundRequired counts a captured payment that needs a manual refund.
func (m *Metrics) RefundRequired() {
	if m == nil {
		return
	}
	m.refundsRequired.Inc()
}

// RollbackFailed counts a failed transaction rollback.
func (m *Metrics) RollbackFailed() {
	if m == nil {
		return
	}
	m.rollbackFailures.Inc()
}

// OrdersExpired adds n sweeper cancellations.
func (m *Metrics) OrdersExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.expired.Add(float64(n))
}

// ReservationDrift sets the number of drifting products seen by the last audit.
func (m *Metrics) ReservationDrift(n int) {
	if m == nil {
		return
	}
	m.drift.Set(float64(n))
}

// Relayed counts a delivered outbox message.
func (m *Metrics) Relayed(topic string) {
	if m == nil {
		return
	}
	m.outboxRelayed.WithLabelValues(topic).Inc()
}
