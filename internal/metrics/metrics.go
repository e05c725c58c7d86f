package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments exposed at GET /metrics.
type Metrics struct {
	OrdersCreatedTotal      *prometheus.CounterVec
	OrdersReconciledTotal   *prometheus.CounterVec
	WebhooksTotal           *prometheus.CounterVec
	WebhookDuration         prometheus.Histogram
	EntitlementGrantRetries *prometheus.CounterVec
	CompensationsTotal      prometheus.Counter
	GatewayCallDuration     *prometheus.HistogramVec
	GatewayCallErrorsTotal  *prometheus.CounterVec
	RateLimitHitsTotal      *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		OrdersCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payuni_orders_created_total",
				Help: "Total number of orders created, by product type",
			},
			[]string{"product_type"},
		),
		OrdersReconciledTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payuni_orders_reconciled_total",
				Help: "Total number of orders reconciled by the payment processor, by outcome",
			},
			[]string{"outcome"},
		),
		WebhooksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payuni_webhooks_total",
				Help: "Total number of inbound webhook deliveries, by result",
			},
			[]string{"result"},
		),
		WebhookDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "payuni_webhook_duration_seconds",
				Help:    "Time to verify, parse, re-query, and reconcile one webhook delivery",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		),
		EntitlementGrantRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payuni_entitlement_grant_retries_total",
				Help: "Total number of failed entitlement grant attempts, by attempt number",
			},
			[]string{"attempt"},
		),
		CompensationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "payuni_compensations_total",
				Help: "Total number of compensation tasks enqueued after grant retry exhaustion",
			},
		),
		GatewayCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payuni_gateway_call_duration_seconds",
				Help:    "Duration of outbound calls to the PAYUNi gateway, by operation",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"operation"},
		),
		GatewayCallErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payuni_gateway_call_errors_total",
				Help: "Total number of failed outbound calls to the PAYUNi gateway, by operation",
			},
			[]string{"operation"},
		),
		RateLimitHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payuni_rate_limit_hits_total",
				Help: "Total number of requests rejected by the rate limiter, by group",
			},
			[]string{"group"},
		),
	}
}

// ObserveWebhook records one webhook delivery outcome.
func (m *Metrics) ObserveWebhook(result string, duration time.Duration) {
	m.WebhooksTotal.WithLabelValues(result).Inc()
	m.WebhookDuration.Observe(duration.Seconds())
}

// ObserveOrderReconciled records one processor reconciliation outcome.
func (m *Metrics) ObserveOrderReconciled(outcome string) {
	m.OrdersReconciledTotal.WithLabelValues(outcome).Inc()
}

// ObserveGatewayCall records one outbound gateway call.
func (m *Metrics) ObserveGatewayCall(operation string, duration time.Duration, err error) {
	m.GatewayCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.GatewayCallErrorsTotal.WithLabelValues(operation).Inc()
	}
}
