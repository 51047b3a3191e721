package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DomainMetrics holds the business counters for checkout and order materialization.
type DomainMetrics struct {
	// CheckoutSessions counts session creation attempts by result.
	CheckoutSessions *prometheus.CounterVec
	// WebhookEvents counts inbound processor events by type and outcome.
	WebhookEvents *prometheus.CounterVec
	// OrdersCreated counts orders materialized from paid sessions.
	OrdersCreated prometheus.Counter
	// ProfilesProvisioned counts profile rows created on first sight of a user.
	ProfilesProvisioned prometheus.Counter
	// OrderTotalMismatch counts orders whose recomputed total differs from the processor amount.
	OrderTotalMismatch prometheus.Counter
	// ProcessorLatency records outbound payment processor call latency in milliseconds.
	ProcessorLatency *prometheus.HistogramVec
}

// NewDomainMetrics registers the domain collectors with reg.
func NewDomainMetrics(namespace string, reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &DomainMetrics{
		CheckoutSessions: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_total",
			Help:      "Count of checkout session creation outcomes.",
		}, []string{"result"})),
		WebhookEvents: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhook_events_total",
			Help:      "Count of processed payment webhook events by type and outcome.",
		}, []string{"type", "result"})),
		OrdersCreated: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Number of orders materialized from completed checkout sessions.",
		})),
		ProfilesProvisioned: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profiles_provisioned_total",
			Help:      "Number of user profiles created on first authenticated request.",
		})),
		OrderTotalMismatch: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_total_mismatch_total",
			Help:      "Orders whose recomputed total differs from the processor reported amount.",
		})),
		ProcessorLatency: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_processor_duration_ms",
			Help:      "Latency for outbound payment processor calls in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"operation", "result"})),
	}
}

// CheckoutSession records a session creation outcome. Safe on a nil receiver.
func (m *DomainMetrics) CheckoutSession(result string) {
	if m == nil {
		return
	}
	m.CheckoutSessions.WithLabelValues(result).Inc()
}

// WebhookEvent records the outcome for a processor event type. Safe on a nil receiver.
func (m *DomainMetrics) WebhookEvent(eventType, result string) {
	if m == nil {
		return
	}
	m.WebhookEvents.WithLabelValues(eventType, result).Inc()
}

// OrderCreated increments the order counter. Safe on a nil receiver.
func (m *DomainMetrics) OrderCreated() {
	if m == nil {
		return
	}
	m.OrdersCreated.Inc()
}

// ProfileProvisioned increments the provisioning counter. Safe on a nil receiver.
func (m *DomainMetrics) ProfileProvisioned() {
	if m == nil {
		return
	}
	m.ProfilesProvisioned.Inc()
}

// TotalMismatch increments the total mismatch counter. Safe on a nil receiver.
func (m *DomainMetrics) TotalMismatch() {
	if m == nil {
		return
	}
	m.OrderTotalMismatch.Inc()
}

// ObserveProcessor records an outbound processor call. Safe on a nil receiver.
func (m *DomainMetrics) ObserveProcessor(operation, result string, millis float64) {
	if m == nil {
		return
	}
	m.ProcessorLatency.WithLabelValues(operation, result).Observe(millis)
}
