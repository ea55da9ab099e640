package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics counts checkout and reconciliation outcomes.
type CheckoutMetrics struct {
	ordersCreated   prometheus.Counter
	checkoutFailed  *prometheus.CounterVec
	webhookOutcomes *prometheus.CounterVec
}

// NewCheckoutMetrics registers checkout/webhook counters on the registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders successfully created at checkout.",
	})
	checkoutFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failed_total",
		Help: "Checkout attempts that failed, by error code.",
	}, []string{"code"})
	webhookOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Webhook events processed, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(ordersCreated, checkoutFailed, webhookOutcomes)
	return &CheckoutMetrics{
		ordersCreated:   ordersCreated,
		checkoutFailed:  checkoutFailed,
		webhookOutcomes: webhookOutcomes,
	}
}

// IncOrderCreated increments the created-order counter.
func (c *CheckoutMetrics) IncOrderCreated() {
	if c == nil || c.ordersCreated == nil {
		return
	}
	c.ordersCreated.Inc()
}

// IncCheckoutFailed increments the failure counter for the given error code.
func (c *CheckoutMetrics) IncCheckoutFailed(code string) {
	if c == nil || c.checkoutFailed == nil {
		return
	}
	c.checkoutFailed.WithLabelValues(normalizeLabel(code)).Inc()
}

// IncWebhook increments the webhook counter for the event type and outcome.
func (c *CheckoutMetrics) IncWebhook(eventType, outcome string) {
	if c == nil || c.webhookOutcomes == nil {
		return
	}
	c.webhookOutcomes.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
