package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "talentgate"

const (
	WebhookAccepted         = "accepted"
	WebhookDuplicate        = "duplicate"
	WebhookIgnored          = "ignored"
	WebhookInvalidSignature = "invalid_signature"
	WebhookFailed           = "failed"

	VerificationVerified      = "verified"
	VerificationPriceMismatch = "price_mismatch"
	VerificationMissingEmail  = "missing_email"
)

// Metrics exposes the domain instruments. A nil *Metrics is a valid no-op.
type Metrics struct {
	webhookEvents    *prometheus.CounterVec
	checkoutSessions *prometheus.CounterVec
	verifications    *prometheus.CounterVec
	customerMappings *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		webhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Webhook deliveries by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		checkoutSessions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_total",
			Help:      "Checkout session attempts by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_verifications_total",
			Help:      "Verification payments by outcome.",
		}, []string{"outcome"}),
		customerMappings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "customer_mappings_total",
			Help:      "Customer mapping resolutions by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) RecordWebhook(eventType, outcome string) {
	if m == nil {
		return
	}
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		eventType = "unknown"
	}
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) RecordCheckout(strategy string, err error) {
	if m == nil {
		return
	}
	outcome := "created"
	if err != nil {
		outcome = "failed"
	}
	m.checkoutSessions.WithLabelValues(strategy, outcome).Inc()
}

func (m *Metrics) RecordVerification(outcome string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(outcome).Inc()
}

// RecordCustomerMapping counts mapper results: existing, created, lost_race.
func (m *Metrics) RecordCustomerMapping(result string) {
	if m == nil {
		return
	}
	m.customerMappings.WithLabelValues(result).Inc()
}

type HTTPMetrics struct {
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	return &HTTPMetrics{
		duration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.duration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
