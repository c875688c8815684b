package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics exposes counters/histograms for booking flows. A nil
// *BookingMetrics is valid and records nothing.
type BookingMetrics struct {
	operations      *prometheus.CounterVec
	slotGeneration  prometheus.Histogram
	webhookEvents   *prometheus.CounterVec
	checkoutLatency prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "suav",
			Subsystem: "booking",
			Name:      "operations_total",
			Help:      "Booking operations by name and outcome",
		}, []string{"operation", "outcome"}),
		slotGeneration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "suav",
			Subsystem: "booking",
			Name:      "slot_generation_seconds",
			Help:      "Time spent generating a week of availability",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "suav",
			Subsystem: "payments",
			Name:      "webhook_events_total",
			Help:      "Payment webhook events by type and outcome",
		}, []string{"event_type", "outcome"}),
		checkoutLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "suav",
			Subsystem: "payments",
			Name:      "checkout_create_seconds",
			Help:      "Latency of checkout session creation at the provider",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operations, m.slotGeneration, m.webhookEvents, m.checkoutLatency)
	return m
}

func (m *BookingMetrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *BookingMetrics) ObserveSlotGeneration(d time.Duration) {
	if m == nil {
		return
	}
	m.slotGeneration.Observe(d.Seconds())
}

func (m *BookingMetrics) ObserveWebhook(eventType, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (m *BookingMetrics) ObserveCheckout(d time.Duration) {
	if m == nil {
		return
	}
	m.checkoutLatency.Observe(d.Seconds())
}
