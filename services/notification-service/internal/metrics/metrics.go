package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotificationMetrics counts consumed events and send attempts. A nil
// *NotificationMetrics records nothing.
type NotificationMetrics struct {
	events *prometheus.CounterVec
	sends  *prometheus.CounterVec
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	m := &NotificationMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "suav",
			Subsystem: "notification",
			Name:      "events_total",
			Help:      "Consumed booking events by type and outcome",
		}, []string{"event_type", "outcome"}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "suav",
			Subsystem: "notification",
			Name:      "sends_total",
			Help:      "Send attempts by channel and status",
		}, []string{"channel", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.events, m.sends)
	return m
}

func (m *NotificationMetrics) ObserveEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType, outcome).Inc()
}

func (m *NotificationMetrics) ObserveSend(channel, status string) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(channel, status).Inc()
}
