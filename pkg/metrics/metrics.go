package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline collectors. A nil *Metrics is valid and records
// nothing, so components can be built without a registry.
type Metrics struct {
	overflows   *prometheus.CounterVec
	delivered   *prometheus.CounterVec
	failed      *prometheus.CounterVec
	inFlight    prometheus.Gauge
	sendLatency prometheus.Histogram
	alerts      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		overflows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logship_ring_overflow_total",
			Help: "Events overwritten in a ring buffer before the drain worker read them.",
		}, []string{"appender"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logship_events_delivered_total",
			Help: "Events handed successfully to a sink.",
		}, []string{"sink"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logship_delivery_errors_total",
			Help: "Failed deliveries; the affected events are lost.",
		}, []string{"sink"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "logship_batches_in_flight",
			Help: "Batches currently being sent to the document store.",
		}),
		sendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "logship_batch_send_seconds",
			Help:    "Wall-clock duration of a batch send to the document store.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logship_email_alerts_total",
			Help: "Slow-send email alerts by outcome (sent, suppressed, failed).",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.overflows, m.delivered, m.failed, m.inFlight, m.sendLatency, m.alerts)
	return m
}

func (m *Metrics) RingOverflow(appender string) {
	if m != nil {
		m.overflows.WithLabelValues(appender).Inc()
	}
}

func (m *Metrics) Delivered(sink string, n int) {
	if m != nil {
		m.delivered.WithLabelValues(sink).Add(float64(n))
	}
}

func (m *Metrics) DeliveryFailed(sink string, n int) {
	if m != nil {
		m.failed.WithLabelValues(sink).Add(float64(n))
	}
}

func (m *Metrics) BatchStarted() {
	if m != nil {
		m.inFlight.Inc()
	}
}

func (m *Metrics) BatchFinished(elapsed time.Duration) {
	if m != nil {
		m.inFlight.Dec()
		m.sendLatency.Observe(elapsed.Seconds())
	}
}

// Alert records an email alert outcome: "sent", "suppressed" or "failed".
func (m *Metrics) Alert(outcome string) {
	if m != nil {
		m.alerts.WithLabelValues(outcome).Inc()
	}
}
