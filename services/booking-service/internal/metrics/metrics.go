package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	bookings     *prometheus.CounterVec
	txRetries    *prometheus.CounterVec
	txDuration   *prometheus.HistogramVec
	slotsOffered prometheus.Histogram
	outboxSent   prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		bookings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_operations_total",
			Help: "Booking write operations by outcome.",
		}, []string{"operation", "outcome"}),
		txRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_tx_retries_total",
			Help: "Booking transactions retried after a transient store failure.",
		}, []string{"operation"}),
		txDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "booking_tx_duration_seconds",
			Help:    "Wall time of booking transactions including the retry.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		slotsOffered: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "availability_slots_offered",
			Help:    "Number of free slots returned per availability query.",
			Buckets: []float64{0, 1, 2, 4, 8, 12, 16, 24, 32, 48},
		}),
		outboxSent: f.NewCounter(prometheus.CounterOpts{
			Name: "booking_outbox_published_total",
			Help: "Outbox events delivered to Kafka.",
		}),
	}
}

func (m *Metrics) Booking(operation, outcome string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) TxRetry(operation string) {
	if m == nil {
		return
	}
	m.txRetries.WithLabelValues(operation).Inc()
}

func (m *Metrics) TxDuration(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.txDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) SlotsOffered(n int) {
	if m == nil {
		return
	}
	m.slotsOffered.Observe(float64(n))
}

func (m *Metrics) OutboxPublished(n int) {
	if m == nil {
		return
	}
	m.outboxSent.Add(float64(n))
}
