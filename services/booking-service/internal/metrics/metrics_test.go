package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Booking("create", "created")
	m.Booking("create", "conflict")
	m.Booking("create", "conflict")
	m.TxRetry("create")
	m.TxDuration("create", 20*time.Millisecond)

	if got := testutil.ToFloat64(m.bookings.WithLabelValues("create", "conflict")); got != 2 {
		t.Fatalf("expected 2 conflicts, got %v", got)
	}
	if got := testutil.ToFloat64(m.txRetries.WithLabelValues("create")); got != 1 {
		t.Fatalf("expected 1 retry, got %v", got)
	}
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	m.Booking("create", "created")
	m.TxRetry("create")
	m.SlotsOffered(3)
	m.OutboxPublished(1)
}
