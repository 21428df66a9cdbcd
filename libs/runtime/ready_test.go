package runtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReadyHandler(t *testing.T) {
	ok := ReadyCheck{Name: "db", Check: func(context.Context) error { return nil }}
	down := ReadyCheck{Name: "kafka", Check: func(context.Context) error { return errors.New("dial refused") }}

	rec := httptest.NewRecorder()
	ReadyHandler(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	ReadyHandler(ok, down).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "kafka: dial refused") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestParseLevel(t *testing.T) {
	var buf strings.Builder
	logger := newLogger(&buf, "booking-service", "warn")
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), `"service":"booking-service"`) {
		t.Fatalf("unexpected log output %q", buf.String())
	}
}
