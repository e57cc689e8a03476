package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("dataset", "pickup-data"),
		attribute.String("booking_reference", "ABC123"),
		attribute.String("result", "hit"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "booking_reference" {
			t.Fatalf("booking_reference must not be used as a label")
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordAnalysis(context.Background(), "query", "ok")
	m.RecordSanitizedCells(context.Background(), "pickup-data", 3)

	var h *HTTPMetrics
	h.Observe("/health", "GET", 200, time.Millisecond)
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.RecordGridBuilt(context.Background(), "pickup-data", time.Second)
	m.RecordGridCache(context.Background(), "pickup-data", true)
}

func TestHTTPMetricsMiddlewareCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m, err := NewHTTPMetricsWithRegisterer(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues("/health", "GET", "200"))
	if got != 2 {
		t.Fatalf("expected 2 requests counted, got %v", got)
	}

	again, err := NewHTTPMetricsWithRegisterer(reg)
	if err != nil {
		t.Fatalf("re-registering should reuse collectors: %v", err)
	}
	if testutil.ToFloat64(again.requests.WithLabelValues("/health", "GET", "200")) != 2 {
		t.Fatalf("expected reused collector to share counts")
	}
}
