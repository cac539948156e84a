package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/utilitybill/backend/internal/infrastructure/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func newTracedRouter(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	router := gin.New()
	router.Use(logger.GinMiddleware(zap.NewNop()))
	router.Use(Tracing(TracingConfig{ServiceName: "utilitybill-test", Enabled: true, TracerProvider: tp}))
	router.Use(SpanEnricher())
	router.Use(SpanErrorMarker())
	return router, sr
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestTracing_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Tracing(TracingConfig{Enabled: false}))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTracing_BillRouteAttributes(t *testing.T) {
	router, sr := newTracedRouter(t)
	router.GET("/api/v1/billing/bills/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	billID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/bills/"+billID.String(), nil)
	req.Header.Set(logger.RequestIDHeader, "req-abc")
	router.ServeHTTP(httptest.NewRecorder(), req)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/v1/billing/bills/:id", spans[0].Name())

	attrs := spanAttrs(spans[0])
	assert.Equal(t, "req-abc", attrs["request_id"].AsString())
	assert.Equal(t, billID.String(), attrs["bill_id"].AsString())
	assert.Equal(t, int64(http.StatusOK), attrs["http.status_code"].AsInt64())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestTracing_ReadingAndPeriodAttributes(t *testing.T) {
	router, sr := newTracedRouter(t)
	router.POST("/api/v1/billing/readings/:id/bill", func(c *gin.Context) { c.Status(http.StatusCreated) })
	router.POST("/api/v1/billing/cycles/:period/bills", func(c *gin.Context) { c.Status(http.StatusOK) })

	readingID := uuid.New()
	router.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodPost, "/api/v1/billing/readings/"+readingID.String()+"/bill", nil))
	router.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodPost, "/api/v1/billing/cycles/2026-03/bills", nil))

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, readingID.String(), spanAttrs(spans[0])["meter_reading_id"].AsString())
	assert.Equal(t, "2026-03", spanAttrs(spans[1])["period"].AsString())
}

func TestTracing_IgnoresMalformedIDs(t *testing.T) {
	router, sr := newTracedRouter(t)
	router.GET("/api/v1/billing/bills/:id", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/billing/bills/not-a-uuid", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	_, ok := spanAttrs(spans[0])["bill_id"]
	assert.False(t, ok)
}

func TestTracing_LongRequestIDTruncated(t *testing.T) {
	router, sr := newTracedRouter(t)
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(logger.RequestIDHeader, strings.Repeat("r", 300))
	router.ServeHTTP(httptest.NewRecorder(), req)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Len(t, spanAttrs(spans[0])["request_id"].AsString(), MaxRequestIDLength)
}

func TestTracing_IdempotencyKeyFlag(t *testing.T) {
	router, sr := newTracedRouter(t)
	router.POST("/api/v1/billing/bills/:id/payments", func(c *gin.Context) { c.Status(http.StatusCreated) })

	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/bills/"+uuid.NewString()+"/payments", nil)
	req.Header.Set(IdempotencyKeyHeader, "pay-1")
	router.ServeHTTP(httptest.NewRecorder(), req)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.True(t, spanAttrs(spans[0])["idempotency_key.present"].AsBool())
}

func TestSpanErrorMarker(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   codes.Code
	}{
		{"ok", http.StatusOK, codes.Unset},
		{"client error", http.StatusUnprocessableEntity, codes.Unset},
		{"conflict", http.StatusConflict, codes.Unset},
		{"server error", http.StatusInternalServerError, codes.Error},
		{"timeout", http.StatusGatewayTimeout, codes.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, sr := newTracedRouter(t)
			router.GET("/x", func(c *gin.Context) { c.Status(tt.status) })

			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

			spans := sr.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.want, spans[0].Status().Code)
			assert.Equal(t, int64(tt.status), spanAttrs(spans[0])["http.status_code"].AsInt64())
		})
	}
}

func TestSpanErrorMarker_WithoutSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(SpanEnricher(), SpanErrorMarker())
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
