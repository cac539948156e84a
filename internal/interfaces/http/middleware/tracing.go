// Package middleware provides HTTP middleware for the billing API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/utilitybill/backend/internal/infrastructure/logger"
	"github.com/utilitybill/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// IdempotencyKeyHeader carries the client-chosen key of a payment request
const IdempotencyKeyHeader = "Idempotency-Key"

// MaxRequestIDLength bounds the request ID copied into span attributes
const MaxRequestIDLength = 128

// TracingConfig holds configuration for the tracing middleware
type TracingConfig struct {
	ServiceName    string
	Enabled        bool
	TracerProvider trace.TracerProvider // nil uses the global provider
}

// Tracing returns the otelgin server-span middleware.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	var opts []otelgin.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.TracerProvider))
	}
	return otelgin.Middleware(cfg.ServiceName, opts...)
}

// SpanEnricher adds request and route attributes to the span otelgin
// created. It must be registered after Tracing.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
			enrichSpan(c, span)
		}
		c.Next()
	}
}

func enrichSpan(c *gin.Context, span trace.Span) {
	if requestID := logger.GetRequestID(c.Request.Context()); requestID != "" {
		if len(requestID) > MaxRequestIDLength {
			requestID = requestID[:MaxRequestIDLength]
		}
		span.SetAttributes(attribute.String("request_id", requestID))
	}

	// only well-formed ids go into attributes
	if id, err := uuid.Parse(c.Param("id")); err == nil {
		route := c.FullPath()
		switch {
		case strings.HasPrefix(route, "/api/v1/billing/bills"):
			span.SetAttributes(attribute.String(telemetry.SpanAttrBillID, id.String()))
		case strings.HasPrefix(route, "/api/v1/billing/readings"):
			span.SetAttributes(attribute.String(telemetry.SpanAttrMeterReadingID, id.String()))
		case strings.HasPrefix(route, "/api/v1/billing/connections"):
			span.SetAttributes(attribute.String(telemetry.SpanAttrConnectionID, id.String()))
		}
	}
	if period := c.Param("period"); period != "" && len(period) <= 7 {
		span.SetAttributes(attribute.String(telemetry.SpanAttrPeriod, period))
	}
	if c.GetHeader(IdempotencyKeyHeader) != "" {
		span.SetAttributes(attribute.Bool("idempotency_key.present", true))
	}
}

// SpanErrorMarker marks the server span as failed for 5xx responses and
// records the status code. 4xx responses are client errors and leave the
// span status unset.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
