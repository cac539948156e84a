package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/utilitybill/backend/internal/domain/billing"
	"github.com/utilitybill/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BillingMeterName is the instrumentation scope of the billing metrics
const BillingMeterName = "utilitybill.billing"

// BillingMetrics holds the business instruments of the billing core.
type BillingMetrics struct {
	billsGenerated  *Counter
	billsPaid       *Counter
	billsOverdue    *Counter
	paymentsTotal   *Counter
	billedAmount    *Histogram
	paymentAmount   *Histogram
	penaltiesAmount *Histogram
}

// NewBillingMetrics creates the billing instruments on meter.
func NewBillingMetrics(meter metric.Meter) (*BillingMetrics, error) {
	if meter == nil {
		return nil, errors.New("NewBillingMetrics: meter cannot be nil")
	}

	m := &BillingMetrics{}
	var err error
	if m.billsGenerated, err = NewCounter(meter, "billing_bills_generated_total",
		"Bills generated from meter readings", "{bill}"); err != nil {
		return nil, err
	}
	if m.billsPaid, err = NewCounter(meter, "billing_bills_paid_total",
		"Bills that reached PAID", "{bill}"); err != nil {
		return nil, err
	}
	if m.billsOverdue, err = NewCounter(meter, "billing_bills_overdue_total",
		"Bills moved to OVERDUE by the sweep", "{bill}"); err != nil {
		return nil, err
	}
	if m.paymentsTotal, err = NewCounter(meter, "billing_payments_total",
		"Payments recorded against bills", "{payment}"); err != nil {
		return nil, err
	}
	if m.billedAmount, err = NewHistogram(meter, HistogramOpts{
		Name:        "billing_bill_amount",
		Description: "Total amount of generated bills",
		Unit:        "{currency}",
		Boundaries:  AmountBuckets,
	}); err != nil {
		return nil, err
	}
	if m.paymentAmount, err = NewHistogram(meter, HistogramOpts{
		Name:        "billing_payment_amount",
		Description: "Amount of recorded payments",
		Unit:        "{currency}",
		Boundaries:  AmountBuckets,
	}); err != nil {
		return nil, err
	}
	if m.penaltiesAmount, err = NewHistogram(meter, HistogramOpts{
		Name:        "billing_penalty_amount",
		Description: "Late payment penalty applied to overdue bills",
		Unit:        "{currency}",
		Boundaries:  AmountBuckets,
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// MetricsRecorder is an event handler that feeds BillingMetrics from bill
// lifecycle and payment events.
type MetricsRecorder struct {
	metrics *BillingMetrics
	logger  *zap.Logger
}

// NewMetricsRecorder creates a new metrics recording event handler
func NewMetricsRecorder(metrics *BillingMetrics, logger *zap.Logger) *MetricsRecorder {
	return &MetricsRecorder{metrics: metrics, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (r *MetricsRecorder) EventTypes() []string {
	return []string{
		billing.EventTypeBillGenerated,
		billing.EventTypeBillPaid,
		billing.EventTypeBillOverdue,
		billing.EventTypePaymentRecorded,
	}
}

// Handle updates the counters for one event
func (r *MetricsRecorder) Handle(ctx context.Context, event shared.DomainEvent) error {
	m := r.metrics
	switch e := event.(type) {
	case *billing.BillGeneratedEvent:
		m.billsGenerated.Inc(ctx)
		m.billedAmount.Record(ctx, e.TotalAmount.InexactFloat64())
	case *billing.BillPaidEvent:
		m.billsPaid.Inc(ctx, AttrPreviousStatus.String(string(e.PreviousStatus)))
	case *billing.BillOverdueEvent:
		m.billsOverdue.Inc(ctx)
		m.penaltiesAmount.Record(ctx, e.PenaltyAmount.InexactFloat64())
	case *billing.PaymentRecordedEvent:
		method := AttrPaymentMethod.String(string(e.Method))
		m.paymentsTotal.Inc(ctx, method)
		m.paymentAmount.Record(ctx, e.Amount.InexactFloat64(), method)
	default:
		r.logger.Warn("metrics recorder received unexpected event", zap.String("event_type", event.EventType()))
		return fmt.Errorf("unexpected event type %s", event.EventType())
	}
	return nil
}

// Ensure MetricsRecorder implements EventHandler
var _ shared.EventHandler = (*MetricsRecorder)(nil)
