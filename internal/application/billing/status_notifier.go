package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/utilitybill/backend/internal/domain/billing"
	"github.com/utilitybill/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Notifier delivers bill status changes to consumers.
// Delivery channels (SMS, e-mail, portal inbox) live outside the billing core.
type Notifier interface {
	NotifyBillStatus(ctx context.Context, notification BillStatusNotification) error
}

// BillStatusNotification is what a consumer is told about one of their bills
type BillStatusNotification struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	BillID      string    `json:"bill_id"`
	BillNumber  string    `json:"bill_number"`
	ConsumerID  string    `json:"consumer_id"`
	Status      string    `json:"status"`
	TotalAmount string    `json:"total_amount"`
	Outstanding string    `json:"outstanding"`
	DueDate     time.Time `json:"due_date,omitzero"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// BillStatusNotifier turns bill lifecycle events into consumer notifications
type BillStatusNotifier struct {
	logger   *zap.Logger
	notifier Notifier
}

// NewBillStatusNotifier creates a new handler for bill lifecycle events
func NewBillStatusNotifier(logger *zap.Logger) *BillStatusNotifier {
	return &BillStatusNotifier{logger: logger}
}

// WithNotifier sets the notifier for sending notifications
func (h *BillStatusNotifier) WithNotifier(notifier Notifier) *BillStatusNotifier {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *BillStatusNotifier) EventTypes() []string {
	return []string{
		billing.EventTypeBillGenerated,
		billing.EventTypeBillPaid,
		billing.EventTypeBillOverdue,
	}
}

// Handle builds a notification from a bill event and hands it to the notifier
func (h *BillStatusNotifier) Handle(ctx context.Context, event shared.DomainEvent) error {
	notification, err := toNotification(event)
	if err != nil {
		h.logger.Error("unexpected event type", zap.String("actual", event.EventType()))
		return err
	}
	if h.notifier == nil {
		return nil
	}

	if err := h.notifier.NotifyBillStatus(ctx, notification); err != nil {
		h.logger.Error("failed to send bill status notification",
			zap.String("bill_id", notification.BillID),
			zap.String("status", notification.Status),
			zap.Error(err),
		)
		// delivery is best effort; the bill state is already committed
		return nil
	}
	return nil
}

func toNotification(event shared.DomainEvent) (BillStatusNotification, error) {
	n := BillStatusNotification{
		EventID:    event.EventID().String(),
		EventType:  event.EventType(),
		OccurredAt: event.OccurredAt(),
	}
	switch e := event.(type) {
	case *billing.BillGeneratedEvent:
		n.BillID = e.BillID.String()
		n.BillNumber = e.BillNumber
		n.ConsumerID = e.ConsumerID.String()
		n.Status = billing.BillStatusDue.String()
		n.TotalAmount = e.TotalAmount.String()
		n.Outstanding = e.TotalAmount.String()
		n.DueDate = e.DueDate
	case *billing.BillPaidEvent:
		n.BillID = e.BillID.String()
		n.BillNumber = e.BillNumber
		n.ConsumerID = e.ConsumerID.String()
		n.Status = billing.BillStatusPaid.String()
		n.TotalAmount = e.TotalAmount.String()
		n.Outstanding = "0"
	case *billing.BillOverdueEvent:
		n.BillID = e.BillID.String()
		n.BillNumber = e.BillNumber
		n.ConsumerID = e.ConsumerID.String()
		n.Status = billing.BillStatusOverdue.String()
		n.TotalAmount = e.TotalAmount.String()
		n.Outstanding = e.Outstanding.String()
		n.DueDate = e.DueDate
	default:
		return n, fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	return n, nil
}

var _ shared.EventHandler = (*BillStatusNotifier)(nil)

// LoggingNotifier writes notifications to the log
type LoggingNotifier struct {
	logger *zap.Logger
}

// NewLoggingNotifier creates a new logging notifier
func NewLoggingNotifier(logger *zap.Logger) *LoggingNotifier {
	return &LoggingNotifier{logger: logger}
}

// NotifyBillStatus logs the notification
func (n *LoggingNotifier) NotifyBillStatus(_ context.Context, notification BillStatusNotification) error {
	n.logger.Info("bill status notification",
		zap.String("bill_id", notification.BillID),
		zap.String("bill_number", notification.BillNumber),
		zap.String("consumer_id", notification.ConsumerID),
		zap.String("status", notification.Status),
		zap.String("outstanding", notification.Outstanding),
	)
	return nil
}

var _ Notifier = (*LoggingNotifier)(nil)
