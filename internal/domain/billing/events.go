package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/utilitybill/backend/internal/domain/shared"
)

// Event type names
const (
	EventTypeBillGenerated   = "BillGenerated"
	EventTypeBillPaid        = "BillPaid"
	EventTypeBillOverdue     = "BillOverdue"
	EventTypePaymentRecorded = "PaymentRecorded"
)

// Aggregate type names
const (
	AggregateTypeBill    = "Bill"
	AggregateTypePayment = "Payment"
)

// BillGeneratedEvent is raised when a bill is composed from a meter reading
type BillGeneratedEvent struct {
	shared.BaseDomainEvent
	BillID         uuid.UUID       `json:"bill_id"`
	BillNumber     string          `json:"bill_number"`
	ConnectionID   uuid.UUID       `json:"connection_id"`
	ConsumerID     uuid.UUID       `json:"consumer_id"`
	MeterReadingID uuid.UUID       `json:"meter_reading_id"`
	Period         string          `json:"period"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	DueDate        time.Time       `json:"due_date"`
}

// NewBillGeneratedEvent creates a new BillGeneratedEvent
func NewBillGeneratedEvent(b *Bill) *BillGeneratedEvent {
	return &BillGeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillGenerated, AggregateTypeBill, b.ID, b.BillDate),
		BillID:          b.ID,
		BillNumber:      b.BillNumber,
		ConnectionID:    b.ConnectionID,
		ConsumerID:      b.ConsumerID,
		MeterReadingID:  b.MeterReadingID,
		Period:          b.Period.String(),
		TotalAmount:     b.TotalAmount,
		DueDate:         b.DueDate,
	}
}

// BillPaidEvent is raised when a bill becomes fully paid
type BillPaidEvent struct {
	shared.BaseDomainEvent
	BillID         uuid.UUID       `json:"bill_id"`
	BillNumber     string          `json:"bill_number"`
	ConsumerID     uuid.UUID       `json:"consumer_id"`
	PreviousStatus BillStatus      `json:"previous_status"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaidAt         time.Time       `json:"paid_at"`
}

// NewBillPaidEvent creates a new BillPaidEvent
func NewBillPaidEvent(b *Bill, previous BillStatus, paidAt time.Time) *BillPaidEvent {
	return &BillPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillPaid, AggregateTypeBill, b.ID, paidAt),
		BillID:          b.ID,
		BillNumber:      b.BillNumber,
		ConsumerID:      b.ConsumerID,
		PreviousStatus:  previous,
		TotalAmount:     b.TotalAmount,
		PaidAt:          paidAt,
	}
}

// BillOverdueEvent is raised when the sweep moves a bill to OVERDUE
type BillOverdueEvent struct {
	shared.BaseDomainEvent
	BillID        uuid.UUID       `json:"bill_id"`
	BillNumber    string          `json:"bill_number"`
	ConsumerID    uuid.UUID       `json:"consumer_id"`
	DueDate       time.Time       `json:"due_date"`
	PenaltyAmount decimal.Decimal `json:"penalty_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Outstanding   decimal.Decimal `json:"outstanding"`
}

// NewBillOverdueEvent creates a new BillOverdueEvent
func NewBillOverdueEvent(b *Bill, at time.Time) *BillOverdueEvent {
	return &BillOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillOverdue, AggregateTypeBill, b.ID, at),
		BillID:          b.ID,
		BillNumber:      b.BillNumber,
		ConsumerID:      b.ConsumerID,
		DueDate:         b.DueDate,
		PenaltyAmount:   b.PenaltyAmount,
		TotalAmount:     b.TotalAmount,
		Outstanding:     b.OutstandingBalance(),
	}
}

// PaymentRecordedEvent is raised when a payment is recorded against a bill
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID       `json:"payment_id"`
	PaymentNumber string          `json:"payment_number"`
	BillID        uuid.UUID       `json:"bill_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypePayment, p.ID, p.PaymentDate),
		PaymentID:       p.ID,
		PaymentNumber:   p.PaymentNumber,
		BillID:          p.BillID,
		Amount:          p.Amount,
		Method:          p.Method,
	}
}
