package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/utilitybill/backend/internal/domain/shared"
)

// BillStatus represents the lifecycle state of a bill
type BillStatus string

const (
	BillStatusDue     BillStatus = "DUE"     // Issued, balance outstanding, not past due date
	BillStatusPaid    BillStatus = "PAID"    // Fully paid
	BillStatusOverdue BillStatus = "OVERDUE" // Past due date with balance outstanding, late penalty applied
)

// AllBillStatuses lists every bill status
func AllBillStatuses() []BillStatus {
	return []BillStatus{BillStatusDue, BillStatusPaid, BillStatusOverdue}
}

// IsValid checks if the status is a valid BillStatus
func (s BillStatus) IsValid() bool {
	switch s {
	case BillStatusDue, BillStatusPaid, BillStatusOverdue:
		return true
	}
	return false
}

// String returns the string representation of BillStatus
func (s BillStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next
func (s BillStatus) CanTransitionTo(next BillStatus) bool {
	switch s {
	case BillStatusDue:
		return next == BillStatusPaid || next == BillStatusOverdue
	case BillStatusOverdue:
		return next == BillStatusPaid
	case BillStatusPaid:
		return false
	default:
		return false
	}
}

// Bill is the aggregate root for a priced charge against one meter reading.
// TotalAmount always equals EnergyCharge + FixedCharge + TaxAmount + PenaltyAmount
// and AmountPaid never exceeds TotalAmount.
type Bill struct {
	shared.BaseAggregateRoot
	BillNumber         string          `json:"bill_number"`
	ConnectionID       uuid.UUID       `json:"connection_id"`
	ConsumerID         uuid.UUID       `json:"consumer_id"`
	TariffPlanID       uuid.UUID       `json:"tariff_plan_id"`
	MeterReadingID     uuid.UUID       `json:"meter_reading_id"`
	Period             BillingPeriod   `json:"period"`
	ServicePeriodStart time.Time       `json:"service_period_start"`
	ServicePeriodEnd   time.Time       `json:"service_period_end"`
	PreviousReading    decimal.Decimal `json:"previous_reading"`
	CurrentReading     decimal.Decimal `json:"current_reading"`
	UnitsConsumed      decimal.Decimal `json:"units_consumed"`
	RatePerUnit        decimal.Decimal `json:"rate_per_unit"`
	EnergyCharge       decimal.Decimal `json:"energy_charge"`
	FixedCharge        decimal.Decimal `json:"fixed_charge"`
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	PenaltyAmount      decimal.Decimal `json:"penalty_amount"`
	LatePaymentPenalty decimal.Decimal `json:"late_payment_penalty"` // tariff penalty captured at composition
	TotalAmount        decimal.Decimal `json:"total_amount"`
	AmountPaid         decimal.Decimal `json:"amount_paid"`
	Status             BillStatus      `json:"status"`
	BillDate           time.Time       `json:"bill_date"`
	DueDate            time.Time       `json:"due_date"`
	PaidAt             *time.Time      `json:"paid_at,omitempty"`
	OverdueAt          *time.Time      `json:"overdue_at,omitempty"`
}

// OutstandingBalance returns TotalAmount minus AmountPaid
func (b *Bill) OutstandingBalance() decimal.Decimal {
	return b.TotalAmount.Sub(b.AmountPaid)
}

// IsPaid returns true if the bill is fully paid
func (b *Bill) IsPaid() bool {
	return b.Status == BillStatusPaid
}

// IsOverdue returns true if the bill is in OVERDUE status
func (b *Bill) IsOverdue() bool {
	return b.Status == BillStatusOverdue
}

// IsPastDue reports whether now is after the due date while a balance is outstanding
func (b *Bill) IsPastDue(now time.Time) bool {
	return now.After(b.DueDate) && b.AmountPaid.LessThan(b.TotalAmount)
}

// ApplyPayment adds amount to AmountPaid. Payments that would push AmountPaid
// above TotalAmount are rejected, never clipped. When the bill becomes fully
// paid it moves to PAID.
func (b *Bill) ApplyPayment(amount decimal.Decimal, at time.Time) error {
	if !amount.IsPositive() || ExceedsScale(amount, StorageScale) {
		return shared.ErrInvalidAmount.
			WithDetail("bill_id", b.ID.String()).
			WithDetail("amount", amount.String())
	}
	if !b.Status.IsValid() {
		return b.invalidState("apply payment")
	}

	newPaid := b.AmountPaid.Add(amount)
	if newPaid.GreaterThan(b.TotalAmount) {
		return ErrOverPayment.
			WithDetail("bill_id", b.ID.String()).
			WithDetail("amount", amount.String()).
			WithDetail("outstanding", b.OutstandingBalance().String())
	}

	b.AmountPaid = newPaid
	if b.AmountPaid.GreaterThanOrEqual(b.TotalAmount) {
		previous := b.Status
		if err := b.transition(BillStatusPaid); err != nil {
			return err
		}
		b.PaidAt = &at
		b.AddDomainEvent(NewBillPaidEvent(b, previous, at))
	}

	b.UpdatedAt = at
	b.IncrementVersion()
	return nil
}

// MarkOverdue moves a past-due DUE bill to OVERDUE and adds the late penalty.
// It returns false without changes when the bill is not eligible, so repeated
// sweeps never add the penalty twice.
func (b *Bill) MarkOverdue(now time.Time) (bool, error) {
	switch b.Status {
	case BillStatusDue:
		if !b.IsPastDue(now) {
			return false, nil
		}
	case BillStatusOverdue, BillStatusPaid:
		return false, nil
	default:
		return false, b.invalidState("mark overdue")
	}

	if err := b.transition(BillStatusOverdue); err != nil {
		return false, err
	}
	b.PenaltyAmount = b.PenaltyAmount.Add(b.LatePaymentPenalty)
	b.recomputeTotal()
	b.OverdueAt = &now
	b.UpdatedAt = now
	b.IncrementVersion()
	b.AddDomainEvent(NewBillOverdueEvent(b, now))
	return true, nil
}

func (b *Bill) transition(next BillStatus) error {
	if !b.Status.CanTransitionTo(next) {
		return shared.ErrInvalidState.
			WithDetail("bill_id", b.ID.String()).
			WithDetail("from", b.Status.String()).
			WithDetail("to", next.String())
	}
	b.Status = next
	return nil
}

func (b *Bill) invalidState(action string) error {
	return shared.ErrInvalidState.
		WithDetail("bill_id", b.ID.String()).
		WithDetail("status", b.Status.String()).
		WithDetail("action", action)
}

func (b *Bill) recomputeTotal() {
	b.TotalAmount = b.EnergyCharge.Add(b.FixedCharge).Add(b.TaxAmount).Add(b.PenaltyAmount)
}

// CheckInvariants verifies the arithmetic and status consistency of the bill
func (b *Bill) CheckInvariants() error {
	if !b.Status.IsValid() {
		return b.invalidState("check invariants")
	}
	expected := b.EnergyCharge.Add(b.FixedCharge).Add(b.TaxAmount).Add(b.PenaltyAmount)
	if !expected.Equal(b.TotalAmount) {
		return shared.ErrInvalidState.WithDetail("bill_id", b.ID.String()).
			WithDetail("total_amount", b.TotalAmount.String()).
			WithDetail("expected_total", expected.String())
	}
	if b.AmountPaid.IsNegative() || b.AmountPaid.GreaterThan(b.TotalAmount) {
		return shared.ErrInvalidState.WithDetail("bill_id", b.ID.String()).
			WithDetail("amount_paid", b.AmountPaid.String()).
			WithDetail("total_amount", b.TotalAmount.String())
	}
	if b.Status == BillStatusPaid && !b.AmountPaid.Equal(b.TotalAmount) {
		return shared.ErrInvalidState.WithDetail("bill_id", b.ID.String()).
			WithDetail("status", b.Status.String()).
			WithDetail("outstanding", b.OutstandingBalance().String())
	}
	return nil
}

// String returns a short description used in logs
func (b *Bill) String() string {
	return fmt.Sprintf("%s[%s %s total=%s paid=%s]", b.BillNumber, b.Period, b.Status, b.TotalAmount, b.AmountPaid)
}
