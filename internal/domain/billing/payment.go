package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/utilitybill/backend/internal/domain/shared"
)

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodOnline       PaymentMethod = "ONLINE"
	PaymentMethodCheque       PaymentMethod = "CHEQUE"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodBankTransfer,
		PaymentMethodOnline, PaymentMethodCheque:
		return true
	}
	return false
}

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// CountsTowardBill reports whether the payment's amount is part of the bill's AmountPaid
func (s PaymentStatus) CountsTowardBill() bool {
	return s == PaymentStatusCompleted
}

// Payment is an amount recorded against a bill
type Payment struct {
	shared.BaseEntity
	PaymentNumber  string          `json:"payment_number"`
	BillID         uuid.UUID       `json:"bill_id"`
	Amount         decimal.Decimal `json:"amount"`
	Method         PaymentMethod   `json:"method"`
	Status         PaymentStatus   `json:"status"`
	PaymentDate    time.Time       `json:"payment_date"`
	Reference      string          `json:"reference,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

// NewCompletedPayment creates a COMPLETED payment for a bill.
// The caller must already have applied the amount to the bill.
func NewCompletedPayment(
	billID uuid.UUID,
	amount decimal.Decimal,
	method PaymentMethod,
	reference string,
	idempotencyKey string,
	paidAt time.Time,
) (*Payment, error) {
	if billID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BILL", "Bill ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.ErrInvalidAmount.WithDetail("amount", amount.String())
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Payment method %q is not valid", method))
	}
	if len(reference) > 100 {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Payment reference cannot exceed 100 characters")
	}

	base := shared.NewBaseEntity()
	return &Payment{
		BaseEntity:     base,
		PaymentNumber:  paymentNumber(paidAt, base.ID),
		BillID:         billID,
		Amount:         amount,
		Method:         method,
		Status:         PaymentStatusCompleted,
		PaymentDate:    paidAt,
		Reference:      reference,
		IdempotencyKey: idempotencyKey,
	}, nil
}

func paymentNumber(at time.Time, id uuid.UUID) string {
	return fmt.Sprintf("PAY-%s-%s", at.UTC().Format("20060102"), strings.ToUpper(id.String()[:8]))
}
