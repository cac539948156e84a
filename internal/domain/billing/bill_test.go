package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/utilitybill/backend/internal/domain/shared"
)

// ============================================
// BillStatus Tests
// ============================================

func TestBillStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  BillStatus
		isValid bool
	}{
		{BillStatusDue, true},
		{BillStatusPaid, true},
		{BillStatusOverdue, true},
		{BillStatus("CANCELLED"), false},
		{BillStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestBillStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from    BillStatus
		to      BillStatus
		allowed bool
	}{
		{BillStatusDue, BillStatusPaid, true},
		{BillStatusDue, BillStatusOverdue, true},
		{BillStatusOverdue, BillStatusPaid, true},
		{BillStatusOverdue, BillStatusDue, false},
		{BillStatusPaid, BillStatusDue, false},
		{BillStatusPaid, BillStatusOverdue, false},
		{BillStatusDue, BillStatusDue, false},
		{BillStatus("BOGUS"), BillStatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

// ============================================
// Payment application Tests
// ============================================

func TestBill_ApplyPayment_FullPaymentMarksPaid(t *testing.T) {
	bill := createTestBill(t)
	paidAt := testBillDate.Add(48 * time.Hour)

	require.NoError(t, bill.ApplyPayment(dec("330"), paidAt))

	assert.Equal(t, BillStatusPaid, bill.Status)
	assertDecimal(t, "0", bill.OutstandingBalance())
	require.NotNil(t, bill.PaidAt)
	assert.Equal(t, paidAt, *bill.PaidAt)
	assert.Equal(t, 2, bill.Version)

	events := bill.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeBillPaid, events[0].EventType())
	assert.Equal(t, BillStatusDue, events[0].(*BillPaidEvent).PreviousStatus)
}

func TestBill_ApplyPayment_PartialKeepsDue(t *testing.T) {
	bill := createTestBill(t)

	require.NoError(t, bill.ApplyPayment(dec("100"), testBillDate))

	assert.Equal(t, BillStatusDue, bill.Status)
	assertDecimal(t, "100", bill.AmountPaid)
	assertDecimal(t, "230", bill.OutstandingBalance())
	assert.Nil(t, bill.PaidAt)
	assert.Empty(t, bill.GetDomainEvents())
}

func TestBill_ApplyPayment_OverPaymentRejected(t *testing.T) {
	bill := createTestBill(t)
	require.NoError(t, bill.ApplyPayment(dec("300"), testBillDate))

	err := bill.ApplyPayment(dec("30.01"), testBillDate)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOverPayment))
	assertDecimal(t, "300", bill.AmountPaid, "rejected payment must not change the bill")
	assert.Equal(t, BillStatusDue, bill.Status)

	var de *shared.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, bill.ID.String(), de.Details["bill_id"])
	assert.Equal(t, "30", de.Details["outstanding"])
}

func TestBill_ApplyPayment_AfterPaidIsOverPayment(t *testing.T) {
	bill := createTestBill(t)
	require.NoError(t, bill.ApplyPayment(dec("330"), testBillDate))

	err := bill.ApplyPayment(dec("0.01"), testBillDate)
	assert.True(t, errors.Is(err, ErrOverPayment))
	assertDecimal(t, "330", bill.AmountPaid)
}

func TestBill_ApplyPayment_NonPositiveAmount(t *testing.T) {
	bill := createTestBill(t)

	for _, amount := range []string{"0", "-10", "0.00001", "329.99996"} {
		err := bill.ApplyPayment(dec(amount), testBillDate)
		assert.True(t, errors.Is(err, shared.ErrInvalidAmount), amount)
	}
	assertDecimal(t, "0", bill.AmountPaid)
}

func TestBill_ApplyPayment_UnknownStatus(t *testing.T) {
	bill := createTestBill(t)
	bill.Status = BillStatus("VOID")

	err := bill.ApplyPayment(dec("1"), testBillDate)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
}

// ============================================
// Overdue Tests
// ============================================

func TestBill_MarkOverdue_AddsPenaltyOnce(t *testing.T) {
	bill := createTestBill(t)
	afterDue := bill.DueDate.Add(time.Hour)

	changed, err := bill.MarkOverdue(afterDue)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, BillStatusOverdue, bill.Status)
	assertDecimal(t, "25", bill.PenaltyAmount)
	assertDecimal(t, "355", bill.TotalAmount)
	require.NotNil(t, bill.OverdueAt)
	require.Len(t, bill.GetDomainEvents(), 1)
	assert.Equal(t, EventTypeBillOverdue, bill.GetDomainEvents()[0].EventType())

	changed, err = bill.MarkOverdue(afterDue.Add(24 * time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assertDecimal(t, "355", bill.TotalAmount)
	assertDecimal(t, "25", bill.PenaltyAmount)
	assert.Len(t, bill.GetDomainEvents(), 1)
	require.NoError(t, bill.CheckInvariants())
}

func TestBill_MarkOverdue_NotPastDue(t *testing.T) {
	bill := createTestBill(t)

	changed, err := bill.MarkOverdue(bill.DueDate)
	require.NoError(t, err)
	assert.False(t, changed, "a bill is overdue only strictly after its due date")
	assert.Equal(t, BillStatusDue, bill.Status)
}

func TestBill_MarkOverdue_PaidBillUntouched(t *testing.T) {
	bill := createTestBill(t)
	require.NoError(t, bill.ApplyPayment(dec("330"), testBillDate))

	changed, err := bill.MarkOverdue(bill.DueDate.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, BillStatusPaid, bill.Status)
	assertDecimal(t, "330", bill.TotalAmount)
}

func TestBill_MarkOverdue_PartiallyPaidStillGoesOverdue(t *testing.T) {
	bill := createTestBill(t)
	require.NoError(t, bill.ApplyPayment(dec("300"), testBillDate))

	changed, err := bill.MarkOverdue(bill.DueDate.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, changed)
	assertDecimal(t, "55", bill.OutstandingBalance())
}

func TestBill_OverdueThenPaid(t *testing.T) {
	bill := createTestBill(t)
	_, err := bill.MarkOverdue(bill.DueDate.Add(time.Hour))
	require.NoError(t, err)
	bill.ClearDomainEvents()

	err = bill.ApplyPayment(dec("330"), bill.DueDate.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, BillStatusOverdue, bill.Status, "penalty still outstanding")

	require.NoError(t, bill.ApplyPayment(dec("25"), bill.DueDate.Add(3*time.Hour)))
	assert.Equal(t, BillStatusPaid, bill.Status)
	assertDecimal(t, "0", bill.OutstandingBalance())

	events := bill.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, BillStatusOverdue, events[0].(*BillPaidEvent).PreviousStatus)
}

func TestBill_CheckInvariants(t *testing.T) {
	bill := createTestBill(t)
	require.NoError(t, bill.CheckInvariants())

	bill.TotalAmount = dec("331")
	assert.True(t, errors.Is(bill.CheckInvariants(), shared.ErrInvalidState))

	bill = createTestBill(t)
	bill.AmountPaid = dec("400")
	assert.True(t, errors.Is(bill.CheckInvariants(), shared.ErrInvalidState))

	bill = createTestBill(t)
	bill.Status = BillStatusPaid
	assert.True(t, errors.Is(bill.CheckInvariants(), shared.ErrInvalidState))
}
