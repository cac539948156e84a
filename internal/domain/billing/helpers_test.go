package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBillDate = time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, dec(expected).Equal(actual), "expected %s, got %s %v", expected, actual.String(), msgAndArgs)
}

func createTestConnection(t *testing.T) *Connection {
	conn, err := NewConnection("CN-0001", uuid.New(), uuid.New())
	require.NoError(t, err)
	return conn
}

func createTestTariff(t *testing.T, conn *Connection) *TariffPlan {
	plan, err := NewTariffPlan(TariffPlanSpec{
		Name:               "Residential",
		UtilityTypeID:      conn.UtilityTypeID,
		RatePerUnit:        dec("5"),
		FixedCharge:        dec("50"),
		TaxPercentage:      dec("10"),
		LatePaymentPenalty: dec("25"),
		BillingCycleMonths: 1,
	})
	require.NoError(t, err)
	return plan
}

func createTestReading(t *testing.T, conn *Connection, previous, current string) *MeterReading {
	reading, err := NewMeterReading(
		conn.ID,
		BillingPeriod{Year: 2026, Month: 3},
		dec(previous),
		dec(current),
		time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return reading
}

// createTestBill composes the reference bill: 50 units at 5/unit, fixed 50, tax 10% => 330
func createTestBill(t *testing.T) *Bill {
	conn := createTestConnection(t)
	tariff := createTestTariff(t, conn)
	reading := createTestReading(t, conn, "100", "150")
	bill, err := NewBillComposer().Compose(reading, conn, tariff, testBillDate)
	require.NoError(t, err)
	bill.ClearDomainEvents()
	return bill
}
