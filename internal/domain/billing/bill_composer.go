package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/utilitybill/backend/internal/domain/shared"
)

// Composer defaults
const (
	DefaultGracePeriodDays  = 14
	DefaultBillNumberPrefix = "BILL"
	DefaultCurrencyScale    = 2
)

// BillComposer prices a meter reading under a tariff plan and issues a DUE bill
type BillComposer struct {
	gracePeriodDays int
	numberPrefix    string
	scale           int32
}

// ComposerOption configures a BillComposer
type ComposerOption func(*BillComposer)

// WithGracePeriodDays sets the days between bill date and due date
func WithGracePeriodDays(days int) ComposerOption {
	return func(c *BillComposer) {
		if days >= 0 {
			c.gracePeriodDays = days
		}
	}
}

// WithBillNumberPrefix sets the bill number prefix
func WithBillNumberPrefix(prefix string) ComposerOption {
	return func(c *BillComposer) {
		if prefix != "" {
			c.numberPrefix = prefix
		}
	}
}

// WithCurrencyScale sets the number of decimal places charges are rounded to.
// Values outside 0..StorageScale are ignored.
func WithCurrencyScale(scale int32) ComposerOption {
	return func(c *BillComposer) {
		if scale >= 0 && scale <= StorageScale {
			c.scale = scale
		}
	}
}

// NewBillComposer creates a new BillComposer
func NewBillComposer(opts ...ComposerOption) *BillComposer {
	c := &BillComposer{
		gracePeriodDays: DefaultGracePeriodDays,
		numberPrefix:    DefaultBillNumberPrefix,
		scale:           DefaultCurrencyScale,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GracePeriodDays returns the configured grace period
func (c *BillComposer) GracePeriodDays() int {
	return c.gracePeriodDays
}

// CurrencyScale is the number of decimal places bill amounts are rounded to
func (c *BillComposer) CurrencyScale() int32 {
	return c.scale
}

// Compose creates a DUE bill for the reading and marks the reading billed.
// The caller persists both in the same transaction.
//
//	energy = units * ratePerUnit
//	tax    = (energy + fixed) * taxPercentage / 100
//	total  = energy + fixed + tax
func (c *BillComposer) Compose(reading *MeterReading, conn *Connection, tariff *TariffPlan, billDate time.Time) (*Bill, error) {
	if reading.Billed {
		return nil, ErrAlreadyBilled.WithDetail("meter_reading_id", reading.ID.String())
	}
	if conn.ID != reading.ConnectionID {
		return nil, shared.ErrInvalidInput.
			WithDetail("meter_reading_id", reading.ID.String()).
			WithDetail("connection_id", conn.ID.String())
	}
	if err := tariff.Validate(); err != nil {
		return nil, err
	}
	if !tariff.Active || tariff.UtilityTypeID != conn.UtilityTypeID {
		return nil, ErrInvalidTariff.
			WithDetail("tariff_plan_id", tariff.ID.String()).
			WithDetail("connection_id", conn.ID.String())
	}

	units, err := reading.UnitsConsumed()
	if err != nil {
		return nil, err
	}

	energy := units.Mul(tariff.RatePerUnit).Round(c.scale)
	fixed := tariff.FixedCharge.Round(c.scale)
	tax := energy.Add(fixed).Mul(tariff.TaxPercentage).Div(hundred).Round(c.scale)

	bill := &Bill{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		ConnectionID:       conn.ID,
		ConsumerID:         conn.ConsumerID,
		TariffPlanID:       tariff.ID,
		MeterReadingID:     reading.ID,
		Period:             reading.Period,
		ServicePeriodStart: reading.Period.AddMonths(1 - tariff.BillingCycleMonths).Start(),
		ServicePeriodEnd:   reading.Period.End(),
		PreviousReading:    reading.PreviousReading,
		CurrentReading:     reading.CurrentReading,
		UnitsConsumed:      units,
		RatePerUnit:        tariff.RatePerUnit,
		EnergyCharge:       energy,
		FixedCharge:        fixed,
		TaxAmount:          tax,
		PenaltyAmount:      decimal.Zero,
		LatePaymentPenalty: tariff.LatePaymentPenalty.Round(c.scale),
		AmountPaid:         decimal.Zero,
		Status:             BillStatusDue,
		BillDate:           billDate,
		DueDate:            billDate.AddDate(0, 0, c.gracePeriodDays),
	}
	bill.CreatedAt = billDate
	bill.UpdatedAt = billDate
	bill.BillNumber = c.billNumber(reading.Period, bill.ID)
	bill.recomputeTotal()

	if err := reading.MarkBilled(bill.ID, billDate); err != nil {
		return nil, err
	}

	bill.AddDomainEvent(NewBillGeneratedEvent(bill))
	return bill, nil
}

func (c *BillComposer) billNumber(period BillingPeriod, id uuid.UUID) string {
	return fmt.Sprintf("%s-%s-%s", c.numberPrefix, period.Compact(), strings.ToUpper(id.String()[:8]))
}
