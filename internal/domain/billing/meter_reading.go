package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/utilitybill/backend/internal/domain/shared"
)

// MeterReading is the aggregate root for one meter reading of a connection
// in a billing period. It may be corrected while unbilled and is frozen once a
// bill references it.
type MeterReading struct {
	shared.BaseAggregateRoot
	ConnectionID    uuid.UUID       `json:"connection_id"`
	Period          BillingPeriod   `json:"period"`
	PreviousReading decimal.Decimal `json:"previous_reading"`
	CurrentReading  decimal.Decimal `json:"current_reading"`
	ReadingDate     time.Time       `json:"reading_date"`
	Billed          bool            `json:"billed"`
	BillID          *uuid.UUID      `json:"bill_id,omitempty"`
	BilledAt        *time.Time      `json:"billed_at,omitempty"`
}

// NewMeterReading records a new unbilled reading
func NewMeterReading(
	connectionID uuid.UUID,
	period BillingPeriod,
	previous decimal.Decimal,
	current decimal.Decimal,
	readingDate time.Time,
) (*MeterReading, error) {
	if connectionID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CONNECTION", "Connection ID cannot be empty")
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}
	if err := validateReadingValues(previous, current); err != nil {
		return nil, err
	}
	if readingDate.IsZero() {
		return nil, ErrInvalidReading.WithDetail("reading_date", "missing")
	}

	return &MeterReading{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ConnectionID:      connectionID,
		Period:            period,
		PreviousReading:   previous,
		CurrentReading:    current,
		ReadingDate:       readingDate,
	}, nil
}

func validateReadingValues(previous, current decimal.Decimal) error {
	if previous.IsNegative() {
		return ErrInvalidReading.WithDetail("previous_reading", previous.String())
	}
	if ExceedsScale(previous, StorageScale) {
		return ErrInvalidReading.
			WithDetail("previous_reading", previous.String()).
			WithDetail("max_decimal_places", StorageScale)
	}
	if ExceedsScale(current, StorageScale) {
		return ErrInvalidReading.
			WithDetail("current_reading", current.String()).
			WithDetail("max_decimal_places", StorageScale)
	}
	if _, err := CalculateConsumption(previous, current); err != nil {
		return err
	}
	return nil
}

// UnitsConsumed returns current minus previous
func (r *MeterReading) UnitsConsumed() (decimal.Decimal, error) {
	units, err := CalculateConsumption(r.PreviousReading, r.CurrentReading)
	if err != nil {
		return decimal.Zero, ErrNegativeConsumption.
			WithDetail("meter_reading_id", r.ID.String()).
			WithDetail("previous_reading", r.PreviousReading.String()).
			WithDetail("current_reading", r.CurrentReading.String())
	}
	return units, nil
}

// Correct replaces the reading values. Only unbilled readings can be corrected.
func (r *MeterReading) Correct(previous, current decimal.Decimal, readingDate time.Time) error {
	if r.Billed {
		return ErrAlreadyBilled.WithDetail("meter_reading_id", r.ID.String())
	}
	if err := validateReadingValues(previous, current); err != nil {
		return err
	}
	r.PreviousReading = previous
	r.CurrentReading = current
	if !readingDate.IsZero() {
		r.ReadingDate = readingDate
	}
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}

// MarkBilled links the reading to its bill. A reading can be billed once.
func (r *MeterReading) MarkBilled(billID uuid.UUID, at time.Time) error {
	if r.Billed {
		detail := ErrAlreadyBilled.WithDetail("meter_reading_id", r.ID.String())
		if r.BillID != nil {
			detail = detail.WithDetail("bill_id", r.BillID.String())
		}
		return detail
	}
	r.Billed = true
	r.BillID = &billID
	r.BilledAt = &at
	r.UpdatedAt = at
	r.IncrementVersion()
	return nil
}
