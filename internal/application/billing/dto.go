package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/utilitybill/backend/internal/domain/billing"
)

// RecordMeterReadingRequest captures a new meter reading.
// PreviousReading defaults to the connection's latest current reading, or zero.
type RecordMeterReadingRequest struct {
	ConnectionID    uuid.UUID        `json:"connection_id" binding:"required"`
	Period          string           `json:"period" binding:"required,billing_period"`
	PreviousReading *decimal.Decimal `json:"previous_reading"`
	CurrentReading  *decimal.Decimal `json:"current_reading" binding:"required"`
	ReadingDate     *time.Time       `json:"reading_date"`
}

// CorrectMeterReadingRequest replaces the values of an unbilled reading
type CorrectMeterReadingRequest struct {
	PreviousReading *decimal.Decimal `json:"previous_reading"`
	CurrentReading  *decimal.Decimal `json:"current_reading" binding:"required"`
	ReadingDate     *time.Time       `json:"reading_date"`
}

// MeterReadingListFilter represents filter options for the reading list
type MeterReadingListFilter struct {
	ConnectionID *uuid.UUID
	Period       string
	Unbilled     *bool
	Page         int
	PageSize     int
	OrderBy      string
	OrderDir     string
}

// MeterReadingResponse represents a meter reading in API responses
type MeterReadingResponse struct {
	ID              uuid.UUID       `json:"id"`
	ConnectionID    uuid.UUID       `json:"connection_id"`
	Period          string          `json:"period"`
	PreviousReading decimal.Decimal `json:"previous_reading"`
	CurrentReading  decimal.Decimal `json:"current_reading"`
	UnitsConsumed   decimal.Decimal `json:"units_consumed"`
	ReadingDate     time.Time       `json:"reading_date"`
	Billed          bool            `json:"billed"`
	BillID          *uuid.UUID      `json:"bill_id,omitempty"`
	BilledAt        *time.Time      `json:"billed_at,omitempty"`
	Version         int             `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ToMeterReadingResponse converts a domain MeterReading to a response
func ToMeterReadingResponse(r *billing.MeterReading) MeterReadingResponse {
	units, err := r.UnitsConsumed()
	if err != nil {
		units = decimal.Zero
	}
	return MeterReadingResponse{
		ID:              r.ID,
		ConnectionID:    r.ConnectionID,
		Period:          r.Period.String(),
		PreviousReading: r.PreviousReading,
		CurrentReading:  r.CurrentReading,
		UnitsConsumed:   units,
		ReadingDate:     r.ReadingDate,
		Billed:          r.Billed,
		BillID:          r.BillID,
		BilledAt:        r.BilledAt,
		Version:         r.Version,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// BillResponse represents a bill in API responses
type BillResponse struct {
	ID                 uuid.UUID          `json:"id"`
	BillNumber         string             `json:"bill_number"`
	ConnectionID       uuid.UUID          `json:"connection_id"`
	ConsumerID         uuid.UUID          `json:"consumer_id"`
	TariffPlanID       uuid.UUID          `json:"tariff_plan_id"`
	MeterReadingID     uuid.UUID          `json:"meter_reading_id"`
	Period             string             `json:"period"`
	ServicePeriodStart time.Time          `json:"service_period_start"`
	ServicePeriodEnd   time.Time          `json:"service_period_end"`
	PreviousReading    decimal.Decimal    `json:"previous_reading"`
	CurrentReading     decimal.Decimal    `json:"current_reading"`
	UnitsConsumed      decimal.Decimal    `json:"units_consumed"`
	RatePerUnit        decimal.Decimal    `json:"rate_per_unit"`
	EnergyCharge       decimal.Decimal    `json:"energy_charge"`
	FixedCharge        decimal.Decimal    `json:"fixed_charge"`
	TaxAmount          decimal.Decimal    `json:"tax_amount"`
	PenaltyAmount      decimal.Decimal    `json:"penalty_amount"`
	TotalAmount        decimal.Decimal    `json:"total_amount"`
	AmountPaid         decimal.Decimal    `json:"amount_paid"`
	OutstandingBalance decimal.Decimal    `json:"outstanding_balance"`
	Status             billing.BillStatus `json:"status"`
	BillDate           time.Time          `json:"bill_date"`
	DueDate            time.Time          `json:"due_date"`
	PaidAt             *time.Time         `json:"paid_at,omitempty"`
	OverdueAt          *time.Time         `json:"overdue_at,omitempty"`
	Version            int                `json:"version"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// ToBillResponse converts a domain Bill to a response
func ToBillResponse(b *billing.Bill) BillResponse {
	return BillResponse{
		ID:                 b.ID,
		BillNumber:         b.BillNumber,
		ConnectionID:       b.ConnectionID,
		ConsumerID:         b.ConsumerID,
		TariffPlanID:       b.TariffPlanID,
		MeterReadingID:     b.MeterReadingID,
		Period:             b.Period.String(),
		ServicePeriodStart: b.ServicePeriodStart,
		ServicePeriodEnd:   b.ServicePeriodEnd,
		PreviousReading:    b.PreviousReading,
		CurrentReading:     b.CurrentReading,
		UnitsConsumed:      b.UnitsConsumed,
		RatePerUnit:        b.RatePerUnit,
		EnergyCharge:       b.EnergyCharge,
		FixedCharge:        b.FixedCharge,
		TaxAmount:          b.TaxAmount,
		PenaltyAmount:      b.PenaltyAmount,
		TotalAmount:        b.TotalAmount,
		AmountPaid:         b.AmountPaid,
		OutstandingBalance: b.OutstandingBalance(),
		Status:             b.Status,
		BillDate:           b.BillDate,
		DueDate:            b.DueDate,
		PaidAt:             b.PaidAt,
		OverdueAt:          b.OverdueAt,
		Version:            b.Version,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

// BillListFilter represents filter options for the bill list
type BillListFilter struct {
	Status       string
	ConnectionID *uuid.UUID
	ConsumerID   *uuid.UUID
	Period       string
	Page         int
	PageSize     int
	OrderBy      string
	OrderDir     string
}

// BillingCycle identifies the set of unbilled readings a bulk run covers
type BillingCycle struct {
	Period        billing.BillingPeriod
	UtilityTypeID *uuid.UUID
	// BillDate defaults to the current time
	BillDate time.Time
}

// Bulk failure codes that are not domain error codes
const (
	FailureCodeCancelled = "CANCELLED"
	FailureCodeInternal  = "INTERNAL_ERROR"
)

// BulkFailure describes one reading the bulk run could not bill
type BulkFailure struct {
	MeterReadingID uuid.UUID `json:"meter_reading_id"`
	ConnectionID   uuid.UUID `json:"connection_id"`
	Code           string    `json:"code"`
	CauseCode      string    `json:"cause_code,omitempty"`
	Reason         string    `json:"reason"`
}

// BulkGenerationResult lists the bills generated by a bulk run and the per-reading failures
type BulkGenerationResult struct {
	Period    string         `json:"period"`
	Attempted int            `json:"attempted"`
	Bills     []BillResponse `json:"bills"`
	Failures  []BulkFailure  `json:"failures"`
}

// ApplyPaymentRequest represents a payment against a bill.
// BillID comes from the path and IdempotencyKey from the Idempotency-Key header.
type ApplyPaymentRequest struct {
	BillID         uuid.UUID        `json:"-"`
	Amount         *decimal.Decimal `json:"amount" binding:"required"`
	Method         string           `json:"method" binding:"required,oneof=CASH CARD BANK_TRANSFER ONLINE CHEQUE"`
	Reference      string           `json:"reference" binding:"max=100"`
	PaymentDate    *time.Time       `json:"payment_date"`
	IdempotencyKey string           `json:"-"`
}

// PaymentResponse represents a recorded payment and the bill it was applied to
type PaymentResponse struct {
	ID             uuid.UUID             `json:"id"`
	PaymentNumber  string                `json:"payment_number"`
	BillID         uuid.UUID             `json:"bill_id"`
	Amount         decimal.Decimal       `json:"amount"`
	Method         billing.PaymentMethod `json:"method"`
	Status         billing.PaymentStatus `json:"status"`
	PaymentDate    time.Time             `json:"payment_date"`
	Reference      string                `json:"reference,omitempty"`
	IdempotencyKey string                `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	// Replayed is true when the idempotency key matched an earlier payment
	Replayed bool          `json:"replayed"`
	Bill     *BillResponse `json:"bill,omitempty"`
}

// ToPaymentResponse converts a domain Payment to a response
func ToPaymentResponse(p *billing.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID,
		PaymentNumber:  p.PaymentNumber,
		BillID:         p.BillID,
		Amount:         p.Amount,
		Method:         p.Method,
		Status:         p.Status,
		PaymentDate:    p.PaymentDate,
		Reference:      p.Reference,
		IdempotencyKey: p.IdempotencyKey,
		CreatedAt:      p.CreatedAt,
	}
}

// SweepFailure describes a bill the overdue sweep could not transition
type SweepFailure struct {
	BillID uuid.UUID `json:"bill_id"`
	Code   string    `json:"code"`
	Reason string    `json:"reason"`
}

// SweepResult reports one overdue sweep
type SweepResult struct {
	AsOf         time.Time      `json:"as_of"`
	Examined     int            `json:"examined"`
	Transitioned int            `json:"transitioned"`
	Failures     []SweepFailure `json:"failures"`
}

// TariffPlanResponse represents a tariff plan in API responses
type TariffPlanResponse struct {
	ID                 uuid.UUID       `json:"id"`
	Name               string          `json:"name"`
	UtilityTypeID      uuid.UUID       `json:"utility_type_id"`
	RatePerUnit        decimal.Decimal `json:"rate_per_unit"`
	FixedCharge        decimal.Decimal `json:"fixed_charge"`
	TaxPercentage      decimal.Decimal `json:"tax_percentage"`
	LatePaymentPenalty decimal.Decimal `json:"late_payment_penalty"`
	BillingCycleMonths int             `json:"billing_cycle_months"`
	Active             bool            `json:"active"`
}

// TariffResolutionResponse is the tariff that applies to a connection
type TariffResolutionResponse struct {
	ConnectionID     uuid.UUID          `json:"connection_id"`
	ConnectionNumber string             `json:"connection_number"`
	UtilityTypeID    uuid.UUID          `json:"utility_type_id"`
	TariffPlan       TariffPlanResponse `json:"tariff_plan"`
}

// ToTariffPlanResponse converts a domain TariffPlan to a response
func ToTariffPlanResponse(t *billing.TariffPlan) TariffPlanResponse {
	return TariffPlanResponse{
		ID:                 t.ID,
		Name:               t.Name,
		UtilityTypeID:      t.UtilityTypeID,
		RatePerUnit:        t.RatePerUnit,
		FixedCharge:        t.FixedCharge,
		TaxPercentage:      t.TaxPercentage,
		LatePaymentPenalty: t.LatePaymentPenalty,
		BillingCycleMonths: t.BillingCycleMonths,
		Active:             t.Active,
	}
}

// BillingSummaryResponse represents aggregated billing totals
type BillingSummaryResponse struct {
	Period           string           `json:"period,omitempty"`
	BillCount        int64            `json:"bill_count"`
	TotalBilled      decimal.Decimal  `json:"total_billed"`
	TotalPaid        decimal.Decimal  `json:"total_paid"`
	TotalOutstanding decimal.Decimal  `json:"total_outstanding"`
	TotalPenalties   decimal.Decimal  `json:"total_penalties"`
	CountByStatus    map[string]int64 `json:"count_by_status"`
}

// ToBillingSummaryResponse converts a domain BillingSummary to a response
func ToBillingSummaryResponse(s *billing.BillingSummary) BillingSummaryResponse {
	resp := BillingSummaryResponse{
		BillCount:        s.BillCount,
		TotalBilled:      s.TotalBilled,
		TotalPaid:        s.TotalPaid,
		TotalOutstanding: s.TotalOutstanding,
		TotalPenalties:   s.TotalPenalties,
		CountByStatus:    make(map[string]int64, len(s.CountByStatus)),
	}
	if s.Period != nil {
		resp.Period = s.Period.String()
	}
	for status, count := range s.CountByStatus {
		resp.CountByStatus[status.String()] = count
	}
	return resp
}
