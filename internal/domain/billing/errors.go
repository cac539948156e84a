package billing

import "github.com/utilitybill/backend/internal/domain/shared"

// Billing domain errors. Callers match them with errors.Is; each returned
// instance carries the offending ids and values in Details.
var (
	ErrNegativeConsumption = shared.NewDomainError("NEGATIVE_CONSUMPTION", "Current reading is lower than previous reading")
	ErrAlreadyBilled       = shared.NewDomainError("ALREADY_BILLED", "Meter reading has already been billed")
	ErrOverPayment         = shared.NewDomainError("OVER_PAYMENT", "Payment amount exceeds outstanding balance")
	ErrNoActiveTariff      = shared.NewDomainError("NO_ACTIVE_TARIFF", "No active tariff plan for utility type")
	ErrAmbiguousTariff     = shared.NewDomainError("AMBIGUOUS_TARIFF", "More than one active tariff plan for utility type")
	ErrInvalidTariff       = shared.NewDomainError("INVALID_TARIFF", "Tariff plan cannot be used for billing")
	ErrDuplicateReading    = shared.NewDomainError("DUPLICATE_READING", "An unbilled reading already exists for this connection and period")
	ErrInvalidPeriod       = shared.NewDomainError("INVALID_PERIOD", "Billing period is not valid")
	ErrInvalidReading      = shared.NewDomainError("INVALID_READING", "Meter reading value is not valid")
	ErrConnectionInactive  = shared.NewDomainError("CONNECTION_INACTIVE", "Connection is not active")

	ErrBillNotFound       = shared.NewDomainError("BILL_NOT_FOUND", "Bill not found")
	ErrReadingNotFound    = shared.NewDomainError("READING_NOT_FOUND", "Meter reading not found")
	ErrConnectionNotFound = shared.NewDomainError("CONNECTION_NOT_FOUND", "Connection not found")
	ErrTariffNotFound     = shared.NewDomainError("TARIFF_NOT_FOUND", "Tariff plan not found")
	ErrPaymentNotFound    = shared.NewDomainError("PAYMENT_NOT_FOUND", "Payment not found")
)
