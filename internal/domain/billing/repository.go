package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/utilitybill/backend/internal/domain/shared"
)

// ConnectionRepository persists connections
type ConnectionRepository interface {
	ConnectionReader
	Save(ctx context.Context, conn *Connection) error
}

// TariffPlanRepository persists tariff plans
type TariffPlanRepository interface {
	TariffPlanReader
	FindByID(ctx context.Context, id uuid.UUID) (*TariffPlan, error)
	Save(ctx context.Context, plan *TariffPlan) error
}

// MeterReadingFilter defines filtering options for meter reading queries
type MeterReadingFilter struct {
	shared.Filter
	ConnectionID *uuid.UUID
	Period       *BillingPeriod
	Billed       *bool
}

// MeterReadingRepository persists meter readings
type MeterReadingRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*MeterReading, error)
	// FindByIDForUpdate loads the reading and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*MeterReading, error)
	FindAll(ctx context.Context, filter MeterReadingFilter) ([]MeterReading, int64, error)
	// FindUnbilled lists unbilled readings of a period, optionally restricted to one utility type
	FindUnbilled(ctx context.Context, period BillingPeriod, utilityTypeID *uuid.UUID) ([]MeterReading, error)
	// FindLatestForConnection returns the most recent reading of a connection, or nil
	FindLatestForConnection(ctx context.Context, connectionID uuid.UUID) (*MeterReading, error)
	// ExistsUnbilled reports whether another unbilled reading exists for the connection and period
	ExistsUnbilled(ctx context.Context, connectionID uuid.UUID, period BillingPeriod, excludeID uuid.UUID) (bool, error)
	// Create inserts a new reading; a duplicate unbilled reading yields ErrDuplicateReading
	Create(ctx context.Context, reading *MeterReading) error
	// SaveWithLock updates the reading if its version has not changed since it was loaded
	SaveWithLock(ctx context.Context, reading *MeterReading) error
}

// BillFilter defines filtering options for bill queries
type BillFilter struct {
	shared.Filter
	Status       *BillStatus
	ConnectionID *uuid.UUID
	ConsumerID   *uuid.UUID
	Period       *BillingPeriod
}

// OverdueCandidate is the sort key of a bill considered by the overdue sweep
type OverdueCandidate struct {
	ID      uuid.UUID
	DueDate time.Time
}

// BillRepository persists bills
type BillRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	// FindByIDForUpdate loads the bill and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Bill, error)
	FindByMeterReadingID(ctx context.Context, readingID uuid.UUID) (*Bill, error)
	FindAll(ctx context.Context, filter BillFilter) ([]Bill, int64, error)
	// FindOverdueCandidates lists unpaid DUE bills with a due date before asOf,
	// ordered by due date then id and starting strictly after the cursor when one is given
	FindOverdueCandidates(ctx context.Context, asOf time.Time, after *OverdueCandidate, limit int) ([]OverdueCandidate, error)
	// Create inserts a new bill; a second bill for the same reading yields ErrAlreadyBilled
	Create(ctx context.Context, bill *Bill) error
	// SaveWithLock updates the bill if its version has not changed since it was loaded
	SaveWithLock(ctx context.Context, bill *Bill) error
	// Summarize aggregates bills, optionally restricted to one period
	Summarize(ctx context.Context, period *BillingPeriod) (*BillingSummary, error)
}

// PaymentRepository persists payments
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByBillID(ctx context.Context, billID uuid.UUID) ([]Payment, error)
	// FindByIdempotencyKey returns the payment recorded under key, or nil
	FindByIdempotencyKey(ctx context.Context, key string) (*Payment, error)
	// SumCompletedByBill returns the total of COMPLETED payments for a bill
	SumCompletedByBill(ctx context.Context, billID uuid.UUID) (decimal.Decimal, error)
	Create(ctx context.Context, payment *Payment) error
}
