package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/utilitybill/backend/internal/domain/billing"
)

// ConnectionModel is the persistence model for a Connection
type ConnectionModel struct {
	BaseModel
	ConnectionNumber string    `gorm:"type:varchar(50);not null;uniqueIndex"`
	ConsumerID       uuid.UUID `gorm:"type:uuid;not null;index"`
	UtilityTypeID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Active           bool      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ConnectionModel) TableName() string {
	return "connections"
}

// ToDomain converts the persistence model to a domain Connection
func (m *ConnectionModel) ToDomain() *billing.Connection {
	return &billing.Connection{
		BaseEntity:       m.BaseModel.ToDomain(),
		ConnectionNumber: m.ConnectionNumber,
		ConsumerID:       m.ConsumerID,
		UtilityTypeID:    m.UtilityTypeID,
		Active:           m.Active,
	}
}

// ConnectionModelFromDomain creates a persistence model from a domain Connection
func ConnectionModelFromDomain(c *billing.Connection) *ConnectionModel {
	m := &ConnectionModel{
		ConnectionNumber: c.ConnectionNumber,
		ConsumerID:       c.ConsumerID,
		UtilityTypeID:    c.UtilityTypeID,
		Active:           c.Active,
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	return m
}

// TariffPlanModel is the persistence model for a TariffPlan
type TariffPlanModel struct {
	BaseModel
	Name               string          `gorm:"type:varchar(100);not null"`
	UtilityTypeID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_tariff_utility_active,priority:1"`
	RatePerUnit        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	FixedCharge        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxPercentage      decimal.Decimal `gorm:"type:decimal(7,4);not null"`
	LatePaymentPenalty decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BillingCycleMonths int             `gorm:"not null;default:1"`
	Active             bool            `gorm:"not null;index:idx_tariff_utility_active,priority:2"`
}

// TableName returns the table name for GORM
func (TariffPlanModel) TableName() string {
	return "tariff_plans"
}

// ToDomain converts the persistence model to a domain TariffPlan
func (m *TariffPlanModel) ToDomain() *billing.TariffPlan {
	return &billing.TariffPlan{
		BaseEntity:         m.BaseModel.ToDomain(),
		Name:               m.Name,
		UtilityTypeID:      m.UtilityTypeID,
		RatePerUnit:        m.RatePerUnit,
		FixedCharge:        m.FixedCharge,
		TaxPercentage:      m.TaxPercentage,
		LatePaymentPenalty: m.LatePaymentPenalty,
		BillingCycleMonths: m.BillingCycleMonths,
		Active:             m.Active,
	}
}

// TariffPlanModelFromDomain creates a persistence model from a domain TariffPlan
func TariffPlanModelFromDomain(p *billing.TariffPlan) *TariffPlanModel {
	m := &TariffPlanModel{
		Name:               p.Name,
		UtilityTypeID:      p.UtilityTypeID,
		RatePerUnit:        p.RatePerUnit,
		FixedCharge:        p.FixedCharge,
		TaxPercentage:      p.TaxPercentage,
		LatePaymentPenalty: p.LatePaymentPenalty,
		BillingCycleMonths: p.BillingCycleMonths,
		Active:             p.Active,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}

// MeterReadingModel is the persistence model for the MeterReading aggregate root.
// idx_reading_unbilled_period keeps a single unbilled reading per connection and period.
type MeterReadingModel struct {
	AggregateModel
	ConnectionID    uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_reading_unbilled_period,priority:1,where:billed = false"`
	PeriodYear      int             `gorm:"not null;index:idx_reading_period,priority:1;uniqueIndex:idx_reading_unbilled_period,priority:2,where:billed = false"`
	PeriodMonth     int             `gorm:"not null;index:idx_reading_period,priority:2;uniqueIndex:idx_reading_unbilled_period,priority:3,where:billed = false"`
	PreviousReading decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CurrentReading  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReadingDate     time.Time       `gorm:"not null"`
	Billed          bool            `gorm:"not null;index"`
	BillID          *uuid.UUID      `gorm:"type:uuid"`
	BilledAt        *time.Time
}

// TableName returns the table name for GORM
func (MeterReadingModel) TableName() string {
	return "meter_readings"
}

// ToDomain converts the persistence model to a domain MeterReading
func (m *MeterReadingModel) ToDomain() *billing.MeterReading {
	return &billing.MeterReading{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		ConnectionID:      m.ConnectionID,
		Period:            billing.BillingPeriod{Year: m.PeriodYear, Month: m.PeriodMonth},
		PreviousReading:   m.PreviousReading,
		CurrentReading:    m.CurrentReading,
		ReadingDate:       m.ReadingDate,
		Billed:            m.Billed,
		BillID:            m.BillID,
		BilledAt:          m.BilledAt,
	}
}

// MeterReadingModelFromDomain creates a persistence model from a domain MeterReading
func MeterReadingModelFromDomain(r *billing.MeterReading) *MeterReadingModel {
	m := &MeterReadingModel{
		ConnectionID:    r.ConnectionID,
		PeriodYear:      r.Period.Year,
		PeriodMonth:     r.Period.Month,
		PreviousReading: r.PreviousReading,
		CurrentReading:  r.CurrentReading,
		ReadingDate:     r.ReadingDate,
		Billed:          r.Billed,
		BillID:          r.BillID,
		BilledAt:        r.BilledAt,
	}
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	return m
}

// BillModel is the persistence model for the Bill aggregate root
type BillModel struct {
	AggregateModel
	BillNumber         string             `gorm:"type:varchar(50);not null;uniqueIndex"`
	ConnectionID       uuid.UUID          `gorm:"type:uuid;not null;index"`
	ConsumerID         uuid.UUID          `gorm:"type:uuid;not null;index"`
	TariffPlanID       uuid.UUID          `gorm:"type:uuid;not null"`
	MeterReadingID     uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex"`
	PeriodYear         int                `gorm:"not null;index:idx_bill_period,priority:1"`
	PeriodMonth        int                `gorm:"not null;index:idx_bill_period,priority:2"`
	ServicePeriodStart time.Time          `gorm:"not null"`
	ServicePeriodEnd   time.Time          `gorm:"not null"`
	PreviousReading    decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	CurrentReading     decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	UnitsConsumed      decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	RatePerUnit        decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	EnergyCharge       decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	FixedCharge        decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	TaxAmount          decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	PenaltyAmount      decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	LatePaymentPenalty decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	TotalAmount        decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	AmountPaid         decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	Status             billing.BillStatus `gorm:"type:varchar(20);not null;default:'DUE';index:idx_bill_status_due,priority:1"`
	BillDate           time.Time          `gorm:"not null"`
	DueDate            time.Time          `gorm:"not null;index:idx_bill_status_due,priority:2"`
	PaidAt             *time.Time
	OverdueAt          *time.Time
}

// TableName returns the table name for GORM
func (BillModel) TableName() string {
	return "bills"
}

// ToDomain converts the persistence model to a domain Bill
func (m *BillModel) ToDomain() *billing.Bill {
	return &billing.Bill{
		BaseAggregateRoot:  m.ToDomainAggregateRoot(),
		BillNumber:         m.BillNumber,
		ConnectionID:       m.ConnectionID,
		ConsumerID:         m.ConsumerID,
		TariffPlanID:       m.TariffPlanID,
		MeterReadingID:     m.MeterReadingID,
		Period:             billing.BillingPeriod{Year: m.PeriodYear, Month: m.PeriodMonth},
		ServicePeriodStart: m.ServicePeriodStart,
		ServicePeriodEnd:   m.ServicePeriodEnd,
		PreviousReading:    m.PreviousReading,
		CurrentReading:     m.CurrentReading,
		UnitsConsumed:      m.UnitsConsumed,
		RatePerUnit:        m.RatePerUnit,
		EnergyCharge:       m.EnergyCharge,
		FixedCharge:        m.FixedCharge,
		TaxAmount:          m.TaxAmount,
		PenaltyAmount:      m.PenaltyAmount,
		LatePaymentPenalty: m.LatePaymentPenalty,
		TotalAmount:        m.TotalAmount,
		AmountPaid:         m.AmountPaid,
		Status:             m.Status,
		BillDate:           m.BillDate,
		DueDate:            m.DueDate,
		PaidAt:             m.PaidAt,
		OverdueAt:          m.OverdueAt,
	}
}

// BillModelFromDomain creates a persistence model from a domain Bill
func BillModelFromDomain(b *billing.Bill) *BillModel {
	m := &BillModel{
		BillNumber:         b.BillNumber,
		ConnectionID:       b.ConnectionID,
		ConsumerID:         b.ConsumerID,
		TariffPlanID:       b.TariffPlanID,
		MeterReadingID:     b.MeterReadingID,
		PeriodYear:         b.Period.Year,
		PeriodMonth:        b.Period.Month,
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
		LatePaymentPenalty: b.LatePaymentPenalty,
		TotalAmount:        b.TotalAmount,
		AmountPaid:         b.AmountPaid,
		Status:             b.Status,
		BillDate:           b.BillDate,
		DueDate:            b.DueDate,
		PaidAt:             b.PaidAt,
		OverdueAt:          b.OverdueAt,
	}
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	return m
}

// PaymentModel is the persistence model for a Payment
type PaymentModel struct {
	BaseModel
	PaymentNumber  string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	BillID         uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount         decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Method         billing.PaymentMethod `gorm:"type:varchar(20);not null"`
	Status         billing.PaymentStatus `gorm:"type:varchar(20);not null;index"`
	PaymentDate    time.Time             `gorm:"not null"`
	Reference      string                `gorm:"type:varchar(100)"`
	IdempotencyKey *string               `gorm:"type:varchar(128);uniqueIndex"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *billing.Payment {
	p := &billing.Payment{
		BaseEntity:    m.BaseModel.ToDomain(),
		PaymentNumber: m.PaymentNumber,
		BillID:        m.BillID,
		Amount:        m.Amount,
		Method:        m.Method,
		Status:        m.Status,
		PaymentDate:   m.PaymentDate,
		Reference:     m.Reference,
	}
	if m.IdempotencyKey != nil {
		p.IdempotencyKey = *m.IdempotencyKey
	}
	return p
}

// PaymentModelFromDomain creates a persistence model from a domain Payment.
// An empty idempotency key is stored as NULL so the unique index ignores it.
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{
		PaymentNumber: p.PaymentNumber,
		BillID:        p.BillID,
		Amount:        p.Amount,
		Method:        p.Method,
		Status:        p.Status,
		PaymentDate:   p.PaymentDate,
		Reference:     p.Reference,
	}
	if p.IdempotencyKey != "" {
		key := p.IdempotencyKey
		m.IdempotencyKey = &key
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}

// AllModels lists every billing model, in dependency order
func AllModels() []any {
	return []any{
		&ConnectionModel{},
		&TariffPlanModel{},
		&MeterReadingModel{},
		&BillModel{},
		&PaymentModel{},
	}
}
