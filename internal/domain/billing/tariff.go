package billing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/utilitybill/backend/internal/domain/shared"
)

var hundred = decimal.NewFromInt(100)

// TariffPlan prices consumption for one utility type.
// It is owned by the tariff management collaborator and read-only here.
type TariffPlan struct {
	shared.BaseEntity
	Name               string          `json:"name"`
	UtilityTypeID      uuid.UUID       `json:"utility_type_id"`
	RatePerUnit        decimal.Decimal `json:"rate_per_unit"`
	FixedCharge        decimal.Decimal `json:"fixed_charge"`
	TaxPercentage      decimal.Decimal `json:"tax_percentage"`
	LatePaymentPenalty decimal.Decimal `json:"late_payment_penalty"` // flat amount added once when a bill goes overdue
	BillingCycleMonths int             `json:"billing_cycle_months"` // 1, 2 or 3
	Active             bool            `json:"active"`
}

// TariffPlanSpec carries the pricing inputs of a new plan
type TariffPlanSpec struct {
	Name               string
	UtilityTypeID      uuid.UUID
	RatePerUnit        decimal.Decimal
	FixedCharge        decimal.Decimal
	TaxPercentage      decimal.Decimal
	LatePaymentPenalty decimal.Decimal
	BillingCycleMonths int
}

// NewTariffPlan creates an active tariff plan
func NewTariffPlan(spec TariffPlanSpec) (*TariffPlan, error) {
	plan := &TariffPlan{
		BaseEntity:         shared.NewBaseEntity(),
		Name:               spec.Name,
		UtilityTypeID:      spec.UtilityTypeID,
		RatePerUnit:        spec.RatePerUnit,
		FixedCharge:        spec.FixedCharge,
		TaxPercentage:      spec.TaxPercentage,
		LatePaymentPenalty: spec.LatePaymentPenalty,
		BillingCycleMonths: spec.BillingCycleMonths,
		Active:             true,
	}
	if plan.BillingCycleMonths == 0 {
		plan.BillingCycleMonths = 1
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

// Validate checks that the plan can price a bill
func (t *TariffPlan) Validate() error {
	invalid := func(field string, value any) error {
		return ErrInvalidTariff.WithDetail("tariff_plan_id", t.ID.String()).WithDetail(field, value)
	}
	if t.Name == "" {
		return invalid("name", t.Name)
	}
	if t.UtilityTypeID == uuid.Nil {
		return invalid("utility_type_id", t.UtilityTypeID.String())
	}
	if t.RatePerUnit.IsNegative() {
		return invalid("rate_per_unit", t.RatePerUnit.String())
	}
	if t.FixedCharge.IsNegative() {
		return invalid("fixed_charge", t.FixedCharge.String())
	}
	if t.TaxPercentage.IsNegative() || t.TaxPercentage.GreaterThan(hundred) {
		return invalid("tax_percentage", t.TaxPercentage.String())
	}
	if t.LatePaymentPenalty.IsNegative() {
		return invalid("late_payment_penalty", t.LatePaymentPenalty.String())
	}
	switch t.BillingCycleMonths {
	case 1, 2, 3:
	default:
		return invalid("billing_cycle_months", t.BillingCycleMonths)
	}
	return nil
}

// Deactivate takes the plan out of tariff resolution
func (t *TariffPlan) Deactivate() {
	t.Active = false
}

// String returns a short human-readable description
func (t *TariffPlan) String() string {
	return fmt.Sprintf("%s (%s/unit, fixed %s, tax %s%%)", t.Name, t.RatePerUnit, t.FixedCharge, t.TaxPercentage)
}
