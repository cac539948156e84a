package billing

import (
	"fmt"
	"time"
)

// BillingPeriod identifies the calendar month a reading and its bill belong to
type BillingPeriod struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// NewBillingPeriod creates a validated billing period
func NewBillingPeriod(year, month int) (BillingPeriod, error) {
	p := BillingPeriod{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return BillingPeriod{}, err
	}
	return p, nil
}

// ParseBillingPeriod parses the YYYY-MM form produced by String
func ParseBillingPeriod(s string) (BillingPeriod, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return BillingPeriod{}, ErrInvalidPeriod.WithDetail("period", s).WithCause(err)
	}
	return NewBillingPeriod(t.Year(), int(t.Month()))
}

// PeriodOf returns the billing period containing t
func PeriodOf(t time.Time) BillingPeriod {
	return BillingPeriod{Year: t.Year(), Month: int(t.Month())}
}

// Validate checks month and year ranges
func (p BillingPeriod) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidPeriod.WithDetail("month", p.Month)
	}
	if p.Year < 1970 || p.Year > 9999 {
		return ErrInvalidPeriod.WithDetail("year", p.Year)
	}
	return nil
}

// String returns the period as YYYY-MM
func (p BillingPeriod) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Compact returns the period as YYYYMM, used in document numbers
func (p BillingPeriod) Compact() string {
	return fmt.Sprintf("%04d%02d", p.Year, p.Month)
}

// Start returns midnight UTC of the first day of the period
func (p BillingPeriod) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// End returns midnight UTC of the last day of the period
func (p BillingPeriod) End() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

// AddMonths returns the period shifted by n months
func (p BillingPeriod) AddMonths(n int) BillingPeriod {
	return PeriodOf(p.Start().AddDate(0, n, 0))
}

// Before reports whether p is earlier than other
func (p BillingPeriod) Before(other BillingPeriod) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// IsZero reports whether the period is unset
func (p BillingPeriod) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}
