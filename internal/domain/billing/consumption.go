package billing

import "github.com/shopspring/decimal"

// StorageScale is the number of decimal places the amount and reading columns keep
const StorageScale int32 = 4

// ExceedsScale reports whether d carries more than scale decimal places
func ExceedsScale(d decimal.Decimal, scale int32) bool {
	return !d.Equal(d.Round(scale))
}

// CalculateConsumption returns the units consumed between two meter readings.
// Zero consumption is valid. Meter rollover is not supported: a current value
// below the previous one is always rejected.
func CalculateConsumption(previous, current decimal.Decimal) (decimal.Decimal, error) {
	if current.LessThan(previous) {
		return decimal.Zero, ErrNegativeConsumption.
			WithDetail("previous_reading", previous.String()).
			WithDetail("current_reading", current.String())
	}
	return current.Sub(previous), nil
}
