package billing

import "github.com/shopspring/decimal"

// BillingSummary aggregates bills on demand; nothing here is stored
type BillingSummary struct {
	Period           *BillingPeriod       `json:"period,omitempty"`
	BillCount        int64                `json:"bill_count"`
	TotalBilled      decimal.Decimal      `json:"total_billed"`
	TotalPaid        decimal.Decimal      `json:"total_paid"`
	TotalOutstanding decimal.Decimal      `json:"total_outstanding"`
	TotalPenalties   decimal.Decimal      `json:"total_penalties"`
	CountByStatus    map[BillStatus]int64 `json:"count_by_status"`
}

// NewBillingSummary returns an empty summary with every status present
func NewBillingSummary(period *BillingPeriod) *BillingSummary {
	s := &BillingSummary{
		Period:           period,
		TotalBilled:      decimal.Zero,
		TotalPaid:        decimal.Zero,
		TotalOutstanding: decimal.Zero,
		TotalPenalties:   decimal.Zero,
		CountByStatus:    make(map[BillStatus]int64, len(AllBillStatuses())),
	}
	for _, st := range AllBillStatuses() {
		s.CountByStatus[st] = 0
	}
	return s
}

// Add folds an aggregated status bucket into the summary
func (s *BillingSummary) Add(status BillStatus, count int64, billed, paid, penalties decimal.Decimal) {
	s.BillCount += count
	s.CountByStatus[status] += count
	s.TotalBilled = s.TotalBilled.Add(billed)
	s.TotalPaid = s.TotalPaid.Add(paid)
	s.TotalPenalties = s.TotalPenalties.Add(penalties)
	s.TotalOutstanding = s.TotalBilled.Sub(s.TotalPaid)
}
