package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	for input, want := range map[string]string{
		"":           "DESC",
		"asc":        "ASC",
		"  Asc ":     "ASC",
		"desc":       "DESC",
		"ascending":  "DESC",
		"ASC; --":    "DESC",
		"ASC NULLS ": "DESC",
	} {
		assert.Equal(t, want, ValidateSortOrder(input), "input %q", input)
	}
}

func TestValidateSortField_Bills(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"due_date", "due_date"},
		{" total_amount ", "total_amount"},
		{"status", "status"},
		{"", "created_at"},
		{"DUE_DATE", "created_at"},
		{"amount_paid", "created_at"},
		{"due_date desc", "created_at"},
		{"due_date; DELETE FROM bills", "created_at"},
		{"(SELECT idempotency_key FROM payments)", "created_at"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidateSortField(tt.input, BillSortFields, "created_at"), "input %q", tt.input)
	}
}

func TestValidateSortField_MeterReadings(t *testing.T) {
	assert.Equal(t, "reading_date", ValidateSortField("reading_date", MeterReadingSortFields, "created_at"))
	assert.Equal(t, "period_month", ValidateSortField("period_month", MeterReadingSortFields, "created_at"))
	// bill columns are not reading columns
	assert.Equal(t, "created_at", ValidateSortField("due_date", MeterReadingSortFields, "created_at"))
	assert.Equal(t, "", ValidateSortField("units", MeterReadingSortFields, ""))
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "due_date ASC", orderClause("due_date", "asc", BillSortFields, "created_at"))
	assert.Equal(t, "created_at DESC", orderClause("customer_password", "", BillSortFields, "created_at"))
	assert.Equal(t, "period_year DESC", orderClause("period_year", "sideways", MeterReadingSortFields, "created_at"))
}
