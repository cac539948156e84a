package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appbilling "github.com/utilitybill/backend/internal/application/billing"
	"github.com/utilitybill/backend/internal/domain/billing"
	"github.com/utilitybill/backend/internal/infrastructure/persistence/models"
	"github.com/utilitybill/backend/tests/testutil"
	"gorm.io/gorm"
)

func TestSweepOverdue_AddsPenaltyOnce(t *testing.T) {
	env := newServiceEnv(t)
	bill := env.seedBilledScenario(t)
	asOf := bill.DueDate.AddDate(0, 0, 1)

	result, err := env.svc.SweepOverdue(t.Context(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Examined)
	assert.Equal(t, 1, result.Transitioned)
	assert.Empty(t, result.Failures)

	stored, err := env.svc.GetBill(t.Context(), bill.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.BillStatusOverdue, stored.Status)
	testutil.RequireDecimalEqual(t, "25", stored.PenaltyAmount)
	testutil.RequireDecimalEqual(t, "355", stored.TotalAmount)
	require.NotNil(t, stored.OverdueAt)

	again, err := env.svc.SweepOverdue(t.Context(), asOf.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Zero(t, again.Examined)
	assert.Zero(t, again.Transitioned)

	stored, err = env.svc.GetBill(t.Context(), bill.ID)
	require.NoError(t, err)
	testutil.RequireDecimalEqual(t, "355", stored.TotalAmount)

	assert.Equal(t, []string{billing.EventTypeBillGenerated, billing.EventTypeBillOverdue}, env.publisher.EventTypes())
}

func TestSweepOverdue_LeavesBillsWithinGracePeriod(t *testing.T) {
	env := newServiceEnv(t)
	bill := env.seedBilledScenario(t)

	result, err := env.svc.SweepOverdue(t.Context(), bill.DueDate)
	require.NoError(t, err)

	assert.Zero(t, result.Transitioned)
	stored, err := env.svc.GetBill(t.Context(), bill.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.BillStatusDue, stored.Status)
}

func TestSweepOverdue_SkipsPaidBills(t *testing.T) {
	env := newServiceEnv(t)
	bill := env.seedBilledScenario(t)
	_, err := env.pay(t, bill.ID, "330", "")
	require.NoError(t, err)

	result, err := env.svc.SweepOverdue(t.Context(), bill.DueDate.AddDate(0, 1, 0))
	require.NoError(t, err)

	assert.Zero(t, result.Transitioned)
	stored, err := env.svc.GetBill(t.Context(), bill.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.BillStatusPaid, stored.Status)
	testutil.RequireDecimalEqual(t, "330", stored.TotalAmount)
}

func TestSweepOverdue_WalksEveryBatch(t *testing.T) {
	env := newServiceEnv(t, appbilling.WithSweepBatchSize(2))
	var bills []*appbilling.BillResponse
	for range 5 {
		bills = append(bills, env.seedBilledScenario(t))
	}

	result, err := env.svc.SweepOverdue(t.Context(), bills[0].DueDate.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, 5, result.Examined)
	assert.Equal(t, 5, result.Transitioned)

	overdue := string(billing.BillStatusOverdue)
	_, total, err := env.svc.ListBills(t.Context(), appbilling.BillListFilter{Status: overdue})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
}

func TestSweepOverdue_SettledDueBillDoesNotBlockLaterBills(t *testing.T) {
	env := newServiceEnv(t, appbilling.WithSweepBatchSize(1))
	settled := env.seedBilledScenario(t)
	pending := env.seedBilledScenario(t)

	// fully paid but still marked DUE, and first in due date order
	require.NoError(t, env.db.Model(&models.BillModel{}).
		Where("id = ?", settled.ID).
		Updates(map[string]any{
			"amount_paid": gorm.Expr("total_amount"),
			"due_date":    settled.DueDate.AddDate(0, 0, -10),
		}).Error)

	result, err := env.svc.SweepOverdue(t.Context(), pending.DueDate.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Examined)
	assert.Equal(t, 1, result.Transitioned)
	assert.Empty(t, result.Failures)

	stored, err := env.svc.GetBill(t.Context(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.BillStatusOverdue, stored.Status)

	stored, err = env.svc.GetBill(t.Context(), settled.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.BillStatusDue, stored.Status)
}

func TestSweepOverdue_StopsOnCancelledContext(t *testing.T) {
	env := newServiceEnv(t)
	bill := env.seedBilledScenario(t)

	ctx, cancel := testutil.ContextWithTimeout(t, 0)
	defer cancel()
	_, err := env.svc.SweepOverdue(ctx, bill.DueDate.AddDate(0, 0, 1))

	assert.Error(t, err)
}
