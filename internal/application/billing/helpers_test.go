package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	appbilling "github.com/utilitybill/backend/internal/application/billing"
	"github.com/utilitybill/backend/internal/domain/billing"
	"github.com/utilitybill/backend/internal/domain/shared"
	"github.com/utilitybill/backend/internal/infrastructure/persistence"
	"github.com/utilitybill/backend/tests/testutil"
	"gorm.io/gorm"
)

var (
	billDate  = time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)
	marchDate = time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC)
)

type serviceEnv struct {
	db        *gorm.DB
	svc       *appbilling.BillingService
	publisher *testutil.RecordingPublisher
	conns     *persistence.GormConnectionRepository
	tariffs   *persistence.GormTariffPlanRepository
	readings  *persistence.GormMeterReadingRepository
	bills     *persistence.GormBillRepository
	payments  *persistence.GormPaymentRepository
}

func newServiceEnv(t *testing.T, opts ...appbilling.Option) *serviceEnv {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	env := &serviceEnv{
		db:        db,
		publisher: testutil.NewRecordingPublisher(),
		conns:     persistence.NewGormConnectionRepository(db),
		tariffs:   persistence.NewGormTariffPlanRepository(db),
		readings:  persistence.NewGormMeterReadingRepository(db),
		bills:     persistence.NewGormBillRepository(db),
		payments:  persistence.NewGormPaymentRepository(db),
	}
	opts = append([]appbilling.Option{appbilling.WithClock(func() time.Time { return billDate })}, opts...)
	env.svc = appbilling.NewBillingService(
		persistence.NewGormTransactionScope(db),
		env.readings, env.bills, env.payments, env.conns, env.tariffs,
		opts...,
	)
	env.svc.SetEventPublisher(env.publisher)
	return env
}

// seedConnection stores an active connection of the given utility type
func (e *serviceEnv) seedConnection(t *testing.T, utilityTypeID uuid.UUID) *billing.Connection {
	t.Helper()
	conn, err := billing.NewConnection("CN-"+uuid.NewString()[:8], uuid.New(), utilityTypeID)
	require.NoError(t, err)
	require.NoError(t, e.conns.Save(t.Context(), conn))
	return conn
}

// seedTariff stores the residential plan: rate 5, fixed 50, tax 10%, penalty 25
func (e *serviceEnv) seedTariff(t *testing.T, utilityTypeID uuid.UUID) *billing.TariffPlan {
	t.Helper()
	tariff, err := billing.NewTariffPlan(billing.TariffPlanSpec{
		Name:               "Residential",
		UtilityTypeID:      utilityTypeID,
		RatePerUnit:        testutil.Dec("5"),
		FixedCharge:        testutil.Dec("50"),
		TaxPercentage:      testutil.Dec("10"),
		LatePaymentPenalty: testutil.Dec("25"),
		BillingCycleMonths: 1,
	})
	require.NoError(t, err)
	require.NoError(t, e.tariffs.Save(t.Context(), tariff))
	return tariff
}

// recordReading records a March 2026 reading through the service
func (e *serviceEnv) recordReading(t *testing.T, connID uuid.UUID, previous, current string) *appbilling.MeterReadingResponse {
	t.Helper()
	prev := testutil.Dec(previous)
	cur := testutil.Dec(current)
	resp, err := e.svc.RecordMeterReading(t.Context(), appbilling.RecordMeterReadingRequest{
		ConnectionID:    connID,
		Period:          "2026-03",
		PreviousReading: &prev,
		CurrentReading:  &cur,
		ReadingDate:     &marchDate,
	})
	require.NoError(t, err)
	return resp
}

// seedBilledScenario produces the 330 DUE bill for a 100 -> 150 reading
func (e *serviceEnv) seedBilledScenario(t *testing.T) *appbilling.BillResponse {
	t.Helper()
	utilityType := uuid.New()
	e.seedTariff(t, utilityType)
	conn := e.seedConnection(t, utilityType)
	reading := e.recordReading(t, conn.ID, "100", "150")

	bill, err := e.svc.GenerateBill(t.Context(), reading.ID)
	require.NoError(t, err)
	return bill
}

func (e *serviceEnv) pay(t *testing.T, billID uuid.UUID, amount, key string) (*appbilling.PaymentResponse, error) {
	t.Helper()
	a := testutil.Dec(amount)
	return e.svc.ApplyPayment(t.Context(), appbilling.ApplyPaymentRequest{
		BillID:         billID,
		Amount:         &a,
		Method:         string(billing.PaymentMethodCash),
		IdempotencyKey: key,
	})
}

// cancellingPublisher cancels a context after the first published batch
type cancellingPublisher struct {
	cancel context.CancelFunc
}

func (p *cancellingPublisher) Publish(context.Context, ...shared.DomainEvent) error {
	p.cancel()
	return nil
}
