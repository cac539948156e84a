package persistence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/utilitybill/backend/internal/domain/billing"
	"github.com/utilitybill/backend/internal/infrastructure/persistence/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testBillDate = time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)

var testPeriod = billing.BillingPeriod{Year: 2026, Month: 3}

func setupBillingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// a single connection keeps every query on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type billingFixture struct {
	conn    *billing.Connection
	tariff  *billing.TariffPlan
	reading *billing.MeterReading
}

// seedBillingFixture stores a connection, its tariff and an unbilled 100 -> 150 reading
func seedBillingFixture(t *testing.T, db *gorm.DB) billingFixture {
	t.Helper()
	ctx := t.Context()

	conn, err := billing.NewConnection("CN-"+uuid.NewString()[:8], uuid.New(), uuid.New())
	require.NoError(t, err)
	require.NoError(t, NewGormConnectionRepository(db).Save(ctx, conn))

	tariff, err := billing.NewTariffPlan(billing.TariffPlanSpec{
		Name:               "Residential",
		UtilityTypeID:      conn.UtilityTypeID,
		RatePerUnit:        dec("5"),
		FixedCharge:        dec("50"),
		TaxPercentage:      dec("10"),
		LatePaymentPenalty: dec("25"),
		BillingCycleMonths: 1,
	})
	require.NoError(t, err)
	require.NoError(t, NewGormTariffPlanRepository(db).Save(ctx, tariff))

	reading, err := billing.NewMeterReading(conn.ID, testPeriod, dec("100"), dec("150"),
		time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, NewGormMeterReadingRepository(db).Create(ctx, reading))

	return billingFixture{conn: conn, tariff: tariff, reading: reading}
}

// composeBill prices the fixture reading; the reading is marked billed in memory only
func composeBill(t *testing.T, f billingFixture) *billing.Bill {
	t.Helper()
	bill, err := billing.NewBillComposer().Compose(f.reading, f.conn, f.tariff, testBillDate)
	require.NoError(t, err)
	return bill
}
