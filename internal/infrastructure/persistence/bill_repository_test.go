package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/utilitybill/backend/internal/domain/billing"
	"github.com/utilitybill/backend/internal/domain/shared"
	"github.com/utilitybill/backend/internal/infrastructure/persistence/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestBillRepository_CreateAndFind(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormBillRepository(db)
	ctx := context.Background()
	f := seedBillingFixture(t, db)
	bill := composeBill(t, f)

	require.NoError(t, repo.Create(ctx, bill))

	t.Run("round trips every amount", func(t *testing.T) {
		found, err := repo.FindByID(ctx, bill.ID)
		require.NoError(t, err)
		assert.Equal(t, bill.BillNumber, found.BillNumber)
		assert.Equal(t, billing.BillStatusDue, found.Status)
		assert.True(t, dec("50").Equal(found.UnitsConsumed))
		assert.True(t, dec("250").Equal(found.EnergyCharge))
		assert.True(t, dec("30").Equal(found.TaxAmount))
		assert.True(t, dec("330").Equal(found.TotalAmount))
		assert.True(t, dec("25").Equal(found.LatePaymentPenalty))
		assert.True(t, found.AmountPaid.IsZero())
		assert.True(t, found.DueDate.Equal(testBillDate.AddDate(0, 0, 14)))
		assert.NoError(t, found.CheckInvariants())
	})

	t.Run("finds by meter reading", func(t *testing.T) {
		found, err := repo.FindByMeterReadingID(ctx, f.reading.ID)
		require.NoError(t, err)
		assert.Equal(t, bill.ID, found.ID)
	})

	t.Run("unknown id is BILL_NOT_FOUND", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, billing.ErrBillNotFound)
	})

	t.Run("second bill for the same reading is ALREADY_BILLED", func(t *testing.T) {
		again := composeBill(t, billingFixture{conn: f.conn, tariff: f.tariff, reading: freshReading(t, f)})
		again.MeterReadingID = f.reading.ID

		err := repo.Create(ctx, again)
		assert.ErrorIs(t, err, billing.ErrAlreadyBilled)
	})
}

// freshReading clones the fixture reading as unbilled so it can be composed again
func freshReading(t *testing.T, f billingFixture) *billing.MeterReading {
	t.Helper()
	r, err := billing.NewMeterReading(f.conn.ID, f.reading.Period, f.reading.PreviousReading, f.reading.CurrentReading, f.reading.ReadingDate)
	require.NoError(t, err)
	return r
}

func TestBillRepository_SaveWithLock(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormBillRepository(db)
	ctx := context.Background()
	bill := composeBill(t, seedBillingFixture(t, db))
	require.NoError(t, repo.Create(ctx, bill))

	loaded, err := repo.FindByIDForUpdate(ctx, bill.ID)
	require.NoError(t, err)
	require.NoError(t, loaded.ApplyPayment(dec("330"), testBillDate.Add(time.Hour)))
	require.NoError(t, repo.SaveWithLock(ctx, loaded))

	stored, err := repo.FindByID(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.BillStatusPaid, stored.Status)
	assert.True(t, dec("330").Equal(stored.AmountPaid))
	require.NotNil(t, stored.PaidAt)

	// the in-memory bill is a version behind
	_, err = bill.MarkOverdue(testBillDate.AddDate(0, 1, 0))
	require.NoError(t, err)
	err = repo.SaveWithLock(ctx, bill)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
}

func candidateIDs(candidates []billing.OverdueCandidate) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestBillRepository_FindOverdueCandidates(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormBillRepository(db)
	ctx := context.Background()

	due := composeBill(t, seedBillingFixture(t, db))
	require.NoError(t, repo.Create(ctx, due))

	paid := composeBill(t, seedBillingFixture(t, db))
	require.NoError(t, paid.ApplyPayment(paid.TotalAmount, testBillDate))
	require.NoError(t, repo.Create(ctx, paid))

	// settled amount on a row still marked DUE
	settled := composeBill(t, seedBillingFixture(t, db))
	require.NoError(t, repo.Create(ctx, settled))
	require.NoError(t, db.Model(&models.BillModel{}).
		Where("id = ?", settled.ID).
		Update("amount_paid", settled.TotalAmount).Error)

	t.Run("before due date nothing is a candidate", func(t *testing.T) {
		candidates, err := repo.FindOverdueCandidates(ctx, due.DueDate, nil, 100)
		require.NoError(t, err)
		assert.Empty(t, candidates)
	})

	t.Run("after due date only the unpaid DUE bill is a candidate", func(t *testing.T) {
		candidates, err := repo.FindOverdueCandidates(ctx, due.DueDate.AddDate(0, 0, 1), nil, 100)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, due.ID, candidates[0].ID)
		assert.True(t, due.DueDate.Equal(candidates[0].DueDate))
	})
}

func TestBillRepository_FindOverdueCandidates_PagesByDueDateAndID(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormBillRepository(db)
	ctx := context.Background()

	var created []uuid.UUID
	for range 3 {
		bill := composeBill(t, seedBillingFixture(t, db))
		require.NoError(t, repo.Create(ctx, bill))
		created = append(created, bill.ID)
	}
	early := composeBill(t, seedBillingFixture(t, db))
	early.DueDate = early.DueDate.AddDate(0, 0, -3)
	require.NoError(t, repo.Create(ctx, early))

	asOf := testBillDate.AddDate(0, 2, 0)
	first, err := repo.FindOverdueCandidates(ctx, asOf, nil, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, early.ID, first[0].ID)

	rest, err := repo.FindOverdueCandidates(ctx, asOf, &first[1], 2)
	require.NoError(t, err)
	require.Len(t, rest, 2)

	none, err := repo.FindOverdueCandidates(ctx, asOf, &rest[1], 2)
	require.NoError(t, err)
	assert.Empty(t, none)

	walked := append(candidateIDs(first), candidateIDs(rest)...)
	assert.ElementsMatch(t, append([]uuid.UUID{early.ID}, created...), walked)
}

func TestBillRepository_FindAllAndSummarize(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormBillRepository(db)
	ctx := context.Background()

	first := composeBill(t, seedBillingFixture(t, db))
	require.NoError(t, repo.Create(ctx, first))

	second := composeBill(t, seedBillingFixture(t, db))
	require.NoError(t, second.ApplyPayment(dec("100"), testBillDate))
	_, err := second.MarkOverdue(second.DueDate.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, second))

	t.Run("filters by status", func(t *testing.T) {
		status := billing.BillStatusOverdue
		bills, total, err := repo.FindAll(ctx, billing.BillFilter{Filter: shared.DefaultFilter(), Status: &status})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, bills, 1)
		assert.Equal(t, second.ID, bills[0].ID)
	})

	t.Run("filters by connection", func(t *testing.T) {
		connID := first.ConnectionID
		bills, total, err := repo.FindAll(ctx, billing.BillFilter{Filter: shared.DefaultFilter(), ConnectionID: &connID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, first.ID, bills[0].ID)
	})

	t.Run("summarizes per status", func(t *testing.T) {
		summary, err := repo.Summarize(ctx, &testPeriod)
		require.NoError(t, err)

		assert.Equal(t, int64(2), summary.BillCount)
		assert.Equal(t, int64(1), summary.CountByStatus[billing.BillStatusDue])
		assert.Equal(t, int64(1), summary.CountByStatus[billing.BillStatusOverdue])
		assert.Equal(t, int64(0), summary.CountByStatus[billing.BillStatusPaid])
		assert.True(t, dec("685").Equal(summary.TotalBilled), summary.TotalBilled.String())
		assert.True(t, dec("100").Equal(summary.TotalPaid))
		assert.True(t, dec("585").Equal(summary.TotalOutstanding))
		assert.True(t, dec("25").Equal(summary.TotalPenalties))
	})

	t.Run("other period is empty", func(t *testing.T) {
		other := billing.BillingPeriod{Year: 2025, Month: 1}
		summary, err := repo.Summarize(ctx, &other)
		require.NoError(t, err)
		assert.Equal(t, int64(0), summary.BillCount)
		assert.True(t, summary.TotalBilled.IsZero())
	})
}

func newMockBillRepo(t *testing.T) (*GormBillRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return NewGormBillRepository(gormDB), mock, mockDB
}

func TestBillRepository_FindByIDForUpdate_LocksRow(t *testing.T) {
	repo, mock, mockDB := newMockBillRepo(t)
	defer mockDB.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "bills" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "version"}).AddRow(id.String(), "DUE", 3))

	bill, err := repo.FindByIDForUpdate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, bill.ID)
	assert.Equal(t, 3, bill.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBillRepository_SaveWithLock_NoRowsIsConflict(t *testing.T) {
	repo, mock, mockDB := newMockBillRepo(t)
	defer mockDB.Close()

	bill := &billing.Bill{}
	bill.ID = uuid.New()
	bill.Version = 4
	bill.Status = billing.BillStatusPaid

	mock.ExpectExec(`UPDATE "bills" SET .* WHERE id = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveWithLock(context.Background(), bill)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
