package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/utilitybill/backend/internal/domain/billing"
	"github.com/utilitybill/backend/internal/domain/shared"
	"github.com/utilitybill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBillRepository implements BillRepository using GORM
type GormBillRepository struct {
	db *gorm.DB
}

// NewGormBillRepository creates a new GormBillRepository
func NewGormBillRepository(db *gorm.DB) *GormBillRepository {
	return &GormBillRepository{db: db}
}

// FindByID finds a bill by its ID
func (r *GormBillRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	return r.findOne(r.db.WithContext(ctx), "id = ?", id)
}

// FindByIDForUpdate finds a bill and takes a row lock (SELECT ... FOR UPDATE)
func (r *GormBillRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", id)
}

// FindByMeterReadingID finds the bill generated from a meter reading
func (r *GormBillRepository) FindByMeterReadingID(ctx context.Context, readingID uuid.UUID) (*billing.Bill, error) {
	return r.findOne(r.db.WithContext(ctx), "meter_reading_id = ?", readingID)
}

func (r *GormBillRepository) findOne(db *gorm.DB, cond string, id uuid.UUID) (*billing.Bill, error) {
	var model models.BillModel
	if err := db.Where(cond, id).First(&model).Error; err != nil {
		if isNotFound(err) {
			return nil, billing.ErrBillNotFound.WithDetail("lookup", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists bills matching the filter, with the total count
func (r *GormBillRepository) FindAll(ctx context.Context, filter billing.BillFilter) ([]billing.Bill, int64, error) {
	scope := billFilterScope(filter)

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.BillModel{}).
		Scopes(scope).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.BillModel
	if err := r.db.WithContext(ctx).
		Scopes(scope, paginate(filter.Filter, BillSortFields)).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	bills := make([]billing.Bill, len(rows))
	for i := range rows {
		bills[i] = *rows[i].ToDomain()
	}
	return bills, total, nil
}

func billFilterScope(filter billing.BillFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.Status != nil {
			db = db.Where("status = ?", *filter.Status)
		}
		if filter.ConnectionID != nil {
			db = db.Where("connection_id = ?", *filter.ConnectionID)
		}
		if filter.ConsumerID != nil {
			db = db.Where("consumer_id = ?", *filter.ConsumerID)
		}
		if filter.Period != nil {
			db = db.Where("period_year = ? AND period_month = ?", filter.Period.Year, filter.Period.Month)
		}
		return db
	}
}

// FindOverdueCandidates pages through unpaid DUE bills past their due date by (due_date, id)
func (r *GormBillRepository) FindOverdueCandidates(ctx context.Context, asOf time.Time, after *billing.OverdueCandidate, limit int) ([]billing.OverdueCandidate, error) {
	query := r.db.WithContext(ctx).
		Model(&models.BillModel{}).
		Select("id", "due_date").
		Where("status = ? AND due_date < ? AND amount_paid < total_amount", billing.BillStatusDue, asOf)
	if after != nil {
		query = query.Where("(due_date > ? OR (due_date = ? AND id > ?))", after.DueDate, after.DueDate, after.ID)
	}
	query = query.Order("due_date ASC").Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var candidates []billing.OverdueCandidate
	if err := query.Scan(&candidates).Error; err != nil {
		return nil, err
	}
	return candidates, nil
}

// Create inserts a new bill
func (r *GormBillRepository) Create(ctx context.Context, bill *billing.Bill) error {
	model := models.BillModelFromDomain(bill)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "bill_number") {
				return shared.ErrAlreadyExists.WithDetail("bill_number", bill.BillNumber)
			}
			return billing.ErrAlreadyBilled.WithDetail("meter_reading_id", bill.MeterReadingID.String())
		}
		return err
	}
	return nil
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormBillRepository) SaveWithLock(ctx context.Context, bill *billing.Bill) error {
	result := r.db.WithContext(ctx).
		Model(&models.BillModel{}).
		Where("id = ? AND version = ?", bill.ID, bill.Version-1).
		Updates(map[string]any{
			"penalty_amount": bill.PenaltyAmount,
			"total_amount":   bill.TotalAmount,
			"amount_paid":    bill.AmountPaid,
			"status":         bill.Status,
			"paid_at":        bill.PaidAt,
			"overdue_at":     bill.OverdueAt,
			"version":        bill.Version,
			"updated_at":     bill.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.
			WithDetail("bill_id", bill.ID.String()).
			WithDetail("version", bill.Version-1)
	}
	return nil
}

type billStatusAggregate struct {
	Status    billing.BillStatus
	BillCount int64
	Billed    decimal.Decimal
	Paid      decimal.Decimal
	Penalties decimal.Decimal
}

// Summarize aggregates bill totals per status, optionally for a single period
func (r *GormBillRepository) Summarize(ctx context.Context, period *billing.BillingPeriod) (*billing.BillingSummary, error) {
	query := r.db.WithContext(ctx).
		Model(&models.BillModel{}).
		Select(`status,
			COUNT(*) AS bill_count,
			COALESCE(SUM(total_amount), 0) AS billed,
			COALESCE(SUM(amount_paid), 0) AS paid,
			COALESCE(SUM(penalty_amount), 0) AS penalties`).
		Group("status")
	if period != nil {
		query = query.Where("period_year = ? AND period_month = ?", period.Year, period.Month)
	}

	var rows []billStatusAggregate
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	summary := billing.NewBillingSummary(period)
	for _, row := range rows {
		summary.Add(row.Status, row.BillCount,
			row.Billed.Round(4), row.Paid.Round(4), row.Penalties.Round(4))
	}
	return summary, nil
}

var _ billing.BillRepository = (*GormBillRepository)(nil)
