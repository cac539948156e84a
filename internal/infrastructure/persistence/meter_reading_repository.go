package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/utilitybill/backend/internal/domain/billing"
	"github.com/utilitybill/backend/internal/domain/shared"
	"github.com/utilitybill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMeterReadingRepository implements MeterReadingRepository using GORM
type GormMeterReadingRepository struct {
	db *gorm.DB
}

// NewGormMeterReadingRepository creates a new GormMeterReadingRepository
func NewGormMeterReadingRepository(db *gorm.DB) *GormMeterReadingRepository {
	return &GormMeterReadingRepository{db: db}
}

// FindByID finds a meter reading by its ID
func (r *GormMeterReadingRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.MeterReading, error) {
	return r.findOne(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a meter reading and takes a row lock (SELECT ... FOR UPDATE)
func (r *GormMeterReadingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*billing.MeterReading, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormMeterReadingRepository) findOne(db *gorm.DB, id uuid.UUID) (*billing.MeterReading, error) {
	var model models.MeterReadingModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, billing.ErrReadingNotFound.WithDetail("meter_reading_id", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists meter readings matching the filter, with the total count
func (r *GormMeterReadingRepository) FindAll(ctx context.Context, filter billing.MeterReadingFilter) ([]billing.MeterReading, int64, error) {
	scope := readingFilterScope(filter)

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.MeterReadingModel{}).
		Scopes(scope).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.MeterReadingModel
	if err := r.db.WithContext(ctx).
		Scopes(scope, paginate(filter.Filter, MeterReadingSortFields)).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	return readingsToDomain(rows), total, nil
}

func readingFilterScope(filter billing.MeterReadingFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.ConnectionID != nil {
			db = db.Where("connection_id = ?", *filter.ConnectionID)
		}
		if filter.Period != nil {
			db = db.Where("period_year = ? AND period_month = ?", filter.Period.Year, filter.Period.Month)
		}
		if filter.Billed != nil {
			db = db.Where("billed = ?", *filter.Billed)
		}
		return db
	}
}

// FindUnbilled lists unbilled readings of a period. A non-nil utilityTypeID
// restricts the result to connections of that utility type.
func (r *GormMeterReadingRepository) FindUnbilled(ctx context.Context, period billing.BillingPeriod, utilityTypeID *uuid.UUID) ([]billing.MeterReading, error) {
	query := r.db.WithContext(ctx).
		Model(&models.MeterReadingModel{}).
		Select("meter_readings.*").
		Where("meter_readings.billed = ? AND meter_readings.period_year = ? AND meter_readings.period_month = ?",
			false, period.Year, period.Month)
	if utilityTypeID != nil {
		query = query.
			Joins("JOIN connections ON connections.id = meter_readings.connection_id").
			Where("connections.utility_type_id = ?", *utilityTypeID)
	}

	var rows []models.MeterReadingModel
	if err := query.
		Order("meter_readings.connection_id ASC, meter_readings.reading_date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return readingsToDomain(rows), nil
}

// FindLatestForConnection returns the newest reading of a connection, or nil when it has none
func (r *GormMeterReadingRepository) FindLatestForConnection(ctx context.Context, connectionID uuid.UUID) (*billing.MeterReading, error) {
	var rows []models.MeterReadingModel
	if err := r.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Order("period_year DESC, period_month DESC, reading_date DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].ToDomain(), nil
}

// ExistsUnbilled reports whether an unbilled reading other than excludeID exists for the connection and period
func (r *GormMeterReadingRepository) ExistsUnbilled(ctx context.Context, connectionID uuid.UUID, period billing.BillingPeriod, excludeID uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&models.MeterReadingModel{}).
		Where("connection_id = ? AND period_year = ? AND period_month = ? AND billed = ?",
			connectionID, period.Year, period.Month, false)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new meter reading
func (r *GormMeterReadingRepository) Create(ctx context.Context, reading *billing.MeterReading) error {
	model := models.MeterReadingModelFromDomain(reading)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return billing.ErrDuplicateReading.
				WithDetail("connection_id", reading.ConnectionID.String()).
				WithDetail("period", reading.Period.String())
		}
		return err
	}
	return nil
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormMeterReadingRepository) SaveWithLock(ctx context.Context, reading *billing.MeterReading) error {
	result := r.db.WithContext(ctx).
		Model(&models.MeterReadingModel{}).
		Where("id = ? AND version = ?", reading.ID, reading.Version-1).
		Updates(map[string]any{
			"previous_reading": reading.PreviousReading,
			"current_reading":  reading.CurrentReading,
			"reading_date":     reading.ReadingDate,
			"billed":           reading.Billed,
			"bill_id":          reading.BillID,
			"billed_at":        reading.BilledAt,
			"version":          reading.Version,
			"updated_at":       reading.UpdatedAt,
		})

	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return billing.ErrDuplicateReading.
				WithDetail("connection_id", reading.ConnectionID.String()).
				WithDetail("period", reading.Period.String())
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.
			WithDetail("meter_reading_id", reading.ID.String()).
			WithDetail("version", reading.Version-1)
	}
	return nil
}

func readingsToDomain(rows []models.MeterReadingModel) []billing.MeterReading {
	readings := make([]billing.MeterReading, len(rows))
	for i := range rows {
		readings[i] = *rows[i].ToDomain()
	}
	return readings
}

// paginate applies a whitelisted ORDER BY with OFFSET and LIMIT.
// Page sizes are clamped to 1..100, defaulting to 20.
func paginate(f shared.Filter, sortFields map[string]bool) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		size := f.PageSize
		switch {
		case size <= 0:
			size = 20
		case size > 100:
			size = 100
		}
		page := f.Page
		if page < 1 {
			page = 1
		}
		return db.
			Order(orderClause(f.OrderBy, f.OrderDir, sortFields, "created_at")).
			Offset((page - 1) * size).
			Limit(size)
	}
}

var _ billing.MeterReadingRepository = (*GormMeterReadingRepository)(nil)
