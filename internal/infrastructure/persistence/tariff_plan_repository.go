package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/utilitybill/backend/internal/domain/billing"
	"github.com/utilitybill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTariffPlanRepository implements TariffPlanRepository using GORM
type GormTariffPlanRepository struct {
	db *gorm.DB
}

// NewGormTariffPlanRepository creates a new GormTariffPlanRepository
func NewGormTariffPlanRepository(db *gorm.DB) *GormTariffPlanRepository {
	return &GormTariffPlanRepository{db: db}
}

// FindByID finds a tariff plan by its ID
func (r *GormTariffPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.TariffPlan, error) {
	var model models.TariffPlanModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, billing.ErrTariffNotFound.WithDetail("tariff_plan_id", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByUtilityType lists the active plans of a utility type, oldest first
func (r *GormTariffPlanRepository) FindActiveByUtilityType(ctx context.Context, utilityTypeID uuid.UUID) ([]billing.TariffPlan, error) {
	var rows []models.TariffPlanModel
	if err := r.db.WithContext(ctx).
		Where("utility_type_id = ? AND active = ?", utilityTypeID, true).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	plans := make([]billing.TariffPlan, len(rows))
	for i := range rows {
		plans[i] = *rows[i].ToDomain()
	}
	return plans, nil
}

// Save creates or updates a tariff plan
func (r *GormTariffPlanRepository) Save(ctx context.Context, plan *billing.TariffPlan) error {
	model := models.TariffPlanModelFromDomain(plan)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(model).Error
}

var _ billing.TariffPlanRepository = (*GormTariffPlanRepository)(nil)
