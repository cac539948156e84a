package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/utilitybill/backend/internal/domain/billing"
	"github.com/utilitybill/backend/internal/domain/shared"
	"github.com/utilitybill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, billing.ErrPaymentNotFound.WithDetail("payment_id", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByBillID lists the payments of a bill in payment order
func (r *GormPaymentRepository) FindByBillID(ctx context.Context, billID uuid.UUID) ([]billing.Payment, error) {
	var rows []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("bill_id = ?", billID).
		Order("payment_date ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	payments := make([]billing.Payment, len(rows))
	for i := range rows {
		payments[i] = *rows[i].ToDomain()
	}
	return payments, nil
}

// FindByIdempotencyKey returns the payment recorded under key, or nil when there is none
func (r *GormPaymentRepository) FindByIdempotencyKey(ctx context.Context, key string) (*billing.Payment, error) {
	if key == "" {
		return nil, nil
	}
	var rows []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].ToDomain(), nil
}

// SumCompletedByBill returns the sum of COMPLETED payments for a bill
func (r *GormPaymentRepository) SumCompletedByBill(ctx context.Context, billID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("bill_id = ? AND status = ?", billID, billing.PaymentStatusCompleted).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total.Round(4), nil
}

// Create inserts a new payment. A reused idempotency key yields ErrAlreadyExists.
func (r *GormPaymentRepository) Create(ctx context.Context, payment *billing.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists.
				WithDetail("bill_id", payment.BillID.String()).
				WithDetail("idempotency_key", payment.IdempotencyKey)
		}
		return err
	}
	return nil
}

var _ billing.PaymentRepository = (*GormPaymentRepository)(nil)
