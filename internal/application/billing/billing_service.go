package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/utilitybill/backend/internal/domain/billing"
	"github.com/utilitybill/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Service defaults
const (
	DefaultBulkConcurrency = 8
	DefaultSweepBatchSize  = 500
)

// BillingService handles the billing lifecycle: meter readings, bill
// generation, payments and the overdue sweep.
type BillingService struct {
	txScope        TransactionScope
	readingRepo    billing.MeterReadingRepository
	billRepo       billing.BillRepository
	paymentRepo    billing.PaymentRepository
	connectionRepo billing.ConnectionRepository
	tariffRepo     billing.TariffPlanRepository
	composer       *billing.BillComposer
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time

	bulkConcurrency int
	sweepBatchSize  int
}

// Option configures a BillingService
type Option func(*BillingService)

// WithComposer sets the bill composer (grace period, numbering, rounding)
func WithComposer(c *billing.BillComposer) Option {
	return func(s *BillingService) {
		if c != nil {
			s.composer = c
		}
	}
}

// WithBulkConcurrency bounds how many connections a bulk run bills at once
func WithBulkConcurrency(n int) Option {
	return func(s *BillingService) {
		if n > 0 {
			s.bulkConcurrency = n
		}
	}
}

// WithSweepBatchSize sets how many overdue candidates are loaded per query
func WithSweepBatchSize(n int) Option {
	return func(s *BillingService) {
		if n > 0 {
			s.sweepBatchSize = n
		}
	}
}

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) Option {
	return func(s *BillingService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *BillingService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewBillingService creates a new BillingService
func NewBillingService(
	txScope TransactionScope,
	readingRepo billing.MeterReadingRepository,
	billRepo billing.BillRepository,
	paymentRepo billing.PaymentRepository,
	connectionRepo billing.ConnectionRepository,
	tariffRepo billing.TariffPlanRepository,
	opts ...Option,
) *BillingService {
	s := &BillingService{
		txScope:         txScope,
		readingRepo:     readingRepo,
		billRepo:        billRepo,
		paymentRepo:     paymentRepo,
		connectionRepo:  connectionRepo,
		tariffRepo:      tariffRepo,
		composer:        billing.NewBillComposer(),
		logger:          zap.NewNop(),
		now:             time.Now,
		bulkConcurrency: DefaultBulkConcurrency,
		sweepBatchSize:  DefaultSweepBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *BillingService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// publishEvents publishes events collected during a committed transaction.
// Publishing failures are logged, never returned: the state change already happened.
func (s *BillingService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish billing events",
			zap.Int("count", len(events)),
			zap.Error(err),
		)
	}
}

// ResolveTariff returns the tariff plan that applies to a connection
func (s *BillingService) ResolveTariff(ctx context.Context, connectionID uuid.UUID) (*TariffResolutionResponse, error) {
	conn, plan, err := billing.NewTariffResolver(s.connectionRepo, s.tariffRepo).Resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	return &TariffResolutionResponse{
		ConnectionID:     conn.ID,
		ConnectionNumber: conn.ConnectionNumber,
		UtilityTypeID:    conn.UtilityTypeID,
		TariffPlan:       ToTariffPlanResponse(plan),
	}, nil
}

// GetBill retrieves a bill by ID
func (s *BillingService) GetBill(ctx context.Context, billID uuid.UUID) (*BillResponse, error) {
	bill, err := s.billRepo.FindByID(ctx, billID)
	if err != nil {
		return nil, err
	}
	resp := ToBillResponse(bill)
	return &resp, nil
}

// ListBills lists bills with filtering and pagination
func (s *BillingService) ListBills(ctx context.Context, filter BillListFilter) ([]BillResponse, int64, error) {
	domainFilter := billing.BillFilter{
		Filter:       toSharedFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir),
		ConnectionID: filter.ConnectionID,
		ConsumerID:   filter.ConsumerID,
	}
	if filter.Status != "" {
		status := billing.BillStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.ErrInvalidInput.WithDetail("status", filter.Status)
		}
		domainFilter.Status = &status
	}
	if filter.Period != "" {
		period, err := billing.ParseBillingPeriod(filter.Period)
		if err != nil {
			return nil, 0, err
		}
		domainFilter.Period = &period
	}

	bills, total, err := s.billRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	items := make([]BillResponse, len(bills))
	for i := range bills {
		items[i] = ToBillResponse(&bills[i])
	}
	return items, total, nil
}

// ListPayments lists the payments recorded against a bill
func (s *BillingService) ListPayments(ctx context.Context, billID uuid.UUID) ([]PaymentResponse, error) {
	if _, err := s.billRepo.FindByID(ctx, billID); err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.FindByBillID(ctx, billID)
	if err != nil {
		return nil, err
	}
	items := make([]PaymentResponse, len(payments))
	for i := range payments {
		items[i] = ToPaymentResponse(&payments[i])
	}
	return items, nil
}

// GetBillingSummary aggregates bill totals, optionally for one period
func (s *BillingService) GetBillingSummary(ctx context.Context, period *billing.BillingPeriod) (*BillingSummaryResponse, error) {
	if period != nil {
		if err := period.Validate(); err != nil {
			return nil, err
		}
	}
	summary, err := s.billRepo.Summarize(ctx, period)
	if err != nil {
		return nil, err
	}
	resp := ToBillingSummaryResponse(summary)
	return &resp, nil
}

func toSharedFilter(page, pageSize int, orderBy, orderDir string) shared.Filter {
	f := shared.DefaultFilter()
	if page > 0 {
		f.Page = page
	}
	if pageSize > 0 {
		f.PageSize = pageSize
	}
	if orderBy != "" {
		f.OrderBy = orderBy
	}
	if orderDir != "" {
		f.OrderDir = orderDir
	}
	return f
}

// errorCode returns the domain error code of err, or "" for infrastructure errors
func errorCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
