package billing

import (
	"context"

	"github.com/utilitybill/backend/internal/domain/billing"
)

// TransactionScope provides transactional access to billing repositories.
// Everything done through the repositories handed to fn commits or rolls back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the billing repositories within a transaction.
// All repositories returned share the same underlying database transaction.
//
// Aggregate boundaries:
//   - ReadingRepo: MeterReading aggregate; locked before it is billed
//   - BillRepo: Bill aggregate; locked before payments and overdue transitions
//   - PaymentRepo: append-only payment ledger
//   - ConnectionRepo, TariffRepo: reference data read while composing a bill
type TransactionalRepositories interface {
	ReadingRepo() billing.MeterReadingRepository
	BillRepo() billing.BillRepository
	PaymentRepo() billing.PaymentRepository
	ConnectionRepo() billing.ConnectionRepository
	TariffRepo() billing.TariffPlanRepository
}

// NoOpTransactionScope runs fn against fixed repositories without a transaction.
// Used in unit tests with in-memory repositories.
type NoOpTransactionScope struct {
	Readings    billing.MeterReadingRepository
	Bills       billing.BillRepository
	Payments    billing.PaymentRepository
	Connections billing.ConnectionRepository
	Tariffs     billing.TariffPlanRepository
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// ReadingRepo returns the meter reading repository
func (s *NoOpTransactionScope) ReadingRepo() billing.MeterReadingRepository { return s.Readings }

// BillRepo returns the bill repository
func (s *NoOpTransactionScope) BillRepo() billing.BillRepository { return s.Bills }

// PaymentRepo returns the payment repository
func (s *NoOpTransactionScope) PaymentRepo() billing.PaymentRepository { return s.Payments }

// ConnectionRepo returns the connection repository
func (s *NoOpTransactionScope) ConnectionRepo() billing.ConnectionRepository { return s.Connections }

// TariffRepo returns the tariff plan repository
func (s *NoOpTransactionScope) TariffRepo() billing.TariffPlanRepository { return s.Tariffs }

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
